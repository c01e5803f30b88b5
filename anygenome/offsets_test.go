package anygenome

import (
	"errors"
	"math/rand"
	"testing"
)

func TestOffsetsLayout(t *testing.T) {
	o := NewOffsets([]string{"a", "b", "c"}, []int{5, 3, 4})
	if o.Len() != 5+1+3+1+4 {
		t.Fatalf("unexpected length: %d", o.Len())
	}
	expectedSpans := [][2]int{{0, 5}, {6, 9}, {10, 14}}
	for i, expected := range expectedSpans {
		start, end := o.Span(i)
		if start != expected[0] || end != expected[1] {
			t.Errorf("chrom %d: expected span %v but got [%d, %d)", i, expected, start, end)
		}
	}
	for _, gap := range []int{5, 9, -1, 14} {
		if c := o.Chrom(gap); c != -1 {
			t.Errorf("position %d: expected gap but got chrom %d", gap, c)
		}
		if _, _, ok := o.Local(gap); ok {
			t.Errorf("position %d: expected no local coordinate", gap)
		}
	}
}

func TestOffsetsInvertible(t *testing.T) {
	for trial := 0; trial < 20; trial++ {
		ids := []string{"x", "y", "z", "w"}[:1+rand.Intn(4)]
		lengths := make([]int, len(ids))
		for i := range lengths {
			lengths[i] = 1 + rand.Intn(30)
		}
		o := NewOffsets(ids, lengths)
		seen := map[int]bool{}
		for i, id := range ids {
			for local := 0; local < lengths[i]; local++ {
				global, err := o.Global(id, local)
				if err != nil {
					t.Fatal(err)
				}
				if seen[global] {
					t.Fatalf("position %d mapped twice", global)
				}
				seen[global] = true
				backID, backLocal, ok := o.Local(global)
				if !ok || backID != id || backLocal != local {
					t.Fatalf("%s:%d -> %d -> %s:%d (ok=%v)", id, local, global,
						backID, backLocal, ok)
				}
			}
		}
		if len(seen) != o.Len()-(len(ids)-1) {
			t.Errorf("expected %d mapped positions but got %d", o.Len()-(len(ids)-1), len(seen))
		}
	}
}

func TestOffsetsRemapIndices(t *testing.T) {
	o := NewOffsets([]string{"a", "b"}, []int{4, 6})
	src := &MemArchive{Excluded: map[string][]int64{
		"a": {3, 0},
		"b": {0, 5},
	}}
	actual, err := o.RemapIndices(src)
	if err != nil {
		t.Fatal(err)
	}
	expected := []int{0, 3, 5, 10}
	if len(actual) != len(expected) {
		t.Fatalf("expected %v but got %v", expected, actual)
	}
	for i, x := range expected {
		if actual[i] != x {
			t.Fatalf("expected %v but got %v", expected, actual)
		}
	}

	src.Excluded["b"] = []int64{6}
	_, err = o.RemapIndices(src)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected config error for out-of-range index, got %v", err)
	}

	delete(src.Excluded, "a")
	if _, err := o.RemapIndices(src); !errors.As(err, &cfgErr) {
		t.Errorf("expected config error for missing id, got %v", err)
	}
}

func TestOffsetsGlobalUnknown(t *testing.T) {
	o := NewOffsets([]string{"a"}, []int{3})
	var cfgErr *ConfigError
	if _, err := o.Global("b", 0); !errors.As(err, &cfgErr) {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := o.Global("a", 3); !errors.As(err, &cfgErr) {
		t.Errorf("unexpected error: %v", err)
	}
}
