package anywin

import (
	"math/rand"
	"testing"

	"github.com/seqsig/anyprof/anygenome"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestFilterNoBoundaryCrossing(t *testing.T) {
	gen := rand.New(rand.NewSource(1))
	for trial := 0; trial < 30; trial++ {
		lengths := make([]int, 1+gen.Intn(4))
		for i := range lengths {
			lengths[i] = gen.Intn(40)
		}
		a, ids := randomArchive(gen, lengths)
		m := mustMerge(t, ids, a)
		winSize := 1 + 2*gen.Intn(6)
		f := &Filter{WinSize: winSize, Remove0s: gen.Intn(2) == 0, RemoveNs: gen.Intn(2) == 0}
		eligible := f.Eligible(m)

		half := winSize / 2
		for _, pos := range eligible {
			chrom := m.Offsets.Chrom(pos)
			if chrom < 0 {
				t.Fatalf("trial %d: center %d is a gap", trial, pos)
			}
			start, end := m.Offsets.Span(chrom)
			if pos-half < start || pos+half >= end {
				t.Fatalf("trial %d: window at %d leaves [%d, %d)", trial, pos, start, end)
			}
			for i := pos - half; i <= pos+half; i++ {
				if m.Offsets.Chrom(i) != chrom {
					t.Fatalf("trial %d: window at %d touches %d", trial, pos, i)
				}
			}
		}

		if len(eligible) > 0 {
			asm := &Assembler{Merged: m, WinSize: winSize, Creator: anyvec32.CurrentCreator()}
			var draws []Draw
			for _, pos := range eligible {
				draws = append(draws, Draw{Pos: pos}, Draw{Pos: pos, Reverse: true})
			}
			asm.Assemble(draws)
		}
	}
}

func TestFilterOffsetShift(t *testing.T) {
	gen := rand.New(rand.NewSource(2))
	for trial := 0; trial < 10; trial++ {
		a, ids := randomArchive(gen, []int{5 + gen.Intn(50), 5 + gen.Intn(50)})
		winSize := 1 + 2*gen.Intn(3)
		f := &Filter{WinSize: winSize, Remove0s: true}

		joint := f.Eligible(mustMerge(t, ids, a))
		alone := f.Eligible(mustMerge(t, ids[1:], a))

		offset := len(a.Signals[ids[0]]) + 1
		var shifted []int
		for _, pos := range joint {
			if pos >= offset {
				shifted = append(shifted, pos-offset)
			}
		}
		if len(shifted) != len(alone) {
			t.Fatalf("trial %d: expected %v but got %v", trial, alone, shifted)
		}
		for i, x := range alone {
			if shifted[i] != x {
				t.Fatalf("trial %d: expected %v but got %v", trial, alone, shifted)
			}
		}
	}
}

func TestFilterRules(t *testing.T) {
	a := &anygenome.MemArchive{
		Sequences: map[string]*anygenome.Sequence{
			"a": anygenome.FromString("ACNGTAC"),
			"b": anygenome.FromString("GGG"),
		},
		Signals: map[string][]float32{
			"a": {1, 0, 2, 3, 0, 4, 5},
			"b": {1, 1, 1},
		},
	}
	m := mustMerge(t, []string{"a", "b"}, a)

	cases := []struct {
		Filter   Filter
		Expected []int
	}{
		{Filter{WinSize: 1}, []int{0, 1, 2, 3, 4, 5, 6, 8, 9, 10}},
		{Filter{WinSize: 3}, []int{1, 2, 3, 4, 5, 9}},
		{Filter{WinSize: 1, Remove0s: true}, []int{0, 2, 3, 5, 6, 8, 9, 10}},
		{Filter{WinSize: 1, RemoveNs: true}, []int{0, 1, 3, 4, 5, 6, 8, 9, 10}},
		{Filter{WinSize: 1, Exclude: []int{0, 9, 100}}, []int{1, 2, 3, 4, 5, 6, 8, 10}},
		{
			Filter{WinSize: 3, Remove0s: true, RemoveNs: true, Exclude: []int{3}},
			[]int{5, 9},
		},
	}
	for i, c := range cases {
		actual := c.Filter.Eligible(m)
		if len(actual) != len(c.Expected) {
			t.Errorf("case %d: expected %v but got %v", i, c.Expected, actual)
			continue
		}
		for j, x := range c.Expected {
			if actual[j] != x {
				t.Errorf("case %d: expected %v but got %v", i, c.Expected, actual)
				break
			}
		}
	}
}
