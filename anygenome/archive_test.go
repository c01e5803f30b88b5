package anygenome

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio/npz"
	"gonum.org/v1/gonum/mat"
)

func writeTestNPZ(t *testing.T, path string, arrays map[string]interface{}) {
	w, err := npz.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	for name, v := range arrays {
		if err := w.Write(name, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNPZArchive(t *testing.T) {
	dir := t.TempDir()
	genomePath := filepath.Join(dir, "genome.npz")
	labelPath := filepath.Join(dir, "labels.npz")
	removePath := filepath.Join(dir, "remove.npz")

	writeTestNPZ(t, genomePath, map[string]interface{}{
		"chr1": mat.NewDense(3, 4, []float64{
			0, 0, 1, 0,
			0, 0, 0, 0,
			1, 0, 0, 0,
		}),
	})
	writeTestNPZ(t, labelPath, map[string]interface{}{
		"chr1": []float32{0.5, 1.5, 2.5},
	})
	writeTestNPZ(t, removePath, map[string]interface{}{
		"chr1": []int64{2},
	})

	genome, err := OpenNPZ(genomePath)
	if err != nil {
		t.Fatal(err)
	}
	defer genome.Close()
	labels, err := OpenNPZ(labelPath)
	if err != nil {
		t.Fatal(err)
	}
	defer labels.Close()
	remove, err := OpenNPZ(removePath)
	if err != nil {
		t.Fatal(err)
	}
	defer remove.Close()

	if keys := genome.Keys(); len(keys) != 1 || keys[0] != "chr1" || !genome.Has("chr1") {
		t.Fatalf("unexpected keys: %v", keys)
	}

	m, err := Merge([]string{"chr1"}, genome, labels)
	if err != nil {
		t.Fatal(err)
	}
	if m.Sequence.String() != "GNA" {
		t.Errorf("unexpected sequence: %s", m.Sequence.String())
	}
	if m.Labels[1] != 1.5 {
		t.Errorf("unexpected labels: %v", m.Labels)
	}

	idxs, err := m.Offsets.RemapIndices(remove)
	if err != nil {
		t.Fatal(err)
	}
	if len(idxs) != 1 || idxs[0] != 2 {
		t.Errorf("unexpected indices: %v", idxs)
	}

	var cfgErr *ConfigError
	if _, err := labels.Sequence("chr1"); !errors.As(err, &cfgErr) {
		t.Errorf("expected shape error, got %v", err)
	}
	if _, err := genome.Sequence("chrX"); !errors.As(err, &cfgErr) {
		t.Errorf("expected missing id error, got %v", err)
	}
}
