package anywin

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/seqsig/anyprof/anygenome"
	"github.com/unixpickle/anyvec/anyvec32"
)

func newTestRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// randomArchive creates chromosomes of the given lengths
// with random bases (some N) and random labels (some 0).
func randomArchive(gen *rand.Rand, lengths []int) (*anygenome.MemArchive, []string) {
	a := &anygenome.MemArchive{
		Sequences: map[string]*anygenome.Sequence{},
		Signals:   map[string][]float32{},
	}
	var ids []string
	for i, n := range lengths {
		id := fmt.Sprintf("chr%d", i+1)
		ids = append(ids, id)
		seq := make([]byte, n)
		labels := make([]float32, n)
		for j := range seq {
			seq[j] = "ACGTACGTACGTN"[gen.Intn(13)]
			if gen.Intn(4) != 0 {
				labels[j] = float32(gen.Intn(10))
			}
		}
		a.Sequences[id] = anygenome.FromString(string(seq))
		a.Signals[id] = labels
	}
	return a, ids
}

func mustMerge(t *testing.T, ids []string, a *anygenome.MemArchive) *anygenome.Merged {
	m, err := anygenome.Merge(ids, a, a)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// rangeDataset has one chromosome whose label at i is
// i+1, so every position is eligible with winsize 1.
func rangeDataset(t *testing.T, n int) *anygenome.Merged {
	labels := make([]float32, n)
	seq := make([]byte, n)
	for i := range labels {
		labels[i] = float32(i + 1)
		seq[i] = 'A'
	}
	a := &anygenome.MemArchive{
		Sequences: map[string]*anygenome.Sequence{"chr1": anygenome.FromString(string(seq))},
		Signals:   map[string][]float32{"chr1": labels},
	}
	return mustMerge(t, []string{"chr1"}, a)
}

func testConfig() Config {
	return Config{
		WinSize:   1,
		BatchSize: 3,
		Strand:    Forward,
		Seed:      1337,
		Creator:   anyvec32.CurrentCreator(),
	}
}

func newTestGenerator(t *testing.T, m *anygenome.Merged, cfg Config) *Generator {
	g, err := NewGenerator(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func batchPositions(g *Generator) [][]int {
	res := make([][]int, g.NumBatches())
	for i := range res {
		for _, d := range g.Draws(i) {
			res[i] = append(res[i], d.Pos)
		}
	}
	return res
}

func batchData(t *testing.T, g *Generator, i int) ([]float32, []float32) {
	b, err := g.Batch(i)
	if err != nil {
		t.Fatal(err)
	}
	return b.Inputs.Data().([]float32), b.Outputs.Data().([]float32)
}

func equalFloats(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i, x := range a {
		if x != b[i] {
			return false
		}
	}
	return true
}
