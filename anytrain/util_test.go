package anytrain

import (
	"io"
	"math/rand"
	"testing"

	"github.com/seqsig/anyprof/anygenome"
	"github.com/seqsig/anyprof/anywin"
	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec/anyvec32"
)

const testWinSize = 5

// constantGenerator builds a generator over a random
// chromosome whose labels all equal label.
func constantGenerator(t *testing.T, n int, label float32, seed uint64) *anywin.Generator {
	gen := rand.New(rand.NewSource(int64(seed)))
	seq := make([]byte, n)
	labels := make([]float32, n)
	for i := range seq {
		seq[i] = "ACGT"[gen.Intn(4)]
		labels[i] = label
	}
	a := &anygenome.MemArchive{
		Sequences: map[string]*anygenome.Sequence{"chr1": anygenome.FromString(string(seq))},
		Signals:   map[string][]float32{"chr1": labels},
	}
	m, err := anygenome.Merge([]string{"chr1"}, a, a)
	if err != nil {
		t.Fatal(err)
	}
	g, err := anywin.NewGenerator(m, anywin.Config{
		WinSize:   testWinSize,
		BatchSize: 8,
		Strand:    anywin.Both,
		Remove0s:  true,
		Seed:      seed,
		Creator:   anyvec32.CurrentCreator(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func linearNet() anynet.Net {
	c := anyvec32.CurrentCreator()
	return anynet.Net{anynet.NewFC(c, testWinSize*anygenome.Alphabet, 1)}
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func validResult(epoch int, loss, correlate float64) *EpochResult {
	return &EpochResult{
		Epoch:     epoch,
		LearnRate: 0.001,
		Train:     Metrics{Loss: loss, MAE: loss, Correlate: correlate},
		Valid:     Metrics{Loss: loss, MAE: loss, Correlate: correlate},
		HasValid:  true,
	}
}

func scalarVar(x float32) *anydiff.Var {
	return anydiff.NewVar(anyvec32.MakeVectorData([]float32{x}))
}

func scalarValue(v *anydiff.Var) float32 {
	return v.Vector.Data().([]float32)[0]
}
