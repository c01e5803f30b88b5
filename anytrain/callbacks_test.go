package anytrain

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/seqsig/anyprof"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec/anyvec32"
)

func TestEarlyStopping(t *testing.T) {
	param := scalarVar(0)
	es := &EarlyStopping{
		Monitor:  "val_loss",
		Patience: 2,
		Params:   []*anydiff.Var{param},
	}
	l := &Loop{Log: quietLogger()}
	losses := []float64{1, 0.5, 0.6, 0.7, 0.1}
	for epoch, loss := range losses {
		if l.Stopped() {
			break
		}
		param.Vector.SetData(param.Vector.Creator().MakeNumericList([]float64{float64(epoch)}))
		if err := es.EpochEnd(context.Background(), l, validResult(epoch, loss, 0)); err != nil {
			t.Fatal(err)
		}
	}
	if !l.Stopped() || es.StoppedEpoch != 3 {
		t.Fatalf("expected stop at epoch 3 but got %d", es.StoppedEpoch)
	}
	if x := scalarValue(param); x != 1 {
		t.Errorf("expected best parameters (1) to be restored but got %f", x)
	}
}

func TestEarlyStoppingMinDelta(t *testing.T) {
	es := &EarlyStopping{Monitor: "val_loss", Patience: 1}
	l := &Loop{Log: quietLogger()}
	for epoch, loss := range []float64{1, 0.99995} {
		if err := es.EpochEnd(context.Background(), l, validResult(epoch, loss, 0)); err != nil {
			t.Fatal(err)
		}
	}
	if !l.Stopped() {
		t.Error("a change below the minimum delta should not count as improvement")
	}
}

func TestPlateau(t *testing.T) {
	p := NewPlateau(1)
	p.Patience = 2
	l := &Loop{Log: quietLogger()}
	expected := []float64{1, 1, 0.1, 0.1, 0.1, 0.1}
	for epoch, loss := range []float64{1, 1, 1, 0.5, 0.5, 0.5} {
		if err := p.EpochEnd(context.Background(), l, validResult(epoch, loss, 0)); err != nil {
			t.Fatal(err)
		}
		if rate := p.Rate(float64(epoch)); math.Abs(rate-expected[epoch]) > 1e-9 {
			t.Errorf("epoch %d: expected rate %f but got %f", epoch, expected[epoch], rate)
		}
	}
}

func TestPlateauMissingMetric(t *testing.T) {
	p := NewPlateau(1)
	r := &EpochResult{Train: Metrics{Loss: 1}}
	if err := p.EpochEnd(context.Background(), &Loop{}, r); err == nil {
		t.Error("expected error for missing val_loss")
	}
}

func TestCheckpoint(t *testing.T) {
	m, err := anyprof.NewModel("mnase", anyvec32.CurrentCreator(), 101, 1)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "Checkpoint")
	cp := &Checkpoint{
		Path:     path,
		Model:    m,
		Monitor:  "val_correlate",
		Maximize: true,
	}
	l := &Loop{Log: quietLogger()}
	for epoch, r := range []float64{0.1, 0.05, 0.3, 0.2} {
		if err := cp.EpochEnd(context.Background(), l, validResult(epoch, 1, r)); err != nil {
			t.Fatal(err)
		}
	}
	if cp.Saves != 2 {
		t.Errorf("expected 2 saves but got %d", cp.Saves)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	if _, err := anyprof.LoadModel(path); err != nil {
		t.Error(err)
	}
}
