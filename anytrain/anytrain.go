// Package anytrain runs the epoch loop which fits a
// network to windowed sequence batches.
package anytrain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/seqsig/anyprof/anywin"
	"github.com/unixpickle/anyvec"
)

// A Source provides the batches of one epoch at a time.
//
// It is implemented by *anywin.Generator.
type Source interface {
	NumBatches() int
	Batch(i int) (*anywin.Batch, error)
	NextEpoch() anywin.Transition
}

// Metrics summarizes a network's fit on some batches.
type Metrics struct {
	Loss      float64
	MAE       float64
	Correlate float64
}

// An EpochResult records the outcome of an epoch.
type EpochResult struct {
	Epoch     int
	LearnRate float64
	Train     Metrics

	// Valid is only meaningful if HasValid is set.
	Valid    Metrics
	HasValid bool

	CycleRestarted bool
	Elapsed        time.Duration
}

// Values returns the result as a map from metric names,
// like "loss" or "val_correlate", to values.
func (e *EpochResult) Values() map[string]float64 {
	res := map[string]float64{
		"loss":      e.Train.Loss,
		"mae":       e.Train.MAE,
		"correlate": e.Train.Correlate,
		"lr":        e.LearnRate,
	}
	if e.HasValid {
		res["val_loss"] = e.Valid.Loss
		res["val_mae"] = e.Valid.MAE
		res["val_correlate"] = e.Valid.Correlate
	}
	return res
}

// Value looks up a metric by name.
func (e *EpochResult) Value(name string) (float64, error) {
	if x, ok := e.Values()[name]; ok {
		return x, nil
	}
	return 0, fmt.Errorf("no metric named %q in epoch %d", name, e.Epoch)
}

// A Callback is notified at the end of every epoch.
type Callback interface {
	EpochEnd(ctx context.Context, l *Loop, r *EpochResult) error
}

func sortedNames(m map[string]float64) []string {
	var res []string
	for k := range m {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric: %T", n))
	}
}
