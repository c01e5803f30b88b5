package anytrain

import (
	"context"

	"github.com/seqsig/anyprof"
	"github.com/seqsig/anyprof/anywin"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Trainer computes costs, gradients, and metrics for
// window batches.
//
// Costs are averaged over the windows in a batch.
type Trainer struct {
	Net    anynet.Layer
	Cost   anynet.Cost
	Params []*anydiff.Var

	// After every gradient computation, LastCost and
	// LastMetrics describe the batch.
	LastCost    anyvec.Numeric
	LastMetrics Metrics
}

// TotalCost computes the average cost for the batch.
func (t *Trainer) TotalCost(b *anywin.Batch) anydiff.Res {
	_, cost := t.apply(b)
	return cost
}

// Gradient computes the gradient of the batch's cost.
// It also sets t.LastCost and t.LastMetrics.
func (t *Trainer) Gradient(b *anywin.Batch) anydiff.Grad {
	res := anydiff.NewGrad(t.Params...)

	out, cost := t.apply(b)
	t.LastCost = anyvec.Sum(cost.Output())
	t.LastMetrics = batchMetrics(b, out.Output(), t.LastCost)

	c := cost.Output().Creator()
	upstream := c.MakeVectorData(c.MakeNumericList([]float64{1}))
	cost.Propagate(upstream, res)

	return res
}

// Evaluate computes the metrics of every batch in the
// current epoch of src, weighted by batch size.
func (t *Trainer) Evaluate(ctx context.Context, src Source) (Metrics, error) {
	var mean metricMean
	for i := 0; i < src.NumBatches(); i++ {
		if err := ctx.Err(); err != nil {
			return Metrics{}, err
		}
		b, err := src.Batch(i)
		if err != nil {
			return Metrics{}, essentials.AddCtx("evaluate", err)
		}
		out, cost := t.apply(b)
		mean.Add(batchMetrics(b, out.Output(), anyvec.Sum(cost.Output())), b.Num)
	}
	return mean.Mean(), nil
}

func (t *Trainer) apply(b *anywin.Batch) (out, cost anydiff.Res) {
	out = t.Net.Apply(anydiff.NewConst(b.Inputs), b.Num)
	costs := t.Cost.Cost(anydiff.NewConst(b.Outputs), out, b.Num)
	sum := anydiff.Sum(costs)
	scaler := sum.Output().Creator().MakeNumeric(1 / float64(costs.Output().Len()))
	return out, anydiff.Scale(sum, scaler)
}

func batchMetrics(b *anywin.Batch, actual anyvec.Vector, cost anyvec.Numeric) Metrics {
	return Metrics{
		Loss:      numericFloat(cost),
		MAE:       anyprof.MeanAbsError(b.Outputs, actual),
		Correlate: anyprof.Correlation(b.Outputs, actual),
	}
}

type metricMean struct {
	sum    Metrics
	weight int
}

func (m *metricMean) Add(x Metrics, weight int) {
	w := float64(weight)
	m.sum.Loss += x.Loss * w
	m.sum.MAE += x.MAE * w
	m.sum.Correlate += x.Correlate * w
	m.weight += weight
}

func (m *metricMean) Mean() Metrics {
	if m.weight == 0 {
		return Metrics{}
	}
	w := float64(m.weight)
	return Metrics{
		Loss:      m.sum.Loss / w,
		MAE:       m.sum.MAE / w,
		Correlate: m.sum.Correlate / w,
	}
}
