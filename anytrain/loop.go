package anytrain

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/essentials"
)

// A Trainable network can switch between training and
// evaluation behavior, such as enabling dropout.
type Trainable interface {
	SetTraining(training bool)
}

// Loop performs mini-batch gradient descent, one
// generator epoch at a time.
type Loop struct {
	Trainer *Trainer

	// Model, if non-nil, is put in training mode while
	// gradients are computed.
	Model Trainable

	// Transformer, if non-nil, is used to transform each
	// gradient before the step.
	Transformer anysgd.Transformer

	// Rater determines the learning rate for each epoch.
	Rater anysgd.Rater

	Train Source

	// Valid, if non-nil, is evaluated after every epoch.
	Valid Source

	Epochs    int
	Callbacks []Callback

	// Log receives one entry per epoch.
	// If it is nil, the standard logger is used.
	Log logrus.FieldLogger

	// StatusFunc, if non-nil, is called after every
	// training step.
	StatusFunc func(epoch, batch int, m Metrics)

	// History lists the result of every completed epoch.
	History []*EpochResult

	stopped bool
}

// Stop makes Run return after the current epoch.
// It is meant to be called by callbacks.
func (l *Loop) Stop() {
	l.stopped = true
}

// Stopped reports whether Stop was called.
func (l *Loop) Stopped() bool {
	return l.stopped
}

// Run trains for l.Epochs epochs or until a callback
// stops the loop.
//
// Cancelling ctx interrupts training between batches, in
// which case ctx.Err() is returned.
func (l *Loop) Run(ctx context.Context) error {
	if l.Train.NumBatches() == 0 {
		return errors.New("run training: no training batches")
	}
	l.stopped = false
	for epoch := len(l.History); epoch < l.Epochs && !l.stopped; epoch++ {
		res, err := l.runEpoch(ctx, epoch)
		if err != nil {
			return err
		}
		l.History = append(l.History, res)
		l.logEpoch(res)
		for _, cb := range l.Callbacks {
			if err := cb.EpochEnd(ctx, l, res); err != nil {
				return essentials.AddCtx("run training", err)
			}
		}
	}
	return nil
}

func (l *Loop) runEpoch(ctx context.Context, epoch int) (*EpochResult, error) {
	start := time.Now()
	rate := l.Rater.Rate(float64(epoch))
	res := &EpochResult{Epoch: epoch, LearnRate: rate}

	l.setTraining(true)
	var train metricMean
	for i := 0; i < l.Train.NumBatches(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := l.Train.Batch(i)
		if err != nil {
			return nil, essentials.AddCtx("run training", err)
		}
		grad := l.Trainer.Gradient(batch)
		if l.Transformer != nil {
			grad = l.Transformer.Transform(grad)
		}
		for _, v := range grad {
			grad.Scale(v.Creator().MakeNumeric(-rate))
			break
		}
		grad.AddToVars()

		train.Add(l.Trainer.LastMetrics, batch.Num)
		if l.StatusFunc != nil {
			l.StatusFunc(epoch, i, l.Trainer.LastMetrics)
		}
	}
	l.setTraining(false)
	res.Train = train.Mean()

	if l.Valid != nil && l.Valid.NumBatches() > 0 {
		valid, err := l.Trainer.Evaluate(ctx, l.Valid)
		if err != nil {
			return nil, err
		}
		res.Valid = valid
		res.HasValid = true
		l.Valid.NextEpoch()
	}

	res.CycleRestarted = l.Train.NextEpoch().CycleRestarted
	res.Elapsed = time.Since(start)
	return res, nil
}

func (l *Loop) setTraining(training bool) {
	if l.Model != nil {
		l.Model.SetTraining(training)
	}
}

func (l *Loop) logEpoch(r *EpochResult) {
	fields := logrus.Fields{
		"epoch":   r.Epoch + 1,
		"elapsed": r.Elapsed.Round(time.Millisecond),
	}
	for name, x := range r.Values() {
		fields[name] = x
	}
	entry := logger(l).WithFields(fields)
	if r.CycleRestarted {
		entry = entry.WithField("new_cycle", true)
	}
	entry.Info("epoch complete")
}
