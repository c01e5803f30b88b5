package anytrain

import (
	"context"
	"math"

	"github.com/seqsig/anyprof"
	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// DefaultMinDelta is the smallest change in a monitored
// metric that counts as an improvement.
const DefaultMinDelta = 1e-4

// A monitor tracks the best value of a metric.
type monitor struct {
	Name     string
	Maximize bool
	MinDelta float64

	best float64
	seen bool
}

// Update records a value and reports whether it improves
// on the best one so far.
func (m *monitor) Update(r *EpochResult) (bool, error) {
	x, err := r.Value(m.Name)
	if err != nil {
		return false, err
	}
	improved := !m.seen
	if m.seen {
		if m.Maximize {
			improved = x-m.MinDelta > m.best
		} else {
			improved = x+m.MinDelta < m.best
		}
	}
	if improved {
		m.best = x
		m.seen = true
	}
	return improved, nil
}

func logger(l *Loop) logrus.FieldLogger {
	if l.Log == nil {
		return logrus.StandardLogger()
	}
	return l.Log
}

// EarlyStopping stops the loop once a metric has not
// improved for Patience epochs.
type EarlyStopping struct {
	Monitor  string
	Maximize bool
	Patience int

	// MinDelta defaults to DefaultMinDelta when it is 0.
	MinDelta float64

	// If Params is non-nil, the parameters are restored
	// to their best values when training stops early.
	Params []*anydiff.Var

	// StoppedEpoch is the epoch at which training was
	// stopped, or -1.
	StoppedEpoch int

	mon  *monitor
	wait int
	best []anyvec.Vector
}

// EpochEnd updates the stopping criterion.
func (e *EarlyStopping) EpochEnd(ctx context.Context, l *Loop, r *EpochResult) error {
	if e.mon == nil {
		e.mon = &monitor{Name: e.Monitor, Maximize: e.Maximize, MinDelta: minDelta(e.MinDelta)}
		e.StoppedEpoch = -1
	}
	improved, err := e.mon.Update(r)
	if err != nil {
		return essentials.AddCtx("early stopping", err)
	}
	if improved {
		e.wait = 0
		e.best = snapshot(e.Params)
		return nil
	}
	e.wait++
	if e.wait >= e.Patience && r.Epoch > 0 {
		e.StoppedEpoch = r.Epoch
		l.Stop()
		fields := logrus.Fields{"epoch": r.Epoch + 1, "best_" + e.Monitor: e.mon.best}
		if e.best != nil {
			restore(e.Params, e.best)
			fields["restored"] = true
		}
		logger(l).WithFields(fields).Info("early stopping")
	}
	return nil
}

// Plateau is an anysgd.Rater which reduces the learning
// rate when a metric stops improving.
type Plateau struct {
	Monitor  string
	Maximize bool

	// Patience is the number of epochs without improvement
	// after which the rate is reduced.
	Patience int

	// Factor scales the rate on every reduction.
	Factor float64

	// MinRate bounds the rate from below.
	MinRate float64

	// MinDelta defaults to DefaultMinDelta when it is 0.
	MinDelta float64

	rate float64
	mon  *monitor
	wait int
}

// NewPlateau creates a Plateau with an initial rate.
func NewPlateau(initial float64) *Plateau {
	return &Plateau{
		Monitor: "val_loss",
		Factor:  0.1,
		MinRate: 0.1 * initial,
		rate:    initial,
	}
}

// Rate returns the current learning rate.
func (p *Plateau) Rate(epoch float64) float64 {
	return p.rate
}

// EpochEnd reduces the rate if necessary.
func (p *Plateau) EpochEnd(ctx context.Context, l *Loop, r *EpochResult) error {
	if p.mon == nil {
		p.mon = &monitor{Name: p.Monitor, Maximize: p.Maximize, MinDelta: minDelta(p.MinDelta)}
	}
	improved, err := p.mon.Update(r)
	if err != nil {
		return essentials.AddCtx("plateau", err)
	}
	if improved {
		p.wait = 0
		return nil
	}
	p.wait++
	if p.wait >= p.Patience {
		p.wait = 0
		if p.rate > p.MinRate {
			p.rate = math.Max(p.rate*p.Factor, p.MinRate)
			logger(l).WithFields(logrus.Fields{
				"epoch": r.Epoch + 1,
				"lr":    p.rate,
			}).Info("reducing learning rate")
		}
	}
	return nil
}

// Checkpoint saves the model whenever a metric reaches a
// new best value.
type Checkpoint struct {
	Path     string
	Model    *anyprof.Model
	Monitor  string
	Maximize bool

	// Saves counts the checkpoints written so far.
	Saves int

	mon *monitor
}

// EpochEnd saves the model if it improved.
func (c *Checkpoint) EpochEnd(ctx context.Context, l *Loop, r *EpochResult) error {
	if c.mon == nil {
		c.mon = &monitor{Name: c.Monitor, Maximize: c.Maximize}
	}
	improved, err := c.mon.Update(r)
	if err != nil {
		return essentials.AddCtx("checkpoint", err)
	}
	if !improved {
		return nil
	}
	if err := anyprof.SaveModel(c.Path, c.Model); err != nil {
		return essentials.AddCtx("checkpoint", err)
	}
	c.Saves++
	logger(l).WithFields(logrus.Fields{
		"epoch":   r.Epoch + 1,
		c.Monitor: c.mon.best,
	}).Debug("saved checkpoint")
	return nil
}

func minDelta(d float64) float64 {
	if d == 0 {
		return DefaultMinDelta
	}
	return d
}

func snapshot(params []*anydiff.Var) []anyvec.Vector {
	if params == nil {
		return nil
	}
	res := make([]anyvec.Vector, len(params))
	for i, p := range params {
		res[i] = p.Vector.Copy()
	}
	return res
}

func restore(params []*anydiff.Var, saved []anyvec.Vector) {
	for i, p := range params {
		p.Vector.Set(saved[i])
	}
}
