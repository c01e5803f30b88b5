package anywin

import (
	"fmt"

	"github.com/seqsig/anyprof/anygenome"
	"github.com/unixpickle/anyvec"
)

// Config configures a Generator.
type Config struct {
	// WinSize is the odd window length.
	WinSize int

	BatchSize int

	// MaxData caps the number of windows per epoch.
	// If it is 0, every eligible position is used.
	MaxData int

	// SameSamples makes every epoch replay the same
	// batches, drawn with replacement.
	SameSamples bool

	// Balance is nil for uniform sampling.
	Balance Balancer

	Strand       Strand
	HeadInterval int

	Remove0s bool
	RemoveNs bool

	// Exclude lists merged positions that may not be used
	// as window centers.
	Exclude []int

	Seed uint64

	Creator anyvec.Creator

	// MaxGos bounds batch assembly parallelism.
	// If it is 0, GOMAXPROCS is used.
	MaxGos int
}

func (c *Config) validate() error {
	switch {
	case c.WinSize <= 0 || c.WinSize%2 == 0:
		return &ConfigError{Field: "winsize", Msg: fmt.Sprintf("%d is not a positive odd number", c.WinSize)}
	case c.BatchSize <= 0:
		return &ConfigError{Field: "batch_size", Msg: "must be positive"}
	case c.MaxData < 0:
		return &ConfigError{Field: "max_data", Msg: "must not be negative"}
	case c.HeadInterval < 0:
		return &ConfigError{Field: "head_interval", Msg: "must not be negative"}
	case c.HeadInterval > c.WinSize/2:
		return &ConfigError{
			Field: "head_interval",
			Msg:   fmt.Sprintf("%d exceeds half the window size", c.HeadInterval),
		}
	case c.Strand < Both || c.Strand > Reverse:
		return &ConfigError{Field: "strand", Msg: c.Strand.String()}
	case c.Creator == nil:
		return &ConfigError{Field: "creator", Msg: "missing vector creator"}
	case c.MaxGos < 0:
		return &ConfigError{Field: "max_gos", Msg: "must not be negative"}
	}
	switch b := c.Balance.(type) {
	case *GlobalBalance:
		if b.Classes <= 0 {
			return &ConfigError{Field: "n_classes", Msg: "must be positive"}
		}
	case *BatchBalance:
		if b.Classes <= 0 {
			return &ConfigError{Field: "n_classes", Msg: "must be positive"}
		} else if b.Candidates < 0 {
			return &ConfigError{Field: "candidates", Msg: "must not be negative"}
		}
	}
	return nil
}

// A Transition describes an epoch boundary.
type Transition struct {
	// Epoch is the index of the epoch that begins.
	Epoch int

	// CycleRestarted is set if a coverage cycle was
	// exhausted and a new one began during this epoch.
	CycleRestarted bool
}

// A Generator produces the training or validation batches
// for a merged dataset.
//
// Batch may be called repeatedly and concurrently within
// an epoch and always yields the same batch for the same
// index.
// NextEpoch is the only call that advances sampling
// state, and must not run concurrently with Batch.
type Generator struct {
	eligible  []int
	sampler   *Sampler
	assembler *Assembler

	epoch      int
	plan       [][]Draw
	numBatches int
}

// NewGenerator builds a generator for m.
//
// All configuration problems are reported here, before
// any batch is produced.
// An empty eligible set is not an error: the generator
// then has zero batches.
func NewGenerator(m *anygenome.Merged, cfg Config) (*Generator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	filter := &Filter{
		WinSize:  cfg.WinSize,
		Remove0s: cfg.Remove0s,
		RemoveNs: cfg.RemoveNs,
		Exclude:  cfg.Exclude,
	}
	eligible := filter.Eligible(m)

	epochSize := len(eligible)
	if cfg.MaxData > 0 && cfg.MaxData < epochSize {
		epochSize = cfg.MaxData
	}

	g := &Generator{
		eligible: eligible,
		sampler: &Sampler{
			Eligible:    eligible,
			Labels:      m.Labels,
			BatchSize:   cfg.BatchSize,
			EpochSize:   epochSize,
			SameSamples: cfg.SameSamples,
			Strand:      cfg.Strand,
			Balancer:    cfg.Balance,
			Seed:        cfg.Seed,
		},
		assembler: &Assembler{
			Merged:       m,
			WinSize:      cfg.WinSize,
			HeadInterval: cfg.HeadInterval,
			Creator:      cfg.Creator,
			MaxGos:       cfg.MaxGos,
		},
	}
	g.numBatches = g.sampler.NumBatches()
	g.Reset()
	return g, nil
}

// Eligible returns the eligible window centers.
// The caller must not modify the result.
func (g *Generator) Eligible() []int {
	return g.eligible
}

// NumBatches returns the number of batches per epoch.
// It is fixed for the lifetime of the generator.
func (g *Generator) NumBatches() int {
	return g.numBatches
}

// NumHeads returns the number of labels per window.
func (g *Generator) NumHeads() int {
	return g.assembler.NumHeads()
}

// Epoch returns the index of the current epoch.
func (g *Generator) Epoch() int {
	return g.epoch
}

// Draws returns the windows planned for batch i of the
// current epoch.
// The caller must not modify the result.
func (g *Generator) Draws(i int) []Draw {
	if i < 0 || i >= len(g.plan) {
		panic(fmt.Sprintf("batch index %d out of range [0, %d)", i, len(g.plan)))
	}
	return g.plan[i]
}

// Batch assembles batch i of the current epoch.
func (g *Generator) Batch(i int) (*Batch, error) {
	if i < 0 || i >= len(g.plan) {
		return nil, fmt.Errorf("fetch batch: index %d out of range [0, %d)", i, len(g.plan))
	}
	return g.assembler.Assemble(g.plan[i]), nil
}

// NextEpoch ends the current epoch and plans the next.
func (g *Generator) NextEpoch() Transition {
	g.epoch++
	plan, restarted := g.sampler.PlanEpoch()
	g.plan = plan
	return Transition{Epoch: g.epoch, CycleRestarted: restarted}
}

// Reset returns the generator to its first epoch, as if
// it had just been constructed.
func (g *Generator) Reset() {
	g.sampler.Reset()
	g.epoch = 0
	g.plan, _ = g.sampler.PlanEpoch()
}
