package anywin

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// DefaultCandidates is the candidate pool multiplier used
// by BatchBalance when Candidates is 0.
const DefaultCandidates = 4

// A Balancer assigns sampling weights to positions so
// that rare label magnitudes are drawn more often.
//
// The set of balancers is closed: use GlobalBalance or
// BatchBalance.
type Balancer interface {
	// Weights returns one weight per position, summing to
	// 1 unless positions is empty.
	Weights(labels []float32, positions []int) []float64

	perBatch() bool
}

// ParseBalance creates a Balancer from its name.
// The empty string means uniform sampling and yields nil.
func ParseBalance(name string, classes int) (Balancer, error) {
	if name != "" && classes <= 0 {
		return nil, &ConfigError{Field: "n_classes", Msg: "must be positive"}
	}
	switch name {
	case "":
		return nil, nil
	case "global":
		return &GlobalBalance{Classes: classes}, nil
	case "batch":
		return &BatchBalance{Classes: classes}, nil
	default:
		return nil, &ConfigError{Field: "balance", Msg: fmt.Sprintf("unknown mode %q", name)}
	}
}

// GlobalBalance computes a single weight table over the
// whole eligible set.
type GlobalBalance struct {
	Classes int
}

// Weights computes inverse bin occupancy weights.
func (g *GlobalBalance) Weights(labels []float32, positions []int) []float64 {
	return inverseOccupancy(labels, positions, g.Classes)
}

func (g *GlobalBalance) perBatch() bool {
	return false
}

// BatchBalance recomputes weights for every batch over a
// pool of candidate positions, then picks the batch from
// that pool.
type BatchBalance struct {
	Classes int

	// Candidates is the ratio of pool size to batch size.
	// If it is 0, DefaultCandidates is used.
	Candidates int
}

// Weights computes inverse bin occupancy weights.
func (b *BatchBalance) Weights(labels []float32, positions []int) []float64 {
	return inverseOccupancy(labels, positions, b.Classes)
}

func (b *BatchBalance) perBatch() bool {
	return true
}

func (b *BatchBalance) poolRatio() int {
	if b.Candidates > 0 {
		return b.Candidates
	}
	return DefaultCandidates
}

// BinLabels partitions the observed label range of the
// positions into equal-width bins.
// It returns each position's bin and each bin's count.
//
// If all labels are equal, everything lands in bin 0.
func BinLabels(labels []float32, positions []int, classes int) (bins, counts []int) {
	bins = make([]int, len(positions))
	counts = make([]int, classes)
	if len(positions) == 0 {
		return
	}
	values := make([]float64, len(positions))
	for i, p := range positions {
		values[i] = float64(labels[p])
	}
	lo, hi := floats.Min(values), floats.Max(values)
	width := (hi - lo) / float64(classes)
	for i, v := range values {
		var bin int
		if width > 0 {
			bin = int((v - lo) / width)
			if bin >= classes {
				bin = classes - 1
			}
		}
		bins[i] = bin
		counts[bin]++
	}
	return
}

func inverseOccupancy(labels []float32, positions []int, classes int) []float64 {
	bins, counts := BinLabels(labels, positions, classes)
	res := make([]float64, len(positions))
	if len(res) == 0 {
		return res
	}
	for i, bin := range bins {
		res[i] = 1 / float64(counts[bin])
	}
	floats.Scale(1/floats.Sum(res), res)
	return res
}
