package anywin

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"
)

const samplerStream = 0x77696e646f7773

// A Sampler plans which windows are drawn in each epoch.
//
// With SameSamples set, every epoch replays one fixed list
// of batches drawn with replacement.
// Otherwise, epochs consume a coverage cycle: a random
// permutation of the eligible set that is used up without
// replacement before a new one is drawn.
//
// A Sampler is not safe for concurrent use.
type Sampler struct {
	// Eligible lists the merged positions usable as
	// window centers.
	Eligible []int

	// Labels is the merged label array, used to balance
	// draws.
	Labels []float32

	BatchSize int

	// EpochSize is the number of draws per epoch.
	// It should not exceed len(Eligible).
	EpochSize int

	SameSamples bool
	Strand      Strand

	// Balancer, if non-nil, skews draws toward rare label
	// values.
	Balancer Balancer

	Seed uint64

	src     *rand.PCG
	rng     *rand.Rand
	weights []float64
	fixed   [][]Draw

	cycle    []int
	cursor   int
	cycleNum int
}

// NumBatches returns the number of batches per epoch.
func (s *Sampler) NumBatches() int {
	if s.EpochSize <= 0 || s.BatchSize <= 0 {
		return 0
	}
	return (s.EpochSize + s.BatchSize - 1) / s.BatchSize
}

// Cycle returns the number of coverage cycles started so
// far.
func (s *Sampler) Cycle() int {
	return s.cycleNum
}

// Reset returns the sampler to the state it had before
// the first epoch was planned.
func (s *Sampler) Reset() {
	s.src = rand.NewPCG(s.Seed, samplerStream)
	s.rng = rand.New(s.src)
	if s.Balancer != nil && !s.Balancer.perBatch() && s.weights == nil && len(s.Eligible) > 0 {
		s.weights = s.Balancer.Weights(s.Labels, s.Eligible)
	}
	s.fixed = nil
	s.cycle = nil
	s.cursor = 0
	s.cycleNum = 0
}

// PlanEpoch draws the batches for the next epoch.
//
// The restarted flag is set if a previous coverage cycle
// ran out while planning, so a new one was started.
func (s *Sampler) PlanEpoch() (plan [][]Draw, restarted bool) {
	if s.rng == nil {
		s.Reset()
	}
	if s.NumBatches() == 0 || len(s.Eligible) == 0 {
		return nil, false
	}
	if s.SameSamples {
		if s.fixed == nil {
			s.fixed = s.planReplacement()
		}
		return s.fixed, false
	}
	return s.planCycle()
}

func (s *Sampler) batchLen(b int) int {
	if rem := s.EpochSize - b*s.BatchSize; rem < s.BatchSize {
		return rem
	}
	return s.BatchSize
}

func (s *Sampler) planReplacement() [][]Draw {
	var cat *distuv.Categorical
	if s.weights != nil {
		c := distuv.NewCategorical(s.weights, s.src)
		cat = &c
	}
	bb, batchBal := s.Balancer.(*BatchBalance)

	plan := make([][]Draw, s.NumBatches())
	for b := range plan {
		size := s.batchLen(b)
		var idxs []int
		if batchBal {
			pool := make([]int, size*bb.poolRatio())
			for i := range pool {
				pool[i] = s.rng.IntN(len(s.Eligible))
			}
			for _, j := range s.pickBalanced(bb, pool, size) {
				idxs = append(idxs, pool[j])
			}
		} else {
			idxs = make([]int, size)
			for i := range idxs {
				if cat != nil {
					idxs[i] = int(cat.Rand())
				} else {
					idxs[i] = s.rng.IntN(len(s.Eligible))
				}
			}
		}
		plan[b] = s.toDraws(idxs)
	}
	return plan
}

func (s *Sampler) planCycle() ([][]Draw, bool) {
	var restarted bool
	bb, batchBal := s.Balancer.(*BatchBalance)

	plan := make([][]Draw, s.NumBatches())
	for b := range plan {
		size := s.batchLen(b)
		idxs := make([]int, 0, size)
		for len(idxs) < size {
			if s.cycle == nil || s.cursor == len(s.cycle) {
				if s.cycle != nil {
					restarted = true
				}
				s.newCycle()
			}
			take := min(size-len(idxs), len(s.cycle)-s.cursor)
			if batchBal {
				// Picked candidates move to the front of the
				// pool; the rest stay ahead of the cursor.
				pool := s.cycle[s.cursor:min(s.cursor+take*bb.poolRatio(), len(s.cycle))]
				chosen := s.pickBalanced(bb, pool, take)
				moveToFront(pool, chosen)
				take = len(chosen)
			}
			idxs = append(idxs, s.cycle[s.cursor:s.cursor+take]...)
			s.cursor += take
		}
		plan[b] = s.toDraws(idxs)
	}
	return plan, restarted
}

func (s *Sampler) newCycle() {
	n := len(s.Eligible)
	if cap(s.cycle) < n {
		s.cycle = make([]int, 0, n)
	}
	s.cycle = s.cycle[:0]
	if s.weights != nil {
		taken := make([]bool, n)
		w := sampleuv.NewWeighted(s.weights, s.src)
		for {
			idx, ok := w.Take()
			if !ok {
				break
			}
			taken[idx] = true
			s.cycle = append(s.cycle, idx)
		}
		for idx, t := range taken {
			if !t {
				s.cycle = append(s.cycle, idx)
			}
		}
	} else {
		for i := 0; i < n; i++ {
			s.cycle = append(s.cycle, i)
		}
		s.rng.Shuffle(n, func(i, j int) {
			s.cycle[i], s.cycle[j] = s.cycle[j], s.cycle[i]
		})
	}
	s.cursor = 0
	s.cycleNum++
}

// pickBalanced selects k entries of a pool of eligible
// indices, weighting by the pool's inverse occupancy.
// It returns offsets into pool.
func (s *Sampler) pickBalanced(bb *BatchBalance, pool []int, k int) []int {
	positions := make([]int, len(pool))
	for i, idx := range pool {
		positions[i] = s.Eligible[idx]
	}
	w := sampleuv.NewWeighted(bb.Weights(s.Labels, positions), s.src)
	res := make([]int, 0, k)
	for len(res) < k {
		j, ok := w.Take()
		if !ok {
			break
		}
		res = append(res, j)
	}
	return res
}

func (s *Sampler) toDraws(idxs []int) []Draw {
	res := make([]Draw, len(idxs))
	for i, idx := range idxs {
		res[i].Pos = s.Eligible[idx]
		switch s.Strand {
		case Reverse:
			res[i].Reverse = true
		case Both:
			res[i].Reverse = s.rng.IntN(2) == 1
		}
	}
	return res
}

func moveToFront(pool []int, chosen []int) {
	picked := make([]bool, len(pool))
	reordered := make([]int, 0, len(pool))
	for _, j := range chosen {
		picked[j] = true
		reordered = append(reordered, pool[j])
	}
	for j, x := range pool {
		if !picked[j] {
			reordered = append(reordered, x)
		}
	}
	copy(pool, reordered)
}
