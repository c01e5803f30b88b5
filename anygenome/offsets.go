package anygenome

import (
	"fmt"
	"sort"
)

// Offsets maps between per-chromosome coordinates and the
// merged coordinate space.
//
// Consecutive chromosomes are separated by one gap slot,
// so chromosome i starts at the sum of the lengths of
// chromosomes 0 through i-1, plus i.
type Offsets struct {
	ids     []string
	starts  []int
	lengths []int
	index   map[string]int
}

// NewOffsets creates an offset table for chromosomes with
// the given ids and lengths, in merge order.
func NewOffsets(ids []string, lengths []int) *Offsets {
	if len(ids) != len(lengths) {
		panic("mismatching id and length counts")
	}
	res := &Offsets{
		ids:     append([]string{}, ids...),
		starts:  make([]int, len(ids)),
		lengths: append([]int{}, lengths...),
		index:   map[string]int{},
	}
	var start int
	for i, id := range ids {
		res.starts[i] = start
		res.index[id] = i
		start += lengths[i] + 1
	}
	return res
}

// NumChroms returns the number of chromosomes.
func (o *Offsets) NumChroms() int {
	return len(o.ids)
}

// ID returns the identifier of the i-th chromosome.
func (o *Offsets) ID(i int) string {
	return o.ids[i]
}

// Len returns the length of the merged coordinate space,
// including gap slots.
func (o *Offsets) Len() int {
	if len(o.ids) == 0 {
		return 0
	}
	last := len(o.ids) - 1
	return o.starts[last] + o.lengths[last]
}

// Span returns the merged range [start, end) covered by
// the i-th chromosome.
func (o *Offsets) Span(i int) (start, end int) {
	return o.starts[i], o.starts[i] + o.lengths[i]
}

// Chrom returns the index of the chromosome containing a
// merged position, or -1 for gap slots and positions out
// of range.
func (o *Offsets) Chrom(global int) int {
	if global < 0 || global >= o.Len() {
		return -1
	}
	i := sort.Search(len(o.starts), func(i int) bool {
		return o.starts[i] > global
	}) - 1
	if i < 0 || global >= o.starts[i]+o.lengths[i] {
		return -1
	}
	return i
}

// Global converts a chromosome-local position to merged
// coordinates.
func (o *Offsets) Global(id string, local int) (int, error) {
	i, ok := o.index[id]
	if !ok {
		return 0, &ConfigError{Field: "chromosome", Msg: fmt.Sprintf("unknown id %q", id)}
	}
	if local < 0 || local >= o.lengths[i] {
		return 0, &ConfigError{
			Field: "index",
			Msg:   fmt.Sprintf("%d out of range for %s (length %d)", local, id, o.lengths[i]),
		}
	}
	return o.starts[i] + local, nil
}

// Local converts a merged position back to chromosome
// coordinates.
// The ok flag is false for gap slots.
func (o *Offsets) Local(global int) (id string, local int, ok bool) {
	i := o.Chrom(global)
	if i < 0 {
		return "", 0, false
	}
	return o.ids[i], global - o.starts[i], true
}

// RemapIndices converts per-chromosome exclusion indices
// into merged coordinates.
//
// Every merged chromosome must be present in src.
// The result is sorted.
func (o *Offsets) RemapIndices(src IndexSource) ([]int, error) {
	var res []int
	for i, id := range o.ids {
		local, err := src.Indices(id)
		if err != nil {
			return nil, err
		}
		for _, idx := range local {
			if idx < 0 || int(idx) >= o.lengths[i] {
				return nil, &ConfigError{
					Field: "remove indices",
					Msg: fmt.Sprintf("index %d out of range for %s (length %d)",
						idx, id, o.lengths[i]),
				}
			}
			res = append(res, o.starts[i]+int(idx))
		}
	}
	sort.Ints(res)
	return res, nil
}
