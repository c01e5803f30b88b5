package anywin

import "github.com/seqsig/anyprof/anygenome"

// A Filter decides which merged positions may be used as
// window centers.
//
// Positions whose window would touch the array ends or a
// gap slot are always excluded.
// The remaining rules are optional and combine with OR.
type Filter struct {
	WinSize int

	// Remove0s excludes positions labeled exactly zero.
	Remove0s bool

	// RemoveNs excludes undefined (all-zero) bases.
	RemoveNs bool

	// Exclude lists merged positions to drop regardless
	// of their content.
	Exclude []int
}

// Eligible returns the sorted eligible centers of m.
func (f *Filter) Eligible(m *anygenome.Merged) []int {
	half := f.WinSize / 2

	var excluded []bool
	if len(f.Exclude) > 0 {
		excluded = make([]bool, m.Len())
		for _, idx := range f.Exclude {
			if idx >= 0 && idx < len(excluded) {
				excluded[idx] = true
			}
		}
	}

	res := []int{}
	for c := 0; c < m.Offsets.NumChroms(); c++ {
		start, end := m.Offsets.Span(c)
		for pos := start + half; pos < end-half; pos++ {
			if f.Remove0s && m.Labels[pos] == 0 {
				continue
			}
			if f.RemoveNs && m.Sequence.IsN(pos) {
				continue
			}
			if excluded != nil && excluded[pos] {
				continue
			}
			res = append(res, pos)
		}
	}
	return res
}
