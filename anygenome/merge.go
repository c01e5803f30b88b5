package anygenome

import (
	"fmt"
	"math"

	"github.com/unixpickle/essentials"
)

// Merged is a dataset whose chromosomes have been
// concatenated into one addressable array per source.
//
// Gap slots hold an N base and a zero label.
type Merged struct {
	Sequence *Sequence
	Labels   []float32
	Offsets  *Offsets
}

// Len returns the merged length, including gaps.
func (m *Merged) Len() int {
	return len(m.Labels)
}

// Merge concatenates the chromosomes with the given ids,
// in order, from a sequence source and a label source.
//
// It fails with a *ConfigError if an id is missing from
// either source, if the list is empty or contains a
// duplicate, if a chromosome's sequence and label
// lengths differ, or if a label is NaN or infinite.
func Merge(ids []string, seqs SequenceSource, labels LabelSource) (*Merged, error) {
	if len(ids) == 0 {
		return nil, &ConfigError{Field: "chromosomes", Msg: "empty chromosome list"}
	}
	seen := map[string]bool{}
	var seqParts []*Sequence
	var labelParts [][]float32
	lengths := make([]int, len(ids))
	for i, id := range ids {
		if seen[id] {
			return nil, &ConfigError{Field: "chromosomes", Msg: fmt.Sprintf("duplicate id %q", id)}
		}
		seen[id] = true
		seq, err := seqs.Sequence(id)
		if err != nil {
			return nil, addCtx("merge chromosomes", err)
		}
		lab, err := labels.Labels(id)
		if err != nil {
			return nil, addCtx("merge chromosomes", err)
		}
		if seq.Len() != len(lab) {
			return nil, &ConfigError{
				Field: "labels",
				Msg: fmt.Sprintf("%s has %d bases but %d labels",
					id, seq.Len(), len(lab)),
			}
		}
		for j, x := range lab {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return nil, &ConfigError{
					Field: "labels",
					Msg:   fmt.Sprintf("%s has non-finite label %v at %d", id, x, j),
				}
			}
		}
		seqParts = append(seqParts, seq)
		labelParts = append(labelParts, lab)
		lengths[i] = len(lab)
	}

	offsets := NewOffsets(ids, lengths)
	res := &Merged{
		Sequence: NewSequence(offsets.Len()),
		Labels:   make([]float32, offsets.Len()),
		Offsets:  offsets,
	}
	for i := range ids {
		start, _ := offsets.Span(i)
		copy(res.Sequence.Data[start*Alphabet:], seqParts[i].Data)
		copy(res.Labels[start:], labelParts[i])
	}
	return res, nil
}

// addCtx adds context to I/O errors but leaves a
// *ConfigError untouched so callers can match on it.
func addCtx(ctx string, err error) error {
	if _, ok := err.(*ConfigError); ok {
		return err
	}
	return essentials.AddCtx(ctx, err)
}
