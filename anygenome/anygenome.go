// Package anygenome loads per-chromosome sequence and
// signal arrays and concatenates them into the merged
// coordinate space used for window sampling.
package anygenome

import "fmt"

// Alphabet is the number of symbols in a one-hot row.
// Rows are ordered A, C, G, T, so reversing a row yields
// its complement.
const Alphabet = 4

// A ConfigError reports a misconfiguration detected while
// assembling a dataset, such as an unknown chromosome.
type ConfigError struct {
	Field string
	Msg   string
}

// Error returns a description of the problem.
func (c *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", c.Field, c.Msg)
}

// A Sequence is a one-hot encoded nucleotide sequence.
//
// Data is row-major with Alphabet entries per base.
// A base whose row is entirely zero is undefined ("N").
type Sequence struct {
	Data []uint8
}

// NewSequence creates an all-N sequence of n bases.
func NewSequence(n int) *Sequence {
	return &Sequence{Data: make([]uint8, n*Alphabet)}
}

// Len returns the number of bases.
func (s *Sequence) Len() int {
	return len(s.Data) / Alphabet
}

// Row returns the one-hot row for the base at idx.
// The row aliases the sequence's data.
func (s *Sequence) Row(idx int) []uint8 {
	return s.Data[idx*Alphabet : (idx+1)*Alphabet]
}

// IsN checks if the base at idx is undefined.
func (s *Sequence) IsN(idx int) bool {
	for _, x := range s.Row(idx) {
		if x != 0 {
			return false
		}
	}
	return true
}

// FromString encodes a nucleotide string.
// Any character other than A, C, G or T (in either case)
// becomes an N.
func FromString(seq string) *Sequence {
	res := NewSequence(len(seq))
	for i, ch := range []byte(seq) {
		var col int
		switch ch {
		case 'A', 'a':
			col = 0
		case 'C', 'c':
			col = 1
		case 'G', 'g':
			col = 2
		case 'T', 't':
			col = 3
		default:
			continue
		}
		res.Data[i*Alphabet+col] = 1
	}
	return res
}

// String decodes the sequence, writing N for undefined
// bases.
func (s *Sequence) String() string {
	res := make([]byte, s.Len())
	for i := range res {
		res[i] = 'N'
		for j, x := range s.Row(i) {
			if x != 0 {
				res[i] = "ACGT"[j]
				break
			}
		}
	}
	return string(res)
}
