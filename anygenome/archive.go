package anygenome

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sbinet/npyio/npz"
	"github.com/unixpickle/essentials"
)

// A SequenceSource provides one-hot sequences by
// chromosome id.
type SequenceSource interface {
	Sequence(id string) (*Sequence, error)
}

// A LabelSource provides per-base signal arrays by
// chromosome id.
type LabelSource interface {
	Labels(id string) ([]float32, error)
}

// An IndexSource provides chromosome-local position
// indices by chromosome id.
type IndexSource interface {
	Indices(id string) ([]int64, error)
}

func missingID(id string) error {
	return &ConfigError{Field: "chromosome", Msg: fmt.Sprintf("id %q not in archive", id)}
}

// MemArchive is an in-memory archive, mostly useful for
// tests and small synthetic datasets.
type MemArchive struct {
	Sequences map[string]*Sequence
	Signals   map[string][]float32
	Excluded  map[string][]int64
}

// Sequence returns the sequence for id.
func (m *MemArchive) Sequence(id string) (*Sequence, error) {
	if s, ok := m.Sequences[id]; ok {
		return s, nil
	}
	return nil, missingID(id)
}

// Labels returns the labels for id.
func (m *MemArchive) Labels(id string) ([]float32, error) {
	if s, ok := m.Signals[id]; ok {
		return s, nil
	}
	return nil, missingID(id)
}

// Indices returns the excluded indices for id.
func (m *MemArchive) Indices(id string) ([]int64, error) {
	if s, ok := m.Excluded[id]; ok {
		return s, nil
	}
	return nil, missingID(id)
}

// NPZArchive reads arrays from a NumPy .npz archive with
// one array per chromosome.
//
// Sequence arrays must have shape (L, 4); label and index
// arrays must be one-dimensional.
// Boolean, integer and floating-point dtypes are all
// accepted and converted as needed.
type NPZArchive struct {
	Path string

	r     *npz.Reader
	names map[string]string
}

// OpenNPZ opens an archive.
// The caller should Close it when done.
func OpenNPZ(path string) (*NPZArchive, error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("open archive", err)
	}
	res := &NPZArchive{Path: path, r: r, names: map[string]string{}}
	for _, key := range r.Keys() {
		res.names[strings.TrimSuffix(key, ".npy")] = key
	}
	return res, nil
}

// Close closes the underlying file.
func (n *NPZArchive) Close() error {
	return n.r.Close()
}

// Keys returns the sorted chromosome ids in the archive.
func (n *NPZArchive) Keys() []string {
	var res []string
	for id := range n.names {
		res = append(res, id)
	}
	sort.Strings(res)
	return res
}

// Has checks if the archive contains an array for id.
func (n *NPZArchive) Has(id string) bool {
	_, ok := n.names[id]
	return ok
}

// Sequence reads the one-hot array for id.
func (n *NPZArchive) Sequence(id string) (*Sequence, error) {
	values, shape, err := n.readFloat64(id)
	if err != nil {
		return nil, err
	}
	if len(shape) != 2 || shape[1] != Alphabet {
		return nil, &ConfigError{
			Field: "genome",
			Msg:   fmt.Sprintf("%s: expected shape (L, %d) but got %v", id, Alphabet, shape),
		}
	}
	res := NewSequence(shape[0])
	for i, x := range values {
		if x != 0 {
			res.Data[i] = 1
		}
	}
	return res, nil
}

// Labels reads the signal array for id.
func (n *NPZArchive) Labels(id string) ([]float32, error) {
	values, shape, err := n.readFloat64(id)
	if err != nil {
		return nil, err
	}
	if len(shape) != 1 {
		return nil, &ConfigError{
			Field: "labels",
			Msg:   fmt.Sprintf("%s: expected one dimension but got shape %v", id, shape),
		}
	}
	res := make([]float32, len(values))
	for i, x := range values {
		res[i] = float32(x)
	}
	return res, nil
}

// Indices reads the index array for id.
func (n *NPZArchive) Indices(id string) ([]int64, error) {
	values, shape, err := n.readFloat64(id)
	if err != nil {
		return nil, err
	}
	if len(shape) != 1 {
		return nil, &ConfigError{
			Field: "remove indices",
			Msg:   fmt.Sprintf("%s: expected one dimension but got shape %v", id, shape),
		}
	}
	res := make([]int64, len(values))
	for i, x := range values {
		res[i] = int64(x)
	}
	return res, nil
}

func (n *NPZArchive) readFloat64(id string) ([]float64, []int, error) {
	name, ok := n.names[id]
	if !ok {
		return nil, nil, missingID(id)
	}
	ctx := "read " + id + " from " + n.Path
	hdr := n.r.Header(name)
	if hdr == nil {
		return nil, nil, missingID(id)
	}
	if hdr.Descr.Fortran {
		return nil, nil, fmt.Errorf("%s: Fortran-ordered arrays are not supported", ctx)
	}
	shape := hdr.Descr.Shape

	var res []float64
	var err error
	switch strings.TrimLeft(hdr.Descr.Type, "<>|=") {
	case "b1":
		var data []bool
		err = n.r.Read(name, &data)
		res = make([]float64, len(data))
		for i, x := range data {
			if x {
				res[i] = 1
			}
		}
	case "u1":
		var data []uint8
		err = n.r.Read(name, &data)
		res = convertSlice(data)
	case "i1":
		var data []int8
		err = n.r.Read(name, &data)
		res = convertSlice(data)
	case "i4":
		var data []int32
		err = n.r.Read(name, &data)
		res = convertSlice(data)
	case "i8":
		var data []int64
		err = n.r.Read(name, &data)
		res = convertSlice(data)
	case "f4":
		var data []float32
		err = n.r.Read(name, &data)
		res = convertSlice(data)
	case "f8":
		err = n.r.Read(name, &res)
	default:
		return nil, nil, fmt.Errorf("%s: unsupported dtype %s", ctx, hdr.Descr.Type)
	}
	if err != nil {
		return nil, nil, essentials.AddCtx(ctx, err)
	}
	return res, shape, nil
}

func convertSlice[T int8 | uint8 | int32 | int64 | float32](data []T) []float64 {
	res := make([]float64, len(data))
	for i, x := range data {
		res[i] = float64(x)
	}
	return res
}
