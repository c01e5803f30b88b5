// Package anyprof trains convolutional networks which
// predict a genomic signal from one-hot DNA windows.
//
// Chromosome archives are loaded and merged by the
// anygenome package, windows are sampled and packed into
// batches by anywin, and anytrain runs the training loop.
// This package provides the network architectures, the
// regression costs, and model persistence.
package anyprof

import (
	"fmt"
	"os"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var m Model
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModel)
	var a archName
	serializer.RegisterTypedDeserializer(a.SerializerType(), deserializeArchName)
}

// A Model is a network together with the window geometry
// it was built for.
type Model struct {
	Arch    string
	WinSize int
	Heads   int
	Net     anynet.Net
}

// NewModel builds a randomly initialized model using a
// registered architecture.
func NewModel(arch string, c anyvec.Creator, winSize, heads int) (*Model, error) {
	builder, ok := Architectures[arch]
	if !ok {
		return nil, &UnknownArchError{Name: arch}
	}
	net, err := builder(c, winSize, heads)
	if err != nil {
		return nil, essentials.AddCtx("build "+arch, err)
	}
	return &Model{Arch: arch, WinSize: winSize, Heads: heads, Net: net}, nil
}

// DeserializeModel deserializes a Model.
func DeserializeModel(d []byte) (*Model, error) {
	var name archName
	var winSize, heads serializer.Int
	var net anynet.Net
	if err := serializer.DeserializeAny(d, &name, &winSize, &heads, &net); err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	return &Model{
		Arch:    string(name),
		WinSize: int(winSize),
		Heads:   int(heads),
		Net:     net,
	}, nil
}

// Apply applies the network to a batch of windows.
func (m *Model) Apply(in anydiff.Res, batchSize int) anydiff.Res {
	return m.Net.Apply(in, batchSize)
}

// Parameters returns the learnable variables of the
// network.
func (m *Model) Parameters() []*anydiff.Var {
	return m.Net.Parameters()
}

// SetTraining enables or disables dropout.
func (m *Model) SetTraining(training bool) {
	for _, layer := range m.Net {
		if d, ok := layer.(*anynet.Dropout); ok {
			d.Enabled = training
		}
	}
}

// SerializerType returns the unique ID used to serialize
// a Model with the serializer package.
func (m *Model) SerializerType() string {
	return "github.com/seqsig/anyprof.Model"
}

// Serialize serializes the model.
func (m *Model) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		archName(m.Arch),
		serializer.Int(m.WinSize),
		serializer.Int(m.Heads),
		m.Net,
	)
}

// SaveModel writes a model to a file.
func SaveModel(path string, m *Model) error {
	data, err := serializer.SerializeWithType(m)
	if err != nil {
		return essentials.AddCtx("save model", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("save model", err)
	}
	return nil
}

// LoadModel reads a model saved with SaveModel.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load model", err)
	}
	obj, err := serializer.DeserializeWithType(data)
	if err != nil {
		return nil, essentials.AddCtx("load model", err)
	}
	m, ok := obj.(*Model)
	if !ok {
		return nil, fmt.Errorf("load model: unexpected type %T", obj)
	}
	return m, nil
}

type archName string

func deserializeArchName(d []byte) (archName, error) {
	return archName(d), nil
}

func (a archName) SerializerType() string {
	return "github.com/seqsig/anyprof.archName"
}

func (a archName) Serialize() ([]byte, error) {
	return []byte(a), nil
}
