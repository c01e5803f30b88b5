package anyprof

import (
	"fmt"
	"sort"
	"strings"

	"github.com/seqsig/anyprof/anygenome"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anyvec"
)

// An Architecture builds a randomly initialized network.
//
// The network maps windows of winSize one-hot rows to
// heads non-negative outputs per window.
type Architecture func(c anyvec.Creator, winSize, heads int) (anynet.Net, error)

// Architectures maps names to network builders.
var Architectures = map[string]Architecture{
	"mnase":   MNase,
	"basenji": Basenji,
}

// ArchNames returns the registered architecture names in
// sorted order.
func ArchNames() []string {
	var res []string
	for name := range Architectures {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// UnknownArchError is returned when an architecture name
// is not registered.
type UnknownArchError struct {
	Name string
}

func (u *UnknownArchError) Error() string {
	return fmt.Sprintf("unknown architecture %q (available: %s)", u.Name,
		strings.Join(ArchNames(), ", "))
}

// MNase is a three-layer convolutional tower with a
// fully-connected read-out.
func MNase(c anyvec.Creator, winSize, heads int) (anynet.Net, error) {
	t := newTower(c, winSize)
	t.Conv(64, 3)
	t.Pool(2)
	t.BatchNorm()
	t.Dropout(0.8)
	t.Conv(16, 8)
	t.Pool(2)
	t.BatchNorm()
	t.Dropout(0.8)
	t.Conv(80, 8)
	t.Pool(2)
	t.BatchNorm()
	t.Dropout(0.8)
	t.Dense(heads)
	return t.Net()
}

// Basenji is a deeper tower with a wide first filter bank
// and a dense bottleneck.
func Basenji(c anyvec.Creator, winSize, heads int) (anynet.Net, error) {
	t := newTower(c, winSize)
	t.Conv(64, 12)
	t.Pool(4)
	t.BatchNorm()
	for i := 0; i < 3; i++ {
		t.Conv(64, 5)
		t.Pool(2)
		t.BatchNorm()
	}
	t.Dropout(0.5)
	t.Dense(64)
	t.Dense(heads)
	return t.Net()
}

// A tower stacks layers over a (height, 1, depth) tensor,
// tracking its shape.
// After the first error, further layers are ignored.
type tower struct {
	c      anyvec.Creator
	net    anynet.Net
	height int
	depth  int
	err    error
}

func newTower(c anyvec.Creator, winSize int) *tower {
	return &tower{c: c, height: winSize, depth: anygenome.Alphabet}
}

// Conv adds a ReLU convolution spanning width rows.
func (t *tower) Conv(filters, width int) {
	if t.err != nil {
		return
	}
	if t.height < width {
		t.err = fmt.Errorf("window too small: %d rows left for a filter of width %d",
			t.height, width)
		return
	}
	conv := &anyconv.Conv{
		FilterCount:  filters,
		FilterWidth:  1,
		FilterHeight: width,
		StrideX:      1,
		StrideY:      1,
		InputWidth:   1,
		InputHeight:  t.height,
		InputDepth:   t.depth,
	}
	conv.InitRand(t.c)
	t.net = append(t.net, conv, anynet.ReLU)
	t.height = conv.OutputHeight()
	t.depth = filters
}

// Pool adds max pooling over span rows.
func (t *tower) Pool(span int) {
	if t.err != nil {
		return
	}
	if t.height < span {
		t.err = fmt.Errorf("window too small: %d rows left for a pool of %d",
			t.height, span)
		return
	}
	pool := &anyconv.MaxPool{
		SpanX:       1,
		SpanY:       span,
		InputWidth:  1,
		InputHeight: t.height,
		InputDepth:  t.depth,
	}
	t.net = append(t.net, pool)
	t.height = pool.OutputHeight()
}

func (t *tower) BatchNorm() {
	if t.err == nil {
		t.net = append(t.net, anyconv.NewBatchNorm(t.c, t.depth))
	}
}

// Dropout adds a dropout layer, initially disabled.
func (t *tower) Dropout(keepProb float64) {
	if t.err == nil {
		t.net = append(t.net, &anynet.Dropout{KeepProb: keepProb})
	}
}

// Dense flattens the tensor and adds a ReLU
// fully-connected layer.
func (t *tower) Dense(out int) {
	if t.err != nil {
		return
	}
	t.net = append(t.net, anynet.NewFC(t.c, t.height*t.depth, out), anynet.ReLU)
	t.height = 1
	t.depth = out
}

func (t *tower) Net() (anynet.Net, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.net, nil
}
