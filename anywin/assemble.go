package anywin

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/seqsig/anyprof/anygenome"
	"github.com/unixpickle/anyvec"
)

// A Batch stores windows and their target labels in a
// packed format.
//
// Inputs is row-major depth-minor with shape
// (Num, WinSize, anygenome.Alphabet).
// Outputs has shape (Num, Heads).
type Batch struct {
	Inputs  anyvec.Vector
	Outputs anyvec.Vector
	Num     int
	WinSize int
	Heads   int

	// Draws lists the windows in the batch, in order.
	Draws []Draw
}

// An Assembler turns draws into batches.
type Assembler struct {
	Merged  *anygenome.Merged
	WinSize int

	// HeadInterval, if non-zero, is the spacing between
	// label read-out positions.
	// If it is zero, only the window center is read.
	HeadInterval int

	Creator anyvec.Creator

	// MaxGos specifies the maximum goroutines to use
	// simultaneously for filling windows.
	// If it is not positive, GOMAXPROCS is used.
	MaxGos int
}

// NumHeads returns the number of labels per window.
func (a *Assembler) NumHeads() int {
	return len(a.HeadOffsets())
}

// HeadOffsets returns the label read-out positions,
// relative to the window center, in forward order.
func (a *Assembler) HeadOffsets() []int {
	if a.HeadInterval <= 0 {
		return []int{0}
	}
	m := (a.WinSize / 2) / a.HeadInterval
	res := make([]int, 0, 2*m+1)
	for j := -m; j <= m; j++ {
		res = append(res, j*a.HeadInterval)
	}
	return res
}

// Assemble builds a batch for the draws.
//
// It panics if a window would leave its chromosome.
func (a *Assembler) Assemble(draws []Draw) *Batch {
	for _, d := range draws {
		a.checkBounds(d.Pos)
	}

	heads := a.HeadOffsets()
	rowSize := a.WinSize * anygenome.Alphabet
	ins := make([]float64, len(draws)*rowSize)
	outs := make([]float64, len(draws)*len(heads))

	idxChan := make(chan int, len(draws))
	for i := range draws {
		idxChan <- i
	}
	close(idxChan)

	maxGos := a.MaxGos
	if maxGos <= 0 {
		maxGos = runtime.GOMAXPROCS(0)
	}

	var wg sync.WaitGroup
	for i := 0; i < maxGos; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				a.fillWindow(ins[i*rowSize:(i+1)*rowSize], draws[i])
				a.fillLabels(outs[i*len(heads):(i+1)*len(heads)], heads, draws[i])
			}
		}()
	}
	wg.Wait()

	return &Batch{
		Inputs:  a.Creator.MakeVectorData(a.Creator.MakeNumericList(ins)),
		Outputs: a.Creator.MakeVectorData(a.Creator.MakeNumericList(outs)),
		Num:     len(draws),
		WinSize: a.WinSize,
		Heads:   len(heads),
		Draws:   append([]Draw{}, draws...),
	}
}

func (a *Assembler) checkBounds(pos int) {
	half := a.WinSize / 2
	chrom := a.Merged.Offsets.Chrom(pos)
	if chrom < 0 {
		panic(fmt.Sprintf("window center %d is not inside a chromosome", pos))
	}
	start, end := a.Merged.Offsets.Span(chrom)
	if pos-half < start || pos+half >= end {
		panic(fmt.Sprintf("window [%d, %d] crosses the bounds [%d, %d) of %s",
			pos-half, pos+half, start, end, a.Merged.Offsets.ID(chrom)))
	}
}

func (a *Assembler) fillWindow(dst []float64, d Draw) {
	half := a.WinSize / 2
	seq := a.Merged.Sequence
	for i := 0; i < a.WinSize; i++ {
		row := dst[i*anygenome.Alphabet : (i+1)*anygenome.Alphabet]
		if d.Reverse {
			// Reversing a row maps A<->T and C<->G.
			src := seq.Row(d.Pos + half - i)
			for j, x := range src {
				row[anygenome.Alphabet-1-j] = float64(x)
			}
		} else {
			src := seq.Row(d.Pos - half + i)
			for j, x := range src {
				row[j] = float64(x)
			}
		}
	}
}

func (a *Assembler) fillLabels(dst []float64, heads []int, d Draw) {
	for i, off := range heads {
		if d.Reverse {
			off = -off
		}
		dst[i] = float64(a.Merged.Labels[d.Pos+off])
	}
}
