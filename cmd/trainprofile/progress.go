package main

import (
	"fmt"
	"io"
	"time"

	"github.com/seqsig/anyprof/anytrain"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// A progress shows one bar per training epoch.
type progress struct {
	pbs     *mpb.Progress
	bar     *mpb.Bar
	batches int
	last    time.Time
}

func newProgress(w io.Writer, batches int) *progress {
	return &progress{
		pbs:     mpb.New(mpb.WithWidth(40), mpb.WithOutput(w)),
		batches: batches,
	}
}

// Status is an anytrain.Loop StatusFunc.
func (p *progress) Status(epoch, batch int, m anytrain.Metrics) {
	if batch == 0 {
		name := fmt.Sprintf("epoch %d: ", epoch+1)
		p.bar = p.pbs.AddBar(int64(p.batches),
			mpb.PrependDecorators(
				decor.Name(name, decor.WC{W: len(name), C: decor.DindentRight}),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
				decor.EwmaETA(decor.ET_STYLE_GO, 20),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)
		p.last = time.Now()
	}
	now := time.Now()
	p.bar.EwmaIncrBy(1, now.Sub(p.last))
	p.last = now
}

// Wait aborts an unfinished bar and flushes the output.
func (p *progress) Wait() {
	if p.bar != nil && !p.bar.Completed() {
		p.bar.Abort(false)
	}
	p.pbs.Wait()
}
