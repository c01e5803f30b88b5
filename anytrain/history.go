package anytrain

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"

	"github.com/unixpickle/essentials"
)

// CSVHistory writes one row of metrics per epoch to a CSV
// file.
//
// The header is written with the first row and lists
// "epoch" followed by the metric names in sorted order.
type CSVHistory struct {
	f      *os.File
	w      *csv.Writer
	header []string
}

// NewCSVHistory creates (or truncates) a CSV file.
func NewCSVHistory(path string) (*CSVHistory, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, essentials.AddCtx("create history", err)
	}
	return &CSVHistory{f: f, w: csv.NewWriter(f)}, nil
}

// EpochEnd appends a row to the file.
func (c *CSVHistory) EpochEnd(ctx context.Context, l *Loop, r *EpochResult) error {
	values := r.Values()
	if c.header == nil {
		c.header = append([]string{"epoch"}, sortedNames(values)...)
		if err := c.w.Write(c.header); err != nil {
			return essentials.AddCtx("write history", err)
		}
	}
	row := []string{strconv.Itoa(r.Epoch)}
	for _, name := range c.header[1:] {
		var field string
		if x, ok := values[name]; ok {
			field = strconv.FormatFloat(x, 'g', -1, 64)
		}
		row = append(row, field)
	}
	if err := c.w.Write(row); err != nil {
		return essentials.AddCtx("write history", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return essentials.AddCtx("write history", err)
	}
	return nil
}

// Close flushes and closes the file.
func (c *CSVHistory) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
