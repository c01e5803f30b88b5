package anytrain

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCSVHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epoch_data.csv")
	h, err := NewCSVHistory(path)
	if err != nil {
		t.Fatal(err)
	}
	for epoch := 0; epoch < 3; epoch++ {
		if err := h.EpochEnd(context.Background(), nil, validResult(epoch, 0.5, 0.25)); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records but got %d", len(records))
	}
	header := "epoch,correlate,loss,lr,mae,val_correlate,val_loss,val_mae"
	if actual := strings.Join(records[0], ","); actual != header {
		t.Errorf("expected header %s but got %s", header, actual)
	}
	if actual := strings.Join(records[2], ","); actual != "1,0.25,0.5,0.001,0.5,0.25,0.5,0.5" {
		t.Errorf("unexpected row: %s", actual)
	}
}

func TestSQLiteHistory(t *testing.T) {
	ctx := context.Background()
	h := NewSQLiteHistory(filepath.Join(t.TempDir(), "history.db"), "run-1")
	if err := h.EpochEnd(ctx, nil, validResult(0, 1, 0)); err == nil {
		t.Error("expected error before Init")
	}
	if err := h.Init(ctx, "test run"); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = h.Close()
	})

	losses := []float64{0.9, 0.7}
	for epoch, loss := range losses {
		if err := h.EpochEnd(ctx, nil, validResult(epoch, loss, 0.1)); err != nil {
			t.Fatal(err)
		}
	}

	epochs, err := h.Epochs(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(epochs) != 2 {
		t.Fatalf("expected 2 epochs but got %d", len(epochs))
	}
	for i, loss := range losses {
		if epochs[i]["val_loss"] != loss || epochs[i]["val_correlate"] != 0.1 {
			t.Errorf("epoch %d: unexpected values %v", i, epochs[i])
		}
	}

	if other, err := h.Epochs(ctx, "run-2"); err != nil || len(other) != 0 {
		t.Errorf("unknown run: got %v, %v", other, err)
	}
}
