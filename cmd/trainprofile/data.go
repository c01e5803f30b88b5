package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/seqsig/anyprof/anygenome"
	"github.com/seqsig/anyprof/anywin"
	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
)

// A dataset holds the merged training and validation
// chromosomes.
type dataset struct {
	Train *anygenome.Merged
	Valid *anygenome.Merged

	ExcludeTrain []int
	ExcludeValid []int
}

func loadData(o *Options, log logrus.FieldLogger) (*dataset, error) {
	genome, err := openArchive(o.Genome, log)
	if err != nil {
		return nil, err
	}
	defer genome.Close()
	labels, err := openArchive(o.Labels, log)
	if err != nil {
		return nil, err
	}
	defer labels.Close()

	all := append(append([]string{}, o.ChromTrain...), o.ChromValid...)
	for _, id := range all {
		if !genome.Has(id) || !labels.Has(id) {
			return nil, fmt.Errorf("%s is not a valid chromosome id in %s and %s",
				id, o.Genome, o.Labels)
		}
	}

	res := &dataset{}
	if res.Train, err = anygenome.Merge(o.ChromTrain, genome, labels); err != nil {
		return nil, essentials.AddCtx("load training data", err)
	}
	if res.Valid, err = anygenome.Merge(o.ChromValid, genome, labels); err != nil {
		return nil, essentials.AddCtx("load validation data", err)
	}
	log.WithFields(logrus.Fields{
		"train_bp": humanize.Comma(int64(res.Train.Len())),
		"valid_bp": humanize.Comma(int64(res.Valid.Len())),
	}).Info("merged chromosomes")

	if o.RemoveIndices == "" {
		return res, nil
	}
	remove, err := openArchive(o.RemoveIndices, log)
	if err != nil {
		return nil, err
	}
	defer remove.Close()
	for _, id := range all {
		if !remove.Has(id) {
			return nil, fmt.Errorf("%s is not a valid chromosome id in %s", id, o.RemoveIndices)
		}
	}
	if res.ExcludeTrain, err = res.Train.Offsets.RemapIndices(remove); err != nil {
		return nil, essentials.AddCtx("load training exclusions", err)
	}
	if res.ExcludeValid, err = res.Valid.Offsets.RemapIndices(remove); err != nil {
		return nil, essentials.AddCtx("load validation exclusions", err)
	}
	return res, nil
}

func openArchive(path string, log logrus.FieldLogger) (*anygenome.NPZArchive, error) {
	a, err := anygenome.OpenNPZ(path)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(path); err == nil {
		log.WithFields(logrus.Fields{
			"path":   path,
			"size":   humanize.Bytes(uint64(info.Size())),
			"arrays": len(a.Keys()),
		}).Debug("opened archive")
	}
	return a, nil
}

// newGenerators builds the training generator from the
// options and a validation generator which replays the
// same windows every epoch, without balancing.
func newGenerators(o *Options, d *dataset, seed uint64) (train, valid *anywin.Generator, err error) {
	strand, err := anywin.ParseStrand(o.Strand)
	if err != nil {
		return nil, nil, err
	}
	balance, err := anywin.ParseBalance(o.Balance, o.NClasses)
	if err != nil {
		return nil, nil, err
	}
	cfg := anywin.Config{
		WinSize:      o.WinSize,
		BatchSize:    o.BatchSize,
		MaxData:      o.MaxTrain,
		SameSamples:  o.SameSamples,
		Balance:      balance,
		Strand:       strand,
		HeadInterval: o.HeadInterval,
		Remove0s:     o.Remove0s,
		RemoveNs:     o.RemoveNs,
		Exclude:      d.ExcludeTrain,
		Seed:         seed,
		Creator:      anyvec32.CurrentCreator(),
	}
	if train, err = anywin.NewGenerator(d.Train, cfg); err != nil {
		return nil, nil, essentials.AddCtx("training generator", err)
	}
	if train.NumBatches() == 0 {
		return nil, nil, &anywin.ConfigError{Field: "chrom_train", Msg: "no eligible training windows"}
	}

	cfg.MaxData = o.MaxValid
	cfg.SameSamples = true
	cfg.Balance = nil
	cfg.Exclude = d.ExcludeValid
	cfg.Seed = 0
	if valid, err = anywin.NewGenerator(d.Valid, cfg); err != nil {
		return nil, nil, essentials.AddCtx("validation generator", err)
	}
	if valid.NumBatches() == 0 && !o.DisableAutotune {
		return nil, nil, &anywin.ConfigError{
			Field: "chrom_valid",
			Msg:   "no eligible validation windows to monitor (use --disable-autotune to train without)",
		}
	}
	return train, valid, nil
}
