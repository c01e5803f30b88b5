package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/seqsig/anyprof"
	"github.com/seqsig/anyprof/anywin"
	"github.com/spf13/pflag"
	"github.com/unixpickle/essentials"
)

// Options holds every setting of a training run.
type Options struct {
	Architecture string   `toml:"architecture"`
	Genome       string   `toml:"genome"`
	Labels       string   `toml:"labels"`
	Output       string   `toml:"output"`
	ChromTrain   []string `toml:"chrom-train"`
	ChromValid   []string `toml:"chrom-valid"`

	Strand       string `toml:"strand"`
	WinSize      int    `toml:"winsize"`
	HeadInterval int    `toml:"head-interval"`

	LearnRate   float64 `toml:"learn-rate"`
	Epochs      int     `toml:"epochs"`
	BatchSize   int     `toml:"batch-size"`
	SameSamples bool    `toml:"same-samples"`
	MaxTrain    int     `toml:"max-train"`
	MaxValid    int     `toml:"max-valid"`

	Balance       string `toml:"balance"`
	NClasses      int    `toml:"n-classes"`
	Remove0s      bool   `toml:"remove0s"`
	RemoveNs      bool   `toml:"removeNs"`
	RemoveIndices string `toml:"remove-indices"`

	// Seed is negative to pick a random seed.
	Seed int64 `toml:"seed"`

	DisableAutotune bool   `toml:"disable-autotune"`
	Patience        int    `toml:"patience"`
	Verbose         int    `toml:"verbose"`
	HistoryDB       string `toml:"history-db"`
}

// DefaultOptions returns the options used when neither a
// flag nor a config file sets a value.
func DefaultOptions() *Options {
	return &Options{
		Strand:    "both",
		WinSize:   2001,
		LearnRate: 0.001,
		Epochs:    100,
		BatchSize: 1024,
		MaxTrain:  1 << 22,
		MaxValid:  1 << 20,
		NClasses:  500,
		Seed:      -1,
		Patience:  6,
		Verbose:   2,
	}
}

func addFlags(f *pflag.FlagSet, o *Options) {
	f.StringVarP(&o.Architecture, "architecture", "a", o.Architecture,
		"network architecture ("+strings.Join(anyprof.ArchNames(), ", ")+")")
	f.StringVarP(&o.Genome, "genome", "g", o.Genome,
		"one-hot encoded genome in an npz archive, with one array per chromosome")
	f.StringVarP(&o.Labels, "labels", "l", o.Labels,
		"labels in an npz archive, with one array per chromosome")
	f.StringVarP(&o.Output, "output", "o", o.Output,
		"output directory for the model and the training logs")
	f.StringSliceVar(&o.ChromTrain, "chrom-train", o.ChromTrain,
		"chromosomes to train on")
	f.StringSliceVar(&o.ChromValid, "chrom-valid", o.ChromValid,
		"chromosomes to validate on")
	f.StringVarP(&o.Strand, "strand", "s", o.Strand,
		"strand to train on: 'for', 'rev' or 'both'")
	f.IntVarP(&o.WinSize, "winsize", "w", o.WinSize,
		"window size in bp, must be odd")
	f.IntVar(&o.HeadInterval, "head-interval", o.HeadInterval,
		"spacing between output heads in bp; 0 predicts the window center only")
	f.Float64Var(&o.LearnRate, "learn-rate", o.LearnRate, "learning rate")
	f.IntVarP(&o.Epochs, "epochs", "e", o.Epochs, "number of epochs")
	f.IntVarP(&o.BatchSize, "batch-size", "b", o.BatchSize, "windows per batch")
	f.BoolVar(&o.SameSamples, "same-samples", o.SameSamples,
		"draw one fixed set of training windows, reused every epoch")
	f.IntVar(&o.MaxTrain, "max-train", o.MaxTrain,
		"maximum number of training windows per epoch")
	f.IntVar(&o.MaxValid, "max-valid", o.MaxValid,
		"maximum number of validation windows per epoch")
	f.StringVar(&o.Balance, "balance", o.Balance,
		"label balancing: 'global' or 'batch'; empty to sample uniformly")
	f.IntVar(&o.NClasses, "n-classes", o.NClasses,
		"number of label bins used for balancing")
	f.BoolVar(&o.Remove0s, "remove0s", o.Remove0s,
		"exclude windows whose center label is 0")
	f.BoolVar(&o.RemoveNs, "removeNs", o.RemoveNs,
		"exclude windows whose center base is N")
	f.StringVar(&o.RemoveIndices, "remove-indices", o.RemoveIndices,
		"npz archive of per-chromosome positions to exclude")
	f.Int64Var(&o.Seed, "seed", o.Seed,
		"seed for window sampling; negative for a random seed")
	f.BoolVar(&o.DisableAutotune, "disable-autotune", o.DisableAutotune,
		"disable checkpoints, early stopping and learning rate reduction")
	f.IntVarP(&o.Patience, "patience", "p", o.Patience,
		"epochs without validation improvement before stopping")
	f.IntVarP(&o.Verbose, "verbose", "v", o.Verbose,
		"0 for warnings only, 1 for a progress bar, 2 for one line per epoch")
	f.StringVar(&o.HistoryDB, "history-db", o.HistoryDB,
		"SQLite database to record epoch metrics in")
}

// applyConfig loads a TOML config into o.
// Flags set on the command line take precedence.
func applyConfig(f *pflag.FlagSet, path string, o *Options) error {
	explicit := map[string][]string{}
	f.Visit(func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			explicit[fl.Name] = sv.GetSlice()
		} else {
			explicit[fl.Name] = []string{fl.Value.String()}
		}
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return essentials.AddCtx("read config", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(o); err != nil {
		return essentials.AddCtx("parse config "+path, err)
	}

	for name, values := range explicit {
		fl := f.Lookup(name)
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			err = sv.Replace(values)
		} else {
			err = fl.Value.Set(values[0])
		}
		if err != nil {
			return essentials.AddCtx("restore flag "+name, err)
		}
	}
	return nil
}

// Validate checks the options which can be checked
// without reading the archives.
func (o *Options) Validate() error {
	if _, ok := anyprof.Architectures[o.Architecture]; !ok {
		return &anyprof.UnknownArchError{Name: o.Architecture}
	}
	for _, file := range []struct{ name, path string }{
		{"genome", o.Genome},
		{"labels", o.Labels},
		{"remove-indices", o.RemoveIndices},
	} {
		if file.path == "" && file.name == "remove-indices" {
			continue
		}
		if info, err := os.Stat(file.path); err != nil || info.IsDir() {
			return fmt.Errorf("%s file %q does not exist: please enter a valid file path",
				file.name, file.path)
		}
	}
	switch {
	case o.Output == "":
		return fmt.Errorf("missing output directory")
	case len(o.ChromTrain) == 0:
		return fmt.Errorf("missing training chromosomes")
	case len(o.ChromValid) == 0:
		return fmt.Errorf("missing validation chromosomes")
	case o.Epochs <= 0:
		return fmt.Errorf("invalid epochs: %d", o.Epochs)
	case o.LearnRate <= 0:
		return fmt.Errorf("invalid learning rate: %g", o.LearnRate)
	case o.Patience < 0:
		return fmt.Errorf("invalid patience: %d", o.Patience)
	case o.Verbose < 0 || o.Verbose > 2:
		return fmt.Errorf("invalid verbosity: %d", o.Verbose)
	}
	if _, err := anywin.ParseStrand(o.Strand); err != nil {
		return err
	}
	if _, err := anywin.ParseBalance(o.Balance, o.NClasses); err != nil {
		return err
	}
	return nil
}

// aliasChromosomes maps short chromosome names to archive
// keys for genomes which use a known naming scheme.
//
// For W303, numeric ids become zero-padded "chrNN" keys.
// For W303_Mmmyco, ids are prefixed with "chr" except for
// the Mmmyco chromosome itself.
func aliasChromosomes(genomePath string, ids []string) ([]string, error) {
	base := filepath.Base(genomePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	res := make([]string, len(ids))
	for i, id := range ids {
		switch stem {
		case "W303":
			n, err := strconv.Atoi(id)
			if err != nil {
				return nil, fmt.Errorf("chromosome %q of W303 is not a number", id)
			}
			res[i] = fmt.Sprintf("chr%02d", n)
		case "W303_Mmmyco":
			if id == "Mmmyco" {
				res[i] = id
			} else {
				res[i] = "chr" + id
			}
		default:
			res[i] = id
		}
	}
	return res, nil
}
