// Command trainprofile trains a network to predict a
// genomic signal from DNA sequence windows.
package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/pelletier/go-toml/v2"
	"github.com/seqsig/anyprof"
	"github.com/seqsig/anyprof/anytrain"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
)

const (
	infoFile       = "Experiment_info.toml"
	historyFile    = "epoch_data.csv"
	checkpointFile = "Checkpoint"
	modelFile      = "model"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := DefaultOptions()
	var configPath string
	cmd := &cobra.Command{
		Use:   "trainprofile",
		Short: "Train a network to predict a genomic signal from DNA sequence",
		Example: `  trainprofile -a mnase -g W303.npz -l labels.npz -o out \
      --chrom-train 1,2,3,4 --chrom-valid 5
  trainprofile --config run.toml --epochs 10`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if err := applyConfig(cmd.Flags(), configPath, opts); err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts, newLogger(opts.Verbose))
		},
	}
	addFlags(cmd.Flags(), opts)
	cmd.Flags().StringVar(&configPath, "config", "", "TOML file providing default option values")
	return cmd
}

func newLogger(verbose int) *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stderr
	log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if verbose == 0 {
		log.Level = logrus.WarnLevel
	}
	return log
}

// ExperimentInfo describes a run.
// It is written before training and updated afterwards.
type ExperimentInfo struct {
	RunID     string    `toml:"run-id"`
	Timestamp time.Time `toml:"timestamp"`
	Machine   string    `toml:"machine"`
	Seed      uint64    `toml:"seed"`

	TrainingTime string `toml:"training-time,omitempty"`
	Epochs       int    `toml:"epochs-completed,omitempty"`
	Interrupted  bool   `toml:"interrupted,omitempty"`

	Options *Options `toml:"options"`
}

func writeInfo(path string, info *ExperimentInfo) error {
	data, err := toml.Marshal(info)
	if err != nil {
		return essentials.AddCtx("write experiment info", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("write experiment info", err)
	}
	return nil
}

func run(ctx context.Context, o *Options, base *logrus.Logger) error {
	if err := o.Validate(); err != nil {
		return err
	}
	var err error
	if o.ChromTrain, err = aliasChromosomes(o.Genome, o.ChromTrain); err != nil {
		return err
	}
	if o.ChromValid, err = aliasChromosomes(o.Genome, o.ChromValid); err != nil {
		return err
	}
	if err := os.MkdirAll(o.Output, 0755); err != nil {
		return essentials.AddCtx("create output directory", err)
	}

	seed := uint64(o.Seed)
	if o.Seed < 0 {
		seed = rand.Uint64()
	}
	host, _ := os.Hostname()
	info := &ExperimentInfo{
		RunID:     uuid.New().String(),
		Timestamp: time.Now(),
		Machine:   host,
		Seed:      seed,
		Options:   o,
	}
	infoPath := filepath.Join(o.Output, infoFile)
	if err := writeInfo(infoPath, info); err != nil {
		return err
	}
	log := base.WithField("run", info.RunID)

	data, err := loadData(o, log)
	if err != nil {
		return err
	}
	trainGen, validGen, err := newGenerators(o, data, seed)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"train_windows": len(trainGen.Eligible()),
		"valid_windows": len(validGen.Eligible()),
		"batches":       trainGen.NumBatches(),
		"heads":         trainGen.NumHeads(),
	}).Info("built generators")

	model, err := anyprof.NewModel(o.Architecture, anyvec32.CurrentCreator(), o.WinSize,
		trainGen.NumHeads())
	if err != nil {
		return err
	}

	loop, closer, err := newLoop(ctx, o, info, model, trainGen, validGen, log)
	if err != nil {
		return err
	}
	defer closer()

	var bar *progress
	if o.Verbose == 1 && (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) {
		bar = newProgress(os.Stderr, trainGen.NumBatches())
		loop.StatusFunc = bar.Status
	}

	start := time.Now()
	err = loop.Run(ctx)
	if bar != nil {
		bar.Wait()
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			return err
		}
		log.Warn("training interrupted")
		info.Interrupted = true
	}

	info.TrainingTime = time.Since(start).String()
	info.Epochs = len(loop.History)
	if err := writeInfo(infoPath, info); err != nil {
		return err
	}
	if err := anyprof.SaveModel(filepath.Join(o.Output, modelFile), model); err != nil {
		return err
	}
	log.WithField("elapsed", info.TrainingTime).Info("saved model")
	return nil
}

func newLoop(ctx context.Context, o *Options, info *ExperimentInfo, model *anyprof.Model,
	train, valid anytrain.Source, log logrus.FieldLogger) (*anytrain.Loop, func(), error) {
	loop := &anytrain.Loop{
		Trainer: &anytrain.Trainer{
			Net:    model,
			Cost:   anyprof.MAECor{},
			Params: model.Parameters(),
		},
		Model:       model,
		Transformer: &anysgd.Adam{},
		Rater:       anysgd.ConstRater(o.LearnRate),
		Train:       train,
		Valid:       valid,
		Epochs:      o.Epochs,
		Log:         log,
	}

	csvHistory, err := anytrain.NewCSVHistory(filepath.Join(o.Output, historyFile))
	if err != nil {
		return nil, nil, err
	}
	closers := []func() error{csvHistory.Close}
	closer := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.WithError(err).Warn("close history")
			}
		}
	}
	loop.Callbacks = append(loop.Callbacks, csvHistory)

	if o.HistoryDB != "" {
		db := anytrain.NewSQLiteHistory(o.HistoryDB, info.RunID)
		desc, _ := toml.Marshal(o)
		if err := db.Init(ctx, string(desc)); err != nil {
			closer()
			return nil, nil, essentials.AddCtx("open history database", err)
		}
		closers = append(closers, db.Close)
		loop.Callbacks = append(loop.Callbacks, db)
	}

	if !o.DisableAutotune {
		plateau := anytrain.NewPlateau(o.LearnRate)
		plateau.Patience = o.Patience / 2
		loop.Rater = plateau
		loop.Callbacks = append(loop.Callbacks,
			&anytrain.Checkpoint{
				Path:     filepath.Join(o.Output, checkpointFile),
				Model:    model,
				Monitor:  "val_correlate",
				Maximize: true,
			},
			&anytrain.EarlyStopping{
				Monitor:  "val_loss",
				Patience: o.Patience,
				Params:   model.Parameters(),
			},
			plateau,
		)
	}
	return loop, closer, nil
}
