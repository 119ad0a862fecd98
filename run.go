package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/evolve/archive"
	"github.com/pthm-cable/evolve/config"
	"github.com/pthm-cable/evolve/ecosystem"
	"github.com/pthm-cable/evolve/telemetry"
)

type runOptions struct {
	configPath string
	epochs     int
	seed       int64
	outputDir  string
	archive    string
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation",
		Long: `Run seeds the population and runs epochs until --epochs is reached
or the process is interrupted. The final action summary is printed to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(opts.configPath); err != nil {
				return err
			}
			cfg := config.Cfg()
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			summary, err := runSimulation(cmd.Context(), cfg)
			if summary != "" {
				fmt.Fprintln(cmd.OutOrStdout(), summary)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml (empty = use defaults)")
	cmd.Flags().IntVar(&opts.epochs, "epochs", 0, "epochs to run, 0 = until interrupted (default from config)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "simulation seed (default from config)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "directory for CSV, snapshot and summary output")
	cmd.Flags().StringVar(&opts.archive, "archive", "", "SQLite run archive path (enables archiving)")
	return cmd
}

// apply overlays explicitly set flags on cfg.
func (o runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("epochs") {
		cfg.Run.Epochs = o.epochs
	}
	if flags.Changed("seed") {
		cfg.Run.Seed = o.seed
	}
	if flags.Changed("output") {
		cfg.Telemetry.OutputDir = o.outputDir
	}
	if flags.Changed("archive") {
		cfg.Archive.Enabled = o.archive != ""
		cfg.Archive.Path = o.archive
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.ComputeDerived()
	return nil
}

// runSimulation runs cfg to completion and returns the final action summary.
// Interruption is not an error; the summary covers the epochs that finished.
func runSimulation(ctx context.Context, cfg *config.Config) (string, error) {
	runID := uuid.New().String()
	log := logger.With("run_id", runID)

	pop, err := ecosystem.New(cfg, ecosystem.Options{Logger: log})
	if err != nil {
		return "", err
	}

	om, err := telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := om.Close(); err != nil {
			log.Error("closing output", "error", err)
		}
	}()
	if err := om.WriteConfig(cfg); err != nil {
		return "", err
	}

	var store telemetry.Store
	if cfg.Archive.Enabled {
		arc := archive.New(cfg.Archive.Path)
		if err := arc.Init(ctx); err != nil {
			return "", err
		}
		defer arc.Close()

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("encoding config: %w", err)
		}
		run, err := arc.StartRun(ctx, archive.RunInfo{
			ID:      runID,
			Seed:    cfg.Run.Seed,
			Config:  string(data),
			Started: time.Now(),
		})
		if err != nil {
			return "", err
		}
		store = run
	}

	collector := telemetry.NewCollector(telemetry.CollectorOptions{
		Output:        om,
		Store:         store,
		Source:        pop,
		Logger:        log,
		RunID:         runID,
		Seed:          cfg.Run.Seed,
		Width:         cfg.Habitat.Width,
		Height:        cfg.Habitat.Height,
		LogEvery:      cfg.Telemetry.LogEvery,
		SnapshotEvery: cfg.Telemetry.SnapshotEvery,
	})

	log.Info("starting simulation",
		"seed", cfg.Run.Seed,
		"epochs", cfg.Run.Epochs,
		"width", cfg.Habitat.Width,
		"height", cfg.Habitat.Height,
		"initial", cfg.Population.Initial,
		"zone", cfg.Selection.Zone,
		"output_dir", om.Dir(),
		"archive", cfg.Archive.Enabled,
	)

	runErr := pop.Run(ctx, cfg.Run.Epochs, collector)
	if errors.Is(runErr, context.Canceled) {
		log.Info("interrupted", "epoch", pop.Epoch(), "tick", pop.Tick())
		runErr = nil
	}

	summary := pop.Summary()
	if err := om.WriteSummary(summary); err != nil && runErr == nil {
		runErr = err
	}

	var stepErr *ecosystem.StepError
	if errors.As(runErr, &stepErr) {
		log.Error("simulation aborted",
			"epoch", stepErr.Epoch,
			"tick", stepErr.Tick,
			"agent", stepErr.Agent,
			"seed", stepErr.Seed,
			"error", stepErr.Err,
		)
	} else if runErr == nil {
		log.Info("simulation complete", "epochs", len(collector.History()), "population", pop.Len())
	}
	return summary, runErr
}
