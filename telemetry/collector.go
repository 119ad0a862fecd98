// Package telemetry turns epoch reports into statistics, CSV output, JSON
// snapshots and log lines.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/evolve/ecosystem"
)

// Store persists epoch statistics.
type Store interface {
	SaveEpoch(ctx context.Context, stats EpochStats, actions []ActionRow) error
}

// CollectorOptions wires a Collector. Every output is optional.
type CollectorOptions struct {
	Output *OutputManager
	Store  Store
	Source Source
	Logger *slog.Logger

	RunID         string
	Seed          int64
	Width, Height int

	LogEvery      int // epochs between log lines, 0 = never
	SnapshotEvery int // epochs between snapshots, 0 = never
}

// Collector implements ecosystem.EpochSink.
type Collector struct {
	opts    CollectorOptions
	perf    *PerfCollector
	history []EpochStats
}

var _ ecosystem.EpochSink = (*Collector)(nil)

// NewCollector creates a new stats collector.
func NewCollector(opts CollectorOptions) *Collector {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Collector{
		opts: opts,
		perf: NewPerfCollector(10),
	}
}

// RecordEpoch aggregates r and fans it out to the configured outputs.
// Snapshots reflect the population after culling and reproduction.
func (c *Collector) RecordEpoch(ctx context.Context, r ecosystem.EpochReport) error {
	stats := Compute(r)
	actions := ActionRows(r)
	perf := c.perf.EndEpoch(r.Epoch, r.Population*r.Steps)
	c.history = append(c.history, stats)

	if err := c.opts.Output.WriteEpoch(stats); err != nil {
		return err
	}
	if err := c.opts.Output.WriteActions(actions); err != nil {
		return err
	}
	if err := c.opts.Output.WritePerf(perf); err != nil {
		return err
	}
	if c.opts.Store != nil {
		if err := c.opts.Store.SaveEpoch(ctx, stats, actions); err != nil {
			return fmt.Errorf("archiving epoch %d: %w", r.Epoch, err)
		}
	}

	if every := c.opts.LogEvery; every > 0 && r.Epoch%every == 0 {
		c.opts.Logger.Info("epoch", "stats", stats, "perf", perf)
	}
	if every := c.opts.SnapshotEvery; every > 0 && r.Epoch%every == 0 && c.opts.Source != nil && c.opts.Output != nil {
		snap, err := TakeSnapshot(c.opts.Source, c.opts.RunID, c.opts.Seed, r.Epoch, c.opts.Width, c.opts.Height)
		if err != nil {
			return err
		}
		if err := c.opts.Output.WriteSnapshot(snap); err != nil {
			return err
		}
	}
	return nil
}

// History returns every epoch recorded so far.
func (c *Collector) History() []EpochStats {
	return append([]EpochStats(nil), c.history...)
}
