package ecosystem

import (
	"context"
	"errors"
	"fmt"

	"github.com/pthm-cable/evolve/habitat"
)

// Step runs one tick: every agent, in a fresh random order, senses, picks
// and applies one action. An action invalidated by an earlier agent in the
// same tick is dropped.
func (p *Population) Step() error {
	switch p.phase {
	case PhaseNew, PhaseCompleted:
		return fmt.Errorf("step at epoch %d tick %d (%s): %w", p.epoch, p.tick, p.phase, ErrPhase)
	}
	p.phase = PhaseRunning

	clock := habitat.Clock{Tick: p.tick, Steps: p.cfg.Epoch.Steps}
	ids := make([]habitat.AgentID, len(p.agents))
	for i, a := range p.agents {
		ids[i] = a.ID
	}
	for _, id := range p.grid.Shuffle(ids) {
		if err := p.act(p.byID[id], clock); err != nil {
			return &StepError{Epoch: p.epoch, Tick: p.tick, Agent: id, Seed: p.cfg.Run.Seed, Err: err}
		}
	}

	p.tick++
	if p.tick >= p.cfg.Epoch.Steps {
		p.phase = PhaseCompleted
	}
	return nil
}

func (p *Population) act(a *Agent, clock habitat.Clock) error {
	ctx, err := p.grid.Context(a.ID, clock)
	if err != nil {
		return fmt.Errorf("%w: %w", habitat.ErrInconsistentState, err)
	}
	graph := a.Genome.Graph()
	if err := graph.Evaluate(ctx); err != nil {
		return err
	}
	n, err := graph.PickAction(ctx, p.rng)
	if err != nil {
		return err
	}
	applied, err := graph.ApplyAction(ctx, n)
	if err != nil {
		return err
	}

	p.histogram[n.Kind]++
	p.epochHist[n.Kind]++
	v := p.vitalsMap.Get(a.entity)
	switch {
	case n.IsNoOp():
		v.Idle++
		p.counters.idle++
	case applied:
		v.Applied++
		p.counters.applied++
	default:
		v.Dropped++
		p.counters.dropped++
	}
	return nil
}

// RunEpoch ticks until the epoch reaches epoch.steps. ctx is checked between
// ticks only; a cancelled epoch is left partially run.
func (p *Population) RunEpoch(ctx context.Context) error {
	for p.phase != PhaseCompleted {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Step(); err != nil {
			return err
		}
	}
	return nil
}

// NextEpoch resets the clock for the following epoch.
func (p *Population) NextEpoch() error {
	if p.phase != PhaseCompleted {
		return fmt.Errorf("next epoch from %s: %w", p.phase, ErrPhase)
	}
	p.epoch++
	p.tick = 0
	p.phase = PhaseSeeded
	p.counters = epochCounters{}
	clear(p.epochHist)
	return nil
}

// EpochSink receives one report per completed epoch.
type EpochSink interface {
	RecordEpoch(ctx context.Context, r EpochReport) error
}

// Run seeds the population if needed and runs epochs until the count is
// reached (0 runs until ctx is cancelled). After each epoch the population
// is culled to the configured zone, refilled by reproduction (reseeded on
// extinction) and optionally scattered.
func (p *Population) Run(ctx context.Context, epochs int, sink EpochSink) error {
	if p.phase == PhaseNew {
		if err := p.Seed(); err != nil {
			return err
		}
	}
	for i := 0; epochs == 0 || i < epochs; i++ {
		if err := p.RunEpoch(ctx); err != nil {
			return err
		}
		report := p.report()

		culled, err := p.Cull(func(pl habitat.Placement) bool { return p.keep(pl.Location) })
		if err != nil {
			return err
		}
		report.Culled = culled
		report.Survivors = p.Len()

		born, err := p.Reproduce(p.cfg.Selection.Portion)
		if errors.Is(err, ErrExtinct) {
			p.logger.Warn("population extinct, reseeding", "epoch", p.epoch, "seed", p.cfg.Run.Seed)
			before := p.Len()
			if err := p.Seed(); err != nil {
				return err
			}
			born, report.Reseeded = p.Len()-before, true
		} else if err != nil {
			return err
		}
		report.Born = born

		if p.cfg.Epoch.Scatter {
			p.grid.Scatter()
		}
		if err := p.grid.Check(); err != nil {
			return &StepError{Epoch: p.epoch, Tick: p.tick, Seed: p.cfg.Run.Seed, Err: err}
		}

		if sink != nil {
			if err := sink.RecordEpoch(ctx, report); err != nil {
				return fmt.Errorf("record epoch %d: %w", p.epoch, err)
			}
		}
		p.logger.Debug("epoch complete",
			"epoch", report.Epoch,
			"population", report.Population,
			"survivors", report.Survivors,
			"born", report.Born,
		)
		if err := p.NextEpoch(); err != nil {
			return err
		}
	}
	return nil
}
