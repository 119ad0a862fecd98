package ecosystem

import (
	"fmt"

	"github.com/pthm-cable/evolve/habitat"
)

// Cull removes every agent whose placement fails keep and returns how many
// were removed.
func (p *Population) Cull(keep func(habitat.Placement) bool) (int, error) {
	if p.phase == PhaseRunning {
		return 0, fmt.Errorf("cull at epoch %d tick %d: %w", p.epoch, p.tick, ErrPhase)
	}
	var doomed []*Agent
	for _, a := range p.agents {
		pl, ok := p.grid.Placement(a.ID)
		if !ok {
			return 0, &StepError{Epoch: p.epoch, Tick: p.tick, Agent: a.ID, Seed: p.cfg.Run.Seed,
				Err: fmt.Errorf("agent missing from grid: %w", habitat.ErrInconsistentState)}
		}
		if !keep(pl) {
			doomed = append(doomed, a)
		}
	}
	for _, a := range doomed {
		if err := p.remove(a); err != nil {
			return 0, &StepError{Epoch: p.epoch, Tick: p.tick, Agent: a.ID, Seed: p.cfg.Run.Seed, Err: err}
		}
	}
	p.counters.culled += len(doomed)
	return len(doomed), nil
}

// Reproduce refills the population to portion × population.initial.
func (p *Population) Reproduce(portion float64) (int, error) {
	return p.ReproduceTo(int(float64(p.cfg.Population.Initial) * portion))
}

// ReproduceTo duplicates surviving agents until the population reaches
// target, clamped to the population cap and the habitat capacity. Parents
// are drawn uniformly, preferring agents not yet chosen in this pass.
// Children carry an exact copy of the parent genome and its colour.
func (p *Population) ReproduceTo(target int) (int, error) {
	if p.phase == PhaseRunning {
		return 0, fmt.Errorf("reproduce at epoch %d tick %d: %w", p.epoch, p.tick, ErrPhase)
	}
	target = min(target, p.cfg.Derived.MaxPopulation, p.grid.Capacity())
	if len(p.agents) >= target {
		return 0, nil
	}
	if len(p.agents) == 0 {
		return 0, fmt.Errorf("reproduce to %d: %w", target, ErrExtinct)
	}

	remaining := append([]*Agent(nil), p.agents...)
	born := 0
	for len(p.agents) < target {
		var parent *Agent
		if len(remaining) > 0 {
			i := int(p.rng.Float64() * float64(len(remaining)))
			parent = remaining[i]
			remaining = append(remaining[:i], remaining[i+1:]...)
		} else {
			parent = p.agents[int(p.rng.Float64()*float64(len(p.agents)))]
		}
		if _, err := p.add(parent.Genome.Duplicate(), parent); err != nil {
			return born, &StepError{Epoch: p.epoch, Tick: p.tick, Agent: parent.ID, Seed: p.cfg.Run.Seed, Err: err}
		}
		born++
	}
	p.counters.born += born
	return born, nil
}
