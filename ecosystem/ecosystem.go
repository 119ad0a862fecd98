// Package ecosystem owns the agent population and drives the epoch loop:
// seeding, ticks, culling and reproduction.
package ecosystem

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evolve/components"
	"github.com/pthm-cable/evolve/config"
	"github.com/pthm-cable/evolve/habitat"
	"github.com/pthm-cable/evolve/neural"
)

var (
	// ErrExtinct is returned when reproduction has no surviving parent.
	ErrExtinct = errors.New("population extinct")
	// ErrPhase is returned for operations that do not fit the epoch phase.
	ErrPhase = errors.New("invalid population phase")
)

// Phase is the epoch lifecycle state.
type Phase uint8

const (
	PhaseNew       Phase = iota // nothing seeded yet
	PhaseSeeded                 // agents placed, clock at tick 0
	PhaseRunning                // at least one tick of the epoch ran
	PhaseCompleted              // the epoch reached its step count
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhaseSeeded:
		return "seeded"
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	}
	return fmt.Sprintf("Phase(%d)", p)
}

// StepError is a fatal simulation error with enough context to replay it.
type StepError struct {
	Epoch int
	Tick  int
	Agent habitat.AgentID
	Seed  int64
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("epoch %d tick %d agent %d (seed %d): %v", e.Epoch, e.Tick, e.Agent, e.Seed, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Agent is one population member. Its ID is never reused.
type Agent struct {
	ID     habitat.AgentID
	Genome *neural.Genome

	entity ecs.Entity
}

// Options tunes a Population beyond its config.
type Options struct {
	Logger *slog.Logger
}

// Population is the population manager. It is not safe for concurrent use.
type Population struct {
	cfg    *config.Config
	logger *slog.Logger

	rng     *rand.Rand // simulation generator, shared with the grid
	palette *rand.Rand // display colours only

	grid    *habitat.Grid
	catalog *neural.Catalog
	keep    habitat.Zone

	world     *ecs.World
	agentMap  *ecs.Map2[components.Vitals, components.Tint]
	vitalsMap *ecs.Map1[components.Vitals]
	tintMap   *ecs.Map1[components.Tint]
	vitals    *ecs.Filter1[components.Vitals]

	agents []*Agent // creation order
	byID   map[habitat.AgentID]*Agent
	nextID habitat.AgentID

	epoch int
	tick  int
	phase Phase

	histogram map[neural.Kind]int // whole run
	epochHist map[neural.Kind]int // current epoch
	counters  epochCounters
}

// epochCounters accumulate within one epoch.
type epochCounters struct {
	applied int
	dropped int
	idle    int
	born    int
	culled  int
}

// New builds an empty population from cfg. Call Seed before stepping.
func New(cfg *config.Config, opts Options) (*Population, error) {
	if cfg == nil {
		return nil, errors.New("ecosystem: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()

	keep, err := habitat.ParseZone(cfg.Selection.Zone)
	if err != nil {
		return nil, fmt.Errorf("ecosystem: %w", err)
	}
	rng := rand.New(rand.NewSource(cfg.Run.Seed))
	grid, err := habitat.New(cfg.Habitat.Width, cfg.Habitat.Height, rng)
	if err != nil {
		return nil, fmt.Errorf("ecosystem: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	world := ecs.NewWorld()
	return &Population{
		cfg:       cfg,
		logger:    logger,
		rng:       rng,
		palette:   rand.New(rand.NewSource(cfg.Derived.PaletteSeed)),
		grid:      grid,
		catalog:   neural.NewCatalog(cfg.Genome.Hidden),
		keep:      keep,
		world:     world,
		agentMap:  ecs.NewMap2[components.Vitals, components.Tint](world),
		vitalsMap: ecs.NewMap1[components.Vitals](world),
		tintMap:   ecs.NewMap1[components.Tint](world),
		vitals:    ecs.NewFilter1[components.Vitals](world),
		byID:      make(map[habitat.AgentID]*Agent),
		nextID:    1,
		histogram: make(map[neural.Kind]int),
		epochHist: make(map[neural.Kind]int),
	}, nil
}

// Config returns the configuration the population was built with.
func (p *Population) Config() *config.Config { return p.cfg }

// Grid returns the habitat grid.
func (p *Population) Grid() *habitat.Grid { return p.grid }

// Catalog returns the neuron catalog genomes are built from.
func (p *Population) Catalog() *neural.Catalog { return p.catalog }

// Phase returns the current lifecycle phase.
func (p *Population) Phase() Phase { return p.phase }

// Epoch returns the zero-based epoch number.
func (p *Population) Epoch() int { return p.epoch }

// Tick returns the tick within the current epoch.
func (p *Population) Tick() int { return p.tick }

// Len returns the number of living agents.
func (p *Population) Len() int { return len(p.agents) }

// Agents returns the living agents in creation order.
func (p *Population) Agents() []*Agent {
	return append([]*Agent(nil), p.agents...)
}

// Agent looks up a living agent.
func (p *Population) Agent(id habitat.AgentID) (*Agent, bool) {
	a, ok := p.byID[id]
	return a, ok
}

// Vitals returns the lineage and activity record of a living agent.
func (p *Population) Vitals(id habitat.AgentID) (components.Vitals, bool) {
	a, ok := p.byID[id]
	if !ok {
		return components.Vitals{}, false
	}
	return *p.vitalsMap.Get(a.entity), true
}

// Seed fills the population up to population.initial with random genomes on
// random free cells.
func (p *Population) Seed() error {
	if p.phase == PhaseRunning {
		return fmt.Errorf("seed at epoch %d tick %d: %w", p.epoch, p.tick, ErrPhase)
	}
	for len(p.agents) < p.cfg.Population.Initial {
		g, err := neural.BuildRandom(p.catalog, p.cfg.Genome.Connections, p.rng)
		if err != nil {
			return &StepError{Epoch: p.epoch, Tick: p.tick, Agent: p.nextID, Seed: p.cfg.Run.Seed, Err: err}
		}
		if _, err := p.add(g, nil); err != nil {
			return err
		}
	}
	if p.phase == PhaseNew {
		p.phase = PhaseSeeded
	}
	p.logger.Debug("seeded", "epoch", p.epoch, "population", len(p.agents))
	return nil
}

// add places a new agent with genome g. parent is nil for seeded agents.
func (p *Population) add(g *neural.Genome, parent *Agent) (*Agent, error) {
	id := p.nextID
	if _, err := p.grid.PlaceRandomly(id); err != nil {
		return nil, fmt.Errorf("add agent %d: %w", id, err)
	}
	p.nextID++

	vitals := components.Vitals{Agent: uint64(id), Born: p.epoch}
	var tint components.Tint
	if parent != nil {
		pv := p.vitalsMap.Get(parent.entity)
		pv.Children++
		vitals.Parent = uint64(parent.ID)
		vitals.Generation = pv.Generation + 1
		tint = p.tint(parent)
	}

	a := &Agent{ID: id, Genome: g}
	a.entity = p.agentMap.NewEntity(&vitals, &tint)
	p.agents = append(p.agents, a)
	p.byID[id] = a
	return a, nil
}

// remove deletes a from the population, the grid and the ECS world.
func (p *Population) remove(a *Agent) error {
	if err := p.grid.Remove(a.ID); err != nil {
		return err
	}
	p.world.RemoveEntity(a.entity)
	delete(p.byID, a.ID)
	for i, other := range p.agents {
		if other == a {
			p.agents = append(p.agents[:i], p.agents[i+1:]...)
			break
		}
	}
	return nil
}

// tint returns the agent's display colour, drawing it on first use.
func (p *Population) tint(a *Agent) components.Tint {
	t := p.tintMap.Get(a.entity)
	if !t.Set {
		t.R = uint8(p.palette.Intn(256))
		t.G = uint8(p.palette.Intn(256))
		t.B = uint8(p.palette.Intn(256))
		t.Set = true
	}
	return *t
}

// Colour returns the display colour of a living agent.
func (p *Population) Colour(id habitat.AgentID) (components.Tint, bool) {
	a, ok := p.byID[id]
	if !ok {
		return components.Tint{}, false
	}
	return p.tint(a), true
}

// Diagram dumps the decision network of a living agent.
func (p *Population) Diagram(id habitat.AgentID) (neural.Diagram, error) {
	a, ok := p.byID[id]
	if !ok {
		return neural.Diagram{}, fmt.Errorf("diagram: %w", habitat.ErrUnknownAgent)
	}
	return a.Genome.Graph().Dump(), nil
}
