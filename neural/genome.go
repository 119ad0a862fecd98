package neural

import (
	"fmt"
	"math/rand"
)

// MaxWeight bounds connection weights to (-MaxWeight, MaxWeight).
const MaxWeight = 4.0

// Genome owns exactly one decision network.
type Genome struct {
	graph *Graph
}

// NewGenome wraps an already built graph.
func NewGenome(g *Graph) *Genome {
	return &Genome{graph: g}
}

// Graph returns the genome's decision network.
func (g *Genome) Graph() *Graph { return g.graph }

// BuildRandom wires connections random edges over the catalog.
// Sources are drawn uniformly from sensors and hidden units. Destinations are
// drawn by catalog weight from actuators and the hidden units the source may
// feed: all of them for a sensor, only strictly higher ranks for a hidden unit.
func BuildRandom(c *Catalog, connections int, rng *rand.Rand) (*Genome, error) {
	graph := NewGraph(c)

	sources := make([]Neuron, 0, len(c.Sensors())+len(c.Hidden()))
	sources = append(sources, c.Sensors()...)
	sources = append(sources, c.Hidden()...)
	if len(sources) == 0 && connections > 0 {
		return nil, fmt.Errorf("build genome: catalog has no sources: %w", ErrInvalidConnection)
	}

	dests := make([]Neuron, 0, len(c.Actuators())+len(c.Hidden()))
	weights := make([]float64, 0, cap(dests))
	for i := 0; i < connections; i++ {
		src := sources[rng.Intn(len(sources))]

		dests = append(dests[:0], c.Actuators()...)
		for _, h := range c.Hidden() {
			if src.Role() != RoleHidden || h.Rank > src.Rank {
				dests = append(dests, h)
			}
		}
		weights = weights[:0]
		for _, d := range dests {
			weights = append(weights, d.Weight())
		}
		j, ok := lottery(rng, weights)
		if !ok {
			return nil, fmt.Errorf("build genome: no destination for %s: %w", src, ErrInvalidConnection)
		}

		w := rng.Float64()*2*MaxWeight - MaxWeight
		for w <= -MaxWeight {
			w = rng.Float64()*2*MaxWeight - MaxWeight
		}
		if err := graph.Connect(src, dests[j], w); err != nil {
			return nil, fmt.Errorf("build genome: %w", err)
		}
	}
	return &Genome{graph: graph}, nil
}

// Duplicate returns an exact structural copy that shares no mutable state
// with g. No variation is applied.
func (g *Genome) Duplicate() *Genome {
	return &Genome{graph: g.graph.clone()}
}
