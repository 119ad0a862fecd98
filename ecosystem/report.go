package ecosystem

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pthm-cable/evolve/components"
	"github.com/pthm-cable/evolve/habitat"
	"github.com/pthm-cable/evolve/neural"
)

// HistogramEntry counts how often one action kind was picked.
type HistogramEntry struct {
	Kind  neural.Kind
	Label string
	Count int
}

func sortedHistogram(counts map[neural.Kind]int) []HistogramEntry {
	out := make([]HistogramEntry, 0, len(counts))
	for k, c := range counts {
		out = append(out, HistogramEntry{Kind: k, Label: k.Label(), Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Histogram returns the picked-action counts for the whole run, most
// frequent first. Ties are broken by kind order.
func (p *Population) Histogram() []HistogramEntry {
	return sortedHistogram(p.histogram)
}

// Summary renders Histogram as one "label: count" line per kind.
func (p *Population) Summary() string {
	var lines []string
	for _, e := range p.Histogram() {
		lines = append(lines, fmt.Sprintf("%-25s: %6d", e.Label, e.Count))
	}
	return strings.Join(lines, "\n")
}

// Sprite is the renderer's read-only view of one agent.
type Sprite struct {
	ID       habitat.AgentID   `json:"id"`
	X        int               `json:"x"`
	Y        int               `json:"y"`
	Facing   habitat.Direction `json:"-"`
	Heading  string            `json:"facing"`
	Rotation float64           `json:"rotation"`
	Colour   string            `json:"colour"`
}

// Snapshot returns every living agent's position, facing and colour in
// creation order. It never touches the simulation generator.
func (p *Population) Snapshot() []Sprite {
	out := make([]Sprite, 0, len(p.agents))
	for _, a := range p.agents {
		pl, ok := p.grid.Placement(a.ID)
		if !ok {
			continue
		}
		out = append(out, Sprite{
			ID:       a.ID,
			X:        pl.Location.X,
			Y:        pl.Location.Y,
			Facing:   pl.Facing,
			Heading:  pl.Facing.String(),
			Rotation: pl.Facing.Rotation(),
			Colour:   p.tint(a).Hex(),
		})
	}
	return out
}

// AgentSample is one agent's state at the end of an epoch.
type AgentSample struct {
	ID         habitat.AgentID
	X, Y       int
	Border     float64
	Generation int
	Age        int // epochs lived
	Applied    int
	Dropped    int
	Idle       int
}

// EpochReport describes one completed epoch. Population and Samples are
// taken before culling.
type EpochReport struct {
	Epoch      int
	Steps      int
	Population int
	Culled     int
	Survivors  int
	Born       int
	Reseeded   bool

	Applied int
	Dropped int
	Idle    int

	Histogram []HistogramEntry
	Samples   []AgentSample
}

func (p *Population) report() EpochReport {
	r := EpochReport{
		Epoch:      p.epoch,
		Steps:      p.tick,
		Population: len(p.agents),
		Applied:    p.counters.applied,
		Dropped:    p.counters.dropped,
		Idle:       p.counters.idle,
		Histogram:  sortedHistogram(p.epochHist),
	}

	// Vitals are read through the ECS; the sample order follows the grid.
	byAgent := make(map[uint64]components.Vitals, len(p.agents))
	q := p.vitals.Query()
	for q.Next() {
		v := q.Get()
		byAgent[v.Agent] = *v
	}
	for _, pl := range p.grid.Placements() {
		v := byAgent[uint64(pl.ID)]
		r.Samples = append(r.Samples, AgentSample{
			ID:         pl.ID,
			X:          pl.Location.X,
			Y:          pl.Location.Y,
			Border:     pl.Location.Border(),
			Generation: v.Generation,
			Age:        v.Age(p.epoch),
			Applied:    v.Applied,
			Dropped:    v.Dropped,
			Idle:       v.Idle,
		})
	}
	return r
}
