package neural

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// minPickWeight keeps every eligible action selectable even when its
// accumulated value is zero.
const minPickWeight = 0.01

// Context is the per-tick view of the world a graph runs against. Hidden
// units are handled by the graph itself; every other neuron is dispatched to
// the context by Kind.
type Context interface {
	// Sense returns the raw value of a sensor.
	Sense(n Neuron) float64
	// Eligible reports whether an actuator can act with the given value.
	Eligible(n Neuron, value float64) bool
	// Act applies an actuator's effect.
	Act(n Neuron, value float64) error
	// Memory is the agent's persistent scratch storage for hidden units.
	Memory() map[ID]float64
}

// Connection is a weighted directed edge.
type Connection struct {
	Source Neuron
	Dest   Neuron
	Weight float64
}

// HitStats counts how often an actuator fired and with which sign.
type HitStats struct {
	Hits     int `json:"hits"`
	Positive int `json:"positive"`
	Negative int `json:"negative"`
}

// Graph is an agent's decision network. Its structure is fixed once the
// genome is built; only the per-tick values and hit counters change.
type Graph struct {
	catalog *Catalog

	sensors   []Neuron
	actuators []Neuron
	hidden    []Neuron // ascending rank
	known     []bool   // by ID

	sources  []ID           // in first-connection order
	outgoing [][]Connection // by source ID

	// Per-tick values, indexed by ID. order keeps first-insertion order so
	// action selection does not depend on map iteration.
	values  []float64
	present []bool
	order   []ID

	stats []HitStats // by ID
	ran   bool
}

// NewGraph returns an empty graph over the given catalog.
func NewGraph(c *Catalog) *Graph {
	n := c.Len()
	return &Graph{
		catalog:  c,
		known:    make([]bool, n),
		outgoing: make([][]Connection, n),
		values:   make([]float64, n),
		present:  make([]bool, n),
		stats:    make([]HitStats, n),
	}
}

// Catalog returns the catalog the graph draws neurons from.
func (g *Graph) Catalog() *Catalog { return g.catalog }

// Connect adds an edge from source to dest and registers both endpoints.
func (g *Graph) Connect(source, dest Neuron, weight float64) error {
	if !g.catalog.contains(source) || !g.catalog.contains(dest) {
		return fmt.Errorf("connect %s -> %s: not in catalog: %w", source, dest, ErrInvalidConnection)
	}
	if r := source.Role(); r != RoleSensor && r != RoleHidden {
		return fmt.Errorf("connect %s -> %s: source is a %s: %w", source, dest, r, ErrInvalidConnection)
	}
	if r := dest.Role(); r != RoleActuator && r != RoleHidden {
		return fmt.Errorf("connect %s -> %s: destination is a %s: %w", source, dest, r, ErrInvalidConnection)
	}
	if source.Role() == RoleHidden && dest.Role() == RoleHidden && source.Rank >= dest.Rank {
		return fmt.Errorf("connect %s -> %s: %w", source, dest, ErrRankViolation)
	}

	g.register(source)
	g.register(dest)
	if len(g.outgoing[source.ID]) == 0 {
		g.sources = append(g.sources, source.ID)
	}
	g.outgoing[source.ID] = append(g.outgoing[source.ID], Connection{Source: source, Dest: dest, Weight: weight})
	return nil
}

func (g *Graph) register(n Neuron) {
	if g.known[n.ID] {
		return
	}
	g.known[n.ID] = true
	switch n.Role() {
	case RoleSensor:
		g.sensors = append(g.sensors, n)
	case RoleActuator:
		g.actuators = append(g.actuators, n)
	case RoleHidden:
		g.hidden = append(g.hidden, n)
		sort.SliceStable(g.hidden, func(i, j int) bool { return g.hidden[i].Rank < g.hidden[j].Rank })
	}
}

// Evaluate runs one sensing pass: sensors first, then hidden units in
// ascending rank. Edges into a hidden unit only come from lower ranks, so a
// single pass reaches every destination.
func (g *Graph) Evaluate(ctx Context) error {
	if ctx == nil {
		return fmt.Errorf("evaluate: %w", ErrInvalidContext)
	}
	g.clearValues()

	for _, s := range g.sensors {
		conns := g.outgoing[s.ID]
		if len(conns) == 0 {
			continue
		}
		if err := g.propagate(s, ctx.Sense(s), conns); err != nil {
			return err
		}
	}
	for _, h := range g.hidden {
		if !g.present[h.ID] {
			continue
		}
		if err := g.propagate(h, g.values[h.ID], g.outgoing[h.ID]); err != nil {
			return err
		}
	}
	g.ran = true
	return nil
}

func (g *Graph) propagate(src Neuron, in float64, conns []Connection) error {
	out := math.Tanh(in)
	for _, c := range conns {
		v := out * c.Weight
		if math.IsNaN(v) {
			return fmt.Errorf("neuron %s turned %v into NaN on edge to %s: %w", src, in, c.Dest, ErrNumericInstability)
		}
		g.accumulate(c.Dest.ID, v)
	}
	return nil
}

func (g *Graph) accumulate(id ID, v float64) {
	if !g.present[id] {
		g.present[id] = true
		g.order = append(g.order, id)
		g.values[id] = v
		return
	}
	g.values[id] += v
}

func (g *Graph) clearValues() {
	for _, id := range g.order {
		g.present[id] = false
		g.values[id] = 0
	}
	g.order = g.order[:0]
}

// Value returns the value accumulated for n during the last evaluation.
func (g *Graph) Value(n Neuron) (float64, bool) {
	if int(n.ID) >= len(g.present) || !g.present[n.ID] {
		return 0, false
	}
	return g.values[n.ID], true
}

// eligible applies the per-variant eligibility rule. Hidden units never act.
func (g *Graph) eligible(ctx Context, n Neuron, v float64) bool {
	switch n.Role() {
	case RoleActuator:
		return ctx.Eligible(n, v)
	default:
		return false
	}
}

// PickAction draws one eligible actuator with probability proportional to
// max(0.01, |value|). It returns NoOp when nothing is eligible.
func (g *Graph) PickAction(ctx Context, rng *rand.Rand) (Neuron, error) {
	if ctx == nil {
		return NoOp, fmt.Errorf("pick action: %w", ErrInvalidContext)
	}

	var candidates []Neuron
	var weights []float64
	for _, id := range g.order {
		n := g.catalog.neurons[id]
		v := g.values[id]
		if n.Role() == RoleHidden || !g.eligible(ctx, n, v) {
			continue
		}
		if math.IsNaN(v) {
			return NoOp, fmt.Errorf("pick action: neuron %s has NaN value: %w", n, ErrNumericInstability)
		}
		candidates = append(candidates, n)
		weights = append(weights, math.Max(minPickWeight, math.Abs(v)))
	}
	if len(candidates) == 0 {
		return NoOp, nil
	}

	i, ok := lottery(rng, weights)
	if !ok {
		return NoOp, fmt.Errorf("pick action: %d candidates: %w", len(candidates), ErrEmptyActionSpace)
	}
	return candidates[i], nil
}

// ApplyAction performs n if it is still eligible. An action whose
// precondition was invalidated earlier in the tick is dropped: applied is
// false and err is nil.
func (g *Graph) ApplyAction(ctx Context, n Neuron) (applied bool, err error) {
	if n.IsNoOp() {
		return false, nil
	}
	if ctx == nil {
		return false, fmt.Errorf("apply %s: %w", n, ErrInvalidContext)
	}
	v, ok := g.Value(n)
	if !ok {
		return false, fmt.Errorf("apply %s: %w", n, ErrNoValue)
	}
	if !g.eligible(ctx, n, v) {
		return false, nil
	}

	st := &g.stats[n.ID]
	st.Hits++
	if v > 0 {
		st.Positive++
	} else {
		st.Negative++
	}

	if n.Role() == RoleHidden {
		if mem := ctx.Memory(); mem != nil {
			mem[n.ID] = v
		}
		return true, nil
	}
	if err := ctx.Act(n, v); err != nil {
		return false, fmt.Errorf("apply %s: %w", n, err)
	}
	return true, nil
}

// Stats returns the hit counters for n.
func (g *Graph) Stats(n Neuron) HitStats {
	if int(n.ID) >= len(g.stats) {
		return HitStats{}
	}
	return g.stats[n.ID]
}

// Sensors returns the registered sensors in registration order.
func (g *Graph) Sensors() []Neuron { return append([]Neuron(nil), g.sensors...) }

// Actuators returns the registered actuators in registration order.
func (g *Graph) Actuators() []Neuron { return append([]Neuron(nil), g.actuators...) }

// Hidden returns the registered hidden units in ascending rank.
func (g *Graph) Hidden() []Neuron { return append([]Neuron(nil), g.hidden...) }

// Connections returns every edge, grouped by source in first-connection order.
func (g *Graph) Connections() []Connection {
	var out []Connection
	for _, id := range g.sources {
		out = append(out, g.outgoing[id]...)
	}
	return out
}

// clone copies the structure into a fresh graph with no values or counters.
func (g *Graph) clone() *Graph {
	c := NewGraph(g.catalog)
	c.sensors = append([]Neuron(nil), g.sensors...)
	c.actuators = append([]Neuron(nil), g.actuators...)
	c.hidden = append([]Neuron(nil), g.hidden...)
	copy(c.known, g.known)
	c.sources = append([]ID(nil), g.sources...)
	for _, id := range g.sources {
		c.outgoing[id] = append([]Connection(nil), g.outgoing[id]...)
	}
	return c
}
