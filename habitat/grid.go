// Package habitat models the discrete 2D grid agents live on: exclusive
// cell occupancy, movement, direction algebra and per-tick sensing.
package habitat

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/evolve/neural"
)

var (
	ErrCellOccupied      = errors.New("cell occupied")
	ErrInconsistentState = errors.New("habitat index inconsistent")
	ErrHabitatFull       = errors.New("habitat has no free cell")
	ErrUnknownAgent      = errors.New("agent not in habitat")
	ErrOutOfBounds       = errors.New("location out of bounds")
)

// AgentID identifies an agent across the habitat and the population.
type AgentID uint64

// occupant is the per-agent record stored in a cell.
type occupant struct {
	id     AgentID
	loc    Location
	prev   Location
	memory map[neural.ID]float64
}

// Grid is a fixed-size occupancy grid. Every placed agent appears in exactly
// one cell and in the reverse index, at the same location.
type Grid struct {
	width, height int

	cells []*occupant // row-major
	index map[AgentID]*occupant

	rng *rand.Rand
	// cursor is the round-robin position for agents with no movement
	// history.
	cursor int
}

// New creates an empty grid. rng is the simulation's shared generator.
func New(width, height int, rng *rand.Rand) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("habitat: invalid size %dx%d", width, height)
	}
	if rng == nil {
		return nil, errors.New("habitat: nil random source")
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]*occupant, width*height),
		index:  make(map[AgentID]*occupant),
		rng:    rng,
	}, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// Capacity returns the number of cells.
func (g *Grid) Capacity() int { return len(g.cells) }

// Len returns the number of placed agents.
func (g *Grid) Len() int { return len(g.index) }

// At returns the location (x, y) on this grid.
func (g *Grid) At(x, y int) (Location, error) {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return Location{}, fmt.Errorf("at (%d,%d) on %dx%d: %w", x, y, g.width, g.height, ErrOutOfBounds)
	}
	return Location{X: x, Y: y, grid: g}, nil
}

func (g *Grid) cell(l Location) int { return l.Y*g.width + l.X }

func (g *Grid) owns(l Location) bool {
	return l.grid == g && l.X >= 0 && l.Y >= 0 && l.X < g.width && l.Y < g.height
}

// Occupied reports whether l holds an agent.
func (g *Grid) Occupied(l Location) bool {
	if !g.owns(l) {
		return false
	}
	return g.cells[g.cell(l)] != nil
}

// Location returns where id currently stands.
func (g *Grid) Location(id AgentID) (Location, bool) {
	o, ok := g.index[id]
	if !ok {
		return Location{}, false
	}
	return o.loc, true
}

// Place puts a new agent on l with no movement history.
func (g *Grid) Place(id AgentID, l Location) error {
	if !g.owns(l) {
		return fmt.Errorf("place agent %d at %s: %w", id, l, ErrOutOfBounds)
	}
	if _, ok := g.index[id]; ok {
		return fmt.Errorf("place agent %d: already placed: %w", id, ErrInconsistentState)
	}
	if g.Occupied(l) {
		return fmt.Errorf("place agent %d at %s: %w", id, l, ErrCellOccupied)
	}
	o := &occupant{id: id, loc: l, prev: l, memory: make(map[neural.ID]float64)}
	g.cells[g.cell(l)] = o
	g.index[id] = o
	return nil
}

// PlaceRandomly puts a new agent on a random free cell.
func (g *Grid) PlaceRandomly(id AgentID) (Location, error) {
	l, err := g.RandomUnoccupied()
	if err != nil {
		return Location{}, fmt.Errorf("place agent %d: %w", id, err)
	}
	if err := g.Place(id, l); err != nil {
		return Location{}, err
	}
	return l, nil
}

// RandomUnoccupied samples cells uniformly until it finds a free one.
func (g *Grid) RandomUnoccupied() (Location, error) {
	if g.Len() >= g.Capacity() {
		return Location{}, ErrHabitatFull
	}
	for {
		x := int(g.rng.Float64() * float64(g.width))
		y := int(g.rng.Float64() * float64(g.height))
		l := Location{X: x, Y: y, grid: g}
		if !g.Occupied(l) {
			return l, nil
		}
	}
}

// Move relocates the agent on from to the free cell to. Moving onto the
// same cell is a no-op and keeps the movement history.
func (g *Grid) Move(from, to Location) error {
	if !g.owns(from) || !g.owns(to) {
		return fmt.Errorf("move %s -> %s: %w", from, to, ErrOutOfBounds)
	}
	o := g.cells[g.cell(from)]
	if o == nil {
		return fmt.Errorf("move %s -> %s: source cell empty: %w", from, to, ErrInconsistentState)
	}
	if o.loc != from || g.index[o.id] != o {
		return fmt.Errorf("move agent %d from %s: indexed at %s: %w", o.id, from, o.loc, ErrInconsistentState)
	}
	if from == to {
		return nil
	}
	if g.Occupied(to) {
		return fmt.Errorf("move agent %d %s -> %s: %w", o.id, from, to, ErrCellOccupied)
	}
	g.cells[g.cell(to)] = o
	g.cells[g.cell(from)] = nil
	o.prev = from
	o.loc = to
	return nil
}

// Remove takes id off the grid.
func (g *Grid) Remove(id AgentID) error {
	o, ok := g.index[id]
	if !ok {
		return fmt.Errorf("remove agent %d: %w", id, ErrUnknownAgent)
	}
	if g.cells[g.cell(o.loc)] != o {
		return fmt.Errorf("remove agent %d at %s: %w", id, o.loc, ErrInconsistentState)
	}
	g.cells[g.cell(o.loc)] = nil
	delete(g.index, id)
	return nil
}

// Shuffle returns a fresh random permutation of ids.
func (g *Grid) Shuffle(ids []AgentID) []AgentID {
	out := append([]AgentID(nil), ids...)
	for i := len(out) - 1; i >= 1; i-- {
		j := int(g.rng.Float64() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Scatter permutes every cell of the grid, relocating all agents at once.
// Movement history is cleared.
func (g *Grid) Scatter() {
	perm := make([]int, len(g.cells))
	for i := range perm {
		perm[i] = i
	}
	for i := len(perm) - 1; i >= 1; i-- {
		j := int(g.rng.Float64() * float64(i+1))
		perm[i], perm[j] = perm[j], perm[i]
	}

	old := g.cells
	g.cells = make([]*occupant, len(old))
	for i, src := range perm {
		o := old[src]
		if o == nil {
			continue
		}
		l := Location{X: i % g.width, Y: i / g.width, grid: g}
		o.loc, o.prev = l, l
		g.cells[i] = o
	}
}

// Agents returns the placed agents in row-major cell order.
func (g *Grid) Agents() []AgentID {
	ids := make([]AgentID, 0, len(g.index))
	for _, o := range g.cells {
		if o != nil {
			ids = append(ids, o.id)
		}
	}
	return ids
}

// Check verifies that the cells and the reverse index agree.
func (g *Grid) Check() error {
	seen := 0
	for i, o := range g.cells {
		if o == nil {
			continue
		}
		seen++
		if g.index[o.id] != o {
			return fmt.Errorf("cell %d holds agent %d missing from index: %w", i, o.id, ErrInconsistentState)
		}
		if g.cell(o.loc) != i {
			return fmt.Errorf("agent %d in cell %d but indexed at %s: %w", o.id, i, o.loc, ErrInconsistentState)
		}
	}
	if seen != len(g.index) {
		return fmt.Errorf("%d occupied cells, %d indexed agents: %w", seen, len(g.index), ErrInconsistentState)
	}
	return nil
}

// facing derives the heading of o from its last move. An agent with no
// movement history takes the next direction in the round-robin.
func (g *Grid) facing(o *occupant) Direction {
	if o.loc == o.prev {
		d := Direction(g.cursor)
		g.cursor = (g.cursor + 1) % int(numDirections)
		return d
	}
	return directionOf(o.loc.X-o.prev.X, o.loc.Y-o.prev.Y)
}

// peekFacing is facing without advancing the round-robin.
func (g *Grid) peekFacing(o *occupant) Direction {
	if o.loc == o.prev {
		return Direction(g.cursor)
	}
	return directionOf(o.loc.X-o.prev.X, o.loc.Y-o.prev.Y)
}
