package habitat

import (
	"fmt"
	"math"

	"github.com/pthm-cable/evolve/neural"
)

// oscillatorCycles is how many half-periods the Osc sensor completes per epoch.
const oscillatorCycles = 10

// Clock is the epoch position a context senses.
type Clock struct {
	Tick  int
	Steps int
}

// Age is the fraction of the epoch elapsed.
func (c Clock) Age() float64 {
	if c.Steps <= 0 {
		return 0
	}
	return float64(c.Tick) / float64(c.Steps)
}

// Context is one agent's view of the grid for a single tick. It implements
// neural.Context. Facing is resolved on first use and then held for the
// rest of the tick.
type Context struct {
	grid  *Grid
	occ   *occupant
	clock Clock

	facing   Direction
	resolved bool

	randomDest *Location
}

var _ neural.Context = (*Context)(nil)

// Context returns the per-tick context for id.
func (g *Grid) Context(id AgentID, clock Clock) (*Context, error) {
	o, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("context for agent %d: %w", id, ErrUnknownAgent)
	}
	return &Context{grid: g, occ: o, clock: clock}, nil
}

// Agent returns the agent the context belongs to.
func (c *Context) Agent() AgentID { return c.occ.id }

// Location returns the agent's current cell.
func (c *Context) Location() Location { return c.occ.loc }

// Previous returns the cell the agent last moved from.
func (c *Context) Previous() Location { return c.occ.prev }

// Facing returns the agent's heading for this tick.
func (c *Context) Facing() Direction {
	if !c.resolved {
		c.facing = c.grid.facing(c.occ)
		c.resolved = true
	}
	return c.facing
}

// Memory is the agent's hidden-unit scratch storage.
func (c *Context) Memory() map[neural.ID]float64 { return c.occ.memory }

func (c *Context) blocked(d Direction) float64 {
	if c.occ.loc.Add(d).Occupied() {
		return 1
	}
	return 0
}

// Sense returns the raw value of sensor n.
func (c *Context) Sense(n neural.Neuron) float64 {
	loc := c.occ.loc
	switch n.Kind {
	case neural.KindAge:
		return c.clock.Age()
	case neural.KindRandom:
		return c.grid.rng.Float64()*2 - 1
	case neural.KindOscillator:
		return math.Sin(c.clock.Age() * oscillatorCycles * math.Pi)
	case neural.KindConstant:
		return 1
	case neural.KindXPosition:
		return loc.XValue()
	case neural.KindYPosition:
		return loc.YValue()
	case neural.KindBorder:
		return loc.Border()
	case neural.KindPastMoveX:
		return float64(loc.Add(c.Facing()).X - loc.X)
	case neural.KindPastMoveY:
		return float64(loc.Add(c.Facing()).Y - loc.Y)
	case neural.KindBlockLeft:
		return c.blocked(c.Facing().Left())
	case neural.KindBlockRight:
		return c.blocked(c.Facing().Right())
	case neural.KindBlockLeftAndRight:
		return c.blocked(c.Facing().Left()) * c.blocked(c.Facing().Right())
	case neural.KindBlockBack:
		return c.blocked(c.Facing().Back())
	case neural.KindBlockForward:
		return c.blocked(c.Facing())
	}
	return 0
}

// destination computes where a move actuator would take the agent. ok is
// false for actuators that do not move.
func (c *Context) destination(n neural.Neuron, value float64) (Location, bool) {
	loc := c.occ.loc
	switch n.Kind {
	case neural.KindMoveForward:
		return loc.Add(c.Facing()), true
	case neural.KindMoveBack:
		return loc.Add(c.Facing().Back()), true
	case neural.KindMoveLeftRight:
		if value > 0 {
			return loc.Add(c.Facing().Right()), true
		}
		return loc.Add(c.Facing().Left()), true
	case neural.KindMoveLeftOrRight:
		left, right := loc.Add(c.Facing().Left()), loc.Add(c.Facing().Right())
		if value > 0 {
			if right.Occupied() {
				return left, true
			}
			return right, true
		}
		if left.Occupied() {
			return right, true
		}
		return left, true
	case neural.KindMoveRandom:
		return c.randomDestination(), true
	case neural.KindMoveEastWest:
		if value > 0 {
			return loc.Add(West), true
		}
		return loc.Add(East), true
	case neural.KindMoveNorthSouth:
		if value > 0 {
			return loc.Add(South), true
		}
		return loc.Add(North), true
	}
	return Location{}, false
}

// randomDestination scans the four neighbours from a random offset and
// returns the first free one, or the current cell when all are taken. The
// draw happens once per tick.
func (c *Context) randomDestination() Location {
	if c.randomDest != nil {
		return *c.randomDest
	}
	dest := c.occ.loc
	offset := int(c.grid.rng.Float64() * float64(numDirections))
	for i := 0; i < int(numDirections); i++ {
		l := c.occ.loc.Add(Direction((i + offset) % int(numDirections)))
		if !l.Occupied() {
			dest = l
			break
		}
	}
	c.randomDest = &dest
	return dest
}

// Eligible reports whether actuator n can act with value. Moves need a free
// destination; a clamped move lands on the agent's own cell and is never
// eligible.
func (c *Context) Eligible(n neural.Neuron, value float64) bool {
	if n.Role() != neural.RoleActuator {
		return false
	}
	if n.Kind == neural.KindNull {
		return true
	}
	dest, ok := c.destination(n, value)
	if !ok {
		return false
	}
	return !dest.Occupied()
}

// Act performs actuator n.
func (c *Context) Act(n neural.Neuron, value float64) error {
	if n.Kind == neural.KindNull {
		return nil
	}
	dest, ok := c.destination(n, value)
	if !ok {
		return fmt.Errorf("agent %d: %s cannot act: %w", c.occ.id, n, neural.ErrInvalidConnection)
	}
	return c.grid.Move(c.occ.loc, dest)
}
