package habitat

import (
	"fmt"
	"strings"
)

// Placement is a read-only view of one agent's position.
type Placement struct {
	ID       AgentID
	Location Location
	Previous Location
	Facing   Direction
}

func (g *Grid) placement(o *occupant) Placement {
	return Placement{ID: o.id, Location: o.loc, Previous: o.prev, Facing: g.peekFacing(o)}
}

// Placement returns the current placement of id. It never advances the
// facing round-robin.
func (g *Grid) Placement(id AgentID) (Placement, bool) {
	o, ok := g.index[id]
	if !ok {
		return Placement{}, false
	}
	return g.placement(o), true
}

// Placements returns every agent's placement in row-major order.
func (g *Grid) Placements() []Placement {
	out := make([]Placement, 0, len(g.index))
	for _, o := range g.cells {
		if o != nil {
			out = append(out, g.placement(o))
		}
	}
	return out
}

// Zone is a survival predicate over a location.
type Zone func(Location) bool

// Zones by name.
var zones = map[string]Zone{
	"all":    func(Location) bool { return true },
	"east":   func(l Location) bool { return l.X >= l.grid.width/2 },
	"west":   func(l Location) bool { return l.X < l.grid.width/2 },
	"north":  func(l Location) bool { return l.Y < l.grid.height/2 },
	"south":  func(l Location) bool { return l.Y >= l.grid.height/2 },
	"center": func(l Location) bool { return l.Border() < 0.5 },
	"border": func(l Location) bool { return l.Border() >= 0.5 },
}

// ParseZone looks up a zone by name.
func ParseZone(name string) (Zone, error) {
	z, ok := zones[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown zone %q", name)
	}
	return z, nil
}

// ZoneNames lists the known zone names.
func ZoneNames() []string {
	return []string{"all", "east", "west", "north", "south", "center", "border"}
}
