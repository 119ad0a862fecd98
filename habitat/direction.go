package habitat

import "math"

// Direction is one of the four grid headings. Y grows downward, so North
// is toward row 0.
type Direction uint8

const (
	North Direction = iota
	East
	South
	West
	numDirections
)

var directionTable = [numDirections]struct {
	name        string
	dx, dy      int
	left, right Direction
	back        Direction
	rotation    float64
}{
	North: {"North", 0, -1, West, East, South, math.Pi / 2},
	East:  {"East", 1, 0, North, South, West, 0},
	South: {"South", 0, 1, East, West, North, 3 * math.Pi / 2},
	West:  {"West", -1, 0, South, North, East, math.Pi},
}

// Directions returns the four headings in enumeration order.
func Directions() []Direction {
	return []Direction{North, East, South, West}
}

// Left returns the heading 90 degrees counter-clockwise.
func (d Direction) Left() Direction { return directionTable[d].left }

// Right returns the heading 90 degrees clockwise.
func (d Direction) Right() Direction { return directionTable[d].right }

// Back returns the opposite heading.
func (d Direction) Back() Direction { return directionTable[d].back }

// Delta returns the unit step along each axis.
func (d Direction) Delta() (dx, dy int) {
	return directionTable[d].dx, directionTable[d].dy
}

// Rotation is the display angle in radians, East = 0, counter-clockwise.
func (d Direction) Rotation() float64 { return directionTable[d].rotation }

func (d Direction) String() string {
	if d >= numDirections {
		return "Direction(?)"
	}
	return directionTable[d].name
}

// directionOf maps a non-zero step to a heading. Horizontal movement wins
// when both axes changed.
func directionOf(dx, dy int) Direction {
	switch {
	case dx > 0:
		return East
	case dx < 0:
		return West
	case dy > 0:
		return South
	default:
		return North
	}
}
