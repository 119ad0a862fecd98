// Package neural provides the genome-encoded decision networks that drive agents.
package neural

import "fmt"

// Role is the part a neuron plays in a decision network.
type Role uint8

const (
	RoleSensor Role = iota
	RoleActuator
	RoleHidden
)

func (r Role) String() string {
	switch r {
	case RoleSensor:
		return "sensor"
	case RoleActuator:
		return "actuator"
	case RoleHidden:
		return "hidden"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

// Kind tags each catalog neuron variant. The set is closed: environments
// dispatch sensing and acting with a switch over these values.
type Kind uint8

const (
	// Standard sensors, available in every habitat.
	KindAge Kind = iota
	KindRandom
	KindOscillator
	KindConstant

	// Grid sensors.
	KindXPosition
	KindYPosition
	KindBorder
	KindPastMoveX
	KindPastMoveY
	KindBlockLeft
	KindBlockRight
	KindBlockLeftAndRight
	KindBlockBack
	KindBlockForward

	// Actuators.
	KindNull
	KindMoveForward
	KindMoveLeftRight
	KindMoveBack
	KindMoveLeftOrRight
	KindMoveRandom
	KindMoveEastWest
	KindMoveNorthSouth

	// KindHidden is the parametrized internal unit; Rank tells instances apart.
	KindHidden

	// KindNoOp is the sentinel returned when no actuator is eligible.
	KindNoOp

	numKinds
)

// kindInfo is the static description of a kind.
type kindInfo struct {
	label   string
	tooltip string
	weight  float64
	role    Role
}

var kinds = [numKinds]kindInfo{
	KindAge:        {label: "Age", weight: 1, role: RoleSensor},
	KindRandom:     {label: "RND", weight: 1, role: RoleSensor},
	KindOscillator: {label: "Osc", weight: 1, role: RoleSensor},
	KindConstant:   {label: "Const", weight: 1, role: RoleSensor},

	KindXPosition:         {label: "Xin", tooltip: "-1=left, +1=right, 0=center", weight: 1, role: RoleSensor},
	KindYPosition:         {label: "Yin", tooltip: "-1=top, +1=bottom, 0=center", weight: 1, role: RoleSensor},
	KindBorder:            {label: "Border", tooltip: "0=center, 1=on some border/edge", weight: 1, role: RoleSensor},
	KindPastMoveX:         {label: "PastMoveX", tooltip: "1 or -1 if last movement changed X", weight: 1, role: RoleSensor},
	KindPastMoveY:         {label: "PastMoveY", tooltip: "1 or -1 if last movement changed Y", weight: 1, role: RoleSensor},
	KindBlockLeft:         {label: "BlockL", tooltip: "1 if Left blocked, else 0", weight: 1, role: RoleSensor},
	KindBlockRight:        {label: "BlockR", tooltip: "1 if Right blocked, else 0", weight: 1, role: RoleSensor},
	KindBlockLeftAndRight: {label: "BlockLoR", tooltip: "1 if Right AND Left blocked, else 0", weight: 1, role: RoleSensor},
	KindBlockBack:         {label: "BlockB", tooltip: "1 if Back blocked, else 0", weight: 1, role: RoleSensor},
	KindBlockForward:      {label: "BlockF", tooltip: "1 if Forward blocked, else 0", weight: 1, role: RoleSensor},

	KindNull:            {label: "null", weight: 0.1, role: RoleActuator},
	KindMoveForward:     {label: "MoveF", tooltip: "Move Forward (binary)", weight: 1, role: RoleActuator},
	KindMoveLeftRight:   {label: "MoveLR", tooltip: "Move Right if value>0, else Left", weight: 1, role: RoleActuator},
	KindMoveBack:        {label: "MoveB", tooltip: "Move Back (binary)", weight: 1, role: RoleActuator},
	KindMoveLeftOrRight: {label: "MoveLoR", tooltip: "Move Left or Right, whichever is unoccupied; if value>0 prefer Right", weight: 1, role: RoleActuator},
	KindMoveRandom:      {label: "MoveRND", tooltip: "Move randomly, irrespective of value", weight: 1, role: RoleActuator},
	KindMoveEastWest:    {label: "MoveEW", tooltip: "Move West if value>0, else East", weight: 1, role: RoleActuator},
	KindMoveNorthSouth:  {label: "MoveNS", tooltip: "Move South if value>0, else North", weight: 1, role: RoleActuator},

	KindHidden: {weight: 1, role: RoleHidden},
	KindNoOp:   {label: "none", weight: 0, role: RoleActuator},
}

// Label returns the display label of the kind. Hidden units are labelled per
// instance, see Neuron.Label.
func (k Kind) Label() string {
	if k >= numKinds {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	if k == KindHidden {
		return "N"
	}
	return kinds[k].label
}

// String implements fmt.Stringer.
func (k Kind) String() string { return k.Label() }

// Role returns the role every neuron of this kind plays.
func (k Kind) Role() Role { return kinds[k].role }

// SensorKinds lists the sensor kinds in catalog order.
func SensorKinds() []Kind {
	return []Kind{
		KindAge, KindRandom, KindOscillator, KindConstant,
		KindXPosition, KindYPosition, KindBorder,
		KindPastMoveX, KindPastMoveY,
		KindBlockLeft, KindBlockRight, KindBlockLeftAndRight, KindBlockBack, KindBlockForward,
	}
}

// ActuatorKinds lists the actuator kinds in catalog order.
func ActuatorKinds() []Kind {
	return []Kind{
		KindNull,
		KindMoveForward, KindMoveLeftRight, KindMoveBack, KindMoveLeftOrRight,
		KindMoveRandom, KindMoveEastWest, KindMoveNorthSouth,
	}
}

// ID is the stable index of a neuron within its catalog.
type ID uint16

// NoOpID identifies the no-op sentinel. It never indexes a catalog.
const NoOpID ID = ^ID(0)

// Neuron is one catalog instance. Neurons are values; two neurons are the
// same neuron when their IDs match within one catalog.
type Neuron struct {
	ID   ID
	Kind Kind
	Rank int // hidden units only
}

// NoOp is the sentinel action picked when no actuator can act.
var NoOp = Neuron{ID: NoOpID, Kind: KindNoOp}

// Role returns the neuron's role.
func (n Neuron) Role() Role { return n.Kind.Role() }

// Label returns the display label.
func (n Neuron) Label() string {
	if n.Kind == KindHidden {
		return fmt.Sprintf("N%d", n.Rank+1)
	}
	return n.Kind.Label()
}

// Tooltip returns the optional long description.
func (n Neuron) Tooltip() string {
	if n.Kind >= numKinds {
		return ""
	}
	return kinds[n.Kind].tooltip
}

// Weight is the relative weight used when the genome builder picks a
// destination neuron.
func (n Neuron) Weight() float64 {
	if n.Kind >= numKinds {
		return 0
	}
	return kinds[n.Kind].weight
}

// IsNoOp reports whether n is the no-op sentinel.
func (n Neuron) IsNoOp() bool { return n.Kind == KindNoOp }

func (n Neuron) String() string {
	if n.Kind == KindHidden {
		return fmt.Sprintf("%s(rank=%d)", n.Label(), n.Rank)
	}
	return n.Label()
}

// Catalog is the fixed set of neurons available to genomes of one run.
type Catalog struct {
	neurons   []Neuron
	sensors   []Neuron
	actuators []Neuron
	hidden    []Neuron
}

// NewCatalog builds the catalog with the given number of hidden units.
// IDs are assigned sensors first, then actuators, then hidden units by rank.
func NewCatalog(hidden int) *Catalog {
	if hidden < 0 {
		hidden = 0
	}
	c := &Catalog{}
	add := func(k Kind, rank int) Neuron {
		n := Neuron{ID: ID(len(c.neurons)), Kind: k, Rank: rank}
		c.neurons = append(c.neurons, n)
		return n
	}
	for _, k := range SensorKinds() {
		c.sensors = append(c.sensors, add(k, 0))
	}
	for _, k := range ActuatorKinds() {
		c.actuators = append(c.actuators, add(k, 0))
	}
	for i := 0; i < hidden; i++ {
		c.hidden = append(c.hidden, add(KindHidden, i))
	}
	return c
}

// Len returns the number of neurons in the catalog.
func (c *Catalog) Len() int { return len(c.neurons) }

// Neuron returns the neuron with the given ID.
func (c *Catalog) Neuron(id ID) (Neuron, bool) {
	if int(id) >= len(c.neurons) {
		return Neuron{}, false
	}
	return c.neurons[id], true
}

// Sensors returns the sensor neurons. The slice must not be modified.
func (c *Catalog) Sensors() []Neuron { return c.sensors }

// Actuators returns the actuator neurons. The slice must not be modified.
func (c *Catalog) Actuators() []Neuron { return c.actuators }

// Hidden returns the hidden units in ascending rank. The slice must not be modified.
func (c *Catalog) Hidden() []Neuron { return c.hidden }

// All returns every neuron in ID order. The slice must not be modified.
func (c *Catalog) All() []Neuron { return c.neurons }

// contains reports whether n belongs to this catalog.
func (c *Catalog) contains(n Neuron) bool {
	return int(n.ID) < len(c.neurons) && c.neurons[n.ID] == n
}
