// Package components defines ECS components attached to every agent.
package components

// Vitals is the lineage and activity record of one agent.
type Vitals struct {
	Agent      uint64
	Born       int    // epoch the agent was created in
	Generation int    // 0 for seeded agents
	Parent     uint64 // 0 for seeded agents
	Children   int

	// Lifetime action counters
	Applied int // actions that took effect
	Dropped int // picked but invalidated before applying
	Idle    int // ticks that resolved to no action
}

// Tint is the agent's cached display colour. Set is false until the colour
// is first requested.
type Tint struct {
	R, G, B uint8
	Set     bool
}

// Hex formats the colour as #rrggbb.
func (t Tint) Hex() string {
	const digits = "0123456789abcdef"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, c := range [3]uint8{t.R, t.G, t.B} {
		b[1+2*i] = digits[c>>4]
		b[2+2*i] = digits[c&0x0f]
	}
	return string(b)
}

// Age returns how many epochs the agent has lived through by epoch.
func (v Vitals) Age(epoch int) int {
	if epoch < v.Born {
		return 0
	}
	return epoch - v.Born
}
