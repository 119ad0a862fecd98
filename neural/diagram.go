package neural

// Diagram is a structural dump of a graph, enough for an external renderer
// to draw it. It carries no styling.
type Diagram struct {
	Nodes []DiagramNode `json:"nodes"`
	Edges []DiagramEdge `json:"edges"`
}

// DiagramNode describes one registered neuron.
type DiagramNode struct {
	ID      ID     `json:"id"`
	Label   string `json:"label"`
	Tooltip string `json:"tooltip,omitempty"`
	Role    string `json:"role"`
}

// DiagramEdge describes one connection. Stats holds the destination's hit
// counters once the graph has been run.
type DiagramEdge struct {
	Source string    `json:"source"`
	Dest   string    `json:"dest"`
	Weight float64   `json:"weight"`
	Stats  *HitStats `json:"stats,omitempty"`
}

// Dump returns the diagram of the graph.
func (g *Graph) Dump() Diagram {
	var d Diagram
	node := func(n Neuron) {
		d.Nodes = append(d.Nodes, DiagramNode{
			ID:      n.ID,
			Label:   n.Label(),
			Tooltip: n.Tooltip(),
			Role:    n.Role().String(),
		})
	}
	for _, n := range g.sensors {
		node(n)
	}
	for _, n := range g.hidden {
		node(n)
	}
	for _, n := range g.actuators {
		node(n)
	}

	for _, c := range g.Connections() {
		e := DiagramEdge{
			Source: c.Source.Label(),
			Dest:   c.Dest.Label(),
			Weight: c.Weight,
		}
		if g.ran {
			st := g.stats[c.Dest.ID]
			e.Stats = &st
		}
		d.Edges = append(d.Edges, e)
	}
	return d
}
