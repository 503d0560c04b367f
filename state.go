package exhibit

// State is a read-only view of the navigation for UI and API layers.
type State struct {
	Scene    string        `json:"scene"`
	Current  string        `json:"current,omitempty"`
	Previous string        `json:"previous,omitempty"`
	History  []string      `json:"history"`
	Regions  []RegionState `json:"regions"`
}

// RegionState describes one region.
type RegionState struct {
	Name      string      `json:"name"`
	Active    bool        `json:"active"`
	Completed bool        `json:"completed"`
	Nodes     []NodeState `json:"nodes"`
}

// NodeState describes one node.
type NodeState struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Active    bool   `json:"active"`
	Completed bool   `json:"completed"`
}

// State captures the current navigation state.
func (e *Exhibit) State() State {
	s := State{Scene: e.scene.Name, History: []string{}}
	if n := e.nav.CurrentNode(); n != nil {
		s.Current = n.Ref()
	}
	if n := e.nav.PreviousNode(); n != nil {
		s.Previous = n.Ref()
	}
	for _, n := range e.nav.History() {
		s.History = append(s.History, n.Ref())
	}

	for _, r := range e.nav.Regions() {
		rs := RegionState{Name: r.Name(), Active: r.IsActive(), Completed: r.IsCompleted(), Nodes: []NodeState{}}
		for _, n := range r.Nodes() {
			rs.Nodes = append(rs.Nodes, NodeState{
				ID:        n.ID(),
				Kind:      n.Kind().String(),
				Active:    n.IsActive(),
				Completed: n.IsCompleted(),
			})
		}
		s.Regions = append(s.Regions, rs)
	}
	return s
}
