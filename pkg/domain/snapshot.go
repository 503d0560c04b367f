package domain

import "time"

// Snapshot captures the navigation state of a tour.
type Snapshot struct {
	// TourID identifies the visitor session.
	TourID string `json:"tour_id"`

	// CurrentNodeID is the qualified reference ("region/node") of the current node, if any.
	CurrentNodeID string `json:"current_node_id,omitempty"`

	// History holds previously current nodes, oldest first. The last entry is the top of the stack.
	History []string `json:"history"`

	// ActiveRegions lists regions that were active when the snapshot was taken.
	ActiveRegions []string `json:"active_regions,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`

	// Sealed carries the encrypted snapshot when the store seals them. The other navigation
	// fields are empty in that case.
	Sealed string `json:"sealed,omitempty"`
}

// Previous returns the top of the history stack or "" when empty.
func (s *Snapshot) Previous() string {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[len(s.History)-1]
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	next := *s
	next.History = append([]string(nil), s.History...)
	next.ActiveRegions = append([]string(nil), s.ActiveRegions...)
	return &next
}
