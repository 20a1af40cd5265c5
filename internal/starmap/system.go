// internal/starmap/system.go
package starmap

import (
	"time"

	"github.com/signalnine/vintel/internal/protocol"
)

// System is one node of the star map
type System struct {
	Name string
	ID   int64

	// Status is the persisted alarm state; Signal is the last transient
	// REQUEST/NOT_CHANGE seen, kept for presentation only.
	Status         protocol.Status
	Signal         protocol.Status
	LastTransition time.Time
	Messages       []*protocol.Message

	neighbors  map[*System]struct{}
	characters []string
}

// NewSystem returns a system in the UNKNOWN state
func NewSystem(name string, id int64) *System {
	return &System{
		Name:      name,
		ID:        id,
		Status:    protocol.StatusUnknown,
		neighbors: make(map[*System]struct{}),
	}
}

// AddNeighbor links s and other in both directions
func (s *System) AddNeighbor(other *System) {
	if other == s {
		return
	}
	s.neighbors[other] = struct{}{}
	other.neighbors[s] = struct{}{}
}

// RemoveNeighbor unlinks s and other in both directions
func (s *System) RemoveNeighbor(other *System) {
	delete(s.neighbors, other)
	delete(other.neighbors, s)
}

// IsNeighbor reports whether other is directly linked to s
func (s *System) IsNeighbor(other *System) bool {
	_, ok := s.neighbors[other]
	return ok
}

// Neighbors returns every system within maxDistance jumps together with its
// distance. s itself is included at distance 0. Each system is assigned a
// distance once, on the first level that reaches it.
func (s *System) Neighbors(maxDistance int) map[*System]int {
	found := map[*System]int{s: 0}
	frontier := []*System{s}
	for dist := 1; dist <= maxDistance && len(frontier) > 0; dist++ {
		var next []*System
		for _, sys := range frontier {
			for n := range sys.neighbors {
				if _, seen := found[n]; seen {
					continue
				}
				found[n] = dist
				next = append(next, n)
			}
		}
		frontier = next
	}
	return found
}

// SetStatus applies a status at time now. ALARM and CLEAR re-arm the
// transition timer even when the state does not change.
func (s *System) SetStatus(status protocol.Status, now time.Time) {
	switch status {
	case protocol.StatusAlarm, protocol.StatusClear:
		s.LastTransition = now
	}
	if !status.Persisted() {
		s.Signal = status
		return
	}
	s.Status = status
	s.Signal = ""
}

// AddMessage appends a chat message mentioning s
func (s *System) AddMessage(m *protocol.Message) {
	s.Messages = append(s.Messages, m)
}

// AddCharacter marks a character as located in s
func (s *System) AddCharacter(name string) {
	for _, c := range s.characters {
		if c == name {
			return
		}
	}
	s.characters = append(s.characters, name)
}

// RemoveCharacter drops the located marker for name
func (s *System) RemoveCharacter(name string) {
	for i, c := range s.characters {
		if c == name {
			s.characters = append(s.characters[:i], s.characters[i+1:]...)
			return
		}
	}
}

// Characters returns the characters currently located in s
func (s *System) Characters() []string {
	out := make([]string, len(s.characters))
	copy(out, s.characters)
	return out
}

// HasCharacter reports whether name is located in s
func (s *System) HasCharacter(name string) bool {
	for _, c := range s.characters {
		if c == name {
			return true
		}
	}
	return false
}
