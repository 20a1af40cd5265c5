// internal/protocol/types.go
package protocol

import (
	"time"

	"github.com/signalnine/vintel/internal/richtext"
)

// Status tags a message and the persisted state of a system
type Status string

const (
	StatusAlarm      Status = "alarm"
	StatusClear      Status = "clear"
	StatusRequest    Status = "request"
	StatusWasAlarmed Status = "was_alarmed"
	StatusUnknown    Status = "unknown"
	StatusIgnore     Status = "ignore"
	StatusKOSRequest Status = "kos_request"
	StatusSoundTest  Status = "sound_test"
	StatusLocation   Status = "location"
	StatusNotChange  Status = "not_change"
)

// Persisted reports whether a system keeps this status after it is set.
// REQUEST and NOT_CHANGE only touch presentation.
func (s Status) Persisted() bool {
	switch s {
	case StatusAlarm, StatusClear, StatusWasAlarmed, StatusUnknown:
		return true
	}
	return false
}

// Message is one parsed chat line
type Message struct {
	ID        string         `json:"id"`
	Room      string         `json:"room"`
	PlainText string         `json:"plain_text"`
	Text      string         `json:"text"` // annotated markup
	Rich      *richtext.Tree `json:"-"`
	Timestamp time.Time      `json:"timestamp"`
	User      string         `json:"user"`
	Systems   []string       `json:"systems,omitempty"`
	Status    Status         `json:"status"`
	Payload   string         `json:"payload,omitempty"` // KOS names, sound name or location
}

// MessageKey identifies a message for deduplication
type MessageKey struct {
	Room      string
	Text      string
	Timestamp int64
	User      string
}

// Key returns the identity tuple (room, plain text, timestamp, user)
func (m *Message) Key() MessageKey {
	return MessageKey{
		Room:      m.Room,
		Text:      m.PlainText,
		Timestamp: m.Timestamp.Unix(),
		User:      m.User,
	}
}

// AddSystem records a mentioned system once, keeping first-seen order
func (m *Message) AddSystem(name string) {
	if m.HasSystem(name) {
		return
	}
	m.Systems = append(m.Systems, name)
}

// HasSystem reports whether name is among the mentioned systems
func (m *Message) HasSystem(name string) bool {
	for _, s := range m.Systems {
		if s == name {
			return true
		}
	}
	return false
}

// SystemState is the read-only view of one system served over HTTP
type SystemState struct {
	Name           string    `json:"name"`
	ID             int64     `json:"id"`
	Status         Status    `json:"status"`
	Signal         Status    `json:"signal,omitempty"`
	Tier           int       `json:"tier"`
	Fade           int       `json:"fade"`
	Timer          string    `json:"timer,omitempty"`
	LastTransition time.Time `json:"last_transition,omitempty"`
	Characters     []string  `json:"characters,omitempty"`
	Messages       int       `json:"messages"`
}

// Snapshot is what the status API returns
type Snapshot struct {
	Generated    time.Time     `json:"generated"`
	DowntimeIn   string        `json:"downtime_in"`
	Systems      []SystemState `json:"systems"`
	KnownPlayers []string      `json:"known_players,omitempty"`
}
