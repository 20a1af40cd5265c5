// internal/chatparser/local.go
package chatparser

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/signalnine/vintel/internal/protocol"
	"github.com/signalnine/vintel/internal/richtext"
)

// UnknownSystem is reported when a system message names no system
const UnknownSystem = "?"

var systemUsers = map[string]bool{
	"EVE-System": true,
	"EVE System": true,
}

// IsSystemUser reports whether user is the client's own system speaker
func IsSystemUser(user string) bool {
	return systemUsers[user]
}

// Source is one chat log file being followed
type Source struct {
	Path  string
	Room  string
	Lines int // lines already consumed

	// set from the header of local room logs
	Charname     string
	SessionStart time.Time
}

// HasHeader reports whether the local room header was found
func (s *Source) HasHeader() bool {
	return s.Charname != "" && !s.SessionStart.IsZero()
}

// ScanHeader fills Charname and SessionStart from the log header.
// It stops once both are known.
func ScanHeader(src *Source, lines []string) {
	for _, line := range lines {
		if src.HasHeader() {
			return
		}
		switch {
		case strings.Contains(line, "Listener:"):
			src.Charname = strings.TrimSpace(afterColon(line))
		case strings.Contains(line, "Session started:"):
			if ts, err := time.Parse(TimeFormat, strings.TrimSpace(afterColon(line))); err == nil {
				src.SessionStart = ts
			}
		}
	}
}

func afterColon(s string) string {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return ""
}

// Location is where a character was last seen
type Location struct {
	System    string
	Timestamp time.Time
}

// epoch is the timestamp of a character never located
var epoch = time.Unix(0, 0).UTC()

// ParseLocal handles a line of a local room log. Only system messages
// carry locations; an update older than or equal to the last one for the
// character is dropped.
func (p *Parser) ParseLocal(src *Source, line string) *protocol.Message {
	ts, user, text, ok := splitLine(line)
	if !ok || !IsSystemUser(user) || src.Charname == "" {
		return nil
	}

	system := UnknownSystem
	if i := strings.IndexByte(text, ':'); i >= 0 {
		system = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(text[i+1:], "*", "")))
	}

	last, ok := p.locations[src.Charname]
	if !ok {
		last = Location{Timestamp: epoch}
	}
	if !ts.After(last.Timestamp) {
		return nil
	}
	p.locations[src.Charname] = Location{System: system, Timestamp: ts}

	return &protocol.Message{
		ID:        ulid.Make().String(),
		Room:      src.Room,
		PlainText: text,
		Text:      richtext.New(text).Markup(),
		Timestamp: ts,
		User:      src.Charname,
		Systems:   []string{system},
		Status:    protocol.StatusLocation,
	}
}

// Location returns the last known location of a character
func (p *Parser) Location(charname string) (Location, bool) {
	loc, ok := p.locations[charname]
	return loc, ok
}
