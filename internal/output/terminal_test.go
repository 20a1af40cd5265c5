// internal/output/terminal_test.go
package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/vintel/internal/chatparser"
	"github.com/signalnine/vintel/internal/intel"
	"github.com/signalnine/vintel/internal/protocol"
	"github.com/signalnine/vintel/internal/starmap"
)

func newTestTerminal(buf *bytes.Buffer, now time.Time) *Terminal {
	term := NewTerminal(buf, true)
	term.now = func() time.Time { return now }
	return term
}

func TestTerminalIntel(t *testing.T) {
	m := starmap.New("test")
	m.Add("JITA", 1)
	p := chatparser.New(m, 0)
	msg := p.Parse("[ 2015.01.01 20:00:00 ] Scout > Drake in Jita", "delve.imperium")
	require.NotNil(t, msg)

	var buf bytes.Buffer
	term := newTestTerminal(&buf, msg.Timestamp.Add(3*time.Minute))
	term.Intel(msg)

	out := buf.String()
	assert.Contains(t, out, "20:00:00")
	assert.Contains(t, out, "ALARM")
	assert.Contains(t, out, "delve.imperium")
	assert.Contains(t, out, "Scout:")
	assert.Contains(t, out, "Drake in Jita")
	assert.Contains(t, out, "3 minutes ago")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTerminalPlainMessage(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2015, 1, 1, 20, 0, 0, 0, time.UTC)
	term := newTestTerminal(&buf, now)

	term.Intel(&protocol.Message{
		Room:      intel.KOSRoom,
		User:      intel.KOSUser,
		PlainText: "KOS: Foo",
		Timestamp: now,
		Status:    protocol.StatusNotChange,
	})
	out := buf.String()
	assert.Contains(t, out, "NOT_CHANGE")
	assert.Contains(t, out, "KOS: Foo")
	assert.Contains(t, out, "(now)")
}

func TestTerminalNearby(t *testing.T) {
	var buf bytes.Buffer
	term := newTestTerminal(&buf, time.Now())

	term.Nearby(intel.Nearby{
		Message:    &protocol.Message{User: "Scout", PlainText: "Alpha red"},
		System:     "ALPHA",
		Characters: []string{"Me", "Alt"},
		Distance:   2,
	})
	term.Nearby(intel.Nearby{
		Message:    &protocol.Message{User: "Scout", PlainText: "Alpha red"},
		System:     "ALPHA",
		Characters: []string{"Me"},
		Distance:   1,
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Me, Alt")
	assert.Contains(t, lines[0], "ALPHA 2 jumps away")
	assert.Contains(t, lines[0], "(Scout: Alpha red)")
	assert.Contains(t, lines[1], "1 jump away")
}

func TestTerminalSound(t *testing.T) {
	var buf bytes.Buffer
	term := newTestTerminal(&buf, time.Now())
	term.Sound("beep")
	assert.True(t, strings.HasPrefix(buf.String(), "\a"))
	assert.Contains(t, buf.String(), "sound: beep")

	buf.Reset()
	quiet := NewTerminal(&buf, false)
	quiet.Sound("alarm")
	assert.False(t, strings.HasPrefix(buf.String(), "\a"))
}
