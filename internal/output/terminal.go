// internal/output/terminal.go
package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/signalnine/vintel/internal/intel"
	"github.com/signalnine/vintel/internal/protocol"
	"github.com/signalnine/vintel/internal/richtext"
	"github.com/signalnine/vintel/internal/starmap"
)

const clockFormat = "15:04:05"

// Styles for the parts of an intel line
type Styles struct {
	Time    lipgloss.Style
	Room    lipgloss.Style
	User    lipgloss.Style
	Ship    lipgloss.Style
	System  lipgloss.Style
	Link    lipgloss.Style
	Muted   lipgloss.Style
	Nearby  lipgloss.Style
	Badges  map[protocol.Status]lipgloss.Style
	Default lipgloss.Style
}

// NewStyles builds the styles for a renderer
func NewStyles(r *lipgloss.Renderer) Styles {
	alarm := starmap.Tier(0).Color()
	badge := func(bg, fg string) lipgloss.Style {
		return r.NewStyle().
			Background(lipgloss.Color(bg)).
			Foreground(lipgloss.Color(fg)).
			Bold(true).
			Padding(0, 1)
	}
	return Styles{
		Time:   r.NewStyle().Foreground(lipgloss.Color("#7F849C")),
		Room:   r.NewStyle().Foreground(lipgloss.Color("#89B4FA")),
		User:   r.NewStyle().Bold(true),
		Ship:   r.NewStyle().Foreground(lipgloss.Color("#F5C2E7")).Bold(true),
		System: r.NewStyle().Foreground(lipgloss.Color("#F9E2AF")).Underline(true),
		Link:   r.NewStyle().Foreground(lipgloss.Color("#74C7EC")).Underline(true),
		Muted:  r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Nearby: badge(alarm.Background, alarm.Text),
		Badges: map[protocol.Status]lipgloss.Style{
			protocol.StatusAlarm:     badge(alarm.Background, alarm.Text),
			protocol.StatusClear:     badge(starmap.ClearColor, "#000000"),
			protocol.StatusRequest:   badge("#89B4FA", "#000000"),
			protocol.StatusNotChange: badge("#CBA6F7", "#000000"),
		},
		Default: badge("#45475A", "#FFFFFF"),
	}
}

// Terminal writes intel to a terminal. It is safe for concurrent use.
type Terminal struct {
	mu     sync.Mutex
	w      io.Writer
	styles Styles
	bell   bool
	now    func() time.Time
}

// NewTerminal returns a notifier writing to w. With bell set, sounds ring
// the terminal bell.
func NewTerminal(w io.Writer, bell bool) *Terminal {
	return &Terminal{
		w:      w,
		styles: NewStyles(lipgloss.NewRenderer(w)),
		bell:   bell,
		now:    time.Now,
	}
}

var _ intel.Notifier = (*Terminal)(nil)

// Intel prints a message
func (t *Terminal) Intel(msg *protocol.Message) {
	line := fmt.Sprintf("%s %s %s %s: %s %s",
		t.styles.Time.Render(msg.Timestamp.Format(clockFormat)),
		t.badge(msg.Status),
		t.styles.Room.Render(msg.Room),
		t.styles.User.Render(msg.User),
		t.Text(msg),
		t.styles.Muted.Render("("+humanize.RelTime(msg.Timestamp, t.now(), "ago", "from now")+")"),
	)
	t.println(line)
}

// Nearby prints a warning for located characters
func (t *Terminal) Nearby(n intel.Nearby) {
	jumps := "in system"
	if n.Distance > 0 {
		jumps = fmt.Sprintf("%s jump%s away", humanize.Comma(int64(n.Distance)), plural(n.Distance))
	}
	line := fmt.Sprintf("%s %s: %s %s (%s: %s)",
		t.styles.Nearby.Render("NEAR"),
		t.styles.User.Render(strings.Join(n.Characters, ", ")),
		t.styles.System.Render(n.System),
		jumps,
		n.Message.User,
		n.Message.PlainText,
	)
	t.println(line)
}

// Sound announces a sound, ringing the bell if enabled
func (t *Terminal) Sound(name string) {
	line := t.styles.Muted.Render("sound: " + name)
	if t.bell {
		line = "\a" + line
	}
	t.println(line)
}

// Text renders the annotated text of msg
func (t *Terminal) Text(msg *protocol.Message) string {
	if msg.Rich == nil {
		return msg.PlainText
	}
	return msg.Rich.Render(func(n richtext.Node) string {
		switch n.Kind {
		case richtext.KindShip:
			return t.styles.Ship.Render(n.Text)
		case richtext.KindSystem:
			return t.styles.System.Render(n.Text)
		case richtext.KindLink:
			return t.styles.Link.Render(n.Text)
		}
		return n.Text
	})
}

func (t *Terminal) badge(status protocol.Status) string {
	style, ok := t.styles.Badges[status]
	if !ok {
		style = t.styles.Default
	}
	return style.Render(strings.ToUpper(string(status)))
}

func (t *Terminal) println(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, line)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
