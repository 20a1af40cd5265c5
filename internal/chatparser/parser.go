// internal/chatparser/parser.go
package chatparser

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/signalnine/vintel/internal/annotate"
	"github.com/signalnine/vintel/internal/protocol"
	"github.com/signalnine/vintel/internal/richtext"
	"github.com/signalnine/vintel/internal/starmap"
)

// TimeFormat is the timestamp layout of chat lines and log headers
const TimeFormat = "2006.01.02 15:04:05"

// lookbackDepth is how many earlier same-room messages a CLEAR without a
// system may borrow systems from
const lookbackDepth = 2

// MinHistory is the smallest per-room history that keeps the CLEAR
// lookback working
const MinHistory = lookbackDepth

const (
	kosPrefix = "XXX "
	soundTest = "VINTELSOUNDTEST"
)

// Parser turns chat lines into messages. It is not safe for concurrent
// use; the ingestion loop is its only caller.
type Parser struct {
	starmap      *starmap.Map
	ships        *annotate.Ships
	historyLimit int

	history   map[string][]*protocol.Message
	known     map[protocol.MessageKey]struct{}
	locations map[string]Location
}

// New returns a parser resolving systems against m. historyLimit caps the
// number of messages kept per room; 0 keeps everything.
func New(m *starmap.Map, historyLimit int) *Parser {
	if historyLimit > 0 && historyLimit < MinHistory {
		historyLimit = MinHistory
	}
	return &Parser{
		starmap:      m,
		ships:        annotate.NewShips(annotate.ShipNames),
		historyLimit: historyLimit,
		history:      make(map[string][]*protocol.Message),
		known:        make(map[protocol.MessageKey]struct{}),
		locations:    make(map[string]Location),
	}
}

// Parse turns one intel line into a message. Lines without a valid
// timestamp return nil. Duplicates come back tagged IGNORE.
func (p *Parser) Parse(line, room string) *protocol.Message {
	ts, user, text, ok := splitLine(line)
	if !ok {
		return nil
	}

	msg := &protocol.Message{
		ID:        ulid.Make().String(),
		Room:      room,
		PlainText: text,
		Timestamp: ts,
		User:      user,
		Rich:      richtext.New(text),
	}

	upper := strings.ToUpper(text)
	if strings.HasPrefix(upper, kosPrefix) {
		msg.Status = protocol.StatusKOSRequest
		msg.Payload = text[len(kosPrefix):]
		msg.Text = msg.Rich.Markup()
		return msg
	}
	if words := strings.Fields(text); len(words) > 0 && strings.ToUpper(words[0]) == soundTest {
		msg.Status = protocol.StatusSoundTest
		if len(words) > 1 {
			msg.Payload = strings.ToLower(words[1])
		}
		msg.Text = msg.Rich.Markup()
		return msg
	}

	if _, seen := p.known[msg.Key()]; seen {
		msg.Status = protocol.StatusIgnore
		msg.Text = msg.Rich.Markup()
		return msg
	}

	annotate.Repeat(p.ships, msg.Rich)
	annotate.Repeat(annotate.URLs{}, msg.Rich)
	systems := annotate.NewSystems(p.starmap)
	annotate.Repeat(systems, msg.Rich)
	for _, name := range systems.Found() {
		msg.AddSystem(name)
	}

	status, ok := annotate.Status(msg.Rich)
	if !ok {
		status = protocol.StatusAlarm
	}
	msg.Status = status

	if msg.Status == protocol.StatusClear && len(msg.Systems) == 0 {
		p.borrowSystems(msg)
	}

	msg.Text = msg.Rich.Markup()
	p.remember(msg)
	for _, name := range msg.Systems {
		if sys, ok := p.starmap.Get(name); ok {
			sys.AddMessage(msg)
		}
	}
	return msg
}

// borrowSystems attaches the systems of the latest REQUEST in the same
// room, looking at most lookbackDepth messages back. "clear" answering
// "jita stat?" thereby clears Jita.
func (p *Parser) borrowSystems(msg *protocol.Message) {
	hist := p.history[msg.Room]
	for i, checked := len(hist)-1, 0; i >= 0 && checked < lookbackDepth; i, checked = i-1, checked+1 {
		old := hist[i]
		if old.Status == protocol.StatusRequest && len(old.Systems) > 0 {
			for _, s := range old.Systems {
				msg.AddSystem(s)
			}
			return
		}
	}
}

func (p *Parser) remember(msg *protocol.Message) {
	hist := append(p.history[msg.Room], msg)
	if p.historyLimit > 0 && len(hist) > p.historyLimit {
		drop := len(hist) - p.historyLimit
		for _, old := range hist[:drop] {
			delete(p.known, old.Key())
		}
		hist = append([]*protocol.Message(nil), hist[drop:]...)
	}
	p.history[msg.Room] = hist
	p.known[msg.Key()] = struct{}{}
}

// History returns the remembered messages of room, oldest first
func (p *Parser) History(room string) []*protocol.Message {
	out := make([]*protocol.Message, len(p.history[room]))
	copy(out, p.history[room])
	return out
}

// splitLine cuts "[YYYY.MM.DD HH:MM:SS] user > text" into its parts
func splitLine(line string) (time.Time, string, string, bool) {
	open := strings.IndexByte(line, '[')
	end := strings.IndexByte(line, ']')
	if end < 0 || end < open {
		return time.Time{}, "", "", false
	}
	ts, err := time.Parse(TimeFormat, strings.TrimSpace(line[open+1:end]))
	if err != nil {
		return time.Time{}, "", "", false
	}
	gt := strings.IndexByte(line[end:], '>')
	if gt < 0 {
		return time.Time{}, "", "", false
	}
	gt += end
	user := strings.TrimSpace(line[end+1 : gt])
	text := strings.ToValidUTF8(strings.TrimSpace(line[gt+1:]), "\uFFFD")
	return ts, strings.ToValidUTF8(user, "\uFFFD"), text, true
}

// KOSNames splits the payload of an XXX request into character names.
// Names are separated by commas or double spaces.
func KOSNames(payload string) []string {
	var names []string
	for _, n := range strings.Split(strings.ReplaceAll(payload, "  ", ","), ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
