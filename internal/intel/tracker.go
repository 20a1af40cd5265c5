// internal/intel/tracker.go

// Package intel applies parsed messages to the star map: system status,
// located characters and the notifications that follow from them.
package intel

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/signalnine/vintel/internal/cache"
	"github.com/signalnine/vintel/internal/chatparser"
	"github.com/signalnine/vintel/internal/lookup"
	"github.com/signalnine/vintel/internal/protocol"
	"github.com/signalnine/vintel/internal/starmap"
)

// Sound names a notifier can play
const (
	SoundAlarm   = "alarm"
	SoundBeep    = "beep"
	SoundRequest = "request"
	SoundKOS     = "kos"
)

const (
	knownPlayersKey = "known_playernames"
	knownPlayersTTL = 365 * 24 * time.Hour

	// KOSUser and KOSRoom label the messages reporting KOS results
	KOSUser = "VINTEL"
	KOSRoom = "Vintel KOS-Check"

	defaultRecent = 200
)

// Nearby tells a located character that intel concerns a system close to
// them
type Nearby struct {
	Message    *protocol.Message
	System     string
	Characters []string
	Distance   int
}

// Notifier presents what the tracker decides is worth showing
type Notifier interface {
	Intel(msg *protocol.Message)
	Nearby(n Nearby)
	Sound(name string)
}

// KOSSubmitter queues KOS checks
type KOSSubmitter interface {
	Submit(names []string, requestType string, onlyKOS bool) string
}

// AvatarSubmitter queues avatar fetches
type AvatarSubmitter interface {
	Submit(charname string, clearCache bool) string
}

// Options configure a Tracker. Zero values disable the optional parts.
type Options struct {
	AlarmDistance int
	KOS           KOSSubmitter
	Avatars       AvatarSubmitter
	Cache         *cache.Cache
	RecentLimit   int
}

// Tracker consumes messages from the ingestion loop. Handle runs on the
// ingestion goroutine with the lock from Locker held; readers take the
// read lock through Snapshot and Messages.
type Tracker struct {
	mu       sync.RWMutex
	starmap  *starmap.Map
	notifier Notifier
	opts     Options

	known     map[string]bool
	locations map[string]string
	recent    []*protocol.Message

	now func() time.Time
}

// New returns a tracker for m
func New(m *starmap.Map, notifier Notifier, opts Options) *Tracker {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = defaultRecent
	}
	return &Tracker{
		starmap:   m,
		notifier:  notifier,
		opts:      opts,
		known:     make(map[string]bool),
		locations: make(map[string]string),
		now:       time.Now,
	}
}

// Locker returns the lock that serializes writers of the map
func (t *Tracker) Locker() sync.Locker {
	return &t.mu
}

// LoadKnownPlayers restores the names of characters seen in local rooms
func (t *Tracker) LoadKnownPlayers() error {
	if t.opts.Cache == nil {
		return nil
	}
	v, ok, err := t.opts.Cache.Get(knownPlayersKey, true)
	if err != nil || !ok {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, name := range strings.Split(v, ",") {
		if name != "" {
			t.known[name] = true
		}
	}
	return nil
}

// SaveKnownPlayers persists the known player names
func (t *Tracker) SaveKnownPlayers() error {
	if t.opts.Cache == nil {
		return nil
	}
	return t.opts.Cache.Put(knownPlayersKey, strings.Join(t.KnownPlayers(), ","), knownPlayersTTL)
}

// KnownPlayers returns the sorted names of our own characters
func (t *Tracker) KnownPlayers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.known))
	for n := range t.known {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Handle applies one message
func (t *Tracker) Handle(msg *protocol.Message) {
	switch {
	case msg.Status == protocol.StatusLocation:
		t.known[msg.User] = true
		system := chatparser.UnknownSystem
		if len(msg.Systems) > 0 {
			system = msg.Systems[0]
		}
		t.setLocation(msg.User, system)

	case msg.Status == protocol.StatusSoundTest:
		if t.known[msg.User] {
			name := msg.Payload
			if name == "" {
				name = SoundAlarm
			}
			t.notifier.Sound(name)
		}

	case msg.Status == protocol.StatusKOSRequest:
		names := chatparser.KOSNames(msg.Payload)
		if t.opts.KOS != nil && len(names) > 0 {
			t.opts.KOS.Submit(names, "xxx", false)
		}

	case msg.Status == protocol.StatusIgnore || chatparser.IsSystemUser(msg.User):
		return

	default:
		t.intel(msg)
	}
}

func (t *Tracker) intel(msg *protocol.Message) {
	t.remember(msg)
	t.notifier.Intel(msg)
	if t.opts.Avatars != nil {
		t.opts.Avatars.Submit(msg.User, false)
	}

	now := t.now()
	for _, name := range msg.Systems {
		sys, ok := t.starmap.Get(name)
		if !ok {
			continue
		}
		sys.SetStatus(msg.Status, now)

		if msg.Status != protocol.StatusAlarm && msg.Status != protocol.StatusRequest {
			continue
		}
		if t.known[msg.User] {
			continue
		}
		distance := 0
		if msg.Status == protocol.StatusAlarm {
			distance = t.opts.AlarmDistance
		}
		t.notifyNearby(msg, sys, distance)
	}
}

// notifyNearby tells every located character within distance of sys,
// unless the sender is among them
func (t *Tracker) notifyNearby(msg *protocol.Message, sys *starmap.System, distance int) {
	neighbors := sys.Neighbors(distance)
	systems := make([]*starmap.System, 0, len(neighbors))
	for s := range neighbors {
		systems = append(systems, s)
	}
	sort.Slice(systems, func(i, j int) bool {
		di, dj := neighbors[systems[i]], neighbors[systems[j]]
		if di != dj {
			return di < dj
		}
		return systems[i].Name < systems[j].Name
	})

	for _, s := range systems {
		chars := s.Characters()
		if len(chars) == 0 || s.HasCharacter(msg.User) {
			continue
		}
		t.notifier.Nearby(Nearby{
			Message:    msg,
			System:     sys.Name,
			Characters: chars,
			Distance:   neighbors[s],
		})
	}
}

func (t *Tracker) setLocation(char, system string) {
	if old, ok := t.locations[char]; ok {
		if sys, ok := t.starmap.Get(old); ok {
			sys.RemoveCharacter(char)
		}
	}
	t.locations[char] = system
	if sys, ok := t.starmap.Get(system); ok {
		sys.AddCharacter(char)
	}
}

// Location returns where a known character was last seen
func (t *Tracker) Location(char string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sys, ok := t.locations[char]
	return sys, ok
}

// HandleKOS reports a finished KOS check as a message of its own. It is
// called from the KOS result goroutine and takes the lock itself.
func (t *Tracker) HandleKOS(res lookup.KOSResult) {
	if res.State != lookup.StateOK {
		log.Printf("KOS check failed: %s", res.Text)
		return
	}
	if res.HasKOS {
		t.notifier.Sound(SoundBeep)
	}

	text := res.Text
	if text == "" {
		text = "Noone KOS"
	}
	msg := &protocol.Message{
		ID:        res.ID,
		Room:      KOSRoom,
		PlainText: text,
		Text:      strings.ReplaceAll(text, "\n\n", "<br>"),
		Timestamp: t.now().UTC(),
		User:      KOSUser,
		Status:    protocol.StatusNotChange,
	}

	t.mu.Lock()
	t.remember(msg)
	t.mu.Unlock()
	t.notifier.Intel(msg)
}

func (t *Tracker) remember(msg *protocol.Message) {
	t.recent = append(t.recent, msg)
	if over := len(t.recent) - t.opts.RecentLimit; over > 0 {
		t.recent = append([]*protocol.Message(nil), t.recent[over:]...)
	}
}

// Messages returns up to limit recent intel messages, newest last
func (t *Tracker) Messages(limit int) []*protocol.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	start := 0
	if limit > 0 && len(t.recent) > limit {
		start = len(t.recent) - limit
	}
	out := make([]*protocol.Message, len(t.recent)-start)
	copy(out, t.recent[start:])
	return out
}

// Snapshot returns the state of every system. Systems never touched by
// intel are left out unless all is set.
func (t *Tracker) Snapshot(all bool) protocol.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	snap := protocol.Snapshot{
		Generated:  now.UTC(),
		DowntimeIn: formatCountdown(starmap.UntilDowntime(now)),
	}
	for _, sys := range t.starmap.Systems() {
		if !all && sys.Status == protocol.StatusUnknown && sys.Signal == "" &&
			len(sys.Messages) == 0 && len(sys.Characters()) == 0 {
			continue
		}
		snap.Systems = append(snap.Systems, sys.State(now))
	}
	for n := range t.known {
		snap.KnownPlayers = append(snap.KnownPlayers, n)
	}
	sort.Strings(snap.KnownPlayers)
	return snap
}

func formatCountdown(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
