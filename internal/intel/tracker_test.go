// internal/intel/tracker_test.go
package intel

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/vintel/internal/cache"
	"github.com/signalnine/vintel/internal/lookup"
	"github.com/signalnine/vintel/internal/protocol"
	"github.com/signalnine/vintel/internal/starmap"
)

type fakeNotifier struct {
	intel  []*protocol.Message
	nearby []Nearby
	sounds []string
}

func (f *fakeNotifier) Intel(msg *protocol.Message) { f.intel = append(f.intel, msg) }
func (f *fakeNotifier) Nearby(n Nearby)             { f.nearby = append(f.nearby, n) }
func (f *fakeNotifier) Sound(name string)           { f.sounds = append(f.sounds, name) }

type fakeKOS struct {
	names [][]string
	types []string
}

func (f *fakeKOS) Submit(names []string, requestType string, onlyKOS bool) string {
	f.names = append(f.names, names)
	f.types = append(f.types, requestType)
	return "id"
}

type fakeAvatars struct {
	names []string
}

func (f *fakeAvatars) Submit(charname string, clearCache bool) string {
	f.names = append(f.names, charname)
	return "id"
}

var now = time.Date(2015, 1, 1, 20, 0, 0, 0, time.UTC)

// chainMap builds ALPHA - BRAVO - CHARLIE - DELTA
func chainMap(t *testing.T) *starmap.Map {
	t.Helper()
	m := starmap.New("test")
	names := []string{"ALPHA", "BRAVO", "CHARLIE", "DELTA"}
	for i, n := range names {
		m.Add(n, int64(i+1))
	}
	for i := 1; i < len(names); i++ {
		require.NoError(t, m.Link(names[i-1], names[i]))
	}
	return m
}

func newTestTracker(t *testing.T, opts Options) (*Tracker, *starmap.Map, *fakeNotifier) {
	m := chainMap(t)
	n := &fakeNotifier{}
	tr := New(m, n, opts)
	tr.now = func() time.Time { return now }
	return tr, m, n
}

func msg(user string, status protocol.Status, systems ...string) *protocol.Message {
	return &protocol.Message{
		Room:      "intel",
		PlainText: "text",
		Timestamp: now,
		User:      user,
		Systems:   systems,
		Status:    status,
	}
}

func TestLocation(t *testing.T) {
	tr, m, n := newTestTracker(t, Options{})

	tr.Handle(msg("Me", protocol.StatusLocation, "CHARLIE"))
	charlie, _ := m.Get("CHARLIE")
	assert.Equal(t, []string{"Me"}, charlie.Characters())
	assert.Equal(t, []string{"Me"}, tr.KnownPlayers())
	assert.Empty(t, n.intel)

	tr.Handle(msg("Me", protocol.StatusLocation, "DELTA"))
	delta, _ := m.Get("DELTA")
	assert.Empty(t, charlie.Characters())
	assert.Equal(t, []string{"Me"}, delta.Characters())

	loc, ok := tr.Location("Me")
	require.True(t, ok)
	assert.Equal(t, "DELTA", loc)

	// unknown systems clear the marker
	tr.Handle(msg("Me", protocol.StatusLocation, "?"))
	assert.Empty(t, delta.Characters())
}

func TestAlarmNotifiesNearby(t *testing.T) {
	tr, m, n := newTestTracker(t, Options{AlarmDistance: 2})
	tr.Handle(msg("Me", protocol.StatusLocation, "CHARLIE"))

	tr.Handle(msg("Scout", protocol.StatusAlarm, "ALPHA"))

	alpha, _ := m.Get("ALPHA")
	assert.Equal(t, protocol.StatusAlarm, alpha.Status)
	assert.Equal(t, now, alpha.LastTransition)
	require.Len(t, n.intel, 1)
	require.Len(t, n.nearby, 1)
	assert.Equal(t, "ALPHA", n.nearby[0].System)
	assert.Equal(t, []string{"Me"}, n.nearby[0].Characters)
	assert.Equal(t, 2, n.nearby[0].Distance)
}

func TestAlarmOutOfRange(t *testing.T) {
	tr, _, n := newTestTracker(t, Options{AlarmDistance: 1})
	tr.Handle(msg("Me", protocol.StatusLocation, "CHARLIE"))
	tr.Handle(msg("Scout", protocol.StatusAlarm, "ALPHA"))
	assert.Empty(t, n.nearby)
}

func TestRequestOnlyNotifiesSameSystem(t *testing.T) {
	tr, _, n := newTestTracker(t, Options{AlarmDistance: 5})
	tr.Handle(msg("Me", protocol.StatusLocation, "BRAVO"))

	tr.Handle(msg("Scout", protocol.StatusRequest, "ALPHA"))
	assert.Empty(t, n.nearby)

	tr.Handle(msg("Scout", protocol.StatusRequest, "BRAVO"))
	require.Len(t, n.nearby, 1)
	assert.Equal(t, 0, n.nearby[0].Distance)
}

func TestNoNearbyForOwnReports(t *testing.T) {
	tr, _, n := newTestTracker(t, Options{AlarmDistance: 3})
	tr.Handle(msg("Me", protocol.StatusLocation, "CHARLIE"))
	tr.Handle(msg("Alt", protocol.StatusLocation, "DELTA"))

	// a known player reporting
	tr.Handle(msg("Me", protocol.StatusAlarm, "ALPHA"))
	assert.Empty(t, n.nearby)
	assert.Len(t, n.intel, 1)
}

func TestClearDoesNotNotify(t *testing.T) {
	tr, m, n := newTestTracker(t, Options{AlarmDistance: 3})
	tr.Handle(msg("Me", protocol.StatusLocation, "BRAVO"))
	tr.Handle(msg("Scout", protocol.StatusClear, "ALPHA"))

	alpha, _ := m.Get("ALPHA")
	assert.Equal(t, protocol.StatusClear, alpha.Status)
	assert.Empty(t, n.nearby)
}

func TestSoundTest(t *testing.T) {
	tr, _, n := newTestTracker(t, Options{})

	sound := msg("Me", protocol.StatusSoundTest)
	sound.Payload = "beep"
	tr.Handle(sound)
	assert.Empty(t, n.sounds, "unknown players cannot trigger sounds")

	tr.Handle(msg("Me", protocol.StatusLocation, "ALPHA"))
	tr.Handle(sound)
	tr.Handle(msg("Me", protocol.StatusSoundTest))
	assert.Equal(t, []string{SoundBeep, SoundAlarm}, n.sounds)
	assert.Empty(t, n.intel)
}

func TestKOSRequest(t *testing.T) {
	kos := &fakeKOS{}
	tr, _, n := newTestTracker(t, Options{KOS: kos})

	req := msg("Scout", protocol.StatusKOSRequest)
	req.Payload = "Foo Bar, Baz"
	tr.Handle(req)

	require.Len(t, kos.names, 1)
	assert.Equal(t, []string{"Foo Bar", "Baz"}, kos.names[0])
	assert.Equal(t, "xxx", kos.types[0])
	assert.Empty(t, n.intel)
}

func TestDroppedMessages(t *testing.T) {
	avatars := &fakeAvatars{}
	tr, m, n := newTestTracker(t, Options{Avatars: avatars})

	tr.Handle(msg("Scout", protocol.StatusIgnore, "ALPHA"))
	tr.Handle(msg("EVE-System", protocol.StatusAlarm, "ALPHA"))
	assert.Empty(t, n.intel)
	assert.Empty(t, avatars.names)

	alpha, _ := m.Get("ALPHA")
	assert.Equal(t, protocol.StatusUnknown, alpha.Status)

	tr.Handle(msg("Scout", protocol.StatusAlarm, "ALPHA"))
	assert.Equal(t, []string{"Scout"}, avatars.names)
}

func TestHandleKOS(t *testing.T) {
	tr, _, n := newTestTracker(t, Options{})

	tr.HandleKOS(lookup.KOSResult{ID: "1", State: lookup.StateOK, Text: "KOS: Foo\n\n?: Bar", HasKOS: true})
	assert.Equal(t, []string{SoundBeep}, n.sounds)
	require.Len(t, n.intel, 1)
	got := n.intel[0]
	assert.Equal(t, protocol.StatusNotChange, got.Status)
	assert.Equal(t, KOSUser, got.User)
	assert.Equal(t, "KOS: Foo<br>?: Bar", got.Text)

	tr.HandleKOS(lookup.KOSResult{ID: "2", State: lookup.StateError, Text: "down"})
	assert.Len(t, n.intel, 1)
	assert.Len(t, tr.Messages(0), 1)
}

func TestKnownPlayersPersist(t *testing.T) {
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.sqlite3"))
	require.NoError(t, err)
	defer c.Close()

	tr, _, _ := newTestTracker(t, Options{Cache: c})
	tr.Handle(msg("Me", protocol.StatusLocation, "ALPHA"))
	tr.Handle(msg("Alt", protocol.StatusLocation, "BRAVO"))
	require.NoError(t, tr.SaveKnownPlayers())

	other, _, _ := newTestTracker(t, Options{Cache: c})
	require.NoError(t, other.LoadKnownPlayers())
	assert.Equal(t, []string{"Alt", "Me"}, other.KnownPlayers())
}

func TestSnapshot(t *testing.T) {
	tr, _, _ := newTestTracker(t, Options{})
	tr.Handle(msg("Me", protocol.StatusLocation, "DELTA"))
	tr.Handle(msg("Scout", protocol.StatusAlarm, "ALPHA"))

	snap := tr.Snapshot(false)
	assert.Equal(t, "15:00:00", snap.DowntimeIn)
	require.Len(t, snap.Systems, 2)
	assert.Equal(t, "ALPHA", snap.Systems[0].Name)
	assert.Equal(t, protocol.StatusAlarm, snap.Systems[0].Status)
	assert.Equal(t, 0, snap.Systems[0].Tier)
	assert.Equal(t, "00:00", snap.Systems[0].Timer)
	assert.Equal(t, "DELTA", snap.Systems[1].Name)
	assert.Equal(t, []string{"Me"}, snap.Systems[1].Characters)
	assert.Equal(t, []string{"Me"}, snap.KnownPlayers)

	assert.Len(t, tr.Snapshot(true).Systems, 4)
}

func TestMessagesLimit(t *testing.T) {
	tr, _, _ := newTestTracker(t, Options{RecentLimit: 3})
	for _, user := range []string{"a", "b", "c", "d"} {
		tr.Handle(msg(user, protocol.StatusAlarm, "ALPHA"))
	}

	all := tr.Messages(0)
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[0].User)

	last := tr.Messages(1)
	require.Len(t, last, 1)
	assert.Equal(t, "d", last[0].User)
}
