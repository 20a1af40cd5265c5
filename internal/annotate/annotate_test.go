// internal/annotate/annotate_test.go
package annotate

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/vintel/internal/protocol"
	"github.com/signalnine/vintel/internal/richtext"
)

type nameSet []string

func newNameSet(names ...string) nameSet {
	s := nameSet(append([]string(nil), names...))
	sort.Strings(s)
	return s
}

func (s nameSet) Names() []string { return s }

func (s nameSet) Has(name string) bool {
	for _, n := range s {
		if n == name {
			return true
		}
	}
	return false
}

func spans(t *richtext.Tree, kind richtext.Kind) []richtext.Node {
	var out []richtext.Node
	for _, n := range t.Nodes() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func TestRepeatCountsMatches(t *testing.T) {
	calls := 0
	f := Func(func(*richtext.Tree) bool {
		calls++
		return calls <= 3
	})
	assert.Equal(t, 3, Repeat(f, richtext.New("x")))
	assert.Equal(t, 4, calls)
}

func TestShips(t *testing.T) {
	tests := []struct {
		text string
		want []string // span texts
	}{
		{"Drake inbound", []string{"Drake"}},
		{"XDrake inbound", []string{"Drake"}},
		{"xdrake inbound", []string{"drake"}},
		{"2 Drakes", []string{"Drake"}},
		{"ADrake inbound", nil},
		{"DrakeA", nil},
		{"raven navy issue and raven", []string{"raven navy issue", "raven"}},
		{"hello there", nil},
		{"Goru's Shuttle spotted", []string{"Goru's Shuttle"}},
	}
	ships := NewShips(ShipNames)
	for _, tt := range tests {
		tree := richtext.New(tt.text)
		Repeat(ships, tree)

		var got []string
		for _, n := range spans(tree, richtext.KindShip) {
			got = append(got, n.Text)
		}
		assert.Equal(t, tt.want, got, "text %q", tt.text)
		assert.Equal(t, tt.text, tree.Text(), "display text must be preserved")
	}
}

func TestShipsLongestFirst(t *testing.T) {
	tree := richtext.New("Raven Navy Issue")
	require.True(t, NewShips(ShipNames).TryMatch(tree))
	require.Equal(t, 1, tree.Len())
	assert.Equal(t, "RAVEN NAVY ISSUE", tree.Node(0).Payload)
}

func TestShipsLaterOccurrence(t *testing.T) {
	// first occurrence fails the boundary check, the second qualifies
	tree := richtext.New("ADrake Drake")
	Repeat(NewShips([]string{"DRAKE"}), tree)
	got := spans(tree, richtext.KindShip)
	require.Len(t, got, 1)
	assert.Equal(t, "Drake", got[0].Text)
	assert.Equal(t, "ADrake ", tree.Node(0).Text)
}

func TestShipsInvalidUTF8(t *testing.T) {
	// each invalid byte decodes to one rune; offsets must stay in bytes
	tree := richtext.New("\xff\xff\xff\xff drake")
	assert.Equal(t, 1, Repeat(NewShips(ShipNames), tree))

	got := spans(tree, richtext.KindShip)
	require.Len(t, got, 1)
	assert.Equal(t, "drake", got[0].Text)
	assert.Equal(t, "\xff\xff\xff\xff ", tree.Node(0).Text)
}

func TestURLs(t *testing.T) {
	tree := richtext.New("look https://zkillboard.com/kill/1/ and http://a.b")
	assert.Equal(t, 2, Repeat(URLs{}, tree))

	links := spans(tree, richtext.KindLink)
	require.Len(t, links, 2)
	assert.Equal(t, "https://zkillboard.com/kill/1/", links[0].Payload)
	assert.Equal(t, "http://a.b", links[1].Payload)
}

func TestSystemTiers(t *testing.T) {
	set := newNameSet("JITA", "J-OVE", "I43-IF3", "F-YH58", "INDIA")
	s := NewSystems(set)

	tests := []struct {
		word string
		want string
		ok   bool
	}{
		{"JITA", "JITA", true},     // exact
		{"jita", "JITA", true},     // exact, case-insensitive
		{"JI", "JITA", true},       // prefix; "J-OVE" sorts first but does not start with JI
		{"J-O", "J-OVE", true},     // short words are prefixes even with a hyphen
		{"I4-IF", "I43-IF3", true}, // hyphen abbreviation
		{"FYH5", "", false},        // short prefix does not strip hyphens
		{"FYH58", "F-YH58", true},  // hyphen-free prefix
		{"in", "", false},          // ignore word in lower case
		{"IN", "INDIA", true},      // capitals are not exempted
		{"X", "", false},
		{"ZZ-ZZZ", "", false},
	}
	for _, tt := range tests {
		got, ok := s.Resolve(tt.word)
		assert.Equal(t, tt.ok, ok, "word %q", tt.word)
		assert.Equal(t, tt.want, got, "word %q", tt.word)
	}
}

func TestSystemsAnnotate(t *testing.T) {
	s := NewSystems(newNameSet("JITA", "J-OVE"))
	tree := richtext.New("Jita! 5 reds in j-ove")

	assert.Equal(t, 2, Repeat(s, tree))
	assert.Equal(t, []string{"JITA", "J-OVE"}, s.Found())

	got := spans(tree, richtext.KindSystem)
	require.Len(t, got, 2)
	assert.Equal(t, "Jita", got[0].Text)
	assert.Equal(t, "j-ove", got[1].Text)
	assert.Equal(t, "Jita! 5 reds in j-ove", tree.Text())
}

func TestSystemsSkipSpans(t *testing.T) {
	s := NewSystems(newNameSet("JITA"))
	tree := richtext.New("http://jita.com")
	Repeat(URLs{}, tree)

	assert.False(t, s.TryMatch(tree))
	assert.Empty(t, s.Found())
}

func TestStatus(t *testing.T) {
	tests := []struct {
		text string
		want protocol.Status
		ok   bool
	}{
		{"clear", protocol.StatusClear, true},
		{"clr", protocol.StatusClear, true},
		{"clear?", protocol.StatusRequest, true},
		{"stat", protocol.StatusRequest, true},
		{"status please", protocol.StatusRequest, true},
		{"anyone there?", protocol.StatusRequest, true},
		{"blue", protocol.StatusClear, true},
		{"still blue", protocol.StatusClear, true},
		{"ALL BLUES", protocol.StatusClear, true},
		{"only blue", protocol.StatusClear, true},
		{"blue ship", "", false},
		{"5 reds", "", false},
	}
	for _, tt := range tests {
		got, ok := Status(richtext.New(tt.text))
		assert.Equal(t, tt.ok, ok, "text %q", tt.text)
		assert.Equal(t, tt.want, got, "text %q", tt.text)
	}
}

func TestStatusIgnoresSpans(t *testing.T) {
	tree := richtext.New("Jita clr")
	tree.Wrap(0, 0, 4, richtext.KindSystem, "JITA")

	got, ok := Status(tree)
	assert.True(t, ok)
	assert.Equal(t, protocol.StatusClear, got)

	only := richtext.New("Jita")
	only.Wrap(0, 0, 4, richtext.KindSystem, "JITA")
	_, ok = Status(only)
	assert.False(t, ok)
}
