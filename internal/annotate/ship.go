// internal/annotate/ship.go
package annotate

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/signalnine/vintel/internal/richtext"
)

// ShipNames are the hull names recognised in chat
var ShipNames = []string{
	"ABADDON", "ABSOLUTION", "AEON", "ALGOS", "ANATHEMA",
	"ANSHAR", "APOCALYPSE", "APOCALYPSE IMPERIAL ISSUE",
	"APOTHEOSIS", "ARAZU", "ARBITRATOR", "ARCHON", "ARES",
	"ARK", "ARMAGEDDON", "ASHIMMU", "ASTARTE", "ASTERO",
	"ATRON", "AUGOROR", "AUGOROR NAVY ISSUE", "AVATAR",
	"BADGER", "BANTAM", "BASILISK", "BELLICOSE", "BESTOWER",
	"BHAALGORN", "BLACKBIRD", "BREACHER", "BROADSWORD", "BRUTIX",
	"BURST", "BUSTARD", "BUZZARD", "CALDARI NAVY HOOKBILL",
	"CARACAL", "CATALYST", "CELESTIS", "CERBERUS", "CHEETAH",
	"CHIMERA", "CLAW", "CLAYMORE", "COERCER", "CONDOR",
	"CONFESSOR", "CORAX", "CORMORANT", "COVETOR", "CRANE",
	"CROW", "CRUCIFIER", "CRUOR", "CRUSADER", "CURSE",
	"CYCLONE", "CYNABAL", "DAMNATION", "DAREDEVIL", "DEIMOS",
	"DEVOTER", "DOMINIX", "DRAGOON", "DRAKE", "DRAMIEL",
	"EAGLE", "ENYO", "EOS", "EREBUS", "ERIS", "EXECUTIONER",
	"EXEQUROR", "EXEQUROR NAVY ISSUE", "FALCON", "FEROX",
	"FLYCATCHER", "FEDERATION NAVY COMET", "GILA", "GNOSIS",
	"GOLD MAGNATE", "GOLEM", "GORU'S SHUTTLE", "GRIFFIN",
	"GUARDIAN", "GUARDIAN-VEXOR", "GURISTAS SHUTTLE",
	"HARBINGER", "HARPY", "HAWK", "HEL", "HELIOS", "HERETIC",
	"HERON", "HOARDER", "HOUND", "HUGINN", "HULK", "HURRICANE",
	"HYENA", "HYPERION", "IBIS", "IMICUS", "IMPAIROR", "IMPEL",
	"IMPERIAL NAVY SLICER", "INCURSUS", "INQUISITOR", "ISHKUR",
	"ISHTAR", "ITERON", "JAGUAR", "KERES", "KESTREL", "KITSUNE",
	"KRONOS", "LACHESIS", "LEGION", "LEVIATHAN", "LOKI",
	"MACHARIEL", "MACKINAW", "MAELSTROM", "MAGNATE",
	"MALEDICTION", "MALLER", "MAMMOTH", "MANTICORE", "MASTODON",
	"MAULUS", "MEGATHRON", "MEGATHRON FEDERATE ISSUE",
	"MEGATHRON NAVY ISSUE", "MERLIN", "MOA", "MOROS", "MUNINN",
	"MYRMIDON", "NAGA", "NAGLFAR", "NAVITAS", "NEMESIS",
	"NIDHOGGUR", "NIGHTHAWK", "NIGHTMARE", "NOMAD", "NYX",
	"OCCATOR", "OMEN", "OMEN NAVY ISSUE", "ONEIROS", "ONYX",
	"ORACLE", "ORCA", "OSPREY", "OSPREY NAVY ISSUE", "PALADIN",
	"PANTHER", "PHANTASM", "PHOBOS", "PHOENIX", "PILGRIM",
	"PRORATOR", "PROBE", "PROCURER", "PROPHECY", "PROTEUS",
	"PROWLER", "PUNISHER", "PURIFIER", "RAGNAROK", "RAPIER",
	"RAPTOR", "RATTLESNAKE", "RAVEN", "RAVEN NAVY ISSUE",
	"RAVEN STATE ISSUE", "REAPER", "REDEEMER",
	"REPUBLIC FLEET FIRETAIL", "RETRIBUTION", "RETRIEVER",
	"REVELATION", "RHEA", "RIFTER", "ROKH", "ROOK", "RORQUAL",
	"RUPTURE", "SABRE", "SACRILEGE", "SCIMITAR", "SCORPION",
	"SCYTHE", "SCYTHE FLEET ISSUE", "SENTINEL", "SIGIL",
	"SILVER MAGNATE", "SIN", "SKIFF", "SLASHER", "SLEIPNIR",
	"STABBER", "STABBER FLEET ISSUE", "STILETTO", "STRATIOS",
	"SUCCUBUS", "TALOS", "TALWAR", "TARANIS", "TEMPEST",
	"TEMPEST FLEET ISSUE", "TEMPEST TRIBAL ISSUE", "TENGU",
	"THANATOS", "THORAX", "THRASHER", "TORMENTOR", "TORNADO",
	"TRISTAN", "TYPHOON", "VAGABOND", "VARGUR", "VELATOR",
	"VENGEANCE", "VEXOR", "VEXOR NAVY ISSUE", "VIATOR", "VIGIL",
	"VIGILANT", "VINDICATOR", "VULTURE", "WIDOW", "WOLF",
	"WORM", "WREATHE", "WYVERN", "ZEALOT", "CAPSULE",
}

// Ships marks hull names. Longer names are tried first so that
// "RAVEN NAVY ISSUE" wins over "RAVEN".
type Ships struct {
	names [][]rune
}

// NewShips returns a ship annotator for names (any case)
func NewShips(names []string) *Ships {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := len([]rune(sorted[i])), len([]rune(sorted[j]))
		if li != lj {
			return li > lj
		}
		return sorted[i] < sorted[j]
	})
	s := &Ships{names: make([][]rune, len(sorted))}
	for i, n := range sorted {
		s.names[i] = upperRunes([]rune(n))
	}
	return s
}

// TryMatch annotates the first ship name found, leaf by leaf.
//
// The text before a hit must be a space or X and the text after it a
// space or S, so "XDrake" and "Drakes" match while "ADrake" does not.
// This boundary rule is kept exactly as players learned it.
func (s *Ships) TryMatch(t *richtext.Tree) bool {
	for i := 0; i < t.Len(); i++ {
		n := t.Node(i)
		if !n.IsText() {
			continue
		}
		runes, offsets := decodeRunes(n.Text)
		upper := upperRunes(runes)
		for _, name := range s.names {
			for from := 0; from < len(upper); {
				idx := indexRunes(upper[from:], name)
				if idx < 0 {
					break
				}
				start := from + idx
				end := start + len(name)
				if shipBoundary(upper, start, end) {
					t.Wrap(i, offsets[start], offsets[end], richtext.KindShip, string(name))
					return true
				}
				from = start + 1
			}
		}
	}
	return false
}

func shipBoundary(upper []rune, start, end int) bool {
	if start > 0 && upper[start-1] != ' ' && upper[start-1] != 'X' {
		return false
	}
	if end < len(upper) && upper[end] != ' ' && upper[end] != 'S' {
		return false
	}
	return true
}

// upperRunes upper-cases rune by rune so offsets stay aligned with the
// original text
func upperRunes(r []rune) []rune {
	out := make([]rune, len(r))
	for i, c := range r {
		out[i] = unicode.ToUpper(c)
	}
	return out
}

func indexRunes(s, sub []rune) int {
	if len(sub) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(sub) <= len(s); i++ {
		for j := range sub {
			if s[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// decodeRunes returns the runes of s and the byte offset of each, plus
// len(s) at the end. An invalid byte counts as one rune of width one.
func decodeRunes(s string) ([]rune, []int) {
	runes := make([]rune, 0, len(s))
	offsets := make([]int, 0, len(s)+1)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		runes = append(runes, r)
		offsets = append(offsets, i)
		i += size
	}
	return runes, append(offsets, len(s))
}
