// internal/annotate/system.go
package annotate

import (
	"strings"
	"unicode/utf8"

	"github.com/signalnine/vintel/internal/richtext"
)

// SystemSet is the lookup the system annotator matches words against
type SystemSet interface {
	// Names returns upper-case system names in a stable order
	Names() []string
	Has(name string) bool
}

// ignoreWords are only skipped when written in another case, so "IN" in
// capitals can still name a system
var ignoreWords = map[string]bool{"IN": true, "IS": true, "AS": true}

// Systems marks words that refer to a known system and collects the
// resolved names
type Systems struct {
	set   SystemSet
	found []string
}

// NewSystems returns a system annotator backed by set
func NewSystems(set SystemSet) *Systems {
	return &Systems{set: set}
}

// Found returns the distinct systems matched so far, in match order
func (s *Systems) Found() []string {
	return s.found
}

func (s *Systems) TryMatch(t *richtext.Tree) bool {
	for i := 0; i < t.Len(); i++ {
		n := t.Node(i)
		if !n.IsText() {
			continue
		}
		for _, tok := range splitSpaces(n.Text) {
			word := StripPunctuation(tok.text)
			if strings.TrimSpace(word) == "" {
				continue
			}
			name, ok := s.Resolve(word)
			if !ok {
				continue
			}

			start, end := tok.start, tok.start+len(tok.text)
			if j := strings.Index(tok.text, word); j >= 0 {
				start, end = tok.start+j, tok.start+j+len(word)
			}
			t.Wrap(i, start, end, richtext.KindSystem, name)
			s.add(name)
			return true
		}
	}
	return false
}

func (s *Systems) add(name string) {
	for _, f := range s.found {
		if f == name {
			return
		}
	}
	s.found = append(s.found, name)
}

// Resolve maps one punctuation-free word to a system name. The tiers are
// tried in order and the length checks form an else-chain: a short word is
// only ever treated as a prefix.
func (s *Systems) Resolve(word string) (string, bool) {
	uword := strings.ToUpper(word)
	if uword != word && ignoreWords[uword] {
		return "", false
	}
	if s.set.Has(uword) {
		return uword, true
	}

	n := utf8.RuneCountInString(uword)
	switch {
	case n > 1 && n < 5:
		for _, name := range s.set.Names() {
			if strings.HasPrefix(name, uword) {
				return name, true
			}
		}
	case n > 2 && strings.Contains(uword, "-"):
		wparts := strings.Split(uword, "-")
		if !abbrevParts(wparts) {
			return "", false
		}
		for _, name := range s.set.Names() {
			nparts := strings.Split(name, "-")
			if abbrevParts(nparts) && wparts[0][0] == nparts[0][0] && wparts[1][0] == nparts[1][0] {
				return name, true
			}
		}
	case n > 1:
		for _, name := range s.set.Names() {
			if strings.HasPrefix(strings.ReplaceAll(name, "-", ""), uword) {
				return name, true
			}
		}
	}
	return "", false
}

// abbrevParts reports whether parts is exactly two pieces longer than one
// character each
func abbrevParts(parts []string) bool {
	return len(parts) == 2 && len(parts[0]) > 1 && len(parts[1]) > 1
}

type token struct {
	text  string
	start int
}

// splitSpaces splits on single spaces keeping byte offsets; empty tokens
// from repeated spaces are dropped
func splitSpaces(s string) []token {
	var out []token
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				out = append(out, token{text: s[start:i], start: start})
			}
			start = i + 1
		}
	}
	return out
}
