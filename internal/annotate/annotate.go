// internal/annotate/annotate.go

// Package annotate finds ship names, URLs and system references in the
// text leaves of a message tree and turns them into spans. Every annotator
// applies at most one match per call; Repeat drives it to a fixed point.
package annotate

import (
	"strings"

	"github.com/signalnine/vintel/internal/richtext"
)

// Annotator marks one occurrence of a pattern in t and reports whether it
// changed the tree
type Annotator interface {
	TryMatch(t *richtext.Tree) bool
}

// Func adapts a plain function to Annotator
type Func func(t *richtext.Tree) bool

func (f Func) TryMatch(t *richtext.Tree) bool {
	return f(t)
}

// Repeat calls a.TryMatch until it reports no match and returns the
// number of matches applied. Each match turns leaf text into a span and
// spans are never rescanned, so the loop ends once the leaves run out of
// candidates.
func Repeat(a Annotator, t *richtext.Tree) int {
	n := 0
	for a.TryMatch(t) {
		n++
	}
	return n
}

// ignoreChars are dropped before splitting text into words
var ignoreChars = strings.NewReplacer("*", "", "?", "", ",", "", "!", "")

// StripPunctuation removes * ? , ! from s
func StripPunctuation(s string) string {
	return ignoreChars.Replace(s)
}
