// internal/annotate/status.go
package annotate

import (
	"strings"

	"github.com/signalnine/vintel/internal/protocol"
	"github.com/signalnine/vintel/internal/richtext"
)

var bluePhrases = map[string]bool{
	"BLUE":       true,
	"BLUES ONLY": true,
	"ONLY BLUE":  true,
	"STILL BLUE": true,
	"ALL BLUES":  true,
}

// Status classifies a message from its remaining text leaves. The first
// leaf that classifies wins; ok is false when nothing does.
//
// "clear?" is a question, so the CLEAR rule excludes a trailing question
// mark before the REQUEST rules get a chance.
func Status(t *richtext.Tree) (protocol.Status, bool) {
	for _, n := range t.Nodes() {
		if !n.IsText() {
			continue
		}
		raw := strings.ToUpper(strings.TrimSpace(n.Text))
		words := make(map[string]bool)
		for _, w := range strings.Fields(StripPunctuation(raw)) {
			words[w] = true
		}

		switch {
		case (words["CLEAR"] || words["CLR"]) && !strings.HasSuffix(raw, "?"):
			return protocol.StatusClear, true
		case words["STAT"] || words["STATUS"]:
			return protocol.StatusRequest, true
		case strings.Contains(raw, "?"):
			return protocol.StatusRequest, true
		case bluePhrases[raw]:
			return protocol.StatusClear, true
		}
	}
	return "", false
}
