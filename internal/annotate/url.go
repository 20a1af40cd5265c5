// internal/annotate/url.go
package annotate

import (
	"strings"

	"github.com/signalnine/vintel/internal/richtext"
)

var urlPrefixes = []string{"http://", "https://"}

// URLs marks the first http(s) link in a leaf, up to the next space
type URLs struct{}

func (URLs) TryMatch(t *richtext.Tree) bool {
	for i := 0; i < t.Len(); i++ {
		n := t.Node(i)
		if !n.IsText() {
			continue
		}
		start := -1
		for _, p := range urlPrefixes {
			if idx := strings.Index(n.Text, p); idx >= 0 && (start < 0 || idx < start) {
				start = idx
			}
		}
		if start < 0 {
			continue
		}
		end := len(n.Text)
		if sp := strings.IndexByte(n.Text[start:], ' '); sp >= 0 {
			end = start + sp
		}
		t.Wrap(i, start, end, richtext.KindLink, n.Text[start:end])
		return true
	}
	return false
}
