// internal/richtext/tree.go
package richtext

import (
	"fmt"
	"html"
	"strings"
)

// Kind tags a Node as plain text or one of the annotation types
type Kind int

const (
	KindText Kind = iota
	KindShip
	KindSystem
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindShip:
		return "ship"
	case KindSystem:
		return "system"
	case KindLink:
		return "link"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Node is either a text leaf or an annotated span.
// Payload is empty for leaves.
type Node struct {
	Kind    Kind
	Payload string
	Text    string
}

// Leaf returns a plain text node
func Leaf(text string) Node {
	return Node{Kind: KindText, Text: text}
}

// Span returns an annotated node displaying text
func Span(kind Kind, payload, text string) Node {
	return Node{Kind: kind, Payload: payload, Text: text}
}

// IsText reports whether n is a plain text leaf
func (n Node) IsText() bool {
	return n.Kind == KindText
}

// Tree is the display text of a single message as an ordered node sequence
type Tree struct {
	nodes []Node
}

// New returns a tree holding text as a single leaf
func New(text string) *Tree {
	return &Tree{nodes: []Node{Leaf(text)}}
}

// Len returns the number of nodes
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node at index i
func (t *Tree) Node(i int) Node {
	return t.nodes[i]
}

// Nodes returns a copy of the node sequence
func (t *Tree) Nodes() []Node {
	out := make([]Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Splice replaces node i with repl. An empty repl removes the node.
func (t *Tree) Splice(i int, repl ...Node) {
	if i < 0 || i >= len(t.nodes) {
		panic(fmt.Sprintf("richtext: splice index %d out of range [0,%d)", i, len(t.nodes)))
	}
	nodes := make([]Node, 0, len(t.nodes)-1+len(repl))
	nodes = append(nodes, t.nodes[:i]...)
	nodes = append(nodes, repl...)
	nodes = append(nodes, t.nodes[i+1:]...)
	t.nodes = nodes
}

// Wrap turns bytes [start,end) of leaf i into a span, keeping the text
// before and after as separate leaves. Empty leaves are dropped.
func (t *Tree) Wrap(i, start, end int, kind Kind, payload string) {
	leaf := t.nodes[i]
	if !leaf.IsText() {
		panic("richtext: wrap on a span")
	}
	var repl []Node
	if start > 0 {
		repl = append(repl, Leaf(leaf.Text[:start]))
	}
	repl = append(repl, Span(kind, payload, leaf.Text[start:end]))
	if end < len(leaf.Text) {
		repl = append(repl, Leaf(leaf.Text[end:]))
	}
	t.Splice(i, repl...)
}

// Text returns the display text with annotations flattened away
func (t *Tree) Text() string {
	return t.Render(func(n Node) string { return n.Text })
}

// Render concatenates fn applied to every node
func (t *Tree) Render(fn func(Node) string) string {
	var b strings.Builder
	for _, n := range t.nodes {
		b.WriteString(fn(n))
	}
	return b.String()
}

// Markup returns the annotated text with spans as anchors
func (t *Tree) Markup() string {
	return t.Render(func(n Node) string {
		text := html.EscapeString(n.Text)
		switch n.Kind {
		case KindShip:
			return fmt.Sprintf(`<a href="show_info/%s">%s</a>`, html.EscapeString(n.Payload), text)
		case KindSystem:
			return fmt.Sprintf(`<a href="mark_system/%s">%s</a>`, html.EscapeString(n.Payload), text)
		case KindLink:
			return fmt.Sprintf(`<a href="link/%s">%s</a>`, html.EscapeString(n.Payload), text)
		}
		return text
	})
}
