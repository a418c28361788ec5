package dom

import (
	"bytes"
	"maps"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// Element is a handle into a Document with cached tag, attributes and
// visible text. It is only meaningful for the Document that produced it.
type Element struct {
	Node   *html.Node
	Index  int
	Tag    string
	attrs  map[string]string
	parent *Element

	textOnce sync.Once
	text     string
}

func newElement(n *html.Node, idx int, parent *Element) *Element {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		if a.Namespace != "" {
			continue
		}
		if _, dup := attrs[a.Key]; !dup {
			attrs[a.Key] = a.Val
		}
	}
	return &Element{Node: n, Index: idx, Tag: n.Data, attrs: attrs, parent: parent}
}

// Parent returns the enclosing element, or nil for <html>.
func (e *Element) Parent() *Element { return e.parent }

// Attr returns the attribute value, or "".
func (e *Element) Attr(key string) string { return e.attrs[key] }

// HasAttr reports whether the attribute is present, even if empty.
func (e *Element) HasAttr(key string) bool {
	_, ok := e.attrs[key]
	return ok
}

// Attrs returns a copy of the attribute map.
func (e *Element) Attrs() map[string]string { return maps.Clone(e.attrs) }

// AttrKeys returns attribute names in source order.
func (e *Element) AttrKeys() []string {
	keys := make([]string, 0, len(e.Node.Attr))
	seen := make(map[string]bool, len(e.Node.Attr))
	for _, a := range e.Node.Attr {
		if a.Namespace != "" || seen[a.Key] {
			continue
		}
		seen[a.Key] = true
		keys = append(keys, a.Key)
	}
	return keys
}

// ID returns the trimmed id attribute.
func (e *Element) ID() string { return strings.TrimSpace(e.attrs["id"]) }

// Classes returns the class tokens in source order.
func (e *Element) Classes() []string { return strings.Fields(e.attrs["class"]) }

// Style returns the lowercased inline style.
func (e *Element) Style() string { return strings.ToLower(e.attrs["style"]) }

// AttrString is the lowercased "key=value" concatenation of all attributes,
// used for keyword matching.
func (e *Element) AttrString() string {
	var sb strings.Builder
	for _, k := range e.AttrKeys() {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(e.attrs[k])
	}
	return strings.ToLower(sb.String())
}

// Text returns the NFKC-normalised visible text with whitespace collapsed.
// Script, style, noscript and template content is skipped.
func (e *Element) Text() string {
	e.textOnce.Do(func() {
		e.text = collectText(e.Node)
	})
	return e.text
}

// LowerText is Text lowercased.
func (e *Element) LowerText() string { return strings.ToLower(e.Text()) }

// Contains reports whether other is a strict descendant of e.
func (e *Element) Contains(other *Element) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == e {
			return true
		}
	}
	return false
}

// Descendants returns the element descendants of e in document order.
func (e *Element) Descendants(d *Document) []*Element {
	var out []*Element
	for i := e.Index + 1; i < len(d.elems); i++ {
		el := d.elems[i]
		if !e.Contains(el) {
			break
		}
		out = append(out, el)
	}
	return out
}

// Render serialises e and its subtree.
func (e *Element) Render() string {
	var buf bytes.Buffer
	html.Render(&buf, e.Node)
	return buf.String()
}

// SiblingPosition returns the 1-based position of e among siblings with the
// same tag, for :nth-of-type.
func (e *Element) SiblingPosition() int {
	pos := 1
	for s := e.Node.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == e.Node.Data {
			pos++
		}
	}
	return pos
}

// inline elements do not separate words: <u>R</u>eject reads "Reject".
var inline = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Bdi: true, atom.Bdo: true,
	atom.Cite: true, atom.Code: true, atom.Data: true, atom.Dfn: true, atom.Em: true,
	atom.Font: true, atom.I: true, atom.Kbd: true, atom.Label: true, atom.Mark: true,
	atom.Q: true, atom.S: true, atom.Samp: true, atom.Small: true, atom.Span: true,
	atom.Strong: true, atom.Sub: true, atom.Sup: true, atom.Time: true, atom.U: true,
	atom.Var: true,
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
			if !inline[n.DataAtom] {
				sb.WriteByte(' ')
				defer sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return strings.Join(strings.Fields(norm.NFKC.String(sb.String())), " ")
}
