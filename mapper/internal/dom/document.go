// Package dom wraps a parsed page for the detection stages: every element
// gets a document-order index at parse time, which is the identity used for
// deduplication, and selectors are resolved through goquery/cascadia.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Document is an immutable parsed page. Queries are read-only and safe for
// concurrent use.
type Document struct {
	root  *html.Node
	gq    *goquery.Document
	elems []*Element
	index map[*html.Node]*Element
}

// Parse parses markup into a Document. Whitespace-only markup yields a
// document without elements other than the implied html/head/body.
func Parse(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return FromNode(root), nil
}

// FromNode indexes an already parsed tree.
func FromNode(root *html.Node) *Document {
	d := &Document{
		root:  root,
		gq:    goquery.NewDocumentFromNode(root),
		index: make(map[*html.Node]*Element),
	}
	var walk func(n *html.Node, parent *Element)
	walk = func(n *html.Node, parent *Element) {
		p := parent
		if n.Type == html.ElementNode {
			el := newElement(n, len(d.elems), parent)
			d.elems = append(d.elems, el)
			d.index[n] = el
			p = el
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, p)
		}
	}
	walk(root, nil)
	return d
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Elements returns every element in document order.
func (d *Document) Elements() []*Element { return d.elems }

// Lookup returns the Element for n, or nil when n is not an indexed element.
func (d *Document) Lookup(n *html.Node) *Element { return d.index[n] }

// Body returns the body element, or nil.
func (d *Document) Body() *Element {
	for _, el := range d.elems {
		if el.Tag == "body" {
			return el
		}
	}
	return nil
}

// HasContent reports whether the body holds any element or text.
func (d *Document) HasContent() bool {
	body := d.Body()
	if body == nil {
		return false
	}
	for c := body.Node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return true
		}
	}
	return false
}

// Query returns the elements matching sel in document order. Invalid
// selectors match nothing.
func (d *Document) Query(sel string) []*Element {
	if !Valid(sel) {
		return nil
	}
	var out []*Element
	d.gq.Find(sel).Each(func(_ int, s *goquery.Selection) {
		if el := d.index[s.Get(0)]; el != nil {
			out = append(out, el)
		}
	})
	return out
}

// Count returns how many elements sel matches.
func (d *Document) Count(sel string) int {
	if !Valid(sel) {
		return 0
	}
	return d.gq.Find(sel).Length()
}

// Resolves reports whether sel matches at least one element.
func (d *Document) Resolves(sel string) bool { return d.Count(sel) > 0 }

// Unique reports whether sel matches exactly one element.
func (d *Document) Unique(sel string) bool { return d.Count(sel) == 1 }

// Matches reports whether sel matches el.
func (d *Document) Matches(sel string, el *Element) bool {
	m, err := cascadia.Compile(sel)
	if err != nil {
		return false
	}
	return m.Match(el.Node)
}

// Valid reports whether sel is a syntactically valid selector group.
func Valid(sel string) bool {
	if strings.TrimSpace(sel) == "" {
		return false
	}
	_, err := cascadia.ParseGroup(sel)
	return err == nil
}
