// Package buttons extracts the controls of a banner container and assigns
// each a role from the lexicon's pattern families.
package buttons

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/mapper/internal/dom"
	"github.com/hazyhaar/cmpmap/mapper/internal/lexicon"
	"github.com/hazyhaar/cmpmap/mapper/internal/selector"
)

// inputTypes are the <input> types that act as buttons.
var inputTypes = []string{"button", "submit", "reset", "image"}

var hiddenClasses = []string{"hidden", "invisible", "sr-only", "screen-reader-only", "visually-hidden"}

// closeMaxRunes: unmatched labels this short are treated as close glyphs.
const closeMaxRunes = 2

// Extractor is immutable and safe for concurrent use.
type Extractor struct {
	lx  *lexicon.Lexicon
	syn *selector.Synthesizer
}

// New returns an Extractor classifying with lx and naming with syn.
func New(lx *lexicon.Lexicon, syn *selector.Synthesizer) *Extractor {
	return &Extractor{lx: lx, syn: syn}
}

// Extract returns the labelled controls inside container, in document order
// and deduplicated by selector. Nested controls collapse to one: a native
// control swallows its descendants, a scripted wrapper yields to the
// controls it contains.
func (x *Extractor) Extract(doc *dom.Document, container *dom.Element) []consent.Button {
	if doc == nil || container == nil {
		return nil
	}
	descendants := container.Descendants(doc)

	var (
		out      []consent.Button
		accepted []*dom.Element
	)
	for i, el := range descendants {
		if !Clickable(el) {
			continue
		}
		if slices.ContainsFunc(accepted, func(a *dom.Element) bool { return a.Contains(el) }) {
			continue
		}
		if !native(el) && wrapsClickable(el, descendants[i+1:]) {
			continue
		}
		label := Label(el)
		if label == "" {
			continue
		}
		sel := x.syn.Robust(doc, el)
		if slices.ContainsFunc(out, func(b consent.Button) bool { return b.Selector == sel }) {
			continue
		}
		accepted = append(accepted, el)
		out = append(out, consent.Button{
			Text:       label,
			Role:       x.Classify(label),
			Selector:   sel,
			Visible:    Visible(el),
			Attributes: el.Attrs(),
		})
	}
	return out
}

// Classify assigns a role to a label. The first matching family wins in
// accept, reject, manage, close, more_info order. Unmatched labels of one
// or two runes are close; "all" combined with a verb follows the verb;
// anything else is accept.
func (x *Extractor) Classify(label string) consent.Role {
	for _, f := range x.lx.Families() {
		if f.Pattern.MatchString(label) {
			return f.Role
		}
	}
	if utf8.RuneCountInString(strings.TrimSpace(label)) <= closeMaxRunes {
		return consent.RoleClose
	}
	if r, ok := x.lx.DefaultAllRole(strings.ToLower(label)); ok {
		return r
	}
	return consent.RoleAccept
}

// Clickable reports whether el acts as a control: native buttons, links and
// button-like inputs, or anything carrying onclick, role="button" or
// data-action.
func Clickable(el *dom.Element) bool {
	if native(el) {
		return true
	}
	return el.HasAttr("onclick") ||
		strings.EqualFold(el.Attr("role"), "button") ||
		strings.TrimSpace(el.Attr("data-action")) != ""
}

func native(el *dom.Element) bool {
	switch el.Tag {
	case "button", "a":
		return true
	case "input":
		t := strings.ToLower(strings.TrimSpace(el.Attr("type")))
		return slices.Contains(inputTypes, t)
	}
	return false
}

func wrapsClickable(el *dom.Element, following []*dom.Element) bool {
	for _, d := range following {
		if !el.Contains(d) {
			return false
		}
		if Clickable(d) {
			return true
		}
	}
	return false
}

// Label returns the control's label: the value of an input, otherwise its
// visible text, falling back to aria-label, title and alt in turn.
func Label(el *dom.Element) string {
	var label string
	if el.Tag == "input" {
		label = strings.Join(strings.Fields(el.Attr("value")), " ")
	} else {
		label = el.Text()
	}
	for _, attr := range []string{"aria-label", "title", "alt"} {
		if label != "" {
			break
		}
		label = strings.Join(strings.Fields(el.Attr(attr)), " ")
	}
	return label
}

// Visible reports whether inline style, class tokens, aria-hidden or the
// hidden attribute hide el. Ancestors are not consulted.
func Visible(el *dom.Element) bool {
	style := strings.ReplaceAll(el.Style(), " ", "")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return false
	}
	for _, c := range el.Classes() {
		if slices.Contains(hiddenClasses, strings.ToLower(c)) {
			return false
		}
	}
	if strings.EqualFold(strings.TrimSpace(el.Attr("aria-hidden")), "true") {
		return false
	}
	return !el.HasAttr("hidden")
}
