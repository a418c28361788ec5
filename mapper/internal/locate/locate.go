// Package locate finds elements that plausibly hold a consent banner and
// ranks them by relevance.
package locate

import (
	"slices"
	"strings"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/mapper/internal/dom"
	"github.com/hazyhaar/cmpmap/mapper/internal/lexicon"
	"github.com/hazyhaar/cmpmap/mapper/internal/score"
)

// DefaultSelectors are the candidate patterns: consent substrings in id and
// class, known widget classes, vendor containers and ARIA dialog roles.
var DefaultSelectors = []string{
	"[id*='cookie']",
	"[class*='cookie']",
	"[id*='consent']",
	"[class*='consent']",
	"[id*='gdpr']",
	"[class*='gdpr']",
	"[id*='privacy']",
	"[class*='privacy']",
	".cc-banner",
	".cc-window",
	".cookie-banner",
	".consent-banner",
	".gdpr-banner",
	".privacy-notice",
	"#cookie-notice",
	"#consent-notice",
	"#gdpr-notice",
	"[data-testid*='cookie']",
	"[data-testid*='consent']",
	"[aria-label*='cookie']",
	"[aria-label*='consent']",
	"[aria-label*='Cookie']",
	"[aria-label*='Consent']",
	"[id*='ideocookie']",
	"[class*='ideocookie']",
	"[class*='widget-cookie-banner']",
	"[class*='cookie-widget']",
	"[class*='cookie-notice']",
	"[class*='consent-widget']",
	"[class*='gdpr-widget']",
	"[class*='privacy-widget']",
	"[data-widget*='cookie']",
	"[data-widget*='consent']",
	"[data-widget*='gdpr']",
	"#onetrust-banner-sdk",
	"#CybotCookiebotDialog",
	"#didomi-host",
	".qc-cmp2-container",
	"#usercentrics-root",
	".fc-consent-root",
	"#truste-consent-track",
	"[role='dialog']",
	"[role='alertdialog']",
	"[role='banner']",
}

// Candidate is a plausible banner container.
type Candidate struct {
	Element     *dom.Element
	Relevance   float64
	TextHits    int
	AttrHits    int
	Clickables  int
	ButtonCount int
	AcceptTexts int
	RejectTexts int
}

// Locator is immutable after New and safe for concurrent use.
type Locator struct {
	selectors []string
	lx        *lexicon.Lexicon
	relevance score.Strategy[*Candidate]
}

// New returns a Locator over selectors (DefaultSelectors if empty).
func New(lx *lexicon.Lexicon, selectors []string) *Locator {
	if len(selectors) == 0 {
		selectors = DefaultSelectors
	}
	l := &Locator{selectors: selectors, lx: lx}
	l.relevance = score.Strategy[*Candidate]{
		Signals: []score.Signal[*Candidate]{
			{Name: "keywords", Weight: 0.1, Fn: func(c *Candidate) float64 { return float64(c.TextHits) }},
			{Name: "buttons", Weight: 0.05, Fn: func(c *Candidate) float64 { return float64(c.ButtonCount) }},
			{Name: "accept_text", Weight: 0.2, Fn: func(c *Candidate) float64 { return float64(c.AcceptTexts) }},
			{Name: "reject_text", Weight: 0.2, Fn: func(c *Candidate) float64 { return float64(c.RejectTexts) }},
			{Name: "attr_keywords", Weight: 0.1, Fn: func(c *Candidate) float64 { return float64(c.AttrHits) }},
			{Name: "positioned", Weight: 0.1, Fn: func(c *Candidate) float64 {
				s := c.Element.Style()
				if strings.Contains(s, "fixed") || strings.Contains(s, "absolute") {
					return 1
				}
				return 0
			}},
		},
	}
	return l
}

// Selectors returns the candidate patterns in use.
func (l *Locator) Selectors() []string { return l.selectors }

// Locate returns plausible candidates, most relevant first. Ties keep
// document order. An empty result means no banner.
func (l *Locator) Locate(doc *dom.Document) []Candidate {
	if doc == nil || !doc.HasContent() {
		return nil
	}

	seen := make(map[int]bool)
	var matched []*dom.Element
	for _, sel := range l.selectors {
		for _, el := range doc.Query(sel) {
			if !seen[el.Index] {
				seen[el.Index] = true
				matched = append(matched, el)
			}
		}
	}
	slices.SortFunc(matched, func(a, b *dom.Element) int { return a.Index - b.Index })

	var out []Candidate
	for _, el := range matched {
		if el.Tag == "html" || el.Tag == "body" || el.Tag == "head" {
			continue
		}
		c, ok := l.evaluate(doc, el)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		switch {
		case a.Relevance > b.Relevance:
			return -1
		case a.Relevance < b.Relevance:
			return 1
		}
		return 0
	})
	return out
}

// Plausible applies the banner predicate to a single element.
func (l *Locator) Plausible(doc *dom.Document, el *dom.Element) bool {
	_, ok := l.evaluate(doc, el)
	return ok
}

func (l *Locator) evaluate(doc *dom.Document, el *dom.Element) (Candidate, bool) {
	text := el.LowerText()
	c := Candidate{
		Element:  el,
		TextHits: l.lx.ConsentHits(text),
		AttrHits: l.lx.ConsentHits(el.AttrString()),
	}
	if c.TextHits == 0 && c.AttrHits == 0 {
		return c, false
	}

	for _, d := range el.Descendants(doc) {
		switch d.Tag {
		case "button", "a", "input":
			c.ButtonCount++
			bt := d.Text()
			if l.lx.Matches(consent.RoleAccept, bt) {
				c.AcceptTexts++
			}
			if l.lx.Matches(consent.RoleReject, bt) {
				c.RejectTexts++
			}
		}
		if l.clickable(d) {
			c.Clickables++
		}
	}

	if !l.plausible(&c, text) {
		return c, false
	}
	c.Relevance = l.relevance.Score(&c)
	return c, true
}

// plausible: text hits >= 2 pass even without controls, so banners whose
// buttons render late are still found.
func (l *Locator) plausible(c *Candidate, text string) bool {
	switch {
	case c.TextHits >= 2:
		return true
	case c.AttrHits > 0:
		return true
	case c.TextHits > 0 && len(text) > 20 && l.lx.HasNotice(text):
		return true
	}
	return c.Clickables > 0
}

func (l *Locator) clickable(el *dom.Element) bool {
	switch el.Tag {
	case "button", "a", "input":
		return true
	}
	if el.HasAttr("onclick") || el.Attr("role") == "button" || el.Attr("data-action") != "" {
		return true
	}
	if slices.Contains(el.Classes(), "click") {
		return true
	}
	if el.Tag == "div" || el.Tag == "span" {
		return l.lx.HasControlWord(el.LowerText())
	}
	return false
}
