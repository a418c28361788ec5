// Package selector synthesizes CSS selector unions for banner elements,
// preferring identifiers that survive page reloads.
//
// Alternatives are produced in preference order:
//
//	#id                       unless the id looks generated
//	[data-*] / [aria-*] / [role]
//	.class1.class2            stable class tokens only
//	parentTag > tag           only when nothing above applies
//
// Robust narrows alternatives that match several elements by prefixing the
// nearest identifiable ancestor, and falls back to an :nth-of-type path.
package selector

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/mapper/internal/dom"
)

// Options bound the synthesizer.
type Options struct {
	MaxAlternatives int `yaml:"max_alternatives" json:"max_alternatives"`
	MaxIDLength     int `yaml:"max_id_length" json:"max_id_length"`
	MaxClassLength  int `yaml:"max_class_length" json:"max_class_length"`
	MaxAttrValue    int `yaml:"max_attr_value" json:"max_attr_value"`
}

func (o *Options) defaults() {
	if o.MaxAlternatives <= 0 {
		o.MaxAlternatives = 4
	}
	if o.MaxIDLength <= 0 {
		o.MaxIDLength = 100
	}
	if o.MaxClassLength <= 0 {
		o.MaxClassLength = 50
	}
	if o.MaxAttrValue <= 0 {
		o.MaxAttrValue = 80
	}
}

var (
	uuidRe      = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	numericIDRe = regexp.MustCompile(`^[0-9\-_]+$`)
)

var unstableClassWords = []string{"timestamp", "time", "date", "random", "uuid", "hash", "generated", "auto"}

// stateClasses toggle while a banner is shown or dismissed.
var stateClasses = map[string]bool{
	"show": true, "shown": true, "active": true, "visible": true, "open": true,
	"in": true, "fade": true, "hidden": true, "hide": true,
}

// preferredAttrs are tried first, in this order.
var preferredAttrs = []string{
	"data-testid", "data-cy", "data-qa", "data-automation",
	"data-consent", "data-cookie", "data-gdpr", "data-privacy",
	"data-action", "data-widget",
}

var trailingAttrs = []string{"aria-label", "aria-labelledby", "role"}

var volatileDataPrefixes = []string{"data-v-", "data-react", "data-styled", "data-emotion", "data-timestamp", "data-time"}

const maxAttrAlternatives = 2

// OverlayPatterns find backdrops that block the page while a banner shows.
var OverlayPatterns = []string{
	".overlay",
	".backdrop",
	".modal-backdrop",
	".cookie-overlay",
	".consent-overlay",
	".gdpr-overlay",
	".privacy-overlay",
	`[class*="overlay"]`,
	`[class*="backdrop"]`,
}

// Synthesizer is immutable and safe for concurrent use.
type Synthesizer struct {
	opts Options
}

// New returns a Synthesizer with opts (zero values take defaults).
func New(opts Options) *Synthesizer {
	opts.defaults()
	return &Synthesizer{opts: opts}
}

// ProblematicID reports ids presumed auto-generated: UUIDs, over-long ids
// and ids made only of digits, dashes and underscores.
func ProblematicID(id string, maxLen int) bool {
	return uuidRe.MatchString(id) || len(id) > maxLen || numericIDRe.MatchString(id)
}

// UnstableClass reports class tokens unlikely to survive a reload.
func UnstableClass(c string, maxLen int) bool {
	if len(c) > maxLen {
		return true
	}
	if strings.IndexFunc(c, unicode.IsDigit) >= 0 {
		return true
	}
	lc := strings.ToLower(c)
	for _, w := range unstableClassWords {
		if strings.Contains(lc, w) {
			return true
		}
	}
	return false
}

// Synthesize returns the comma-joined alternatives for el without
// consulting the document.
func (s *Synthesizer) Synthesize(el *dom.Element) string {
	return strings.Join(s.Alternatives(el), ", ")
}

// Alternatives returns el's selector alternatives in preference order. The
// result is never empty.
func (s *Synthesizer) Alternatives(el *dom.Element) []string {
	alts := s.identifying(el)
	if len(alts) == 0 {
		alts = []string{s.structural(el)}
	}
	return alts
}

// identifying returns id, attribute and class alternatives only.
func (s *Synthesizer) identifying(el *dom.Element) []string {
	var alts []string
	if id := el.ID(); id != "" && !ProblematicID(id, s.opts.MaxIDLength) {
		alts = append(alts, "#"+EscapeIdent(id))
	}
	alts = append(alts, s.attrSelectors(el)...)
	if cls := s.classSelector(el); cls != "" {
		alts = append(alts, cls)
	}
	if len(alts) > s.opts.MaxAlternatives {
		alts = alts[:s.opts.MaxAlternatives]
	}
	return alts
}

func (s *Synthesizer) attrSelectors(el *dom.Element) []string {
	var names []string
	names = append(names, preferredAttrs...)
	for _, k := range el.AttrKeys() {
		if strings.HasPrefix(k, "data-") && !slices.Contains(preferredAttrs, k) && !volatileData(k) {
			names = append(names, k)
		}
	}
	names = append(names, trailingAttrs...)

	var out []string
	for _, name := range names {
		if len(out) == maxAttrAlternatives {
			break
		}
		if !el.HasAttr(name) {
			continue
		}
		v := strings.TrimSpace(el.Attr(name))
		switch {
		case v == "":
			if strings.HasPrefix(name, "data-") {
				out = append(out, "["+name+"]")
			}
		case len(v) > s.opts.MaxAttrValue, strings.ContainsAny(v, "\n\r"),
			uuidRe.MatchString(v), numericIDRe.MatchString(v):
			continue
		default:
			out = append(out, fmt.Sprintf("[%s=%s]", name, QuoteValue(v)))
		}
	}
	return out
}

func volatileData(name string) bool {
	for _, p := range volatileDataPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// StableClasses returns at most n reload-stable class tokens.
func (s *Synthesizer) StableClasses(el *dom.Element, n int) []string {
	var out []string
	for _, c := range el.Classes() {
		if len(out) == n {
			break
		}
		if stateClasses[strings.ToLower(c)] || UnstableClass(c, s.opts.MaxClassLength) || slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *Synthesizer) classSelector(el *dom.Element) string {
	var sb strings.Builder
	for _, c := range s.StableClasses(el, 2) {
		sb.WriteByte('.')
		sb.WriteString(EscapeIdent(c))
	}
	return sb.String()
}

func (s *Synthesizer) structural(el *dom.Element) string {
	p := el.Parent()
	if p == nil || p.Tag == "html" {
		return el.Tag
	}
	return p.Tag + " > " + el.Tag
}

// Robust returns el's selector union with ambiguous alternatives narrowed
// against doc. Alternatives that still match several elements are dropped;
// if none survive an :nth-of-type path anchored on the nearest identifiable
// ancestor is used.
func (s *Synthesizer) Robust(doc *dom.Document, el *dom.Element) string {
	var kept []string
	for _, alt := range s.Alternatives(el) {
		switch n := doc.Count(alt); {
		case n == 1 && doc.Matches(alt, el):
			kept = append(kept, alt)
		case n > 1:
			if narrowed, ok := s.narrow(doc, el, alt, len(s.identifying(el)) == 0); ok {
				kept = append(kept, narrowed)
			}
		}
	}
	if len(kept) == 0 {
		kept = append(kept, s.positional(doc, el))
	}
	return consent.JoinUnion(kept)
}

// anchor returns the nearest ancestor with a unique identifying selector.
func (s *Synthesizer) anchor(doc *dom.Document, el *dom.Element) (*dom.Element, string) {
	for p := el.Parent(); p != nil && p.Tag != "body" && p.Tag != "html"; p = p.Parent() {
		for _, alt := range s.identifying(p) {
			if doc.Unique(alt) {
				return p, alt
			}
		}
	}
	return nil, ""
}

// narrow prefixes alt with the nearest identifiable ancestor. A structural
// alt already names el's parent, which is replaced when it is the anchor.
func (s *Synthesizer) narrow(doc *dom.Document, el *dom.Element, alt string, structural bool) (string, bool) {
	p, psel := s.anchor(doc, el)
	if p == nil {
		return "", false
	}
	var cand string
	switch {
	case el.Parent() == p && structural:
		cand = psel + " > " + el.Tag
	case el.Parent() == p:
		cand = psel + " > " + alt
	default:
		cand = psel + " " + alt
	}
	if doc.Unique(cand) && doc.Matches(cand, el) {
		return cand, true
	}
	return "", false
}

func (s *Synthesizer) positional(doc *dom.Document, el *dom.Element) string {
	if el.Tag == "html" || el.Tag == "body" {
		return el.Tag
	}
	top, prefix := s.anchor(doc, el)
	var steps []string
	for cur := el; cur != nil && cur != top; cur = cur.Parent() {
		if cur.Tag == "body" || cur.Tag == "html" {
			prefix = cur.Tag
			break
		}
		steps = append(steps, fmt.Sprintf("%s:nth-of-type(%d)", cur.Tag, cur.SiblingPosition()))
	}
	slices.Reverse(steps)
	if prefix == "" {
		return strings.Join(steps, " > ")
	}
	return prefix + " > " + strings.Join(steps, " > ")
}

// Overlays returns robust selectors for overlay elements outside container,
// deduplicated, in pattern order.
func (s *Synthesizer) Overlays(doc *dom.Document, container *dom.Element) []string {
	var out []string
	seen := make(map[int]bool)
	for _, pat := range OverlayPatterns {
		for _, el := range doc.Query(pat) {
			if seen[el.Index] || el.Tag == "html" || el.Tag == "body" ||
				el == container || (container != nil && container.Contains(el)) {
				continue
			}
			seen[el.Index] = true
			sel := s.Robust(doc, el)
			if !slices.Contains(out, sel) {
				out = append(out, sel)
			}
		}
	}
	return out
}

// EscapeIdent escapes s for use as a CSS identifier (CSS.escape rules).
func EscapeIdent(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == 0:
			sb.WriteRune('�')
		case (r >= 0x1 && r <= 0x1f) || r == 0x7f,
			i == 0 && r >= '0' && r <= '9',
			i == 1 && r >= '0' && r <= '9' && runes[0] == '-':
			fmt.Fprintf(&sb, `\%x `, r)
		case i == 0 && r == '-' && len(runes) == 1:
			sb.WriteString(`\-`)
		case r >= 0x80 || r == '-' || r == '_' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			sb.WriteRune(r)
		default:
			sb.WriteByte('\\')
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// QuoteValue double-quotes an attribute value for a selector.
func QuoteValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}
