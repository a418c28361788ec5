package score

import (
	"strings"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/mapper/internal/lexicon"
)

// Factor names, also used as keys in Result.Factors.
const (
	FactorText       = "text"
	FactorButton     = "button"
	FactorStructural = "structural"
	FactorSelector   = "selector"
	FactorAttribute  = "attribute"
)

// Confidence level labels.
const (
	LevelVeryHigh = "very_high"
	LevelHigh     = "high"
	LevelMedium   = "medium"
	LevelLow      = "low"
)

// Weights are the factor weights of the overall confidence.
type Weights struct {
	Text       float64 `yaml:"text" json:"text"`
	Button     float64 `yaml:"button" json:"button"`
	Structural float64 `yaml:"structural" json:"structural"`
	Selector   float64 `yaml:"selector" json:"selector"`
	Attribute  float64 `yaml:"attribute" json:"attribute"`
}

// DefaultWeights returns text 0.25, button 0.30, structural 0.20,
// selector 0.15, attribute 0.10.
func DefaultWeights() Weights {
	return Weights{Text: 0.25, Button: 0.30, Structural: 0.20, Selector: 0.15, Attribute: 0.10}
}

// Thresholds label confidence values. Only Minimum gates acceptance.
type Thresholds struct {
	Minimum  float64 `yaml:"minimum" json:"minimum"`
	High     float64 `yaml:"high" json:"high"`
	VeryHigh float64 `yaml:"very_high" json:"very_high"`
}

// DefaultThresholds returns 0.6 / 0.8 / 0.9.
func DefaultThresholds() Thresholds {
	return Thresholds{Minimum: consent.MinimumConfidence, High: 0.8, VeryHigh: 0.9}
}

// Level returns the label for c.
func (t Thresholds) Level(c float64) string {
	switch {
	case c >= t.VeryHigh:
		return LevelVeryHigh
	case c >= t.High:
		return LevelHigh
	case c >= t.Minimum:
		return LevelMedium
	}
	return LevelLow
}

// Resolver answers whether a selector matches in the source document.
type Resolver interface {
	Resolves(sel string) bool
}

// Evidence is everything the aggregator looks at for one candidate.
type Evidence struct {
	Shape             consent.Shape
	Text              string // lowercased visible text of the container
	ContainerSelector string
	ContainerAttrs    map[string]string
	Buttons           []consent.Button
	OverlaySelectors  []string
	ExtraSelectors    map[string]string
	FragmentLen       int
	Doc               Resolver
}

// Result is a scored candidate.
type Result struct {
	Confidence  float64            `json:"confidence"`
	Level       string             `json:"level"`
	Base        float64            `json:"base"`
	Factors     map[string]float64 `json:"factors"`
	Adjustments map[string]float64 `json:"adjustments,omitempty"`
}

// Adjustment is a named bounded correction added after weighting.
type Adjustment struct {
	Name string
	Fn   func(*Evidence) float64
}

// Aggregator computes calibrated confidence. It is immutable after
// construction and safe for concurrent use.
type Aggregator struct {
	overall     Strategy[*Evidence]
	adjustments []Adjustment
	thresholds  Thresholds
}

// stableContainerAttrs earn attribute credit on the container.
var stableContainerAttrs = []string{"data-consent", "data-cookie", "data-gdpr", "aria-label", "role"}

// stableButtonAttrs earn attribute credit per button.
var stableButtonAttrs = []string{"data-action", "data-consent", "aria-label", "role"}

// NewAggregator builds the five factor strategies from lx and w.
func NewAggregator(lx *lexicon.Lexicon, w Weights, th Thresholds) *Aggregator {
	text := textFactor(lx)
	button := ButtonStrategy()
	structural := StructuralStrategy()
	selector := SelectorStrategy()
	attribute := AttributeStrategy()

	return &Aggregator{
		overall: Strategy[*Evidence]{
			Signals: []Signal[*Evidence]{
				{Name: FactorText, Weight: w.Text, Fn: text},
				{Name: FactorButton, Weight: w.Button, Fn: button.Score},
				{Name: FactorStructural, Weight: w.Structural, Fn: structural.Score},
				{Name: FactorSelector, Weight: w.Selector, Fn: selector.Score},
				{Name: FactorAttribute, Weight: w.Attribute, Fn: attribute.Score},
			},
		},
		adjustments: DefaultAdjustments(),
		thresholds:  th,
	}
}

// Thresholds returns the configured thresholds.
func (a *Aggregator) Thresholds() Thresholds { return a.thresholds }

// Accepted reports whether c passes the minimum threshold.
func (a *Aggregator) Accepted(c float64) bool { return c >= a.thresholds.Minimum }

// Score computes the overall confidence for ev.
func (a *Aggregator) Score(ev *Evidence) Result {
	base, factors := a.overall.Evaluate(ev)
	res := Result{Base: base, Factors: factors}

	total := base
	for _, adj := range a.adjustments {
		if d := adj.Fn(ev); d != 0 {
			if res.Adjustments == nil {
				res.Adjustments = make(map[string]float64)
			}
			res.Adjustments[adj.Name] = d
			total += d
		}
	}
	res.Confidence = Clamp01(total)
	res.Level = a.thresholds.Level(res.Confidence)
	return res
}

// textFactor takes the best per-language score so that enabling more packs
// never dilutes an English (or German, ...) banner.
func textFactor(lx *lexicon.Lexicon) func(*Evidence) float64 {
	var perPack []Strategy[string]
	for _, p := range lx.Packs() {
		perPack = append(perPack, TextStrategy(p.TextKeywords, p.ActionKeywords))
	}
	return func(ev *Evidence) float64 {
		best := 0.0
		for _, s := range perPack {
			if v := s.Score(ev.Text); v > best {
				best = v
			}
		}
		return best
	}
}

// TextStrategy scores lowercased text by keyword coverage: consent words 60%,
// action words 40%.
func TextStrategy(consentWords, actionWords []string) Strategy[string] {
	return Strategy[string]{
		Clamp: true,
		Signals: []Signal[string]{
			{Name: "consent_keywords", Weight: 0.6, Fn: ratio(consentWords)},
			{Name: "action_keywords", Weight: 0.4, Fn: ratio(actionWords)},
		},
	}
}

func ratio(words []string) func(string) float64 {
	return func(text string) float64 {
		if len(words) == 0 {
			return 0
		}
		return float64(lexicon.CountIn(text, words)) / float64(len(words))
	}
}

// ButtonStrategy scores the button inventory.
func ButtonStrategy() Strategy[*Evidence] {
	return Strategy[*Evidence]{
		Clamp: true,
		Signals: []Signal[*Evidence]{
			{Name: "has_buttons", Weight: 0.3, Fn: func(ev *Evidence) float64 { return boolf(len(ev.Buttons) > 0) }},
			{Name: "two_roles", Weight: 0.2, Fn: func(ev *Evidence) float64 { return boolf(distinctRoles(ev.Buttons) >= 2) }},
			{Name: "three_roles", Weight: 0.1, Fn: func(ev *Evidence) float64 { return boolf(distinctRoles(ev.Buttons) >= 3) }},
			{Name: "accept_reject", Weight: 0.2, Fn: func(ev *Evidence) float64 {
				return boolf(hasRole(ev.Buttons, consent.RoleAccept) && hasRole(ev.Buttons, consent.RoleReject))
			}},
			{Name: "manage", Weight: 0.1, Fn: func(ev *Evidence) float64 { return boolf(hasRole(ev.Buttons, consent.RoleManage)) }},
			{Name: "labelled", Weight: 0.05, Fn: func(ev *Evidence) float64 {
				n := 0
				for _, b := range ev.Buttons {
					if strings.TrimSpace(b.Text) != "" {
						n++
					}
				}
				return float64(n)
			}},
		},
	}
}

// StructuralStrategy scores shape, overlays and extra selector hits.
func StructuralStrategy() Strategy[*Evidence] {
	return Strategy[*Evidence]{
		Clamp: true,
		Signals: []Signal[*Evidence]{
			{Name: "shape", Weight: 1, Fn: func(ev *Evidence) float64 {
				switch ev.Shape {
				case consent.ShapeModal, consent.ShapeBottomBar:
					return 0.4
				case consent.ShapeTopBar, consent.ShapeSidebar:
					return 0.3
				}
				return 0.2
			}},
			{Name: "overlays", Weight: 0.2, Fn: func(ev *Evidence) float64 { return boolf(len(ev.OverlaySelectors) > 0) }},
			{Name: "extra_selectors", Weight: 0.1, Fn: func(ev *Evidence) float64 { return boolf(len(ev.ExtraSelectors) > 0) }},
		},
	}
}

// SelectorStrategy scores whether the synthesized selectors resolve.
func SelectorStrategy() Strategy[*Evidence] {
	return Strategy[*Evidence]{
		Clamp: true,
		Signals: []Signal[*Evidence]{
			{Name: "container_resolves", Weight: 0.4, Fn: containerResolves},
			{Name: "container_stable", Weight: 1, Fn: func(ev *Evidence) float64 {
				if containerResolves(ev) == 0 {
					return 0
				}
				sel := ev.ContainerSelector
				switch {
				case strings.Contains(sel, "#"):
					return 0.2
				case strings.Contains(sel, "data-"):
					return 0.15
				case strings.Contains(sel, "aria-"):
					return 0.1
				}
				return 0
			}},
			{Name: "buttons_resolve", Weight: 0.4, Fn: func(ev *Evidence) float64 {
				if len(ev.Buttons) == 0 || ev.Doc == nil {
					return 0
				}
				ok := 0
				for _, b := range ev.Buttons {
					if ev.Doc.Resolves(b.Selector) {
						ok++
					}
				}
				return float64(ok) / float64(len(ev.Buttons))
			}},
		},
	}
}

func containerResolves(ev *Evidence) float64 {
	if ev.ContainerSelector == "" || ev.Doc == nil {
		return 0
	}
	return boolf(ev.Doc.Resolves(ev.ContainerSelector))
}

// AttributeStrategy credits stable attributes on the container and buttons.
func AttributeStrategy() Strategy[*Evidence] {
	return Strategy[*Evidence]{
		Clamp: true,
		Signals: []Signal[*Evidence]{
			{Name: "container_attrs", Weight: 0.2, Fn: func(ev *Evidence) float64 {
				n := 0
				for _, a := range stableContainerAttrs {
					_, onElement := ev.ContainerAttrs[a]
					if onElement || strings.Contains(ev.ContainerSelector, a) {
						n++
					}
				}
				return float64(n)
			}},
			{Name: "button_attrs", Weight: 0.05, Fn: func(ev *Evidence) float64 {
				n := 0
				for _, b := range ev.Buttons {
					for _, a := range stableButtonAttrs {
						if _, ok := b.Attributes[a]; ok {
							n++
						}
					}
				}
				return float64(n)
			}},
		},
	}
}

// DefaultAdjustments are the post-weighting corrections: fragment size,
// button visibility and container selector specificity.
func DefaultAdjustments() []Adjustment {
	return []Adjustment{
		{Name: "fragment_size", Fn: func(ev *Evidence) float64 {
			switch {
			case ev.FragmentLen > 500:
				return 0.05
			case ev.FragmentLen < 100:
				return -0.10
			}
			return 0
		}},
		{Name: "button_visibility", Fn: func(ev *Evidence) float64 {
			visible := 0
			for _, b := range ev.Buttons {
				if b.Visible {
					visible++
				}
			}
			switch {
			case visible == 0:
				return -0.10
			case float64(visible) >= float64(len(ev.Buttons))*0.8:
				return 0.05
			}
			return 0
		}},
		{Name: "specific_selector", Fn: func(ev *Evidence) float64 {
			if IsSpecific(ev.ContainerSelector) {
				return 0.05
			}
			return 0
		}},
	}
}

// IsSpecific reports whether sel uses an id, data, aria or role selector.
func IsSpecific(sel string) bool {
	for _, tok := range []string{"#", "[data-", "[aria-", "[role="} {
		if strings.Contains(sel, tok) {
			return true
		}
	}
	return false
}

func distinctRoles(buttons []consent.Button) int {
	seen := map[consent.Role]bool{}
	for _, b := range buttons {
		seen[b.Role] = true
	}
	return len(seen)
}

func hasRole(buttons []consent.Button, r consent.Role) bool {
	for _, b := range buttons {
		if b.Role == r {
			return true
		}
	}
	return false
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
