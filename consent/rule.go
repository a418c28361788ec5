package consent

import (
	"errors"
	"maps"
	"slices"
	"time"
)

// Action is one step of a rule's replay script.
type Action string

const (
	ActionClickReject         Action = "clickRejectIfPossible"
	ActionClickAcceptNoReject Action = "clickAcceptIfRejectNotAvailable"
	ActionClickManage         Action = "clickManageIfAvailable"
	ActionClickClose          Action = "clickCloseIfAvailable"
	ActionHideBanner          Action = "hideBanner"
	ActionHideOverlays        Action = "hideOverlays"
)

// KnownActions is the action vocabulary understood by rule interpreters.
var KnownActions = map[Action]bool{
	ActionClickReject:         true,
	ActionClickAcceptNoReject: true,
	ActionClickManage:         true,
	ActionClickClose:          true,
	ActionHideBanner:          true,
	ActionHideOverlays:        true,
}

// Target returns the selectors key an action operates on.
func (a Action) Target() string {
	switch a {
	case ActionClickReject:
		return RoleReject.SelectorKey()
	case ActionClickAcceptNoReject:
		return RoleAccept.SelectorKey()
	case ActionClickManage:
		return RoleManage.SelectorKey()
	case ActionClickClose:
		return RoleClose.SelectorKey()
	case ActionHideOverlays:
		return KeyOverlay
	default:
		return KeyBanner
	}
}

// Optional reports whether a missing target leaves the rule usable: the
// manage and close clicks and overlay hiding only run when present.
func (a Action) Optional() bool {
	switch a {
	case ActionClickManage, ActionClickClose, ActionHideOverlays:
		return true
	}
	return false
}

// Selector keys with a fixed meaning.
const (
	KeyBanner  = "banner"
	KeyOverlay = "overlay"
)

// GeneratorVersion is stamped into every generated rule.
const GeneratorVersion = "0.1.0"

// FallbackBannerSelector is used when a banner has no container selector.
const FallbackBannerSelector = "[class*='cookie'], [id*='cookie'], [class*='consent'], [id*='consent']"

// ErrNoRules is returned by Merge when called without rules.
var ErrNoRules = errors.New("consent: no rules to merge")

// Metadata is the provenance block of a Rule.
type Metadata struct {
	ConfidenceScore      float64    `json:"confidence_score"`
	ConfidenceLevel      string     `json:"confidence_level,omitempty"`
	BannerType           string     `json:"banner_type"`
	GeneratedAt          time.Time  `json:"generated_at"`
	GeneratorVersion     string     `json:"generator_version,omitempty"`
	ButtonCount          int        `json:"button_count"`
	ButtonTypes          []string   `json:"button_types"`
	HasOverlays          bool       `json:"has_overlays"`
	Tested               bool       `json:"tested"`
	OriginalSite         string     `json:"original_site,omitempty"`
	Fallback             bool       `json:"fallback,omitempty"`
	Optimized            bool       `json:"optimized,omitempty"`
	OptimizedAt          *time.Time `json:"optimized_at,omitempty"`
	Merged               bool       `json:"merged,omitempty"`
	OriginalRuleCount    int        `json:"original_rule_count,omitempty"`
	MergeStrategy        string     `json:"merge_strategy,omitempty"`
	ConsentOMaticVersion string     `json:"consent_o_matic_version,omitempty"`
}

// Rule is the declarative output consumed by an automation engine.
type Rule struct {
	Site      string    `json:"site"`
	Selectors Selectors `json:"selectors"`
	Actions   []Action  `json:"actions"`
	Metadata  Metadata  `json:"metadata"`
}

// Clone returns a deep copy of r.
func (r *Rule) Clone() *Rule {
	c := *r
	c.Selectors = make(Selectors, len(r.Selectors))
	for k, v := range r.Selectors {
		if v.list {
			v.many = append([]string{}, v.many...)
		}
		c.Selectors[k] = v
	}
	c.Actions = append([]Action(nil), r.Actions...)
	c.Metadata.ButtonTypes = append([]string(nil), r.Metadata.ButtonTypes...)
	if r.Metadata.OptimizedAt != nil {
		t := *r.Metadata.OptimizedAt
		c.Metadata.OptimizedAt = &t
	}
	return &c
}

// ButtonSelectorCount counts non-empty *Button keys.
func (r *Rule) ButtonSelectorCount() int {
	n := 0
	for k, v := range r.Selectors {
		if isButtonKey(k) && !v.Empty() {
			n++
		}
	}
	return n
}

func isButtonKey(k string) bool {
	return len(k) > len("Button") && k[len(k)-len("Button"):] == "Button"
}

// DedupActions removes repeated actions, keeping first occurrences.
func DedupActions(actions []Action) []Action {
	seen := make(map[Action]bool, len(actions))
	out := make([]Action, 0, len(actions))
	for _, a := range actions {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// Optimize returns a copy with normalised selector unions, empty keys
// dropped and actions deduplicated.
func (r *Rule) Optimize(now time.Time) *Rule {
	c := r.Clone()
	for k, v := range c.Selectors {
		if v.list {
			var items []string
			seen := map[string]bool{}
			for _, s := range v.many {
				s = JoinUnion([]string{s})
				if s != "" && !seen[s] {
					seen[s] = true
					items = append(items, s)
				}
			}
			if len(items) == 0 {
				delete(c.Selectors, k)
				continue
			}
			c.Selectors[k] = List(items...)
			continue
		}
		s := JoinUnion([]string{v.one})
		if s == "" {
			delete(c.Selectors, k)
			continue
		}
		c.Selectors[k] = Single(s)
	}
	c.Actions = DedupActions(c.Actions)
	c.Metadata.Optimized = true
	t := now.UTC()
	c.Metadata.OptimizedAt = &t
	return c
}

// MergeStrategy selects how Merge combines several rules for one site.
type MergeStrategy string

const (
	MergeHighestConfidence MergeStrategy = "highest_confidence"
	MergeMostSelectors     MergeStrategy = "most_selectors"
	MergeCombine           MergeStrategy = "combine"
)

// Merge combines rules into a new one. Unknown strategies behave like
// MergeHighestConfidence.
func Merge(strategy MergeStrategy, rules ...*Rule) (*Rule, error) {
	rules = slices.DeleteFunc(slices.Clone(rules), func(r *Rule) bool { return r == nil })
	if len(rules) == 0 {
		return nil, ErrNoRules
	}

	var out *Rule
	switch strategy {
	case MergeMostSelectors:
		best := rules[0]
		for _, r := range rules[1:] {
			if len(r.Selectors) > len(best.Selectors) {
				best = r
			}
		}
		out = best.Clone()
	case MergeCombine:
		out = combine(rules)
	default:
		strategy = MergeHighestConfidence
		best := rules[0]
		for _, r := range rules[1:] {
			if r.Metadata.ConfidenceScore > best.Metadata.ConfidenceScore {
				best = r
			}
		}
		out = best.Clone()
	}

	out.Metadata.Merged = true
	out.Metadata.OriginalRuleCount = len(rules)
	out.Metadata.MergeStrategy = string(strategy)
	return out, nil
}

func combine(rules []*Rule) *Rule {
	out := rules[0].Clone()
	typeSeen := map[string]bool{}
	for _, t := range out.Metadata.ButtonTypes {
		typeSeen[t] = true
	}

	for _, r := range rules[1:] {
		for _, k := range slices.Sorted(maps.Keys(r.Selectors)) {
			v := r.Selectors[k]
			cur, ok := out.Selectors[k]
			if !ok {
				out.Selectors[k] = v
				continue
			}
			if cur.list || v.list {
				items := cur.Values()
				for _, s := range v.Values() {
					if !slices.Contains(items, s) {
						items = append(items, s)
					}
				}
				out.Selectors[k] = List(items...)
				continue
			}
			out.Selectors[k] = Single(JoinUnion([]string{cur.one, v.one}))
		}
		out.Actions = append(out.Actions, r.Actions...)

		if r.Metadata.ConfidenceScore > out.Metadata.ConfidenceScore {
			out.Metadata.ConfidenceScore = r.Metadata.ConfidenceScore
			out.Metadata.ConfidenceLevel = r.Metadata.ConfidenceLevel
		}
		for _, t := range r.Metadata.ButtonTypes {
			if !typeSeen[t] {
				typeSeen[t] = true
				out.Metadata.ButtonTypes = append(out.Metadata.ButtonTypes, t)
			}
		}
		out.Metadata.HasOverlays = out.Metadata.HasOverlays || r.Metadata.HasOverlays
		out.Metadata.Fallback = out.Metadata.Fallback && r.Metadata.Fallback
	}
	out.Actions = DedupActions(out.Actions)
	out.Metadata.ButtonCount = out.ButtonSelectorCount()
	return out
}

// ConsentOMatic returns a copy in Consent-O-Matic form: list selectors are
// collapsed into one comma-joined string.
func (r *Rule) ConsentOMatic() *Rule {
	c := r.Clone()
	for k, v := range c.Selectors {
		if v.list {
			c.Selectors[k] = Single(v.String())
		}
	}
	c.Metadata.ConsentOMaticVersion = "2.0"
	return c
}
