// Package harness checks a rule against a page: statically against a
// captured snapshot, or live by replaying its actions in a browser tab.
package harness

import (
	"context"
	"errors"
	"sort"

	"github.com/hazyhaar/cmpmap/consent"
)

// ErrNilRule is returned when validating without a rule.
var ErrNilRule = errors.New("harness: nil rule")

// Validator checks rule against a page.
type Validator interface {
	Validate(ctx context.Context, rule *consent.Rule, snap *consent.Snapshot) (*Report, error)
}

// Report holds the per-key outcomes of one validation.
type Report struct {
	Site      string                  `json:"site"`
	Mode      string                  `json:"mode"`
	Success   bool                    `json:"success"`
	Selectors map[string]bool         `json:"selectors"`
	Actions   map[consent.Action]bool `json:"actions"`
	Errors    []string                `json:"errors,omitempty"`
}

func newReport(site, mode string) *Report {
	return &Report{
		Site:      site,
		Mode:      mode,
		Selectors: make(map[string]bool),
		Actions:   make(map[consent.Action]bool),
	}
}

// Outcomes flattens selector and action outcomes into one map. Action names
// never collide with selector keys.
func (r *Report) Outcomes() map[string]bool {
	out := make(map[string]bool, len(r.Selectors)+len(r.Actions))
	for k, v := range r.Selectors {
		out[k] = v
	}
	for a, v := range r.Actions {
		out[string(a)] = v
	}
	return out
}

// Failed lists the keys that did not pass, sorted.
func (r *Report) Failed() []string {
	var out []string
	for k, v := range r.Outcomes() {
		if !v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// settle computes Success: the banner resolved and every non-optional
// action succeeded.
func (r *Report) settle() {
	r.Success = r.Selectors[consent.KeyBanner]
	for a, ok := range r.Actions {
		if !ok && !a.Optional() {
			r.Success = false
		}
	}
}
