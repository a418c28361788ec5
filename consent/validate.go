package consent

import (
	"fmt"
	"maps"
	"slices"

	"github.com/andybalholm/cascadia"
)

// MinimumConfidence is the acceptance threshold for detections.
const MinimumConfidence = 0.6

// Report is the result of a structural rule check.
type Report struct {
	Valid    bool     `json:"valid"`
	Score    float64  `json:"score"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validate checks a rule for completeness without touching any page.
func (r *Rule) Validate() Report {
	var rep Report

	if r.Site != "" {
		rep.Score += 0.2
	} else {
		rep.Errors = append(rep.Errors, "missing site")
	}

	if banner := r.Selectors.Get(KeyBanner); banner != "" {
		rep.Score += 0.3
	} else {
		rep.Errors = append(rep.Errors, "missing banner selector")
	}

	if r.ButtonSelectorCount() > 0 {
		rep.Score += 0.3
	} else {
		rep.Warnings = append(rep.Warnings, "no button selectors")
	}

	if len(r.Actions) > 0 {
		rep.Score += 0.2
	} else {
		rep.Errors = append(rep.Errors, "no actions")
	}

	seen := map[Action]bool{}
	for _, a := range r.Actions {
		if !KnownActions[a] {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("unknown action %q", a))
		}
		if seen[a] {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("duplicate action %q", a))
		}
		seen[a] = true
	}

	for _, k := range slices.Sorted(maps.Keys(r.Selectors)) {
		for _, sel := range r.Selectors[k].Values() {
			if _, err := cascadia.ParseGroup(sel); err != nil {
				rep.Errors = append(rep.Errors, fmt.Sprintf("selector %s: %v", k, err))
			}
		}
	}

	if r.Metadata.ConfidenceScore < MinimumConfidence {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("low confidence score: %.2f", r.Metadata.ConfidenceScore))
	}

	rep.Valid = len(rep.Errors) == 0
	return rep
}
