package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/hazyhaar/cmpmap/consent"
)

// Static resolves every selector of a rule against snapshot markup. An
// action passes when its target resolves.
type Static struct{}

// NewStatic returns a Static validator.
func NewStatic() *Static { return &Static{} }

func (Static) Validate(_ context.Context, rule *consent.Rule, snap *consent.Snapshot) (*Report, error) {
	if rule == nil {
		return nil, ErrNilRule
	}
	if snap == nil {
		return nil, errors.New("harness: nil snapshot")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.Markup))
	if err != nil {
		return nil, fmt.Errorf("harness: parse snapshot: %w", err)
	}

	rep := newReport(rule.Site, "static")
	for key, val := range rule.Selectors {
		ok := false
		for _, sel := range val.Values() {
			if _, err := cascadia.ParseGroup(sel); err != nil {
				rep.Errors = append(rep.Errors, fmt.Sprintf("%s: invalid selector %q", key, sel))
				continue
			}
			if doc.Find(sel).Length() > 0 {
				ok = true
			}
		}
		rep.Selectors[key] = ok
	}
	for _, a := range rule.Actions {
		rep.Actions[a] = rep.Selectors[a.Target()]
	}
	rep.settle()
	return rep, nil
}
