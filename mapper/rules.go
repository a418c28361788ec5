package mapper

import (
	"context"
	"fmt"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/harness"
	"github.com/hazyhaar/cmpmap/sink"
)

// Process detects on snap, then persists and delivers the rule when a
// banner is accepted. Store and sink failures are returned; a snapshot
// without a banner is not an error.
func (m *Mapper) Process(ctx context.Context, snap *consent.Snapshot) (*Result, error) {
	res, err := m.Detect(ctx, snap)
	if err != nil {
		return nil, err
	}
	if !res.Detected {
		return res, nil
	}

	if m.store != nil {
		rec, err := m.store.SaveRule(ctx, res.Rule, res.Banner.RawFragment)
		if err != nil {
			return res, fmt.Errorf("mapper: process: %w", err)
		}
		res.RuleID = rec.ID
	}

	if m.sink != nil {
		d := sink.RuleDelivery{ID: res.RuleID, URL: res.URL, Level: res.Score.Level, Rule: res.Rule}
		if err := m.sink.SendRule(ctx, d); err != nil {
			return res, fmt.Errorf("mapper: deliver: %w", err)
		}
	}
	return res, nil
}

// ProcessURL captures pageURL and processes the snapshot.
func (m *Mapper) ProcessURL(ctx context.Context, pageURL string) (*Result, error) {
	if m.capturer == nil {
		return nil, ErrNoCapturer
	}
	snap, err := m.capturer.Capture(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("mapper: capture %s: %w", pageURL, err)
	}
	return m.Process(ctx, snap)
}

// ValidateRule checks the stored rule id against snap and records the
// outcome. A nil snap is captured from the rule's site.
func (m *Mapper) ValidateRule(ctx context.Context, id string, snap *consent.Snapshot) (*harness.Report, error) {
	rec, err := m.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("mapper: rule %q not found", id)
	}

	if snap == nil {
		snap, err = m.snapshot(ctx, &snapshotRequest{URL: "https://" + rec.Site})
		if err != nil {
			return nil, fmt.Errorf("mapper: capture %s: %w", rec.Site, err)
		}
	}

	rep, err := m.validator.Validate(ctx, rec.Rule, snap)
	if err != nil {
		return nil, fmt.Errorf("mapper: validate %s: %w", id, err)
	}
	if _, err := m.store.RecordValidation(ctx, id, rep.Success, rep); err != nil {
		return rep, fmt.Errorf("mapper: %w", err)
	}

	m.logger.Info("mapper: rule validated",
		"rule_id", id, "site", rec.Site, "mode", rep.Mode,
		"success", rep.Success, "failed", rep.Failed())

	if m.sink != nil {
		v := sink.ValidationDelivery{RuleID: id, Site: rec.Site, Success: rep.Success, Outcomes: rep.Outcomes()}
		if err := m.sink.SendValidation(ctx, v); err != nil {
			return rep, fmt.Errorf("mapper: deliver: %w", err)
		}
	}
	return rep, nil
}

// GetRule returns the stored rule id, or nil when absent.
func (m *Mapper) GetRule(ctx context.Context, id string) (*Record, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	return m.store.GetRule(ctx, id)
}

// LatestRule returns the newest stored rule for site, or nil.
func (m *Mapper) LatestRule(ctx context.Context, site string) (*Record, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	return m.store.LatestRule(ctx, consent.SiteOf(site))
}

// ListRules lists stored rules newest first; an empty site lists all.
func (m *Mapper) ListRules(ctx context.Context, site string, limit int) ([]*Record, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	return m.store.ListRules(ctx, consent.SiteOf(site), limit)
}

// DeleteRule removes a stored rule and its validations.
func (m *Mapper) DeleteRule(ctx context.Context, id string) (bool, error) {
	if m.store == nil {
		return false, ErrNoStore
	}
	return m.store.DeleteRule(ctx, id)
}

// Validations lists the recorded harness outcomes for rule id.
func (m *Mapper) Validations(ctx context.Context, id string) ([]*Validation, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}
	return m.store.ListValidations(ctx, id)
}

// ConsentOMatic returns the stored rule id in the interpreter's trimmed
// form, or nil when absent.
func (m *Mapper) ConsentOMatic(ctx context.Context, id string) (*consent.Rule, error) {
	rec, err := m.GetRule(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.Rule.ConsentOMatic(), nil
}
