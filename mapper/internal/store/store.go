// Package store persists generated rules and their validation outcomes in
// SQLite. Banner fragments are sanitised before they are written.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/cmpmap/consent"
	"github.com/hazyhaar/cmpmap/dbopen"
	"github.com/hazyhaar/cmpmap/idgen"
)

// Schema is applied on open; every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS rules (
    id          TEXT PRIMARY KEY,
    site        TEXT NOT NULL,
    rule_json   TEXT NOT NULL,
    confidence  REAL NOT NULL DEFAULT 0,
    banner_type TEXT NOT NULL DEFAULT '',
    fallback    INTEGER NOT NULL DEFAULT 0,
    tested      INTEGER NOT NULL DEFAULT 0,
    fragment    TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rules_site ON rules(site, created_at DESC);

CREATE TABLE IF NOT EXISTS validations (
    id           TEXT PRIMARY KEY,
    rule_id      TEXT NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
    success      INTEGER NOT NULL,
    outcome_json TEXT NOT NULL DEFAULT '{}',
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_validations_rule ON validations(rule_id, created_at DESC);
`

// Store is the rule database handle.
type Store struct {
	DB     *sql.DB
	newID  idgen.Generator
	policy *bluemonday.Policy
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the id generator (default idgen.Default).
func WithIDGenerator(g idgen.Generator) Option { return func(s *Store) { s.newID = g } }

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// Open opens (or creates) the database at path and applies the schema.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return newStore(db, opts), nil
}

// New wraps an already opened database and applies the schema.
func New(db *sql.DB, opts ...Option) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return newStore(db, opts), nil
}

func newStore(db *sql.DB, opts []Option) *Store {
	s := &Store{
		DB:     db,
		newID:  idgen.Default,
		policy: fragmentPolicy(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// fragmentPolicy keeps structure and identifying attributes while dropping
// scripts and event handlers.
func fragmentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("div", "span", "p", "section", "aside", "dialog", "form", "label", "button")
	p.AllowAttrs("id", "class", "role", "title").Globally()
	p.AllowAttrs("aria-label", "aria-hidden", "aria-labelledby").Globally()
	p.AllowAttrs("type", "value").OnElements("input", "button")
	p.AllowElements("input")
	p.AllowDataAttributes()
	return p
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Record is a stored rule.
type Record struct {
	ID         string        `json:"id"`
	Site       string        `json:"site"`
	Rule       *consent.Rule `json:"rule"`
	Confidence float64       `json:"confidence"`
	BannerType string        `json:"banner_type"`
	Fallback   bool          `json:"fallback"`
	Tested     bool          `json:"tested"`
	Fragment   string        `json:"fragment,omitempty"`
	CreatedAt  int64         `json:"created_at"`
}

// SaveRule stores rule with its sanitised source fragment.
func (s *Store) SaveRule(ctx context.Context, rule *consent.Rule, fragment string) (*Record, error) {
	if rule == nil {
		return nil, errors.New("store: save rule: nil rule")
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("store: save rule: encode: %w", err)
	}
	rec := &Record{
		ID:         s.newID(),
		Site:       rule.Site,
		Rule:       rule,
		Confidence: rule.Metadata.ConfidenceScore,
		BannerType: rule.Metadata.BannerType,
		Fallback:   rule.Metadata.Fallback,
		Tested:     rule.Metadata.Tested,
		Fragment:   s.policy.Sanitize(fragment),
		CreatedAt:  s.now().UnixMilli(),
	}
	_, err = dbopen.Exec(ctx, s.DB, `
		INSERT INTO rules (id, site, rule_json, confidence, banner_type, fallback, tested, fragment, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Site, string(data), rec.Confidence, rec.BannerType,
		rec.Fallback, rec.Tested, rec.Fragment, rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: save rule: %w", err)
	}
	return rec, nil
}

const ruleColumns = `id, site, rule_json, confidence, banner_type, fallback, tested, fragment, created_at`

// GetRule returns the rule with id, or nil when absent.
func (s *Store) GetRule(ctx context.Context, id string) (*Record, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get rule: %w", err)
	}
	return rec, nil
}

// LatestRule returns the most recent rule for site, or nil.
func (s *Store) LatestRule(ctx context.Context, site string) (*Record, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+ruleColumns+` FROM rules WHERE site = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, site)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest rule: %w", err)
	}
	return rec, nil
}

// ListRules returns rules newest first. An empty site lists every site;
// limit <= 0 means 100.
func (s *Store) ListRules(ctx context.Context, site string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if site == "" {
		rows, err = s.DB.QueryContext(ctx, `
			SELECT `+ruleColumns+` FROM rules
			ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	} else {
		rows, err = s.DB.QueryContext(ctx, `
			SELECT `+ruleColumns+` FROM rules WHERE site = ?
			ORDER BY created_at DESC, id DESC LIMIT ?`, site, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list rules: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list rules: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteRule removes a rule and its validations. It reports whether a row
// was deleted.
func (s *Store) DeleteRule(ctx context.Context, id string) (bool, error) {
	res, err := dbopen.Exec(ctx, s.DB, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("store: delete rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete rule: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		rec  Record
		data string
	)
	if err := sc.Scan(&rec.ID, &rec.Site, &data, &rec.Confidence, &rec.BannerType,
		&rec.Fallback, &rec.Tested, &rec.Fragment, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Rule = &consent.Rule{}
	if err := json.Unmarshal([]byte(data), rec.Rule); err != nil {
		return nil, fmt.Errorf("decode rule %s: %w", rec.ID, err)
	}
	return &rec, nil
}

// Validation is one recorded harness outcome.
type Validation struct {
	ID        string          `json:"id"`
	RuleID    string          `json:"rule_id"`
	Success   bool            `json:"success"`
	Outcome   json.RawMessage `json:"outcome"`
	CreatedAt int64           `json:"created_at"`
}

// RecordValidation stores a harness outcome for ruleID. A successful outcome
// also marks the stored rule as tested.
func (s *Store) RecordValidation(ctx context.Context, ruleID string, success bool, outcome any) (*Validation, error) {
	data, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("store: record validation: encode: %w", err)
	}
	v := &Validation{
		ID:        s.newID(),
		RuleID:    ruleID,
		Success:   success,
		Outcome:   data,
		CreatedAt: s.now().UnixMilli(),
	}

	err = dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		var ruleJSON string
		err := tx.QueryRowContext(ctx, `SELECT rule_json FROM rules WHERE id = ?`, ruleID).Scan(&ruleJSON)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("rule %q not found", ruleID)
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO validations (id, rule_id, success, outcome_json, created_at)
			VALUES (?,?,?,?,?)`, v.ID, v.RuleID, v.Success, string(v.Outcome), v.CreatedAt); err != nil {
			return err
		}
		if !success {
			return nil
		}

		var rule consent.Rule
		if err := json.Unmarshal([]byte(ruleJSON), &rule); err != nil {
			return fmt.Errorf("decode rule: %w", err)
		}
		rule.Metadata.Tested = true
		updated, err := json.Marshal(&rule)
		if err != nil {
			return fmt.Errorf("encode rule: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE rules SET tested = 1, rule_json = ? WHERE id = ?`, string(updated), ruleID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: record validation: %w", err)
	}
	return v, nil
}

// ListValidations returns the outcomes recorded for ruleID, newest first.
func (s *Store) ListValidations(ctx context.Context, ruleID string) ([]*Validation, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, rule_id, success, outcome_json, created_at
		FROM validations WHERE rule_id = ?
		ORDER BY created_at DESC, id DESC`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("store: list validations: %w", err)
	}
	defer rows.Close()

	var out []*Validation
	for rows.Next() {
		var (
			v       Validation
			outcome string
		)
		if err := rows.Scan(&v.ID, &v.RuleID, &v.Success, &outcome, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: list validations: %w", err)
		}
		v.Outcome = json.RawMessage(outcome)
		out = append(out, &v)
	}
	return out, rows.Err()
}
