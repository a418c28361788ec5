// Package sink delivers generated rules and validation outcomes to
// downstream consumers (stdout, webhook, NATS, in-process callback).
package sink

import (
	"context"

	"github.com/hazyhaar/cmpmap/consent"
)

// Sink is the output interface.
type Sink interface {
	SendRule(ctx context.Context, d RuleDelivery) error
	SendValidation(ctx context.Context, v ValidationDelivery) error
	Close() error
}

// RuleDelivery is an accepted detection ready for an automation engine.
type RuleDelivery struct {
	ID    string        `json:"id,omitempty"`
	URL   string        `json:"url,omitempty"`
	Level string        `json:"level,omitempty"`
	Rule  *consent.Rule `json:"rule"`
}

// ValidationDelivery is a harness outcome for a stored rule.
type ValidationDelivery struct {
	RuleID   string          `json:"rule_id"`
	Site     string          `json:"site"`
	Success  bool            `json:"success"`
	Outcomes map[string]bool `json:"outcomes"`
}

// Envelope types.
const (
	TypeRule       = "rule"
	TypeValidation = "validation"
)

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
