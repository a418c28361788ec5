package sink

import "context"

// RuleFunc is called for each rule.
type RuleFunc func(ctx context.Context, d RuleDelivery) error

// ValidationFunc is called for each validation outcome.
type ValidationFunc func(ctx context.Context, v ValidationDelivery) error

// Callback delivers through Go function calls, for embedding cmpmap in a
// process that consumes rules directly.
type Callback struct {
	onRule       RuleFunc
	onValidation ValidationFunc
}

// NewCallback creates a Callback sink. Either handler may be nil.
func NewCallback(onRule RuleFunc, onValidation ValidationFunc) *Callback {
	return &Callback{onRule: onRule, onValidation: onValidation}
}

func (c *Callback) SendRule(ctx context.Context, d RuleDelivery) error {
	if c.onRule != nil {
		return c.onRule(ctx, d)
	}
	return nil
}

func (c *Callback) SendValidation(ctx context.Context, v ValidationDelivery) error {
	if c.onValidation != nil {
		return c.onValidation(ctx, v)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
