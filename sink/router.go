package sink

import (
	"context"
	"log/slog"
)

// Router fans out to all configured sinks. One sink error does not block
// the others; errors are logged and the first encountered is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Len returns the number of routed sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) SendRule(ctx context.Context, d RuleDelivery) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.SendRule(ctx, d); err != nil {
			r.logger.Warn("sink: send rule failed", "rule_id", d.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) SendValidation(ctx context.Context, v ValidationDelivery) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.SendValidation(ctx, v); err != nil {
			r.logger.Warn("sink: send validation failed", "rule_id", v.RuleID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
