package enrich

import (
	"errors"
	"sync"
	"time"
)

// ErrUnavailable is returned without contacting the endpoint while the
// breaker is open.
var ErrUnavailable = errors.New("enrich: endpoint unavailable")

// State is the breaker state.
type State int

const (
	Closed   State = iota // calls pass through
	Open                  // calls are refused
	HalfOpen              // probe calls decide whether to close again
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "closed"
}

// Breaker stops enrichment calls after consecutive failures so that a dead
// endpoint does not add its timeout to every detection.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	probes    int
	threshold int
	cooldown  time.Duration
	probesMax int
	openedAt  time.Time
	now       func() time.Time
}

// NewBreaker opens after threshold consecutive failures and stays open for
// cooldown. Two successful probes close it again.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, probesMax: 2, now: time.Now}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

// Allow reports whether a call may go out.
func (b *Breaker) Allow() bool {
	return b.State() != Open
}

// Success records a successful call.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	switch b.state {
	case HalfOpen:
		b.probes++
		if b.probes >= b.probesMax {
			b.state, b.failures, b.probes = Closed, 0, 0
		}
	case Closed:
		b.failures = 0
	}
}

// Failure records a failed call.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	switch b.state {
	case Closed:
		b.failures++
		if b.failures >= b.threshold {
			b.state, b.openedAt = Open, b.now()
		}
	case HalfOpen:
		b.state, b.openedAt, b.probes = Open, b.now(), 0
	}
}

// advance moves an open breaker to half-open once the cooldown elapsed.
// mu must be held.
func (b *Breaker) advance() {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state, b.probes = HalfOpen, 0
	}
}
