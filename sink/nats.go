package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject prefixes published subjects: <prefix>.rule and
// <prefix>.validation.
const DefaultSubject = "cmpmap"

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes JSON envelopes on a subject per envelope type.
type NATS struct {
	pub     publisher
	conn    *nats.Conn
	subject string
}

// NewNATS connects to url. An empty subject means DefaultSubject.
func NewNATS(url, subject string, opts ...nats.Option) (*NATS, error) {
	opts = append([]nats.Option{
		nats.Name("cmpmap"),
		nats.Timeout(5 * time.Second),
	}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", url, err)
	}
	n := newNATS(nc, subject)
	n.conn = nc
	return n, nil
}

func newNATS(pub publisher, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{pub: pub, subject: subject}
}

func (n *NATS) SendRule(_ context.Context, d RuleDelivery) error {
	return n.publish(TypeRule, envelope{Type: TypeRule, Data: d})
}

func (n *NATS) SendValidation(_ context.Context, v ValidationDelivery) error {
	return n.publish(TypeValidation, envelope{Type: TypeValidation, Data: v})
}

func (n *NATS) publish(typ string, e envelope) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("nats: marshal: %w", err)
	}
	if err := n.pub.Publish(n.subject+"."+typ, data); err != nil {
		return fmt.Errorf("nats: publish: %w", err)
	}
	return nil
}

// Close drains the connection.
func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
