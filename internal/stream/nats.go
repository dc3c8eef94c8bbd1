package stream

import (
	"context"
	"io"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/besselect/internal/bes"
	"git.home.luguber.info/inful/besselect/internal/foundation"
)

// NATSSource receives build events published one per message on a NATS
// subject. The stream ends with the lastMessage event.
type NATSSource struct {
	conn *nats.Conn
	sub  *nats.Subscription
	done bool
}

// NewNATSSource connects to the given server and subscribes to the subject.
func NewNATSSource(url, subject string) (*NATSSource, error) {
	conn, err := nats.Connect(url, nats.Name("besselect"))
	if err != nil {
		return nil, foundation.ExternalError("failed to connect to nats").
			WithCause(err).
			WithContext(foundation.Fields{"url": url}).
			Build()
	}
	sub, err := conn.SubscribeSync(subject)
	if err != nil {
		conn.Close()
		return nil, foundation.ExternalError("failed to subscribe").
			WithCause(err).
			WithContext(foundation.Fields{"subject": subject}).
			Build()
	}
	return &NATSSource{conn: conn, sub: sub}, nil
}

// Next blocks for the next message and decodes it. It returns io.EOF after
// the lastMessage event.
func (s *NATSSource) Next(ctx context.Context) (*bes.BuildEvent, error) {
	if s.done {
		return nil, io.EOF
	}
	msg, err := s.sub.NextMsgWithContext(ctx)
	if err != nil {
		return nil, err
	}
	event, err := bes.Decode(msg.Data)
	if err != nil {
		return nil, err
	}
	if event.LastMessage {
		s.done = true
	}
	return event, nil
}

// Close drains the subscription and closes the connection.
func (s *NATSSource) Close() error {
	err := s.sub.Unsubscribe()
	s.conn.Close()
	return err
}
