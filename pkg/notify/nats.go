package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject prefixes every published event.
const DefaultSubject = "gantry.events"

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes events as JSON to "<subject>.<event type>".
type NATSNotifier struct {
	pub     publisher
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSNotifier connects to the NATS server at url. The connection keeps
// reconnecting in the background for as long as the notifier is open.
func NewNATSNotifier(url, subject string, logger *slog.Logger) (*NATSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "notify"))
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url,
		nats.Name("gantry-controller"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	n := newNATSNotifier(nc, subject, logger)
	n.conn = nc
	return n, nil
}

func newNATSNotifier(pub publisher, subject string, logger *slog.Logger) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{pub: pub, subject: subject, logger: logger}
}

// Subject returns the subject an event of type t is published on.
func (n *NATSNotifier) Subject(t EventType) string {
	return n.subject + "." + string(t)
}

// Notify publishes the event.
func (n *NATSNotifier) Notify(ctx context.Context, event Event) error {
	if n.conn != nil && n.conn.IsClosed() {
		return errors.New("nats connection closed")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	if err := n.pub.Publish(n.Subject(event.Type), data); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending events and closes the connection.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	err := n.conn.Drain()
	n.conn.Close()
	return err
}
