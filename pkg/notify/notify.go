// Package notify tells the outside world about provisioning outcomes and
// node lifecycle changes.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// EventType names what happened.
type EventType string

const (
	ServerCreated EventType = "server.created"
	ServerFailed  EventType = "server.failed"
	NodeOnline    EventType = "node.online"
	NodeRefused   EventType = "node.refused"
)

// Event is one notification.
type Event struct {
	Type    EventType `json:"type"`
	Node    string    `json:"node,omitempty"`
	Server  string    `json:"server,omitempty"`
	Subject string    `json:"subject,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Notifier delivers events. Delivery failures are reported but never undo
// the action being reported.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
	Close() error
}

// Notifier types accepted by Open.
const (
	TypeLog     = "log"
	TypeNATS    = "nats"
	TypeWebhook = "webhook"
)

// Config selects and configures a notifier.
type Config struct {
	Type string
	// URL is the NATS server for "nats" and the endpoint for "webhook".
	URL     string
	Subject string
	// Headers are added to every webhook request.
	Headers map[string]string
	Timeout time.Duration
}

// Open builds the notifier described by cfg.
func Open(cfg Config, logger *slog.Logger) (Notifier, error) {
	switch cfg.Type {
	case "", TypeLog:
		return NewLogNotifier(logger), nil
	case TypeNATS:
		n, err := NewNATSNotifier(cfg.URL, cfg.Subject, logger)
		if err != nil {
			return nil, err
		}
		return n, nil
	case TypeWebhook:
		if cfg.URL == "" {
			return nil, errors.New("webhook notifier needs a url")
		}
		return NewWebhookNotifier(WebhookConfig{URL: cfg.URL, Headers: cfg.Headers, Timeout: cfg.Timeout}, logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier type %q", cfg.Type)
	}
}

// Multi fans an event out to several notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, n := range m {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
