package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes events to a structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log notifier. A nil logger means slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "notify"))}
}

// Notify logs the event. Failures are logged at Warn.
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	level := slog.LevelInfo
	if event.Type == ServerFailed || event.Type == NodeRefused {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{slog.String("type", string(event.Type))}
	if event.Node != "" {
		attrs = append(attrs, slog.String("node", event.Node))
	}
	if event.Server != "" {
		attrs = append(attrs, slog.String("server", event.Server))
	}
	if event.Subject != "" {
		attrs = append(attrs, slog.String("subject", event.Subject))
	}
	if event.Message != "" {
		attrs = append(attrs, slog.String("message", event.Message))
	}
	n.logger.LogAttrs(ctx, level, "event", attrs...)
	return nil
}

func (n *LogNotifier) Close() error { return nil }
