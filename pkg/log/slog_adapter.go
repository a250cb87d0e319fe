package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger at debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
	}
	if event.SubscriptionID != 0 {
		attrs = append(attrs, slog.Uint64("subscription_id", uint64(event.SubscriptionID)))
	}
	if event.Worker != nil {
		attrs = append(attrs, slog.Int("worker", *event.Worker))
	}

	switch {
	case event.Service != nil:
		attrs = append(attrs,
			slog.String("service", event.Service.Service.String()),
			slog.Uint64("handle", uint64(event.Service.RequestHandle)),
		)
		if event.Service.Status != 0 {
			attrs = append(attrs, slog.String("status", StatusText(event.Service.Status)))
		}
		if len(event.Service.Acks) > 0 {
			attrs = append(attrs, slog.Int("acks", len(event.Service.Acks)))
		}
		if event.Service.Duration != nil {
			attrs = append(attrs, slog.Duration("duration", *event.Service.Duration))
		}
	case event.Notification != nil:
		n := event.Notification
		attrs = append(attrs,
			slog.Uint64("seq", uint64(n.SequenceNumber)),
			slog.String("kind", n.Kind.String()),
			slog.Int("count", n.Count),
		)
		if n.Republished {
			attrs = append(attrs, slog.Bool("republished", true))
		}
		if n.Dropped {
			attrs = append(attrs, slog.Bool("dropped", true))
		}
		if n.Lost {
			attrs = append(attrs, slog.Bool("lost", true))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.String("error_code", StatusText(*event.Error.Code)))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
