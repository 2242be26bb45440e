package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
)

// Log writes events to the application log when no broker is configured.
type Log struct {
	logger *zap.Logger
}

var _ audit.Sink = (*Log)(nil)

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Publish(_ context.Context, ev audit.Event) error {
	l.logger.Info("event",
		zap.String("event_id", ev.ID.String()),
		zap.String("action", ev.Action),
		zap.String("entity", ev.Entity),
		zap.String("entity_id", ev.EntityID.String()),
		zap.Any("metadata", ev.Metadata),
	)
	return nil
}
