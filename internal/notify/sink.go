package notify

import (
	"context"

	"ledger-admin-go/internal/models"

	"go.uber.org/zap"
)

// Sink delivers one notification to an external system. Deliver must be
// idempotent on n.Id: the relay may hand the same notification over again
// after a crash or a failed mark.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n models.Notification) error
}

// LogSink writes every notification to the structured log.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Deliver(_ context.Context, n models.Notification) error {
	zap.L().Info("Notification delivered",
		zap.String("notification_id", n.Id),
		zap.String("user_id", n.UserId),
		zap.String("kind", string(n.Kind)),
		zap.String("title", n.Title),
		zap.String("message", n.Message))
	return nil
}
