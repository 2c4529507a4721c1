package notify

import (
	"context"
	"fmt"
	"time"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outbox writes notifications to the store for the relay to deliver. It is
// called after the action's transaction has committed, so a failure here
// never rolls the action back.
type Outbox struct {
	store store.LedgerStore
}

func NewOutbox(ledgerStore store.LedgerStore) *Outbox {
	return &Outbox{store: ledgerStore}
}

func (o *Outbox) Enqueue(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return nil
	}
	if n.Id == "" {
		n.Id = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.Status = models.NotificationPending

	if err := o.store.InsertNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to enqueue %s notification: %w", n.Kind, err)
	}

	zap.L().Debug("Notification queued",
		zap.String("notification_id", n.Id),
		zap.String("user_id", n.UserId),
		zap.String("kind", string(n.Kind)))
	return nil
}
