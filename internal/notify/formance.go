package notify

import (
	"context"
	"fmt"

	"ledger-admin-go/internal/formance"
	"ledger-admin-go/internal/models"

	"github.com/shopspring/decimal"
)

// AdjustmentPoster mirrors one applied adjustment into an external ledger.
type AdjustmentPoster interface {
	PostAdjustment(ctx context.Context, p formance.Posting) error
}

// FormanceSink mirrors every notification that carries a balance change into
// a Formance ledger. Notifications without an adjustment are ignored.
type FormanceSink struct {
	poster AdjustmentPoster
}

func NewFormanceSink(poster AdjustmentPoster) *FormanceSink {
	return &FormanceSink{poster: poster}
}

func (s *FormanceSink) Name() string { return "formance" }

func (s *FormanceSink) Deliver(ctx context.Context, n models.Notification) error {
	posting, ok, err := PostingFromNotification(n)
	if err != nil || !ok {
		return err
	}
	return s.poster.PostAdjustment(ctx, posting)
}

// PostingFromNotification extracts the adjustment carried in a notification
// payload. ok is false when there is none.
func PostingFromNotification(n models.Notification) (formance.Posting, bool, error) {
	adjustmentId := n.Payload[KeyAdjustmentId]
	if adjustmentId == "" {
		return formance.Posting{}, false, nil
	}
	applied, err := decimal.NewFromString(n.Payload[KeyAppliedAmount])
	if err != nil {
		return formance.Posting{}, false, fmt.Errorf("invalid applied amount in notification %s: %w", n.Id, err)
	}
	return formance.Posting{
		AdjustmentId:   adjustmentId,
		AdjustmentType: n.Payload[KeyAdjustmentType],
		UserId:         n.UserId,
		ActorId:        n.Payload[KeyActorId],
		Asset:          n.Payload[KeyAsset],
		AppliedAmount:  applied,
	}, true, nil
}
