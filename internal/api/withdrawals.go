package api

import (
	"context"
	"fmt"
	"strings"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/notify"
	"ledger-admin-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RequestWithdrawal queues a withdrawal for the caller's own account. The
// amount is held immediately and refunded if an admin rejects the request.
func (s *AdminService) RequestWithdrawal(ctx context.Context, actor models.Actor, asset string, amount decimal.Decimal, destination string) *models.RequestResult {
	const action = "request withdrawal"
	if err := s.requireUser(actor, action); err != nil {
		return requestFailure(action, err, "")
	}

	req, hold, err := s.ledger.CreateWithdrawalRequest(ctx, actor.Id, asset, amount, destination)
	if err != nil {
		return requestFailure(action, err, "",
			zap.String("user_id", actor.Id),
			zap.String("asset", asset),
			zap.String("amount", amount.String()))
	}

	s.notify(ctx, notify.ForRequest(req, hold))
	return &models.RequestResult{ActionResult: success(), Request: req, Adjustment: hold}
}

// ApproveWithdrawal finalizes a pending withdrawal with its on-chain hash
func (s *AdminService) ApproveWithdrawal(ctx context.Context, actor models.Actor, requestId, txHash string) *models.RequestResult {
	const action = "approve withdrawal"
	if err := s.requireAdmin(actor, action); err != nil {
		return requestFailure(action, err, requestId)
	}
	if strings.TrimSpace(txHash) == "" {
		return requestFailure(action, fmt.Errorf("%w: transaction hash is required", store.ErrInvalidInput), requestId)
	}

	req, err := s.ledger.ApproveWithdrawal(ctx, requestId, txHash, actor.Id)
	if err != nil {
		return requestFailure(action, err, requestId)
	}

	s.notify(ctx, notify.ForRequest(req, nil))
	return &models.RequestResult{ActionResult: success(), Request: req}
}

// RejectWithdrawal rejects a pending withdrawal and refunds the held amount
func (s *AdminService) RejectWithdrawal(ctx context.Context, actor models.Actor, requestId, reason string) *models.RequestResult {
	const action = "reject withdrawal"
	if err := s.requireAdmin(actor, action); err != nil {
		return requestFailure(action, err, requestId)
	}
	if err := requireReason(reason); err != nil {
		return requestFailure(action, err, requestId)
	}

	req, refund, err := s.ledger.RejectWithdrawal(ctx, requestId, reason, actor.Id)
	if err != nil {
		return requestFailure(action, err, requestId)
	}

	s.notify(ctx, notify.ForRequest(req, refund))
	return &models.RequestResult{ActionResult: success(), Request: req, Adjustment: refund}
}

// ListRequests returns queue items for the admin console
func (s *AdminService) ListRequests(ctx context.Context, actor models.Actor, filter store.RequestFilter) ([]models.FundsRequest, error) {
	if err := s.requireAdmin(actor, "list requests"); err != nil {
		return nil, err
	}
	return s.ledger.ListRequests(ctx, filter)
}

func (s *AdminService) GetRequest(ctx context.Context, actor models.Actor, requestId string) (*models.FundsRequest, error) {
	if err := s.requireAdmin(actor, "get request"); err != nil {
		return nil, err
	}
	return s.ledger.GetRequest(ctx, requestId)
}

// MyRequests returns the caller's own deposit and withdrawal requests
func (s *AdminService) MyRequests(ctx context.Context, actor models.Actor, filter store.RequestFilter) ([]models.FundsRequest, error) {
	if err := s.requireUser(actor, "my requests"); err != nil {
		return nil, err
	}
	filter.UserId = actor.Id
	return s.ledger.ListRequests(ctx, filter)
}
