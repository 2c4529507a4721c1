package notify

import (
	"fmt"

	"ledger-admin-go/internal/models"
)

// Payload keys shared by the builders and the sinks.
const (
	KeyAdjustmentId    = "adjustment_id"
	KeyAdjustmentType  = "adjustment_type"
	KeyAsset           = "asset"
	KeySignedAmount    = "signed_amount"
	KeyAppliedAmount   = "applied_amount"
	KeyPreviousBalance = "previous_balance"
	KeyNewBalance      = "new_balance"
	KeyRequestId       = "request_id"
	KeyRequestType     = "request_type"
	KeyRequestStatus   = "request_status"
	KeyAmount          = "amount"
	KeyTxHash          = "tx_hash"
	KeyReason          = "reason"
	KeyActorId         = "actor_id"
)

// ForAdjustment describes a direct balance change.
func ForAdjustment(adj *models.Adjustment) *models.Notification {
	if adj == nil {
		return nil
	}
	payload := adjustmentPayload(adj)
	return &models.Notification{
		UserId:  adj.UserId,
		Kind:    models.NotifyBalanceAdjusted,
		Title:   "Balance updated",
		Message: fmt.Sprintf("Your %s balance changed by %s. New balance: %s.", adj.Asset, signed(adj), adj.NewBalance.String()),
		Payload: payload,
	}
}

// ForRequest describes a queue event. adj is the ledger effect of the event,
// if any, and is carried in the payload.
func ForRequest(req *models.FundsRequest, adj *models.Adjustment) *models.Notification {
	if req == nil {
		return nil
	}

	var kind models.NotificationKind
	var title, message string
	switch {
	case req.Type == models.RequestDeposit && req.Status == models.RequestPending:
		kind, title = models.NotifyDepositRequested, "Deposit requested"
		message = fmt.Sprintf("Your deposit of %s %s is awaiting review.", req.Amount.String(), req.Asset)
	case req.Type == models.RequestDeposit && req.Status == models.RequestApproved:
		kind, title = models.NotifyDepositApproved, "Deposit approved"
		message = fmt.Sprintf("Your deposit of %s %s has been credited.", req.Amount.String(), req.Asset)
	case req.Type == models.RequestDeposit:
		kind, title = models.NotifyDepositRejected, "Deposit rejected"
		message = fmt.Sprintf("Your deposit of %s %s was rejected: %s", req.Amount.String(), req.Asset, req.AdminNotes)
	case req.Status == models.RequestPending:
		kind, title = models.NotifyWithdrawalHeld, "Withdrawal requested"
		message = fmt.Sprintf("Your withdrawal of %s %s is awaiting review. The funds are on hold.", req.Amount.String(), req.Asset)
	case req.Status == models.RequestApproved:
		kind, title = models.NotifyWithdrawalSent, "Withdrawal sent"
		message = fmt.Sprintf("Your withdrawal of %s %s has been sent. Transaction: %s", req.Amount.String(), req.Asset, req.TxHash)
	default:
		kind, title = models.NotifyWithdrawalRefund, "Withdrawal rejected"
		message = fmt.Sprintf("Your withdrawal of %s %s was rejected and refunded: %s", req.Amount.String(), req.Asset, req.AdminNotes)
	}

	payload := map[string]string{
		KeyRequestId:     req.Id,
		KeyRequestType:   string(req.Type),
		KeyRequestStatus: string(req.Status),
		KeyAsset:         req.Asset,
		KeyAmount:        req.Amount.String(),
	}
	if req.TxHash != "" {
		payload[KeyTxHash] = req.TxHash
	}
	if req.AdminNotes != "" {
		payload[KeyReason] = req.AdminNotes
	}
	if adj != nil {
		for k, v := range adjustmentPayload(adj) {
			payload[k] = v
		}
	}

	return &models.Notification{
		UserId:  req.UserId,
		Kind:    kind,
		Title:   title,
		Message: message,
		Payload: payload,
	}
}

// ForAccount describes a KYC or account status change.
func ForAccount(account *models.Account, kind models.NotificationKind, reason string) *models.Notification {
	if account == nil {
		return nil
	}
	n := &models.Notification{
		UserId:  account.UserId,
		Kind:    kind,
		Payload: map[string]string{KeyReason: reason},
	}
	if kind == models.NotifyKYCStatus {
		n.Title = "Verification status updated"
		n.Message = fmt.Sprintf("Your verification status is now %s.", account.KYCStatus)
		n.Payload["kyc_status"] = string(account.KYCStatus)
	} else {
		n.Title = "Account status updated"
		n.Message = fmt.Sprintf("Your account is now %s.", account.AccountStatus)
		n.Payload["account_status"] = string(account.AccountStatus)
	}
	return n
}

func adjustmentPayload(adj *models.Adjustment) map[string]string {
	return map[string]string{
		KeyAdjustmentId:    adj.Id,
		KeyAdjustmentType:  string(adj.Type),
		KeyAsset:           adj.Asset,
		KeySignedAmount:    adj.SignedAmount.String(),
		KeyAppliedAmount:   adj.AppliedAmount.String(),
		KeyPreviousBalance: adj.PreviousBalance.String(),
		KeyNewBalance:      adj.NewBalance.String(),
		KeyActorId:         adj.ActorId,
	}
}

func signed(adj *models.Adjustment) string {
	if adj.AppliedAmount.IsPositive() {
		return "+" + adj.AppliedAmount.String()
	}
	return adj.AppliedAmount.String()
}
