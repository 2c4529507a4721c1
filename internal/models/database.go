package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the per-user profile row provisioned on first sign-in
type Account struct {
	UserId            string        `json:"user_id" db:"user_id"`
	Email             string        `json:"email" db:"email"`
	DisplayName       string        `json:"display_name" db:"display_name"`
	KYCStatus         KYCStatus     `json:"kyc_status" db:"kyc_status"`
	AccountStatus     AccountStatus `json:"account_status" db:"account_status"`
	TradeOutcomeMode  OutcomeMode   `json:"trade_outcome_mode" db:"trade_outcome_mode"`
	TradeOutcomeScope OutcomeScope  `json:"trade_outcome_scope" db:"trade_outcome_scope"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// AccountBalance represents current balance state for one (user, asset) pair
type AccountBalance struct {
	Id               string          `json:"id" db:"id"`
	UserId           string          `json:"user_id" db:"user_id"`
	Asset            string          `json:"asset" db:"asset"`
	Balance          decimal.Decimal `json:"balance" db:"balance"`
	LastAdjustmentId string          `json:"last_adjustment_id" db:"last_adjustment_id"`
	Version          int64           `json:"version" db:"version"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Adjustment is the immutable audit record written with every balance change.
// SignedAmount is what the caller asked for, AppliedAmount is NewBalance-PreviousBalance.
type Adjustment struct {
	Id              string          `json:"id" db:"id"`
	ActorId         string          `json:"actor_id" db:"actor_id"`
	UserId          string          `json:"user_id" db:"user_id"`
	Asset           string          `json:"asset" db:"asset"`
	Type            AdjustmentType  `json:"adjustment_type" db:"adjustment_type"`
	SignedAmount    decimal.Decimal `json:"signed_amount" db:"signed_amount"`
	AppliedAmount   decimal.Decimal `json:"applied_amount" db:"applied_amount"`
	Reason          string          `json:"reason" db:"reason"`
	PreviousBalance decimal.Decimal `json:"previous_balance" db:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance" db:"new_balance"`
	RelatedId       string          `json:"related_id" db:"related_id"`
	RelatedType     string          `json:"related_type" db:"related_type"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// Clamped reports whether the applied amount differs from the requested one
func (a *Adjustment) Clamped() bool {
	return !a.SignedAmount.Equal(a.AppliedAmount)
}

// FundsRequest is a deposit or withdrawal queue item
type FundsRequest struct {
	Id                 string          `json:"id" db:"id"`
	Type               RequestType     `json:"request_type" db:"request_type"`
	UserId             string          `json:"user_id" db:"user_id"`
	Asset              string          `json:"asset" db:"asset"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	Status             RequestStatus   `json:"status" db:"status"`
	DestinationAddress string          `json:"destination_address" db:"destination_address"`
	TxHash             string          `json:"tx_hash" db:"tx_hash"`
	HoldAdjustmentId   string          `json:"hold_adjustment_id" db:"hold_adjustment_id"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt        *time.Time      `json:"processed_at,omitempty" db:"processed_at"`
	ProcessedBy        string          `json:"processed_by" db:"processed_by"`
	AdminNotes         string          `json:"admin_notes" db:"admin_notes"`
}

// TradeOutcomeLog records one change of a user's override flag
type TradeOutcomeLog struct {
	Id            string       `json:"id" db:"id"`
	AdminId       string       `json:"admin_id" db:"admin_id"`
	UserId        string       `json:"user_id" db:"user_id"`
	PreviousMode  OutcomeMode  `json:"previous_mode" db:"previous_mode"`
	NewMode       OutcomeMode  `json:"new_mode" db:"new_mode"`
	PreviousScope OutcomeScope `json:"previous_scope" db:"previous_scope"`
	Scope         OutcomeScope `json:"scope" db:"scope"`
	Reason        string       `json:"reason" db:"reason"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// AuditEntry records KYC and account status changes
type AuditEntry struct {
	Id            string    `json:"id" db:"id"`
	ActorId       string    `json:"actor_id" db:"actor_id"`
	UserId        string    `json:"user_id" db:"user_id"`
	Action        string    `json:"action" db:"action"`
	PreviousValue string    `json:"previous_value" db:"previous_value"`
	NewValue      string    `json:"new_value" db:"new_value"`
	Reason        string    `json:"reason" db:"reason"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Notification is an outbox row delivered by the relay
type Notification struct {
	Id          string             `json:"id" db:"id"`
	UserId      string             `json:"user_id" db:"user_id"`
	Kind        NotificationKind   `json:"kind" db:"kind"`
	Title       string             `json:"title" db:"title"`
	Message     string             `json:"message" db:"message"`
	Payload     map[string]string  `json:"payload" db:"payload"`
	Status      NotificationStatus `json:"status" db:"status"`
	Attempts    int                `json:"attempts" db:"attempts"`
	LastError   string             `json:"last_error" db:"last_error"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
	DeliveredAt *time.Time         `json:"delivered_at,omitempty" db:"delivered_at"`
}
