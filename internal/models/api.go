/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ErrorKind classifies a failed action so callers can render precise messages
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindUserNotFound      ErrorKind = "user_not_found"
	KindRequestNotFound   ErrorKind = "request_not_found"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindAlreadyProcessed  ErrorKind = "already_processed"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindDuplicateAccount  ErrorKind = "duplicate_account"
	KindPartialFailure    ErrorKind = "partial_failure"
)

// Retryable reports whether repeating the whole action may succeed
func (k ErrorKind) Retryable() bool {
	return k == KindPartialFailure
}

// ActionResult is the common outcome of every façade action
type ActionResult struct {
	Success   bool      `json:"success"`
	Kind      ErrorKind `json:"kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	Retryable bool      `json:"retryable,omitempty"`
}

// Failure builds a failed ActionResult of the given kind
func Failure(kind ErrorKind, message string) ActionResult {
	return ActionResult{
		Success:   false,
		Kind:      kind,
		Error:     message,
		Retryable: kind.Retryable(),
	}
}

// AdjustmentResult represents the result of a balance-changing action
type AdjustmentResult struct {
	ActionResult
	UserId          string          `json:"user_id,omitempty"`
	Asset           string          `json:"asset,omitempty"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	Adjustment      *Adjustment     `json:"adjustment,omitempty"`
}

// RequestResult represents the result of a queue action
type RequestResult struct {
	ActionResult
	Request    *FundsRequest `json:"request,omitempty"`
	Adjustment *Adjustment   `json:"adjustment,omitempty"`
}

// OverrideResult represents the result of a trade-outcome change
type OverrideResult struct {
	ActionResult
	Log *TradeOutcomeLog `json:"log,omitempty"`
}

// AccountResult represents the result of an account administration action
type AccountResult struct {
	ActionResult
	Account *Account `json:"account,omitempty"`
}

// UserBalance represents a user's balance for a specific asset
type UserBalance struct {
	Asset   string          `json:"asset"`
	Balance decimal.Decimal `json:"balance"`
}

// AdjustmentRecord represents an adjustment in the user's history
type AdjustmentRecord struct {
	Id              string          `json:"id"`
	Type            AdjustmentType  `json:"type"`
	Asset           string          `json:"asset"`
	SignedAmount    decimal.Decimal `json:"signed_amount"`
	AppliedAmount   decimal.Decimal `json:"applied_amount"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	Reason          string          `json:"reason"`
	ActorId         string          `json:"actor_id"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TradeOutcome is what the settlement collaborator reads when closing a trade
type TradeOutcome struct {
	UserId string       `json:"user_id"`
	Mode   OutcomeMode  `json:"mode"`
	Scope  OutcomeScope `json:"scope"`
}

// AssetAmount pairs a count and a total for one asset
type AssetAmount struct {
	Asset string          `json:"asset"`
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// PlatformStats holds aggregate figures for the admin dashboard
type PlatformStats struct {
	TotalAccounts        int64         `json:"total_accounts"`
	ActiveAccounts       int64         `json:"active_accounts"`
	SuspendedAccounts    int64         `json:"suspended_accounts"`
	BannedAccounts       int64         `json:"banned_accounts"`
	PendingKYC           int64         `json:"pending_kyc"`
	OverriddenAccounts   int64         `json:"overridden_accounts"`
	PendingDeposits      []AssetAmount `json:"pending_deposits"`
	PendingWithdrawals   []AssetAmount `json:"pending_withdrawals"`
	BalancesByAsset      []AssetAmount `json:"balances_by_asset"`
	AdjustmentsLast24h   int64         `json:"adjustments_last_24h"`
	ActiveTradersLast24h int64         `json:"active_traders_last_24h"`
	GeneratedAt          time.Time     `json:"generated_at"`
}

// Reconciliation compares a stored balance against the sum of its adjustments
type Reconciliation struct {
	UserId      string          `json:"user_id"`
	Asset       string          `json:"asset"`
	Balance     decimal.Decimal `json:"balance"`
	Computed    decimal.Decimal `json:"computed"`
	Adjustments int64           `json:"adjustments"`
	Consistent  bool            `json:"consistent"`
}
