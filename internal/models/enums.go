package models

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

func (s KYCStatus) Valid() bool {
	switch s {
	case KYCPending, KYCApproved, KYCRejected:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountBanned    AccountStatus = "banned"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountSuspended, AccountBanned:
		return true
	}
	return false
}

// OutcomeMode is read by the settlement process when it closes a trade
type OutcomeMode string

const (
	OutcomeDefault   OutcomeMode = "default"
	OutcomeForceWin  OutcomeMode = "force_win"
	OutcomeForceLoss OutcomeMode = "force_loss"
)

func (m OutcomeMode) Valid() bool {
	switch m {
	case OutcomeDefault, OutcomeForceWin, OutcomeForceLoss:
		return true
	}
	return false
}

type OutcomeScope string

const (
	ScopeAllTrades OutcomeScope = "all_trades"
	ScopeNewTrades OutcomeScope = "new_trades"
)

func (s OutcomeScope) Valid() bool {
	switch s {
	case ScopeAllTrades, ScopeNewTrades:
		return true
	}
	return false
}

type RequestType string

const (
	RequestDeposit    RequestType = "deposit"
	RequestWithdrawal RequestType = "withdrawal"
)

func (t RequestType) Valid() bool {
	return t == RequestDeposit || t == RequestWithdrawal
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed
func (s RequestStatus) Terminal() bool {
	return s == RequestApproved || s == RequestRejected
}

type AdjustmentType string

const (
	AdjustmentAdminCredit      AdjustmentType = "admin_credit"
	AdjustmentAdminDebit       AdjustmentType = "admin_debit"
	AdjustmentManual           AdjustmentType = "adjustment"
	AdjustmentDeposit          AdjustmentType = "deposit"
	AdjustmentWithdrawalHold   AdjustmentType = "withdrawal_hold"
	AdjustmentWithdrawalRefund AdjustmentType = "withdrawal_refund"
	AdjustmentSettlement       AdjustmentType = "settlement"
)

// DebitPolicy decides what happens when a debit exceeds the balance
type DebitPolicy string

const (
	DebitClamp  DebitPolicy = "clamp"
	DebitStrict DebitPolicy = "strict"
)

func (p DebitPolicy) Valid() bool {
	return p == DebitClamp || p == DebitStrict
}

type NotificationKind string

const (
	NotifyBalanceAdjusted  NotificationKind = "balance_adjusted"
	NotifyDepositRequested NotificationKind = "deposit_requested"
	NotifyDepositApproved  NotificationKind = "deposit_approved"
	NotifyDepositRejected  NotificationKind = "deposit_rejected"
	NotifyWithdrawalHeld   NotificationKind = "withdrawal_requested"
	NotifyWithdrawalSent   NotificationKind = "withdrawal_approved"
	NotifyWithdrawalRefund NotificationKind = "withdrawal_rejected"
	NotifyAccountStatus    NotificationKind = "account_status_changed"
	NotifyKYCStatus        NotificationKind = "kyc_status_changed"
)

type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationFailed    NotificationStatus = "failed"
)
