package postgres

import (
	"fmt"

	"ledger-admin-go/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s '%s': %w", field, value, err)
	}
	return d, nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.UserId, &a.Email, &a.DisplayName, &a.KYCStatus, &a.AccountStatus,
		&a.TradeOutcomeMode, &a.TradeOutcomeScope, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanBalance(row pgx.Row) (*models.AccountBalance, error) {
	var b models.AccountBalance
	var balanceStr string
	if err := row.Scan(&b.Id, &b.UserId, &b.Asset, &balanceStr, &b.LastAdjustmentId, &b.Version, &b.UpdatedAt); err != nil {
		return nil, err
	}
	balance, err := parseDecimal("balance", balanceStr)
	if err != nil {
		return nil, err
	}
	b.Balance = balance
	return &b, nil
}

func scanAdjustment(row pgx.Row) (*models.Adjustment, error) {
	var a models.Adjustment
	var signedStr, appliedStr, previousStr, newStr string
	err := row.Scan(&a.Id, &a.ActorId, &a.UserId, &a.Asset, &a.Type, &signedStr, &appliedStr,
		&a.Reason, &previousStr, &newStr, &a.RelatedId, &a.RelatedType, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if a.SignedAmount, err = parseDecimal("signed_amount", signedStr); err != nil {
		return nil, err
	}
	if a.AppliedAmount, err = parseDecimal("applied_amount", appliedStr); err != nil {
		return nil, err
	}
	if a.PreviousBalance, err = parseDecimal("previous_balance", previousStr); err != nil {
		return nil, err
	}
	if a.NewBalance, err = parseDecimal("new_balance", newStr); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanFundsRequest(row pgx.Row) (*models.FundsRequest, error) {
	var r models.FundsRequest
	var amountStr string
	err := row.Scan(&r.Id, &r.Type, &r.UserId, &r.Asset, &amountStr, &r.Status, &r.DestinationAddress,
		&r.TxHash, &r.HoldAdjustmentId, &r.CreatedAt, &r.ProcessedAt, &r.ProcessedBy, &r.AdminNotes)
	if err != nil {
		return nil, err
	}
	if r.Amount, err = parseDecimal("amount", amountStr); err != nil {
		return nil, err
	}
	return &r, nil
}
