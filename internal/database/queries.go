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

package database

const (
	// Account queries
	accountColumns = `user_id, email, display_name, kyc_status, account_status,
		trade_outcome_mode, trade_outcome_scope, created_at, updated_at`

	queryInsertAccount = `
		INSERT INTO accounts (user_id, email, display_name, kyc_status, account_status,
			trade_outcome_mode, trade_outcome_scope, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetAccount = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = ?`

	queryGetAccountByEmail = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE LOWER(email) = LOWER(?)`

	queryListAccounts = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE (? = '' OR kyc_status = ?) AND (? = '' OR account_status = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryUpdateTradeOutcome = `
		UPDATE accounts
		SET trade_outcome_mode = ?, trade_outcome_scope = ?, updated_at = ?
		WHERE user_id = ?`

	queryUpdateKYCStatus = `
		UPDATE accounts
		SET kyc_status = ?, updated_at = ?
		WHERE user_id = ?`

	queryUpdateAccountStatus = `
		UPDATE accounts
		SET account_status = ?, updated_at = ?
		WHERE user_id = ?`

	// Balance queries
	balanceColumns = `id, user_id, asset, balance, last_adjustment_id, version, updated_at`

	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE user_id = ? AND asset = ?`

	queryEnsureBalance = `
		INSERT OR IGNORE INTO account_balances (id, user_id, asset, balance, last_adjustment_id, version, updated_at)
		VALUES (?, ?, ?, '0', '', 1, ?)`

	queryGetBalanceRow = `
		SELECT ` + balanceColumns + `
		FROM account_balances
		WHERE user_id = ? AND asset = ?`

	queryUpdateBalance = `
		UPDATE account_balances
		SET balance = ?, last_adjustment_id = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryGetAllUserBalances = `
		SELECT ` + balanceColumns + `
		FROM account_balances
		WHERE user_id = ?
		ORDER BY asset`

	queryListBalances = `
		SELECT ` + balanceColumns + `
		FROM account_balances
		ORDER BY user_id, asset`

	// Adjustment queries
	adjustmentColumns = `id, actor_id, user_id, asset, adjustment_type, signed_amount, applied_amount,
		reason, previous_balance, new_balance, related_id, related_type, created_at`

	queryInsertAdjustment = `
		INSERT INTO adjustments (id, actor_id, user_id, asset, adjustment_type, signed_amount, applied_amount,
			reason, previous_balance, new_balance, related_id, related_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetAdjustmentHistory = `
		SELECT ` + adjustmentColumns + `
		FROM adjustments
		WHERE user_id = ? AND (? = '' OR asset = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryGetAppliedAmounts = `
		SELECT applied_amount
		FROM adjustments
		WHERE user_id = ? AND asset = ?`

	// Funds request queries
	fundsRequestColumns = `id, request_type, user_id, asset, amount, status, destination_address, tx_hash,
		hold_adjustment_id, created_at, processed_at, processed_by, admin_notes`

	queryInsertFundsRequest = `
		INSERT INTO funds_requests (id, request_type, user_id, asset, amount, status, destination_address,
			tx_hash, hold_adjustment_id, created_at, processed_by, admin_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', '')`

	queryGetFundsRequest = `
		SELECT ` + fundsRequestColumns + `
		FROM funds_requests
		WHERE id = ?`

	queryTransitionFundsRequest = `
		UPDATE funds_requests
		SET status = ?, processed_by = ?, processed_at = ?, admin_notes = ?, tx_hash = ?
		WHERE id = ? AND status = 'pending'`

	queryListFundsRequests = `
		SELECT ` + fundsRequestColumns + `
		FROM funds_requests
		WHERE (? = '' OR request_type = ?) AND (? = '' OR status = ?) AND (? = '' OR user_id = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Audit queries
	queryInsertTradeOutcomeLog = `
		INSERT INTO trade_outcome_logs (id, admin_id, user_id, previous_mode, new_mode, previous_scope, scope, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTradeOutcomeLogs = `
		SELECT id, admin_id, user_id, previous_mode, new_mode, previous_scope, scope, reason, created_at
		FROM trade_outcome_logs
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	queryInsertAuditEntry = `
		INSERT INTO audit_log (id, actor_id, user_id, action, previous_value, new_value, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetAuditLog = `
		SELECT id, actor_id, user_id, action, previous_value, new_value, reason, created_at
		FROM audit_log
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	// Stats queries
	queryAccountCounts = `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN account_status = 'active' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN account_status = 'suspended' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN account_status = 'banned' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN kyc_status = 'pending' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN trade_outcome_mode != 'default' THEN 1 ELSE 0 END), 0)
		FROM accounts`

	queryPendingRequestAmounts = `
		SELECT request_type, asset, amount
		FROM funds_requests
		WHERE status = 'pending'`

	queryBalanceAmounts = `
		SELECT asset, balance
		FROM account_balances`

	queryAdjustmentsSince = `
		SELECT COUNT(*)
		FROM adjustments
		WHERE created_at >= ?`

	queryActiveTradersSince = `
		SELECT COUNT(DISTINCT user_id)
		FROM adjustments
		WHERE adjustment_type = 'settlement' AND created_at >= ?`

	// Notification queries
	queryInsertNotification = `
		INSERT INTO notifications (id, user_id, kind, title, message, payload, status, attempts, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', 0, '', ?)`

	queryListPendingNotifications = `
		SELECT id, user_id, kind, title, message, payload, status, attempts, last_error, created_at, delivered_at
		FROM notifications
		WHERE status = 'pending'
		ORDER BY created_at, rowid
		LIMIT ?`

	queryMarkNotificationDelivered = `
		UPDATE notifications
		SET status = 'delivered', attempts = attempts + 1, last_error = '', delivered_at = ?
		WHERE id = ?`

	queryMarkNotificationFailed = `
		UPDATE notifications
		SET attempts = attempts + 1,
		    last_error = ?,
		    status = CASE WHEN attempts + 1 >= ? THEN 'failed' ELSE 'pending' END
		WHERE id = ?`
)
