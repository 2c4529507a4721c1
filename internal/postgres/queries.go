package postgres

// NUMERIC columns are read back through ::text and parsed with
// shopspring/decimal; parameters are bound as strings and cast to numeric.
const (
	accountColumns = `user_id, email, display_name, kyc_status, account_status,
		trade_outcome_mode, trade_outcome_scope, created_at, updated_at`

	queryInsertAccount = `
		INSERT INTO accounts (user_id, email, display_name, kyc_status, account_status,
			trade_outcome_mode, trade_outcome_scope, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	queryGetAccount = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1`

	queryGetAccountForUpdate = queryGetAccount + `
		FOR UPDATE`

	queryGetAccountByEmail = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE LOWER(email) = LOWER($1)`

	queryListAccounts = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE ($1 = '' OR kyc_status = $1) AND ($2 = '' OR account_status = $2)
		ORDER BY created_at DESC, user_id
		LIMIT $3 OFFSET $4`

	queryUpdateTradeOutcome = `
		UPDATE accounts
		SET trade_outcome_mode = $1, trade_outcome_scope = $2, updated_at = NOW()
		WHERE user_id = $3`

	queryUpdateKYCStatus = `
		UPDATE accounts
		SET kyc_status = $1, updated_at = NOW()
		WHERE user_id = $2`

	queryUpdateAccountStatus = `
		UPDATE accounts
		SET account_status = $1, updated_at = NOW()
		WHERE user_id = $2`

	balanceColumns = `id, user_id, asset, balance::text, last_adjustment_id, version, updated_at`

	queryGetBalance = `
		SELECT balance::text
		FROM account_balances
		WHERE user_id = $1 AND asset = $2`

	queryEnsureBalance = `
		INSERT INTO account_balances (id, user_id, asset, balance, last_adjustment_id, version, updated_at)
		VALUES ($1, $2, $3, 0, '', 1, NOW())
		ON CONFLICT (user_id, asset) DO NOTHING`

	queryGetBalanceForUpdate = `
		SELECT ` + balanceColumns + `
		FROM account_balances
		WHERE user_id = $1 AND asset = $2
		FOR UPDATE`

	queryUpdateBalance = `
		UPDATE account_balances
		SET balance = $1::numeric, last_adjustment_id = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4`

	queryGetAllUserBalances = `
		SELECT ` + balanceColumns + `
		FROM account_balances
		WHERE user_id = $1
		ORDER BY asset`

	queryListBalances = `
		SELECT ` + balanceColumns + `
		FROM account_balances
		ORDER BY user_id, asset`

	adjustmentColumns = `id, actor_id, user_id, asset, adjustment_type, signed_amount::text, applied_amount::text,
		reason, previous_balance::text, new_balance::text, related_id, related_type, created_at`

	queryInsertAdjustment = `
		INSERT INTO adjustments (id, actor_id, user_id, asset, adjustment_type, signed_amount, applied_amount,
			reason, previous_balance, new_balance, related_id, related_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9::numeric, $10::numeric, $11, $12, $13)`

	queryGetAdjustmentHistory = `
		SELECT ` + adjustmentColumns + `
		FROM adjustments
		WHERE user_id = $1 AND ($2 = '' OR asset = $2)
		ORDER BY created_at DESC, seq DESC
		LIMIT $3 OFFSET $4`

	querySumAppliedAmounts = `
		SELECT COALESCE(SUM(applied_amount), 0)::text, COUNT(*)
		FROM adjustments
		WHERE user_id = $1 AND asset = $2`

	fundsRequestColumns = `id, request_type, user_id, asset, amount::text, status, destination_address, tx_hash,
		hold_adjustment_id, created_at, processed_at, processed_by, admin_notes`

	queryInsertFundsRequest = `
		INSERT INTO funds_requests (id, request_type, user_id, asset, amount, status, destination_address,
			tx_hash, hold_adjustment_id, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)`

	queryGetFundsRequest = `
		SELECT ` + fundsRequestColumns + `
		FROM funds_requests
		WHERE id = $1`

	queryGetFundsRequestForUpdate = queryGetFundsRequest + `
		FOR UPDATE`

	queryTransitionFundsRequest = `
		UPDATE funds_requests
		SET status = $1, processed_by = $2, processed_at = $3, admin_notes = $4, tx_hash = $5
		WHERE id = $6 AND status = 'pending'`

	queryListFundsRequests = `
		SELECT ` + fundsRequestColumns + `
		FROM funds_requests
		WHERE ($1 = '' OR request_type = $1) AND ($2 = '' OR status = $2) AND ($3 = '' OR user_id = $3)
		ORDER BY created_at DESC, seq DESC
		LIMIT $4 OFFSET $5`

	queryInsertTradeOutcomeLog = `
		INSERT INTO trade_outcome_logs (id, admin_id, user_id, previous_mode, new_mode, previous_scope, scope, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	queryGetTradeOutcomeLogs = `
		SELECT id, admin_id, user_id, previous_mode, new_mode, previous_scope, scope, reason, created_at
		FROM trade_outcome_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`

	queryInsertAuditEntry = `
		INSERT INTO audit_log (id, actor_id, user_id, action, previous_value, new_value, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	queryGetAuditLog = `
		SELECT id, actor_id, user_id, action, previous_value, new_value, reason, created_at
		FROM audit_log
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`

	queryAccountCounts = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE account_status = 'active'),
		       COUNT(*) FILTER (WHERE account_status = 'suspended'),
		       COUNT(*) FILTER (WHERE account_status = 'banned'),
		       COUNT(*) FILTER (WHERE kyc_status = 'pending'),
		       COUNT(*) FILTER (WHERE trade_outcome_mode <> 'default')
		FROM accounts`

	queryPendingRequestTotals = `
		SELECT asset, COUNT(*), SUM(amount)::text
		FROM funds_requests
		WHERE status = 'pending' AND request_type = $1
		GROUP BY asset
		ORDER BY asset`

	queryBalanceTotals = `
		SELECT asset, COUNT(*), SUM(balance)::text
		FROM account_balances
		WHERE balance > 0
		GROUP BY asset
		ORDER BY asset`

	queryAdjustmentsSince = `
		SELECT COUNT(*)
		FROM adjustments
		WHERE created_at >= $1`

	queryActiveTradersSince = `
		SELECT COUNT(DISTINCT user_id)
		FROM adjustments
		WHERE adjustment_type = 'settlement' AND created_at >= $1`

	queryInsertNotification = `
		INSERT INTO notifications (id, user_id, kind, title, message, payload, status, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, 'pending', 0, '', $7)`

	queryListPendingNotifications = `
		SELECT id, user_id, kind, title, message, payload::text, status, attempts, last_error, created_at, delivered_at
		FROM notifications
		WHERE status = 'pending'
		ORDER BY created_at, seq
		LIMIT $1`

	queryMarkNotificationDelivered = `
		UPDATE notifications
		SET status = 'delivered', attempts = attempts + 1, last_error = '', delivered_at = $1
		WHERE id = $2`

	queryMarkNotificationFailed = `
		UPDATE notifications
		SET attempts = attempts + 1,
		    last_error = $1,
		    status = CASE WHEN attempts + 1 >= $2 THEN 'failed' ELSE 'pending' END
		WHERE id = $3`
)
