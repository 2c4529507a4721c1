package database

// Amounts are stored as TEXT and parsed with shopspring/decimal so no value
// ever passes through a float.
const schema = `
	-- Accounts: one per user, provisioned on first sign-in
	CREATE TABLE IF NOT EXISTS accounts (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		kyc_status TEXT NOT NULL DEFAULT 'pending',
		account_status TEXT NOT NULL DEFAULT 'active',
		trade_outcome_mode TEXT NOT NULL DEFAULT 'default',
		trade_outcome_scope TEXT NOT NULL DEFAULT 'new_trades',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_kyc_status ON accounts(kyc_status);
	CREATE INDEX IF NOT EXISTS idx_accounts_account_status ON accounts(account_status);

	-- Account Balances Table (Current State - Hot Data)
	CREATE TABLE IF NOT EXISTS account_balances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES accounts(user_id),
		asset TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		last_adjustment_id TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(user_id, asset)
	);

	CREATE INDEX IF NOT EXISTS idx_account_balances_asset ON account_balances(asset);

	-- Adjustments Table (Audit Trail - append only)
	CREATE TABLE IF NOT EXISTS adjustments (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		user_id TEXT NOT NULL REFERENCES accounts(user_id),
		asset TEXT NOT NULL,
		adjustment_type TEXT NOT NULL,
		signed_amount TEXT NOT NULL,
		applied_amount TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		previous_balance TEXT NOT NULL,
		new_balance TEXT NOT NULL,
		related_id TEXT NOT NULL DEFAULT '',
		related_type TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_user_asset ON adjustments(user_id, asset);
	CREATE INDEX IF NOT EXISTS idx_adjustments_created_at ON adjustments(created_at);
	CREATE INDEX IF NOT EXISTS idx_adjustments_related ON adjustments(related_id);

	-- Deposit and withdrawal queue
	CREATE TABLE IF NOT EXISTS funds_requests (
		id TEXT PRIMARY KEY,
		request_type TEXT NOT NULL,
		user_id TEXT NOT NULL REFERENCES accounts(user_id),
		asset TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		destination_address TEXT NOT NULL DEFAULT '',
		tx_hash TEXT NOT NULL DEFAULT '',
		hold_adjustment_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		processed_at TIMESTAMP,
		processed_by TEXT NOT NULL DEFAULT '',
		admin_notes TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_funds_requests_status ON funds_requests(status, request_type);
	CREATE INDEX IF NOT EXISTS idx_funds_requests_user_id ON funds_requests(user_id);

	CREATE TABLE IF NOT EXISTS trade_outcome_logs (
		id TEXT PRIMARY KEY,
		admin_id TEXT NOT NULL,
		user_id TEXT NOT NULL REFERENCES accounts(user_id),
		previous_mode TEXT NOT NULL,
		new_mode TEXT NOT NULL,
		previous_scope TEXT NOT NULL,
		scope TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trade_outcome_logs_user_id ON trade_outcome_logs(user_id);

	-- KYC and account status changes
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		user_id TEXT NOT NULL REFERENCES accounts(user_id),
		action TEXT NOT NULL,
		previous_value TEXT NOT NULL,
		new_value TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_user_id ON audit_log(user_id);

	-- Notification outbox drained by the relay
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		payload TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		delivered_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status, created_at);
	`
