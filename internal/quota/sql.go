package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const createUsageTable = `CREATE TABLE IF NOT EXISTS quota_usage (
	account TEXT PRIMARY KEY,
	count   INTEGER NOT NULL DEFAULT 0
)`

// SQL is a Controller persisting counts in a quota_usage table.
type SQL struct {
	db       *sql.DB
	accounts accounts
}

// NewSQL creates the usage table if needed.
func NewSQL(ctx context.Context, db *sql.DB, defaultLimit int64, list ...Account) (*SQL, error) {
	if _, err := db.ExecContext(ctx, createUsageTable); err != nil {
		return nil, fmt.Errorf("creating quota_usage table: %w", err)
	}
	return &SQL{db: db, accounts: newAccounts(defaultLimit, list)}, nil
}

// Usage implements Controller.
func (s *SQL) Usage(ctx context.Context, account string) (Usage, error) {
	acc := s.accounts.lookup(account)
	u := Usage{Account: account, Limit: acc.Limit, Tier: acc.Tier}
	err := s.db.QueryRowContext(ctx, `SELECT count FROM quota_usage WHERE account = ?`, account).Scan(&u.Count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Usage{}, false, err
	}
	return u, nil
}

// Acquire implements Controller. The limit check and the increment are one
// upsert statement, so concurrent callers never admit past the limit.
func (s *SQL) Acquire(ctx context.Context, account string) (Usage, bool, error) {
	acc := s.accounts.lookup(account)
	u := Usage{Account: account, Limit: acc.Limit, Tier: acc.Tier}
	if u.Bypass() {
		u, err := s.Usage(ctx, account)
		return u, err == nil, err
	}

	var row *sql.Row
	if u.Limit > 0 {
		row = s.db.QueryRowContext(ctx,
			`INSERT INTO quota_usage (account, count) VALUES (?, 1)
			 ON CONFLICT(account) DO UPDATE SET count = count + 1 WHERE quota_usage.count < ?
			 RETURNING count`, account, u.Limit)
	} else {
		row = s.db.QueryRowContext(ctx,
			`INSERT INTO quota_usage (account, count) VALUES (?, 1)
			 ON CONFLICT(account) DO UPDATE SET count = count + 1
			 RETURNING count`, account)
	}
	err := row.Scan(&u.Count)
	switch {
	case err == nil:
		return u, true, nil
	case errors.Is(err, sql.ErrNoRows):
		// The conflict clause refused the update: the account is at its limit.
		u, err = s.Usage(ctx, account)
		return u, false, err
	default:
		return Usage{}, false, err
	}
}

// Set overrides the recorded count for an account.
func (s *SQL) Set(ctx context.Context, account string, count int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quota_usage (account, count) VALUES (?, ?)
		 ON CONFLICT(account) DO UPDATE SET count = excluded.count`, account, count)
	return err
}
