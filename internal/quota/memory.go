package quota

import (
	"context"
	"sync"
)

// Memory is an in-process Controller. Counts are lost on restart.
type Memory struct {
	mu       sync.Mutex
	accounts accounts
	counts   map[string]int64
}

// NewMemory creates a controller. Accounts not listed get defaultLimit on
// the standard tier.
func NewMemory(defaultLimit int64, list ...Account) *Memory {
	return &Memory{
		accounts: newAccounts(defaultLimit, list),
		counts:   make(map[string]int64),
	}
}

// Usage implements Controller.
func (m *Memory) Usage(_ context.Context, account string) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accounts.lookup(account)
	return Usage{Account: account, Count: m.counts[account], Limit: acc.Limit, Tier: acc.Tier}, nil
}

// Acquire implements Controller.
func (m *Memory) Acquire(_ context.Context, account string) (Usage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accounts.lookup(account)
	u := Usage{Account: account, Count: m.counts[account], Limit: acc.Limit, Tier: acc.Tier}
	if u.Bypass() {
		return u, true, nil
	}
	if u.Exceeded() {
		return u, false, nil
	}
	m.counts[account]++
	u.Count++
	return u, true, nil
}

// Set overrides the recorded count for an account.
func (m *Memory) Set(account string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[account] = count
}
