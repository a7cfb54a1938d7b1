// Package quota tracks per-account plan executions and decides admission.
package quota

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/planrunner/internal/fault"
)

// Tier is an account's product tier.
type Tier uint8

const (
	TierStandard Tier = iota
	TierUnlimited
	TierEnterprise
)

func (t Tier) String() string {
	switch t {
	case TierUnlimited:
		return "unlimited"
	case TierEnterprise:
		return "enterprise"
	}
	return "standard"
}

// ParseTier parses a tier name. The empty string selects TierStandard.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return TierStandard, nil
	case "unlimited":
		return TierUnlimited, nil
	case "enterprise":
		return TierEnterprise, nil
	}
	return TierStandard, fmt.Errorf("unknown quota tier %q", s)
}

// Account is the static quota configuration of one tenant.
type Account struct {
	Name  string
	Tier  Tier
	Limit int64
}

// Usage is what a controller reports for an account.
type Usage struct {
	Account string
	Count   int64
	// Limit of zero or less means no limit.
	Limit int64
	Tier  Tier
}

// Exceeded reports whether the count has reached the limit.
func (u Usage) Exceeded() bool {
	return u.Limit > 0 && u.Count >= u.Limit
}

// Bypass reports whether the tier is exempt from the limit.
func (u Usage) Bypass() bool {
	return u.Tier == TierUnlimited || u.Tier == TierEnterprise
}

// Controller reports and admits plan executions per account.
// Implementations must be safe for concurrent use.
type Controller interface {
	Usage(ctx context.Context, account string) (Usage, error)
	// Acquire admits one execution and records it in a single step. It
	// reports false, recording nothing, when the account is at its limit.
	// Bypass tiers are admitted without being recorded.
	Acquire(ctx context.Context, account string) (Usage, bool, error)
}

// AdmissionKey is the exception key carried by admission faults.
var AdmissionKey = fault.Key{Kind: "session", Action: "admission"}

// Admit acquires one execution for account from c. Test sessions are
// admitted without touching the count. A controller failure is a Storage
// fault.
func Admit(ctx context.Context, c Controller, account string, test bool) (Usage, error) {
	if test {
		u, err := c.Usage(ctx, account)
		if err != nil {
			return Usage{}, lookupFault(account, err)
		}
		return u, nil
	}
	u, ok, err := c.Acquire(ctx, account)
	if err != nil {
		return Usage{}, lookupFault(account, err)
	}
	if ok {
		return u, nil
	}
	return u, fault.New(fault.QuotaExceeded, AdmissionKey, map[string]any{
		"account": account,
		"count":   u.Count,
		"limit":   u.Limit,
	}, fmt.Sprintf("account %q has used %d of %d plan executions", account, u.Count, u.Limit))
}

func lookupFault(account string, err error) error {
	return fault.WrapAs(fault.Storage, fmt.Errorf("quota admission for %q: %w", account, err), AdmissionKey, nil)
}

type accounts struct {
	byName       map[string]Account
	defaultLimit int64
}

func newAccounts(defaultLimit int64, list []Account) accounts {
	a := accounts{byName: make(map[string]Account, len(list)), defaultLimit: defaultLimit}
	for _, acc := range list {
		a.byName[acc.Name] = acc
	}
	return a
}

func (a accounts) lookup(name string) Account {
	if acc, ok := a.byName[name]; ok {
		if acc.Limit == 0 {
			acc.Limit = a.defaultLimit
		}
		return acc
	}
	return Account{Name: name, Tier: TierStandard, Limit: a.defaultLimit}
}
