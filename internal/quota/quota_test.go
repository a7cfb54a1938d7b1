package quota

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestAdmit(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2,
		Account{Name: "big", Tier: TierUnlimited},
		Account{Name: "corp", Tier: TierEnterprise, Limit: 1},
		Account{Name: "tiny", Limit: 1},
	)
	c.Set("acme", 2)
	c.Set("big", 100)
	c.Set("corp", 5)
	c.Set("tiny", 1)

	testCases := []struct {
		name    string
		account string
		test    bool
		wantErr bool
	}{
		{"under limit", "fresh", false, false},
		{"at default limit", "acme", false, true},
		{"test session bypasses", "acme", true, false},
		{"unlimited tier", "big", false, false},
		{"enterprise tier", "corp", false, false},
		{"explicit limit", "tiny", false, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Admit(ctx, c, tc.account, tc.test)
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			f, ok := fault.As(err)
			require.True(t, ok)
			assert.Equal(t, fault.QuotaExceeded, f.Kind)
			assert.Equal(t, AdmissionKey, f.Key)
			assert.Equal(t, tc.account, f.Extra["account"])
		})
	}
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" Enterprise ")
	require.NoError(t, err)
	assert.Equal(t, TierEnterprise, tier)

	_, err = ParseTier("gold")
	assert.Error(t, err)
}

func openSQL(t *testing.T, defaultLimit int64, list ...Account) *SQL {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	c, err := NewSQL(context.Background(), db, defaultLimit, list...)
	require.NoError(t, err)
	return c
}

func TestSQLController(t *testing.T) {
	ctx := context.Background()
	c := openSQL(t, 2, Account{Name: "corp", Tier: TierEnterprise, Limit: 1})

	u, err := c.Usage(ctx, "acme")
	require.NoError(t, err)
	assert.EqualValues(t, 0, u.Count)

	for range 2 {
		_, err = Admit(ctx, c, "acme", false)
		require.NoError(t, err)
	}

	u, err = c.Usage(ctx, "acme")
	require.NoError(t, err)
	assert.EqualValues(t, 2, u.Count)
	assert.True(t, u.Exceeded())

	_, err = Admit(ctx, c, "acme", false)
	assert.True(t, fault.Is(err, fault.QuotaExceeded))
	u, err = c.Usage(ctx, "acme")
	require.NoError(t, err)
	assert.EqualValues(t, 2, u.Count, "a rejected run is not recorded")

	require.NoError(t, c.Set(ctx, "corp", 5))
	_, err = Admit(ctx, c, "corp", false)
	require.NoError(t, err)
}

func TestAdmitDoesNotRecordBypassedRuns(t *testing.T) {
	ctx := context.Background()
	controllers := map[string]Controller{
		"memory": NewMemory(1, Account{Name: "big", Tier: TierUnlimited}),
		"sql":    openSQL(t, 1, Account{Name: "big", Tier: TierUnlimited}),
	}

	for name, c := range controllers {
		t.Run(name, func(t *testing.T) {
			_, err := Admit(ctx, c, "acme", true)
			require.NoError(t, err)
			_, err = Admit(ctx, c, "big", false)
			require.NoError(t, err)

			for _, account := range []string{"acme", "big"} {
				u, err := c.Usage(ctx, account)
				require.NoError(t, err)
				assert.Zero(t, u.Count, account)
			}

			_, err = Admit(ctx, c, "acme", false)
			require.NoError(t, err, "test runs leave the standard quota untouched")
		})
	}
}

func TestConcurrentAdmissionHonoursLimit(t *testing.T) {
	const limit, callers = 5, 50
	ctx := context.Background()
	controllers := map[string]Controller{
		"memory": NewMemory(limit),
		"sql":    openSQL(t, limit),
	}

	for name, c := range controllers {
		t.Run(name, func(t *testing.T) {
			var admitted, rejected atomic.Int64
			var wg sync.WaitGroup
			for range callers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := Admit(ctx, c, "acme", false)
					switch {
					case err == nil:
						admitted.Add(1)
					case fault.Is(err, fault.QuotaExceeded):
						rejected.Add(1)
					default:
						t.Errorf("unexpected admission error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.EqualValues(t, limit, admitted.Load())
			assert.EqualValues(t, callers-limit, rejected.Load())
			u, err := c.Usage(ctx, "acme")
			require.NoError(t, err)
			assert.EqualValues(t, limit, u.Count)
		})
	}
}
