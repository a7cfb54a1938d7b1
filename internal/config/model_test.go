package config

import (
	"testing"
	"time"

	"github.com/specialistvlad/planrunner/internal/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	m := Default()
	require.NoError(t, m.Validate())
	assert.False(t, m.Test())
	assert.Equal(t, 30*time.Second, m.HTTPTimeout)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Model)
		errMsg string
	}{
		{"bad mode", func(m *Model) { m.Mode = "staging" }, "mode"},
		{"bad log level", func(m *Model) { m.LogLevel = "trace" }, "log level"},
		{"bad log format", func(m *Model) { m.LogFormat = "xml" }, "log format"},
		{"fs source without dir", func(m *Model) { m.PlansDir = "" }, "plans dir"},
		{"sql source without dsn", func(m *Model) { m.PlanSource = SourceSQL }, "plan source requires"},
		{"sql quota without dsn", func(m *Model) { m.QuotaStore = QuotaSQL }, "quota store requires"},
		{"negative timeout", func(m *Model) { m.HTTPTimeout = -time.Second }, "http timeout"},
		{"port out of range", func(m *Model) { m.HealthcheckPort = 70000 }, "healthcheck port"},
		{"negative depth", func(m *Model) { m.MaxDepth = -1 }, "max depth"},
		{"unnamed account", func(m *Model) { m.Accounts = []Account{{}} }, "name is required"},
		{"duplicate account", func(m *Model) {
			m.Accounts = []Account{{Name: "a"}, {Name: "a"}}
		}, "duplicate account"},
		{"unknown tier", func(m *Model) { m.Accounts = []Account{{Name: "a", Tier: "gold"}} }, "unknown quota tier"},
		{"shared api key", func(m *Model) {
			m.Accounts = []Account{{Name: "a", APIKey: "k"}, {Name: "b", APIKey: "k"}}
		}, "api key reused"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := Default()
			tc.mutate(m)
			err := m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	m := Default()
	m.Mode = "x"
	m.LogFormat = "y"
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
	assert.Contains(t, err.Error(), "log format")
}

func TestAccountConversions(t *testing.T) {
	m := Default()
	m.Accounts = []Account{
		{Name: "acme", Tier: "enterprise", Limit: 5, APIKey: "k1"},
		{Name: "free", Limit: 1},
	}
	require.NoError(t, m.Validate())

	assert.Equal(t, []quota.Account{
		{Name: "acme", Tier: quota.TierEnterprise, Limit: 5},
		{Name: "free", Tier: quota.TierStandard, Limit: 1},
	}, m.QuotaAccounts())
	assert.Equal(t, map[string]string{"k1": "acme"}, m.APIKeys())
}
