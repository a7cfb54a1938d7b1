package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/planrunner/internal/quota"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Modes.
const (
	ModeProduction = "production"
	ModeTest       = "test"
)

// Plan sources.
const (
	SourceFS  = "fs"
	SourceSQL = "sql"
)

// Quota stores.
const (
	QuotaMemory = "memory"
	QuotaSQL    = "sql"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Model is the complete application configuration.
type Model struct {
	// Mode "test" runs every session in test mode: no quota, debug
	// payloads on faults.
	Mode string

	LogLevel  string
	LogFormat string

	// Address is the plan API listen address.
	Address         string
	HealthcheckPort int

	PlanSource string
	PlansDir   string

	DBDriver       string
	DSN            string
	DBMaxOpenConns int

	HTTPTimeout time.Duration

	QuotaStore        string
	QuotaDefaultLimit int64
	Accounts          []Account

	TokenSecret string
	// MaxDepth bounds the scope stack of each session.
	MaxDepth int

	// Variables are exposed to plans through the env blocks.
	Variables map[string]value.Value
}

// Account is a configured tenant.
type Account struct {
	Name   string `toml:"name"`
	Tier   string `toml:"tier"`
	Limit  int64  `toml:"limit"`
	APIKey string `toml:"api_key"`
}

// Default returns the built-in configuration.
func Default() *Model {
	return &Model{
		Mode:              ModeProduction,
		LogLevel:          "info",
		LogFormat:         "text",
		Address:           ":8080",
		HealthcheckPort:   0,
		PlanSource:        SourceFS,
		PlansDir:          "plans",
		DBDriver:          "sqlite",
		HTTPTimeout:       30 * time.Second,
		QuotaStore:        QuotaMemory,
		QuotaDefaultLimit: 0,
		Variables:         map[string]value.Value{},
	}
}

// Test reports whether the configuration runs in test mode.
func (m *Model) Test() bool { return m.Mode == ModeTest }

// Validate reports every invalid setting at once.
func (m *Model) Validate() error {
	var errs []error
	oneOf := func(field, v string, allowed ...string) {
		if !slices.Contains(allowed, v) {
			errs = append(errs, fmt.Errorf("%s: %q is not one of %v", field, v, allowed))
		}
	}

	oneOf("mode", m.Mode, ModeProduction, ModeTest)
	oneOf("log level", m.LogLevel, logLevels...)
	oneOf("log format", m.LogFormat, logFormats...)
	oneOf("plan source", m.PlanSource, SourceFS, SourceSQL)
	oneOf("quota store", m.QuotaStore, QuotaMemory, QuotaSQL)

	if m.PlanSource == SourceFS && m.PlansDir == "" {
		errs = append(errs, errors.New("plans dir is required for the fs plan source"))
	}
	if m.DSN == "" {
		if m.PlanSource == SourceSQL {
			errs = append(errs, errors.New("the sql plan source requires a database dsn"))
		}
		if m.QuotaStore == QuotaSQL {
			errs = append(errs, errors.New("the sql quota store requires a database dsn"))
		}
	}
	if m.HealthcheckPort < 0 || m.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("healthcheck port %d out of range", m.HealthcheckPort))
	}
	if m.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http timeout must be positive, got %s", m.HTTPTimeout))
	}
	if m.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max depth must not be negative, got %d", m.MaxDepth))
	}

	seen := map[string]bool{}
	keys := map[string]bool{}
	for i, a := range m.Accounts {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("accounts[%d]: name is required", i))
		}
		if seen[a.Name] {
			errs = append(errs, fmt.Errorf("accounts[%d]: duplicate account %q", i, a.Name))
		}
		seen[a.Name] = true
		if _, err := quota.ParseTier(a.Tier); err != nil {
			errs = append(errs, fmt.Errorf("accounts[%d]: %w", i, err))
		}
		if a.APIKey != "" {
			if keys[a.APIKey] {
				errs = append(errs, fmt.Errorf("accounts[%d]: api key reused", i))
			}
			keys[a.APIKey] = true
		}
	}
	return errors.Join(errs...)
}

// QuotaAccounts converts the configured accounts for the quota controller.
func (m *Model) QuotaAccounts() []quota.Account {
	out := make([]quota.Account, 0, len(m.Accounts))
	for _, a := range m.Accounts {
		tier, _ := quota.ParseTier(a.Tier)
		out = append(out, quota.Account{Name: a.Name, Tier: tier, Limit: a.Limit})
	}
	return out
}

// APIKeys maps each configured API key to its account.
func (m *Model) APIKeys() map[string]string {
	out := map[string]string{}
	for _, a := range m.Accounts {
		if a.APIKey != "" {
			out[a.APIKey] = a.Name
		}
	}
	return out
}
