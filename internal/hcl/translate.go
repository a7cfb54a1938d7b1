package hcl

import (
	"fmt"
	"time"

	"github.com/specialistvlad/planrunner/internal/config"
	"github.com/specialistvlad/planrunner/internal/value"
)

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// apply copies every setting present in root onto m.
func (l *Loader) apply(root *fileRoot, m *config.Model) error {
	set(&m.Mode, root.Mode)
	set(&m.TokenSecret, root.TokenSecret)

	if b := root.Log; b != nil {
		set(&m.LogLevel, b.Level)
		set(&m.LogFormat, b.Format)
	}
	if b := root.Server; b != nil {
		set(&m.Address, b.Address)
		set(&m.HealthcheckPort, b.HealthcheckPort)
	}
	if b := root.Plans; b != nil {
		set(&m.PlanSource, b.Source)
		set(&m.PlansDir, b.Dir)
	}
	if b := root.Database; b != nil {
		set(&m.DBDriver, b.Driver)
		set(&m.DSN, b.DSN)
		set(&m.DBMaxOpenConns, b.MaxOpenConns)
	}
	if b := root.HTTP; b != nil && b.Timeout != nil {
		d, err := time.ParseDuration(*b.Timeout)
		if err != nil {
			return fmt.Errorf("http timeout: %w", err)
		}
		m.HTTPTimeout = d
	}
	if b := root.Quota; b != nil {
		set(&m.QuotaStore, b.Store)
		set(&m.QuotaDefaultLimit, b.DefaultLimit)
		set(&m.MaxDepth, b.MaxDepth)
	}

	if len(root.Accounts) > 0 {
		m.Accounts = m.Accounts[:0]
		for _, a := range root.Accounts {
			acc := config.Account{Name: a.Name}
			set(&acc.Tier, a.Tier)
			set(&acc.Limit, a.Limit)
			set(&acc.APIKey, a.APIKey)
			m.Accounts = append(m.Accounts, acc)
		}
	}

	return l.applyVariables(root, m)
}

func (l *Loader) applyVariables(root *fileRoot, m *config.Model) error {
	if root.Variables == nil {
		return nil
	}
	raw, diags := root.Variables.Value(l.evalCtx)
	if diags.HasErrors() {
		return fmt.Errorf("variables: %w", diags)
	}
	if raw.IsNull() {
		return nil
	}
	if !raw.Type().IsObjectType() && !raw.Type().IsMapType() {
		return fmt.Errorf("variables must be an object, got %s", raw.Type().FriendlyName())
	}

	v, err := value.FromCty(raw)
	if err != nil {
		return fmt.Errorf("variables: %w", err)
	}
	entries, _ := v.AsMap()
	if m.Variables == nil {
		m.Variables = map[string]value.Value{}
	}
	for k, e := range entries {
		m.Variables[k] = e
	}
	return nil
}
