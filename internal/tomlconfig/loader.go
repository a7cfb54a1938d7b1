// Package tomlconfig provides the TOML implementation of the config.Loader
// interface. The file layout mirrors the HCL one:
//
//	mode = "production"
//
//	[log]
//	level = "info"
//
//	[quota]
//	default_limit = 100
//
//	[[account]]
//	name = "acme"
//	tier = "enterprise"
//
//	[variables]
//	region = "eu-west-1"
//
// TOML has no expressions, so secrets are written literally or supplied
// through command-line flags.
package tomlconfig

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/specialistvlad/planrunner/internal/config"
	"github.com/specialistvlad/planrunner/internal/ctxlog"
	"github.com/specialistvlad/planrunner/internal/value"
)

type fileRoot struct {
	Mode        *string `toml:"mode"`
	TokenSecret *string `toml:"token_secret"`

	Log *struct {
		Level  *string `toml:"level"`
		Format *string `toml:"format"`
	} `toml:"log"`
	Server *struct {
		Address         *string `toml:"address"`
		HealthcheckPort *int    `toml:"healthcheck_port"`
	} `toml:"server"`
	Plans *struct {
		Source *string `toml:"source"`
		Dir    *string `toml:"dir"`
	} `toml:"plans"`
	Database *struct {
		Driver       *string `toml:"driver"`
		DSN          *string `toml:"dsn"`
		MaxOpenConns *int    `toml:"max_open_conns"`
	} `toml:"database"`
	HTTP *struct {
		Timeout *string `toml:"timeout"`
	} `toml:"http"`
	Quota *struct {
		Store        *string `toml:"store"`
		DefaultLimit *int64  `toml:"default_limit"`
		MaxDepth     *int    `toml:"max_depth"`
	} `toml:"quota"`
	Accounts []config.Account `toml:"account"`

	Variables map[string]any `toml:"variables"`
}

// Loader is the TOML-specific implementation of the config.Loader interface.
type Loader struct{}

var _ config.Loader = Loader{}

// Load decodes the file at path and applies it onto into. Keys the model
// does not know are rejected.
func (Loader) Load(ctx context.Context, path string, into *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("TOML loader started.", "path", path)

	var root fileRoot
	md, err := toml.DecodeFile(path, &root)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("TOML file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if err := apply(&root, into); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	logger.Debug("TOML loading complete.", "accounts", len(into.Accounts), "variables", len(into.Variables))
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func apply(root *fileRoot, m *config.Model) error {
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
		m.Accounts = root.Accounts
	}

	if m.Variables == nil {
		m.Variables = map[string]value.Value{}
	}
	for k, raw := range root.Variables {
		if t, ok := raw.(time.Time); ok {
			raw = t.Format(time.RFC3339)
		}
		v, err := value.FromNative(raw)
		if err != nil {
			return fmt.Errorf("variable %q: %w", k, err)
		}
		m.Variables[k] = v
	}
	return nil
}
