package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/planrunner/internal/config"
	"github.com/specialistvlad/planrunner/internal/hcl"
	"github.com/specialistvlad/planrunner/internal/tomlconfig"
)

// LoaderFor picks the configuration loader for path by its extension.
// environ feeds the env variable of HCL expressions.
func LoaderFor(path string, environ []string) (config.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return hcl.NewLoader(environ), nil
	case ".toml":
		return tomlconfig.Loader{}, nil
	}
	return nil, fmt.Errorf("unsupported config file %q: want .hcl or .toml", path)
}

// LoadConfig starts from the defaults and applies the file at path, if any.
// The result is not validated; callers apply flag overrides first.
func LoadConfig(ctx context.Context, path string, environ []string) (*config.Model, error) {
	cfg := config.Default()
	if path == "" {
		return cfg, nil
	}
	loader, err := LoaderFor(path, environ)
	if err != nil {
		return nil, err
	}
	if err := loader.Load(ctx, path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
