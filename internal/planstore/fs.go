package planstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/ctxlog"
	"github.com/specialistvlad/planrunner/internal/fsutil"
	"github.com/specialistvlad/planrunner/internal/plan"
)

// Extensions are the document extensions FS recognises, in lookup order.
var Extensions = []string{".json", ".yaml", ".yml"}

// FS loads plan documents from a directory.
type FS struct {
	root string
	reg  *block.Registry
}

// NewFS creates a store over root. Documents are parsed with reg.
func NewFS(root string, reg *block.Registry) *FS {
	return &FS{root: root, reg: reg}
}

// Load implements Store.
func (s *FS) Load(ctx context.Context, name string) (*plan.Plan, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	base := filepath.Join(s.root, filepath.FromSlash(name))
	for _, ext := range Extensions {
		path := base + ext
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading plan %q: %w", name, err)
		}

		ctxlog.FromContext(ctx).Debug("Parsing plan document.", "plan", name, "path", path)
		if ext == ".json" {
			return plan.ParseJSON(s.reg, data)
		}
		return plan.ParseYAML(s.reg, data)
	}
	return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
}

// Names implements Store.
func (s *FS) Names(_ context.Context) ([]string, error) {
	files, err := fsutil.FindFiles(s.root, Extensions...)
	if err != nil {
		return nil, fmt.Errorf("listing plans in %s: %w", s.root, err)
	}
	seen := make(map[string]bool, len(files))
	names := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(s.root, f)
		if err != nil {
			return nil, err
		}
		name := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
		if !ValidName(name) || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}
