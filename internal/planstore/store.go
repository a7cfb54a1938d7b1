package planstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/specialistvlad/planrunner/internal/plan"
)

// ErrNotFound is returned when no plan has the requested name.
var ErrNotFound = errors.New("plan not found")

// Store resolves plans by name. Implementations must be safe for
// concurrent use.
type Store interface {
	Load(ctx context.Context, name string) (*plan.Plan, error)
	Names(ctx context.Context) ([]string, error)
}

var segment = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// ValidName reports whether name is a usable plan name: one or more
// slash-separated segments of letters, digits, '_', '-' and '.', none
// starting with a dot.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for _, s := range strings.Split(name, "/") {
		if !segment.MatchString(s) {
			return false
		}
	}
	return true
}

func checkName(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid plan name %q: %w", name, ErrNotFound)
	}
	return nil
}
