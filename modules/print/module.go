// Package print registers the "log" block, which writes a message to the
// session logger and therefore into the session's message pool.
package print

import (
	"log/slog"
	"strings"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Kind is the block kind registered by this package.
const Kind = "log"

// Module implements the block.Module interface for this package.
type Module struct{}

// Register registers log/message.
func (m *Module) Register(r *block.Registry) {
	r.RegisterFunc(Kind, "message", block.Shape{
		Blocks:           []string{"message"},
		Optional:         []string{"fields"},
		OptionalLiterals: []string{"level"},
	}, message)
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

func message(ctx *block.Context, n *block.Node) (value.Value, error) {
	lvl, err := n.LiteralStringOr("level", "info")
	if err != nil {
		return value.Null(), err
	}
	level, ok := parseLevel(lvl)
	if !ok {
		return value.Null(), n.Invalid("unknown log level %q", lvl)
	}

	msg, err := n.Arg(ctx, "message")
	if err != nil {
		return value.Null(), err
	}
	text, ok := msg.AsString()
	if !ok {
		text = msg.String()
	}

	var attrs []any
	if n.Has("fields") {
		fields, err := n.MapArg(ctx, "fields")
		if err != nil {
			return value.Null(), err
		}
		// Sort keys for consistent output
		keys := value.Map(fields).Keys()
		for _, k := range keys {
			attrs = append(attrs, slog.String(k, fields[k].String()))
		}
	}

	ctx.Logger().Log(ctx.Context(), level, text, attrs...)
	return value.String(text), nil
}
