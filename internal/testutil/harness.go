package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/ctxlog"
	"github.com/specialistvlad/planrunner/internal/session"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Harness bundles what a block-level test needs: a session, an execution
// context over it and the captured server log.
type Harness struct {
	Ctx     context.Context
	Session *session.Session
	Block   *block.Context
	Logs    *SafeBuffer
}

// LoggerContext returns a background context carrying a debug text logger
// that writes into buf.
func LoggerContext(buf *SafeBuffer) context.Context {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}

// NewHarness opens a session with opts. The session is closed, and its
// scope stack checked for balance, when the test ends.
func NewHarness(t *testing.T, opts session.Options) *Harness {
	t.Helper()

	logs := &SafeBuffer{}
	ctx := LoggerContext(logs)

	s, err := session.New(ctx, opts)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close(ctx))
		if os.Getenv("PLANRUNNER_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	return &Harness{
		Ctx:     ctx,
		Session: s,
		Block:   block.NewContext(ctx, s),
		Logs:    logs,
	}
}
