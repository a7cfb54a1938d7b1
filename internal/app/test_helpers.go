package app

import (
	"context"
	"os"
	"testing"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/config"
	"github.com/specialistvlad/planrunner/internal/testutil"
	"github.com/stretchr/testify/require"
)

// SetupAppTest creates a new app instance for system testing. Logs are
// captured at debug level and printed when PLANRUNNER_TEST_LOGS=true.
func SetupAppTest(t *testing.T, cfg *config.Model, modules ...block.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp, err := NewApp(context.Background(), logBuffer, cfg, modules...)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, testApp.Close())
		if os.Getenv("PLANRUNNER_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
