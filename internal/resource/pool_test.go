package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBOpensOnce(t *testing.T) {
	p := New(Options{DSN: ":memory:", MaxOpenConns: 1})
	t.Cleanup(func() { p.Close() })

	ctx := context.Background()
	db1, err := p.DB(ctx)
	require.NoError(t, err)
	db2, err := p.DB(ctx)
	require.NoError(t, err)
	assert.Same(t, db1, db2)

	_, err = db1.ExecContext(ctx, `CREATE TABLE t (x INTEGER)`)
	require.NoError(t, err)
}

func TestDBWithoutDSN(t *testing.T) {
	p := New(Options{})
	_, err := p.DB(context.Background())
	assert.ErrorContains(t, err, "no database configured")
}

func TestHTTPClientTimeout(t *testing.T) {
	p := New(Options{HTTPTimeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, p.HTTPClient().Timeout)
	assert.Equal(t, 30*time.Second, New(Options{}).HTTPClient().Timeout)
}

func TestRESTSharesTransport(t *testing.T) {
	p := New(Options{})
	t.Cleanup(func() { p.Close() })
	assert.Same(t, p.HTTPClient(), p.REST().Client())
}
