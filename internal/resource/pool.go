// Package resource holds the external-resource clients shared by every
// execution session of the process: one SQL connection pool and one HTTP
// client, also exposed through a REST client. All are safe for concurrent use; sessions take their own logical
// connection from them.
package resource

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
	"resty.dev/v3"
)

// DefaultDriver is the database/sql driver used when none is configured.
const DefaultDriver = "sqlite"

// Options configures a Pool.
type Options struct {
	Driver string
	DSN    string
	// MaxOpenConns of zero leaves the driver default. In-memory SQLite
	// databases need 1 so every session sees the same database.
	MaxOpenConns int
	HTTPTimeout  time.Duration
	// Logger receives the REST client's diagnostics; defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Pool lazily opens the shared clients.
type Pool struct {
	opts Options

	dbOnce sync.Once
	db     *sql.DB
	dbErr  error

	httpClient *http.Client
	rest       *resty.Client
}

// New creates a pool. Nothing is dialed until first use.
func New(opts Options) *Pool {
	if opts.Driver == "" {
		opts.Driver = DefaultDriver
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	hc := &http.Client{
		Timeout: opts.HTTPTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &Pool{
		opts:       opts,
		httpClient: hc,
		rest:       resty.NewWithClient(hc).SetLogger(restyLogger{opts.Logger}),
	}
}

// DB returns the shared SQL pool, opening and pinging it on first use.
func (p *Pool) DB(ctx context.Context) (*sql.DB, error) {
	p.dbOnce.Do(func() {
		if p.opts.DSN == "" {
			p.dbErr = fmt.Errorf("no database configured")
			return
		}
		db, err := sql.Open(p.opts.Driver, p.opts.DSN)
		if err != nil {
			p.dbErr = fmt.Errorf("opening %s database: %w", p.opts.Driver, err)
			return
		}
		if p.opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(p.opts.MaxOpenConns)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			p.dbErr = fmt.Errorf("connecting to %s database: %w", p.opts.Driver, err)
			return
		}
		p.db = db
	})
	return p.db, p.dbErr
}

// HTTPClient returns the shared outbound HTTP client.
func (p *Pool) HTTPClient() *http.Client {
	return p.httpClient
}

// REST returns a REST client sharing the HTTP client's transport.
func (p *Pool) REST() *resty.Client {
	return p.rest
}

// Close releases the SQL pool and idle HTTP connections.
func (p *Pool) Close() error {
	p.rest.Close()
	p.httpClient.CloseIdleConnections()
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// restyLogger routes REST client diagnostics into slog.
type restyLogger struct{ l *slog.Logger }

func (r restyLogger) Errorf(format string, v ...any) { r.l.Error(fmt.Sprintf(format, v...)) }
func (r restyLogger) Warnf(format string, v ...any)  { r.l.Warn(fmt.Sprintf(format, v...)) }
func (r restyLogger) Debugf(format string, v ...any) { r.l.Debug(fmt.Sprintf(format, v...)) }
