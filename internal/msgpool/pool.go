// Package msgpool provides a slog.Handler that keeps a bounded copy of every
// record logged during one execution session.
//
// The pool is what debug responses echo back to plan authors who have no
// access to server-side logs. Records are still forwarded to the wrapped
// handler, subject to its own level.
package msgpool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity bounds the number of entries a pool keeps.
const DefaultCapacity = 512

// Entry is one captured log record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// String renders the entry on a single line.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Level)
	b.WriteByte(' ')
	b.WriteString(e.Message)
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Attrs[k])
	}
	return b.String()
}

// Pool is a bounded, concurrency-safe list of entries. Once full, further
// entries are counted as dropped.
type Pool struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	dropped  int
}

// New creates a pool. A capacity of zero or less selects DefaultCapacity.
func New(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{capacity: capacity}
}

func (p *Pool) add(e Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) >= p.capacity {
		p.dropped++
		return
	}
	p.entries = append(p.entries, e)
}

// Entries returns a copy of the captured entries.
func (p *Pool) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Messages returns every entry rendered as a single line.
func (p *Pool) Messages() []string {
	entries := p.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.String()
	}
	return out
}

// Dropped returns the number of entries discarded because the pool was full.
func (p *Pool) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Handler captures records into a Pool and forwards them to next.
type Handler struct {
	next   slog.Handler
	pool   *Pool
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// NewHandler wraps next. Records at or above level are captured in pool
// whether or not next is enabled for them.
func NewHandler(next slog.Handler, pool *Pool, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelDebug
	}
	return &Handler{next: next, pool: pool, level: level}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() || h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level.Level() {
		attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
		for _, a := range h.attrs {
			attrs[a.Key] = a.Value.Resolve().Any()
		}
		r.Attrs(func(a slog.Attr) bool {
			attrs[h.prefix+a.Key] = a.Value.Resolve().Any()
			return true
		})
		if len(attrs) == 0 {
			attrs = nil
		}
		h.pool.add(Entry{
			Time:    r.Time,
			Level:   r.Level.String(),
			Message: r.Message,
			Attrs:   attrs,
		})
	}
	if h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.next = h.next.WithAttrs(attrs)
	cp.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		cp.attrs = append(cp.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &cp
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.next = h.next.WithGroup(name)
	cp.prefix = h.prefix + name + "."
	return &cp
}
