// Package fault defines the closed family of typed faults raised while
// parsing and evaluating block trees.
//
// Every Fault carries the exception key of the block that raised it and a
// snapshot of that block's extra data. Faults are constructed once, at a
// block boundary, and are never re-wrapped: Wrap passes an existing Fault
// through unchanged.
package fault

import (
	"errors"
	"fmt"
	"maps"
	"net/http"

	"github.com/specialistvlad/planrunner/internal/value"
)

// Kind is the closed set of fault categories.
type Kind uint8

const (
	MalformedTemplate Kind = iota + 1
	InvalidArgument
	Runtime
	Storage
	AuthorizationInvalid
	QuotaExceeded
	LimitExceeded
)

var kindNames = map[Kind]string{
	MalformedTemplate:    "MalformedTemplate",
	InvalidArgument:      "InvalidArgument",
	Runtime:              "Runtime",
	Storage:              "Storage",
	AuthorizationInvalid: "AuthorizationInvalid",
	QuotaExceeded:        "QuotaExceeded",
	LimitExceeded:        "LimitExceeded",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Key identifies a block by its (kind, action) discriminator.
type Key struct {
	Kind   string `json:"type"`
	Action string `json:"action"`
}

func (k Key) String() string {
	if k.Kind == "" && k.Action == "" {
		return "<none>"
	}
	return k.Kind + "/" + k.Action
}

// Fault is the exception envelope. It is immutable once returned.
type Fault struct {
	Kind    Kind
	Message string
	// Status is an optional wire status code; zero means unset.
	Status int
	Key    Key
	Extra  map[string]any
	// Body is an optional response body carried by auth faults.
	Body value.Value

	cause error
}

func (f *Fault) Error() string {
	if f.Key == (Key{}) {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", f.Kind, f.Key, f.Message)
}

// Unwrap returns the foreign error wrapped by Wrap, if any.
func (f *Fault) Unwrap() error { return f.cause }

// Option customises a Fault at construction.
type Option func(*Fault)

// WithStatus sets the wire status code.
func WithStatus(status int) Option {
	return func(f *Fault) { f.Status = status }
}

// WithBody attaches a response body.
func WithBody(body value.Value) Option {
	return func(f *Fault) { f.Body = body }
}

// WithCause records the underlying error for errors.Is/As.
func WithCause(err error) Option {
	return func(f *Fault) { f.cause = err }
}

// New builds a Fault raised by the block identified by key.
func New(kind Kind, key Key, extra map[string]any, msg string, opts ...Option) *Fault {
	f := &Fault{
		Kind:    kind,
		Message: msg,
		Key:     key,
		Extra:   maps.Clone(extra),
	}
	if f.Extra == nil {
		f.Extra = map[string]any{}
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Newf is New with a formatted message.
func Newf(kind Kind, key Key, extra map[string]any, format string, args ...any) *Fault {
	return New(kind, key, extra, fmt.Sprintf(format, args...))
}

// As returns the Fault in err's chain, if any.
func As(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Is reports whether err is a Fault of the given kind.
func Is(err error, kind Kind) bool {
	f, ok := As(err)
	return ok && f.Kind == kind
}

// Wrap converts a foreign error into a Runtime fault attributed to key.
// Errors that already are faults are returned unchanged, so wrapping
// happens exactly once.
func Wrap(err error, key Key, extra map[string]any) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return New(Runtime, key, extra, err.Error(), WithCause(err))
}

// WrapAs is Wrap with an explicit kind for foreign errors, e.g. Storage
// for driver failures.
func WrapAs(kind Kind, err error, key Key, extra map[string]any) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	return New(kind, key, extra, err.Error(), WithCause(err))
}

// HTTPStatus maps a fault to the status code the HTTP boundary returns.
// Non-fault errors map to 500.
func HTTPStatus(err error) int {
	f, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch f.Kind {
	case QuotaExceeded, LimitExceeded:
		return http.StatusTooManyRequests
	case AuthorizationInvalid:
		if f.Status != 0 {
			return f.Status
		}
		return http.StatusUnauthorized
	case Storage:
		return http.StatusServiceUnavailable
	}
	if f.Status != 0 {
		return f.Status
	}
	return http.StatusBadRequest
}

// Trace is the debug-mode diagnostic record of a fault.
type Trace struct {
	Key   Key            `json:"key"`
	Extra map[string]any `json:"extra"`
}

// Trace returns the {key, extra} pair reported in debug payloads.
func (f *Fault) Trace() Trace {
	return Trace{Key: f.Key, Extra: maps.Clone(f.Extra)}
}
