package fault

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var concatKey = Key{Kind: "common-util", Action: "string-concat"}

func TestWrapIsExactlyOnce(t *testing.T) {
	inner := New(InvalidArgument, concatKey, map[string]any{"id": "b1"}, "target must be String")

	outerKey := Key{Kind: "control", Action: "if"}
	wrapped := Wrap(inner, outerKey, nil)

	f, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, f)
	assert.Equal(t, concatKey, f.Key)
	assert.Equal(t, InvalidArgument, f.Kind)
}

func TestWrapForeignError(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, concatKey, map[string]any{"id": "b2"})

	f, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, Runtime, f.Kind)
	assert.Equal(t, concatKey, f.Key)
	assert.Equal(t, "b2", f.Extra["id"])
	assert.ErrorIs(t, err, cause)
}

func TestWrapThroughFmtChain(t *testing.T) {
	inner := New(Storage, concatKey, nil, "db down")
	chained := fmt.Errorf("context: %w", inner)

	assert.Equal(t, chained, Wrap(chained, Key{Kind: "x", Action: "y"}, nil))
	assert.True(t, Is(chained, Storage))
}

func TestExtraIsSnapshotted(t *testing.T) {
	extra := map[string]any{"id": "b1"}
	f := New(Runtime, concatKey, extra, "boom")
	extra["id"] = "changed"
	assert.Equal(t, "b1", f.Extra["id"])
}

func TestHTTPStatus(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{"quota", New(QuotaExceeded, Key{}, nil, "x"), http.StatusTooManyRequests},
		{"limit", New(LimitExceeded, Key{}, nil, "x"), http.StatusTooManyRequests},
		{"auth default", New(AuthorizationInvalid, Key{}, nil, "x"), http.StatusUnauthorized},
		{"auth carried", New(AuthorizationInvalid, Key{}, nil, "x", WithStatus(http.StatusForbidden)), http.StatusForbidden},
		{"storage", New(Storage, Key{}, nil, "x", WithStatus(http.StatusTeapot)), http.StatusServiceUnavailable},
		{"invalid argument", New(InvalidArgument, Key{}, nil, "x"), http.StatusBadRequest},
		{"runtime carried", New(Runtime, Key{}, nil, "x", WithStatus(http.StatusBadGateway)), http.StatusBadGateway},
		{"foreign", errors.New("x"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	f := New(InvalidArgument, concatKey, nil, "target must be String")
	assert.Equal(t, "InvalidArgument [common-util/string-concat]: target must be String", f.Error())
}
