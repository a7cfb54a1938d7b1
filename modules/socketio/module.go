// Package socketio registers the "socketio" block, which connects to a
// Socket.IO server, optionally emits an event and waits for a reply event.
package socketio

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/value"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Kind is the block kind registered by this package.
const Kind = "socketio"

// DefaultTimeout bounds the whole connect/emit/wait exchange.
const DefaultTimeout = 10 * time.Second

// Module implements the block.Module interface for this package.
type Module struct{}

// Register registers socketio/emit.
func (m *Module) Register(r *block.Registry) {
	r.RegisterFunc(Kind, "emit", block.Shape{
		Blocks:           []string{"url", "on_event"},
		Optional:         []string{"namespace", "emit_event", "emit_data", "timeout"},
		OptionalLiterals: []string{"insecure_skip_verify"},
	}, emit)
}

type input struct {
	url       *url.URL
	namespace string
	onEvent   string
	emitEvent string
	emitData  value.Value
	timeout   time.Duration
	insecure  bool
}

// opResult safely passes results through the done channel.
type opResult struct {
	data value.Value
	err  error
}

func parseInput(ctx *block.Context, n *block.Node) (*input, error) {
	raw, err := n.String(ctx, "url")
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, n.Invalid("url %q is not an absolute URL", raw)
	}
	in := &input{url: u, emitData: value.Null(), timeout: DefaultTimeout}

	if in.onEvent, err = n.String(ctx, "on_event"); err != nil {
		return nil, err
	}
	if in.namespace, err = n.StringOr(ctx, "namespace", "/"); err != nil {
		return nil, err
	}
	if in.emitEvent, err = n.StringOr(ctx, "emit_event", ""); err != nil {
		return nil, err
	}
	if n.Has("emit_data") {
		if in.emitData, err = n.Arg(ctx, "emit_data"); err != nil {
			return nil, err
		}
	}
	if n.Has("timeout") {
		ts, err := n.String(ctx, "timeout")
		if err != nil {
			return nil, err
		}
		d, err := time.ParseDuration(ts)
		if err != nil || d <= 0 {
			return nil, n.Invalid("timeout %q is not a positive duration", ts)
		}
		in.timeout = d
	}
	if v, ok := n.LiteralValue("insecure_skip_verify"); ok {
		in.insecure, _ = v.AsBool()
	}
	return in, nil
}

func emit(ctx *block.Context, n *block.Node) (value.Value, error) {
	in, err := parseInput(ctx, n)
	if err != nil {
		return value.Null(), err
	}

	logger := ctx.Logger().With("block", Kind, "url", in.url.String(), "onEvent", in.onEvent, "emitEvent", in.emitEvent)
	logger.Debug("Socket.IO request started.")
	defer logger.Debug("Socket.IO request finished.")

	var isConnected atomic.Bool
	done := make(chan opResult, 1)
	finish := func(r opResult) {
		select {
		case done <- r:
		default:
		}
	}

	opCtx, cancel := context.WithTimeout(ctx.Context(), in.timeout)
	defer cancel()

	opts := socket.DefaultOptions()
	opts.SetPath(in.url.Path)
	opts.SetReconnection(false)
	opts.SetTimeout(in.timeout)
	if in.insecure {
		logger.Warn("Skipping TLS certificate verification.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(fmt.Sprintf("%s://%s", in.url.Scheme, in.url.Host), opts)
	io := manager.Socket(in.namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client.")
		io.Disconnect()
	}()

	payload := value.ToNative(in.emitData)

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Info("Successfully connected.", "namespace", in.namespace, "sid", io.Id())
		if in.emitEvent != "" {
			logger.Info("Emitting event.", "event", in.emitEvent, "data", in.emitData.String())
			if err := io.Emit(in.emitEvent, payload); err != nil {
				finish(opResult{err: fmt.Errorf("emitting %q: %w", in.emitEvent, err)})
			}
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connection failed")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = fmt.Errorf("connection failed: %w", e)
			}
		}
		finish(opResult{err: err})
	})

	io.Once(types.EventName(in.onEvent), func(data ...any) {
		if len(data) == 0 {
			finish(opResult{data: value.Null()})
			return
		}
		v, err := value.FromNative(data[0])
		if err != nil {
			finish(opResult{err: fmt.Errorf("converting %q payload: %w", in.onEvent, err)})
			return
		}
		finish(opResult{data: v})
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if ctx.Context().Err() != nil {
			return value.Null(), ctx.Context().Err()
		}
		if isConnected.Load() {
			return value.Null(), n.Fault(fault.Runtime, fmt.Sprintf("timed out after connecting while waiting for event '%s'", in.onEvent))
		}
		return value.Null(), n.Fault(fault.Runtime, "timed out while waiting for initial connection")
	case res := <-done:
		if res.err != nil {
			return value.Null(), n.Fault(fault.Runtime, res.err.Error(), fault.WithCause(res.err))
		}
		logger.Info("Successfully received response event.", "event", in.onEvent)
		return value.Map(map[string]value.Value{
			"event":         value.String(in.onEvent),
			"response_data": res.data,
		}), nil
	}
}
