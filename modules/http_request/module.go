// Package http_request registers the "http" block, which performs an
// outbound HTTP call through the session's REST client.
package http_request

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Kind is the block kind registered by this package.
const Kind = "http"

// Module implements the block.Module interface for this package.
type Module struct{}

// Register registers http/request.
func (m *Module) Register(r *block.Registry) {
	r.RegisterFunc(Kind, "request", block.Shape{
		Blocks:           []string{"url"},
		Optional:         []string{"method", "headers", "body"},
		OptionalLiterals: []string{"decode"},
	}, request)
}

func request(ctx *block.Context, n *block.Node) (value.Value, error) {
	url, err := n.String(ctx, "url")
	if err != nil {
		return value.Null(), err
	}
	method, err := n.StringOr(ctx, "method", http.MethodGet)
	if err != nil {
		return value.Null(), err
	}
	method = strings.ToUpper(method)

	req := ctx.Session().REST().R().SetContext(ctx.Context())

	if n.Has("headers") {
		headers, err := n.MapArg(ctx, "headers")
		if err != nil {
			return value.Null(), err
		}
		hs := make(map[string]string, len(headers))
		for k, v := range headers {
			s, ok := v.AsString()
			if !ok {
				return value.Null(), n.Invalid("header %q must be String, got %s", k, v.Kind())
			}
			hs[k] = s
		}
		req.SetHeaders(hs)
	}

	if n.Has("body") {
		body, err := n.Arg(ctx, "body")
		if err != nil {
			return value.Null(), err
		}
		switch body.Kind() {
		case value.KindNull:
		case value.KindString:
			s, _ := body.AsString()
			req.SetBody(s)
		default:
			raw, err := json.Marshal(body)
			if err != nil {
				return value.Null(), n.Invalid("body: %v", err)
			}
			req.SetHeader("Content-Type", "application/json")
			req.SetBody(raw)
		}
	}

	ctx.Logger().Info("Making HTTP request.", "method", method, "url", url)

	resp, err := req.Execute(method, url)
	if err != nil {
		return value.Null(), n.Fault(fault.Runtime, err.Error(), fault.WithCause(err))
	}
	ctx.Logger().Info("Received HTTP response.", "status", resp.StatusCode())

	decode := false
	if v, ok := n.LiteralValue("decode"); ok {
		decode, _ = v.AsBool()
	}
	payload := value.String(string(resp.Bytes()))
	if decode && len(resp.Bytes()) > 0 {
		payload, err = decodeJSON(resp.Bytes())
		if err != nil {
			return value.Null(), n.Fault(fault.Runtime, "decoding response body: "+err.Error(), fault.WithCause(err))
		}
	}

	headers := make(map[string]value.Value, len(resp.Header()))
	for k := range resp.Header() {
		headers[k] = value.String(resp.Header().Get(k))
	}

	return value.Map(map[string]value.Value{
		"status_code": value.Int(int64(resp.StatusCode())),
		"headers":     value.Map(headers),
		"body":        payload,
	}), nil
}

func decodeJSON(b []byte) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return value.Null(), err
	}
	return value.FromNative(out)
}
