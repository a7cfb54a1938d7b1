// Package s3 registers the "s3" blocks, which move objects to and from
// pre-signed object storage URLs.
package s3

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Kind is the block kind registered by this package.
const Kind = "s3"

// maxDownload bounds the object size a download block reads into memory.
const maxDownload = 32 << 20

// Module implements the block.Module interface for this package.
type Module struct{}

// Register registers s3/upload and s3/download.
func (m *Module) Register(r *block.Registry) {
	r.RegisterFunc(Kind, "upload", block.Shape{
		Blocks:   []string{"upload_url", "body"},
		Optional: []string{"content_type", "filename"},
	}, upload)
	r.RegisterFunc(Kind, "download", block.Shape{Blocks: []string{"url"}}, download)
}

func contentType(ctx *block.Context, n *block.Node) (string, error) {
	if n.Has("content_type") {
		return n.String(ctx, "content_type")
	}
	name, err := n.StringOr(ctx, "filename", "")
	if err != nil {
		return "", err
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct, nil
	}
	return "application/octet-stream", nil
}

func upload(ctx *block.Context, n *block.Node) (value.Value, error) {
	url, err := n.String(ctx, "upload_url")
	if err != nil {
		return value.Null(), err
	}
	body, err := n.String(ctx, "body")
	if err != nil {
		return value.Null(), err
	}
	ct, err := contentType(ctx, n)
	if err != nil {
		return value.Null(), err
	}

	req, err := http.NewRequestWithContext(ctx.Context(), http.MethodPut, url, strings.NewReader(body))
	if err != nil {
		return value.Null(), n.Invalid("creating upload request: %v", err)
	}
	req.Header.Set("Content-Type", ct)
	req.ContentLength = int64(len(body))

	logger := ctx.Logger().With("action", "upload")
	logger.Info("Uploading object.", "size", len(body), "contentType", ct)

	resp, err := ctx.Session().HTTPClient().Do(req)
	if err != nil {
		return value.Null(), n.Fault(fault.Storage, fmt.Sprintf("executing upload request: %v", err), fault.WithCause(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return value.Null(), n.Fault(fault.Storage, "upload failed with status: "+resp.Status)
	}

	logger.Info("Successfully uploaded object.", "status", resp.Status)

	return value.Map(map[string]value.Value{
		"success": value.Bool(true),
		"status":  value.String(resp.Status),
	}), nil
}

func download(ctx *block.Context, n *block.Node) (value.Value, error) {
	url, err := n.String(ctx, "url")
	if err != nil {
		return value.Null(), err
	}
	req, err := http.NewRequestWithContext(ctx.Context(), http.MethodGet, url, nil)
	if err != nil {
		return value.Null(), n.Invalid("creating download request: %v", err)
	}

	resp, err := ctx.Session().HTTPClient().Do(req)
	if err != nil {
		return value.Null(), n.Fault(fault.Storage, fmt.Sprintf("executing download request: %v", err), fault.WithCause(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return value.Null(), n.Fault(fault.Storage, "download failed with status: "+resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload+1))
	if err != nil {
		return value.Null(), n.Fault(fault.Storage, fmt.Sprintf("reading object: %v", err), fault.WithCause(err))
	}
	if len(b) > maxDownload {
		return value.Null(), n.Fault(fault.LimitExceeded, fmt.Sprintf("object exceeds %d bytes", maxDownload))
	}

	ctx.Logger().Info("Downloaded object.", "action", "download", "size", len(b))
	return value.Map(map[string]value.Value{
		"body":         value.String(string(b)),
		"content_type": value.String(resp.Header.Get("Content-Type")),
	}), nil
}
