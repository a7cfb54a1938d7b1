// Package auth registers the "auth" blocks: API-key authentication and
// issuing and verifying short-lived session tokens. Tokens are HS256 JWTs
// signed with the session's token secret, carrying the subject and expiry.
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/value"
)

// Kind is the block kind registered by this package.
const Kind = "auth"

// DefaultTTL is the lifetime of a token issued without an explicit ttl.
const DefaultTTL = time.Hour

// Module implements the block.Module interface for this package.
type Module struct {
	// Now returns the current time; nil means time.Now.
	Now func() time.Time
}

// Register registers auth/simple-key, auth/token-issue and auth/token-verify.
func (m *Module) Register(r *block.Registry) {
	r.RegisterFunc(Kind, "simple-key", block.Shape{Blocks: []string{"key"}}, simpleKey)
	r.RegisterFunc(Kind, "token-issue", block.Shape{Blocks: []string{"subject"}, Optional: []string{"ttl"}}, m.issue)
	r.RegisterFunc(Kind, "token-verify", block.Shape{Blocks: []string{"token"}}, m.verify)
}

func (m *Module) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// denied builds the AuthorizationInvalid fault returned to the caller.
func denied(n *block.Node, msg string) error {
	return n.Fault(fault.AuthorizationInvalid, msg,
		fault.WithStatus(http.StatusUnauthorized),
		fault.WithBody(value.Map(map[string]value.Value{
			"error":   value.String("unauthorized"),
			"message": value.String(msg),
		})),
	)
}

func simpleKey(ctx *block.Context, n *block.Node) (value.Value, error) {
	key, err := n.String(ctx, "key")
	if err != nil {
		return value.Null(), err
	}
	account, ok := ctx.Session().APIKeyAccount(key)
	if !ok || key == "" {
		ctx.Logger().Warn("API key rejected.")
		return value.Null(), denied(n, "invalid api key")
	}
	ctx.Session().SetPrincipal(account)
	ctx.Logger().Debug("API key accepted.", "principal", account)
	return value.String(account), nil
}

func secret(ctx *block.Context, n *block.Node) ([]byte, error) {
	s := ctx.Session().TokenSecret()
	if len(s) == 0 {
		return nil, n.Fault(fault.Runtime, "no token secret configured")
	}
	return s, nil
}

func (m *Module) issue(ctx *block.Context, n *block.Node) (value.Value, error) {
	subject, err := n.String(ctx, "subject")
	if err != nil {
		return value.Null(), err
	}
	if subject == "" {
		return value.Null(), n.Invalid("subject must not be empty")
	}
	ttl, err := n.IntOr(ctx, "ttl", int64(DefaultTTL/time.Second))
	if err != nil {
		return value.Null(), err
	}
	if ttl <= 0 {
		return value.Null(), n.Invalid("ttl must be positive, got %d", ttl)
	}
	key, err := secret(ctx, n)
	if err != nil {
		return value.Null(), err
	}

	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttl) * time.Second)),
	})
	signed, err := token.SignedString(key)
	if err != nil {
		return value.Null(), err
	}
	return value.String(signed), nil
}

func (m *Module) verify(ctx *block.Context, n *block.Node) (value.Value, error) {
	token, err := n.String(ctx, "token")
	if err != nil {
		return value.Null(), err
	}
	key, err := secret(ctx, n)
	if err != nil {
		return value.Null(), err
	}

	var c jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return value.Null(), denied(n, "token expired")
	case err != nil || c.Subject == "":
		ctx.Logger().Debug("Token rejected.", "error", err)
		return value.Null(), denied(n, "invalid token")
	}

	ctx.Session().SetPrincipal(c.Subject)
	return value.Map(map[string]value.Value{
		"subject":    value.String(c.Subject),
		"expires_at": value.Int(c.ExpiresAt.Unix()),
	}), nil
}
