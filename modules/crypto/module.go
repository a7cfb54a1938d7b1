// Package crypto registers hashing, encoding and token-generation blocks.
package crypto

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"hash"
	"strings"

	"github.com/google/uuid"
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/value"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Kind is the block kind registered by this package.
const Kind = "crypto"

// maxRandomBytes bounds the random action.
const maxRandomBytes = 1024

var algorithms = map[string]func() hash.Hash{
	"md5":      md5.New,
	"sha1":     sha1.New,
	"sha256":   sha256.New,
	"sha512":   sha512.New,
	"sha3-256": sha3.New256,
	"blake2b-256": func() hash.Hash {
		h, _ := blake2b.New256(nil)
		return h
	},
}

// Module implements the block.Module interface for this package.
type Module struct{}

// Register registers the crypto blocks.
func (m *Module) Register(r *block.Registry) {
	r.RegisterFunc(Kind, "hash", block.Shape{Blocks: []string{"algorithm", "target"}}, digest)
	r.RegisterFunc(Kind, "hmac", block.Shape{Blocks: []string{"algorithm", "key", "target"}}, mac)
	r.RegisterFunc(Kind, "base64-encode", block.Shape{Blocks: []string{"target"}}, func(ctx *block.Context, n *block.Node) (value.Value, error) {
		target, err := n.String(ctx, "target")
		if err != nil {
			return value.Null(), err
		}
		return value.String(base64.StdEncoding.EncodeToString([]byte(target))), nil
	})
	r.RegisterFunc(Kind, "base64-decode", block.Shape{Blocks: []string{"target"}}, func(ctx *block.Context, n *block.Node) (value.Value, error) {
		target, err := n.String(ctx, "target")
		if err != nil {
			return value.Null(), err
		}
		data, err := base64.StdEncoding.DecodeString(target)
		if err != nil {
			return value.Null(), n.Invalid("target is not valid base64: %v", err)
		}
		return value.String(string(data)), nil
	})
	r.RegisterFunc(Kind, "hex-encode", block.Shape{Blocks: []string{"target"}}, func(ctx *block.Context, n *block.Node) (value.Value, error) {
		target, err := n.String(ctx, "target")
		if err != nil {
			return value.Null(), err
		}
		return value.String(hex.EncodeToString([]byte(target))), nil
	})
	r.RegisterFunc(Kind, "bcrypt-hash", block.Shape{Blocks: []string{"target"}, Optional: []string{"cost"}}, bcryptHash)
	r.RegisterFunc(Kind, "bcrypt-verify", block.Shape{Blocks: []string{"hash", "target"}}, bcryptVerify)
	r.RegisterFunc(Kind, "uuid", block.Shape{}, func(*block.Context, *block.Node) (value.Value, error) {
		return value.String(uuid.NewString()), nil
	})
	r.RegisterFunc(Kind, "random", block.Shape{Blocks: []string{"bytes"}}, random)
}

func algorithm(ctx *block.Context, n *block.Node) (func() hash.Hash, error) {
	name, err := n.String(ctx, "algorithm")
	if err != nil {
		return nil, err
	}
	mk, ok := algorithms[strings.ToLower(name)]
	if !ok {
		return nil, n.Invalid("unsupported algorithm %q", name)
	}
	return mk, nil
}

func digest(ctx *block.Context, n *block.Node) (value.Value, error) {
	mk, err := algorithm(ctx, n)
	if err != nil {
		return value.Null(), err
	}
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	h := mk()
	h.Write([]byte(target))
	return value.String(hex.EncodeToString(h.Sum(nil))), nil
}

func mac(ctx *block.Context, n *block.Node) (value.Value, error) {
	mk, err := algorithm(ctx, n)
	if err != nil {
		return value.Null(), err
	}
	key, err := n.String(ctx, "key")
	if err != nil {
		return value.Null(), err
	}
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	h := hmac.New(mk, []byte(key))
	h.Write([]byte(target))
	return value.String(hex.EncodeToString(h.Sum(nil))), nil
}

func bcryptHash(ctx *block.Context, n *block.Node) (value.Value, error) {
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	cost, err := n.IntOr(ctx, "cost", int64(bcrypt.DefaultCost))
	if err != nil {
		return value.Null(), err
	}
	if cost < int64(bcrypt.MinCost) || cost > int64(bcrypt.MaxCost) {
		return value.Null(), n.Invalid("cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(target), int(cost))
	if err != nil {
		return value.Null(), n.Invalid("%v", err)
	}
	return value.String(string(hashed)), nil
}

func bcryptVerify(ctx *block.Context, n *block.Node) (value.Value, error) {
	hashed, err := n.String(ctx, "hash")
	if err != nil {
		return value.Null(), err
	}
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	err = bcrypt.CompareHashAndPassword([]byte(hashed), []byte(target))
	switch {
	case err == nil:
		return value.Bool(true), nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return value.Bool(false), nil
	}
	return value.Null(), n.Invalid("hash is not a bcrypt hash: %v", err)
}

func random(ctx *block.Context, n *block.Node) (value.Value, error) {
	size, err := n.Int(ctx, "bytes")
	if err != nil {
		return value.Null(), err
	}
	if size <= 0 || size > maxRandomBytes {
		return value.Null(), n.Invalid("bytes must be between 1 and %d, got %d", maxRandomBytes, size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return value.Null(), err
	}
	return value.String(hex.EncodeToString(buf)), nil
}
