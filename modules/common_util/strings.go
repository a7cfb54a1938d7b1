package common_util

import (
	"strings"
	"unicode/utf8"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	encodingUTF8   = "utf-8"
	encodingBinary = "binary"
)

// encoding reads the optional "encoding" slot. utf-8 operations count and
// slice runes and reject invalid UTF-8; binary operations work on bytes.
func encoding(ctx *block.Context, n *block.Node, target string) (string, error) {
	enc, err := n.StringOr(ctx, "encoding", encodingUTF8)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(enc) {
	case encodingUTF8, "utf8":
		if !utf8.ValidString(target) {
			return "", n.Invalid("target is not valid UTF-8")
		}
		return encodingUTF8, nil
	case encodingBinary:
		return encodingBinary, nil
	}
	return "", n.Invalid("encoding must be %q or %q, got %q", encodingUTF8, encodingBinary, enc)
}

// fromCty unwraps the result of a cty stdlib call.
func fromCty(n *block.Node, v cty.Value, err error) (value.Value, error) {
	if err != nil {
		return value.Null(), n.Invalid("%v", err)
	}
	out, err := value.FromCty(v)
	if err != nil {
		return value.Null(), n.Invalid("%v", err)
	}
	return out, nil
}

func concat(ctx *block.Context, n *block.Node) (value.Value, error) {
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	values, err := n.Strings(ctx, "values")
	if err != nil {
		return value.Null(), err
	}
	var b strings.Builder
	b.WriteString(target)
	for _, v := range values {
		b.WriteString(v)
	}
	return value.String(b.String()), nil
}

func replace(ctx *block.Context, n *block.Node) (value.Value, error) {
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	search, err := n.String(ctx, "search")
	if err != nil {
		return value.Null(), err
	}
	repl, err := n.String(ctx, "replace")
	if err != nil {
		return value.Null(), err
	}
	if _, err := encoding(ctx, n, target); err != nil {
		return value.Null(), err
	}
	if search == "" {
		return value.Null(), n.Invalid("search must not be empty")
	}
	out, err := stdlib.Replace(cty.StringVal(target), cty.StringVal(search), cty.StringVal(repl))
	return fromCty(n, out, err)
}

func caser(ctx *block.Context, n *block.Node, mk func(language.Tag, ...cases.Option) cases.Caser) (value.Value, error) {
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	lang, err := n.StringOr(ctx, "language", "und")
	if err != nil {
		return value.Null(), err
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return value.Null(), n.Invalid("language %q: %v", lang, err)
	}
	return value.String(mk(tag).String(target)), nil
}

func upper(ctx *block.Context, n *block.Node) (value.Value, error) {
	return caser(ctx, n, cases.Upper)
}

func lower(ctx *block.Context, n *block.Node) (value.Value, error) {
	return caser(ctx, n, cases.Lower)
}

func trim(ctx *block.Context, n *block.Node) (value.Value, error) {
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	if !n.Has("characters") {
		out, err := stdlib.TrimSpace(cty.StringVal(target))
		return fromCty(n, out, err)
	}
	chars, err := n.String(ctx, "characters")
	if err != nil {
		return value.Null(), err
	}
	out, err := stdlib.Trim(cty.StringVal(target), cty.StringVal(chars))
	return fromCty(n, out, err)
}

func split(ctx *block.Context, n *block.Node) (value.Value, error) {
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	sep, err := n.String(ctx, "separator")
	if err != nil {
		return value.Null(), err
	}
	out, err := stdlib.Split(cty.StringVal(sep), cty.StringVal(target))
	return fromCty(n, out, err)
}

func join(ctx *block.Context, n *block.Node) (value.Value, error) {
	values, err := n.Strings(ctx, "values")
	if err != nil {
		return value.Null(), err
	}
	sep, err := n.StringOr(ctx, "separator", "")
	if err != nil {
		return value.Null(), err
	}
	list := cty.ListValEmpty(cty.String)
	if len(values) > 0 {
		items := make([]cty.Value, len(values))
		for i, v := range values {
			items[i] = cty.StringVal(v)
		}
		list = cty.ListVal(items)
	}
	out, err := stdlib.Join(cty.StringVal(sep), list)
	return fromCty(n, out, err)
}

func length(ctx *block.Context, n *block.Node) (value.Value, error) {
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	enc, err := encoding(ctx, n, target)
	if err != nil {
		return value.Null(), err
	}
	if enc == encodingBinary {
		return value.Int(int64(len(target))), nil
	}
	return value.Int(int64(utf8.RuneCountInString(target))), nil
}

func substring(ctx *block.Context, n *block.Node) (value.Value, error) {
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	start, err := n.Int(ctx, "start")
	if err != nil {
		return value.Null(), err
	}
	enc, err := encoding(ctx, n, target)
	if err != nil {
		return value.Null(), err
	}

	var units []rune
	size := int64(len(target))
	if enc == encodingUTF8 {
		units = []rune(target)
		size = int64(len(units))
	}

	count, err := n.IntOr(ctx, "length", size)
	if err != nil {
		return value.Null(), err
	}
	if start < 0 || count < 0 {
		return value.Null(), n.Invalid("start and length must not be negative")
	}
	start = min(start, size)
	end := start + min(count, size-start)

	if enc == encodingBinary {
		return value.String(target[start:end]), nil
	}
	return value.String(string(units[start:end])), nil
}

func contains(ctx *block.Context, n *block.Node) (value.Value, error) {
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	search, err := n.String(ctx, "search")
	if err != nil {
		return value.Null(), err
	}
	return value.Bool(strings.Contains(target, search)), nil
}
