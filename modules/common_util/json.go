package common_util

import (
	"encoding/json"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/value"
)

// jsonEncode goes through Value.MarshalJSON so handles inside the value
// encode as null instead of failing the cty conversion.
func jsonEncode(ctx *block.Context, n *block.Node) (value.Value, error) {
	v, err := n.Arg(ctx, "value")
	if err != nil {
		return value.Null(), err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return value.Null(), n.Invalid("value cannot be encoded: %v", err)
	}
	return value.String(string(data)), nil
}

func jsonDecode(ctx *block.Context, n *block.Node) (value.Value, error) {
	target, err := n.String(ctx, "target")
	if err != nil {
		return value.Null(), err
	}
	out, err := stdlib.JSONDecode(cty.StringVal(target))
	if err != nil {
		return value.Null(), n.Invalid("target is not valid JSON: %v", err)
	}
	return fromCty(n, out, nil)
}
