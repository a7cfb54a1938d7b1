package value

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
)

// FromCty converts a cty.Value (as produced by HCL evaluation) into a Value.
// Whole numbers that fit in int64 become Integers, everything else Float.
func FromCty(v cty.Value) (Value, error) {
	if v.IsNull() {
		return Null(), nil
	}
	if !v.IsKnown() {
		return Value{}, fmt.Errorf("value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return String(v.AsString()), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return Int(i), nil
			}
		}
		f, _ := bf.Float64()
		return Float(f), nil

	case ty == cty.Bool:
		return Bool(v.True()), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		items := make([]Value, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			item, err := FromCty(elem)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindList, l: items}, nil

	case ty.IsObjectType() || ty.IsMapType():
		entries := make(map[string]Value, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			item, err := FromCty(elem)
			if err != nil {
				return Value{}, fmt.Errorf("in attribute '%s': %w", key.AsString(), err)
			}
			entries[key.AsString()] = item
		}
		return Value{kind: KindMap, m: entries}, nil
	}

	return Value{}, fmt.Errorf("unsupported cty type %s", ty.FriendlyName())
}

// ToCty converts v into a cty.Value. Lists become tuples and maps become
// objects so heterogeneous members are preserved. Handles are rejected.
func ToCty(v Value) (cty.Value, error) {
	switch v.kind {
	case KindNull:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case KindString:
		return cty.StringVal(v.s), nil
	case KindInteger:
		return cty.NumberIntVal(v.i), nil
	case KindFloat:
		return cty.NumberFloatVal(v.f), nil
	case KindBoolean:
		return cty.BoolVal(v.b), nil
	case KindList:
		if len(v.l) == 0 {
			return cty.EmptyTupleVal, nil
		}
		items := make([]cty.Value, len(v.l))
		for i, e := range v.l {
			item, err := ToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			items[i] = item
		}
		return cty.TupleVal(items), nil
	case KindMap:
		if len(v.m) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(v.m))
		for k, e := range v.m {
			item, err := ToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = item
		}
		return cty.ObjectVal(attrs), nil
	}
	return cty.NilVal, fmt.Errorf("cannot convert %s to cty", v.kind)
}
