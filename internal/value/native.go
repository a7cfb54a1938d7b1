package value

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// FromNative converts a decoded JSON/YAML/CBOR tree (or plain Go values)
// into a Value. Whole json.Numbers become Integers.
func FromNative(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return fromUint(x)
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case json.Number:
		if i, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return Float(f), nil
	case []byte:
		return String(string(x)), nil
	case []any:
		items := make([]Value, len(x))
		for i, e := range x {
			item, err := FromNative(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = item
		}
		return Value{kind: KindList, l: items}, nil
	case []string:
		items := make([]Value, len(x))
		for i, e := range x {
			items[i] = String(e)
		}
		return Value{kind: KindList, l: items}, nil
	case map[string]any:
		entries := make(map[string]Value, len(x))
		for k, e := range x {
			item, err := FromNative(e)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			entries[k] = item
		}
		return Value{kind: KindMap, m: entries}, nil
	case map[any]any:
		entries := make(map[string]Value, len(x))
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("map key %v is %T, want string", k, k)
			}
			item, err := FromNative(e)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", ks, err)
			}
			entries[ks] = item
		}
		return Value{kind: KindMap, m: entries}, nil
	case map[string]string:
		entries := make(map[string]Value, len(x))
		for k, e := range x {
			entries[k] = String(e)
		}
		return Value{kind: KindMap, m: entries}, nil
	}
	return Value{}, fmt.Errorf("unsupported native type %T", v)
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// ToNative converts v into plain Go values: string, int64, float64, bool,
// nil, []any and map[string]any. Handles are returned as-is.
func ToNative(v Value) any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindBoolean:
		return v.b
	case KindList:
		out := make([]any, len(v.l))
		for i, e := range v.l {
			out[i] = ToNative(e)
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = ToNative(e)
		}
		return out
	case KindHandle:
		return v.h
	}
	return nil
}

// MarshalJSON encodes v as its natural JSON form. Handles encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindFloat && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return nil, fmt.Errorf("value: cannot encode %v as JSON", v.f)
	}
	return json.Marshal(jsonNative(v))
}

func jsonNative(v Value) any {
	switch v.kind {
	case KindHandle:
		return nil
	case KindList:
		out := make([]any, len(v.l))
		for i, e := range v.l {
			out[i] = jsonNative(e)
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = jsonNative(e)
		}
		return out
	}
	return ToNative(v)
}
