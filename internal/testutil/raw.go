package testutil

// Raw builds the wire form of a block.
func Raw(kind, action string, slots map[string]any) map[string]any {
	if slots == nil {
		slots = map[string]any{}
	}
	return map[string]any{"type": kind, "action": action, "template": slots}
}

// Str is a primitive string block.
func Str(s string) map[string]any {
	return Raw("primitive", "string", map[string]any{"value": s})
}

// Int is a primitive integer block.
func Int(i int64) map[string]any {
	return Raw("primitive", "integer", map[string]any{"value": i})
}

// Bool is a primitive boolean block.
func Bool(b bool) map[string]any {
	return Raw("primitive", "boolean", map[string]any{"value": b})
}

// Null is the primitive null block.
func Null() map[string]any {
	return Raw("primitive", "null", nil)
}

// List is a primitive list block.
func List(items ...any) map[string]any {
	if items == nil {
		items = []any{}
	}
	return Raw("primitive", "list", map[string]any{"items": items})
}

// Param reads a request parameter.
func Param(name string) map[string]any {
	return Raw("request", "param", map[string]any{"name": name})
}

// Op is an operator token.
func Op(action string) map[string]any {
	return Raw("operator", action, nil)
}

func statements(s []any) []any {
	if s == nil {
		return []any{}
	}
	return s
}

// If is an if branch.
func If(expression []any, body ...any) map[string]any {
	return Raw("control", "if", map[string]any{"expression": expression, "statements": statements(body)})
}

// Elseif is an elseif branch.
func Elseif(expression []any, body ...any) map[string]any {
	return Raw("control", "elseif", map[string]any{"expression": expression, "statements": statements(body)})
}

// Else is an else branch.
func Else(body ...any) map[string]any {
	return Raw("control", "else", map[string]any{"statements": statements(body)})
}
