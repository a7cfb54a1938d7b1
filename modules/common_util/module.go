// Package common_util registers the string and JSON utility blocks of the
// "common-util" kind.
package common_util

import (
	"github.com/specialistvlad/planrunner/internal/block"
)

// Kind is the block kind registered by this package.
const Kind = "common-util"

// Module implements the block.Module interface for this package.
type Module struct{}

// Register registers the common-util blocks.
func (m *Module) Register(r *block.Registry) {
	r.RegisterFunc(Kind, "string-concat", block.Shape{Blocks: []string{"target"}, Lists: []string{"values"}}, concat)
	r.RegisterFunc(Kind, "string-replace", block.Shape{
		Blocks:   []string{"target", "search", "replace"},
		Optional: []string{"encoding"},
	}, replace)
	r.RegisterFunc(Kind, "string-upper", block.Shape{Blocks: []string{"target"}, Optional: []string{"language"}}, upper)
	r.RegisterFunc(Kind, "string-lower", block.Shape{Blocks: []string{"target"}, Optional: []string{"language"}}, lower)
	r.RegisterFunc(Kind, "string-trim", block.Shape{Blocks: []string{"target"}, Optional: []string{"characters"}}, trim)
	r.RegisterFunc(Kind, "string-split", block.Shape{Blocks: []string{"target", "separator"}}, split)
	r.RegisterFunc(Kind, "string-join", block.Shape{Lists: []string{"values"}, Optional: []string{"separator"}}, join)
	r.RegisterFunc(Kind, "string-length", block.Shape{Blocks: []string{"target"}, Optional: []string{"encoding"}}, length)
	r.RegisterFunc(Kind, "string-substring", block.Shape{
		Blocks:   []string{"target", "start"},
		Optional: []string{"length", "encoding"},
	}, substring)
	r.RegisterFunc(Kind, "string-contains", block.Shape{Blocks: []string{"target", "search"}}, contains)
	r.RegisterFunc(Kind, "json-encode", block.Shape{Blocks: []string{"value"}}, jsonEncode)
	r.RegisterFunc(Kind, "json-decode", block.Shape{Blocks: []string{"target"}}, jsonDecode)
}
