package plan

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/specialistvlad/planrunner/internal/block"
	"gopkg.in/yaml.v3"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	if cborEnc, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// ParseJSON decodes, validates and parses a JSON plan document. Numbers
// keep their exact form so whole numbers become Integers.
func ParseJSON(reg *block.Registry, data []byte) (*Plan, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, malformed("invalid JSON: %v", err)
	}
	if dec.More() {
		return nil, malformed("invalid JSON: trailing data after document")
	}
	return parseDoc(reg, doc)
}

// ParseYAML is ParseJSON for YAML documents.
func ParseYAML(reg *block.Registry, data []byte) (*Plan, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, malformed("invalid YAML: %v", err)
	}
	return parseDoc(reg, doc)
}

// UnmarshalCBOR is ParseJSON for CBOR-encoded documents, the form plans
// take in the SQL plan store.
func UnmarshalCBOR(reg *block.Registry, data []byte) (*Plan, error) {
	var doc any
	if err := cborDec.Unmarshal(data, &doc); err != nil {
		return nil, malformed("invalid CBOR: %v", err)
	}
	return parseDoc(reg, doc)
}

func parseDoc(reg *block.Registry, doc any) (*Plan, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	// The schema guarantees an object at the top level.
	return Decode(reg, doc.(map[string]any))
}

// MarshalJSON implements json.Marshaler with the document form.
func (p *Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Raw())
}

// MarshalCBOR encodes the document form deterministically.
func (p *Plan) MarshalCBOR() ([]byte, error) {
	return cborEnc.Marshal(p.Raw())
}
