package app

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/planrunner/internal/block"
	"github.com/specialistvlad/planrunner/internal/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectKeys walks a raw document and records the key of every block in it.
func collectKeys(raw any, into map[block.Key]bool) {
	switch x := raw.(type) {
	case map[string]any:
		kind, kok := x["type"].(string)
		action, aok := x["action"].(string)
		if kok && aok {
			into[block.Key{Kind: kind, Action: action}] = true
		}
		for _, v := range x {
			collectKeys(v, into)
		}
	case []any:
		for _, v := range x {
			collectKeys(v, into)
		}
	}
}

func TestCatalogRoundTrip(t *testing.T) {
	reg := block.NewRegistry(CoreModules()...)

	data, err := os.ReadFile("testdata/catalog.yaml")
	require.NoError(t, err)
	p, err := plan.ParseYAML(reg, data)
	require.NoError(t, err)
	require.True(t, p.Test())

	first := p.Raw()

	keys := map[block.Key]bool{}
	collectKeys(first, keys)
	for _, k := range reg.Keys() {
		assert.True(t, keys[k], "catalog has no %s/%s block", k.Kind, k.Action)
	}

	asJSON, err := json.Marshal(p)
	require.NoError(t, err)
	fromJSON, err := plan.ParseJSON(reg, asJSON)
	require.NoError(t, err)
	if diff := cmp.Diff(first, fromJSON.Raw()); diff != "" {
		t.Errorf("JSON round trip mismatch (-want +got):\n%s", diff)
	}

	asCBOR, err := p.MarshalCBOR()
	require.NoError(t, err)
	fromCBOR, err := plan.UnmarshalCBOR(reg, asCBOR)
	require.NoError(t, err)
	if diff := cmp.Diff(first, fromCBOR.Raw()); diff != "" {
		t.Errorf("CBOR round trip mismatch (-want +got):\n%s", diff)
	}
}
