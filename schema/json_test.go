package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddJSONBuildsNamespaceTypeEnum(t *testing.T) {
	root := NewRoot()
	body, err := ParseJSON([]byte(`{
		"pkg": {
			"nested": {
				"Color": {"values": {"RED": 0, "GREEN": 1}},
				"Widget": {
					"fields": {
						"name":  {"id": 1, "type": "string"},
						"color": {"id": 2, "type": "Color"}
					}
				}
			}
		}
	}`))
	require.NoError(t, err)
	require.NoError(t, root.AddJSON(body))
	require.NoError(t, root.ResolveAll())

	widget := root.Lookup("pkg.Widget", false)
	typ, ok := widget.(*Type)
	require.True(t, ok)
	require.Len(t, typ.Fields(), 2)
	assert.Equal(t, uint32(2), typ.Fields()[1].ID())
}

func TestAddJSONFieldWithExtendGoesToNamespaceNotFields(t *testing.T) {
	root := NewRoot()
	body, err := ParseJSON([]byte(`{
		"Target": {"fields": {"x": {"id": 1, "type": "int32"}}},
		"ext": {"id": 50, "type": "int32", "extend": ".Target"}
	}`))
	require.NoError(t, err)
	require.NoError(t, root.AddJSON(body))
	require.NoError(t, root.ResolveAll())

	target := root.Lookup("Target", false).(*Type)
	require.Len(t, target.Extensions(), 1)
	assert.Equal(t, "ext", target.Extensions()[0].Name())
}

func TestAddJSONRejectsNonObjectEntry(t *testing.T) {
	root := NewRoot()
	body, err := ParseJSON([]byte(`{"x": 5}`))
	require.NoError(t, err)
	err = root.AddJSON(body)
	require.Error(t, err)
}

func TestToJSONOmitsInvisibleEmptyNamespace(t *testing.T) {
	root := NewRoot()
	empty := NewNamespace("empty")
	require.NoError(t, root.Add(empty))

	out, ok := root.ToJSON()
	require.True(t, ok)
	raw, err := out.MarshalJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "empty")
}

func TestToJSONRoundTrip(t *testing.T) {
	root := NewRoot()
	body, err := ParseJSON([]byte(`{
		"pkg": {
			"nested": {
				"Widget": {
					"fields": {
						"name": {"id": 1, "type": "string"}
					}
				}
			}
		}
	}`))
	require.NoError(t, err)
	require.NoError(t, root.AddJSON(body))
	require.NoError(t, root.ResolveAll())

	out, ok := root.ToJSON()
	require.True(t, ok)
	raw, err := out.MarshalJSON()
	require.NoError(t, err)

	rebuilt := NewRoot()
	reparsed, err := ParseJSON(raw)
	require.NoError(t, err)
	// Root.ToJSON wraps its children under "nested"; AddJSON takes that
	// name-to-body map itself.
	nested, ok := reparsed.obj("nested")
	require.True(t, ok)
	require.NoError(t, rebuilt.AddJSON(nested))
	require.NoError(t, rebuilt.ResolveAll())

	widget := rebuilt.Lookup("pkg.Widget", false)
	typ, ok := widget.(*Type)
	require.True(t, ok)
	require.Len(t, typ.Fields(), 1)
	assert.Equal(t, "name", typ.Fields()[0].Name())
}

func TestAddJSONMapFieldDefaultsToEmptyMap(t *testing.T) {
	root := NewRoot()
	body, err := ParseJSON([]byte(`{
		"Widget": {
			"fields": {
				"labels": {"id": 1, "type": "string", "map": true}
			}
		}
	}`))
	require.NoError(t, err)
	require.NoError(t, root.AddJSON(body))
	require.NoError(t, root.ResolveAll())

	widget := root.Lookup("Widget", false).(*Type)
	require.Len(t, widget.Fields(), 1)
	labels := widget.Fields()[0]
	assert.True(t, labels.IsMap())
	assert.Equal(t, map[string]interface{}{}, labels.DefaultValue())
}

func TestOrderedJSONPreservesKeyOrder(t *testing.T) {
	body, err := ParseJSON([]byte(`{"z": 1, "a": 2, "m": 3}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, body.keys)
}
