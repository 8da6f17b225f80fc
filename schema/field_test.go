package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protodyn/protowire/wire"
)

func TestFieldResolveScalarSetsDefault(t *testing.T) {
	root := NewRoot()
	typ := NewType("T")
	require.NoError(t, root.Add(typ))
	f := NewField("count", 1, "uint32", RuleOptional)
	require.NoError(t, typ.AddField(f))

	require.NoError(t, root.ResolveAll())
	assert.Equal(t, uint32(0), f.DefaultValue())
	assert.Nil(t, f.ResolvedType())
}

func TestFieldResolveUndeclaredTypeFails(t *testing.T) {
	root := NewRoot()
	typ := NewType("T")
	require.NoError(t, root.Add(typ))
	require.NoError(t, typ.AddField(NewField("x", 1, "Nope", RuleOptional)))

	err := root.ResolveAll()
	require.ErrorIs(t, err, ErrUnresolvedType)
}

func TestFieldResolveMessageType(t *testing.T) {
	root := NewRoot()
	inner := NewType("Inner")
	require.NoError(t, root.Add(inner))
	outer := NewType("Outer")
	require.NoError(t, root.Add(outer))
	f := NewField("inner", 1, "Inner", RuleOptional)
	require.NoError(t, outer.AddField(f))

	require.NoError(t, root.ResolveAll())
	assert.Same(t, inner, f.ResolvedType())
}

func TestFieldRepeatedDefaultIsEmptySlice(t *testing.T) {
	root := NewRoot()
	typ := NewType("T")
	require.NoError(t, root.Add(typ))
	f := NewField("xs", 1, "int32", RuleRepeated)
	require.NoError(t, typ.AddField(f))
	require.NoError(t, root.ResolveAll())
	assert.Equal(t, []interface{}{}, f.DefaultValue())
}

func TestFieldEncodeSingularScalar(t *testing.T) {
	root := NewRoot()
	typ := NewType("T")
	require.NoError(t, root.Add(typ))
	f := NewField("x", 3, "int32", RuleOptional)
	require.NoError(t, typ.AddField(f))
	require.NoError(t, root.ResolveAll())

	w := wire.NewWriter()
	require.NoError(t, f.Encode(int32(150), w))
	out := w.Finish()
	// tag (3<<3)|0 = 0x18, varint(150) = 0x96 0x01
	assert.Equal(t, []byte{0x18, 0x96, 0x01}, out)
}

func TestFieldEncodePackedRepeated(t *testing.T) {
	root := NewRoot()
	typ := NewType("T")
	require.NoError(t, root.Add(typ))
	f := NewField("xs", 4, "int32", RuleRepeated)
	require.NoError(t, typ.AddField(f))
	require.NoError(t, root.ResolveAll())

	w := wire.NewWriter()
	require.NoError(t, f.Encode([]interface{}{int32(1), int32(2), int32(3)}, w))
	out := w.Finish()
	// tag (4<<3)|2 = 0x22, len 3, then three 1-byte varints.
	assert.Equal(t, []byte{0x22, 0x03, 0x01, 0x02, 0x03}, out)
}

func TestFieldEncodeUnpackedWhenPackedOptionFalse(t *testing.T) {
	root := NewRoot()
	typ := NewType("T")
	require.NoError(t, root.Add(typ))
	f := NewField("xs", 4, "int32", RuleRepeated)
	f.SetOption("packed", false, false)
	require.NoError(t, typ.AddField(f))
	require.NoError(t, root.ResolveAll())

	w := wire.NewWriter()
	require.NoError(t, f.Encode([]interface{}{int32(1), int32(2)}, w))
	out := w.Finish()
	tag := byte((4 << 3) | 0)
	assert.Equal(t, []byte{tag, 0x01, tag, 0x02}, out)
}

func TestFieldJSONConvertEnumUsesName(t *testing.T) {
	root := NewRoot()
	e := NewEnum("Color")
	e.Add("RED", 0)
	e.Add("GREEN", 1)
	require.NoError(t, root.Add(e))
	typ := NewType("T")
	require.NoError(t, root.Add(typ))
	f := NewField("color", 1, "Color", RuleOptional)
	require.NoError(t, typ.AddField(f))
	require.NoError(t, root.ResolveAll())

	v, err := f.JSONConvert(int32(1), JSONConvertOptions{UseEnumNames: true})
	require.NoError(t, err)
	assert.Equal(t, "GREEN", v)
}

func TestFieldJSONConvertLongAsString(t *testing.T) {
	root := NewRoot()
	typ := NewType("T")
	require.NoError(t, root.Add(typ))
	f := NewField("big", 1, "uint64", RuleOptional)
	require.NoError(t, typ.AddField(f))
	require.NoError(t, root.ResolveAll())

	v, err := f.JSONConvert(uint64(42), JSONConvertOptions{Long: "string"})
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestFieldMapDefaultValueIsEmptyMap(t *testing.T) {
	root := NewRoot()
	typ := NewType("T")
	require.NoError(t, root.Add(typ))
	f := NewField("tags", 1, "string", RuleOptional).SetMap(true)
	require.NoError(t, typ.AddField(f))

	require.NoError(t, root.ResolveAll())
	assert.True(t, f.IsMap())
	assert.Equal(t, map[string]interface{}{}, f.DefaultValue())
}

func TestFieldJSONConvertMapConvertsElementwise(t *testing.T) {
	root := NewRoot()
	typ := NewType("T")
	require.NoError(t, root.Add(typ))
	f := NewField("counts", 1, "uint64", RuleOptional).SetMap(true)
	require.NoError(t, typ.AddField(f))
	require.NoError(t, root.ResolveAll())

	v, err := f.JSONConvert(map[string]interface{}{"a": uint64(1), "b": uint64(2)}, JSONConvertOptions{Long: "string"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": "1", "b": "2"}, v)
}

func TestFieldExtensionResolution(t *testing.T) {
	root := NewRoot()
	target := NewType("Target")
	require.NoError(t, root.Add(target))

	ext := NewField("bonus", 50, "int32", RuleOptional)
	ext.SetExtend(".Target")
	require.NoError(t, root.Add(ext))
	require.NoError(t, root.ResolveAll())

	require.Len(t, target.Extensions(), 1)
	sister := target.Extensions()[0]
	assert.Equal(t, uint32(50), sister.ID())
	assert.Same(t, ext, sister.DeclaringField())
	assert.Same(t, sister, ext.ExtensionField())
}
