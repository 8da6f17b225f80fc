package schema

import "github.com/protodyn/protowire/wire"

// scalarInfo is one row of the static scalar-type table (spec section
// 4.2): default value, wire type, and the two predicates Field needs
// when resolving and encoding (isLong, packable). Grounded on the
// teacher's per-kind classification maps in codec.go (varintTypes /
// fixed32Types / fixed64Types) and internal/fielddefault.DefaultValue's
// per-kind default-value switch, generalized from "protobuf descriptor
// kind" to this module's own scalar-name table.
type scalarInfo struct {
	wireType wire.WireType
	isLong   bool // 8-byte integer family
	isVarint bool // varint-family wire type
	def      interface{}
}

// scalarTypes is the process-wide, read-only registry keyed by scalar
// type name. It is never mutated after init, so concurrent reads from
// multiple goroutines (e.g. multiple Fields resolving at once) are
// always safe without synchronization, per spec section 5 ("shared
// resources... read-only after initialization").
var scalarTypes = map[string]scalarInfo{
	"double":   {wireType: wire.WireFixed64, def: float64(0)},
	"float":    {wireType: wire.WireFixed32, def: float32(0)},
	"int32":    {wireType: wire.WireVarint, isVarint: true, def: int32(0)},
	"uint32":   {wireType: wire.WireVarint, isVarint: true, def: uint32(0)},
	"sint32":   {wireType: wire.WireVarint, isVarint: true, def: int32(0)},
	"fixed32":  {wireType: wire.WireFixed32, def: uint32(0)},
	"sfixed32": {wireType: wire.WireFixed32, def: int32(0)},
	"int64":    {wireType: wire.WireVarint, isVarint: true, isLong: true, def: int64(0)},
	"uint64":   {wireType: wire.WireVarint, isVarint: true, isLong: true, def: uint64(0)},
	"sint64":   {wireType: wire.WireVarint, isVarint: true, isLong: true, def: int64(0)},
	"fixed64":  {wireType: wire.WireFixed64, isLong: true, def: uint64(0)},
	"sfixed64": {wireType: wire.WireFixed64, isLong: true, def: int64(0)},
	"bool":     {wireType: wire.WireVarint, isVarint: true, def: false},
	"string":   {wireType: wire.WireBytes, def: ""},
	"bytes":    {wireType: wire.WireBytes, def: []byte(nil)},
}

// isPackable reports whether a scalar type may appear in a packed
// repeated field: all numerics and bool, per spec section 4.2. Only
// varint/fixed32/fixed64 wire types are packable; length-delimited
// scalars (string, bytes) are not.
func (s scalarInfo) isPackable() bool {
	return s.wireType == wire.WireVarint || s.wireType == wire.WireFixed32 || s.wireType == wire.WireFixed64
}

// lookupScalar returns the table row for name and whether it exists.
func lookupScalar(name string) (scalarInfo, bool) {
	info, ok := scalarTypes[name]
	return info, ok
}
