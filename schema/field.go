package schema

import (
	"fmt"
	"strconv"

	rf "github.com/goccy/go-reflect"

	"github.com/protodyn/protowire/internal/fieldcodec"
	"github.com/protodyn/protowire/wire"
)

// Rule is a field's cardinality, spec section 3. Optional is the
// default when a Field is constructed without an explicit rule.
type Rule int

const (
	RuleOptional Rule = iota
	RuleRequired
	RuleRepeated
)

// ParseRule maps the JSON dialect's rule strings (spec section 6) to a
// Rule, defaulting unrecognized/empty input to RuleOptional.
func ParseRule(s string) Rule {
	switch s {
	case "required":
		return RuleRequired
	case "repeated":
		return RuleRepeated
	default:
		return RuleOptional
	}
}

// Message is the in-memory representation of a value for a message-typed
// field: field name to value, mirroring the plain-object values
// protobuf.js's reflection runtime passes around (this Go port has no
// generated structs to target, so a schema.Message stands in for one).
type Message map[string]interface{}

// Field is a field descriptor (spec section 3/4.4): it holds its
// declaration (name, id, type, rule, options) and, once resolved, the
// weak resolvedType back-reference and computed default value.
type Field struct {
	Base

	id       uint32
	typeName string
	rule     Rule
	extend   string
	isMap    bool

	resolvedType interface{} // *Type, *Enum, or nil for scalars, set by resolve
	typeDefault  interface{}
	defaultValue interface{}

	partOf          *OneOf
	declaringField  *Field // for an extension field installed at namespace scope
	extensionField  *Field // the paired sister field on the extended Type

	cacheKey string
}

// NewField constructs a Field. id must be non-negative (enforced by the
// uint32 type itself) and unique within its owning Type, checked by
// Type.AddField rather than here, matching the teacher's pattern of
// deferring cross-object invariants to the container that owns them.
func NewField(name string, id uint32, typeName string, rule Rule) *Field {
	return &Field{Base: newBase(name), id: id, typeName: typeName, rule: rule}
}

// ID returns the field's number.
func (f *Field) ID() uint32 { return f.id }

// TypeName returns the field's declared (possibly unresolved) type name.
func (f *Field) TypeName() string { return f.typeName }

// Extend returns the dotted path of the type being extended, or "" if
// this is not an extension field.
func (f *Field) Extend() string { return f.extend }

// SetExtend marks this field as an extension of the named Type.
func (f *Field) SetExtend(path string) *Field {
	f.extend = path
	return f
}

// IsMap reports whether this is a map field.
func (f *Field) IsMap() bool { return f.isMap }

// SetMap marks this field as a map field whose value type is typeName
// (spec section 3's `map` bool flag). Map keys are carried as plain
// JSON-object string keys; only the value side is schema-typed.
func (f *Field) SetMap(v bool) *Field {
	f.isMap = v
	return f
}

// Required, Optional, Repeated are the derived cardinality flags, spec
// section 3 ("Derived flags required, optional, repeated are computed
// from rule").
func (f *Field) Required() bool { return f.rule == RuleRequired }
func (f *Field) Optional() bool { return f.rule == RuleOptional }
func (f *Field) Repeated() bool { return f.rule == RuleRepeated }

// Packed reports whether a repeated packable field should use the
// packed wire encoding. Honors an explicit options["packed"]; defaults
// to true otherwise (spec section 3: "default true for packable
// repeated fields in proto2/proto3").
func (f *Field) Packed() bool {
	if v, ok := f.GetOption("packed"); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return true
}

// ResolvedType returns the field's resolved *Type or *Enum, or nil for
// scalar fields or fields not yet resolved. This is a weak reference:
// the Field does not own the Type/Enum it points to.
func (f *Field) ResolvedType() interface{} { return f.resolvedType }

// DefaultValue returns the field's computed default (spec section 4.4).
func (f *Field) DefaultValue() interface{} { return f.defaultValue }

// PartOf returns the OneOf this field belongs to, or nil.
func (f *Field) PartOf() *OneOf { return f.partOf }

// DeclaringField / ExtensionField are the paired sister-field links for
// an extension: DeclaringField is set on the field as installed at
// namespace scope, ExtensionField on the synthetic field merged into the
// extended Type during resolution.
func (f *Field) DeclaringField() *Field { return f.declaringField }
func (f *Field) ExtensionField() *Field { return f.extensionField }

func (f *Field) onAdd(parent *Namespace) {
	f.Base.onAdd(parent)
	if f.cacheKey != "" {
		encoderCache.Invalidate(f.cacheKey)
	}
	f.cacheKey = fmt.Sprintf("%s@%p", f.FullName(), f)
}

// resolve implements spec section 4.4's Field.resolve. If already
// resolved, it is a no-op. It binds the symbolic type name to either a
// scalar table entry or a Type/Enum found via the parent's lookup, then
// computes the default value.
func (f *Field) resolve(root *Root) error {
	if f.isResolved() {
		return nil
	}
	if info, ok := lookupScalar(f.typeName); ok {
		f.resolvedType = nil
		f.typeDefault = info.def
	} else {
		if f.Parent() == nil {
			return fmt.Errorf("%w: field %q has no parent to resolve %q against", ErrUnresolvedType, f.name, f.typeName)
		}
		found := f.Parent().Lookup(f.typeName, false)
		switch t := found.(type) {
		case *Type:
			f.resolvedType = t
			f.typeDefault = nil
		case *Enum:
			f.resolvedType = t
			f.typeDefault = int32(0)
		default:
			return fmt.Errorf("%w: field %q references undeclared type %q", ErrUnresolvedType, f.FullName(), f.typeName)
		}
	}

	switch {
	case f.isMap:
		f.defaultValue = map[string]interface{}{}
	case f.Repeated():
		f.defaultValue = []interface{}{}
	default:
		if v, ok := f.GetOption("default"); ok {
			f.defaultValue = v
		} else {
			f.defaultValue = f.typeDefault
		}
	}

	if f.extend != "" {
		if err := f.resolveExtension(root); err != nil {
			return err
		}
	}

	f.Base.markResolved()
	return nil
}

func (f *Field) resolveExtension(root *Root) error {
	found := root.Lookup(f.extend, false)
	extended, ok := found.(*Type)
	if !ok {
		return fmt.Errorf("%w: extension field %q extends undeclared type %q", ErrUnresolvedType, f.FullName(), f.extend)
	}
	sister := &Field{
		Base:           newBase(f.name),
		id:             f.id,
		typeName:       f.typeName,
		rule:           f.rule,
		resolvedType:   f.resolvedType,
		typeDefault:    f.typeDefault,
		defaultValue:   f.defaultValue,
		declaringField: f,
	}
	sister.cacheKey = fmt.Sprintf("%s@%p", f.FullName(), sister)
	sister.Base.markResolved()
	f.extensionField = sister
	extended.extensions = append(extended.extensions, sister)
	return nil
}

// effectiveTypeName is field.type for scalar/message fields, or
// "uint32" when resolvedType is an Enum (spec section 4.4: "Let type be
// uint32 if resolvedType is an Enum, otherwise field.type").
func (f *Field) effectiveTypeName() string {
	if _, ok := f.resolvedType.(*Enum); ok {
		return "uint32"
	}
	return f.typeName
}

// compiledEncoder returns (compiling and caching on first use) the
// specialized encoder closure for this field, keyed by its full name
// plus the Field's own identity, so same-named fields in different
// trees never share an encoder. See internal/fieldcodec and spec
// section 9.
func (f *Field) compiledEncoder() fieldcodec.EncodeFunc {
	return encoderCache.GetOrCompile(f.cacheKey, func() fieldcodec.EncodeFunc {
		return f.buildEncoder()
	})
}

var encoderCache = fieldcodec.NewCache()

func (f *Field) buildEncoder() fieldcodec.EncodeFunc {
	effType := f.effectiveTypeName()
	msgType, isMessage := f.resolvedType.(*Type)
	info, isScalar := lookupScalar(effType)
	packed := isScalar && info.isPackable() && f.Packed()

	switch {
	case f.Repeated() && packed:
		return func(value interface{}, w *wire.Writer) error {
			elems, err := toSlice(value)
			if err != nil {
				return err
			}
			w.Fork()
			for _, el := range elems {
				if err := writeScalar(w, effType, el); err != nil {
					w.Reset()
					return err
				}
			}
			body := w.Finish()
			if len(body) > 0 {
				w.Tag(f.id, wire.WireBytes).Bytes(body)
			}
			return nil
		}

	case f.Repeated() && isMessage:
		return func(value interface{}, w *wire.Writer) error {
			elems, err := toSlice(value)
			if err != nil {
				return err
			}
			for _, el := range elems {
				msg, err := toMessage(el)
				if err != nil {
					return err
				}
				if err := msgType.EncodeDelimited(msg, w.Tag(f.id, wire.WireBytes)); err != nil {
					return err
				}
			}
			return nil
		}

	case f.Repeated():
		return func(value interface{}, w *wire.Writer) error {
			elems, err := toSlice(value)
			if err != nil {
				return err
			}
			for _, el := range elems {
				w.Tag(f.id, info.wireType)
				if err := writeScalar(w, effType, el); err != nil {
					return err
				}
			}
			return nil
		}

	case isMessage:
		return func(value interface{}, w *wire.Writer) error {
			msg, err := toMessage(value)
			if err != nil {
				return err
			}
			return msgType.EncodeDelimited(msg, w.Tag(f.id, wire.WireBytes))
		}

	default:
		return func(value interface{}, w *wire.Writer) error {
			w.Tag(f.id, info.wireType)
			return writeScalar(w, effType, value)
		}
	}
}

// Encode writes value to w, dispatching on this field's cardinality and
// resolved type per spec section 4.4. Callers must skip absent optional
// fields before calling Encode; Encode assumes the field is present.
func (f *Field) Encode(value interface{}, w *wire.Writer) error {
	if !f.isResolved() {
		return fmt.Errorf("protowire/schema: field %q encoded before resolution", f.FullName())
	}
	return f.compiledEncoder()(value, w)
}

func toSlice(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		return v, nil
	case nil:
		return nil, nil
	default:
		rv := rf.ValueOf(value)
		if rv.Kind() != rf.Slice {
			return nil, fmt.Errorf("protowire/schema: repeated field value must be a slice, got %T", value)
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
}

func toMessage(value interface{}) (Message, error) {
	switch v := value.(type) {
	case Message:
		return v, nil
	case map[string]interface{}:
		return Message(v), nil
	default:
		return nil, fmt.Errorf("protowire/schema: message field value must be a Message, got %T", value)
	}
}

// writeScalar is the scalar-writer dispatch spec section 4.4 describes
// as writer[type](elem): one case per scalar keyword, restructured onto
// wire.Writer from the teacher's codec.Buffer.encodeFieldValue switch.
func writeScalar(w *wire.Writer, typeName string, value interface{}) error {
	switch typeName {
	case "bool":
		v, ok := value.(bool)
		if !ok {
			return typeMismatch(typeName, value)
		}
		w.Bool(v)
	case "int32":
		v, err := asInt32(value)
		if err != nil {
			return err
		}
		w.Int32(v)
	case "uint32":
		v, err := asUint32(value)
		if err != nil {
			return err
		}
		w.Uint32(v)
	case "sint32":
		v, err := asInt32(value)
		if err != nil {
			return err
		}
		w.Sint32(v)
	case "fixed32":
		v, err := asUint32(value)
		if err != nil {
			return err
		}
		w.Fixed32(v)
	case "sfixed32":
		v, err := asInt32(value)
		if err != nil {
			return err
		}
		w.Sfixed32(v)
	case "int64":
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		w.Int64(v)
	case "uint64":
		v, err := asUint64(value)
		if err != nil {
			return err
		}
		w.Uint64(v)
	case "sint64":
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		w.Sint64(v)
	case "fixed64":
		v, err := asUint64(value)
		if err != nil {
			return err
		}
		w.Fixed64(v)
	case "sfixed64":
		v, err := asInt64(value)
		if err != nil {
			return err
		}
		w.Sfixed64(v)
	case "float":
		v, ok := value.(float32)
		if !ok {
			f64, ok := value.(float64)
			if !ok {
				return typeMismatch(typeName, value)
			}
			v = float32(f64)
		}
		w.Float(v)
	case "double":
		v, ok := value.(float64)
		if !ok {
			return typeMismatch(typeName, value)
		}
		w.Double(v)
	case "bytes":
		v, ok := value.([]byte)
		if !ok {
			return typeMismatch(typeName, value)
		}
		w.Bytes(v)
	case "string":
		v, ok := value.(string)
		if !ok {
			return typeMismatch(typeName, value)
		}
		w.String(v)
	default:
		return fmt.Errorf("protowire/schema: unrecognized scalar type %q", typeName)
	}
	return nil
}

func typeMismatch(typeName string, value interface{}) error {
	return fmt.Errorf("%w: expected a value compatible with %q, got %T", ErrInvalidField, typeName, value)
}

func asInt32(value interface{}) (int32, error) {
	switch v := value.(type) {
	case int32:
		return v, nil
	case int:
		return int32(v), nil
	default:
		return 0, typeMismatch("int32", value)
	}
}

func asUint32(value interface{}) (uint32, error) {
	switch v := value.(type) {
	case uint32:
		return v, nil
	case int:
		return uint32(v), nil
	case int32:
		return uint32(v), nil
	default:
		return 0, typeMismatch("uint32", value)
	}
}

func asInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	default:
		return 0, typeMismatch("int64", value)
	}
}

func asUint64(value interface{}) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case int:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case int64:
		return uint64(v), nil
	default:
		return 0, typeMismatch("uint64", value)
	}
}

// JSONConvertOptions controls Field.JSONConvert, spec section 4.4.
type JSONConvertOptions struct {
	// UseEnumNames substitutes an enum field's numeric value with its
	// symbolic name when true.
	UseEnumNames bool
	// Long selects how 64-bit integer values are represented: "string"
	// gives a decimal string, signed/unsigned per the type's first
	// character. Any other value, including "number" and empty, returns
	// the native Go integer as given; no conversion or range check is
	// applied.
	Long string
}

// JSONConvert converts an in-memory field value to its JSON-safe form,
// honoring opts (spec section 4.4). Repeated fields are converted
// elementwise.
func (f *Field) JSONConvert(value interface{}, opts JSONConvertOptions) (interface{}, error) {
	if f.Repeated() {
		elems, err := toSlice(value)
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, len(elems))
		for i, el := range elems {
			v, err := f.jsonConvertOne(el, opts)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return f.jsonConvertOne(value, opts)
}

func (f *Field) jsonConvertOne(value interface{}, opts JSONConvertOptions) (interface{}, error) {
	if f.isMap {
		entries, err := toStringMap(value)
		if err != nil {
			return nil, err
		}
		out := make(map[string]interface{}, len(entries))
		for k, v := range entries {
			converted, err := f.jsonConvertScalarOrEnum(v, opts)
			if err != nil {
				return nil, err
			}
			out[k] = converted
		}
		return out, nil
	}
	return f.jsonConvertScalarOrEnum(value, opts)
}

// jsonConvertScalarOrEnum applies the enum-name and 64-bit-to-string
// conversions to a single value (a field's own value, or one map entry's
// value when the field is a map).
func (f *Field) jsonConvertScalarOrEnum(value interface{}, opts JSONConvertOptions) (interface{}, error) {
	if e, ok := f.resolvedType.(*Enum); ok && opts.UseEnumNames {
		n, err := asInt32(value)
		if err != nil {
			return nil, err
		}
		if name, ok := e.NameOf(n); ok {
			return name, nil
		}
		return n, nil
	}

	info, isScalar := lookupScalar(f.effectiveTypeName())
	if isScalar && info.isLong && opts.Long == "string" {
		return longToString(f.typeName, value)
	}
	return value, nil
}

// toStringMap coerces a map field's in-memory value to a
// map[string]interface{}, accepting either that type directly or any
// other map kind reachable via reflection (map keys are stringified,
// matching the JSON-object representation a map field round-trips
// through).
func toStringMap(value interface{}) (map[string]interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		return v, nil
	case nil:
		return nil, nil
	default:
		rv := rf.ValueOf(value)
		if rv.Kind() != rf.Map {
			return nil, fmt.Errorf("protowire/schema: map field value must be a map, got %T", value)
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return out, nil
	}
}

// ToJSON renders this field back to the dialect AddJSON consumes.
// Fields are always emitted when present (they never prune themselves
// the way an empty Namespace does), matching spec section 4.5's rule
// that only container kinds (Namespace, Type) participate in the
// "no descendant produced output" pruning decision.
func (f *Field) ToJSON() (*orderedJSON, bool) {
	out := newOrderedJSON()
	out.set("id", f.id)
	out.set("type", f.typeName)
	switch f.rule {
	case RuleRequired:
		out.set("rule", "required")
	case RuleRepeated:
		out.set("rule", "repeated")
	}
	if f.extend != "" {
		out.set("extend", f.extend)
	}
	if len(f.options) > 0 {
		out.set("options", f.options)
	}
	return out, true
}

// longToString renders a 64-bit value as a decimal string, signed or
// unsigned per the scalar type name's first character ('u' => unsigned),
// matching internal/fielddefault.DefaultValue's own signed/unsigned
// branching for default-value formatting, generalized here from
// "default value" to "any value."
func longToString(typeName string, value interface{}) (string, error) {
	unsigned := len(typeName) > 0 && typeName[0] == 'u'
	if unsigned {
		v, err := asUint64(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(v, 10), nil
	}
	v, err := asInt64(value)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(v, 10), nil
}
