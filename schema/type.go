package schema

import (
	"fmt"

	"github.com/protodyn/protowire/wire"
)

// Type is a message descriptor (spec section 4.6): a Namespace (so it
// may itself declare nested Types/Enums/Services) plus an ordered list
// of Fields, which live outside the Namespace's nested-object map since
// a Field keyed by name there would collide with spec section 4.5's
// Namespace.Add closed set (Fields are only addable at namespace scope
// when they are extensions). Grounded on desc.MessageDescriptor's split
// between "nested message/enum types" and "fields" in the teacher.
type Type struct {
	Namespace

	fields     []*Field
	fieldsByID map[uint32]*Field
	oneofs     []*OneOf
	extensions []*Field
}

// NewType constructs an empty Type named name.
func NewType(name string) *Type {
	return &Type{Namespace: Namespace{Base: newBase(name)}}
}

// Fields returns the type's own fields in declaration order. The
// returned slice must not be mutated by callers.
func (t *Type) Fields() []*Field { return t.fields }

// Extensions returns fields declared elsewhere that extend this type,
// installed during Field.resolve (spec section 4.4 resolveExtension).
func (t *Type) Extensions() []*Field { return t.extensions }

// OneOfs returns the type's declared oneofs.
func (t *Type) OneOfs() []*OneOf { return t.oneofs }

// FieldByID returns the field with the given number, if any.
func (t *Type) FieldByID(id uint32) (*Field, bool) {
	f, ok := t.fieldsByID[id]
	return f, ok
}

// AddField installs f, rejecting a duplicate name or field number
// within this Type (spec section 4.4: ids and names are both unique
// among a Type's own fields).
func (t *Type) AddField(f *Field) error {
	if t.fieldsByID != nil {
		if _, exists := t.fieldsByID[f.id]; exists {
			return fmt.Errorf("%w: field id %d already used in %q", ErrNameConflict, f.id, t.FullName())
		}
	}
	for _, existing := range t.fields {
		if existing.Name() == f.Name() {
			return fmt.Errorf("%w: field %q already defined in %q", ErrNameConflict, f.Name(), t.FullName())
		}
	}
	f.onAdd(&t.Namespace)
	if t.fieldsByID == nil {
		t.fieldsByID = map[uint32]*Field{}
	}
	t.fieldsByID[f.id] = f
	t.fields = append(t.fields, f)
	return nil
}

// AddFieldToOneOf installs the oneof relationship between an
// already-added field (by name) and oneof, registering oneof on this
// Type if it is new.
func (t *Type) AddFieldToOneOf(fieldName string, oneof *OneOf) error {
	var target *Field
	for _, f := range t.fields {
		if f.Name() == fieldName {
			target = f
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: oneof %q references undeclared field %q", ErrInvalidField, oneof.Name(), fieldName)
	}
	target.partOf = oneof
	oneof.fields = append(oneof.fields, target)
	for _, existing := range t.oneofs {
		if existing == oneof {
			return nil
		}
	}
	t.oneofs = append(t.oneofs, oneof)
	return nil
}

// resolveAllDFS resolves this Type's own fields before delegating to
// the embedded Namespace's DFS over nested types/enums/services, which
// ends by marking this Type itself resolved (spec section 4.4: a
// message's fields must be resolved before anything encodes against
// them).
func (t *Type) resolveAllDFS(root *Root) error {
	for _, f := range t.fields {
		if err := f.resolve(root); err != nil {
			return err
		}
	}
	return t.Namespace.resolveAllDFS(root)
}

// encodeFields writes every present field of msg, in declaration
// order, followed by any resolved extensions (keyed by the extension
// field's full declared name, since two different namespaces may both
// extend this Type with a field named the same thing locally).
// Required fields missing from msg are an error; absent optional or
// repeated fields are simply skipped, matching proto3 "no wire bytes
// for default/empty" semantics. Grounded on
// codec.Buffer.encodeFieldValue's per-field dispatch loop.
func (t *Type) encodeFields(msg Message, w *wire.Writer) error {
	for _, f := range t.fields {
		if err := encodeOneField(f, f.Name(), msg, w); err != nil {
			return err
		}
	}
	for _, f := range t.extensions {
		if err := encodeOneField(f, f.declaringField.FullName(), msg, w); err != nil {
			return err
		}
	}
	return nil
}

func encodeOneField(f *Field, key string, msg Message, w *wire.Writer) error {
	value, present := msg[key]
	if !present {
		if f.Required() {
			return fmt.Errorf("%w: required field %q missing", ErrInvalidField, f.FullName())
		}
		return nil
	}
	return f.Encode(value, w)
}

// Encode writes msg's fields directly to w with no outer tag or
// length prefix: used for a top-level message, or by a caller that
// manages delimiting itself.
func (t *Type) Encode(msg Message, w *wire.Writer) error {
	return t.encodeFields(msg, w)
}

// EncodeDelimited writes msg as a length-delimited submessage: it
// forks w, encodes every field into the forked region, then finishes
// and writes the result as a length-prefixed byte string (spec section
// 4.1 Bytes paired with the fork/finish discipline of spec section 9
// decision 1). Callers write the field's tag before calling this, as
// Field.buildEncoder does.
func (t *Type) EncodeDelimited(msg Message, w *wire.Writer) error {
	w.Fork()
	if err := t.encodeFields(msg, w); err != nil {
		w.Reset()
		return err
	}
	w.Bytes(w.Finish())
	return nil
}

// ToJSON renders this Type back to the dialect AddJSON consumes:
// options, fields, oneofs, and any nested types/enums/services that
// themselves produced output.
func (t *Type) ToJSON() (*orderedJSON, bool) {
	out := newOrderedJSON()
	if len(t.options) > 0 {
		out.set("options", t.options)
	}
	if len(t.fields) > 0 {
		fieldsOut := newOrderedJSON()
		for _, f := range t.fields {
			fj, _ := f.ToJSON()
			fieldsOut.set(f.Name(), fj)
		}
		out.set("fields", fieldsOut)
	}
	if len(t.oneofs) > 0 {
		oneofsOut := newOrderedJSON()
		for _, of := range t.oneofs {
			ofOut := newOrderedJSON()
			names := make([]interface{}, len(of.fields))
			for i, f := range of.fields {
				names[i] = f.Name()
			}
			ofOut.set("oneof", names)
			oneofsOut.set(of.Name(), ofOut)
		}
		out.set("oneofs", oneofsOut)
	}
	nestedOut := newOrderedJSON()
	t.Namespace.Each(func(name string, child object) bool {
		if j, ok := jsonOf(child); ok {
			nestedOut.set(name, j)
		}
		return true
	})
	if nestedOut.len() > 0 {
		out.set("nested", nestedOut)
	}
	any := len(t.fields) > 0 || nestedOut.len() > 0
	if t.Visible() || any {
		return out, true
	}
	return nil, false
}
