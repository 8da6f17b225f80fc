// Package schema implements the reflection tree that drives the wire
// encoder: namespaces, messages (Type), fields, and enums, resolved
// through a scoped hierarchical name-resolution algorithm and dispatched
// to a wire.Writer for encoding.
//
// The tree is built from the flat JSON dialect described in spec section
// 6 (AddJSON) or by direct, programmatic construction (Namespace.Define,
// Type.AddField, ...), then resolved once via Root.ResolveAll before any
// field is encoded.
package schema

import (
	"errors"
	"strings"
)

// Errors returned by tree construction and resolution. Identity-checked
// with errors.Is by callers that need to distinguish a specific failure,
// mirroring codec.ErrOverflow/ErrInternalBadWireType in the teacher.
var (
	ErrUnresolvedType = errors.New("protowire/schema: unresolvable field type")
	ErrNameConflict   = errors.New("protowire/schema: name conflict")
	ErrInvalidField   = errors.New("protowire/schema: invalid field")
	ErrInvalidObject  = errors.New("protowire/schema: object not valid at this scope")
	ErrNoJSONMatch    = errors.New("protowire/schema: JSON body matches no known kind")
)

// object is the sealed set of things a Namespace may contain: Enum,
// Type, Service, Field, and Namespace itself (spec section 4.5 Add).
// It is unexported so no type outside this package can implement it,
// keeping the set closed as spec.md requires.
type object interface {
	Name() string
	FullName() string
	Parent() *Namespace

	onAdd(parent *Namespace)
	onRemove(parent *Namespace)
	resolve(root *Root) error
	isResolved() bool
}

// Base carries the state every reflection object shares: name, a weak
// up-link to the owning Namespace, an options bag, and the
// resolved/visible flags. Concrete kinds embed Base and implement
// object themselves, calling Base's helpers from their own overrides
// (spec section 4.3: "Subtypes override resolve to do their own work
// and MUST call the base").
type Base struct {
	name    string
	parent  *Namespace
	options map[string]interface{}

	resolvedFlag bool
	visible      *bool // nil defers to export rules
}

// newBase returns an initialized Base. It does not check the name:
// Namespace.Add rejects an empty name and enforces uniqueness among
// siblings.
func newBase(name string) Base {
	return Base{name: name}
}

// Name returns the object's name, unique among its siblings.
func (b *Base) Name() string { return b.name }

// Parent returns the owning Namespace, or nil if this object has not
// been added to one (or has been removed).
func (b *Base) Parent() *Namespace { return b.parent }

// FullName returns the dotted path from the root to this object.
func (b *Base) FullName() string {
	var parts []string
	for p := b.parent; p != nil; p = p.parent {
		if p.name != "" {
			parts = append([]string{p.name}, parts...)
		}
	}
	parts = append(parts, b.name)
	return strings.Join(parts, ".")
}

// SetOption sets options[name] = value. If ifNotSet is true and the
// option is already present, the call is a no-op.
func (b *Base) SetOption(name string, value interface{}, ifNotSet bool) {
	if ifNotSet {
		if _, ok := b.options[name]; ok {
			return
		}
	}
	if b.options == nil {
		b.options = map[string]interface{}{}
	}
	b.options[name] = value
}

// GetOption returns options[name] and whether it was present.
func (b *Base) GetOption(name string) (interface{}, bool) {
	v, ok := b.options[name]
	return v, ok
}

// Options returns the full options map (nil if none have been set).
// Callers must not mutate the returned map.
func (b *Base) Options() map[string]interface{} { return b.options }

// Visible reports whether this object should be exported in full by
// ToJSON. A nil visible flag (never explicitly set) reports true here;
// Namespace.ToJSON treats an unset flag as not visible and emits such a
// namespace only when a descendant yields JSON.
func (b *Base) Visible() bool { return b.visible == nil || *b.visible }

// SetVisible pins the visible flag explicitly.
func (b *Base) SetVisible(v bool) { b.visible = &v }

// visibleSet reports whether SetVisible has ever been called.
func (b *Base) visibleSet() bool { return b.visible != nil }

func (b *Base) onAdd(parent *Namespace) {
	b.parent = parent
	b.resolvedFlag = false
}

func (b *Base) onRemove(parent *Namespace) {
	if b.parent == parent {
		b.parent = nil
	}
}

// markResolved marks the object resolved. Every subtype's resolve
// override must call this after its own work succeeds.
func (b *Base) markResolved() { b.resolvedFlag = true }

func (b *Base) isResolved() bool { return b.resolvedFlag }
