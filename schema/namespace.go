package schema

import (
	"fmt"
	"strings"
)

// Namespace is a hierarchical container (spec section 4.5): a mapping
// from name to nested reflection object, iterated in insertion order so
// JSON output is deterministic. The empty map is represented as absent
// (nested stays nil) rather than an allocated empty map, matching the
// teacher's preference for nil-as-empty over allocate-then-empty.
type Namespace struct {
	Base

	nested map[string]object
	order  []string
}

// NewNamespace constructs a Namespace with the given name. The root of a
// reflection tree uses the distinguished Root type (schema/root.go),
// which embeds Namespace with name "".
func NewNamespace(name string) *Namespace {
	return &Namespace{Base: newBase(name)}
}

func (ns *Namespace) resolve(root *Root) error {
	ns.Base.markResolved()
	return nil
}

// resolveAllDFS resolves every descendant depth-first, then this
// namespace itself (spec section 4.5 resolveAll).
func (ns *Namespace) resolveAllDFS(root *Root) error {
	for _, name := range ns.order {
		child := ns.nested[name]
		if container, ok := child.(interface{ resolveAllDFS(*Root) error }); ok {
			if err := container.resolveAllDFS(root); err != nil {
				return err
			}
			continue
		}
		if err := child.resolve(root); err != nil {
			return err
		}
	}
	return ns.resolve(root)
}

// Get returns the nested object named name, if any.
func (ns *Namespace) Get(name string) (object, bool) {
	obj, ok := ns.nested[name]
	return obj, ok
}

// Each calls fn for every nested object in insertion order, stopping
// early if fn returns false.
func (ns *Namespace) Each(fn func(name string, obj object) bool) {
	for _, name := range ns.order {
		if !fn(name, ns.nested[name]) {
			return
		}
	}
}

// Add installs obj under its name (spec section 4.5). Only Enum, Type,
// Service, Namespace, and extension Fields (Field.Extend() != "") may be
// added; anything else is rejected, keeping the set closed as spec.md
// requires. A name collision where the existing entry is a plain
// Namespace and the new entry is a Type re-parents: the Namespace's
// children move onto the Type and the Namespace is dropped (spec
// section 4.5, spec section 8 invariant 8); any other collision is an
// error.
func (ns *Namespace) Add(obj object) error {
	switch v := obj.(type) {
	case *Field:
		if v.Extend() == "" {
			return fmt.Errorf("%w: a Field may only be added to a Namespace directly if it declares extend", ErrInvalidObject)
		}
	case *Enum, *Type, *Service, *Namespace:
		// permitted
	default:
		return fmt.Errorf("%w: %T is not a valid Namespace member", ErrInvalidObject, obj)
	}
	if obj.Name() == "" {
		return fmt.Errorf("%w: object must have a non-empty name", ErrInvalidField)
	}

	name := obj.Name()
	if existing, ok := ns.nested[name]; ok {
		prevNS, prevIsPlainNS := existing.(*Namespace)
		newType, newIsType := obj.(*Type)
		if prevIsPlainNS && newIsType {
			return ns.reparent(prevNS, newType)
		}
		return fmt.Errorf("%w: %q already defined in %q", ErrNameConflict, name, ns.FullName())
	}
	ns.addRaw(obj)
	return nil
}

// reparent moves prevNS's direct children onto newType and removes
// prevNS from this namespace, then installs newType in its place.
func (ns *Namespace) reparent(prevNS *Namespace, newType *Type) error {
	for _, childName := range append([]string(nil), prevNS.order...) {
		child := prevNS.nested[childName]
		child.onRemove(prevNS)
		if err := newType.Namespace.Add(child); err != nil {
			return err
		}
	}
	delete(ns.nested, prevNS.Name())
	ns.removeFromOrder(prevNS.Name())
	ns.addRaw(newType)
	return nil
}

func (ns *Namespace) addRaw(obj object) {
	if ns.nested == nil {
		ns.nested = map[string]object{}
	}
	ns.nested[obj.Name()] = obj
	ns.order = append(ns.order, obj.Name())
	obj.onAdd(ns)
}

func (ns *Namespace) removeFromOrder(name string) {
	for i, n := range ns.order {
		if n == name {
			ns.order = append(ns.order[:i], ns.order[i+1:]...)
			return
		}
	}
}

// Remove asserts obj's membership, deletes the mapping, and clears
// obj's parent link. If the namespace becomes empty, the backing map is
// dropped so an empty Namespace is always nil, not an allocated-but-
// empty map.
func (ns *Namespace) Remove(obj object) error {
	name := obj.Name()
	existing, ok := ns.nested[name]
	if !ok || existing != obj {
		return fmt.Errorf("protowire/schema: %q is not a member of %q", name, ns.FullName())
	}
	delete(ns.nested, name)
	ns.removeFromOrder(name)
	if len(ns.nested) == 0 {
		ns.nested = nil
	}
	obj.onRemove(ns)
	return nil
}

type lookupable interface {
	Lookup(path string, parentAlreadyChecked bool) object
}

// Lookup resolves a dotted path against this namespace (spec section
// 4.5). An absolute path (a leading '.') restarts at the root. For a
// relative path, a match on the first segment descends into that
// child (if more segments remain) or is returned directly; a miss
// delegates to the parent unless parentAlreadyChecked is true. Lookup
// of the empty string always returns nil.
func (ns *Namespace) Lookup(path string, parentAlreadyChecked bool) object {
	if path == "" {
		return nil
	}
	if strings.HasPrefix(path, ".") {
		return ns.root().lookupRelative(strings.TrimPrefix(path, "."), true)
	}
	return ns.lookupRelative(path, parentAlreadyChecked)
}

func (ns *Namespace) lookupRelative(path string, parentAlreadyChecked bool) object {
	first, rest, hasRest := strings.Cut(path, ".")
	if child, ok := ns.nested[first]; ok {
		if hasRest {
			if lu, ok := child.(lookupable); ok {
				return lu.Lookup(rest, true)
			}
			return nil
		}
		return child
	}
	if !parentAlreadyChecked && ns.parent != nil {
		return ns.parent.Lookup(path, false)
	}
	return nil
}

func (ns *Namespace) root() *Namespace {
	cur := ns
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Define creates any namespaces missing along the dotted path, marking each newly created namespace's visible flag, and
// optionally seeds the terminal namespace with nested JSON (spec
// section 4.5). A non-namespace name collision along the path is an
// error.
func (ns *Namespace) Define(path string, nestedJSON *jsonObject, visible *bool) (*Namespace, error) {
	cur := ns
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		existing, ok := cur.nested[part]
		if ok {
			child, isNS := existing.(*Namespace)
			if !isNS {
				return nil, fmt.Errorf("%w: %q in path %q is not a Namespace", ErrNameConflict, part, path)
			}
			cur = child
			continue
		}
		child := NewNamespace(part)
		if visible != nil {
			child.SetVisible(*visible)
		}
		if err := cur.Add(child); err != nil {
			return nil, err
		}
		cur = child
	}
	if nestedJSON != nil {
		if err := cur.AddJSON(nestedJSON); err != nil {
			return nil, err
		}
	}
	return cur, nil
}
