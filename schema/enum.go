package schema

// Enum is an enum descriptor (spec section 4.6): a closed, ordered set
// of name/value pairs. Multiple names may share a value (the first one
// added wins NameOf ties, matching proto2's allow_alias convention),
// but a name is unique.
type Enum struct {
	Base

	names   []string
	values  map[string]int32
	byValue map[int32]string
}

// NewEnum constructs an empty Enum named name.
func NewEnum(name string) *Enum {
	return &Enum{Base: newBase(name), values: map[string]int32{}, byValue: map[int32]string{}}
}

// Add installs name => value, returning the Enum for chaining.
func (e *Enum) Add(name string, value int32) *Enum {
	if _, exists := e.values[name]; !exists {
		e.names = append(e.names, name)
	}
	e.values[name] = value
	if _, exists := e.byValue[value]; !exists {
		e.byValue[value] = name
	}
	return e
}

// NameOf returns the first name registered for value, spec section
// 4.4's JSONConvert enum-name substitution.
func (e *Enum) NameOf(value int32) (string, bool) {
	name, ok := e.byValue[value]
	return name, ok
}

// ValueOf returns the numeric value registered for name.
func (e *Enum) ValueOf(name string) (int32, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Names returns the enum's value names in declaration order.
func (e *Enum) Names() []string { return e.names }

func (e *Enum) resolve(root *Root) error {
	e.Base.markResolved()
	return nil
}

// ToJSON renders this Enum back to the dialect AddJSON consumes. An
// Enum always emits when present; it has no descendants to prune on.
func (e *Enum) ToJSON() (*orderedJSON, bool) {
	out := newOrderedJSON()
	if len(e.options) > 0 {
		out.set("options", e.options)
	}
	valuesOut := newOrderedJSON()
	for _, n := range e.names {
		valuesOut.set(n, e.values[n])
	}
	out.set("values", valuesOut)
	return out, true
}
