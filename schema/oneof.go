package schema

// OneOf groups a set of a Type's fields as mutually exclusive (spec
// section 4.6 supplement: the original format's oneof grouping, kept
// as declaration-time bookkeeping only — enforcing "at most one set" at
// encode time is a Message-value concern the caller owns, since Message
// here is a plain map rather than a generated struct with a discriminated
// union).
type OneOf struct {
	Base

	fields []*Field
}

// NewOneOf constructs an empty OneOf named name.
func NewOneOf(name string) *OneOf {
	return &OneOf{Base: newBase(name)}
}

// Fields returns the member fields in the order they were added to
// this oneof.
func (o *OneOf) Fields() []*Field { return o.fields }
