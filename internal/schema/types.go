// Package schema defines structural type descriptors for task inputs and
// outputs, and the compatibility checker that decides whether one node's
// declared output shape can safely feed another node's declared input shape.
//
// Descriptors are declarative and introspectable: a tree of Type values
// describing primitives, objects, arrays, unions, enums and literals, each
// optionally flagged as optional or nullable. A nil descriptor means "no
// declaration" and disables static checking for that slot.
package schema

// Kind enumerates the structural kinds a descriptor can have.
type Kind string

const (
	// KindAny is the wildcard kind, compatible with everything.
	KindAny     Kind = "any"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBool    Kind = "bool"
	KindDate    Kind = "date"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindUnion   Kind = "union"
	KindEnum    Kind = "enum"
	KindLiteral Kind = "literal"
	// KindVoid describes a producer that returns nothing.
	KindVoid Kind = "void"
)

// Type is a structural type descriptor. Exactly the fields relevant to its
// Kind are populated; the rest are zero.
type Type struct {
	Kind     Kind
	Optional bool
	Nullable bool

	// Attrs holds the named properties of an object type, in declaration order.
	Attrs []Attr
	// Elem is the element type of an array.
	Elem *Type
	// Alts holds the alternatives of a union.
	Alts []*Type
	// Values holds the allowed members of an enum.
	Values []any
	// Value is the fixed value of a literal.
	Value any
}

// Attr is a single named property of an object type. A property is optional
// when its type carries the Optional flag.
type Attr struct {
	Name string
	Type *Type
}

// Any returns the wildcard descriptor.
func Any() *Type { return &Type{Kind: KindAny} }

// String returns a string primitive descriptor.
func String() *Type { return &Type{Kind: KindString} }

// Number returns a number primitive descriptor.
func Number() *Type { return &Type{Kind: KindNumber} }

// Bool returns a boolean primitive descriptor.
func Bool() *Type { return &Type{Kind: KindBool} }

// Date returns a date primitive descriptor.
func Date() *Type { return &Type{Kind: KindDate} }

// Void returns the descriptor of a producer that returns nothing.
func Void() *Type { return &Type{Kind: KindVoid} }

// Object returns an object descriptor with the given properties.
func Object(attrs ...Attr) *Type { return &Type{Kind: KindObject, Attrs: attrs} }

// Array returns an array descriptor with the given element type.
func Array(elem *Type) *Type { return &Type{Kind: KindArray, Elem: elem} }

// Union returns a union descriptor over the given alternatives.
func Union(alts ...*Type) *Type { return &Type{Kind: KindUnion, Alts: alts} }

// Enum returns an enum descriptor allowing exactly the given values.
func Enum(values ...any) *Type { return &Type{Kind: KindEnum, Values: values} }

// Literal returns a descriptor matching one fixed value.
func Literal(value any) *Type { return &Type{Kind: KindLiteral, Value: value} }

// AsOptional returns a copy of t with the Optional flag set.
func (t *Type) AsOptional() *Type {
	c := *t
	c.Optional = true
	return &c
}

// AsNullable returns a copy of t with the Nullable flag set.
func (t *Type) AsNullable() *Type {
	c := *t
	c.Nullable = true
	return &c
}

// Attr returns the object property with the given name, if present.
func (t *Type) Attr(name string) (*Type, bool) {
	for _, a := range t.Attrs {
		if a.Name == name {
			return a.Type, true
		}
	}
	return nil, false
}

// knownKinds is the set of kinds the checker understands. Anything else
// degrades to the wildcard so that malformed descriptors never block a graph.
var knownKinds = map[Kind]bool{
	KindAny: true, KindString: true, KindNumber: true, KindBool: true,
	KindDate: true, KindObject: true, KindArray: true, KindUnion: true,
	KindEnum: true, KindLiteral: true, KindVoid: true,
}

// isWildcard reports whether t should be treated as compatible with anything.
func isWildcard(t *Type) bool {
	return t == nil || t.Kind == KindAny || !knownKinds[t.Kind]
}
