// Package typesystem implements the type algebra of the analyzed language:
// Any, Simple, Composite, Protocol, Function, Union, Vector and Ref,
// together with the Compatible and Merge operations name resolution and
// overload selection are built on.
package typesystem

import "strings"

// Type is the interface every member of the algebra implements.
type Type interface {
	// TypeName returns a stable display name used in diagnostics and by
	// Fields/registry lookups keyed by name.
	TypeName() string
	String() string
}

// Any is the unconstrained top type.
type Any struct{}

func (Any) TypeName() string { return "any" }
func (Any) String() string   { return "any" }

// Simple is a built-in atomic type: boolean, number, string.
type Simple struct {
	Name string
}

func (s Simple) TypeName() string { return s.Name }
func (s Simple) String() string   { return s.Name }

// Built-in atoms, shared by value so Compatible can use pointer-free equality
// on the Name field.
var (
	Boolean = Simple{Name: "boolean"}
	Number  = Simple{Name: "number"}
	String  = Simple{Name: "string"}
)

// OrderedFields is an insertion-ordered name -> Type map, used for a
// Composite's attributes/methods and a Function's params, whose declaration
// order is observable.
type OrderedFields struct {
	order []string
	byKey map[string]Type
}

// NewOrderedFields returns an empty, ready-to-use OrderedFields.
func NewOrderedFields() *OrderedFields {
	return &OrderedFields{byKey: make(map[string]Type)}
}

// Set inserts or overwrites name's type, preserving original insertion
// position on overwrite.
func (f *OrderedFields) Set(name string, t Type) {
	if _, ok := f.byKey[name]; !ok {
		f.order = append(f.order, name)
	}
	f.byKey[name] = t
}

// Get looks up name, reporting whether it was present.
func (f *OrderedFields) Get(name string) (Type, bool) {
	t, ok := f.byKey[name]
	return t, ok
}

// Keys returns field names in insertion order.
func (f *OrderedFields) Keys() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Len returns the number of fields.
func (f *OrderedFields) Len() int { return len(f.order) }

// Clone returns a shallow copy: safe to mutate independently of the original.
func (f *OrderedFields) Clone() *OrderedFields {
	c := NewOrderedFields()
	for _, k := range f.order {
		c.Set(k, f.byKey[k])
	}
	return c
}

// Composite is a user-declared nominal type: attributes, methods and an
// optional single parent. Its zero value is an empty, parent-less composite,
// matching how the collect pass inserts a stub before LINK fills it in.
type Composite struct {
	Name       string
	Attributes *OrderedFields
	Methods    *OrderedFields
	Parent     *Composite
}

// NewComposite returns an empty composite ready for the collect pass to fill.
func NewComposite(name string) *Composite {
	return &Composite{Name: name, Attributes: NewOrderedFields(), Methods: NewOrderedFields()}
}

func (c *Composite) TypeName() string { return c.Name }
func (c *Composite) String() string   { return c.Name }

// Member looks up name through attributes (unless attr is false), then
// methods, then the parent chain, which is searched the same way: an
// ancestor's attributes are seen whenever attr is true.
func (c *Composite) Member(name string, attr bool) (Type, bool) {
	if c == nil {
		return nil, false
	}
	if attr {
		if t, ok := c.Attributes.Get(name); ok {
			return t, true
		}
	}
	if t, ok := c.Methods.Get(name); ok {
		return t, true
	}
	if c.Parent != nil {
		return c.Parent.Member(name, attr)
	}
	return nil, false
}

// CastableTo reports whether c or any of its ancestors is (strictly,
// name-equal) the same type as other.
func (c *Composite) CastableTo(other *Composite) bool {
	for cur := c; cur != nil; cur = cur.Parent {
		if cur.Name == other.Name {
			return true
		}
	}
	return false
}

// Circular reports whether setting parent as c's parent would create a
// cycle, i.e. whether c is already reachable by walking parent's own
// ancestor chain.
func (c *Composite) Circular(parent *Composite) bool {
	for cur := parent; cur != nil; cur = cur.Parent {
		if cur.Name == c.Name {
			return true
		}
	}
	return false
}

// Protocol is a structurally-checked type: same shape as Composite (name,
// attributes, methods, optional parent, which must itself be a Protocol),
// but never directly instantiable.
type Protocol struct {
	Name       string
	Attributes *OrderedFields
	Methods    *OrderedFields
	Parent     *Protocol
}

// NewProtocol returns an empty protocol ready for the collect pass to fill.
func NewProtocol(name string) *Protocol {
	return &Protocol{Name: name, Attributes: NewOrderedFields(), Methods: NewOrderedFields()}
}

func (p *Protocol) TypeName() string { return p.Name }
func (p *Protocol) String() string   { return p.Name }

// ImplementedBy reports whether composite c structurally covers every
// attribute and method p (and p's own ancestor protocols) declares.
func (p *Protocol) ImplementedBy(c *Composite) bool {
	for _, name := range p.Attributes.Keys() {
		want, _ := p.Attributes.Get(name)
		got, ok := c.Member(name, true)
		if !ok || !Compatible(want, got, false) {
			return false
		}
	}
	for _, name := range p.Methods.Keys() {
		want, _ := p.Methods.Get(name)
		got, ok := c.Member(name, false)
		if !ok || !Compatible(want, got, false) {
			return false
		}
	}
	if p.Parent == nil {
		return true
	}
	return p.Parent.ImplementedBy(c)
}

// Function is a named signature: ordered parameters plus a return type.
type Function struct {
	Name   string
	Params *OrderedFields
	Return Type

	// Overloads, when non-nil, is the precise set of concrete signatures
	// signature inference observed to type-check. It is the authoritative
	// candidate list Alternatives() returns for an inference-narrowed
	// function: Params/Return stay the axis-merged canonical form
	// Compatible/Merge operate on, but the per-axis merge alone would
	// lose the pairing between a particular parameter combination and
	// the return type it actually produced (e.g. `id`'s number->number
	// vs string->string). A declared (never-inferred) function leaves
	// this nil and Alternatives() falls back to the true Cartesian
	// product over Params/Return, which is exact for that case (no axis
	// correlation is lost because there was never a pairing to begin
	// with).
	Overloads []*Function
}

// NewFunction returns a function stub with empty params and Any return,
// matching how the collect pass inserts it before LINK fills it in.
func NewFunction(name string) *Function {
	return &Function{Name: name, Params: NewOrderedFields(), Return: Any{}}
}

func (f *Function) TypeName() string { return f.Name }
func (f *Function) String() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteByte('(')
	for i, k := range f.Params.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		t, _ := f.Params.Get(k)
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(t.String())
	}
	b.WriteString(") -> ")
	b.WriteString(f.Return.String())
	return b.String()
}

// Union is a non-empty, name-deduplicated set of alternative types attached
// to a single AST position. A single-member union must never be constructed
// directly; use MakeUnion, which collapses it back to its one member.
type Union struct {
	Members []Type
}

func (u Union) TypeName() string { return u.String() }
func (u Union) String() string {
	var b strings.Builder
	for i, m := range u.Members {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(m.String())
	}
	return b.String()
}

// MakeUnion deduplicates members by TypeName and collapses a would-be
// single-member union to that member, preserving the invariant that a
// Union always has >= 2 distinct members.
func MakeUnion(members ...Type) Type {
	seen := make(map[string]bool)
	var out []Type
	for _, m := range members {
		if mu, ok := m.(Union); ok {
			for _, inner := range mu.Members {
				if !seen[inner.TypeName()] {
					seen[inner.TypeName()] = true
					out = append(out, inner)
				}
			}
			continue
		}
		if !seen[m.TypeName()] {
			seen[m.TypeName()] = true
			out = append(out, m)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return Union{Members: out}
}

// Vector carries an element type opaquely. No operation in the surface
// grammar produces one; it exists so the algebra is total over array
// values a downstream lowering stage may introduce.
type Vector struct {
	Element Type
}

func (v Vector) TypeName() string { return "vector<" + v.Element.TypeName() + ">" }
func (v Vector) String() string   { return v.TypeName() }

// Ref is a late-bound placeholder used only between collect stages (e.g. a
// parent-type name not yet resolved to its Composite/Protocol).
type Ref struct {
	Name string
}

func (r Ref) TypeName() string { return r.Name }
func (r Ref) String() string   { return r.Name }
