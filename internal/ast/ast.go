// Package ast defines the AST node kinds the semantic core consumes from a
// parser. The parser itself lives outside this module; these are plain
// data structs the collect/transform/typing/complain passes type-switch
// over and mutate in place. There is no Visitor interface: dispatch is a
// type switch inside each pass.
package ast

import (
	"github.com/hulklang/sema/internal/token"
	"github.com/hulklang/sema/internal/typesystem"
)

// Node is the base interface every AST node implements.
type Node interface {
	Pos() token.Token
}

// typed is embedded by every node the core annotates with an inferred
// type.
type typed struct {
	Type typesystem.Type
}

// --- Literals ---

// Constant is a literal bool, number (float64) or string value.
type Constant struct {
	Token token.Token
	Value any // bool | float64 | string
	typed
}

func (c *Constant) Pos() token.Token { return c.Token }

// --- Variables ---

// VariableValue is a bare identifier reference.
type VariableValue struct {
	Token token.Token
	Name  string
	typed
}

func (v *VariableValue) Pos() token.Token { return v.Token }

// NewValue is a `new T(args...)` construction.
type NewValue struct {
	Token     token.Token
	TypeName  string
	Arguments []Node
	typed
}

func (n *NewValue) Pos() token.Token { return n.Token }

// --- Operators ---

// BinaryOperator is a two-operand expression; Op is one of
// +,-,*,/,%,&,|,==,!=,<=,>=,<,>,@,@@,as,is.
type BinaryOperator struct {
	Token token.Token
	Op    string
	Left  Node
	Right Node
	typed
}

func (b *BinaryOperator) Pos() token.Token { return b.Token }

// UnaryOperator is a single-operand expression; Op is "!" or unrecognized.
type UnaryOperator struct {
	Token    token.Token
	Op       string
	Argument Node
	typed
}

func (u *UnaryOperator) Pos() token.Token { return u.Token }

// --- Control ---

// Block is a sequence of statements; its type is that of the last one.
type Block struct {
	Token token.Token
	Stmts []Node
	typed
}

func (b *Block) Pos() token.Token { return b.Token }

// Conditional is `if cond { then } else { alt }` (Else may be nil when the
// conditional has no else branch, same as the original HULK AST).
type Conditional struct {
	Token     token.Token
	Condition Node
	Then      Node
	Else      Node
	typed
}

func (c *Conditional) Pos() token.Token { return c.Token }

// While is a Conditional without a reverse branch: `while cond { body }`.
// Kept as its own node kind but typed through the same helper as
// Conditional.
type While struct {
	Token     token.Token
	Condition Node
	Body      Node
	typed
}

func (w *While) Pos() token.Token { return w.Token }

// Let introduces Params into a child scope, then evaluates Body. Each bound
// name carries its own initializer, so Params are VarParams (name +
// optional type + value) the same way a type header's field-with-default
// is, not bare Params.
type Let struct {
	Token  token.Token
	Params []*VarParam
	Body   Node
	typed
}

func (l *Let) Pos() token.Token { return l.Token }

// --- Access ---

// ClassAccess is `base.field`.
type ClassAccess struct {
	Token token.Token
	Base  Node
	Field string
	typed
}

func (c *ClassAccess) Pos() token.Token { return c.Token }

// DestructiveAssignment is `lhs := rhs`; Lhs must be a VariableValue or
// ClassAccess.
type DestructiveAssignment struct {
	Token token.Token
	Lhs   Node
	Rhs   Node
	typed
}

func (d *DestructiveAssignment) Pos() token.Token { return d.Token }

// Invoke is a function call `target(args...)`.
type Invoke struct {
	Token     token.Token
	Target    Node
	Arguments []Node
	typed
}

func (i *Invoke) Pos() token.Token { return i.Token }

// --- Declarations ---

// TypeRef is an unresolved type-name reference as written by the user
// (typesystem.Ref corresponds to its resolved form). It implements Node so
// it can stand as a BinaryOperator's right operand for the `as`/`is`
// operators, the one place a bare type name appears in expression position
// rather than in a declaration's type annotation slot.
type TypeRef struct {
	Token token.Token
	Name  string
}

func (t *TypeRef) Pos() token.Token { return t.Token }

// Param is a function/type-header parameter: a name with an optional
// declared type.
type Param struct {
	Token    token.Token
	Name     string
	TypeRef  *TypeRef // nil if unannotated
	typed
}

func (p *Param) Pos() token.Token { return p.Token }

// VarParam is a field-with-default declared in a type header (`x: T = v`);
// the attribute-trimming rewrite turns it into a plain Param plus a
// synthetic constructor assignment.
type VarParam struct {
	Token   token.Token
	Name    string
	TypeRef *TypeRef
	Value   Node
	typed
}

func (v *VarParam) Pos() token.Token { return v.Token }

// FunctionDecl is a function (or method, or the synthetic `@ctor`)
// declaration.
type FunctionDecl struct {
	Token      token.Token
	Name       string
	Params     []*Param
	ReturnType *TypeRef // nil if unannotated
	Body       Node
	typed
}

func (f *FunctionDecl) Pos() token.Token { return f.Token }

// CtorName is the synthetic constructor name every TypeDecl body carries.
const CtorName = "@ctor"

// SelfName/BaseName are the scope aliases exposed inside a method body;
// CtorSelfName/CtorBaseName are used instead inside @ctor, to avoid
// colliding with explicit user parameters.
const (
	SelfName     = "self"
	BaseName     = "base"
	CtorSelfName = "@self"
	CtorBaseName = "@base"
)

// TypeDecl is a composite `type T [inherits P] { ... }` declaration.
type TypeDecl struct {
	Token  token.Token
	Name   string
	Parent *TypeRef // nil if no explicit parent (defaults to "object")
	Body   *Block
}

func (t *TypeDecl) Pos() token.Token { return t.Token }

// ProtocolDecl is a structural `protocol P [extends Q] { ... }` declaration.
type ProtocolDecl struct {
	Token  token.Token
	Name   string
	Parent *TypeRef // nil if no explicit parent protocol
	Body   *Block
}

func (p *ProtocolDecl) Pos() token.Token { return p.Token }

// InferredType returns the type the typing pass attached to node, or nil
// if the node has not been visited yet. Every expression-shaped node
// embeds `typed`, so this covers all of them via a type switch.
func InferredType(n Node) typesystem.Type {
	switch v := n.(type) {
	case *Constant:
		return v.Type
	case *VariableValue:
		return v.Type
	case *NewValue:
		return v.Type
	case *BinaryOperator:
		return v.Type
	case *UnaryOperator:
		return v.Type
	case *Block:
		return v.Type
	case *Conditional:
		return v.Type
	case *While:
		return v.Type
	case *Let:
		return v.Type
	case *ClassAccess:
		return v.Type
	case *DestructiveAssignment:
		return v.Type
	case *Invoke:
		return v.Type
	case *Param:
		return v.Type
	case *VarParam:
		return v.Type
	case *FunctionDecl:
		return v.Type
	}
	return nil
}

// SetInferredType writes t onto node's mutable type field, and reports
// whether this call changed it (nil/Any widened, or a Union narrowed),
// the unit the typing pass's progress count is made of.
func SetInferredType(n Node, t typesystem.Type) (changed bool) {
	prev := InferredType(n)
	changed = typeChanged(prev, t)
	switch v := n.(type) {
	case *Constant:
		v.Type = t
	case *VariableValue:
		v.Type = t
	case *NewValue:
		v.Type = t
	case *BinaryOperator:
		v.Type = t
	case *UnaryOperator:
		v.Type = t
	case *Block:
		v.Type = t
	case *Conditional:
		v.Type = t
	case *While:
		v.Type = t
	case *Let:
		v.Type = t
	case *ClassAccess:
		v.Type = t
	case *DestructiveAssignment:
		v.Type = t
	case *Invoke:
		v.Type = t
	case *Param:
		v.Type = t
	case *VarParam:
		v.Type = t
	case *FunctionDecl:
		v.Type = t
	}
	return changed
}

// typeChanged reports whether moving from prev to next is progress: prev
// was unset, prev was Any and next is not, or prev was a wider Union than
// next. Narrowing is monotone, so anything else is not progress.
func typeChanged(prev, next typesystem.Type) bool {
	if next == nil {
		return false
	}
	if prev == nil {
		return true
	}
	if prev.TypeName() == next.TypeName() {
		return false
	}
	if _, wasAny := prev.(typesystem.Any); wasAny {
		return true
	}
	if pu, ok := prev.(typesystem.Union); ok {
		if nu, ok := next.(typesystem.Union); ok {
			return len(nu.Members) < len(pu.Members)
		}
		return true // narrowed from a union to a single member
	}
	return false
}
