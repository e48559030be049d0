// Package env implements the semantic environment: a scope (variable name
// -> Type) and a type registry (type name -> Type), both insertion-ordered,
// cheaply cloneable, and diffable. The analysis passes clone before
// recursing into a nested scope, so a child never mutates its parent.
package env

import "github.com/hulklang/sema/internal/typesystem"

// Environment is the scope + type-registry pair the whole analysis pipeline
// reads and writes. The zero value is not valid; use New.
type Environment struct {
	scope *typesystem.OrderedFields
	types *typesystem.OrderedFields
}

// New returns an empty Environment.
func New() *Environment {
	return &Environment{scope: typesystem.NewOrderedFields(), types: typesystem.NewOrderedFields()}
}

// Clone returns a shallow copy: a snapshot whose maps can be mutated
// without affecting the parent. Cheap enough to take on every
// Let/FunctionDecl/TypeDecl child scope.
func (e *Environment) Clone() *Environment {
	return &Environment{scope: e.scope.Clone(), types: e.types.Clone()}
}

// DeepClone returns a snapshot where every Composite, Protocol and Function
// reachable from scope/types is itself copied (via typesystem.CloneDeep),
// not merely the two top-level maps. Trial type-checking must use this
// instead of Clone, since the typing pass mutates Function.Return and
// Composite.Attributes in place; a shallow Clone would still let a failed
// trial corrupt the live types.
func (e *Environment) DeepClone() *Environment {
	cache := make(map[typesystem.Type]typesystem.Type)
	out := New()
	for _, name := range e.types.Keys() {
		t, _ := e.types.Get(name)
		out.types.Set(name, typesystem.CloneDeep(t, cache))
	}
	for _, name := range e.scope.Keys() {
		t, _ := e.scope.Get(name)
		out.scope.Set(name, typesystem.CloneDeep(t, cache))
	}
	return out
}

// GetVariable looks up name in the scope.
func (e *Environment) GetVariable(name string) (typesystem.Type, bool) {
	return e.scope.Get(name)
}

// SetVariable inserts or overwrites name's type in the scope.
func (e *Environment) SetVariable(name string, t typesystem.Type) {
	e.scope.Set(name, t)
}

// GetType looks up name in the type registry.
func (e *Environment) GetType(name string) (typesystem.Type, bool) {
	return e.types.Get(name)
}

// SetType inserts or overwrites name's entry in the type registry.
func (e *Environment) SetType(name string, t typesystem.Type) {
	e.types.Set(name, t)
}

// VariableNames returns every scope entry's name, in insertion order.
func (e *Environment) VariableNames() []string { return e.scope.Keys() }

// TypeNames returns every registry entry's name, in insertion order.
func (e *Environment) TypeNames() []string { return e.types.Keys() }

// Diff returns a child Environment containing only the scope/type entries
// present in e but absent from parent; used by the collect pass to harvest
// the body-local declarations of a type or protocol.
func (e *Environment) Diff(parent *Environment) *Environment {
	out := New()
	for _, name := range e.scope.Keys() {
		if _, ok := parent.scope.Get(name); !ok {
			t, _ := e.scope.Get(name)
			out.scope.Set(name, t)
		}
	}
	for _, name := range e.types.Keys() {
		if _, ok := parent.types.Get(name); !ok {
			t, _ := e.types.Get(name)
			out.types.Set(name, t)
		}
	}
	return out
}
