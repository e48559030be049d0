package env

import (
	"testing"

	"github.com/hulklang/sema/internal/typesystem"
)

func TestCloneIsShallowAndIndependent(t *testing.T) {
	e := New()
	e.SetVariable("x", typesystem.Number)
	clone := e.Clone()
	clone.SetVariable("y", typesystem.String)

	if _, ok := e.GetVariable("y"); ok {
		t.Fatalf("mutating a clone's scope must not affect the parent")
	}
	if _, ok := clone.GetVariable("x"); !ok {
		t.Fatalf("a clone should still see the parent's entries")
	}
}

func TestDeepCloneIsolatesMutableTypeMutation(t *testing.T) {
	e := New()
	comp := typesystem.NewComposite("C")
	comp.Attributes.Set("a", typesystem.Number)
	e.SetType("C", comp)

	clone := e.DeepClone()
	clonedType, _ := clone.GetType("C")
	clonedComp := clonedType.(*typesystem.Composite)
	clonedComp.Attributes.Set("a", typesystem.String)

	orig, _ := comp.Attributes.Get("a")
	if orig != typesystem.Number {
		t.Fatalf("mutating a deep-cloned Composite's attributes must not affect the original")
	}
}

func TestDiffReturnsOnlyNewEntries(t *testing.T) {
	parent := New()
	parent.SetVariable("x", typesystem.Number)
	parent.SetType("A", typesystem.NewComposite("A"))

	child := parent.Clone()
	child.SetVariable("y", typesystem.String)
	child.SetType("B", typesystem.NewComposite("B"))

	diff := child.Diff(parent)
	if _, ok := diff.GetVariable("x"); ok {
		t.Fatalf("Diff should not include entries already present in parent")
	}
	if _, ok := diff.GetVariable("y"); !ok {
		t.Fatalf("Diff should include entries new to child")
	}
	if _, ok := diff.GetType("B"); !ok {
		t.Fatalf("Diff should include new type-registry entries too")
	}
}

func TestVariableAndTypeNamesPreserveInsertionOrder(t *testing.T) {
	e := New()
	e.SetVariable("b", typesystem.Number)
	e.SetVariable("a", typesystem.String)
	names := e.VariableNames()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("VariableNames() = %v, want [b a]", names)
	}
	e.SetType("B", typesystem.NewComposite("B"))
	e.SetType("A", typesystem.NewComposite("A"))
	types := e.TypeNames()
	if len(types) != 2 || types[0] != "B" || types[1] != "A" {
		t.Fatalf("TypeNames() = %v, want [B A]", types)
	}
}
