package typesystem

import "testing"

func TestOrderedFieldsPreservesInsertionOrder(t *testing.T) {
	f := NewOrderedFields()
	f.Set("b", Number)
	f.Set("a", String)
	f.Set("b", Boolean) // overwrite must not move position

	got := f.Keys()
	want := []string{"b", "a"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}
	v, ok := f.Get("b")
	if !ok || v != Boolean {
		t.Fatalf("Get(b) = %v, %v, want Boolean, true", v, ok)
	}
}

func TestOrderedFieldsCloneIsIndependent(t *testing.T) {
	f := NewOrderedFields()
	f.Set("x", Number)
	clone := f.Clone()
	clone.Set("y", String)

	if f.Len() != 1 {
		t.Fatalf("original mutated by clone: Len() = %d, want 1", f.Len())
	}
	if clone.Len() != 2 {
		t.Fatalf("clone.Len() = %d, want 2", clone.Len())
	}
}

func TestMakeUnionCollapsesSingleton(t *testing.T) {
	got := MakeUnion(Number)
	if got != Type(Number) {
		t.Fatalf("MakeUnion(Number) = %v, want Number", got)
	}
}

func TestMakeUnionDeduplicatesByName(t *testing.T) {
	got := MakeUnion(Number, String, Number)
	u, ok := got.(Union)
	if !ok {
		t.Fatalf("MakeUnion(Number, String, Number) = %T, want Union", got)
	}
	if len(u.Members) != 2 {
		t.Fatalf("len(Members) = %d, want 2", len(u.Members))
	}
}

func TestMakeUnionFlattensNestedUnions(t *testing.T) {
	inner := MakeUnion(Number, String)
	got := MakeUnion(inner, Boolean)
	u, ok := got.(Union)
	if !ok {
		t.Fatalf("MakeUnion(inner, Boolean) = %T, want Union", got)
	}
	if len(u.Members) != 3 {
		t.Fatalf("len(Members) = %d, want 3 (got %s)", len(u.Members), u.String())
	}
}

func TestCompositeMemberWalksParentChain(t *testing.T) {
	object := NewComposite("object")
	animal := NewComposite("Animal")
	animal.Parent = object
	animal.Attributes.Set("name", String)
	dog := NewComposite("Dog")
	dog.Parent = animal
	dog.Methods.Set("bark", &Function{Name: "bark", Params: NewOrderedFields(), Return: String})

	if _, ok := dog.Member("bark", false); !ok {
		t.Fatalf("Dog should have its own method bark")
	}
	if _, ok := dog.Member("name", true); !ok {
		t.Fatalf("Dog should inherit attribute name from Animal")
	}
	if _, ok := dog.Member("missing", true); ok {
		t.Fatalf("Dog should not have attribute missing")
	}
}

func TestCompositeMemberAttributeShadowsMethodLookupOnlyWhenRequested(t *testing.T) {
	c := NewComposite("C")
	c.Attributes.Set("x", Number)
	if _, ok := c.Member("x", false); ok {
		t.Fatalf("Member(x, attr=false) should skip attributes and find nothing")
	}
	if _, ok := c.Member("x", true); !ok {
		t.Fatalf("Member(x, attr=true) should find the attribute")
	}
}

func TestCompositeCastableTo(t *testing.T) {
	object := NewComposite("object")
	a := NewComposite("A")
	a.Parent = object
	b := NewComposite("B")
	b.Parent = a

	if !b.CastableTo(a) {
		t.Fatalf("B should be castable to its parent A")
	}
	if !b.CastableTo(object) {
		t.Fatalf("B should be castable to its grandparent object")
	}
	if a.CastableTo(b) {
		t.Fatalf("A should not be castable to its child B")
	}
}

func TestCompositeCircularDetectsCycle(t *testing.T) {
	a := NewComposite("A")
	b := NewComposite("B")
	b.Parent = a
	// Setting A's parent to B would close a cycle A -> B -> A.
	if !a.Circular(b) {
		t.Fatalf("A.Circular(B) should report true: B's ancestor chain already reaches A")
	}

	c := NewComposite("object")
	if a.Circular(c) {
		t.Fatalf("A.Circular(object) should report false: no cycle")
	}
}

func TestProtocolImplementedBy(t *testing.T) {
	printable := NewProtocol("printable")
	printable.Methods.Set("tostring", &Function{Name: "tostring", Params: NewOrderedFields(), Return: String})

	point := NewComposite("Point")
	point.Methods.Set("tostring", &Function{Name: "tostring", Params: NewOrderedFields(), Return: String})

	if !printable.ImplementedBy(point) {
		t.Fatalf("Point should implement printable")
	}

	empty := NewComposite("Empty")
	if printable.ImplementedBy(empty) {
		t.Fatalf("Empty should not implement printable")
	}
}

func TestProtocolImplementedByRecursesThroughParentProtocol(t *testing.T) {
	base := NewProtocol("Base")
	base.Methods.Set("id", &Function{Name: "id", Params: NewOrderedFields(), Return: Number})
	derived := NewProtocol("Derived")
	derived.Parent = base
	derived.Methods.Set("extra", &Function{Name: "extra", Params: NewOrderedFields(), Return: Boolean})

	full := NewComposite("Full")
	full.Methods.Set("id", &Function{Name: "id", Params: NewOrderedFields(), Return: Number})
	full.Methods.Set("extra", &Function{Name: "extra", Params: NewOrderedFields(), Return: Boolean})

	if !derived.ImplementedBy(full) {
		t.Fatalf("Full should implement Derived (covers both Derived's and Base's members)")
	}

	partial := NewComposite("Partial")
	partial.Methods.Set("extra", &Function{Name: "extra", Params: NewOrderedFields(), Return: Boolean})
	if derived.ImplementedBy(partial) {
		t.Fatalf("Partial should not implement Derived: missing inherited id()")
	}
}

func TestFunctionString(t *testing.T) {
	params := NewOrderedFields()
	params.Set("a", Number)
	params.Set("b", String)
	fn := &Function{Name: "f", Params: params, Return: Boolean}
	want := "f(a: number, b: string) -> boolean"
	if got := fn.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
