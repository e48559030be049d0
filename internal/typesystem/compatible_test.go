package typesystem

import "testing"

func TestCompatibleAnyIsUniversalUnlessStrict(t *testing.T) {
	if !Compatible(Any{}, Number, false) {
		t.Fatalf("Any ~ Number should be compatible (lax)")
	}
	if Compatible(Any{}, Number, true) {
		t.Fatalf("Any ~ Number should not be compatible (strict)")
	}
	if !Compatible(Any{}, Any{}, true) {
		t.Fatalf("Any ~ Any should be compatible even strict")
	}
	if !Compatible(Number, Any{}, false) {
		t.Fatalf("Number ~ Any should be compatible via the symmetric fall-through")
	}
}

func TestCompatibleSimple(t *testing.T) {
	if !Compatible(Number, Number, false) {
		t.Fatalf("number ~ number should be compatible")
	}
	if Compatible(Number, String, false) {
		t.Fatalf("number ~ string should not be compatible")
	}
}

func TestCompatibleUnionLax(t *testing.T) {
	u := MakeUnion(Number, String)
	if !Compatible(u, Number, false) {
		t.Fatalf("(number|string) ~ number should be compatible laxly")
	}
	if Compatible(u, Boolean, false) {
		t.Fatalf("(number|string) ~ boolean should not be compatible")
	}
}

func TestCompatibleUnionStrictRequiresEqualCardinality(t *testing.T) {
	u2 := MakeUnion(Number, String)
	u3 := MakeUnion(Number, String, Boolean)
	if !Compatible(u2, u2, true) {
		t.Fatalf("identical unions should be strictly compatible")
	}
	if Compatible(u2, u3, true) {
		t.Fatalf("unions of different cardinality should not be strictly compatible")
	}
}

func TestCompatibleCompositeStrictIsNameEquality(t *testing.T) {
	a1 := NewComposite("A")
	a2 := NewComposite("A")
	b := NewComposite("B")
	if !Compatible(a1, a2, true) {
		t.Fatalf("same-named composites should be strictly compatible")
	}
	if Compatible(a1, b, true) {
		t.Fatalf("differently-named composites should not be strictly compatible")
	}
}

func TestCompatibleCompositeLaxWalksParentChain(t *testing.T) {
	object := NewComposite("object")
	animal := NewComposite("Animal")
	animal.Parent = object
	dog := NewComposite("Dog")
	dog.Parent = animal

	if !Compatible(animal, dog, false) {
		t.Fatalf("Dog should be compatible with (castable to) Animal")
	}
	if Compatible(dog, animal, false) {
		t.Fatalf("Animal should not be compatible with (castable to) Dog")
	}
}

func TestCompatibleProtocolComposite(t *testing.T) {
	printable := NewProtocol("printable")
	printable.Methods.Set("tostring", &Function{Name: "tostring", Params: NewOrderedFields(), Return: String})
	point := NewComposite("Point")
	point.Methods.Set("tostring", &Function{Name: "tostring", Params: NewOrderedFields(), Return: String})

	if !Compatible(printable, point, false) {
		t.Fatalf("Point should be compatible with printable (lax)")
	}
	if Compatible(printable, point, true) {
		t.Fatalf("Protocol ~ Composite should never be strictly compatible")
	}
}

func TestCompatibleProtocolProtocol(t *testing.T) {
	p := NewProtocol("P")
	q := NewProtocol("Q")
	if Compatible(p, q, true) {
		t.Fatalf("differently named protocols should not be strictly compatible")
	}
	if !Compatible(p, p, true) {
		t.Fatalf("a protocol should be strictly compatible with itself")
	}
}
