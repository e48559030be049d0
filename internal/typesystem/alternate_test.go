package typesystem

import "testing"

func TestAlternativesNonUnionYieldsOnce(t *testing.T) {
	params := NewOrderedFields()
	params.Set("x", Number)
	fn := &Function{Name: "f", Params: params, Return: Boolean}

	alts := Alternatives(fn)
	if len(alts) != 1 {
		t.Fatalf("len(Alternatives) = %d, want 1", len(alts))
	}
}

func TestAlternativesCardinalityIsProductOfAxisWidths(t *testing.T) {
	params := NewOrderedFields()
	params.Set("a", MakeUnion(Number, String))
	params.Set("b", MakeUnion(Number, String, Boolean))
	fn := &Function{Name: "f", Params: params, Return: Number}

	alts := Alternatives(fn)
	want := 2 * 3
	if len(alts) != want {
		t.Fatalf("len(Alternatives) = %d, want %d", len(alts), want)
	}
}

func TestAlternativesVariesReturnTooAsAnAxis(t *testing.T) {
	fn := &Function{Name: "f", Params: NewOrderedFields(), Return: MakeUnion(Number, String)}
	alts := Alternatives(fn)
	if len(alts) != 2 {
		t.Fatalf("len(Alternatives) = %d, want 2", len(alts))
	}
}

func TestAlternativesPreservesParameterNamesAndOrder(t *testing.T) {
	params := NewOrderedFields()
	params.Set("first", MakeUnion(Number, String))
	params.Set("second", Boolean)
	fn := &Function{Name: "f", Params: params, Return: Number}

	for _, alt := range Alternatives(fn) {
		keys := alt.Params.Keys()
		if len(keys) != 2 || keys[0] != "first" || keys[1] != "second" {
			t.Fatalf("alternative params = %v, want [first second]", keys)
		}
	}
}

func TestAlternativesUsesOverloadsWhenPresent(t *testing.T) {
	p1 := NewOrderedFields()
	p1.Set("x", Number)
	o1 := &Function{Name: "id", Params: p1, Return: Number}
	p2 := NewOrderedFields()
	p2.Set("x", String)
	o2 := &Function{Name: "id", Params: p2, Return: String}

	canonicalParams := NewOrderedFields()
	canonicalParams.Set("x", MakeUnion(Number, String))
	fn := &Function{Name: "id", Params: canonicalParams, Return: MakeUnion(Number, String), Overloads: []*Function{o1, o2}}

	alts := Alternatives(fn)
	if len(alts) != 2 {
		t.Fatalf("len(Alternatives) = %d, want 2 (the overload pairing, not the 2x2 cross product)", len(alts))
	}
}
