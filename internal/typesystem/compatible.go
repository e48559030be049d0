package typesystem

// Compatible is the key predicate for name resolution and overload
// selection. Cases: Any on either side, Union on either side,
// Protocol/Composite cross terms, and plain name equality for Simple
// types. Strict mode demands exact shape (Any only matches Any, unions
// must have equal cardinality, nominal types must be name-equal); lax
// mode admits structural coverage and upcasts.
func Compatible(a, b Type, strict bool) bool {
	switch at := a.(type) {
	case Any:
		if !strict {
			return true
		}
		_, bIsAny := b.(Any)
		return bIsAny

	case Union:
		for _, m := range at.Members {
			if Compatible(m, b, false) {
				if !strict {
					return true
				}
				bu, ok := b.(Union)
				return ok && len(bu.Members) == len(at.Members)
			}
		}
		return false

	case *Protocol:
		switch bt := b.(type) {
		case *Protocol:
			if strict {
				return at.Name == bt.Name
			}
			return bt.implements(at)
		case *Composite:
			if strict {
				return false
			}
			return at.ImplementedBy(bt)
		}

	case *Composite:
		switch bt := b.(type) {
		case *Composite:
			if strict {
				return at.Name == bt.Name
			}
			return bt.CastableTo(at)
		}

	case Simple:
		if bt, ok := b.(Simple); ok {
			return at.Name == bt.Name
		}
	}

	// Symmetric fall-through: Any or Union on the right.
	switch bt := b.(type) {
	case Any:
		return true
	case Union:
		for _, m := range bt.Members {
			if Compatible(a, m, false) {
				if !strict {
					return true
				}
				au, ok := a.(Union)
				return ok && len(au.Members) == len(bt.Members)
			}
		}
		return false
	}

	return a.TypeName() == b.TypeName()
}

// implements is the lax Protocol~Protocol check: q's members cover p's.
func (q *Protocol) implements(p *Protocol) bool {
	for _, name := range p.Attributes.Keys() {
		want, _ := p.Attributes.Get(name)
		got, ok := q.member(name, true)
		if !ok || !Compatible(want, got, false) {
			return false
		}
	}
	for _, name := range p.Methods.Keys() {
		want, _ := p.Methods.Get(name)
		got, ok := q.member(name, false)
		if !ok || !Compatible(want, got, false) {
			return false
		}
	}
	if p.Parent == nil {
		return true
	}
	return q.implements(p.Parent)
}

func (p *Protocol) member(name string, attr bool) (Type, bool) {
	if p == nil {
		return nil, false
	}
	if attr {
		if t, ok := p.Attributes.Get(name); ok {
			return t, true
		}
	}
	if t, ok := p.Methods.Get(name); ok {
		return t, true
	}
	if p.Parent != nil {
		return p.Parent.member(name, false)
	}
	return nil, false
}
