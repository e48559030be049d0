package typesystem

// CloneDeep copies t and everything it structurally owns (a Composite's or
// Protocol's Attributes/Methods/Parent, a Function's Params/Return/Overloads),
// sharing one copy per distinct pointer via cache so cyclic/shared structure
// (a type referencing itself through inheritance, two methods sharing a
// parameter type) clones correctly without infinite recursion.
//
// This is what lets a trial type-check mutate a hypothesized Function's
// Return or a Composite's Attributes without the mutation leaking into the
// live environment: Any/Simple/Union/Vector/Ref are immutable value types
// and are returned as-is, but Composite/Protocol/Function carry mutable
// pointer fields the typing pass writes through, so only those three need
// copying.
// Only pointer kinds reach the cache: a Union or Vector can hold a slice
// and is not a valid map key.
func CloneDeep(t Type, cache map[Type]Type) Type {
	if t == nil {
		return nil
	}
	switch v := t.(type) {
	case *Composite:
		if c, ok := cache[t]; ok {
			return c
		}
		clone := &Composite{Name: v.Name}
		cache[t] = clone
		if v.Parent != nil {
			clone.Parent, _ = CloneDeep(v.Parent, cache).(*Composite)
		}
		clone.Attributes = cloneFields(v.Attributes, cache)
		clone.Methods = cloneFields(v.Methods, cache)
		return clone
	case *Protocol:
		if c, ok := cache[t]; ok {
			return c
		}
		clone := &Protocol{Name: v.Name}
		cache[t] = clone
		if v.Parent != nil {
			clone.Parent, _ = CloneDeep(v.Parent, cache).(*Protocol)
		}
		clone.Attributes = cloneFields(v.Attributes, cache)
		clone.Methods = cloneFields(v.Methods, cache)
		return clone
	case *Function:
		if c, ok := cache[t]; ok {
			return c
		}
		clone := &Function{Name: v.Name}
		cache[t] = clone
		clone.Return = CloneDeep(v.Return, cache)
		clone.Params = cloneFields(v.Params, cache)
		if v.Overloads != nil {
			clone.Overloads = make([]*Function, len(v.Overloads))
			for i, o := range v.Overloads {
				clone.Overloads[i], _ = CloneDeep(o, cache).(*Function)
			}
		}
		return clone
	default:
		// Any, Simple, Union, Vector, Ref hold no pointer a later pass
		// mutates in place; sharing them is safe and cheaper than copying.
		return t
	}
}

func cloneFields(f *OrderedFields, cache map[Type]Type) *OrderedFields {
	out := NewOrderedFields()
	if f == nil {
		return out
	}
	for _, k := range f.Keys() {
		v, _ := f.Get(k)
		out.Set(k, CloneDeep(v, cache))
	}
	return out
}
