package typesystem

// Alternatives enumerates every concrete signature admitted by fn's
// union-parameterized params/return: one per element of the Cartesian
// product, so the total count is the product of the axis widths.
// Parameter axes vary in declaration order, the first parameter innermost
// (fastest-changing). When fn carries an inference-narrowed Overloads set,
// that set is the exact candidate list and is returned instead.
func Alternatives(fn *Function) []*Function {
	if fn.Overloads != nil {
		out := make([]*Function, len(fn.Overloads))
		copy(out, fn.Overloads)
		return out
	}

	keys := fn.Params.Keys()
	paramTypes := make([]Type, len(keys))
	for i, k := range keys {
		t, _ := fn.Params.Get(k)
		paramTypes[i] = t
	}

	var out []*Function
	for _, ret := range alternative(fn.Return) {
		if len(keys) == 0 {
			out = append(out, &Function{Name: fn.Name, Params: NewOrderedFields(), Return: ret})
			continue
		}
		for _, combo := range combosFrom(paramTypes) {
			params := NewOrderedFields()
			for i, k := range keys {
				params.Set(k, combo[i])
			}
			out = append(out, &Function{Name: fn.Name, Params: params, Return: ret})
		}
	}
	return out
}

// alternative yields t itself if it is not a Union, or each of its members
// otherwise.
func alternative(t Type) []Type {
	if u, ok := t.(Union); ok {
		out := make([]Type, len(u.Members))
		copy(out, u.Members)
		return out
	}
	return []Type{t}
}

// combosFrom enumerates every combination of per-position alternatives,
// with types[0] varying fastest (innermost).
func combosFrom(types []Type) [][]Type {
	if len(types) == 0 {
		return [][]Type{{}}
	}
	head, tail := types[0], types[1:]
	tails := combosFrom(tail)

	var out [][]Type
	for _, t := range tails {
		for _, h := range alternative(head) {
			combo := make([]Type, 0, 1+len(t))
			combo = append(combo, h)
			combo = append(combo, t...)
			out = append(out, combo)
		}
	}
	return out
}
