package semantic

import (
	"github.com/hulklang/sema/internal/ast"
	"github.com/hulklang/sema/internal/config"
	"github.com/hulklang/sema/internal/diagnostics"
	"github.com/hulklang/sema/internal/env"
	"github.com/hulklang/sema/internal/typesystem"
)

// arithOps/numericCompareOps/eqOps/boolOps/concatOps partition
// BinaryOperator.Op: arithmetic and numeric comparisons both require two
// numbers (the former yields number, the latter boolean); == / != only
// require both operands compatible with number | boolean; & / | require
// two booleans; @ / @@ require both operands compatible with
// number | string | printable.
var (
	arithOps          = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}
	numericCompareOps = map[string]bool{"<": true, ">": true, "<=": true, ">=": true}
	eqOps             = map[string]bool{"==": true, "!=": true}
	boolOps           = map[string]bool{"&": true, "|": true}
	concatOps         = map[string]bool{"@": true, "@@": true}
)

// TypeNode walks n once, inferring or re-checking its type against scope e,
// and reports whether this call narrowed/assigned anything, the progress
// unit the fixed-point loop counts. It never recurses into declarations collect
// already resolved (TypeDecl/ProtocolDecl bodies are typed through their
// own method FunctionDecls, visited directly by the transform schedule),
// only into the live expression tree.
func TypeNode(e *env.Environment, n ast.Node) (bool, error) {
	if n == nil {
		return false, nil
	}
	switch node := n.(type) {
	case *ast.Constant:
		return typeConstant(e, node)
	case *ast.VariableValue:
		return typeVariableValue(e, node)
	case *ast.NewValue:
		return typeNewValue(e, node)
	case *ast.BinaryOperator:
		return typeBinaryOperator(e, node)
	case *ast.UnaryOperator:
		return typeUnaryOperator(e, node)
	case *ast.Block:
		return typeBlock(e, node)
	case *ast.Conditional:
		return typeConditional(e, node)
	case *ast.While:
		return typeWhile(e, node)
	case *ast.Let:
		return typeLet(e, node)
	case *ast.ClassAccess:
		return typeClassAccess(e, node)
	case *ast.DestructiveAssignment:
		return typeDestructiveAssignment(e, node)
	case *ast.Invoke:
		return typeInvoke(e, node)
	case *ast.Param:
		return typeParam(e, node)
	case *ast.VarParam:
		return typeVarParam(e, node)
	case *ast.FunctionDecl:
		return typeFunctionDecl(e, node)
	default:
		return false, diagnostics.New(diagnostics.FallThrough, n.Pos(), "no typing rule for %T", n)
	}
}

func typeConstant(e *env.Environment, n *ast.Constant) (bool, error) {
	var t typesystem.Type
	switch n.Value.(type) {
	case bool:
		t = typesystem.Boolean
	case float64:
		t = typesystem.Number
	case string:
		t = typesystem.String
	default:
		t = typesystem.Any{}
	}
	return ast.SetInferredType(n, t), nil
}

func typeVariableValue(e *env.Environment, n *ast.VariableValue) (bool, error) {
	t, ok := e.GetVariable(n.Name)
	if !ok {
		return false, diagnostics.New(diagnostics.UnknownVariable, n.Token, "unknown variable %q", n.Name)
	}
	return ast.SetInferredType(n, t), nil
}

func typeNewValue(e *env.Environment, n *ast.NewValue) (bool, error) {
	t, ok := e.GetType(n.TypeName)
	if !ok {
		return false, diagnostics.New(diagnostics.UnknownType, n.Token, "unknown type %q", n.TypeName)
	}
	comp, ok := t.(*typesystem.Composite)
	if !ok {
		return false, diagnostics.New(diagnostics.CannotInstantiateProtocol, n.Token, "cannot instantiate non-composite %q", n.TypeName)
	}
	ctor, _ := comp.Member(ast.CtorName, false)
	ctorFn, _ := ctor.(*typesystem.Function)
	if ctorFn != nil {
		if len(n.Arguments) != ctorFn.Params.Len() {
			return false, diagnostics.New(diagnostics.ArgumentCountMismatch, n.Token, "%q constructor expects %d arguments, got %d", n.TypeName, ctorFn.Params.Len(), len(n.Arguments))
		}
		progress := false
		for i, arg := range n.Arguments {
			changed, err := TypeNode(e, arg)
			if err != nil {
				return false, err
			}
			progress = progress || changed
			argType := ast.InferredType(arg)
			if argType == nil {
				continue
			}
			paramName := ctorFn.Params.Keys()[i]
			paramType, _ := ctorFn.Params.Get(paramName)
			if !typesystem.Compatible(paramType, argType, false) {
				return false, diagnostics.New(diagnostics.IncompatibleTypes, arg.Pos(), "argument %d to %q constructor: expected %s, got %s", i+1, n.TypeName, paramType.String(), argType.String())
			}
		}
		changed := ast.SetInferredType(n, comp)
		return changed || progress, nil
	}
	for _, arg := range n.Arguments {
		if _, err := TypeNode(e, arg); err != nil {
			return false, err
		}
	}
	return ast.SetInferredType(n, comp), nil
}

func typeUnaryOperator(e *env.Environment, n *ast.UnaryOperator) (bool, error) {
	changed, err := TypeNode(e, n.Argument)
	if err != nil {
		return false, err
	}
	argType := ast.InferredType(n.Argument)
	if n.Op != "!" {
		return false, diagnostics.New(diagnostics.UnknownOperator, n.Token, "unknown unary operator %q", n.Op)
	}
	if argType == nil {
		return changed, nil
	}
	if !typesystem.Compatible(typesystem.Boolean, argType, false) {
		return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "! expects boolean, got %s", argType.String())
	}
	return ast.SetInferredType(n, typesystem.Boolean) || changed, nil
}

// typeBinaryOperator checks both operands against the operator's required
// types and yields its result type; as is a checked widen/narrow to the
// named type; is tests membership and always yields boolean regardless of
// operand progress.
func typeBinaryOperator(e *env.Environment, n *ast.BinaryOperator) (bool, error) {
	if n.Op == "as" || n.Op == "is" {
		return typeAsIs(e, n)
	}

	lchanged, err := TypeNode(e, n.Left)
	if err != nil {
		return false, err
	}
	rchanged, err := TypeNode(e, n.Right)
	if err != nil {
		return false, err
	}
	progress := lchanged || rchanged
	lt := ast.InferredType(n.Left)
	rt := ast.InferredType(n.Right)
	if lt == nil || rt == nil {
		return progress, nil
	}

	switch {
	case arithOps[n.Op]:
		if !typesystem.Compatible(typesystem.Number, lt, false) || !typesystem.Compatible(typesystem.Number, rt, false) {
			return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "%s requires two numbers, got %s and %s", n.Op, lt.String(), rt.String())
		}
		return ast.SetInferredType(n, typesystem.Number) || progress, nil
	case numericCompareOps[n.Op]:
		if !typesystem.Compatible(typesystem.Number, lt, false) || !typesystem.Compatible(typesystem.Number, rt, false) {
			return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "%s requires two numbers, got %s and %s", n.Op, lt.String(), rt.String())
		}
		return ast.SetInferredType(n, typesystem.Boolean) || progress, nil
	case eqOps[n.Op]:
		numOrBool := numberOrBoolean()
		if !typesystem.Compatible(numOrBool, lt, false) || !typesystem.Compatible(numOrBool, rt, false) {
			return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "%s requires operands compatible with number or boolean, got %s and %s", n.Op, lt.String(), rt.String())
		}
		return ast.SetInferredType(n, typesystem.Boolean) || progress, nil
	case boolOps[n.Op]:
		if !typesystem.Compatible(typesystem.Boolean, lt, false) || !typesystem.Compatible(typesystem.Boolean, rt, false) {
			return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "%s requires two booleans, got %s and %s", n.Op, lt.String(), rt.String())
		}
		return ast.SetInferredType(n, typesystem.Boolean) || progress, nil
	case concatOps[n.Op]:
		concatenable := numberOrStringOrPrintable(e)
		if !typesystem.Compatible(concatenable, lt, false) || !typesystem.Compatible(concatenable, rt, false) {
			return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "%s requires operands compatible with number, string or printable, got %s and %s", n.Op, lt.String(), rt.String())
		}
		return ast.SetInferredType(n, typesystem.String) || progress, nil
	default:
		return false, diagnostics.New(diagnostics.UnknownOperator, n.Token, "unknown binary operator %q", n.Op)
	}
}

// numberOrBoolean builds the number | boolean union ==/!= checks operands
// against.
func numberOrBoolean() typesystem.Type {
	return typesystem.MakeUnion(typesystem.Number, typesystem.Boolean)
}

// numberOrStringOrPrintable builds the number | string | printable union
// @/@@ checks operands against. printable is looked up from e rather than
// hardcoded since it is a registered protocol, not a Simple atom; a caller
// that somehow runs without the prelude installed still gets a usable
// number | string union.
func numberOrStringOrPrintable(e *env.Environment) typesystem.Type {
	if printable, ok := e.GetType(config.PrintableTypeName); ok {
		return typesystem.MakeUnion(typesystem.Number, typesystem.String, printable)
	}
	return typesystem.MakeUnion(typesystem.Number, typesystem.String)
}

func typeAsIs(e *env.Environment, n *ast.BinaryOperator) (bool, error) {
	ref, ok := n.Right.(*ast.TypeRef)
	if !ok {
		return false, diagnostics.New(diagnostics.UnknownOperator, n.Token, "%s requires a type reference operand", n.Op)
	}
	target, ok := e.GetType(ref.Name)
	if !ok {
		return false, diagnostics.New(diagnostics.UnknownType, ref.Token, "unknown type %q", ref.Name)
	}
	lchanged, err := TypeNode(e, n.Left)
	if err != nil {
		return false, err
	}
	if n.Op == "is" {
		return ast.SetInferredType(n, typesystem.Boolean) || lchanged, nil
	}
	lt := ast.InferredType(n.Left)
	if lt == nil {
		return lchanged, nil
	}
	if !typesystem.Compatible(target, lt, false) {
		return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "cannot cast %s as %s", lt.String(), target.String())
	}
	return ast.SetInferredType(n, target) || lchanged, nil
}

func typeBlock(e *env.Environment, n *ast.Block) (bool, error) {
	progress := false
	var last typesystem.Type = typesystem.Any{}
	for _, stmt := range n.Stmts {
		changed, err := TypeNode(e, stmt)
		if err != nil {
			return false, err
		}
		progress = progress || changed
		if t := ast.InferredType(stmt); t != nil {
			last = t
		}
	}
	return ast.SetInferredType(n, last) || progress, nil
}

func typeConditional(e *env.Environment, n *ast.Conditional) (bool, error) {
	cchanged, err := TypeNode(e, n.Condition)
	if err != nil {
		return false, err
	}
	condType := ast.InferredType(n.Condition)
	if condType != nil && !typesystem.Compatible(typesystem.Boolean, condType, false) {
		return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "if condition must be boolean, got %s", condType.String())
	}
	tchanged, err := TypeNode(e, n.Then)
	if err != nil {
		return false, err
	}
	progress := cchanged || tchanged
	thenType := ast.InferredType(n.Then)
	var result typesystem.Type = thenType
	if n.Else != nil {
		echanged, err := TypeNode(e, n.Else)
		if err != nil {
			return false, err
		}
		progress = progress || echanged
		elseType := ast.InferredType(n.Else)
		if thenType != nil && elseType != nil {
			result = typesystem.Merge(thenType, elseType)
		} else {
			result = nil
		}
	}
	if result == nil {
		return progress, nil
	}
	return ast.SetInferredType(n, result) || progress, nil
}

func typeWhile(e *env.Environment, n *ast.While) (bool, error) {
	cchanged, err := TypeNode(e, n.Condition)
	if err != nil {
		return false, err
	}
	condType := ast.InferredType(n.Condition)
	if condType != nil && !typesystem.Compatible(typesystem.Boolean, condType, false) {
		return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "while condition must be boolean, got %s", condType.String())
	}
	bchanged, err := TypeNode(e, n.Body)
	if err != nil {
		return false, err
	}
	progress := cchanged || bchanged
	bodyType := ast.InferredType(n.Body)
	if bodyType == nil {
		return progress, nil
	}
	return ast.SetInferredType(n, bodyType) || progress, nil
}

// typeLet binds each VarParam's initializer type into a child scope before
// typing Body. A later binding can see an earlier one, but never the
// reverse, so bindings are processed in declaration order against the same
// growing child environment.
func typeLet(e *env.Environment, n *ast.Let) (bool, error) {
	child := e.Clone()
	progress := false
	for _, p := range n.Params {
		changed, err := typeVarParam(child, p)
		if err != nil {
			return false, err
		}
		progress = progress || changed
		t := ast.InferredType(p)
		if t == nil {
			if p.TypeRef != nil {
				var err error
				t, err = resolveTypeRef(child, p.TypeRef)
				if err != nil {
					return false, err
				}
			} else {
				t = typesystem.Any{}
			}
		}
		child.SetVariable(p.Name, t)
	}
	bchanged, err := TypeNode(child, n.Body)
	if err != nil {
		return false, err
	}
	progress = progress || bchanged
	bodyType := ast.InferredType(n.Body)
	if bodyType == nil {
		return progress, nil
	}
	return ast.SetInferredType(n, bodyType) || progress, nil
}

func typeParam(e *env.Environment, n *ast.Param) (bool, error) {
	t, err := resolveTypeRef(e, n.TypeRef)
	if err != nil {
		return false, err
	}
	return ast.SetInferredType(n, t), nil
}

func typeVarParam(e *env.Environment, n *ast.VarParam) (bool, error) {
	if fd, ok := n.Value.(*ast.FunctionDecl); ok {
		return typeVarParamFunctionLiteral(e, n, fd)
	}
	changed, err := TypeNode(e, n.Value)
	if err != nil {
		return false, err
	}
	valueType := ast.InferredType(n.Value)
	declared, err := resolveTypeRef(e, n.TypeRef)
	if err != nil {
		return false, err
	}
	if valueType == nil {
		return changed, nil
	}
	if _, isAny := declared.(typesystem.Any); !isAny && !typesystem.Compatible(declared, valueType, false) {
		return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "%q declared as %s, initialized with %s", n.Name, declared.String(), valueType.String())
	}
	result := declared
	if _, isAny := declared.(typesystem.Any); isAny {
		result = valueType
	}
	return ast.SetInferredType(n, result) || changed, nil
}

// typeVarParamFunctionLiteral binds a let-bound function literal (`let f =
// function(x) => x + 1 in ...`) to a proper *typesystem.Function rather
// than to its body's bare return type: the ordinary VarParam path above
// would otherwise leave f's binding as e.g. plain number, so a later
// Invoke on f would reject it outright as "not a function" instead of
// selecting (or rejecting) among its overloads. inferFunctionSignature
// trial-guesses any still-unannotated parameter exactly like a top-level
// FunctionDecl's GuessArguments axis, since a literal nested in a Let is
// never visited by the top-level transform schedule itself.
func typeVarParamFunctionLiteral(e *env.Environment, n *ast.VarParam, fd *ast.FunctionDecl) (bool, error) {
	fn, err := inferFunctionSignature(e, fd)
	if err != nil {
		return false, err
	}
	declared, err := resolveTypeRef(e, n.TypeRef)
	if err != nil {
		return false, err
	}
	if _, isAny := declared.(typesystem.Any); !isAny && !typesystem.Compatible(declared, fn, false) {
		return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "%q declared as %s, initialized with %s", n.Name, declared.String(), fn.String())
	}
	return ast.SetInferredType(n, fn), nil
}

// typeClassAccess resolves base.Field through the member lookup chain
// (attribute, then method, then parent), following Composite.Member's own
// precedence.
func typeClassAccess(e *env.Environment, n *ast.ClassAccess) (bool, error) {
	changed, err := TypeNode(e, n.Base)
	if err != nil {
		return false, err
	}
	baseType := ast.InferredType(n.Base)
	if baseType == nil {
		return changed, nil
	}
	if _, isAny := baseType.(typesystem.Any); isAny {
		// Still unconstrained, nothing to resolve yet. Erroring here would
		// make any field access through a not-yet-guessed parameter fail in
		// the real typing pass before GuessArguments/GuessParams/
		// ExpandProtocols ever get a chance to narrow it.
		return changed, nil
	}
	if _, isUnion := baseType.(typesystem.Union); isUnion {
		// Narrowed, but not to a single member; which member's field to
		// read is not decidable yet.
		return changed, nil
	}
	comp, ok := baseType.(*typesystem.Composite)
	if !ok {
		if proto, ok := baseType.(*typesystem.Protocol); ok {
			t, ok := proto.Methods.Get(n.Field)
			if !ok {
				t, ok = proto.Attributes.Get(n.Field)
			}
			if !ok {
				return false, diagnostics.New(diagnostics.UnknownField, n.Token, "unknown field %q on %s", n.Field, baseType.String())
			}
			return ast.SetInferredType(n, t) || changed, nil
		}
		return false, diagnostics.New(diagnostics.UnknownField, n.Token, "cannot access field %q on %s", n.Field, baseType.String())
	}
	t, ok := comp.Member(n.Field, true)
	if !ok {
		return false, diagnostics.New(diagnostics.UnknownField, n.Token, "unknown field %q on %s", n.Field, comp.Name)
	}
	return ast.SetInferredType(n, t) || changed, nil
}

func typeDestructiveAssignment(e *env.Environment, n *ast.DestructiveAssignment) (bool, error) {
	switch n.Lhs.(type) {
	case *ast.VariableValue, *ast.ClassAccess:
	default:
		return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "left side of := must be a variable or field access")
	}
	lchanged, err := TypeNode(e, n.Lhs)
	if err != nil {
		return false, err
	}
	rchanged, err := TypeNode(e, n.Rhs)
	if err != nil {
		return false, err
	}
	progress := lchanged || rchanged
	lt := ast.InferredType(n.Lhs)
	rt := ast.InferredType(n.Rhs)
	if lt == nil || rt == nil {
		return progress, nil
	}
	if !typesystem.Compatible(lt, rt, false) {
		return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, ":= expects %s, got %s", lt.String(), rt.String())
	}
	// A still-Any side is unconstrained, not a genuine alternative; merging
	// it in would freeze the assignment at `T | any` forever.
	_, lAny := lt.(typesystem.Any)
	_, rAny := rt.(typesystem.Any)
	var result typesystem.Type
	switch {
	case lAny:
		result = rt
	case rAny:
		result = lt
	default:
		result = typesystem.Merge(lt, rt)
	}
	return ast.SetInferredType(n, result) || progress, nil
}

// typeInvoke resolves a call by narrowing fn's Alternatives to the ones
// lax-Compatible with every actual argument; 0 matches is
// NoOverloadCandidate, exactly 1 is the call's type, more than 1 is
// narrowed further by exact TypeName equality before failing the same way.
func typeInvoke(e *env.Environment, n *ast.Invoke) (bool, error) {
	changed, err := TypeNode(e, n.Target)
	if err != nil {
		return false, err
	}
	progress := changed
	targetType := ast.InferredType(n.Target)
	if targetType == nil {
		return progress, nil
	}
	if _, isAny := targetType.(typesystem.Any); isAny {
		// Same deferral as typeClassAccess: an invoke target still bound to
		// Any hasn't been guessed yet, not proven uninvokable.
		return progress, nil
	}
	if _, isUnion := targetType.(typesystem.Union); isUnion {
		return progress, nil
	}
	fn, ok := targetType.(*typesystem.Function)
	if !ok {
		return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "cannot invoke non-function %s", targetType.String())
	}

	argTypes := make([]typesystem.Type, len(n.Arguments))
	for i, arg := range n.Arguments {
		achanged, err := TypeNode(e, arg)
		if err != nil {
			return false, err
		}
		progress = progress || achanged
		argTypes[i] = ast.InferredType(arg)
	}
	for _, t := range argTypes {
		if t == nil {
			return progress, nil
		}
	}

	alts := typesystem.Alternatives(fn)
	if len(alts) == 0 {
		alts = []*typesystem.Function{fn}
	}
	if len(alts) > 0 && alts[0].Params.Len() != len(argTypes) {
		return false, diagnostics.New(diagnostics.ArgumentCountMismatch, n.Token, "%q expects %d arguments, got %d", fn.Name, alts[0].Params.Len(), len(argTypes))
	}

	matches := filterAlternatives(alts, argTypes, false)
	if len(matches) == 0 {
		return false, diagnostics.New(diagnostics.NoOverloadCandidate, n.Token, "no overload of %q accepts (%s)", fn.Name, joinTypeNames(argTypes))
	}
	if len(matches) > 1 {
		matches = filterAlternatives(matches, argTypes, true)
		if len(matches) != 1 {
			return false, diagnostics.New(diagnostics.NoOverloadCandidate, n.Token, "ambiguous overload of %q for (%s)", fn.Name, joinTypeNames(argTypes))
		}
	}
	return ast.SetInferredType(n, matches[0].Return) || progress, nil
}

func filterAlternatives(alts []*typesystem.Function, argTypes []typesystem.Type, strict bool) []*typesystem.Function {
	var out []*typesystem.Function
	for _, alt := range alts {
		if alt.Params.Len() != len(argTypes) {
			continue
		}
		ok := true
		for i, name := range alt.Params.Keys() {
			pt, _ := alt.Params.Get(name)
			if strict {
				if pt.TypeName() != argTypes[i].TypeName() {
					ok = false
					break
				}
				continue
			}
			if !typesystem.Compatible(pt, argTypes[i], false) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, alt)
		}
	}
	return out
}

func joinTypeNames(ts []typesystem.Type) string {
	out := ""
	for i, t := range ts {
		if i > 0 {
			out += ", "
		}
		out += t.String()
	}
	return out
}

// typeFunctionDecl types a FunctionDecl's body against a child scope
// carrying its own parameters. The caller is responsible for any extra
// bindings the body should see (the transform schedule installs self/base,
// or @self/@base inside @ctor, before calling this for a method).
//
// An unannotated parameter reads its type from the registered Function
// signature when one exists: that is how a signature narrowed by the guess
// stages reaches the AST Param nodes and the body's scope on the next
// typing round.
func typeFunctionDecl(e *env.Environment, n *ast.FunctionDecl) (bool, error) {
	var registered *typesystem.Function
	if v, ok := e.GetVariable(n.Name); ok {
		registered, _ = v.(*typesystem.Function)
	}
	child := e.Clone()
	for _, p := range n.Params {
		t, err := resolveTypeRef(e, p.TypeRef)
		if err != nil {
			return false, err
		}
		if _, isAny := t.(typesystem.Any); isAny && registered != nil {
			if rt, ok := registered.Params.Get(p.Name); ok {
				t = rt
			}
		}
		ast.SetInferredType(p, t)
		child.SetVariable(p.Name, t)
	}
	if n.Body == nil {
		return false, nil
	}
	changed, err := TypeNode(child, n.Body)
	if err != nil {
		return false, err
	}
	bodyType := ast.InferredType(n.Body)
	if bodyType == nil {
		return changed, nil
	}
	declared, err := resolveTypeRef(e, n.ReturnType)
	if err != nil {
		return false, err
	}
	if _, isAny := declared.(typesystem.Any); !isAny && !typesystem.Compatible(declared, bodyType, false) {
		return false, diagnostics.New(diagnostics.IncompatibleTypes, n.Token, "%q declared to return %s, body produces %s", n.Name, declared.String(), bodyType.String())
	}
	result := declared
	if _, isAny := declared.(typesystem.Any); isAny {
		result = bodyType
	}
	return ast.SetInferredType(n, result) || changed, nil
}
