package semantic

import (
	"fmt"
	"sort"

	"github.com/hulklang/sema/internal/ast"
	"github.com/hulklang/sema/internal/diagnostics"
	"github.com/hulklang/sema/internal/env"
	"github.com/hulklang/sema/internal/pipeline"
	"github.com/hulklang/sema/internal/typesystem"
)

// maxTypingIterations bounds every typing-to-quiescence sub-loop the
// schedule runs: monotone narrowing over a finite lattice terminates well
// under this in practice, this is only a backstop against an inference bug
// turning into an infinite loop.
const maxTypingIterations = 256

// Transform runs the rewrite/inference sub-stages (TrimAttributes,
// CollectFunctions, GuessArguments, GuessParams and ExpandProtocols) over
// a fixed schedule, each step followed by a typing pass run to quiescence:
// (1) CollectFunctions + TrimAttributes, (2) CollectFunctions +
// GuessArguments, (3) GuessParams, (4) CollectFunctions + GuessArguments
// again. This order is load-bearing: GuessArguments runs before
// GuessParams so a type's method bodies get a first chance to narrow the
// functions they call, and GuessArguments repeats afterward so calls that
// only type-check once attribute types are settled still get narrowed.
// ExpandProtocols runs as a final step after the rest have quiesced.
func Transform(e *env.Environment, root *ast.Block) (int, error) {
	pl := pipeline.New(
		collectFunctionsStage{}, trimStage{}, typingStage{},
		collectFunctionsStage{}, guessArgumentsStage{}, typingStage{},
		guessParamsStage{}, typingStage{},
		collectFunctionsStage{}, guessArgumentsStage{}, typingStage{},
		expandProtocolsStage{}, typingStage{},
	)
	ctx := pl.Run(&pipeline.Context{Root: root, Env: e})
	return ctx.Progress, ctx.Err
}

type trimStage struct{}

func (trimStage) Process(ctx *pipeline.Context) *pipeline.Context {
	if err := TrimAttributes(ctx.Root); err != nil {
		ctx.Err = err
	}
	return ctx
}

type collectFunctionsStage struct{}

func (collectFunctionsStage) Process(ctx *pipeline.Context) *pipeline.Context {
	if err := CollectFunctions(ctx.Env, ctx.Root); err != nil {
		ctx.Err = err
	}
	return ctx
}

type guessParamsStage struct{}

func (guessParamsStage) Process(ctx *pipeline.Context) *pipeline.Context {
	if _, err := GuessParams(ctx.Env, ctx.Root); err != nil {
		ctx.Err = err
	}
	return ctx
}

type guessArgumentsStage struct{}

func (guessArgumentsStage) Process(ctx *pipeline.Context) *pipeline.Context {
	if _, err := GuessArguments(ctx.Env, ctx.Root); err != nil {
		ctx.Err = err
	}
	return ctx
}

type expandProtocolsStage struct{}

func (expandProtocolsStage) Process(ctx *pipeline.Context) *pipeline.Context {
	if _, err := ExpandProtocols(ctx.Env, ctx.Root); err != nil {
		ctx.Err = err
	}
	return ctx
}

// typingStage re-walks every declaration's body until a round makes no
// progress, accumulating the count onto ctx.Progress. The count only ever
// grows, never resets, across the whole schedule.
type typingStage struct{}

func (typingStage) Process(ctx *pipeline.Context) *pipeline.Context {
	for i := 0; i < maxTypingIterations; i++ {
		changed, err := walkBlockDecls(ctx.Env, ctx.Root)
		if err != nil {
			ctx.Err = err
			return ctx
		}
		ctx.Progress += changed
		if changed == 0 {
			break
		}
	}
	return ctx
}

// walkBlockDecls types every top-level statement once: plain expressions
// through TypeNode directly, FunctionDecls through TypeNode (which clones
// a param scope itself), and TypeDecl bodies through walkTypeDecl, which
// additionally binds self/base (or @self/@base inside @ctor). ProtocolDecl
// bodies carry no executable code, only signatures collect already
// resolved, so they are never walked.
func walkBlockDecls(e *env.Environment, b *ast.Block) (int, error) {
	count := 0
	for _, stmt := range b.Stmts {
		switch node := stmt.(type) {
		case *ast.TypeDecl:
			c, err := walkTypeDecl(e, node)
			if err != nil {
				return 0, err
			}
			count += c
		case *ast.ProtocolDecl:
			continue
		default:
			changed, err := TypeNode(e, stmt)
			if err != nil {
				return 0, err
			}
			if changed {
				count++
			}
			if fd, ok := stmt.(*ast.FunctionDecl); ok {
				if v, ok := e.GetVariable(fd.Name); ok {
					syncReturn(v, fd)
				}
			}
		}
	}
	return count, nil
}

func walkTypeDecl(e *env.Environment, node *ast.TypeDecl) (int, error) {
	t, ok := e.GetType(node.Name)
	if !ok {
		return 0, nil
	}
	comp, ok := t.(*typesystem.Composite)
	if !ok {
		return 0, nil
	}
	methodEnv := e.Clone()
	exposeMembers(methodEnv, comp)
	methodEnv.SetVariable(ast.SelfName, comp)
	base := typesystem.Type(typesystem.Any{})
	if comp.Parent != nil {
		base = comp.Parent
	}
	methodEnv.SetVariable(ast.BaseName, base)

	ctorEnv := e.Clone()
	exposeMembers(ctorEnv, comp)
	ctorEnv.SetVariable(ast.CtorSelfName, comp)
	ctorEnv.SetVariable(ast.CtorBaseName, base)

	count := 0
	for _, stmt := range node.Body.Stmts {
		fd, ok := stmt.(*ast.FunctionDecl)
		if !ok {
			continue
		}
		scope := methodEnv
		if fd.Name == ast.CtorName {
			scope = ctorEnv
		}
		changed, err := TypeNode(scope, fd)
		if err != nil {
			return 0, err
		}
		if changed {
			count++
		}
		if m, ok := comp.Methods.Get(fd.Name); ok {
			syncReturn(m, fd)
		}
	}
	return count, nil
}

// syncReturn writes fd's body-inferred return type back onto the Function
// signature callers actually resolve through (ClassAccess/Invoke read
// comp.Methods or the variable scope, never the FunctionDecl node itself).
// A declared return annotation or an already-guessed Overloads set is left
// alone: recomputing it here would mean recomputing it against whatever
// Any-defaulted param types an unguessed FunctionDecl still carries, which
// would clobber a correct guessed signature with Any.
func syncReturn(target typesystem.Type, fd *ast.FunctionDecl) {
	if fd.Name == ast.CtorName {
		return
	}
	fn, ok := target.(*typesystem.Function)
	if !ok || fn.Overloads != nil {
		return
	}
	t := ast.InferredType(fd)
	if t == nil {
		return
	}
	if _, isAny := t.(typesystem.Any); isAny {
		return
	}
	fn.Return = t
}

// exposeMembers binds every attribute and method comp declares or inherits
// into scope under its bare (unqualified) name, ancestor-first so a
// subclass's own member shadows an inherited one of the same name. A type
// body sees its members without going through self.
func exposeMembers(scope *env.Environment, comp *typesystem.Composite) {
	if comp == nil {
		return
	}
	exposeMembers(scope, comp.Parent)
	for _, name := range comp.Attributes.Keys() {
		t, _ := comp.Attributes.Get(name)
		scope.SetVariable(name, t)
	}
	for _, name := range comp.Methods.Keys() {
		t, _ := comp.Methods.Get(name)
		scope.SetVariable(name, t)
	}
}

// TrimAttributes rewrites each TypeDecl body's top-level VarParam ("field
// with default", e.g. `x: number = 0`) into a plain Param plus a
// synthetic `@self.x := <default>` assignment inserted just before the
// final statement of @ctor's body, synthesizing an empty @ctor if the
// type declared none. After this runs,
// a VarParam anywhere in a TypeDecl body no longer exists, only inside a
// Let, where it keeps its original per-binding-initializer meaning.
func TrimAttributes(root *ast.Block) error {
	return trimBlockTypes(root)
}

func trimBlockTypes(b *ast.Block) error {
	for _, stmt := range b.Stmts {
		if node, ok := stmt.(*ast.TypeDecl); ok {
			if err := trimTypeDecl(node); err != nil {
				return err
			}
		}
	}
	return nil
}

func trimTypeDecl(node *ast.TypeDecl) error {
	var ctor *ast.FunctionDecl
	for _, stmt := range node.Body.Stmts {
		if fd, ok := stmt.(*ast.FunctionDecl); ok && fd.Name == ast.CtorName {
			ctor = fd
		}
	}
	if ctor == nil {
		ctor = &ast.FunctionDecl{Token: node.Token, Name: ast.CtorName, Body: &ast.Block{Token: node.Token}}
		node.Body.Stmts = append(node.Body.Stmts, ctor)
	}
	ctorBody, ok := ctor.Body.(*ast.Block)
	if !ok {
		ctorBody = &ast.Block{Token: ctor.Token}
		ctor.Body = ctorBody
	}

	// An initially empty ctor body has no trailing expression to keep last,
	// so its assignments are appended to stay in declaration order.
	appendOnly := len(ctorBody.Stmts) == 0
	for i, stmt := range node.Body.Stmts {
		vp, ok := stmt.(*ast.VarParam)
		if !ok {
			continue
		}
		node.Body.Stmts[i] = &ast.Param{Token: vp.Token, Name: vp.Name, TypeRef: vp.TypeRef}
		assign := &ast.DestructiveAssignment{
			Token: vp.Token,
			Lhs: &ast.ClassAccess{
				Token: vp.Token,
				Base:  &ast.VariableValue{Token: vp.Token, Name: ast.CtorSelfName},
				Field: vp.Name,
			},
			Rhs: vp.Value,
		}
		if appendOnly {
			ctorBody.Stmts = append(ctorBody.Stmts, assign)
		} else {
			ctorBody.Stmts = insertBeforeLast(ctorBody.Stmts, assign)
		}
	}
	return trimBlockTypes(node.Body)
}

// insertBeforeLast places stmt just before the slice's current final
// statement, so a constructor's own trailing expression stays last while
// field-default assignments accumulate ahead of it in declaration order.
// An empty body just takes the statement.
func insertBeforeLast(stmts []ast.Node, stmt ast.Node) []ast.Node {
	if len(stmts) == 0 {
		return []ast.Node{stmt}
	}
	stmts = append(stmts, nil)
	stmts[len(stmts)-1] = stmts[len(stmts)-2]
	stmts[len(stmts)-2] = stmt
	return stmts
}

// CollectFunctions re-registers any FunctionDecl newly introduced since the
// initial Collect pass ran (in practice just the @ctor TrimAttributes may
// have synthesized) into its owning Composite's Methods. User-declared
// methods are left untouched (already registered).
func CollectFunctions(e *env.Environment, root *ast.Block) error {
	return recollectTypeMethods(e, root, nil)
}

func recollectTypeMethods(e *env.Environment, b *ast.Block, path []string) error {
	for _, stmt := range b.Stmts {
		node, ok := stmt.(*ast.TypeDecl)
		if !ok {
			continue
		}
		qualified := qualify(path, node.Name)
		t, ok := e.GetType(qualified)
		if !ok {
			continue
		}
		comp, ok := t.(*typesystem.Composite)
		if !ok {
			continue
		}
		for _, s := range node.Body.Stmts {
			fd, ok := s.(*ast.FunctionDecl)
			if !ok {
				continue
			}
			if _, exists := comp.Methods.Get(fd.Name); exists {
				continue
			}
			fn := typesystem.NewFunction(fd.Name)
			for _, p := range fd.Params {
				pt, err := resolveTypeRef(e, p.TypeRef)
				if err != nil {
					return err
				}
				fn.Params.Set(p.Name, pt)
			}
			rt, err := resolveTypeRef(e, fd.ReturnType)
			if err != nil {
				return err
			}
			fn.Return = rt
			comp.Methods.Set(fd.Name, fn)
		}
		if err := recollectTypeMethods(e, node.Body, extendPath(path, node.Name)); err != nil {
			return err
		}
	}
	return nil
}

// GuessArguments narrows function signatures two ways: a cheap direct
// narrowing of a still-Any declared parameter from the concrete type a
// call site actually passes, followed by, for every top-level
// FunctionDecl that still has at least one unannotated Param,
// trial-checking its body against the Cartesian product of candidateTypes
// and keeping the combinations under which it actually type-checks. Each
// surviving combination becomes one entry of the Function's Overloads
// (used by Alternatives at call sites); the canonical Params/Return is
// their per-axis Merge. A function with zero surviving combinations cannot
// be given a signature at all (CannotGuessSignature).
func GuessArguments(e *env.Environment, root *ast.Block) (bool, error) {
	progress, err := narrowCallSiteArguments(e, root)
	if err != nil {
		return false, err
	}
	for _, stmt := range root.Stmts {
		fd, ok := stmt.(*ast.FunctionDecl)
		if !ok {
			continue
		}
		changed, err := guessArgumentsFor(e, fd)
		if err != nil {
			return false, err
		}
		progress = progress || changed
	}
	return progress, nil
}

func guessArgumentsFor(e *env.Environment, fd *ast.FunctionDecl) (bool, error) {
	if !hasUntypedParam(fd) {
		return false, nil
	}
	merged, err := inferFunctionSignature(e, fd)
	if err != nil {
		return false, err
	}

	real, ok := e.GetVariable(fd.Name)
	fn, ok2 := real.(*typesystem.Function)
	if !ok || !ok2 {
		return false, nil
	}
	changed := fn.String() != merged.String()
	fn.Params = merged.Params
	fn.Return = merged.Return
	fn.Overloads = merged.Overloads
	return changed, nil
}

func hasUntypedParam(fd *ast.FunctionDecl) bool {
	for _, p := range fd.Params {
		if p.TypeRef == nil {
			return true
		}
	}
	return false
}

// inferFunctionSignature trial-checks fd's body against the Cartesian
// product of its still-untyped parameter axes (candidateTypes), keeping
// every combination under which the body actually type-checks, and merges
// the survivors into one canonical signature carrying the precise set as
// Overloads, or reports CannotGuessSignature when none survive. With no
// untyped parameter it degrades to a single trialFunctionDecl call, which
// still runs the body through a DeepClone so a let-bound function
// literal's own still-mutable AST is never left contaminated by a
// half-finished trial.
//
// guessArgumentsFor calls this for a top-level FunctionDecl; typeVarParam
// calls it directly for a let-bound function literal, which the top-level
// transform schedule never visits on its own (GuessArguments/GuessParams
// only walk root.Stmts) but which still needs its axis narrowed before an
// Invoke on the bound name can select among its signatures.
func inferFunctionSignature(e *env.Environment, fd *ast.FunctionDecl) (*typesystem.Function, error) {
	var untypedIdx []int
	for i, p := range fd.Params {
		if p.TypeRef == nil {
			untypedIdx = append(untypedIdx, i)
		}
	}
	if len(untypedIdx) == 0 {
		paramTypes, err := fullParamTypes(e, fd, nil, nil)
		if err != nil {
			return nil, err
		}
		return trialFunctionDecl(e, fd, paramTypes)
	}

	cands := candidateTypes(e)
	var working []*typesystem.Function
	for _, combo := range cartesianTypes(cands, len(untypedIdx)) {
		paramTypes, err := fullParamTypes(e, fd, untypedIdx, combo)
		if err != nil {
			return nil, err
		}
		fn, trialErr := trialFunctionDecl(e, fd, paramTypes)
		if trialErr == nil {
			working = append(working, fn)
		}
	}
	if len(working) == 0 {
		return nil, diagnostics.New(diagnostics.CannotGuessSignature, fd.Token, "cannot guess a signature for %q", fd.Name)
	}
	merged := mergeFunctions(working)
	merged.Overloads = working
	return merged, nil
}

// GuessParams narrows attribute types: for each top-level TypeDecl with at
// least one attribute still typed Any, form the Cartesian product of
// candidateTypes over exactly those attributes, trial-check the whole type
// body (every method, plus the constructor TrimAttributes already rewrote)
// under each combination, and narrow each attribute to the Merge of the
// candidates under which the body type-checked. An attribute with zero
// surviving candidates cannot be given a type at all
// (CannotGuessAttribute); GuessArguments' trial-and-narrow loop
// generalized to the attribute axis.
func GuessParams(e *env.Environment, root *ast.Block) (bool, error) {
	progress := false
	for _, stmt := range root.Stmts {
		td, ok := stmt.(*ast.TypeDecl)
		if !ok {
			continue
		}
		changed, err := guessParamsForType(e, td)
		if err != nil {
			return false, err
		}
		progress = progress || changed
	}
	return progress, nil
}

func guessParamsForType(e *env.Environment, td *ast.TypeDecl) (bool, error) {
	t, ok := e.GetType(td.Name)
	if !ok {
		return false, nil
	}
	comp, ok := t.(*typesystem.Composite)
	if !ok {
		return false, nil
	}

	var untyped []string
	for _, name := range comp.Attributes.Keys() {
		at, _ := comp.Attributes.Get(name)
		if _, isAny := at.(typesystem.Any); isAny {
			untyped = append(untyped, name)
		}
	}
	if len(untyped) == 0 {
		return false, nil
	}

	cands := candidateTypes(e)
	successes := make(map[string][]typesystem.Type, len(untyped))
	for _, combo := range cartesianTypes(cands, len(untyped)) {
		attrs := make(map[string]typesystem.Type, len(untyped))
		for i, name := range untyped {
			attrs[name] = combo[i]
		}
		if trialTypeDecl(e, td, attrs) {
			for i, name := range untyped {
				successes[name] = append(successes[name], combo[i])
			}
		}
	}

	changed := false
	for _, name := range untyped {
		ts := successes[name]
		if len(ts) == 0 {
			return false, diagnostics.New(diagnostics.CannotGuessAttribute, td.Token, "cannot guess attribute %q of %q", name, td.Name)
		}
		merged := ts[0]
		for _, mt := range ts[1:] {
			merged = typesystem.Merge(merged, mt)
		}
		comp.Attributes.Set(name, merged)
		changed = true
	}
	return changed, nil
}

// trialTypeDecl type-checks every method (plus, through TrimAttributes'
// rewrite, the constructor) of td against a DeepClone of e with comp's
// attributes hypothetically set to attrs, the same self/base (or
// @self/@base inside @ctor) aliasing walkTypeDecl installs for the real
// typing pass, and the same DeepClone isolation trialFunctionDecl relies
// on: a failing combination never contaminates the live environment, and
// any trial error (always a *diagnostics.SemanticError in this codebase,
// never a panic) is simply the signal that the combination does not
// type-check.
func trialTypeDecl(e *env.Environment, td *ast.TypeDecl, attrs map[string]typesystem.Type) bool {
	child := e.DeepClone()
	t, ok := child.GetType(td.Name)
	if !ok {
		return false
	}
	comp, ok := t.(*typesystem.Composite)
	if !ok {
		return false
	}
	for name, at := range attrs {
		comp.Attributes.Set(name, at)
	}

	methodEnv := child.Clone()
	exposeMembers(methodEnv, comp)
	methodEnv.SetVariable(ast.SelfName, comp)
	base := typesystem.Type(typesystem.Any{})
	if comp.Parent != nil {
		base = comp.Parent
	}
	methodEnv.SetVariable(ast.BaseName, base)

	ctorEnv := child.Clone()
	exposeMembers(ctorEnv, comp)
	ctorEnv.SetVariable(ast.CtorSelfName, comp)
	ctorEnv.SetVariable(ast.CtorBaseName, base)

	for _, stmt := range td.Body.Stmts {
		fd, ok := stmt.(*ast.FunctionDecl)
		if !ok {
			continue
		}
		scope := methodEnv
		if fd.Name == ast.CtorName {
			scope = ctorEnv
		}
		for i := 0; i < maxTypingIterations; i++ {
			changed, err := TypeNode(scope, fd)
			if err != nil {
				return false
			}
			if !changed {
				break
			}
		}
	}
	return true
}

// candidateTypes is the fixed set GuessParams/GuessArguments trial-check
// an unannotated position against: the three Simple atoms plus every
// Composite/Protocol in the type registry, the built-in object, iterable
// and printable included.
func candidateTypes(e *env.Environment) []typesystem.Type {
	cands := []typesystem.Type{typesystem.Boolean, typesystem.Number, typesystem.String}
	for _, name := range e.TypeNames() {
		t, _ := e.GetType(name)
		switch t.(type) {
		case *typesystem.Composite, *typesystem.Protocol:
			cands = append(cands, t)
		}
	}
	return cands
}

func cartesianTypes(cands []typesystem.Type, n int) [][]typesystem.Type {
	if n == 0 {
		return [][]typesystem.Type{{}}
	}
	rest := cartesianTypes(cands, n-1)
	out := make([][]typesystem.Type, 0, len(rest)*len(cands))
	for _, r := range rest {
		for _, c := range cands {
			combo := make([]typesystem.Type, 0, n)
			combo = append(combo, c)
			combo = append(combo, r...)
			out = append(out, combo)
		}
	}
	return out
}

func fullParamTypes(e *env.Environment, fd *ast.FunctionDecl, untypedIdx []int, combo []typesystem.Type) ([]typesystem.Type, error) {
	out := make([]typesystem.Type, len(fd.Params))
	ci := 0
	for i, p := range fd.Params {
		if ci < len(untypedIdx) && untypedIdx[ci] == i {
			out[i] = combo[ci]
			ci++
			continue
		}
		t, err := resolveTypeRef(e, p.TypeRef)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// trialFunctionDecl types fd.Body in a scope seeded with paramTypes,
// against a DeepClone of e so a failed trial never contaminates the live
// environment. It does not protect the AST's own mutable
// Type fields the same way: TypeNode always overwrites them
// unconditionally from a clean slate, so a later trial (or the real
// commit pass that runs right after GuessParams/GuessArguments) simply
// clobbers whatever a previous trial left behind; only the typing-pass
// progress *count* could undercount by one across that residue, never
// correctness.
func trialFunctionDecl(e *env.Environment, fd *ast.FunctionDecl, paramTypes []typesystem.Type) (*typesystem.Function, error) {
	child := e.DeepClone()
	for i, p := range fd.Params {
		child.SetVariable(p.Name, paramTypes[i])
	}
	if fd.Body == nil {
		return &typesystem.Function{Name: fd.Name, Params: paramsFrom(fd, paramTypes), Return: typesystem.Any{}}, nil
	}
	for i := 0; i < maxTypingIterations; i++ {
		changed, err := TypeNode(child, fd.Body)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
	}
	bodyType := ast.InferredType(fd.Body)
	if bodyType == nil {
		bodyType = typesystem.Any{}
	}
	declared, err := resolveTypeRef(e, fd.ReturnType)
	if err != nil {
		return nil, err
	}
	if _, isAny := declared.(typesystem.Any); !isAny {
		if !typesystem.Compatible(declared, bodyType, false) {
			return nil, diagnostics.New(diagnostics.IncompatibleTypes, fd.Token, "%q body produces %s, declared %s", fd.Name, bodyType.String(), declared.String())
		}
		bodyType = declared
	}
	return &typesystem.Function{Name: fd.Name, Params: paramsFrom(fd, paramTypes), Return: bodyType}, nil
}

func paramsFrom(fd *ast.FunctionDecl, paramTypes []typesystem.Type) *typesystem.OrderedFields {
	out := typesystem.NewOrderedFields()
	for i, p := range fd.Params {
		out.Set(p.Name, paramTypes[i])
	}
	return out
}

func mergeFunctions(fns []*typesystem.Function) *typesystem.Function {
	out := typesystem.NewFunction(fns[0].Name)
	for _, k := range fns[0].Params.Keys() {
		var merged typesystem.Type
		for _, fn := range fns {
			t, _ := fn.Params.Get(k)
			if merged == nil {
				merged = t
			} else {
				merged = typesystem.Merge(merged, t)
			}
		}
		out.Params.Set(k, merged)
	}
	var ret typesystem.Type
	for _, fn := range fns {
		if ret == nil {
			ret = fn.Return
		} else {
			ret = typesystem.Merge(ret, fn.Return)
		}
	}
	out.Return = ret
	return out
}

// narrowCallSiteArguments narrows a still-Any declared parameter by looking
// at the concrete argument type every call site actually passes: the
// inverse direction from guessArgumentsFor's trial search, and cheap
// enough to run as a single linear scan before it.
func narrowCallSiteArguments(e *env.Environment, root *ast.Block) (bool, error) {
	progress := false
	var invokes []*ast.Invoke
	walk(root, func(n ast.Node) {
		if inv, ok := n.(*ast.Invoke); ok {
			invokes = append(invokes, inv)
		}
	})
	for _, inv := range invokes {
		vv, ok := inv.Target.(*ast.VariableValue)
		if !ok {
			continue
		}
		t, ok := e.GetVariable(vv.Name)
		if !ok {
			continue
		}
		fn, ok := t.(*typesystem.Function)
		if !ok || fn.Params.Len() != len(inv.Arguments) {
			continue
		}
		for i, name := range fn.Params.Keys() {
			cur, _ := fn.Params.Get(name)
			if _, isAny := cur.(typesystem.Any); !isAny {
				continue
			}
			argType := ast.InferredType(inv.Arguments[i])
			if argType == nil {
				continue
			}
			if _, argIsAny := argType.(typesystem.Any); argIsAny {
				continue
			}
			fn.Params.Set(name, argType)
			progress = true
		}
	}
	return progress, nil
}

// ExpandProtocols synthesizes a structural Protocol for any top-level
// function parameter still typed Any once GuessParams/GuessArguments have
// run, from how that parameter's own body actually uses it: every `.field`
// read becomes a required attribute, every `.field(...)` call becomes a
// required method of that arity. A parameter never accessed through the
// dot operator stays Any; nothing to expand.
func ExpandProtocols(e *env.Environment, root *ast.Block) (bool, error) {
	progress := false
	for _, stmt := range root.Stmts {
		fd, ok := stmt.(*ast.FunctionDecl)
		if !ok {
			continue
		}
		t, ok := e.GetVariable(fd.Name)
		fn, ok2 := t.(*typesystem.Function)
		if !ok || !ok2 {
			continue
		}
		for _, p := range fd.Params {
			cur, _ := fn.Params.Get(p.Name)
			if _, isAny := cur.(typesystem.Any); !isAny {
				continue
			}
			proto := inferProtocolForParam(e, fd, p.Name)
			if proto == nil {
				continue
			}
			fn.Params.Set(p.Name, proto)
			progress = true
		}
	}
	return progress, nil
}

func inferProtocolForParam(e *env.Environment, fd *ast.FunctionDecl, name string) *typesystem.Protocol {
	methodArgCounts := map[string]int{}
	walk(fd.Body, func(n ast.Node) {
		inv, ok := n.(*ast.Invoke)
		if !ok {
			return
		}
		ca, ok := inv.Target.(*ast.ClassAccess)
		if !ok {
			return
		}
		vv, ok := ca.Base.(*ast.VariableValue)
		if !ok || vv.Name != name {
			return
		}
		methodArgCounts[ca.Field] = len(inv.Arguments)
	})
	attrNames := map[string]bool{}
	walk(fd.Body, func(n ast.Node) {
		ca, ok := n.(*ast.ClassAccess)
		if !ok {
			return
		}
		vv, ok := ca.Base.(*ast.VariableValue)
		if !ok || vv.Name != name {
			return
		}
		if _, isMethod := methodArgCounts[ca.Field]; isMethod {
			return
		}
		attrNames[ca.Field] = true
	})
	if len(methodArgCounts) == 0 && len(attrNames) == 0 {
		return nil
	}

	attrs := typesystem.NewOrderedFields()
	for _, field := range sortedKeys(attrNames) {
		attrs.Set(field, typesystem.Any{})
	}
	methods := typesystem.NewOrderedFields()
	for _, field := range sortedIntKeys(methodArgCounts) {
		params := typesystem.NewOrderedFields()
		for i := 0; i < methodArgCounts[field]; i++ {
			params.Set(fmt.Sprintf("p%d", i), typesystem.Any{})
		}
		methods.Set(field, &typesystem.Function{Name: field, Params: params, Return: typesystem.Any{}})
	}

	proto := typesystem.NewProtocol("$" + fd.Name + "$" + name)
	proto.Attributes = attrs
	proto.Methods = methods
	e.SetType(proto.Name, proto)
	return proto
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedIntKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// walk visits n and every Node it structurally contains, depth-first. It
// is the one generic tree traversal the transform sub-stages share, since
// each needs a different subset of node kinds and a different visit
// action rather than a fixed per-kind callback set.
func walk(n ast.Node, visit func(ast.Node)) {
	if n == nil {
		return
	}
	visit(n)
	switch v := n.(type) {
	case *ast.Block:
		for _, s := range v.Stmts {
			walk(s, visit)
		}
	case *ast.Conditional:
		walk(v.Condition, visit)
		walk(v.Then, visit)
		if v.Else != nil {
			walk(v.Else, visit)
		}
	case *ast.While:
		walk(v.Condition, visit)
		walk(v.Body, visit)
	case *ast.Let:
		for _, p := range v.Params {
			walk(p, visit)
		}
		walk(v.Body, visit)
	case *ast.BinaryOperator:
		walk(v.Left, visit)
		walk(v.Right, visit)
	case *ast.UnaryOperator:
		walk(v.Argument, visit)
	case *ast.ClassAccess:
		walk(v.Base, visit)
	case *ast.DestructiveAssignment:
		walk(v.Lhs, visit)
		walk(v.Rhs, visit)
	case *ast.Invoke:
		walk(v.Target, visit)
		for _, a := range v.Arguments {
			walk(a, visit)
		}
	case *ast.NewValue:
		for _, a := range v.Arguments {
			walk(a, visit)
		}
	case *ast.VarParam:
		walk(v.Value, visit)
	case *ast.FunctionDecl:
		for _, p := range v.Params {
			walk(p, visit)
		}
		if v.Body != nil {
			walk(v.Body, visit)
		}
	case *ast.TypeDecl:
		walk(v.Body, visit)
	case *ast.ProtocolDecl:
		walk(v.Body, visit)
	}
}
