package semantic

import (
	"github.com/hulklang/sema/internal/ast"
	"github.com/hulklang/sema/internal/diagnostics"
	"github.com/hulklang/sema/internal/env"
	"github.com/hulklang/sema/internal/token"
	"github.com/hulklang/sema/internal/typesystem"
)

// Complain is the final pass: after the transform schedule has run to
// quiescence, no user-visible attribute, function parameter or function
// return may still carry a non-singleton Union: GuessParams (attributes)
// or GuessArguments/ExpandProtocols (function signatures) either narrowed
// it to one concrete member or it genuinely could not be resolved, and the
// latter is a reportable error rather than a silent Any.
func Complain(e *env.Environment, root *ast.Block) error {
	for _, stmt := range root.Stmts {
		switch node := stmt.(type) {
		case *ast.TypeDecl:
			if err := complainType(e, node); err != nil {
				return err
			}
		case *ast.FunctionDecl:
			if err := complainFunction(e, node); err != nil {
				return err
			}
		}
	}
	return nil
}

func complainType(e *env.Environment, node *ast.TypeDecl) error {
	t, ok := e.GetType(node.Name)
	if !ok {
		return nil
	}
	comp, ok := t.(*typesystem.Composite)
	if !ok {
		return nil
	}
	for _, name := range comp.Attributes.Keys() {
		at, _ := comp.Attributes.Get(name)
		if u, ok := at.(typesystem.Union); ok && len(u.Members) > 1 {
			return diagnostics.New(diagnostics.CannotGuessAttribute, node.Token, "attribute %q of %q could not be narrowed to a single type (got %s)", name, node.Name, u.String())
		}
	}
	for _, name := range comp.Methods.Keys() {
		m, _ := comp.Methods.Get(name)
		fn, ok := m.(*typesystem.Function)
		if !ok {
			continue
		}
		if err := complainFunctionType(node.Token, fn); err != nil {
			return err
		}
	}
	return nil
}

func complainFunction(e *env.Environment, node *ast.FunctionDecl) error {
	t, ok := e.GetVariable(node.Name)
	if !ok {
		return nil
	}
	fn, ok := t.(*typesystem.Function)
	if !ok {
		return nil
	}
	return complainFunctionType(node.Token, fn)
}

func complainFunctionType(tok token.Token, fn *typesystem.Function) error {
	for _, name := range fn.Params.Keys() {
		pt, _ := fn.Params.Get(name)
		if u, ok := pt.(typesystem.Union); ok && len(u.Members) > 1 && fn.Overloads == nil {
			return diagnostics.New(diagnostics.CannotGuessAttribute, tok, "parameter %q of %q could not be narrowed to a single type (got %s)", name, fn.Name, u.String())
		}
	}
	return nil
}
