package semantic

import (
	"github.com/hulklang/sema/internal/ast"
	"github.com/hulklang/sema/internal/diagnostics"
	"github.com/hulklang/sema/internal/env"
	"github.com/hulklang/sema/internal/token"
	"github.com/hulklang/sema/internal/typesystem"
)

// collectStage is one of the two walks Collect runs over the whole
// program: the first introduces stub names, the second resolves and
// populates them.
type collectStage int

const (
	stageCollect collectStage = iota
	stageLink
)

// members accumulates a type or protocol body's Param/VarParam attributes
// and FunctionDecl methods while the link stage recurses through it; the
// enclosing TypeDecl/ProtocolDecl then assigns it wholesale to the
// composite's Attributes/Methods.
type members struct {
	attrs   *typesystem.OrderedFields
	methods *typesystem.OrderedFields
}

// Collect runs the collect stage then the link stage over root, installing
// every user-declared function, type and protocol into e.
func Collect(e *env.Environment, root *ast.Block) error {
	if err := collectBlock(e, stageCollect, root, nil, nil); err != nil {
		return err
	}
	return collectBlock(e, stageLink, root, nil, nil)
}

func collectBlock(e *env.Environment, stage collectStage, b *ast.Block, path []string, into *members) error {
	for _, stmt := range b.Stmts {
		if err := collectNode(e, stage, stmt, path, into); err != nil {
			return err
		}
	}
	return nil
}

// collectNode dispatches on node kind. Only declaration-bearing forms
// (Block, FunctionDecl, Let's params, Param/VarParam, TypeDecl,
// ProtocolDecl) carry names the collect pass cares about; every other
// expression kind is a no-op here: it has nothing to declare, and walking
// into it would just duplicate work the typing pass already does
// exhaustively.
func collectNode(e *env.Environment, stage collectStage, n ast.Node, path []string, into *members) error {
	switch node := n.(type) {
	case *ast.Block:
		return collectBlock(e, stage, node, path, into)
	case *ast.FunctionDecl:
		return collectFunction(e, stage, node, path, into)
	case *ast.Let:
		// Let-bound names are scoped to its Body, not to any enclosing
		// type/protocol, so they never become attributes (into is nil here
		// regardless of caller context).
		for _, p := range node.Params {
			if err := collectAttr(e, stage, p.Token, p.Name, p.TypeRef, nil); err != nil {
				return err
			}
		}
		return nil
	case *ast.Param:
		return collectAttr(e, stage, node.Token, node.Name, node.TypeRef, into)
	case *ast.VarParam:
		return collectAttr(e, stage, node.Token, node.Name, node.TypeRef, into)
	case *ast.TypeDecl:
		return collectType(e, stage, node, path)
	case *ast.ProtocolDecl:
		return collectProtocol(e, stage, node, path)
	default:
		return nil
	}
}

func collectFunction(e *env.Environment, stage collectStage, node *ast.FunctionDecl, path []string, into *members) error {
	qualified := qualify(path, node.Name)
	switch stage {
	case stageCollect:
		if _, ok := e.GetVariable(qualified); ok {
			return diagnostics.New(diagnostics.Redefinition, node.Token, "function %q already declared", qualified)
		}
		e.SetVariable(qualified, typesystem.NewFunction(node.Name))
		return nil
	case stageLink:
		t, _ := e.GetVariable(qualified)
		fn, _ := t.(*typesystem.Function)
		if fn == nil {
			return diagnostics.New(diagnostics.UnknownVariable, node.Token, "function %q was not collected", qualified)
		}
		seen := make(map[string]bool, len(node.Params))
		for _, p := range node.Params {
			if seen[p.Name] {
				return diagnostics.New(diagnostics.DuplicateParameterName, p.Token, "duplicate parameter %q in %q", p.Name, qualified)
			}
			seen[p.Name] = true
			pt, err := resolveTypeRef(e, p.TypeRef)
			if err != nil {
				return err
			}
			fn.Params.Set(p.Name, pt)
		}
		rt, err := resolveTypeRef(e, node.ReturnType)
		if err != nil {
			return err
		}
		fn.Return = rt
		if into != nil {
			into.methods.Set(node.Name, fn)
		}
		return nil
	}
	return nil
}

// collectAttr registers a single type/protocol-header field (whether
// written as a bare Param or a VarParam with a default) into the
// enclosing members accumulator. Outside a type/protocol body (into ==
// nil, e.g. a Let binding or a free FunctionDecl's parameter) there is no
// attribute map to populate; the typing pass handles those names
// directly off the AST instead.
func collectAttr(e *env.Environment, stage collectStage, tok token.Token, name string, ref *ast.TypeRef, into *members) error {
	if stage != stageLink || into == nil {
		return nil
	}
	if _, ok := into.attrs.Get(name); ok {
		return diagnostics.New(diagnostics.Redefinition, tok, "attribute %q already declared", name)
	}
	t, err := resolveTypeRef(e, ref)
	if err != nil {
		return err
	}
	into.attrs.Set(name, t)
	return nil
}

func collectType(e *env.Environment, stage collectStage, node *ast.TypeDecl, path []string) error {
	qualified := qualify(path, node.Name)
	childPath := extendPath(path, node.Name)
	switch stage {
	case stageCollect:
		if _, ok := e.GetType(qualified); ok {
			return diagnostics.New(diagnostics.Redefinition, node.Token, "type %q already declared", qualified)
		}
		e.SetType(qualified, typesystem.NewComposite(qualified))
		return collectBlock(e, stage, node.Body, childPath, nil)
	case stageLink:
		t, _ := e.GetType(qualified)
		comp, _ := t.(*typesystem.Composite)
		if comp == nil {
			return diagnostics.New(diagnostics.UnknownType, node.Token, "type %q was not collected", qualified)
		}
		parentName := "object"
		if node.Parent != nil {
			parentName = node.Parent.Name
		}
		parentType, ok := e.GetType(parentName)
		if !ok {
			return diagnostics.New(diagnostics.UnknownType, node.Token, "unknown parent type %q", parentName)
		}
		parentComposite, ok := parentType.(*typesystem.Composite)
		if !ok {
			return diagnostics.New(diagnostics.ProtocolParentMismatch, node.Token, "type %q cannot inherit from non-composite %q", node.Name, parentName)
		}
		if comp.Circular(parentComposite) {
			return diagnostics.New(diagnostics.CyclicInheritance, node.Token, "cyclic inheritance detected at %q", qualified)
		}
		comp.Parent = parentComposite

		mem := &members{attrs: typesystem.NewOrderedFields(), methods: typesystem.NewOrderedFields()}
		if err := collectBlock(e, stage, node.Body, childPath, mem); err != nil {
			return err
		}
		comp.Attributes = mem.attrs
		comp.Methods = mem.methods
		return nil
	}
	return nil
}

func collectProtocol(e *env.Environment, stage collectStage, node *ast.ProtocolDecl, path []string) error {
	qualified := qualify(path, node.Name)
	childPath := extendPath(path, node.Name)
	switch stage {
	case stageCollect:
		if _, ok := e.GetType(qualified); ok {
			return diagnostics.New(diagnostics.Redefinition, node.Token, "protocol %q already declared", qualified)
		}
		e.SetType(qualified, typesystem.NewProtocol(qualified))
		return collectBlock(e, stage, node.Body, childPath, nil)
	case stageLink:
		t, _ := e.GetType(qualified)
		proto, _ := t.(*typesystem.Protocol)
		if proto == nil {
			return diagnostics.New(diagnostics.UnknownType, node.Token, "protocol %q was not collected", qualified)
		}
		if node.Parent != nil {
			parentType, ok := e.GetType(node.Parent.Name)
			if !ok {
				return diagnostics.New(diagnostics.UnknownType, node.Token, "unknown parent protocol %q", node.Parent.Name)
			}
			parentProtocol, ok := parentType.(*typesystem.Protocol)
			if !ok {
				return diagnostics.New(diagnostics.ProtocolParentMismatch, node.Token, "protocol %q cannot extend non-protocol %q", node.Name, node.Parent.Name)
			}
			proto.Parent = parentProtocol
		}

		mem := &members{attrs: typesystem.NewOrderedFields(), methods: typesystem.NewOrderedFields()}
		if err := collectBlock(e, stage, node.Body, childPath, mem); err != nil {
			return err
		}
		proto.Attributes = mem.attrs
		proto.Methods = mem.methods
		return nil
	}
	return nil
}

// resolveTypeRef resolves an (optional) AST type reference against the
// registry, defaulting to Any when unannotated.
func resolveTypeRef(e *env.Environment, ref *ast.TypeRef) (typesystem.Type, error) {
	if ref == nil {
		return typesystem.Any{}, nil
	}
	t, ok := e.GetType(ref.Name)
	if !ok {
		return nil, diagnostics.New(diagnostics.UnknownType, ref.Token, "unknown type %q", ref.Name)
	}
	return t, nil
}
