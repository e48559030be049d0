package semantic

import (
	"testing"

	"github.com/hulklang/sema/internal/ast"
	"github.com/hulklang/sema/internal/diagnostics"
	"github.com/hulklang/sema/internal/typesystem"
)

func TestComplainRejectsNonSingleUnionAttribute(t *testing.T) {
	e := NewPrelude()
	comp := typesystem.NewComposite("Ambiguous")
	comp.Attributes.Set("x", typesystem.MakeUnion(typesystem.Number, typesystem.String))
	e.SetType("Ambiguous", comp)

	decl := &ast.TypeDecl{Name: "Ambiguous", Body: &ast.Block{}}
	root := &ast.Block{Stmts: []ast.Node{decl}}

	err := Complain(e, root)
	if err == nil {
		t.Fatalf("Complain: expected an error, got nil")
	}
	se, ok := err.(*diagnostics.SemanticError)
	if !ok {
		t.Fatalf("Complain error = %T (%v), want *diagnostics.SemanticError", err, err)
	}
	if se.Kind != diagnostics.CannotGuessAttribute {
		t.Fatalf("error kind = %s, want CannotGuessAttribute", se.Kind)
	}
}

func TestComplainRejectsNonSingleUnionParameter(t *testing.T) {
	e := NewPrelude()
	fn := typesystem.NewFunction("ambiguous")
	fn.Params.Set("x", typesystem.MakeUnion(typesystem.Number, typesystem.String))
	fn.Return = typesystem.Boolean
	e.SetVariable("ambiguous", fn)

	decl := &ast.FunctionDecl{Name: "ambiguous"}
	root := &ast.Block{Stmts: []ast.Node{decl}}

	err := Complain(e, root)
	if err == nil {
		t.Fatalf("Complain: expected an error, got nil")
	}
	se, ok := err.(*diagnostics.SemanticError)
	if !ok {
		t.Fatalf("Complain error = %T (%v), want *diagnostics.SemanticError", err, err)
	}
	if se.Kind != diagnostics.CannotGuessAttribute {
		t.Fatalf("error kind = %s, want CannotGuessAttribute", se.Kind)
	}
}

// A function whose Overloads were legitimately enumerated (e.g. by
// GuessArguments) is exempt from the non-singleton-union check on its
// canonical Params/Return even though those are themselves a Merge of
// every overload's axis.
func TestComplainExemptsFunctionsWithOverloads(t *testing.T) {
	e := NewPrelude()
	fn := typesystem.NewFunction("id")
	fn.Params.Set("x", typesystem.MakeUnion(typesystem.Number, typesystem.String))
	fn.Return = typesystem.MakeUnion(typesystem.Number, typesystem.String)
	fn.Overloads = []*typesystem.Function{
		{Name: "id", Params: oneParam("x", typesystem.Number), Return: typesystem.Number},
		{Name: "id", Params: oneParam("x", typesystem.String), Return: typesystem.String},
	}
	e.SetVariable("id", fn)

	decl := &ast.FunctionDecl{Name: "id"}
	root := &ast.Block{Stmts: []ast.Node{decl}}

	if err := Complain(e, root); err != nil {
		t.Fatalf("Complain error: %v, want nil (Overloads exempts this function)", err)
	}
}

func TestComplainIgnoresSingleMemberAttribute(t *testing.T) {
	e := NewPrelude()
	comp := typesystem.NewComposite("Fine")
	comp.Attributes.Set("x", typesystem.Number)
	e.SetType("Fine", comp)

	decl := &ast.TypeDecl{Name: "Fine", Body: &ast.Block{}}
	root := &ast.Block{Stmts: []ast.Node{decl}}

	if err := Complain(e, root); err != nil {
		t.Fatalf("Complain error: %v, want nil", err)
	}
}

func oneParam(name string, t typesystem.Type) *typesystem.OrderedFields {
	out := typesystem.NewOrderedFields()
	out.Set(name, t)
	return out
}
