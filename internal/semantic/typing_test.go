package semantic

import (
	"testing"

	"github.com/hulklang/sema/internal/ast"
	"github.com/hulklang/sema/internal/diagnostics"
	"github.com/hulklang/sema/internal/env"
	"github.com/hulklang/sema/internal/typesystem"
)

func mustTypeError(t *testing.T, n ast.Node) *diagnostics.SemanticError {
	t.Helper()
	e := NewPrelude()
	_, err := TypeNode(e, n)
	if err == nil {
		t.Fatalf("TypeNode: expected an error, got nil")
	}
	se, ok := err.(*diagnostics.SemanticError)
	if !ok {
		t.Fatalf("TypeNode error = %T (%v), want *diagnostics.SemanticError", err, err)
	}
	return se
}

func TestTypeArithmeticRequiresTwoNumbers(t *testing.T) {
	n := &ast.BinaryOperator{Op: "+", Left: &ast.Constant{Value: "x"}, Right: &ast.Constant{Value: 1.0}}
	se := mustTypeError(t, n)
	if se.Kind != diagnostics.IncompatibleTypes {
		t.Fatalf("error kind = %s, want IncompatibleTypes", se.Kind)
	}
}

func TestTypeArithmeticYieldsNumber(t *testing.T) {
	e := NewPrelude()
	n := &ast.BinaryOperator{Op: "*", Left: &ast.Constant{Value: 3.0}, Right: &ast.Constant{Value: 4.0}}
	if _, err := TypeNode(e, n); err != nil {
		t.Fatalf("TypeNode error: %v", err)
	}
	if tp := ast.InferredType(n); tp == nil || tp.TypeName() != "number" {
		t.Fatalf("3 * 4 inferred type = %v, want number", tp)
	}
}

func TestTypeComparisonYieldsBoolean(t *testing.T) {
	e := NewPrelude()
	n := &ast.BinaryOperator{Op: "==", Left: &ast.Constant{Value: 1.0}, Right: &ast.Constant{Value: 2.0}}
	if _, err := TypeNode(e, n); err != nil {
		t.Fatalf("TypeNode error: %v", err)
	}
	if tp := ast.InferredType(n); tp == nil || tp.TypeName() != "boolean" {
		t.Fatalf("1 == 2 inferred type = %v, want boolean", tp)
	}
}

func TestTypeComparisonRejectsIncompatibleOperands(t *testing.T) {
	n := &ast.BinaryOperator{Op: "<", Left: &ast.Constant{Value: "x"}, Right: &ast.Constant{Value: 1.0}}
	se := mustTypeError(t, n)
	if se.Kind != diagnostics.IncompatibleTypes {
		t.Fatalf("error kind = %s, want IncompatibleTypes", se.Kind)
	}
}

func TestTypeBoolOpsRequireTwoBooleans(t *testing.T) {
	n := &ast.BinaryOperator{Op: "&", Left: &ast.Constant{Value: true}, Right: &ast.Constant{Value: 1.0}}
	se := mustTypeError(t, n)
	if se.Kind != diagnostics.IncompatibleTypes {
		t.Fatalf("error kind = %s, want IncompatibleTypes", se.Kind)
	}
}

func TestTypeConcatAlwaysYieldsString(t *testing.T) {
	e := NewPrelude()
	n := &ast.BinaryOperator{Op: "@", Left: &ast.Constant{Value: "a"}, Right: &ast.Constant{Value: 1.0}}
	if _, err := TypeNode(e, n); err != nil {
		t.Fatalf("TypeNode error: %v", err)
	}
	if tp := ast.InferredType(n); tp == nil || tp.TypeName() != "string" {
		t.Fatalf("a @ 1 inferred type = %v, want string", tp)
	}
}

func TestTypeUnaryNotRequiresBoolean(t *testing.T) {
	n := &ast.UnaryOperator{Op: "!", Argument: &ast.Constant{Value: 1.0}}
	se := mustTypeError(t, n)
	if se.Kind != diagnostics.IncompatibleTypes {
		t.Fatalf("error kind = %s, want IncompatibleTypes", se.Kind)
	}
}

func TestTypeUnaryNotYieldsBoolean(t *testing.T) {
	e := NewPrelude()
	n := &ast.UnaryOperator{Op: "!", Argument: &ast.Constant{Value: true}}
	if _, err := TypeNode(e, n); err != nil {
		t.Fatalf("TypeNode error: %v", err)
	}
	if tp := ast.InferredType(n); tp == nil || tp.TypeName() != "boolean" {
		t.Fatalf("!true inferred type = %v, want boolean", tp)
	}
}

func TestTypeIsAlwaysYieldsBooleanRegardlessOfMatch(t *testing.T) {
	e := NewPrelude()
	n := &ast.BinaryOperator{Op: "is", Left: &ast.Constant{Value: "x"}, Right: &ast.TypeRef{Name: "number"}}
	if _, err := TypeNode(e, n); err != nil {
		t.Fatalf("TypeNode error: %v", err)
	}
	if tp := ast.InferredType(n); tp == nil || tp.TypeName() != "boolean" {
		t.Fatalf("\"x\" is number inferred type = %v, want boolean", tp)
	}
}

func TestTypeAsRejectsIncompatibleCast(t *testing.T) {
	n := &ast.BinaryOperator{Op: "as", Left: &ast.Constant{Value: "x"}, Right: &ast.TypeRef{Name: "number"}}
	se := mustTypeError(t, n)
	if se.Kind != diagnostics.IncompatibleTypes {
		t.Fatalf("error kind = %s, want IncompatibleTypes", se.Kind)
	}
}

func TestTypeAsAcceptsCompatibleCast(t *testing.T) {
	e := NewPrelude()
	n := &ast.BinaryOperator{Op: "as", Left: &ast.Constant{Value: 1.0}, Right: &ast.TypeRef{Name: "number"}}
	if _, err := TypeNode(e, n); err != nil {
		t.Fatalf("TypeNode error: %v", err)
	}
	if tp := ast.InferredType(n); tp == nil || tp.TypeName() != "number" {
		t.Fatalf("1 as number inferred type = %v, want number", tp)
	}
}

func TestTypeAsRequiresATypeReferenceOperand(t *testing.T) {
	n := &ast.BinaryOperator{Op: "as", Left: &ast.Constant{Value: 1.0}, Right: &ast.Constant{Value: "number"}}
	se := mustTypeError(t, n)
	if se.Kind != diagnostics.UnknownOperator {
		t.Fatalf("error kind = %s, want UnknownOperator", se.Kind)
	}
}

func TestTypeConditionalRejectsNonBooleanCondition(t *testing.T) {
	n := &ast.Conditional{Condition: &ast.Constant{Value: 1.0}, Then: &ast.Constant{Value: true}}
	se := mustTypeError(t, n)
	if se.Kind != diagnostics.IncompatibleTypes {
		t.Fatalf("error kind = %s, want IncompatibleTypes", se.Kind)
	}
}

// if true then 1 else "x": both branches type-check individually, so the
// conditional's own type is their Merge, a two-member Union.
func TestTypeConditionalMergesBranchTypes(t *testing.T) {
	e := NewPrelude()
	n := &ast.Conditional{
		Condition: &ast.Constant{Value: true},
		Then:      &ast.Constant{Value: 1.0},
		Else:      &ast.Constant{Value: "x"},
	}
	if _, err := TypeNode(e, n); err != nil {
		t.Fatalf("TypeNode error: %v", err)
	}
	tp := ast.InferredType(n)
	union, ok := tp.(typesystem.Union)
	if !ok {
		t.Fatalf("conditional inferred type = %T (%v), want typesystem.Union", tp, tp)
	}
	if len(union.Members) != 2 {
		t.Fatalf("union has %d members, want 2", len(union.Members))
	}
}

func TestTypeWhileRejectsNonBooleanCondition(t *testing.T) {
	n := &ast.While{Condition: &ast.Constant{Value: "nope"}, Body: &ast.Constant{Value: 1.0}}
	se := mustTypeError(t, n)
	if se.Kind != diagnostics.IncompatibleTypes {
		t.Fatalf("error kind = %s, want IncompatibleTypes", se.Kind)
	}
}

func TestTypeLetBindsParamsInOrderVisibleToLaterOnes(t *testing.T) {
	e := NewPrelude()
	n := &ast.Let{
		Params: []*ast.VarParam{
			{Name: "a", Value: &ast.Constant{Value: 1.0}},
			{Name: "b", Value: &ast.BinaryOperator{Op: "+", Left: &ast.VariableValue{Name: "a"}, Right: &ast.Constant{Value: 1.0}}},
		},
		Body: &ast.VariableValue{Name: "b"},
	}
	if _, err := TypeNode(e, n); err != nil {
		t.Fatalf("TypeNode error: %v", err)
	}
	if tp := ast.InferredType(n); tp == nil || tp.TypeName() != "number" {
		t.Fatalf("let ... in b inferred type = %v, want number", tp)
	}
}

// Declaration node kinds the transform schedule dispatches itself are not
// typable expressions; handing one to TypeNode is a visitor bug.
func TestTypeNodeFallsThroughOnUnhandledKind(t *testing.T) {
	se := mustTypeError(t, &ast.TypeDecl{Name: "T", Body: &ast.Block{}})
	if se.Kind != diagnostics.FallThrough {
		t.Fatalf("error kind = %s, want FallThrough", se.Kind)
	}
}

func TestTypeVariableValueUnknownFails(t *testing.T) {
	n := &ast.VariableValue{Name: "nope"}
	se := mustTypeError(t, n)
	if se.Kind != diagnostics.UnknownVariable {
		t.Fatalf("error kind = %s, want UnknownVariable", se.Kind)
	}
}

func TestTypeClassAccessUnknownFieldFails(t *testing.T) {
	e := NewPrelude()
	decl := &ast.TypeDecl{Name: "Empty", Body: &ast.Block{}}
	root := &ast.Block{Stmts: []ast.Node{decl}}
	if err := Collect(e, root); err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	n := &ast.ClassAccess{
		Base:  &ast.NewValue{TypeName: "Empty"},
		Field: "nope",
	}
	se := mustTypeErrorIn(t, e, n)
	if se.Kind != diagnostics.UnknownField {
		t.Fatalf("error kind = %s, want UnknownField", se.Kind)
	}
}

func mustTypeErrorIn(t *testing.T, e *env.Environment, n ast.Node) *diagnostics.SemanticError {
	t.Helper()
	_, err := TypeNode(e, n)
	if err == nil {
		t.Fatalf("TypeNode: expected an error, got nil")
	}
	se, ok := err.(*diagnostics.SemanticError)
	if !ok {
		t.Fatalf("TypeNode error = %T (%v), want *diagnostics.SemanticError", err, err)
	}
	return se
}
