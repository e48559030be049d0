package diagnostics

import (
	"testing"

	"github.com/hulklang/sema/internal/token"
)

func TestNewFormatsMessageAndLocation(t *testing.T) {
	tok := token.Token{Line: 3, Column: 7, Lexeme: "foo"}
	err := New(UnknownVariable, tok, "unknown variable %q", "foo")

	if err.Kind != UnknownVariable {
		t.Fatalf("Kind = %v, want UnknownVariable", err.Kind)
	}
	if err.Line != 3 || err.Column != 7 {
		t.Fatalf("Line/Column = %d/%d, want 3/7", err.Line, err.Column)
	}
	want := `3:7: UnknownVariable: unknown variable "foo"`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSemanticErrorImplementsError(t *testing.T) {
	var err error = New(Redefinition, token.Token{}, "dup")
	if err == nil {
		t.Fatalf("New should never return a nil error value")
	}
}
