// Package diagnostics defines the semantic error taxonomy: one kind per
// failure mode, each carrying the offending AST node's line/column and a
// human-readable message.
package diagnostics

import (
	"fmt"

	"github.com/hulklang/sema/internal/token"
)

// Kind enumerates every error the core can raise.
type Kind string

const (
	FallThrough               Kind = "FallThrough"
	Redefinition              Kind = "Redefinition"
	UnknownType               Kind = "UnknownType"
	UnknownVariable           Kind = "UnknownVariable"
	UnknownField              Kind = "UnknownField"
	UnknownOperator           Kind = "UnknownOperator"
	IncompatibleTypes         Kind = "IncompatibleTypes"
	CyclicInheritance         Kind = "CyclicInheritance"
	ProtocolParentMismatch    Kind = "ProtocolParentMismatch"
	CannotInstantiateProtocol Kind = "CannotInstantiateProtocol"
	ArgumentCountMismatch     Kind = "ArgumentCountMismatch"
	NoOverloadCandidate       Kind = "NoOverloadCandidate"
	DuplicateParameterName    Kind = "DuplicateParameterName"
	CannotGuessSignature      Kind = "CannotGuessSignature"
	CannotGuessAttribute      Kind = "CannotGuessAttribute"
)

// SemanticError is the one error type the core ever raises. It implements
// the standard error interface so callers can use errors.As/errors.Is.
// Trial-checking counts any returned error as a failed trial; it recovers
// no panic.
type SemanticError struct {
	Kind    Kind
	Line    int
	Column  int
	Message string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Column, e.Kind, e.Message)
}

// New builds a SemanticError located at tok with a formatted message.
func New(kind Kind, tok token.Token, format string, args ...any) *SemanticError {
	return &SemanticError{
		Kind:    kind,
		Line:    tok.Line,
		Column:  tok.Column,
		Message: fmt.Sprintf(format, args...),
	}
}
