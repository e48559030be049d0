package semantic

import (
	"github.com/hulklang/sema/internal/ast"
	"github.com/hulklang/sema/internal/env"
)

// Semantic is the result of a successful Check: the fully-resolved
// environment the program type-checked against, plus the number of
// typing-progress steps the transform schedule needed to reach quiescence.
type Semantic struct {
	Env      *env.Environment
	Progress int
}

// Check is the library's single entry point: it runs
// Collect, then the Transform schedule to quiescence, then Complain, over
// root against a fresh prelude, and returns the environment a caller can
// inspect or hand to a downstream evaluator. A non-nil error is always a
// *diagnostics.SemanticError.
func Check(root *ast.Block) (*Semantic, error) {
	e := NewPrelude()
	if err := Collect(e, root); err != nil {
		return nil, err
	}
	progress, err := Transform(e, root)
	if err != nil {
		return nil, err
	}
	if err := Complain(e, root); err != nil {
		return nil, err
	}
	return &Semantic{Env: e, Progress: progress}, nil
}
