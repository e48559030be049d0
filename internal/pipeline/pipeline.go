// Package pipeline runs a fixed sequence of Processors over a shared
// Context: one Process(ctx) *Context method per stage, stages run in
// order, later stages see earlier ones' side effects on ctx. The semantic
// transform schedule is built on it, each step being one collect/rewrite
// pair followed by a typing fixed-point loop.
package pipeline

import (
	"github.com/hulklang/sema/internal/ast"
	"github.com/hulklang/sema/internal/env"
)

// Context threads the program root and the shared environment through a
// Pipeline's Processors, plus whatever the last stage observed: Progress
// (the accumulated typing-to-quiescence count) and Err (the first fatal
// error; a Pipeline stops advancing once this is set).
type Context struct {
	Root     *ast.Block
	Env      *env.Environment
	Progress int
	Err      error
}

// Processor is one named stage of the schedule.
type Processor interface {
	Process(ctx *Context) *Context
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline, stopping early once a stage records ctx.Err.
// No stage recovers from an earlier stage's error.
func (p *Pipeline) Run(initialCtx *Context) *Context {
	ctx := initialCtx
	for _, processor := range p.processors {
		if ctx.Err != nil {
			return ctx
		}
		ctx = processor.Process(ctx)
	}
	return ctx
}
