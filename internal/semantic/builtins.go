// Package semantic implements the analysis core: Collect, Transform, the
// typing pass and the Complain pass, orchestrated by Check, the library's
// single entry point.
package semantic

import (
	"github.com/hulklang/sema/internal/ast"
	"github.com/hulklang/sema/internal/config"
	"github.com/hulklang/sema/internal/env"
	"github.com/hulklang/sema/internal/typesystem"
)

// NewPrelude returns a fresh Environment pre-populated with every built-in
// name the analysis expects: the root composite `object`, the three Simple
// atoms, the `iterable`/`printable` protocols, the math constants and the
// stdlib functions.
func NewPrelude() *env.Environment {
	e := env.New()

	object := typesystem.NewComposite(config.ObjectTypeName)
	object.Methods.Set(ast.CtorName, &typesystem.Function{
		Name:   ast.CtorName,
		Params: typesystem.NewOrderedFields(),
		Return: object,
	})
	e.SetType(config.ObjectTypeName, object)

	e.SetType(config.BooleanTypeName, typesystem.Boolean)
	e.SetType(config.NumberTypeName, typesystem.Number)
	e.SetType(config.StringTypeName, typesystem.String)

	iterable := typesystem.NewProtocol(config.IterableTypeName)
	iterable.Methods.Set(config.IterableCurrentName, &typesystem.Function{
		Name:   config.IterableCurrentName,
		Params: typesystem.NewOrderedFields(),
		Return: typesystem.Any{},
	})
	nextParams := typesystem.NewOrderedFields()
	nextParams.Set("x", typesystem.Any{})
	iterable.Methods.Set(config.IterableNextName, &typesystem.Function{
		Name:   config.IterableNextName,
		Params: nextParams,
		Return: typesystem.Boolean,
	})
	e.SetType(config.IterableTypeName, iterable)

	printable := typesystem.NewProtocol(config.PrintableTypeName)
	printable.Methods.Set(config.PrintableToStringName, &typesystem.Function{
		Name:   config.PrintableToStringName,
		Params: typesystem.NewOrderedFields(),
		Return: typesystem.String,
	})
	e.SetType(config.PrintableTypeName, printable)

	e.SetVariable(config.MathEName, typesystem.Number)
	e.SetVariable(config.MathPIName, typesystem.Number)

	for _, name := range []string{config.CosFuncName, config.SinFuncName, config.ExpFuncName, config.SqrtFuncName} {
		params := typesystem.NewOrderedFields()
		params.Set("n", typesystem.Number)
		e.SetVariable(name, &typesystem.Function{Name: name, Params: params, Return: typesystem.Number})
	}

	for _, name := range []string{config.LogFuncName, config.PowFuncName} {
		params := typesystem.NewOrderedFields()
		params.Set("n", typesystem.Number)
		params.Set("n2", typesystem.Number)
		e.SetVariable(name, &typesystem.Function{Name: name, Params: params, Return: typesystem.Number})
	}

	e.SetVariable(config.RandFuncName, &typesystem.Function{
		Name:   config.RandFuncName,
		Params: typesystem.NewOrderedFields(),
		Return: typesystem.Number,
	})

	numberOrString := typesystem.MakeUnion(typesystem.Number, typesystem.String)

	printParams := typesystem.NewOrderedFields()
	printParams.Set("a", numberOrString)
	e.SetVariable(config.PrintFuncName, &typesystem.Function{
		Name:   config.PrintFuncName,
		Params: printParams,
		Return: typesystem.Boolean,
	})

	concatParams := typesystem.NewOrderedFields()
	concatParams.Set("a", typesystem.String)
	concatParams.Set("b", typesystem.String)
	e.SetVariable(config.ConcatFuncName, &typesystem.Function{
		Name:   config.ConcatFuncName,
		Params: concatParams,
		Return: typesystem.String,
	})

	sitosParams := typesystem.NewOrderedFields()
	sitosParams.Set("a", numberOrString)
	e.SetVariable(config.SitosFuncName, &typesystem.Function{
		Name:   config.SitosFuncName,
		Params: sitosParams,
		Return: typesystem.String,
	})

	return e
}
