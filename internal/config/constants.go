// Package config holds the small set of names and constants shared across
// the semantic core and its CLI driver.
package config

// Version is the current module version, overridable at build time via
// -ldflags.
var Version = "0.1.0"

const FixtureExt = ".hulk.txtar"

// Built-in type names installed by semantic.NewPrelude.
const (
	ObjectTypeName    = "object"
	BooleanTypeName   = "boolean"
	NumberTypeName    = "number"
	StringTypeName    = "string"
	IterableTypeName  = "iterable"
	PrintableTypeName = "printable"
)

// Built-in protocol member names.
const (
	IterableCurrentName   = "current"
	IterableNextName      = "next"
	PrintableToStringName = "tostring"
)

// Built-in constant names.
const (
	MathEName  = "E"
	MathPIName = "PI"
)

// Built-in function names.
const (
	CosFuncName    = "cos"
	SinFuncName    = "sin"
	ExpFuncName    = "exp"
	SqrtFuncName   = "sqrt"
	LogFuncName    = "log"
	PowFuncName    = "pow"
	RandFuncName   = "rand"
	PrintFuncName  = "print"
	ConcatFuncName = "concat"
	SitosFuncName  = "sitos"
)
