// Package fixture loads golden test bundles stored in the txtar archive
// format (golang.org/x/tools/txtar): each bundle pairs a JSON-encoded
// program tree with the diagnostics a correct Check run is expected to
// produce against it. The CLI driver runs every bundle under
// testdata/fixtures and diffs its own output against the golden listing.
package fixture

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/txtar"

	"github.com/hulklang/sema/internal/ast"
	"github.com/hulklang/sema/internal/config"
	"github.com/hulklang/sema/internal/token"
)

// Bundle is one loaded fixture: a program to run Check over, and the
// diagnostic messages (one per line, in order) a correct run must
// produce. An empty Expected means the program is expected to check
// clean.
type Bundle struct {
	Name     string
	Path     string
	Program  *ast.Block
	Expected []string
}

// Load reads every file under dir matching config.FixtureExt and returns
// one Bundle per archive, sorted by file name for a deterministic run
// order.
func Load(dir string) ([]Bundle, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, config.FixtureExt) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning fixtures dir %s: %w", dir, err)
	}
	sort.Strings(paths)

	bundles := make([]Bundle, 0, len(paths))
	for _, p := range paths {
		b, err := loadOne(p)
		if err != nil {
			return nil, fmt.Errorf("loading fixture %s: %w", p, err)
		}
		bundles = append(bundles, b)
	}
	return bundles, nil
}

func loadOne(path string) (Bundle, error) {
	archive, err := txtar.ParseFile(path)
	if err != nil {
		return Bundle{}, err
	}

	var programData, expectedData []byte
	for _, f := range archive.Files {
		switch f.Name {
		case "program.json":
			programData = f.Data
		case "expected.txt":
			expectedData = f.Data
		}
	}
	if programData == nil {
		return Bundle{}, fmt.Errorf("missing program.json section")
	}

	root, err := DecodeProgram(programData)
	if err != nil {
		return Bundle{}, fmt.Errorf("decoding program.json: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), config.FixtureExt)
	return Bundle{
		Name:     name,
		Path:     path,
		Program:  root,
		Expected: splitExpected(expectedData),
	}, nil
}

func splitExpected(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// envelope is the wire shape every AST node is encoded as: a Kind tag
// plus whichever fields that kind uses. Unused fields are simply absent
// from a given JSON object.
type envelope struct {
	Kind string `json:"kind"`

	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`

	Name     string `json:"name,omitempty"`
	Op       string `json:"op,omitempty"`
	Field    string `json:"field,omitempty"`
	TypeName string `json:"type_name,omitempty"`

	Value      json.RawMessage `json:"value,omitempty"`
	Left       json.RawMessage `json:"left,omitempty"`
	Right      json.RawMessage `json:"right,omitempty"`
	Argument   json.RawMessage `json:"argument,omitempty"`
	Base       json.RawMessage `json:"base,omitempty"`
	Lhs        json.RawMessage `json:"lhs,omitempty"`
	Rhs        json.RawMessage `json:"rhs,omitempty"`
	Target     json.RawMessage `json:"target,omitempty"`
	Condition  json.RawMessage `json:"condition,omitempty"`
	Then       json.RawMessage `json:"then,omitempty"`
	Else       json.RawMessage `json:"else,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
	TypeRef    json.RawMessage `json:"type_ref,omitempty"`
	Parent     json.RawMessage `json:"parent,omitempty"`
	ReturnType json.RawMessage `json:"return_type,omitempty"`
	Default    json.RawMessage `json:"default,omitempty"`

	Stmts     []json.RawMessage `json:"stmts,omitempty"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
	Params    []json.RawMessage `json:"params,omitempty"`
}

// DecodeProgram parses data as a JSON-encoded program Block, the format
// fixture archives carry their program section in.
func DecodeProgram(data []byte) (*ast.Block, error) {
	n, err := decodeNode(data)
	if err != nil {
		return nil, err
	}
	b, ok := n.(*ast.Block)
	if !ok {
		return nil, fmt.Errorf("program.json root must be a block, got %T", n)
	}
	return b, nil
}

func decodeNode(data []byte) (ast.Node, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	tok := token.Token{Line: env.Line, Column: env.Column}

	switch env.Kind {
	case "constant":
		var v any
		if err := json.Unmarshal(env.Value, &v); err != nil {
			return nil, fmt.Errorf("constant value: %w", err)
		}
		return &ast.Constant{Token: tok, Value: v}, nil
	case "variable":
		return &ast.VariableValue{Token: tok, Name: env.Name}, nil
	case "new":
		args, err := decodeNodes(env.Arguments)
		if err != nil {
			return nil, err
		}
		return &ast.NewValue{Token: tok, TypeName: env.TypeName, Arguments: args}, nil
	case "binary":
		left, err := decodeNode(env.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeNode(env.Right)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOperator{Token: tok, Op: env.Op, Left: left, Right: right}, nil
	case "unary":
		arg, err := decodeNode(env.Argument)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOperator{Token: tok, Op: env.Op, Argument: arg}, nil
	case "block":
		stmts, err := decodeNodes(env.Stmts)
		if err != nil {
			return nil, err
		}
		return &ast.Block{Token: tok, Stmts: stmts}, nil
	case "conditional":
		cond, err := decodeNode(env.Condition)
		if err != nil {
			return nil, err
		}
		then, err := decodeNode(env.Then)
		if err != nil {
			return nil, err
		}
		els, err := decodeNode(env.Else)
		if err != nil {
			return nil, err
		}
		return &ast.Conditional{Token: tok, Condition: cond, Then: then, Else: els}, nil
	case "while":
		cond, err := decodeNode(env.Condition)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(env.Body)
		if err != nil {
			return nil, err
		}
		return &ast.While{Token: tok, Condition: cond, Body: body}, nil
	case "let":
		params, err := decodeVarParams(env.Params)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(env.Body)
		if err != nil {
			return nil, err
		}
		return &ast.Let{Token: tok, Params: params, Body: body}, nil
	case "access":
		base, err := decodeNode(env.Base)
		if err != nil {
			return nil, err
		}
		return &ast.ClassAccess{Token: tok, Base: base, Field: env.Field}, nil
	case "assign":
		lhs, err := decodeNode(env.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := decodeNode(env.Rhs)
		if err != nil {
			return nil, err
		}
		return &ast.DestructiveAssignment{Token: tok, Lhs: lhs, Rhs: rhs}, nil
	case "invoke":
		target, err := decodeNode(env.Target)
		if err != nil {
			return nil, err
		}
		args, err := decodeNodes(env.Arguments)
		if err != nil {
			return nil, err
		}
		return &ast.Invoke{Token: tok, Target: target, Arguments: args}, nil
	case "type_ref":
		return &ast.TypeRef{Token: tok, Name: env.Name}, nil
	case "param":
		ref, err := decodeTypeRef(env.TypeRef)
		if err != nil {
			return nil, err
		}
		return &ast.Param{Token: tok, Name: env.Name, TypeRef: ref}, nil
	case "var_param":
		ref, err := decodeTypeRef(env.TypeRef)
		if err != nil {
			return nil, err
		}
		value, err := decodeNode(env.Default)
		if err != nil {
			return nil, err
		}
		return &ast.VarParam{Token: tok, Name: env.Name, TypeRef: ref, Value: value}, nil
	case "function":
		params, err := decodeParams(env.Params)
		if err != nil {
			return nil, err
		}
		ret, err := decodeTypeRef(env.ReturnType)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(env.Body)
		if err != nil {
			return nil, err
		}
		return &ast.FunctionDecl{Token: tok, Name: env.Name, Params: params, ReturnType: ret, Body: body}, nil
	case "type":
		parent, err := decodeTypeRef(env.Parent)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(env.Body)
		if err != nil {
			return nil, err
		}
		bodyBlock, _ := body.(*ast.Block)
		if bodyBlock == nil {
			bodyBlock = &ast.Block{Token: tok}
		}
		return &ast.TypeDecl{Token: tok, Name: env.Name, Parent: parent, Body: bodyBlock}, nil
	case "protocol":
		parent, err := decodeTypeRef(env.Parent)
		if err != nil {
			return nil, err
		}
		body, err := decodeNode(env.Body)
		if err != nil {
			return nil, err
		}
		bodyBlock, _ := body.(*ast.Block)
		if bodyBlock == nil {
			bodyBlock = &ast.Block{Token: tok}
		}
		return &ast.ProtocolDecl{Token: tok, Name: env.Name, Parent: parent, Body: bodyBlock}, nil
	default:
		return nil, fmt.Errorf("unknown node kind %q", env.Kind)
	}
}

func decodeNodes(raw []json.RawMessage) ([]ast.Node, error) {
	if raw == nil {
		return nil, nil
	}
	nodes := make([]ast.Node, 0, len(raw))
	for _, r := range raw {
		n, err := decodeNode(r)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func decodeParams(raw []json.RawMessage) ([]*ast.Param, error) {
	params := make([]*ast.Param, 0, len(raw))
	for _, r := range raw {
		n, err := decodeNode(r)
		if err != nil {
			return nil, err
		}
		p, ok := n.(*ast.Param)
		if !ok {
			return nil, fmt.Errorf("expected param node, got %T", n)
		}
		params = append(params, p)
	}
	return params, nil
}

func decodeVarParams(raw []json.RawMessage) ([]*ast.VarParam, error) {
	params := make([]*ast.VarParam, 0, len(raw))
	for _, r := range raw {
		n, err := decodeNode(r)
		if err != nil {
			return nil, err
		}
		p, ok := n.(*ast.VarParam)
		if !ok {
			return nil, fmt.Errorf("expected var_param node, got %T", n)
		}
		params = append(params, p)
	}
	return params, nil
}

func decodeTypeRef(raw json.RawMessage) (*ast.TypeRef, error) {
	n, err := decodeNode(raw)
	if err != nil || n == nil {
		return nil, err
	}
	ref, ok := n.(*ast.TypeRef)
	if !ok {
		return nil, fmt.Errorf("expected type_ref node, got %T", n)
	}
	return ref, nil
}
