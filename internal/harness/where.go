package harness

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"

	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/state"
)

// whereEnv is the variable set visible to where expressions.
func whereEnv(s state.Snapshot, flags field.Flags) map[string]any {
	return map[string]any{
		"value":          s.Value,
		"border":         string(s.BorderColor),
		"successVisible": s.SuccessVisible,
		"errorVisible":   s.ErrorVisible,
		"messageVisible": s.MessageVisible,
		"state":          string(state.Classify(s, flags)),
	}
}

// compileWhere type-checks a where expression against the snapshot
// variables. The expression must evaluate to a boolean.
func compileWhere(src string) (*vm.Program, error) {
	program, err := expr.Compile(src, expr.Env(whereEnv(state.Snapshot{}, field.Flags{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return program, nil
}

// evalWhere runs a compiled where expression against s.
func evalWhere(program *vm.Program, s state.Snapshot, flags field.Flags) (bool, error) {
	out, err := expr.Run(program, whereEnv(s, flags))
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("where expression returned %T, not bool", out)
	}
	return b, nil
}

// reads reports whether program reads the snapshot variable name.
func reads(program *vm.Program, name string) bool {
	v := &identFinder{name: name}
	node := program.Node()
	ast.Walk(&node, v)
	return v.found
}

type identFinder struct {
	name  string
	found bool
}

func (f *identFinder) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok && id.Value == f.name {
		f.found = true
	}
}
