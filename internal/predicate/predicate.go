// Package predicate builds [models.Predicate] values for local queries and
// per-type sync expressions.
package predicate

import (
	"errors"
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/MKhiriev/go-sync-engine/models"
)

// ErrEmptyExpression is returned by Compile for blank expressions.
var ErrEmptyExpression = errors.New("expression must not be empty")

// exprPredicate evaluates a compiled expr-lang program against a model's
// decoded fields. "id" and "__typename" are always bound.
type exprPredicate struct {
	program    *exprvm.Program
	expression string
}

// Compile parses a boolean expression such as `status == "PUBLISHED" &&
// rating > 3`. Unknown field names evaluate to nil.
func Compile(expression string) (models.Predicate, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}

	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", expression, err)
	}

	return &exprPredicate{program: program, expression: expression}, nil
}

func (p *exprPredicate) Match(m models.Model) (bool, error) {
	env, err := m.Fields()
	if err != nil {
		return false, err
	}
	env["id"] = m.ID
	env["__typename"] = m.Name

	out, err := exprlang.Run(p.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate expression %q on %s: %w", p.expression, m.Identity(), err)
	}

	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, want bool", p.expression, out)
	}
	return matched, nil
}

func (p *exprPredicate) String() string {
	return p.expression
}
