package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"shelterdb/pkg/domain"
)

// CompileFilter compiles a boolean expression evaluated against each record's
// JSON fields, e.g. `species == "cat" && age < 3`. Fields a record lacks
// evaluate to nil.
func CompileFilter(expression string) (*vm.Program, error) {
	program, err := expr.Compile(expression, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expression, err)
	}
	return program, nil
}

// MatchFilter reports whether rec satisfies program.
func MatchFilter[T domain.Record](program *vm.Program, rec T) (bool, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	env := make(map[string]any)
	if err := json.Unmarshal(b, &env); err != nil {
		return false, err
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate filter on record %d: %w", rec.RecordID(), err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// Filter returns the records of the merged view matching expression. A blank
// expression matches everything. Unlike the accessors, Filter reports
// expression errors since they are the caller's.
func (s *Store[T]) Filter(ctx context.Context, expression string) ([]T, error) {
	if strings.TrimSpace(expression) == "" {
		return s.GetAll(ctx), nil
	}
	program, err := CompileFilter(expression)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0)
	for _, rec := range s.snapshot(ctx) {
		ok, err := MatchFilter(program, rec)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		c, err := cloneRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
