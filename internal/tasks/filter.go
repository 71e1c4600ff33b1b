package tasks

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// Filter is a compiled CEL predicate over TaskMetadata. The zero Filter
// matches everything.
//
// Variables: id, kind, index_id, inserted_at_ms, age_ms, now_ms.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// CompileFilter parses and type-checks expr. An empty expr yields a Filter
// that matches everything.
func CompileFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("id", cel.IntType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("index_id", cel.IntType),
		cel.Variable("inserted_at_ms", cel.IntType),
		cel.Variable("age_ms", cel.IntType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, errors.Wrap(iss.Err(), "tasks: parse filter")
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, errors.Wrap(iss2.Err(), "tasks: check filter")
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return Filter{}, errors.Errorf("tasks: filter must be boolean, got %s", checked.OutputType())
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Match evaluates the filter against md. Evaluation errors count as no match.
func (f Filter) Match(md TaskMetadata, now time.Time) bool {
	if !f.enabled {
		return true
	}
	var inserted int64
	if !md.AddedAt.IsZero() {
		inserted = md.AddedAt.UnixMilli()
	}
	out, _, err := f.prog.Eval(map[string]any{
		"id":             int64(md.ID),
		"kind":           md.Kind,
		"index_id":       int64(md.IndexID),
		"inserted_at_ms": inserted,
		"age_ms":         now.UnixMilli() - inserted,
		"now_ms":         now.UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
