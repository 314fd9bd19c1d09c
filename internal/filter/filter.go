package filter

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/mkdemir/uzmanposta/internal/record"
)

// Filter wraps a compiled CEL program evaluated against each record before it
// reaches the sink. When disabled, Include always returns true.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// Compile builds a Filter from a CEL expression. An empty expression yields a
// disabled filter.
func Compile(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		// Expose the parsed record (map/list/values) for field filtering
		cel.Variable("record", cel.DynType),
		cel.Variable("time", cel.IntType),
		cel.Variable("category", cel.StringType),
		// Current unix time for windowed filters
		cel.Variable("now", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Enabled reports whether an expression was configured.
func (f Filter) Enabled() bool { return f.enabled }

// Include evaluates the expression against one record. When disabled, returns
// true. Evaluation errors exclude the record rather than failing the page.
func (f Filter) Include(rec record.Record, cat record.Category) bool {
	if !f.enabled {
		return true
	}
	ts, _ := rec.Time(cat)
	out, _, err := f.prog.Eval(map[string]any{
		"record":   map[string]interface{}(rec),
		"time":     ts,
		"category": string(cat),
		"now":      time.Now().Unix(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
