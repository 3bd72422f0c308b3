package filter

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/qldp/registry/common/models"
)

// Evaluator compiles and caches CEL filter expressions over temp absences.
//
// Available variables:
//
//	code, reason, place  string
//	person_id            int
//	from, to             timestamp
//
// Example: reason == "work" && from >= timestamp("2024-01-01T00:00:00Z")
type Evaluator struct {
	env   *cel.Env
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewEvaluator creates a new evaluator with an empty cache
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("code", cel.StringType),
		cel.Variable("reason", cel.StringType),
		cel.Variable("place", cel.StringType),
		cel.Variable("person_id", cel.IntType),
		cel.Variable("from", cel.TimestampType),
		cel.Variable("to", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	return &Evaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Compile checks expr and returns its program, using the cache when possible
func (e *Evaluator) Compile(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, exists := e.cache[expr]
	e.mu.RUnlock()
	if exists {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidFilterExpression, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: expression must return bool, got %s", models.ErrInvalidFilterExpression, ast.OutputType())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidFilterExpression, err)
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()

	return prg, nil
}

// Filter returns the absences for which expr holds. An empty expr keeps all.
func (e *Evaluator) Filter(expr string, absents []*models.TempAbsent) ([]*models.TempAbsent, error) {
	if expr == "" {
		return absents, nil
	}

	prg, err := e.Compile(expr)
	if err != nil {
		return nil, err
	}

	out := make([]*models.TempAbsent, 0, len(absents))
	for _, ta := range absents {
		val, _, err := prg.Eval(map[string]any{
			"code":      ta.Code,
			"reason":    ta.Reason,
			"place":     ta.TempResidencePlace,
			"person_id": ta.PersonID,
			"from":      ta.Interval.From,
			"to":        ta.Interval.To,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidFilterExpression, err)
		}
		if matched, ok := val.Value().(bool); ok && matched {
			out = append(out, ta)
		}
	}

	return out, nil
}

// CacheSize returns the number of cached expressions
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
