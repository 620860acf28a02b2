package entity

import (
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/bazarrwatch/bazarr"
)

// DefaultProblemExpression turns the problem sensor on whenever Bazarr reports health issues
const DefaultProblemExpression = "len(health_issues) > 0"

// ProblemRule decides the state of the health binary sensor
type ProblemRule struct {
	expression string
	program    *vm.Program
}

// CompileProblemRule compiles a boolean expression over the snapshot fields
// wanted_movies, wanted_episodes, health_issues and version.
func CompileProblemRule(expression string) (*ProblemRule, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	program, err := expr.Compile(expression, expr.Env(problemEnv(bazarr.Snapshot{})), expr.AsBool())
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     err.Error(),
			Err:        err,
		}
	}

	return &ProblemRule{expression: expression, program: program}, nil
}

// MustCompileProblemRule is like CompileProblemRule but panics on error
func MustCompileProblemRule(expression string) *ProblemRule {
	rule, err := CompileProblemRule(expression)
	if err != nil {
		panic(err)
	}
	return rule
}

// Expression returns the source of the rule
func (r *ProblemRule) Expression() string {
	return r.expression
}

// Evaluate runs the rule against snap
func (r *ProblemRule) Evaluate(snap bazarr.Snapshot) (bool, error) {
	out, err := expr.Run(r.program, problemEnv(snap))
	if err != nil {
		return false, &EvaluationError{
			Expression: r.expression,
			Reason:     err.Error(),
			Err:        err,
		}
	}

	result, ok := out.(bool)
	if !ok {
		return false, &EvaluationError{
			Expression: r.expression,
			Reason:     "expression did not return a boolean",
		}
	}
	return result, nil
}

func problemEnv(snap bazarr.Snapshot) map[string]any {
	issues := snap.HealthIssues
	if issues == nil {
		issues = []any{}
	}

	return map[string]any{
		"wanted_movies":   snap.WantedMovies,
		"wanted_episodes": snap.WantedEpisodes,
		"health_issues":   issues,
		"version":         snap.Version,
	}
}
