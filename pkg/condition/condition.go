// Package condition defines the evaluator contract used to gate stage
// processors on rule strings. The expression implementation lives in
// condition/expr; callers may supply their own Evaluator.
package condition

// Evaluator decides whether a rule holds for the supplied context.
type Evaluator interface {
	Eval(rule string, ctx Context) (bool, error)
}

// Context carries the values a rule can reference. Values usually holds the
// raw submitted values keyed by full field name; Extras lets callers expose
// additional facts (roles, feature flags) under the `extras.` prefix.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(rule string, ctx Context) (bool, error) {
	return fn(rule, ctx)
}
