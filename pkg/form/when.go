package form

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formproc/pkg/condition"
)

// Condition gates a processor. A processor whose condition does not hold is
// not invoked for the current pass.
type Condition interface {
	Evaluate(ctx *Context) bool
}

// ConditionFunc adapts a function into a Condition.
type ConditionFunc func(ctx *Context) bool

// Evaluate implements Condition.
func (fn ConditionFunc) Evaluate(ctx *Context) bool {
	if fn == nil {
		return true
	}
	return fn(ctx)
}

// When is the declarative condition attached to processors.
//
// Exactly one of Callback, Expr or Field is consulted, in that order:
//   - Callback is invoked with the processing context. Clones share it.
//   - Expr is evaluated with the form's condition evaluator against the raw
//     submitted values.
//   - Field names another field; its raw submitted values are compared with
//     Values (any match, compared as strings). Empty Values means the field
//     must carry a truthy value.
//
// Not inverts the outcome.
type When struct {
	Field    string
	Values   []any
	Not      bool
	Expr     string
	Callback ConditionFunc
}

// Evaluate implements Condition.
func (w *When) Evaluate(ctx *Context) bool {
	if w == nil {
		return true
	}
	var ok bool
	switch {
	case w.Callback != nil:
		ok = w.Callback(ctx)
	case strings.TrimSpace(w.Expr) != "":
		ok = w.evalExpr(ctx)
	case strings.TrimSpace(w.Field) != "":
		ok = w.matchField(ctx)
	default:
		ok = true
	}
	if w.Not {
		return !ok
	}
	return ok
}

func (w *When) evalExpr(ctx *Context) bool {
	if ctx == nil || ctx.Form == nil {
		return false
	}
	ok, err := ctx.Form.evaluator.Eval(w.Expr, condition.Context{
		Values: ctx.Form.rawValues(),
		Extras: ctx.Form.attributes,
	})
	if err != nil {
		ctx.Form.log().Warn("when expression failed", "expr", w.Expr, "error", err)
		return false
	}
	return ok
}

func (w *When) matchField(ctx *Context) bool {
	if ctx == nil || ctx.Query == nil {
		return false
	}
	name := w.Field
	if ctx.Form != nil {
		if fld := ctx.Form.Field(name); fld != nil && !fld.IsBlock() {
			name = fld.NestedName()
		}
	}
	submitted := ctx.Query.Values(name)
	if len(w.Values) == 0 {
		for _, v := range submitted {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" && s != "0" {
				return true
			}
		}
		return false
	}
	for _, v := range submitted {
		got := fmt.Sprint(v)
		for _, want := range w.Values {
			if got == fmt.Sprint(want) {
				return true
			}
		}
	}
	return false
}

func (w *When) clone() *When {
	out := *w
	if w.Values != nil {
		out.Values = append([]any(nil), w.Values...)
	}
	return &out
}
