package prompt

import (
	"errors"
	"net/url"
	"strings"

	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/query"
)

// checker validates one answer against the filters and constraints of its
// field before it is accepted. The answers collected so far stand in for
// the rest of the submission.
type checker struct {
	form     *form.Form
	answered url.Values
	asked    map[string]bool
}

func newChecker(f *form.Form, answered url.Values) *checker {
	return &checker{form: f, answered: answered, asked: make(map[string]bool)}
}

// validator returns the check for fld as a prompt validator.
func (c *checker) validator(fld *form.Field) func(string) error {
	return func(answer string) error {
		return c.check(fld, splitAnswer(fld, answer))
	}
}

func (c *checker) check(fld *form.Field, answers []string) (err error) {
	name := fld.NestedName()
	values := url.Values{}
	for key, vs := range c.answered {
		values[key] = vs
	}
	delete(values, name)
	for _, answer := range answers {
		if answer != "" {
			values.Add(name, answer)
		}
	}

	store := c.form.Store()
	params := make(map[string]any, len(values))
	for key, vs := range values {
		store.Set(params, key, paramValue(c.form.Field(key), vs))
	}
	ctx := &form.Context{Form: c.form, Field: fld, Params: params, Query: query.FromValues(values)}

	// a panicking processor is left for Process to report
	defer func() {
		if recover() != nil {
			err = nil
		}
	}()

	value, present := store.Get(params, name)
	for _, p := range fld.Filters() {
		if !present || skipped(p, ctx) {
			continue
		}
		value, _ = each(p, value, func(v any) (any, error) { return p.Filter(ctx, v), nil })
		store.Set(params, name, value)
	}

	for _, p := range fld.Constraints() {
		if skipped(p, ctx) || !c.ready(p) {
			continue
		}
		if pre, ok := p.(form.PreProcessor); ok {
			pre.PreProcess(ctx)
		}
		_, cerr := each(p, value, func(v any) (any, error) { return v, p.Constrain(ctx, v) })
		if own := ownError(fld, cerr); own != nil {
			return errors.New(c.message(fld, p, own))
		}
	}
	return nil
}

// ready reports whether every field p depends on has been asked already.
func (c *checker) ready(p form.Processor) bool {
	dep, ok := p.(form.Dependent)
	if !ok {
		return true
	}
	for _, name := range dep.Dependencies() {
		fld := c.form.Field(name)
		if fld == nil || !c.asked[fld.NestedName()] {
			return false
		}
	}
	return true
}

func (c *checker) message(fld *form.Field, p form.Processor, err error) string {
	if msg := p.Message(); msg != "" {
		return msg
	}
	if v, ok := c.form.Resolve(fld, "message."+p.Type()); ok {
		if msg, isString := v.(string); isString && msg != "" {
			return msg
		}
	}
	return err.Error()
}

func skipped(p form.Processor, ctx *form.Context) bool {
	cond := p.When()
	if cond == nil {
		return false
	}
	if w, ok := cond.(*form.When); ok && w == nil {
		return false
	}
	return !cond.Evaluate(ctx)
}

// each applies fn per element of a list value unless p handles lists itself.
func each(p form.Processor, value any, fn func(any) (any, error)) (any, error) {
	list, ok := value.([]any)
	if h, multi := p.(form.MultiValueHandler); !ok || (multi && h.HandlesMultiValue()) {
		return fn(value)
	}
	out := make([]any, len(list))
	var first error
	for i, item := range list {
		next, err := fn(item)
		out[i] = next
		if err != nil && first == nil {
			first = err
		}
	}
	return out, first
}

// ownError returns the first error in err that belongs to fld. Errors a
// processor pins to other fields are not the answer's fault.
func ownError(fld *form.Field, err error) error {
	if err == nil {
		return nil
	}
	var list []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		list = joined.Unwrap()
	} else {
		list = []error{err}
	}
	for _, e := range list {
		var fe *form.Error
		if errors.As(e, &fe) && fe.Field != nil && fe.Field != fld {
			continue
		}
		if e != nil {
			return e
		}
	}
	return nil
}

func paramValue(fld *form.Field, values []string) any {
	if len(values) == 1 && (fld == nil || !fld.MultiValue) {
		return values[0]
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func splitAnswer(fld *form.Field, answer string) []string {
	if !fld.MultiValue {
		return []string{answer}
	}
	var out []string
	for _, part := range strings.Split(answer, ",") {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}
