package form_test

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/query"
)

type trimFilter struct{ form.Base }

func newTrim() *trimFilter { return &trimFilter{Base: form.NewBase("trim")} }

func (p *trimFilter) Filter(_ *form.Context, value any) any {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return value
}

type requiredConstraint struct{ form.Base }

func newRequired() *requiredConstraint {
	return &requiredConstraint{Base: form.NewBase("required")}
}

func (p *requiredConstraint) Constrain(_ *form.Context, value any) error {
	if value == nil || value == "" {
		return errors.New("This field is required")
	}
	return nil
}

type funcConstraint struct {
	form.Base
	fn func(ctx *form.Context, value any) error
}

func newConstraint(typ string, fn func(ctx *form.Context, value any) error) *funcConstraint {
	return &funcConstraint{Base: form.NewBase(typ), fn: fn}
}

func (p *funcConstraint) Constrain(ctx *form.Context, value any) error {
	return p.fn(ctx, value)
}

type intInflator struct {
	form.Base
	calls int
}

func newIntInflator() *intInflator { return &intInflator{Base: form.NewBase("integer")} }

func (p *intInflator) Inflate(_ *form.Context, value any) (any, error) {
	p.calls++
	s, _ := value.(string)
	n, err := strconv.Atoi(s)
	if err != nil {
		return value, errors.New("not an integer")
	}
	return n, nil
}

type countingValidator struct {
	form.Base
	calls int
	err   error
}

func newValidator(err error) *countingValidator {
	return &countingValidator{Base: form.NewBase("callback"), err: err}
}

func (p *countingValidator) Validate(_ *form.Context, _ any) error {
	p.calls++
	return p.err
}

type funcTransformer struct {
	form.Base
	calls int
	fn    func(value any) (any, error)
}

func newTransformer(fn func(value any) (any, error)) *funcTransformer {
	return &funcTransformer{Base: form.NewBase("callback"), fn: fn}
}

func (p *funcTransformer) Transform(_ *form.Context, value any) (any, error) {
	p.calls++
	return p.fn(value)
}

type brokenQuery struct{}

func (brokenQuery) Has(string) bool          { return false }
func (brokenQuery) Names() ([]string, error) { return nil, errors.New("cannot enumerate") }
func (brokenQuery) Values(string) []any      { return nil }

func process(t *testing.T, f *form.Form, values url.Values) {
	t.Helper()
	if err := f.Process(query.FromValues(values)); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
}

func errorSummary(f *form.Form) []string {
	var out []string
	for _, e := range f.Errors().All() {
		out = append(out, e.Name()+":"+string(e.Stage)+":"+e.Type+":"+e.Message)
	}
	return out
}
