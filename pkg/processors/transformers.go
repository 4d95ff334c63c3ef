package processors

import (
	"strings"

	"github.com/goliatone/go-formproc/pkg/form"
)

// CallbackValidator delegates to a function. Clones share it.
type CallbackValidator struct {
	form.Base
	Fn CheckFunc
}

// NewCallbackValidator wraps fn.
func NewCallbackValidator(fn CheckFunc) *CallbackValidator {
	return &CallbackValidator{Base: form.NewBase("callback"), Fn: fn}
}

// Validate implements form.Validator.
func (p *CallbackValidator) Validate(ctx *form.Context, value any) error {
	if p.Fn == nil {
		return nil
	}
	return p.Fn(ctx, value)
}

// CallbackTransformer delegates to a function. Clones share it.
type CallbackTransformer struct {
	form.Base
	Fn ConvertFunc
}

// NewCallbackTransformer wraps fn.
func NewCallbackTransformer(fn ConvertFunc) *CallbackTransformer {
	return &CallbackTransformer{Base: form.NewBase("callback"), Fn: fn}
}

// Transform implements form.Transformer.
func (p *CallbackTransformer) Transform(ctx *form.Context, value any) (any, error) {
	if p.Fn == nil {
		return value, nil
	}
	return p.Fn(ctx, value)
}

// Join turns a multi-value into a single string.
type Join struct {
	form.Base
	Separator string
}

// NewJoin returns the join transformer. The default separator is ", ".
func NewJoin(separator string) *Join {
	if separator == "" {
		separator = ", "
	}
	return &Join{Base: form.NewBase("join"), Separator: separator}
}

// HandlesMultiValue implements form.MultiValueHandler.
func (*Join) HandlesMultiValue() bool { return true }

// Transform implements form.Transformer.
func (p *Join) Transform(_ *form.Context, value any) (any, error) {
	list, ok := value.([]any)
	if !ok {
		return value, nil
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		parts = append(parts, text(item))
	}
	return strings.Join(parts, p.Separator), nil
}
