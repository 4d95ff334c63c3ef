package processors

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formproc/pkg/form"
)

// ConvertFunc is the callback signature of callback inflators and
// transformers.
type ConvertFunc func(ctx *form.Context, value any) (any, error)

// Integer parses base-10 integers into int.
type Integer struct{ form.Base }

// NewIntegerInflator returns the integer inflator.
func NewIntegerInflator() *Integer { return &Integer{Base: form.NewBase("integer")} }

// Inflate implements form.Inflator.
func (p *Integer) Inflate(_ *form.Context, value any) (any, error) {
	if isEmpty(value) {
		return value, nil
	}
	if n, ok := value.(int); ok {
		return n, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(text(value)))
	if err != nil {
		return value, errors.New("Invalid number")
	}
	return n, nil
}

// Float parses decimal numbers into float64.
type Float struct{ form.Base }

// NewFloatInflator returns the float inflator.
func NewFloatInflator() *Float { return &Float{Base: form.NewBase("float")} }

// Inflate implements form.Inflator.
func (p *Float) Inflate(_ *form.Context, value any) (any, error) {
	if isEmpty(value) {
		return value, nil
	}
	n, ok := number(value)
	if !ok {
		return value, errors.New("Invalid number")
	}
	return n, nil
}

// Bool parses checkbox-style booleans ("on", "yes", "1", "true", ...).
type Bool struct{ form.Base }

// NewBoolInflator returns the bool inflator.
func NewBoolInflator() *Bool { return &Bool{Base: form.NewBase("bool")} }

// Inflate implements form.Inflator. An empty value inflates to false.
func (p *Bool) Inflate(_ *form.Context, value any) (any, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	switch strings.ToLower(strings.TrimSpace(text(value))) {
	case "", "0", "off", "no", "false", "f", "n":
		return false, nil
	case "1", "on", "yes", "true", "t", "y":
		return true, nil
	default:
		return value, errors.New("Invalid boolean")
	}
}

// DateTime parses values with Layouts, tried in order, into time.Time.
type DateTime struct {
	form.Base
	Layouts  []string
	Location *time.Location
}

// NewDateTimeInflator returns the datetime inflator. Without layouts RFC 3339
// and the HTML date/datetime-local formats are accepted.
func NewDateTimeInflator(layouts ...string) *DateTime {
	if len(layouts) == 0 {
		layouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}
	}
	return &DateTime{Base: form.NewBase("datetime"), Layouts: layouts}
}

// Inflate implements form.Inflator.
func (p *DateTime) Inflate(_ *form.Context, value any) (any, error) {
	if isEmpty(value) {
		return value, nil
	}
	if t, ok := value.(time.Time); ok {
		return t, nil
	}
	raw := strings.TrimSpace(text(value))
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range p.Layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return value, errors.New("Invalid date")
}

// Split turns a delimited string into a []any of trimmed, non-empty parts.
type Split struct {
	form.Base
	Separator string
}

// NewSplitInflator returns the split inflator. The default separator is ",".
func NewSplitInflator(separator string) *Split {
	if separator == "" {
		separator = ","
	}
	return &Split{Base: form.NewBase("split"), Separator: separator}
}

// Inflate implements form.Inflator.
func (p *Split) Inflate(_ *form.Context, value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	out := []any{}
	for _, part := range strings.Split(s, p.Separator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// CallbackInflator delegates to a function. Clones share it.
type CallbackInflator struct {
	form.Base
	Fn ConvertFunc
}

// NewCallbackInflator wraps fn.
func NewCallbackInflator(fn ConvertFunc) *CallbackInflator {
	return &CallbackInflator{Base: form.NewBase("callback"), Fn: fn}
}

// Inflate implements form.Inflator.
func (p *CallbackInflator) Inflate(ctx *form.Context, value any) (any, error) {
	if p.Fn == nil {
		return value, nil
	}
	return p.Fn(ctx, value)
}
