package processors

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/upload"
)

var integerPattern = regexp.MustCompile(`^[+-]?\d+$`)

// isEmpty reports whether value counts as "not submitted" for constraints.
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		for _, item := range v {
			if !isEmpty(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func text(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Required fails on absent or empty values. It sees multi-values whole: a
// list passes when one element is not empty.
type Required struct{ form.Base }

// NewRequired returns the required constraint.
func NewRequired() *Required { return &Required{Base: form.NewBase("required")} }

// HandlesMultiValue implements form.MultiValueHandler.
func (*Required) HandlesMultiValue() bool { return true }

// Constrain implements form.Constraint.
func (p *Required) Constrain(_ *form.Context, value any) error {
	if isEmpty(value) {
		return errors.New("This field is required")
	}
	return nil
}

// Length bounds the number of characters. A zero bound is not checked.
type Length struct {
	form.Base
	Min int
	Max int
}

// NewLength bounds both ends.
func NewLength(min, max int) *Length {
	return &Length{Base: form.NewBase("length"), Min: min, Max: max}
}

// NewMinLength bounds the lower end.
func NewMinLength(min int) *Length {
	return &Length{Base: form.NewBase("min_length"), Min: min}
}

// NewMaxLength bounds the upper end.
func NewMaxLength(max int) *Length {
	return &Length{Base: form.NewBase("max_length"), Max: max}
}

// Constrain implements form.Constraint.
func (p *Length) Constrain(_ *form.Context, value any) error {
	if isEmpty(value) {
		return nil
	}
	n := utf8.RuneCountInString(text(value))
	switch {
	case p.Min > 0 && p.Max > 0 && (n < p.Min || n > p.Max):
		return fmt.Errorf("Must be between %d and %d characters long", p.Min, p.Max)
	case p.Min > 0 && n < p.Min:
		return fmt.Errorf("Must be at least %d characters long", p.Min)
	case p.Max > 0 && n > p.Max:
		return fmt.Errorf("Must not be longer than %d characters", p.Max)
	}
	return nil
}

// Range bounds a numeric value. Nil bounds are not checked.
type Range struct {
	form.Base
	Min *float64
	Max *float64
}

// NewRange bounds both ends.
func NewRange(min, max float64) *Range {
	return &Range{Base: form.NewBase("range"), Min: &min, Max: &max}
}

// NewMinRange bounds the lower end.
func NewMinRange(min float64) *Range {
	return &Range{Base: form.NewBase("min_range"), Min: &min}
}

// NewMaxRange bounds the upper end.
func NewMaxRange(max float64) *Range {
	return &Range{Base: form.NewBase("max_range"), Max: &max}
}

// Constrain implements form.Constraint.
func (p *Range) Constrain(_ *form.Context, value any) error {
	if isEmpty(value) {
		return nil
	}
	n, ok := number(value)
	if !ok {
		return errors.New("This field must be a number")
	}
	switch {
	case p.Min != nil && p.Max != nil && (n < *p.Min || n > *p.Max):
		return fmt.Errorf("Must be between %s and %s", formatFloat(*p.Min), formatFloat(*p.Max))
	case p.Min != nil && n < *p.Min:
		return fmt.Errorf("Must be at least %s", formatFloat(*p.Min))
	case p.Max != nil && n > *p.Max:
		return fmt.Errorf("Must not be greater than %s", formatFloat(*p.Max))
	}
	return nil
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(text(value)), 64)
		return f, err == nil
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Pattern checks a value against a regular expression.
type Pattern struct {
	form.Base
	Expr    *regexp.Regexp
	message string
}

// NewPattern returns the regex constraint.
func NewPattern(expr *regexp.Regexp) *Pattern {
	return &Pattern{Base: form.NewBase("regex"), Expr: expr, message: "Invalid input"}
}

// NewInteger accepts optionally signed whole numbers.
func NewInteger() *Pattern {
	return &Pattern{Base: form.NewBase("integer"), Expr: integerPattern, message: "This field must be an integer"}
}

// Constrain implements form.Constraint.
func (p *Pattern) Constrain(_ *form.Context, value any) error {
	if isEmpty(value) || p.Expr == nil {
		return nil
	}
	if !p.Expr.MatchString(text(value)) {
		return errors.New(p.message)
	}
	return nil
}

// Number accepts anything strconv.ParseFloat does.
type Number struct{ form.Base }

// NewNumber returns the number constraint.
func NewNumber() *Number { return &Number{Base: form.NewBase("number")} }

// Constrain implements form.Constraint.
func (p *Number) Constrain(_ *form.Context, value any) error {
	if isEmpty(value) {
		return nil
	}
	if _, ok := number(value); !ok {
		return errors.New("This field must be a number")
	}
	return nil
}

// Email accepts a single RFC 5322 address without display name.
type Email struct{ form.Base }

// NewEmail returns the email constraint.
func NewEmail() *Email { return &Email{Base: form.NewBase("email")} }

// Constrain implements form.Constraint.
func (p *Email) Constrain(_ *form.Context, value any) error {
	if isEmpty(value) {
		return nil
	}
	raw := strings.TrimSpace(text(value))
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".") {
		return errors.New("This field must contain an email address")
	}
	return nil
}

// Set accepts only listed values, compared as strings.
type Set struct {
	form.Base
	Values []string
}

// NewSet returns the set constraint.
func NewSet(values ...string) *Set {
	return &Set{Base: form.NewBase("set"), Values: values}
}

// Constrain implements form.Constraint.
func (p *Set) Constrain(_ *form.Context, value any) error {
	if isEmpty(value) {
		return nil
	}
	got := text(value)
	for _, allowed := range p.Values {
		if got == allowed {
			return nil
		}
	}
	return errors.New("Field contains an invalid choice")
}

// Equal requires the value to equal each of the Others fields.
type Equal struct {
	form.Base
	Others []string
}

// NewEqual returns the equal constraint.
func NewEqual(others ...string) *Equal {
	return &Equal{Base: form.NewBase("equal"), Others: others}
}

// HandlesMultiValue implements form.MultiValueHandler.
func (*Equal) HandlesMultiValue() bool { return true }

// Dependencies implements form.Dependent.
func (p *Equal) Dependencies() []string { return p.Others }

// Constrain implements form.Constraint.
func (p *Equal) Constrain(ctx *form.Context, value any) error {
	if isEmpty(value) {
		return nil
	}
	for _, name := range p.Others {
		other, _ := ctx.Lookup(name)
		if text(other) != text(value) {
			return errors.New("Does not match")
		}
	}
	return nil
}

// DependOn requires the Others fields whenever this field has a value. The
// errors are attached to the missing fields.
type DependOn struct {
	form.Base
	Others []string
}

// NewDependOn returns the depend_on constraint.
func NewDependOn(others ...string) *DependOn {
	return &DependOn{Base: form.NewBase("depend_on"), Others: others}
}

// HandlesMultiValue implements form.MultiValueHandler.
func (*DependOn) HandlesMultiValue() bool { return true }

// Dependencies implements form.Dependent.
func (p *DependOn) Dependencies() []string { return p.Others }

// Constrain implements form.Constraint.
func (p *DependOn) Constrain(ctx *form.Context, value any) error {
	if isEmpty(value) {
		return nil
	}
	var errs []error
	for _, name := range p.Others {
		other, _ := ctx.Lookup(name)
		if !isEmpty(other) {
			continue
		}
		e := form.NewError(form.StageConstraint, "This field is required")
		e.Field = ctx.Form.Field(name)
		if e.Field == nil {
			e.Field = ctx.Field
		}
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// File checks uploaded files. Zero limits and an empty MIME list are not
// checked. Values that are not *upload.File fail.
type File struct {
	form.Base
	MaxSize   int64
	MinSize   int64
	MIMETypes []string
}

// NewFile returns the file constraint.
func NewFile() *File { return &File{Base: form.NewBase("file")} }

// Constrain implements form.Constraint.
func (p *File) Constrain(_ *form.Context, value any) error {
	if isEmpty(value) {
		return nil
	}
	file, ok := value.(*upload.File)
	if !ok {
		return errors.New("This field must be a file upload")
	}
	if p.MaxSize > 0 && file.Size > p.MaxSize {
		return fmt.Errorf("file size %d exceeds limit of %d bytes", file.Size, p.MaxSize)
	}
	if p.MinSize > 0 && file.Size < p.MinSize {
		return fmt.Errorf("file size %d is below minimum of %d bytes", file.Size, p.MinSize)
	}
	if len(p.MIMETypes) > 0 {
		for _, allowed := range p.MIMETypes {
			if strings.EqualFold(allowed, file.MIME) {
				return nil
			}
		}
		return fmt.Errorf("file type %s is not allowed", file.MIME)
	}
	return nil
}

// CheckFunc is the callback signature of callback constraints and
// validators.
type CheckFunc func(ctx *form.Context, value any) error

// CallbackConstraint delegates to a function. Clones share it.
type CallbackConstraint struct {
	form.Base
	Fn CheckFunc
}

// NewCallbackConstraint wraps fn.
func NewCallbackConstraint(fn CheckFunc) *CallbackConstraint {
	return &CallbackConstraint{Base: form.NewBase("callback"), Fn: fn}
}

// Constrain implements form.Constraint.
func (p *CallbackConstraint) Constrain(ctx *form.Context, value any) error {
	if p.Fn == nil {
		return nil
	}
	return p.Fn(ctx, value)
}
