package form

import (
	"errors"
	"fmt"
)

var (
	// ErrConstraint matches every error reported by the constraint stage.
	ErrConstraint = errors.New("form: constraint failed")
	// ErrInflator matches every error reported by the inflator stage.
	ErrInflator = errors.New("form: inflation failed")
	// ErrValidator matches every error reported by the validator stage.
	ErrValidator = errors.New("form: validation failed")
	// ErrTransformer matches every error reported by the transformer stage.
	ErrTransformer = errors.New("form: transformation failed")
	// ErrQueryMalformed is returned by Process when the query cannot be
	// enumerated. It is the only fatal processing error.
	ErrQueryMalformed = errors.New("form: query malformed")
)

func sentinel(stage Stage) error {
	switch stage {
	case StageConstraint:
		return ErrConstraint
	case StageInflator:
		return ErrInflator
	case StageValidator:
		return ErrValidator
	case StageTransformer:
		return ErrTransformer
	default:
		return nil
	}
}

// Error is a processing error attached to a field.
type Error struct {
	Stage     Stage
	Type      string
	Message   string
	Field     *Field
	Processor Processor
	Err       error
}

// NewError returns an error for stage with the given message. Processors may
// return it to pin the error to another field (see Field).
func NewError(stage Stage, message string) *Error {
	return &Error{Stage: stage, Message: message}
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Type != "":
		return fmt.Sprintf("form: %s %s failed", e.Type, e.Stage)
	default:
		return fmt.Sprintf("form: %s failed", e.Stage)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the stage sentinel of e.
func (e *Error) Is(target error) bool {
	s := sentinel(e.Stage)
	return s != nil && target == s
}

// Name returns the nested name of the field the error is attached to.
func (e *Error) Name() string {
	if e == nil || e.Field == nil {
		return ""
	}
	return e.Field.NestedName()
}

// ErrorFilter narrows ErrorCollector.Filter. Zero fields match everything.
type ErrorFilter struct {
	Name  string
	Stage Stage
	Type  string
}

func (f ErrorFilter) match(e *Error) bool {
	if f.Name != "" && e.Name() != f.Name {
		return false
	}
	if f.Stage != "" && e.Stage != f.Stage {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	return true
}

// ErrorCollector holds the errors of one processing pass, bucketed by field.
type ErrorCollector struct {
	all     []*Error
	buckets map[*Field][]*Error
}

func newErrorCollector() *ErrorCollector {
	return &ErrorCollector{buckets: make(map[*Field][]*Error)}
}

// Add appends err to the bucket of err.Field.
func (c *ErrorCollector) Add(err *Error) {
	if err == nil {
		return
	}
	if c.buckets == nil {
		c.buckets = make(map[*Field][]*Error)
	}
	c.all = append(c.all, err)
	c.buckets[err.Field] = append(c.buckets[err.Field], err)
}

// Len returns the number of collected errors.
func (c *ErrorCollector) Len() int {
	if c == nil {
		return 0
	}
	return len(c.all)
}

// All returns every error in the order it was collected.
func (c *ErrorCollector) All() []*Error {
	if c == nil {
		return nil
	}
	return append([]*Error(nil), c.all...)
}

// For returns the errors attached to field.
func (c *ErrorCollector) For(field *Field) []*Error {
	if c == nil {
		return nil
	}
	return append([]*Error(nil), c.buckets[field]...)
}

// Has reports whether field carries at least one error.
func (c *ErrorCollector) Has(field *Field) bool {
	return c != nil && len(c.buckets[field]) > 0
}

// Names returns the distinct nested names carrying errors, in collection
// order.
func (c *ErrorCollector) Names() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(c.buckets))
	var out []string
	for _, e := range c.all {
		name := e.Name()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Filter returns the errors matching filter.
func (c *ErrorCollector) Filter(filter ErrorFilter) []*Error {
	if c == nil {
		return nil
	}
	var out []*Error
	for _, e := range c.all {
		if filter.match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Err joins every collected error, or returns nil.
func (c *ErrorCollector) Err() error {
	if c.Len() == 0 {
		return nil
	}
	errs := make([]error, len(c.all))
	for i, e := range c.all {
		errs[i] = e
	}
	return errors.Join(errs...)
}

func (c *ErrorCollector) reset() {
	c.all = nil
	c.buckets = make(map[*Field][]*Error)
}

// splitErrors flattens errors.Join trees. *Error values are never split.
func splitErrors(err error) []error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return []error{err}
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, inner := range joined.Unwrap() {
			out = append(out, splitErrors(inner)...)
		}
		return out
	}
	return []error{err}
}

type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("form: processor panicked: %v", p.value)
}

// guard runs fn, turning a panic into a returned error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return fn()
}
