package form

import (
	"reflect"

	"github.com/goliatone/go-formproc/pkg/query"
)

// Stage names one phase of the processing pipeline.
type Stage string

const (
	StageFilter      Stage = "filter"
	StageConstraint  Stage = "constraint"
	StageInflator    Stage = "inflator"
	StageValidator   Stage = "validator"
	StageTransformer Stage = "transformer"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageFilter, StageConstraint, StageInflator, StageValidator, StageTransformer}

// Processor is the contract shared by every stage processor. Implementations
// embed Base, which supplies everything but Type.
type Processor interface {
	// Type returns the registry tag of the processor ("required", "trim").
	Type() string
	// Parent returns the field the processor is attached to.
	Parent() *Field
	// When returns the gating condition, or nil.
	When() Condition
	// Message returns the error message override, or "".
	Message() string

	base() *Base
}

// Base carries the state common to all processors. Embed it by value and use
// the processor through a pointer.
type Base struct {
	tag     string
	when    Condition
	message string
	parent  *Field
}

// NewBase returns a Base tagged with typ.
func NewBase(typ string) Base {
	return Base{tag: typ}
}

// Type implements Processor.
func (b *Base) Type() string { return b.tag }

// Parent implements Processor.
func (b *Base) Parent() *Field { return b.parent }

// When implements Processor.
func (b *Base) When() Condition { return b.when }

// Message implements Processor.
func (b *Base) Message() string { return b.message }

// SetType overrides the registry tag.
func (b *Base) SetType(typ string) { b.tag = typ }

// SetWhen attaches a gating condition. A nil condition removes it.
func (b *Base) SetWhen(cond Condition) { b.when = cond }

// SetMessage overrides the message of every error the processor reports.
func (b *Base) SetMessage(message string) { b.message = message }

func (b *Base) base() *Base { return b }

// Filter rewrites a submitted value in place. Filters cannot fail.
type Filter interface {
	Processor
	Filter(ctx *Context, value any) any
}

// Constraint checks the structural shape of a submitted value. Constraints run
// for every field, present or not.
type Constraint interface {
	Processor
	Constrain(ctx *Context, value any) error
}

// PreProcessor is implemented by constraints that need to prepare state (for
// example resolving sibling fields) before the constraint runs.
type PreProcessor interface {
	PreProcess(ctx *Context)
}

// Inflator converts a raw value into a richer one. The returned value is
// written back even when an error is returned.
type Inflator interface {
	Processor
	Inflate(ctx *Context, value any) (any, error)
}

// Validator runs business rules against an inflated value.
type Validator interface {
	Processor
	Validate(ctx *Context, value any) error
}

// Transformer produces the final value of a field. The returned value replaces
// the current one only when no error is returned.
type Transformer interface {
	Processor
	Transform(ctx *Context, value any) (any, error)
}

// Dependent is implemented by processors that read the values of other
// fields, named as in Context.Lookup.
type Dependent interface {
	Dependencies() []string
}

// MultiValueHandler is implemented by processors that want the whole []any of
// a multi-valued field instead of being applied per element.
type MultiValueHandler interface {
	HandlesMultiValue() bool
}

// Cloner lets a processor control how it is copied when a form or field is
// cloned. The default is a struct copy whose exported slice and map fields are
// copied too; pointers and functions stay shared.
type Cloner interface {
	CloneProcessor() Processor
}

// Context is handed to processors and conditions while a form is processed.
type Context struct {
	Form   *Form
	Field  *Field
	Params map[string]any
	Query  query.Query
}

// Lookup returns the processed value of another field, addressed by field
// name or nested name.
func (c *Context) Lookup(name string) (any, bool) {
	if c == nil || c.Form == nil {
		return nil, false
	}
	path := name
	if fld := c.Form.Field(name); fld != nil {
		path = fld.NestedName()
	}
	return c.Form.store.Get(c.Params, path)
}

// Raw returns the submitted values of name as found in the query.
func (c *Context) Raw(name string) []any {
	if c == nil || c.Query == nil {
		return nil
	}
	return c.Query.Values(name)
}

func handlesMultiValue(p Processor) bool {
	h, ok := p.(MultiValueHandler)
	return ok && h.HandlesMultiValue()
}

// eachValue applies fn to value, or to each element of a []any value unless
// the processor handles multi-values itself. The first error wins.
func eachValue(p Processor, value any, fn func(any) (any, error)) (any, error) {
	list, ok := value.([]any)
	if !ok || handlesMultiValue(p) {
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

// cloneProcessor copies p and detaches the copy from its field.
func cloneProcessor[P Processor](p P) P {
	var out Processor = p
	if c, ok := any(p).(Cloner); ok {
		out = c.CloneProcessor()
	} else {
		v := reflect.ValueOf(p)
		if v.Kind() == reflect.Pointer && !v.IsNil() {
			cp := reflect.New(v.Elem().Type())
			cp.Elem().Set(v.Elem())
			if cp.Elem().Kind() == reflect.Struct {
				detachContainers(cp.Elem())
			}
			out = cp.Interface().(Processor)
		}
	}
	b := out.base()
	b.parent = nil
	if w, ok := b.when.(*When); ok && w != nil {
		b.when = w.clone()
	}
	typed, ok := out.(P)
	if !ok {
		return p
	}
	return typed
}

// detachContainers replaces the exported slice and map fields of the struct v
// with copies. Elements are copied by value.
func detachContainers(v reflect.Value) {
	for i := 0; i < v.NumField(); i++ {
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		switch fv.Kind() {
		case reflect.Slice:
			if fv.IsNil() {
				continue
			}
			cp := reflect.MakeSlice(fv.Type(), fv.Len(), fv.Len())
			reflect.Copy(cp, fv)
			fv.Set(cp)
		case reflect.Map:
			if fv.IsNil() {
				continue
			}
			cp := reflect.MakeMapWithSize(fv.Type(), fv.Len())
			iter := fv.MapRange()
			for iter.Next() {
				cp.SetMapIndex(iter.Key(), iter.Value())
			}
			fv.Set(cp)
		}
	}
}
