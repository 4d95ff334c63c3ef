package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formproc/pkg/nested"
	"github.com/goliatone/go-formproc/pkg/query"
)

// Process runs the pipeline over q:
//
//	BuildParams -> ProcessFileUploads -> Filter -> Constrain
//	  -> (no errors) Inflate -> (no errors) Validate -> (no errors) Transform
//	  -> BuildValidNames
//
// Inflators, validators and transformers also skip fields that already carry
// errors. Processor failures are recorded on their field and never abort the
// run. The only error returned wraps ErrQueryMalformed, and it is returned
// before any state is touched. A nil q is treated as an empty submission.
func (f *Form) Process(q query.Query) error {
	if q == nil {
		q = query.Empty
	}
	if _, err := q.Names(); err != nil {
		return fmt.Errorf("%w: %w", ErrQueryMalformed, err)
	}

	f.resetState(q)
	logger := f.log()

	f.submitted = f.indicate(q)
	if !f.submitted {
		logger.Debug("form not submitted")
		return nil
	}

	f.buildParams(q)
	f.processUploads(q)
	f.filter()
	f.constrain()
	if f.errors.Len() == 0 {
		f.inflate()
	}
	if f.errors.Len() == 0 {
		f.validate()
	}
	if f.errors.Len() == 0 {
		f.transform()
	}
	f.buildValidNames()

	logger.Debug("form processed",
		"valid", len(f.valid),
		"errors", f.errors.Len(),
	)
	return nil
}

func (f *Form) buildParams(q query.Query) {
	for _, fld := range f.Fields() {
		name := fld.NestedName()
		if name == "" || f.store.Exists(f.params, name) {
			continue
		}
		if !q.Has(name) {
			if fld.DefaultEmptyValue {
				f.store.Set(f.params, name, "")
			}
			continue
		}
		values := q.Values(name)
		var value any
		switch {
		case len(values) == 1 && !fld.MultiValue:
			value = values[0]
		default:
			// element-wise copy; upload handles are not deep-cloned
			list := make([]any, len(values))
			copy(list, values)
			value = list
		}
		f.store.Set(f.params, name, value)
	}
}

func (f *Form) processUploads(q query.Query) {
	typ := f.queryType
	if typ == "" {
		typ = query.TypeOf(q)
	}
	parser := f.uploadParsers[typ]
	if parser == nil {
		return
	}
	seen := make(map[string]struct{})
	for _, fld := range f.Fields() {
		if !fld.Upload {
			continue
		}
		name := fld.NestedName()
		if _, ok := seen[name]; ok || !f.store.Exists(f.params, name) {
			continue
		}
		seen[name] = struct{}{}
		value, err := parser.ParseUploads(q, name)
		if err != nil {
			f.log().Warn("upload parse failed", "field", name, "query_type", typ, "error", err)
			continue
		}
		if value == nil {
			continue
		}
		if _, list := value.([]any); !list && fld.MultiValue {
			value = []any{value}
		}
		f.store.Set(f.params, name, value)
	}
}

func (f *Form) context(fld *Field) *Context {
	return &Context{Form: f, Field: fld, Params: f.params, Query: f.query}
}

func (f *Form) value(fld *Field) (string, any, bool) {
	name := fld.NestedName()
	if name == "" {
		return name, nil, false
	}
	v, ok := f.store.Get(f.params, name)
	return name, v, ok
}

func (f *Form) skip(p Processor, ctx *Context) bool {
	cond := p.When()
	if cond == nil {
		return false
	}
	if w, ok := cond.(*When); ok && w == nil {
		return false
	}
	return !cond.Evaluate(ctx)
}

func (f *Form) filter() {
	for _, fld := range f.Fields() {
		for _, p := range fld.filters {
			name, value, ok := f.value(fld)
			if !ok {
				break
			}
			ctx := f.context(fld)
			if f.skip(p, ctx) {
				continue
			}
			var out any
			err := guard(func() error {
				out, _ = eachValue(p, value, func(v any) (any, error) {
					return p.Filter(ctx, v), nil
				})
				return nil
			})
			if err != nil {
				f.log().Warn("filter failed", "field", name, "type", p.Type(), "error", err)
				continue
			}
			f.store.Set(f.params, name, out)
		}
	}
}

func (f *Form) constrain() {
	for _, fld := range f.Fields() {
		for _, p := range fld.constraints {
			ctx := f.context(fld)
			if f.skip(p, ctx) {
				continue
			}
			err := guard(func() error {
				if pre, ok := p.(PreProcessor); ok {
					pre.PreProcess(ctx)
				}
				_, value, _ := f.value(fld)
				_, err := eachValue(p, value, func(v any) (any, error) {
					return v, p.Constrain(ctx, v)
				})
				return err
			})
			f.record(StageConstraint, fld, p, err)
		}
	}
}

func (f *Form) inflate() {
	for _, fld := range f.Fields() {
		for _, p := range fld.inflators {
			if f.errors.Has(fld) {
				break
			}
			name, value, ok := f.value(fld)
			if !ok {
				break
			}
			ctx := f.context(fld)
			if f.skip(p, ctx) {
				continue
			}
			var out any
			err := guard(func() error {
				var err error
				out, err = eachValue(p, value, func(v any) (any, error) {
					return p.Inflate(ctx, v)
				})
				return err
			})
			if _, panicked := err.(*panicError); !panicked {
				f.store.Set(f.params, name, out)
			}
			f.record(StageInflator, fld, p, err)
		}
	}
}

func (f *Form) validate() {
	for _, fld := range f.Fields() {
		for _, p := range fld.validators {
			if f.errors.Has(fld) {
				break
			}
			_, value, ok := f.value(fld)
			if !ok {
				break
			}
			ctx := f.context(fld)
			if f.skip(p, ctx) {
				continue
			}
			err := guard(func() error {
				_, err := eachValue(p, value, func(v any) (any, error) {
					return v, p.Validate(ctx, v)
				})
				return err
			})
			f.record(StageValidator, fld, p, err)
		}
	}
}

func (f *Form) transform() {
	for _, fld := range f.Fields() {
		for _, p := range fld.transformers {
			if f.errors.Has(fld) {
				break
			}
			name, value, ok := f.value(fld)
			if !ok {
				break
			}
			ctx := f.context(fld)
			if f.skip(p, ctx) {
				continue
			}
			var out any
			err := guard(func() error {
				var err error
				out, err = eachValue(p, value, func(v any) (any, error) {
					return p.Transform(ctx, v)
				})
				return err
			})
			if err == nil {
				f.store.Set(f.params, name, out)
			}
			f.record(StageTransformer, fld, p, err)
		}
	}
}

// record normalises err into *Error values of stage, stamps the parent field
// and originating processor when unset, and collects them.
func (f *Form) record(stage Stage, fld *Field, p Processor, err error) {
	for _, e := range splitErrors(err) {
		var pe *panicError
		if errors.As(e, &pe) {
			f.log().Warn("processor panicked",
				"stage", string(stage),
				"type", p.Type(),
				"field", fld.NestedName(),
				"panic", pe.value,
			)
		}

		fe, ok := e.(*Error)
		if !ok || (fe.Stage != "" && fe.Stage != stage) {
			fe = &Error{Stage: stage, Err: e}
		} else {
			// returned errors may be shared values; stamp a copy
			cp := *fe
			fe = &cp
		}
		if fe.Stage == "" {
			fe.Stage = stage
		}
		if fe.Field == nil {
			fe.Field = fld
		}
		if fe.Processor == nil {
			fe.Processor = p
		}
		if fe.Type == "" && fe.Processor != nil {
			fe.Type = fe.Processor.Type()
		}
		fe.Message = f.message(fe)
		f.errors.Add(fe)
	}
}

// message picks the text of e: the processor override, then an inherited
// "message.<type>" attribute, then whatever the error already says.
func (f *Form) message(e *Error) string {
	if e.Processor != nil {
		if msg := e.Processor.Message(); msg != "" {
			return msg
		}
	}
	if e.Type != "" {
		if v, ok := f.Resolve(e.Field, "message."+e.Type); ok {
			if msg, isString := v.(string); isString && msg != "" {
				return msg
			}
		}
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

func (f *Form) buildValidNames() {
	errored := make(map[string]struct{})
	for _, name := range f.errors.Names() {
		errored[name] = struct{}{}
	}

	var names []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		if _, bad := errored[name]; bad {
			return
		}
		if f.ignoreUnderscore && private(name) {
			return
		}
		names = append(names, name)
	}

	var claimed []string
	for _, fld := range f.Fields() {
		name := fld.NestedName()
		if name == "" {
			continue
		}
		claimed = append(claimed, name)
		if fld.NonParam {
			f.nonParam[name] = struct{}{}
			add(name)
			continue
		}
		if f.store.Exists(f.params, name) {
			add(name)
		}
	}

	for _, path := range f.store.Paths(f.params) {
		if isClaimed(path, claimed) {
			continue
		}
		add(path)
	}

	f.valid = names
	for _, name := range names {
		f.validSet[name] = struct{}{}
	}
}

func isClaimed(path string, claimed []string) bool {
	segments := nested.Split(path)
	for _, name := range claimed {
		prefix := nested.Split(name)
		if len(prefix) > len(segments) {
			continue
		}
		match := true
		for i := range prefix {
			if prefix[i] != segments[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func private(name string) bool {
	for _, segment := range nested.Split(name) {
		if strings.HasPrefix(segment, "_") {
			return true
		}
	}
	return false
}
