package form

import (
	"fmt"

	"github.com/goliatone/go-formproc/pkg/nested"
)

// Submitted reports whether the last Process saw a submission.
func (f *Form) Submitted() bool { return f.submitted }

// SubmittedAndValid is the usual gate after Process.
func (f *Form) SubmittedAndValid() bool {
	return f.submitted && f.errors.Len() == 0
}

// Errors returns the collector of the last Process.
func (f *Form) Errors() *ErrorCollector { return f.errors }

// GetErrors returns the errors matching filter.
func (f *Form) GetErrors(filter ErrorFilter) []*Error {
	return f.errors.Filter(filter)
}

// Params returns a tree holding every valid name and its value. It is empty
// when the form was not submitted. NonParam fields are never included.
func (f *Form) Params() map[string]any {
	out := make(map[string]any)
	if !f.submitted {
		return out
	}
	for _, name := range f.valid {
		if _, skip := f.nonParam[name]; skip {
			continue
		}
		if v, ok := f.store.Get(f.params, name); ok {
			f.store.Set(out, name, nested.Clone(v))
		}
	}
	return out
}

// Param returns the processed value of a valid name as is: a scalar, a []any
// or a subtree. A subtree holds the same names Params does, so non-param and
// private children never show up in it.
func (f *Form) Param(name string) any {
	name = f.store.Normalize(name)
	if !f.Valid(name) {
		return nil
	}
	if _, skip := f.nonParam[name]; skip {
		return nil
	}
	if _, leaf := f.validSet[name]; leaf {
		v, _ := f.store.Get(f.params, name)
		return v
	}
	v, _ := f.store.Get(f.Params(), name)
	return v
}

// ParamValue returns a single value for name: the first element when the
// value is a list. It is nil for invalid or unsubmitted names.
func (f *Form) ParamValue(name string) any {
	v := f.Param(name)
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil
		}
		return list[0]
	}
	return v
}

// ParamArray always returns a slice: empty for invalid names, one element for
// scalars.
func (f *Form) ParamArray(name string) []any {
	v := f.Param(name)
	switch typed := v.(type) {
	case nil:
		return []any{}
	case []any:
		return append([]any{}, typed...)
	default:
		return []any{typed}
	}
}

// ParamList is ParamArray with every element formatted as a string.
func (f *Form) ParamList(name string) []string {
	values := f.ParamArray(name)
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	return out
}

// ValidNames returns the names computed by the last Process (plus AddValid).
func (f *Form) ValidNames() []string {
	return append([]string(nil), f.valid...)
}

// Valid reports whether name is a valid name. For a block, or a path prefix
// of valid names, it is true when every field below it is error-free.
func (f *Form) Valid(name string) bool {
	name = f.store.Normalize(name)
	if name == "" {
		return false
	}
	if _, ok := f.validSet[name]; ok {
		return true
	}
	if !f.submitted {
		return false
	}
	if fld := f.Field(name); fld != nil && fld.IsBlock() {
		for _, child := range fld.Descendants() {
			if f.errors.Has(child) {
				return false
			}
		}
		return true
	}
	below := false
	for _, valid := range f.valid {
		if isClaimed(valid, []string{name}) {
			below = true
			break
		}
	}
	if !below {
		return false
	}
	for _, bad := range f.errors.Names() {
		if isClaimed(bad, []string{name}) {
			return false
		}
	}
	return true
}

// HasErrors reports whether any of names carries errors. Without names it
// reports whether the form has any error. Blocks count errors below them.
func (f *Form) HasErrors(names ...string) bool {
	if len(names) == 0 {
		return f.errors.Len() > 0
	}
	errored := f.errors.Names()
	for _, name := range names {
		name = f.store.Normalize(name)
		if fld := f.Field(name); fld != nil {
			if fld.IsBlock() {
				for _, child := range fld.Descendants() {
					if f.errors.Has(child) {
						return true
					}
				}
				continue
			}
			if f.errors.Has(fld) {
				return true
			}
			continue
		}
		for _, bad := range errored {
			if isClaimed(bad, []string{name}) {
				return true
			}
		}
	}
	return false
}

// AddValid stores value under name and marks it valid without running the
// pipeline again.
func (f *Form) AddValid(name string, value any) {
	name = f.store.Normalize(name)
	if name == "" {
		return
	}
	f.store.Set(f.params, name, value)
	if _, ok := f.validSet[name]; ok {
		return
	}
	f.validSet[name] = struct{}{}
	f.valid = append(f.valid, name)
}
