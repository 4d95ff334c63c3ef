package form

import (
	"github.com/goliatone/go-formproc/pkg/query"
)

// indicate decides whether q is a submission of the form. An explicit field
// indicator wins over a callback; without either, any field with a value
// counts.
func (f *Form) indicate(q query.Query) bool {
	switch {
	case f.indicator != "":
		name := f.indicator
		if fld := f.Field(name); fld != nil && !fld.IsBlock() {
			name = fld.NestedName()
		}
		return q.Has(name)
	case f.indicatorFunc != nil:
		return f.indicatorFunc(f, q)
	}
	for _, fld := range f.Fields() {
		if name := fld.NestedName(); name != "" && q.Has(name) {
			return true
		}
	}
	return false
}
