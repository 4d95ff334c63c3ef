package form

import (
	"github.com/goliatone/go-formproc/pkg/nested"
)

// Field is a named input of a form. A field with children is a block: it has
// no value of its own and, when Nested is set, prefixes the nested names of
// its descendants with its own name.
type Field struct {
	Name string
	// MultiValue keeps the submitted value as a []any even when a single
	// value was sent.
	MultiValue bool
	// DefaultEmptyValue makes an absent field count as submitted with "".
	DefaultEmptyValue bool
	// NonParam fields are processed and tracked as valid or invalid but never
	// appear in Params.
	NonParam bool
	// Upload marks fields whose values are replaced by the upload parser.
	Upload bool
	// Nested applies to blocks only.
	Nested bool
	// Attributes hold arbitrary settings resolved through Form.Resolve, e.g.
	// "message.required".
	Attributes map[string]any
	Children   []*Field

	filters      []Filter
	constraints  []Constraint
	inflators    []Inflator
	validators   []Validator
	transformers []Transformer

	parent *Field
	form   *Form
	index  int
}

// NewField returns a field named name.
func NewField(name string) *Field {
	return &Field{Name: name}
}

// NewBlock returns a nested block holding children.
func NewBlock(name string, children ...*Field) *Field {
	block := &Field{Name: name, Nested: name != ""}
	for _, child := range children {
		block.AddChild(child)
	}
	return block
}

// Form returns the form the field belongs to.
func (fld *Field) Form() *Form { return fld.form }

// Parent returns the enclosing block, or nil for top-level fields.
func (fld *Field) Parent() *Field { return fld.parent }

// IsBlock reports whether the field is a container.
func (fld *Field) IsBlock() bool { return len(fld.Children) > 0 }

// NestedName returns the full path of the field in the params tree.
func (fld *Field) NestedName() string {
	if fld == nil {
		return ""
	}
	var segments []string
	for p := fld.parent; p != nil; p = p.parent {
		if p.Nested && p.Name != "" {
			segments = append([]string{p.Name}, segments...)
		}
	}
	store := nested.Store{}
	if fld.form != nil {
		store = fld.form.store
		if fld.form.nestedName != "" {
			segments = append([]string{fld.form.nestedName}, segments...)
		}
	}
	if fld.Name == "" {
		return ""
	}
	segments = append(segments, fld.Name)
	return store.Join(segments...)
}

// IsNested reports whether the nested name is a path of more than one
// segment.
func (fld *Field) IsNested() bool {
	return len(nested.Split(fld.NestedName())) > 1
}

// AddChild appends child to the block and returns the block.
func (fld *Field) AddChild(child *Field) *Field {
	if child == nil {
		return fld
	}
	child.parent = fld
	fld.Children = append(fld.Children, child)
	if fld.form != nil {
		child.attach(fld.form)
		fld.form.dirty = true
	}
	return fld
}

// Descendants returns every non-block field below fld, depth first.
func (fld *Field) Descendants() []*Field {
	var out []*Field
	for _, child := range fld.Children {
		if child.IsBlock() {
			out = append(out, child.Descendants()...)
			continue
		}
		out = append(out, child)
	}
	return out
}

// Errors returns the errors attached to the field by the last Process.
func (fld *Field) Errors() []*Error {
	if fld.form == nil {
		return nil
	}
	return fld.form.errors.For(fld)
}

// HasErrors reports whether the field carries errors.
func (fld *Field) HasErrors() bool {
	return fld.form != nil && fld.form.errors.Has(fld)
}

// AddFilter attaches filters in order. On a block, each descendant field
// existing at that moment receives its own copy, as with the other Add
// methods; the block itself keeps nothing.
func (fld *Field) AddFilter(filters ...Filter) *Field {
	for _, p := range filters {
		if fld.IsBlock() {
			for _, child := range fld.Descendants() {
				child.AddFilter(cloneProcessor(p))
			}
			continue
		}
		p.base().parent = fld
		fld.filters = append(fld.filters, p)
	}
	return fld
}

// AddConstraint attaches constraints in order.
func (fld *Field) AddConstraint(constraints ...Constraint) *Field {
	for _, p := range constraints {
		if fld.IsBlock() {
			for _, child := range fld.Descendants() {
				child.AddConstraint(cloneProcessor(p))
			}
			continue
		}
		p.base().parent = fld
		fld.constraints = append(fld.constraints, p)
	}
	return fld
}

// AddInflator attaches inflators in order.
func (fld *Field) AddInflator(inflators ...Inflator) *Field {
	for _, p := range inflators {
		if fld.IsBlock() {
			for _, child := range fld.Descendants() {
				child.AddInflator(cloneProcessor(p))
			}
			continue
		}
		p.base().parent = fld
		fld.inflators = append(fld.inflators, p)
	}
	return fld
}

// AddValidator attaches validators in order.
func (fld *Field) AddValidator(validators ...Validator) *Field {
	for _, p := range validators {
		if fld.IsBlock() {
			for _, child := range fld.Descendants() {
				child.AddValidator(cloneProcessor(p))
			}
			continue
		}
		p.base().parent = fld
		fld.validators = append(fld.validators, p)
	}
	return fld
}

// AddTransformer attaches transformers in order.
func (fld *Field) AddTransformer(transformers ...Transformer) *Field {
	for _, p := range transformers {
		if fld.IsBlock() {
			for _, child := range fld.Descendants() {
				child.AddTransformer(cloneProcessor(p))
			}
			continue
		}
		p.base().parent = fld
		fld.transformers = append(fld.transformers, p)
	}
	return fld
}

// Add attaches p to the list matching its stage. It reports false when p
// implements none of the stage interfaces.
func (fld *Field) Add(p Processor) bool {
	switch typed := p.(type) {
	case Filter:
		fld.AddFilter(typed)
	case Constraint:
		fld.AddConstraint(typed)
	case Inflator:
		fld.AddInflator(typed)
	case Validator:
		fld.AddValidator(typed)
	case Transformer:
		fld.AddTransformer(typed)
	default:
		return false
	}
	return true
}

func (fld *Field) Filters() []Filter           { return append([]Filter(nil), fld.filters...) }
func (fld *Field) Constraints() []Constraint   { return append([]Constraint(nil), fld.constraints...) }
func (fld *Field) Inflators() []Inflator       { return append([]Inflator(nil), fld.inflators...) }
func (fld *Field) Validators() []Validator     { return append([]Validator(nil), fld.validators...) }
func (fld *Field) Transformers() []Transformer { return append([]Transformer(nil), fld.transformers...) }

// Processors returns the processors attached for stage, in order.
func (fld *Field) Processors(stage Stage) []Processor {
	var out []Processor
	switch stage {
	case StageFilter:
		for _, p := range fld.filters {
			out = append(out, p)
		}
	case StageConstraint:
		for _, p := range fld.constraints {
			out = append(out, p)
		}
	case StageInflator:
		for _, p := range fld.inflators {
			out = append(out, p)
		}
	case StageValidator:
		for _, p := range fld.validators {
			out = append(out, p)
		}
	case StageTransformer:
		for _, p := range fld.transformers {
			out = append(out, p)
		}
	}
	return out
}

func (fld *Field) attach(f *Form) {
	fld.form = f
	for _, child := range fld.Children {
		child.parent = fld
		child.attach(f)
	}
}

// clone deep-copies the field and its subtree. Processors are copied and
// re-parented; callback references are shared.
func (fld *Field) clone() *Field {
	out := &Field{
		Name:              fld.Name,
		MultiValue:        fld.MultiValue,
		DefaultEmptyValue: fld.DefaultEmptyValue,
		NonParam:          fld.NonParam,
		Upload:            fld.Upload,
		Nested:            fld.Nested,
	}
	if fld.Attributes != nil {
		out.Attributes = nested.CloneMap(fld.Attributes)
	}
	for _, p := range fld.filters {
		out.AddFilter(cloneProcessor(p))
	}
	for _, p := range fld.constraints {
		out.AddConstraint(cloneProcessor(p))
	}
	for _, p := range fld.inflators {
		out.AddInflator(cloneProcessor(p))
	}
	for _, p := range fld.validators {
		out.AddValidator(cloneProcessor(p))
	}
	for _, p := range fld.transformers {
		out.AddTransformer(cloneProcessor(p))
	}
	for _, child := range fld.Children {
		out.AddChild(child.clone())
	}
	return out
}
