package definition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/nested"
	"github.com/goliatone/go-formproc/pkg/processors"
	"github.com/goliatone/go-formproc/pkg/registry"
	"github.com/goliatone/go-formproc/pkg/upload"
)

// Attribute keys written by Build for presentation data.
const (
	AttrLabel   = "label"
	AttrOptions = "options"
	AttrDefault = "default"
)

// Option customises Build.
type Option func(*builder)

// WithRegistry resolves processors through reg instead of the built-in
// registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(b *builder) {
		if reg != nil {
			b.registry = reg
		}
	}
}

// WithFormOptions appends form options. They are applied after the options
// derived from the definition and can override them.
func WithFormOptions(opts ...form.Option) Option {
	return func(b *builder) {
		b.formOptions = append(b.formOptions, opts...)
	}
}

type builder struct {
	registry    *registry.Registry
	formOptions []form.Option
}

// Build creates a form from def. Processor types, element types and callback
// names are all resolved here; a definition that builds once never fails at
// processing time for lack of a registration.
func Build(def Definition, opts ...Option) (*form.Form, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	b := &builder{}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.registry == nil {
		b.registry = processors.NewRegistry()
	}

	fields := make([]*form.Field, 0, len(def.Elements))
	uploads := false
	for _, el := range def.Elements {
		fld, err := b.element(el)
		if err != nil {
			return nil, err
		}
		uploads = uploads || hasUpload(fld)
		fields = append(fields, fld)
	}

	f := form.New(append(b.options(def, uploads), b.formOptions...)...)
	f.AddField(fields...)

	if err := b.formProcessors(f, def.Processors); err != nil {
		return nil, err
	}
	return f, nil
}

func (b *builder) options(def Definition, uploads bool) []form.Option {
	var opts []form.Option
	if def.Indicator != "" {
		opts = append(opts, form.WithIndicator(def.Indicator))
	}
	if def.NestedName != "" {
		opts = append(opts, form.WithNestedName(def.NestedName))
	}
	if def.Notation != "" {
		opts = append(opts, form.WithNotation(nested.ParseNotation(def.Notation)))
	}
	if def.IgnoreUnderscore {
		opts = append(opts, form.WithIgnoreUnderscore(true))
	}
	if def.QueryType != "" {
		opts = append(opts, form.WithQueryType(def.QueryType))
	}
	if len(def.Attributes) > 0 || def.ID != "" {
		attrs := make(map[string]any, len(def.Attributes)+1)
		for k, v := range def.Attributes {
			attrs[k] = v
		}
		if def.ID != "" {
			attrs["definition_id"] = def.ID
		}
		opts = append(opts, form.WithAttributes(attrs))
	}
	if uploads {
		opts = append(opts, upload.WithHTTP())
	}
	return opts
}

func (b *builder) element(el Element) (*form.Field, error) {
	name := strings.TrimSpace(el.Name)
	var fld *form.Field
	switch elementType(el) {
	case TypeField:
		fld = form.NewField(name)
	case TypeFile:
		fld = form.NewField(name)
		fld.Upload = true
	case TypeMulti:
		fld = form.NewField(name)
		fld.MultiValue = true
	case TypeBlock:
		fld = form.NewBlock(name)
		if el.Nested != nil {
			fld.Nested = *el.Nested && name != ""
		}
		for _, child := range el.Elements {
			c, err := b.element(child)
			if err != nil {
				return nil, err
			}
			fld.AddChild(c)
		}
	default:
		return nil, &registry.RegistrationError{Kind: "element", Type: el.Type}
	}

	fld.MultiValue = fld.MultiValue || el.MultiValue
	fld.DefaultEmptyValue = el.DefaultEmptyValue
	fld.NonParam = el.NonParam
	fld.Attributes = attributes(el)

	for _, stage := range form.Stages {
		for _, cfg := range list(el.Processors, stage) {
			p, err := b.processor(stage, cfg)
			if err != nil {
				return nil, fmt.Errorf("definition: element %q: %w", name, err)
			}
			add(fld, stage, p)
		}
	}
	return fld, nil
}

func (b *builder) formProcessors(f *form.Form, procs Processors) error {
	for _, stage := range form.Stages {
		for _, cfg := range list(procs, stage) {
			p, err := b.processor(stage, cfg)
			if err != nil {
				return fmt.Errorf("definition: form: %w", err)
			}
			if err := attach(f, stage, p, cfg.Names); err != nil {
				return fmt.Errorf("definition: form %s %q: %w", stage, cfg.Type, err)
			}
		}
	}
	return nil
}

// attach adds snapshot copies of p to the named fields, or to every field.
func attach(f *form.Form, stage form.Stage, p form.Processor, names []string) error {
	switch stage {
	case form.StageFilter:
		return f.AddFilter(p.(form.Filter), names...)
	case form.StageConstraint:
		return f.AddConstraint(p.(form.Constraint), names...)
	case form.StageInflator:
		return f.AddInflator(p.(form.Inflator), names...)
	case form.StageValidator:
		return f.AddValidator(p.(form.Validator), names...)
	case form.StageTransformer:
		return f.AddTransformer(p.(form.Transformer), names...)
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

func add(fld *form.Field, stage form.Stage, p form.Processor) {
	switch stage {
	case form.StageFilter:
		fld.AddFilter(p.(form.Filter))
	case form.StageConstraint:
		fld.AddConstraint(p.(form.Constraint))
	case form.StageInflator:
		fld.AddInflator(p.(form.Inflator))
	case form.StageValidator:
		fld.AddValidator(p.(form.Validator))
	case form.StageTransformer:
		fld.AddTransformer(p.(form.Transformer))
	}
}

func (b *builder) processor(stage form.Stage, cfg ProcessorConfig) (form.Processor, error) {
	cond, err := b.condition(cfg.When)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", stage, cfg.Type, err)
	}
	return b.registry.Build(stage, registry.Config{
		Type:    cfg.Type,
		Message: cfg.Message,
		When:    cond,
		Options: cfg.Options,
	})
}

func (b *builder) condition(cfg *WhenConfig) (form.Condition, error) {
	if cfg == nil {
		return nil, nil
	}
	w := &form.When{
		Field: cfg.Field,
		Not:   cfg.Not,
		Expr:  cfg.Expr,
	}
	if cfg.Value != nil {
		w.Values = append(w.Values, cfg.Value)
	}
	w.Values = append(w.Values, cfg.Values...)

	if name := strings.TrimSpace(cfg.Callback); name != "" {
		raw, ok := b.registry.Callback(name)
		if !ok {
			return nil, fmt.Errorf("when callback %q is not registered", name)
		}
		switch fn := raw.(type) {
		case form.ConditionFunc:
			w.Callback = fn
		case func(*form.Context) bool:
			w.Callback = fn
		default:
			return nil, fmt.Errorf("when callback %q has type %T, not func(*form.Context) bool", name, raw)
		}
	}
	if w.Callback == nil && strings.TrimSpace(w.Expr) == "" && strings.TrimSpace(w.Field) == "" {
		return nil, errors.New("when needs a field, expr or callback")
	}
	return w, nil
}

func list(p Processors, stage form.Stage) []ProcessorConfig {
	switch stage {
	case form.StageFilter:
		return p.Filters
	case form.StageConstraint:
		return p.Constraints
	case form.StageInflator:
		return p.Inflators
	case form.StageValidator:
		return p.Validators
	case form.StageTransformer:
		return p.Transformers
	default:
		return nil
	}
}

func attributes(el Element) map[string]any {
	if len(el.Attributes) == 0 && el.Label == "" && len(el.Options) == 0 {
		return nil
	}
	out := make(map[string]any, len(el.Attributes)+2)
	for k, v := range el.Attributes {
		out[k] = v
	}
	if el.Label != "" {
		out[AttrLabel] = el.Label
	}
	if len(el.Options) > 0 {
		out[AttrOptions] = append([]string(nil), el.Options...)
	}
	return out
}

func hasUpload(fld *form.Field) bool {
	if fld.Upload {
		return true
	}
	for _, child := range fld.Descendants() {
		if child.Upload {
			return true
		}
	}
	return false
}
