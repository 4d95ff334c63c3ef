package processors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/registry"
)

// NewRegistry returns a registry holding every built-in processor.
func NewRegistry() *registry.Registry {
	reg := registry.New()
	RegisterBuiltins(reg)
	return reg
}

// RegisterBuiltins adds the built-in processors to reg.
func RegisterBuiltins(reg *registry.Registry) {
	simpleFilters := map[string]func() *StringFilter{
		"trim":                Trim,
		"collapse_whitespace": CollapseWhitespace,
		"lowercase":           LowerCase,
		"uppercase":           UpperCase,
		"non_digit":           NonDigit,
		"normalize":           Normalize,
		"html_strip":          HTMLStrip,
	}
	for tag, ctor := range simpleFilters {
		ctor := ctor
		reg.Register(form.StageFilter, tag, func(registry.Config) (form.Processor, error) {
			return ctor(), nil
		})
	}
	reg.Register(form.StageFilter, "html_scrubber", buildHTMLScrubber)
	reg.Register(form.StageFilter, "regex", buildRegexFilter)
	reg.Register(form.StageFilter, "callback", buildCallbackFilter)

	reg.Register(form.StageConstraint, "required", func(registry.Config) (form.Processor, error) {
		return NewRequired(), nil
	})
	reg.Register(form.StageConstraint, "length", buildLength)
	reg.Register(form.StageConstraint, "min_length", buildLength)
	reg.Register(form.StageConstraint, "max_length", buildLength)
	reg.Register(form.StageConstraint, "range", buildRange)
	reg.Register(form.StageConstraint, "min_range", buildRange)
	reg.Register(form.StageConstraint, "max_range", buildRange)
	reg.Register(form.StageConstraint, "regex", buildPattern)
	reg.Register(form.StageConstraint, "email", func(registry.Config) (form.Processor, error) {
		return NewEmail(), nil
	})
	reg.Register(form.StageConstraint, "integer", func(registry.Config) (form.Processor, error) {
		return NewInteger(), nil
	})
	reg.Register(form.StageConstraint, "number", func(registry.Config) (form.Processor, error) {
		return NewNumber(), nil
	})
	reg.Register(form.StageConstraint, "set", buildSet)
	reg.Register(form.StageConstraint, "equal", buildEqual)
	reg.Register(form.StageConstraint, "depend_on", buildDependOn)
	reg.Register(form.StageConstraint, "file", buildFile)
	reg.Register(form.StageConstraint, "callback", buildCallbackConstraint)

	reg.Register(form.StageInflator, "integer", func(registry.Config) (form.Processor, error) {
		return NewIntegerInflator(), nil
	})
	reg.Register(form.StageInflator, "float", func(registry.Config) (form.Processor, error) {
		return NewFloatInflator(), nil
	})
	reg.Register(form.StageInflator, "bool", func(registry.Config) (form.Processor, error) {
		return NewBoolInflator(), nil
	})
	reg.Register(form.StageInflator, "datetime", buildDateTime)
	reg.Register(form.StageInflator, "split", buildSplit)
	reg.Register(form.StageInflator, "callback", buildCallbackInflator)

	reg.Register(form.StageValidator, "callback", buildCallbackValidator)

	reg.Register(form.StageTransformer, "join", buildJoin)
	reg.Register(form.StageTransformer, "callback", buildCallbackTransformer)
}

// stringList decodes either a scalar or a sequence.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = stringList{node.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("processors: expected scalar, got %s", item.Tag)
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("processors: expected scalar or list, got %s", node.Tag)
	}
}

func buildHTMLScrubber(cfg registry.Config) (form.Processor, error) {
	var opts struct {
		Allow stringList `yaml:"allow"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	return HTMLScrubber(opts.Allow...), nil
}

func buildRegexFilter(cfg registry.Config) (form.Processor, error) {
	var opts struct {
		Match   string `yaml:"match"`
		Replace string `yaml:"replace"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	if opts.Match == "" {
		return nil, errors.New("processors: regex filter requires match")
	}
	expr, err := regexp.Compile(opts.Match)
	if err != nil {
		return nil, fmt.Errorf("processors: compile %q: %w", opts.Match, err)
	}
	return Regex(expr, opts.Replace), nil
}

func buildLength(cfg registry.Config) (form.Processor, error) {
	var opts struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "min_length":
		return NewMinLength(opts.Min), nil
	case "max_length":
		return NewMaxLength(opts.Max), nil
	default:
		return NewLength(opts.Min, opts.Max), nil
	}
}

func buildRange(cfg registry.Config) (form.Processor, error) {
	var opts struct {
		Min *float64 `yaml:"min"`
		Max *float64 `yaml:"max"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	p := &Range{Base: form.NewBase(cfg.Type)}
	switch cfg.Type {
	case "min_range":
		p.Min = opts.Min
	case "max_range":
		p.Max = opts.Max
	default:
		p.Min, p.Max = opts.Min, opts.Max
	}
	if p.Min == nil && p.Max == nil {
		return nil, fmt.Errorf("processors: %s requires min or max", cfg.Type)
	}
	return p, nil
}

func buildPattern(cfg registry.Config) (form.Processor, error) {
	var opts struct {
		Pattern string `yaml:"pattern"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	if opts.Pattern == "" {
		return nil, errors.New("processors: regex constraint requires pattern")
	}
	expr, err := regexp.Compile(opts.Pattern)
	if err != nil {
		return nil, fmt.Errorf("processors: compile %q: %w", opts.Pattern, err)
	}
	return NewPattern(expr), nil
}

func buildSet(cfg registry.Config) (form.Processor, error) {
	var opts struct {
		Set stringList `yaml:"set"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	return NewSet(opts.Set...), nil
}

func others(cfg registry.Config) ([]string, error) {
	var opts struct {
		Others stringList `yaml:"others"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	if len(opts.Others) == 0 {
		return nil, fmt.Errorf("processors: %s requires others", cfg.Type)
	}
	return opts.Others, nil
}

func buildEqual(cfg registry.Config) (form.Processor, error) {
	names, err := others(cfg)
	if err != nil {
		return nil, err
	}
	return NewEqual(names...), nil
}

func buildDependOn(cfg registry.Config) (form.Processor, error) {
	names, err := others(cfg)
	if err != nil {
		return nil, err
	}
	return NewDependOn(names...), nil
}

func buildFile(cfg registry.Config) (form.Processor, error) {
	var opts struct {
		MaxSize   int64      `yaml:"max_size"`
		MinSize   int64      `yaml:"min_size"`
		MIMETypes stringList `yaml:"mime_types"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	p := NewFile()
	p.MaxSize, p.MinSize, p.MIMETypes = opts.MaxSize, opts.MinSize, opts.MIMETypes
	return p, nil
}

func buildDateTime(cfg registry.Config) (form.Processor, error) {
	var opts struct {
		Parser stringList `yaml:"parser"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	return NewDateTimeInflator(opts.Parser...), nil
}

func buildSplit(cfg registry.Config) (form.Processor, error) {
	var opts struct {
		Separator string `yaml:"separator"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	return NewSplitInflator(opts.Separator), nil
}

func buildJoin(cfg registry.Config) (form.Processor, error) {
	var opts struct {
		Separator string `yaml:"separator"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	return NewJoin(opts.Separator), nil
}

func callback(cfg registry.Config) (any, error) {
	var opts struct {
		Callback string `yaml:"callback"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(opts.Callback)
	if name == "" {
		return nil, errors.New("processors: callback requires a callback name")
	}
	fn, ok := cfg.Callback(name)
	if !ok {
		return nil, fmt.Errorf("processors: callback %q is not registered", name)
	}
	return fn, nil
}

func buildCallbackFilter(cfg registry.Config) (form.Processor, error) {
	raw, err := callback(cfg)
	if err != nil {
		return nil, err
	}
	fn, ok := AsFilterFunc(raw)
	if !ok {
		return nil, fmt.Errorf("processors: callback has type %T, not a filter function", raw)
	}
	return NewCallbackFilter(fn), nil
}

func buildCallbackConstraint(cfg registry.Config) (form.Processor, error) {
	raw, err := callback(cfg)
	if err != nil {
		return nil, err
	}
	fn, ok := AsCheckFunc(raw)
	if !ok {
		return nil, fmt.Errorf("processors: callback has type %T, not a check function", raw)
	}
	return NewCallbackConstraint(fn), nil
}

func buildCallbackValidator(cfg registry.Config) (form.Processor, error) {
	raw, err := callback(cfg)
	if err != nil {
		return nil, err
	}
	fn, ok := AsCheckFunc(raw)
	if !ok {
		return nil, fmt.Errorf("processors: callback has type %T, not a check function", raw)
	}
	return NewCallbackValidator(fn), nil
}

func buildCallbackInflator(cfg registry.Config) (form.Processor, error) {
	raw, err := callback(cfg)
	if err != nil {
		return nil, err
	}
	fn, ok := AsConvertFunc(raw)
	if !ok {
		return nil, fmt.Errorf("processors: callback has type %T, not a convert function", raw)
	}
	return NewCallbackInflator(fn), nil
}

func buildCallbackTransformer(cfg registry.Config) (form.Processor, error) {
	raw, err := callback(cfg)
	if err != nil {
		return nil, err
	}
	fn, ok := AsConvertFunc(raw)
	if !ok {
		return nil, fmt.Errorf("processors: callback has type %T, not a convert function", raw)
	}
	return NewCallbackTransformer(fn), nil
}

// AsFilterFunc adapts the function shapes accepted for callback filters.
func AsFilterFunc(fn any) (FilterFunc, bool) {
	switch typed := fn.(type) {
	case FilterFunc:
		return typed, true
	case func(*form.Context, any) any:
		return typed, true
	case func(any) any:
		return func(_ *form.Context, v any) any { return typed(v) }, true
	case func(string) string:
		return func(_ *form.Context, v any) any {
			if s, ok := v.(string); ok {
				return typed(s)
			}
			return v
		}, true
	default:
		return nil, false
	}
}

// AsCheckFunc adapts the function shapes accepted for callback constraints
// and validators. A func(any) bool reports "Invalid input" when false.
func AsCheckFunc(fn any) (CheckFunc, bool) {
	switch typed := fn.(type) {
	case CheckFunc:
		return typed, true
	case func(*form.Context, any) error:
		return typed, true
	case func(any) error:
		return func(_ *form.Context, v any) error { return typed(v) }, true
	case func(any) bool:
		return func(_ *form.Context, v any) error {
			if typed(v) {
				return nil
			}
			return errors.New("Invalid input")
		}, true
	default:
		return nil, false
	}
}

// AsConvertFunc adapts the function shapes accepted for callback inflators
// and transformers.
func AsConvertFunc(fn any) (ConvertFunc, bool) {
	switch typed := fn.(type) {
	case ConvertFunc:
		return typed, true
	case func(*form.Context, any) (any, error):
		return typed, true
	case func(any) (any, error):
		return func(_ *form.Context, v any) (any, error) { return typed(v) }, true
	case func(any) any:
		return func(_ *form.Context, v any) (any, error) { return typed(v), nil }, true
	default:
		return nil, false
	}
}
