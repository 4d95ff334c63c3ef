// Package registry maps processor type tags to factories. Forms built from
// definitions resolve every processor through a Registry once, at build time;
// unknown tags fail with a *RegistrationError.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formproc/pkg/form"
)

// ErrUnknownType matches every *RegistrationError.
var ErrUnknownType = errors.New("registry: unknown type")

// RegistrationError reports a tag with no registered factory. Kind is a stage
// name ("constraint") or "element" for definition element types.
type RegistrationError struct {
	Kind string
	Type string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registry: unknown %s type %q", e.Kind, e.Type)
}

// Is matches ErrUnknownType.
func (e *RegistrationError) Is(target error) bool {
	return target == ErrUnknownType
}

// Config is handed to factories. Options carries every setting that is not
// common to all processors.
type Config struct {
	Type    string
	Message string
	When    form.Condition
	Options map[string]any

	registry *Registry
}

// Decode copies Options into out through a YAML round trip, so out can use
// `yaml` struct tags.
func (c Config) Decode(out any) error {
	if len(c.Options) == 0 {
		return nil
	}
	data, err := yaml.Marshal(c.Options)
	if err != nil {
		return fmt.Errorf("registry: encode %s options: %w", c.Type, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("registry: decode %s options: %w", c.Type, err)
	}
	return nil
}

// Option returns a single option value.
func (c Config) Option(key string) (any, bool) {
	v, ok := c.Options[key]
	return v, ok
}

// Callback resolves a callback registered by name.
func (c Config) Callback(name string) (any, bool) {
	if c.registry == nil {
		return nil, false
	}
	return c.registry.Callback(name)
}

// Factory builds a processor from its configuration.
type Factory func(cfg Config) (form.Processor, error)

type key struct {
	stage form.Stage
	tag   string
}

// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[key]Factory
	callbacks map[string]any
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		factories: make(map[key]Factory),
		callbacks: make(map[string]any),
	}
}

// Register adds (or replaces) the factory for tag within stage.
func (r *Registry) Register(stage form.Stage, tag string, factory Factory) {
	tag = normalize(tag)
	if r == nil || tag == "" || factory == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories == nil {
		r.factories = make(map[key]Factory)
	}
	r.factories[key{stage: stage, tag: tag}] = factory
}

// RegisterCallback stores fn under name for callback processors and
// conditions.
func (r *Registry) RegisterCallback(name string, fn any) {
	name = strings.TrimSpace(name)
	if r == nil || name == "" || fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.callbacks == nil {
		r.callbacks = make(map[string]any)
	}
	r.callbacks[name] = fn
}

// Callback returns the callback registered under name.
func (r *Registry) Callback(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.callbacks[strings.TrimSpace(name)]
	return fn, ok
}

// Has reports whether tag is registered for stage.
func (r *Registry) Has(stage form.Stage, tag string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[key{stage: stage, tag: normalize(tag)}]
	return ok
}

// Types lists the registered tags of stage, sorted.
func (r *Registry) Types(stage form.Stage) []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for k := range r.factories {
		if k.stage == stage {
			out = append(out, k.tag)
		}
	}
	sort.Strings(out)
	return out
}

// Build resolves cfg.Type within stage and applies the common settings
// (message, condition) to the result.
func (r *Registry) Build(stage form.Stage, cfg Config) (form.Processor, error) {
	tag := normalize(cfg.Type)
	var factory Factory
	if r != nil {
		r.mu.RLock()
		factory = r.factories[key{stage: stage, tag: tag}]
		r.mu.RUnlock()
	}
	if factory == nil {
		return nil, &RegistrationError{Kind: string(stage), Type: cfg.Type}
	}

	cfg.Type = tag
	cfg.registry = r
	p, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("registry: build %s %q: %w", stage, tag, err)
	}
	if !implements(stage, p) {
		return nil, fmt.Errorf("registry: %s %q does not implement the %s contract", stage, tag, stage)
	}
	if settable, ok := p.(interface {
		SetMessage(string)
		SetWhen(form.Condition)
	}); ok {
		if cfg.Message != "" {
			settable.SetMessage(cfg.Message)
		}
		if cfg.When != nil {
			settable.SetWhen(cfg.When)
		}
	}
	return p, nil
}

func implements(stage form.Stage, p form.Processor) bool {
	switch stage {
	case form.StageFilter:
		_, ok := p.(form.Filter)
		return ok
	case form.StageConstraint:
		_, ok := p.(form.Constraint)
		return ok
	case form.StageInflator:
		_, ok := p.(form.Inflator)
		return ok
	case form.StageValidator:
		_, ok := p.(form.Validator)
		return ok
	case form.StageTransformer:
		_, ok := p.(form.Transformer)
		return ok
	default:
		return false
	}
}

func normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
