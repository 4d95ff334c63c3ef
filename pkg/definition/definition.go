// Package definition loads declarative form definitions (YAML or JSON) and
// builds forms from them through a processor registry.
//
// A definition mirrors the form tree: elements nest through their own
// `elements` lists, and every element carries per-stage processor lists.
// Processor entries are either a bare type tag or a mapping with `type`,
// `message`, `when` and any processor specific options inline:
//
//	elements:
//	  - name: age
//	    filters: [trim]
//	    constraints:
//	      - type: range
//	        min: 18
//	        message: Too young
//	    inflators: [integer]
//
// Form-level processor lists accept `names` to target specific fields.
package definition

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is the top level of a definition file.
type Definition struct {
	ID               string         `yaml:"id,omitempty" json:"id,omitempty"`
	Indicator        string         `yaml:"indicator,omitempty" json:"indicator,omitempty"`
	NestedName       string         `yaml:"nested_name,omitempty" json:"nested_name,omitempty"`
	Notation         string         `yaml:"notation,omitempty" json:"notation,omitempty"`
	IgnoreUnderscore bool           `yaml:"ignore_underscore,omitempty" json:"ignore_underscore,omitempty"`
	QueryType        string         `yaml:"query_type,omitempty" json:"query_type,omitempty"`
	Attributes       map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Elements         []Element      `yaml:"elements" json:"elements"`
	Processors       `yaml:",inline"`

	// Source is the path the definition was loaded from, if any.
	Source string `yaml:"-" json:"-"`
}

// Processors groups per-stage processor lists.
type Processors struct {
	Filters      []ProcessorConfig `yaml:"filters,omitempty" json:"filters,omitempty"`
	Constraints  []ProcessorConfig `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Inflators    []ProcessorConfig `yaml:"inflators,omitempty" json:"inflators,omitempty"`
	Validators   []ProcessorConfig `yaml:"validators,omitempty" json:"validators,omitempty"`
	Transformers []ProcessorConfig `yaml:"transformers,omitempty" json:"transformers,omitempty"`
}

// Empty reports whether no stage has processors.
func (p Processors) Empty() bool {
	return len(p.Filters)+len(p.Constraints)+len(p.Inflators)+len(p.Validators)+len(p.Transformers) == 0
}

// Element types.
const (
	TypeField = "field"
	TypeBlock = "block"
	TypeFile  = "file"
	TypeMulti = "multi"
)

// Element declares a field or a block.
type Element struct {
	Name              string         `yaml:"name" json:"name"`
	Type              string         `yaml:"type,omitempty" json:"type,omitempty"`
	Nested            *bool          `yaml:"nested,omitempty" json:"nested,omitempty"`
	MultiValue        bool           `yaml:"multi_value,omitempty" json:"multi_value,omitempty"`
	DefaultEmptyValue bool           `yaml:"default_empty_value,omitempty" json:"default_empty_value,omitempty"`
	NonParam          bool           `yaml:"non_param,omitempty" json:"non_param,omitempty"`
	Label             string         `yaml:"label,omitempty" json:"label,omitempty"`
	Options           []string       `yaml:"options,omitempty" json:"options,omitempty"`
	Attributes        map[string]any `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Elements          []Element      `yaml:"elements,omitempty" json:"elements,omitempty"`
	Processors        `yaml:",inline"`
}

// ProcessorConfig declares one processor.
type ProcessorConfig struct {
	Type    string         `yaml:"type" json:"type"`
	Names   Names          `yaml:"names,omitempty" json:"names,omitempty"`
	Message string         `yaml:"message,omitempty" json:"message,omitempty"`
	When    *WhenConfig    `yaml:"when,omitempty" json:"when,omitempty"`
	Options map[string]any `yaml:",inline" json:"options,omitempty"`
}

// UnmarshalYAML accepts a bare type tag as shorthand.
func (p *ProcessorConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*p = ProcessorConfig{Type: node.Value}
		return nil
	}
	type plain ProcessorConfig
	var out plain
	if err := node.Decode(&out); err != nil {
		return err
	}
	*p = ProcessorConfig(out)
	return nil
}

// WhenConfig declares a processor condition. Value is shorthand for a single
// entry of Values. Callback names a callback registered in the registry.
type WhenConfig struct {
	Field    string `yaml:"field,omitempty" json:"field,omitempty"`
	Value    any    `yaml:"value,omitempty" json:"value,omitempty"`
	Values   []any  `yaml:"values,omitempty" json:"values,omitempty"`
	Not      bool   `yaml:"not,omitempty" json:"not,omitempty"`
	Expr     string `yaml:"expr,omitempty" json:"expr,omitempty"`
	Callback string `yaml:"callback,omitempty" json:"callback,omitempty"`
}

// Names accepts either a single name or a list.
type Names []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Names) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*n = Names{node.Value}
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*n = out
		return nil
	default:
		return fmt.Errorf("definition: line %d: names must be a string or a list", node.Line)
	}
}

// ErrEmpty is returned for blank definition documents.
var ErrEmpty = errors.New("definition: empty document")

// Parse decodes a YAML or JSON document.
func Parse(data []byte) (Definition, error) {
	if strings.TrimSpace(string(data)) == "" {
		return Definition{}, ErrEmpty
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("definition: parse: %w", err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// LoadFS reads and parses path from fsys.
func LoadFS(fsys fs.FS, path string) (Definition, error) {
	if fsys == nil {
		return Definition{}, errors.New("definition: filesystem is nil")
	}
	if !isDefinitionFile(path) {
		return Definition{}, fmt.Errorf("definition: %s is not a .yaml, .yml or .json file", path)
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Definition{}, fmt.Errorf("definition: read %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return Definition{}, fmt.Errorf("definition: %s: %w", path, err)
	}
	def.Source = path
	return def, nil
}

// Validate checks structural rules that do not need a registry: element
// names, duplicates among siblings, processor types and `names` placement.
func (d Definition) Validate() error {
	if err := validateProcessors(d.Processors, "form", true); err != nil {
		return err
	}
	return validateElements(d.Elements, "")
}

func validateElements(elements []Element, prefix string) error {
	seen := make(map[string]struct{}, len(elements))
	for idx, el := range elements {
		name := strings.TrimSpace(el.Name)
		where := fmt.Sprintf("%selements[%d]", prefix, idx)
		if name == "" && elementType(el) != TypeBlock {
			return fmt.Errorf("definition: %s: name is required", where)
		}
		if name != "" {
			if _, dup := seen[name]; dup {
				return fmt.Errorf("definition: %s: duplicate element %q", where, name)
			}
			seen[name] = struct{}{}
			where = fmt.Sprintf("%s(%s)", where, name)
		}
		if len(el.Elements) > 0 && elementType(el) != TypeBlock {
			return fmt.Errorf("definition: %s: only blocks may have elements", where)
		}
		if err := validateProcessors(el.Processors, where, false); err != nil {
			return err
		}
		if err := validateElements(el.Elements, where+"."); err != nil {
			return err
		}
	}
	return nil
}

func validateProcessors(p Processors, where string, formLevel bool) error {
	lists := map[string][]ProcessorConfig{
		"filters":      p.Filters,
		"constraints":  p.Constraints,
		"inflators":    p.Inflators,
		"validators":   p.Validators,
		"transformers": p.Transformers,
	}
	for stage, list := range lists {
		for idx, cfg := range list {
			if strings.TrimSpace(cfg.Type) == "" {
				return fmt.Errorf("definition: %s.%s[%d]: type is required", where, stage, idx)
			}
			if !formLevel && len(cfg.Names) > 0 {
				return fmt.Errorf("definition: %s.%s[%d]: names is only valid on form-level processors", where, stage, idx)
			}
		}
	}
	return nil
}

func elementType(el Element) string {
	typ := strings.ToLower(strings.TrimSpace(el.Type))
	if typ == "" {
		if len(el.Elements) > 0 {
			return TypeBlock
		}
		return TypeField
	}
	return typ
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
