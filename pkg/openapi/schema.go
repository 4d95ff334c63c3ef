package openapi

import (
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formproc/pkg/definition"
)

type mapper struct {
	// schemas on the current path; a recursive reference stops at a plain
	// field instead of nesting forever
	visiting map[*openapi3.Schema]bool
}

func (m *mapper) elements(schema *openapi3.Schema) []definition.Element {
	properties, required := flatten(schema)
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	m.visiting[schema] = true
	defer delete(m.visiting, schema)

	out := make([]definition.Element, 0, len(names))
	for _, name := range names {
		ref := properties[name]
		if ref == nil || ref.Value == nil {
			out = append(out, definition.Element{Name: name})
			continue
		}
		out = append(out, m.element(name, ref.Value, required[name]))
	}
	return out
}

func (m *mapper) element(name string, schema *openapi3.Schema, required bool) definition.Element {
	el := definition.Element{Name: name, Label: schema.Title}
	if schema.Default != nil {
		el.Attributes = map[string]any{definition.AttrDefault: schema.Default}
	}
	if required {
		el.Constraints = append(el.Constraints, definition.ProcessorConfig{Type: "required"})
	}

	switch typ := schemaType(schema); {
	case typ == "object" || (typ == "" && (len(schema.Properties) > 0 || len(schema.AllOf) > 0)):
		if props, _ := flatten(schema); m.visiting[schema] || len(props) == 0 {
			return el
		}
		el.Type = definition.TypeBlock
		el.Elements = m.elements(schema)
		// blocks have no value of their own
		el.Constraints = nil
		return el
	case typ == "array":
		el.Type = definition.TypeMulti
		if schema.Items != nil && schema.Items.Value != nil {
			scalar(&el, schema.Items.Value)
		}
		return el
	case typ == "string" && schema.Format == "binary":
		el.Type = definition.TypeFile
		return el
	default:
		scalar(&el, schema)
		return el
	}
}

// scalar adds the checks and conversions of a scalar schema to el.
func scalar(el *definition.Element, schema *openapi3.Schema) {
	if len(schema.Enum) > 0 {
		values := make([]string, 0, len(schema.Enum))
		for _, v := range schema.Enum {
			values = append(values, fmt.Sprint(v))
		}
		el.Options = values
		el.Constraints = append(el.Constraints, processor("set", "set", values))
	}

	switch schemaType(schema) {
	case "string":
		if c, ok := lengthConstraint(schema); ok {
			el.Constraints = append(el.Constraints, c)
		}
		if schema.Pattern != "" {
			el.Constraints = append(el.Constraints, processor("regex", "pattern", schema.Pattern))
		}
		switch schema.Format {
		case "email":
			el.Constraints = append(el.Constraints, definition.ProcessorConfig{Type: "email"})
		case "date-time":
			el.Inflators = append(el.Inflators, definition.ProcessorConfig{Type: "datetime"})
		case "date":
			el.Inflators = append(el.Inflators, processor("datetime", "parser", "2006-01-02"))
		}
	case "integer":
		el.Filters = append(el.Filters, definition.ProcessorConfig{Type: "trim"})
		el.Constraints = append(el.Constraints, definition.ProcessorConfig{Type: "integer"})
		if c, ok := rangeConstraint(schema); ok {
			el.Constraints = append(el.Constraints, c)
		}
		el.Inflators = append(el.Inflators, definition.ProcessorConfig{Type: "integer"})
	case "number":
		el.Filters = append(el.Filters, definition.ProcessorConfig{Type: "trim"})
		el.Constraints = append(el.Constraints, definition.ProcessorConfig{Type: "number"})
		if c, ok := rangeConstraint(schema); ok {
			el.Constraints = append(el.Constraints, c)
		}
		el.Inflators = append(el.Inflators, definition.ProcessorConfig{Type: "float"})
	case "boolean":
		el.Inflators = append(el.Inflators, definition.ProcessorConfig{Type: "bool"})
	}
}

func lengthConstraint(schema *openapi3.Schema) (definition.ProcessorConfig, bool) {
	hasMin := schema.MinLength > 0
	hasMax := schema.MaxLength != nil
	switch {
	case hasMin && hasMax:
		return definition.ProcessorConfig{Type: "length", Options: map[string]any{
			"min": int(schema.MinLength),
			"max": int(*schema.MaxLength),
		}}, true
	case hasMin:
		return processor("min_length", "min", int(schema.MinLength)), true
	case hasMax:
		return processor("max_length", "max", int(*schema.MaxLength)), true
	default:
		return definition.ProcessorConfig{}, false
	}
}

func rangeConstraint(schema *openapi3.Schema) (definition.ProcessorConfig, bool) {
	switch {
	case schema.Min != nil && schema.Max != nil:
		return definition.ProcessorConfig{Type: "range", Options: map[string]any{
			"min": *schema.Min,
			"max": *schema.Max,
		}}, true
	case schema.Min != nil:
		return processor("min_range", "min", *schema.Min), true
	case schema.Max != nil:
		return processor("max_range", "max", *schema.Max), true
	default:
		return definition.ProcessorConfig{}, false
	}
}

func processor(typ, key string, value any) definition.ProcessorConfig {
	return definition.ProcessorConfig{Type: typ, Options: map[string]any{key: value}}
}

// flatten merges allOf members into a single property set.
func flatten(schema *openapi3.Schema) (openapi3.Schemas, map[string]bool) {
	properties := make(openapi3.Schemas, len(schema.Properties))
	required := make(map[string]bool, len(schema.Required))
	seen := make(map[*openapi3.Schema]bool)
	var walk func(s *openapi3.Schema)
	walk = func(s *openapi3.Schema) {
		if seen[s] {
			return
		}
		seen[s] = true
		for name, ref := range s.Properties {
			properties[name] = ref
		}
		for _, name := range s.Required {
			required[name] = true
		}
		for _, member := range s.AllOf {
			if member != nil && member.Value != nil {
				walk(member.Value)
			}
		}
	}
	walk(schema)
	return properties, required
}

func schemaType(schema *openapi3.Schema) string {
	if schema == nil || schema.Type == nil {
		return ""
	}
	values := schema.Type.Slice()
	for _, v := range values {
		if v != "null" {
			return v
		}
	}
	return ""
}
