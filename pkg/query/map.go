package query

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/goliatone/go-formproc/pkg/nested"
)

// Map adapts a plain key/value mapping. Nested maps are flattened into
// hierarchical names using the configured notation; slices of scalars become
// multiple values for one name while slices of maps are indexed.
type Map struct {
	values map[string][]any
	err    error
}

// FromMap flattens data with dotted notation.
func FromMap(data map[string]any) *Map {
	return FromMapWithNotation(data, nested.Dotted)
}

// FromMapWithNotation flattens data using notation to build names.
func FromMapWithNotation(data map[string]any, notation nested.Notation) *Map {
	m := &Map{values: make(map[string][]any)}
	store := nested.New(notation)
	for key, value := range data {
		if err := m.flatten(store, key, value); err != nil {
			m.err = err
			break
		}
	}
	return m
}

func (m *Map) flatten(store nested.Store, name string, value any) error {
	switch typed := value.(type) {
	case nil:
		m.values[name] = append(m.values[name], nil)
	case map[string]any:
		for key, child := range typed {
			if err := m.flatten(store, store.Join(name, key), child); err != nil {
				return err
			}
		}
	case []string:
		for _, item := range typed {
			m.values[name] = append(m.values[name], item)
		}
	case []any:
		for idx, item := range typed {
			switch item.(type) {
			case map[string]any, []any:
				if err := m.flatten(store, store.Join(name, strconv.Itoa(idx)), item); err != nil {
					return err
				}
			default:
				if err := checkScalar(name, item); err != nil {
					return err
				}
				m.values[name] = append(m.values[name], item)
			}
		}
	default:
		if err := checkScalar(name, typed); err != nil {
			return err
		}
		m.values[name] = append(m.values[name], typed)
	}
	return nil
}

func checkScalar(name string, value any) error {
	if value == nil {
		return nil
	}
	switch reflect.TypeOf(value).Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Errorf("%w: unsupported value %T for %q", ErrMalformed, value, name)
	default:
		return nil
	}
}

// Has implements Query.
func (m *Map) Has(name string) bool {
	return m.err == nil && len(m.values[name]) > 0
}

// Names implements Query.
func (m *Map) Names() ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	names := make([]string, 0, len(m.values))
	for name := range m.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Values implements Query.
func (m *Map) Values(name string) []any {
	if m.err != nil {
		return nil
	}
	return append([]any(nil), m.values[name]...)
}

// Type implements Typer.
func (*Map) Type() string { return TypeMap }
