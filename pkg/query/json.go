package query

import (
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-formproc/pkg/nested"
)

// JSON adapts a JSON object payload. Objects are flattened into hierarchical
// names, arrays of scalars become multiple values and arrays of objects are
// indexed, mirroring Map.
type JSON struct {
	values map[string][]any
	err    error
}

// FromJSON flattens data with dotted notation.
func FromJSON(data []byte) *JSON {
	return FromJSONWithNotation(data, nested.Dotted)
}

// FromJSONWithNotation flattens data using notation to build names.
func FromJSONWithNotation(data []byte, notation nested.Notation) *JSON {
	q := &JSON{values: make(map[string][]any)}
	if !gjson.ValidBytes(data) {
		q.err = fmt.Errorf("%w: invalid JSON payload", ErrMalformed)
		return q
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		q.err = fmt.Errorf("%w: JSON payload must be an object", ErrMalformed)
		return q
	}
	store := nested.New(notation)
	root.ForEach(func(key, value gjson.Result) bool {
		q.flatten(store, key.String(), value)
		return true
	})
	return q
}

func (q *JSON) flatten(store nested.Store, name string, value gjson.Result) {
	switch {
	case value.IsObject():
		value.ForEach(func(key, child gjson.Result) bool {
			q.flatten(store, store.Join(name, key.String()), child)
			return true
		})
	case value.IsArray():
		idx := 0
		value.ForEach(func(_, item gjson.Result) bool {
			if item.IsObject() || item.IsArray() {
				q.flatten(store, store.Join(name, fmt.Sprint(idx)), item)
			} else {
				q.values[name] = append(q.values[name], item.Value())
			}
			idx++
			return true
		})
	default:
		q.values[name] = append(q.values[name], value.Value())
	}
}

// Has implements Query.
func (q *JSON) Has(name string) bool {
	return q.err == nil && len(q.values[name]) > 0
}

// Names implements Query.
func (q *JSON) Names() ([]string, error) {
	if q.err != nil {
		return nil, q.err
	}
	names := make([]string, 0, len(q.values))
	for name := range q.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Values implements Query.
func (q *JSON) Values(name string) []any {
	if q.err != nil {
		return nil
	}
	return append([]any(nil), q.values[name]...)
}

// Type implements Typer.
func (*JSON) Type() string { return TypeJSON }
