// Package query adapts submitted request data to the read-only surface the
// form pipeline consumes. A Query answers whether a name carries a value,
// enumerates the names present, and returns every value submitted for a
// name. Adapters exist for url.Values, plain maps, *http.Request and raw JSON
// payloads.
package query

import (
	"errors"
	"net/url"
	"sort"
)

// ErrMalformed reports a query whose names cannot be enumerated.
var ErrMalformed = errors.New("query: malformed")

// Query is the collaborator the form pipeline reads submitted data from.
type Query interface {
	// Has reports whether name was submitted with at least one value.
	Has(name string) bool
	// Names lists the submitted names. An error means the query is unusable.
	Names() ([]string, error)
	// Values returns every value submitted for name.
	Values(name string) []any
}

// Typer is implemented by queries that advertise a query type, used to pick
// an upload parser.
type Typer interface {
	Type() string
}

// Query types reported by the built-in adapters.
const (
	TypeValues = "values"
	TypeMap    = "map"
	TypeHTTP   = "http"
	TypeJSON   = "json"
)

// TypeOf returns the advertised type of q, or "" when it does not implement
// Typer.
func TypeOf(q Query) string {
	if typed, ok := q.(Typer); ok {
		return typed.Type()
	}
	return ""
}

// First returns the first value submitted for name.
func First(q Query, name string) (any, bool) {
	if q == nil {
		return nil, false
	}
	values := q.Values(name)
	if len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

// Values wraps url.Values.
type Values url.Values

// FromValues adapts url.Values.
func FromValues(values url.Values) Values {
	return Values(values)
}

// Has implements Query.
func (v Values) Has(name string) bool {
	return len(v[name]) > 0
}

// Names implements Query.
func (v Values) Names() ([]string, error) {
	names := make([]string, 0, len(v))
	for name, values := range v {
		if len(values) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Values implements Query.
func (v Values) Values(name string) []any {
	raw := v[name]
	if len(raw) == 0 {
		return nil
	}
	out := make([]any, len(raw))
	for i, value := range raw {
		out[i] = value
	}
	return out
}

// Type implements Typer.
func (Values) Type() string { return TypeValues }

// Empty is a query without any submitted names.
var Empty Query = Values(nil)
