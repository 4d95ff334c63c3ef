// Package formproc is the convenience entry point of the module: it builds
// forms from definition files or OpenAPI operations and summarises processing
// results. The underlying packages live under pkg/.
package formproc

import (
	"context"
	"io/fs"
	"sort"

	"github.com/goliatone/go-formproc/pkg/definition"
	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/openapi"
	"github.com/goliatone/go-formproc/pkg/processors"
	"github.com/goliatone/go-formproc/pkg/query"
	"github.com/goliatone/go-formproc/pkg/registry"
)

// Form aliases form.Form for callers that only import the root package.
type Form = form.Form

// Field aliases form.Field.
type Field = form.Field

// Definition aliases definition.Definition.
type Definition = definition.Definition

// Query aliases query.Query.
type Query = query.Query

// New returns an empty form.
func New(options ...form.Option) *form.Form {
	return form.New(options...)
}

// NewRegistry returns a registry holding every built-in processor.
func NewRegistry() *registry.Registry {
	return processors.NewRegistry()
}

// Load reads a YAML or JSON definition from fsys and builds its form.
func Load(fsys fs.FS, path string, options ...definition.Option) (*form.Form, error) {
	def, err := definition.LoadFS(fsys, path)
	if err != nil {
		return nil, err
	}
	return definition.Build(def, options...)
}

// FromOpenAPI builds the form of an OpenAPI operation's request body.
func FromOpenAPI(ctx context.Context, data []byte, operationID string, options ...definition.Option) (*form.Form, error) {
	def, err := openapi.FromData(ctx, data, operationID)
	if err != nil {
		return nil, err
	}
	return definition.Build(def, options...)
}

// Result is a serialisable summary of a processed form.
type Result struct {
	Submitted bool           `json:"submitted"`
	Valid     bool           `json:"valid"`
	Params    map[string]any `json:"params"`
	Errors    []ErrorEntry   `json:"errors,omitempty"`
}

// ErrorEntry is one processing error in a Result.
type ErrorEntry struct {
	Name    string `json:"name"`
	Stage   string `json:"stage"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Summarize captures the outcome of the last Process call on f. Errors are
// sorted by name, then in pipeline order.
func Summarize(f *form.Form) Result {
	res := Result{
		Submitted: f.Submitted(),
		Valid:     f.SubmittedAndValid(),
		Params:    f.Params(),
	}
	for _, e := range f.Errors().All() {
		res.Errors = append(res.Errors, ErrorEntry{
			Name:    e.Name(),
			Stage:   string(e.Stage),
			Type:    e.Type,
			Message: e.Message,
		})
	}
	sort.SliceStable(res.Errors, func(i, j int) bool {
		return res.Errors[i].Name < res.Errors[j].Name
	})
	return res
}
