// Package testsupport holds fixture and golden helpers shared by the package
// tests and the CLI tests.
package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formproc/pkg/definition"
	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/query"
)

// LoadDefinition reads a definition fixture, failing the test on error.
func LoadDefinition(t *testing.T, path string) definition.Definition {
	t.Helper()

	def, err := LoadDefinitionFromPath(path)
	if err != nil {
		t.Fatalf("load definition: %v", err)
	}
	return def
}

// LoadDefinitionFromPath returns a Definition without requiring testing.T so
// callers can load fixtures in setup functions.
func LoadDefinitionFromPath(path string) (definition.Definition, error) {
	if path == "" {
		return definition.Definition{}, errors.New("testsupport: definition path is required")
	}
	def, err := definition.LoadFS(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		return definition.Definition{}, fmt.Errorf("testsupport: %w", err)
	}
	return def, nil
}

// BuildForm loads and builds a definition fixture.
func BuildForm(t *testing.T, path string, opts ...definition.Option) *form.Form {
	t.Helper()

	f, err := definition.Build(LoadDefinition(t, path), opts...)
	if err != nil {
		t.Fatalf("build form: %v", err)
	}
	return f
}

// MustProcess processes values and fails on a fatal processing error.
func MustProcess(t *testing.T, f *form.Form, values url.Values) {
	t.Helper()
	if err := f.Process(query.FromValues(values)); err != nil {
		t.Fatalf("process: %v", err)
	}
}

// ErrorMessages groups the messages of the last Process by nested name.
func ErrorMessages(f *form.Form) map[string][]string {
	out := make(map[string][]string)
	for _, e := range f.Errors().All() {
		out[e.Name()] = append(out[e.Name()], e.Message)
	}
	return out
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set and
// reports whether it did (the test should stop there).
func WriteGolden(t *testing.T, path string, value any) bool {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// MustLoadGolden decodes a JSON golden file into out.
func MustLoadGolden(t *testing.T, path string, out any) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
