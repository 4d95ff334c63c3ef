package definition_test

import (
	"errors"
	"net/url"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formproc/pkg/definition"
	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/processors"
	"github.com/goliatone/go-formproc/pkg/query"
	"github.com/goliatone/go-formproc/pkg/registry"
)

func buildFixture(t *testing.T, name string, opts ...definition.Option) *form.Form {
	t.Helper()

	def, err := definition.LoadFS(os.DirFS("testdata"), name)
	if err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	f, err := definition.Build(def, opts...)
	if err != nil {
		t.Fatalf("build %s: %v", name, err)
	}
	return f
}

func process(t *testing.T, f *form.Form, values url.Values) {
	t.Helper()
	if err := f.Process(query.FromValues(values)); err != nil {
		t.Fatalf("process: %v", err)
	}
}

func errorMessages(f *form.Form) map[string][]string {
	out := make(map[string][]string)
	for _, e := range f.Errors().All() {
		out[e.Name()] = append(out[e.Name()], e.Message)
	}
	return out
}

func TestLoadFS_YAML(t *testing.T) {
	def, err := definition.LoadFS(os.DirFS("testdata"), "contact.yaml")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if def.Source != "contact.yaml" || def.ID != "contact" {
		t.Fatalf("unexpected header: %q %q", def.Source, def.ID)
	}
	if got := len(def.Elements); got != 8 {
		t.Fatalf("expected 8 elements, got %d", got)
	}

	name := def.Elements[0]
	want := []definition.ProcessorConfig{
		{Type: "required"},
		{Type: "max_length", Options: map[string]any{"max": 20}},
	}
	if diff := cmp.Diff(want, name.Constraints); diff != "" {
		t.Fatalf("constraints mismatch (-want +got):\n%s", diff)
	}

	city := def.Elements[5].Elements[1]
	if city.Constraints[0].When == nil || city.Constraints[0].When.Field != "address.street" {
		t.Fatalf("when not parsed: %#v", city.Constraints[0])
	}
	if diff := cmp.Diff(definition.Names{"name", "email"}, def.Constraints[0].Names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ProcessesValidSubmission(t *testing.T) {
	f := buildFixture(t, "contact.yaml")

	process(t, f, url.Values{
		"name":           {"  Alice "},
		"email":          {" ALICE@Example.com "},
		"age":            {"42"},
		"topic":          {"sales"},
		"tags":           {"a", "b"},
		"address.street": {"Main"},
		"address.city":   {"Lisbon"},
		"subscribe":      {"on"},
		"submit":         {"Send"},
		"_token":         {"abc"},
	})

	if !f.SubmittedAndValid() {
		t.Fatalf("expected valid submission, errors: %v", errorMessages(f))
	}
	want := map[string]any{
		"name":      "Alice",
		"email":     "alice@example.com",
		"age":       42,
		"topic":     "sales",
		"tags":      "a,b",
		"address":   map[string]any{"street": "Main", "city": "Lisbon"},
		"subscribe": true,
	}
	if diff := cmp.Diff(want, f.Params()); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
	if !f.Valid("submit") {
		t.Fatalf("non-param field should still be valid")
	}
	if label, _ := f.Resolve(f.Field("name"), definition.AttrLabel); label != "Your name" {
		t.Fatalf("label attribute mismatch: %v", label)
	}
}

func TestBuild_ReportsErrors(t *testing.T) {
	f := buildFixture(t, "contact.yaml")

	process(t, f, url.Values{
		"email":          {"not-an-email"},
		"topic":          {"other"},
		"address.street": {"Main"},
		"submit":         {"Send"},
	})

	want := map[string][]string{
		"name":         {"Please fill this in"},
		"email":        {"This field must contain an email address"},
		"topic":        {"Field contains an invalid choice"},
		"address.city": {"Please fill this in"},
	}
	if diff := cmp.Diff(want, errorMessages(f)); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	process(t, f, url.Values{"name": {"Bob"}, "email": {"bob@example.com"}})
	if f.Submitted() {
		t.Fatalf("form without indicator should not be submitted")
	}
}

func TestBuild_JSONWithNestedName(t *testing.T) {
	f := buildFixture(t, "signup.json")

	process(t, f, url.Values{
		"user.password": {" secret123 "},
		"user.confirm":  {"secret12"},
	})

	want := map[string][]string{"user.confirm": {"Passwords differ"}}
	if diff := cmp.Diff(want, errorMessages(f)); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if got := f.ParamValue("user.password"); got != "secret123" {
		t.Fatalf("form-level trim not applied: %q", got)
	}
}

func TestBuild_UnknownTypes(t *testing.T) {
	_, err := definition.Build(definition.Definition{
		Elements: []definition.Element{{Name: "x", Type: "widget"}},
	})
	var regErr *registry.RegistrationError
	if !errors.As(err, &regErr) || regErr.Kind != "element" || regErr.Type != "widget" {
		t.Fatalf("expected element registration error, got %v", err)
	}

	_, err = definition.Build(definition.Definition{
		Elements: []definition.Element{{
			Name:       "x",
			Processors: definition.Processors{Filters: []definition.ProcessorConfig{{Type: "rot13"}}},
		}},
	})
	if !errors.Is(err, registry.ErrUnknownType) {
		t.Fatalf("expected unknown processor type, got %v", err)
	}
}

func TestBuild_WhenCallbackFromRegistry(t *testing.T) {
	reg := processors.NewRegistry()
	reg.RegisterCallback("is_company", func(ctx *form.Context) bool {
		values := ctx.Raw("kind")
		return len(values) > 0 && values[0] == "company"
	})

	def, err := definition.Parse([]byte(`
elements:
  - name: kind
  - name: vat
    constraints:
      - type: required
        when:
          callback: is_company
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f, err := definition.Build(def, definition.WithRegistry(reg))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	process(t, f, url.Values{"kind": {"person"}})
	if !f.SubmittedAndValid() {
		t.Fatalf("vat should not be required for a person: %v", errorMessages(f))
	}
	process(t, f, url.Values{"kind": {"company"}})
	if !f.HasErrors("vat") {
		t.Fatalf("vat should be required for a company")
	}

	if _, err := definition.Build(def); err == nil {
		t.Fatalf("expected missing callback to fail the build")
	}
}

func TestBuild_BlockProcessorsReachChildren(t *testing.T) {
	def, err := definition.Parse([]byte(`
elements:
  - name: addr
    type: block
    filters: [trim]
    constraints: [required]
    elements:
      - name: street
      - name: city
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f, err := definition.Build(def)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	process(t, f, url.Values{"addr.city": {" Porto "}})

	if f.SubmittedAndValid() {
		t.Fatalf("addr.street should be required through its block")
	}
	if !f.HasErrors("addr.street") || f.HasErrors("addr.city") {
		t.Fatalf("unexpected errors: %v", errorMessages(f))
	}
	if got := f.ParamValue("addr.city"); got != "Porto" {
		t.Fatalf("block filter should trim children, got %q", got)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":          "  \n",
		"missing name":   "elements:\n  - type: field\n",
		"duplicate":      "elements:\n  - name: a\n  - name: a\n",
		"element names":  "elements:\n  - name: a\n    constraints:\n      - type: required\n        names: b\n",
		"missing type":   "constraints:\n  - message: x\n",
		"children":       "elements:\n  - name: a\n    type: field\n    elements:\n      - name: b\n",
		"malformed yaml": "elements: [",
	}
	for name, doc := range cases {
		if _, err := definition.Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := definition.Parse(nil); !errors.Is(err, definition.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestLoadFS_Errors(t *testing.T) {
	if _, err := definition.LoadFS(nil, "contact.yaml"); err == nil {
		t.Fatalf("expected error for nil filesystem")
	}
	if _, err := definition.LoadFS(os.DirFS("testdata"), "contact.txt"); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
	if _, err := definition.LoadFS(os.DirFS("testdata"), "missing.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
