package formproc_test

import (
	"context"
	"net/url"
	"os"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formproc"
	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/query"
)

const feedbackYAML = `
indicator: send
elements:
  - name: zeta
    constraints: [required]
  - name: alpha
    constraints: [integer]
  - name: send
    non_param: true
`

func TestLoadAndSummarize(t *testing.T) {
	fsys := fstest.MapFS{"feedback.yaml": {Data: []byte(feedbackYAML)}}
	f, err := formproc.Load(fsys, "feedback.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := f.Process(query.FromValues(url.Values{"alpha": {"x"}, "send": {"1"}})); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := formproc.Summarize(f)
	want := formproc.Result{
		Submitted: true,
		Params:    map[string]any{},
		Errors: []formproc.ErrorEntry{
			{Name: "alpha", Stage: "constraint", Type: "integer", Message: "This field must be an integer"},
			{Name: "zeta", Stage: "constraint", Type: "required", Message: "This field is required"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeUnsubmitted(t *testing.T) {
	fsys := fstest.MapFS{"feedback.yaml": {Data: []byte(feedbackYAML)}}
	f, err := formproc.Load(fsys, "feedback.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := f.Process(query.FromValues(url.Values{"zeta": {"z"}})); err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := formproc.Summarize(f)
	if got.Submitted || got.Valid || len(got.Params) != 0 || got.Errors != nil {
		t.Fatalf("unexpected summary: %#v", got)
	}
}

func TestFromOpenAPI(t *testing.T) {
	data, err := os.ReadFile("pkg/openapi/testdata/contacts.yaml")
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	f, err := formproc.FromOpenAPI(context.Background(), data, "createContact")
	if err != nil {
		t.Fatalf("FromOpenAPI: %v", err)
	}
	if err := f.Process(query.FromValues(url.Values{"name": {"Al"}, "email": {"al@example.com"}})); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !f.SubmittedAndValid() {
		t.Fatalf("expected valid submission, errors: %v", f.Errors().All())
	}

	if _, err := formproc.FromOpenAPI(context.Background(), data, "missing"); err == nil {
		t.Fatalf("expected error for unknown operation")
	}
}

func TestNewRegistryHasBuiltins(t *testing.T) {
	reg := formproc.NewRegistry()
	if !reg.Has(form.StageConstraint, "required") {
		t.Fatalf("required constraint not registered")
	}
}
