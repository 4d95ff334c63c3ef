package nested_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formproc/pkg/nested"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path string
		want []string
	}{
		{path: "name", want: []string{"name"}},
		{path: "address.city", want: []string{"address", "city"}},
		{path: "address[city]", want: []string{"address", "city"}},
		{path: "items[0].name", want: []string{"items", "0", "name"}},
		{path: "items.0[name]", want: []string{"items", "0", "name"}},
		{path: " ..a..b ", want: []string{"a", "b"}},
		{path: "", want: nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tc.want, nested.Split(tc.path)); diff != "" {
				t.Fatalf("split mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreJoinNotation(t *testing.T) {
	t.Parallel()

	dotted := nested.New(nested.Dotted)
	subscript := nested.New(nested.Subscript)

	if got := dotted.Join("items", "0", "name"); got != "items.0.name" {
		t.Fatalf("dotted join: got %q", got)
	}
	if got := subscript.Join("items", "0", "name"); got != "items[0][name]" {
		t.Fatalf("subscript join: got %q", got)
	}
	if got := subscript.Normalize("address.city"); got != "address[city]" {
		t.Fatalf("normalize: got %q", got)
	}
}

func TestStoreSetAutoVivifies(t *testing.T) {
	t.Parallel()

	store := nested.Store{}
	tree := map[string]any{}

	store.Set(tree, "address.city", "Lisbon")
	store.Set(tree, "tags[1]", "b")
	store.Set(tree, "items.0.name", "first")
	store.Set(tree, "items[1][name]", "second")

	want := map[string]any{
		"address": map[string]any{"city": "Lisbon"},
		"tags":    []any{nil, "b"},
		"items": []any{
			map[string]any{"name": "first"},
			map[string]any{"name": "second"},
		},
	}
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreGetExistsDelete(t *testing.T) {
	t.Parallel()

	store := nested.Store{}
	tree := map[string]any{
		"user":  map[string]any{"name": "bob", "nick": nil},
		"roles": []any{"admin", "editor"},
	}

	if v, ok := store.Get(tree, "user.name"); !ok || v != "bob" {
		t.Fatalf("get user.name: %v %v", v, ok)
	}
	if v, ok := store.Get(tree, "roles[1]"); !ok || v != "editor" {
		t.Fatalf("get roles[1]: %v %v", v, ok)
	}
	if !store.Exists(tree, "user.nick") {
		t.Fatalf("nil value should still exist")
	}
	if store.Exists(tree, "user.email") || store.Exists(tree, "roles.5") || store.Exists(tree, "user.name.first") {
		t.Fatalf("unexpected existence")
	}
	if !store.Delete(tree, "user.name") || store.Exists(tree, "user.name") {
		t.Fatalf("delete user.name failed")
	}
	if store.Delete(tree, "missing.path") {
		t.Fatalf("delete of missing path should report false")
	}
}

func TestStorePaths(t *testing.T) {
	t.Parallel()

	tree := map[string]any{
		"name": "bob",
		"tags": []any{"a", "b"},
		"address": map[string]any{
			"city": "Lisbon",
			"zip":  "1000",
		},
		"items": []any{map[string]any{"sku": "x"}},
	}

	got := nested.New(nested.Dotted).Paths(tree)
	want := []string{"address.city", "address.zip", "items.0.sku", "name", "tags"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("dotted paths mismatch (-want +got):\n%s", diff)
	}

	got = nested.New(nested.Subscript).Paths(tree)
	want = []string{"address[city]", "address[zip]", "items[0][sku]", "name", "tags"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("subscript paths mismatch (-want +got):\n%s", diff)
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	src := map[string]any{"a": map[string]any{"b": []any{"c"}}}
	dup := nested.CloneMap(src)
	nested.Store{}.Set(dup, "a.b.0", "changed")

	if v, _ := (nested.Store{}).Get(src, "a.b.0"); v != "c" {
		t.Fatalf("source mutated through clone: %v", v)
	}
}
