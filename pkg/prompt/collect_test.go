package prompt

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/processors"
	"github.com/goliatone/go-formproc/pkg/query"
)

type stubDriver struct {
	inputs    []string
	passwords []string
	confirm   []bool
	selectIdx []int
	multiIdx  [][]int
	textAreas []string
	messages  []string
	info      []string
	rejected  []string
	defaults  []string
	selects   []SelectConfig
}

// next pops answers until validate accepts one, recording each rejection.
func (s *stubDriver) next(queue *[]string, kind string, validate func(string) error) (string, error) {
	for len(*queue) > 0 {
		val := (*queue)[0]
		*queue = (*queue)[1:]
		if validate == nil {
			return val, nil
		}
		if err := validate(val); err != nil {
			s.rejected = append(s.rejected, err.Error())
			continue
		}
		return val, nil
	}
	return "", errors.New("no " + kind + " scripted")
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	s.messages = append(s.messages, cfg.Message)
	s.defaults = append(s.defaults, cfg.Default)
	return s.next(&s.inputs, "input", cfg.Validator)
}

func (s *stubDriver) Password(_ context.Context, cfg InputConfig) (string, error) {
	s.messages = append(s.messages, cfg.Message)
	return s.next(&s.passwords, "password", cfg.Validator)
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	s.messages = append(s.messages, cfg.Message)
	if len(s.confirm) == 0 {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[0]
	s.confirm = s.confirm[1:]
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.messages = append(s.messages, cfg.Message)
	s.selects = append(s.selects, cfg)
	if len(s.selectIdx) == 0 {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[0]
	s.selectIdx = s.selectIdx[1:]
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, cfg SelectConfig) ([]int, error) {
	s.messages = append(s.messages, cfg.Message)
	s.selects = append(s.selects, cfg)
	if len(s.multiIdx) == 0 {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[0]
	s.multiIdx = s.multiIdx[1:]
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	s.messages = append(s.messages, cfg.Message)
	return s.next(&s.textAreas, "textarea", cfg.Validator)
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.info = append(s.info, msg)
	return nil
}

func sampleForm() *form.Form {
	name := form.NewField("name")
	name.Attributes = map[string]any{AttrLabel: "Your name"}

	topic := form.NewField("topic")
	topic.Attributes = map[string]any{AttrOptions: []string{"sales", "support"}}

	tags := form.NewField("tags")
	tags.MultiValue = true
	tags.Attributes = map[string]any{AttrOptions: []any{"go", "rust", "zig"}}

	notes := form.NewField("notes")
	notes.Attributes = map[string]any{AttrMultiline: true}

	aliases := form.NewField("aliases")
	aliases.MultiValue = true

	avatar := form.NewField("avatar")
	avatar.Upload = true

	submit := form.NewField("submit")
	submit.NonParam = true

	return form.New().AddField(
		name,
		form.NewField("password"),
		topic,
		tags,
		form.NewField("newsletter").AddInflator(processors.NewBoolInflator()),
		form.NewBlock("address", form.NewField("city")),
		notes,
		aliases,
		avatar,
		submit,
	)
}

func TestCollect(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Ada", "", "ada, countess"},
		passwords: []string{"s3cret"},
		selectIdx: []int{1},
		multiIdx:  [][]int{{0, 2}},
		confirm:   []bool{true},
		textAreas: []string{"hello\nworld"},
	}

	values, err := Collect(context.Background(), sampleForm(), driver)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	want := url.Values{
		"name":       {"Ada"},
		"password":   {"s3cret"},
		"topic":      {"support"},
		"tags":       {"go", "zig"},
		"newsletter": {"true"},
		"notes":      {"hello\nworld"},
		"aliases":    {"ada", "countess"},
		"submit":     {"1"},
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	wantMessages := []string{"Your name", "password", "topic", "tags", "newsletter", "address.city", "notes", "aliases"}
	if diff := cmp.Diff(wantMessages, driver.messages); diff != "" {
		t.Fatalf("prompt order mismatch (-want +got):\n%s", diff)
	}
	if len(driver.info) != 1 {
		t.Fatalf("expected one info message for the upload field, got %v", driver.info)
	}
}

func TestCollectStopsOnDriverError(t *testing.T) {
	driver := &stubDriver{}
	_, err := Collect(context.Background(), sampleForm(), driver)
	if err == nil {
		t.Fatalf("expected error when the driver runs out of answers")
	}
}

func TestCollectHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(ctx, sampleForm(), &stubDriver{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIndexHelpers(t *testing.T) {
	options := []string{"a", "b", "c"}
	if got := indexOf(options, "c"); got != 2 {
		t.Fatalf("indexOf = %d", got)
	}
	if got := indexOf(options, "z"); got != -1 {
		t.Fatalf("indexOf missing = %d", got)
	}
	if diff := cmp.Diff([]int{0, 2}, indicesOf(options, []string{"c", "a"})); diff != "" {
		t.Fatalf("indicesOf mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectReasksUntilConstraintsPass(t *testing.T) {
	email := form.NewField("email").
		AddFilter(processors.Trim(), processors.LowerCase()).
		AddConstraint(processors.NewRequired(), processors.NewEmail())
	password := form.NewField("password").AddConstraint(processors.NewRequired())
	confirm := form.NewField("confirm").AddConstraint(processors.NewEqual("password"))
	confirm.Attributes = map[string]any{AttrPassword: true}
	f := form.New(form.WithAttributes(map[string]any{"message.required": "Please answer"})).
		AddField(email, password, confirm)

	driver := &stubDriver{
		inputs:    []string{"", "nope", " ADA@Example.com "},
		passwords: []string{"s3cret", "typo", "s3cret"},
	}
	values, err := Collect(context.Background(), f, driver)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	wantRejected := []string{
		"Please answer",
		"This field must contain an email address",
		"Does not match",
	}
	if diff := cmp.Diff(wantRejected, driver.rejected); diff != "" {
		t.Fatalf("rejections mismatch (-want +got):\n%s", diff)
	}
	want := url.Values{
		"email":    {" ADA@Example.com "},
		"password": {"s3cret"},
		"confirm":  {"s3cret"},
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	if err := f.Process(query.FromValues(values)); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !f.SubmittedAndValid() {
		t.Fatalf("collected values should process cleanly: %v", f.Errors().All())
	}
}

func TestCollectDefersChecksOnLaterFields(t *testing.T) {
	// confirm is asked before the field it must equal
	confirm := form.NewField("confirm").AddConstraint(processors.NewEqual("password"))
	f := form.New().AddField(confirm, form.NewField("password"))

	driver := &stubDriver{inputs: []string{"abc"}, passwords: []string{"abc"}}
	if _, err := Collect(context.Background(), f, driver); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(driver.rejected) != 0 {
		t.Fatalf("unexpected rejections: %v", driver.rejected)
	}
}

func TestCollectUsesDefaults(t *testing.T) {
	city := form.NewField("city")
	city.Attributes = map[string]any{AttrDefault: "Lisbon"}
	topic := form.NewField("topic")
	topic.Attributes = map[string]any{AttrOptions: []string{"sales", "support"}, AttrDefault: "support"}
	tags := form.NewField("tags")
	tags.MultiValue = true
	tags.Attributes = map[string]any{AttrOptions: []string{"a", "b", "c"}, AttrDefault: []any{"c", "a"}}
	f := form.New().AddField(city, topic, tags)

	driver := &stubDriver{inputs: []string{"Porto"}, selectIdx: []int{0}, multiIdx: [][]int{{1}}}
	if _, err := Collect(context.Background(), f, driver); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if diff := cmp.Diff([]string{"Lisbon"}, driver.defaults); diff != "" {
		t.Fatalf("input defaults mismatch (-want +got):\n%s", diff)
	}
	if got := driver.selects[0].DefaultIndex; got != 1 {
		t.Fatalf("select default index = %d, want 1", got)
	}
	if diff := cmp.Diff([]int{0, 2}, driver.selects[1].Defaults); diff != "" {
		t.Fatalf("multiselect defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestOwnErrorIgnoresOtherFields(t *testing.T) {
	a := form.NewField("a")
	b := form.NewField("b")
	pinned := form.NewError(form.StageConstraint, "b is required")
	pinned.Field = b

	if err := ownError(a, errors.Join(pinned)); err != nil {
		t.Fatalf("error pinned to another field should be ignored, got %v", err)
	}
	plain := errors.New("bad")
	if err := ownError(a, errors.Join(pinned, plain)); err != plain {
		t.Fatalf("expected the field's own error, got %v", err)
	}
}
