package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-formproc"
	"github.com/goliatone/go-formproc/pkg/prompt"
	"github.com/goliatone/go-formproc/pkg/testsupport"
)

var feedback = filepath.Join("testdata", "feedback.yaml")

func runCLI(t *testing.T, args []string, stdin string, driver prompt.Driver) formproc.Result {
	t.Helper()

	var stdout, stderr bytes.Buffer
	if err := run(testsupport.Context(), args, strings.NewReader(stdin), &stdout, &stderr, driver); err != nil {
		t.Fatalf("run %v: %v (stderr: %s)", args, err, stderr.String())
	}
	var res formproc.Result
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		t.Fatalf("decode output %q: %v", stdout.String(), err)
	}
	return res
}

func checkGolden(t *testing.T, name string, got formproc.Result) {
	t.Helper()

	path := filepath.Join("testdata", name)
	if testsupport.WriteGolden(t, path, got) {
		return
	}
	var want formproc.Result
	testsupport.MustLoadGolden(t, path, &want)
	if diff := testsupport.CompareGolden(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_QueryString(t *testing.T) {
	res := runCLI(t, []string{"-definition", feedback, "-data", "email=+a%40example.com&rating=4&send=1"}, "", nil)
	checkGolden(t, "valid.golden.json", res)
}

func TestRun_JSONFromStdin(t *testing.T) {
	res := runCLI(t, []string{"-definition", feedback, "-data", "-"}, `{"email":"nope","rating":9,"send":true}`, nil)
	checkGolden(t, "invalid.golden.json", res)
}

func TestRun_DataFileAndOutput(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(dataPath, []byte("email=a@example.com&rating=4&send=1\n"), 0o644); err != nil {
		t.Fatalf("write data: %v", err)
	}
	outPath := filepath.Join(dir, "out.json")

	var stdout, stderr bytes.Buffer
	args := []string{"-definition", feedback, "-data", "@" + dataPath, "-output", outPath}
	if err := run(context.Background(), args, nil, &stdout, &stderr, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.Len() != 0 {
		t.Fatalf("expected no stdout when -output is set, got %q", stdout.String())
	}

	var res formproc.Result
	testsupport.MustLoadGolden(t, outPath, &res)
	if !res.Valid {
		t.Fatalf("expected valid result: %#v", res)
	}
}

func TestRun_Interactive(t *testing.T) {
	driver := &scriptedDriver{inputs: []string{"a@example.com", "4"}}
	res := runCLI(t, []string{"-definition", feedback, "-interactive"}, "", driver)
	checkGolden(t, "valid.golden.json", res)
	if len(driver.messages) != 2 || driver.messages[0] != "Email address" {
		t.Fatalf("unexpected prompts: %v", driver.messages)
	}
}

func TestRun_OpenAPI(t *testing.T) {
	doc := filepath.Join("..", "..", "pkg", "openapi", "testdata", "contacts.yaml")
	res := runCLI(t, []string{
		"-openapi", doc,
		"-operation", "createContact",
		"-data", "name=Al&email=al%40example.com&address.city=Porto",
	}, "", nil)
	if !res.Submitted || !res.Valid {
		t.Fatalf("expected a valid submission: %#v", res)
	}
	if res.Params["name"] != "Al" {
		t.Fatalf("unexpected params: %#v", res.Params)
	}
}

func TestRun_FlagErrors(t *testing.T) {
	cases := map[string][]string{
		"no source":         {},
		"both sources":      {"-definition", feedback, "-openapi", "x.yaml", "-operation", "op"},
		"missing operation": {"-openapi", "x.yaml"},
		"unknown flag":      {"-nope"},
	}
	for name, args := range cases {
		var stdout, stderr bytes.Buffer
		if err := run(context.Background(), args, nil, &stdout, &stderr, nil); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestRun_MalformedJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-definition", feedback, "-data", `{"email":`}, nil, &stdout, &stderr, nil)
	if err == nil || !strings.Contains(err.Error(), "process") {
		t.Fatalf("expected process error, got %v", err)
	}
}

type scriptedDriver struct {
	inputs   []string
	messages []string
}

func (d *scriptedDriver) next(message string) (string, error) {
	d.messages = append(d.messages, message)
	if len(d.inputs) == 0 {
		return "", errors.New("no input scripted")
	}
	val := d.inputs[0]
	d.inputs = d.inputs[1:]
	return val, nil
}

func (d *scriptedDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	return d.next(cfg.Message)
}

func (d *scriptedDriver) Password(_ context.Context, cfg prompt.InputConfig) (string, error) {
	return d.next(cfg.Message)
}

func (d *scriptedDriver) Confirm(context.Context, prompt.ConfirmConfig) (bool, error) {
	return false, errors.New("confirm not scripted")
}

func (d *scriptedDriver) Select(context.Context, prompt.SelectConfig) (int, error) {
	return -1, errors.New("select not scripted")
}

func (d *scriptedDriver) MultiSelect(context.Context, prompt.SelectConfig) ([]int, error) {
	return nil, errors.New("multiselect not scripted")
}

func (d *scriptedDriver) TextArea(_ context.Context, cfg prompt.TextAreaConfig) (string, error) {
	return d.next(cfg.Message)
}

func (d *scriptedDriver) Info(context.Context, string) error { return nil }
