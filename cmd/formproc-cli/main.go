package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-formproc"
	"github.com/goliatone/go-formproc/pkg/definition"
	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/prompt"
	"github.com/goliatone/go-formproc/pkg/query"
)

type config struct {
	definition  string
	openapi     string
	operation   string
	data        string
	interactive bool
	output      string
	verbose     bool
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr, nil); err != nil {
		log.Fatalf("formproc: %v", err)
	}
}

// run is main without the process globals. driver replaces the terminal
// prompts in interactive mode when not nil.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, driver prompt.Driver) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.verbose {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	f, err := buildForm(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var q query.Query
	if cfg.interactive {
		if driver == nil {
			// prompts go to stderr so stdout only carries the result
			driver = prompt.NewSurveyDriver(prompt.WithStdio(stdin, stderr, stderr))
		}
		values, err := prompt.Collect(ctx, f, driver)
		if err != nil {
			return err
		}
		q = query.FromValues(values)
	} else {
		q, err = parseData(cfg.data, stdin)
		if err != nil {
			return err
		}
	}

	if err := f.Process(q); err != nil {
		return fmt.Errorf("process: %w", err)
	}

	payload, err := json.MarshalIndent(formproc.Summarize(f), "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	payload = append(payload, '\n')

	if cfg.output != "" {
		if err := os.WriteFile(cfg.output, payload, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		_, err := fmt.Fprintf(stderr, "Result written to %s\n", cfg.output)
		return err
	}
	_, err = stdout.Write(payload)
	return err
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("formproc-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.definition, "definition", "", "form definition file (YAML or JSON)")
	fs.StringVar(&cfg.openapi, "openapi", "", "OpenAPI document to derive the form from")
	fs.StringVar(&cfg.operation, "operation", "", "operation ID within the OpenAPI document")
	fs.StringVar(&cfg.data, "data", "", "submission as JSON object or query string; @file reads a file, - reads stdin")
	fs.BoolVar(&cfg.interactive, "interactive", false, "prompt for every field instead of reading -data")
	fs.StringVar(&cfg.output, "output", "", "output file (stdout if empty)")
	fs.BoolVar(&cfg.verbose, "verbose", false, "log processing steps to stderr")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s (-definition file | -openapi file -operation id) [-data payload | -interactive]\n\n", fs.Name())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	switch {
	case cfg.definition == "" && cfg.openapi == "":
		return config{}, errors.New("one of -definition or -openapi is required")
	case cfg.definition != "" && cfg.openapi != "":
		return config{}, errors.New("-definition and -openapi are mutually exclusive")
	case cfg.openapi != "" && cfg.operation == "":
		return config{}, errors.New("-operation is required with -openapi")
	}
	return cfg, nil
}

func buildForm(ctx context.Context, cfg config, logger *slog.Logger) (*form.Form, error) {
	opts := []definition.Option{definition.WithFormOptions(form.WithLogger(logger))}
	if cfg.definition != "" {
		path := filepath.Clean(cfg.definition)
		return formproc.Load(os.DirFS(filepath.Dir(path)), filepath.Base(path), opts...)
	}
	data, err := os.ReadFile(cfg.openapi)
	if err != nil {
		return nil, fmt.Errorf("read OpenAPI document: %w", err)
	}
	return formproc.FromOpenAPI(ctx, data, cfg.operation, opts...)
}

func parseData(raw string, stdin io.Reader) (query.Query, error) {
	var data []byte
	switch {
	case raw == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		data = b
	case strings.HasPrefix(raw, "@"):
		b, err := os.ReadFile(strings.TrimPrefix(raw, "@"))
		if err != nil {
			return nil, fmt.Errorf("read data file: %w", err)
		}
		data = b
	default:
		data = []byte(raw)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		return query.FromJSON([]byte(trimmed)), nil
	}
	values, err := url.ParseQuery(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse query string: %w", err)
	}
	return query.FromValues(values), nil
}
