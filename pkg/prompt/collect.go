// Package prompt collects a submission for a form interactively, one question
// per field, and hands back the answers as url.Values ready for Process.
package prompt

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-formproc/pkg/form"
)

// Field attributes consulted while prompting.
const (
	AttrLabel     = "label"
	AttrHelp      = "help"
	AttrOptions   = "options"
	AttrPassword  = "password"
	AttrMultiline = "multiline"
	AttrDefault   = "default"
)

// Collect asks driver for a value for every field of f. Empty answers are left
// out, upload fields are skipped and non-param fields are sent as "1" without
// asking. Typed answers are checked against the field's filters and
// constraints while prompting, so the driver can ask again on a bad answer.
func Collect(ctx context.Context, f *form.Form, driver Driver) (url.Values, error) {
	values := url.Values{}
	checks := newChecker(f, values)
	for _, fld := range f.Fields() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := fld.NestedName()
		checks.asked[name] = true
		switch {
		case fld.Upload:
			_ = driver.Info(ctx, fmt.Sprintf("Skipping %s: file uploads cannot be entered here", name))
			continue
		case fld.NonParam:
			values.Set(name, "1")
			continue
		}

		answers, err := ask(ctx, fld, driver, checks.validator(fld))
		if err != nil {
			return nil, fmt.Errorf("prompt: %s: %w", name, err)
		}
		for _, answer := range answers {
			if answer != "" {
				values.Add(name, answer)
			}
		}
	}
	return values, nil
}

func ask(ctx context.Context, fld *form.Field, driver Driver, validate func(string) error) ([]string, error) {
	message := label(fld)
	help := stringAttr(fld, AttrHelp)
	defaults := stringsAttr(fld, AttrDefault)

	if options := stringsAttr(fld, AttrOptions); len(options) > 0 {
		cfg := SelectConfig{Message: message, Options: options, Help: help, Defaults: indicesOf(options, defaults)}
		if len(defaults) > 0 {
			cfg.DefaultIndex = indexOf(options, defaults[0])
		}
		if fld.MultiValue {
			indices, err := driver.MultiSelect(ctx, cfg)
			if err != nil {
				return nil, err
			}
			out := make([]string, 0, len(indices))
			for _, idx := range indices {
				if idx >= 0 && idx < len(options) {
					out = append(out, options[idx])
				}
			}
			return out, nil
		}
		idx, err := driver.Select(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(options) {
			return nil, nil
		}
		return []string{options[idx]}, nil
	}

	if hasInflator(fld, "bool") {
		on := len(defaults) > 0 && truthy(defaults[0])
		ok, err := driver.Confirm(ctx, ConfirmConfig{Message: message, Help: help, Default: on})
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprint(ok)}, nil
	}

	var (
		answer string
		err    error
	)
	switch {
	case boolAttr(fld, AttrPassword) || strings.Contains(strings.ToLower(fld.Name), "password"):
		answer, err = driver.Password(ctx, InputConfig{Message: message, Help: help, Validator: validate})
	case boolAttr(fld, AttrMultiline):
		answer, err = driver.TextArea(ctx, TextAreaConfig{
			Message:   message,
			Help:      help,
			Default:   strings.Join(defaults, "\n"),
			Validator: validate,
		})
	default:
		if fld.MultiValue {
			help = strings.TrimSpace(help + " (comma separated)")
		}
		answer, err = driver.Input(ctx, InputConfig{
			Message:   message,
			Help:      help,
			Default:   strings.Join(defaults, ", "),
			Validator: validate,
		})
	}
	if err != nil {
		return nil, err
	}
	return splitAnswer(fld, answer), nil
}

func label(fld *form.Field) string {
	if l := stringAttr(fld, AttrLabel); l != "" {
		return l
	}
	return fld.NestedName()
}

// Prompt attributes are read from the field only, never inherited.
func stringAttr(fld *form.Field, key string) string {
	if s, ok := fld.Attributes[key].(string); ok {
		return s
	}
	return ""
}

func boolAttr(fld *form.Field, key string) bool {
	b, _ := fld.Attributes[key].(bool)
	return b
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "on", "yes", "true", "t", "y":
		return true
	}
	return false
}

// stringsAttr reads a list attribute; a scalar counts as a one-element list.
func stringsAttr(fld *form.Field, key string) []string {
	switch v := fld.Attributes[key].(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

func hasInflator(fld *form.Field, typ string) bool {
	for _, p := range fld.Inflators() {
		if p.Type() == typ {
			return true
		}
	}
	return false
}
