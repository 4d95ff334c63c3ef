// Package openapi derives form definitions from the request bodies of OpenAPI
// 3 operations. Documents are loaded with kin-openapi; the mapping only covers
// what can be checked server side (required properties, lengths, ranges,
// patterns, enums and formats).
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formproc/pkg/definition"
)

// ErrOperationNotFound is returned when the document has no operation with the
// requested id.
var ErrOperationNotFound = errors.New("openapi: operation not found")

// Request body media types, in order of preference.
var mediaTypes = []string{
	"application/x-www-form-urlencoded",
	"multipart/form-data",
	"application/json",
}

// Operations lists the operation ids of the document, sorted. Operations
// without an id are listed as "method:path".
func Operations(ctx context.Context, data []byte) ([]string, error) {
	doc, err := load(ctx, data)
	if err != nil {
		return nil, err
	}
	var out []string
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			out = append(out, operationID(method, path, op))
		}
	}
	sort.Strings(out)
	return out, nil
}

// FromData loads the document in data and maps the request body of
// operationID onto a definition.
func FromData(ctx context.Context, data []byte, operationID string) (definition.Definition, error) {
	doc, err := load(ctx, data)
	if err != nil {
		return definition.Definition{}, err
	}
	method, path, op, ok := findOperation(doc, operationID)
	if !ok {
		return definition.Definition{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}

	def := definition.Definition{
		ID: operationID,
		Attributes: map[string]any{
			"method": method,
			"path":   path,
		},
	}
	if op.Summary != "" {
		def.Attributes["summary"] = op.Summary
	}

	body := requestSchema(op)
	if body == nil || body.Value == nil {
		return def, nil
	}
	m := &mapper{visiting: make(map[*openapi3.Schema]bool)}
	def.Elements = m.elements(body.Value)
	return def, nil
}

func load(ctx context.Context, data []byte) (*openapi3.T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, errors.New("openapi: document does not contain any paths")
	}
	return doc, nil
}

func operationID(method, path string, op *openapi3.Operation) string {
	if op != nil && op.OperationID != "" {
		return op.OperationID
	}
	return strings.ToLower(method) + ":" + path
}

func findOperation(doc *openapi3.T, id string) (string, string, *openapi3.Operation, bool) {
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op != nil && operationID(method, path, op) == id {
				return method, path, op, true
			}
		}
	}
	return "", "", nil, false
}

func requestSchema(op *openapi3.Operation) *openapi3.SchemaRef {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range mediaTypes {
		if mt, ok := content[mediaType]; ok && mt != nil {
			return mt.Schema
		}
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if mt := content[key]; mt != nil {
			return mt.Schema
		}
	}
	return nil
}
