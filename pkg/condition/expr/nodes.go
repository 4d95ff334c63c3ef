package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formproc/pkg/condition"
)

type node interface {
	eval(ctx condition.Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx condition.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx condition.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx condition.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type truthyNode struct{ identifier string }

func (n truthyNode) eval(ctx condition.Context) (bool, error) {
	value, ok := lookup(ctx, n.identifier)
	if !ok {
		return false, nil
	}
	for _, candidate := range candidates(value) {
		if truthy(candidate) {
			return true, nil
		}
	}
	return false, nil
}

type compareNode struct {
	identifier string
	op         tokenKind
	literal    token
}

func (n compareNode) eval(ctx condition.Context) (bool, error) {
	value, _ := lookup(ctx, n.identifier)
	values := candidates(value)
	if len(values) == 0 {
		values = []any{nil}
	}

	if n.op == tokenNeq {
		for _, candidate := range values {
			eq, err := n.equal(candidate)
			if err != nil {
				return false, err
			}
			if eq {
				return false, nil
			}
		}
		return true, nil
	}

	for _, candidate := range values {
		var (
			ok  bool
			err error
		)
		if n.op == tokenEq {
			ok, err = n.equal(candidate)
		} else {
			ok, err = n.order(candidate)
		}
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (n compareNode) equal(value any) (bool, error) {
	switch n.literal.kind {
	case tokenNull:
		return value == nil, nil
	case tokenBool:
		got, _ := coerceBool(value)
		return got == (n.literal.raw == "true"), nil
	case tokenNumber:
		want, err := strconv.ParseFloat(n.literal.raw, 64)
		if err != nil {
			return false, fmt.Errorf("condition/expr: invalid number literal %q", n.literal.raw)
		}
		got, ok := coerceNumber(value)
		return ok && got == want, nil
	default:
		return coerceString(value) == n.literal.raw, nil
	}
}

func (n compareNode) order(value any) (bool, error) {
	if n.literal.kind != tokenNumber {
		return false, fmt.Errorf("condition/expr: operator %q requires a number literal", opString(n.op))
	}
	want, err := strconv.ParseFloat(n.literal.raw, 64)
	if err != nil {
		return false, fmt.Errorf("condition/expr: invalid number literal %q", n.literal.raw)
	}
	got, ok := coerceNumber(value)
	if !ok {
		return false, nil
	}
	switch n.op {
	case tokenLt:
		return got < want, nil
	case tokenLte:
		return got <= want, nil
	case tokenGt:
		return got > want, nil
	default:
		return got >= want, nil
	}
}

func opString(kind tokenKind) string {
	switch kind {
	case tokenEq:
		return "=="
	case tokenNeq:
		return "!="
	case tokenLt:
		return "<"
	case tokenLte:
		return "<="
	case tokenGt:
		return ">"
	case tokenGte:
		return ">="
	default:
		return "?"
	}
}

type tokenStream struct {
	tokens []token
	pos    int
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) peek() (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	return s.tokens[s.pos], true
}

func parseOr(s *tokenStream) (node, error) {
	left, err := parseAnd(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokenOr) {
		right, err := parseAnd(s)
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func parseAnd(s *tokenStream) (node, error) {
	left, err := parseUnary(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokenAnd) {
		right, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func parseUnary(s *tokenStream) (node, error) {
	if s.match(tokenNot) {
		inner, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return parsePrimary(s)
}

func parsePrimary(s *tokenStream) (node, error) {
	if s.match(tokenLParen) {
		inner, err := parseOr(s)
		if err != nil {
			return nil, err
		}
		if !s.match(tokenRParen) {
			return nil, errors.New("condition/expr: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := s.peek()
	if !ok {
		return nil, errors.New("condition/expr: empty expression")
	}
	if ident.kind != tokenIdentifier {
		return nil, fmt.Errorf("condition/expr: expected identifier, got %q", ident.raw)
	}
	s.pos++

	op, ok := s.peek()
	if !ok {
		return truthyNode{identifier: ident.raw}, nil
	}
	switch op.kind {
	case tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte:
		s.pos++
	default:
		return truthyNode{identifier: ident.raw}, nil
	}

	lit, ok := s.peek()
	if !ok {
		return nil, errors.New("condition/expr: missing literal")
	}
	s.pos++
	switch lit.kind {
	case tokenString, tokenNumber, tokenBool, tokenNull:
	case tokenIdentifier:
		// bare words compare as strings
		lit.kind = tokenString
	default:
		return nil, fmt.Errorf("condition/expr: expected literal, got %q", lit.raw)
	}
	return compareNode{identifier: ident.raw, op: op.kind, literal: lit}, nil
}

func lookup(ctx condition.Context, key string) (any, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	if strings.HasPrefix(strings.ToLower(key), "extras.") {
		return lookupMap(ctx.Extras, key[len("extras."):])
	}
	return lookupMap(ctx.Values, key)
}

func lookupMap(values map[string]any, path string) (any, bool) {
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}
	var current any = values
	for _, part := range strings.Split(path, ".") {
		switch typed := current.(type) {
		case map[string]any:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(typed) {
				return nil, false
			}
			current = typed[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func candidates(value any) []any {
	switch typed := value.(type) {
	case nil:
		return nil
	case []any:
		return typed
	case []string:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = v
		}
		return out
	default:
		return []any{value}
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		return trimmed != "" && trimmed != "0"
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func coerceBool(value any) (bool, bool) {
	switch v := value.(type) {
	case nil:
		return false, false
	case bool:
		return v, true
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed, true
		}
		return truthy(v), true
	default:
		return truthy(value), true
	}
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}
