package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formproc/pkg/condition"
)

// Evaluator is a small, dependency-free condition evaluator.
//
// Supported syntax:
//   - truthiness: `subscribe`, `!subscribe`
//   - equality: `country == "PT"`, `plan != free`, `count == 3`
//   - ordering: `age >= 18`, `total < 100`
//   - composition: `a == 1 && (b || !c)`
//
// Identifiers resolve against condition.Context.Values (exact key first, then
// dot-path traversal) or condition.Context.Extras via the `extras.` prefix.
// Multi-valued inputs ([]any) match when any element satisfies a comparison;
// `!=` holds only when no element equals the literal.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*Program
}

// New returns an Evaluator that caches compiled rules.
func New() *Evaluator {
	return &Evaluator{cache: make(map[string]*Program)}
}

// Eval compiles (or reuses) rule and evaluates it against ctx. An empty rule
// always holds.
func (e *Evaluator) Eval(rule string, ctx condition.Context) (bool, error) {
	program, err := e.compile(rule)
	if err != nil {
		return false, err
	}
	return program.Eval(ctx)
}

func (e *Evaluator) compile(rule string) (*Program, error) {
	key := strings.TrimSpace(rule)
	e.mu.RLock()
	program, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}
	program, err := Compile(key)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.cache == nil {
		e.cache = make(map[string]*Program)
	}
	e.cache[key] = program
	e.mu.Unlock()
	return program, nil
}

var _ condition.Evaluator = (*Evaluator)(nil)

// Program is a compiled rule.
type Program struct {
	source string
	root   node
}

// Compile parses rule into a Program.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	program := &Program{source: trimmed}
	if trimmed == "" {
		return program, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	stream := &tokenStream{tokens: tokens}
	root, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("condition/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	program.root = root
	return program, nil
}

// MustCompile is Compile that panics on error. Intended for rules known at
// init time.
func MustCompile(rule string) *Program {
	program, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return program
}

// String returns the rule source.
func (p *Program) String() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Eval evaluates the program. A nil or empty program holds.
func (p *Program) Eval(ctx condition.Context) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(ctx)
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(input); {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			i++
		case ch == '!' || ch == '=' || ch == '<' || ch == '>':
			op, width, err := operator(input[i:])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, op)
			i += width
		case ch == '&' || ch == '|':
			if i+1 >= len(input) || input[i+1] != ch {
				return nil, fmt.Errorf("condition/expr: unexpected %q; use %q", string(ch), string([]byte{ch, ch}))
			}
			kind := tokenAnd
			if ch == '|' {
				kind = tokenOr
			}
			tokens = append(tokens, token{kind: kind, raw: input[i : i+2]})
			i += 2
		case ch == '"' || ch == '\'':
			value, width, err := quoted(input[i:])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, raw: value})
			i += width
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			tokens = append(tokens, word(input[start:i]))
		}
	}
	return tokens, nil
}

func operator(input string) (token, int, error) {
	two := ""
	if len(input) >= 2 {
		two = input[:2]
	}
	switch two {
	case "==":
		return token{kind: tokenEq, raw: two}, 2, nil
	case "!=":
		return token{kind: tokenNeq, raw: two}, 2, nil
	case "<=":
		return token{kind: tokenLte, raw: two}, 2, nil
	case ">=":
		return token{kind: tokenGte, raw: two}, 2, nil
	}
	switch input[0] {
	case '!':
		return token{kind: tokenNot, raw: "!"}, 1, nil
	case '<':
		return token{kind: tokenLt, raw: "<"}, 1, nil
	case '>':
		return token{kind: tokenGt, raw: ">"}, 1, nil
	default:
		return token{}, 0, errors.New("condition/expr: unexpected '='; use '=='")
	}
}

func quoted(input string) (string, int, error) {
	quote := input[0]
	escaped := false
	for i := 1; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		body := input[1:i]
		if quote == '\'' {
			body = strings.ReplaceAll(body, `"`, `\"`)
			body = strings.ReplaceAll(body, `\'`, `'`)
		}
		value, err := strconv.Unquote(`"` + body + `"`)
		if err != nil {
			return "", 0, fmt.Errorf("condition/expr: invalid string literal: %w", err)
		}
		return value, i + 1, nil
	}
	return "", 0, errors.New("condition/expr: unterminated string literal")
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '!', '=', '<', '>', '&', '|', '"', '\'':
		return true
	default:
		return false
	}
}

func word(raw string) token {
	switch strings.ToLower(raw) {
	case "true", "false":
		return token{kind: tokenBool, raw: strings.ToLower(raw)}
	case "null", "nil":
		return token{kind: tokenNull, raw: "null"}
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return token{kind: tokenNumber, raw: raw}
	}
	return token{kind: tokenIdentifier, raw: raw}
}
