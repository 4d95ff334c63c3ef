package processors

import (
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/goliatone/go-formproc/pkg/form"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonDigit   = regexp.MustCompile(`\D+`)

	strictPolicy *bluemonday.Policy
	safePolicy   *bluemonday.Policy
	policyOnce   sync.Once
)

func initPolicies() {
	policyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()

		safePolicy = bluemonday.NewPolicy()
		safePolicy.AllowStandardURLs()
		safePolicy.AllowElements(
			"p", "br",
			"strong", "b", "em", "i",
			"ul", "ol", "li",
			"code", "pre", "blockquote",
		)
		safePolicy.AllowAttrs("href").OnElements("a")
		safePolicy.RequireNoFollowOnLinks(true)
	})
}

// StringFilter rewrites string values with fn. Other values pass through.
type StringFilter struct {
	form.Base
	fn func(string) string
}

// NewStringFilter returns a filter tagged typ.
func NewStringFilter(typ string, fn func(string) string) *StringFilter {
	return &StringFilter{Base: form.NewBase(typ), fn: fn}
}

// Filter implements form.Filter.
func (p *StringFilter) Filter(_ *form.Context, value any) any {
	s, ok := value.(string)
	if !ok || p.fn == nil {
		return value
	}
	return p.fn(s)
}

// Trim removes leading and trailing whitespace.
func Trim() *StringFilter { return NewStringFilter("trim", strings.TrimSpace) }

// CollapseWhitespace replaces runs of whitespace with a single space.
func CollapseWhitespace() *StringFilter {
	return NewStringFilter("collapse_whitespace", func(s string) string {
		return whitespace.ReplaceAllString(s, " ")
	})
}

// LowerCase lower-cases with Unicode case mapping.
func LowerCase() *StringFilter {
	return NewStringFilter("lowercase", func(s string) string {
		// a Caser is stateful; one per call
		return cases.Lower(language.Und).String(s)
	})
}

// UpperCase upper-cases with Unicode case mapping.
func UpperCase() *StringFilter {
	return NewStringFilter("uppercase", func(s string) string {
		return cases.Upper(language.Und).String(s)
	})
}

// NonDigit removes every character that is not a digit.
func NonDigit() *StringFilter {
	return NewStringFilter("non_digit", func(s string) string {
		return nonDigit.ReplaceAllString(s, "")
	})
}

// Normalize rewrites the value in Unicode NFC form.
func Normalize() *StringFilter {
	return NewStringFilter("normalize", norm.NFC.String)
}

// HTMLStrip removes all markup, leaving text.
func HTMLStrip() *StringFilter {
	initPolicies()
	return NewStringFilter("html_strip", strictPolicy.Sanitize)
}

// HTMLScrubber keeps basic formatting markup. With elements, only those
// elements are kept.
func HTMLScrubber(elements ...string) *StringFilter {
	initPolicies()
	policy := safePolicy
	if len(elements) > 0 {
		policy = bluemonday.NewPolicy()
		policy.AllowElements(elements...)
	}
	return NewStringFilter("html_scrubber", policy.Sanitize)
}

// Regex replaces every match of pattern with replace.
func Regex(pattern *regexp.Regexp, replace string) *StringFilter {
	return NewStringFilter("regex", func(s string) string {
		if pattern == nil {
			return s
		}
		return pattern.ReplaceAllString(s, replace)
	})
}

// FilterFunc is the callback signature of callback filters.
type FilterFunc func(ctx *form.Context, value any) any

// CallbackFilter delegates to a function. Clones share it.
type CallbackFilter struct {
	form.Base
	Fn FilterFunc
}

// NewCallbackFilter wraps fn.
func NewCallbackFilter(fn FilterFunc) *CallbackFilter {
	return &CallbackFilter{Base: form.NewBase("callback"), Fn: fn}
}

// Filter implements form.Filter.
func (p *CallbackFilter) Filter(ctx *form.Context, value any) any {
	if p.Fn == nil {
		return value
	}
	return p.Fn(ctx, value)
}
