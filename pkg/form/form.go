package form

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-formproc/pkg/condition"
	"github.com/goliatone/go-formproc/pkg/condition/expr"
	"github.com/goliatone/go-formproc/pkg/nested"
	"github.com/goliatone/go-formproc/pkg/query"
)

// UploadParser turns the submitted value of an upload-capable field into
// upload handles. Parsers are selected by query type.
type UploadParser interface {
	ParseUploads(q query.Query, name string) (any, error)
}

// UploadParserFunc adapts a function into an UploadParser.
type UploadParserFunc func(q query.Query, name string) (any, error)

// ParseUploads implements UploadParser.
func (fn UploadParserFunc) ParseUploads(q query.Query, name string) (any, error) {
	return fn(q, name)
}

// IndicatorFunc decides whether q counts as a submission of f.
type IndicatorFunc func(f *Form, q query.Query) bool

// Option configures a Form.
type Option func(*Form)

// WithIndicator makes the form count as submitted iff name carries a value.
func WithIndicator(name string) Option {
	return func(f *Form) {
		f.indicator = strings.TrimSpace(name)
	}
}

// WithIndicatorFunc installs a callback indicator.
func WithIndicatorFunc(fn IndicatorFunc) Option {
	return func(f *Form) {
		f.indicatorFunc = fn
	}
}

// WithNotation selects how nested names are written.
func WithNotation(notation nested.Notation) Option {
	return func(f *Form) {
		f.store = nested.New(notation)
	}
}

// WithNestedName prefixes every field's nested name with name.
func WithNestedName(name string) Option {
	return func(f *Form) {
		f.nestedName = strings.TrimSpace(name)
	}
}

// WithIgnoreUnderscore drops names with a segment starting with "_" from the
// valid names.
func WithIgnoreUnderscore(enabled bool) Option {
	return func(f *Form) {
		f.ignoreUnderscore = enabled
	}
}

// WithQueryType forces the query type used to select an upload parser. By
// default the type advertised by the query is used.
func WithQueryType(typ string) Option {
	return func(f *Form) {
		f.queryType = typ
	}
}

// WithUploadParser registers parser for queries of type typ.
func WithUploadParser(typ string, parser UploadParser) Option {
	return func(f *Form) {
		if parser == nil {
			return
		}
		if f.uploadParsers == nil {
			f.uploadParsers = make(map[string]UploadParser)
		}
		f.uploadParsers[typ] = parser
	}
}

// WithEvaluator replaces the evaluator used by When.Expr.
func WithEvaluator(evaluator condition.Evaluator) Option {
	return func(f *Form) {
		if evaluator != nil {
			f.evaluator = evaluator
		}
	}
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithAttributes sets form-level attributes, the root of Resolve lookups.
func WithAttributes(attrs map[string]any) Option {
	return func(f *Form) {
		for k, v := range attrs {
			f.attributes[k] = v
		}
	}
}

type node struct {
	field  *Field
	parent int
}

// Form owns a tree of fields and the state of the last Process call. A form
// is not safe for concurrent use; Clone it per request.
type Form struct {
	id               string
	logger           *slog.Logger
	store            nested.Store
	nestedName       string
	indicator        string
	indicatorFunc    IndicatorFunc
	ignoreUnderscore bool
	queryType        string
	uploadParsers    map[string]UploadParser
	evaluator        condition.Evaluator
	attributes       map[string]any

	elements []*Field
	arena    []node
	dirty    bool

	query     query.Query
	submitted bool
	params    map[string]any
	errors    *ErrorCollector
	valid     []string
	validSet  map[string]struct{}
	nonParam  map[string]struct{}
	raw       map[string]any
}

// New builds an empty form.
func New(options ...Option) *Form {
	f := &Form{
		id:         uuid.NewString(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		evaluator:  expr.New(),
		attributes: make(map[string]any),
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	f.resetState(query.Empty)
	return f
}

// ID returns the instance identifier. Clones get a new one.
func (f *Form) ID() string { return f.id }

// Store returns the nested value store used for params.
func (f *Form) Store() nested.Store { return f.store }

// Attributes returns the form-level attributes.
func (f *Form) Attributes() map[string]any { return f.attributes }

// AddField appends top-level fields (or blocks).
func (f *Form) AddField(fields ...*Field) *Form {
	for _, fld := range fields {
		if fld == nil {
			continue
		}
		fld.parent = nil
		fld.attach(f)
		f.elements = append(f.elements, fld)
	}
	f.dirty = true
	return f
}

// Elements returns the top-level fields and blocks.
func (f *Form) Elements() []*Field {
	return append([]*Field(nil), f.elements...)
}

// Fields returns every non-block field, depth first.
func (f *Form) Fields() []*Field {
	var out []*Field
	for _, el := range f.elements {
		if el.IsBlock() {
			out = append(out, el.Descendants()...)
			continue
		}
		out = append(out, el)
	}
	return out
}

// Field finds a field or block by name or nested name. The first match in
// depth-first order wins.
func (f *Form) Field(name string) *Field {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	normalized := f.store.Normalize(name)
	for _, n := range f.nodes() {
		if n.field.Name == name || n.field.NestedName() == normalized {
			return n.field
		}
	}
	return nil
}

// AddFilter attaches a copy of p to the named fields, or to every field that
// exists right now when no name is given.
func (f *Form) AddFilter(p Filter, names ...string) error {
	targets, err := f.targets(names)
	if err != nil {
		return err
	}
	for _, fld := range targets {
		fld.AddFilter(cloneProcessor(p))
	}
	return nil
}

// AddConstraint attaches a copy of p like AddFilter.
func (f *Form) AddConstraint(p Constraint, names ...string) error {
	targets, err := f.targets(names)
	if err != nil {
		return err
	}
	for _, fld := range targets {
		fld.AddConstraint(cloneProcessor(p))
	}
	return nil
}

// AddInflator attaches a copy of p like AddFilter.
func (f *Form) AddInflator(p Inflator, names ...string) error {
	targets, err := f.targets(names)
	if err != nil {
		return err
	}
	for _, fld := range targets {
		fld.AddInflator(cloneProcessor(p))
	}
	return nil
}

// AddValidator attaches a copy of p like AddFilter.
func (f *Form) AddValidator(p Validator, names ...string) error {
	targets, err := f.targets(names)
	if err != nil {
		return err
	}
	for _, fld := range targets {
		fld.AddValidator(cloneProcessor(p))
	}
	return nil
}

// AddTransformer attaches a copy of p like AddFilter.
func (f *Form) AddTransformer(p Transformer, names ...string) error {
	targets, err := f.targets(names)
	if err != nil {
		return err
	}
	for _, fld := range targets {
		fld.AddTransformer(cloneProcessor(p))
	}
	return nil
}

func (f *Form) targets(names []string) ([]*Field, error) {
	if len(names) == 0 {
		return f.Fields(), nil
	}
	out := make([]*Field, 0, len(names))
	for _, name := range names {
		fld := f.Field(name)
		if fld == nil {
			return nil, fmt.Errorf("form: unknown field %q", name)
		}
		if fld.IsBlock() {
			out = append(out, fld.Descendants()...)
			continue
		}
		out = append(out, fld)
	}
	return out, nil
}

// nodes returns the arena of fields, each pointing at the index of its
// enclosing block (-1 for the form itself).
func (f *Form) nodes() []node {
	if f.dirty || f.arena == nil {
		f.arena = f.arena[:0]
		var walk func(fields []*Field, parent int)
		walk = func(fields []*Field, parent int) {
			for _, fld := range fields {
				fld.index = len(f.arena)
				f.arena = append(f.arena, node{field: fld, parent: parent})
				walk(fld.Children, fld.index)
			}
		}
		walk(f.elements, -1)
		f.dirty = false
	}
	return f.arena
}

// Resolve looks attr up on fld, then on each enclosing block, then on the
// form itself.
func (f *Form) Resolve(fld *Field, attr string) (any, bool) {
	if fld != nil && fld.form == f {
		nodes := f.nodes()
		for i := fld.index; i >= 0 && i < len(nodes); i = nodes[i].parent {
			if v, ok := nodes[i].field.Attributes[attr]; ok {
				return v, true
			}
		}
	}
	v, ok := f.attributes[attr]
	return v, ok
}

// Clone returns an independent copy of the form definition. Processing state
// is not copied, callbacks are shared and a new ID is assigned.
func (f *Form) Clone() *Form {
	out := &Form{
		id:               uuid.NewString(),
		logger:           f.logger,
		store:            f.store,
		nestedName:       f.nestedName,
		indicator:        f.indicator,
		indicatorFunc:    f.indicatorFunc,
		ignoreUnderscore: f.ignoreUnderscore,
		queryType:        f.queryType,
		evaluator:        f.evaluator,
		attributes:       nested.CloneMap(f.attributes),
	}
	if f.uploadParsers != nil {
		out.uploadParsers = make(map[string]UploadParser, len(f.uploadParsers))
		for k, v := range f.uploadParsers {
			out.uploadParsers[k] = v
		}
	}
	for _, el := range f.elements {
		out.AddField(el.clone())
	}
	out.resetState(query.Empty)
	return out
}

// Equals reports whether other is f or declares the same fields, options and
// processors.
func (f *Form) Equals(other *Form) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f == other {
		return true
	}
	return f.signature() == other.signature()
}

func (f *Form) signature() string {
	var b strings.Builder
	fmt.Fprintf(&b, "nested=%s;notation=%s;indicator=%s;underscore=%t;",
		f.nestedName, f.store.Notation, f.indicator, f.ignoreUnderscore)
	keys := make([]string, 0, len(f.attributes))
	for k := range f.attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "attr:%s=%v;", k, f.attributes[k])
	}
	var walk func(fields []*Field, depth int)
	walk = func(fields []*Field, depth int) {
		for _, fld := range fields {
			fmt.Fprintf(&b, "%d:%s[m=%t e=%t np=%t up=%t n=%t]", depth, fld.Name,
				fld.MultiValue, fld.DefaultEmptyValue, fld.NonParam, fld.Upload, fld.Nested)
			for _, stage := range Stages {
				for _, p := range fld.Processors(stage) {
					fmt.Fprintf(&b, " %s:%s", stage, p.Type())
				}
			}
			b.WriteByte(';')
			walk(fld.Children, depth+1)
		}
	}
	walk(f.elements, 0)
	return b.String()
}

func (f *Form) log() *slog.Logger {
	return f.logger.With("form_id", f.id)
}

func (f *Form) resetState(q query.Query) {
	f.query = q
	f.submitted = false
	f.params = make(map[string]any)
	if f.errors == nil {
		f.errors = newErrorCollector()
	} else {
		f.errors.reset()
	}
	f.valid = nil
	f.validSet = make(map[string]struct{})
	f.nonParam = make(map[string]struct{})
	f.raw = nil
}

// rawValues exposes the submitted query as a flat map for expression
// conditions. Multi-valued names map to []any.
func (f *Form) rawValues() map[string]any {
	if f.raw != nil {
		return f.raw
	}
	f.raw = make(map[string]any)
	if f.query == nil {
		return f.raw
	}
	names, err := f.query.Names()
	if err != nil {
		return f.raw
	}
	for _, name := range names {
		values := f.query.Values(name)
		switch len(values) {
		case 0:
		case 1:
			f.raw[name] = values[0]
		default:
			f.raw[name] = values
		}
	}
	return f.raw
}
