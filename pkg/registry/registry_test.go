package registry_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formproc/pkg/form"
	"github.com/goliatone/go-formproc/pkg/registry"
)

type minLength struct {
	form.Base
	Min int
}

func (p *minLength) Constrain(_ *form.Context, value any) error {
	if s, _ := value.(string); len(s) < p.Min {
		return errors.New("too short")
	}
	return nil
}

func minLengthFactory(cfg registry.Config) (form.Processor, error) {
	var opts struct {
		Min int `yaml:"min"`
	}
	if err := cfg.Decode(&opts); err != nil {
		return nil, err
	}
	return &minLength{Base: form.NewBase(cfg.Type), Min: opts.Min}, nil
}

func TestBuildResolvesFactory(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Register(form.StageConstraint, " Min_Length ", minLengthFactory)

	when := &form.When{Field: "mode", Values: []any{"strict"}}
	p, err := reg.Build(form.StageConstraint, registry.Config{
		Type:    "min_length",
		Message: "at least three",
		When:    when,
		Options: map[string]any{"min": 3},
	})
	require.NoError(t, err)

	c, ok := p.(*minLength)
	require.True(t, ok)
	assert.Equal(t, 3, c.Min)
	assert.Equal(t, "min_length", c.Type())
	assert.Equal(t, "at least three", c.Message())
	assert.Same(t, when, c.When())
	assert.True(t, reg.Has(form.StageConstraint, "MIN_LENGTH"))
	assert.Equal(t, []string{"min_length"}, reg.Types(form.StageConstraint))
}

func TestBuildUnknownType(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Register(form.StageConstraint, "min_length", minLengthFactory)

	_, err := reg.Build(form.StageFilter, registry.Config{Type: "min_length"})
	require.Error(t, err)

	var regErr *registry.RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "filter", regErr.Kind)
	assert.ErrorIs(t, err, registry.ErrUnknownType)
}

func TestBuildRejectsWrongContract(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Register(form.StageInflator, "min_length", minLengthFactory)

	_, err := reg.Build(form.StageInflator, registry.Config{Type: "min_length"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, registry.ErrUnknownType)
}

func TestBuildWrapsFactoryErrors(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Register(form.StageConstraint, "min_length", minLengthFactory)

	_, err := reg.Build(form.StageConstraint, registry.Config{
		Type:    "min_length",
		Options: map[string]any{"min": "not a number"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_length")
}

func TestCallbacks(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	fn := func(v any) any { return v }
	reg.RegisterCallback("identity", fn)
	reg.RegisterCallback("", fn)

	_, ok := reg.Callback("identity")
	assert.True(t, ok)
	_, ok = reg.Callback("missing")
	assert.False(t, ok)

	var seen bool
	reg.Register(form.StageConstraint, "probe", func(cfg registry.Config) (form.Processor, error) {
		_, seen = cfg.Callback("identity")
		return &minLength{Base: form.NewBase(cfg.Type)}, nil
	})
	_, err := reg.Build(form.StageConstraint, registry.Config{Type: "probe"})
	require.NoError(t, err)
	assert.True(t, seen)
}
