package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterSet_CaseInsensitive(t *testing.T) {
	p := NewParameterSet(map[string]any{"Width": 512, "NEGATIVE_PROMPT": "blurry"})

	v, ok := p.Get("width")
	require.True(t, ok)
	assert.Equal(t, 512, v)

	v, ok = p.Get("Negative_Prompt")
	require.True(t, ok)
	assert.Equal(t, "blurry", v)

	p.Set("STEPS", 20)
	v, ok = p.Get("steps")
	require.True(t, ok)
	assert.Equal(t, 20, v)
}

func TestParameterSet_NilValueIsAbsent(t *testing.T) {
	p := NewParameterSet(map[string]any{"seed": nil})
	_, ok := p.Get("seed")
	assert.False(t, ok)
}

func TestParameterSet_Clone(t *testing.T) {
	p := NewParameterSet(map[string]any{"width": 512})
	c := p.Clone()
	c.Set("width", 1024)

	v, _ := p.Get("width")
	assert.Equal(t, 512, v)
}

func TestEnsureSeed(t *testing.T) {
	p := NewParameterSet(nil)
	p.EnsureSeed()

	v, ok := p.Get("seed")
	require.True(t, ok)
	seed, ok := v.(int64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, seed, int64(0))
	assert.Less(t, seed, MaxSeed)

	// An existing seed is never replaced.
	p.EnsureSeed()
	v2, _ := p.Get("seed")
	assert.Equal(t, seed, v2)

	explicit := NewParameterSet(map[string]any{"seed": 42})
	explicit.EnsureSeed()
	v3, _ := explicit.Get("seed")
	assert.Equal(t, 42, v3)
}

func TestEdgeTarget(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		wantID string
		wantOK bool
	}{
		{"edge", []any{"4", float64(0)}, "4", true},
		{"edge without index", []any{"4"}, "4", true},
		{"literal string", "hello", "", false},
		{"literal number", float64(7), "", false},
		{"empty array", []any{}, "", false},
		{"non-string head", []any{float64(4), float64(0)}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := EdgeTarget(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
