package model

import (
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGroup() *ScoredGroup {
	return &ScoredGroup{
		Tokens: [][]int{{1, 2, 3}, {4, 5}},
		Masks:  [][]int{{-100, 2, 3}, {-100, 5}},
		Scores: []float64{1.0, -0.5},
	}
}

func TestScoredGroupValidate(t *testing.T) {
	assert.NoError(t, validGroup().Validate())
}

func TestScoredGroupValidateEmpty(t *testing.T) {
	g := &ScoredGroup{}
	assert.Error(t, g.Validate())
}

func TestScoredGroupValidateNegativeToken(t *testing.T) {
	g := validGroup()
	g.Tokens[0][1] = -7
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokens")
}

func TestScoredGroupValidateMaskOuterMismatch(t *testing.T) {
	g := validGroup()
	g.Masks = g.Masks[:1]
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "masks")
}

func TestScoredGroupValidateMaskInnerMismatch(t *testing.T) {
	g := validGroup()
	g.Masks[1] = []int{-100}
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "masks[1]")
}

func TestScoredGroupValidateScoresMismatch(t *testing.T) {
	g := validGroup()
	g.Scores = append(g.Scores, 3.0)
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scores")
}

func TestScoredGroupValidateOptionalParallelArrays(t *testing.T) {
	g := validGroup()
	g.Advantages = [][]float64{{0.1}}
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "advantages")

	g = validGroup()
	g.RefLogprobs = [][]float64{{-0.2, -0.3, -0.1}, {-0.5, -0.4}}
	assert.NoError(t, g.Validate())
}

func TestScoredGroupValidateEnvIDRange(t *testing.T) {
	g := validGroup()
	id := 70000
	g.EnvID = &id
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "env_id")
}

func TestScoredGroupValidateOverrideLimits(t *testing.T) {
	g := validGroup()
	g.GroupOverrides = map[string]OverrideValue{
		strings.Repeat("k", 65): NumberOverride(1),
	}
	assert.Error(t, g.Validate())

	g = validGroup()
	g.GroupOverrides = map[string]OverrideValue{
		"temperature": StringOverride(strings.Repeat("x", 1025)),
	}
	assert.Error(t, g.Validate())

	g = validGroup()
	g.GroupOverrides = map[string]OverrideValue{
		"temperature": NumberOverride(0.7),
		"greedy":      BoolOverride(false),
		"stop":        StringOverride("</s>"),
	}
	assert.NoError(t, g.Validate())
}

func TestZeroScoredGroupSerialisation(t *testing.T) {
	data, err := jsoniter.Marshal(ZeroScoredGroup())
	require.NoError(t, err)
	assert.JSONEq(t, `{"tokens":[],"masks":[],"scores":[]}`, string(data))
}

func TestOverrideValueRoundTrip(t *testing.T) {
	in := `{"temperature":0.7,"stop":"</s>","greedy":true}`

	var m map[string]OverrideValue
	require.NoError(t, jsoniter.Unmarshal([]byte(in), &m))

	assert.Equal(t, OverrideNumber, m["temperature"].Kind)
	assert.Equal(t, 0.7, m["temperature"].Num)
	assert.Equal(t, OverrideString, m["stop"].Kind)
	assert.Equal(t, "</s>", m["stop"].Str)
	assert.Equal(t, OverrideBool, m["greedy"].Kind)
	assert.True(t, m["greedy"].Bool)

	out, err := jsoniter.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestOverrideValueRejectsCompositeTypes(t *testing.T) {
	var v OverrideValue
	assert.Error(t, jsoniter.Unmarshal([]byte(`[1,2]`), &v))
	assert.Error(t, jsoniter.Unmarshal([]byte(`{"a":1}`), &v))
	assert.Error(t, jsoniter.Unmarshal([]byte(`null`), &v))
}
