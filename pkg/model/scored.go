package model

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

const (
	// MaxEnvID bounds env_id values accepted anywhere in the API.
	MaxEnvID = 65535

	maxOverrideKeyLen    = 64
	maxOverrideStringLen = 1024
)

// ScoredGroup is a single scored submission from an environment: a group of
// tokenised rollouts with one score per sequence. All per-sequence arrays are
// parallel to Tokens.
type ScoredGroup struct {
	Tokens [][]int   `json:"tokens"`
	Masks  [][]int   `json:"masks"`
	Scores []float64 `json:"scores"`

	Advantages        [][]float64           `json:"advantages,omitempty"`
	RefLogprobs       [][]float64           `json:"ref_logprobs,omitempty"`
	InferenceLogprobs [][]float64           `json:"inference_logprobs,omitempty"`
	Messages          []jsoniter.RawMessage `json:"messages,omitempty"`
	Images            []jsoniter.RawMessage `json:"images,omitempty"`

	GenerationParams jsoniter.RawMessage        `json:"generation_params,omitempty"`
	GroupOverrides   map[string]OverrideValue   `json:"group_overrides,omitempty"`
	Overrides        []map[string]OverrideValue `json:"overrides,omitempty"`

	EnvID *int `json:"env_id,omitempty"`
}

// Cardinality is the number of sequences in the group. Batch accounting is
// done in these units, not in raw tokens.
func (g *ScoredGroup) Cardinality() int {
	return len(g.Tokens)
}

// ZeroScoredGroup is the canonical empty group served by /latest_example
// before anything has been submitted.
func ZeroScoredGroup() *ScoredGroup {
	return &ScoredGroup{
		Tokens: [][]int{},
		Masks:  [][]int{},
		Scores: []float64{},
	}
}

// Validate checks the parallel-array invariants. Groups that fail here are
// rejected before they touch any coordinator state.
func (g *ScoredGroup) Validate() error {
	n := len(g.Tokens)
	if n == 0 {
		return fmt.Errorf("tokens: group must contain at least one sequence")
	}
	for i, seq := range g.Tokens {
		for j, tok := range seq {
			if tok < 0 {
				return fmt.Errorf("tokens[%d][%d]: token ids must be non-negative, got %d", i, j, tok)
			}
		}
	}
	if len(g.Masks) != n {
		return fmt.Errorf("masks: length %d does not match tokens length %d", len(g.Masks), n)
	}
	for i, m := range g.Masks {
		if len(m) != len(g.Tokens[i]) {
			return fmt.Errorf("masks[%d]: length %d does not match tokens[%d] length %d", i, len(m), i, len(g.Tokens[i]))
		}
	}
	if len(g.Scores) != n {
		return fmt.Errorf("scores: length %d does not match tokens length %d", len(g.Scores), n)
	}
	if g.Advantages != nil && len(g.Advantages) != n {
		return fmt.Errorf("advantages: length %d does not match tokens length %d", len(g.Advantages), n)
	}
	if g.RefLogprobs != nil && len(g.RefLogprobs) != n {
		return fmt.Errorf("ref_logprobs: length %d does not match tokens length %d", len(g.RefLogprobs), n)
	}
	if g.InferenceLogprobs != nil && len(g.InferenceLogprobs) != n {
		return fmt.Errorf("inference_logprobs: length %d does not match tokens length %d", len(g.InferenceLogprobs), n)
	}
	if g.Messages != nil && len(g.Messages) != n {
		return fmt.Errorf("messages: length %d does not match tokens length %d", len(g.Messages), n)
	}
	if g.Images != nil && len(g.Images) != n {
		return fmt.Errorf("images: length %d does not match tokens length %d", len(g.Images), n)
	}
	if g.Overrides != nil && len(g.Overrides) != n {
		return fmt.Errorf("overrides: length %d does not match tokens length %d", len(g.Overrides), n)
	}
	if err := validateOverrideMap("group_overrides", g.GroupOverrides); err != nil {
		return err
	}
	for i, m := range g.Overrides {
		if err := validateOverrideMap(fmt.Sprintf("overrides[%d]", i), m); err != nil {
			return err
		}
	}
	if g.EnvID != nil && (*g.EnvID < 0 || *g.EnvID > MaxEnvID) {
		return fmt.Errorf("env_id: must be in [0, %d], got %d", MaxEnvID, *g.EnvID)
	}
	return nil
}

func validateOverrideMap(field string, m map[string]OverrideValue) error {
	for k, v := range m {
		if len(k) > maxOverrideKeyLen {
			return fmt.Errorf("%s: key %q exceeds %d characters", field, k[:maxOverrideKeyLen], maxOverrideKeyLen)
		}
		if v.Kind == OverrideString && len(v.Str) > maxOverrideStringLen {
			return fmt.Errorf("%s[%s]: string value exceeds %d characters", field, k, maxOverrideStringLen)
		}
	}
	return nil
}
