package model

import (
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// OverrideKind discriminates the JSON type held by an OverrideValue.
type OverrideKind int

const (
	OverrideString OverrideKind = iota
	OverrideNumber
	OverrideBool
)

// OverrideValue is a tagged union over the value types environments may send
// in generation overrides: string, number or bool. Anything else fails
// decoding.
type OverrideValue struct {
	Kind OverrideKind
	Str  string
	Num  float64
	Bool bool
}

func StringOverride(s string) OverrideValue  { return OverrideValue{Kind: OverrideString, Str: s} }
func NumberOverride(n float64) OverrideValue { return OverrideValue{Kind: OverrideNumber, Num: n} }
func BoolOverride(b bool) OverrideValue      { return OverrideValue{Kind: OverrideBool, Bool: b} }

func (v OverrideValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case OverrideString:
		return jsoniter.Marshal(v.Str)
	case OverrideNumber:
		return jsoniter.Marshal(v.Num)
	case OverrideBool:
		return jsoniter.Marshal(v.Bool)
	}
	return nil, fmt.Errorf("unknown override kind %d", v.Kind)
}

func (v *OverrideValue) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty override value")
	}
	switch data[0] {
	case '"':
		v.Kind = OverrideString
		return jsoniter.Unmarshal(data, &v.Str)
	case 't', 'f':
		v.Kind = OverrideBool
		return jsoniter.Unmarshal(data, &v.Bool)
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("override value must be a string, number or bool, got %s", string(data))
		}
		v.Kind = OverrideNumber
		v.Num = n
		return nil
	}
}
