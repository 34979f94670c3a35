package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// ValueKind enumerates the closed set of argument value shapes.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueString
	ValueInt
	ValueDouble
	ValueBool
	ValueArray
	ValueMap
)

// Value is a closed recursive variant carrying one dynamically typed
// function-call argument. It is the boundary between a model's free-form
// tool invocation and the strongly typed handler logic: handlers decode
// fields defensively with explicit defaults instead of reflecting into a
// fixed struct.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Arr   []Value
	Map   map[string]Value
}

func StringValue(s string) Value     { return Value{Kind: ValueString, Str: s} }
func IntValue(i int64) Value         { return Value{Kind: ValueInt, Int: i} }
func DoubleValue(f float64) Value    { return Value{Kind: ValueDouble, Float: f} }
func BoolValue(b bool) Value         { return Value{Kind: ValueBool, Bool: b} }
func ArrayValue(a []Value) Value     { return Value{Kind: ValueArray, Arr: a} }
func MapValue(m map[string]Value) Value { return Value{Kind: ValueMap, Map: m} }

// StringOr returns the string content or def when the value is not a string.
func (v Value) StringOr(def string) string {
	if v.Kind == ValueString {
		return v.Str
	}
	return def
}

// IntOr returns an integer, coercing doubles with integral values, or def.
func (v Value) IntOr(def int64) int64 {
	switch v.Kind {
	case ValueInt:
		return v.Int
	case ValueDouble:
		if v.Float == math.Trunc(v.Float) {
			return int64(v.Float)
		}
	}
	return def
}

// FloatOr returns a float, coercing integers, or def.
func (v Value) FloatOr(def float64) float64 {
	switch v.Kind {
	case ValueDouble:
		return v.Float
	case ValueInt:
		return float64(v.Int)
	}
	return def
}

// BoolOr returns the boolean content or def.
func (v Value) BoolOr(def bool) bool {
	if v.Kind == ValueBool {
		return v.Bool
	}
	return def
}

// MarshalJSON renders the variant as plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueNull:
		return []byte("null"), nil
	case ValueString:
		return json.Marshal(v.Str)
	case ValueInt:
		return json.Marshal(v.Int)
	case ValueDouble:
		return json.Marshal(v.Float)
	case ValueBool:
		return json.Marshal(v.Bool)
	case ValueArray:
		return json.Marshal(v.Arr)
	case ValueMap:
		return json.Marshal(v.Map)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.Kind)
}

// UnmarshalJSON decodes arbitrary JSON into the closed variant. Numbers
// without a fractional part become ValueInt.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = fromInterface(raw)
	return nil
}

// DecodeArguments parses a raw JSON object into an argument map. A nil or
// empty payload yields an empty map rather than an error.
func DecodeArguments(raw json.RawMessage) (map[string]Value, error) {
	if len(raw) == 0 {
		return map[string]Value{}, nil
	}
	var v Value
	if err := v.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("failed to decode arguments: %w", err)
	}
	if v.Kind != ValueMap {
		return nil, fmt.Errorf("arguments must be a JSON object")
	}
	return v.Map, nil
}

func fromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Value{Kind: ValueNull}
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return IntValue(i)
		}
		f, _ := t.Float64()
		return DoubleValue(f)
	case []interface{}:
		arr := make([]Value, 0, len(t))
		for _, item := range t {
			arr = append(arr, fromInterface(item))
		}
		return ArrayValue(arr)
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = fromInterface(item)
		}
		return MapValue(m)
	}
	return Value{Kind: ValueNull}
}
