package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind enumerates the shapes an attribute value can take.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindStrings
	KindTraits
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindStrings:
		return "strings"
	case KindTraits:
		return "traits"
	default:
		return "invalid"
	}
}

// Value is the tagged variant stored in a genotype attribute bag: a scalar
// (string, int, float, bool), an ordered list of strings, or a mapping from
// trait name to intensity. The bag admits arbitrary keys, so operators
// validate shape at their own boundaries rather than relying on named fields.
type Value struct {
	kind    Kind
	str     string
	integer int
	real    float64
	boolean bool
	list    []string
	traits  map[string]float64
}

func String(s string) Value {
	return Value{kind: KindString, str: s}
}

func Int(i int) Value {
	return Value{kind: KindInt, integer: i}
}

func Float(f float64) Value {
	return Value{kind: KindFloat, real: f}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

func Strings(items []string) Value {
	return Value{kind: KindStrings, list: append([]string(nil), items...)}
}

func Traits(m map[string]float64) Value {
	copied := make(map[string]float64, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return Value{kind: KindTraits, traits: copied}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsZero() bool {
	return v.kind == KindInvalid
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) AsInt() (int, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.integer, true
}

func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.real, true
	case KindInt:
		return float64(v.integer), true
	default:
		return 0, false
	}
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.boolean, true
}

// AsStrings returns a copy of the list payload.
func (v Value) AsStrings() ([]string, bool) {
	if v.kind != KindStrings {
		return nil, false
	}
	return append([]string(nil), v.list...), true
}

// AsTraits returns a copy of the trait mapping.
func (v Value) AsTraits() (map[string]float64, bool) {
	if v.kind != KindTraits {
		return nil, false
	}
	copied := make(map[string]float64, len(v.traits))
	for k, f := range v.traits {
		copied[k] = f
	}
	return copied, true
}

func (v Value) Clone() Value {
	switch v.kind {
	case KindStrings:
		return Strings(v.list)
	case KindTraits:
		return Traits(v.traits)
	default:
		return v
	}
}

func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindInt:
		return v.integer == other.integer
	case KindFloat:
		return v.real == other.real
	case KindBool:
		return v.boolean == other.boolean
	case KindStrings:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != other.list[i] {
				return false
			}
		}
		return true
	case KindTraits:
		if len(v.traits) != len(other.traits) {
			return false
		}
		for k, f := range v.traits {
			g, ok := other.traits[k]
			if !ok || f != g {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Display renders the value the way the compiler prints it into prompts.
// Lists join with commas, traits render as "name: 0.80" pairs in key order.
func (v Value) Display() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.Itoa(v.integer)
	case KindFloat:
		return strconv.FormatFloat(v.real, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindStrings:
		return strings.Join(v.list, ", ")
	case KindTraits:
		keys := make([]string, 0, len(v.traits))
		for k := range v.traits {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %.2f", k, v.traits[k]))
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindInt:
		return json.Marshal(v.integer)
	case KindFloat:
		return json.Marshal(v.real)
	case KindBool:
		return json.Marshal(v.boolean)
	case KindStrings:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindTraits:
		if v.traits == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.traits)
	default:
		return nil, fmt.Errorf("marshal invalid attribute value")
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return fmt.Errorf("attribute value must not be null")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("attribute list must contain only strings: %w", err)
		}
		*v = Strings(items)
		return nil
	case '{':
		var traits map[string]float64
		if err := json.Unmarshal(data, &traits); err != nil {
			return fmt.Errorf("attribute mapping must map strings to numbers: %w", err)
		}
		*v = Traits(traits)
		return nil
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return err
		}
		if i, err := num.Int64(); err == nil && !strings.ContainsAny(num.String(), ".eE") {
			*v = Int(int(i))
			return nil
		}
		f, err := num.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid numeric attribute: %s", num)
		}
		*v = Float(f)
		return nil
	}
}
