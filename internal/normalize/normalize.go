// Package normalize coerces the loosely-typed readings produced by the
// collection layer into the typed values the history schema stores. Every
// function reports absence instead of failing: a missing or garbage field
// must never prevent the rest of an observation from being recorded.
package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
)

// Reading is a raw string-keyed observation as produced by the OS tools.
// Values are whatever the parser captured: strings, numbers, bools.
type Reading map[string]any

// Int returns the value under key coerced to an int64, or absent.
func (r Reading) Int(key string) (int64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	return SafeInt(v)
}

// Float returns the value under key coerced to a float64, or absent.
func (r Reading) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	return SafeFloat(v)
}

// Bool returns the value under key coerced to a bool, or absent.
func (r Reading) Bool(key string) (bool, bool) {
	v, ok := r[key]
	if !ok {
		return false, false
	}
	return ParseBool(v)
}

// String returns the string under key, trimmed, or absent when the key is
// missing, not a string, or empty.
func (r Reading) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

var two64 = new(big.Int).Lsh(big.NewInt(1), 64)

// SafeInt coerces v to a signed 64-bit integer. Values outside the int64
// range wrap modulo 2^64: raw current readings (amperage) arrive from ioreg
// as unsigned 64-bit bit patterns and must be reinterpreted as signed, so
// 2^63 becomes -2^63 and 2^64-1250 becomes -1250.
func SafeInt(v any) (int64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(uint64(x)), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float32:
		return SafeInt(float64(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		t := math.Trunc(x)
		if t >= math.MinInt64 && t < math.Ldexp(1, 63) {
			return int64(t), true
		}
		bi, _ := new(big.Float).SetFloat64(t).Int(nil)
		return wrap64(bi), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case json.Number:
		return parseIntString(string(x))
	case string:
		return parseIntString(x)
	}
	return 0, false
}

func parseIntString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, true
	}
	if !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	// Out of int64 range: reinterpret as a two's-complement bit pattern.
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return 0, false
	}
	return wrap64(bi), true
}

// wrap64 reduces bi modulo 2^64 and reinterprets the low 64 bits as signed.
func wrap64(bi *big.Int) int64 {
	m := new(big.Int).Mod(bi, two64) // always in [0, 2^64)
	return int64(m.Uint64())
}

// SafeFloat coerces v to a float64, or reports absent.
func SafeFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case json.Number:
		return parseFloatString(string(x))
	case string:
		return parseFloatString(x)
	}
	return 0, false
}

func parseFloatString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseBool interprets the yes/no flags the OS tools emit. Strings match
// case-insensitively against yes/true/1; anything else stringy is false.
// Numbers are truthy when non-zero, any other value when non-empty.
// nil stays absent.
func ParseBool(v any) (bool, bool) {
	switch x := v.(type) {
	case nil:
		return false, false
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "yes", "true", "1":
			return true, true
		default:
			return false, true
		}
	case int:
		return x != 0, true
	case int64:
		return x != 0, true
	case uint64:
		return x != 0, true
	case float32:
		return x != 0, true
	case float64:
		return x != 0, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
		return rv.Len() > 0, true
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil(), true
	}
	return !rv.IsZero(), true
}

// Health derives the battery health percentage from the raw max capacity and
// the design capacity: round(max/design*100, 1). Either input missing,
// non-numeric, or zero yields absent — never zero, and never a division by
// a missing design capacity.
func Health(r Reading) (float64, bool) {
	maxCap, ok := r.Int("apple_raw_max_capacity")
	if !ok || maxCap == 0 {
		return 0, false
	}
	designCap, ok := r.Int("design_capacity")
	if !ok || designCap == 0 {
		return 0, false
	}
	h := float64(maxCap) / float64(designCap) * 100
	return math.Round(h*10) / 10, true
}
