package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a scalar taken as-is from the status payload.
// The controller sends numbers, but nothing stops it from sending strings or booleans,
// and the dashboard shows whatever arrives.
type Value struct {
	raw any
}

func NewValue(v any) Value {
	switch x := v.(type) {
	case int:
		return Value{raw: json.Number(strconv.Itoa(x))}
	case int64:
		return Value{raw: json.Number(strconv.FormatInt(x, 10))}
	case uint16:
		return Value{raw: json.Number(strconv.Itoa(int(x)))}
	case float32:
		return Value{raw: json.Number(FormatNumber(float64(x)))}
	case float64:
		return Value{raw: json.Number(FormatNumber(x))}
	}
	return Value{raw: v}
}

// String renders the value the way the dashboard shows it.
func (v Value) String() string {
	switch x := v.raw.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return FormatNumber(f)
		}
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Float64 reports the numeric form of the value, if it has one.
func (v Value) Float64() (float64, bool) {
	switch x := v.raw.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Truthy follows the loose truthiness of the web dashboard:
// false, 0, "" and null are false, everything else is true.
func (v Value) Truthy() bool {
	switch x := v.raw.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || (f != 0 && !math.IsNaN(f))
	}
	return true
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.raw)
}

// FormatNumber prints a float the way the dashboard does: shortest decimal form (500, 0.5, 1000),
// exponent form below 1e-6 and from 1e21 on (1e-7, 1.5e+21), and 0 for negative zero.
func FormatNumber(f float64) string {
	switch {
	case f == 0:
		return "0"
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	// Go scrive almeno due cifre di esponente (1e-07)
	mant, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}
