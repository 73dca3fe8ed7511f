package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Args is a decoded argument object as delivered by the model.
type Args map[string]any

// compact drops null values; providers send them for omitted optionals.
func (a Args) compact() Args {
	out := make(Args, len(a))
	for k, v := range a {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Strings returns the trimmed non-empty string elements of an array argument.
func (a Args) Strings(key string) []string {
	var raw []any
	switch v := a[key].(type) {
	case nil:
		return nil
	case []any:
		raw = v
	case []string:
		raw = make([]any, len(v))
		for i, s := range v {
			raw[i] = s
		}
	case string:
		raw = []any{v}
	default:
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		switch t := item.(type) {
		case string:
			s = t
		case nil:
			continue
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (a Args) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	case float64:
		return v != 0
	case json.Number:
		f, _ := v.Float64()
		return f != 0
	default:
		return false
	}
}

// Int returns the integer value of key, or def when absent or unparsable.
func (a Args) Int(key string, def int) int {
	switch v := a[key].(type) {
	case float64:
		return int(math.Trunc(v))
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		if f, err := v.Float64(); err == nil {
			return int(math.Trunc(f))
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}
