package dispatcher

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Args are the loosely typed arguments of a dispatch request.
// Values arrive from JSON, so numbers are usually float64.
type Args map[string]any

// String returns the value for key when it is a non-empty string.
func (a Args) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}

// StringDefault returns the string for key or def.
func (a Args) StringDefault(key, def string) string {
	if s, ok := a.String(key); ok {
		return s
	}
	return def
}

// RequireString returns the string for key or an ArgumentError.
func (a Args) RequireString(key string) (string, error) {
	s, ok := a.String(key)
	if !ok {
		return "", &ArgumentError{Arg: key, Reason: "is required"}
	}
	return s, nil
}

// Int returns key as an int, def when absent.
func (a Args) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return def, nil
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		if t > math.MaxInt32 || t < math.MinInt32 {
			return 0, &ArgumentError{Arg: key, Reason: "is out of range"}
		}
		return int(t), nil
	case float64:
		// bounds first: int(t) is implementation-defined outside the int range
		if math.IsNaN(t) || t > math.MaxInt32 || t < math.MinInt32 {
			return 0, &ArgumentError{Arg: key, Reason: "is out of range"}
		}
		if t != math.Trunc(t) {
			return 0, &ArgumentError{Arg: key, Reason: "must be an integer"}
		}
		return int(t), nil
	case string:
		if t == "" {
			return def, nil
		}
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, &ArgumentError{Arg: key, Reason: "must be an integer"}
		}
		return n, nil
	default:
		return 0, &ArgumentError{Arg: key, Reason: fmt.Sprintf("has unsupported type %T", v)}
	}
}

// IntRange returns key as an int within [min,max].
func (a Args) IntRange(key string, def, min, max int) (int, error) {
	n, err := a.Int(key, def)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, &ArgumentError{Arg: key, Reason: fmt.Sprintf("must be between %d and %d", min, max)}
	}
	return n, nil
}

// Strings returns key as a list, accepting arrays or comma separated text.
func (a Args) Strings(key string) ([]string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	var raw []string
	switch t := v.(type) {
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, &ArgumentError{Arg: key, Reason: "must contain only strings"}
			}
			raw = append(raw, s)
		}
	case string:
		raw = strings.Split(t, ",")
	default:
		return nil, &ArgumentError{Arg: key, Reason: fmt.Sprintf("has unsupported type %T", v)}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
