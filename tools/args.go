package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Args are the decoded arguments of one tool call.
type Args map[string]any

// String returns a non-empty string argument.
func (a Args) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Number returns a numeric argument. Models sometimes send numbers as
// strings, so those are accepted too.
func (a Args) Number(key string) (float64, bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false, fmt.Errorf("argument %q: %w", key, err)
		}
		return f, true, nil
	case string:
		if strings.TrimSpace(n) == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", "."), 64)
		if err != nil {
			return 0, false, fmt.Errorf("argument %q is not a number: %q", key, n)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("argument %q has unsupported type %T", key, v)
	}
}
