package builtin

import (
	"fmt"
	"strings"
)

// ClampText shortens text to at most limit characters, keeping the head and
// the tail around a "..." marker. It reports whether anything was cut.
func ClampText(text string, limit int) (string, bool) {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text, false
	}
	if limit <= 3 {
		return string(runes[:limit]), true
	}
	head := limit / 2
	tail := limit - head - 3
	return string(runes[:head]) + "..." + string(runes[len(runes)-tail:]), true
}

// truncate cuts text after limit characters.
func truncate(text string, limit int) (string, bool) {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text, false
	}
	return string(runes[:limit]), true
}

// stringList accepts a JSON array of strings or a single string.
func stringList(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return []string{val}, nil
	case []string:
		return val, nil
	case []any:
		out := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is %T, want string", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or array of strings, got %T", v)
	}
}

func firstString(args map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := args[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
