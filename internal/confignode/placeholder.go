package confignode

import (
	"fmt"
	"regexp"
)

// placeholderPattern matches `{NAME}` tokens inside string parameter
// values (spec §4.1: "placeholder substitution"). Unlike the shell-style
// `${TOKEN}` tokens internal/util.Sprintf expands for colored CLI output,
// config placeholders use a bare brace with no sigil, so they get their
// own matcher rather than reusing os.Expand.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substitutePlaceholders walks every string value reachable from doc
// (recursing into maps and slices) and replaces {NAME} tokens using
// lookup. It returns an error naming the first token with no resolution
// so load failures point at a specific unresolved name instead of
// silently leaving the literal token in place.
func substitutePlaceholders(v interface{}, lookup func(string) (string, bool)) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return expandString(val, lookup)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, vv := range val {
			sv, err := substitutePlaceholders(vv, lookup)
			if err != nil {
				return nil, err
			}
			out[k] = sv
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, vv := range val {
			sv, err := substitutePlaceholders(vv, lookup)
			if err != nil {
				return nil, err
			}
			out[i] = sv
		}
		return out, nil
	default:
		return v, nil
	}
}

func expandString(s string, lookup func(string) (string, bool)) (string, error) {
	var firstErr error
	out := placeholderPattern.ReplaceAllStringFunc(s, func(token string) string {
		if firstErr != nil {
			return token
		}
		name := token[1 : len(token)-1]
		val, ok := lookup(name)
		if !ok {
			firstErr = fmt.Errorf("unresolved placeholder {%s}", name)
			return token
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
