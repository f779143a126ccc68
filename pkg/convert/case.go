package convert

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	unsafePrefix = "UNSAFE_"
	ariaPrefix   = "aria_"
)

// ToCamelCase converts a snake_case name to camelCase.
func ToCamelCase(snake string) string {
	parts := strings.Split(snake, "_")
	var b strings.Builder
	b.Grow(len(snake))
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}
	return b.String()
}

// ToReactPropCase converts a snake_case prop name to the client's prop
// name: camelCase, except that an UNSAFE_ prefix is kept and an aria_
// prefix becomes aria-.
func ToReactPropCase(snake string) string {
	if rest, ok := strings.CutPrefix(snake, unsafePrefix); ok {
		return unsafePrefix + ToCamelCase(rest)
	}
	if rest, ok := strings.CutPrefix(snake, ariaPrefix); ok {
		return "aria-" + ToCamelCase(rest)
	}
	return ToCamelCase(snake)
}

// DictToCamelCase returns a copy of props with every key converted by
// convertKey. With omitNil, nil values are dropped. A nil convertKey
// means ToReactPropCase.
func DictToCamelCase(props map[string]any, omitNil bool, convertKey func(string) string) map[string]any {
	if convertKey == nil {
		convertKey = ToReactPropCase
	}
	out := make(map[string]any, len(props))
	for key, value := range props {
		if omitNil && value == nil {
			continue
		}
		out[convertKey(key)] = value
	}
	return out
}
