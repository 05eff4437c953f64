package job

import (
	"fmt"
	"strings"
)

// Escape returns s as a single quoted R string literal. Quotes and backslashes
// are escaped, everything else is kept as is.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)

	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')

	return b.String()
}

// Unescape is the inverse of Escape.
func Unescape(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return "", fmt.Errorf("%q is not a single quoted literal", lit)
	}

	inner := lit[1 : len(lit)-1]
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch c {
		case '\\':
			if i+1 >= len(inner) {
				return "", fmt.Errorf("dangling escape at the end of %q", lit)
			}
			next := inner[i+1]
			if next != '\'' && next != '\\' {
				return "", fmt.Errorf("unsupported escape sequence \\%c in %q", next, lit)
			}
			b.WriteByte(next)
			i++
		case '\'':
			return "", fmt.Errorf("unescaped quote at position %d in %q", i+1, lit)
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), nil
}
