package compiler

import (
	"strings"
	"unicode"
)

// kebabCase lowercases s, splits camelCase boundaries and collapses every run
// of non-alphanumeric characters into a single dash.
func kebabCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s) + 8)

	prevDash := false
	var prevCat runeCategory

	for _, r := range s {
		cat := categorize(r)
		switch cat {
		case catLower, catUpper, catDigit:
			if b.Len() > 0 && !prevDash {
				if cat == catUpper && (prevCat == catLower || prevCat == catDigit) {
					b.WriteByte('-')
				}
			}
			if cat == catUpper {
				r = unicode.ToLower(r)
			}
			b.WriteRune(r)
			prevDash = false
		default:
			if b.Len() > 0 && !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
		prevCat = cat
	}

	return strings.Trim(b.String(), "-")
}

type runeCategory int

const (
	catOther runeCategory = iota
	catLower
	catUpper
	catDigit
)

// Non-ASCII letters count as separators so slugs stay plain ASCII.
func categorize(r rune) runeCategory {
	switch {
	case r >= 'a' && r <= 'z':
		return catLower
	case r >= 'A' && r <= 'Z':
		return catUpper
	case r >= '0' && r <= '9':
		return catDigit
	default:
		return catOther
	}
}

// staticSegments returns the non-placeholder segments of a path template.
func staticSegments(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// pathSlug kebab-cases the static segments of a path template.
func pathSlug(path string) string {
	return kebabCase(strings.Join(staticSegments(path), " "))
}
