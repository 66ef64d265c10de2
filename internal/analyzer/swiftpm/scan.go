package swiftpm

import (
	"errors"
	"strings"
)

var errUnterminated = errors.New("unterminated string literal")

// stripComments removes // and nested /* */ comments. String literals,
// including multi-line """ strings, are copied through untouched.
func stripComments(src string) string {
	var b strings.Builder
	b.Grow(len(src))

	for i := 0; i < len(src); {
		switch {
		case strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				return b.String()
			}
			i += end
		case strings.HasPrefix(src[i:], "/*"):
			depth := 0
			for i < len(src) {
				if strings.HasPrefix(src[i:], "/*") {
					depth++
					i += 2
				} else if strings.HasPrefix(src[i:], "*/") {
					depth--
					i += 2
					if depth == 0 {
						break
					}
				} else {
					i++
				}
			}
			b.WriteByte(' ')
		case startsLiteral(src[i:]):
			n := literalLength(src[i:])
			b.WriteString(src[i : i+n])
			i += n
		default:
			b.WriteByte(src[i])
			i++
		}
	}
	return b.String()
}

// startsLiteral reports whether s opens a plain or raw string literal.
func startsLiteral(s string) bool {
	return strings.HasPrefix(s, `"`) || rawHashes(s) > 0
}

// rawHashes returns the number of '#' delimiting the raw string literal
// #"..."# at the start of s, or 0.
func rawHashes(s string) int {
	n := 0
	for n < len(s) && s[n] == '#' {
		n++
	}
	if n > 0 && n < len(s) && s[n] == '"' {
		return n
	}
	return 0
}

// rawDelimiters returns the opening and closing delimiters of a raw literal.
func rawDelimiters(s string, hashes int) (string, string) {
	quote := `"`
	if strings.HasPrefix(s[hashes:], `"""`) {
		quote = `"""`
	}
	pounds := strings.Repeat("#", hashes)
	return pounds + quote, quote + pounds
}

// literalLength returns the byte length of the string literal at the start
// of s, or len(s) if it never terminates.
func literalLength(s string) int {
	if h := rawHashes(s); h > 0 {
		open, closing := rawDelimiters(s, h)
		if end := strings.Index(s[len(open):], closing); end >= 0 {
			return len(open) + end + len(closing)
		}
		return len(s)
	}
	if strings.HasPrefix(s, `"""`) {
		if end := strings.Index(s[3:], `"""`); end >= 0 {
			return end + 6
		}
		return len(s)
	}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		case '\n':
			return i
		}
	}
	return len(s)
}

// stringLiteral decodes the literal at the start of s and returns the rest.
// Interpolated literals are rejected.
func stringLiteral(s string) (string, string, error) {
	n := literalLength(s)
	lit := s[:n]

	if h := rawHashes(lit); h > 0 {
		open, closing := rawDelimiters(lit, h)
		if n < len(open)+len(closing) || !strings.HasSuffix(lit, closing) {
			return "", "", errUnterminated
		}
		body := lit[len(open) : n-len(closing)]
		if strings.Contains(body, `\`+strings.Repeat("#", h)+`(`) {
			return "", "", errors.New("interpolated string literal")
		}
		return strings.TrimSpace(body), s[n:], nil
	}

	if strings.HasPrefix(lit, `"""`) {
		if n < 6 || !strings.HasSuffix(lit, `"""`) {
			return "", "", errUnterminated
		}
		body := lit[3 : n-3]
		if strings.Contains(body, `\(`) {
			return "", "", errors.New("interpolated string literal")
		}
		return strings.TrimSpace(body), s[n:], nil
	}

	if n < 2 || lit[n-1] != '"' {
		return "", "", errUnterminated
	}
	var b strings.Builder
	body := lit[1 : n-1]
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' || i+1 >= len(body) {
			b.WriteByte(body[i])
			continue
		}
		i++
		switch body[i] {
		case '(':
			return "", "", errors.New("interpolated string literal")
		case 'n', 't', 'r':
			b.WriteByte(' ')
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), s[n:], nil
}

// packageArguments finds the first top-level Package( call and splits its
// argument list on commas at depth one.
func packageArguments(src string) ([]string, bool) {
	start := findPackageCall(src)
	if start < 0 {
		return nil, false
	}

	var args []string
	depth := 0
	argStart := start + 1
	for i := start; i < len(src); {
		if startsLiteral(src[i:]) {
			i += literalLength(src[i:])
			continue
		}
		switch c := src[i]; c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				args = append(args, strings.TrimSpace(src[argStart:i]))
				return args, true
			}
		case ',':
			if depth == 1 {
				args = append(args, strings.TrimSpace(src[argStart:i]))
				argStart = i + 1
			}
		}
		i++
	}
	// unbalanced: keep what was split so far
	if argStart < len(src) {
		args = append(args, strings.TrimSpace(src[argStart:]))
	}
	return args, true
}

// findPackageCall returns the index of the '(' that opens the first
// Package( call outside string literals, or -1.
func findPackageCall(src string) int {
	const ident = "Package"
	for i := 0; i < len(src); {
		if startsLiteral(src[i:]) {
			i += literalLength(src[i:])
			continue
		}
		if strings.HasPrefix(src[i:], ident) && (i == 0 || unqualified(src[:i])) {
			j := i + len(ident)
			if j < len(src) && isIdentByte(src[j]) {
				i = j
				continue
			}
			for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
				j++
			}
			if j < len(src) && src[j] == '(' {
				return j
			}
			i = j
			continue
		}
		i++
	}
	return -1
}

// unqualified reports whether the identifier that follows prefix stands on
// its own or is qualified by the PackageDescription module.
func unqualified(prefix string) bool {
	last := prefix[len(prefix)-1]
	if isIdentByte(last) {
		return false
	}
	if last != '.' {
		return true
	}
	module := strings.TrimSuffix(prefix, "PackageDescription.")
	return module != prefix && (module == "" || !isIdentByte(module[len(module)-1]) && module[len(module)-1] != '.')
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
