package cocoapods

import (
	"fmt"
	"regexp"
	"strings"
)

const heredocMark = "\x00"

type heredoc struct {
	id     string
	squish bool // <<- and <<~ allow an indented terminator
}

// scanLine removes a trailing # comment and replaces heredoc openers with
// numbered markers. Quotes and #{...} are respected.
func scanLine(line string) (string, []heredoc) {
	var b strings.Builder
	var docs []heredoc
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			b.WriteByte(c)
			switch {
			case c == '\\' && i+1 < len(line):
				i++
				b.WriteByte(line[i])
			case quote == '"' && c == '#' && i+1 < len(line) && line[i+1] == '{':
				if end := strings.IndexByte(line[i:], '}'); end > 0 {
					b.WriteString(line[i+1 : i+end+1])
					i += end
				}
			case c == quote:
				quote = 0
			}
			continue
		}

		switch {
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '#':
			return b.String(), docs
		case c == '<' && strings.HasPrefix(line[i:], "<<"):
			if doc, n, ok := heredocOpener(line[i+2:]); ok {
				fmt.Fprintf(&b, "%s%d%s", heredocMark, len(docs), heredocMark)
				docs = append(docs, doc)
				i += 1 + n
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), docs
}

func heredocOpener(s string) (heredoc, int, bool) {
	var doc heredoc
	n := 0
	if n < len(s) && (s[n] == '-' || s[n] == '~') {
		doc.squish = true
		n++
	}
	var quote byte
	if n < len(s) && (s[n] == '\'' || s[n] == '"') {
		quote = s[n]
		n++
	}
	start := n
	for n < len(s) && isIdentChar(s[n]) {
		n++
	}
	if n == start || !isIdentStart(s[start]) {
		return heredoc{}, 0, false
	}
	doc.id = s[start:n]
	if quote != 0 {
		if n >= len(s) || s[n] != quote {
			return heredoc{}, 0, false
		}
		n++
	} else if !doc.squish && strings.ToUpper(doc.id) != doc.id {
		// plain <<word is only a heredoc for constant-style terminators
		return heredoc{}, 0, false
	}
	return doc, n, true
}

// rubyQuote renders s as a single-quoted Ruby literal.
func rubyQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// logicalLines strips comments, inlines heredocs and joins continuation
// lines so every returned line holds one complete statement.
func (x *extractor) logicalLines(content string) []string {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	var lines []string
	for i := 0; i < len(raw); i++ {
		line, docs := scanLine(raw[i])
		for n, doc := range docs {
			var body []string
			start, closed := i, false
			for i+1 < len(raw) {
				i++
				candidate := raw[i]
				if doc.squish {
					candidate = strings.TrimSpace(candidate)
				}
				if candidate == doc.id {
					closed = true
					break
				}
				body = append(body, raw[i])
			}
			// an unterminated heredoc leaves the following lines to be parsed
			if !closed {
				i, body = start, nil
			}
			marker := fmt.Sprintf("%s%d%s", heredocMark, n, heredocMark)
			line = strings.Replace(line, marker, rubyQuote(strings.Join(body, " ")), 1)
		}
		lines = append(lines, line)
	}

	var out []string
	for i := 0; i < len(lines); i++ {
		stmt := strings.TrimSpace(lines[i])
		if stmt == "" {
			continue
		}
		depth := bracketDepth(stmt)
		for i+1 < len(lines) && (depth > 0 || x.continues(stmt)) {
			next := lines[i+1]
			if x.newStatement.MatchString(next) {
				break
			}
			i++
			stmt = strings.TrimSuffix(stmt, `\`)
			stmt += " " + strings.TrimSpace(next)
			depth += bracketDepth(next)
		}
		out = append(out, stmt)
	}
	return out
}

func (x *extractor) continues(stmt string) bool {
	return x.openEnded.MatchString(stmt)
}

// bracketDepth counts unbalanced brackets outside string literals.
func bracketDepth(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
	}
	return depth
}

func compileStatementPatterns() (statement, newStatement, openEnded *regexp.Regexp, err error) {
	if statement, err = regexp.Compile(`^(?:([A-Za-z_]\w*)\.)?([a-z_]+)\b\s*(?:=\s*)?(.*)$`); err != nil {
		return nil, nil, nil, err
	}
	if newStatement, err = regexp.Compile(`^\s*(?:[a-z_]\w*\.[a-z_]\w*\s*(?:=[^=>]|['"])|end\b)`); err != nil {
		return nil, nil, nil, err
	}
	if openEnded, err = regexp.Compile(`(?:,|=>|[^=!<>]=|\\|\+)$`); err != nil {
		return nil, nil, nil, err
	}
	return statement, newStatement, openEnded, nil
}
