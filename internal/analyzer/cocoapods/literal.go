package cocoapods

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokString tokenKind = iota
	tokSymbol
	tokLabel
	tokIdent
	tokMethod
	tokWords
	tokArrow
	tokComma
	tokPlus
	tokLBrack
	tokRBrack
	tokLBrace
	tokRBrace
	tokLParen
	tokRParen
)

type token struct {
	kind  tokenKind
	text  string
	words []string
}

// lex splits a Ruby expression into the tokens a podspec value can use.
// Anything else (operators, blocks, numbers with units) is an error.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'':
			s, n, err := lexSingle(src[i:])
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: s})
			i += n
		case c == '"':
			s, n, err := lexDouble(src[i:])
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: s})
			i += n
		case c == '%' && i+2 < len(src) && strings.IndexByte("qQwW", src[i+1]) >= 0:
			body, n, err := lexPercent(src[i+2:])
			if err != nil {
				return nil, err
			}
			if src[i+1] == 'w' || src[i+1] == 'W' {
				toks = append(toks, token{kind: tokWords, words: strings.Fields(body)})
			} else {
				toks = append(toks, token{kind: tokString, text: body})
			}
			i += 2 + n
		case c == ':' && i+1 < len(src) && isIdentStart(src[i+1]):
			j := i + 1
			for j < len(src) && isIdentChar(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tokSymbol, text: src[i+1 : j]})
			i = j
		case c == '=' && i+1 < len(src) && src[i+1] == '>':
			toks = append(toks, token{kind: tokArrow})
			i += 2
		case c == '.' && i+1 < len(src) && isIdentStart(src[i+1]):
			j := i + 1
			for j < len(src) && (isIdentChar(src[j]) || src[j] == '?' || src[j] == '!') {
				j++
			}
			toks = append(toks, token{kind: tokMethod, text: src[i+1 : j]})
			i = j
		case isIdentStart(c) || isDigit(c):
			j := i
			for j < len(src) && (isIdentChar(src[j]) || (src[j] == '.' && j+1 < len(src) && isIdentChar(src[j+1]))) {
				j++
			}
			word := src[i:j]
			if j < len(src) && src[j] == ':' && (j+1 >= len(src) || src[j+1] != ':') && !isDigit(c) {
				toks = append(toks, token{kind: tokLabel, text: word})
				i = j + 1
				continue
			}
			toks = append(toks, token{kind: tokIdent, text: word})
			i = j
		default:
			kind, ok := punct[c]
			if !ok {
				return nil, fmt.Errorf("unexpected %q at offset %d", c, i)
			}
			toks = append(toks, token{kind: kind})
			i++
		}
	}
	return toks, nil
}

var punct = map[byte]tokenKind{
	',': tokComma,
	'+': tokPlus,
	'[': tokLBrack,
	']': tokRBrack,
	'{': tokLBrace,
	'}': tokRBrace,
	'(': tokLParen,
	')': tokRParen,
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func lexSingle(src string) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			if i+1 < len(src) && (src[i+1] == '\'' || src[i+1] == '\\') {
				b.WriteByte(src[i+1])
				i++
				continue
			}
			b.WriteByte('\\')
		case '\'':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(src[i])
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

// lexDouble keeps #{...} interpolations verbatim so the caller can decide
// whether they resolve.
func lexDouble(src string) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(src); i++ {
		switch c := src[i]; {
		case c == '\\' && i+1 < len(src):
			i++
			switch src[i] {
			case 'n', 't', 'r':
				b.WriteByte(' ')
			default:
				b.WriteByte(src[i])
			}
		case c == '#' && i+1 < len(src) && src[i+1] == '{':
			end := strings.IndexByte(src[i:], '}')
			if end < 0 {
				return "", 0, fmt.Errorf("unterminated interpolation")
			}
			b.WriteString(src[i : i+end+1])
			i += end
		case c == '"':
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

var closers = map[byte]byte{'(': ')', '[': ']', '{': '}', '<': '>'}

func lexPercent(src string) (string, int, error) {
	if src == "" {
		return "", 0, fmt.Errorf("empty %% literal")
	}
	open := src[0]
	closer, paired := closers[open]
	if !paired {
		closer = open
	}
	depth := 1
	for i := 1; i < len(src); i++ {
		switch {
		case paired && src[i] == open:
			depth++
		case src[i] == closer:
			depth--
			if depth == 0 {
				return src[1:i], i + 1, nil
			}
		}
	}
	return "", 0, fmt.Errorf("unterminated %%%c literal", open)
}

type valueKind int

const (
	valString valueKind = iota
	valArray
	valHash
	// valOpaque is a computed expression such as ENV['X'] or File.read(path).
	valOpaque
)

type pair struct {
	key   string
	value value
}

// value is the subset of Ruby literals a podspec attribute can hold.
type value struct {
	kind  valueKind
	str   string
	items []value
	pairs []pair
}

// strings flattens a value into its string leaves. Hashes contribute keys
// and opaque values contribute nothing.
func (v value) strings() []string {
	switch v.kind {
	case valOpaque:
		return nil
	case valString:
		return []string{v.str}
	case valArray:
		var out []string
		for _, it := range v.items {
			out = append(out, it.strings()...)
		}
		return out
	default:
		out := make([]string, 0, len(v.pairs))
		for _, p := range v.pairs {
			out = append(out, p.key)
		}
		return out
	}
}

func (v value) lookup(key string) (value, bool) {
	for _, p := range v.pairs {
		if p.key == key {
			return p.value, true
		}
	}
	return value{}, false
}

// resolver maps bare identifiers and receiver.attribute chains to values
// already seen in the same file.
type resolver func(ident string) (string, bool)

type parser struct {
	toks    []token
	pos     int
	resolve resolver
}

func parseValue(src string, resolve resolver) (value, error) {
	toks, err := lex(src)
	if err != nil {
		return value{}, err
	}
	if len(toks) == 0 {
		return value{}, fmt.Errorf("empty value")
	}
	p := &parser{toks: toks, resolve: resolve}
	v, err := p.list(-1)
	if err != nil {
		return value{}, err
	}
	if p.pos != len(p.toks) {
		return value{}, fmt.Errorf("trailing tokens after value")
	}
	return v, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) at(kind tokenKind) bool {
	t, ok := p.peek()
	return ok && t.kind == kind
}

// list parses comma separated terms until end or the closing token. Bare
// "key => value" pairs turn the whole list into a hash.
func (p *parser) list(closing tokenKind) (value, error) {
	var items []value
	var pairs []pair
	for {
		if p.pos >= len(p.toks) || (closing >= 0 && p.at(closing)) {
			break
		}
		if p.at(tokLabel) {
			key := p.toks[p.pos].text
			p.pos++
			v, err := p.term()
			if err != nil {
				return value{}, err
			}
			pairs = append(pairs, pair{key: key, value: v})
		} else {
			v, err := p.term()
			if err != nil {
				return value{}, err
			}
			if p.at(tokArrow) {
				if v.kind != valString {
					return value{}, fmt.Errorf("hash key is not a string")
				}
				p.pos++
				val, err := p.term()
				if err != nil {
					return value{}, err
				}
				pairs = append(pairs, pair{key: v.str, value: val})
			} else {
				items = append(items, v)
			}
		}
		if !p.at(tokComma) {
			break
		}
		p.pos++
	}

	switch {
	case len(pairs) > 0 && len(items) == 0:
		return value{kind: valHash, pairs: pairs}, nil
	case len(pairs) > 0:
		items = append(items, value{kind: valHash, pairs: pairs})
		return value{kind: valArray, items: items}, nil
	case len(items) == 1 && closing < 0:
		return items[0], nil
	default:
		return value{kind: valArray, items: items}, nil
	}
}

func (p *parser) term() (value, error) {
	v, err := p.primary()
	if err != nil {
		return value{}, err
	}
	for p.at(tokMethod) {
		p.pos++
	}
	if p.at(tokPlus) {
		p.pos++
		rhs, err := p.term()
		if err != nil {
			return value{}, err
		}
		if v.kind == valOpaque || rhs.kind == valOpaque {
			return value{kind: valOpaque}, nil
		}
		if v.kind != valString || rhs.kind != valString {
			return value{}, fmt.Errorf("cannot concatenate non-strings")
		}
		return value{kind: valString, str: v.str + rhs.str}, nil
	}
	return v, nil
}

// skipGroup consumes the argument list or index that follows an identifier.
func (p *parser) skipGroup() error {
	depth := 0
	for {
		t, ok := p.peek()
		if !ok {
			return fmt.Errorf("unterminated call")
		}
		p.pos++
		switch t.kind {
		case tokLParen, tokLBrack, tokLBrace:
			depth++
		case tokRParen, tokRBrack, tokRBrace:
			depth--
		}
		if depth == 0 {
			return nil
		}
	}
}

func (p *parser) primary() (value, error) {
	t, ok := p.peek()
	if !ok {
		return value{}, fmt.Errorf("unexpected end of value")
	}
	p.pos++

	switch t.kind {
	case tokString, tokSymbol:
		return value{kind: valString, str: t.text}, nil
	case tokWords:
		items := make([]value, 0, len(t.words))
		for _, w := range t.words {
			items = append(items, value{kind: valString, str: w})
		}
		return value{kind: valArray, items: items}, nil
	case tokIdent:
		if isNumber(t.text) {
			return value{kind: valString, str: t.text}, nil
		}
		if p.at(tokLParen) || p.at(tokLBrack) {
			if err := p.skipGroup(); err != nil {
				return value{}, err
			}
			return value{kind: valOpaque}, nil
		}
		if p.resolve != nil {
			if s, ok := p.resolve(t.text); ok {
				return value{kind: valString, str: s}, nil
			}
		}
		return value{kind: valOpaque}, nil
	case tokLBrack:
		v, err := p.list(tokRBrack)
		if err != nil {
			return value{}, err
		}
		if !p.at(tokRBrack) {
			return value{}, fmt.Errorf("unterminated array")
		}
		p.pos++
		if v.kind == valHash {
			v = value{kind: valArray, items: []value{v}}
		}
		return v, nil
	case tokLBrace:
		v, err := p.list(tokRBrace)
		if err != nil {
			return value{}, err
		}
		if !p.at(tokRBrace) {
			return value{}, fmt.Errorf("unterminated hash")
		}
		p.pos++
		if v.kind == valArray && len(v.items) == 0 {
			return value{kind: valHash}, nil
		}
		if v.kind != valHash {
			return value{}, fmt.Errorf("braces do not hold a hash")
		}
		return v, nil
	case tokLParen:
		v, err := p.list(tokRParen)
		if err != nil {
			return value{}, err
		}
		if !p.at(tokRParen) {
			return value{}, fmt.Errorf("unterminated parenthesis")
		}
		p.pos++
		if v.kind == valArray && len(v.items) == 1 {
			return v.items[0], nil
		}
		return v, nil
	default:
		return value{}, fmt.Errorf("unexpected token")
	}
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) && s[i] != '.' {
			return false
		}
	}
	return true
}
