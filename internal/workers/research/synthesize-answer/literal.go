// internal/workers/research/synthesize-answer/literal.go
package synthesizeanswer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// literalParser reads the Python literal subset models tend to emit when
// they drift from strict JSON. Values decode to the same Go types as
// encoding/json into interface{}. Raw newlines inside quoted strings are
// accepted.
type literalParser struct {
	src []rune
	pos int
}

func parseLiteral(s string) (interface{}, error) {
	p := &literalParser{src: []rune(s)}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q after value", p.peek())
	}
	return v, nil
}

func (p *literalParser) eof() bool { return p.pos >= len(p.src) }

func (p *literalParser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for !p.eof() {
		r := p.peek()
		switch {
		case unicode.IsSpace(r):
			p.pos++
		case r == '#':
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *literalParser) value() (interface{}, error) {
	if p.eof() {
		return nil, p.errorf("unexpected end of input")
	}

	switch r := p.peek(); {
	case r == '{':
		return p.dict()
	case r == '[':
		return p.sequence('[', ']')
	case r == '(':
		return p.sequence('(', ')')
	case r == '"' || r == '\'':
		return p.stringLiteral()
	case r == '-' || r == '+' || r == '.' || unicode.IsDigit(r):
		return p.number()
	case unicode.IsLetter(r) || r == '_':
		return p.word()
	default:
		return nil, p.errorf("unexpected %q", r)
	}
}

func (p *literalParser) dict() (interface{}, error) {
	p.pos++ // {
	out := map[string]interface{}{}
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return out, nil
		}

		key, err := p.value()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' after dict key")
		}
		p.pos++
		p.skipSpace()

		val, err := p.value()
		if err != nil {
			return nil, err
		}
		out[keyString(key)] = val

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or '}' in dict")
		}
	}
}

func (p *literalParser) sequence(open, close rune) (interface{}, error) {
	p.pos++ // open
	out := []interface{}{}
	for {
		p.skipSpace()
		if p.peek() == close {
			p.pos++
			return out, nil
		}

		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case close:
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or %q in %c%c", close, open, close)
		}
	}
}

// stringLiteral reads one or more adjacent string literals and concatenates them.
func (p *literalParser) stringLiteral() (interface{}, error) {
	var b strings.Builder
	for {
		s, err := p.str(false)
		if err != nil {
			return nil, err
		}
		b.WriteString(s)

		save := p.pos
		p.skipSpace()
		if r := p.peek(); r != '"' && r != '\'' {
			p.pos = save
			return b.String(), nil
		}
	}
}

func (p *literalParser) str(raw bool) (string, error) {
	quote := p.peek()
	triple := p.pos+2 < len(p.src) && p.src[p.pos+1] == quote && p.src[p.pos+2] == quote
	if triple {
		p.pos += 3
	} else {
		p.pos++
	}

	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		r := p.src[p.pos]

		if r == quote {
			if !triple {
				p.pos++
				return b.String(), nil
			}
			if p.pos+2 < len(p.src) && p.src[p.pos+1] == quote && p.src[p.pos+2] == quote {
				p.pos += 3
				return b.String(), nil
			}
		}

		if r == '\\' && p.pos+1 < len(p.src) {
			if raw {
				b.WriteRune(r)
				b.WriteRune(p.src[p.pos+1])
				p.pos += 2
				continue
			}
			if err := p.escape(&b); err != nil {
				return "", err
			}
			continue
		}

		b.WriteRune(r)
		p.pos++
	}
}

func (p *literalParser) escape(b *strings.Builder) error {
	p.pos++ // backslash
	r := p.src[p.pos]
	p.pos++

	switch r {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case '0':
		b.WriteByte(0)
	case '\\', '\'', '"', '/':
		b.WriteRune(r)
	case '\n':
		// line continuation
	case 'x':
		return p.hexEscape(b, 2)
	case 'u':
		return p.hexEscape(b, 4)
	case 'U':
		return p.hexEscape(b, 8)
	default:
		b.WriteByte('\\')
		b.WriteRune(r)
	}
	return nil
}

func (p *literalParser) hexEscape(b *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("truncated escape")
	}
	n, err := strconv.ParseUint(string(p.src[p.pos:p.pos+digits]), 16, 32)
	if err != nil {
		return p.errorf("bad escape: %v", err)
	}
	p.pos += digits

	r := rune(n)
	// A JSON-style surrogate pair arrives as two \u escapes.
	if digits == 4 && r >= 0xD800 && r < 0xDC00 && p.pos+6 <= len(p.src) && p.src[p.pos] == '\\' && p.src[p.pos+1] == 'u' {
		if lo, err := strconv.ParseUint(string(p.src[p.pos+2:p.pos+6]), 16, 32); err == nil && lo >= 0xDC00 && lo < 0xE000 {
			r = (r-0xD800)<<10 + (rune(lo) - 0xDC00) + 0x10000
			p.pos += 6
		}
	}
	if !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	b.WriteRune(r)
	return nil
}

func (p *literalParser) number() (interface{}, error) {
	start := p.pos
	for !p.eof() {
		r := p.peek()
		if unicode.IsDigit(r) || strings.ContainsRune("+-.eE_xXoOabcdefABCDEF", r) {
			p.pos++
			continue
		}
		break
	}
	text := strings.ReplaceAll(string(p.src[start:p.pos]), "_", "")
	digits := strings.ToLower(strings.TrimLeft(text, "+-"))

	switch {
	case strings.HasPrefix(digits, "0x"), strings.HasPrefix(digits, "0o"), strings.HasPrefix(digits, "0b"):
		n, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, p.errorf("bad number %q", text)
		}
		return float64(n), nil
	case digits != "" && strings.Trim(digits, "0123456789") == "":
		// Decimal integers only allow leading zeros when the value is zero.
		if len(digits) > 1 && digits[0] == '0' && strings.Trim(digits, "0") != "" {
			return nil, p.errorf("leading zeros in decimal integer %q", text)
		}
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return float64(n), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.errorf("bad number %q", text)
	}
	return f, nil
}

func (p *literalParser) word() (interface{}, error) {
	start := p.pos
	for !p.eof() {
		r := p.peek()
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			p.pos++
			continue
		}
		break
	}
	w := string(p.src[start:p.pos])

	switch w {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None", "null":
		return nil, nil
	}

	// String prefixes: r"..", u"..", b"..", rb"..".
	if q := p.peek(); (q == '"' || q == '\'') && len(w) <= 2 && strings.Trim(strings.ToLower(w), "rub") == "" {
		return p.str(strings.ContainsAny(w, "rR"))
	}
	return nil, fmt.Errorf("offset %d: unknown name %q", start, w)
}

func keyString(k interface{}) string {
	switch t := k.(type) {
	case string:
		return t
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
