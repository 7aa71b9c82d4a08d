package astbuild

import (
	"strings"

	"github.com/pkg/errors"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIndent
	tokDedent
	tokName
	tokKeyword
	tokInt
	tokFloat
	tokString
	tokBytes
	tokFString
	tokOp
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNewline:
		return "newline"
	case tokIndent:
		return "indent"
	case tokDedent:
		return "dedent"
	case tokName:
		return "name"
	case tokKeyword:
		return "keyword"
	case tokInt:
		return "integer"
	case tokFloat:
		return "float"
	case tokString:
		return "string"
	case tokBytes:
		return "bytes"
	case tokFString:
		return "f-string"
	default:
		return "operator"
	}
}

// token is one lexical unit. For strings text holds the decoded value;
// for f-strings it holds the raw inner text, still containing braces.
type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
	line  int
}

var keywords = map[string]struct{}{
	"and": {}, "or": {}, "not": {}, "in": {}, "is": {},
	"None": {}, "True": {}, "False": {},
	"lambda": {}, "def": {}, "class": {}, "return": {}, "pass": {},
	"await": {}, "for": {},
}

// operators, longest first so maximal munch works on a plain scan.
var operators = []string{
	"...", "**", "//", "<<", ">>", "->", "==", "!=", "<=", ">=",
	"(", ")", "[", "]", ",", ":", ".", "=", "<", ">",
	"|", "^", "&", "+", "-", "*", "/", "%", "@", "~",
}

type lexer struct {
	src   string
	base  int // offset added to every position
	pos   int
	line  int
	depth int   // open bracket depth; newlines inside are joined
	stack []int // indentation widths
	toks  []token
}

func newLexer(src string, base int) *lexer {
	return &lexer{src: src, base: base, line: 1, stack: []int{0}}
}

func (l *lexer) errorf(format string, args ...any) error {
	return errors.Errorf("line %d: "+format, append([]any{l.line}, args...)...)
}

func (l *lexer) emit(kind tokenKind, text string, start int) {
	l.toks = append(l.toks, token{
		kind:  kind,
		text:  text,
		start: l.base + start,
		end:   l.base + l.pos,
		line:  l.line,
	})
}

// emitVirtual adds a zero-width structural token at the current position.
func (l *lexer) emitVirtual(kind tokenKind) {
	l.toks = append(l.toks, token{kind: kind, start: l.base + l.pos, end: l.base + l.pos, line: l.line})
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isNameStart(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '_'
}
func isNameByte(b byte) bool { return isNameStart(b) || isDigit(b) }

// scan tokenizes the whole source, including the structural
// newline/indent/dedent tokens statements hang off.
func (l *lexer) scan() ([]token, error) {
	atLineStart := true
	for l.pos < len(l.src) {
		if atLineStart && l.depth == 0 {
			proceed, err := l.scanIndentation()
			if err != nil {
				return nil, err
			}
			atLineStart = false
			if !proceed {
				continue
			}
		}
		b := l.peek()
		switch {
		case b == '\n':
			l.pos++
			l.line++
			if l.depth == 0 {
				if n := len(l.toks); n > 0 && l.toks[n-1].kind != tokNewline && l.toks[n-1].kind != tokIndent {
					l.emitVirtual(tokNewline)
				}
				atLineStart = true
			}
		case b == ' ' || b == '\t' || b == '\r':
			l.pos++
		case b == '#':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.pos++
			}
		case b == '\\' && l.peekAt(1) == '\n':
			l.pos += 2
			l.line++
		case isDigit(b):
			if err := l.scanNumber(); err != nil {
				return nil, err
			}
		case b == '\'' || b == '"':
			if err := l.scanString(l.pos, 0); err != nil {
				return nil, err
			}
		case isNameStart(b):
			if err := l.scanNameOrPrefixedString(); err != nil {
				return nil, err
			}
		default:
			if err := l.scanOperator(); err != nil {
				return nil, err
			}
		}
	}
	if n := len(l.toks); n > 0 && l.toks[n-1].kind != tokNewline {
		l.emitVirtual(tokNewline)
	}
	for len(l.stack) > 1 {
		l.stack = l.stack[:len(l.stack)-1]
		l.emitVirtual(tokDedent)
	}
	l.emitVirtual(tokEOF)
	return l.toks, nil
}

// scanIndentation measures the leading spaces of a logical line and
// emits indent/dedent tokens. It reports false when the line turned out
// to be blank or comment-only.
func (l *lexer) scanIndentation() (bool, error) {
	width := 0
	for l.pos < len(l.src) {
		switch l.peek() {
		case ' ':
			width++
			l.pos++
		case '\t':
			return false, l.errorf("tab indentation is not supported")
		default:
			goto measured
		}
	}
measured:
	if l.pos >= len(l.src) || l.peek() == '\n' || l.peek() == '#' || l.peek() == '\r' {
		return false, nil // nothing on this line
	}
	top := l.stack[len(l.stack)-1]
	switch {
	case width > top:
		l.stack = append(l.stack, width)
		l.emitVirtual(tokIndent)
	case width < top:
		for len(l.stack) > 1 && l.stack[len(l.stack)-1] > width {
			l.stack = l.stack[:len(l.stack)-1]
			l.emitVirtual(tokDedent)
		}
		if l.stack[len(l.stack)-1] != width {
			return false, l.errorf("unindent does not match any outer level")
		}
	}
	return true, nil
}

func (l *lexer) scanNumber() error {
	start := l.pos
	for isDigit(l.peek()) {
		l.pos++
	}
	isFloat := false
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.pos++
		for isDigit(l.peek()) {
			l.pos++
		}
	}
	if b := l.peek(); b == 'e' || b == 'E' {
		mark := l.pos
		l.pos++
		if b := l.peek(); b == '+' || b == '-' {
			l.pos++
		}
		if isDigit(l.peek()) {
			isFloat = true
			for isDigit(l.peek()) {
				l.pos++
			}
		} else {
			l.pos = mark
		}
	}
	if isFloat {
		l.emit(tokFloat, l.src[start:l.pos], start)
	} else {
		l.emit(tokInt, l.src[start:l.pos], start)
	}
	return nil
}

const (
	prefixNone = 0
	prefixB    = 'b'
	prefixF    = 'f'
)

func (l *lexer) scanNameOrPrefixedString() error {
	start := l.pos
	for isNameByte(l.peek()) {
		l.pos++
	}
	word := l.src[start:l.pos]
	if b := l.peek(); (b == '\'' || b == '"') && (word == "b" || word == "f") {
		return l.scanString(start, word[0])
	}
	if _, isKeyword := keywords[word]; isKeyword {
		l.emit(tokKeyword, word, start)
	} else {
		l.emit(tokName, word, start)
	}
	return nil
}

// scanString decodes a quoted literal. For f-strings the inner text is
// kept raw; the parser splits its interpolations.
func (l *lexer) scanString(start int, prefix byte) error {
	quote := l.peek()
	l.pos++
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) || l.peek() == '\n' {
			return l.errorf("unterminated string literal")
		}
		b := l.peek()
		if b == quote {
			l.pos++
			break
		}
		if b == '\\' && prefix != prefixF {
			esc := l.peekAt(1)
			l.pos += 2
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '\'', '"':
				sb.WriteByte(esc)
			case '0':
				sb.WriteByte(0)
			default:
				return l.errorf("unsupported escape sequence \\%c", esc)
			}
			continue
		}
		sb.WriteByte(b)
		l.pos++
	}
	switch prefix {
	case prefixB:
		l.emit(tokBytes, sb.String(), start)
	case prefixF:
		l.emit(tokFString, sb.String(), start)
	default:
		l.emit(tokString, sb.String(), start)
	}
	return nil
}

func (l *lexer) scanOperator() error {
	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			start := l.pos
			l.pos += len(op)
			switch op {
			case "(", "[":
				l.depth++
			case ")", "]":
				if l.depth > 0 {
					l.depth--
				}
			}
			l.emit(tokOp, op, start)
			return nil
		}
	}
	return l.errorf("unexpected character %q", l.peek())
}
