package sqf

import (
	"fmt"
	"strings"
)

// TokenKind classifies a lexical token.
type TokenKind uint8

const (
	TokIdent TokenKind = iota + 1
	TokNumber
	TokString
	TokPunct
	TokComment
	TokDirective
)

func (k TokenKind) String() string {
	switch k {
	case TokIdent:
		return "ident"
	case TokNumber:
		return "number"
	case TokString:
		return "string"
	case TokPunct:
		return "punct"
	case TokComment:
		return "comment"
	case TokDirective:
		return "directive"
	}
	return "token"
}

// Token is one lexeme. Line is the logical line: a backslash-newline
// continuation does not start a new logical line, which is what lets a
// #define body span several physical lines.
type Token struct {
	Kind TokenKind
	Text string
	Span Span
	Line int
}

// two-character punctuators, checked before single characters.
var punct2 = []string{"==", "!=", ">=", "<=", ">>", "&&", "||", "##"}

const punct1 = "[]{}(),;=!+-*/%^<>:#"

// lexError is a fatal lexical problem.
type lexError struct {
	span Span
	msg  string
}

func (e *lexError) Error() string { return e.msg }

type lexer struct {
	src  string
	pos  int
	line int
	bol  bool // only whitespace seen since the start of the logical line
	out  []Token
}

// Lex splits src into tokens, including comments and directive keywords.
func Lex(src string) ([]Token, error) {
	lx := &lexer{src: src, bol: true}
	if err := lx.run(); err != nil {
		return lx.out, err
	}
	return lx.out, nil
}

func (lx *lexer) emit(kind TokenKind, start int) {
	lx.out = append(lx.out, Token{
		Kind: kind,
		Text: lx.src[start:lx.pos],
		Span: Span{Start: start, End: lx.pos},
		Line: lx.line,
	})
}

func (lx *lexer) run() error {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			lx.pos++
			lx.line++
			lx.bol = true
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			lx.pos++
		case c == '\\' && lx.continuation():
			// joined with the next physical line
		case c == '/' && lx.peek(1) == '/':
			start := lx.pos
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
			lx.emit(TokComment, start)
		case c == '/' && lx.peek(1) == '*':
			if err := lx.blockComment(); err != nil {
				return err
			}
		case c == '"' || c == '\'':
			if err := lx.str(c); err != nil {
				return err
			}
			lx.bol = false
		case c == '#' && lx.bol && isIdentStart(lx.peek(1)):
			start := lx.pos
			lx.pos++
			for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
				lx.pos++
			}
			lx.emit(TokDirective, start)
			lx.bol = false
		case isDigit(c) || (c == '.' && isDigit(lx.peek(1))) || (c == '$' && isHex(lx.peek(1))):
			lx.number()
			lx.bol = false
		case isIdentStart(c):
			start := lx.pos
			for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
				lx.pos++
			}
			lx.emit(TokIdent, start)
			lx.bol = false
		default:
			if !lx.punct() {
				return &lexError{
					span: Span{Start: lx.pos, End: lx.pos + 1},
					msg:  fmt.Sprintf("unexpected character %q", c),
				}
			}
			lx.bol = false
		}
	}
	return nil
}

func (lx *lexer) peek(n int) byte {
	if lx.pos+n < len(lx.src) {
		return lx.src[lx.pos+n]
	}
	return 0
}

// continuation consumes a backslash-newline pair.
func (lx *lexer) continuation() bool {
	switch {
	case lx.peek(1) == '\n':
		lx.pos += 2
		return true
	case lx.peek(1) == '\r' && lx.peek(2) == '\n':
		lx.pos += 3
		return true
	}
	return false
}

func (lx *lexer) blockComment() error {
	start := lx.pos
	end := strings.Index(lx.src[lx.pos+2:], "*/")
	if end < 0 {
		return &lexError{span: Span{Start: start, End: len(lx.src)}, msg: "unterminated block comment"}
	}
	stop := lx.pos + 2 + end + 2
	lx.line += strings.Count(lx.src[lx.pos:stop], "\n")
	lx.pos = stop
	lx.emit(TokComment, start)
	return nil
}

// str lexes a string literal; the quote character is escaped by doubling it.
func (lx *lexer) str(quote byte) error {
	start := lx.pos
	lx.pos++
	for {
		if lx.pos >= len(lx.src) {
			return &lexError{span: Span{Start: start, End: len(lx.src)}, msg: "unterminated string"}
		}
		c := lx.src[lx.pos]
		if c == '\n' {
			lx.line++
		}
		if c == quote {
			if lx.peek(1) == quote {
				lx.pos += 2
				continue
			}
			lx.pos++
			lx.emit(TokString, start)
			return nil
		}
		lx.pos++
	}
}

func (lx *lexer) number() {
	start := lx.pos
	switch {
	case lx.src[lx.pos] == '$':
		lx.pos++
		for lx.pos < len(lx.src) && isHex(lx.src[lx.pos]) {
			lx.pos++
		}
	case lx.src[lx.pos] == '0' && (lx.peek(1) == 'x' || lx.peek(1) == 'X'):
		lx.pos += 2
		for lx.pos < len(lx.src) && isHex(lx.src[lx.pos]) {
			lx.pos++
		}
	default:
		for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			lx.pos++
		}
		if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' {
			lx.pos++
			for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
				lx.pos++
			}
		}
		if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
			save := lx.pos
			lx.pos++
			if lx.pos < len(lx.src) && (lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') {
				lx.pos++
			}
			if lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
				for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
					lx.pos++
				}
			} else {
				lx.pos = save
			}
		}
	}
	lx.emit(TokNumber, start)
}

func (lx *lexer) punct() bool {
	start := lx.pos
	rest := lx.src[lx.pos:]
	for _, p := range punct2 {
		if strings.HasPrefix(rest, p) {
			lx.pos += 2
			lx.emit(TokPunct, start)
			return true
		}
	}
	if strings.IndexByte(punct1, rest[0]) >= 0 {
		lx.pos++
		lx.emit(TokPunct, start)
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
