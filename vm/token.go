package vm

import (
	"fmt"
	"strconv"
)

// TokenKind is the closed set of lexical categories the lexer produces.
type TokenKind uint8

const (
	TokIdent TokenKind = iota
	TokInt
	TokReal
	TokKeyword
	TokPunct
	TokEOF
	TokFailure
)

// Pos attaches a row/column to every token and, from there, to every AST
// node and diagnostic, per SPEC_FULL.md section 4.1.
type Pos struct {
	Row, Col int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Col)
}

type Token struct {
	Kind  TokenKind
	Text  string
	Int   int64
	Real  float32
	Pos   Pos
}

func (t Token) String() string {
	switch t.Kind {
	case TokInt:
		return fmt.Sprintf("int(%d)", t.Int)
	case TokReal:
		return fmt.Sprintf("real(%v)", t.Real)
	default:
		return t.Text
	}
}

var keywords = map[string]bool{
	"in": true, "out": true, "inout": true, "const": true, "uniform": true,
	"void": true, "float": true, "vec2": true, "vec3": true, "vec4": true,
	"return": true, "dot": true, "cross": true, "length": true,
	"sin": true, "asin": true, "cos": true, "acos": true, "tan": true, "atan": true,
	"accumulate": true, "normalize": true, "sqrt": true, "invsqrt": true,
	"max": true, "min": true, "floor": true, "ceil": true,
	"sampler": true, "sample1D": true, "sample2D": true, "sample3D": true,
}

// twoCharPunct lists punctuation that may extend to a second character.
var twoCharPunct = map[byte]map[byte]string{
	'=': {'=': "=="},
	'<': {'=': "<="},
	'>': {'=': ">="},
}

var singlePunct = map[byte]bool{
	';': true, ':': true, '.': true, ',': true, '?': true,
	'(': true, ')': true, '{': true, '}': true, '[': true, ']': true,
	'+': true, '-': true, '*': true, '/': true,
	'=': true, '<': true, '>': true,
}

// Lexer tokenizes source text, grounded on the original source's
// Tokenizer::GetSym state machine (row/column tracking, tab=+4 column,
// two-char lookahead) but written in the Go idiom of a single GetSym-style
// method plus a Peek cache rather than a hand-rolled state enum.
type Lexer struct {
	src      []byte
	offset   int
	row, col int

	peeked  bool
	peekTok Token
}

func NewLexer(source string) *Lexer {
	return &Lexer{src: []byte(source), row: 1, col: 1}
}

func (l *Lexer) errorf(pos Pos, format string, args ...any) Token {
	return Token{Kind: TokFailure, Text: fmt.Sprintf(format, args...), Pos: pos}
}

func (l *Lexer) getChar() (byte, bool) {
	if l.offset >= len(l.src) {
		return 0, false
	}
	c := l.src[l.offset]
	l.offset++
	switch c {
	case '\n':
		l.row++
		l.col = 1
	case '\t':
		l.col += 4
	default:
		l.col++
	}
	return c, true
}

func (l *Lexer) peekChar() (byte, bool) {
	if l.offset >= len(l.src) {
		return 0, false
	}
	return l.src[l.offset], true
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

// Peek returns the next token without consuming it.
func (l *Lexer) Peek() Token {
	if !l.peeked {
		l.peekTok = l.scan()
		l.peeked = true
	}
	return l.peekTok
}

// Next consumes and returns the next token.
func (l *Lexer) Next() Token {
	if l.peeked {
		l.peeked = false
		return l.peekTok
	}
	return l.scan()
}

func (l *Lexer) scan() Token {
	for {
		c, ok := l.peekChar()
		if !ok {
			return Token{Kind: TokEOF, Pos: Pos{l.row, l.col}}
		}
		if isSpace(c) {
			l.getChar()
			continue
		}
		if c == '/' {
			// comment: // to end of line
			save := l.offset
			l.getChar()
			if c2, ok := l.peekChar(); ok && c2 == '/' {
				for {
					c3, ok := l.getChar()
					if !ok || c3 == '\n' {
						break
					}
				}
				continue
			}
			l.offset = save
		}
		break
	}

	start := Pos{l.row, l.col}
	c, _ := l.peekChar()

	switch {
	case isAlpha(c):
		var b []byte
		for {
			c, ok := l.peekChar()
			if !ok || !isAlnum(c) {
				break
			}
			ch, _ := l.getChar()
			b = append(b, ch)
		}
		text := string(b)
		if keywords[text] {
			return Token{Kind: TokKeyword, Text: text, Pos: start}
		}
		return Token{Kind: TokIdent, Text: text, Pos: start}

	case isDigit(c):
		var b []byte
		for {
			c, ok := l.peekChar()
			if !ok || !isDigit(c) {
				break
			}
			ch, _ := l.getChar()
			b = append(b, ch)
		}
		if c2, ok := l.peekChar(); ok && c2 == '.' {
			b = append(b, c2)
			l.getChar()
			for {
				c3, ok := l.peekChar()
				if !ok || !isDigit(c3) {
					break
				}
				ch, _ := l.getChar()
				b = append(b, ch)
			}
			if c4, ok := l.peekChar(); ok && c4 == 'f' {
				l.getChar()
			}
			v, err := strconv.ParseFloat(string(b), 32)
			if err != nil {
				return l.errorf(start, "malformed real literal %q", string(b))
			}
			return Token{Kind: TokReal, Real: float32(v), Pos: start}
		}
		v, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return l.errorf(start, "integer literal %q overflows", string(b))
		}
		return Token{Kind: TokInt, Int: v, Pos: start}

	default:
		ch, _ := l.getChar()
		if exts, ok := twoCharPunct[ch]; ok {
			if c2, ok2 := l.peekChar(); ok2 {
				if text, ok3 := exts[c2]; ok3 {
					l.getChar()
					return Token{Kind: TokPunct, Text: text, Pos: start}
				}
			}
		}
		if singlePunct[ch] {
			return Token{Kind: TokPunct, Text: string(ch), Pos: start}
		}
		return l.errorf(start, "unexpected character %q", string(ch))
	}
}
