package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a lexed token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenNumber
	TokenString
	TokenPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokenIdent:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenPunct:
		return "punctuation"
	default:
		return "end of file"
	}
}

// Token is one lexeme with its 1-based source position.
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int
	Column int
}

func (t Token) String() string {
	if t.Kind == TokenEOF {
		return "end of file"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// Lexer splits controller text into tokens. It skips whitespace as well as
// line (//) and block (/* */) comments.
type Lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// NewLexer creates a lexer over src.
func NewLexer(src []byte) *Lexer {
	return &Lexer{src: string(src), line: 1, col: 1}
}

const punctuation = "{}()-*"

func (l *Lexer) peekRune(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos+offset:])
	return r
}

func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) errorf(line, col int, format string, args ...any) error {
	return &ParseError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func (l *Lexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		r := l.peekRune(0)
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case r == '/' && l.peekRune(1) == '/':
			for l.pos < len(l.src) && l.peekRune(0) != '\n' {
				l.advance()
			}
		case r == '/' && l.peekRune(1) == '*':
			line, col := l.line, l.col
			l.advance()
			l.advance()
			for {
				if l.pos >= len(l.src) {
					return l.errorf(line, col, "unterminated block comment")
				}
				if l.peekRune(0) == '*' && l.peekRune(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

// Next returns the next token, or a token of kind TokenEOF at the end of input.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return Token{}, err
	}

	line, col := l.line, l.col
	if l.pos >= len(l.src) {
		return Token{Kind: TokenEOF, Line: line, Column: col}, nil
	}

	r := l.peekRune(0)
	switch {
	case r == '"':
		return l.lexString(line, col)
	case isNumberStart(r, l.peekRune(1)):
		return l.lexNumber(line, col), nil
	case strings.ContainsRune(punctuation, r):
		l.advance()
		return Token{Kind: TokenPunct, Text: string(r), Line: line, Column: col}, nil
	case isIdentRune(r):
		start := l.pos
		for l.pos < len(l.src) && isIdentRune(l.peekRune(0)) {
			l.advance()
		}
		return Token{Kind: TokenIdent, Text: l.src[start:l.pos], Line: line, Column: col}, nil
	}
	return Token{}, l.errorf(line, col, "unexpected character %q", r)
}

func (l *Lexer) lexString(line, col int) (Token, error) {
	l.advance()
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return Token{}, l.errorf(line, col, "unterminated string")
		}
		r := l.advance()
		switch r {
		case '"':
			return Token{Kind: TokenString, Text: b.String(), Line: line, Column: col}, nil
		case '\n':
			return Token{}, l.errorf(line, col, "newline in string")
		case '\\':
			if l.pos >= len(l.src) {
				return Token{}, l.errorf(line, col, "unterminated string")
			}
			esc := l.advance()
			switch esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}

func (l *Lexer) lexNumber(line, col int) Token {
	start := l.pos
	if r := l.peekRune(0); r == '-' || r == '+' {
		l.advance()
	}
	digits := func() {
		for l.pos < len(l.src) && unicode.IsDigit(l.peekRune(0)) {
			l.advance()
		}
	}
	digits()
	if l.peekRune(0) == '.' {
		l.advance()
		digits()
	}
	if r := l.peekRune(0); r == 'e' || r == 'E' {
		next := l.peekRune(1)
		if unicode.IsDigit(next) || ((next == '-' || next == '+') && unicode.IsDigit(l.peekRune(2))) {
			l.advance()
			l.advance()
			digits()
		}
	}
	return Token{Kind: TokenNumber, Text: l.src[start:l.pos], Line: line, Column: col}
}

func isNumberStart(r, next rune) bool {
	switch {
	case unicode.IsDigit(r):
		return true
	case r == '.':
		return unicode.IsDigit(next)
	case r == '-' || r == '+':
		return unicode.IsDigit(next) || next == '.'
	}
	return false
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || r == ':' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
