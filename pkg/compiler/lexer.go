package compiler

import (
	"fmt"
	"unicode"
)

type Lexer struct {
	src  []rune
	pos  int
	line int
}

// Lex turns source text into a token stream ending with an EOF token.
func Lex(src string) ([]Token, error) {
	l := &Lexer{src: []rune(src), line: 1}
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for l.pos < len(l.src) {
		switch {
		case unicode.IsSpace(l.peek()):
			l.advance()
		case l.peek() == '/' && l.peek2() == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case l.peek() == '/' && l.peek2() == '*':
			start := l.line
			l.advance()
			l.advance()
			for {
				if l.pos >= len(l.src) {
					return fmt.Errorf("line %d: unterminated block comment", start)
				}
				if l.peek() == '*' && l.peek2() == '/' {
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

func (l *Lexer) scanNumber() Token {
	start := l.pos
	line := l.line
	if l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X') {
		l.advance()
		l.advance()
		for l.pos < len(l.src) && isHexDigit(l.peek()) {
			l.advance()
		}
	} else {
		for l.pos < len(l.src) && unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}
	return Token{Type: INTEGER, Lexeme: string(l.src[start:l.pos]), Line: line}
}

func (l *Lexer) scanIdentifier() Token {
	start := l.pos
	line := l.line
	for l.pos < len(l.src) && isIdentRune(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	if kw, ok := keywords[lexeme]; ok {
		return Token{Type: kw, Lexeme: lexeme, Line: line}
	}
	return Token{Type: IDENTIFIER, Lexeme: lexeme, Line: line}
}

// twoCharOps maps a leading rune to its two-character continuations.
var twoCharOps = map[rune][]struct {
	next rune
	typ  TokenType
}{
	'+': {{'+', INCREMENT}, {'=', PLUS_ASSIGN}},
	'-': {{'-', DECREMENT}, {'=', MINUS_ASSIGN}},
	'&': {{'&', AND_LOGICAL}, {'=', AND_ASSIGN}},
	'|': {{'|', OR_LOGICAL}, {'=', PIPE_ASSIGN}},
	'^': {{'=', CARET_ASSIGN}},
	'=': {{'=', EQUALS}},
	'!': {{'=', NOT_EQ}},
	'<': {{'<', SHL_OP}, {'=', LESS_EQ}},
	'>': {{'>', SHR_OP}, {'=', GREATER_EQ}},
}

var singleCharOps = map[rune]TokenType{
	'+': PLUS,
	'-': MINUS,
	'*': STAR,
	'/': SLASH,
	'%': PERCENT,
	'&': AND,
	'|': PIPE,
	'^': CARET,
	'=': ASSIGN,
	'!': NOT,
	'<': LESS,
	'>': GREATER,
	';': SEMICOLON,
	':': COLON,
	',': COMMA,
	'(': LPAREN,
	')': RPAREN,
	'{': LBRACE,
	'}': RBRACE,
	'[': LBRACKET,
	']': RBRACKET,
}

func (l *Lexer) nextToken() (Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Line: l.line}, nil
	}

	r := l.peek()
	switch {
	case unicode.IsDigit(r):
		return l.scanNumber(), nil
	case isIdentStart(r):
		return l.scanIdentifier(), nil
	}

	line := l.line
	if conts, ok := twoCharOps[r]; ok {
		for _, c := range conts {
			if l.peek2() == c.next {
				l.advance()
				l.advance()
				return Token{Type: c.typ, Lexeme: string([]rune{r, c.next}), Line: line}, nil
			}
		}
	}
	if typ, ok := singleCharOps[r]; ok {
		l.advance()
		return Token{Type: typ, Lexeme: string(r), Line: line}, nil
	}
	return Token{}, fmt.Errorf("line %d: unexpected character %q", line, r)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
