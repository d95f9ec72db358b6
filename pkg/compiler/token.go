package compiler

import "fmt"

type TokenType int

const (
	EOF TokenType = iota
	IDENTIFIER
	INTEGER

	// Keywords
	LET
	VAR
	CONST
	FUNCTION
	RETURN
	IF
	ELSE
	WHILE
	DO
	FOR
	IN
	OF
	SWITCH
	CASE
	DEFAULT
	BREAK
	CONTINUE
	THROW
	TRY
	CATCH
	FINALLY

	// Operators
	PLUS     // +
	MINUS    // -
	STAR     // *
	SLASH    // /
	PERCENT  // %
	AND      // &
	PIPE     // |
	CARET    // ^
	SHL_OP   // <<
	SHR_OP   // >>
	AND_LOGICAL
	OR_LOGICAL
	NOT          // !
	ASSIGN       // =
	PLUS_ASSIGN  // +=
	MINUS_ASSIGN // -=
	AND_ASSIGN   // &=
	PIPE_ASSIGN  // |=
	CARET_ASSIGN // ^=
	INCREMENT    // ++
	DECREMENT    // --
	EQUALS       // ==
	NOT_EQ       // !=
	LESS         // <
	LESS_EQ      // <=
	GREATER      // >
	GREATER_EQ   // >=

	// Punctuation
	SEMICOLON
	COLON
	COMMA
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
)

var tokenNames = [...]string{
	EOF:          "EOF",
	IDENTIFIER:   "IDENTIFIER",
	INTEGER:      "INTEGER",
	LET:          "let",
	VAR:          "var",
	CONST:        "const",
	FUNCTION:     "function",
	RETURN:       "return",
	IF:           "if",
	ELSE:         "else",
	WHILE:        "while",
	DO:           "do",
	FOR:          "for",
	IN:           "in",
	OF:           "of",
	SWITCH:       "switch",
	CASE:         "case",
	DEFAULT:      "default",
	BREAK:        "break",
	CONTINUE:     "continue",
	THROW:        "throw",
	TRY:          "try",
	CATCH:        "catch",
	FINALLY:      "finally",
	PLUS:         "+",
	MINUS:        "-",
	STAR:         "*",
	SLASH:        "/",
	PERCENT:      "%",
	AND:          "&",
	PIPE:         "|",
	CARET:        "^",
	SHL_OP:       "<<",
	SHR_OP:       ">>",
	AND_LOGICAL:  "&&",
	OR_LOGICAL:   "||",
	NOT:          "!",
	ASSIGN:       "=",
	PLUS_ASSIGN:  "+=",
	MINUS_ASSIGN: "-=",
	AND_ASSIGN:   "&=",
	PIPE_ASSIGN:  "|=",
	CARET_ASSIGN: "^=",
	INCREMENT:    "++",
	DECREMENT:    "--",
	EQUALS:       "==",
	NOT_EQ:       "!=",
	LESS:         "<",
	LESS_EQ:      "<=",
	GREATER:      ">",
	GREATER_EQ:   ">=",
	SEMICOLON:    ";",
	COLON:        ":",
	COMMA:        ",",
	LPAREN:       "(",
	RPAREN:       ")",
	LBRACE:       "{",
	RBRACE:       "}",
	LBRACKET:     "[",
	RBRACKET:     "]",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

var keywords = map[string]TokenType{
	"let":      LET,
	"var":      VAR,
	"const":    CONST,
	"function": FUNCTION,
	"return":   RETURN,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"do":       DO,
	"for":      FOR,
	"in":       IN,
	"of":       OF,
	"switch":   SWITCH,
	"case":     CASE,
	"default":  DEFAULT,
	"break":    BREAK,
	"continue": CONTINUE,
	"throw":    THROW,
	"try":      TRY,
	"catch":    CATCH,
	"finally":  FINALLY,
}

// Token is one lexical unit with its 1-based source line for diagnostics.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
}

func (t Token) String() string {
	switch t.Type {
	case IDENTIFIER, INTEGER:
		return fmt.Sprintf("%s(%s)", t.Type, t.Lexeme)
	default:
		return t.Type.String()
	}
}
