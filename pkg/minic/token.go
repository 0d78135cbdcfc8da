package minic

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter, mirrors the lexer naming used elsewhere
type TokenType int

//nolint:revive // ALL_CAPS token names follow C lexer conventions
const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL
	DIRECTIVE // a whole preprocessor line, e.g. #include "a.h"

	// Literals
	IDENT
	NUMBER
	STRING
	CHAR

	// Operators and punctuation
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	INC       // ++
	DEC       // --
	ASSIGN    // =
	OPASSIGN  // += -= *= /= %= &= |= ^= <<= >>=
	EQ        // ==
	NE        // !=
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	ANDAND    // &&
	OROR      // ||
	NOT       // !
	AMP       // &
	PIPE      // |
	CARET     // ^
	TILDE     // ~
	SHL       // <<
	SHR       // >>
	QUESTION  // ?
	COLON     // :
	DOT       // .
	ARROW     // ->
	ELLIPSIS  // ...
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	LBRACE    // {
	RBRACE    // }

	// Keywords
	keywordStart
	BREAK
	CASE
	CHARKW
	CONST
	CONTINUE
	DEFAULT
	DO
	DOUBLE
	ELSE
	ENUM
	EXTERN
	FLOAT
	FOR
	IF
	INT
	LONG
	RETURN
	SHORT
	SIGNED
	SIZEOF
	STATIC
	STRUCT
	SWITCH
	TYPEDEF
	UNION
	UNSIGNED
	VOID
	WHILE
	keywordEnd
)

var keywords = map[string]TokenType{
	"break":    BREAK,
	"case":     CASE,
	"char":     CHARKW,
	"const":    CONST,
	"continue": CONTINUE,
	"default":  DEFAULT,
	"do":       DO,
	"double":   DOUBLE,
	"else":     ELSE,
	"enum":     ENUM,
	"extern":   EXTERN,
	"float":    FLOAT,
	"for":      FOR,
	"if":       IF,
	"int":      INT,
	"long":     LONG,
	"return":   RETURN,
	"short":    SHORT,
	"signed":   SIGNED,
	"sizeof":   SIZEOF,
	"static":   STATIC,
	"struct":   STRUCT,
	"switch":   SWITCH,
	"typedef":  TYPEDEF,
	"union":    UNION,
	"unsigned": UNSIGNED,
	"void":     VOID,
	"while":    WHILE,
}

var tokenNames = map[TokenType]string{
	EOF:       "end of file",
	ILLEGAL:   "illegal",
	DIRECTIVE: "directive",
	IDENT:     "identifier",
	NUMBER:    "number",
	STRING:    "string literal",
	CHAR:      "character literal",
	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	INC:       "++",
	DEC:       "--",
	ASSIGN:    "=",
	OPASSIGN:  "compound assignment",
	EQ:        "==",
	NE:        "!=",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	ANDAND:    "&&",
	OROR:      "||",
	NOT:       "!",
	AMP:       "&",
	PIPE:      "|",
	CARET:     "^",
	TILDE:     "~",
	SHL:       "<<",
	SHR:       ">>",
	QUESTION:  "?",
	COLON:     ":",
	DOT:       ".",
	ARROW:     "->",
	ELLIPSIS:  "...",
	COMMA:     ",",
	SEMICOLON: ";",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACKET:  "[",
	RBRACKET:  "]",
	LBRACE:    "{",
	RBRACE:    "}",
}

func init() {
	for name, t := range keywords {
		tokenNames[t] = name
	}
}

// String returns the token spelling or a description.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t > keywordStart && t < keywordEnd
}

// LookupIdent returns the keyword token for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}

// Pos is a location in a source buffer.
type Pos struct {
	Line   int // 1-based line number
	Column int // 1-based byte column
	Offset int // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Pos) IsValid() bool {
	return p.Line > 0
}

// Token is a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Pos
	End     int // byte offset just past the token
}
