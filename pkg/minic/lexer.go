package minic

// LexError is a lexical problem found while scanning.
type LexError struct {
	Pos     Pos
	Message string
}

// Lexer tokenizes C source.
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // reading position (after current char)
	ch        byte // current char under examination
	line      int  // current line number (1-based)
	lineStart int  // offset of the first byte of the current line

	// bol is true until the first token of a line has been produced.
	bol bool

	Errors []LexError
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		bol:   true,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.lineStart = l.readPos
		l.bol = true
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) peekChar2() byte {
	if l.readPos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.readPos+1]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() Pos {
	return Pos{
		Line:   l.line,
		Column: l.pos - l.lineStart + 1,
		Offset: l.pos,
	}
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	if l.atEOF() {
		return Token{Type: EOF, Pos: pos, End: len(l.input)}
	}

	if l.ch == '#' && l.bol {
		return l.readDirective(pos)
	}
	l.bol = false

	var tok Token
	switch l.ch {
	case '+':
		tok = l.operator(pos, PLUS, INC)
	case '-':
		if l.peekChar() == '>' {
			tok = l.take(pos, ARROW, 2)
		} else {
			tok = l.operator(pos, MINUS, DEC)
		}
	case '*', '/', '%', '^':
		if l.peekChar() == '=' {
			tok = l.take(pos, OPASSIGN, 2)
		} else {
			tok = l.take(pos, arithmetic[l.ch], 1)
		}
	case '=':
		if l.peekChar() == '=' {
			tok = l.take(pos, EQ, 2)
		} else {
			tok = l.take(pos, ASSIGN, 1)
		}
	case '!':
		if l.peekChar() == '=' {
			tok = l.take(pos, NE, 2)
		} else {
			tok = l.take(pos, NOT, 1)
		}
	case '<':
		switch {
		case l.peekChar() == '<' && l.peekChar2() == '=':
			tok = l.take(pos, OPASSIGN, 3)
		case l.peekChar() == '<':
			tok = l.take(pos, SHL, 2)
		case l.peekChar() == '=':
			tok = l.take(pos, LE, 2)
		default:
			tok = l.take(pos, LT, 1)
		}
	case '>':
		switch {
		case l.peekChar() == '>' && l.peekChar2() == '=':
			tok = l.take(pos, OPASSIGN, 3)
		case l.peekChar() == '>':
			tok = l.take(pos, SHR, 2)
		case l.peekChar() == '=':
			tok = l.take(pos, GE, 2)
		default:
			tok = l.take(pos, GT, 1)
		}
	case '&':
		switch l.peekChar() {
		case '&':
			tok = l.take(pos, ANDAND, 2)
		case '=':
			tok = l.take(pos, OPASSIGN, 2)
		default:
			tok = l.take(pos, AMP, 1)
		}
	case '|':
		switch l.peekChar() {
		case '|':
			tok = l.take(pos, OROR, 2)
		case '=':
			tok = l.take(pos, OPASSIGN, 2)
		default:
			tok = l.take(pos, PIPE, 1)
		}
	case '.':
		switch {
		case l.peekChar() == '.' && l.peekChar2() == '.':
			tok = l.take(pos, ELLIPSIS, 3)
		case isDigit(l.peekChar()):
			return l.readNumber(pos)
		default:
			tok = l.take(pos, DOT, 1)
		}
	case '~':
		tok = l.take(pos, TILDE, 1)
	case '?':
		tok = l.take(pos, QUESTION, 1)
	case ':':
		tok = l.take(pos, COLON, 1)
	case ',':
		tok = l.take(pos, COMMA, 1)
	case ';':
		tok = l.take(pos, SEMICOLON, 1)
	case '(':
		tok = l.take(pos, LPAREN, 1)
	case ')':
		tok = l.take(pos, RPAREN, 1)
	case '[':
		tok = l.take(pos, LBRACKET, 1)
	case ']':
		tok = l.take(pos, RBRACKET, 1)
	case '{':
		tok = l.take(pos, LBRACE, 1)
	case '}':
		tok = l.take(pos, RBRACE, 1)
	case '"':
		return l.readQuoted(pos, '"', STRING)
	case '\'':
		return l.readQuoted(pos, '\'', CHAR)
	default:
		switch {
		case isLetter(l.ch):
			lit := l.readIdentifier()
			return Token{Type: LookupIdent(lit), Literal: lit, Pos: pos, End: l.pos}
		case isDigit(l.ch):
			return l.readNumber(pos)
		default:
			tok = l.take(pos, ILLEGAL, 1)
		}
	}
	return tok
}

// take consumes n bytes as a token of type t.
func (l *Lexer) take(pos Pos, t TokenType, n int) Token {
	start := l.pos
	for i := 0; i < n; i++ {
		l.readChar()
	}
	return Token{Type: t, Literal: l.input[start:l.pos], Pos: pos, End: l.pos}
}

var arithmetic = map[byte]TokenType{'*': STAR, '/': SLASH, '%': PERCENT, '^': CARET}

// operator handles + and -, which may double up or take '='.
func (l *Lexer) operator(pos Pos, single, double TokenType) Token {
	switch l.peekChar() {
	case l.ch:
		return l.take(pos, double, 2)
	case '=':
		return l.take(pos, OPASSIGN, 2)
	default:
		return l.take(pos, single, 1)
	}
}

// skipWhitespaceAndComments skips whitespace, line comments and block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v' {
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			start := l.currentPos()
			l.readChar() // skip '/'
			l.readChar() // skip '*'
			closed := false
			for !l.atEOF() {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					closed = true
					break
				}
				l.readChar()
			}
			if !closed {
				l.Errors = append(l.Errors, LexError{Pos: start, Message: "unterminated /* comment"})
			}
			continue
		}

		break
	}
}

// readDirective reads a preprocessor line including backslash continuations.
func (l *Lexer) readDirective(pos Pos) Token {
	start := l.pos
	for !l.atEOF() {
		if l.ch == '\\' && l.peekChar() == '\n' {
			l.readChar()
			l.readChar()
			continue
		}
		if l.ch == '\n' {
			break
		}
		l.readChar()
	}
	return Token{Type: DIRECTIVE, Literal: l.input[start:l.pos], Pos: pos, End: l.pos}
}

// readQuoted reads a string or character literal. The literal keeps its quotes.
func (l *Lexer) readQuoted(pos Pos, quote byte, t TokenType) Token {
	start := l.pos
	l.readChar() // skip opening quote
	for {
		if l.atEOF() || l.ch == '\n' {
			l.Errors = append(l.Errors, LexError{
				Pos:     pos,
				Message: "missing terminating '" + string(quote) + "' character",
			})
			break
		}
		if l.ch == '\\' && l.peekChar() != 0 {
			l.readChar()
			l.readChar()
			continue
		}
		if l.ch == quote {
			l.readChar()
			break
		}
		l.readChar()
	}
	return Token{Type: t, Literal: l.input[start:l.pos], Pos: pos, End: l.pos}
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads an integer or floating literal with optional suffixes.
func (l *Lexer) readNumber(pos Pos) Token {
	start := l.pos
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
	} else {
		for isDigit(l.ch) {
			l.readChar()
		}
		if l.ch == '.' {
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
		if l.ch == 'e' || l.ch == 'E' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	for l.ch == 'u' || l.ch == 'U' || l.ch == 'l' || l.ch == 'L' || l.ch == 'f' || l.ch == 'F' {
		l.readChar()
	}
	return Token{Type: NUMBER, Literal: l.input[start:l.pos], Pos: pos, End: l.pos}
}

// isLetter returns true if ch can start an identifier.
func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || ch >= 'a' && ch <= 'f' || ch >= 'A' && ch <= 'F'
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			break
		}
	}
	return tokens
}
