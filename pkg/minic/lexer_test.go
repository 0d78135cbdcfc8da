package minic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapsense/pkg/minic"
)

func tokenTypes(toks []minic.Token) []minic.TokenType {
	out := make([]minic.TokenType, 0, len(toks))
	for _, tok := range toks {
		out = append(out, tok.Type)
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []minic.TokenType
	}{
		{
			name:  "declaration",
			input: "int x = 42;",
			want:  []minic.TokenType{minic.INT, minic.IDENT, minic.ASSIGN, minic.NUMBER, minic.SEMICOLON, minic.EOF},
		},
		{
			name:  "member access and arrows",
			input: "p->x.y",
			want:  []minic.TokenType{minic.IDENT, minic.ARROW, minic.IDENT, minic.DOT, minic.IDENT, minic.EOF},
		},
		{
			name:  "compound operators",
			input: "a += b << 2 && c != d ... e++",
			want: []minic.TokenType{
				minic.IDENT, minic.OPASSIGN, minic.IDENT, minic.SHL, minic.NUMBER, minic.ANDAND,
				minic.IDENT, minic.NE, minic.IDENT, minic.ELLIPSIS, minic.IDENT, minic.INC, minic.EOF,
			},
		},
		{
			name:  "comments are skipped",
			input: "a /* block */ b // line\nc",
			want:  []minic.TokenType{minic.IDENT, minic.IDENT, minic.IDENT, minic.EOF},
		},
		{
			name:  "directive only at start of line",
			input: "#include <stdio.h>\nint a; # x",
			want:  []minic.TokenType{minic.DIRECTIVE, minic.INT, minic.IDENT, minic.SEMICOLON, minic.ILLEGAL, minic.IDENT, minic.EOF},
		},
		{
			name:  "literals",
			input: `"str\"ing" 'c' 0x1F 1.5e3f 10ul`,
			want:  []minic.TokenType{minic.STRING, minic.CHAR, minic.NUMBER, minic.NUMBER, minic.NUMBER, minic.EOF},
		},
		{
			name:  "keywords",
			input: "struct union enum typedef sizeof return",
			want:  []minic.TokenType{minic.STRUCT, minic.UNION, minic.ENUM, minic.TYPEDEF, minic.SIZEOF, minic.RETURN, minic.EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenTypes(minic.Tokenize(tt.input)))
		})
	}
}

func TestLexer_Positions(t *testing.T) {
	toks := minic.Tokenize("int a;\n  return a;")
	require.Len(t, toks, 7)

	ret := toks[3]
	assert.Equal(t, minic.RETURN, ret.Type)
	assert.Equal(t, minic.Pos{Line: 2, Column: 3, Offset: 9}, ret.Pos)
	assert.Equal(t, 15, ret.End)
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "unterminated string", input: `char *s = "abc`, want: `missing terminating '"' character`},
		{name: "unterminated char", input: "char c = 'a", want: "missing terminating ''' character"},
		{name: "unterminated comment", input: "int a; /* open", want: "unterminated /* comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := minic.NewLexer(tt.input)
			for l.NextToken().Type != minic.EOF {
			}
			require.NotEmpty(t, l.Errors)
			assert.Equal(t, tt.want, l.Errors[0].Message)
		})
	}
}

func TestLookupIdent(t *testing.T) {
	assert.Equal(t, minic.WHILE, minic.LookupIdent("while"))
	assert.Equal(t, minic.IDENT, minic.LookupIdent("whilst"))
	assert.True(t, minic.WHILE.IsKeyword())
	assert.False(t, minic.IDENT.IsKeyword())
	assert.Equal(t, "->", minic.ARROW.String())
}
