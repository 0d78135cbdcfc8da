package minic

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

type chunk struct {
	kind analysis.ChunkKind
	text string
}

type completion struct {
	kind   analysis.SymbolKind
	chunks []chunk
}

type completionContext int

const (
	contextExpression completionContext = iota
	contextStatement
	contextFileScope
	contextMember
	contextTag
)

var statementKeywords = []string{
	"if", "else", "for", "while", "do", "switch", "case", "default",
	"return", "break", "continue", "sizeof", "typedef", "static", "extern",
	"const", "struct", "union", "enum",
}

var typeKeywords = []string{
	"void", "char", "short", "int", "long", "float", "double", "signed", "unsigned",
}

var declarationKeywords = []string{"typedef", "static", "extern", "const", "struct", "union", "enum"}

// complete lists the candidates visible at offset in the analyzed main file.
func complete(res *analysisResult, offset int, opts analysis.CompleteOption) []completion {
	offset = max(0, min(offset, len(res.src)))
	toks, inert := tokensBefore(res.src, offset)
	if inert {
		return nil
	}

	scope := res.ctx.file.Innermost(offset)
	ctxKind, last := classify(toks, scope)

	switch ctxKind {
	case contextMember:
		return memberCompletions(res, scope, toks[:last])
	case contextTag:
		return tagCompletions(res)
	}

	var out []completion
	seen := make(map[string]bool)
	visible := func(sym *Symbol) bool {
		if seen[sym.Name] || sym.Name == "" {
			return false
		}
		if sym.File == res.ctx.mainFile && sym.Pos.Offset >= offset {
			return false
		}
		seen[sym.Name] = true
		return true
	}

	for sc := scope; sc != nil; sc = sc.Parent {
		for _, sym := range sc.Symbols {
			if visible(sym) {
				out = append(out, symbolCompletion(sym))
			}
		}
	}
	if opts.Has(analysis.CompleteIncludeMacros) {
		for _, m := range res.ctx.macros {
			if visible(m) {
				out = append(out, symbolCompletion(m))
			}
		}
	}

	var kws []string
	switch ctxKind {
	case contextStatement:
		kws = append(append(kws, statementKeywords...), typeKeywords...)
	case contextFileScope:
		kws = append(append(kws, typeKeywords...), declarationKeywords...)
	default:
		kws = []string{"sizeof"}
	}
	if res.ctx.cpp && ctxKind != contextFileScope {
		kws = append(kws, "true", "false", "nullptr")
	}
	for _, kw := range kws {
		if !seen[kw] {
			seen[kw] = true
			out = append(out, completion{
				kind:   analysis.KindKeyword,
				chunks: []chunk{{analysis.ChunkTypedText, kw}},
			})
		}
	}
	return out
}

// tokensBefore lexes src and returns the tokens that end at or before offset,
// dropping an identifier or keyword that is being typed at the cursor. inert
// is true when the cursor is inside a directive, literal or comment.
func tokensBefore(src string, offset int) (toks []Token, inert bool) {
	l := NewLexer(src)
	lastEnd := 0
	for {
		tok := l.NextToken()
		if tok.Type == EOF || tok.Pos.Offset >= offset {
			return toks, inComment(src[min(lastEnd, offset):offset])
		}
		switch tok.Type {
		case DIRECTIVE, NUMBER:
			if offset <= tok.End {
				return nil, true
			}
		case STRING, CHAR:
			if offset < tok.End || offset == tok.End && unterminated(tok.Literal) {
				return nil, true
			}
		}
		if offset == tok.End && (tok.Type == IDENT || tok.Type.IsKeyword()) {
			return toks, false
		}
		lastEnd = tok.End
		if tok.Type != DIRECTIVE {
			toks = append(toks, tok)
		}
	}
}

func unterminated(lit string) bool {
	if len(lit) < 2 || lit[len(lit)-1] != lit[0] {
		return true
	}
	slashes := 0
	for i := len(lit) - 2; i > 0 && lit[i] == '\\'; i-- {
		slashes++
	}
	return slashes%2 == 1
}

// inComment reports whether gap ends inside an unterminated comment.
func inComment(gap string) bool {
	for i := 0; i+1 < len(gap); i++ {
		if gap[i] != '/' {
			continue
		}
		switch gap[i+1] {
		case '/':
			nl := strings.IndexByte(gap[i:], '\n')
			if nl < 0 {
				return true
			}
			i += nl
		case '*':
			end := strings.Index(gap[i+2:], "*/")
			if end < 0 {
				return true
			}
			i += end + 3
		}
	}
	return false
}

// classify picks the completion context from the tokens preceding the cursor.
// For member access it also returns the index of the '.' or '->' token.
func classify(toks []Token, scope *Scope) (completionContext, int) {
	inFunction := scope.InFunction()
	statement := contextFileScope
	if inFunction {
		statement = contextStatement
	}
	if len(toks) == 0 {
		return statement, 0
	}
	last := len(toks) - 1
	switch toks[last].Type {
	case DOT, ARROW:
		return contextMember, last
	case STRUCT, UNION:
		return contextTag, last
	case LBRACE, RBRACE, SEMICOLON, ELSE, DO:
		return statement, last
	case COLON:
		if inFunction && !inConditional(toks) {
			return contextStatement, last
		}
	case RPAREN:
		if open := matchingOpen(toks, last); open > 0 {
			switch toks[open-1].Type {
			case IF, WHILE, FOR, SWITCH:
				return contextStatement, last
			}
		}
	}
	return contextExpression, last
}

// inConditional reports whether the trailing ':' belongs to a '?:' operator.
func inConditional(toks []Token) bool {
	depth := 0
	for i := len(toks) - 2; i >= 0; i-- {
		switch toks[i].Type {
		case QUESTION:
			if depth == 0 {
				return true
			}
			depth--
		case COLON:
			depth++
		case SEMICOLON, LBRACE, RBRACE, CASE, DEFAULT:
			return false
		}
	}
	return false
}

func matchingOpen(toks []Token, closeIdx int) int {
	depth := 0
	for i := closeIdx; i >= 0; i-- {
		switch toks[i].Type {
		case RPAREN:
			depth++
		case LPAREN:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func matchingBracket(toks []Token, closeIdx int) int {
	depth := 0
	for i := closeIdx; i >= 0; i-- {
		switch toks[i].Type {
		case RBRACKET:
			depth++
		case LBRACKET:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// memberCompletions resolves a chain like a.b[1]->c and lists the fields of
// the resulting record. chain excludes the trailing '.' or '->'.
func memberCompletions(res *analysisResult, scope *Scope, chain []Token) []completion {
	start := len(chain) - 1
	for start >= 0 {
		switch chain[start].Type {
		case RBRACKET:
			start = matchingBracket(chain, start) - 1
			continue
		case IDENT:
			if start > 0 && (chain[start-1].Type == DOT || chain[start-1].Type == ARROW) {
				start -= 2
				continue
			}
		default:
			return nil
		}
		break
	}
	if start < 0 {
		return nil
	}

	sym := scope.Lookup(chain[start].Literal)
	if sym == nil || sym.Type == nil {
		return nil
	}
	t := sym.Type
	for i := start + 1; i < len(chain) && t != nil; i++ {
		switch chain[i].Type {
		case LBRACKET:
			i = matchingClose(chain, i)
			t = t.Deref()
		case DOT, ARROW:
			if i+1 >= len(chain) {
				return nil
			}
			i++
			t = fieldType(res, t, chain[i].Literal)
		}
	}

	rec := res.ctx.records[t.RecordTag()]
	if rec == nil || !rec.Complete {
		return nil
	}
	out := make([]completion, 0, len(rec.Fields))
	for _, f := range rec.Fields {
		out = append(out, symbolCompletion(f))
	}
	return out
}

func matchingClose(toks []Token, openIdx int) int {
	depth := 0
	for i := openIdx; i < len(toks); i++ {
		switch toks[i].Type {
		case LBRACKET:
			depth++
		case RBRACKET:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(toks)
}

func fieldType(res *analysisResult, t *Type, name string) *Type {
	rec := res.ctx.records[t.RecordTag()]
	if rec == nil {
		return nil
	}
	if f := rec.Field(name); f != nil {
		return f.Type
	}
	return nil
}

func tagCompletions(res *analysisResult) []completion {
	tags := make([]string, 0, len(res.ctx.records))
	for tag := range res.ctx.records {
		if tag != "" && tag[0] != '(' {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	out := make([]completion, 0, len(tags))
	for _, tag := range tags {
		out = append(out, completion{
			kind:   analysis.KindStruct,
			chunks: []chunk{{analysis.ChunkTypedText, tag}},
		})
	}
	return out
}

// symbolCompletion builds the chunk sequence for a declared name.
func symbolCompletion(sym *Symbol) completion {
	c := completion{kind: sym.Kind}
	switch sym.Kind {
	case analysis.KindFunction:
		if sym.Type != nil {
			c.chunks = append(c.chunks, chunk{analysis.ChunkResultType, sym.Type.String()})
		}
		c.chunks = append(c.chunks,
			chunk{analysis.ChunkTypedText, sym.Name},
			chunk{analysis.ChunkLeftParen, "("})
		for i, param := range sym.Params {
			if i > 0 {
				c.chunks = append(c.chunks, chunk{analysis.ChunkComma, ", "})
			}
			c.chunks = append(c.chunks, chunk{analysis.ChunkPlaceholder, paramText(param)})
		}
		if sym.Variadic {
			if len(sym.Params) > 0 {
				c.chunks = append(c.chunks, chunk{analysis.ChunkComma, ", "})
			}
			c.chunks = append(c.chunks, chunk{analysis.ChunkPlaceholder, "..."})
		}
		c.chunks = append(c.chunks, chunk{analysis.ChunkRightParen, ")"})
	case analysis.KindMacro:
		c.chunks = append(c.chunks, chunk{analysis.ChunkTypedText, sym.Name})
		if sym.MacroFunc {
			c.chunks = append(c.chunks, chunk{analysis.ChunkLeftParen, "("})
			for i, param := range sym.MacroParams {
				if i > 0 {
					c.chunks = append(c.chunks, chunk{analysis.ChunkComma, ", "})
				}
				c.chunks = append(c.chunks, chunk{analysis.ChunkPlaceholder, param})
			}
			c.chunks = append(c.chunks, chunk{analysis.ChunkRightParen, ")"})
		}
	case analysis.KindTypedef:
		c.chunks = append(c.chunks, chunk{analysis.ChunkTypedText, sym.Name})
	default:
		if sym.Type != nil {
			c.chunks = append(c.chunks, chunk{analysis.ChunkResultType, sym.Type.String()})
		}
		c.chunks = append(c.chunks, chunk{analysis.ChunkTypedText, sym.Name})
	}
	return c
}

func paramText(param *Symbol) string {
	t := param.Type.String()
	if param.Name == "" {
		return t
	}
	if param.Type != nil && param.Type.Pointer > 0 && len(param.Type.Dims) == 0 && !param.Type.Func {
		return t + param.Name
	}
	return t + " " + param.Name
}
