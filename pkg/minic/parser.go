package minic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// Parser is a recursive-descent parser for a C subset that resolves names
// as it goes, recording scopes and diagnostics in a unitContext.
//
// Grammar overview:
//
//	translation_unit → external_declaration*
//	external_declaration → decl_specifiers declarator ( compound_statement | [= init] {, declarator} ; )
//	statement → compound | if | while | do | for | switch | case | default
//	          | return | break | continue | declaration | expression ;
type Parser struct {
	lexer *Lexer
	input string
	file  string
	ctx   *unitContext

	token   Token // current token
	peek    Token // lookahead token
	prevEnd int   // end offset of the last consumed token

	lines []int // offsets of line starts
	scope *Scope

	// skipBefore suppresses directives already handled by a cached preamble.
	skipBefore int
	depth      int
	system     bool

	fn          *Symbol // enclosing function
	sawReturn   bool
	loopDepth   int
	switchDepth int
	exprFailed  bool
}

func newParser(input, file string, ctx *unitContext, skipBefore int) *Parser {
	p := &Parser{
		lexer:      NewLexer(input),
		input:      input,
		file:       file,
		ctx:        ctx,
		scope:      ctx.file,
		skipBefore: skipBefore,
		lines:      []int{0},
	}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			p.lines = append(p.lines, i+1)
		}
	}
	p.peek = p.lex()
	p.nextToken()
	return p
}

// ---------- Token Helpers ----------

// lex returns the next non-directive token, handling directives on the way.
func (p *Parser) lex() Token {
	for {
		tok := p.lexer.NextToken()
		for _, e := range p.lexer.Errors {
			p.report(analysis.SeverityError, e.Pos, e.Message, "")
		}
		p.lexer.Errors = p.lexer.Errors[:0]
		if tok.Type != DIRECTIVE {
			return tok
		}
		if tok.Pos.Offset >= p.skipBefore {
			p.directive(tok)
		}
	}
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	if p.token.End > 0 {
		p.prevEnd = p.token.End
	}
	p.token = p.peek
	if p.token.Type != EOF {
		p.peek = p.lex()
	}
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise reports msg
// just after the previous token.
func (p *Parser) expect(t TokenType, msg string) bool {
	if p.match(t) {
		return true
	}
	p.errorAfterPrev(msg)
	return false
}

// expectClose consumes a closing token or reports it with a note at the opener.
func (p *Parser) expectClose(t TokenType, open Token) bool {
	if p.match(t) {
		return true
	}
	p.reportWithNote(p.token.Pos, fmt.Sprintf("expected '%s'", t), open.Pos, fmt.Sprintf("to match this '%s'", open.Type))
	return false
}

// skipUntil advances to one of the given tokens without consuming it.
// Nested brackets are skipped as a unit.
func (p *Parser) skipUntil(types ...TokenType) {
	depth := 0
	for !p.check(EOF) {
		if depth == 0 {
			for _, t := range types {
				if p.check(t) {
					return
				}
			}
		}
		switch p.token.Type {
		case LPAREN, LBRACKET, LBRACE:
			depth++
		case RPAREN, RBRACKET, RBRACE:
			if depth == 0 {
				return
			}
			depth--
		}
		p.nextToken()
	}
}

// posAt converts a byte offset into a position.
func (p *Parser) posAt(offset int) Pos {
	line := sort.Search(len(p.lines), func(i int) bool { return p.lines[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	return Pos{Line: line + 1, Column: offset - p.lines[line] + 1, Offset: offset}
}

// ---------- Diagnostics ----------

func (p *Parser) report(sev analysis.Severity, pos Pos, msg, option string) {
	if p.system {
		return
	}
	p.ctx.sink.add(Diag{Severity: sev, Message: msg, File: p.file, Pos: pos, Option: option})
}

func (p *Parser) reportWithNote(pos Pos, msg string, notePos Pos, note string) {
	if p.system {
		return
	}
	p.ctx.sink.add(Diag{
		Severity: analysis.SeverityError,
		Message:  msg,
		File:     p.file,
		Pos:      pos,
		Notes: []Diag{{
			Severity: analysis.SeverityNote,
			Message:  note,
			File:     p.file,
			Pos:      notePos,
		}},
	})
}

func (p *Parser) errorf(pos Pos, format string, args ...any) {
	p.report(analysis.SeverityError, pos, fmt.Sprintf(format, args...), "")
}

func (p *Parser) errorAfterPrev(msg string) {
	p.report(analysis.SeverityError, p.posAt(p.prevEnd), msg, "")
}

// ---------- Scopes ----------

func (p *Parser) openScope(start int) *Scope {
	p.scope = newScope(p.scope, start)
	return p.scope
}

// closeScope ends the current scope at end and reports unused locals.
func (p *Parser) closeScope(end int) {
	sc := p.scope
	sc.End = end
	if p.ctx.opts.WarnUnused {
		for _, sym := range sc.Symbols {
			if sym.local && sym.Kind == analysis.KindVariable && !sym.used {
				p.report(analysis.SeverityWarning, sym.Pos,
					fmt.Sprintf("unused variable '%s'", sym.Name), "-Wunused-variable")
			}
		}
	}
	p.scope = sc.Parent
}

func (p *Parser) declare(sym *Symbol, tok Token) {
	sym.File = p.file
	if prev := p.scope.LookupLocal(sym.Name); prev != nil {
		if conflict := p.redeclaration(prev, sym); conflict != "" {
			p.reportWithNote(tok.Pos, conflict, prev.Pos, "previous definition is here")
		}
	}
	p.scope.Declare(sym)
}

// redeclaration returns the error for declaring sym over prev, or "".
func (p *Parser) redeclaration(prev, sym *Symbol) string {
	if prev.File != sym.File {
		return ""
	}
	if prev.Kind != sym.Kind {
		return fmt.Sprintf("redefinition of '%s' as different kind of symbol", sym.Name)
	}
	switch sym.Kind {
	case analysis.KindFunction:
		if prev.defined && sym.defined {
			return fmt.Sprintf("redefinition of '%s'", sym.Name)
		}
		return ""
	case analysis.KindTypedef:
		return ""
	case analysis.KindVariable:
		if !sym.local {
			return "" // tentative definitions
		}
	}
	return fmt.Sprintf("redefinition of '%s'", sym.Name)
}

// ---------- Translation unit ----------

// ParseTranslationUnit parses the whole input at file scope.
func (p *Parser) ParseTranslationUnit() {
	for !p.check(EOF) {
		start := p.token.Pos.Offset
		p.parseExternalDeclaration()
		if p.token.Pos.Offset == start && !p.check(EOF) {
			p.nextToken()
		}
	}
}

// parseHeader parses an included file. Scopes it opens are not attached to
// the includer's scope tree.
func (p *Parser) parseHeader() {
	children := len(p.ctx.file.Children)
	p.ParseTranslationUnit()
	p.ctx.file.Children = p.ctx.file.Children[:children]
}

func (p *Parser) parseExternalDeclaration() {
	switch {
	case p.match(SEMICOLON):
		return
	case p.isDeclStart():
		p.parseDeclaration(true)
	case p.isUnknownTypeName():
		p.parseDeclaration(true)
	default:
		p.errorf(p.token.Pos, "expected identifier or '('")
		p.skipUntil(SEMICOLON, RBRACE)
		p.match(SEMICOLON)
		p.match(RBRACE)
	}
}

// ---------- Declarations ----------

type declSpec struct {
	typ      *Type
	typedef  bool
	static   bool
	extern   bool
	explicit bool // a type specifier was written
}

type declarator struct {
	tok      Token // name token, Type ILLEGAL when abstract
	typ      *Type
	isFunc   bool
	params   []*Symbol
	variadic bool
	fnScope  *Scope
}

var baseTypeKeywords = map[TokenType]bool{
	VOID: true, CHARKW: true, SHORT: true, INT: true, LONG: true,
	FLOAT: true, DOUBLE: true, SIGNED: true, UNSIGNED: true,
}

var ignoredSpecifiers = map[string]bool{
	"volatile": true, "register": true, "inline": true, "restrict": true,
	"__inline": true, "__restrict": true, "auto": true,
}

// isTypeStart reports whether tok can begin a type name.
func (p *Parser) isTypeStart(tok Token) bool {
	switch tok.Type {
	case CONST, STRUCT, UNION, ENUM:
		return true
	case IDENT:
		return p.typeName(tok.Literal) != nil || ignoredSpecifiers[tok.Literal]
	}
	return baseTypeKeywords[tok.Type]
}

// isDeclStart reports whether the current token begins a declaration.
func (p *Parser) isDeclStart() bool {
	switch p.token.Type {
	case TYPEDEF, STATIC, EXTERN:
		return true
	case IDENT:
		if ignoredSpecifiers[p.token.Literal] {
			return true
		}
		if p.typeName(p.token.Literal) == nil {
			return false
		}
		switch p.peek.Type {
		case IDENT, STAR, SEMICOLON, CONST:
			return true
		}
		return false
	}
	return p.isTypeStart(p.token)
}

// isUnknownTypeName detects "Foo x" where Foo is not declared at all.
func (p *Parser) isUnknownTypeName() bool {
	if !p.check(IDENT) || p.peek.Type != IDENT {
		return false
	}
	name := p.token.Literal
	if p.scope.Lookup(name) != nil || p.ctx.macroIx[name] != nil || p.typeName(name) != nil {
		return false
	}
	return true
}

// typeName resolves name used as a type, or returns nil.
func (p *Parser) typeName(name string) *Type {
	if sym := p.scope.Lookup(name); sym != nil {
		if sym.Kind == analysis.KindTypedef {
			return &Type{Name: name, Under: sym.Type}
		}
		return nil
	}
	if p.ctx.cpp {
		if rec, ok := p.ctx.records[name]; ok {
			return &Type{Name: name, Under: &Type{Name: rec.Spelling(), Tag: rec.Tag}}
		}
		if name == "bool" || name == "wchar_t" {
			return &Type{Name: name}
		}
	}
	if name == "_Bool" {
		return &Type{Name: name}
	}
	return nil
}

func (p *Parser) parseDeclSpecifiers() declSpec {
	var spec declSpec
	var words []string
	for {
		switch p.token.Type {
		case TYPEDEF:
			spec.typedef = true
		case STATIC:
			spec.static = true
		case EXTERN:
			spec.extern = true
		case CONST:
		case STRUCT, UNION:
			spec.typ = p.parseRecordSpecifier()
			spec.explicit = true
			continue
		case ENUM:
			spec.typ = p.parseEnumSpecifier()
			spec.explicit = true
			continue
		case IDENT:
			if ignoredSpecifiers[p.token.Literal] {
				break
			}
			if spec.typ == nil && len(words) == 0 {
				if t := p.typeName(p.token.Literal); t != nil {
					if sym := p.scope.Lookup(p.token.Literal); sym != nil && sym.local {
						sym.used = true
					}
					spec.typ = t
					spec.explicit = true
					break
				}
			}
			return p.finishSpec(spec, words)
		default:
			if baseTypeKeywords[p.token.Type] {
				words = append(words, p.token.Literal)
				spec.explicit = true
				break
			}
			return p.finishSpec(spec, words)
		}
		p.nextToken()
	}
}

func (p *Parser) finishSpec(spec declSpec, words []string) declSpec {
	if spec.typ == nil {
		if len(words) == 0 {
			if !spec.explicit {
				p.errorf(p.token.Pos, "type specifier missing, defaults to 'int'")
			}
			words = []string{"int"}
		}
		name := strings.Join(words, " ")
		switch name {
		case "unsigned", "signed":
			name += " int"
		}
		spec.typ = &Type{Name: name}
	}
	return spec
}

// parseRecordSpecifier parses struct/union [tag] [{ fields }].
func (p *Parser) parseRecordSpecifier() *Type {
	union := p.check(UNION)
	kw := "struct"
	if union {
		kw = "union"
	}
	start := p.token
	p.nextToken()

	tag := ""
	tagTok := start
	if p.check(IDENT) {
		tag, tagTok = p.token.Literal, p.token
		p.nextToken()
	}
	if tag == "" {
		if !p.check(LBRACE) {
			p.errorf(p.token.Pos, "declaration of anonymous %s must be a definition", kw)
			return &Type{Name: "int"}
		}
		p.ctx.anon++
		tag = fmt.Sprintf("(anonymous %s #%d)", kw, p.ctx.anon)
	}

	rec := p.ctx.records[tag]
	if p.check(LBRACE) {
		if rec != nil && rec.Complete {
			p.reportWithNote(tagTok.Pos, fmt.Sprintf("redefinition of '%s'", tag), rec.Pos, "previous definition is here")
		}
		rec = &RecordDef{Tag: tag, Union: union, Pos: tagTok.Pos}
		p.parseRecordBody(rec)
		rec.Complete = true
		p.ctx.records[tag] = rec
	} else if rec == nil {
		rec = &RecordDef{Tag: tag, Union: union, Pos: tagTok.Pos}
		p.ctx.records[tag] = rec
	}
	return &Type{Name: rec.Spelling(), Tag: tag}
}

func (p *Parser) parseRecordBody(rec *RecordDef) {
	open := p.token
	p.nextToken() // {
	for !p.check(RBRACE) && !p.check(EOF) {
		start := p.token.Pos.Offset
		if !p.isTypeStart(p.token) {
			p.errorf(p.token.Pos, "type name requires a specifier or qualifier")
			p.skipUntil(SEMICOLON, RBRACE)
			p.match(SEMICOLON)
			continue
		}
		spec := p.parseDeclSpecifiers()
		for {
			d := p.parseDeclarator(spec.typ, false)
			if d.tok.Type == IDENT {
				if rec.Field(d.tok.Literal) != nil {
					p.errorf(d.tok.Pos, "duplicate member '%s'", d.tok.Literal)
				} else {
					rec.Fields = append(rec.Fields, &Symbol{
						Name: d.tok.Literal,
						Kind: analysis.KindField,
						Type: d.typ,
						Pos:  d.tok.Pos,
						File: p.file,
					})
				}
			}
			if !p.match(COMMA) {
				break
			}
		}
		p.expect(SEMICOLON, "expected ';' at end of declaration list")
		if p.token.Pos.Offset == start {
			p.nextToken()
		}
	}
	p.expectClose(RBRACE, open)
}

// parseEnumSpecifier parses enum [tag] [{ enumerators }].
func (p *Parser) parseEnumSpecifier() *Type {
	p.nextToken() // enum
	name := "enum"
	if p.check(IDENT) {
		name = "enum " + p.token.Literal
		p.nextToken()
	}
	typ := &Type{Name: name}
	if !p.check(LBRACE) {
		return typ
	}
	open := p.token
	p.nextToken()
	for !p.check(RBRACE) && !p.check(EOF) {
		if !p.check(IDENT) {
			p.errorf(p.token.Pos, "expected identifier")
			p.skipUntil(RBRACE)
			break
		}
		tok := p.token
		p.nextToken()
		p.declare(&Symbol{Name: tok.Literal, Kind: analysis.KindEnumConstant, Type: typ, Pos: tok.Pos, local: p.fn != nil}, tok)
		if p.match(ASSIGN) {
			p.parseConditional()
		}
		if !p.match(COMMA) {
			break
		}
	}
	p.expectClose(RBRACE, open)
	return typ
}

// parseDeclarator parses pointers, a name and array or function suffixes.
func (p *Parser) parseDeclarator(base *Type, allowAbstract bool) declarator {
	typ := base.clone()
	for p.check(STAR) {
		typ.Pointer++
		p.nextToken()
		for p.check(CONST) || p.check(IDENT) && ignoredSpecifiers[p.token.Literal] {
			p.nextToken()
		}
	}

	d := declarator{tok: Token{Type: ILLEGAL, Pos: p.token.Pos}}

	// function pointer: (*name)(params)
	if p.check(LPAREN) && p.peek.Type == STAR {
		open := p.token
		p.nextToken()
		for p.match(STAR) {
		}
		if p.check(IDENT) {
			d.tok = p.token
			p.nextToken()
		}
		p.expectClose(RPAREN, open)
		if p.check(LPAREN) {
			p.skipParens()
		}
		typ.Func = true
		d.typ = typ
		return d
	}

	switch {
	case p.check(IDENT):
		d.tok = p.token
		p.nextToken()
	case !allowAbstract:
		p.errorf(p.token.Pos, "expected identifier or '('")
	}

	if p.check(LPAREN) && d.tok.Type == IDENT {
		d.isFunc = true
		p.parseParams(&d)
	}

	for p.check(LBRACKET) {
		open := p.token
		p.nextToken()
		start := p.token.Pos.Offset
		if !p.check(RBRACKET) {
			p.parseConditional()
		}
		dim := strings.TrimSpace(p.input[start:min(p.token.Pos.Offset, len(p.input))])
		typ.Dims = append(typ.Dims, dim)
		p.expectClose(RBRACKET, open)
	}
	d.typ = typ
	return d
}

func (p *Parser) skipParens() {
	open := p.token
	p.nextToken()
	p.skipUntil(RPAREN)
	p.expectClose(RPAREN, open)
}

// parseParams parses a parameter list into a new function scope.
func (p *Parser) parseParams(d *declarator) {
	open := p.token
	outer := p.scope
	d.fnScope = p.openScope(open.Pos.Offset)
	d.fnScope.function = true
	p.nextToken()

	if p.check(VOID) && p.peek.Type == RPAREN {
		p.nextToken()
	}
	for !p.check(RPAREN) && !p.check(EOF) {
		if p.match(ELLIPSIS) {
			d.variadic = true
			break
		}
		var spec declSpec
		switch {
		case p.isTypeStart(p.token):
			spec = p.parseDeclSpecifiers()
		case p.check(IDENT) && p.scope.Lookup(p.token.Literal) == nil && (p.peek.Type == IDENT || p.peek.Type == STAR):
			p.errorf(p.token.Pos, "unknown type name '%s'", p.token.Literal)
			p.nextToken()
			spec = declSpec{typ: &Type{Name: "int"}, explicit: true}
		default:
			p.errorf(p.token.Pos, "expected parameter declarator")
			p.skipUntil(COMMA, RPAREN)
			if !p.match(COMMA) {
				break
			}
			continue
		}
		if spec.typ == nil {
			break
		}
		pd := p.parseDeclarator(spec.typ, true)
		param := &Symbol{Kind: analysis.KindParameter, Type: pd.typ, Pos: pd.tok.Pos, local: true}
		if pd.tok.Type == IDENT {
			param.Name = pd.tok.Literal
			p.declare(param, pd.tok)
		}
		d.params = append(d.params, param)
		if !p.match(COMMA) {
			break
		}
	}
	d.fnScope.End = p.token.End
	p.expectClose(RPAREN, open)
	p.scope = outer
}

// parseDeclaration parses a declaration at file or block scope.
func (p *Parser) parseDeclaration(fileScope bool) {
	p.exprFailed = false
	var spec declSpec
	if p.isUnknownTypeName() {
		p.errorf(p.token.Pos, "unknown type name '%s'", p.token.Literal)
		spec = declSpec{typ: &Type{Name: "int"}, explicit: true}
		p.nextToken()
	} else {
		spec = p.parseDeclSpecifiers()
	}
	if p.match(SEMICOLON) {
		return
	}

	first := true
	for {
		d := p.parseDeclarator(spec.typ, false)
		if d.tok.Type != IDENT {
			p.skipUntil(SEMICOLON, RBRACE)
			p.match(SEMICOLON)
			return
		}

		switch {
		case d.isFunc:
			fn := &Symbol{
				Name:     d.tok.Literal,
				Kind:     analysis.KindFunction,
				Type:     d.typ,
				Params:   d.params,
				Variadic: d.variadic,
				Pos:      d.tok.Pos,
			}
			if first && p.check(LBRACE) {
				if !fileScope {
					p.errorf(p.token.Pos, "function definition is not allowed here")
				}
				fn.defined = true
				p.declare(fn, d.tok)
				p.parseFunctionBody(fn, d.fnScope)
				return
			}
			p.declare(fn, d.tok)
		case spec.typedef:
			p.declare(&Symbol{Name: d.tok.Literal, Kind: analysis.KindTypedef, Type: d.typ, Pos: d.tok.Pos, local: !fileScope}, d.tok)
		default:
			sym := &Symbol{
				Name:  d.tok.Literal,
				Kind:  analysis.KindVariable,
				Type:  d.typ,
				Pos:   d.tok.Pos,
				local: !fileScope && !spec.extern && !spec.static,
			}
			if d.typ.IsVoid() {
				p.errorf(d.tok.Pos, "variable has incomplete type 'void'")
			}
			p.declare(sym, d.tok)
			if p.match(ASSIGN) {
				p.parseInitializer()
			}
		}
		first = false

		if !p.match(COMMA) {
			break
		}
	}

	if fileScope {
		p.expect(SEMICOLON, "expected ';' after top level declarator")
	} else {
		p.expect(SEMICOLON, "expected ';' at end of declaration")
	}
}

func (p *Parser) parseInitializer() {
	if !p.check(LBRACE) {
		p.parseAssign()
		return
	}
	open := p.token
	p.nextToken()
	for !p.check(RBRACE) && !p.check(EOF) {
		if p.match(DOT) {
			p.match(IDENT)
			p.expect(ASSIGN, "expected '='")
		}
		start := p.token.Pos.Offset
		p.parseInitializer()
		if !p.match(COMMA) {
			break
		}
		if p.token.Pos.Offset == start {
			break
		}
	}
	p.expectClose(RBRACE, open)
}

// parseFunctionBody parses { ... } in the function's parameter scope.
func (p *Parser) parseFunctionBody(fn *Symbol, sc *Scope) {
	outerFn, outerRet := p.fn, p.sawReturn
	p.fn, p.sawReturn = fn, false
	// the scope was closed when the parameter list ended; reopen it
	p.scope = sc
	sc.End = -1

	open := p.token
	p.nextToken()
	p.parseBlockItems()
	if p.check(RBRACE) {
		if !p.sawReturn && !fn.Type.IsVoid() && fn.Name != "main" {
			p.report(analysis.SeverityWarning, p.token.Pos,
				fmt.Sprintf("non-void function '%s' does not return a value", fn.Name), "-Wreturn-type")
		}
		end := p.token.End
		p.nextToken()
		p.closeScope(end)
	} else {
		p.reportWithNote(p.token.Pos, "expected '}'", open.Pos, "to match this '{'")
		p.closeScope(len(p.input) + 1)
	}
	p.fn, p.sawReturn = outerFn, outerRet
}

func (p *Parser) parseBlockItems() {
	for !p.check(RBRACE) && !p.check(EOF) {
		start := p.token.Pos.Offset
		p.parseStatement()
		if p.token.Pos.Offset == start && !p.check(RBRACE) && !p.check(EOF) {
			p.nextToken()
		}
	}
}

// ---------- Statements ----------

func (p *Parser) parseStatement() {
	p.exprFailed = false
	switch p.token.Type {
	case LBRACE:
		p.parseCompound()
	case IF:
		p.nextToken()
		p.parseCondition("if")
		p.parseStatement()
		if p.match(ELSE) {
			p.parseStatement()
		}
	case WHILE:
		p.nextToken()
		p.parseCondition("while")
		p.loopDepth++
		p.parseStatement()
		p.loopDepth--
	case DO:
		p.nextToken()
		p.loopDepth++
		p.parseStatement()
		p.loopDepth--
		if !p.match(WHILE) {
			p.errorf(p.token.Pos, "expected 'while' in do/while loop")
			return
		}
		p.parseCondition("while")
		p.expect(SEMICOLON, "expected ';' after do/while statement")
	case FOR:
		p.parseFor()
	case SWITCH:
		p.nextToken()
		p.parseCondition("switch")
		p.switchDepth++
		p.parseStatement()
		p.switchDepth--
	case CASE:
		tok := p.token
		p.nextToken()
		p.parseConditional()
		if p.switchDepth == 0 {
			p.errorf(tok.Pos, "'case' statement not in switch statement")
		}
		p.expect(COLON, "expected ':' after 'case'")
	case DEFAULT:
		tok := p.token
		p.nextToken()
		if p.switchDepth == 0 {
			p.errorf(tok.Pos, "'default' statement not in switch statement")
		}
		p.expect(COLON, "expected ':' after 'default'")
	case RETURN:
		p.parseReturn()
	case BREAK:
		if p.loopDepth == 0 && p.switchDepth == 0 {
			p.errorf(p.token.Pos, "'break' statement not in loop or switch statement")
		}
		p.nextToken()
		p.expect(SEMICOLON, "expected ';' after break statement")
	case CONTINUE:
		if p.loopDepth == 0 {
			p.errorf(p.token.Pos, "'continue' statement not in loop statement")
		}
		p.nextToken()
		p.expect(SEMICOLON, "expected ';' after continue statement")
	case SEMICOLON:
		p.nextToken()
	default:
		if p.isDeclStart() || p.isUnknownTypeName() {
			p.parseDeclaration(false)
			return
		}
		p.parseExpressionStatement()
	}
}

func (p *Parser) parseCompound() {
	open := p.token
	p.openScope(open.Pos.Offset)
	p.nextToken()
	p.parseBlockItems()
	if p.check(RBRACE) {
		end := p.token.End
		p.nextToken()
		p.closeScope(end)
		return
	}
	p.reportWithNote(p.token.Pos, "expected '}'", open.Pos, "to match this '{'")
	p.closeScope(len(p.input) + 1)
}

func (p *Parser) parseCondition(kw string) {
	if !p.check(LPAREN) {
		p.errorf(p.token.Pos, "expected '(' after '%s'", kw)
		return
	}
	open := p.token
	p.nextToken()
	p.parseExpr()
	p.expectClose(RPAREN, open)
}

func (p *Parser) parseFor() {
	forTok := p.token
	p.nextToken()
	p.openScope(forTok.Pos.Offset)
	defer func() {
		end := p.prevEnd
		if p.check(EOF) {
			end = len(p.input) + 1
		}
		p.closeScope(end)
	}()

	if !p.check(LPAREN) {
		p.errorf(p.token.Pos, "expected '(' after 'for'")
		return
	}
	open := p.token
	p.nextToken()

	switch {
	case p.match(SEMICOLON):
	case p.isDeclStart():
		p.parseDeclaration(false)
	default:
		p.parseExpr()
		p.expect(SEMICOLON, "expected ';' in 'for' statement specifier")
	}
	if !p.check(SEMICOLON) {
		p.parseExpr()
	}
	p.expect(SEMICOLON, "expected ';' in 'for' statement specifier")
	if !p.check(RPAREN) {
		p.parseExpr()
	}
	if !p.expectClose(RPAREN, open) {
		return
	}

	p.loopDepth++
	p.parseStatement()
	p.loopDepth--
}

func (p *Parser) parseReturn() {
	tok := p.token
	p.nextToken()
	p.sawReturn = true
	hasValue := !p.check(SEMICOLON)
	if hasValue {
		p.parseExpr()
	}
	if p.fn != nil {
		switch {
		case hasValue && p.fn.Type.IsVoid():
			p.errorf(tok.Pos, "void function '%s' should not return a value", p.fn.Name)
		case !hasValue && !p.fn.Type.IsVoid():
			p.errorf(tok.Pos, "non-void function '%s' should return a value", p.fn.Name)
		}
	}
	if p.exprFailed {
		p.recoverStatement()
		return
	}
	p.expect(SEMICOLON, "expected ';' after return statement")
}

func (p *Parser) parseExpressionStatement() {
	p.parseExpr()
	if p.exprFailed {
		p.recoverStatement()
		return
	}
	p.expect(SEMICOLON, "expected ';' after expression")
}

// recoverStatement skips the rest of a statement whose expression was invalid.
func (p *Parser) recoverStatement() {
	p.exprFailed = false
	p.skipUntil(SEMICOLON, RBRACE)
	p.match(SEMICOLON)
}
