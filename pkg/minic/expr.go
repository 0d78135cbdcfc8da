package minic

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapsense/pkg/analysis"
)

// Binary operator precedence, loosest first.
var binaryPrecedence = map[TokenType]int{
	OROR:   1,
	ANDAND: 2,
	PIPE:   3,
	CARET:  4,
	AMP:    5,
	EQ:     6, NE: 6,
	LT: 7, GT: 7, LE: 7, GE: 7,
	SHL: 8, SHR: 8,
	PLUS: 9, MINUS: 9,
	STAR: 10, SLASH: 10, PERCENT: 10,
}

// operand is the result of a primary expression.
type operand struct {
	typ *Type
	fn  *Symbol // set when the operand names a function
}

// parseExpr parses a comma expression.
func (p *Parser) parseExpr() *Type {
	t := p.parseAssign()
	for p.check(COMMA) && !p.exprFailed {
		p.nextToken()
		t = p.parseAssign()
	}
	return t
}

func (p *Parser) parseAssign() *Type {
	lhs := p.parseConditional()
	if p.exprFailed {
		return lhs
	}
	if p.check(ASSIGN) || p.check(OPASSIGN) {
		p.nextToken()
		p.parseAssign()
	}
	return lhs
}

func (p *Parser) parseConditional() *Type {
	cond := p.parseBinary(1)
	if !p.check(QUESTION) || p.exprFailed {
		return cond
	}
	open := p.token
	p.nextToken()
	then := p.parseExpr()
	if p.exprFailed {
		return then
	}
	if !p.match(COLON) {
		p.reportWithNote(p.token.Pos, "expected ':'", open.Pos, "to match this '?'")
		return then
	}
	els := p.parseConditional()
	if then == nil {
		return els
	}
	return then
}

// parseBinary uses precedence climbing for binary operators at or above minPrec.
func (p *Parser) parseBinary(minPrec int) *Type {
	lhs := p.parseUnary()
	for !p.exprFailed {
		op := p.token.Type
		prec, ok := binaryPrecedence[op]
		if !ok || prec < minPrec {
			return lhs
		}
		p.nextToken()
		rhs := p.parseBinary(prec + 1)
		lhs = binaryResult(op, lhs, rhs)
	}
	return lhs
}

func binaryResult(op TokenType, lhs, rhs *Type) *Type {
	switch op {
	case OROR, ANDAND, EQ, NE, LT, GT, LE, GE:
		return intType
	case PLUS, MINUS:
		lp, rp := lhs.IsPointerLike(), rhs.IsPointerLike()
		switch {
		case lp && rp && op == MINUS:
			return &Type{Name: "long"}
		case lp:
			return decay(lhs)
		case rp:
			return decay(rhs)
		}
	}
	if lhs == nil || rhs == nil {
		return nil
	}
	if lhs.IsFloating() || rhs.IsFloating() {
		return doubleType
	}
	return intType
}

// decay turns an array into a pointer to its element type.
func decay(t *Type) *Type {
	c := t.Canonical().clone()
	if len(c.Dims) > 0 {
		c.Dims = c.Dims[1:]
		c.Pointer++
	}
	return c
}

func (p *Parser) parseUnary() *Type {
	tok := p.token
	switch tok.Type {
	case INC, DEC, PLUS, MINUS, TILDE:
		p.nextToken()
		return p.parseUnary()
	case NOT:
		p.nextToken()
		p.parseUnary()
		return intType
	case AMP:
		p.nextToken()
		return p.parseUnary().AddrOf()
	case STAR:
		p.nextToken()
		t := p.parseUnary()
		if t == nil || p.exprFailed {
			return nil
		}
		if !t.IsPointerLike() {
			p.errorf(tok.Pos, "indirection requires pointer operand ('%s' invalid)", t)
			return nil
		}
		if t.Canonical().Func {
			return t
		}
		return t.Deref()
	case SIZEOF:
		p.nextToken()
		if p.check(LPAREN) && p.isTypeStart(p.peek) {
			p.parseTypeName()
		} else {
			p.parseUnary()
		}
		return sizeType
	case LPAREN:
		if p.isTypeStart(p.peek) {
			t := p.parseTypeName()
			if p.check(LBRACE) {
				p.parseInitializer()
				return p.parsePostfix(operand{typ: t})
			}
			p.parseUnary()
			return t
		}
	}
	return p.parsePostfix(p.parsePrimary())
}

// parseTypeName parses "( type-name )".
func (p *Parser) parseTypeName() *Type {
	open := p.token
	p.nextToken()
	spec := p.parseDeclSpecifiers()
	d := p.parseDeclarator(spec.typ, true)
	p.expectClose(RPAREN, open)
	return d.typ
}

func (p *Parser) parsePostfix(op operand) *Type {
	t := op.typ
	for !p.exprFailed {
		tok := p.token
		switch tok.Type {
		case LPAREN:
			t = p.parseCall(op)
		case LBRACKET:
			p.nextToken()
			idx := p.parseExpr()
			p.expectClose(RBRACKET, tok)
			switch {
			case t == nil:
			case t.IsPointerLike():
				t = t.Deref()
			case idx.IsPointerLike():
				t = idx.Deref()
			default:
				p.errorf(tok.Pos, "subscripted value is not an array, pointer, or vector")
				t = nil
			}
		case DOT, ARROW:
			p.nextToken()
			t = p.parseMember(tok, t)
		case INC, DEC:
			p.nextToken()
		default:
			return t
		}
		op = operand{typ: t}
	}
	return t
}

func (p *Parser) parseCall(op operand) *Type {
	open := p.token
	p.nextToken()
	var args []Token
	for !p.check(RPAREN) && !p.check(EOF) {
		args = append(args, p.token)
		p.parseAssign()
		if p.exprFailed || !p.match(COMMA) {
			break
		}
	}
	if p.exprFailed {
		return nil
	}
	closeTok := p.token
	if !p.expectClose(RPAREN, open) {
		return nil
	}

	if fn := op.fn; fn != nil {
		want, have := len(fn.Params), len(args)
		switch {
		case have < want && fn.Variadic:
			p.errorf(closeTok.Pos, "too few arguments to function call, expected at least %d, have %d", want, have)
		case have < want:
			p.errorf(closeTok.Pos, "too few arguments to function call, expected %d, have %d", want, have)
		case have > want && !fn.Variadic:
			p.errorf(args[want].Pos, "too many arguments to function call, expected %d, have %d", want, have)
		}
		return fn.Type
	}

	t := op.typ
	switch {
	case t == nil:
		return nil
	case t.Canonical().Func:
		r := t.Canonical().clone()
		r.Func = false
		return r
	default:
		p.errorf(open.Pos, "called object type '%s' is not a function or function pointer", t)
		return nil
	}
}

// parseMember resolves ".name" or "->name" against base.
func (p *Parser) parseMember(op Token, base *Type) *Type {
	if !p.check(IDENT) {
		p.errorf(p.token.Pos, "expected identifier")
		p.exprFailed = true
		return nil
	}
	name := p.token
	p.nextToken()
	if base == nil {
		return nil
	}

	switch {
	case op.Type == DOT && base.IsRecordPointer():
		p.errorf(op.Pos, "member reference type '%s' is a pointer; did you mean to use '->'?", base)
	case op.Type == ARROW && base.IsRecord():
		p.errorf(op.Pos, "member reference type '%s' is not a pointer; did you mean to use '.'?", base)
	case op.Type == DOT && !base.IsRecord(), op.Type == ARROW && !base.IsRecordPointer():
		p.errorf(op.Pos, "member reference base type '%s' is not a structure or union", strings.TrimSuffix(base.String(), " *"))
		return nil
	}

	rec := p.ctx.records[base.RecordTag()]
	if rec == nil || !rec.Complete {
		p.errorf(op.Pos, "incomplete definition of type '%s'", base.Canonical().Name)
		return nil
	}
	field := rec.Field(name.Literal)
	if field == nil {
		p.errorf(name.Pos, "no member named '%s' in '%s'", name.Literal, rec.Spelling())
		return nil
	}
	return field.Type
}

func (p *Parser) parsePrimary() operand {
	tok := p.token
	switch tok.Type {
	case IDENT:
		p.nextToken()
		return p.identifier(tok)
	case NUMBER:
		p.nextToken()
		if isFloatLiteral(tok.Literal) {
			return operand{typ: doubleType}
		}
		return operand{typ: intType}
	case CHAR:
		p.nextToken()
		return operand{typ: intType}
	case STRING:
		for p.check(STRING) {
			p.nextToken()
		}
		return operand{typ: charPtr}
	case LPAREN:
		p.nextToken()
		t := p.parseExpr()
		if p.exprFailed {
			return operand{}
		}
		p.expectClose(RPAREN, tok)
		return operand{typ: t}
	}
	if !p.exprFailed {
		p.errorf(tok.Pos, "expected expression")
	}
	p.exprFailed = true
	return operand{}
}

// identifier resolves a name used in an expression.
func (p *Parser) identifier(tok Token) operand {
	name := tok.Literal
	if sym := p.scope.Lookup(name); sym != nil {
		if sym.local {
			sym.used = true
		}
		switch sym.Kind {
		case analysis.KindTypedef:
			p.errorf(tok.Pos, "unexpected type name '%s': expected expression", name)
			return operand{}
		case analysis.KindFunction:
			return operand{typ: sym.Type, fn: sym}
		case analysis.KindEnumConstant:
			return operand{typ: intType}
		}
		return operand{typ: sym.Type}
	}
	if _, ok := p.ctx.macroIx[name]; ok {
		return operand{}
	}
	if p.ctx.cpp {
		switch name {
		case "true", "false":
			return operand{typ: &Type{Name: "bool"}}
		case "nullptr":
			return operand{typ: &Type{Name: "std::nullptr_t"}}
		}
	}
	if p.check(LPAREN) && !p.ctx.cpp {
		p.errorf(tok.Pos, "call to undeclared function '%s'; ISO C99 and later do not support implicit function declarations", name)
		return operand{}
	}
	p.report(analysis.SeverityError, tok.Pos, fmt.Sprintf("use of undeclared identifier '%s'", name), "")
	return operand{}
}

func isFloatLiteral(lit string) bool {
	lower := strings.ToLower(lit)
	if strings.HasPrefix(lower, "0x") {
		return strings.ContainsAny(lower, "p.")
	}
	return strings.ContainsAny(lower, ".e")
}
