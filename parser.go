// parser.go — recursive-descent parser for Versa.
//
// The parser consumes the token slice produced by the lexer and builds the
// AST (ast.go). The grammar is layered by precedence, loosest to tightest:
//
//	statements → statement (return/break/continue/class/enum/expression)
//	  → var-declaration / assignment → or → and
//	  → comparison (==, !=, <, <=, >, >=, and the ?? coalesce)
//	  → additive → multiplicative → unary prefix (including ++/--)
//	  → power (right-associative) → postfix chain (calls, .prop, [index],
//	    [low:high] slices, the xs[] push marker, postfix ++/--) → atom
//
// Backtracking is an explicit cursor checkpoint (backup) and restore
// (rescue), used only where the grammar is locally ambiguous: lambda
// parameter lists vs parenthesized expressions, the {name} dictionary-key
// sugar, and newline runs before elif/else. Genuine failures are
// *SyntaxError values carrying the offending token's span; the parser never
// recovers mid-expression and never returns a partial AST.
//
// Newlines separate statements. Once a (, [ or { is open, newline tokens
// are folded, and list/dictionary/argument lists tolerate trailing commas.
package versa

import "fmt"

// reservedConstants are the root-scope seeds; declaring over them is a
// parse-time error (assigning to them is caught at run time).
var reservedConstants = map[string]bool{
	"none":  true,
	"null":  true,
	"yes":   true,
	"no":    true,
	"true":  true,
	"false": true,
}

// Parse lexes and parses a complete source string into its root block.
func Parse(src string) (*Block, error) {
	toks, err := NewLexer(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.program()
}

// ParseInteractive parses in REPL-friendly mode: running out of input inside
// an open construct yields a *SyntaxError marked Incomplete, so the caller
// can prompt for a continuation line instead of reporting a hard failure.
func ParseInteractive(src string) (*Block, error) {
	toks, err := NewLexer(src).Scan()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, interactive: true}
	return p.program()
}

type parser struct {
	toks        []Token
	i           int
	interactive bool
}

// ---------------------------------------------------------------------------
// token basics & helpers
// ---------------------------------------------------------------------------

func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}

func (p *parser) peekType() TokenType { return p.peek().Type }
func (p *parser) prev() Token         { return p.toks[p.i-1] }
func (p *parser) atEnd() bool         { return p.peekType() == EOF }

func (p *parser) match(tt ...TokenType) bool {
	for _, t := range tt {
		if p.peekType() == t {
			p.i++
			return true
		}
	}
	return false
}

// backup records the cursor for a possible rescue.
func (p *parser) backup() int { return p.i }

// rescue restores a previously recorded cursor position.
func (p *parser) rescue(mark int) { p.i = mark }

func (p *parser) need(t TokenType, msg string) (Token, error) {
	if p.match(t) {
		return p.prev(), nil
	}
	return Token{}, p.fail(msg)
}

func (p *parser) fail(msg string) error {
	g := p.peek()
	return &SyntaxError{
		Span:       g.Span,
		Msg:        fmt.Sprintf("%s, got %s", msg, describeToken(g)),
		Incomplete: p.interactive && g.Type == EOF,
	}
}

func describeToken(t Token) string {
	switch t.Type {
	case EOF:
		return "end of input"
	case NEWLINE:
		return "end of line"
	case NUMBER:
		return fmt.Sprintf("number %v", t.Literal)
	case STRING, FSTRING:
		return fmt.Sprintf("string %q", t.Literal)
	default:
		return fmt.Sprintf("%q", t.Lexeme)
	}
}

// skipNewlines folds newline tokens (used once a bracket construct is open).
func (p *parser) skipNewlines() {
	for p.peekType() == NEWLINE {
		p.i++
	}
}

// spanFrom covers everything from start to the last consumed token.
func (p *parser) spanFrom(start Span) span {
	if p.i == 0 {
		return span{At: start}
	}
	return span{At: start.Extend(p.prev().Span)}
}

// ---------------------------------------------------------------------------
// program & statements
// ---------------------------------------------------------------------------

func (p *parser) program() (*Block, error) {
	start := p.peek().Span
	stmts, err := p.statements(EOF)
	if err != nil {
		return nil, err
	}
	return &Block{span: p.spanFrom(start), Statements: stmts}, nil
}

// statements parses newline-separated statements until the stop token.
func (p *parser) statements(stop TokenType) ([]Node, error) {
	var out []Node
	p.skipNewlines()
	for p.peekType() != stop && !p.atEnd() {
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
		if p.peekType() == stop {
			break
		}
		if !p.match(NEWLINE) {
			return nil, p.fail("expected a newline between statements")
		}
		p.skipNewlines()
	}
	if p.peekType() != stop {
		return nil, p.fail(fmt.Sprintf("expected %s", stopName(stop)))
	}
	return out, nil
}

func stopName(t TokenType) string {
	if t == RCURLY {
		return `"}"`
	}
	return "end of input"
}

func (p *parser) statement() (Node, error) {
	start := p.peek().Span
	switch p.peekType() {
	case KW_RETURN:
		p.i++
		var val Node
		if !p.statementDone() {
			v, err := p.expression()
			if err != nil {
				return nil, err
			}
			val = v
		}
		return &Return{span: p.spanFrom(start), Value: val}, nil
	case KW_BREAK:
		p.i++
		return &Break{span: p.spanFrom(start)}, nil
	case KW_CONTINUE:
		p.i++
		return &Continue{span: p.spanFrom(start)}, nil
	case KW_CLASS:
		return p.classDefinition()
	case KW_ENUM:
		return p.enumDefinition()
	default:
		return p.expression()
	}
}

// statementDone reports whether the current token terminates a statement.
func (p *parser) statementDone() bool {
	switch p.peekType() {
	case NEWLINE, EOF, RCURLY:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// declarations & assignment
// ---------------------------------------------------------------------------

func (p *parser) expression() (Node, error) {
	if p.peekType() == KW_VAR {
		return p.varDeclaration()
	}
	return p.assignment()
}

func (p *parser) varDeclaration() (Node, error) {
	start := p.peek().Span
	p.i++ // var
	nameTok, err := p.need(IDENT, "expected a variable name after \"var\"")
	if err != nil {
		return nil, err
	}
	name := nameTok.Lexeme
	if reservedConstants[name] {
		return nil, &SyntaxError{
			Span: nameTok.Span,
			Msg:  fmt.Sprintf("cannot declare %q: it is a reserved constant", name),
		}
	}
	var value Node
	if p.match(ASSIGN) {
		value, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	return &VarDecl{span: p.spanFrom(start), Name: name, Value: value}, nil
}

func (p *parser) assignment() (Node, error) {
	start := p.peek().Span
	target, err := p.orExpr()
	if err != nil {
		return nil, err
	}

	switch p.peekType() {
	case ASSIGN:
		p.i++
		if err := checkAssignable(target); err != nil {
			return nil, err
		}
		value, err := p.expression() // right-associative
		if err != nil {
			return nil, err
		}
		return &Assign{span: p.spanFrom(start), Target: target, Value: value}, nil
	case PLUS_EQ, MINUS_EQ, MULT_EQ, DIV_EQ, MOD_EQ, POW_EQ:
		opTok := p.peek()
		p.i++
		if err := checkAssignable(target); err != nil {
			return nil, err
		}
		value, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &CompoundAssign{
			span:   p.spanFrom(start),
			Target: target,
			Op:     compoundBase(opTok.Type),
			Value:  value,
		}, nil
	}
	return target, nil
}

func compoundBase(t TokenType) TokenType {
	switch t {
	case PLUS_EQ:
		return PLUS
	case MINUS_EQ:
		return MINUS
	case MULT_EQ:
		return MULT
	case DIV_EQ:
		return DIV
	case MOD_EQ:
		return MOD
	default:
		return POW
	}
}

func checkAssignable(target Node) error {
	switch target.(type) {
	case *Ident, *PropAccess, *IndexAccess, *ListPush:
		return nil
	default:
		return &SyntaxError{Span: target.Span(), Msg: "invalid assignment target"}
	}
}

// ---------------------------------------------------------------------------
// operator precedence layers
// ---------------------------------------------------------------------------

func (p *parser) orExpr() (Node, error) {
	start := p.peek().Span
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.match(KW_OR) {
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{span: p.spanFrom(start), Op: KW_OR, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) andExpr() (Node, error) {
	start := p.peek().Span
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for p.match(KW_AND) {
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{span: p.spanFrom(start), Op: KW_AND, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) comparison() (Node, error) {
	start := p.peek().Span
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	for p.match(EQ, NEQ, LESS, LESS_EQ, GREATER, GREATER_EQ, COALESCE) {
		op := p.prev().Type
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{span: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) additive() (Node, error) {
	start := p.peek().Span
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for p.match(PLUS, MINUS) {
		op := p.prev().Type
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{span: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) multiplicative() (Node, error) {
	start := p.peek().Span
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.match(MULT, DIV, MOD) {
		op := p.prev().Type
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{span: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) unary() (Node, error) {
	start := p.peek().Span
	switch p.peekType() {
	case MINUS, KW_NOT:
		op := p.peek().Type
		p.i++
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{span: p.spanFrom(start), Op: op, Operand: operand}, nil
	case INC, DEC:
		op := p.peek().Type
		p.i++
		target, err := p.unary()
		if err != nil {
			return nil, err
		}
		if err := checkAssignable(target); err != nil {
			return nil, err
		}
		return &IncDec{span: p.spanFrom(start), Target: target, Op: op, Prefix: true}, nil
	}
	return p.power()
}

func (p *parser) power() (Node, error) {
	start := p.peek().Span
	base, err := p.postfix()
	if err != nil {
		return nil, err
	}
	if p.match(POW) {
		// right-associative: 2^3^2 is 2^(3^2)
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &BinaryOp{span: p.spanFrom(start), Op: POW, Left: base, Right: exp}, nil
	}
	return base, nil
}

// ---------------------------------------------------------------------------
// postfix chain: calls, property access, indexing, slicing, push, ++/--
// ---------------------------------------------------------------------------

func (p *parser) postfix() (Node, error) {
	start := p.peek().Span
	node, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peekType() {
		case LPAREN:
			p.i++
			args, err := p.argumentList(RPAREN)
			if err != nil {
				return nil, err
			}
			node = &Call{span: p.spanFrom(start), Callee: node, Args: args}
		case DOT:
			p.i++
			nameTok, err := p.need(IDENT, "expected a property name after \".\"")
			if err != nil {
				return nil, err
			}
			node = &PropAccess{span: p.spanFrom(start), Object: node, Name: nameTok.Lexeme}
		case LSQUARE:
			p.i++
			node, err = p.indexSuffix(node, start)
			if err != nil {
				return nil, err
			}
		case INC, DEC:
			op := p.peek().Type
			p.i++
			if err := checkAssignable(node); err != nil {
				return nil, err
			}
			return &IncDec{span: p.spanFrom(start), Target: node, Op: op, Prefix: false}, nil
		default:
			return node, nil
		}
	}
}

// indexSuffix parses what follows "expr[": an index, a slice, or the bare
// "]" push marker.
func (p *parser) indexSuffix(obj Node, start Span) (Node, error) {
	p.skipNewlines()
	if p.match(RSQUARE) {
		return &ListPush{span: p.spanFrom(start), Object: obj}, nil
	}

	var low Node
	var err error
	if p.peekType() != COLON {
		low, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	if p.match(COLON) {
		var high Node
		p.skipNewlines()
		if p.peekType() != RSQUARE {
			high, err = p.expression()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.need(RSQUARE, `expected "]" to close the slice`); err != nil {
			return nil, err
		}
		return &SliceAccess{span: p.spanFrom(start), Object: obj, Low: low, High: high}, nil
	}
	if _, err := p.need(RSQUARE, `expected "]" to close the index`); err != nil {
		return nil, err
	}
	return &IndexAccess{span: p.spanFrom(start), Object: obj, Index: low}, nil
}

// argumentList parses comma-separated expressions up to the closing token,
// folding newlines and tolerating a trailing comma.
func (p *parser) argumentList(close TokenType) ([]Node, error) {
	var args []Node
	p.skipNewlines()
	for p.peekType() != close {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipNewlines()
		if !p.match(COMMA) {
			break
		}
		p.skipNewlines()
	}
	if _, err := p.need(close, fmt.Sprintf("expected %q to close the argument list", closeLexeme(close))); err != nil {
		return nil, err
	}
	return args, nil
}

func closeLexeme(t TokenType) string {
	switch t {
	case RPAREN:
		return ")"
	case RSQUARE:
		return "]"
	default:
		return "}"
	}
}

// ---------------------------------------------------------------------------
// atoms
// ---------------------------------------------------------------------------

func (p *parser) atom() (Node, error) {
	start := p.peek().Span
	switch p.peekType() {
	case NUMBER:
		p.i++
		return &NumberLit{span: p.spanFrom(start), Value: p.prev().Literal.(float64)}, nil
	case STRING:
		p.i++
		return &StringLit{span: p.spanFrom(start), Value: p.prev().Literal.(string)}, nil
	case FSTRING:
		p.i++
		return p.interpolated(p.prev())
	case IDENT:
		p.i++
		return &Ident{span: p.spanFrom(start), Name: p.prev().Lexeme}, nil
	case KW_THIS:
		p.i++
		return &This{span: p.spanFrom(start)}, nil
	case LPAREN:
		return p.parenOrLambda()
	case LSQUARE:
		p.i++
		elems, err := p.argumentList(RSQUARE)
		if err != nil {
			return nil, err
		}
		return &ListLit{span: p.spanFrom(start), Elements: elems}, nil
	case LCURLY:
		return p.dictLiteral()
	case KW_IF:
		return p.ifExpression()
	case KW_FOR:
		return p.forExpression()
	case KW_FOREACH:
		return p.foreachExpression()
	case KW_WHILE:
		return p.whileExpression()
	case KW_FUNCTION:
		return p.functionDefinition()
	case KW_NEW:
		return p.newExpression()
	default:
		return nil, p.fail("expected an expression")
	}
}

// parenOrLambda distinguishes "(a, b = 1) => expr" from a parenthesized
// expression by attempting the parameter-list shape first and rescuing the
// checkpoint when it does not pan out.
func (p *parser) parenOrLambda() (Node, error) {
	start := p.peek().Span
	mark := p.backup()
	p.i++ // "("

	params, perr := p.parameterList(RPAREN)
	if perr == nil && p.match(DARROW) {
		body, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &FuncDef{
			span:       p.spanFrom(start),
			Params:     params,
			Body:       body,
			AutoReturn: true,
		}, nil
	}

	p.rescue(mark)
	p.i++ // "("
	p.skipNewlines()
	inner, err := p.expression()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.need(RPAREN, `expected ")"`); err != nil {
		return nil, err
	}
	return inner, nil
}

// parameterList parses "name" and "name = default" entries up to close.
// Mandatory parameters must precede optional ones.
func (p *parser) parameterList(close TokenType) ([]Param, error) {
	var params []Param
	sawOptional := false
	p.skipNewlines()
	for p.peekType() != close {
		nameTok, err := p.need(IDENT, "expected a parameter name")
		if err != nil {
			return nil, err
		}
		var def Node
		if p.match(ASSIGN) {
			def, err = p.expression()
			if err != nil {
				return nil, err
			}
			sawOptional = true
		} else if sawOptional {
			return nil, &SyntaxError{
				Span: nameTok.Span,
				Msg:  fmt.Sprintf("mandatory parameter %q cannot follow an optional one", nameTok.Lexeme),
			}
		}
		params = append(params, Param{Name: nameTok.Lexeme, Default: def})
		p.skipNewlines()
		if !p.match(COMMA) {
			break
		}
		p.skipNewlines()
	}
	if _, err := p.need(close, fmt.Sprintf("expected %q to close the parameter list", closeLexeme(close))); err != nil {
		return nil, err
	}
	return params, nil
}

// dictLiteral parses "{ key: value, ... }". A bare identifier entry is
// sugar for "name": name — detected by checkpointing before the key and
// rescuing when no colon follows.
func (p *parser) dictLiteral() (Node, error) {
	start := p.peek().Span
	p.i++ // "{"
	var entries []DictEntry
	p.skipNewlines()
	for p.peekType() != RCURLY {
		entry, err := p.dictEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		p.skipNewlines()
		if !p.match(COMMA) {
			break
		}
		p.skipNewlines()
	}
	if _, err := p.need(RCURLY, `expected "}" to close the dictionary`); err != nil {
		return nil, err
	}
	return &DictLit{span: p.spanFrom(start), Entries: entries}, nil
}

func (p *parser) dictEntry() (DictEntry, error) {
	mark := p.backup()
	keyStart := p.peek().Span

	if p.match(IDENT) {
		nameTok := p.prev()
		key := &StringLit{span: span{At: nameTok.Span}, Value: nameTok.Lexeme}
		if p.match(COLON) {
			value, err := p.expression()
			if err != nil {
				return DictEntry{}, err
			}
			return DictEntry{Key: key, Value: value}, nil
		}
		// bare identifier: {name} is {"name": name}
		if p.peekType() == COMMA || p.peekType() == RCURLY || p.peekType() == NEWLINE {
			return DictEntry{
				Key:   key,
				Value: &Ident{span: span{At: nameTok.Span}, Name: nameTok.Lexeme},
			}, nil
		}
		// neither key nor sugar (e.g. {a + b}) — not a valid entry shape
		p.rescue(mark)
	}

	if p.match(STRING) {
		key := &StringLit{span: p.spanFrom(keyStart), Value: p.prev().Literal.(string)}
		if _, err := p.need(COLON, `expected ":" after the dictionary key`); err != nil {
			return DictEntry{}, err
		}
		value, err := p.expression()
		if err != nil {
			return DictEntry{}, err
		}
		return DictEntry{Key: key, Value: value}, nil
	}

	return DictEntry{}, p.fail("expected a dictionary key")
}

// interpolated splits the raw text of an f-string into literal chunks and
// embedded expressions, each parsed with its own lexer/parser run. Escapes
// are still undecoded here, so \{ is a literal brace rather than an
// interpolation opener. The whole node carries the f-string token's span.
func (p *parser) interpolated(tok Token) (Node, error) {
	text := tok.Literal.(string)
	var parts []Node
	var chunk []byte
	flush := func() {
		if len(chunk) > 0 {
			parts = append(parts, &StringLit{span: span{At: tok.Span}, Value: string(chunk)})
			chunk = chunk[:0]
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\\' && i+1 < len(text) {
			chunk = append(chunk, decodeEscape(text[i+1]))
			i++
			continue
		}
		if c != '{' {
			if c == '}' {
				return nil, &SyntaxError{Span: tok.Span, Msg: `unmatched "}" in interpolated string`}
			}
			chunk = append(chunk, c)
			continue
		}
		depth := 1
		j := i + 1
		for ; j < len(text) && depth > 0; j++ {
			switch text[j] {
			case '\\':
				j++ // braces inside an escape do not count
			case '{':
				depth++
			case '}':
				depth--
			}
		}
		if depth != 0 {
			return nil, &SyntaxError{Span: tok.Span, Msg: `unterminated "{" in interpolated string`}
		}
		inner := text[i+1 : j-1]
		if len(inner) == 0 {
			return nil, &SyntaxError{Span: tok.Span, Msg: "empty interpolation in string"}
		}
		expr, err := parseEmbedded(inner, tok.Span)
		if err != nil {
			return nil, err
		}
		flush()
		parts = append(parts, expr)
		i = j - 1
	}
	flush()
	return &InterpString{span: span{At: tok.Span}, Parts: parts}, nil
}

// decodeEscape maps the character after a backslash to the character it
// stands for. The lexer has already rejected invalid sequences.
func decodeEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	default:
		return c
	}
}

// parseEmbedded parses one {...} interpolation as a standalone expression.
func parseEmbedded(src string, at Span) (Node, error) {
	block, err := Parse(src)
	if err != nil {
		if se, ok := err.(*SyntaxError); ok {
			return nil, &SyntaxError{Span: at, Msg: "in interpolated string: " + se.Msg}
		}
		return nil, err
	}
	if len(block.Statements) != 1 {
		return nil, &SyntaxError{Span: at, Msg: "an interpolation must hold exactly one expression"}
	}
	return block.Statements[0], nil
}

// ---------------------------------------------------------------------------
// control-flow expressions
// ---------------------------------------------------------------------------

// block parses "{ statements }".
func (p *parser) block() (*Block, error) {
	start := p.peek().Span
	if _, err := p.need(LCURLY, `expected "{"`); err != nil {
		return nil, err
	}
	stmts, err := p.statements(RCURLY)
	if err != nil {
		return nil, err
	}
	p.i++ // "}"
	return &Block{span: p.spanFrom(start), Statements: stmts}, nil
}

func (p *parser) ifExpression() (Node, error) {
	start := p.peek().Span
	p.i++ // if
	var cases []IfCase
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	cases = append(cases, IfCase{Cond: cond, Body: body})

	var elseBlock *Block
	for {
		// a newline run may separate "}" from elif/else; rescue if it was a
		// genuine statement boundary instead
		mark := p.backup()
		p.skipNewlines()
		if p.match(KW_ELIF) {
			cond, err := p.expression()
			if err != nil {
				return nil, err
			}
			body, err := p.block()
			if err != nil {
				return nil, err
			}
			cases = append(cases, IfCase{Cond: cond, Body: body})
			continue
		}
		if p.match(KW_ELSE) {
			elseBlock, err = p.block()
			if err != nil {
				return nil, err
			}
			break
		}
		p.rescue(mark)
		break
	}
	return &If{span: p.spanFrom(start), Cases: cases, Else: elseBlock}, nil
}

func (p *parser) forExpression() (Node, error) {
	start := p.peek().Span
	p.i++ // for
	nameTok, err := p.need(IDENT, "expected a counter name after \"for\"")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(ASSIGN, `expected "=" after the counter name`); err != nil {
		return nil, err
	}
	startExpr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.need(KW_TO, `expected "to" in the counted loop`); err != nil {
		return nil, err
	}
	endExpr, err := p.expression()
	if err != nil {
		return nil, err
	}
	var stepExpr Node
	if p.match(KW_STEP) {
		stepExpr, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &For{
		span:    p.spanFrom(start),
		VarName: nameTok.Lexeme,
		Start:   startExpr,
		End:     endExpr,
		Step:    stepExpr,
		Body:    body,
	}, nil
}

func (p *parser) foreachExpression() (Node, error) {
	start := p.peek().Span
	p.i++ // foreach
	firstTok, err := p.need(IDENT, "expected a binding name after \"foreach\"")
	if err != nil {
		return nil, err
	}
	keyName := ""
	valueName := firstTok.Lexeme
	if p.match(COMMA) {
		secondTok, err := p.need(IDENT, "expected a second binding name after \",\"")
		if err != nil {
			return nil, err
		}
		keyName = firstTok.Lexeme
		valueName = secondTok.Lexeme
	}
	if _, err := p.need(KW_IN, `expected "in"`); err != nil {
		return nil, err
	}
	source, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &Foreach{
		span:      p.spanFrom(start),
		KeyName:   keyName,
		ValueName: valueName,
		Source:    source,
		Body:      body,
	}, nil
}

func (p *parser) whileExpression() (Node, error) {
	start := p.peek().Span
	p.i++ // while
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &While{span: p.spanFrom(start), Cond: cond, Body: body}, nil
}

// ---------------------------------------------------------------------------
// functions, classes, enums
// ---------------------------------------------------------------------------

// functionDefinition parses "function [name](params) { body }" and the
// single-expression form "function [name](params) -> expr".
func (p *parser) functionDefinition() (Node, error) {
	start := p.peek().Span
	p.i++ // function
	name := ""
	if p.match(IDENT) {
		name = p.prev().Lexeme
	}
	if _, err := p.need(LPAREN, `expected "(" to open the parameter list`); err != nil {
		return nil, err
	}
	params, err := p.parameterList(RPAREN)
	if err != nil {
		return nil, err
	}
	if p.match(ARROW) {
		body, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &FuncDef{span: p.spanFrom(start), Name: name, Params: params, Body: body, AutoReturn: true}, nil
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return &FuncDef{span: p.spanFrom(start), Name: name, Params: params, Body: body}, nil
}

func (p *parser) newExpression() (Node, error) {
	start := p.peek().Span
	p.i++ // new
	nameTok, err := p.need(IDENT, "expected a class name after \"new\"")
	if err != nil {
		return nil, err
	}
	var args []Node
	if p.match(LPAREN) {
		args, err = p.argumentList(RPAREN)
		if err != nil {
			return nil, err
		}
	}
	return &New{span: p.spanFrom(start), ClassName: nameTok.Lexeme, Args: args}, nil
}

func (p *parser) classDefinition() (Node, error) {
	start := p.peek().Span
	p.i++ // class
	nameTok, err := p.need(IDENT, "expected a class name")
	if err != nil {
		return nil, err
	}
	parent := ""
	if p.match(KW_EXTENDS) {
		parentTok, err := p.need(IDENT, "expected a parent class name after \"extends\"")
		if err != nil {
			return nil, err
		}
		parent = parentTok.Lexeme
	}
	if _, err := p.need(LCURLY, `expected "{" to open the class body`); err != nil {
		return nil, err
	}

	var members []ClassMember
	p.skipNewlines()
	for p.peekType() != RCURLY {
		m, err := p.classMember()
		if err != nil {
			return nil, err
		}
		members = append(members, m)
		if p.peekType() == RCURLY {
			break
		}
		if !p.match(NEWLINE) {
			return nil, p.fail("expected a newline between class members")
		}
		p.skipNewlines()
	}
	p.i++ // "}"
	return &ClassDef{span: p.spanFrom(start), Name: nameTok.Lexeme, Parent: parent, Members: members}, nil
}

// classMember parses a run of modifiers followed by a property, method,
// getter or setter declaration.
func (p *parser) classMember() (ClassMember, error) {
	start := p.peek().Span
	vis := Public
	visSet := false
	override := false
	for {
		switch p.peekType() {
		case KW_PUBLIC, KW_PRIVATE, KW_PROTECTED:
			if visSet {
				return ClassMember{}, &SyntaxError{Span: p.peek().Span, Msg: "duplicate visibility modifier"}
			}
			visSet = true
			switch p.peekType() {
			case KW_PRIVATE:
				vis = Private
			case KW_PROTECTED:
				vis = Protected
			}
			p.i++
			continue
		case KW_OVERRIDE:
			if override {
				return ClassMember{}, &SyntaxError{Span: p.peek().Span, Msg: `duplicate "override" modifier`}
			}
			override = true
			p.i++
			continue
		}
		break
	}

	switch p.peekType() {
	case KW_PROPERTY:
		p.i++
		nameTok, err := p.need(IDENT, "expected a property name")
		if err != nil {
			return ClassMember{}, err
		}
		var init Node
		if p.match(ASSIGN) {
			init, err = p.expression()
			if err != nil {
				return ClassMember{}, err
			}
		}
		return ClassMember{
			Kind: MemberProperty, Name: nameTok.Lexeme,
			Visibility: vis, Override: override, Value: init,
			At: start.Extend(p.prev().Span),
		}, nil
	case KW_METHOD, KW_GET, KW_SET:
		kw := p.peekType()
		p.i++
		nameTok, err := p.need(IDENT, "expected a member name")
		if err != nil {
			return ClassMember{}, err
		}
		if _, err := p.need(LPAREN, `expected "(" to open the parameter list`); err != nil {
			return ClassMember{}, err
		}
		params, err := p.parameterList(RPAREN)
		if err != nil {
			return ClassMember{}, err
		}
		kind := MemberMethod
		switch kw {
		case KW_GET:
			kind = MemberGetter
			if len(params) != 0 {
				return ClassMember{}, &SyntaxError{Span: nameTok.Span, Msg: "a getter takes no parameters"}
			}
		case KW_SET:
			kind = MemberSetter
			if len(params) != 1 || params[0].Default != nil {
				return ClassMember{}, &SyntaxError{Span: nameTok.Span, Msg: "a setter takes exactly one mandatory parameter"}
			}
		}
		var body Node
		autoReturn := false
		if p.match(ARROW) {
			body, err = p.expression()
			autoReturn = true
		} else {
			body, err = p.block()
		}
		if err != nil {
			return ClassMember{}, err
		}
		fn := &FuncDef{
			span:       span{At: start.Extend(p.prev().Span)},
			Name:       nameTok.Lexeme,
			Params:     params,
			Body:       body,
			AutoReturn: autoReturn,
		}
		return ClassMember{
			Kind: kind, Name: nameTok.Lexeme,
			Visibility: vis, Override: override, Value: fn,
			At: start.Extend(p.prev().Span),
		}, nil
	default:
		return ClassMember{}, p.fail(`expected "property", "method", "get" or "set"`)
	}
}

func (p *parser) enumDefinition() (Node, error) {
	start := p.peek().Span
	p.i++ // enum
	nameTok, err := p.need(IDENT, "expected an enumeration name")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(LCURLY, `expected "{" to open the enumeration body`); err != nil {
		return nil, err
	}
	var members []string
	seen := map[string]bool{}
	p.skipNewlines()
	for p.peekType() != RCURLY {
		memberTok, err := p.need(IDENT, "expected an enumeration member name")
		if err != nil {
			return nil, err
		}
		if seen[memberTok.Lexeme] {
			return nil, &SyntaxError{
				Span: memberTok.Span,
				Msg:  fmt.Sprintf("duplicate enumeration member %q", memberTok.Lexeme),
			}
		}
		seen[memberTok.Lexeme] = true
		members = append(members, memberTok.Lexeme)
		p.skipNewlines()
		if !p.match(COMMA) {
			break
		}
		p.skipNewlines()
	}
	if _, err := p.need(RCURLY, `expected "}" to close the enumeration`); err != nil {
		return nil, err
	}
	return &EnumDef{span: p.spanFrom(start), Name: nameTok.Lexeme, Members: members}, nil
}
