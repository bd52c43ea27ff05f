// lexer.go — scanner for Versa source text.
//
// The lexer turns a UTF-8 source string into a finite slice of positioned
// tokens, always terminated by EOF. Newlines are significant: every run of
// one or more '\n' produces a single NEWLINE token (the parser folds them
// where the grammar allows, e.g. inside open brackets). Multi-character
// operators are recognized with maximal munch, so "++" is INC rather than
// two PLUS tokens and "=>" is DARROW rather than ASSIGN GREATER.
//
// Number literals accept '_' digit-group separators and at most one decimal
// point; a second decimal point is a *SyntaxError carrying the offending
// span. String literals support the usual escapes; an 'f'-prefixed string is
// emitted as FSTRING with its text still raw — splitting on '{...}' and
// decoding escapes is the parser's job, so that \{ stays distinguishable
// from an interpolation opener.
package versa

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenType represents the kind of token.
type TokenType int

const (
	// Special
	EOF TokenType = iota
	NEWLINE

	// Literals & identifiers
	NUMBER
	STRING
	FSTRING
	IDENT

	// Punctuation
	LPAREN  // "("
	RPAREN  // ")"
	LSQUARE // "["
	RSQUARE // "]"
	LCURLY  // "{"
	RCURLY  // "}"
	COMMA   // ","
	COLON   // ":"
	DOT     // "."

	// Operators
	PLUS       // "+"
	MINUS      // "-"
	MULT       // "*"
	DIV        // "/"
	MOD        // "%"
	POW        // "^"
	ASSIGN     // "="
	EQ         // "=="
	NEQ        // "!="
	LESS       // "<"
	LESS_EQ    // "<="
	GREATER    // ">"
	GREATER_EQ // ">="
	PLUS_EQ    // "+="
	MINUS_EQ   // "-="
	MULT_EQ    // "*="
	DIV_EQ     // "/="
	MOD_EQ     // "%="
	POW_EQ     // "^="
	INC        // "++"
	DEC        // "--"
	ARROW      // "->"
	DARROW     // "=>"
	COALESCE   // "??"

	// Keywords
	KW_VAR
	KW_IF
	KW_ELIF
	KW_ELSE
	KW_FOR
	KW_TO
	KW_STEP
	KW_FOREACH
	KW_IN
	KW_WHILE
	KW_FUNCTION
	KW_RETURN
	KW_BREAK
	KW_CONTINUE
	KW_AND
	KW_OR
	KW_NOT
	KW_CLASS
	KW_EXTENDS
	KW_NEW
	KW_THIS
	KW_ENUM
	KW_PUBLIC
	KW_PRIVATE
	KW_PROTECTED
	KW_OVERRIDE
	KW_PROPERTY
	KW_METHOD
	KW_GET
	KW_SET
)

// Span is a source region in 1-based line / 0-based column coordinates.
// Every token and AST node carries one for diagnostics.
type Span struct {
	Line    int // start line (1-based)
	Col     int // start column (0-based)
	EndLine int
	EndCol  int
}

// Extend returns the span covering both s and other.
func (s Span) Extend(other Span) Span {
	out := s
	if other.EndLine > s.EndLine || (other.EndLine == s.EndLine && other.EndCol > s.EndCol) {
		out.EndLine, out.EndCol = other.EndLine, other.EndCol
	}
	return out
}

// Token is a lexical token with optional literal value.
type Token struct {
	Type    TokenType
	Lexeme  string      // raw text slice
	Literal interface{} // parsed value for literals (float64 / string)
	Span    Span
}

// keywords maps reserved words to their token types. Identifiers found here
// are tagged as keywords instead of IDENT. The seeded constants (none, null,
// yes, no, true, false) stay IDENT on purpose: they resolve through the root
// scope like any name, and the parser rejects declaring over them.
var keywords = map[string]TokenType{
	"var":       KW_VAR,
	"if":        KW_IF,
	"elif":      KW_ELIF,
	"else":      KW_ELSE,
	"for":       KW_FOR,
	"to":        KW_TO,
	"step":      KW_STEP,
	"foreach":   KW_FOREACH,
	"in":        KW_IN,
	"while":     KW_WHILE,
	"function":  KW_FUNCTION,
	"return":    KW_RETURN,
	"break":     KW_BREAK,
	"continue":  KW_CONTINUE,
	"and":       KW_AND,
	"or":        KW_OR,
	"not":       KW_NOT,
	"class":     KW_CLASS,
	"extends":   KW_EXTENDS,
	"new":       KW_NEW,
	"this":      KW_THIS,
	"enum":      KW_ENUM,
	"public":    KW_PUBLIC,
	"private":   KW_PRIVATE,
	"protected": KW_PROTECTED,
	"override":  KW_OVERRIDE,
	"property":  KW_PROPERTY,
	"method":    KW_METHOD,
	"get":       KW_GET,
	"set":       KW_SET,
}

// Lexer scans a Versa source string into tokens.
type Lexer struct {
	src    string
	start  int // start index of current token
	cur    int // current index
	line   int // 1-based
	col    int // 0-based column within line
	tokens []Token

	// precise token start position
	tokStartLine int
	tokStartCol  int
}

// NewLexer creates a new lexer for the given source.
func NewLexer(src string) *Lexer {
	return &Lexer{
		src:  src,
		line: 1,
		col:  0,
	}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	return l.src[l.cur], true
}

func (l *Lexer) peekN(n int) (byte, bool) {
	idx := l.cur + n
	if idx >= len(l.src) {
		return 0, false
	}
	return l.src[idx], true
}

func (l *Lexer) advance() (byte, bool) {
	if l.isAtEnd() {
		return 0, false
	}
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return ch, true
}

func (l *Lexer) span() Span {
	return Span{
		Line:    l.tokStartLine,
		Col:     l.tokStartCol,
		EndLine: l.line,
		EndCol:  l.col,
	}
}

func (l *Lexer) addToken(tt TokenType, lit interface{}) Token {
	tok := Token{
		Type:    tt,
		Lexeme:  l.src[l.start:l.cur],
		Literal: lit,
		Span:    l.span(),
	}
	l.tokens = append(l.tokens, tok)
	l.start = l.cur
	return tok
}

func (l *Lexer) skipBlanks() {
	for !l.isAtEnd() {
		ch, _ := l.peek()
		switch ch {
		case ' ', '\r', '\t':
			l.advance()
			l.start = l.cur
		case '#':
			l.ignoreUntilNewline()
			l.start = l.cur
		default:
			return
		}
	}
}

// helpers

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' }
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isDigit(b)
}

func (l *Lexer) err(msg string) error {
	return &SyntaxError{Span: l.span(), Msg: msg}
}

// ----- scanners -----

// scanString decodes a quoted string literal (single or double quotes).
func (l *Lexer) scanString() (string, error) {
	del, _ := l.advance() // opening quote
	var out strings.Builder
	for !l.isAtEnd() {
		ch, _ := l.advance()
		if ch == del {
			return out.String(), nil
		}
		if ch == '\n' {
			return "", l.err("string was not terminated before end of line")
		}
		if ch == '\\' {
			esc, ok := l.advance()
			if !ok {
				return "", l.err("unfinished escape sequence")
			}
			switch esc {
			case '"':
				out.WriteByte('"')
			case '\'':
				out.WriteByte('\'')
			case '\\':
				out.WriteByte('\\')
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			case '{':
				out.WriteByte('{')
			case '}':
				out.WriteByte('}')
			default:
				return "", l.err(fmt.Sprintf("invalid escape sequence: \\%c", esc))
			}
			continue
		}
		out.WriteByte(ch)
	}
	return "", l.err("string was not terminated")
}

// scanRawString consumes a quoted literal without decoding its escapes. It
// still validates them. Used for f-strings: the interpolation splitter in
// the parser decodes escapes only after it has split on braces, which is
// what lets \{ suppress an interpolation.
func (l *Lexer) scanRawString() (string, error) {
	del, _ := l.advance() // opening quote
	start := l.cur
	for !l.isAtEnd() {
		ch, _ := l.advance()
		if ch == del {
			return l.src[start : l.cur-1], nil
		}
		if ch == '\n' {
			return "", l.err("string was not terminated before end of line")
		}
		if ch == '\\' {
			esc, ok := l.advance()
			if !ok {
				return "", l.err("unfinished escape sequence")
			}
			switch esc {
			case '"', '\'', '\\', 'n', 'r', 't', '{', '}':
			default:
				return "", l.err(fmt.Sprintf("invalid escape sequence: \\%c", esc))
			}
		}
	}
	return "", l.err("string was not terminated")
}

// scanIdentifier consumes [A-Za-z_][A-Za-z0-9_]*.
func (l *Lexer) scanIdentifier() string {
	for {
		b, ok := l.peek()
		if !ok || !isAlphaNum(b) {
			break
		}
		l.advance()
	}
	return l.src[l.start:l.cur]
}

// scanNumber consumes digits with optional '_' group separators and at most
// one decimal point. A second decimal point is a lexing error.
func (l *Lexer) scanNumber() (float64, error) {
	sawDot := false
	for {
		b, ok := l.peek()
		if !ok {
			break
		}
		if isDigit(b) || b == '_' {
			l.advance()
			continue
		}
		if b == '.' {
			// ".foo" after digits is property access, not a decimal part
			if b2, ok2 := l.peekN(1); !ok2 || !isDigit(b2) {
				break
			}
			if sawDot {
				l.advance()
				return 0, l.err("a number can only have one decimal point")
			}
			sawDot = true
			l.advance()
			continue
		}
		break
	}
	lex := strings.ReplaceAll(l.src[l.start:l.cur], "_", "")
	v, convErr := strconv.ParseFloat(lex, 64)
	if convErr != nil {
		return 0, l.err("malformed number")
	}
	return v, nil
}

// ignoreUntilNewline eats until '\n' or EOF.
func (l *Lexer) ignoreUntilNewline() {
	for {
		b, ok := l.peek()
		if !ok || b == '\n' {
			return
		}
		l.advance()
	}
}

// ----- main scanner -----

// two-character operators, tried before their one-character prefixes.
var doubleOps = []struct {
	text string
	tt   TokenType
}{
	{"==", EQ},
	{"!=", NEQ},
	{"<=", LESS_EQ},
	{">=", GREATER_EQ},
	{"+=", PLUS_EQ},
	{"-=", MINUS_EQ},
	{"*=", MULT_EQ},
	{"/=", DIV_EQ},
	{"%=", MOD_EQ},
	{"^=", POW_EQ},
	{"++", INC},
	{"--", DEC},
	{"->", ARROW},
	{"=>", DARROW},
	{"??", COALESCE},
}

var singleOps = map[byte]TokenType{
	'(': LPAREN,
	')': RPAREN,
	'[': LSQUARE,
	']': RSQUARE,
	'{': LCURLY,
	'}': RCURLY,
	',': COMMA,
	':': COLON,
	'.': DOT,
	'+': PLUS,
	'-': MINUS,
	'*': MULT,
	'/': DIV,
	'%': MOD,
	'^': POW,
	'=': ASSIGN,
	'<': LESS,
	'>': GREATER,
}

func (l *Lexer) scanToken() (Token, error) {
	l.skipBlanks()
	l.tokStartLine = l.line
	l.tokStartCol = l.col
	l.start = l.cur

	if l.isAtEnd() {
		return l.addToken(EOF, nil), nil
	}

	ch, _ := l.peek()

	// Newline runs collapse to a single NEWLINE token.
	if ch == '\n' {
		for {
			b, ok := l.peek()
			if ok && b == '\n' {
				l.advance()
				l.skipBlanks()
				continue
			}
			break
		}
		return l.addToken(NEWLINE, nil), nil
	}

	// Two-char operators (maximal munch).
	if b2, ok := l.peekN(1); ok {
		pair := string([]byte{ch, b2})
		for _, op := range doubleOps {
			if op.text == pair {
				l.advance()
				l.advance()
				return l.addToken(op.tt, op.text), nil
			}
		}
	}

	// '.' starting a number like ".5"
	if ch == '.' {
		if b2, ok := l.peekN(1); ok && isDigit(b2) {
			v, err := l.scanNumber()
			if err != nil {
				return Token{}, err
			}
			return l.addToken(NUMBER, v), nil
		}
	}

	// Numbers
	if isDigit(ch) {
		v, err := l.scanNumber()
		if err != nil {
			return Token{}, err
		}
		return l.addToken(NUMBER, v), nil
	}

	// Strings, plain or f-prefixed
	if ch == '"' || ch == '\'' {
		text, err := l.scanString()
		if err != nil {
			return Token{}, err
		}
		return l.addToken(STRING, text), nil
	}
	if ch == 'f' {
		if q, ok := l.peekN(1); ok && (q == '"' || q == '\'') {
			l.advance() // consume 'f'
			text, err := l.scanRawString()
			if err != nil {
				return Token{}, err
			}
			return l.addToken(FSTRING, text), nil
		}
	}

	// Identifiers / keywords
	if isAlpha(ch) {
		lex := l.scanIdentifier()
		if tt, ok := keywords[lex]; ok {
			return l.addToken(tt, lex), nil
		}
		return l.addToken(IDENT, lex), nil
	}

	// Single-char punctuation and operators
	if tt, ok := singleOps[ch]; ok {
		l.advance()
		return l.addToken(tt, string(ch)), nil
	}

	l.advance()
	return Token{}, l.err(fmt.Sprintf("unexpected character: %q", ch))
}

// Scan tokenizes the entire source and returns tokens (EOF included).
func (l *Lexer) Scan() ([]Token, error) {
	for {
		tok, err := l.scanToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			return l.tokens, nil
		}
	}
}
