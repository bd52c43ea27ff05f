// lexer_test.go
package versa

import (
	"strings"
	"testing"
)

func mustScan(t *testing.T, src string) []Token {
	t.Helper()
	toks, err := NewLexer(src).Scan()
	if err != nil {
		t.Fatalf("Scan error: %v\nsource:\n%s", err, src)
	}
	return toks
}

func types(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, tk := range toks {
		out[i] = tk.Type
	}
	return out
}

func sameTypes(a []TokenType, b ...TokenType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func Test_Lexer_SimpleExpression(t *testing.T) {
	toks := mustScan(t, "var x = 1 + 2")
	if !sameTypes(types(toks), KW_VAR, IDENT, ASSIGN, NUMBER, PLUS, NUMBER, EOF) {
		t.Fatalf("got %v", types(toks))
	}
}

func Test_Lexer_NewlineRunsCollapse(t *testing.T) {
	toks := mustScan(t, "1\n\n\n2")
	if !sameTypes(types(toks), NUMBER, NEWLINE, NUMBER, EOF) {
		t.Fatalf("got %v", types(toks))
	}
}

func Test_Lexer_CommentsAreSkipped(t *testing.T) {
	toks := mustScan(t, "1 # a comment\n2 # another")
	if !sameTypes(types(toks), NUMBER, NEWLINE, NUMBER, EOF) {
		t.Fatalf("got %v", types(toks))
	}
}

func Test_Lexer_MaximalMunch(t *testing.T) {
	toks := mustScan(t, "a += b ++ c == d ?? e => f -> g")
	want := []TokenType{IDENT, PLUS_EQ, IDENT, INC, IDENT, EQ, IDENT, COALESCE, IDENT, DARROW, IDENT, ARROW, IDENT, EOF}
	if !sameTypes(types(toks), want...) {
		t.Fatalf("got %v", types(toks))
	}
}

func Test_Lexer_Numbers(t *testing.T) {
	toks := mustScan(t, "42 3.5 1_000_000 0.25")
	wants := []float64{42, 3.5, 1000000, 0.25}
	i := 0
	for _, tk := range toks {
		if tk.Type != NUMBER {
			continue
		}
		if tk.Literal.(float64) != wants[i] {
			t.Fatalf("number %d: want %v, got %v", i, wants[i], tk.Literal)
		}
		i++
	}
	if i != len(wants) {
		t.Fatalf("scanned %d numbers, want %d", i, len(wants))
	}
}

func Test_Lexer_TwoDecimalPointsFail(t *testing.T) {
	_, err := NewLexer("1.2.3").Scan()
	if err == nil || !strings.Contains(err.Error(), "decimal point") {
		t.Fatalf("want a decimal-point error, got %v", err)
	}
}

func Test_Lexer_Strings(t *testing.T) {
	toks := mustScan(t, `"hi" 'there' "a\nb" "say \"x\""`)
	wants := []string{"hi", "there", "a\nb", `say "x"`}
	i := 0
	for _, tk := range toks {
		if tk.Type != STRING {
			continue
		}
		if tk.Literal.(string) != wants[i] {
			t.Fatalf("string %d: want %q, got %q", i, wants[i], tk.Literal)
		}
		i++
	}
	if i != len(wants) {
		t.Fatalf("scanned %d strings, want %d", i, len(wants))
	}
}

func Test_Lexer_UnterminatedString(t *testing.T) {
	_, err := NewLexer(`"open`).Scan()
	if err == nil {
		t.Fatal("want an error for an unterminated string")
	}
}

func Test_Lexer_FStringTagged(t *testing.T) {
	toks := mustScan(t, `f"x is {x}"`)
	if toks[0].Type != FSTRING {
		t.Fatalf("want FSTRING, got %v", toks[0].Type)
	}
	if toks[0].Literal.(string) != "x is {x}" {
		t.Fatalf("raw text: got %q", toks[0].Literal)
	}
	// a bare f before anything else is an identifier
	toks = mustScan(t, "f + 1")
	if toks[0].Type != IDENT || toks[0].Lexeme != "f" {
		t.Fatalf("got %v %q", toks[0].Type, toks[0].Lexeme)
	}
}

func Test_Lexer_FStringKeepsEscapesRaw(t *testing.T) {
	// the parser decodes f-string escapes after splitting on braces
	toks := mustScan(t, `f"a\nb\{c\}"`)
	if toks[0].Literal.(string) != `a\nb\{c\}` {
		t.Fatalf("raw text: got %q", toks[0].Literal)
	}
	if _, err := NewLexer(`f"\q"`).Scan(); err == nil {
		t.Fatal("want an error for an invalid escape in an f-string")
	}
}

func Test_Lexer_KeywordsVersusIdentifiers(t *testing.T) {
	toks := mustScan(t, "class classy for forum to tomato")
	want := []TokenType{KW_CLASS, IDENT, KW_FOR, IDENT, KW_TO, IDENT, EOF}
	if !sameTypes(types(toks), want...) {
		t.Fatalf("got %v", types(toks))
	}
}

func Test_Lexer_ReservedConstantsAreIdentifiers(t *testing.T) {
	toks := mustScan(t, "none null yes no true false")
	for _, tk := range toks[:6] {
		if tk.Type != IDENT {
			t.Fatalf("%q should scan as IDENT, got %v", tk.Lexeme, tk.Type)
		}
	}
}

func Test_Lexer_Spans(t *testing.T) {
	toks := mustScan(t, "ab\n  cd")
	if toks[0].Span.Line != 1 || toks[0].Span.Col != 0 {
		t.Fatalf("first token span: %+v", toks[0].Span)
	}
	// cd sits on line 2, after two spaces
	cd := toks[2]
	if cd.Lexeme != "cd" || cd.Span.Line != 2 || cd.Span.Col != 2 {
		t.Fatalf("second identifier span: %+v (%q)", cd.Span, cd.Lexeme)
	}
}

func Test_Lexer_UnexpectedCharacter(t *testing.T) {
	_, err := NewLexer("a $ b").Scan()
	if err == nil {
		t.Fatal("want an error for an unexpected character")
	}
	se, ok := err.(*SyntaxError)
	if !ok {
		t.Fatalf("want *SyntaxError, got %T", err)
	}
	if se.Span.Line != 1 || se.Span.Col != 2 {
		t.Fatalf("error span: %+v", se.Span)
	}
}
