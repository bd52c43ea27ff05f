package versa

import (
	"strings"
	"testing"
)

func Test_Errors_SyntaxSnippetFormat(t *testing.T) {
	src := "var x = 1\nvar y = (2 +\nx"
	_, err := Run(src, "demo.vr")
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "SYNTAX ERROR in demo.vr") {
		t.Fatalf("missing header: %q", msg)
	}
	if !strings.Contains(msg, " | ") {
		t.Fatalf("missing gutter: %q", msg)
	}
	if !strings.Contains(msg, "^") {
		t.Fatalf("missing caret: %q", msg)
	}
}

func Test_Errors_RuntimeSnippetNamesContext(t *testing.T) {
	src := "function boom() {\n\treturn 1 / 0\n}\nboom()"
	_, err := Run(src, "demo.vr")
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "RUNTIME ERROR in boom") {
		t.Fatalf("context name missing: %q", msg)
	}
	if !strings.Contains(msg, "division by zero") {
		t.Fatalf("message missing: %q", msg)
	}
}

func Test_Errors_SnippetShowsOffendingLine(t *testing.T) {
	src := "var a = 1\nvar b = a + missing\nvar c = 3"
	_, err := Run(src, "demo.vr")
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "   2 | var b = a + missing") {
		t.Fatalf("offending line missing: %q", msg)
	}
	// one line of context on each side
	if !strings.Contains(msg, "   1 | var a = 1") || !strings.Contains(msg, "   3 | var c = 3") {
		t.Fatalf("context lines missing: %q", msg)
	}
}

func Test_Errors_SpanClampedToSource(t *testing.T) {
	// a synthetic span beyond the source must not crash rendering
	err := WrapWithSource(&RuntimeError{Span: Span{Line: 99, Col: 500}, Msg: "boom"}, "x", "one line")
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("got %v", err)
	}
}

func Test_Errors_IncompleteDetection(t *testing.T) {
	_, err := ParseInteractive("[1, 2")
	if !IsIncomplete(err) {
		t.Fatalf("want incomplete, got %v", err)
	}
	_, err = Parse("[1, 2")
	if IsIncomplete(err) {
		t.Fatal("non-interactive parses are never incomplete")
	}
	if IsIncomplete(nil) {
		t.Fatal("nil is not incomplete")
	}
}

func Test_Errors_BareErrorStringsCarryPosition(t *testing.T) {
	_, err := Parse("var = 1")
	se, ok := err.(*SyntaxError)
	if !ok {
		t.Fatalf("want *SyntaxError, got %T", err)
	}
	if !strings.Contains(se.Error(), "SYNTAX ERROR at 1:") {
		t.Fatalf("got %q", se.Error())
	}
}
