// errors.go — user-facing error wrapping and caret-snippet rendering.
//
// Two error kinds cross the public surface, both carrying a source span and
// a message:
//
//   - *SyntaxError  — raised by the lexer and parser; always fatal to
//     parsing, no partial AST is ever returned.
//   - *RuntimeError — raised by the interpreter (undefined names, arity
//     mismatches, division by zero, visibility violations, ...). Carries the
//     display name of the execution context it was raised in.
//
// WrapWithSource turns either into an error whose message is a multi-line
// snippet with the offending line, one line of context on each side, and a
// caret under the start column:
//
//	SYNTAX ERROR in <program> at 3:14: unexpected token ')'
//
//	   2 | var x = (1 + 2
//	   3 |              )
//	     |              ^
//	   4 | x
//
// Rendering happens only at the Run/CLI boundary; everything below it
// returns the bare structured errors.
package versa

import (
	"errors"
	"fmt"
	"strings"
)

// SyntaxError is a lexing or parsing failure. Parsing never recovers: the
// first syntax error aborts the whole unit.
type SyntaxError struct {
	Span Span
	Msg  string
	// Incomplete is set by interactive parses that ran out of input inside
	// an open construct; see IsIncomplete.
	Incomplete bool
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SYNTAX ERROR at %d:%d: %s", e.Span.Line, e.Span.Col+1, e.Msg)
}

// IsIncomplete reports whether err is an interactive parse failure caused
// only by the input ending early. The REPL uses it to prompt for a
// continuation line instead of reporting a hard error.
func IsIncomplete(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se) && se.Incomplete
}

// RuntimeError is an execution-time failure with a source span and the
// display name of the context (call frame) that raised it.
type RuntimeError struct {
	Span    Span
	Msg     string
	Context string // e.g. "<program>", "make_adder", "Dog.speak"
	DivZero bool   // set for division/modulo-by-zero failures
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("RUNTIME ERROR at %d:%d: %s", e.Span.Line, e.Span.Col+1, e.Msg)
}

// WrapWithSource returns err augmented with a caret-annotated snippet of the
// source it was raised in. Syntax and runtime errors are recognized; anything
// else (including the control-flow signals, which never escape the
// interpreter) is returned unchanged.
func WrapWithSource(err error, srcName, src string) error {
	switch e := err.(type) {
	case *SyntaxError:
		return fmt.Errorf("%s", snippet(src, "SYNTAX ERROR", srcName, e.Span, e.Msg))
	case *RuntimeError:
		ctx := e.Context
		if ctx == "" {
			ctx = srcName
		}
		return fmt.Errorf("%s", snippet(src, "RUNTIME ERROR", ctx, e.Span, e.Msg))
	default:
		return err
	}
}

// snippet builds the caret-annotated excerpt. Coordinates are clamped to the
// source bounds so a stale or synthetic span cannot crash rendering.
func snippet(src, header, name string, sp Span, msg string) string {
	lines := strings.Split(src, "\n")
	line := sp.Line
	col := sp.Col + 1 // render 1-based
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line > len(lines) {
		line = len(lines)
	}
	lineTxt := lines[line-1]
	if col > len(lineTxt)+1 {
		col = len(lineTxt) + 1
	}

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lineTxt)
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
