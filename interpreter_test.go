package versa

import (
	"strings"
	"testing"
)

func evalSrc(t *testing.T, src string) Value {
	t.Helper()
	v, err := Run(src, "<test>")
	if err != nil {
		t.Fatalf("Run error: %v\nsource:\n%s", err, src)
	}
	return v
}

func wantNum(t *testing.T, v Value, want float64) {
	t.Helper()
	if v.Tag != VTNumber || v.Data.(float64) != want {
		t.Fatalf("want Number %v, got %#v", want, v)
	}
}

func wantStr(t *testing.T, v Value, want string) {
	t.Helper()
	if v.Tag != VTString || v.Data.(string) != want {
		t.Fatalf("want String %q, got %#v", want, v)
	}
}

func wantNone(t *testing.T, v Value) {
	t.Helper()
	if v.Tag != VTNone {
		t.Fatalf("want None, got %#v", v)
	}
}

func wantRuntimeErr(t *testing.T, src, substr string) {
	t.Helper()
	_, err := Run(src, "<test>")
	if err == nil {
		t.Fatalf("expected a runtime error, got none\nsource:\n%s", src)
	}
	if !strings.Contains(err.Error(), "RUNTIME ERROR") {
		t.Fatalf("expected a runtime error, got: %v", err)
	}
	if !strings.Contains(err.Error(), substr) {
		t.Fatalf("error %q does not mention %q", err.Error(), substr)
	}
}

func Test_Eval_LastStatementIsResult(t *testing.T) {
	wantNum(t, evalSrc(t, "var a = 2\nvar b = 3\na + b"), 5)
	wantNone(t, evalSrc(t, ""))
}

func Test_Eval_VariablesAndShadowing(t *testing.T) {
	v := evalSrc(t, `
		var x = 1
		if 1 {
			var x = 2
			x
		}
		x
	`)
	wantNum(t, v, 1)
}

func Test_Eval_UndefinedVariable(t *testing.T) {
	wantRuntimeErr(t, "nope", `undefined variable "nope"`)
	wantRuntimeErr(t, "var a = 1\nb = 2", `undefined variable "b"`)
}

func Test_Eval_Redeclaration(t *testing.T) {
	wantRuntimeErr(t, "var a = 1\nvar a = 2", "already declared")
}

func Test_Eval_ReservedConstants(t *testing.T) {
	wantNum(t, evalSrc(t, "true"), 1)
	wantNum(t, evalSrc(t, "no"), 0)
	wantNone(t, evalSrc(t, "null"))
	wantRuntimeErr(t, "true = 0", "reserved constant")

	_, err := Run("var none = 1", "<test>")
	if err == nil || !strings.Contains(err.Error(), "SYNTAX ERROR") {
		t.Fatalf("declaring over a reserved constant should be a syntax error, got: %v", err)
	}
}

func Test_Eval_IfYieldsBranchValue(t *testing.T) {
	wantNum(t, evalSrc(t, "if 1 { 10 } else { 20 }"), 10)
	wantNum(t, evalSrc(t, "if 0 { 10 } elif 1 { 15 } else { 20 }"), 15)
	wantNone(t, evalSrc(t, "if 0 { 10 }"))
}

func Test_Eval_WhileLoop(t *testing.T) {
	v := evalSrc(t, `
		var n = 0
		var total = 0
		while n < 5 {
			total += n
			n++
		}
		total
	`)
	wantNum(t, v, 10)
}

func Test_Eval_ForLoop_Ascending(t *testing.T) {
	v := evalSrc(t, `
		var total = 0
		for i = 1 to 4 {
			total += i
		}
		total
	`)
	wantNum(t, v, 10) // inclusive end: 1+2+3+4
}

func Test_Eval_ForLoop_DescendingInferred(t *testing.T) {
	v := evalSrc(t, `
		var out = []
		for i = 3 to 1 {
			out[] = i
		}
		out
	`)
	if v.String() != "[3, 2, 1]" {
		t.Fatalf("got %s", v.String())
	}
}

func Test_Eval_ForLoop_ExplicitStep(t *testing.T) {
	v := evalSrc(t, `
		var out = []
		for i = 0 to 10 step 5 {
			out[] = i
		}
		out
	`)
	if v.String() != "[0, 5, 10]" {
		t.Fatalf("got %s", v.String())
	}
}

func Test_Eval_ForLoop_EqualBoundsNeedStep(t *testing.T) {
	wantRuntimeErr(t, "for i = 1 to 1 { i }", "cannot infer a step")
	wantNone(t, evalSrc(t, "for i = 1 to 1 step 1 { i }"))
}

func Test_Eval_ForLoop_EndReevaluated(t *testing.T) {
	// the body shrinks the bound, so the loop stops early
	v := evalSrc(t, `
		var limit = 10
		var count = 0
		for i = 1 to limit {
			count++
			limit = 3
		}
		count
	`)
	wantNum(t, v, 3)
}

func Test_Eval_Foreach_List(t *testing.T) {
	v := evalSrc(t, `
		var total = 0
		foreach x in [1, 2, 3] {
			total += x
		}
		total
	`)
	wantNum(t, v, 6)
}

func Test_Eval_Foreach_DictKeysAndValues(t *testing.T) {
	v := evalSrc(t, `
		var out = ""
		foreach k, v in {"a": 1, "b": 2} {
			out += f"{k}={v};"
		}
		out
	`)
	wantStr(t, v, "a=1;b=2;")
}

func Test_Eval_Foreach_InvalidSource(t *testing.T) {
	wantRuntimeErr(t, "foreach x in 5 { x }", "cannot iterate")
}

func Test_Eval_BreakAndContinue(t *testing.T) {
	v := evalSrc(t, `
		var total = 0
		foreach x in [1, 2, 3, 4, 5] {
			if x == 2 { continue }
			if x == 4 { break }
			total += x
		}
		total
	`)
	wantNum(t, v, 4) // 1 + 3

	wantRuntimeErr(t, "break", "outside a loop")
	wantRuntimeErr(t, "continue", "outside a loop")
}

func Test_Eval_BreakDoesNotCrossCallBoundary(t *testing.T) {
	// a break inside a called function must not end the caller's loop
	wantRuntimeErr(t, `
		function f() { break }
		var i = 0
		while i < 3 {
			f()
			i++
		}
	`, `"break" used outside a loop`)

	wantRuntimeErr(t, `
		function g() { continue }
		foreach x in [1, 2, 3] { g() }
	`, `"continue" used outside a loop`)
}

func Test_Eval_TopLevelReturn(t *testing.T) {
	wantNum(t, evalSrc(t, "return 42\n99"), 42)
}

func Test_Eval_FunctionsAndClosures(t *testing.T) {
	v := evalSrc(t, `
		function make_adder(n) {
			return function(x) -> x + n
		}
		var add5 = make_adder(5)
		add5(3)
	`)
	wantNum(t, v, 8)
}

func Test_Eval_ClosureSharesState(t *testing.T) {
	v := evalSrc(t, `
		function counter() {
			var n = 0
			return function() {
				n++
				return n
			}
		}
		var c = counter()
		c()
		c()
		c()
	`)
	wantNum(t, v, 3)
}

func Test_Eval_OptionalParameters(t *testing.T) {
	v := evalSrc(t, `
		function greet(name, greeting = "hello") -> f"{greeting}, {name}"
		greet("world")
	`)
	wantStr(t, v, "hello, world")

	v = evalSrc(t, `
		function greet(name, greeting = "hello") -> f"{greeting}, {name}"
		greet("world", "hi")
	`)
	wantStr(t, v, "hi, world")
}

func Test_Eval_DefaultSeesEarlierParams(t *testing.T) {
	v := evalSrc(t, `
		function pad(x, width = x * 2) -> width
		pad(3)
	`)
	wantNum(t, v, 6)
}

func Test_Eval_ArityMismatch(t *testing.T) {
	wantRuntimeErr(t, "function f(a, b) { a }\nf(1)", "expects 2 argument(s), got 1")
	wantRuntimeErr(t, "function f(a, b = 1) { a }\nf(1, 2, 3)", "between 1 and 2")
}

func Test_Eval_Lambda(t *testing.T) {
	wantNum(t, evalSrc(t, "var sq = (x) => x * x\nsq(7)"), 49)
}

func Test_Eval_Recursion(t *testing.T) {
	v := evalSrc(t, `
		function fib(n) {
			if n < 2 { return n }
			return fib(n - 1) + fib(n - 2)
		}
		fib(10)
	`)
	wantNum(t, v, 55)
}

func Test_Eval_ImplicitReturnIsNone(t *testing.T) {
	wantNone(t, evalSrc(t, "function f() { 5 }\nf()"))
	wantNum(t, evalSrc(t, "function f() -> 5\nf()"), 5)
}

func Test_Eval_IncDecPrefixPostfix(t *testing.T) {
	wantNum(t, evalSrc(t, "var a = 1\n++a"), 2)
	wantNum(t, evalSrc(t, "var a = 1\na++"), 1)
	wantNum(t, evalSrc(t, "var a = 1\na++\na"), 2)
	wantNum(t, evalSrc(t, "var a = 5\n--a"), 4)
}

func Test_Eval_CompoundAssignment(t *testing.T) {
	wantNum(t, evalSrc(t, "var a = 10\na -= 3\na *= 2\na"), 14)
	wantNum(t, evalSrc(t, "var a = 2\na ^= 3\na"), 8)
	wantStr(t, evalSrc(t, "var s = \"ab\"\ns += \"cd\"\ns"), "abcd")
}

func Test_Eval_CompoundTargetEvaluatedOnce(t *testing.T) {
	// a side-effecting index expression runs once, and the read and the
	// write hit the same slot
	v := evalSrc(t, `
		var xs = [1, 10, 20]
		var i = 0
		function bump() { return i++ }
		xs[bump()] += 1
		xs
	`)
	if v.String() != "[2, 10, 20]" {
		t.Fatalf("got %s", v.String())
	}
	wantNum(t, evalSrc(t, `
		var xs = [5]
		var calls = 0
		function pick() {
			calls++
			return 0
		}
		xs[pick()]++
		calls
	`), 1)
	// same for the object expression of a property target
	wantNum(t, evalSrc(t, `
		var made = 0
		function box() {
			made++
			return {n: 1}
		}
		box().n += 5
		made
	`), 1)
}

func Test_Eval_ListIndexing(t *testing.T) {
	wantNum(t, evalSrc(t, "var xs = [10, 20, 30]\nxs[1]"), 20)
	wantNum(t, evalSrc(t, "var xs = [10, 20, 30]\nxs[-1]"), 30)
	wantRuntimeErr(t, "var xs = [1]\nxs[5]", "out of range")
	wantNum(t, evalSrc(t, "var xs = [1, 2]\nxs[0] = 9\nxs[0]"), 9)
}

func Test_Eval_ListPushMarker(t *testing.T) {
	v := evalSrc(t, "var xs = [1]\nxs[] = 2\nxs[] = 3\nxs")
	if v.String() != "[1, 2, 3]" {
		t.Fatalf("got %s", v.String())
	}
	wantRuntimeErr(t, "var xs = [1]\nxs[]", "may only be assigned to")
}

func Test_Eval_Slicing(t *testing.T) {
	wantStr(t, evalSrc(t, `"abcdef"[1:4]`), "bcd")
	if got := evalSrc(t, "[1, 2, 3, 4][1:3]").String(); got != "[2, 3]" {
		t.Fatalf("got %s", got)
	}
	if got := evalSrc(t, "[1, 2, 3][:2]").String(); got != "[1, 2]" {
		t.Fatalf("got %s", got)
	}
	if got := evalSrc(t, "[1, 2, 3][1:]").String(); got != "[2, 3]" {
		t.Fatalf("got %s", got)
	}
	// bounds clamp instead of failing
	if got := evalSrc(t, "[1, 2][0:99]").String(); got != "[1, 2]" {
		t.Fatalf("got %s", got)
	}
}

func Test_Eval_StringIndexing(t *testing.T) {
	wantStr(t, evalSrc(t, `"hello"[0]`), "h")
	wantStr(t, evalSrc(t, `"hello"[-1]`), "o")
}

func Test_Eval_StringsIndexByRune(t *testing.T) {
	// multi-byte characters count as one position
	wantStr(t, evalSrc(t, `"héllo"[1]`), "é")
	wantStr(t, evalSrc(t, `"héllo"[-5]`), "h")
	wantStr(t, evalSrc(t, `"déjà vu"[0:4]`), "déjà")
	wantStr(t, evalSrc(t, `"日本語"[1:]`), "本語")
	wantRuntimeErr(t, `"日本語"[3]`, "out of range")
}

func Test_Eval_DictAccess(t *testing.T) {
	wantNum(t, evalSrc(t, "var d = {\"a\": 1}\nd[\"a\"]"), 1)
	wantNum(t, evalSrc(t, "var d = {\"a\": 1}\nd.a"), 1)
	wantNum(t, evalSrc(t, "var d = {\"a\": 1}\nd.b = 2\nd.b"), 2)
	wantRuntimeErr(t, "var d = {\"a\": 1}\nd.missing", "unknown dictionary key")
}

func Test_Eval_DictKeySugar(t *testing.T) {
	v := evalSrc(t, "var name = \"ada\"\nvar d = {name}\nd.name")
	wantStr(t, v, "ada")
}

func Test_Eval_InterpolatedStrings(t *testing.T) {
	wantStr(t, evalSrc(t, "var x = 3\nf\"x is {x} and double is {x * 2}\""), "x is 3 and double is 6")
	wantStr(t, evalSrc(t, `f"plain"`), "plain")
}

func Test_Eval_EscapedBracesAreNotInterpolated(t *testing.T) {
	wantStr(t, evalSrc(t, `f"\{x\}"`), "{x}")
	wantStr(t, evalSrc(t, "var n = 5\nf\"a\\{b\\} {n}\""), "a{b} 5")
	// other escapes still decode
	wantStr(t, evalSrc(t, `f"a\tb"`), "a\tb")
}

func Test_Eval_Coalesce(t *testing.T) {
	wantNum(t, evalSrc(t, "none ?? 5"), 5)
	wantNum(t, evalSrc(t, "0 ?? 5"), 5) // falsy left yields the right operand
	wantNum(t, evalSrc(t, "3 ?? 5"), 3)
	wantStr(t, evalSrc(t, `"" ?? "fallback"`), "fallback")
}

func Test_Eval_LogicYieldsNumbers(t *testing.T) {
	wantNum(t, evalSrc(t, "1 and 2"), 1)
	wantNum(t, evalSrc(t, "0 and 2"), 0)
	wantNum(t, evalSrc(t, "0 or 3"), 1)
	wantNum(t, evalSrc(t, "0 or 0"), 0)
	wantNum(t, evalSrc(t, "not 0"), 1)
}

func Test_Eval_ShortCircuit(t *testing.T) {
	// the right side would fail if evaluated
	wantNum(t, evalSrc(t, "0 and missing_name"), 0)
	wantNum(t, evalSrc(t, "1 or missing_name"), 1)
}

func Test_Eval_DivisionByZero(t *testing.T) {
	wantRuntimeErr(t, "1 / 0", "division by zero")
	wantRuntimeErr(t, "1 % 0", "modulo by zero")
	wantRuntimeErr(t, "1 / none", "division by zero")
}

func Test_Eval_Enum(t *testing.T) {
	v := evalSrc(t, `
		enum Color { Red, Green, Blue }
		Color.Green
	`)
	wantNum(t, v, 1)
	wantRuntimeErr(t, "enum C { A }\nC.B", "no member")
}

func Test_Eval_PersistentInterpreter(t *testing.T) {
	in := NewInterpreter()
	if _, err := in.Eval("var x = 41", "<repl>"); err != nil {
		t.Fatalf("first input: %v", err)
	}
	v, err := in.Eval("x + 1", "<repl>")
	if err != nil {
		t.Fatalf("second input: %v", err)
	}
	wantNum(t, v, 42)
}

func Test_Eval_ErrorKeepsPriorBindings(t *testing.T) {
	in := NewInterpreter()
	if _, err := in.Eval("var x = 1", "<repl>"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := in.Eval("x / 0", "<repl>"); err == nil {
		t.Fatal("expected a runtime error")
	}
	v, err := in.Eval("x", "<repl>")
	if err != nil {
		t.Fatalf("binding lost after error: %v", err)
	}
	wantNum(t, v, 1)
}
