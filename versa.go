// Package versa implements the Versa scripting language: a lexer, a
// recursive-descent parser, and a tree-walking interpreter over tagged
// values. Run evaluates a program in one shot; an Interpreter carries
// bindings across calls, which is what the REPL uses.
package versa

// Interpreter owns the persistent root scope. The REPL keeps one
// Interpreter alive across inputs so bindings survive between lines.
type Interpreter struct {
	Global *Scope
}

// NewInterpreter returns an interpreter whose root scope holds the reserved
// constants: none and null are the None value, yes and true are 1, no and
// false are 0.
func NewInterpreter() *Interpreter {
	g := NewScope(nil)
	g.Define("none", None)
	g.Define("null", None)
	g.Define("yes", Num(1))
	g.Define("true", Num(1))
	g.Define("no", Num(0))
	g.Define("false", Num(0))
	return &Interpreter{Global: g}
}

// Run parses and evaluates src in a fresh interpreter. The result is the
// value of the last top-level statement (None for an empty program). Errors
// come back with a caret-annotated snippet of src; name labels it.
func Run(src, name string) (Value, error) {
	return NewInterpreter().Eval(src, name)
}

// Eval parses and evaluates src against the interpreter's persistent root
// scope, so bindings made by one call are visible to the next.
func (in *Interpreter) Eval(src, name string) (Value, error) {
	block, err := Parse(src)
	if err != nil {
		return None, WrapWithSource(err, name, src)
	}
	v, err := in.evalProgram(block, name)
	if err != nil {
		return None, WrapWithSource(err, name, src)
	}
	return v, nil
}

// EvalInteractive is Eval in REPL mode: an input that ends inside an open
// construct yields an error for which IsIncomplete reports true, without a
// rendered snippet, so the caller can prompt for more input.
func (in *Interpreter) EvalInteractive(src, name string) (Value, error) {
	block, err := ParseInteractive(src)
	if err != nil {
		if IsIncomplete(err) {
			return None, err
		}
		return None, WrapWithSource(err, name, src)
	}
	v, err := in.evalProgram(block, name)
	if err != nil {
		return None, WrapWithSource(err, name, src)
	}
	return v, nil
}
