// interpreter.go — the tree-walking evaluator.
//
// Evaluation is one recursive function, eval, keyed on the concrete node
// type; the Go call stack is the control-flow machine. Non-local control
// flow (return, break, continue) travels as dedicated error types that
// ordinary evaluation never produces: a loop absorbs break/continue, a call
// frame absorbs return, and anything that escapes to a place with no
// eligible construct becomes a RuntimeError.
//
// Execution state is the Context chain (scope.go): each function call gets a
// fresh frame whose scope parent is the function's captured defining scope,
// which is what makes closures work. Blocks and loop bodies get a child
// scope in the same frame.
package versa

import (
	"fmt"
	"strconv"
)

func quoted(s string) string { return strconv.Quote(s) }

// evalProgram runs the root block. A top-level return terminates the program
// with its value; break and continue have no enclosing loop and fail.
func (in *Interpreter) evalProgram(block *Block, name string) (Value, error) {
	ctx := NewContext(name, in.Global)
	v, err := evalBlockInline(block, ctx)
	if err != nil {
		if rs, ok := err.(*returnSignal); ok {
			return rs.value, nil
		}
		return None, signalToError(err, ctx)
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// control-flow signals
// ---------------------------------------------------------------------------

type returnSignal struct {
	value Value
	at    Span
}

func (s *returnSignal) Error() string { return "return used outside a function" }

type breakSignal struct{ at Span }

func (s *breakSignal) Error() string { return `"break" used outside a loop` }

type continueSignal struct{ at Span }

func (s *continueSignal) Error() string { return `"continue" used outside a loop` }

// signalToError converts an escaped control-flow signal into the
// RuntimeError it deserves; real errors pass through.
func signalToError(err error, ctx *Context) error {
	switch s := err.(type) {
	case *returnSignal:
		return rtErr(s.at, ctx, s.Error())
	case *breakSignal:
		return rtErr(s.at, ctx, s.Error())
	case *continueSignal:
		return rtErr(s.at, ctx, s.Error())
	default:
		return err
	}
}

func rtErr(at Span, ctx *Context, msg string) *RuntimeError {
	name := ""
	if ctx != nil {
		name = ctx.Name
	}
	return &RuntimeError{Span: at, Msg: msg, Context: name}
}

// ---------------------------------------------------------------------------
// the evaluator
// ---------------------------------------------------------------------------

func eval(n Node, ctx *Context) (Value, error) {
	switch node := n.(type) {
	case *NumberLit:
		return Num(node.Value), nil
	case *StringLit:
		return Str(node.Value), nil
	case *InterpString:
		return evalInterp(node, ctx)
	case *ListLit:
		return evalListLit(node, ctx)
	case *DictLit:
		return evalDictLit(node, ctx)
	case *Ident:
		v, ok := ctx.Scope.Get(node.Name)
		if !ok {
			return None, rtErr(node.Span(), ctx, "undefined variable "+quoted(node.Name))
		}
		return v, nil
	case *This:
		v, ok := ctx.Scope.Get("this")
		if !ok {
			return None, rtErr(node.Span(), ctx, `"this" used outside a method`)
		}
		return v, nil
	case *VarDecl:
		return evalVarDecl(node, ctx)
	case *Assign:
		return evalAssign(node, ctx)
	case *CompoundAssign:
		return evalCompound(node, ctx)
	case *IncDec:
		return evalIncDec(node, ctx)
	case *BinaryOp:
		return evalBinary(node, ctx)
	case *UnaryOp:
		return evalUnary(node, ctx)
	case *If:
		return evalIf(node, ctx)
	case *For:
		return evalFor(node, ctx)
	case *Foreach:
		return evalForeach(node, ctx)
	case *While:
		return evalWhile(node, ctx)
	case *FuncDef:
		return evalFuncDef(node, ctx)
	case *Return:
		val := None
		if node.Value != nil {
			v, err := eval(node.Value, ctx)
			if err != nil {
				return None, err
			}
			val = v
		}
		return None, &returnSignal{value: val, at: node.Span()}
	case *Break:
		return None, &breakSignal{at: node.Span()}
	case *Continue:
		return None, &continueSignal{at: node.Span()}
	case *Call:
		return evalCall(node, ctx)
	case *PropAccess:
		return evalPropRead(node, ctx)
	case *IndexAccess:
		return evalIndexRead(node, ctx)
	case *SliceAccess:
		return evalSlice(node, ctx)
	case *ListPush:
		return None, rtErr(node.Span(), ctx, "the push marker xs[] may only be assigned to")
	case *ClassDef:
		return evalClassDef(node, ctx)
	case *New:
		return evalNew(node, ctx)
	case *EnumDef:
		return evalEnumDef(node, ctx)
	case *Block:
		return evalBlock(node, ctx)
	default:
		return None, rtErr(n.Span(), ctx, "cannot evaluate "+string(n.Kind()))
	}
}

// evalBlock runs the block in a fresh child scope of the current frame.
func evalBlock(b *Block, ctx *Context) (Value, error) {
	return evalBlockInline(b, ctx.BlockChild())
}

// evalBlockInline runs statements directly in ctx's scope; the block's
// value is the value of its last statement.
func evalBlockInline(b *Block, ctx *Context) (Value, error) {
	result := None
	for _, st := range b.Statements {
		v, err := eval(st, ctx)
		if err != nil {
			return None, err
		}
		result = v
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// literals
// ---------------------------------------------------------------------------

func evalInterp(n *InterpString, ctx *Context) (Value, error) {
	out := ""
	for _, part := range n.Parts {
		v, err := eval(part, ctx)
		if err != nil {
			return None, err
		}
		out += v.String()
	}
	return Str(out), nil
}

func evalListLit(n *ListLit, ctx *Context) (Value, error) {
	elems := make([]Value, 0, len(n.Elements))
	for _, e := range n.Elements {
		v, err := eval(e, ctx)
		if err != nil {
			return None, err
		}
		elems = append(elems, v)
	}
	return List(elems...), nil
}

func evalDictLit(n *DictLit, ctx *Context) (Value, error) {
	dv := NewDict()
	d := dv.Data.(*DictObject)
	for _, entry := range n.Entries {
		kv, err := eval(entry.Key, ctx)
		if err != nil {
			return None, err
		}
		if kv.Tag != VTString {
			return None, rtErr(entry.Key.Span(), ctx, "a dictionary key must be a string")
		}
		v, err := eval(entry.Value, ctx)
		if err != nil {
			return None, err
		}
		d.Set(kv.Data.(string), v)
	}
	return dv, nil
}

// ---------------------------------------------------------------------------
// names and assignment
// ---------------------------------------------------------------------------

func evalVarDecl(n *VarDecl, ctx *Context) (Value, error) {
	if ctx.Scope.Has(n.Name) {
		return None, rtErr(n.Span(), ctx, "variable "+quoted(n.Name)+" is already declared in this scope")
	}
	val := None
	if n.Value != nil {
		v, err := eval(n.Value, ctx)
		if err != nil {
			return None, err
		}
		val = v
	}
	ctx.Scope.Define(n.Name, val)
	return val, nil
}

func evalAssign(n *Assign, ctx *Context) (Value, error) {
	val, err := eval(n.Value, ctx)
	if err != nil {
		return None, err
	}
	if err := writeTarget(n.Target, val, ctx); err != nil {
		return None, err
	}
	return val, nil
}

// writeTarget stores val into an assignable expression.
func writeTarget(target Node, val Value, ctx *Context) error {
	switch t := target.(type) {
	case *Ident:
		if reservedConstants[t.Name] {
			return rtErr(t.Span(), ctx, "cannot assign to reserved constant "+quoted(t.Name))
		}
		if err := ctx.Scope.Set(t.Name, val); err != nil {
			return rtErr(t.Span(), ctx, err.Error())
		}
		return nil
	case *PropAccess:
		obj, err := eval(t.Object, ctx)
		if err != nil {
			return err
		}
		return writeProperty(obj, t, val, ctx)
	case *IndexAccess:
		obj, err := eval(t.Object, ctx)
		if err != nil {
			return err
		}
		idx, err := eval(t.Index, ctx)
		if err != nil {
			return err
		}
		return writeIndex(obj, idx, val, t, ctx)
	case *ListPush:
		obj, err := eval(t.Object, ctx)
		if err != nil {
			return err
		}
		if obj.Tag != VTList {
			return rtErr(t.Span(), ctx, "the push marker xs[] requires a list, got "+obj.Tag.String())
		}
		lo := obj.Data.(*ListObject)
		lo.Elements = append(lo.Elements, val)
		return nil
	default:
		return rtErr(target.Span(), ctx, "invalid assignment target")
	}
}

func writeIndex(obj, idx, val Value, at Node, ctx *Context) error {
	switch obj.Tag {
	case VTList:
		lo := obj.Data.(*ListObject)
		i, ok := normalizeIndex(idx, len(lo.Elements))
		if !ok {
			return rtErr(at.Span(), ctx, "invalid list index")
		}
		if i < 0 || i >= len(lo.Elements) {
			return rtErr(at.Span(), ctx, "list index out of range")
		}
		lo.Elements[i] = val
		return nil
	case VTDict:
		if idx.Tag != VTString {
			return rtErr(at.Span(), ctx, "a dictionary key must be a string")
		}
		obj.Data.(*DictObject).Set(idx.Data.(string), val)
		return nil
	default:
		return rtErr(at.Span(), ctx, "cannot index into a "+obj.Tag.String())
	}
}

// resolvedTarget is an assignable location whose object and index
// subexpressions have already been evaluated, so a read-modify-write runs
// each of them exactly once.
type resolvedTarget struct {
	read  func() (Value, error)
	write func(Value) error
}

func resolveTarget(target Node, ctx *Context) (resolvedTarget, error) {
	switch t := target.(type) {
	case *Ident:
		return resolvedTarget{
			read:  func() (Value, error) { return eval(t, ctx) },
			write: func(v Value) error { return writeTarget(t, v, ctx) },
		}, nil
	case *PropAccess:
		obj, err := eval(t.Object, ctx)
		if err != nil {
			return resolvedTarget{}, err
		}
		return resolvedTarget{
			read:  func() (Value, error) { return readProperty(obj, t, ctx) },
			write: func(v Value) error { return writeProperty(obj, t, v, ctx) },
		}, nil
	case *IndexAccess:
		obj, err := eval(t.Object, ctx)
		if err != nil {
			return resolvedTarget{}, err
		}
		idx, err := eval(t.Index, ctx)
		if err != nil {
			return resolvedTarget{}, err
		}
		return resolvedTarget{
			read:  func() (Value, error) { return readIndex(obj, idx, t, ctx) },
			write: func(v Value) error { return writeIndex(obj, idx, v, t, ctx) },
		}, nil
	case *ListPush:
		return resolvedTarget{}, rtErr(t.Span(), ctx, "the push marker xs[] may only be assigned to")
	default:
		return resolvedTarget{}, rtErr(target.Span(), ctx, "invalid assignment target")
	}
}

func evalCompound(n *CompoundAssign, ctx *Context) (Value, error) {
	loc, err := resolveTarget(n.Target, ctx)
	if err != nil {
		return None, err
	}
	cur, err := loc.read()
	if err != nil {
		return None, err
	}
	rhs, err := eval(n.Value, ctx)
	if err != nil {
		return None, err
	}
	next, err := applyBinary(n.Op, cur, rhs)
	if err != nil {
		return None, opError(err, n.Span(), ctx)
	}
	if err := loc.write(next); err != nil {
		return None, err
	}
	return next, nil
}

// evalIncDec updates the target by one. Prefix yields the new value,
// postfix the old one.
func evalIncDec(n *IncDec, ctx *Context) (Value, error) {
	loc, err := resolveTarget(n.Target, ctx)
	if err != nil {
		return None, err
	}
	cur, err := loc.read()
	if err != nil {
		return None, err
	}
	op := PLUS
	if n.Op == DEC {
		op = MINUS
	}
	next, err := applyBinary(op, cur, Num(1))
	if err != nil {
		return None, opError(err, n.Span(), ctx)
	}
	if err := loc.write(next); err != nil {
		return None, err
	}
	if n.Prefix {
		return next, nil
	}
	return cur, nil
}

// ---------------------------------------------------------------------------
// operators
// ---------------------------------------------------------------------------

func evalBinary(n *BinaryOp, ctx *Context) (Value, error) {
	switch n.Op {
	case KW_AND:
		left, err := eval(n.Left, ctx)
		if err != nil {
			return None, err
		}
		if !Truthy(left) {
			return Num(0), nil
		}
		right, err := eval(n.Right, ctx)
		if err != nil {
			return None, err
		}
		return boolNum(Truthy(right)), nil
	case KW_OR:
		left, err := eval(n.Left, ctx)
		if err != nil {
			return None, err
		}
		if Truthy(left) {
			return Num(1), nil
		}
		right, err := eval(n.Right, ctx)
		if err != nil {
			return None, err
		}
		return boolNum(Truthy(right)), nil
	case COALESCE:
		// left unless falsy-or-none, then right
		left, err := eval(n.Left, ctx)
		if err != nil {
			return None, err
		}
		if Truthy(left) {
			return left, nil
		}
		return eval(n.Right, ctx)
	}

	left, err := eval(n.Left, ctx)
	if err != nil {
		return None, err
	}
	right, err := eval(n.Right, ctx)
	if err != nil {
		return None, err
	}
	v, err := applyBinary(n.Op, left, right)
	if err != nil {
		return None, opError(err, n.Span(), ctx)
	}
	return v, nil
}

func evalUnary(n *UnaryOp, ctx *Context) (Value, error) {
	operand, err := eval(n.Operand, ctx)
	if err != nil {
		return None, err
	}
	v, err := applyUnary(n.Op, operand)
	if err != nil {
		return None, opError(err, n.Span(), ctx)
	}
	return v, nil
}

// opError promotes an operator failure (ops.go) into a spanned RuntimeError.
func opError(err error, at Span, ctx *Context) error {
	if f, ok := err.(*opFailure); ok {
		return &RuntimeError{Span: at, Msg: f.Msg, Context: ctx.Name, DivZero: f.DivZero}
	}
	return err
}

// ---------------------------------------------------------------------------
// control flow
// ---------------------------------------------------------------------------

// evalIf yields the value of the taken branch, or None when nothing runs.
func evalIf(n *If, ctx *Context) (Value, error) {
	for _, c := range n.Cases {
		cond, err := eval(c.Cond, ctx)
		if err != nil {
			return None, err
		}
		if Truthy(cond) {
			return evalBlock(c.Body, ctx)
		}
	}
	if n.Else != nil {
		return evalBlock(n.Else, ctx)
	}
	return None, nil
}

func evalWhile(n *While, ctx *Context) (Value, error) {
	for {
		cond, err := eval(n.Cond, ctx)
		if err != nil {
			return None, err
		}
		if !Truthy(cond) {
			return None, nil
		}
		if stop, err := runLoopBody(n.Body, ctx); err != nil {
			return None, err
		} else if stop {
			return None, nil
		}
	}
}

// evalFor runs the counted loop. The counter lives in a child scope; the
// end bound is re-evaluated each pass so the body can move the goalposts.
func evalFor(n *For, ctx *Context) (Value, error) {
	startV, err := eval(n.Start, ctx)
	if err != nil {
		return None, err
	}
	start, ok := asNumber(startV)
	if !ok {
		return None, rtErr(n.Start.Span(), ctx, "the loop start must be a number")
	}
	endV, err := eval(n.End, ctx)
	if err != nil {
		return None, err
	}
	end, ok := asNumber(endV)
	if !ok {
		return None, rtErr(n.End.Span(), ctx, "the loop end must be a number")
	}

	var step float64
	if n.Step != nil {
		stepV, err := eval(n.Step, ctx)
		if err != nil {
			return None, err
		}
		step, ok = asNumber(stepV)
		if !ok {
			return None, rtErr(n.Step.Span(), ctx, "the loop step must be a number")
		}
		if step == 0 {
			return None, rtErr(n.Step.Span(), ctx, "the loop step cannot be zero")
		}
	} else {
		switch {
		case start < end:
			step = 1
		case start > end:
			step = -1
		default:
			return None, rtErr(n.Span(), ctx, "cannot infer a step when the loop start equals its end")
		}
	}

	loopCtx := ctx.BlockChild()
	loopCtx.Scope.Define(n.VarName, Num(start))
	for i := start; ; i += step {
		// the end bound is live: recompute it before each pass
		endV, err := eval(n.End, ctx)
		if err != nil {
			return None, err
		}
		end, ok = asNumber(endV)
		if !ok {
			return None, rtErr(n.End.Span(), ctx, "the loop end must be a number")
		}
		if (step > 0 && i > end) || (step < 0 && i < end) {
			return None, nil
		}
		loopCtx.Scope.Define(n.VarName, Num(i))
		if stop, err := runLoopBody(n.Body, loopCtx); err != nil {
			return None, err
		} else if stop {
			return None, nil
		}
	}
}

func evalForeach(n *Foreach, ctx *Context) (Value, error) {
	src, err := eval(n.Source, ctx)
	if err != nil {
		return None, err
	}
	loopCtx := ctx.BlockChild()
	loopCtx.Scope.Define(n.ValueName, None)
	if n.KeyName != "" {
		loopCtx.Scope.Define(n.KeyName, None)
	}

	switch src.Tag {
	case VTList:
		elems := src.Data.(*ListObject).Elements
		for i, el := range elems {
			if n.KeyName != "" {
				loopCtx.Scope.Define(n.KeyName, Num(float64(i)))
			}
			loopCtx.Scope.Define(n.ValueName, el)
			if stop, err := runLoopBody(n.Body, loopCtx); err != nil {
				return None, err
			} else if stop {
				return None, nil
			}
		}
		return None, nil
	case VTDict:
		d := src.Data.(*DictObject)
		for _, k := range d.Keys {
			v, _ := d.Get(k)
			if n.KeyName != "" {
				loopCtx.Scope.Define(n.KeyName, Str(k))
				loopCtx.Scope.Define(n.ValueName, v)
			} else {
				loopCtx.Scope.Define(n.ValueName, v)
			}
			if stop, err := runLoopBody(n.Body, loopCtx); err != nil {
				return None, err
			} else if stop {
				return None, nil
			}
		}
		return None, nil
	default:
		return None, rtErr(n.Source.Span(), ctx, "cannot iterate over a "+src.Tag.String())
	}
}

// runLoopBody executes one pass, absorbing continue and reporting break as
// stop=true. Other errors (including returns) propagate.
func runLoopBody(body *Block, ctx *Context) (stop bool, err error) {
	_, err = evalBlock(body, ctx)
	switch err.(type) {
	case nil:
		return false, nil
	case *breakSignal:
		return true, nil
	case *continueSignal:
		return false, nil
	default:
		return false, err
	}
}

// ---------------------------------------------------------------------------
// functions and calls
// ---------------------------------------------------------------------------

// evalFuncDef builds the function value, capturing the defining scope. A
// named definition also binds itself, which is what allows recursion.
func evalFuncDef(n *FuncDef, ctx *Context) (Value, error) {
	params := make([]FunParam, len(n.Params))
	for i, p := range n.Params {
		params[i] = FunParam{Name: p.Name, Default: p.Default}
	}
	fn := &Fun{
		Name:       n.Name,
		Params:     params,
		Body:       n.Body,
		AutoReturn: n.AutoReturn,
		Scope:      ctx.Scope,
	}
	v := Value{Tag: VTFunc, Data: fn}
	if n.Name != "" {
		if ctx.Scope.Has(n.Name) {
			return None, rtErr(n.Span(), ctx, quoted(n.Name)+" is already declared in this scope")
		}
		ctx.Scope.Define(n.Name, v)
	}
	return v, nil
}

func evalCall(n *Call, ctx *Context) (Value, error) {
	// a call through a property access may be a method call
	if pa, ok := n.Callee.(*PropAccess); ok {
		obj, err := eval(pa.Object, ctx)
		if err != nil {
			return None, err
		}
		if obj.Tag == VTInstance {
			return callMethod(obj.Data.(*Instance), pa, n.Args, ctx)
		}
		callee, err := readProperty(obj, pa, ctx)
		if err != nil {
			return None, err
		}
		return callValue(callee, n, ctx)
	}

	callee, err := eval(n.Callee, ctx)
	if err != nil {
		return None, err
	}
	return callValue(callee, n, ctx)
}

func callValue(callee Value, n *Call, ctx *Context) (Value, error) {
	if callee.Tag != VTFunc {
		return None, rtErr(n.Span(), ctx, "cannot call a "+callee.Tag.String())
	}
	args := make([]Value, 0, len(n.Args))
	for _, a := range n.Args {
		v, err := eval(a, ctx)
		if err != nil {
			return None, err
		}
		args = append(args, v)
	}
	return invoke(callee.Data.(*Fun), args, n.Span(), ctx, nil)
}

// invoke runs fn with positional args. inClass, when non-nil, marks the
// frame as executing inside that class's own body for visibility checks;
// the caller is responsible for binding "this" via extra definitions on the
// returned frame pattern (callMethod does it before invoking the body, so
// invoke takes bindThis instead).
func invoke(fn *Fun, args []Value, at Span, ctx *Context, bind func(*Scope)) (Value, error) {
	if len(args) < fn.MandatoryArity() || len(args) > len(fn.Params) {
		return None, rtErr(at, ctx, arityMsg(fn, len(args)))
	}

	frame := ctx.Child(fn.DisplayName(), fn.Scope)
	frame.InClass = fn.Owner
	if bind != nil {
		bind(frame.Scope)
	}
	for i, p := range fn.Params {
		if i < len(args) {
			frame.Scope.Define(p.Name, args[i])
			continue
		}
		// default expressions run in the new frame, so earlier parameters
		// are in scope for later defaults
		dv, err := eval(p.Default, frame)
		if err != nil {
			return None, err
		}
		frame.Scope.Define(p.Name, dv)
	}

	v, err := eval(fn.Body, frame)
	if err != nil {
		if rs, ok := err.(*returnSignal); ok {
			return rs.value, nil
		}
		// a break or continue must not cross the call boundary into the
		// caller's loop
		return None, signalToError(err, frame)
	}
	if fn.AutoReturn {
		return v, nil
	}
	return None, nil
}

func arityMsg(fn *Fun, got int) string {
	name := fn.DisplayName()
	mand := fn.MandatoryArity()
	if mand == len(fn.Params) {
		return fmt.Sprintf("%s expects %d argument(s), got %d", name, mand, got)
	}
	return fmt.Sprintf("%s expects between %d and %d argument(s), got %d", name, mand, len(fn.Params), got)
}

// ---------------------------------------------------------------------------
// property access, indexing, slicing
// ---------------------------------------------------------------------------

func evalPropRead(n *PropAccess, ctx *Context) (Value, error) {
	obj, err := eval(n.Object, ctx)
	if err != nil {
		return None, err
	}
	return readProperty(obj, n, ctx)
}

func readProperty(obj Value, n *PropAccess, ctx *Context) (Value, error) {
	switch obj.Tag {
	case VTDict:
		v, ok := obj.Data.(*DictObject).Get(n.Name)
		if !ok {
			return None, rtErr(n.Span(), ctx, "unknown dictionary key "+quoted(n.Name))
		}
		return v, nil
	case VTEnum:
		e := obj.Data.(*EnumObject)
		ord, ok := e.Ordinal(n.Name)
		if !ok {
			return None, rtErr(n.Span(), ctx, fmt.Sprintf("enumeration %s has no member %q", e.Name, n.Name))
		}
		return Num(float64(ord)), nil
	case VTInstance:
		return readInstanceMember(obj.Data.(*Instance), n, ctx)
	default:
		return None, rtErr(n.Span(), ctx, "cannot read a property of a "+obj.Tag.String())
	}
}

func evalIndexRead(n *IndexAccess, ctx *Context) (Value, error) {
	obj, err := eval(n.Object, ctx)
	if err != nil {
		return None, err
	}
	idx, err := eval(n.Index, ctx)
	if err != nil {
		return None, err
	}
	return readIndex(obj, idx, n, ctx)
}

func readIndex(obj, idx Value, at Node, ctx *Context) (Value, error) {
	switch obj.Tag {
	case VTList:
		elems := obj.Data.(*ListObject).Elements
		i, ok := normalizeIndex(idx, len(elems))
		if !ok {
			return None, rtErr(at.Span(), ctx, "invalid list index")
		}
		if i < 0 || i >= len(elems) {
			return None, rtErr(at.Span(), ctx, "list index out of range")
		}
		return elems[i], nil
	case VTString:
		// index over runes, not bytes
		rs := []rune(obj.Data.(string))
		i, ok := normalizeIndex(idx, len(rs))
		if !ok {
			return None, rtErr(at.Span(), ctx, "invalid string index")
		}
		if i < 0 || i >= len(rs) {
			return None, rtErr(at.Span(), ctx, "string index out of range")
		}
		return Str(string(rs[i])), nil
	case VTDict:
		if idx.Tag != VTString {
			return None, rtErr(at.Span(), ctx, "a dictionary key must be a string")
		}
		v, ok := obj.Data.(*DictObject).Get(idx.Data.(string))
		if !ok {
			return None, rtErr(at.Span(), ctx, "unknown dictionary key "+quoted(idx.Data.(string)))
		}
		return v, nil
	default:
		return None, rtErr(at.Span(), ctx, "cannot index into a "+obj.Tag.String())
	}
}

// normalizeIndex turns a numeric index value into an int, counting negative
// indices from the end.
func normalizeIndex(idx Value, length int) (int, bool) {
	f, ok := asNumber(idx)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	i := int(f)
	if i < 0 {
		i += length
	}
	return i, true
}

// evalSlice returns a new list or string covering [low, high). Bounds are
// clamped; a missing bound means the corresponding end.
func evalSlice(n *SliceAccess, ctx *Context) (Value, error) {
	obj, err := eval(n.Object, ctx)
	if err != nil {
		return None, err
	}
	var length int
	var runes []rune
	switch obj.Tag {
	case VTList:
		length = len(obj.Data.(*ListObject).Elements)
	case VTString:
		// slice over runes, not bytes
		runes = []rune(obj.Data.(string))
		length = len(runes)
	default:
		return None, rtErr(n.Span(), ctx, "cannot slice a "+obj.Tag.String())
	}

	low, high := 0, length
	if n.Low != nil {
		v, err := eval(n.Low, ctx)
		if err != nil {
			return None, err
		}
		i, ok := normalizeIndex(v, length)
		if !ok {
			return None, rtErr(n.Low.Span(), ctx, "invalid slice bound")
		}
		low = i
	}
	if n.High != nil {
		v, err := eval(n.High, ctx)
		if err != nil {
			return None, err
		}
		i, ok := normalizeIndex(v, length)
		if !ok {
			return None, rtErr(n.High.Span(), ctx, "invalid slice bound")
		}
		high = i
	}
	if low < 0 {
		low = 0
	}
	if high > length {
		high = length
	}
	if low > high {
		low = high
	}

	if obj.Tag == VTString {
		return Str(string(runes[low:high])), nil
	}
	src := obj.Data.(*ListObject).Elements
	out := make([]Value, high-low)
	copy(out, src[low:high])
	return List(out...), nil
}

// ---------------------------------------------------------------------------
// classes, instances, enumerations
// ---------------------------------------------------------------------------

func evalClassDef(n *ClassDef, ctx *Context) (Value, error) {
	if ctx.Scope.Has(n.Name) {
		return None, rtErr(n.Span(), ctx, quoted(n.Name)+" is already declared in this scope")
	}

	var parent *Class
	if n.Parent != "" {
		pv, ok := ctx.Scope.Get(n.Parent)
		if !ok || pv.Tag != VTClass {
			return None, rtErr(n.Span(), ctx, "unknown parent class "+quoted(n.Parent))
		}
		parent = pv.Data.(*Class)
	}

	cls := &Class{
		Name:    n.Name,
		Parent:  parent,
		Props:   map[string]*ClassEntry{},
		Methods: map[string]*ClassEntry{},
		Getters: map[string]*ClassEntry{},
		Setters: map[string]*ClassEntry{},
		Scope:   ctx.Scope,
	}

	for _, m := range n.Members {
		entry := &ClassEntry{Visibility: m.Visibility, Override: m.Override}
		var table map[string]*ClassEntry
		switch m.Kind {
		case MemberProperty:
			entry.Init = m.Value
			table = cls.Props
		case MemberMethod:
			entry.Fun = memberFun(m.Value.(*FuncDef), ctx.Scope, cls)
			table = cls.Methods
		case MemberGetter:
			entry.Fun = memberFun(m.Value.(*FuncDef), ctx.Scope, cls)
			table = cls.Getters
		case MemberSetter:
			entry.Fun = memberFun(m.Value.(*FuncDef), ctx.Scope, cls)
			table = cls.Setters
		}
		if _, dup := table[m.Name]; dup {
			return None, rtErr(m.At, ctx, fmt.Sprintf("duplicate member %q in class %s", m.Name, n.Name))
		}
		if m.Override && (parent == nil || !inherits(parent, m.Kind, m.Name)) {
			return None, rtErr(m.At, ctx, fmt.Sprintf("%q is marked override but no parent defines it", m.Name))
		}
		table[m.Name] = entry
	}

	v := Value{Tag: VTClass, Data: cls}
	ctx.Scope.Define(n.Name, v)
	return v, nil
}

func memberFun(def *FuncDef, scope *Scope, owner *Class) *Fun {
	params := make([]FunParam, len(def.Params))
	for i, p := range def.Params {
		params[i] = FunParam{Name: p.Name, Default: p.Default}
	}
	return &Fun{
		Name:       def.Name,
		Params:     params,
		Body:       def.Body,
		AutoReturn: def.AutoReturn,
		Scope:      scope,
		Owner:      owner,
	}
}

// inherits reports whether any ancestor defines a member of the given kind.
func inherits(c *Class, kind MemberKind, name string) bool {
	for ; c != nil; c = c.Parent {
		var table map[string]*ClassEntry
		switch kind {
		case MemberProperty:
			table = c.Props
		case MemberMethod:
			table = c.Methods
		case MemberGetter:
			table = c.Getters
		default:
			table = c.Setters
		}
		if _, ok := table[name]; ok {
			return true
		}
	}
	return false
}

// evalNew allocates an instance, initializes properties root-first along
// the inheritance chain, then runs the constructor if one is defined.
func evalNew(n *New, ctx *Context) (Value, error) {
	cv, ok := ctx.Scope.Get(n.ClassName)
	if !ok || cv.Tag != VTClass {
		return None, rtErr(n.Span(), ctx, "unknown class "+quoted(n.ClassName))
	}
	cls := cv.Data.(*Class)

	inst := &Instance{Class: cls, Fields: map[string]Value{}}
	self := Value{Tag: VTInstance, Data: inst}

	// root-first: parents initialize before children so a child initializer
	// can shadow an inherited default
	var chain []*Class
	for c := cls; c != nil; c = c.Parent {
		chain = append([]*Class{c}, chain...)
	}
	for _, c := range chain {
		initCtx := ctx.Child(c.Name, c.Scope)
		initCtx.InClass = c
		initCtx.Scope.Define("this", self)
		for name, entry := range c.Props {
			val := None
			if entry.Init != nil {
				v, err := eval(entry.Init, initCtx)
				if err != nil {
					return None, err
				}
				val = v
			}
			inst.Fields[name] = val
		}
	}

	if ctor, owner := lookupMember(cls, MemberMethod, "constructor"); ctor != nil {
		args := make([]Value, 0, len(n.Args))
		for _, a := range n.Args {
			v, err := eval(a, ctx)
			if err != nil {
				return None, err
			}
			args = append(args, v)
		}
		if _, err := invokeMethod(inst, ctor.Fun, owner, args, n.Span(), ctx); err != nil {
			return None, err
		}
	} else if len(n.Args) > 0 {
		return None, rtErr(n.Span(), ctx, fmt.Sprintf("class %s has no constructor but got %d argument(s)", cls.Name, len(n.Args)))
	}

	return self, nil
}

// lookupMember walks the class chain most-derived-first and returns the
// entry together with the class that defines it.
func lookupMember(c *Class, kind MemberKind, name string) (*ClassEntry, *Class) {
	for ; c != nil; c = c.Parent {
		var table map[string]*ClassEntry
		switch kind {
		case MemberProperty:
			table = c.Props
		case MemberMethod:
			table = c.Methods
		case MemberGetter:
			table = c.Getters
		default:
			table = c.Setters
		}
		if e, ok := table[name]; ok {
			return e, c
		}
	}
	return nil, nil
}

// accessAllowed decides whether the current context may touch a member with
// the given visibility defined by owner.
func accessAllowed(vis Visibility, owner *Class, ctx *Context) bool {
	switch vis {
	case Public:
		return true
	case Private:
		return ctx.InClass == owner
	default: // Protected
		return ctx.InClass != nil && ctx.InClass.IsSubclassOf(owner)
	}
}

func visibilityErr(vis Visibility, owner *Class, name string, at Span, ctx *Context) error {
	return rtErr(at, ctx, fmt.Sprintf("%q is %s in class %s and cannot be accessed here", name, vis, owner.Name))
}

// readInstanceMember resolves a property read on an instance. Getters take
// precedence over stored fields, then methods (read as bound values).
func readInstanceMember(inst *Instance, n *PropAccess, ctx *Context) (Value, error) {
	if g, owner := lookupMember(inst.Class, MemberGetter, n.Name); g != nil {
		if !accessAllowed(g.Visibility, owner, ctx) {
			return None, visibilityErr(g.Visibility, owner, n.Name, n.Span(), ctx)
		}
		return invokeMethod(inst, g.Fun, owner, nil, n.Span(), ctx)
	}
	if p, owner := lookupMember(inst.Class, MemberProperty, n.Name); p != nil {
		if !accessAllowed(p.Visibility, owner, ctx) {
			return None, visibilityErr(p.Visibility, owner, n.Name, n.Span(), ctx)
		}
		return inst.Fields[n.Name], nil
	}
	if m, owner := lookupMember(inst.Class, MemberMethod, n.Name); m != nil {
		if !accessAllowed(m.Visibility, owner, ctx) {
			return None, visibilityErr(m.Visibility, owner, n.Name, n.Span(), ctx)
		}
		return Value{Tag: VTFunc, Data: boundMethod(inst, m.Fun, owner)}, nil
	}
	return None, rtErr(n.Span(), ctx, fmt.Sprintf("%s has no member %q", inst.Class.Name, n.Name))
}

// writeProperty resolves a property write: setters intercept writes, then
// stored fields.
func writeProperty(obj Value, n *PropAccess, val Value, ctx *Context) error {
	switch obj.Tag {
	case VTDict:
		obj.Data.(*DictObject).Set(n.Name, val)
		return nil
	case VTInstance:
		inst := obj.Data.(*Instance)
		if s, owner := lookupMember(inst.Class, MemberSetter, n.Name); s != nil {
			if !accessAllowed(s.Visibility, owner, ctx) {
				return visibilityErr(s.Visibility, owner, n.Name, n.Span(), ctx)
			}
			_, err := invokeMethod(inst, s.Fun, owner, []Value{val}, n.Span(), ctx)
			return err
		}
		if p, owner := lookupMember(inst.Class, MemberProperty, n.Name); p != nil {
			if !accessAllowed(p.Visibility, owner, ctx) {
				return visibilityErr(p.Visibility, owner, n.Name, n.Span(), ctx)
			}
			inst.Fields[n.Name] = val
			return nil
		}
		return rtErr(n.Span(), ctx, fmt.Sprintf("%s has no member %q", inst.Class.Name, n.Name))
	default:
		return rtErr(n.Span(), ctx, "cannot write a property of a "+obj.Tag.String())
	}
}

// callMethod dispatches obj.name(args) through the class chain.
func callMethod(inst *Instance, pa *PropAccess, argNodes []Node, ctx *Context) (Value, error) {
	m, owner := lookupMember(inst.Class, MemberMethod, pa.Name)
	if m == nil {
		// a field holding a function is callable too
		v, err := readInstanceMember(inst, pa, ctx)
		if err != nil {
			return None, err
		}
		if v.Tag != VTFunc {
			return None, rtErr(pa.Span(), ctx, "cannot call a "+v.Tag.String())
		}
		args, err := evalArgs(argNodes, ctx)
		if err != nil {
			return None, err
		}
		return invoke(v.Data.(*Fun), args, pa.Span(), ctx, nil)
	}
	if !accessAllowed(m.Visibility, owner, ctx) {
		return None, visibilityErr(m.Visibility, owner, pa.Name, pa.Span(), ctx)
	}
	args, err := evalArgs(argNodes, ctx)
	if err != nil {
		return None, err
	}
	return invokeMethod(inst, m.Fun, owner, args, pa.Span(), ctx)
}

func evalArgs(nodes []Node, ctx *Context) ([]Value, error) {
	args := make([]Value, 0, len(nodes))
	for _, a := range nodes {
		v, err := eval(a, ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// invokeMethod runs fn as a method of inst: the frame binds "this" and is
// marked as executing inside the defining class for visibility checks.
func invokeMethod(inst *Instance, fn *Fun, owner *Class, args []Value, at Span, ctx *Context) (Value, error) {
	self := Value{Tag: VTInstance, Data: inst}
	v, err := invoke(fn, args, at, ctx, func(s *Scope) {
		s.Define("this", self)
	})
	if err != nil {
		return None, err
	}
	return v, nil
}

// boundMethod wraps fn so a method read as a value keeps its receiver.
func boundMethod(inst *Instance, fn *Fun, owner *Class) *Fun {
	self := Value{Tag: VTInstance, Data: inst}
	bound := *fn
	wrapped := NewScope(fn.Scope)
	wrapped.Define("this", self)
	bound.Scope = wrapped
	return &bound
}

func evalEnumDef(n *EnumDef, ctx *Context) (Value, error) {
	if ctx.Scope.Has(n.Name) {
		return None, rtErr(n.Span(), ctx, quoted(n.Name)+" is already declared in this scope")
	}
	v := Value{Tag: VTEnum, Data: &EnumObject{Name: n.Name, Members: n.Members}}
	ctx.Scope.Define(n.Name, v)
	return v, nil
}
