// ops.go — operator semantics over runtime values.
//
// Every binary operator is one function performing an explicit match over
// the (left tag, right tag) pair, so the whole coercion table is auditable
// in one place (and exercised as a table by ops_test.go):
//
//   - none is a two-sided identity for "+" (none + none is 0), and any none
//     operand of "^" makes the result 1
//   - "+" concatenates when either side is a string, appends/concatenates
//     for lists (operand order decides element order), merges dictionaries
//     (right wins on key collisions), and normalizes list+dictionary to a
//     list holding the dictionary as one element
//   - "*" repeats strings and lists by a number
//   - "/" and "%" need number-coercible operands and fail on a zero (or
//     none) divisor with a DivisionByZero-flagged failure
//   - "==" is deep for lists/dictionaries, numeric across number↔string,
//     and none equals only itself and numeric zero
//   - orderings fall back across kinds: a list or dictionary compares by
//     its length/size, none as zero
//
// Failures are *opFailure values; the interpreter attaches span and context
// and surfaces them as *RuntimeError.
package versa

import (
	"fmt"
	"math"
	"strings"
)

// opFailure reports invalid operands or division by zero; the interpreter
// converts it into a positioned *RuntimeError.
type opFailure struct {
	Msg     string
	DivZero bool
}

func (e *opFailure) Error() string { return e.Msg }

func invalidOperands(op string, l, r Value) *opFailure {
	return &opFailure{Msg: fmt.Sprintf("invalid operands for %q: %s and %s", op, l.Tag, r.Tag)}
}

// boolNum maps a Go bool onto the language's Number booleans.
func boolNum(b bool) Value {
	if b {
		return Num(1)
	}
	return Num(0)
}

// applyBinary evaluates "l op r" for every non-short-circuiting operator.
// KW_AND / KW_OR / COALESCE never reach here; the interpreter evaluates them
// lazily.
func applyBinary(op TokenType, l, r Value) (Value, error) {
	switch op {
	case PLUS:
		return opAdd(l, r)
	case MINUS:
		return opSub(l, r)
	case MULT:
		return opMul(l, r)
	case DIV:
		return opDiv(l, r)
	case MOD:
		return opMod(l, r)
	case POW:
		return opPow(l, r)
	case EQ:
		return boolNum(Equals(l, r)), nil
	case NEQ:
		return boolNum(!Equals(l, r)), nil
	case LESS, LESS_EQ, GREATER, GREATER_EQ:
		return opCompare(op, l, r)
	default:
		return None, &opFailure{Msg: fmt.Sprintf("unknown binary operator %d", op)}
	}
}

// applyUnary evaluates prefix "-" and "not".
func applyUnary(op TokenType, v Value) (Value, error) {
	switch op {
	case MINUS:
		f, ok := asNumber(v)
		if !ok {
			return None, &opFailure{Msg: fmt.Sprintf("cannot negate a %s", v.Tag)}
		}
		return Num(-f), nil
	case KW_NOT:
		return boolNum(!Truthy(v)), nil
	default:
		return None, &opFailure{Msg: fmt.Sprintf("unknown unary operator %d", op)}
	}
}

//-----------------------------------------------------------------------------
// Addition
//-----------------------------------------------------------------------------

func opAdd(l, r Value) (Value, error) {
	// none is the additive identity on both sides; none + none is 0.
	if l.Tag == VTNone && r.Tag == VTNone {
		return Num(0), nil
	}
	if l.Tag == VTNone {
		return r, nil
	}
	if r.Tag == VTNone {
		return l, nil
	}

	if l.Tag == VTNumber && r.Tag == VTNumber {
		return Num(l.Data.(float64) + r.Data.(float64)), nil
	}

	// a string on either side concatenates via string conversion
	if l.Tag == VTString || r.Tag == VTString {
		return Str(l.String() + r.String()), nil
	}

	if l.Tag == VTList && r.Tag == VTList {
		a := l.Data.(*ListObject).Elements
		b := r.Data.(*ListObject).Elements
		out := make([]Value, 0, len(a)+len(b))
		out = append(out, a...)
		out = append(out, b...)
		return List(out...), nil
	}

	// list + dictionary (either order): a list holding the dictionary as one
	// element, left operand's elements first
	if l.Tag == VTList && r.Tag == VTDict {
		a := l.Data.(*ListObject).Elements
		out := make([]Value, 0, len(a)+1)
		out = append(out, a...)
		return List(append(out, r)...), nil
	}
	if l.Tag == VTDict && r.Tag == VTList {
		b := r.Data.(*ListObject).Elements
		out := make([]Value, 0, len(b)+1)
		out = append(out, l)
		return List(append(out, b...)...), nil
	}

	// list + scalar appends; scalar + list stores the scalar last as well
	// ([0] + 1 and 1 + [0] both yield [0, 1])
	if l.Tag == VTList {
		a := l.Data.(*ListObject).Elements
		out := make([]Value, 0, len(a)+1)
		out = append(out, a...)
		return List(append(out, r)...), nil
	}
	if r.Tag == VTList {
		b := r.Data.(*ListObject).Elements
		out := make([]Value, 0, len(b)+1)
		out = append(out, b...)
		return List(append(out, l)...), nil
	}

	// dictionary merge: right operand wins on collision
	if l.Tag == VTDict && r.Tag == VTDict {
		a := l.Data.(*DictObject)
		b := r.Data.(*DictObject)
		out := &DictObject{Entries: map[string]Value{}}
		for _, k := range a.Keys {
			out.Set(k, a.Entries[k])
		}
		for _, k := range b.Keys {
			out.Set(k, b.Entries[k])
		}
		return Value{Tag: VTDict, Data: out}, nil
	}

	return None, invalidOperands("+", l, r)
}

//-----------------------------------------------------------------------------
// Subtraction, multiplication, division, modulo, power
//-----------------------------------------------------------------------------

func opSub(l, r Value) (Value, error) {
	lf, lok := asNumber(l)
	rf, rok := asNumber(r)
	if !lok || !rok {
		return None, invalidOperands("-", l, r)
	}
	return Num(lf - rf), nil
}

func opMul(l, r Value) (Value, error) {
	if l.Tag == VTNumber && r.Tag == VTNumber {
		return Num(l.Data.(float64) * r.Data.(float64)), nil
	}

	// string * number repeats the string
	if l.Tag == VTString && r.Tag == VTNumber {
		return repeatString(l.Data.(string), r.Data.(float64))
	}
	if l.Tag == VTNumber && r.Tag == VTString {
		return repeatString(r.Data.(string), l.Data.(float64))
	}

	// list * number repeats the list's elements
	if l.Tag == VTList && r.Tag == VTNumber {
		return repeatList(l.Data.(*ListObject), r.Data.(float64))
	}
	if l.Tag == VTNumber && r.Tag == VTList {
		return repeatList(r.Data.(*ListObject), l.Data.(float64))
	}

	// none multiplies as zero, like the other arithmetic fallbacks
	lf, lok := asNumber(l)
	rf, rok := asNumber(r)
	if lok && rok {
		return Num(lf * rf), nil
	}
	return None, invalidOperands("*", l, r)
}

func repeatString(s string, nf float64) (Value, error) {
	n := int(nf)
	if n < 0 {
		return None, &opFailure{Msg: "cannot repeat a string a negative number of times"}
	}
	return Str(strings.Repeat(s, n)), nil
}

func repeatList(lst *ListObject, nf float64) (Value, error) {
	n := int(nf)
	if n < 0 {
		return None, &opFailure{Msg: "cannot repeat a list a negative number of times"}
	}
	out := make([]Value, 0, n*len(lst.Elements))
	for i := 0; i < n; i++ {
		out = append(out, lst.Elements...)
	}
	return List(out...), nil
}

func opDiv(l, r Value) (Value, error) {
	lf, lok := asNumber(l)
	rf, rok := asNumber(r)
	if !lok || !rok {
		return None, invalidOperands("/", l, r)
	}
	if rf == 0 || r.Tag == VTNone {
		return None, &opFailure{Msg: "division by zero", DivZero: true}
	}
	return Num(lf / rf), nil
}

func opMod(l, r Value) (Value, error) {
	lf, lok := asNumber(l)
	rf, rok := asNumber(r)
	if !lok || !rok {
		return None, invalidOperands("%", l, r)
	}
	if rf == 0 || r.Tag == VTNone {
		return None, &opFailure{Msg: "modulo by zero", DivZero: true}
	}
	return Num(math.Mod(lf, rf)), nil
}

func opPow(l, r Value) (Value, error) {
	// a none operand neutralizes exponentiation entirely: the result is 1
	if l.Tag == VTNone || r.Tag == VTNone {
		return Num(1), nil
	}

	// distribute element-wise over a list operand
	if l.Tag == VTList {
		return powList(l.Data.(*ListObject), r, true)
	}
	if r.Tag == VTList {
		return powList(r.Data.(*ListObject), l, false)
	}

	lf, lok := asNumber(l)
	rf, rok := asNumber(r)
	if !lok || !rok {
		return None, invalidOperands("^", l, r)
	}
	return Num(math.Pow(lf, rf)), nil
}

func powList(lst *ListObject, other Value, listIsBase bool) (Value, error) {
	out := make([]Value, len(lst.Elements))
	for i, e := range lst.Elements {
		var v Value
		var err error
		if listIsBase {
			v, err = opPow(e, other)
		} else {
			v, err = opPow(other, e)
		}
		if err != nil {
			return None, err
		}
		out[i] = v
	}
	return List(out...), nil
}

//-----------------------------------------------------------------------------
// Equality & ordering
//-----------------------------------------------------------------------------

// Equals is the "==" relation: deep/structural for lists and dictionaries,
// value-based with numeric↔string coercion for scalars, identity for
// functions, classes, instances and enums. none equals itself and numeric
// zero, nothing else.
func Equals(l, r Value) bool {
	if l.Tag == VTNone || r.Tag == VTNone {
		if l.Tag == r.Tag {
			return true
		}
		other := l
		if l.Tag == VTNone {
			other = r
		}
		return other.Tag == VTNumber && other.Data.(float64) == 0
	}

	switch {
	case l.Tag == VTNumber && r.Tag == VTNumber:
		return l.Data.(float64) == r.Data.(float64)
	case l.Tag == VTString && r.Tag == VTString:
		return l.Data.(string) == r.Data.(string)
	case l.Tag == VTNumber && r.Tag == VTString,
		l.Tag == VTString && r.Tag == VTNumber:
		lf, lok := asNumber(l)
		rf, rok := asNumber(r)
		return lok && rok && lf == rf
	case l.Tag == VTList && r.Tag == VTList:
		a := l.Data.(*ListObject).Elements
		b := r.Data.(*ListObject).Elements
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equals(a[i], b[i]) {
				return false
			}
		}
		return true
	case l.Tag == VTDict && r.Tag == VTDict:
		a := l.Data.(*DictObject)
		b := r.Data.(*DictObject)
		if a.Len() != b.Len() {
			return false
		}
		for _, k := range a.Keys {
			bv, ok := b.Get(k)
			if !ok || !Equals(a.Entries[k], bv) {
				return false
			}
		}
		return true
	case l.Tag == r.Tag:
		// reference kinds compare by identity
		return l.Data == r.Data
	default:
		return false
	}
}

// opCompare implements < <= > >=. Same-kind strings order lexicographically;
// everything else reduces to a numeric key: numbers are themselves, none is
// zero, numeric strings parse, and lists/dictionaries compare by length/size.
func opCompare(op TokenType, l, r Value) (Value, error) {
	if l.Tag == VTString && r.Tag == VTString {
		return boolNum(compareOrd(op, strings.Compare(l.Data.(string), r.Data.(string)))), nil
	}
	lf, lok := orderKey(l)
	rf, rok := orderKey(r)
	if !lok || !rok {
		return None, invalidOperands(opLexeme(op), l, r)
	}
	switch {
	case lf < rf:
		return boolNum(compareOrd(op, -1)), nil
	case lf > rf:
		return boolNum(compareOrd(op, 1)), nil
	default:
		return boolNum(compareOrd(op, 0)), nil
	}
}

// orderKey maps a value to its ordering fallback key.
func orderKey(v Value) (float64, bool) {
	switch v.Tag {
	case VTNumber, VTNone, VTString:
		return asNumber(v)
	case VTList:
		return float64(len(v.Data.(*ListObject).Elements)), true
	case VTDict:
		return float64(v.Data.(*DictObject).Len()), true
	default:
		return 0, false
	}
}

func compareOrd(op TokenType, cmp int) bool {
	switch op {
	case LESS:
		return cmp < 0
	case LESS_EQ:
		return cmp <= 0
	case GREATER:
		return cmp > 0
	case GREATER_EQ:
		return cmp >= 0
	default:
		return false
	}
}

func opLexeme(op TokenType) string {
	switch op {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case MULT:
		return "*"
	case DIV:
		return "/"
	case MOD:
		return "%"
	case POW:
		return "^"
	case LESS:
		return "<"
	case LESS_EQ:
		return "<="
	case GREATER:
		return ">"
	case GREATER_EQ:
		return ">="
	case EQ:
		return "=="
	case NEQ:
		return "!="
	default:
		return "?"
	}
}
