// values.go — the Versa runtime value model.
//
// Value is a small tagged union: the Tag selects which Go type lives in
// Data. Numbers are float64, strings are Go strings, and the composite
// kinds (lists, dictionaries, functions, classes, instances, enums) hold a
// pointer so that mutation through one reference is visible through all.
// None is the neutral/absent value, not an error state; its operator
// behaviour (additive identity, numeric-zero comparisons) lives in ops.go.
package versa

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueTag enumerates all runtime kinds a Value may hold.
type ValueTag int

const (
	VTNone ValueTag = iota
	VTNumber
	VTString
	VTList
	VTDict
	VTFunc
	VTClass
	VTInstance
	VTEnum
)

func (t ValueTag) String() string {
	switch t {
	case VTNone:
		return "none"
	case VTNumber:
		return "number"
	case VTString:
		return "string"
	case VTList:
		return "list"
	case VTDict:
		return "dictionary"
	case VTFunc:
		return "function"
	case VTClass:
		return "class"
	case VTInstance:
		return "instance"
	case VTEnum:
		return "enum"
	default:
		return fmt.Sprintf("unknown_tag_%d", int(t))
	}
}

// Value is the universal runtime carrier.
//
// Invariants:
//   - Tag==VTNone    → Data is nil
//   - Tag==VTNumber  → Data is float64
//   - Tag==VTString  → Data is string
//   - Tag==VTList    → Data is *ListObject
//   - Tag==VTDict    → Data is *DictObject
//   - Tag==VTFunc    → Data is *Fun
//   - Tag==VTClass   → Data is *Class
//   - Tag==VTInstance→ Data is *Instance
//   - Tag==VTEnum    → Data is *EnumObject
type Value struct {
	Tag  ValueTag
	Data interface{}
}

// None is the canonical absent value.
var None = Value{Tag: VTNone}

// Num wraps a float64.
func Num(f float64) Value { return Value{Tag: VTNumber, Data: f} }

// Str wraps a string.
func Str(s string) Value { return Value{Tag: VTString, Data: s} }

// ListObject is an ordered, mutable sequence of Values.
type ListObject struct {
	Elements []Value
}

// List wraps elements into a fresh list value.
func List(elems ...Value) Value {
	return Value{Tag: VTList, Data: &ListObject{Elements: elems}}
}

// DictObject is an insertion-ordered string→Value mapping: Entries holds the
// values, Keys the insertion order. Setting a new key appends it to Keys.
type DictObject struct {
	Entries map[string]Value
	Keys    []string
}

// NewDict returns an empty ordered dictionary value.
func NewDict() Value {
	return Value{Tag: VTDict, Data: &DictObject{Entries: map[string]Value{}}}
}

// Get looks up a key.
func (d *DictObject) Get(key string) (Value, bool) {
	v, ok := d.Entries[key]
	return v, ok
}

// Set inserts or replaces a key, preserving first-insertion order.
func (d *DictObject) Set(key string, v Value) {
	if _, ok := d.Entries[key]; !ok {
		d.Keys = append(d.Keys, key)
	}
	d.Entries[key] = v
}

// Len reports the entry count.
func (d *DictObject) Len() int { return len(d.Keys) }

// FunParam is one declared parameter; a non-nil Default makes it optional.
type FunParam struct {
	Name    string
	Default Node
}

// Fun is a function value: parameter list (mandatory then optional), the
// body node, the auto-return flag for single-expression bodies, and the
// scope captured at definition time (lexical closure).
type Fun struct {
	Name       string // "" for anonymous; used in context display names
	Params     []FunParam
	Body       Node
	AutoReturn bool
	Scope      *Scope
	Owner      *Class // defining class for methods, nil for plain functions
}

// MandatoryArity counts the leading parameters without defaults.
func (f *Fun) MandatoryArity() int {
	n := 0
	for _, p := range f.Params {
		if p.Default != nil {
			break
		}
		n++
	}
	return n
}

// DisplayName names the function for error messages.
func (f *Fun) DisplayName() string {
	if f.Name == "" {
		return "<anonymous>"
	}
	return f.Name
}

// ClassEntry is one member slot of a class: its visibility/override metadata
// plus either a function (methods, getters, setters) or a property
// initializer expression (nil initializers default to none).
type ClassEntry struct {
	Visibility Visibility
	Override   bool
	Fun        *Fun // methods / getters / setters
	Init       Node // property initializer, may be nil
}

// Class is a class value: name, optional parent reference, and the four
// per-kind member tables, each keyed by member name.
type Class struct {
	Name    string
	Parent  *Class
	Props   map[string]*ClassEntry
	Methods map[string]*ClassEntry
	Getters map[string]*ClassEntry
	Setters map[string]*ClassEntry
	Scope   *Scope // defining scope; parent of every method call frame
}

// IsSubclassOf reports whether c is other or derives from it.
func (c *Class) IsSubclassOf(other *Class) bool {
	for k := c; k != nil; k = k.Parent {
		if k == other {
			return true
		}
	}
	return false
}

// Instance pairs its owning class with its own property value table.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

// EnumObject is a named, ordered set of member names. Member access yields
// the member's ordinal as a Number.
type EnumObject struct {
	Name    string
	Members []string
}

// Ordinal returns the position of a member name.
func (e *EnumObject) Ordinal(name string) (int, bool) {
	for i, m := range e.Members {
		if m == name {
			return i, true
		}
	}
	return 0, false
}

//-----------------------------------------------------------------------------
// Truthiness, coercion, rendering
//-----------------------------------------------------------------------------

// Truthy maps any value to a boolean: numbers are truthy iff non-zero,
// strings/lists/dictionaries iff non-empty, none is falsy, everything else
// is truthy.
func Truthy(v Value) bool {
	switch v.Tag {
	case VTNone:
		return false
	case VTNumber:
		return v.Data.(float64) != 0
	case VTString:
		return v.Data.(string) != ""
	case VTList:
		return len(v.Data.(*ListObject).Elements) != 0
	case VTDict:
		return v.Data.(*DictObject).Len() != 0
	default:
		return true
	}
}

// asNumber attempts numeric coercion: numbers pass through, none is zero,
// and strings parse when they hold a valid number literal.
func asNumber(v Value) (float64, bool) {
	switch v.Tag {
	case VTNumber:
		return v.Data.(float64), true
	case VTNone:
		return 0, true
	case VTString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Data.(string)), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// formatNumber renders whole numbers without a decimal part.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// String renders the value for concatenation, f-strings and the REPL.
// Strings render bare at top level but quoted inside collections.
func (v Value) String() string {
	return render(v, false)
}

func render(v Value, nested bool) string {
	switch v.Tag {
	case VTNone:
		return "none"
	case VTNumber:
		return formatNumber(v.Data.(float64))
	case VTString:
		if nested {
			return strconv.Quote(v.Data.(string))
		}
		return v.Data.(string)
	case VTList:
		elems := v.Data.(*ListObject).Elements
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = render(e, true)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case VTDict:
		d := v.Data.(*DictObject)
		parts := make([]string, 0, len(d.Keys))
		for _, k := range d.Keys {
			parts = append(parts, strconv.Quote(k)+": "+render(d.Entries[k], true))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case VTFunc:
		return "<function " + v.Data.(*Fun).DisplayName() + ">"
	case VTClass:
		return "<class " + v.Data.(*Class).Name + ">"
	case VTInstance:
		return "<instance of " + v.Data.(*Instance).Class.Name + ">"
	case VTEnum:
		return "<enum " + v.Data.(*EnumObject).Name + ">"
	default:
		return "<unknown>"
	}
}
