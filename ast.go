// ast.go — the Versa AST node set.
//
// Nodes are a closed set of plain structs behind the Node interface; the
// interpreter dispatches over them with one exhaustive type switch. Every
// node carries the source span of the tokens it was built from, used for
// runtime error reporting.
package versa

// NodeKind identifies an AST node variant.
type NodeKind string

const (
	NodeNumberLit    NodeKind = "NumberLit"
	NodeStringLit    NodeKind = "StringLit"
	NodeInterpString NodeKind = "InterpString"
	NodeListLit      NodeKind = "ListLit"
	NodeDictLit      NodeKind = "DictLit"
	NodeIdent        NodeKind = "Ident"
	NodeThis         NodeKind = "This"
	NodeVarDecl      NodeKind = "VarDecl"
	NodeAssign       NodeKind = "Assign"
	NodeCompound     NodeKind = "CompoundAssign"
	NodeIncDec       NodeKind = "IncDec"
	NodeBinaryOp     NodeKind = "BinaryOp"
	NodeUnaryOp      NodeKind = "UnaryOp"
	NodeIf           NodeKind = "If"
	NodeFor          NodeKind = "For"
	NodeForeach      NodeKind = "Foreach"
	NodeWhile        NodeKind = "While"
	NodeFuncDef      NodeKind = "FuncDef"
	NodeReturn       NodeKind = "Return"
	NodeBreak        NodeKind = "Break"
	NodeContinue     NodeKind = "Continue"
	NodeCall         NodeKind = "Call"
	NodeProp         NodeKind = "PropAccess"
	NodeIndex        NodeKind = "IndexAccess"
	NodeSlice        NodeKind = "SliceAccess"
	NodeListPush     NodeKind = "ListPush"
	NodeClassDef     NodeKind = "ClassDef"
	NodeNew          NodeKind = "New"
	NodeEnumDef      NodeKind = "EnumDef"
	NodeBlock        NodeKind = "Block"
)

// Node is the shared behaviour of all AST nodes.
type Node interface {
	Kind() NodeKind
	Span() Span
}

type span struct{ At Span }

func (s span) Span() Span { return s.At }

//-----------------------------------------------------------------------------
// Literals
//-----------------------------------------------------------------------------

type NumberLit struct {
	span
	Value float64
}

func (*NumberLit) Kind() NodeKind { return NodeNumberLit }

type StringLit struct {
	span
	Value string
}

func (*StringLit) Kind() NodeKind { return NodeStringLit }

// InterpString is an f-string: literal chunks interleaved with embedded
// expressions, in source order. Evaluates to the concatenation of every
// part's string conversion.
type InterpString struct {
	span
	Parts []Node
}

func (*InterpString) Kind() NodeKind { return NodeInterpString }

type ListLit struct {
	span
	Elements []Node
}

func (*ListLit) Kind() NodeKind { return NodeListLit }

// DictEntry is one key/value pair of a dictionary literal. Key is an
// expression evaluating to the entry name ({name} sugar produces a
// StringLit key plus an Ident value).
type DictEntry struct {
	Key   Node
	Value Node
}

type DictLit struct {
	span
	Entries []DictEntry
}

func (*DictLit) Kind() NodeKind { return NodeDictLit }

//-----------------------------------------------------------------------------
// Names & assignment
//-----------------------------------------------------------------------------

type Ident struct {
	span
	Name string
}

func (*Ident) Kind() NodeKind { return NodeIdent }

type This struct{ span }

func (*This) Kind() NodeKind { return NodeThis }

type VarDecl struct {
	span
	Name  string
	Value Node
}

func (*VarDecl) Kind() NodeKind { return NodeVarDecl }

// Assign writes to a target: an Ident, a PropAccess, an IndexAccess, or a
// ListPush marker (xs[] = v appends).
type Assign struct {
	span
	Target Node
	Value  Node
}

func (*Assign) Kind() NodeKind { return NodeAssign }

// CompoundAssign is "target op= value" for op in + - * / % ^.
type CompoundAssign struct {
	span
	Target Node
	Op     TokenType // PLUS, MINUS, MULT, DIV, MOD, POW
	Value  Node
}

func (*CompoundAssign) Kind() NodeKind { return NodeCompound }

// IncDec is ++/-- applied to an assignable target. Prefix yields the updated
// value; postfix yields the value the target held before the update.
type IncDec struct {
	span
	Target Node
	Op     TokenType // INC or DEC
	Prefix bool
}

func (*IncDec) Kind() NodeKind { return NodeIncDec }

//-----------------------------------------------------------------------------
// Operators
//-----------------------------------------------------------------------------

type BinaryOp struct {
	span
	Op    TokenType // PLUS ... POW, EQ ... GREATER_EQ, KW_AND, KW_OR, COALESCE
	Left  Node
	Right Node
}

func (*BinaryOp) Kind() NodeKind { return NodeBinaryOp }

type UnaryOp struct {
	span
	Op      TokenType // MINUS or KW_NOT
	Operand Node
}

func (*UnaryOp) Kind() NodeKind { return NodeUnaryOp }

//-----------------------------------------------------------------------------
// Control flow
//-----------------------------------------------------------------------------

// IfCase is one cond/body arm of an if/elif chain.
type IfCase struct {
	Cond Node
	Body *Block
}

type If struct {
	span
	Cases []IfCase
	Else  *Block // nil when absent
}

func (*If) Kind() NodeKind { return NodeIf }

// For is the counted loop: for i = start to end [step s] { body }. End is
// inclusive and re-evaluated every iteration; a nil Step means ±1 inferred
// from the direction of start vs end.
type For struct {
	span
	VarName string
	Start   Node
	End     Node
	Step    Node // nil when defaulted
	Body    *Block
}

func (*For) Kind() NodeKind { return NodeFor }

// Foreach iterates a List or Dictionary. With two binding names a Dictionary
// yields key and value; with one, values only.
type Foreach struct {
	span
	KeyName   string // "" when a single binding name was given
	ValueName string
	Source    Node
	Body      *Block
}

func (*Foreach) Kind() NodeKind { return NodeForeach }

type While struct {
	span
	Cond Node
	Body *Block
}

func (*While) Kind() NodeKind { return NodeWhile }

// Param is a function parameter; a non-nil Default makes it optional. The
// default expression is evaluated in the call's fresh scope.
type Param struct {
	Name    string
	Default Node
}

// FuncDef is a named or anonymous function literal. AutoReturn marks a
// single-expression body (-> expr, and lambda (x) => expr) whose value is
// the call result.
type FuncDef struct {
	span
	Name       string // "" for anonymous
	Params     []Param
	Body       Node // *Block, or a bare expression when AutoReturn
	AutoReturn bool
}

func (*FuncDef) Kind() NodeKind { return NodeFuncDef }

type Return struct {
	span
	Value Node // nil returns none
}

func (*Return) Kind() NodeKind { return NodeReturn }

type Break struct{ span }

func (*Break) Kind() NodeKind { return NodeBreak }

type Continue struct{ span }

func (*Continue) Kind() NodeKind { return NodeContinue }

//-----------------------------------------------------------------------------
// Calls, property & element access
//-----------------------------------------------------------------------------

type Call struct {
	span
	Callee Node
	Args   []Node
}

func (*Call) Kind() NodeKind { return NodeCall }

type PropAccess struct {
	span
	Object Node
	Name   string
}

func (*PropAccess) Kind() NodeKind { return NodeProp }

type IndexAccess struct {
	span
	Object Node
	Index  Node
}

func (*IndexAccess) Kind() NodeKind { return NodeIndex }

// SliceAccess is xs[low:high]; either bound may be nil.
type SliceAccess struct {
	span
	Object Node
	Low    Node
	High   Node
}

func (*SliceAccess) Kind() NodeKind { return NodeSlice }

// ListPush is the "xs[]" marker, valid only as an assignment target.
type ListPush struct {
	span
	Object Node
}

func (*ListPush) Kind() NodeKind { return NodeListPush }

//-----------------------------------------------------------------------------
// Classes & enums
//-----------------------------------------------------------------------------

// Visibility is the access restriction on a class member.
type Visibility int

const (
	Public Visibility = iota
	Private
	Protected
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Protected:
		return "protected"
	default:
		return "public"
	}
}

// MemberKind distinguishes the four class member declarations.
type MemberKind int

const (
	MemberProperty MemberKind = iota
	MemberMethod
	MemberGetter
	MemberSetter
)

// ClassMember is one declaration inside a class body. For properties, Value
// is the initializer expression (nil defaults to none); for methods and
// accessors it is the *FuncDef.
type ClassMember struct {
	Kind       MemberKind
	Name       string
	Visibility Visibility
	Override   bool
	Value      Node
	At         Span
}

type ClassDef struct {
	span
	Name    string
	Parent  string // "" when the class has no parent
	Members []ClassMember
}

func (*ClassDef) Kind() NodeKind { return NodeClassDef }

type New struct {
	span
	ClassName string
	Args      []Node
}

func (*New) Kind() NodeKind { return NodeNew }

type EnumDef struct {
	span
	Name    string
	Members []string
}

func (*EnumDef) Kind() NodeKind { return NodeEnumDef }

//-----------------------------------------------------------------------------
// Blocks
//-----------------------------------------------------------------------------

// Block owns an ordered sequence of statements; order is evaluation order.
type Block struct {
	span
	Statements []Node
}

func (*Block) Kind() NodeKind { return NodeBlock }
