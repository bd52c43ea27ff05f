// scope.go — chained symbol tables and execution contexts.
//
// A Scope is one name→value frame with a parent link; lookups walk
// parent-ward without copying bindings, so closures keep their defining
// frame alive simply by holding the pointer. A Context is one call frame's
// identity: its Scope, a display name for error messages, and (inside
// method bodies) the class whose visibility rules apply.
package versa

import "fmt"

// Scope is a mutable binding table with an optional parent for lookup
// fallthrough.
type Scope struct {
	parent *Scope
	table  map[string]Value
}

// NewScope creates a frame with the given parent (which may be nil).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, table: make(map[string]Value)}
}

// Parent exposes the lexical parent (nil at the root).
func (s *Scope) Parent() *Scope { return s.parent }

// Define binds name in the current frame, shadowing any outer binding.
func (s *Scope) Define(name string, v Value) {
	s.table[name] = v
}

// Set updates the nearest existing binding. It never implicitly defines;
// an unbound name is an error.
func (s *Scope) Set(name string, v Value) error {
	if _, ok := s.table[name]; ok {
		s.table[name] = v
		return nil
	}
	if s.parent != nil {
		return s.parent.Set(name, v)
	}
	return fmt.Errorf("undefined variable %q", name)
}

// Get retrieves the nearest visible binding for name.
func (s *Scope) Get(name string) (Value, bool) {
	if v, ok := s.table[name]; ok {
		return v, true
	}
	if s.parent != nil {
		return s.parent.Get(name)
	}
	return Value{}, false
}

// Has reports whether name is bound in this frame only (no parent walk).
func (s *Scope) Has(name string) bool {
	_, ok := s.table[name]
	return ok
}

// Context is one call frame: a display name used in error messages, the
// frame's Scope, the class whose body is executing (nil outside methods,
// used for visibility checks), and the calling frame.
type Context struct {
	Name    string
	Scope   *Scope
	InClass *Class
	Parent  *Context
}

// NewContext builds a root context over a scope.
func NewContext(name string, scope *Scope) *Context {
	return &Context{Name: name, Scope: scope}
}

// Child opens a frame for a call, with a fresh scope under parent.
func (c *Context) Child(name string, parent *Scope) *Context {
	return &Context{Name: name, Scope: NewScope(parent), Parent: c}
}

// BlockChild opens an anonymous frame reusing this context's identity but a
// fresh child scope (loop bodies, counted-loop counters).
func (c *Context) BlockChild() *Context {
	return &Context{Name: c.Name, Scope: NewScope(c.Scope), InClass: c.InClass, Parent: c.Parent}
}
