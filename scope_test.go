package versa

import "testing"

func Test_Scope_DefineAndGet(t *testing.T) {
	s := NewScope(nil)
	s.Define("x", Num(1))
	if v, ok := s.Get("x"); !ok || v.Data.(float64) != 1 {
		t.Fatalf("got %#v %v", v, ok)
	}
	if _, ok := s.Get("y"); ok {
		t.Fatal("y should be unbound")
	}
}

func Test_Scope_LookupWalksParents(t *testing.T) {
	root := NewScope(nil)
	root.Define("x", Num(1))
	child := NewScope(root)
	if v, ok := child.Get("x"); !ok || v.Data.(float64) != 1 {
		t.Fatalf("got %#v %v", v, ok)
	}
}

func Test_Scope_ShadowingIsLocal(t *testing.T) {
	root := NewScope(nil)
	root.Define("x", Num(1))
	child := NewScope(root)
	child.Define("x", Num(2))

	if v, _ := child.Get("x"); v.Data.(float64) != 2 {
		t.Fatal("child sees its shadow")
	}
	if v, _ := root.Get("x"); v.Data.(float64) != 1 {
		t.Fatal("root binding untouched")
	}
}

func Test_Scope_SetUpdatesNearestBinding(t *testing.T) {
	root := NewScope(nil)
	root.Define("x", Num(1))
	child := NewScope(root)

	if err := child.Set("x", Num(9)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := root.Get("x"); v.Data.(float64) != 9 {
		t.Fatal("Set should reach the defining frame")
	}
	if child.Has("x") {
		t.Fatal("Set must not create a local binding")
	}
}

func Test_Scope_SetUnboundFails(t *testing.T) {
	s := NewScope(nil)
	if err := s.Set("ghost", Num(1)); err == nil {
		t.Fatal("setting an unbound name must fail")
	}
}

func Test_Scope_HasIsFrameLocal(t *testing.T) {
	root := NewScope(nil)
	root.Define("x", Num(1))
	child := NewScope(root)
	if child.Has("x") {
		t.Fatal("Has must not walk parents")
	}
}
