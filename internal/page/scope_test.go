package page

import (
	"testing"

	"allay/internal/value"
)

func TestScopeThisDataMergesOwnedOverInherited(t *testing.T) {
	inherited := value.Object(map[string]value.Value{
		"author": value.String("Alice"),
		"title":  value.String("inherited title"),
	})
	s := NewScopeFrom(inherited, nil)
	s.AddKey("title", value.String("owned title"))

	this := s.ThisData()
	if this.Get("author").String() != "Alice" {
		t.Fatalf("expected inherited key to survive the merge")
	}
	if this.Get("title").String() != "owned title" {
		t.Fatalf("expected owned to take precedence over inherited")
	}
}

func TestScopeSubScopeShadowsPageThis(t *testing.T) {
	s := NewScope()
	s.AddKey("name", value.String("page"))
	if s.CurThis().Get("name").String() != "page" {
		t.Fatalf("expected page-level this before any with-scope")
	}

	s.CreateSubScope(value.String("local"))
	if s.CurThis().String() != "local" {
		t.Fatalf("expected sub-scope this to shadow the page")
	}

	s.ExitSubScope()
	if s.CurThis().Get("name").String() != "page" {
		t.Fatalf("expected page-level this restored after exiting the sub-scope")
	}
}

func TestScopeLocalLookupOrder(t *testing.T) {
	s := NewScope()
	s.CreateLocal("x", value.Int(1))
	s.CreateSubScope(value.Null())
	s.CreateLocal("x", value.Int(2))

	v, ok := s.GetLocal("x")
	if !ok || v.Kind() != value.KindInt {
		t.Fatalf("expected a local binding for x")
	}
	n, _ := v.AsInt()
	if n != 2 {
		t.Fatalf("expected the inner scope's binding to shadow the outer one, got %d", n)
	}

	s.ExitSubScope()
	v, _ = s.GetLocal("x")
	n, _ = v.AsInt()
	if n != 1 {
		t.Fatalf("expected the outer binding after exiting the sub-scope, got %d", n)
	}
}

func TestScopeParamIgnoresSubScopeNesting(t *testing.T) {
	params := []value.Value{value.String("a"), value.Int(42)}
	s := NewScopeFrom(value.Object(nil), params)
	s.CreateSubScope(value.Null())

	got := s.Param()
	if len(got) != 2 {
		t.Fatalf("expected param to stay fixed regardless of sub-scope nesting")
	}
}
