package httpserver

import "testing"

func TestRouter_DispatchExactMatch(t *testing.T) {
	rt := NewRouter()
	called := false
	_, err := rt.Register("/users", "GET", func(c *Conn, trailing []string) {
		called = true
		if len(trailing) != 0 {
			t.Errorf("expected no trailing segments, got %v", trailing)
		}
	}, 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	result := rt.Dispatch(nil, "/users", "GET")
	if !result.Handled || !called {
		t.Error("expected handler to be invoked")
	}
}

func TestRouter_DispatchWithArgs(t *testing.T) {
	rt := NewRouter()
	var gotArgs []string
	_, err := rt.Register("/users", "GET", func(c *Conn, trailing []string) {
		gotArgs = trailing
	}, 0, 1)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	result := rt.Dispatch(nil, "/users/42", "GET")
	if !result.Handled {
		t.Fatal("expected dispatch to match")
	}
	if len(gotArgs) != 1 || gotArgs[0] != "42" {
		t.Errorf("expected trailing arg [42], got %v", gotArgs)
	}
}

func TestRouter_NoMatchIs404(t *testing.T) {
	rt := NewRouter()
	result := rt.Dispatch(nil, "/nope", "GET")
	if result.Handled || result.StatusCode != 404 {
		t.Errorf("expected 404, got %+v", result)
	}
}

func TestRouter_WrongMethodIs405(t *testing.T) {
	rt := NewRouter()
	_, err := rt.Register("/users", "GET", func(c *Conn, trailing []string) {}, 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	result := rt.Dispatch(nil, "/users", "POST")
	if result.Handled || result.StatusCode != 405 {
		t.Errorf("expected 405, got %+v", result)
	}
}

func TestRouter_LongestPrefixWins(t *testing.T) {
	rt := NewRouter()
	var hit string
	rt.Register("/a", "GET", func(c *Conn, trailing []string) { hit = "short" }, 0, 1, 2)
	rt.Register("/a/b", "GET", func(c *Conn, trailing []string) { hit = "long" }, 0)

	result := rt.Dispatch(nil, "/a/b", "GET")
	if !result.Handled || hit != "long" {
		t.Errorf("expected longest-prefix route to win, got hit=%q", hit)
	}
}

func TestRouter_ScopeUnregisterRemovesRoute(t *testing.T) {
	rt := NewRouter()
	scope, err := rt.Register("/x", "GET", func(c *Conn, trailing []string) {}, 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	scope.Unregister()

	result := rt.Dispatch(nil, "/x", "GET")
	if result.Handled || result.StatusCode != 404 {
		t.Errorf("expected 404 after unregister, got %+v", result)
	}
}

func TestRouter_RejectsInvalidPaths(t *testing.T) {
	rt := NewRouter()
	if _, err := rt.Register("no-leading-slash", "GET", nil, 0); err == nil {
		t.Error("expected error for path without leading slash")
	}
	if _, err := rt.Register("/trailing/", "GET", nil, 0); err == nil {
		t.Error("expected error for path with trailing slash")
	}
	if _, err := rt.Register("/{id}", "GET", nil, 0); err == nil {
		t.Error("expected error for path with reserved characters")
	}
}

func TestRouter_CollapsesConsecutiveSlashes(t *testing.T) {
	rt := NewRouter()
	called := false
	rt.Register("/a/b", "GET", func(c *Conn, trailing []string) { called = true }, 0)

	result := rt.Dispatch(nil, "//a//b", "GET")
	if !result.Handled || !called {
		t.Error("expected consecutive slashes to collapse for matching")
	}
}
