package httpmsg_test

import (
	"testing"

	"github.com/currentframework/bricks/httpmsg"
)

func TestHeaders_CaseInsensitiveGetSet(t *testing.T) {
	h := httpmsg.NewHeaders()
	h.Add("Content-Type", "text/plain")
	if got := h.Get("content-type"); got != "text/plain" {
		t.Errorf("Get case-insensitive: got %q", got)
	}
	h.Set("CONTENT-TYPE", "application/json")
	if got := h.Get("Content-Type"); got != "application/json" {
		t.Errorf("Set did not replace: got %q", got)
	}
	if h.Len() != 1 {
		t.Errorf("expected 1 entry after Set, got %d", h.Len())
	}
}

func TestHeaders_PreservesInsertionOrderAndCasing(t *testing.T) {
	h := httpmsg.NewHeaders()
	h.Add("X-B", "2")
	h.Add("x-a", "1")
	var order []string
	h.Each(func(key, value string) { order = append(order, key) })
	if len(order) != 2 || order[0] != "X-B" || order[1] != "x-a" {
		t.Errorf("unexpected order/casing: %v", order)
	}
}

func TestParseURL_DecodesPathAndQuery(t *testing.T) {
	u := httpmsg.ParseURL("/a%20b/c?x=1+1&y=hello%20world")
	if u.Path != "/a b/c" {
		t.Errorf("path: got %q", u.Path)
	}
	if got := u.Query.Get("x"); got != "1 1" {
		t.Errorf("query x: got %q", got)
	}
	if got := u.Query.Get("y"); got != "hello world" {
		t.Errorf("query y: got %q", got)
	}
}

func TestParseURL_MalformedEscapePreservedLiterally(t *testing.T) {
	u := httpmsg.ParseURL("/a%2xb")
	if u.Path != "/a%2xb" {
		t.Errorf("expected malformed escape preserved, got %q", u.Path)
	}
	u2 := httpmsg.ParseURL("/trailing%")
	if u2.Path != "/trailing%" {
		t.Errorf("expected trailing %% preserved, got %q", u2.Path)
	}
}

func TestParseURL_TrailingSlash(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"/", false},
		{"/a/b", false},
		{"/a/b/", true},
		{"/a/b/?x=1", true},
		{"/a/b?x=1", false},
	}
	for _, tc := range cases {
		if got := httpmsg.ParseURL(tc.raw).TrailingSlash; got != tc.want {
			t.Errorf("ParseURL(%q).TrailingSlash = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParseCookies(t *testing.T) {
	c := httpmsg.ParseCookies("session=abc123; theme=dark; malformed")
	if c.Get("session") != "abc123" {
		t.Errorf("session: got %q", c.Get("session"))
	}
	if c.Get("theme") != "dark" {
		t.Errorf("theme: got %q", c.Get("theme"))
	}
	if c.Has("malformed") {
		t.Error("segment without '=' should be skipped")
	}
}

func TestResponse_JSONSetsContentTypeAndSerializesLazily(t *testing.T) {
	r := httpmsg.NewResponse().JSON(map[string]int{"a": 1})
	if r.ContentTypeValue() != "application/json; charset=utf-8" {
		t.Errorf("content type: got %q", r.ContentTypeValue())
	}
	b, err := r.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(b) != `{"a":1}` {
		t.Errorf("body: got %q", b)
	}
}

func TestResponse_FluentSettersChain(t *testing.T) {
	r := httpmsg.NewResponse().
		Code(201).
		SetHeader("X-Id", "42").
		EnableCORS().
		Text("created")
	if r.StatusCode() != 201 {
		t.Errorf("status: got %d", r.StatusCode())
	}
	if !r.CORSEnabled() {
		t.Error("expected CORS enabled")
	}
	if r.Headers().Get("X-Id") != "42" {
		t.Errorf("X-Id header: got %q", r.Headers().Get("X-Id"))
	}
	b, _ := r.Bytes()
	if string(b) != "created" {
		t.Errorf("body: got %q", b)
	}
}
