package robots

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestChecker_CachesPerOrigin(t *testing.T) {
	t.Parallel()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		if ua := r.Header.Get("User-Agent"); ua != "goproduct-test/1.0" {
			t.Errorf("user agent %q", ua)
		}
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /checkout\n"))
	}))
	t.Cleanup(srv.Close)

	c := &Checker{HTTPClient: srv.Client(), UserAgent: "goproduct-test/1.0", EntryExpiry: time.Hour}
	ctx := context.Background()

	if err := c.Check(ctx, srv.URL+"/p/mug"); err != nil {
		t.Fatalf("product page should be allowed: %v", err)
	}
	err := c.Check(ctx, srv.URL+"/checkout/step1")
	if !errors.Is(err, ErrDisallowed) {
		t.Fatalf("expected ErrDisallowed, got %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected 1 robots fetch, got %d", n)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_ = c.Check(ctx, srv.URL+"/p/mug")
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expired entry should refetch, got %d fetches", n)
	}
}

func TestChecker_MissingRobotsAllows(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c := &Checker{HTTPClient: srv.Client()}
	if err := c.Check(context.Background(), srv.URL+"/anything"); err != nil {
		t.Fatalf("missing robots.txt should allow: %v", err)
	}
	if err := c.Check(context.Background(), "ftp://example.com/x"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestParse_GroupsAndComments(t *testing.T) {
	rules := Parse("# comment\nUser-agent: GoProduct\nUser-agent: other\nDisallow: /private # trailing\n\nUser-agent: *\nAllow: /\nDisallow: /tmp\n")
	if len(rules.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(rules.Groups))
	}
	if got := rules.Groups[0].Agents; len(got) != 2 || got[0] != "goproduct" {
		t.Fatalf("agents = %v", got)
	}
	if got := rules.Groups[0].Disallow[0]; got != "/private" {
		t.Fatalf("disallow = %q", got)
	}
}

func TestRules_IsAllowed(t *testing.T) {
	rules := Parse(`User-agent: *
Disallow: /shop/
Allow: /shop/products/
Disallow: /*.json$
Disallow: /search*sort=

User-agent: goproduct
Disallow: /
Allow: /p/
`)
	cases := []struct {
		ua, path string
		want     bool
	}{
		{"Mozilla/5.0", "/", true},
		{"Mozilla/5.0", "/shop/cart", false},
		{"Mozilla/5.0", "/shop/products/mug", true},
		{"Mozilla/5.0", "/feed.json", false},
		{"Mozilla/5.0", "/feed.json?x=1", true},
		{"Mozilla/5.0", "/a.json.json", false},
		{"Mozilla/5.0", "/search?q=mug&sort=price", false},
		{"Mozilla/5.0", "/search?q=mug", true},
		{"goproduct/1.0", "/about", false},
		{"goproduct/1.0", "/p/mug", true},
	}
	for _, tc := range cases {
		if got := rules.IsAllowed(tc.ua, tc.path); got != tc.want {
			t.Fatalf("IsAllowed(%q, %q) = %v, want %v", tc.ua, tc.path, got, tc.want)
		}
	}
}
