package imageurl

import (
	"reflect"
	"testing"
)

func TestNormalize_Rules(t *testing.T) {
	r := New(nil)
	base := ParseBase("https://shop.example.com/products/mug?variant=1")
	cases := []struct {
		in   string
		want string
	}{
		{"//cdn.example.com/img/a.jpg", "https://cdn.example.com/img/a.jpg"},
		{"/files/b.png", "https://shop.example.com/files/b.png"},
		{"images/c.webp", "https://shop.example.com/products/images/c.webp"},
		{"https://cdn.shopifypreview.com/s/files/d.jpg", "https://cdn.shopify.com/s/files/d.jpg"},
		{"https://other.example.org/e.jpg?w=800&amp;h=600", "https://other.example.org/e.jpg?w=800&h=600"},
		{"https://other.example.org/f.jpg?a=1&amp;amp;b=2", "https://other.example.org/f.jpg?a=1&b=2"},
		{"  ", ""},
	}
	for _, c := range cases {
		if got := r.Normalize(base, c.in); got != c.want {
			t.Fatalf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	r := New(map[string]string{"staging-cdn.example.com": "cdn.example.com"})
	base := ParseBase("https://shop.example.com/p/1")
	inputs := []string{
		"//cdn.example.com/a.jpg",
		"/b.png",
		"../c.gif",
		"https://staging-cdn.example.com/media/d.jpg",
		"https://cdn.example.com/e%20f.jpg",
		"https://cdn.example.com/product/g?width=400#zoom",
		"https://cdn.example.com/img.jpg?a=1&amp;amp;b=2",
		"https://cdn.example.com/img.jpg?a=1&amp;amp;amp;b=2",
	}
	for _, in := range inputs {
		once := r.Normalize(base, in)
		twice := r.Normalize(base, once)
		if once != twice {
			t.Fatalf("not a fixed point for %q: %q then %q", in, once, twice)
		}
	}
}

func TestIsValid(t *testing.T) {
	valid := []string{
		"https://x.com/a.JPG",
		"https://x.com/a.webp?v=2",
		"https://x.com/media/catalog/12345",
		"https://x.com/assets/hero",
	}
	invalid := []string{
		"https://x.com/app.js",
		"https://x.com/theme.css?v=1",
		"https://x.com/page.html",
		"https://x.com/fonts/font.woff2",
		"https://x.com/whatever",
		"data:image/png;base64,AAAA",
		"/relative.jpg",
	}
	for _, u := range valid {
		if !IsValid(u) {
			t.Fatalf("expected valid: %s", u)
		}
	}
	for _, u := range invalid {
		if IsValid(u) {
			t.Fatalf("expected invalid: %s", u)
		}
	}
}

func TestDedupe_PreservesFirstSeenOrder(t *testing.T) {
	r := New(nil)
	base := ParseBase("https://shop.example.com/p/1")
	got := r.Dedupe(base, []string{
		"/img/1.jpg",
		"https://shop.example.com/img/1.jpg",
		"//shop.example.com/img/2.jpg",
		"https://shop.example.com/script.js",
		"data:image/gif;base64,R0lG",
		"/img/placeholder.png",
		"/img/2.jpg",
	})
	want := []string{"https://shop.example.com/img/1.jpg", "https://shop.example.com/img/2.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Dedupe = %v, want %v", got, want)
	}
}
