package extract

import "testing"

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"fences", "```html\n<p>Soft cotton.</p>\n```", "<p>Soft cotton.</p>"},
		{"html marker", "html\n<p>Soft cotton.</p>", "<p>Soft cotton.</p>"},
		{"html prefix", "html<p>Soft cotton.</p>", "<p>Soft cotton.</p>"},
		{"size guide heading", `<h2 class="t">Size Guide</h2><p>Fits true.</p>`, `<h2 class="t">Why you'll love it</h2><p>Fits true.</p>`},
		{"size guide markdown", "## Size guide\nFits true.", "## Why you'll love it\nFits true."},
		{"links and buttons", `<p>See <a href="/x">more</a> or <button class="b">Buy</button>.</p>`, "<p>See Discover it today or Discover it today.</p>"},
		{"currency", "<p>Now only 49,99 € instead of $60.</p>", "<p>Now only an exceptional price instead of an exceptional price.</p>"},
		{"purchase phrasing", "<p>Shop now and Order Now!</p>", "<p>discover it and discover it!</p>"},
		{"plain copy untouched", "<p>Made to last.</p>", "<p>Made to last.</p>"},
	}
	for _, c := range cases {
		if got := Sanitize(c.in); got != c.want {
			t.Fatalf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestSanitize_OrderLinkBeforePurchasePhrase(t *testing.T) {
	// The anchor is replaced whole, so its "Buy now" label never reaches
	// the phrase step.
	got := Sanitize(`<a href="/cart">Buy now</a>`)
	if got != "Discover it today" {
		t.Fatalf("got %q", got)
	}
}
