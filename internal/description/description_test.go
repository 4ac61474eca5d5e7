package description

import (
	"strings"
	"testing"
)

func TestFromPlainText(t *testing.T) {
	in := "Soft organic cotton tee.\nCut for a relaxed fit.\n\n✓ Pre-shrunk\n✔ 100% cotton\n- ✅ Made in Portugal\nWash cold & dry flat."
	want := `<p>Soft organic cotton tee. Cut for a relaxed fit.</p>` +
		`<ul class="feature-list"><li class="feature-item">Pre-shrunk</li><li class="feature-item">100% cotton</li><li class="feature-item">Made in Portugal</li></ul>` +
		`<p>Wash cold &amp; dry flat.</p>`
	if got := FromPlainText(in); got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

func TestFromPlainText_EntitiesNotDoubleEscaped(t *testing.T) {
	if got := FromPlainText("Salt &amp; pepper"); got != "<p>Salt &amp; pepper</p>" {
		t.Fatalf("got %q", got)
	}
}

func TestEnsure(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", Placeholder},
		{"   ", Placeholder},
		{"Just text", "<p>Just text</p>"},
		{"<strong>Bold</strong> claim", "<p><strong>Bold</strong> claim</p>"},
		{"<p>Already fine</p>", "<p>Already fine</p>"},
		{"<div><span>x</span></div>", "<div><span>x</span></div>"},
	}
	for _, c := range cases {
		if got := Ensure(c.in); got != c.want {
			t.Fatalf("Ensure(%q) = %q, want %q", c.in, got, c.want)
		}
		if !HasBlock(Ensure(c.in)) {
			t.Fatalf("Ensure(%q) lacks a block element", c.in)
		}
	}
}

func TestGallery(t *testing.T) {
	imgs := []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg", "https://cdn.example.com/3.jpg", "https://cdn.example.com/4.jpg"}
	got := Gallery(imgs, `Mug "Nova"`)
	if !strings.HasPrefix(got, `<div class="product-gallery">`) || !strings.HasSuffix(got, `</div>`) {
		t.Fatalf("unexpected wrapper: %s", got)
	}
	if n := strings.Count(got, "<img "); n != GalleryImageLimit {
		t.Fatalf("expected %d images, got %d", GalleryImageLimit, n)
	}
	if strings.Contains(got, "4.jpg") {
		t.Fatalf("gallery must stop at the limit")
	}
	if !strings.Contains(got, `alt="Mug &#34;Nova&#34;"`) {
		t.Fatalf("alt not escaped: %s", got)
	}
	if Gallery(nil, "x") != "" {
		t.Fatalf("empty gallery should render nothing")
	}
}
