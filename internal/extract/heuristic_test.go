package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hyperifyio/goproduct/internal/imageurl"
)

func imagesMarkdown(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "![](https://cdn.example.com/img/%d.jpg)\n", i)
	}
	return b.String()
}

func TestDescriptionImagesFromContent(t *testing.T) {
	r := imageurl.New(nil)
	base := imageurl.ParseBase(pageURL)
	if got := DescriptionImagesFromContent(r, base, imagesMarkdown(DescriptionImageCutoff), nil); got != nil {
		t.Fatalf("at the cutoff nothing is a description image, got %v", got)
	}
	got := DescriptionImagesFromContent(r, base, imagesMarkdown(7), []string{"https://cdn.example.com/img/0.jpg"})
	want := []string{"https://cdn.example.com/img/5.jpg", "https://cdn.example.com/img/6.jpg"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}
