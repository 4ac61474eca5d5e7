// Package description shapes product description HTML so it always carries
// block-level markup.
package description

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Placeholder is used when no description is available at all.
const Placeholder = "<p>Product description not available.</p>"

// GalleryImageLimit caps how many main images a synthesized gallery shows.
const GalleryImageLimit = 3

var featureMarks = []string{"✓", "✔", "✅"}

var blockSelector = "p, div, ul, ol, li, h1, h2, h3, h4, h5, h6, table, section, article, blockquote, figure, pre, dl"

// HasMarkup reports whether s contains any HTML element.
func HasMarkup(s string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return false
	}
	return doc.Find("body *").Length() > 0
}

// HasBlock reports whether s contains at least one block-level element.
func HasBlock(s string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return false
	}
	return doc.Find("body").Find(blockSelector).Length() > 0
}

// FromPlainText wraps plain text into <p> paragraphs, joining consecutive
// lines. Consecutive lines carrying a checkmark become one feature list.
func FromPlainText(text string) string {
	var b strings.Builder
	var prose, features []string
	flushProse := func() {
		if len(prose) > 0 {
			fmt.Fprintf(&b, "<p>%s</p>", escape(strings.Join(prose, " ")))
			prose = nil
		}
	}
	flushFeatures := func() {
		if len(features) == 0 {
			return
		}
		b.WriteString(`<ul class="feature-list">`)
		for _, f := range features {
			fmt.Fprintf(&b, `<li class="feature-item">%s</li>`, escape(f))
		}
		b.WriteString(`</ul>`)
		features = nil
	}
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			flushProse()
			flushFeatures()
		case isFeature(line):
			flushProse()
			features = append(features, stripMarks(line))
		default:
			flushFeatures()
			prose = append(prose, line)
		}
	}
	flushProse()
	flushFeatures()
	return b.String()
}

// escape re-escapes text that may already carry entities.
func escape(s string) string {
	return html.EscapeString(html.UnescapeString(s))
}

func isFeature(line string) bool {
	for _, m := range featureMarks {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

func stripMarks(line string) string {
	for _, m := range featureMarks {
		line = strings.ReplaceAll(line, m, "")
	}
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•:"))
}

// Gallery renders up to GalleryImageLimit images as a gallery block.
func Gallery(images []string, alt string) string {
	if len(images) == 0 {
		return ""
	}
	if len(images) > GalleryImageLimit {
		images = images[:GalleryImageLimit]
	}
	var b strings.Builder
	b.WriteString(`<div class="product-gallery">`)
	for _, src := range images {
		fmt.Fprintf(&b, `<img src="%s" alt="%s" loading="lazy">`, html.EscapeString(src), html.EscapeString(alt))
	}
	b.WriteString(`</div>`)
	return b.String()
}

// Ensure returns HTML that contains at least one block element: empty input
// becomes Placeholder, plain text is wrapped, and inline-only markup is
// wrapped in a single paragraph.
func Ensure(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Placeholder
	case !HasMarkup(s):
		if out := FromPlainText(s); out != "" {
			return out
		}
		return Placeholder
	case !HasBlock(s):
		return "<p>" + s + "</p>"
	default:
		return s
	}
}
