package pipeline

import (
	"net/url"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperifyio/goproduct/internal/description"
	"github.com/hyperifyio/goproduct/internal/product"
)

// PreferLargerImageSet is the more-images-wins tie-break: the fetched set
// replaces the extracted one only when it is strictly larger. It reports
// whether the fetched set was chosen. Only counts are compared, so a larger
// set of worse images still wins.
func PreferLargerImageSet(extracted, fetched []string) ([]string, bool) {
	if len(fetched) > len(extracted) {
		return fetched, true
	}
	return extracted, false
}

// TitleFromURL derives a readable title from the last path segment, e.g.
// "/products/blue-linen-shirt.html" becomes "Blue Linen Shirt".
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	seg := path.Base(strings.TrimRight(u.Path, "/"))
	if seg == "." || seg == "/" || seg == "" {
		return u.Hostname()
	}
	seg = strings.TrimSuffix(seg, path.Ext(seg))
	if s, err := url.PathUnescape(seg); err == nil {
		seg = s
	}
	words := strings.FieldsFunc(seg, func(r rune) bool { return r == '-' || r == '_' || r == '+' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	if len(words) == 0 {
		return u.Hostname()
	}
	return strings.Join(words, " ")
}

// missingDescription treats the extractor's placeholder as absent so that
// page metadata can replace it.
func missingDescription(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == description.Placeholder
}

// backfill fills title, price and description from directly fetched content
// and returns the names of the fields it filled.
func backfill(p *product.ExtractedProduct, raw product.RawContent, content string) []string {
	var filled []string
	if strings.TrimSpace(p.Title) == "" {
		if t := product.CleanTitle(raw.Title); t != "" {
			p.Title = t
			filled = append(filled, "title")
		}
	}
	if !product.IsNormalizedPrice(p.Price) {
		p.Price = ""
		if price := product.FindPrice(content); price != "" {
			p.Price = price
			filled = append(filled, "price")
		}
	}
	if missingDescription(p.Description) {
		if d := strings.TrimSpace(raw.Description); d != "" {
			p.Description = d
			filled = append(filled, "description")
		}
	}
	return filled
}
