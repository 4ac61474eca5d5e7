package extract

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/goproduct/internal/product"
)

var (
	codeFenceRe     = regexp.MustCompile("(?m)^\\s*```[A-Za-z0-9_-]*\\s*$\\n?|```[A-Za-z0-9_-]*")
	htmlMarkerRe    = regexp.MustCompile(`(?mi)^\s*html\s*$\n?|^\s*html\s*(<)`)
	sizeGuideHeadRe = regexp.MustCompile(`(?i)<h([1-6])([^>]*)>\s*size\s+guide\s*</h[1-6]>`)
	sizeGuideMdRe   = regexp.MustCompile(`(?im)^(#{1,6}\s*)size\s+guide\s*$`)
	ctaMarkupRe     = regexp.MustCompile(`(?is)<a\b[^>]*>.*?</a>|<button\b[^>]*>.*?</button>`)
	purchaseRe      = regexp.MustCompile(`(?i)\b(?:buy now|add to cart|add to basket|order now|shop now)\b`)
)

const (
	benefitHeading  = "Why you'll love it"
	callToAction    = "Discover it today"
	neutralPrice    = "an exceptional price"
	neutralPurchase = "discover it"
)

// Sanitize strips checkout chrome from generated marketing copy. Steps run
// in a fixed order and each sees the previous step's output; the result is
// not guaranteed to be valid HTML.
func Sanitize(s string) string {
	s = codeFenceRe.ReplaceAllString(s, "")
	s = htmlMarkerRe.ReplaceAllString(s, "$1")
	s = sizeGuideHeadRe.ReplaceAllString(s, "<h${1}${2}>"+benefitHeading+"</h${1}>")
	s = sizeGuideMdRe.ReplaceAllString(s, "${1}"+benefitHeading)
	s = ctaMarkupRe.ReplaceAllLiteralString(s, callToAction)
	s = product.ReplaceCurrencyAmounts(s, neutralPrice)
	s = purchaseRe.ReplaceAllLiteralString(s, neutralPurchase)
	return strings.TrimSpace(s)
}
