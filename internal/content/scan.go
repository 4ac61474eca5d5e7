package content

import (
	"html"
	"regexp"
	"strings"
)

// The direct-fetch fallback treats the page as opaque text; these patterns
// are deliberately not a DOM parse.
var (
	titleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaTagRe = regexp.MustCompile(`(?is)<meta\s[^>]*>`)
	attrRe    = regexp.MustCompile(`(?is)\b(name|property|content)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// ScanTitle returns the text of the first <title> element.
func ScanTitle(page string) string {
	m := titleRe.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

// ScanMeta returns the content of the first <meta> whose name or property
// equals key (case-insensitive), regardless of attribute order.
func ScanMeta(page string, key string) string {
	for _, tag := range metaTagRe.FindAllString(page, -1) {
		var id, content string
		for _, a := range attrRe.FindAllStringSubmatch(tag, -1) {
			val := a[2] + a[3]
			switch strings.ToLower(a[1]) {
			case "name", "property":
				id = val
			case "content":
				content = val
			}
		}
		if strings.EqualFold(strings.TrimSpace(id), key) && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(html.UnescapeString(content))
		}
	}
	return ""
}

// ScanDescription prefers the description meta tag over og:description.
func ScanDescription(page string) string {
	if d := ScanMeta(page, "description"); d != "" {
		return d
	}
	return ScanMeta(page, "og:description")
}
