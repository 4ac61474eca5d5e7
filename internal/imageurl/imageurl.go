// Package imageurl normalizes, validates and deduplicates product image URLs
// collected from HTML attributes, markdown image syntax and model output.
package imageurl

import (
	"html"
	"net/url"
	"path"
	"strings"

	"github.com/samber/lo"
)

// DefaultRewrites maps known preview/staging CDN hosts to production hosts.
var DefaultRewrites = map[string]string{
	"cdn.shopifypreview.com": "cdn.shopify.com",
}

var (
	blockedExt = map[string]bool{
		".js": true, ".mjs": true, ".css": true, ".html": true, ".htm": true,
		".php": true, ".asp": true, ".aspx": true, ".json": true, ".xml": true,
		".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".map": true,
	}
	imageExt = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
		".avif": true, ".svg": true, ".bmp": true, ".tif": true, ".tiff": true,
	}
	imageKeywords = []string{"image", "img", "photo", "media", "product", "upload", "files", "assets", "cdn"}
	placeholderMarkers = []string{"placeholder", "blank.gif", "spacer", "transparent.", "1x1", "loading.gif", "lazy.gif"}
)

// Resolver holds the host rewrite table. The zero value applies no rewrites.
type Resolver struct {
	Rewrites map[string]string
}

// New returns a Resolver using DefaultRewrites plus extra, where extra wins.
func New(extra map[string]string) *Resolver {
	rw := make(map[string]string, len(DefaultRewrites)+len(extra))
	for k, v := range DefaultRewrites {
		rw[strings.ToLower(k)] = strings.ToLower(v)
	}
	for k, v := range extra {
		rw[strings.ToLower(k)] = strings.ToLower(v)
	}
	return &Resolver{Rewrites: rw}
}

// Normalize returns the absolute form of raw. Rules, first match wins:
// protocol-relative gets an https: prefix, a relative reference is resolved
// against base, a preview host is rewritten to its production host. The
// result is a fixed point: Normalize(base, Normalize(base, x)) equals
// Normalize(base, x). Unparseable input yields "".
func (r *Resolver) Normalize(base *url.URL, raw string) string {
	s := strings.TrimSpace(unescapeAll(raw))
	s = strings.Trim(s, `"'`)
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "//") {
		s = "https:" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	if u.Scheme == "" {
		if base == nil {
			return ""
		}
		u = base.ResolveReference(u)
	}
	u.Fragment = ""
	if r != nil {
		if to, ok := r.Rewrites[strings.ToLower(u.Hostname())]; ok {
			if port := u.Port(); port != "" {
				to = to + ":" + port
			}
			u.Host = to
		}
	}
	return u.String()
}

// unescapeAll decodes HTML entities until the string stops changing, so
// double-escaped attributes ("&amp;amp;") settle in a single pass.
func unescapeAll(s string) string {
	for {
		u := html.UnescapeString(s)
		if u == s {
			return s
		}
		s = u
	}
}

// IsValid rejects non-http(s) URLs and script/style/markup resources. URLs
// without an image extension pass only when the path carries an
// image-indicating keyword.
func IsValid(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	p := strings.ToLower(u.Path)
	ext := path.Ext(p)
	if blockedExt[ext] {
		return false
	}
	if imageExt[ext] {
		return true
	}
	for _, kw := range imageKeywords {
		if strings.Contains(p, kw) {
			return true
		}
	}
	return false
}

// IsPlaceholder reports lazy-loading placeholders and inline data URIs.
func IsPlaceholder(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || strings.HasPrefix(s, "data:") || strings.HasPrefix(s, "about:") {
		return true
	}
	for _, m := range placeholderMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Dedupe normalizes every entry, drops invalid and placeholder URLs and
// removes duplicates while keeping first-seen order.
func (r *Resolver) Dedupe(base *url.URL, urls []string) []string {
	out := lo.FilterMap(urls, func(raw string, _ int) (string, bool) {
		if IsPlaceholder(raw) {
			return "", false
		}
		n := r.Normalize(base, raw)
		return n, n != "" && IsValid(n)
	})
	return lo.Uniq(out)
}

// ParseBase parses a page URL for use as a resolution base; invalid input
// yields nil so only absolute URLs survive normalization.
func ParseBase(pageURL string) *url.URL {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	return u
}
