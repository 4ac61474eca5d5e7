package imageurl

import (
	"regexp"
	"strings"
)

// imageRefRe matches, in document order, markdown image syntax and the
// src/data-src/srcset family of HTML attributes.
var imageRefRe = regexp.MustCompile(`(?i)!\[[^\]]*\]\(\s*<?([^)\s>]+)>?[^)]*\)|\b(?:data-src|src|data-srcset|srcset)\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// Scan returns raw image references found in markdown or HTML text, in the
// order they appear. srcset values contribute every candidate URL.
// Placeholders are skipped; no normalization or validation is applied.
func Scan(text string) []string {
	var out []string
	for _, m := range imageRefRe.FindAllStringSubmatch(text, -1) {
		switch {
		case m[1] != "":
			out = appendCandidate(out, m[1])
		case isSrcset(m[0]):
			for _, c := range splitSrcset(m[2] + m[3]) {
				out = appendCandidate(out, c)
			}
		default:
			out = appendCandidate(out, m[2]+m[3])
		}
	}
	return out
}

func appendCandidate(out []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || IsPlaceholder(s) {
		return out
	}
	return append(out, s)
}

func isSrcset(match string) bool {
	lower := strings.ToLower(match)
	return strings.HasPrefix(lower, "srcset") || strings.HasPrefix(lower, "data-srcset")
}

// splitSrcset returns the URL part of each "url descriptor" candidate.
func splitSrcset(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		fields := strings.Fields(p)
		if len(fields) == 0 {
			continue
		}
		out = append(out, fields[0])
	}
	return out
}
