package extract

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
)

var htmlDocumentRe = regexp.MustCompile(`(?i)<(?:!doctype|html|body)\b`)

// boilerplate never carries product data.
const boilerplate = "script, style, noscript, template, iframe, svg, nav, footer"

// LooksLikeHTML reports whether s is a full HTML document rather than
// markdown that may embed a few inline tags.
func LooksLikeHTML(s string) bool {
	return htmlDocumentRe.MatchString(s)
}

// ToMarkdown converts an HTML document into markdown, preferring <main>,
// then <article>, then <body>. Images survive as ![alt](src). When s is not
// HTML, or the conversion yields nothing, s is returned unchanged.
func ToMarkdown(s string) string {
	if !LooksLikeHTML(s) {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find(boilerplate).Remove()
	root := doc.Find("main").First()
	if root.Length() == 0 || strings.TrimSpace(root.Text()) == "" {
		root = doc.Find("article").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	if root.Length() == 0 {
		return s
	}
	h, err := goquery.OuterHtml(root)
	if err != nil {
		return s
	}
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	out, err := conv.ConvertString(h)
	if err != nil || strings.TrimSpace(out) == "" {
		return s
	}
	return strings.TrimSpace(normalizeBlankLines(out))
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

func normalizeBlankLines(s string) string {
	return blankRunRe.ReplaceAllString(s, "\n\n")
}
