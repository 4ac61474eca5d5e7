package extract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/mo"

	"github.com/hyperifyio/goproduct/internal/description"
	"github.com/hyperifyio/goproduct/internal/product"
)

// PlaceholderDescription is used when no description could be recovered.
const PlaceholderDescription = description.Placeholder

// Rung names, in ladder order.
const (
	RungAsIs         = "as-is"
	RungGreedyObject = "greedy-object"
	RungFirstObject  = "first-object"
	RungFieldRegex   = "field-regex"
)

// Rung is one total parsing strategy of the recovery ladder.
type Rung struct {
	Name  string
	Parse func(raw string) mo.Result[product.ExtractedProduct]
}

// Ladder is tried in order; the last rung never fails.
var Ladder = []Rung{
	{Name: RungAsIs, Parse: parseAsIs},
	{Name: RungGreedyObject, Parse: parseGreedyObject},
	{Name: RungFirstObject, Parse: parseFirstObject},
	{Name: RungFieldRegex, Parse: parseFieldRegex},
}

// Recover runs the ladder over model output and reports the winning rung.
func Recover(raw string) (product.ExtractedProduct, string) {
	for _, r := range Ladder {
		if p, err := r.Parse(raw).Get(); err == nil {
			return p, r.Name
		}
	}
	// Unreachable while the final rung is total.
	return minimalProduct(), RungFieldRegex
}

var errNoObject = errors.New("no JSON object found")

func parseAsIs(raw string) mo.Result[product.ExtractedProduct] {
	return decodeProduct(strings.TrimSpace(raw))
}

var greedyObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

func parseGreedyObject(raw string) mo.Result[product.ExtractedProduct] {
	span := greedyObjectRe.FindString(raw)
	if span == "" {
		return mo.Err[product.ExtractedProduct](errNoObject)
	}
	return decodeProduct(span)
}

func parseFirstObject(raw string) mo.Result[product.ExtractedProduct] {
	span, ok := firstObject(raw)
	if !ok {
		return mo.Err[product.ExtractedProduct](errNoObject)
	}
	return decodeProduct(span)
}

// firstObject returns the first brace-balanced {...} span, ignoring braces
// inside JSON strings.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth, inString, escaped := 0, false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

var (
	titleFieldRe       = stringFieldRe("title")
	descriptionFieldRe = stringFieldRe("description")
	priceFieldRe       = regexp.MustCompile(`"price"\s*:\s*(?:"((?:[^"\\]|\\.)*)"|(-?\d+(?:[.,]\d+)?))`)
)

func stringFieldRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`"` + name + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
}

func parseFieldRegex(raw string) mo.Result[product.ExtractedProduct] {
	p := minimalProduct()
	if m := titleFieldRe.FindStringSubmatch(raw); m != nil {
		p.Title = unquote(m[1])
	}
	if m := priceFieldRe.FindStringSubmatch(raw); m != nil {
		p.Price = unquote(m[1]) + m[2]
	}
	if m := descriptionFieldRe.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		p.Description = unquote(m[1])
	}
	return mo.Ok(p)
}

func unquote(s string) string {
	if v, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return v
	}
	return s
}

func minimalProduct() product.ExtractedProduct {
	p := product.ExtractedProduct{Description: PlaceholderDescription}
	p.Finalize()
	return p
}

// wireProduct tolerates the looser shapes models produce: numeric prices,
// image objects instead of strings, and a lone "images" array.
type wireProduct struct {
	Title             flexString      `json:"title"`
	Price             flexString      `json:"price"`
	Description       flexString      `json:"description"`
	MainImages        flexStrings     `json:"mainImages"`
	DescriptionImages flexStrings     `json:"descriptionImages"`
	Images            flexStrings     `json:"images"`
	Reviews           json.RawMessage `json:"reviews"`
}

func decodeProduct(s string) mo.Result[product.ExtractedProduct] {
	if !strings.HasPrefix(s, "{") {
		return mo.Err[product.ExtractedProduct](errNoObject)
	}
	var w wireProduct
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return mo.Err[product.ExtractedProduct](err)
	}
	p := product.ExtractedProduct{
		Title:             string(w.Title),
		Price:             string(w.Price),
		Description:       string(w.Description),
		MainImages:        []string(w.MainImages),
		DescriptionImages: []string(w.DescriptionImages),
	}
	if len(p.MainImages) == 0 {
		p.MainImages = []string(w.Images)
	}
	if len(w.Reviews) > 0 {
		var reviews []product.Review
		if json.Unmarshal(w.Reviews, &reviews) == nil {
			p.Reviews = reviews
		}
	}
	return mo.Ok(p)
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	// null, objects and arrays degrade to empty.
	*f = ""
	return nil
}

type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		var single string
		if json.Unmarshal(b, &single) == nil && single != "" {
			*f = flexStrings{single}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if json.Unmarshal(it, &s) == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			URL string `json:"url"`
			Src string `json:"src"`
		}
		if json.Unmarshal(it, &obj) == nil {
			if obj.URL != "" {
				out = append(out, obj.URL)
			} else if obj.Src != "" {
				out = append(out, obj.Src)
			}
		}
	}
	*f = out
	return nil
}
