// Package product defines the data model shared by every extraction stage.
package product

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/unicode/norm"
)

// Mode selects how the description is produced.
type Mode string

const (
	// ModeStandard transcribes the page's own description.
	ModeStandard Mode = "standard"
	// ModeProCopy asks the model for rewritten marketing copy.
	ModeProCopy Mode = "pro_copy"
)

// ParseMode maps free-form input to a Mode. Anything unknown is standard.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ModeProCopy), "pro-copy", "procopy":
		return ModeProCopy
	default:
		return ModeStandard
	}
}

// SourceStrategy names the acquisition strategy that produced RawContent.
type SourceStrategy string

const (
	StrategyRemoteService SourceStrategy = "remote-service"
	StrategyDirectFetch   SourceStrategy = "direct-fetch"
)

// ExtractionRequest is the immutable input of one extraction run.
type ExtractionRequest struct {
	SourceURL string `json:"url"`
	Mode      Mode   `json:"mode"`
}

// NewExtractionRequest validates the url and normalizes the mode.
func NewExtractionRequest(rawURL string, mode string) (ExtractionRequest, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ExtractionRequest{}, fmt.Errorf("%w: url is required", ErrValidation)
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ExtractionRequest{}, fmt.Errorf("%w: url must be an absolute http(s) URL", ErrValidation)
	}
	return ExtractionRequest{SourceURL: u.String(), Mode: ParseMode(mode)}, nil
}

// RawContent is what a ContentFetcher strategy acquired for a page. It is
// consumed once by the structured extractor and never persisted.
type RawContent struct {
	Markdown       string
	HTML           string
	Title          string
	Description    string
	Images         []string
	SourceStrategy SourceStrategy
}

// Review is a third-party review record passed through untouched.
type Review struct {
	Author string  `json:"author,omitempty"`
	Rating float64 `json:"rating,omitempty"`
	Text   string  `json:"text,omitempty"`
	Date   string  `json:"date,omitempty"`
}

// ExtractedProduct is the canonical extraction output.
type ExtractedProduct struct {
	Title             string   `json:"title"`
	Price             string   `json:"price"`
	Description       string   `json:"description"`
	MainImages        []string `json:"mainImages"`
	DescriptionImages []string `json:"descriptionImages"`
	Images            []string `json:"images"`
	Reviews           []Review `json:"reviews,omitempty"`
}

// Finalize recomputes Images as the ordered, deduplicated union of
// MainImages and DescriptionImages and replaces nil slices with empty ones so
// the JSON shape is stable.
func (p *ExtractedProduct) Finalize() {
	if p.MainImages == nil {
		p.MainImages = []string{}
	}
	if p.DescriptionImages == nil {
		p.DescriptionImages = []string{}
	}
	union := make([]string, 0, len(p.MainImages)+len(p.DescriptionImages))
	union = append(union, p.MainImages...)
	union = append(union, p.DescriptionImages...)
	p.Images = lo.Uniq(union)
}

// CleanTitle unescapes entities, applies NFC normalization and collapses
// whitespace runs.
func CleanTitle(s string) string {
	s = html.UnescapeString(s)
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// ExtractionStats is reported alongside a result as _extractionStats.
type ExtractionStats struct {
	MainImages        int      `json:"mainImages"`
	DescriptionImages int      `json:"descriptionImages"`
	TotalImages       int      `json:"totalImages"`
	FetchedImages     int      `json:"fetchedImages"`
	ContentLength     int      `json:"contentLength"`
	Mode              Mode     `json:"mode"`
	RecoveryRung      string   `json:"recoveryRung,omitempty"`
	Backfilled        []string `json:"backfilled,omitempty"`
}

// ExtractionResponse is the product plus run metadata, as returned at the
// HTTP boundary and stored in completed jobs.
type ExtractionResponse struct {
	ExtractedProduct
	Source         SourceStrategy  `json:"_source"`
	ProcessingTime int64           `json:"_processingTime"`
	Stats          ExtractionStats `json:"_extractionStats"`
}
