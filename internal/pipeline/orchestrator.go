// Package pipeline sequences content acquisition, structured extraction and
// reconciliation into one extraction run.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/hyperifyio/goproduct/internal/description"
	"github.com/hyperifyio/goproduct/internal/extract"
	"github.com/hyperifyio/goproduct/internal/imageurl"
	"github.com/hyperifyio/goproduct/internal/metrics"
	"github.com/hyperifyio/goproduct/internal/product"
)

// ContentFetcher acquires raw page content.
type ContentFetcher interface {
	FetchContent(ctx context.Context, pageURL string) (product.RawContent, error)
}

// StructuredExtractor turns content into a product.
type StructuredExtractor interface {
	Extract(ctx context.Context, pageURL string, content string, mode product.Mode, imageURL string) (extract.Extraction, error)
}

// Orchestrator runs fetch, extract and reconcile strictly in sequence.
type Orchestrator struct {
	Content   ContentFetcher
	Extractor StructuredExtractor
	Images    *imageurl.Resolver
	Metrics   *metrics.Metrics
	// AttachImage sends the first fetched image to the model with the text.
	AttachImage bool
}

// Run performs one extraction. Fetch failures and extractor configuration or
// model call failures are terminal; everything after that degrades to a
// best-effort product.
func (o *Orchestrator) Run(ctx context.Context, req product.ExtractionRequest) (product.ExtractionResponse, error) {
	start := time.Now()
	logger := log.With().Str("url", req.SourceURL).Str("mode", string(req.Mode)).Logger()

	stageStart := time.Now()
	raw, err := o.Content.FetchContent(ctx, req.SourceURL)
	o.Metrics.ObserveStage("fetch", time.Since(stageStart))
	if err != nil {
		logger.Error().Err(err).Str("stage", "fetch").Msg("content acquisition failed")
		o.Metrics.CountExtraction("none", "fetch_error")
		return product.ExtractionResponse{}, err
	}
	logger.Info().Str("stage", "fetch").Str("strategy", string(raw.SourceStrategy)).Int("images", len(raw.Images)).Msg("content acquired")

	content := raw.Markdown
	if content == "" {
		content = raw.HTML
	}
	imageURL := ""
	if o.AttachImage && len(raw.Images) > 0 {
		imageURL = raw.Images[0]
	}

	stageStart = time.Now()
	ex, err := o.Extractor.Extract(ctx, req.SourceURL, content, req.Mode, imageURL)
	o.Metrics.ObserveStage("extract", time.Since(stageStart))
	if err != nil {
		logger.Error().Err(err).Str("stage", "extract").Msg("structured extraction failed")
		o.Metrics.CountExtraction(string(raw.SourceStrategy), "extract_error")
		return product.ExtractionResponse{}, err
	}
	o.Metrics.CountRung(ex.Rung)

	p := ex.Product
	fetched := o.resolver().Dedupe(imageurl.ParseBase(req.SourceURL), raw.Images)
	var backfilled []string
	if chosen, replaced := PreferLargerImageSet(p.Images, fetched); replaced {
		p.MainImages = lo.Without(chosen, p.DescriptionImages...)
		backfilled = append(backfilled, "mainImages")
	}
	backfilled = append(backfilled, backfill(&p, raw, content)...)

	if p.Title == "" {
		p.Title = TitleFromURL(req.SourceURL)
		backfilled = append(backfilled, "title")
	}
	p.Description = description.Ensure(p.Description)
	if len(p.DescriptionImages) == 0 && len(p.MainImages) > 0 {
		p.Description += description.Gallery(p.MainImages, p.Title)
	}
	p.Finalize()

	elapsed := time.Since(start)
	o.Metrics.CountExtraction(string(raw.SourceStrategy), "success")
	logger.Info().Str("stage", "reconcile").Str("rung", ex.Rung).Strs("backfilled", backfilled).Int("images", len(p.Images)).Dur("elapsed", elapsed).Msg("extraction complete")

	return product.ExtractionResponse{
		ExtractedProduct: p,
		Source:           raw.SourceStrategy,
		ProcessingTime:   elapsed.Milliseconds(),
		Stats: product.ExtractionStats{
			MainImages:        len(p.MainImages),
			DescriptionImages: len(p.DescriptionImages),
			TotalImages:       len(p.Images),
			FetchedImages:     len(fetched),
			ContentLength:     len(content),
			Mode:              req.Mode,
			RecoveryRung:      ex.Rung,
			Backfilled:        backfilled,
		},
	}, nil
}

func (o *Orchestrator) resolver() *imageurl.Resolver {
	if o.Images != nil {
		return o.Images
	}
	return imageurl.New(nil)
}
