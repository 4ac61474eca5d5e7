// Package content acquires raw page content through an ordered chain of
// strategies: the remote markdown service first, a direct fetch second.
package content

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goproduct/internal/fetch"
	"github.com/hyperifyio/goproduct/internal/imageurl"
	"github.com/hyperifyio/goproduct/internal/markdown"
	"github.com/hyperifyio/goproduct/internal/product"
)

// MarkdownSource is the remote markdown-extraction strategy.
type MarkdownSource interface {
	Configured() bool
	Fetch(ctx context.Context, pageURL string) (markdown.Page, error)
}

// PageGetter is the direct-fetch strategy.
type PageGetter interface {
	Get(ctx context.Context, rawURL string) (fetch.Response, error)
}

// RobotsGate vetoes direct fetches the target site disallows.
type RobotsGate interface {
	Check(ctx context.Context, pageURL string) error
}

// Fetcher runs the strategy chain. Markdown may be nil, in which case only
// the direct fetch is attempted. Robots, when set, applies to the direct
// fetch only.
type Fetcher struct {
	Markdown MarkdownSource
	Direct   PageGetter
	Images   *imageurl.Resolver
	Robots   RobotsGate
}

// FetchContent returns content from the first strategy that yields any. A
// remote failure is logged and swallowed; a direct-fetch failure is terminal
// and returned as *product.FetchError carrying both causes.
func (f *Fetcher) FetchContent(ctx context.Context, pageURL string) (product.RawContent, error) {
	var errs []error
	if f.Markdown != nil && f.Markdown.Configured() {
		raw, err := f.fromMarkdownService(ctx, pageURL)
		if err == nil {
			return raw, nil
		}
		log.Warn().Err(err).Str("url", pageURL).Str("strategy", string(product.StrategyRemoteService)).Msg("markdown service failed; falling back to direct fetch")
		errs = append(errs, err)
	}
	if f.Direct == nil {
		errs = append(errs, errors.New("direct fetch not configured"))
		return product.RawContent{}, &product.FetchError{URL: pageURL, Err: errors.Join(errs...)}
	}
	raw, err := f.fromDirectFetch(ctx, pageURL)
	if err != nil {
		errs = append(errs, err)
		return product.RawContent{}, &product.FetchError{URL: pageURL, Err: errors.Join(errs...)}
	}
	return raw, nil
}

func (f *Fetcher) fromMarkdownService(ctx context.Context, pageURL string) (product.RawContent, error) {
	page, err := f.Markdown.Fetch(ctx, pageURL)
	if err != nil {
		return product.RawContent{}, err
	}
	base := imageurl.ParseBase(pageURL)
	candidates := append(append([]string{}, page.Images...), imageurl.Scan(page.Markdown)...)
	log.Debug().Str("url", pageURL).Str("shape", page.Shape.String()).Int("markdown_len", len(page.Markdown)).Msg("markdown service ok")
	return product.RawContent{
		Markdown:       page.Markdown,
		Title:          page.Title,
		Description:    page.Description,
		Images:         f.resolver().Dedupe(base, candidates),
		SourceStrategy: product.StrategyRemoteService,
	}, nil
}

func (f *Fetcher) fromDirectFetch(ctx context.Context, pageURL string) (product.RawContent, error) {
	if f.Robots != nil {
		if err := f.Robots.Check(ctx, pageURL); err != nil {
			return product.RawContent{}, err
		}
	}
	resp, err := f.Direct.Get(ctx, pageURL)
	if err != nil {
		return product.RawContent{}, err
	}
	if strings.TrimSpace(resp.Body) == "" {
		return product.RawContent{}, product.ErrNoContent
	}
	baseURL := pageURL
	if resp.FinalURL != "" {
		baseURL = resp.FinalURL
	}
	candidates := imageurl.Scan(resp.Body)
	if og := ScanMeta(resp.Body, "og:image"); og != "" {
		candidates = append([]string{og}, candidates...)
	}
	log.Debug().Str("url", pageURL).Int("attempts", resp.Attempts).Int("html_len", len(resp.Body)).Msg("direct fetch ok")
	return product.RawContent{
		Markdown:       resp.Body,
		HTML:           resp.Body,
		Title:          ScanTitle(resp.Body),
		Description:    ScanDescription(resp.Body),
		Images:         f.resolver().Dedupe(imageurl.ParseBase(baseURL), candidates),
		SourceStrategy: product.StrategyDirectFetch,
	}, nil
}

func (f *Fetcher) resolver() *imageurl.Resolver {
	if f.Images != nil {
		return f.Images
	}
	return imageurl.New(nil)
}
