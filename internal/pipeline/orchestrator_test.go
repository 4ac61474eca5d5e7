package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goproduct/internal/content"
	"github.com/hyperifyio/goproduct/internal/description"
	"github.com/hyperifyio/goproduct/internal/extract"
	"github.com/hyperifyio/goproduct/internal/fetch"
	"github.com/hyperifyio/goproduct/internal/markdown"
	"github.com/hyperifyio/goproduct/internal/metrics"
	"github.com/hyperifyio/goproduct/internal/product"
)

type stubFetcher struct {
	raw product.RawContent
	err error
}

func (s stubFetcher) FetchContent(context.Context, string) (product.RawContent, error) {
	return s.raw, s.err
}

type stubExtractor struct {
	ex       extract.Extraction
	err      error
	imageURL string
}

func (s *stubExtractor) Extract(_ context.Context, _ string, _ string, _ product.Mode, imageURL string) (extract.Extraction, error) {
	s.imageURL = imageURL
	if s.err != nil {
		return extract.Extraction{}, s.err
	}
	p := s.ex.Product
	p.Finalize()
	return extract.Extraction{Product: p, Rung: s.ex.Rung}, nil
}

func mustRequest(t *testing.T, u string, mode string) product.ExtractionRequest {
	t.Helper()
	req, err := product.NewExtractionRequest(u, mode)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return req
}

func TestRun_FetchErrorIsTerminal(t *testing.T) {
	fe := &product.FetchError{URL: "https://x.example/p", Err: errors.New("down")}
	o := &Orchestrator{Content: stubFetcher{err: fe}, Extractor: &stubExtractor{}}
	_, err := o.Run(context.Background(), mustRequest(t, "https://x.example/p", ""))
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestRun_ExtractorConfigurationErrorIsTerminal(t *testing.T) {
	o := &Orchestrator{
		Content:   stubFetcher{raw: product.RawContent{Markdown: "x", SourceStrategy: product.StrategyDirectFetch}},
		Extractor: &stubExtractor{err: product.ErrConfiguration},
	}
	if _, err := o.Run(context.Background(), mustRequest(t, "https://x.example/p", "")); !errors.Is(err, product.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRun_ReconcilesAndBackfills(t *testing.T) {
	raw := product.RawContent{
		Markdown:       "Linen shirt. Now 1.299,00 € incl. VAT",
		Title:          "Blue Linen Shirt",
		Description:    "Breathable linen.\n✓ Relaxed fit\n✓ Mother-of-pearl buttons",
		Images:         []string{"https://cdn.example.com/img/1.jpg", "https://cdn.example.com/img/2.jpg", "https://cdn.example.com/img/3.jpg", "https://cdn.example.com/img/4.jpg"},
		SourceStrategy: product.StrategyRemoteService,
	}
	ex := &stubExtractor{ex: extract.Extraction{
		Product: product.ExtractedProduct{MainImages: []string{"https://cdn.example.com/img/1.jpg"}, Description: description.Placeholder},
		Rung:    extract.RungFieldRegex,
	}}
	o := &Orchestrator{Content: stubFetcher{raw: raw}, Extractor: ex, Metrics: metrics.New(), AttachImage: true}
	resp, err := o.Run(context.Background(), mustRequest(t, "https://shop.example.com/products/blue-linen-shirt", "standard"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if ex.imageURL != "https://cdn.example.com/img/1.jpg" {
		t.Fatalf("first fetched image should be attached, got %q", ex.imageURL)
	}
	if resp.Title != "Blue Linen Shirt" {
		t.Fatalf("title = %q", resp.Title)
	}
	if resp.Price != "1299.00" {
		t.Fatalf("price = %q", resp.Price)
	}
	if len(resp.MainImages) != 4 {
		t.Fatalf("more-images-wins should pick the fetched set, got %v", resp.MainImages)
	}
	wantDesc := `<p>Breathable linen.</p><ul class="feature-list"><li class="feature-item">Relaxed fit</li><li class="feature-item">Mother-of-pearl buttons</li></ul>`
	if !strings.HasPrefix(resp.Description, wantDesc) {
		t.Fatalf("description = %s", resp.Description)
	}
	if strings.Count(resp.Description, "<img ") != description.GalleryImageLimit || !strings.Contains(resp.Description, `class="product-gallery"`) {
		t.Fatalf("expected a gallery of %d images: %s", description.GalleryImageLimit, resp.Description)
	}
	if resp.Source != product.StrategyRemoteService || resp.Stats.FetchedImages != 4 || resp.Stats.RecoveryRung != extract.RungFieldRegex {
		t.Fatalf("unexpected metadata: %+v", resp.Stats)
	}
	if strings.Join(resp.Stats.Backfilled, ",") != "mainImages,title,price,description" {
		t.Fatalf("backfilled = %v", resp.Stats.Backfilled)
	}
	if strings.Join(resp.Images, ",") != strings.Join(resp.MainImages, ",") {
		t.Fatalf("images must equal the union of main and description images")
	}
}

func TestRun_KeepsExtractorImagesWhenNotSmaller(t *testing.T) {
	raw := product.RawContent{Markdown: "x", Images: []string{"https://cdn.example.com/img/9.jpg"}, SourceStrategy: product.StrategyDirectFetch}
	ex := &stubExtractor{ex: extract.Extraction{Product: product.ExtractedProduct{
		Title:             "Lamp",
		Price:             "10.00",
		Description:       "<p>Warm light.</p>",
		MainImages:        []string{"https://cdn.example.com/img/1.jpg"},
		DescriptionImages: []string{"https://cdn.example.com/img/d.jpg"},
	}, Rung: extract.RungAsIs}}
	o := &Orchestrator{Content: stubFetcher{raw: raw}, Extractor: ex}
	resp, err := o.Run(context.Background(), mustRequest(t, "https://shop.example.com/p/lamp", ""))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if resp.Description != "<p>Warm light.</p>" {
		t.Fatalf("no gallery expected when description images exist: %s", resp.Description)
	}
	if len(resp.Stats.Backfilled) != 0 {
		t.Fatalf("nothing should be back-filled: %v", resp.Stats.Backfilled)
	}
	if ex.imageURL != "" {
		t.Fatalf("image must not be attached unless enabled")
	}
}

func TestRun_TitleFromURLWhenNothingElse(t *testing.T) {
	o := &Orchestrator{
		Content:   stubFetcher{raw: product.RawContent{Markdown: "no price here", SourceStrategy: product.StrategyDirectFetch}},
		Extractor: &stubExtractor{ex: extract.Extraction{Rung: extract.RungFieldRegex}},
	}
	resp, err := o.Run(context.Background(), mustRequest(t, "https://shop.example.com/products/oak-side-table.html", ""))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if resp.Title != "Oak Side Table" {
		t.Fatalf("title = %q", resp.Title)
	}
	if resp.Price != "" {
		t.Fatalf("price = %q", resp.Price)
	}
	if resp.Description != description.Placeholder {
		t.Fatalf("description = %q", resp.Description)
	}
	if resp.MainImages == nil || resp.Images == nil {
		t.Fatalf("image arrays must be non-nil")
	}
}

func TestRun_URLTitleFeedsGalleryAndPriceBackfill(t *testing.T) {
	raw := product.RawContent{
		Markdown:       "Only $12.99 3 left in stock",
		Images:         []string{"https://cdn.example.com/img/1.jpg", "https://cdn.example.com/img/2.jpg"},
		SourceStrategy: product.StrategyDirectFetch,
	}
	o := &Orchestrator{
		Content:   stubFetcher{raw: raw},
		Extractor: &stubExtractor{ex: extract.Extraction{Rung: extract.RungFieldRegex}},
	}
	resp, err := o.Run(context.Background(), mustRequest(t, "https://shop.example.com/products/oak-side-table", ""))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if resp.Title != "Oak Side Table" {
		t.Fatalf("title = %q", resp.Title)
	}
	if resp.Price != "12.99" {
		t.Fatalf("price = %q, want 12.99", resp.Price)
	}
	if !strings.Contains(resp.Description, `alt="Oak Side Table"`) {
		t.Fatalf("gallery alt should carry the derived title: %s", resp.Description)
	}
	if strings.Contains(resp.Description, `alt=""`) {
		t.Fatalf("gallery has empty alt text: %s", resp.Description)
	}
}

type chatStub struct{ content string }

func (c chatStub) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: c.content}}}}, nil
}

type failingMarkdown struct{}

func (failingMarkdown) Configured() bool { return true }

func (failingMarkdown) Fetch(context.Context, string) (markdown.Page, error) {
	return markdown.Page{}, errors.New("markdown service unavailable")
}

func TestRun_RemoteFailureFallsBackToDirectFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Field Jacket</title><meta name="description" content="Waxed cotton."></head>
<body><main><h1>Field Jacket</h1><p>Price: $249.00</p><img src="/media/jacket.jpg"></main></body></html>`))
	}))
	defer srv.Close()

	o := &Orchestrator{
		Content: &content.Fetcher{
			Markdown: failingMarkdown{},
			Direct:   &fetch.Client{Sleep: func(context.Context, time.Duration) error { return nil }},
		},
		Extractor: &extract.Extractor{Client: chatStub{content: `{"title":"Field Jacket","price":"249"}`}, Model: "gpt-4o", APIKey: "k"},
	}
	resp, err := o.Run(context.Background(), mustRequest(t, srv.URL+"/products/field-jacket", ""))
	if err != nil {
		t.Fatalf("fallback should succeed: %v", err)
	}
	if resp.Source != product.StrategyDirectFetch {
		t.Fatalf("source = %q", resp.Source)
	}
	if resp.Title != "Field Jacket" || resp.Price != "249.00" {
		t.Fatalf("unexpected product: %+v", resp.ExtractedProduct)
	}
	if len(resp.MainImages) != 1 || resp.MainImages[0] != srv.URL+"/media/jacket.jpg" {
		t.Fatalf("main images = %v", resp.MainImages)
	}
	if !product.IsNormalizedPrice(resp.Price) {
		t.Fatalf("price format: %q", resp.Price)
	}
}

func TestTitleFromURL(t *testing.T) {
	cases := map[string]string{
		"https://s.example/products/blue-linen-shirt":      "Blue Linen Shirt",
		"https://s.example/p/oak_table.html?variant=1":     "Oak Table",
		"https://s.example/p/%C5%82%C3%B3d%C5%BAka-kajak/": "Łódźka Kajak",
		"https://s.example/":                               "s.example",
	}
	for in, want := range cases {
		if got := TitleFromURL(in); got != want {
			t.Fatalf("TitleFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPreferLargerImageSet(t *testing.T) {
	a, b := []string{"x"}, []string{"y", "z"}
	if got, replaced := PreferLargerImageSet(a, b); !replaced || len(got) != 2 {
		t.Fatalf("larger fetched set should win")
	}
	if got, replaced := PreferLargerImageSet(b, a); replaced || len(got) != 2 {
		t.Fatalf("extractor set kept when not smaller")
	}
	if _, replaced := PreferLargerImageSet(a, []string{"q"}); replaced {
		t.Fatalf("ties keep the extractor set")
	}
}
