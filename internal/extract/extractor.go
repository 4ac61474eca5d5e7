// Package extract turns acquired page content into a structured product by
// asking a chat model for JSON and recovering from malformed output.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/goproduct/internal/budget"
	"github.com/hyperifyio/goproduct/internal/cache"
	"github.com/hyperifyio/goproduct/internal/imageurl"
	"github.com/hyperifyio/goproduct/internal/llm"
	"github.com/hyperifyio/goproduct/internal/product"
)

// DefaultOutputTokens is reserved for the model's answer when sizing content.
const DefaultOutputTokens = 2048

// Extractor is the model-backed structured extraction stage.
type Extractor struct {
	Client llm.Client
	Model  string
	// APIKey must be non-empty; the extractor fails closed without it.
	APIKey string
	// MaxContentChars bounds the content sent to the model. Zero means
	// budget.DefaultMaxContentChars. The model context may clamp it further.
	MaxContentChars int
	MaxOutputTokens int
	Images          *imageurl.Resolver
	Cache           *cache.LLMCache
}

// Extraction is the structured result plus how it was obtained.
type Extraction struct {
	Product product.ExtractedProduct
	// Rung is the recovery ladder step that produced Product.
	Rung string
	// ContentChars is the length of the content actually sent.
	ContentChars int
	Cached       bool
}

// Extract asks the model for product JSON. Only configuration and model call
// failures are returned as errors; malformed output degrades to a minimal
// product.
func (e *Extractor) Extract(ctx context.Context, pageURL string, content string, mode product.Mode, imageURL string) (Extraction, error) {
	if e == nil || e.Client == nil || strings.TrimSpace(e.APIKey) == "" {
		return Extraction{}, fmt.Errorf("%w: language model API key is not set", product.ErrConfiguration)
	}
	system := SystemPrompt(mode)
	preamble := userPreamble(pageURL)
	limit := budget.ContentCharLimit(e.Model, e.MaxContentChars, e.outputTokens(), system, preamble)
	body := budget.Truncate(ToMarkdown(content), limit)
	user := preamble + body

	raw, cached, err := e.complete(ctx, mode, system, user, imageURL)
	if err != nil {
		return Extraction{}, err
	}
	p, rung := Recover(raw)
	log.Debug().Str("stage", "extract").Str("url", pageURL).Str("rung", rung).Bool("cached", cached).Int("content_len", len(body)).Int("response_len", len(raw)).Msg("model output parsed")
	if rung != RungAsIs {
		log.Warn().Str("stage", "extract").Str("url", pageURL).Str("rung", rung).Msg("model output needed recovery")
	}

	e.shape(&p, pageURL, content, mode, rung)
	return Extraction{Product: p, Rung: rung, ContentChars: len(body), Cached: cached}, nil
}

func (e *Extractor) outputTokens() int {
	if e.MaxOutputTokens > 0 {
		return e.MaxOutputTokens
	}
	return DefaultOutputTokens
}

// complete returns the raw model output, consulting the cache first.
func (e *Extractor) complete(ctx context.Context, mode product.Mode, system, user, imageURL string) (string, bool, error) {
	key := cache.KeyFrom(e.Model, system+"\n\n"+user+"\n\n"+imageURL)
	if e.Cache.Enabled() {
		if b, ok, _ := e.Cache.Get(ctx, key); ok {
			return string(b), true, nil
		}
	}

	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user}
	if strings.TrimSpace(imageURL) != "" {
		userMsg = openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: user},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageURL, Detail: openai.ImageURLDetailAuto}},
			},
		}
	}
	req := openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			userMsg,
		},
		Temperature:    temperatureFor(mode),
		MaxTokens:      e.outputTokens(),
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	resp, err := e.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", false, &product.ExtractError{Stage: "model", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", false, &product.ExtractError{Stage: "model", Err: errors.New("no choices returned")}
	}
	out := resp.Choices[0].Message.Content
	if e.Cache.Enabled() && strings.TrimSpace(out) != "" {
		if err := e.Cache.Save(ctx, key, []byte(out)); err != nil {
			log.Debug().Err(err).Msg("llm cache save failed")
		}
	}
	return out, false, nil
}

// shape normalizes the recovered product: sanitized copy, dot-decimal price,
// resolved and deduplicated images, and the description-image heuristic. The
// field-regex rung keeps its image arrays empty.
func (e *Extractor) shape(p *product.ExtractedProduct, pageURL, content string, mode product.Mode, rung string) {
	r := e.Images
	if r == nil {
		r = imageurl.New(nil)
	}
	base := imageurl.ParseBase(pageURL)

	p.Title = product.CleanTitle(p.Title)
	p.Price = product.NormalizePrice(p.Price)
	if mode == product.ModeProCopy && p.Description != PlaceholderDescription {
		p.Description = Sanitize(p.Description)
	}
	p.MainImages = r.Dedupe(base, p.MainImages)
	p.DescriptionImages = lo.Without(r.Dedupe(base, p.DescriptionImages), p.MainImages...)
	if len(p.DescriptionImages) == 0 && rung != RungFieldRegex {
		p.DescriptionImages = DescriptionImagesFromContent(r, base, content, p.MainImages)
	}
	p.Finalize()
}
