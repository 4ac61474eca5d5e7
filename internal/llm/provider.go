package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Client is the minimal interface needed by core logic to call a chat model.
// It mirrors CreateChatCompletion so any OpenAI-compatible backend, or a
// test stub, can be adapted.
type Client interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider adapts *openai.Client to the Client interface.
type OpenAIProvider struct {
	Inner *openai.Client
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return p.Inner.CreateChatCompletion(ctx, request)
}

// Options configure NewOpenAI.
type Options struct {
	BaseURL string
	APIKey  string
	// Timeout bounds a whole completion call; zero leaves the HTTP client's.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewOpenAI builds a provider for an OpenAI-compatible endpoint. The HTTP
// client is copied so the explicit timeout does not leak into other users.
func NewOpenAI(opts Options) *OpenAIProvider {
	cfg := openai.DefaultConfig(opts.APIKey)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}
	hc := &http.Client{}
	if opts.HTTPClient != nil {
		c := *opts.HTTPClient
		hc = &c
	}
	if opts.Timeout > 0 {
		hc.Timeout = opts.Timeout
	}
	cfg.HTTPClient = hc
	return &OpenAIProvider{Inner: openai.NewClientWithConfig(cfg)}
}

// RateLimited throttles calls to Next. A nil Limiter disables throttling.
type RateLimited struct {
	Next    Client
	Limiter *rate.Limiter
}

// NewRateLimited allows rps calls per second with a burst of one. A
// non-positive rps returns next unchanged.
func NewRateLimited(next Client, rps float64) Client {
	if rps <= 0 {
		return next
	}
	return &RateLimited{Next: next, Limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (r *RateLimited) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return openai.ChatCompletionResponse{}, err
		}
	}
	return r.Next.CreateChatCompletion(ctx, request)
}
