package app

import (
	"time"

	"github.com/hyperifyio/goproduct/internal/budget"
	"github.com/hyperifyio/goproduct/internal/extract"
	"github.com/hyperifyio/goproduct/internal/fetch"
)

// Job store backends.
const (
	JobStoreMemory = "memory"
	JobStoreRedis  = "redis"
)

// Config holds runtime settings for the extraction service.
type Config struct {
	ListenAddr string

	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string
	LLMTimeout time.Duration
	// LLMRPS caps model requests per second. Zero disables the limiter.
	LLMRPS float64
	// LLMAttachImage sends the first candidate image alongside the page text.
	LLMAttachImage  bool
	MaxContentChars int
	MaxOutputTokens int

	MarkdownServiceURL   string
	MarkdownServiceToken string
	MarkdownTimeout      time.Duration

	FetchTimeout     time.Duration
	FetchAttempts    int
	FetchBackoffBase time.Duration
	FetchBackoffMax  time.Duration

	// FetchRespectRobots skips direct fetches robots.txt disallows.
	FetchRespectRobots bool

	JobStore      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JobTTL        time.Duration

	CacheDir         string
	CacheMaxAge      time.Duration
	CacheMaxEntries  int
	CacheStrictPerms bool

	// CDNRewrites extends the built-in resized-image host rewrites.
	CDNRewrites map[string]string

	AllowedOrigins  []string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Verbose bool
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		ListenAddr:       ":8080",
		LLMBaseURL:       "https://api.openai.com/v1",
		LLMModel:         "gpt-4o-mini",
		LLMTimeout:       90 * time.Second,
		MaxContentChars:  budget.DefaultMaxContentChars,
		MaxOutputTokens:  extract.DefaultOutputTokens,
		MarkdownTimeout:  60 * time.Second,
		FetchTimeout:     fetch.DefaultPerRequestTimeout,
		FetchAttempts:    fetch.DefaultMaxAttempts,
		FetchBackoffBase: fetch.DefaultBackoffBase,
		FetchBackoffMax:  fetch.DefaultBackoffMax,
		JobStore:         JobStoreMemory,
		RedisAddr:        "localhost:6379",
		JobTTL:           24 * time.Hour,
		CacheMaxAge:      7 * 24 * time.Hour,
		RequestTimeout:   3 * time.Minute,
		ShutdownTimeout:  30 * time.Second,
	}
}
