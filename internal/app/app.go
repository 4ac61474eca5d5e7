package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goproduct/internal/cache"
	"github.com/hyperifyio/goproduct/internal/content"
	"github.com/hyperifyio/goproduct/internal/extract"
	"github.com/hyperifyio/goproduct/internal/fetch"
	"github.com/hyperifyio/goproduct/internal/httpapi"
	"github.com/hyperifyio/goproduct/internal/imageurl"
	"github.com/hyperifyio/goproduct/internal/jobs"
	"github.com/hyperifyio/goproduct/internal/llm"
	"github.com/hyperifyio/goproduct/internal/markdown"
	"github.com/hyperifyio/goproduct/internal/metrics"
	"github.com/hyperifyio/goproduct/internal/pipeline"
	"github.com/hyperifyio/goproduct/internal/robots"
)

// robotsUserAgent is matched against robots.txt User-agent groups.
const robotsUserAgent = "goproduct/1.0"

// App owns the wired service: pipeline, job manager and HTTP handler.
type App struct {
	cfg          Config
	provider     *llm.OpenAIProvider
	orchestrator *pipeline.Orchestrator
	jobs         *jobs.Manager
	metrics      *metrics.Metrics
	handler      http.Handler
	closers      []func() error
}

// New builds every component from cfg. It fails only when a configured
// backend is unreachable (the redis job store); a missing model API key is
// reported per request instead.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	m := metrics.New()
	images := imageurl.New(cfg.CDNRewrites)
	httpClient := newHighThroughputHTTPClient(0)

	direct := &fetch.Client{
		HTTPClient:        httpClient,
		MaxAttempts:       cfg.FetchAttempts,
		PerRequestTimeout: cfg.FetchTimeout,
		BackoffBase:       cfg.FetchBackoffBase,
		BackoffMax:        cfg.FetchBackoffMax,
	}
	remote := &markdown.Client{
		BaseURL:    cfg.MarkdownServiceURL,
		Token:      cfg.MarkdownServiceToken,
		HTTPClient: httpClient,
		Timeout:    cfg.MarkdownTimeout,
	}
	if !remote.Configured() {
		log.Info().Msg("markdown service not configured; direct fetch only")
	}

	fetcher := &content.Fetcher{Markdown: remote, Direct: direct, Images: images}
	if cfg.FetchRespectRobots {
		fetcher.Robots = &robots.Checker{HTTPClient: httpClient, UserAgent: robotsUserAgent}
	}

	a := &App{cfg: cfg, metrics: m}

	var client llm.Client
	if strings.TrimSpace(cfg.LLMAPIKey) != "" {
		a.provider = llm.NewOpenAI(llm.Options{
			BaseURL:    cfg.LLMBaseURL,
			APIKey:     cfg.LLMAPIKey,
			Timeout:    cfg.LLMTimeout,
			HTTPClient: httpClient,
		})
		client = llm.NewRateLimited(a.provider, cfg.LLMRPS)
	} else {
		log.Warn().Msg("no model API key configured; extraction requests will fail")
	}

	a.orchestrator = &pipeline.Orchestrator{
		Content: fetcher,
		Extractor: &extract.Extractor{
			Client:          client,
			Model:           cfg.LLMModel,
			APIKey:          cfg.LLMAPIKey,
			MaxContentChars: cfg.MaxContentChars,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Images:          images,
			Cache:           openCache(cfg),
		},
		Images:      images,
		Metrics:     m,
		AttachImage: cfg.LLMAttachImage,
	}

	store, err := a.openJobStore(ctx)
	if err != nil {
		return nil, err
	}
	a.jobs = jobs.NewManager(store, m)
	a.handler = httpapi.New(httpapi.Options{
		Runner:         a.orchestrator,
		Jobs:           a.jobs,
		Metrics:        m,
		RequestTimeout: cfg.RequestTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	return a, nil
}

// openCache prepares the model response cache. Pruning failures are logged
// and never block startup.
func openCache(cfg Config) *cache.LLMCache {
	if cfg.CacheDir == "" {
		return nil
	}
	if cfg.CacheMaxAge > 0 {
		if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache purge failed")
		} else if n > 0 {
			log.Info().Int("removed", n).Dur("max_age", cfg.CacheMaxAge).Msg("cache purged")
		}
	}
	if cfg.CacheMaxEntries > 0 {
		if n, err := cache.EnforceLimit(cfg.CacheDir, cfg.CacheMaxEntries); err != nil {
			log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache limit enforcement failed")
		} else if n > 0 {
			log.Info().Int("removed", n).Int("max_entries", cfg.CacheMaxEntries).Msg("cache trimmed")
		}
	}
	return &cache.LLMCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
}

func (a *App) openJobStore(ctx context.Context) (jobs.Store, error) {
	if a.cfg.JobStore != JobStoreRedis {
		return jobs.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	store := jobs.NewRedisStore(client, a.cfg.JobTTL)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("redis job store %s: %w", a.cfg.RedisAddr, err)
	}
	a.closers = append(a.closers, store.Close)
	log.Info().Str("addr", a.cfg.RedisAddr).Dur("ttl", a.cfg.JobTTL).Msg("redis job store ready")
	return store, nil
}

// Handler returns the HTTP surface.
func (a *App) Handler() http.Handler { return a.handler }

// Preflight lists the models the endpoint serves and warns when the
// configured one is missing. It is best-effort and never fails startup.
func (a *App) Preflight(ctx context.Context) {
	if a.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := a.provider.Inner.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	for _, model := range models.Models {
		if model.ID == a.cfg.LLMModel {
			log.Info().Int("count", len(models.Models)).Str("model", a.cfg.LLMModel).Msg("LLM model available")
			return
		}
	}
	log.Warn().Int("count", len(models.Models)).Str("model", a.cfg.LLMModel).Msg("configured model not listed by endpoint")
}

// ListenAndServe serves on cfg.ListenAddr until ctx is cancelled.
func (a *App) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln. When ctx is cancelled the server stops
// accepting requests and Serve waits for in-flight requests and jobs, bounded
// by ShutdownTimeout, before returning.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := a.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	log.Info().Dur("timeout", timeout).Msg("shutting down")
	err := srv.Shutdown(shutdownCtx)
	if werr := a.jobs.Wait(shutdownCtx); werr != nil {
		log.Warn().Err(werr).Msg("jobs still running at shutdown")
	}
	return err
}

// Close releases backend connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
