// Package httpapi exposes extraction over HTTP: a synchronous endpoint and
// an asynchronous start/poll pair backed by the job manager.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hyperifyio/goproduct/internal/jobs"
	"github.com/hyperifyio/goproduct/internal/metrics"
	"github.com/hyperifyio/goproduct/internal/product"
)

// Runner performs one extraction run.
type Runner interface {
	Run(ctx context.Context, req product.ExtractionRequest) (product.ExtractionResponse, error)
}

// Options configure the router.
type Options struct {
	Runner  Runner
	Jobs    *jobs.Manager
	Metrics *metrics.Metrics
	// RequestTimeout bounds synchronous requests. Zero means 3 minutes.
	RequestTimeout time.Duration
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
}

type Server struct {
	runner  Runner
	jobs    *jobs.Manager
	metrics *metrics.Metrics
	router  *chi.Mux
}

// New builds the router.
func New(opts Options) *Server {
	s := &Server{runner: opts.Runner, jobs: opts.Jobs, metrics: opts.Metrics}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.metrics))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/extract", func(r chi.Router) {
		r.With(middleware.Timeout(timeout)).Post("/", s.handleExtract)
		r.Post("/start", s.handleStart)
		r.Get("/status/{jobId}", s.handleStatus)
		r.Delete("/status/{jobId}", s.handleCleanup)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
