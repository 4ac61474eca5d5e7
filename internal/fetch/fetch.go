package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// BrowserUserAgent is sent by default; many storefronts refuse obvious bots.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const (
	DefaultMaxAttempts       = 3
	DefaultPerRequestTimeout = 30 * time.Second
	DefaultBackoffBase       = time.Second
	DefaultBackoffMax        = 8 * time.Second
	maxBodyBytes             = 8 << 20
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	if e.Code >= 500 {
		return fmt.Sprintf("server error: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

var errUnsupported = errors.New("unsupported")

// Response is a decoded page body.
type Response struct {
	Body        string
	ContentType string
	FinalURL    string
	Attempts    int
}

// Client wraps http.Client with a per-attempt timeout and exponential backoff
// between attempts on transient errors.
type Client struct {
	HTTPClient *http.Client
	// UserAgent defaults to BrowserUserAgent.
	UserAgent string
	// MaxAttempts includes the initial attempt. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// PerRequestTimeout bounds each attempt. Zero means DefaultPerRequestTimeout.
	PerRequestTimeout time.Duration
	// BackoffBase is the wait after the first failed attempt; each further
	// wait doubles up to BackoffMax.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// Sleep waits between attempts. Nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

// Backoff returns the wait after the given zero-based failed attempt:
// min(base * 2^attempt, max).
func (c *Client) Backoff(attempt int) time.Duration {
	base := c.BackoffBase
	if base <= 0 {
		base = DefaultBackoffBase
	}
	limit := c.BackoffMax
	if limit <= 0 {
		limit = DefaultBackoffMax
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return min(d, limit)
}

// Get fetches rawURL, retrying transient failures (network errors, timeouts,
// 429 and 5xx) with exponential backoff. The body is decoded to UTF-8.
func (c *Client) Get(ctx context.Context, rawURL string) (Response, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		resp, err := c.tryOnce(ctx, rawURL)
		if err == nil {
			resp.Attempts = i + 1
			return resp, nil
		}
		lastErr = err
		if !isTransient(err) || ctx.Err() != nil || i == attempts-1 {
			break
		}
		wait := c.Backoff(i)
		log.Debug().Err(err).Str("url", rawURL).Int("attempt", i+1).Dur("backoff", wait).Msg("fetch retry")
		if err := c.sleep(ctx, wait); err != nil {
			return Response{}, err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return Response{}, lastErr
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) tryOnce(ctx context.Context, rawURL string) (Response, error) {
	// Concurrency gate per client instance
	c.acquire()
	defer c.release()

	timeout := c.PerRequestTimeout
	if timeout <= 0 {
		timeout = DefaultPerRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("new request: %w", err)
	}
	// Reject non-HTTP(S) schemes early
	if !isHTTPScheme(req.URL) {
		return Response{}, fmt.Errorf("%w URL scheme: %q", errUnsupported, req.URL.String())
	}
	ua := c.UserAgent
	if ua == "" {
		ua = BrowserUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &StatusError{Code: resp.StatusCode}
	}
	contentType := resp.Header.Get("Content-Type")
	if !isAllowedHTMLContentType(contentType) {
		return Response{}, fmt.Errorf("%w content type: %s", errUnsupported, contentType)
	}
	r, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), contentType)
	if err != nil {
		return Response{}, fmt.Errorf("decode charset: %w", err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return Response{}, fmt.Errorf("read body: %w", err)
	}
	return Response{Body: string(b), ContentType: contentType, FinalURL: resp.Request.URL.String()}, nil
}

func isTransient(err error) bool {
	if errors.Is(err, errUnsupported) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests || se.Code == http.StatusRequestTimeout
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return fmt.Errorf("%w: too many redirects", errUnsupported)
		}
		// Only allow http/https during redirects
		if !isHTTPScheme(req.URL) {
			return fmt.Errorf("%w: redirect scheme", errUnsupported)
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	// some storefronts omit the header entirely
	return ct == "" || strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
