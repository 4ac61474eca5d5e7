// Package markdown talks to the remote markdown-extraction service that turns
// a product page into simplified markdown plus metadata.
package markdown

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured is returned when no service URL is set.
	ErrNotConfigured = errors.New("markdown service not configured")
	// ErrNoMarkdown is returned when no payload shape yields a text field.
	ErrNoMarkdown = errors.New("markdown service returned no markdown field")
)

const maxBodyBytes = 16 << 20

// Page is the useful part of a service response.
type Page struct {
	Markdown    string
	Title       string
	Description string
	Images      []string
	Shape       Shape
}

// Client posts {url} to the service and accepts any of the known payload shapes.
type Client struct {
	BaseURL string
	Token   string
	// TokenHeader names the header carrying Token. Empty means
	// "Authorization" with a Bearer prefix.
	TokenHeader string
	HTTPClient  *http.Client
	// Timeout bounds the whole call. Zero means 60s.
	Timeout time.Duration
}

// Configured reports whether the client can be used at all.
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.BaseURL) != ""
}

// Fetch converts pageURL through the service.
func (c *Client) Fetch(ctx context.Context, pageURL string) (Page, error) {
	if !c.Configured() {
		return Page{}, ErrNotConfigured
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"url": pageURL})
	if err != nil {
		return Page{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return Page{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		if c.TokenHeader == "" || strings.EqualFold(c.TokenHeader, "Authorization") {
			req.Header.Set("Authorization", "Bearer "+c.Token)
		} else {
			req.Header.Set(c.TokenHeader, c.Token)
		}
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, fmt.Errorf("markdown service status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}
	return Parse(body)
}

// Parse extracts a Page from any supported payload shape.
func Parse(body []byte) (Page, error) {
	shape, rec := DetectShape(body)
	if shape == ShapeUnknown {
		return Page{Shape: shape}, ErrNoMarkdown
	}
	text, ok := rec.text()
	if !ok {
		return Page{Shape: shape}, ErrNoMarkdown
	}
	p := Page{
		Markdown:    text,
		Title:       rec.str("title"),
		Description: rec.str("description"),
		Images:      rec.list("images"),
		Shape:       shape,
	}
	if meta := asObject(rec["metadata"]); meta != nil {
		if p.Title == "" {
			p.Title = meta.str("title")
		}
		if p.Description == "" {
			p.Description = meta.str("description")
		}
		if og := meta.str("ogImage"); og != "" {
			p.Images = append(p.Images, og)
		}
	}
	return p, nil
}
