package product

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is fatal and never retried, e.g. a missing API key.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks caller-facing input problems such as a missing url.
	ErrValidation = errors.New("validation error")
	// ErrNoContent is returned when a strategy succeeded but yielded nothing usable.
	ErrNoContent = errors.New("no content")
)

// FetchError reports that content acquisition failed. Inside the content
// fetcher the first strategy's FetchError triggers the fallback; the fallback's
// FetchError is terminal.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractError reports a failed model call. Unrecoverable model output does not
// produce an ExtractError; it degrades to a minimal product instead.
type ExtractError struct {
	Stage string
	Err   error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract (%s): %v", e.Stage, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// PublicMessage renders err for API callers. Configuration problems are
// reported generically so credentials and settings never leak.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrConfiguration) {
		return "extraction service is not configured"
	}
	return err.Error()
}
