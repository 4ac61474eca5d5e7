// Package jobs runs extractions in the background and tracks their status
// for polling clients.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/hyperifyio/goproduct/internal/product"
)

// ErrNotFound is returned for unknown or cleaned-up job ids.
var ErrNotFound = errors.New("job not found")

// Status is a job lifecycle state: pending, processing, then completed or
// failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the pollable record of one asynchronous extraction.
type Job struct {
	ID          string                      `json:"id"`
	Status      Status                      `json:"status"`
	Request     product.ExtractionRequest   `json:"request"`
	StartedAt   time.Time                   `json:"startedAt"`
	CompletedAt *time.Time                  `json:"completedAt,omitempty"`
	Result      *product.ExtractionResponse `json:"result,omitempty"`
	Error       string                      `json:"error,omitempty"`
}

// Store persists job records. Update applies fn atomically and only when
// the record exists, returning ErrNotFound otherwise, so a deleted job is
// never written back.
type Store interface {
	Get(ctx context.Context, id string) (Job, error)
	Put(ctx context.Context, job Job) error
	Delete(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, id string, fn func(*Job)) error
}
