package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/goproduct/internal/metrics"
	"github.com/hyperifyio/goproduct/internal/product"
)

// WorkFunc performs one extraction.
type WorkFunc func(ctx context.Context, req product.ExtractionRequest) (product.ExtractionResponse, error)

// Manager creates jobs and runs each on its own goroutine, which is the only
// writer of that job's record.
type Manager struct {
	store   Store
	metrics *metrics.Metrics
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewManager uses a MemoryStore when store is nil.
func NewManager(store Store, m *metrics.Metrics) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{store: store, metrics: m, now: time.Now}
}

// CreateJob records a pending job and starts work in the background. The
// record exists before CreateJob returns, so an immediate GetStatus never
// misses it. The work runs on a background context; canceling ctx does not
// stop it.
func (m *Manager) CreateJob(ctx context.Context, req product.ExtractionRequest, work WorkFunc) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("job id: %w", err)
	}
	job := Job{ID: id.String(), Status: StatusPending, Request: req, StartedAt: m.now().UTC()}
	if err := m.store.Put(ctx, job); err != nil {
		return "", fmt.Errorf("store job: %w", err)
	}
	m.wg.Add(1)
	m.metrics.JobStarted()
	go m.run(job.ID, req, work)
	log.Info().Str("job_id", job.ID).Str("url", req.SourceURL).Msg("job created")
	return job.ID, nil
}

func (m *Manager) run(id string, req product.ExtractionRequest, work WorkFunc) {
	defer m.wg.Done()
	defer m.metrics.JobFinished()
	ctx := context.Background()
	logger := log.With().Str("job_id", id).Logger()

	if err := m.store.Update(ctx, id, func(j *Job) { j.Status = StatusProcessing }); err != nil {
		logger.Debug().Err(err).Msg("job gone before start")
		return
	}

	resp, workErr := work(ctx, req)

	err := m.store.Update(ctx, id, func(j *Job) {
		done := m.now().UTC()
		j.CompletedAt = &done
		if workErr != nil {
			j.Status = StatusFailed
			j.Error = product.PublicMessage(workErr)
			return
		}
		j.Status = StatusCompleted
		j.Result = &resp
	})
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Info().Msg("job cleaned up while running; result dropped")
	case err != nil:
		logger.Error().Err(err).Msg("job result not stored")
	case workErr != nil:
		logger.Warn().Err(workErr).Msg("job failed")
	default:
		logger.Info().Int64("processing_ms", resp.ProcessingTime).Msg("job completed")
	}
}

// GetStatus returns the job or ErrNotFound.
func (m *Manager) GetStatus(ctx context.Context, id string) (Job, error) {
	return m.store.Get(ctx, id)
}

// Cleanup deletes the job record. Work already in flight keeps running but
// its result is discarded.
func (m *Manager) Cleanup(ctx context.Context, id string) (bool, error) {
	ok, err := m.store.Delete(ctx, id)
	if err == nil && ok {
		log.Debug().Str("job_id", id).Msg("job cleaned up")
	}
	return ok, err
}

// Wait blocks until every started job has finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
