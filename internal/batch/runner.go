// Package batch runs per-entity operations across many entities with a
// bounded concurrency limit. One entity's failure is recorded and
// summarized; it never aborts its siblings.
package batch

import (
	"context"
	"sync"
	"time"

	"factorlens/domain/core"
	"factorlens/internal"
	apperrors "factorlens/internal/errors"

	"golang.org/x/sync/semaphore"
)

// EntityFunc is one per-entity batch operation.
type EntityFunc func(ctx context.Context, entityID core.EntityID) error

// EntityError records one entity's failure within a batch.
type EntityError struct {
	EntityID core.EntityID `json:"entity_id"`
	Code     string        `json:"code"`
	Message  string        `json:"message"`
}

// Summary is the outcome of one batch run.
type Summary struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Errors    []EntityError `json:"errors,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Runner bounds concurrent entity work with a weighted semaphore so the
// aggregation store and factor sources are never stampeded.
type Runner struct {
	sem           *semaphore.Weighted
	entityTimeout time.Duration
	log           *internal.Logger
}

// NewRunner creates a runner allowing maxConcurrent entities in flight.
func NewRunner(maxConcurrent int64, entityTimeout time.Duration, logger *internal.Logger) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Runner{
		sem:           semaphore.NewWeighted(maxConcurrent),
		entityTimeout: entityTimeout,
		log:           logger.Component("batch"),
	}
}

// Run executes fn for every entity, respecting the concurrency bound and
// the per-entity timeout. The returned summary never carries a partial
// count: every entity is either a success or a recorded failure.
func (r *Runner) Run(ctx context.Context, entityIDs []core.EntityID, fn EntityFunc) Summary {
	started := time.Now()
	var mu sync.Mutex
	var wg sync.WaitGroup
	summary := Summary{}

	for _, entityID := range entityIDs {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			// Context cancelled while waiting; record the remainder.
			mu.Lock()
			summary.Failed++
			summary.Errors = append(summary.Errors, EntityError{
				EntityID: entityID,
				Code:     apperrors.GetCode(err),
				Message:  "batch cancelled before entity started",
			})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(id core.EntityID) {
			defer wg.Done()
			defer r.sem.Release(1)

			entityCtx := ctx
			var cancel context.CancelFunc
			if r.entityTimeout > 0 {
				entityCtx, cancel = context.WithTimeout(ctx, r.entityTimeout)
				defer cancel()
			}

			if err := fn(entityCtx, id); err != nil {
				r.log.Warn("entity %s failed: %v", id, err)
				mu.Lock()
				summary.Failed++
				summary.Errors = append(summary.Errors, EntityError{
					EntityID: id,
					Code:     apperrors.GetCode(err),
					Message:  err.Error(),
				})
				mu.Unlock()
				return
			}
			mu.Lock()
			summary.Succeeded++
			mu.Unlock()
		}(entityID)
	}

	wg.Wait()
	summary.Elapsed = time.Since(started)
	r.log.Info("batch finished: %d succeeded, %d failed in %s", summary.Succeeded, summary.Failed, summary.Elapsed)
	return summary
}
