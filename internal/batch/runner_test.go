package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"factorlens/domain/core"
	"factorlens/internal"
	apperrors "factorlens/internal/errors"
)

func entityIDs(n int) []core.EntityID {
	ids := make([]core.EntityID, n)
	for i := range ids {
		ids[i] = core.EntityID(string(rune('a' + i)))
	}
	return ids
}

func TestRun_FailureIsolation(t *testing.T) {
	runner := NewRunner(4, time.Second, internal.NewDefaultLogger())
	ids := entityIDs(6)

	summary := runner.Run(context.Background(), ids, func(ctx context.Context, id core.EntityID) error {
		if id == "c" {
			return apperrors.InsufficientData("not enough history")
		}
		return nil
	})

	if summary.Succeeded != 5 || summary.Failed != 1 {
		t.Errorf("summary = %d succeeded / %d failed, want 5/1", summary.Succeeded, summary.Failed)
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("errors = %+v, want exactly one", summary.Errors)
	}
	if summary.Errors[0].EntityID != "c" {
		t.Errorf("failed entity = %s, want c", summary.Errors[0].EntityID)
	}
	if summary.Errors[0].Code != apperrors.CodeInsufficientData {
		t.Errorf("error code = %s, want %s", summary.Errors[0].Code, apperrors.CodeInsufficientData)
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	runner := NewRunner(2, time.Second, internal.NewDefaultLogger())

	var inFlight, peak int32
	var mu sync.Mutex
	summary := runner.Run(context.Background(), entityIDs(8), func(ctx context.Context, id core.EntityID) error {
		now := atomic.AddInt32(&inFlight, 1)
		mu.Lock()
		if now > peak {
			peak = now
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})

	if summary.Succeeded != 8 {
		t.Fatalf("succeeded = %d, want 8", summary.Succeeded)
	}
	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", peak)
	}
}

func TestRun_CancelledContextRecordsRemainder(t *testing.T) {
	runner := NewRunner(1, time.Second, internal.NewDefaultLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := runner.Run(ctx, entityIDs(3), func(ctx context.Context, id core.EntityID) error {
		return nil
	})
	if summary.Succeeded != 0 || summary.Failed != 3 {
		t.Errorf("summary after pre-cancelled context = %+v, want every entity recorded failed", summary)
	}
}

func TestRun_EmptyEntityList(t *testing.T) {
	runner := NewRunner(4, time.Second, internal.NewDefaultLogger())
	summary := runner.Run(context.Background(), nil, func(ctx context.Context, id core.EntityID) error {
		t.Error("fn must not run for an empty entity list")
		return nil
	})
	if summary.Succeeded != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want zeroes", summary)
	}
}
