package batch

import (
	"context"
	"time"

	"factorlens/internal"
)

// CycleFunc runs one full multi-entity cycle (discovery, validation, ...).
type CycleFunc func(ctx context.Context)

// Scheduler drives the recurring discovery and validation cycles on their
// own intervals, independent of request-time prediction, which always
// reads the latest persisted state.
type Scheduler struct {
	log    *internal.Logger
	cancel context.CancelFunc
}

// NewScheduler creates an idle scheduler.
func NewScheduler(logger *internal.Logger) *Scheduler {
	return &Scheduler{log: logger.Component("scheduler")}
}

// Cycle names one recurring job and its interval.
type Cycle struct {
	Name     string
	Interval time.Duration
	Run      CycleFunc
}

// Start launches one goroutine per cycle. Each cycle also fires once at
// startup so a fresh deployment is not blind until the first tick.
func (s *Scheduler) Start(parent context.Context, cycles []Cycle) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	for _, cycle := range cycles {
		go func(c Cycle) {
			s.log.Info("cycle %s scheduled every %s", c.Name, c.Interval)
			c.Run(ctx)
			ticker := time.NewTicker(c.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.Run(ctx)
				}
			}
		}(cycle)
	}
}

// Stop cancels all running cycles.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}
