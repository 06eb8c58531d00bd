package memory

import (
	"context"
	"sync"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/factor"
	"factorlens/domain/outcome"
	apperrors "factorlens/internal/errors"
	"factorlens/ports"
)

// TransactionSource holds transactions in memory, keyed by entity.
type TransactionSource struct {
	mu  sync.RWMutex
	txs map[core.EntityID][]outcome.Transaction
}

// NewTransactionSource creates an empty source.
func NewTransactionSource() *TransactionSource {
	return &TransactionSource{txs: make(map[core.EntityID][]outcome.Transaction)}
}

// Add appends transactions for an entity.
func (s *TransactionSource) Add(entityID core.EntityID, txs ...outcome.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[entityID] = append(s.txs[entityID], txs...)
}

// TransactionsForRange returns the entity's transactions inside [start, end].
func (s *TransactionSource) TransactionsForRange(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]outcome.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []outcome.Transaction
	for _, tx := range s.txs[entityID] {
		if tx.OccurredAt.Before(start) || tx.OccurredAt.After(end.Add(24*time.Hour-time.Nanosecond)) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// FactorSource holds pre-resolved day factors in memory.
type FactorSource struct {
	mu      sync.RWMutex
	factors map[core.EntityID]map[string]factor.DayFactors
}

// NewFactorSource creates an empty source.
func NewFactorSource() *FactorSource {
	return &FactorSource{factors: make(map[core.EntityID]map[string]factor.DayFactors)}
}

// Set stores the factor records for one entity-day.
func (s *FactorSource) Set(entityID core.EntityID, date time.Time, df factor.DayFactors) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byDay, ok := s.factors[entityID]
	if !ok {
		byDay = make(map[string]factor.DayFactors)
		s.factors[entityID] = byDay
	}
	byDay[core.DateKey(date)] = df
}

// FactorsForDate returns the records for one day, empty when none are known.
func (s *FactorSource) FactorsForDate(ctx context.Context, entityID core.EntityID, date time.Time) (factor.DayFactors, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.factors[entityID][core.DateKey(date)], nil
}

// FactorsForRange returns records keyed by day key for each known day of
// the range.
func (s *FactorSource) FactorsForRange(ctx context.Context, entityID core.EntityID, start, end time.Time) (map[string]factor.DayFactors, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]factor.DayFactors)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := core.DateKey(d)
		if df, ok := s.factors[entityID][key]; ok {
			out[key] = df
		}
	}
	return out, nil
}

// LocationResolver maps entities to fixed locations.
type LocationResolver struct {
	mu        sync.RWMutex
	locations map[core.EntityID]ports.Location
}

// NewLocationResolver creates an empty resolver.
func NewLocationResolver() *LocationResolver {
	return &LocationResolver{locations: make(map[core.EntityID]ports.Location)}
}

// Set registers an entity's location.
func (r *LocationResolver) Set(entityID core.EntityID, loc ports.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[entityID] = loc
}

// Resolve returns the registered location or NOT_FOUND.
func (r *LocationResolver) Resolve(ctx context.Context, entityID core.EntityID) (ports.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.locations[entityID]
	if !ok {
		return ports.Location{}, apperrors.NotFound("entity location")
	}
	return loc, nil
}
