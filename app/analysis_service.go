// Package app wires the analysis pipeline into entity-level operations the
// HTTP layer and the scheduler both call.
package app

import (
	"context"
	"time"

	"factorlens/domain/core"
	"factorlens/domain/correlation"
	"factorlens/domain/insight"
	"factorlens/domain/outcome"
	"factorlens/internal"
	"factorlens/internal/batch"
	"factorlens/internal/config"
	"factorlens/internal/discovery"
	"factorlens/internal/insights"
	"factorlens/internal/learning"
	"factorlens/internal/normalizer"
	"factorlens/internal/prediction"
	"factorlens/internal/report"
	"factorlens/internal/validation"
	"factorlens/ports"
)

// AnalysisService orchestrates discovery, validation, learning roll-up,
// internal patterns, and prediction for one entity at a time. Batch cycles
// fan the same operations across entities through the runner.
type AnalysisService struct {
	transactions ports.TransactionSource
	factors      ports.FactorSource
	locations    ports.LocationResolver
	repo         ports.CorrelationRepository
	agg          ports.AggregationStore
	cache        ports.ForecastCache

	discoverer *discovery.Engine
	learning   *learning.Store
	validator  *validation.Validator
	insights   *insights.Engine
	predictor  *prediction.Engine
	runner     *batch.Runner

	cfg config.AnalysisConfig
	log *internal.Logger
}

// NewAnalysisService assembles the service. cache may be nil.
func NewAnalysisService(
	transactions ports.TransactionSource,
	factors ports.FactorSource,
	locations ports.LocationResolver,
	repo ports.CorrelationRepository,
	agg ports.AggregationStore,
	cache ports.ForecastCache,
	discoverer *discovery.Engine,
	learningStore *learning.Store,
	validator *validation.Validator,
	insightsEngine *insights.Engine,
	predictor *prediction.Engine,
	runner *batch.Runner,
	cfg config.AnalysisConfig,
	logger *internal.Logger,
) *AnalysisService {
	return &AnalysisService{
		transactions: transactions,
		factors:      factors,
		locations:    locations,
		repo:         repo,
		agg:          agg,
		cache:        cache,
		discoverer:   discoverer,
		learning:     learningStore,
		validator:    validator,
		insights:     insightsEngine,
		predictor:    predictor,
		runner:       runner,
		cfg:          cfg,
		log:          logger.Component("analysis"),
	}
}

// Discover runs the full discovery pass for one entity: normalize the
// lookback window, run every analyzer, persist accepted findings, then
// contribute qualifying patterns upward and invalidate cached forecasts.
func (s *AnalysisService) Discover(ctx context.Context, entityID core.EntityID) (discovery.Result, error) {
	rows, err := s.normalizedWindow(ctx, entityID, s.cfg.DiscoveryWindowDays)
	if err != nil {
		return discovery.Result{}, err
	}

	result, err := s.discoverer.Discover(ctx, entityID, rows)
	if err != nil {
		return discovery.Result{}, err
	}
	s.log.Info("discovery finished: entity=%s created=%d updated=%d", entityID, result.Created, result.Updated)

	loc, err := s.locations.Resolve(ctx, entityID)
	if err != nil {
		s.log.Warn("skipping roll-up, location unresolved: entity=%s err=%v", entityID, err)
	} else if err := s.learning.ContributeUpward(ctx, entityID, loc.Region, loc.Category); err != nil {
		s.log.Warn("roll-up after discovery failed: entity=%s err=%v", entityID, err)
	}

	s.invalidateForecasts(ctx, entityID)
	return result, nil
}

// Validate backtests the entity's active patterns against its trailing
// validation window.
func (s *AnalysisService) Validate(ctx context.Context, entityID core.EntityID) (validation.Result, error) {
	rows, err := s.normalizedWindow(ctx, entityID, s.cfg.ValidationWindowDays)
	if err != nil {
		return validation.Result{}, err
	}

	result, err := s.validator.ValidateEntity(ctx, entityID, rows)
	if err != nil {
		return validation.Result{}, err
	}
	s.log.Info("validation finished: entity=%s confirmed=%d refuted=%d skipped=%d deactivated=%d",
		entityID, result.Confirmed, result.Refuted, result.Skipped, result.Deactivated)

	s.invalidateForecasts(ctx, entityID)
	return result, nil
}

// RollUp contributes the entity's proven patterns into the regional and
// global tiers without re-running discovery.
func (s *AnalysisService) RollUp(ctx context.Context, entityID core.EntityID) error {
	loc, err := s.locations.Resolve(ctx, entityID)
	if err != nil {
		return err
	}
	return s.learning.ContributeUpward(ctx, entityID, loc.Region, loc.Category)
}

// Forecast predicts revenue for the entity on the target date.
func (s *AnalysisService) Forecast(ctx context.Context, entityID core.EntityID, targetDate time.Time) (*insight.ForecastResult, error) {
	loc, err := s.locations.Resolve(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return s.predictor.Predict(ctx, entityID, loc, targetDate, nil)
}

// InternalPatterns generates the entity-only pattern set over the trailing
// discovery window.
func (s *AnalysisService) InternalPatterns(ctx context.Context, entityID core.EntityID) (*insight.PatternSet, error) {
	end := core.Now()
	start := end.AddDate(0, 0, -s.cfg.DiscoveryWindowDays)
	return s.insights.InternalPatterns(ctx, entityID, start, end)
}

// Patterns returns the entity's learned factor correlations, resolved
// across the sharing tiers when the entity's location is known, or its own
// rows otherwise.
func (s *AnalysisService) Patterns(ctx context.Context, entityID core.EntityID) ([]*correlation.Correlation, error) {
	loc, err := s.locations.Resolve(ctx, entityID)
	if err != nil {
		return s.repo.ListEntityScoped(ctx, entityID, true)
	}
	return s.learning.Resolve(ctx, entityID, loc.Region, loc.Category, nil)
}

// Report assembles the full report input: resolved patterns, internal
// insights, and tomorrow's forecast. Sections degrade independently; a
// report with only correlations is still a report.
func (s *AnalysisService) Report(ctx context.Context, entityID core.EntityID) (report.Input, error) {
	in := report.Input{EntityID: entityID, GeneratedAt: core.Now()}

	correlations, err := s.Patterns(ctx, entityID)
	if err != nil {
		return report.Input{}, err
	}
	in.Correlations = correlations

	if patterns, err := s.InternalPatterns(ctx, entityID); err != nil {
		s.log.Warn("report omits internal patterns: entity=%s err=%v", entityID, err)
	} else {
		in.Patterns = patterns
	}

	tomorrow := core.Now().AddDate(0, 0, 1)
	if forecast, err := s.Forecast(ctx, entityID, tomorrow); err != nil {
		s.log.Warn("report omits forecast: entity=%s err=%v", entityID, err)
	} else {
		in.Forecast = forecast
	}
	return in, nil
}

// RunDiscoveryCycle fans Discover across entities under the batch runner's
// concurrency and timeout bounds.
func (s *AnalysisService) RunDiscoveryCycle(ctx context.Context, entityIDs []core.EntityID) batch.Summary {
	return s.runner.Run(ctx, entityIDs, func(ctx context.Context, entityID core.EntityID) error {
		_, err := s.Discover(ctx, entityID)
		return err
	})
}

// RunValidationCycle fans Validate across entities.
func (s *AnalysisService) RunValidationCycle(ctx context.Context, entityIDs []core.EntityID) batch.Summary {
	return s.runner.Run(ctx, entityIDs, func(ctx context.Context, entityID core.EntityID) error {
		_, err := s.Validate(ctx, entityID)
		return err
	})
}

// normalizedWindow fetches and normalizes the entity's trailing window,
// ending yesterday so partial days never skew bucket means.
func (s *AnalysisService) normalizedWindow(ctx context.Context, entityID core.EntityID, days int) ([]outcome.Row, error) {
	end := core.Now().AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(days - 1))

	txs, err := s.transactions.TransactionsForRange(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	factorsByDate, err := s.factors.FactorsForRange(ctx, entityID, start, end)
	if err != nil {
		return nil, err
	}
	return normalizer.Normalize(entityID, txs, factorsByDate, start, end), nil
}

func (s *AnalysisService) invalidateForecasts(ctx context.Context, entityID core.EntityID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateEntity(ctx, entityID); err != nil {
		s.log.Warn("forecast cache invalidation failed: entity=%s err=%v", entityID, err)
	}
}
