// Package container wires configuration, adapters, engines, and services
// into one dependency graph.
package container

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"factorlens/adapters/excel"
	"factorlens/adapters/postgres"
	"factorlens/adapters/rediscache"
	"factorlens/app"
	"factorlens/internal"
	"factorlens/internal/batch"
	"factorlens/internal/config"
	"factorlens/internal/discovery"
	"factorlens/internal/insights"
	"factorlens/internal/learning"
	"factorlens/internal/prediction"
	"factorlens/internal/validation"
	"factorlens/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB    *sqlx.DB
	Redis *rediscache.RedisClient

	// Adapters
	CorrelationRepo ports.CorrelationRepository
	Transactions    ports.TransactionSource
	Factors         ports.FactorSource
	Locations       ports.LocationResolver
	Aggregations    ports.AggregationStore
	ForecastCache   ports.ForecastCache
	ReportWriter    *excel.ReportWriter

	// Engines
	Discovery  *discovery.Engine
	Learning   *learning.Store
	Validator  *validation.Validator
	Insights   *insights.Engine
	Prediction *prediction.Engine
	Runner     *batch.Runner
	Scheduler  *batch.Scheduler

	// Services
	Analysis *app.AnalysisService
}

// New creates a new dependency injection container
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &Container{Config: cfg, Logger: logger}, nil
}

// InitWithDatabase initializes every component behind the database.
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}
	c.DB = db

	c.CorrelationRepo = postgres.NewCorrelationRepository(db)
	c.Transactions = postgres.NewTransactionSource(db)
	c.Factors = postgres.NewFactorSource(db)
	c.Locations = postgres.NewLocationResolver(db)
	c.Aggregations = postgres.NewAggregationStore(db)
	c.ReportWriter = excel.NewReportWriter()

	c.initCache()
	c.initEngines()
	c.initServices()

	c.Logger.Info("container initialized")
	return nil
}

// initCache connects the optional Redis forecast cache. A missing or
// unreachable Redis leaves the cache nil and the system cacheless.
func (c *Container) initCache() {
	if c.Config.Redis.Addr == "" {
		return
	}
	c.Redis = rediscache.NewRedisClient(c.Config.Redis.Addr, c.Config.Redis.Password, c.Config.Redis.DB)
	if c.Redis == nil {
		c.Logger.Warn("redis unreachable at %s, forecasts run uncached", c.Config.Redis.Addr)
		return
	}
	c.ForecastCache = rediscache.NewForecastCache(c.Redis, c.Config.Redis.ForecastTTL)
}

func (c *Container) initEngines() {
	analysisCfg := c.Config.Analysis
	c.Discovery = discovery.NewEngine(c.CorrelationRepo, analysisCfg, c.Logger)
	c.Learning = learning.NewStore(c.CorrelationRepo, analysisCfg, c.Logger)
	c.Validator = validation.NewValidator(c.CorrelationRepo, analysisCfg, c.Logger)
	c.Insights = insights.NewEngine(c.Aggregations, c.Logger)
	c.Prediction = prediction.NewEngine(
		c.Aggregations, c.Learning, c.CorrelationRepo, c.Factors, c.ForecastCache, analysisCfg, c.Logger)
	c.Runner = batch.NewRunner(c.Config.Batch.MaxConcurrentEntities, c.Config.Batch.EntityTimeout, c.Logger)
	c.Scheduler = batch.NewScheduler(c.Logger)
}

func (c *Container) initServices() {
	c.Analysis = app.NewAnalysisService(
		c.Transactions, c.Factors, c.Locations, c.CorrelationRepo, c.Aggregations, c.ForecastCache,
		c.Discovery, c.Learning, c.Validator, c.Insights, c.Prediction, c.Runner,
		c.Config.Analysis, c.Logger)
}

// Close releases held connections.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("redis close: %v", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("database close: %v", err)
		}
	}
}
