// Package migration creates and evolves the database schema at startup.
package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	apperrors "factorlens/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createTransactionsTable(ctx, db); err != nil {
		return apperrors.Wrap(err, "failed to create transactions table")
	}

	if err := r.createTransactionItemsTable(ctx, db); err != nil {
		return apperrors.Wrap(err, "failed to create transaction_items table")
	}

	if err := r.createFactorRecordsTable(ctx, db); err != nil {
		return apperrors.Wrap(err, "failed to create factor_records table")
	}

	if err := r.createEntityLocationsTable(ctx, db); err != nil {
		return apperrors.Wrap(err, "failed to create entity_locations table")
	}

	if err := r.createCorrelationsTable(ctx, db); err != nil {
		return apperrors.Wrap(err, "failed to create correlations table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return apperrors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createTransactionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id VARCHAR(128) PRIMARY KEY,
			entity_id VARCHAR(128) NOT NULL,
			occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
			total DECIMAL(12,2) NOT NULL DEFAULT 0,
			employee_id VARCHAR(128) NOT NULL DEFAULT '',
			customer_id VARCHAR(128) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createTransactionItemsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transaction_items (
			id BIGSERIAL PRIMARY KEY,
			transaction_id VARCHAR(128) NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
			item_name VARCHAR(255) NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			price DECIMAL(12,2) NOT NULL DEFAULT 0
		)
	`)
	return err
}

func (r *MigrationRunner) createFactorRecordsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS factor_records (
			id BIGSERIAL PRIMARY KEY,
			entity_id VARCHAR(128) NOT NULL,
			date DATE NOT NULL,
			factor_type VARCHAR(32) NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createEntityLocationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS entity_locations (
			entity_id VARCHAR(128) PRIMARY KEY,
			lat DECIMAL(9,6) NOT NULL DEFAULT 0,
			lon DECIMAL(9,6) NOT NULL DEFAULT 0,
			region VARCHAR(128) NOT NULL DEFAULT '',
			category VARCHAR(128) NOT NULL DEFAULT '',
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createCorrelationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS correlations (
			id UUID PRIMARY KEY,
			scope VARCHAR(16) NOT NULL,
			entity_id VARCHAR(128),
			region VARCHAR(128) NOT NULL DEFAULT '',
			category VARCHAR(128) NOT NULL DEFAULT '',
			factor_type VARCHAR(32) NOT NULL,
			factor_shape VARCHAR(255) NOT NULL,
			metric VARCHAR(32) NOT NULL DEFAULT 'revenue',
			outcome_value DECIMAL(14,4) NOT NULL DEFAULT 0,
			outcome_change_pct DECIMAL(10,4) NOT NULL DEFAULT 0,
			coefficient DECIMAL(8,6) NOT NULL DEFAULT 0,
			p_value DECIMAL(10,8) NOT NULL DEFAULT 1,
			sample_size INTEGER NOT NULL DEFAULT 0,
			r_squared DECIMAL(8,6) NOT NULL DEFAULT 0,
			confidence DECIMAL(6,2) NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			recommendation TEXT NOT NULL DEFAULT '',
			first_seen TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			last_updated TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			data_points INTEGER NOT NULL DEFAULT 0,
			entities_contributing INTEGER NOT NULL DEFAULT 0,
			confirmed_count INTEGER NOT NULL DEFAULT 0,
			refuted_count INTEGER NOT NULL DEFAULT 0,
			accuracy_pct DECIMAL(6,2) NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			times_applied INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			previous_version_id UUID REFERENCES correlations(id),
			contributions JSONB NOT NULL DEFAULT '{}'
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_transactions_entity_time ON transactions(entity_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_transaction_items_tx ON transaction_items(transaction_id)`,
		`CREATE INDEX IF NOT EXISTS idx_factor_records_entity_date ON factor_records(entity_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_correlations_entity ON correlations(entity_id) WHERE scope = 'entity'`,
		`CREATE INDEX IF NOT EXISTS idx_correlations_key ON correlations(scope, factor_type, factor_shape)`,
		`CREATE INDEX IF NOT EXISTS idx_correlations_region ON correlations(region, category) WHERE scope = 'regional'`,
		`CREATE INDEX IF NOT EXISTS idx_correlations_active ON correlations(is_active)`,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return err
		}
	}

	return nil
}
