// Package postgres implements the persistence ports on PostgreSQL via sqlx.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"factorlens/domain/core"
	"factorlens/domain/correlation"
	apperrors "factorlens/internal/errors"
	"factorlens/ports"
)

// CorrelationRepositoryImpl implements CorrelationRepository for PostgreSQL.
type CorrelationRepositoryImpl struct {
	db *sqlx.DB
}

// NewCorrelationRepository creates a new PostgreSQL correlation repository.
func NewCorrelationRepository(db *sqlx.DB) ports.CorrelationRepository {
	return &CorrelationRepositoryImpl{db: db}
}

const correlationColumns = `
	id, scope, entity_id, region, category, factor_type, factor_shape,
	metric, outcome_value, outcome_change_pct,
	coefficient, p_value, sample_size, r_squared, confidence,
	description, recommendation,
	first_seen, last_updated, data_points, entities_contributing,
	confirmed_count, refuted_count, accuracy_pct,
	is_active, times_applied, version, previous_version_id, contributions`

// Create inserts a new correlation row.
func (r *CorrelationRepositoryImpl) Create(ctx context.Context, c *correlation.Correlation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	contributionsJSON, err := json.Marshal(contributionsOrEmpty(c.Contributions))
	if err != nil {
		return apperrors.Wrap(err, "marshal contributions")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO correlations (`+correlationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, $23, $24, $25, $26, $27, $28, $29)`,
		c.ID, c.Scope, nullableString(c.EntityID.String()), c.Region, c.Category,
		c.FactorType, c.FactorShape, c.Metric, c.OutcomeValue, c.OutcomeChangePct,
		c.Coefficient, c.PValue, c.SampleSize, c.RSquared, c.Confidence,
		c.Description, c.Recommendation,
		c.FirstSeen, c.LastUpdated, c.DataPoints, c.EntitiesContributing,
		c.ConfirmedCount, c.RefutedCount, c.AccuracyPct,
		c.IsActive, c.TimesApplied, c.Version, nullableCorrelationID(c.PreviousVersionID), contributionsJSON)
	if err != nil {
		return apperrors.DatabaseError("insert correlation", err)
	}
	return nil
}

// Update persists a mutated row under an optimistic version check. The
// UPDATE only matches when the stored version equals the caller's loaded
// version; zero rows affected means a concurrent writer got there first.
func (r *CorrelationRepositoryImpl) Update(ctx context.Context, c *correlation.Correlation) error {
	if err := c.Validate(); err != nil {
		return err
	}
	contributionsJSON, err := json.Marshal(contributionsOrEmpty(c.Contributions))
	if err != nil {
		return apperrors.Wrap(err, "marshal contributions")
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE correlations SET
			metric = $1, outcome_value = $2, outcome_change_pct = $3,
			coefficient = $4, p_value = $5, sample_size = $6, r_squared = $7,
			confidence = $8, description = $9, recommendation = $10,
			last_updated = $11, data_points = $12, entities_contributing = $13,
			confirmed_count = $14, refuted_count = $15, accuracy_pct = $16,
			is_active = $17, times_applied = $18, contributions = $19,
			version = version + 1
		WHERE id = $20 AND version = $21`,
		c.Metric, c.OutcomeValue, c.OutcomeChangePct,
		c.Coefficient, c.PValue, c.SampleSize, c.RSquared,
		c.Confidence, c.Description, c.Recommendation,
		c.LastUpdated, c.DataPoints, c.EntitiesContributing,
		c.ConfirmedCount, c.RefutedCount, c.AccuracyPct,
		c.IsActive, c.TimesApplied, contributionsJSON,
		c.ID, c.Version)
	if err != nil {
		return apperrors.DatabaseError("update correlation", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.DatabaseError("update correlation", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM correlations WHERE id = $1)`, c.ID); err != nil {
			return apperrors.DatabaseError("update correlation", err)
		}
		if !exists {
			return apperrors.NotFound("correlation")
		}
		return apperrors.StaleVersionConflict("correlation version moved underneath the update")
	}
	c.Version++
	return nil
}

// GetByID returns one correlation row.
func (r *CorrelationRepositoryImpl) GetByID(ctx context.Context, id core.CorrelationID) (*correlation.Correlation, error) {
	row := r.db.QueryRowxContext(ctx, `
		SELECT `+correlationColumns+`
		FROM correlations WHERE id = $1`, id)
	c, err := scanCorrelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("correlation")
	}
	if err != nil {
		return nil, apperrors.DatabaseError("get correlation", err)
	}
	return c, nil
}

// FindByKey returns the newest version for the scope/key combination,
// active or not.
func (r *CorrelationRepositoryImpl) FindByKey(ctx context.Context, scope correlation.Scope, entityID core.EntityID, region, category string, key correlation.Key) (*correlation.Correlation, error) {
	var scopeClause string
	args := []any{scope, key.FactorType, key.FactorShape}
	switch scope {
	case correlation.ScopeEntity:
		scopeClause = `entity_id = $4`
		args = append(args, entityID)
	case correlation.ScopeRegional:
		scopeClause = `region = $4 AND category = $5`
		args = append(args, region, category)
	case correlation.ScopeGlobal:
		scopeClause = `region = '' AND category = $4`
		args = append(args, category)
	default:
		return nil, apperrors.InvalidInput("unknown scope")
	}
	row := r.db.QueryRowxContext(ctx, `
		SELECT `+correlationColumns+`
		FROM correlations
		WHERE scope = $1 AND factor_type = $2 AND factor_shape = $3 AND `+scopeClause+`
		ORDER BY version DESC, last_updated DESC
		LIMIT 1`, args...)
	c, err := scanCorrelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("correlation")
	}
	if err != nil {
		return nil, apperrors.DatabaseError("find correlation by key", err)
	}
	return c, nil
}

// ListEntityScoped returns the entity's own correlations.
func (r *CorrelationRepositoryImpl) ListEntityScoped(ctx context.Context, entityID core.EntityID, onlyActive bool) ([]*correlation.Correlation, error) {
	query := `
		SELECT ` + correlationColumns + `
		FROM correlations
		WHERE scope = 'entity' AND entity_id = $1`
	if onlyActive {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY confidence DESC, factor_shape ASC`
	rows, err := r.db.QueryxContext(ctx, query, entityID)
	if err != nil {
		return nil, apperrors.DatabaseError("list entity correlations", err)
	}
	defer rows.Close()
	return scanCorrelations(rows)
}

// ListForResolution returns candidates across the tiers the entity can
// see: its own rows, its region's rows, and global rows.
func (r *CorrelationRepositoryImpl) ListForResolution(ctx context.Context, q ports.ResolutionQuery) ([]*correlation.Correlation, error) {
	query := `
		SELECT ` + correlationColumns + `
		FROM correlations
		WHERE confidence >= $1
		  AND (
		        (scope = 'entity' AND entity_id = $2)
		     OR (scope = 'regional' AND region = $3 AND (category = '' OR category = $4))
		     OR (scope = 'global' AND (category = '' OR category = $4))
		  )`
	args := []any{q.MinConfidence, q.EntityID, q.Region, q.Category}
	if q.OnlyActive {
		query += ` AND is_active = TRUE`
	}
	if q.FactorType != nil {
		args = append(args, *q.FactorType)
		query += ` AND factor_type = $5`
	}
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.DatabaseError("list correlations for resolution", err)
	}
	defer rows.Close()
	return scanCorrelations(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCorrelation(row rowScanner) (*correlation.Correlation, error) {
	var c correlation.Correlation
	var entityID, previousID sql.NullString
	var contributionsJSON []byte
	var firstSeen, lastUpdated time.Time
	err := row.Scan(
		&c.ID, &c.Scope, &entityID, &c.Region, &c.Category, &c.FactorType, &c.FactorShape,
		&c.Metric, &c.OutcomeValue, &c.OutcomeChangePct,
		&c.Coefficient, &c.PValue, &c.SampleSize, &c.RSquared, &c.Confidence,
		&c.Description, &c.Recommendation,
		&firstSeen, &lastUpdated, &c.DataPoints, &c.EntitiesContributing,
		&c.ConfirmedCount, &c.RefutedCount, &c.AccuracyPct,
		&c.IsActive, &c.TimesApplied, &c.Version, &previousID, &contributionsJSON,
	)
	if err != nil {
		return nil, err
	}
	c.FirstSeen = firstSeen.UTC()
	c.LastUpdated = lastUpdated.UTC()
	if entityID.Valid {
		c.EntityID = core.EntityID(entityID.String)
	}
	if previousID.Valid {
		prev := core.CorrelationID(previousID.String)
		c.PreviousVersionID = &prev
	}
	if len(contributionsJSON) > 0 {
		if err := json.Unmarshal(contributionsJSON, &c.Contributions); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func scanCorrelations(rows *sqlx.Rows) ([]*correlation.Correlation, error) {
	var out []*correlation.Correlation
	for rows.Next() {
		c, err := scanCorrelation(rows)
		if err != nil {
			return nil, apperrors.DatabaseError("scan correlation", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatabaseError("iterate correlations", err)
	}
	return out, nil
}

func contributionsOrEmpty(contributions map[string]correlation.Contribution) map[string]correlation.Contribution {
	if contributions == nil {
		return map[string]correlation.Contribution{}
	}
	return contributions
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableCorrelationID(id *core.CorrelationID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
