package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"factorlens/domain/core"
	apperrors "factorlens/internal/errors"
	"factorlens/ports"
)

// AggregationStoreImpl pushes the group-by work into PostgreSQL. Every
// method is a single query; nothing materializes per-transaction rows in
// the process.
type AggregationStoreImpl struct {
	db *sqlx.DB
}

// NewAggregationStore creates a new PostgreSQL aggregation store.
func NewAggregationStore(db *sqlx.DB) ports.AggregationStore {
	return &AggregationStoreImpl{db: db}
}

// RevenueByWeekday groups revenue by weekday with distinct-day counts.
func (s *AggregationStoreImpl) RevenueByWeekday(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]ports.WeekdayAgg, error) {
	var out []ports.WeekdayAgg
	err := s.db.SelectContext(ctx, &out, `
		SELECT EXTRACT(DOW FROM occurred_at)::int       AS weekday,
		       COUNT(DISTINCT occurred_at::date)::int   AS days,
		       COALESCE(SUM(total), 0)                  AS revenue,
		       COUNT(*)::int                            AS tx_count,
		       COALESCE(SUM(total), 0) / GREATEST(COUNT(DISTINCT occurred_at::date), 1) AS avg_revenue
		FROM transactions
		WHERE entity_id = $1 AND occurred_at >= $2 AND occurred_at < $3 + INTERVAL '1 day'
		GROUP BY 1
		ORDER BY 1`, entityID, start, end)
	if err != nil {
		return nil, apperrors.DatabaseError("revenue by weekday", err)
	}
	return out, nil
}

// RevenueByHour groups revenue by hour of day.
func (s *AggregationStoreImpl) RevenueByHour(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]ports.HourAgg, error) {
	var out []ports.HourAgg
	err := s.db.SelectContext(ctx, &out, `
		SELECT EXTRACT(HOUR FROM occurred_at)::int AS hour,
		       COALESCE(SUM(total), 0)             AS revenue,
		       COUNT(*)::int                       AS tx_count,
		       COALESCE(AVG(total), 0)             AS avg_revenue
		FROM transactions
		WHERE entity_id = $1 AND occurred_at >= $2 AND occurred_at < $3 + INTERVAL '1 day'
		GROUP BY 1
		ORDER BY 1`, entityID, start, end)
	if err != nil {
		return nil, apperrors.DatabaseError("revenue by hour", err)
	}
	return out, nil
}

// EmployeeAggregates groups revenue and distinct working days by employee.
func (s *AggregationStoreImpl) EmployeeAggregates(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]ports.EmployeeAgg, error) {
	var out []ports.EmployeeAgg
	err := s.db.SelectContext(ctx, &out, `
		SELECT employee_id,
		       COUNT(*)::int                          AS tx_count,
		       COALESCE(SUM(total), 0)                AS revenue,
		       COUNT(DISTINCT occurred_at::date)::int AS shifts,
		       COALESCE(AVG(total), 0)                AS avg_ticket
		FROM transactions
		WHERE entity_id = $1 AND occurred_at >= $2 AND occurred_at < $3 + INTERVAL '1 day'
		  AND employee_id <> ''
		GROUP BY employee_id
		ORDER BY employee_id`, entityID, start, end)
	if err != nil {
		return nil, apperrors.DatabaseError("employee aggregates", err)
	}
	return out, nil
}

// ItemCounts returns the top items by transaction count.
func (s *AggregationStoreImpl) ItemCounts(ctx context.Context, entityID core.EntityID, start, end time.Time, limit int) ([]ports.ItemAgg, error) {
	var out []ports.ItemAgg
	err := s.db.SelectContext(ctx, &out, `
		SELECT i.item_name                        AS item,
		       COUNT(DISTINCT i.transaction_id)::int AS tx_count
		FROM transaction_items i
		JOIN transactions t ON t.id = i.transaction_id
		WHERE t.entity_id = $1 AND t.occurred_at >= $2 AND t.occurred_at < $3 + INTERVAL '1 day'
		GROUP BY i.item_name
		ORDER BY tx_count DESC, item ASC
		LIMIT $4`, entityID, start, end, limit)
	if err != nil {
		return nil, apperrors.DatabaseError("item counts", err)
	}
	return out, nil
}

// ItemPairCounts counts co-occurring item pairs with a self-join. Pairs
// are ordered lexically so each unordered pair counts once.
func (s *AggregationStoreImpl) ItemPairCounts(ctx context.Context, entityID core.EntityID, start, end time.Time, limit int) ([]ports.ItemPairAgg, error) {
	var out []ports.ItemPairAgg
	err := s.db.SelectContext(ctx, &out, `
		SELECT a.item_name  AS item_a,
		       b.item_name  AS item_b,
		       COUNT(DISTINCT a.transaction_id)::int AS tx_count
		FROM transaction_items a
		JOIN transaction_items b
		  ON a.transaction_id = b.transaction_id AND a.item_name < b.item_name
		JOIN transactions t ON t.id = a.transaction_id
		WHERE t.entity_id = $1 AND t.occurred_at >= $2 AND t.occurred_at < $3 + INTERVAL '1 day'
		GROUP BY a.item_name, b.item_name
		ORDER BY tx_count DESC, item_a ASC, item_b ASC
		LIMIT $4`, entityID, start, end, limit)
	if err != nil {
		return nil, apperrors.DatabaseError("item pair counts", err)
	}
	return out, nil
}

// CustomerSplit returns the identified-customer counts for the range.
func (s *AggregationStoreImpl) CustomerSplit(ctx context.Context, entityID core.EntityID, start, end time.Time) (ports.CustomerAgg, error) {
	var out ports.CustomerAgg
	err := s.db.GetContext(ctx, &out, `
		SELECT COUNT(DISTINCT customer_id)::int AS identified_customers,
		       COUNT(DISTINCT customer_id) FILTER (
		           WHERE customer_id IN (
		               SELECT customer_id FROM transactions
		               WHERE entity_id = $1 AND occurred_at >= $2 AND occurred_at < $3 + INTERVAL '1 day'
		                 AND customer_id <> ''
		               GROUP BY customer_id HAVING COUNT(*) > 1
		           )
		       )::int AS returning_customers,
		       COUNT(*)::int AS total_visits
		FROM transactions
		WHERE entity_id = $1 AND occurred_at >= $2 AND occurred_at < $3 + INTERVAL '1 day'
		  AND customer_id <> ''`, entityID, start, end)
	if err != nil {
		return ports.CustomerAgg{}, apperrors.DatabaseError("customer split", err)
	}
	return out, nil
}

// DailyRevenue returns one row per day with activity, ordered by date.
func (s *AggregationStoreImpl) DailyRevenue(ctx context.Context, entityID core.EntityID, start, end time.Time) ([]ports.DayRevenue, error) {
	var out []ports.DayRevenue
	err := s.db.SelectContext(ctx, &out, `
		SELECT occurred_at::date       AS date,
		       COALESCE(SUM(total), 0) AS revenue,
		       COUNT(*)::int           AS tx_count
		FROM transactions
		WHERE entity_id = $1 AND occurred_at >= $2 AND occurred_at < $3 + INTERVAL '1 day'
		GROUP BY 1
		ORDER BY 1`, entityID, start, end)
	if err != nil {
		return nil, apperrors.DatabaseError("daily revenue", err)
	}
	return out, nil
}

// WeekdayBaseline averages per-day revenue over the range's matching
// weekdays.
func (s *AggregationStoreImpl) WeekdayBaseline(ctx context.Context, entityID core.EntityID, weekday time.Weekday, start, end time.Time) (ports.BaselineAgg, error) {
	var out ports.BaselineAgg
	err := s.db.GetContext(ctx, &out, `
		SELECT COALESCE(AVG(day_revenue), 0) AS avg_revenue,
		       COUNT(*)::int                 AS days
		FROM (
			SELECT occurred_at::date AS day, SUM(total) AS day_revenue
			FROM transactions
			WHERE entity_id = $1 AND occurred_at >= $2 AND occurred_at < $3 + INTERVAL '1 day'
			  AND EXTRACT(DOW FROM occurred_at)::int = $4
			GROUP BY 1
		) days`, entityID, start, end, int(weekday))
	if err != nil {
		return ports.BaselineAgg{}, apperrors.DatabaseError("weekday baseline", err)
	}
	return out, nil
}
