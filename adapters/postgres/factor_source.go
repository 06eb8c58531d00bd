package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"factorlens/domain/core"
	"factorlens/domain/factor"
	apperrors "factorlens/internal/errors"
	"factorlens/ports"
)

// FactorSourceImpl reads pre-resolved factor records from PostgreSQL.
// Upstream ingestion jobs resolve provider APIs into factor_records rows;
// analysis only reads them.
type FactorSourceImpl struct {
	db *sqlx.DB
}

// NewFactorSource creates a new PostgreSQL factor source.
func NewFactorSource(db *sqlx.DB) ports.FactorSource {
	return &FactorSourceImpl{db: db}
}

type factorRow struct {
	EntityID   string    `db:"entity_id"`
	Date       time.Time `db:"date"`
	FactorType string    `db:"factor_type"`
	Payload    []byte    `db:"payload"`
}

// FactorsForDate returns the factor records for one day.
func (s *FactorSourceImpl) FactorsForDate(ctx context.Context, entityID core.EntityID, date time.Time) (factor.DayFactors, error) {
	byDay, err := s.FactorsForRange(ctx, entityID, date, date)
	if err != nil {
		return nil, err
	}
	return byDay[core.DateKey(date)], nil
}

// FactorsForRange returns factor records keyed by canonical day key.
func (s *FactorSourceImpl) FactorsForRange(ctx context.Context, entityID core.EntityID, start, end time.Time) (map[string]factor.DayFactors, error) {
	var rows []factorRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT entity_id, date, factor_type, payload
		FROM factor_records
		WHERE entity_id = $1 AND date >= $2::date AND date <= $3::date
		ORDER BY date ASC`, entityID, start, end)
	if err != nil {
		return nil, apperrors.DatabaseError("list factor records", err)
	}
	out := make(map[string]factor.DayFactors)
	for _, row := range rows {
		record, err := decodeFactorRecord(row)
		if err != nil {
			return nil, err
		}
		key := core.DateKey(row.Date)
		out[key] = append(out[key], record)
	}
	return out, nil
}

// decodeFactorRecord unpacks one row's payload into the matching union
// variant.
func decodeFactorRecord(row factorRow) (factor.Record, error) {
	record := factor.Record{Type: factor.Type(row.FactorType), Date: row.Date.UTC()}
	var err error
	switch record.Type {
	case factor.TypeWeather:
		record.Weather = &factor.Weather{}
		err = json.Unmarshal(row.Payload, record.Weather)
	case factor.TypeEvent:
		record.Event = &factor.Event{}
		err = json.Unmarshal(row.Payload, record.Event)
	case factor.TypeHoliday:
		record.Holiday = &factor.Holiday{}
		err = json.Unmarshal(row.Payload, record.Holiday)
	case factor.TypeSports:
		record.Sports = &factor.Sports{}
		err = json.Unmarshal(row.Payload, record.Sports)
	case factor.TypeDayOfWeek:
		record.DayOfWeek = &factor.DayOfWeek{}
		err = json.Unmarshal(row.Payload, record.DayOfWeek)
	case factor.TypeTimeOfDay:
		record.TimeOfDay = &factor.TimeOfDay{}
		err = json.Unmarshal(row.Payload, record.TimeOfDay)
	default:
		return factor.Record{}, apperrors.InvalidInput("unknown factor type " + row.FactorType)
	}
	if err != nil {
		return factor.Record{}, apperrors.DatabaseError("decode factor payload", err)
	}
	return record, nil
}
