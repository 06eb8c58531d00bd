package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"factorlens/domain/core"
	"factorlens/domain/factor"
	"factorlens/domain/outcome"
	"factorlens/internal/migration"
	"factorlens/internal/testkit"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <database_url> [seed <entity_id>]")
	}
	databaseURL := os.Args[1]

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Schema migrated (version %s)", migrator.Version())

	if len(os.Args) >= 4 && os.Args[2] == "seed" {
		entityID := core.EntityID(os.Args[3])
		if err := seedDemoData(ctx, db, entityID); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Printf("Seeded demo data for entity %s", entityID)
	}
}

// seedDemoData generates a synthetic 90-day fixture with a known hot-day
// lift and loads it, so a fresh install has something to discover.
func seedDemoData(ctx context.Context, db *sqlx.DB, entityID core.EntityID) error {
	cfg := testkit.DefaultGeneratorConfig(entityID)
	cfg.StartDate = time.Now().UTC().AddDate(0, 0, -cfg.Days).Truncate(24 * time.Hour)
	cfg.FactorsFor = testkit.HotDays(7, 92, 70)
	cfg.Effects = []testkit.Effect{testkit.HotDayEffect(20), testkit.WeekendEffect(15)}

	gen := testkit.NewGenerator(cfg)
	txs, factorsByDay := gen.Generate()

	if err := insertLocation(ctx, db, entityID); err != nil {
		return err
	}
	if err := insertTransactions(ctx, db, txs); err != nil {
		return err
	}
	return insertFactors(ctx, db, entityID, factorsByDay)
}

func insertLocation(ctx context.Context, db *sqlx.DB, entityID core.EntityID) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO entity_locations (entity_id, lat, lon, region, category)
		VALUES ($1, 30.2672, -97.7431, 'austin-tx', 'coffee_shop')
		ON CONFLICT (entity_id) DO NOTHING`, entityID)
	return err
}

func insertTransactions(ctx context.Context, db *sqlx.DB, txs []outcome.Transaction) error {
	for _, tx := range txs {
		_, err := db.ExecContext(ctx, `
			INSERT INTO transactions (id, entity_id, occurred_at, total, employee_id, customer_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING`,
			tx.ID, tx.EntityID, tx.OccurredAt, tx.Total, tx.EmployeeID, tx.CustomerID)
		if err != nil {
			return err
		}
		for _, item := range tx.Items {
			_, err := db.ExecContext(ctx, `
				INSERT INTO transaction_items (transaction_id, item_name, quantity, price)
				VALUES ($1, $2, $3, $4)`,
				tx.ID, item.Name, item.Quantity, item.Price)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func insertFactors(ctx context.Context, db *sqlx.DB, entityID core.EntityID, factorsByDay map[string]factor.DayFactors) error {
	for dayKey, records := range factorsByDay {
		date, err := core.ParseDateKey(dayKey)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := factorPayload(record)
			if err != nil {
				return err
			}
			_, err = db.ExecContext(ctx, `
				INSERT INTO factor_records (entity_id, date, factor_type, payload)
				VALUES ($1, $2, $3, $4)`,
				entityID, date, record.Type, payload)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func factorPayload(record factor.Record) ([]byte, error) {
	switch record.Type {
	case factor.TypeWeather:
		return json.Marshal(record.Weather)
	case factor.TypeEvent:
		return json.Marshal(record.Event)
	case factor.TypeHoliday:
		return json.Marshal(record.Holiday)
	case factor.TypeSports:
		return json.Marshal(record.Sports)
	case factor.TypeDayOfWeek:
		return json.Marshal(record.DayOfWeek)
	case factor.TypeTimeOfDay:
		return json.Marshal(record.TimeOfDay)
	}
	return []byte("{}"), nil
}
