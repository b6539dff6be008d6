package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetfuel/sentinel/internal/model"
)

// PostgresStore persists alerts for the reporting and review collaborators
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pgx pool and verifies it with a ping
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var alertColumns = []string{
	"id",
	"vehicle_id",
	"driver_id",
	"alert_type",
	"title",
	"description",
	"score",
	"severity",
	"status",
	"detected_at",
	"details",
}

// BatchInsert bulk-loads a batch of alerts with COPY. Callers deduplicate
// before batching; COPY has no conflict handling.
func (s *PostgresStore) BatchInsert(ctx context.Context, alerts []*model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(alerts))
	for i, a := range alerts {
		details, err := json.Marshal(a.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details for %s: %w", a.ID, err)
		}
		rows[i] = []interface{}{
			a.ID,
			a.VehicleID,
			a.DriverID,
			string(a.Type),
			a.Title,
			a.Description,
			a.Score,
			string(a.Severity),
			string(a.Status),
			a.DetectedAt,
			string(details),
		}
	}

	_, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"fuel_alerts"},
		alertColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("CopyFrom failed for batch of %d: %w", len(alerts), err)
	}

	return nil
}

// InsertAlert upserts one alert. The deterministic ID makes re-evaluation
// of the same telemetry a conflict, which is dropped.
func (s *PostgresStore) InsertAlert(ctx context.Context, a *model.Alert) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal details for %s: %w", a.ID, err)
	}

	query := `
		INSERT INTO fuel_alerts
			(id, vehicle_id, driver_id, alert_type, title, description, score, severity, status, detected_at, details)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.pool.Exec(
		ctx,
		query,
		a.ID,
		a.VehicleID,
		a.DriverID,
		string(a.Type),
		a.Title,
		a.Description,
		a.Score,
		string(a.Severity),
		string(a.Status),
		a.DetectedAt,
		string(details),
	)
	return err
}
