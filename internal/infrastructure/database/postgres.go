// Package database implements the persistent weather cache on PostgreSQL.
// One table keyed by a (city, date) uniqueness constraint holds per-day
// temperature observations; inserts that would violate the constraint are
// silently skipped, which is what makes re-fetching idempotent.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/core/domain"
	"github.com/okarpenko/weather-range-service/internal/core/ports"
)

// ObservationStore implements ports.ObservationStore on PostgreSQL.
type ObservationStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds PostgreSQL connection settings.
type Config struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	Database              string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
}

// NewObservationStore opens a connection pool and verifies it with a ping.
//
// Parameters:
//   - cfg: PostgreSQL connection configuration
//   - logger: Zap logger for store operations
//
// Returns:
//   - *ObservationStore: Ready store instance
//   - error: Connection or ping failure
func NewObservationStore(cfg Config, logger *zap.Logger) (*ObservationStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &ObservationStore{
		db:     db,
		logger: logger,
	}, nil
}

// DB exposes the underlying connection for the migration runner.
func (s *ObservationStore) DB() *sql.DB {
	return s.db
}

// LookupRange returns the stored observations covering every day of the
// range for the given city, ordered by date. Coverage is checked by count:
// unless the number of stored rows equals the range's calendar-day count,
// the lookup fails with ports.ErrObservationsIncomplete and the caller
// refetches the full range from the upstream API.
func (s *ObservationStore) LookupRange(ctx context.Context, city string, r domain.DateRange) ([]domain.DailyObservation, error) {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "ObservationStore.LookupRange")

	defer span.End()

	span.SetAttributes(
		attribute.String("weather.city", city),
		attribute.Int("weather.requested_days", r.Days()),
	)

	query := `
        SELECT city, date, temperature
        FROM weather_observations
        WHERE city = $1 AND date BETWEEN $2 AND $3
        ORDER BY date
    `

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, city, r.Start, r.End)

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("failed to close observation rows", zap.Error(err))
		}
	}()

	var observations []domain.DailyObservation

	for rows.Next() {
		var obs domain.DailyObservation

		if err := rows.Scan(&obs.City, &obs.Date, &obs.Temperature); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}

		obs.Date = domain.Day(obs.Date)
		observations = append(observations, obs)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}

	span.SetAttributes(attribute.Int("weather.stored_days", len(observations)))

	if len(observations) != r.Days() {
		s.logger.Debug("observation coverage incomplete",
			zap.String("city", city),
			zap.Int("requested_days", r.Days()),
			zap.Int("stored_days", len(observations)),
			zap.Duration("duration", time.Since(start)))

		return nil, ports.ErrObservationsIncomplete
	}

	s.logger.Debug("observation range fully covered",
		zap.String("city", city),
		zap.Int("days", len(observations)),
		zap.Duration("duration", time.Since(start)))

	return observations, nil
}

// StoreObservations inserts a batch inside one transaction, skipping rows
// that collide with an existing (city, date) pair. Two concurrent identical
// requests may both reach this point after both missing the lookup; the
// conflict clause is what makes that race harmless.
func (s *ObservationStore) StoreObservations(ctx context.Context, observations []domain.DailyObservation) error {
	if len(observations) == 0 {
		return nil
	}

	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "ObservationStore.StoreObservations")

	defer span.End()

	span.SetAttributes(attribute.Int("weather.batch_size", len(observations)))

	tx, err := s.db.BeginTx(ctx, nil)

	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
        INSERT INTO weather_observations (city, date, temperature)
        VALUES ($1, $2, $3)
        ON CONFLICT (city, date) DO NOTHING
    `

	start := time.Now()

	for _, obs := range observations {
		if _, err := tx.ExecContext(ctx, query, obs.City, obs.Date, obs.Temperature); err != nil {
			span.RecordError(err)

			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("failed to roll back observation batch", zap.Error(rbErr))
			}

			return fmt.Errorf("failed to insert observation for %s/%s: %w",
				obs.City, obs.Date.Format(domain.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit observation batch: %w", err)
	}

	s.logger.Debug("observation batch stored",
		zap.Int("batch_size", len(observations)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// Ping reports whether the database is reachable.
func (s *ObservationStore) Ping() error {
	return s.db.Ping()
}

// Close releases the connection pool.
func (s *ObservationStore) Close() error {
	return s.db.Close()
}
