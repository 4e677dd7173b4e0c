package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"pricecast/ml"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS tesla_predictions (
		id BIGSERIAL PRIMARY KEY,
		open_price DOUBLE PRECISION NOT NULL,
		low_price DOUBLE PRECISION NOT NULL,
		high_price DOUBLE PRECISION NOT NULL,
		volume BIGINT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		day INTEGER NOT NULL,
		ma7 DOUBLE PRECISION NOT NULL,
		ma30 DOUBLE PRECISION NOT NULL,
		daily_return DOUBLE PRECISION NOT NULL,
		rsi DOUBLE PRECISION NOT NULL,
		volatility DOUBLE PRECISION NOT NULL,
		predicted_price DOUBLE PRECISION NOT NULL,
		prediction_date TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
	);
	CREATE INDEX IF NOT EXISTS idx_tesla_predictions_date ON tesla_predictions (prediction_date);
`

// PostgresStore keeps predictions in PostgreSQL behind a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects, pings and creates the table if missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, persistErr("open", fmt.Errorf("parse postgres dsn: %w", err))
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, persistErr("open", fmt.Errorf("connect to postgres: %w", err))
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, persistErr("open", fmt.Errorf("ping postgres: %w", err))
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, persistErr("migrate", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Save inserts the record and its prediction in one transaction.
func (s *PostgresStore) Save(ctx context.Context, rec ml.FeatureRecord, prediction float64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return persistErr("save", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	query := insertQuery(func(i int) string { return fmt.Sprintf("$%d", i) })
	if _, err := tx.Exec(ctx, query, insertArgs(rec, prediction)...); err != nil {
		return persistErr("save", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return persistErr("save", fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// LoadHistory queries all rows, most recent first.
func (s *PostgresStore) LoadHistory(ctx context.Context) ([]PredictionRecord, error) {
	rows, err := s.pool.Query(ctx, historyQuery())
	if err != nil {
		return nil, persistErr("load history", err)
	}
	defer rows.Close()

	history := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		if err := rows.Scan(scanDest(&r)...); err != nil {
			return nil, persistErr("load history", fmt.Errorf("scan prediction row: %w", err))
		}
		history = append(history, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("load history", fmt.Errorf("iterate prediction rows: %w", err))
	}
	return history, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
