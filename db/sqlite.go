package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pricecast/ml"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
    CREATE TABLE IF NOT EXISTS tesla_predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        open_price REAL NOT NULL,
        low_price REAL NOT NULL,
        high_price REAL NOT NULL,
        volume INTEGER NOT NULL,
        year INTEGER NOT NULL,
        month INTEGER NOT NULL,
        day INTEGER NOT NULL,
        ma7 REAL NOT NULL,
        ma30 REAL NOT NULL,
        daily_return REAL NOT NULL,
        rsi REAL NOT NULL,
        volatility REAL NOT NULL,
        predicted_price REAL NOT NULL,
        prediction_date TIMESTAMP NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
    );
    CREATE INDEX IF NOT EXISTS idx_tesla_predictions_date ON tesla_predictions(prediction_date);
    `

// SQLiteStore keeps predictions in a local SQLite file.
type SQLiteStore struct {
	database *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and creates the table.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, persistErr("open", errors.New("sqlite path is required"))
	}
	database, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, persistErr("open", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		database.SetMaxOpenConns(1)
	}
	if _, err := database.ExecContext(ctx, sqliteSchema); err != nil {
		database.Close()
		return nil, persistErr("migrate", err)
	}
	return &SQLiteStore{database: database}, nil
}

// Save inserts the record and its prediction in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, rec ml.FeatureRecord, prediction float64) error {
	tx, err := s.database.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("save", err)
	}

	_, err = tx.ExecContext(ctx, insertQuery(func(int) string { return "?" }), insertArgs(rec, prediction)...)
	if err != nil {
		tx.Rollback()
		return persistErr("save", err)
	}

	if err := tx.Commit(); err != nil {
		return persistErr("save", err)
	}
	return nil
}

// LoadHistory queries all rows, most recent first.
func (s *SQLiteStore) LoadHistory(ctx context.Context) ([]PredictionRecord, error) {
	rows, err := s.database.QueryContext(ctx, historyQuery())
	if err != nil {
		return nil, persistErr("load history", err)
	}
	defer rows.Close()

	history := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		if err := rows.Scan(scanDest(&r)...); err != nil {
			return nil, persistErr("load history", err)
		}
		history = append(history, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("load history", err)
	}
	return history, nil
}

func (s *SQLiteStore) Close() error {
	return s.database.Close()
}
