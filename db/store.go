// Package db persists predictions and reads them back, most recent first.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pricecast/ml"
)

// TableName is the prediction log table.
const TableName = "tesla_predictions"

// Columns outside the feature schema.
const (
	ColumnID             = "id"
	ColumnPredictedPrice = "predicted_price"
	ColumnPredictionDate = "prediction_date"
)

// PredictionRecord is one saved row. Rows are append-only.
type PredictionRecord struct {
	ID             int64            `json:"id"`
	Features       ml.FeatureRecord `json:"features"`
	PredictedPrice float64          `json:"predicted_price"`
	PredictionDate time.Time        `json:"prediction_date"`
}

// Store is the persistence gateway.
type Store interface {
	// Save inserts one row atomically. Failures are not retried.
	Save(ctx context.Context, rec ml.FeatureRecord, prediction float64) error
	// LoadHistory returns every row, most recent first. An empty table yields
	// an empty slice and no error.
	LoadHistory(ctx context.Context) ([]PredictionRecord, error)
	Close() error
}

// ErrPersistence matches any PersistenceError via errors.Is.
var ErrPersistence = errors.New("persistence error")

// PersistenceError wraps a store connection, write or read failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// Columns returns the table layout in order. The history query and the CSV
// export both use it.
func Columns() []string {
	cols := make([]string, 0, ml.StockSchema.Len()+3)
	cols = append(cols, ColumnID)
	cols = append(cols, ml.StockSchema.Columns()...)
	cols = append(cols, ColumnPredictedPrice, ColumnPredictionDate)
	return cols
}

// insertColumns are the values supplied by the caller; id and date are
// assigned by the server.
func insertColumns() []string {
	return append(ml.StockSchema.Columns(), ColumnPredictedPrice)
}

func insertArgs(rec ml.FeatureRecord, prediction float64) []any {
	return []any{
		rec.Open, rec.Low, rec.High, rec.Volume,
		rec.Year, rec.Month, rec.Day,
		rec.MA7, rec.MA30, rec.Return, rec.RSI, rec.Volatility,
		prediction,
	}
}

func insertQuery(placeholder func(i int) string) string {
	cols := insertColumns()
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		TableName, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func historyQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s DESC, %s DESC",
		strings.Join(Columns(), ", "), TableName, ColumnPredictionDate, ColumnID)
}

// scanDest returns pointers matching Columns() order.
func scanDest(r *PredictionRecord) []any {
	f := &r.Features
	return []any{
		&r.ID,
		&f.Open, &f.Low, &f.High, &f.Volume,
		&f.Year, &f.Month, &f.Day,
		&f.MA7, &f.MA30, &f.Return, &f.RSI, &f.Volatility,
		&r.PredictedPrice, &r.PredictionDate,
	}
}
