package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecast/ml"
)

func scenarioRecord() ml.FeatureRecord {
	return ml.FeatureRecord{
		Open: 15.73, Low: 15.36, High: 16.25, Volume: 98853000,
		Year: 2015, Month: 8, Day: 21,
		MA7: 16.47, MA30: 17.17, Return: -0.04, RSI: 34.81, Volatility: 0.68,
	}
}

func assertRecordInDelta(t *testing.T, want, got ml.FeatureRecord) {
	t.Helper()
	wv, gv := want.Vector(), got.Vector()
	for i, name := range ml.StockSchema.Names() {
		assert.InDelta(t, wv[i], gv[i], 1e-6, name)
	}
}

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, open func(t *testing.T) Store) {
	t.Run("empty history", func(t *testing.T) {
		store := open(t)
		history, err := store.LoadHistory(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, history)
		assert.Empty(t, history)
	})

	t.Run("save then load returns saved row first", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		older := scenarioRecord()
		older.Day = 20
		require.NoError(t, store.Save(ctx, older, 15.5))
		require.NoError(t, store.Save(ctx, scenarioRecord(), 16.02))

		history, err := store.LoadHistory(ctx)
		require.NoError(t, err)
		require.Len(t, history, 2)

		latest := history[0]
		assertRecordInDelta(t, scenarioRecord(), latest.Features)
		assert.Equal(t, int64(98853000), latest.Features.Volume)
		assert.InDelta(t, 16.02, latest.PredictedPrice, 1e-6)
		assert.False(t, latest.PredictionDate.IsZero())
		assert.Greater(t, latest.ID, history[1].ID)

		assert.Equal(t, int64(20), history[1].Features.Day)
		assert.False(t, history[1].PredictionDate.After(latest.PredictionDate))
	})

	t.Run("many saves keep recency order", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		for i := 0; i < 10; i++ {
			require.NoError(t, store.Save(ctx, scenarioRecord(), float64(i)))
		}
		history, err := store.LoadHistory(ctx)
		require.NoError(t, err)
		require.Len(t, history, 10)
		for i, row := range history {
			assert.InDelta(t, float64(9-i), row.PredictedPrice, 1e-9)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "predictions.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestSQLiteStore_ClosedDatabaseIsPersistenceError(t *testing.T) {
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "predictions.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Save(context.Background(), scenarioRecord(), 1)
	assert.ErrorIs(t, err, ErrPersistence)

	_, err = store.LoadHistory(context.Background())
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "load history", pe.Op)
}

func TestSQLiteStore_FailedInsertRollsBack(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "predictions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Save(ctx, scenarioRecord(), 16.02))

	// The row is written before the trigger aborts, so only a rollback removes it.
	_, err = store.database.ExecContext(ctx, `
		CREATE TRIGGER reject_insert AFTER INSERT ON tesla_predictions
		BEGIN SELECT RAISE(ABORT, 'insert rejected'); END`)
	require.NoError(t, err)

	rejected := scenarioRecord()
	rejected.Day = 22
	err = store.Save(ctx, rejected, 17)
	require.ErrorIs(t, err, ErrPersistence)
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "save", pe.Op)
	assert.Contains(t, err.Error(), "insert rejected")

	_, err = store.database.ExecContext(ctx, `DROP TRIGGER reject_insert`)
	require.NoError(t, err)

	history, err := store.LoadHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(21), history[0].Features.Day)
	assert.InDelta(t, 16.02, history[0].PredictedPrice, 1e-6)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore()
	err := store.Save(ctx, scenarioRecord(), 1)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestOpen_Memory(t *testing.T) {
	store, err := Open(context.Background(), Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{
		"id", "open_price", "low_price", "high_price", "volume", "year", "month", "day",
		"ma7", "ma30", "daily_return", "rsi", "volatility", "predicted_price", "prediction_date",
	}, Columns())
}

func TestInsertQuery(t *testing.T) {
	q := insertQuery(func(int) string { return "?" })
	assert.Equal(t,
		"INSERT INTO tesla_predictions (open_price, low_price, high_price, volume, year, month, day, ma7, ma30, daily_return, rsi, volatility, predicted_price) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		q)
	assert.Len(t, insertArgs(scenarioRecord(), 1), len(insertColumns()))
}
