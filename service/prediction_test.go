package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"pricecast/db"
	"pricecast/ml"
	"pricecast/monitoring"
)

type fixedModel struct {
	y   float64
	err error
}

func (m fixedModel) FeatureNames() []string { return ml.StockSchema.Names() }

func (m fixedModel) Predict([]float64) (float64, error) { return m.y, m.err }

// brokenStore fails every call with the store's own error type.
type brokenStore struct{}

func (brokenStore) Save(context.Context, ml.FeatureRecord, float64) error {
	return &db.PersistenceError{Op: "save", Err: errors.New("connection refused")}
}

func (brokenStore) LoadHistory(context.Context) ([]db.PredictionRecord, error) {
	return nil, &db.PersistenceError{Op: "load history", Err: errors.New("connection refused")}
}

func (brokenStore) Close() error { return nil }

type recordingPublisher struct {
	mu   sync.Mutex
	recs []db.PredictionRecord
}

func (p *recordingPublisher) Publish(rec db.PredictionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recs = append(p.recs, rec)
	return nil
}

func scenarioRecord() ml.FeatureRecord {
	return ml.FeatureRecord{
		Open: 15.73, Low: 15.36, High: 16.25, Volume: 98853000,
		Year: 2015, Month: 8, Day: 21,
		MA7: 16.47, MA30: 17.17, Return: -0.04, RSI: 34.81, Volatility: 0.68,
	}
}

func newService(t *testing.T, model ml.Model, store db.Store, opts ...Option) *Service {
	t.Helper()
	p, err := ml.NewPredictor(model, ml.StockSchema)
	require.NoError(t, err)
	return New(p, store, zap.NewNop(), opts...)
}

func TestPredict_SavesAndPublishes(t *testing.T) {
	store := db.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := newService(t, fixedModel{y: 16.02}, store, WithPublisher(pub), WithMetrics(monitoring.NewMetrics()))
	ctx := context.Background()

	out, err := svc.Predict(ctx, scenarioRecord())
	require.NoError(t, err)
	assert.True(t, out.Saved)
	assert.NoError(t, out.SaveErr)
	assert.Equal(t, 16.02, out.Prediction)
	assert.Equal(t, Summary{RSI: "34.81", DailyReturn: "-4.00%", Volatility: "0.68"}, out.Metrics)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, scenarioRecord(), history[0].Features)
	assert.Equal(t, 16.02, history[0].PredictedPrice)

	require.Len(t, pub.recs, 1)
	assert.Equal(t, 16.02, pub.recs[0].PredictedPrice)
}

func TestPredict_SaveFailureKeepsPrediction(t *testing.T) {
	svc := newService(t, fixedModel{y: 16.02}, brokenStore{})

	out, err := svc.Predict(context.Background(), scenarioRecord())
	require.NoError(t, err)
	assert.Equal(t, 16.02, out.Prediction)
	assert.False(t, out.Saved)
	assert.True(t, errors.Is(out.SaveErr, db.ErrPersistence))
	assert.Contains(t, out.SaveError, "connection refused")
}

func TestPredict_InvalidInputIsReturned(t *testing.T) {
	store := db.NewMemoryStore()
	svc := newService(t, fixedModel{y: 1}, store)

	rec := scenarioRecord()
	rec.RSI = math.NaN()
	out, err := svc.Predict(context.Background(), rec)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, ml.ErrInvalidInput))

	history, err := store.LoadHistory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history, "nothing is saved for rejected input")
}

func TestPredict_ModelErrorIsReturned(t *testing.T) {
	svc := newService(t, fixedModel{err: errors.New("tree corrupt")}, db.NewMemoryStore())

	_, err := svc.Predict(context.Background(), scenarioRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tree corrupt")
}

func TestHistory_DegradesToEmpty(t *testing.T) {
	svc := newService(t, fixedModel{}, brokenStore{})

	history, err := svc.History(context.Background())
	assert.True(t, errors.Is(err, db.ErrPersistence))
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
