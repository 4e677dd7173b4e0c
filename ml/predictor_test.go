package ml

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constModel struct {
	names []string
	y     float64
	err   error
	calls int
	last  []float64
}

func (m *constModel) FeatureNames() []string { return m.names }

func (m *constModel) Predict(features []float64) (float64, error) {
	m.calls++
	m.last = append([]float64(nil), features...)
	return m.y, m.err
}

func scenarioRecord() FeatureRecord {
	return FeatureRecord{
		Open: 15.73, Low: 15.36, High: 16.25, Volume: 98853000,
		Year: 2015, Month: 8, Day: 21,
		MA7: 16.47, MA30: 17.17, Return: -0.04, RSI: 34.81, Volatility: 0.68,
	}
}

func TestPredictor_PassesVectorInSchemaOrder(t *testing.T) {
	model := &constModel{names: StockSchema.Names(), y: 16.02}
	p, err := NewPredictor(model, StockSchema)
	require.NoError(t, err)

	y, err := p.Predict(context.Background(), scenarioRecord())
	require.NoError(t, err)
	assert.InDelta(t, 16.02, y, 1e-9)

	assert.Equal(t, []float64{15.73, 15.36, 16.25, 98853000, 2015, 8, 21, 16.47, 17.17, -0.04, 34.81, 0.68}, model.last)
}

func TestPredictor_RejectsMisorderedModel(t *testing.T) {
	names := StockSchema.Names()
	names[0], names[1] = names[1], names[0]

	_, err := NewPredictor(&constModel{names: names}, StockSchema)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestPredictor_RejectsShortModel(t *testing.T) {
	_, err := NewPredictor(&constModel{names: StockSchema.Names()[:11]}, StockSchema)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPredictor_RejectsNonFiniteInput(t *testing.T) {
	model := &constModel{names: StockSchema.Names(), y: 1}
	p, err := NewPredictor(model, StockSchema)
	require.NoError(t, err)

	rec := scenarioRecord()
	rec.RSI = math.NaN()
	_, err = p.Predict(context.Background(), rec)

	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "RSI", invalid.Field)
	assert.Zero(t, model.calls)
}

func TestPredictor_RejectsNonFiniteOutput(t *testing.T) {
	p, err := NewPredictor(&constModel{names: StockSchema.Names(), y: math.Inf(1)}, StockSchema)
	require.NoError(t, err)

	for _, y := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		p.model = &constModel{names: StockSchema.Names(), y: y}
		_, err = p.Predict(context.Background(), scenarioRecord())
		require.Error(t, err, "%v", y)
		assert.ErrorIs(t, err, ErrNonFiniteOutput)
		assert.NotErrorIs(t, err, ErrInvalidInput, "a model fault is not the caller's input")
	}
}

func TestPredictor_FiniteForWellFormedEnsemble(t *testing.T) {
	p, err := NewPredictor(stumpEnsemble(), StockSchema)
	require.NoError(t, err)

	records := []FeatureRecord{
		scenarioRecord(),
		{},
		{Open: 1e6, High: 1e6, Low: 0, Volume: 1 << 40, Year: 2030, Month: 12, Day: 31, RSI: 100},
		{Return: -1, Volatility: 50, MA7: -3, MA30: 1e-9},
	}
	for _, rec := range records {
		y, err := p.Predict(context.Background(), rec)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(y) || math.IsInf(y, 0), "non-finite prediction %v for %+v", y, rec)
	}
}

func TestPredictor_ModelErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	p, err := NewPredictor(&constModel{names: StockSchema.Names(), err: boom}, StockSchema)
	require.NoError(t, err)

	_, err = p.Predict(context.Background(), scenarioRecord())
	assert.ErrorIs(t, err, boom)
}

func TestPredictor_CanceledContext(t *testing.T) {
	p, err := NewPredictor(&constModel{names: StockSchema.Names()}, StockSchema)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Predict(ctx, scenarioRecord())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinearModel_Predict(t *testing.T) {
	coef := make([]float64, StockSchema.Len())
	coef[0] = 1     // Open
	coef[10] = 0.01 // RSI
	model := &LinearModel{Features: StockSchema.Names(), Intercept: 0.1, Coefficients: coef}

	p, err := NewPredictor(model, StockSchema)
	require.NoError(t, err)

	y, err := p.Predict(context.Background(), scenarioRecord())
	require.NoError(t, err)
	assert.InDelta(t, 0.1+15.73+0.3481, y, 1e-9)
}
