package ml

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedModel_MemoisesByVector(t *testing.T) {
	inner := &constModel{names: StockSchema.Names(), y: 16.02}
	cached, err := NewCachedModel(inner, 2)
	require.NoError(t, err)

	vec := scenarioRecord().Vector()
	for i := 0; i < 3; i++ {
		y, err := cached.Predict(vec)
		require.NoError(t, err)
		assert.Equal(t, 16.02, y)
	}
	assert.Equal(t, 1, inner.calls)

	other := scenarioRecord()
	other.RSI = 35
	_, err = cached.Predict(other.Vector())
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, cached.Len())
	assert.Equal(t, StockSchema.Names(), cached.FeatureNames())
}

func TestCachedModel_DoesNotCacheErrors(t *testing.T) {
	inner := &constModel{names: StockSchema.Names(), err: assert.AnError}
	cached, err := NewCachedModel(inner, 4)
	require.NoError(t, err)

	vec := scenarioRecord().Vector()
	_, err = cached.Predict(vec)
	require.Error(t, err)
	_, err = cached.Predict(vec)
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.Len())
}

func TestNewCachedModel_InvalidSize(t *testing.T) {
	_, err := NewCachedModel(&constModel{}, 0)
	assert.Error(t, err)
}

func TestLoadCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, stumpEnsemble().Save(path))

	model, err := LoadCached(ModelTypeGBTree, path, 8)
	require.NoError(t, err)
	_, ok := model.(*CachedModel)
	assert.True(t, ok)

	model, err = LoadCached(ModelTypeGBTree, path, 0)
	require.NoError(t, err)
	_, ok = model.(*TreeEnsemble)
	assert.True(t, ok)

	_, err = LoadCached(ModelTypeGBTree, filepath.Join(t.TempDir(), "absent.json"), 8)
	assert.Error(t, err)
}
