package ml

import (
	"encoding/binary"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedModel memoises predictions per exact input vector.
type CachedModel struct {
	model Model
	cache *lru.Cache[string, float64]
}

// NewCachedModel fronts model with an LRU holding up to size predictions.
func NewCachedModel(model Model, size int) (*CachedModel, error) {
	cache, err := lru.New[string, float64](size)
	if err != nil {
		return nil, err
	}
	return &CachedModel{model: model, cache: cache}, nil
}

func (c *CachedModel) FeatureNames() []string { return c.model.FeatureNames() }

// Predict returns the cached output for features, computing it on a miss.
func (c *CachedModel) Predict(features []float64) (float64, error) {
	key := vectorKey(features)
	if y, ok := c.cache.Get(key); ok {
		return y, nil
	}
	y, err := c.model.Predict(features)
	if err != nil {
		return 0, err
	}
	c.cache.Add(key, y)
	return y, nil
}

// Len reports how many predictions are cached.
func (c *CachedModel) Len() int { return c.cache.Len() }

func vectorKey(features []float64) string {
	buf := make([]byte, 8*len(features))
	for i, f := range features {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return string(buf)
}
