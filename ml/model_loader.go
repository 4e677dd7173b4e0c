package ml

import (
	"fmt"
)

// Supported values for ml.model_type.
const (
	ModelTypeGBTree = "gbtree"
	ModelTypeLinear = "linear"
)

// LoadModel reads a JSON artifact of the given type from path.
func LoadModel(modelType, path string) (Model, error) {
	switch modelType {
	case ModelTypeGBTree:
		model := &TreeEnsemble{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	case ModelTypeLinear:
		model := &LinearModel{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

// LoadCached loads the artifact and, when cacheSize is positive, fronts it
// with an LRU of recent predictions. Each call yields a fresh cache, so a
// reloaded model never serves answers from its predecessor.
func LoadCached(modelType, path string, cacheSize int) (Model, error) {
	model, err := LoadModel(modelType, path)
	if err != nil {
		return nil, fmt.Errorf("load %s model from %s: %w", modelType, path, err)
	}
	if cacheSize <= 0 {
		return model, nil
	}
	cached, err := NewCachedModel(model, cacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}
