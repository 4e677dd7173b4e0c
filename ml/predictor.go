package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Predictor applies a model to feature records. It owns no state beyond the
// model reference it was built with.
type Predictor struct {
	model  Model
	schema Schema
}

// NewPredictor wraps model after checking its feature names against schema.
func NewPredictor(model Model, schema Schema) (*Predictor, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if err := schema.Validate(model.FeatureNames()); err != nil {
		return nil, fmt.Errorf("model does not match feature schema: %w", err)
	}
	return &Predictor{model: model, schema: schema}, nil
}

// Predict returns the model output for rec. Malformed records and artifacts
// whose feature list drifted from the schema fail with InvalidInputError. A NaN
// or infinite model output fails with ErrNonFiniteOutput.
func (p *Predictor) Predict(ctx context.Context, rec FeatureRecord) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	// The artifact can be swapped underneath a Holder, so check every call.
	if err := p.schema.Validate(p.model.FeatureNames()); err != nil {
		return 0, err
	}
	y, err := p.model.Predict(rec.Vector())
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, fmt.Errorf("predict: %w: %v", ErrNonFiniteOutput, y)
	}
	return y, nil
}

// Schema returns the feature layout the predictor was built with.
func (p *Predictor) Schema() Schema { return p.schema }
