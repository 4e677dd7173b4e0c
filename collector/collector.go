package collector

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"pricecast/ml"
)

// Adjustment records a value that was clamped to its declared bound.
type Adjustment struct {
	Field string  `json:"field"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
}

// String renders the adjustment as a user-facing warning.
func (a Adjustment) String() string {
	return fmt.Sprintf("%s %v adjusted to %v", a.Field, a.From, a.To)
}

// FromForm reads a submitted form. Blank or absent fields take their default.
func FromForm(values url.Values) (ml.FeatureRecord, []Adjustment, error) {
	vec := make([]float64, len(fieldSpecs))
	for i, f := range fieldSpecs {
		raw := strings.TrimSpace(values.Get(f.Name))
		if raw == "" {
			vec[i] = f.Default
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ml.FeatureRecord{}, nil, &ml.InvalidInputError{Field: f.Name, Reason: fmt.Sprintf("%q is not a number", raw)}
		}
		vec[i] = v
	}
	return build(vec)
}

// FromMap reads a JSON-style name to value map. Every feature must be present.
func FromMap(values map[string]float64) (ml.FeatureRecord, []Adjustment, error) {
	vec := make([]float64, len(fieldSpecs))
	for i, f := range fieldSpecs {
		v, ok := values[f.Name]
		if !ok {
			return ml.FeatureRecord{}, nil, &ml.InvalidInputError{Field: f.Name, Reason: "missing"}
		}
		vec[i] = v
	}
	for name := range values {
		if _, _, ok := ml.StockSchema.Lookup(name); !ok {
			return ml.FeatureRecord{}, nil, &ml.InvalidInputError{Field: name, Reason: "unknown feature"}
		}
	}
	return build(vec)
}

// Clamp pulls every bounded field into range. Calendar validity is not checked:
// Day=31 in a 30-day month passes through unchanged. A record carrying NaN or
// Inf is returned as is; the predictor rejects it.
func Clamp(rec ml.FeatureRecord) (ml.FeatureRecord, []Adjustment) {
	if rec.Validate() != nil {
		return rec, nil
	}
	vec := rec.Vector()
	adjustments := clampVector(vec)
	if len(adjustments) == 0 {
		return rec, nil
	}
	out, err := ml.RecordFromVector(vec)
	if err != nil {
		return rec, nil
	}
	return out, adjustments
}

func build(vec []float64) (ml.FeatureRecord, []Adjustment, error) {
	// NaN and fractional integers are rejected before clamping hides them.
	if _, err := ml.RecordFromVector(vec); err != nil {
		return ml.FeatureRecord{}, nil, err
	}
	adjustments := clampVector(vec)
	rec, err := ml.RecordFromVector(vec)
	if err != nil {
		return ml.FeatureRecord{}, nil, err
	}
	return rec, adjustments, nil
}

func clampVector(vec []float64) []Adjustment {
	var adjustments []Adjustment
	for i, f := range fieldSpecs {
		v := vec[i]
		switch {
		case f.Min != nil && v < *f.Min:
			vec[i] = *f.Min
		case f.Max != nil && v > *f.Max:
			vec[i] = *f.Max
		default:
			continue
		}
		adjustments = append(adjustments, Adjustment{Field: f.Name, From: v, To: vec[i]})
	}
	return adjustments
}
