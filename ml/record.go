package ml

import (
	"fmt"
	"math"
)

// FeatureRecord is one prediction request. Field order follows StockSchema.
type FeatureRecord struct {
	Open       float64 `json:"Open"`
	Low        float64 `json:"Low"`
	High       float64 `json:"High"`
	Volume     int64   `json:"Volume"`
	Year       int64   `json:"Year"`
	Month      int64   `json:"Month"`
	Day        int64   `json:"Day"`
	MA7        float64 `json:"MA7"`
	MA30       float64 `json:"MA30"`
	Return     float64 `json:"Return"`
	RSI        float64 `json:"RSI"`
	Volatility float64 `json:"Volatility"`
}

// Vector returns the record as a model input row in StockSchema order.
func (r FeatureRecord) Vector() []float64 {
	return []float64{
		r.Open,
		r.Low,
		r.High,
		float64(r.Volume),
		float64(r.Year),
		float64(r.Month),
		float64(r.Day),
		r.MA7,
		r.MA30,
		r.Return,
		r.RSI,
		r.Volatility,
	}
}

// Value returns a feature by schema name.
func (r FeatureRecord) Value(name string) (float64, bool) {
	_, idx, ok := StockSchema.Lookup(name)
	if !ok {
		return 0, false
	}
	return r.Vector()[idx], true
}

// RecordFromVector is the inverse of Vector. Integer features must carry
// whole numbers.
func RecordFromVector(values []float64) (FeatureRecord, error) {
	if len(values) != StockSchema.Len() {
		return FeatureRecord{}, &InvalidInputError{
			Reason: fmt.Sprintf("expected %d features, got %d", StockSchema.Len(), len(values)),
		}
	}
	for i, f := range StockSchema.features {
		if err := checkValue(f, values[i]); err != nil {
			return FeatureRecord{}, err
		}
	}
	return FeatureRecord{
		Open:       values[0],
		Low:        values[1],
		High:       values[2],
		Volume:     int64(values[3]),
		Year:       int64(values[4]),
		Month:      int64(values[5]),
		Day:        int64(values[6]),
		MA7:        values[7],
		MA30:       values[8],
		Return:     values[9],
		RSI:        values[10],
		Volatility: values[11],
	}, nil
}

// Validate rejects NaN and infinite feature values and integer features that
// are fractional or too large to represent exactly.
func (r FeatureRecord) Validate() error {
	for i, v := range r.Vector() {
		if err := checkValue(StockSchema.features[i], v); err != nil {
			return err
		}
	}
	return nil
}

// maxExactInt is the largest magnitude a float64 holds without losing integer
// precision. Integer features beyond it would not survive the int64 conversion
// or a CSV round trip.
const maxExactInt = 1 << 53

func checkValue(f Feature, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &InvalidInputError{Field: f.Name, Reason: "must be a finite number"}
	}
	if f.Kind != KindInt {
		return nil
	}
	if v != math.Trunc(v) {
		return &InvalidInputError{Field: f.Name, Reason: fmt.Sprintf("must be a whole number, got %v", v)}
	}
	if math.Abs(v) > maxExactInt {
		return &InvalidInputError{Field: f.Name, Reason: fmt.Sprintf("%v is outside the exact integer range", v)}
	}
	return nil
}
