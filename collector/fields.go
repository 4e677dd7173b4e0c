// Package collector turns user input into feature records.
package collector

import (
	"pricecast/ml"
)

// FieldSpec describes one input widget: its label, default and bounds.
// A nil bound means unbounded on that side.
type FieldSpec struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Column  string   `json:"column"`
	Kind    string   `json:"kind"`
	Default float64  `json:"default"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    float64  `json:"step"`
}

func bound(v float64) *float64 { return &v }

var fieldSpecs = []FieldSpec{
	{Name: "Open", Label: "Open Price", Default: 15.73, Min: bound(0), Step: 0.01},
	{Name: "Low", Label: "Low Price", Default: 15.36, Min: bound(0), Step: 0.01},
	{Name: "High", Label: "High Price", Default: 16.25, Min: bound(0), Step: 0.01},
	{Name: "Volume", Label: "Volume", Default: 98853000, Min: bound(0), Step: 1000},
	{Name: "Year", Label: "Year", Default: 2015, Min: bound(2000), Max: bound(2030), Step: 1},
	{Name: "Month", Label: "Month", Default: 8, Min: bound(1), Max: bound(12), Step: 1},
	{Name: "Day", Label: "Day", Default: 21, Min: bound(1), Max: bound(31), Step: 1},
	{Name: "MA7", Label: "7-Day Moving Avg", Default: 16.47, Step: 0.01},
	{Name: "MA30", Label: "30-Day Moving Avg", Default: 17.17, Step: 0.01},
	{Name: "Return", Label: "Daily Returns", Default: -0.04, Step: 0.01},
	{Name: "RSI", Label: "RSI", Default: 34.81, Min: bound(0), Max: bound(100), Step: 0.1},
	{Name: "Volatility", Label: "7-Day Volatility", Default: 0.68, Step: 0.01},
}

func init() {
	// Column and kind come from the schema so the two can never disagree.
	if len(fieldSpecs) != ml.StockSchema.Len() {
		panic("collector: field specs do not cover the feature schema")
	}
	for i, f := range ml.StockSchema.Features() {
		if fieldSpecs[i].Name != f.Name {
			panic("collector: field spec " + fieldSpecs[i].Name + " out of schema order")
		}
		fieldSpecs[i].Column = f.Column
		fieldSpecs[i].Kind = f.Kind.String()
	}
}

// Fields returns the input specs in schema order.
func Fields() []FieldSpec {
	out := make([]FieldSpec, len(fieldSpecs))
	copy(out, fieldSpecs)
	return out
}

// Defaults returns the record built from every field's default value.
func Defaults() ml.FeatureRecord {
	vec := make([]float64, len(fieldSpecs))
	for i, f := range fieldSpecs {
		vec[i] = f.Default
	}
	rec, err := ml.RecordFromVector(vec)
	if err != nil {
		panic(err)
	}
	return rec
}
