package ml

import (
	"fmt"
	"strings"
)

// Kind is the numeric type of a feature.
type Kind int

// Feature kinds. KindInt values must be whole numbers.
const (
	KindFloat Kind = iota
	KindInt
)

// String returns "int" or "float".
func (k Kind) String() string {
	if k == KindInt {
		return "int"
	}
	return "float"
}

// Feature describes one model input and the column it is stored in.
type Feature struct {
	Name   string
	Column string
	Kind   Kind
}

// Schema is the ordered feature list the model was trained on. Collector,
// predictor and store all read field order from here.
type Schema struct {
	features []Feature
	index    map[string]int
}

// NewSchema builds a schema from an ordered feature list. Names must be unique.
func NewSchema(features ...Feature) (Schema, error) {
	index := make(map[string]int, len(features))
	for i, f := range features {
		if f.Name == "" {
			return Schema{}, fmt.Errorf("feature %d has no name", i)
		}
		if _, dup := index[f.Name]; dup {
			return Schema{}, fmt.Errorf("duplicate feature %q", f.Name)
		}
		index[f.Name] = i
	}
	return Schema{features: append([]Feature(nil), features...), index: index}, nil
}

// StockSchema is the twelve-feature layout used by the price model.
var StockSchema = mustSchema(
	Feature{Name: "Open", Column: "open_price", Kind: KindFloat},
	Feature{Name: "Low", Column: "low_price", Kind: KindFloat},
	Feature{Name: "High", Column: "high_price", Kind: KindFloat},
	Feature{Name: "Volume", Column: "volume", Kind: KindInt},
	Feature{Name: "Year", Column: "year", Kind: KindInt},
	Feature{Name: "Month", Column: "month", Kind: KindInt},
	Feature{Name: "Day", Column: "day", Kind: KindInt},
	Feature{Name: "MA7", Column: "ma7", Kind: KindFloat},
	Feature{Name: "MA30", Column: "ma30", Kind: KindFloat},
	Feature{Name: "Return", Column: "daily_return", Kind: KindFloat},
	Feature{Name: "RSI", Column: "rsi", Kind: KindFloat},
	Feature{Name: "Volatility", Column: "volatility", Kind: KindFloat},
)

func mustSchema(features ...Feature) Schema {
	s, err := NewSchema(features...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of features.
func (s Schema) Len() int { return len(s.features) }

// Features returns a copy of the features in model order.
func (s Schema) Features() []Feature {
	return append([]Feature(nil), s.features...)
}

// Names returns the feature names in model order.
func (s Schema) Names() []string {
	names := make([]string, len(s.features))
	for i, f := range s.features {
		names[i] = f.Name
	}
	return names
}

// Columns returns the storage column of each feature, in model order.
func (s Schema) Columns() []string {
	cols := make([]string, len(s.features))
	for i, f := range s.features {
		cols[i] = f.Column
	}
	return cols
}

// Lookup returns the feature and its position.
func (s Schema) Lookup(name string) (Feature, int, bool) {
	i, ok := s.index[name]
	if !ok {
		return Feature{}, -1, false
	}
	return s.features[i], i, true
}

// Validate checks that names lists exactly the schema features in schema order.
func (s Schema) Validate(names []string) error {
	if len(names) != len(s.features) {
		return &InvalidInputError{
			Reason: fmt.Sprintf("expected %d features, got %d", len(s.features), len(names)),
		}
	}
	for i, f := range s.features {
		if names[i] != f.Name {
			return &InvalidInputError{
				Field:  names[i],
				Reason: fmt.Sprintf("position %d must be %s (order: %s)", i, f.Name, strings.Join(s.Names(), ",")),
			}
		}
	}
	return nil
}
