package ml

// Model is a loaded regression artifact. Predict takes one row in the order
// returned by FeatureNames.
type Model interface {
	Predict(features []float64) (float64, error)
	FeatureNames() []string
}
