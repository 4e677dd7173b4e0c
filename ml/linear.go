package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// LinearModel is a plain linear regression artifact.
type LinearModel struct {
	Features     []string  `json:"feature_names"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func (lm *LinearModel) FeatureNames() []string {
	return append([]string(nil), lm.Features...)
}

// Predict returns the intercept plus the dot product of the coefficients and features.
func (lm *LinearModel) Predict(features []float64) (float64, error) {
	if len(lm.Coefficients) == 0 {
		return 0, errors.New("model not loaded")
	}
	if len(features) != len(lm.Coefficients) {
		return 0, &InvalidInputError{
			Reason: fmt.Sprintf("model expects %d features, got %d", len(lm.Coefficients), len(features)),
		}
	}
	y := lm.Intercept
	for i, x := range features {
		y += lm.Coefficients[i] * x
	}
	return y, nil
}

// Load replaces the model with the artifact at path.
func (lm *LinearModel) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded LinearModel
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if len(loaded.Coefficients) == 0 {
		return fmt.Errorf("%s: coefficients is empty", path)
	}
	if len(loaded.Features) != len(loaded.Coefficients) {
		return fmt.Errorf("%s: %d feature names for %d coefficients", path, len(loaded.Features), len(loaded.Coefficients))
	}
	*lm = loaded
	return nil
}
