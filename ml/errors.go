package ml

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches any InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// ErrNonFiniteOutput is returned when a model produces NaN or an infinity.
// The input was valid, so it is a model fault rather than an InvalidInputError.
var ErrNonFiniteOutput = errors.New("model returned a non-finite value")

// InvalidInputError reports malformed or missing feature data reaching the predictor.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}
