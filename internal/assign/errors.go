package assign

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when a configuration is structurally unusable:
// zero variants, or malformed weight data. A fallback cannot repair a broken
// configuration, so this error always propagates to the caller.
var ErrInvalidConfig = errors.New("assign: invalid config")

// NegativeWeightError is returned when a variant carries a negative weight.
type NegativeWeightError struct {
	Variant string
	Weight  float64
}

func (e NegativeWeightError) Error() string {
	return fmt.Sprintf("assign: variant %q has negative weight %g", e.Variant, e.Weight)
}

// Is makes NegativeWeightError match ErrInvalidConfig under errors.Is.
func (e NegativeWeightError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// WeightSumError is returned when variant weights sum above 100 percentage
// points, which would make cumulative bucket ranges exceed the bucket space.
type WeightSumError struct {
	Sum float64
}

func (e WeightSumError) Error() string {
	return fmt.Sprintf("assign: variant weights sum to %g, must be <= 100", e.Sum)
}

// Is makes WeightSumError match ErrInvalidConfig under errors.Is.
func (e WeightSumError) Is(target error) bool {
	return target == ErrInvalidConfig
}
