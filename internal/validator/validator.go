package validator

import (
	"fmt"
)

// Result holds the validation outcome for one telemetry reading
type Result struct {
	Accepted bool
	Reason   string
}

// Validator checks humidity readings against the accepted range.
// Out-of-range readings are dropped without any side effect; malformed
// sensor output is common in the field and not actionable, so rejection
// carries no error and no alerting.
type Validator struct {
	humidityMin float64
	humidityMax float64
}

// NewValidator creates a new validator with the specified inclusive bounds
func NewValidator(humidityMin, humidityMax float64) *Validator {
	return &Validator{
		humidityMin: humidityMin,
		humidityMax: humidityMax,
	}
}

// ValidateHumidity accepts readings inside the inclusive range; the bounds
// themselves are valid readings.
func (v *Validator) ValidateHumidity(value float64) Result {
	if value < v.humidityMin {
		return Result{Reason: fmt.Sprintf("humidity %.2f below minimum %.2f", value, v.humidityMin)}
	}
	if value > v.humidityMax {
		return Result{Reason: fmt.Sprintf("humidity %.2f above maximum %.2f", value, v.humidityMax)}
	}
	return Result{Accepted: true}
}
