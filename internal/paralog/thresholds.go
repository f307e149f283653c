package paralog

import (
	"fmt"
	"math"
)

// Thresholds are the inclusive lower bounds an alignment must reach.
// Both are fractions in [0, 1].
type Thresholds struct {
	Identity float64
	Coverage float64
}

// DefaultThresholds returns identity 0.8 and coverage 0.8.
func DefaultThresholds() Thresholds {
	return Thresholds{Identity: 0.8, Coverage: 0.8}
}

// Validate checks that both thresholds are fractions.
func (th Thresholds) Validate() error {
	if math.IsNaN(th.Identity) || th.Identity < 0 || th.Identity > 1 {
		return fmt.Errorf("identity threshold %v outside [0, 1]", th.Identity)
	}
	if math.IsNaN(th.Coverage) || th.Coverage < 0 || th.Coverage > 1 {
		return fmt.Errorf("coverage threshold %v outside [0, 1]", th.Coverage)
	}
	return nil
}
