package validation

import (
	"fmt"
	"math"

	"github.com/signalnine/labgrader/internal/result"
)

// TotalScore sums the score of passed outcomes.
func TotalScore(outcomes []*result.Outcome) float64 {
	var total float64
	for _, o := range outcomes {
		if o.Passed {
			total += o.Score
		}
	}
	return total
}

// MaxScore sums the weight every outcome was graded out of.
func MaxScore(outcomes []*result.Outcome) float64 {
	var total float64
	for _, o := range outcomes {
		total += o.MaxScore
	}
	return total
}

// SumWeights adds up check weights. Zero-weight checks are informational.
func SumWeights(checks []*CheckSpec) float64 {
	var total float64
	for _, c := range checks {
		total += c.Weight
	}
	return total
}

// AuditWeights compares the check weights against an assignment's total
// credit. It is advisory: a mismatch is reported, never enforced while grading.
// A zero total skips the audit.
func AuditWeights(checks []*CheckSpec, total float64) error {
	if total == 0 {
		return nil
	}
	sum := SumWeights(checks)
	if math.Abs(sum-total) > 1e-9 {
		return fmt.Errorf("check weights sum to %g, assignment total is %g", sum, total)
	}
	return nil
}
