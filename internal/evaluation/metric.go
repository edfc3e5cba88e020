package evaluation

import "fmt"

// ShiftedMismatch scores one-step-ahead forecasts. Row i of the actual
// sequence is compared against the forecast issued at row i-1, so the
// prediction series is rotated right by one before the element-wise
// comparison; the first row wraps around to the last forecast. The
// result is the share of mismatching rows.
func ShiftedMismatch(actual, predicted []int) (float64, error) {
	if len(actual) == 0 {
		return 0, fmt.Errorf("no observations to score")
	}
	if len(actual) != len(predicted) {
		return 0, fmt.Errorf("actual has %d observations, predicted has %d", len(actual), len(predicted))
	}

	n := len(actual)
	mismatches := 0
	for i := range actual {
		if actual[i] != predicted[(i-1+n)%n] {
			mismatches++
		}
	}
	return float64(mismatches) / float64(n), nil
}
