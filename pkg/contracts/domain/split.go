package domain

import "fmt"

// Split identifies one chronological partition of the cleaned dataset.
type Split string

const (
	SplitTrain      Split = "train"
	SplitValidation Split = "validation"
	SplitTest       Split = "test"
)

// Splits lists all partitions in pipeline order.
var Splits = []Split{SplitTrain, SplitValidation, SplitTest}

// FileName returns the canonical CSV file name for the split,
// e.g. "train_data.csv".
func (s Split) FileName() string {
	return string(s) + "_data.csv"
}

// String implements fmt.Stringer.
func (s Split) String() string {
	return string(s)
}

// ParseSplit converts a string to a Split, accepting only the three
// canonical values.
func ParseSplit(v string) (Split, error) {
	switch Split(v) {
	case SplitTrain, SplitValidation, SplitTest:
		return Split(v), nil
	default:
		return "", fmt.Errorf("unknown split %q (want train, validation or test)", v)
	}
}
