// Package cleaning prepares the processed feature table for modeling:
// calendar gaps are forward filled, the return columns are winsorized,
// and the series is split chronologically into train, validation and
// test sets.
package cleaning
