package model

import "errors"

var (
	// ErrInvalidParameter reports a caller-supplied parameter outside its domain
	// (tolerance <= 0, percentile outside [0,100], relative factor <= 0, negative budget).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrEmptyInput reports an empty strength distribution or event stream where
	// at least one value is required.
	ErrEmptyInput = errors.New("empty input")

	// ErrEstimator wraps any failure reported by an external estimator. Such a
	// failure is fatal for the file being analysed.
	ErrEstimator = errors.New("estimator failure")
)
