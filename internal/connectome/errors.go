package connectome

import "errors"

var (
	// ErrConfig reports an unknown normalization, trend, filter or eigen index.
	ErrConfig = errors.New("connectome: invalid configuration")
	// ErrROIMismatch reports a sample whose ROI set differs from the first one seen.
	ErrROIMismatch = errors.New("connectome: ROI set mismatch")
	// ErrNotFound reports an unknown channel, subject or sample.
	ErrNotFound = errors.New("connectome: not found")
	// ErrUsage reports a malformed argument; the dataset is left unchanged.
	ErrUsage = errors.New("connectome: invalid argument")
	// ErrDegenerate reports numeric input that cannot be processed, such as a
	// channel with zero norm.
	ErrDegenerate = errors.New("connectome: degenerate input")
)
