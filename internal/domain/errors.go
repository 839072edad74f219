package domain

import "errors"

var (
	// ErrDataUnavailable means the demand series could not be read. It must not
	// be treated as "no demand".
	ErrDataUnavailable = errors.New("demand data unavailable")

	// ErrInsufficientHistory means the product has too few demand points to
	// forecast. It is a normal outcome, not a failure.
	ErrInsufficientHistory = errors.New("insufficient demand history")

	// ErrModelExecutionFailed covers every numeric worker failure: spawn errors,
	// non-zero exits, timeouts and malformed output.
	ErrModelExecutionFailed = errors.New("model execution failed")

	// ErrPersistenceFailure wraps datastore write errors.
	ErrPersistenceFailure = errors.New("persistence failure")

	ErrUnsupportedModel = errors.New("unsupported model")
	ErrInvalidHorizon   = errors.New("horizon must be between 1 and 365 days")
	ErrInvalidParameter = errors.New("invalid model parameter")
	ErrProductNotFound  = errors.New("product not found")
	ErrForecastNotFound = errors.New("no forecast available")
)
