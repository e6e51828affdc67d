package geoanchor

import "errors"

// Errors returned by this package. Returned errors wrap one of these and can
// be tested with [errors.Is].
var (
	ErrInvalidAnchor           = errors.New("invalid anchor")
	ErrInvalidSpatialReference = errors.New("invalid spatial reference")
	ErrNonInvertible           = errors.New("non-invertible transform")
	ErrProjectionFailure       = errors.New("projection failure")
	ErrUnsupportedLinearUnit   = errors.New("unsupported linear unit")
)

const zeroTolerance = 1e-12
