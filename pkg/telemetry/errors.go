package telemetry

import "errors"

// ErrMalformed indicates an encoded report can't be decoded.
var ErrMalformed = errors.New("malformed report")
