package domain

import "errors"

var (
	ErrMissingTitle    = errors.New("article has no title")
	ErrMissingContent  = errors.New("article has no content")
	ErrInvalidResponse = errors.New("invalid extraction response")
	ErrMisalignedBatch = errors.New("batch result does not align with requests")
	ErrCircuitOpen     = errors.New("too many consecutive batch failures")
)
