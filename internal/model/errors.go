package model

import "errors"

var (
	// ErrUpstreamUnavailable marks a failed or timed out call to the record
	// store or the text labeling service.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrPersistence marks a failed write to the event, insight or profile store.
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidRecord is returned when a record fails boundary validation.
	ErrInvalidRecord = errors.New("invalid record")
)
