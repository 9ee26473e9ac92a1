package triest

import "errors"

var (
	// ErrInvalidCapacity is returned when the reservoir capacity is below 1
	ErrInvalidCapacity = errors.New("reservoir capacity must be at least 1")
	// ErrUnknownStrategy is returned for strategy names other than base and improved
	ErrUnknownStrategy = errors.New("unknown counter strategy")
)
