package instancing

import "errors"

var (
	ErrCapacityExceeded = errors.New("group capacity exceeded")
	ErrUnknownGroup     = errors.New("unknown tile group")
	ErrInvalidIndex     = errors.New("instance index out of range")
	ErrInvalidRegistry  = errors.New("invalid registry definition")
)
