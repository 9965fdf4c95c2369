package server

import "errors"

var (
	ErrSessionClosed   = errors.New("session is closed")
	ErrUnknownAction   = errors.New("unknown action")
	ErrMissingPointer  = errors.New("pointer is required")
	ErrMissingName     = errors.New("layout name is required")
	ErrStorageDisabled = errors.New("layout storage is disabled")
	ErrInvalidMessage  = errors.New("invalid message")
)
