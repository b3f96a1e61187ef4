package errors

import stderrors "errors"

var (
	// ErrNotFound is returned when a required key is absent from state.
	ErrNotFound = stderrors.New("state: key not found")
	// ErrDeserialization marks stored bytes that do not decode to the
	// expected type. Callers must treat it as corruption of committed state.
	ErrDeserialization = stderrors.New("state: malformed value")
	ErrInvalidState    = stderrors.New("state: invalid state")
	ErrStorageIO       = stderrors.New("state: storage failure")
)
