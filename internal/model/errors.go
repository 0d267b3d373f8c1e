package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Validation errors
	ErrMalformedMessage = errors.New("malformed message")
	ErrMissingField     = errors.New("missing field")

	// Identity errors
	ErrUserNotFound       = errors.New("user not found")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrNotAuthenticated   = errors.New("connection is not authenticated")

	// Room errors
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyInRoom = errors.New("user is already in a room")
	ErrUserNotInRoom = errors.New("user is not in room")

	// Game errors
	ErrGameNotFound  = errors.New("game not found")
	ErrPieceNotFound = errors.New("piece not found")
	ErrBoardFull     = errors.New("board has no unoccupied cell")
)

// FieldError reports a required field that was absent. It matches
// ErrMissingField under errors.Is.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, e.Field)
}

func (e *FieldError) Unwrap() error {
	return ErrMissingField
}

// MissingField returns a FieldError naming the absent field
func MissingField(name string) error {
	return &FieldError{Field: name}
}

// ErrorKind classifies errors by how callers should react to them
type ErrorKind int

const (
	KindInternal     ErrorKind = iota // infrastructure failure
	KindValidation                    // bad input from the client
	KindNotFound                      // referenced entity does not exist
	KindConflict                      // request conflicts with current state
	KindAuthRequired                  // action needs an authenticated session
)

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrMalformedMessage), errors.Is(err, ErrMissingField):
		return KindValidation
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrConnectionNotFound), errors.Is(err, ErrGameNotFound),
		errors.Is(err, ErrPieceNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyInRoom), errors.Is(err, ErrRoomFull),
		errors.Is(err, ErrUserNotInRoom), errors.Is(err, ErrBoardFull):
		return KindConflict
	case errors.Is(err, ErrNotAuthenticated):
		return KindAuthRequired
	default:
		return KindInternal
	}
}
