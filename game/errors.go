package game

import "errors"

// Expected, user-facing outcomes. Engine operations return these for ordinary
// rule violations; handlers translate them into HTTP rejections.
var (
	ErrValidation   = errors.New("validation failed")
	ErrRoomNotFound = errors.New("room not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
)
