package apperrors

import "errors"

var (
	ErrRecordNotFound   = errors.New("ticket record not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrCeremonyNotFound = errors.New("ceremony date not found")
	ErrUnparseableDate  = errors.New("unparseable date")
	ErrInvalidInput     = errors.New("invalid input")
	ErrCalendarEmpty    = errors.New("ceremony calendar is empty")
	ErrNoActiveRecord   = errors.New("no active ticket record")
	ErrInternalServer   = errors.New("internal server error")
)
