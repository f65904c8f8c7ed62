package database

import "errors"

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("request not found")
	ErrEmailExists     = errors.New("email already in use")

	// ErrStatusConflict means the compare-and-set transition found the
	// booking no longer in WAITING status.
	ErrStatusConflict = errors.New("booking status conflict")
)
