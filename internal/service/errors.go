package service

import "errors"

var (
	// ErrSelfBooking means the requester tried to book their own item.
	ErrSelfBooking = errors.New("cannot book your own item")

	// ErrItemNotAvailable covers an unavailable item as well as an
	// invalid or non-future interval; clients see all three as the
	// same rejection.
	ErrItemNotAvailable = errors.New("item is not available")

	ErrAccessDenied      = errors.New("no access to this booking")
	ErrInvalidTransition = errors.New("booking is already decided")
	ErrInvalidPageParams = errors.New("invalid page parameters")
	ErrCommentNotAllowed = errors.New("commenting requires a finished booking")
	ErrEmptyComment      = errors.New("comment text is empty")
)
