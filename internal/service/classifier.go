package service

import (
	"fmt"
	"time"

	"rentloop/internal/models"
)

// buildBookingQuery maps a state filter plus "now" and from/size paging
// into the concrete store query shared by the booker and owner listing
// paths. Paging snaps to whole pages: page = from / size, and the
// returned window starts at page * size.
func buildBookingQuery(filter models.StateFilter, now time.Time, from, size int) (models.BookingQuery, error) {
	if from < 0 || size <= 0 {
		return models.BookingQuery{}, fmt.Errorf("%w: from=%d size=%d", ErrInvalidPageParams, from, size)
	}

	page := from / size
	return models.BookingQuery{
		Filter: filter,
		Now:    now,
		Limit:  size,
		Offset: page * size,
	}, nil
}
