package models

import "time"

// BookingQuery is the concrete store query produced by the temporal
// classifier: a state bucket anchored at a fixed instant plus paging.
type BookingQuery struct {
	Filter StateFilter
	Now    time.Time
	Limit  int
	Offset int
}
