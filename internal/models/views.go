package models

import "time"

// BookingView is the read-only projection returned to callers: a
// booking joined with current booker and item snapshots.
type BookingView struct {
	ID     int64         `json:"id"`
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Status BookingStatus `json:"status"`
	Booker User          `json:"booker"`
	Item   Item          `json:"item"`
}

// BookingRef is the minimal booking reference exposed in item
// annotations.
type BookingRef struct {
	BookingID int64 `json:"id"`
	BookerID  int64 `json:"booker_id"`
}

// ItemDetail is an item enriched for the detail view. LastBooking and
// NextBooking are filled only when the viewer owns the item; they are
// derived per request and never persisted.
type ItemDetail struct {
	Item
	LastBooking *BookingRef `json:"last_booking,omitempty"`
	NextBooking *BookingRef `json:"next_booking,omitempty"`
	Comments    []Comment   `json:"comments"`
}

// ItemRequestView is an item request together with the items listed in
// answer to it.
type ItemRequestView struct {
	ItemRequest
	Items []Item `json:"items"`
}
