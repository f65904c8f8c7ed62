package models

import "time"

// BookingStatus is the lifecycle state of a booking. WAITING is the
// only non-terminal state.
type BookingStatus string

const (
	StatusWaiting  BookingStatus = "WAITING"
	StatusApproved BookingStatus = "APPROVED"
	StatusRejected BookingStatus = "REJECTED"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no transition is allowed out of s.
func (s BookingStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Booking struct {
	ID        int64         `json:"id"`
	BookerID  int64         `json:"booker_id"`
	ItemID    int64         `json:"item_id"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Version   int64         `json:"version"`
}
