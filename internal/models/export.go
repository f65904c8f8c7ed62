package models

import "time"

// ExportTask asks the worker to produce an XLSX report of all bookings
// on the owner's items.
type ExportTask struct {
	ID          string    `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	RequestedAt time.Time `json:"requested_at"`
	Attempt     int       `json:"attempt"`
}
