package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownState is returned when a listing state filter cannot be
// parsed into one of the known buckets.
var ErrUnknownState = errors.New("unknown state")

// StateFilter classifies bookings relative to the current instant for
// listing purposes.
type StateFilter string

const (
	FilterAll      StateFilter = "ALL"
	FilterCurrent  StateFilter = "CURRENT"
	FilterPast     StateFilter = "PAST"
	FilterFuture   StateFilter = "FUTURE"
	FilterWaiting  StateFilter = "WAITING"
	FilterRejected StateFilter = "REJECTED"
)

// ParseStateFilter validates a raw filter string at the boundary.
// Matching is case-insensitive; an empty string means ALL.
func ParseStateFilter(raw string) (StateFilter, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return FilterAll, nil
	}
	switch StateFilter(s) {
	case FilterAll, FilterCurrent, FilterPast, FilterFuture, FilterWaiting, FilterRejected:
		return StateFilter(s), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownState, raw)
}
