package service

import (
	"context"
	"errors"

	"rentloop/internal/clock"
	"rentloop/internal/database"
	"rentloop/internal/domain"
	"rentloop/internal/events"
	"rentloop/internal/metrics"
	"rentloop/internal/models"

	"github.com/rs/zerolog"
)

// BookingService owns the booking lifecycle: creation gating, the
// WAITING -> APPROVED/REJECTED state machine and the temporal listing
// queries.
type BookingService struct {
	bookings domain.BookingStore
	items    domain.ItemStore
	users    domain.UserStore
	eventBus domain.EventPublisher
	clock    clock.Clock
	logger   *zerolog.Logger
}

func NewBookingService(
	bookings domain.BookingStore,
	items domain.ItemStore,
	users domain.UserStore,
	eventBus domain.EventPublisher,
	clk clock.Clock,
	logger *zerolog.Logger,
) *BookingService {
	if clk == nil {
		clk = clock.System{}
	}
	return &BookingService{
		bookings: bookings,
		items:    items,
		users:    users,
		eventBus: eventBus,
		clock:    clk,
		logger:   logger,
	}
}

// Create validates a candidate booking against the item snapshot and
// persists it in WAITING status. Checks run in order, first failure
// wins; no overlap check against other bookings of the item is made.
func (s *BookingService) Create(ctx context.Context, candidate *models.Booking, requesterID int64) (*models.BookingView, error) {
	booker, err := s.users.GetUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	item, err := s.items.GetItem(ctx, candidate.ItemID)
	if err != nil {
		return nil, err
	}

	if item.OwnerID == requesterID {
		return nil, ErrSelfBooking
	}
	if !item.Available {
		return nil, ErrItemNotAvailable
	}
	if !candidate.Start.Before(candidate.End) {
		return nil, ErrItemNotAvailable
	}
	if !candidate.Start.After(s.clock.Now()) {
		return nil, ErrItemNotAvailable
	}

	booking := &models.Booking{
		BookerID: requesterID,
		ItemID:   item.ID,
		Start:    candidate.Start,
		End:      candidate.End,
		Status:   models.StatusWaiting,
	}
	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	s.publishEvent(events.EventBookingCreated, booking)

	return &models.BookingView{
		ID:     booking.ID,
		Start:  booking.Start,
		End:    booking.End,
		Status: booking.Status,
		Booker: *booker,
		Item:   *item,
	}, nil
}

// Decide moves a WAITING booking to APPROVED or REJECTED. The caller
// must differ from the stored booker id, otherwise access is denied; a
// booking that already left WAITING cannot be re-decided. The store
// transition is a compare-and-set, so a concurrent second decider
// always loses.
func (s *BookingService) Decide(ctx context.Context, bookingID, approverID int64, approved bool) (*models.BookingView, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetUser(ctx, booking.BookerID); err != nil {
		return nil, err
	}
	if booking.BookerID == approverID {
		return nil, ErrAccessDenied
	}
	if booking.Status != models.StatusWaiting {
		return nil, ErrInvalidTransition
	}

	status := models.StatusApproved
	eventType := events.EventBookingApproved
	if !approved {
		status = models.StatusRejected
		eventType = events.EventBookingRejected
	}

	if err := s.bookings.UpdateBookingStatusIfWaiting(ctx, bookingID, status); err != nil {
		if errors.Is(err, database.ErrStatusConflict) {
			// Lost the race against a concurrent decider.
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	booking.Status = status
	metrics.IncBookingDecided(string(status))
	s.publishEvent(eventType, booking)

	return s.toView(ctx, booking)
}

// Get returns the booking view for its booker or the item owner.
func (s *BookingService) Get(ctx context.Context, bookingID, requesterID int64) (*models.BookingView, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	item, err := s.items.GetItem(ctx, booking.ItemID)
	if err != nil {
		return nil, err
	}
	if booking.BookerID != requesterID && item.OwnerID != requesterID {
		return nil, ErrAccessDenied
	}

	booker, err := s.users.GetUser(ctx, booking.BookerID)
	if err != nil {
		return nil, err
	}

	return &models.BookingView{
		ID:     booking.ID,
		Start:  booking.Start,
		End:    booking.End,
		Status: booking.Status,
		Booker: *booker,
		Item:   *item,
	}, nil
}

// List returns the subject's bookings for a state bucket, sorted by
// start descending. RoleBooker selects bookings made by the subject;
// RoleOwner selects bookings on items the subject owns.
func (s *BookingService) List(ctx context.Context, subjectID int64, role domain.Role, rawState string, from, size int) ([]*models.BookingView, error) {
	filter, err := models.ParseStateFilter(rawState)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetUser(ctx, subjectID); err != nil {
		return nil, err
	}

	query, err := buildBookingQuery(filter, s.clock.Now(), from, size)
	if err != nil {
		return nil, err
	}

	var bookings []*models.Booking
	switch role {
	case domain.RoleOwner:
		itemIDs, err := s.items.ItemIDsOwnedBy(ctx, subjectID)
		if err != nil {
			return nil, err
		}
		bookings, err = s.bookings.BookingsByItems(ctx, itemIDs, query)
		if err != nil {
			return nil, err
		}
	default:
		bookings, err = s.bookings.BookingsByBooker(ctx, subjectID, query)
		if err != nil {
			return nil, err
		}
	}

	views := make([]*models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		view, err := s.toView(ctx, b)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *BookingService) toView(ctx context.Context, booking *models.Booking) (*models.BookingView, error) {
	booker, err := s.users.GetUser(ctx, booking.BookerID)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetItem(ctx, booking.ItemID)
	if err != nil {
		return nil, err
	}
	return &models.BookingView{
		ID:     booking.ID,
		Start:  booking.Start,
		End:    booking.End,
		Status: booking.Status,
		Booker: *booker,
		Item:   *item,
	}, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		BookerID:  booking.BookerID,
		ItemID:    booking.ItemID,
		Status:    string(booking.Status),
		Start:     booking.Start,
		End:       booking.End,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
