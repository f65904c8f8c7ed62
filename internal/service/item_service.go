package service

import (
	"context"
	"strings"
	"time"

	"rentloop/internal/clock"
	"rentloop/internal/domain"
	"rentloop/internal/events"
	"rentloop/internal/models"

	"github.com/rs/zerolog"
)

// ItemService covers item CRUD, search, the owner-only last/next
// booking annotation and comment handling.
type ItemService struct {
	items    domain.ItemStore
	bookings domain.BookingStore
	users    domain.UserStore
	comments domain.CommentStore
	eventBus domain.EventPublisher
	clock    clock.Clock
	logger   *zerolog.Logger
}

func NewItemService(
	items domain.ItemStore,
	bookings domain.BookingStore,
	users domain.UserStore,
	comments domain.CommentStore,
	eventBus domain.EventPublisher,
	clk clock.Clock,
	logger *zerolog.Logger,
) *ItemService {
	if clk == nil {
		clk = clock.System{}
	}
	return &ItemService{
		items:    items,
		bookings: bookings,
		users:    users,
		comments: comments,
		eventBus: eventBus,
		clock:    clk,
		logger:   logger,
	}
}

func (s *ItemService) Create(ctx context.Context, item *models.Item, ownerID int64) (*models.Item, error) {
	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}

	item.OwnerID = ownerID
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Update applies the non-nil patch fields. Only the owner may update.
func (s *ItemService) Update(ctx context.Context, itemID, ownerID int64, patch models.ItemPatch) (*models.Item, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, ErrAccessDenied
	}

	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Available != nil {
		item.Available = *patch.Available
	}

	if err := s.items.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Get returns the item detail: comments for everyone, last/next
// approved booking refs only when the viewer owns the item.
func (s *ItemService) Get(ctx context.Context, itemID, viewerID int64) (*models.ItemDetail, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.CommentsForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	detail := &models.ItemDetail{Item: *item, Comments: comments}

	bookings, err := s.bookings.BookingsForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	detail.LastBooking, detail.NextBooking = annotateLastNext(item, bookings, viewerID, s.clock.Now())

	return detail, nil
}

// ListByOwner returns the owner's items, each annotated.
func (s *ItemService) ListByOwner(ctx context.Context, ownerID int64) ([]*models.ItemDetail, error) {
	items, err := s.items.ItemsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	details := make([]*models.ItemDetail, 0, len(items))
	for _, item := range items {
		bookings, err := s.bookings.BookingsForItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		comments, err := s.comments.CommentsForItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if comments == nil {
			comments = []models.Comment{}
		}

		detail := &models.ItemDetail{Item: *item, Comments: comments}
		detail.LastBooking, detail.NextBooking = annotateLastNext(item, bookings, ownerID, now)
		details = append(details, detail)
	}
	return details, nil
}

func (s *ItemService) Delete(ctx context.Context, itemID int64) error {
	return s.items.DeleteItem(ctx, itemID)
}

// Search returns available items matching the text; a blank query
// yields an empty result rather than an error.
func (s *ItemService) Search(ctx context.Context, text string) ([]*models.Item, error) {
	return s.items.SearchItems(ctx, text)
}

// Annotate computes the item's last and next approved booking refs for
// the viewer. Non-owners get both absent; that is not an error.
func (s *ItemService) Annotate(ctx context.Context, itemID, viewerID int64) (*models.BookingRef, *models.BookingRef, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}

	bookings, err := s.bookings.BookingsForItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}

	last, next := annotateLastNext(item, bookings, viewerID, s.clock.Now())
	return last, next, nil
}

// annotateLastNext derives the owner-only booking annotation:
// last = approved booking started before now with the maximum end,
// next = approved booking starting after now with the minimum start.
func annotateLastNext(item *models.Item, bookings []*models.Booking, viewerID int64, now time.Time) (last, next *models.BookingRef) {
	if item.OwnerID != viewerID {
		return nil, nil
	}

	var lastBooking, nextBooking *models.Booking
	for _, b := range bookings {
		if b.Status != models.StatusApproved {
			continue
		}
		if b.Start.Before(now) {
			if lastBooking == nil || b.End.After(lastBooking.End) {
				lastBooking = b
			}
		}
		if b.Start.After(now) {
			if nextBooking == nil || b.Start.Before(nextBooking.Start) {
				nextBooking = b
			}
		}
	}

	if lastBooking != nil {
		last = &models.BookingRef{BookingID: lastBooking.ID, BookerID: lastBooking.BookerID}
	}
	if nextBooking != nil {
		next = &models.BookingRef{BookingID: nextBooking.ID, BookerID: nextBooking.BookerID}
	}
	return last, next
}

// AddComment lets a user comment on an item after one of their
// bookings of it has concluded. The empty-body check runs before the
// eligibility check.
func (s *ItemService) AddComment(ctx context.Context, userID, itemID int64, text string) (*models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyComment
	}

	author, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.items.GetItem(ctx, itemID); err != nil {
		return nil, err
	}

	allowed, err := s.CanComment(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrCommentNotAllowed
	}

	comment := &models.Comment{
		ItemID:     itemID,
		AuthorID:   userID,
		AuthorName: author.Name,
		Text:       text,
		Created:    s.clock.Now(),
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		if err := s.eventBus.PublishJSON(events.EventCommentAdded, comment); err != nil {
			s.logger.Error().Err(err).Int64("item_id", itemID).Msg("publish event error")
		}
	}

	return comment, nil
}

// CanComment reports whether the user has a finished booking of the
// item; status is irrelevant, any concluded booking suffices.
func (s *ItemService) CanComment(ctx context.Context, userID, itemID int64) (bool, error) {
	return s.bookings.HasFinishedBooking(ctx, userID, itemID, s.clock.Now())
}
