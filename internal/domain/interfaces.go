package domain

import (
	"context"
	"time"

	"rentloop/internal/models"
)

type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatusIfWaiting(ctx context.Context, id int64, status models.BookingStatus) error
	BookingsByBooker(ctx context.Context, bookerID int64, q models.BookingQuery) ([]*models.Booking, error)
	BookingsByItems(ctx context.Context, itemIDs []int64, q models.BookingQuery) ([]*models.Booking, error)
	BookingsForItem(ctx context.Context, itemID int64) ([]*models.Booking, error)
	HasFinishedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error)
}

type ItemStore interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	DeleteItem(ctx context.Context, id int64) error
	ItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error)
	ItemIDsOwnedBy(ctx context.Context, ownerID int64) ([]int64, error)
	SearchItems(ctx context.Context, text string) ([]*models.Item, error)
	ItemsByRequest(ctx context.Context, requestID int64) ([]*models.Item, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	AllUsers(ctx context.Context) ([]*models.User, error)
}

type CommentStore interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	CommentsForItem(ctx context.Context, itemID int64) ([]models.Comment, error)
}

type RequestStore interface {
	CreateRequest(ctx context.Context, request *models.ItemRequest) error
	GetRequest(ctx context.Context, id int64) (*models.ItemRequest, error)
	RequestsByRequestor(ctx context.Context, requestorID int64) ([]*models.ItemRequest, error)
	RequestsOfOthers(ctx context.Context, userID int64, limit, offset int) ([]*models.ItemRequest, error)
}

// Store is the full persistence surface; *database.DB satisfies it.
type Store interface {
	BookingStore
	ItemStore
	UserStore
	CommentStore
	RequestStore
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// RateLimitRepository counts requests per caller within a window.
type RateLimitRepository interface {
	CheckRateLimit(ctx context.Context, callerID int64, limit int, window time.Duration) (bool, error)
}

// ExportQueue hands export tasks to the worker.
type ExportQueue interface {
	EnqueueExport(ctx context.Context, task models.ExportTask) error
}

// Role determines the candidate set of a booking listing: the caller's
// own bookings, or the bookings on items the caller owns.
type Role int

const (
	RoleBooker Role = iota
	RoleOwner
)

type BookingService interface {
	Create(ctx context.Context, candidate *models.Booking, requesterID int64) (*models.BookingView, error)
	Decide(ctx context.Context, bookingID, approverID int64, approved bool) (*models.BookingView, error)
	Get(ctx context.Context, bookingID, requesterID int64) (*models.BookingView, error)
	List(ctx context.Context, subjectID int64, role Role, rawState string, from, size int) ([]*models.BookingView, error)
}

type ItemService interface {
	Create(ctx context.Context, item *models.Item, ownerID int64) (*models.Item, error)
	Update(ctx context.Context, itemID, ownerID int64, patch models.ItemPatch) (*models.Item, error)
	Get(ctx context.Context, itemID, viewerID int64) (*models.ItemDetail, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.ItemDetail, error)
	Delete(ctx context.Context, itemID int64) error
	Search(ctx context.Context, text string) ([]*models.Item, error)
	Annotate(ctx context.Context, itemID, viewerID int64) (last, next *models.BookingRef, err error)
	AddComment(ctx context.Context, userID, itemID int64, text string) (*models.Comment, error)
	CanComment(ctx context.Context, userID, itemID int64) (bool, error)
}

type UserService interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*models.User, error)
}

type RequestService interface {
	Add(ctx context.Context, userID int64, description string) (*models.ItemRequest, error)
	OwnRequests(ctx context.Context, userID int64) ([]*models.ItemRequestView, error)
	AllRequests(ctx context.Context, userID int64, from, size int) ([]*models.ItemRequestView, error)
	Get(ctx context.Context, requestID, userID int64) (*models.ItemRequestView, error)
}
