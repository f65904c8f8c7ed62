package service

import (
	"context"
	"fmt"

	"rentloop/internal/domain"
	"rentloop/internal/models"

	"github.com/rs/zerolog"
)

// RequestService handles item requests: wishes posted by users looking
// for an item, answered by owners listing matching items.
type RequestService struct {
	requests domain.RequestStore
	items    domain.ItemStore
	users    domain.UserStore
	logger   *zerolog.Logger
}

func NewRequestService(requests domain.RequestStore, items domain.ItemStore, users domain.UserStore, logger *zerolog.Logger) *RequestService {
	return &RequestService{
		requests: requests,
		items:    items,
		users:    users,
		logger:   logger,
	}
}

func (s *RequestService) Add(ctx context.Context, userID int64, description string) (*models.ItemRequest, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	request := &models.ItemRequest{RequestorID: userID, Description: description}
	if err := s.requests.CreateRequest(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// OwnRequests returns the user's requests, newest first, each with its
// answering items.
func (s *RequestService) OwnRequests(ctx context.Context, userID int64) ([]*models.ItemRequestView, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	requests, err := s.requests.RequestsByRequestor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, requests)
}

// AllRequests returns requests posted by other users, newest first,
// paginated with the same from/size arithmetic as booking listings.
func (s *RequestService) AllRequests(ctx context.Context, userID int64, from, size int) ([]*models.ItemRequestView, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if from < 0 || size <= 0 {
		return nil, fmt.Errorf("%w: from=%d size=%d", ErrInvalidPageParams, from, size)
	}

	page := from / size
	requests, err := s.requests.RequestsOfOthers(ctx, userID, size, page*size)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, requests)
}

func (s *RequestService) Get(ctx context.Context, requestID, userID int64) (*models.ItemRequestView, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	request, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	views, err := s.toViews(ctx, []*models.ItemRequest{request})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *RequestService) toViews(ctx context.Context, requests []*models.ItemRequest) ([]*models.ItemRequestView, error) {
	views := make([]*models.ItemRequestView, 0, len(requests))
	for _, r := range requests {
		items, err := s.items.ItemsByRequest(ctx, r.ID)
		if err != nil {
			return nil, err
		}

		view := &models.ItemRequestView{ItemRequest: *r, Items: make([]models.Item, 0, len(items))}
		for _, item := range items {
			view.Items = append(view.Items, *item)
		}
		views = append(views, view)
	}
	return views, nil
}
