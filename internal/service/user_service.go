package service

import (
	"context"

	"rentloop/internal/domain"
	"rentloop/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	users  domain.UserStore
	logger *zerolog.Logger
}

func NewUserService(users domain.UserStore, logger *zerolog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func (s *UserService) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetUser(ctx, id)
}

// Update applies the non-nil patch fields.
func (s *UserService) Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.users.DeleteUser(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.users.AllUsers(ctx)
}
