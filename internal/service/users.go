package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rsvp/internal/apperrors"
	"rsvp/internal/logger"
	"rsvp/internal/models"
	"rsvp/internal/repository"
)

// UserService handles user CRUD. Deleting a user first cancels every live
// registration through the engine so waitlist promotions still fire; the row
// cascade only mops up what is already cancelled.
type UserService struct {
	repo          *repository.UserRepository
	registrations *RegistrationService
}

// NewUserService creates a new user service.
func NewUserService(repo *repository.UserRepository, registrations *RegistrationService) *UserService {
	return &UserService{repo: repo, registrations: registrations}
}

// Create stores a new user. A UUID user_id is generated when the request does
// not carry one.
func (s *UserService) Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	u := &models.User{
		UserID: req.UserID,
		Name:   req.Name,
	}
	if u.UserID == "" {
		u.UserID = uuid.New().String()
	}

	created, err := s.repo.Create(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	logger.Get().Info("User created", "user_id", created.UserID)
	return created, nil
}

// Get returns the user or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return u, nil
}

// Update changes the user's name.
func (s *UserService) Update(ctx context.Context, userID string, req *models.UpdateUserRequest) (*models.User, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := current.Name
	if req.Name != nil {
		name = *req.Name
	}

	updated, err := s.repo.Update(ctx, userID, name)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if updated == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return updated, nil
}

// Delete cancels the user's live registrations one by one, promoting
// waitlisted users where slots free up, then removes the user row.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	regs, err := s.registrations.UserRegistrations(ctx, userID)
	if err != nil {
		return err
	}

	for _, reg := range regs {
		if _, err := s.registrations.Cancel(ctx, reg.EventID, userID); err != nil {
			return fmt.Errorf("cancel registration for event %s: %w", reg.EventID, err)
		}
	}

	deleted, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !deleted {
		return apperrors.ErrUserNotFound
	}

	logger.Get().Info("User deleted", "user_id", userID, "cancelled_registrations", len(regs))
	return nil
}

// List returns users ordered by creation time.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
