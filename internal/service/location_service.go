package service

import (
	"context"
	"errors"

	"weather_favorites/internal/models"
	"weather_favorites/internal/repository"
)

type LocationService struct {
	repo        repository.Locations
	requireAuth bool
}

func NewLocationService(repo repository.Locations, requireAuth bool) *LocationService {
	return &LocationService{repo: repo, requireAuth: requireAuth}
}

// authorize checks that the caller may act on userID's favorites.
func (s *LocationService) authorize(ctx context.Context, userID int) error {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		if s.requireAuth {
			return authError("Authentication required")
		}
		return nil
	}
	if p.ID != userID {
		return forbiddenError("Cannot access another user's locations")
	}
	return nil
}

func (s *LocationService) List(ctx context.Context, userID int) ([]models.Location, error) {
	if userID <= 0 {
		return nil, validationError(errors.New("userId must be a positive integer"))
	}
	if err := s.authorize(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID)
}

// Save stores a favorite. A missing userId defaults to the caller and is
// required otherwise; saving the same coordinates twice returns the first row
// with created=false.
func (s *LocationService) Save(ctx context.Context, in models.CreateLocationInput) (models.Location, bool, error) {
	if in.UserID == nil {
		if p, ok := PrincipalFromContext(ctx); ok {
			id := p.ID
			in.UserID = &id
		}
	}
	if err := models.Validate(in); err != nil {
		return models.Location{}, false, validationError(err)
	}
	switch {
	case in.UserID != nil:
		if err := s.authorize(ctx, *in.UserID); err != nil {
			return models.Location{}, false, err
		}
	case s.requireAuth:
		return models.Location{}, false, authError("Authentication required")
	default:
		// rows without an owner can never be deleted
		return models.Location{}, false, validationError(errors.New("userId is required"))
	}

	return s.repo.Create(ctx, in.Location())
}

func (s *LocationService) Delete(ctx context.Context, id, userID int) (bool, error) {
	if id <= 0 || userID <= 0 {
		return false, validationError(errors.New("id and userId must be positive integers"))
	}
	if err := s.authorize(ctx, userID); err != nil {
		return false, err
	}
	return s.repo.Delete(ctx, id, userID)
}
