package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mealbox/mealbox/internal/models"
	"github.com/mealbox/mealbox/internal/repository"
	"github.com/mealbox/mealbox/pkg/logger"
)

var (
	// ErrMissingSubject is returned when a profile carries no subject id.
	ErrMissingSubject = errors.New("profile has no subject id")
	ErrNotRestaurant  = errors.New("user is not a restaurant")
	ErrInvalidSetup   = errors.New("restaurant name is required")
)

// Service encapsulates user-related business logic
type Service struct {
	repo repository.Repository[*models.User]
}

func NewService(r repository.Repository[*models.User]) *Service {
	return &Service{repo: r}
}

// Upsert returns the application user for the profile's subject, creating it
// on first sight. Stored values win over the profile; the profile only fills
// fields the stored record lacks, and only in the returned copy. Fields the
// profile knows nothing about (restaurantName, setupCompleted) are never
// touched.
func (s *Service) Upsert(ctx context.Context, p *models.Profile, source models.LoginSource) (*models.User, error) {
	if p == nil || p.Sub == "" {
		return nil, ErrMissingSubject
	}
	existing, err := s.repo.Get(ctx, p.Sub)
	switch {
	case err == nil:
		return merge(existing, p), nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("lookup user %s: %w", p.Sub, err)
	}

	u := newUser(p, source)
	if _, err := s.repo.Create(ctx, u); err != nil {
		if !errors.Is(err, repository.ErrAlreadyExists) {
			return nil, fmt.Errorf("create user %s: %w", p.Sub, err)
		}
		// another login created the record between lookup and insert
		existing, err := s.repo.Get(ctx, p.Sub)
		if err != nil {
			return nil, fmt.Errorf("reload user %s: %w", p.Sub, err)
		}
		return merge(existing, p), nil
	}
	logger.Infof("created %s user %s", u.UserType, u.UID)
	return u.Clone(), nil
}

// DefaultUserType picks the role of a first-time user from where the login
// started: web logins onboard restaurants, everything else is a customer.
func DefaultUserType(source models.LoginSource) models.UserType {
	if source == models.SourceWeb {
		return models.UserTypeRestaurant
	}
	return models.UserTypeCustomer
}

func newUser(p *models.Profile, source models.LoginSource) *models.User {
	u := &models.User{
		UID:      p.Sub,
		Name:     p.Name,
		Email:    p.Email,
		UserType: DefaultUserType(source),
	}
	if p.Picture != "" {
		pic := p.Picture
		u.PhotoURL = &pic
	}
	if u.UserType == models.UserTypeRestaurant {
		done := false
		u.SetupCompleted = &done
	}
	return u
}

func merge(stored *models.User, p *models.Profile) *models.User {
	u := stored.Clone()
	if u.Name == "" {
		u.Name = p.Name
	}
	if u.Email == "" {
		u.Email = p.Email
	}
	if u.PhotoURL == nil && p.Picture != "" {
		pic := p.Picture
		u.PhotoURL = &pic
	}
	if u.UserType == "" {
		u.UserType = models.UserTypeCustomer
	}
	return u
}

// CompleteSetup finishes restaurant onboarding for uid: the restaurant name is
// recorded and setupCompleted set. Calling it again renames the restaurant.
func (s *Service) CompleteSetup(ctx context.Context, uid, restaurantName string) (*models.User, error) {
	name := strings.TrimSpace(restaurantName)
	if name == "" {
		return nil, ErrInvalidSetup
	}
	u, err := s.repo.Get(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", uid, err)
	}
	if u.UserType != models.UserTypeRestaurant {
		return nil, ErrNotRestaurant
	}
	u = u.Clone()
	done := true
	u.RestaurantName = &name
	u.SetupCompleted = &done
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("complete setup for %s: %w", uid, err)
	}
	logger.Infof("restaurant setup completed for %s", uid)
	return u.Clone(), nil
}
