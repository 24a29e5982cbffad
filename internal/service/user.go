package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"school-resources-backend/internal/domain"
	"school-resources-backend/internal/repository"
)

const minPasswordLength = 8

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) CreateUser(ctx context.Context, actorID string, input CreateUserInput) (*domain.User, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, domain.NewValidationError("role", "only an administrator can create users")
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.DNI = strings.TrimSpace(input.DNI)

	switch {
	case input.Name == "":
		return nil, domain.NewValidationError("name", "name is required")
	case !strings.Contains(input.Email, "@"):
		return nil, domain.NewValidationError("email", "a valid email is required")
	case !domain.ValidDNI(input.DNI):
		return nil, domain.NewValidationError("dni", fmt.Sprintf("DNI must be %d digits", domain.DNILength))
	case !input.Role.Valid():
		return nil, domain.NewValidationError("role", fmt.Sprintf("unknown role %q", input.Role))
	case len(input.Password) < minPasswordLength:
		return nil, domain.NewValidationError("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	existing, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewConflictError("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		DNI:          input.DNI,
		Role:         input.Role,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser lets a user read their own record; administrators can read any.
func (s *userService) GetUser(ctx context.Context, actorID, userID string) (*domain.User, error) {
	if actorID != userID {
		actor, err := s.userRepo.GetByID(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !actor.IsAdmin() {
			return nil, domain.NewValidationError("role", "not allowed to view this user")
		}
	}
	return s.userRepo.GetByID(ctx, userID)
}
