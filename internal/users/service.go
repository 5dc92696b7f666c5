package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"resume-insights/internal/shared/telemetry"
)

// RegisterInput is the payload for password sign-up.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=150,alphanum"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type Service struct {
	Repo     Repo
	Hasher   Hasher
	validate *validator.Validate
}

func NewService(repo Repo, hasher Hasher) *Service {
	return &Service{Repo: repo, Hasher: hasher, validate: validator.New()}
}

// Register validates the input, hashes the password and stores a new user.
// Validation failures wrap ErrInvalidInput and keep the validator errors.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validator().Struct(in); err != nil {
		return User{}, errors.Join(ErrInvalidInput, err)
	}
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return User{}, err
	}
	user := User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		AuthProvider: ProviderPassword,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	telemetry.Info("users.registered", map[string]any{"user_id": user.ID})
	return user, nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	user, err := s.Repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("load user: %w", err)
	}
	if !s.Hasher.Verify(password, user.PasswordHash) {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UpsertFromAuth records an identity returned by an OAuth provider.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) error {
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("%w: user id and email are required", ErrInvalidInput)
	}
	if user.AuthProvider == "" {
		user.AuthProvider = ProviderGoogle
	}
	return s.Repo.Upsert(ctx, user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID)
}

func (s *Service) validator() *validator.Validate {
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s.validate
}
