package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ngocanhtran/product-catalog/internal/apperr"
	"github.com/ngocanhtran/product-catalog/internal/config"
	"github.com/ngocanhtran/product-catalog/internal/model"
	"github.com/ngocanhtran/product-catalog/internal/repository"
	"github.com/ngocanhtran/product-catalog/pkg/validator"
)

type RegisterParams struct {
	Username string `validate:"required,min=3,max=30,username"`
	Password string `validate:"required,min=8,max=128"`
}

type LoginParams struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type AuthService interface {
	// Register creates a new user. The caller is expected to establish a
	// session right away: registration implies login.
	Register(ctx context.Context, params RegisterParams) (model.User, error)

	// Login verifies credentials. A wrong username and a wrong password fail
	// identically.
	Login(ctx context.Context, params LoginParams) (model.User, error)
}

type authService struct {
	cfg       config.Auth
	userRepo  repository.UserRepository
	validator validator.Validator
}

func NewAuthService(
	cfg config.Auth,
	userRepo repository.UserRepository,
	validator validator.Validator,
) AuthService {
	return &authService{
		cfg:       cfg,
		userRepo:  userRepo,
		validator: validator,
	}
}

func (s *authService) Register(ctx context.Context, params RegisterParams) (model.User, error) {
	if err := s.validator.Validate(params); err != nil {
		return model.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.User{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	user := model.User{
		ID:           id,
		Username:     params.Username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, apperr.UsernameTakenErr
		}
		return model.User{}, fmt.Errorf("user repository create user: %w", err)
	}

	return user, nil
}

func (s *authService) Login(ctx context.Context, params LoginParams) (model.User, error) {
	if err := s.validator.Validate(params); err != nil {
		return model.User{}, err
	}

	user, err := s.userRepo.GetUserByUsername(ctx, params.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperr.InvalidCredentialsErr
		}
		return model.User{}, fmt.Errorf("user repository get user by username: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.Password)) != nil {
		return model.User{}, apperr.InvalidCredentialsErr
	}

	return user, nil
}
