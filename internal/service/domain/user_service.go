package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qs-lzh/movie-catalog/internal/model"
	"github.com/qs-lzh/movie-catalog/internal/repository"
	"github.com/qs-lzh/movie-catalog/internal/service"
	"github.com/qs-lzh/movie-catalog/internal/util"
)

type UserService interface {
	Register(ctx context.Context, username, password string) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
}

type userService struct {
	repo     repository.Repository
	hashCost int
}

var _ UserService = (*userService)(nil)

// NewUserService builds the user service; hashCost 0 selects the bcrypt default.
func NewUserService(repo repository.Repository, hashCost int) *userService {
	return &userService{
		repo:     repo,
		hashCost: hashCost,
	}
}

func (s *userService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", service.ErrInvalidInput)
	}

	existing, err := s.repo.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, service.ErrUserExists
	}

	hash, err := util.HashPassword(password, s.hashCost)
	if err != nil {
		return nil, err
	}
	user := model.NewUser(username, hash)
	if err := s.repo.AddUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.repo.GetUser(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, service.ErrInvalidCredentials
	}
	if err := util.CheckPassword(user.Password, password); err != nil {
		if errors.Is(err, util.ErrPasswordMismatch) {
			return nil, service.ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}
