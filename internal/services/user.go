package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/AYM1104/story-book-app-backend-2/internal/logger"
	"github.com/AYM1104/story-book-app-backend-2/internal/repos"
	"github.com/AYM1104/story-book-app-backend-2/internal/types"
)

type UserService interface {
	CreateUser(ctx context.Context, userName, email string) (*types.User, error)
	GetUser(ctx context.Context, userID int64) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		db:       db,
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (s *userService) CreateUser(ctx context.Context, userName, email string) (*types.User, error) {
	userName = strings.TrimSpace(userName)
	email = strings.TrimSpace(email)
	if userName == "" {
		return nil, fmt.Errorf("%w: user_name is required", ErrValidation)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}

	var created *types.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		exists, err := s.userRepo.EmailExists(ctx, tx, email)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: email %q is already registered", ErrValidation, email)
		}
		created, err = s.userRepo.Create(ctx, tx, &types.User{UserName: userName, Email: email})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("User created", "user_id", created.ID)
	return created, nil
}

func (s *userService) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return user, nil
}
