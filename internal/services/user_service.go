package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/curalink/backend/internal/models"
	"github.com/curalink/backend/internal/storage"
)

type UserService struct {
	users storage.UserStore
	log   *zap.Logger
	now   func() time.Time
}

func NewUserService(users storage.UserStore, log *zap.Logger) *UserService {
	return &UserService{
		users: users,
		log:   log.Named("users"),
		now:   time.Now,
	}
}

func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	interests := req.MedicalInterests
	if interests == nil {
		interests = []string{}
	}

	user := &models.User{
		ID:               uuid.New().String(),
		Username:         req.Username,
		Email:            models.NormalizeEmail(req.Email),
		PasswordHash:     string(hashedPassword),
		Role:             req.Role,
		MedicalInterests: interests,
		CreatedAt:        s.now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	user, err := s.users.FindUserByEmail(ctx, models.NormalizeEmail(req.Email), req.Role)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}

func (s *UserService) UpdateInterests(ctx context.Context, req *models.UpdateInterestsRequest) (*models.User, error) {
	if req.UserID == "" {
		return nil, invalidField("userId", "User is required")
	}
	interests := req.MedicalInterests
	if interests == nil {
		interests = []string{}
	}

	user, err := s.users.SetMedicalInterests(ctx, req.UserID, interests)
	if err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}
