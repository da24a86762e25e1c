package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/charlene/kitchen-api/internal/apperr"
	"github.com/charlene/kitchen-api/internal/dto"
	"github.com/charlene/kitchen-api/internal/model"
	"github.com/charlene/kitchen-api/internal/repository"
)

const bcryptCost = 12

type AuthService struct {
	userRepo  repository.UserRepository
	notifier  Notifier
	jwtSecret []byte
	jwtExpiry time.Duration
}

func NewAuthService(userRepo repository.UserRepository, notifier Notifier, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		notifier:  notifier,
		jwtSecret: []byte(jwtSecret),
		jwtExpiry: jwtExpiry,
	}
}

func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	user := &model.User{
		Name:     req.Name,
		Email:    model.NormalizeEmail(req.Email),
		Role:     model.RoleCustomer,
		Phone:    req.Phone,
		Address:  req.Address,
		IsActive: true,
	}
	msgs := user.Validate()
	msgs = append(msgs, model.ValidatePassword(req.Password)...)
	if len(msgs) > 0 {
		return nil, apperr.Validation(msgs...)
	}

	existing, err := s.userRepo.GetByEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("a user with this email")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hashed)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if err == repository.ErrDuplicateKey {
			return nil, apperr.Conflict("a user with this email")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.notify(ctx, model.NotificationMessage{
		Kind:   model.NotificationWelcome,
		UserID: user.ID,
	})

	token, err := s.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, User: user}, nil
}

// Login deliberately reports the same error for an unknown email and a
// wrong password, so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperr.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperr.ErrAccountDisabled
	}

	user.LastLogin = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}

	token, err := s.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, User: user}, nil
}

func (s *AuthService) GetUser(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperr.ErrNotFound
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, id primitive.ObjectID, req dto.UpdateProfileRequest) (*model.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Address != nil {
		if req.Address.Street != "" {
			user.Address.Street = req.Address.Street
		}
		if req.Address.City != "" {
			user.Address.City = req.Address.City
		}
		if req.Address.ZipCode != "" {
			user.Address.ZipCode = req.Address.ZipCode
		}
	}

	if msgs := user.Validate(); len(msgs) > 0 {
		return nil, apperr.Validation(msgs...)
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, id primitive.ObjectID, current, next string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return apperr.ErrInvalidCredentials
	}
	if msgs := model.ValidatePassword(next); len(msgs) > 0 {
		return apperr.Validation(msgs...)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.Password = string(hashed)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SetAvatar stores the new avatar reference and returns the public id of
// the replaced image, if any, so the caller can delete it.
func (s *AuthService) SetAvatar(ctx context.Context, id primitive.ObjectID, url, publicID string) (previousID string, err error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	previousID = user.AvatarID
	user.Avatar = url
	user.AvatarID = publicID
	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", fmt.Errorf("update avatar: %w", err)
	}
	return previousID, nil
}

func (s *AuthService) GenerateToken(userID primitive.ObjectID) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID.Hex(),
		"exp": time.Now().Add(s.jwtExpiry).Unix(),
		"iat": time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *AuthService) notify(ctx context.Context, msg model.NotificationMessage) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, msg)
	}
}
