package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/middleware"
	"github.com/perpusda/sipus/pkg/apperror"
)

const tokenTTL = 24 * time.Hour

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string     `json:"token"`
	Username string     `json:"username"`
	Role     string     `json:"role"`
	RoomID   *uuid.UUID `json:"room_id,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type UserResponse struct {
	ID       uuid.UUID  `json:"id"`
	Username string     `json:"username"`
	Role     string     `json:"role"`
	RoomID   *uuid.UUID `json:"room_id,omitempty"`
}

type UserService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error
	ListUsers(ctx context.Context) ([]UserResponse, error)
}

type userService struct {
	db     *gorm.DB
	secret string
}

func NewUserService(db *gorm.DB, secret string) UserService {
	return &userService{db: db, secret: secret}
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var user entity.User
	err := s.db.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(401, "username atau password salah", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperror.New(401, "username atau password salah", apperror.ErrUnauthorized)
	}

	roomID, err := s.roomFor(ctx, &user)
	if err != nil {
		return nil, err
	}

	claims := middleware.Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}
	if roomID != nil {
		claims.RoomID = roomID.String()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token:    token,
		Username: user.Username,
		Role:     user.Role,
		RoomID:   roomID,
	}, nil
}

// roomFor resolves the room a room admin manages; super admins carry none.
func (s *userService) roomFor(ctx context.Context, user *entity.User) (*uuid.UUID, error) {
	if user.Role != entity.RoleRoomAdmin {
		return nil, nil
	}

	var room entity.Room
	err := s.db.WithContext(ctx).Where("admin_user_id = ?", user.ID).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room.ID, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	var user entity.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)) != nil {
		return apperror.New(401, "password lama salah", apperror.ErrUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Model(&user).
		Update("password_hash", string(hash)).Error
}

func (s *userService) ListUsers(ctx context.Context) ([]UserResponse, error) {
	var users []entity.User
	if err := s.db.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		roomID, err := s.roomFor(ctx, &users[i])
		if err != nil {
			return nil, err
		}
		responses = append(responses, UserResponse{
			ID:       users[i].ID,
			Username: users[i].Username,
			Role:     users[i].Role,
			RoomID:   roomID,
		})
	}
	return responses, nil
}
