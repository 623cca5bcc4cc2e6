package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/modules/room/repository"
	"github.com/perpusda/sipus/pkg/apperror"
)

type CreateRoomRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	AdminUsername string `json:"admin_username" binding:"required,min=3"`
	AdminPassword string `json:"admin_password" binding:"required,min=6"`
}

type UpdateRoomRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type RoomService interface {
	Create(ctx context.Context, req CreateRoomRequest) (*entity.Room, error)
	List(ctx context.Context, search string, offset, limit int) ([]entity.Room, int64, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateRoomRequest) (*entity.Room, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type roomService struct {
	db   *gorm.DB
	repo repository.Repository
}

func NewRoomService(db *gorm.DB, repo repository.Repository) RoomService {
	return &roomService{db: db, repo: repo}
}

// Create makes the room and its admin user in one transaction; a failed
// user insert leaves no half-created room behind.
func (s *roomService) Create(ctx context.Context, req CreateRoomRequest) (*entity.Room, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var room *entity.Room
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin := &entity.User{
			Username:     req.AdminUsername,
			PasswordHash: string(hash),
			Role:         entity.RoleRoomAdmin,
		}
		if err := tx.Create(admin).Error; err != nil {
			return err
		}

		room = &entity.Room{
			Name:        req.Name,
			AdminUserID: admin.ID,
		}
		if req.Description != "" {
			room.Description = &req.Description
		}
		return s.repo.WithTx(tx).Create(ctx, room)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, room.ID)
}

func (s *roomService) List(ctx context.Context, search string, offset, limit int) ([]entity.Room, int64, error) {
	return s.repo.List(ctx, search, offset, limit)
}

func (s *roomService) Update(ctx context.Context, id uuid.UUID, req UpdateRoomRequest) (*entity.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	room.Name = req.Name
	if req.Description != "" {
		room.Description = &req.Description
	}
	if err := s.repo.Save(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Delete refuses while books still live in the room.
func (s *roomService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}

	count, err := s.repo.CountBooks(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperror.New(400, "ruangan masih memiliki buku", apperror.ErrInvalidInput)
	}

	return s.repo.Delete(ctx, id)
}
