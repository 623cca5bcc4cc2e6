package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perpusda/sipus/internal/entity"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, room *entity.Room) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Room, error)
	List(ctx context.Context, search string, offset, limit int) ([]entity.Room, int64, error)
	Save(ctx context.Context, room *entity.Room) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountBooks(ctx context.Context, roomID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, room *entity.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Room, error) {
	var room entity.Room
	err := r.db.WithContext(ctx).
		Preload("AdminUser").
		Where("id = ?", id).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) List(ctx context.Context, search string, offset, limit int) ([]entity.Room, int64, error) {
	q := r.db.WithContext(ctx).Model(&entity.Room{})
	if search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []entity.Room
	err := q.Preload("AdminUser").
		Order("name ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) Save(ctx context.Context, room *entity.Room) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Room{}, "id = ?", id).Error
}

func (r *repository) CountBooks(ctx context.Context, roomID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Book{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}
