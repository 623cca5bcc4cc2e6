package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perpusda/sipus/internal/entity"
)

// Repository handles the name-keyed master data: categories, authors,
// publishers, subjects. FindOrCreate* are idempotent upserts on the trimmed
// name, backed by the unique index on name.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindOrCreateCategory(ctx context.Context, name string) (*entity.Category, error)
	FindOrCreateAuthor(ctx context.Context, name string) (*entity.Author, error)
	FindOrCreatePublisher(ctx context.Context, name string) (*entity.Publisher, error)
	FindOrCreateSubject(ctx context.Context, name string) (*entity.Subject, error)

	ListCategories(ctx context.Context, search string, offset, limit int) ([]entity.Category, int64, error)
	ListAuthors(ctx context.Context, search string, offset, limit int) ([]entity.Author, int64, error)
	ListPublishers(ctx context.Context, search string, offset, limit int) ([]entity.Publisher, int64, error)
	ListSubjects(ctx context.Context, search string, offset, limit int) ([]entity.Subject, int64, error)

	FindCategoryByID(ctx context.Context, id uuid.UUID) (*entity.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	DeleteAuthor(ctx context.Context, id uuid.UUID) error
	DeletePublisher(ctx context.Context, id uuid.UUID) error
	DeleteSubject(ctx context.Context, id uuid.UUID) error
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

// findOrCreate looks dest up by case-insensitive name and inserts it when
// absent. A concurrent insert losing the race hits the unique index and is
// resolved with one more lookup.
func (r *repository) findOrCreate(ctx context.Context, model interface{}, name string, create func(string) interface{}) error {
	name = strings.TrimSpace(name)

	lookup := func() error {
		return r.db.WithContext(ctx).
			Where("LOWER(name) = LOWER(?)", name).
			First(model).Error
	}

	err := lookup()
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := r.db.WithContext(ctx).Create(create(name)).Error; err != nil {
		if lookupErr := lookup(); lookupErr == nil {
			return nil
		}
		return err
	}
	return lookup()
}

func (r *repository) FindOrCreateCategory(ctx context.Context, name string) (*entity.Category, error) {
	var cat entity.Category
	err := r.findOrCreate(ctx, &cat, name, func(n string) interface{} {
		return &entity.Category{Name: n}
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *repository) FindOrCreateAuthor(ctx context.Context, name string) (*entity.Author, error) {
	var author entity.Author
	err := r.findOrCreate(ctx, &author, name, func(n string) interface{} {
		return &entity.Author{Name: n}
	})
	if err != nil {
		return nil, err
	}
	return &author, nil
}

func (r *repository) FindOrCreatePublisher(ctx context.Context, name string) (*entity.Publisher, error) {
	var pub entity.Publisher
	err := r.findOrCreate(ctx, &pub, name, func(n string) interface{} {
		return &entity.Publisher{Name: n}
	})
	if err != nil {
		return nil, err
	}
	return &pub, nil
}

func (r *repository) FindOrCreateSubject(ctx context.Context, name string) (*entity.Subject, error) {
	var sub entity.Subject
	err := r.findOrCreate(ctx, &sub, name, func(n string) interface{} {
		return &entity.Subject{Name: n}
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) list(ctx context.Context, model interface{}, dest interface{}, search string, offset, limit int) (int64, error) {
	q := r.db.WithContext(ctx).Model(model)
	if search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, err
	}
	if err := q.Order("name ASC").Offset(offset).Limit(limit).Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) ListCategories(ctx context.Context, search string, offset, limit int) ([]entity.Category, int64, error) {
	var rows []entity.Category
	total, err := r.list(ctx, &entity.Category{}, &rows, search, offset, limit)
	return rows, total, err
}

func (r *repository) ListAuthors(ctx context.Context, search string, offset, limit int) ([]entity.Author, int64, error) {
	var rows []entity.Author
	total, err := r.list(ctx, &entity.Author{}, &rows, search, offset, limit)
	return rows, total, err
}

func (r *repository) ListPublishers(ctx context.Context, search string, offset, limit int) ([]entity.Publisher, int64, error) {
	var rows []entity.Publisher
	total, err := r.list(ctx, &entity.Publisher{}, &rows, search, offset, limit)
	return rows, total, err
}

func (r *repository) ListSubjects(ctx context.Context, search string, offset, limit int) ([]entity.Subject, int64, error) {
	var rows []entity.Subject
	total, err := r.list(ctx, &entity.Subject{}, &rows, search, offset, limit)
	return rows, total, err
}

func (r *repository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	var cat entity.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cat).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Category{}, "id = ?", id).Error
}

func (r *repository) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Author{}, "id = ?", id).Error
}

func (r *repository) DeletePublisher(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Publisher{}, "id = ?", id).Error
}

func (r *repository) DeleteSubject(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Subject{}, "id = ?", id).Error
}
