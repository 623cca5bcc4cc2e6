package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/modules/catalog/query"
)

type Repository interface {
	// WithTx returns a Repository bound to tx so multi-step mutations share
	// one transaction.
	WithTx(tx *gorm.DB) Repository

	Search(ctx context.Context, f query.Filter) ([]*entity.Book, int64, error)
	FilteredIDs(ctx context.Context, f query.Filter) ([]uuid.UUID, error)
	CopyCountByBookIDs(ctx context.Context, ids []uuid.UUID) (int64, error)

	FindByID(ctx context.Context, id uuid.UUID) (*entity.Book, error)
	FindByTitleFold(ctx context.Context, title string) (*entity.Book, error)
	Create(ctx context.Context, book *entity.Book) error
	Save(ctx context.Context, book *entity.Book) error
	Delete(ctx context.Context, id uuid.UUID) error

	CopiesByNoInduk(ctx context.Context, numbers []string) ([]entity.BookCopy, error)
	CopiesForBook(ctx context.Context, bookID uuid.UUID) ([]entity.BookCopy, error)
	CreateCopies(ctx context.Context, copies []entity.BookCopy) error
	CountCopies(ctx context.Context, bookID uuid.UUID) (int64, error)

	LinkAuthor(ctx context.Context, bookID, authorID uuid.UUID, role string) error
	UnlinkAuthors(ctx context.Context, bookID uuid.UUID) error
	ReplacePublishers(ctx context.Context, book *entity.Book, publishers []entity.Publisher) error
	ReplaceSubjects(ctx context.Context, book *entity.Book, subjects []entity.Subject) error

	FindByIDs(ctx context.Context, ids []uuid.UUID, order string) ([]*entity.Book, error)
	RelocateShelf(ctx context.Context, ids []uuid.UUID, roomID *uuid.UUID, location string) (int64, error)

	ImageRefCount(ctx context.Context, fileName string) (int64, error)
	ReferencedImages(ctx context.Context) ([]string, error)
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

func (r *repository) base(ctx context.Context, f query.Filter) *gorm.DB {
	return query.Apply(r.db.WithContext(ctx).Model(&entity.Book{}), f)
}

// Search counts and fetches one page. The predicate may join to-many
// relations, so the count is over distinct book ids and the page is fetched
// through an id subquery to keep row semantics intact.
func (r *repository) Search(ctx context.Context, f query.Filter) ([]*entity.Book, int64, error) {
	var total int64
	if err := r.base(ctx, f).Distinct("books.id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sub := r.base(ctx, f).Distinct("books.id")

	var books []*entity.Book
	err := r.db.WithContext(ctx).
		Model(&entity.Book{}).
		Where("books.id IN (?)", sub).
		Order(f.OrderClause()).
		Offset(f.Offset()).
		Limit(f.PageSize).
		Preload("Category").
		Preload("Room").
		Preload("Authors.Author").
		Preload("Publishers").
		Preload("Subjects").
		Preload("Copies").
		Find(&books).Error
	if err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

func (r *repository) FilteredIDs(ctx context.Context, f query.Filter) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.base(ctx, f).Distinct().Pluck("books.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CopyCountByBookIDs is the secondary exemplar aggregate. An empty id set is
// zero by definition, no query issued.
func (r *repository) CopyCountByBookIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.BookCopy{}).
		Where("book_id IN ?", ids).
		Count(&count).Error
	return count, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Book, error) {
	var book entity.Book
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Room").
		Preload("Authors.Author").
		Preload("Publishers").
		Preload("Subjects").
		Preload("Copies").
		Where("id = ?", id).
		First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repository) FindByTitleFold(ctx context.Context, title string) (*entity.Book, error) {
	var book entity.Book
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Authors.Author").
		Preload("Publishers").
		Preload("Subjects").
		Preload("Copies").
		Where("LOWER(title) = LOWER(?)", title).
		First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repository) Create(ctx context.Context, book *entity.Book) error {
	// Associations are linked explicitly; autosave would duplicate them.
	return r.db.WithContext(ctx).Omit("Publishers", "Subjects", "Authors", "Copies").Create(book).Error
}

func (r *repository) Save(ctx context.Context, book *entity.Book) error {
	return r.db.WithContext(ctx).Omit("Publishers", "Subjects", "Authors", "Copies").Save(book).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Select("Authors", "Copies").Delete(&entity.Book{ID: id}).Error
}

func (r *repository) CopiesByNoInduk(ctx context.Context, numbers []string) ([]entity.BookCopy, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	var copies []entity.BookCopy
	err := r.db.WithContext(ctx).Where("no_induk IN ?", numbers).Find(&copies).Error
	return copies, err
}

func (r *repository) CopiesForBook(ctx context.Context, bookID uuid.UUID) ([]entity.BookCopy, error) {
	var copies []entity.BookCopy
	err := r.db.WithContext(ctx).Where("book_id = ?", bookID).Find(&copies).Error
	return copies, err
}

func (r *repository) CreateCopies(ctx context.Context, copies []entity.BookCopy) error {
	if len(copies) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&copies).Error
}

func (r *repository) CountCopies(ctx context.Context, bookID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.BookCopy{}).
		Where("book_id = ?", bookID).
		Count(&count).Error
	return count, err
}

// LinkAuthor creates the (book, author, role) link unless an identical one
// already exists. The table has no unique constraint on the triple.
func (r *repository) LinkAuthor(ctx context.Context, bookID, authorID uuid.UUID, role string) error {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.BookAuthor{}).
		Where("book_id = ? AND author_id = ? AND role = ?", bookID, authorID, role).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entity.BookAuthor{
		BookID:   bookID,
		AuthorID: authorID,
		Role:     role,
	}).Error
}

func (r *repository) UnlinkAuthors(ctx context.Context, bookID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Delete(&entity.BookAuthor{}).Error
}

func (r *repository) ReplacePublishers(ctx context.Context, book *entity.Book, publishers []entity.Publisher) error {
	return r.db.WithContext(ctx).Model(book).Association("Publishers").Replace(publishers)
}

func (r *repository) ReplaceSubjects(ctx context.Context, book *entity.Book, subjects []entity.Subject) error {
	return r.db.WithContext(ctx).Model(book).Association("Subjects").Replace(subjects)
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID, order string) ([]*entity.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var books []*entity.Book
	err := r.db.WithContext(ctx).
		Model(&entity.Book{}).
		Where("books.id IN ?", ids).
		Order(order).
		Preload("Category").
		Preload("Room").
		Preload("Authors.Author").
		Preload("Publishers").
		Preload("Subjects").
		Preload("Copies").
		Find(&books).Error
	return books, err
}

func (r *repository) RelocateShelf(ctx context.Context, ids []uuid.UUID, roomID *uuid.UUID, location string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := r.db.WithContext(ctx).
		Model(&entity.Book{}).
		Where("id IN ?", ids)
	if roomID != nil {
		q = q.Where("room_id = ?", *roomID)
	}
	res := q.Update("shelf_location", location)
	return res.RowsAffected, res.Error
}

// ImageRefCount counts books referencing fileName; image files may only be
// removed from disk at zero.
func (r *repository) ImageRefCount(ctx context.Context, fileName string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Book{}).
		Where("image = ?", fileName).
		Count(&count).Error
	return count, err
}

func (r *repository) ReferencedImages(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&entity.Book{}).
		Where("image IS NOT NULL AND image <> ''").
		Distinct().
		Pluck("image", &names).Error
	return names, err
}

// IsNotFound reports whether err is gorm's missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
