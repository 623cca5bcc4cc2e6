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

	CreateInstitution(ctx context.Context, inst *entity.Institution) error
	FindInstitutionByID(ctx context.Context, id uuid.UUID) (*entity.Institution, error)
	ListInstitutions(ctx context.Context, search string, offset, limit int) ([]entity.Institution, int64, error)
	SaveInstitution(ctx context.Context, inst *entity.Institution) error
	DeleteInstitution(ctx context.Context, id uuid.UUID) error

	FindCopyByID(ctx context.Context, id uuid.UUID) (*entity.BookCopy, error)
	SaveCopy(ctx context.Context, c *entity.BookCopy) error
	AdjustStockAvailable(ctx context.Context, bookID uuid.UUID, delta int) error

	CreateLoan(ctx context.Context, loan *entity.PuskelLoan) error
	FindLoanByID(ctx context.Context, id uuid.UUID) (*entity.PuskelLoan, error)
	ActiveLoanForCopy(ctx context.Context, copyID uuid.UUID) (*entity.PuskelLoan, error)
	SaveLoan(ctx context.Context, loan *entity.PuskelLoan) error
	ListLoans(ctx context.Context, status string, institutionID *uuid.UUID, offset, limit int) ([]entity.PuskelLoan, int64, error)
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

func (r *repository) CreateInstitution(ctx context.Context, inst *entity.Institution) error {
	return r.db.WithContext(ctx).Create(inst).Error
}

func (r *repository) FindInstitutionByID(ctx context.Context, id uuid.UUID) (*entity.Institution, error) {
	var inst entity.Institution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inst).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *repository) ListInstitutions(ctx context.Context, search string, offset, limit int) ([]entity.Institution, int64, error) {
	q := r.db.WithContext(ctx).Model(&entity.Institution{})
	if search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []entity.Institution
	if err := q.Order("name ASC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) SaveInstitution(ctx context.Context, inst *entity.Institution) error {
	return r.db.WithContext(ctx).Save(inst).Error
}

func (r *repository) DeleteInstitution(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.Institution{}, "id = ?", id).Error
}

func (r *repository) FindCopyByID(ctx context.Context, id uuid.UUID) (*entity.BookCopy, error) {
	var c entity.BookCopy
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) SaveCopy(ctx context.Context, c *entity.BookCopy) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *repository) AdjustStockAvailable(ctx context.Context, bookID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&entity.Book{}).
		Where("id = ?", bookID).
		Update("stock_available", gorm.Expr("stock_available + ?", delta)).Error
}

func (r *repository) CreateLoan(ctx context.Context, loan *entity.PuskelLoan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

func (r *repository) FindLoanByID(ctx context.Context, id uuid.UUID) (*entity.PuskelLoan, error) {
	var loan entity.PuskelLoan
	err := r.db.WithContext(ctx).
		Preload("Copy").
		Preload("Institution").
		Where("id = ?", id).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *repository) ActiveLoanForCopy(ctx context.Context, copyID uuid.UUID) (*entity.PuskelLoan, error) {
	var loan entity.PuskelLoan
	err := r.db.WithContext(ctx).
		Where("copy_id = ? AND status = ?", copyID, entity.LoanActive).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *repository) SaveLoan(ctx context.Context, loan *entity.PuskelLoan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

func (r *repository) ListLoans(ctx context.Context, status string, institutionID *uuid.UUID, offset, limit int) ([]entity.PuskelLoan, int64, error) {
	q := r.db.WithContext(ctx).Model(&entity.PuskelLoan{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if institutionID != nil {
		q = q.Where("institution_id = ?", *institutionID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []entity.PuskelLoan
	err := q.Preload("Copy").
		Preload("Institution").
		Order("loan_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
