package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/modules/puskel/dto"
	"github.com/perpusda/sipus/internal/modules/puskel/repository"
	"github.com/perpusda/sipus/pkg/apperror"
)

type PuskelService interface {
	CreateInstitution(ctx context.Context, req dto.InstitutionRequest) (*entity.Institution, error)
	ListInstitutions(ctx context.Context, search string, offset, limit int) ([]entity.Institution, int64, error)
	UpdateInstitution(ctx context.Context, id uuid.UUID, req dto.InstitutionRequest) (*entity.Institution, error)
	DeleteInstitution(ctx context.Context, id uuid.UUID) error

	Lend(ctx context.Context, req dto.LendRequest) ([]dto.LoanResponse, error)
	Return(ctx context.Context, loanID uuid.UUID) (*dto.LoanResponse, error)
	ListLoans(ctx context.Context, status string, institutionID *uuid.UUID, offset, limit int) ([]dto.LoanResponse, int64, error)
}

type puskelService struct {
	db   *gorm.DB
	repo repository.Repository
}

func NewPuskelService(db *gorm.DB, repo repository.Repository) PuskelService {
	return &puskelService{db: db, repo: repo}
}

func (s *puskelService) CreateInstitution(ctx context.Context, req dto.InstitutionRequest) (*entity.Institution, error) {
	inst := &entity.Institution{
		Name:    req.Name,
		Address: optional(req.Address),
		Contact: optional(req.Contact),
	}
	if err := s.repo.CreateInstitution(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *puskelService) ListInstitutions(ctx context.Context, search string, offset, limit int) ([]entity.Institution, int64, error) {
	return s.repo.ListInstitutions(ctx, search, offset, limit)
}

func (s *puskelService) UpdateInstitution(ctx context.Context, id uuid.UUID, req dto.InstitutionRequest) (*entity.Institution, error) {
	inst, err := s.repo.FindInstitutionByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	inst.Name = req.Name
	inst.Address = optional(req.Address)
	inst.Contact = optional(req.Contact)
	if err := s.repo.SaveInstitution(ctx, inst); err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *puskelService) DeleteInstitution(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindInstitutionByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}
	return s.repo.DeleteInstitution(ctx, id)
}

// Lend creates one loan per copy. Copies must be in the mobile-library pool
// and free of active loans; the whole request is one transaction so a bad
// copy rejects the batch.
func (s *puskelService) Lend(ctx context.Context, req dto.LendRequest) ([]dto.LoanResponse, error) {
	inst, err := s.repo.FindInstitutionByID(ctx, req.InstitutionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if !req.DueDate.After(time.Now()) {
		return nil, apperror.New(400, "tanggal jatuh tempo harus di masa depan", apperror.ErrInvalidInput)
	}

	var responses []dto.LoanResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		for _, copyID := range req.CopyIDs {
			cp, err := repo.FindCopyByID(ctx, copyID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperror.New(404, fmt.Sprintf("eksemplar %s tidak ditemukan", copyID), apperror.ErrNotFound)
				}
				return err
			}

			if cp.Status != entity.CopyPuskelAvailable {
				return apperror.New(400,
					fmt.Sprintf("eksemplar %s tidak tersedia untuk pustaka keliling", cp.NoInduk),
					apperror.ErrInvalidInput)
			}

			// Belt and braces: the status check above should already
			// exclude copies with an open loan.
			if _, err := repo.ActiveLoanForCopy(ctx, cp.ID); err == nil {
				return apperror.New(409,
					fmt.Sprintf("eksemplar %s masih dipinjam", cp.NoInduk),
					apperror.ErrConflict)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			loan := &entity.PuskelLoan{
				CopyID:        cp.ID,
				InstitutionID: inst.ID,
				LoanDate:      time.Now(),
				DueDate:       req.DueDate,
				Status:        entity.LoanActive,
			}
			if err := repo.CreateLoan(ctx, loan); err != nil {
				return err
			}

			cp.Status = entity.CopyPuskelLoaned
			if err := repo.SaveCopy(ctx, cp); err != nil {
				return err
			}
			if err := repo.AdjustStockAvailable(ctx, cp.BookID, -1); err != nil {
				return err
			}

			responses = append(responses, dto.LoanResponse{
				ID:          loan.ID,
				NoInduk:     cp.NoInduk,
				Institution: inst.Name,
				LoanDate:    loan.LoanDate,
				DueDate:     loan.DueDate,
				Status:      loan.Status,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return responses, nil
}

func (s *puskelService) Return(ctx context.Context, loanID uuid.UUID) (*dto.LoanResponse, error) {
	loan, err := s.repo.FindLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if loan.Status != entity.LoanActive {
		return nil, apperror.New(400, "peminjaman sudah dikembalikan", apperror.ErrInvalidInput)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		now := time.Now()
		loan.ReturnDate = &now
		loan.Status = entity.LoanReturned
		if err := repo.SaveLoan(ctx, loan); err != nil {
			return err
		}

		cp, err := repo.FindCopyByID(ctx, loan.CopyID)
		if err != nil {
			return err
		}
		cp.Status = entity.CopyPuskelAvailable
		if err := repo.SaveCopy(ctx, cp); err != nil {
			return err
		}
		return repo.AdjustStockAvailable(ctx, cp.BookID, 1)
	})
	if err != nil {
		return nil, err
	}

	resp := loanToResponse(loan)
	return &resp, nil
}

func (s *puskelService) ListLoans(ctx context.Context, status string, institutionID *uuid.UUID, offset, limit int) ([]dto.LoanResponse, int64, error) {
	loans, total, err := s.repo.ListLoans(ctx, status, institutionID, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]dto.LoanResponse, 0, len(loans))
	for i := range loans {
		responses = append(responses, loanToResponse(&loans[i]))
	}
	return responses, total, nil
}

func loanToResponse(loan *entity.PuskelLoan) dto.LoanResponse {
	return dto.LoanResponse{
		ID:          loan.ID,
		NoInduk:     loan.Copy.NoInduk,
		Institution: loan.Institution.Name,
		LoanDate:    loan.LoanDate,
		DueDate:     loan.DueDate,
		ReturnDate:  loan.ReturnDate,
		Status:      loan.Status,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
