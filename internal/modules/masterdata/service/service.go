package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/perpusda/sipus/internal/modules/masterdata/repository"
	"github.com/perpusda/sipus/pkg/apperror"
)

// Kind selects which master data table an operation targets.
type Kind string

const (
	KindCategory  Kind = "categories"
	KindAuthor    Kind = "authors"
	KindPublisher Kind = "publishers"
	KindSubject   Kind = "subjects"
)

type Entry struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type MasterdataService interface {
	List(ctx context.Context, kind Kind, search string, offset, limit int) ([]Entry, int64, error)
	Create(ctx context.Context, kind Kind, name string) (*Entry, error)
	Delete(ctx context.Context, kind Kind, id uuid.UUID) error
}

type masterdataService struct {
	repo repository.Repository
}

func NewMasterdataService(repo repository.Repository) MasterdataService {
	return &masterdataService{repo: repo}
}

func (s *masterdataService) List(ctx context.Context, kind Kind, search string, offset, limit int) ([]Entry, int64, error) {
	switch kind {
	case KindCategory:
		rows, total, err := s.repo.ListCategories(ctx, search, offset, limit)
		if err != nil {
			return nil, 0, err
		}
		entries := make([]Entry, 0, len(rows))
		for _, r := range rows {
			entries = append(entries, Entry{ID: r.ID, Name: r.Name})
		}
		return entries, total, nil
	case KindAuthor:
		rows, total, err := s.repo.ListAuthors(ctx, search, offset, limit)
		if err != nil {
			return nil, 0, err
		}
		entries := make([]Entry, 0, len(rows))
		for _, r := range rows {
			entries = append(entries, Entry{ID: r.ID, Name: r.Name})
		}
		return entries, total, nil
	case KindPublisher:
		rows, total, err := s.repo.ListPublishers(ctx, search, offset, limit)
		if err != nil {
			return nil, 0, err
		}
		entries := make([]Entry, 0, len(rows))
		for _, r := range rows {
			entries = append(entries, Entry{ID: r.ID, Name: r.Name})
		}
		return entries, total, nil
	case KindSubject:
		rows, total, err := s.repo.ListSubjects(ctx, search, offset, limit)
		if err != nil {
			return nil, 0, err
		}
		entries := make([]Entry, 0, len(rows))
		for _, r := range rows {
			entries = append(entries, Entry{ID: r.ID, Name: r.Name})
		}
		return entries, total, nil
	}
	return nil, 0, apperror.ErrInvalidInput
}

// Create reuses the same find-or-create path the catalog takes, so posting
// an existing name returns the existing row instead of erroring.
func (s *masterdataService) Create(ctx context.Context, kind Kind, name string) (*Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.New(400, "nama wajib diisi", apperror.ErrInvalidInput)
	}

	switch kind {
	case KindCategory:
		cat, err := s.repo.FindOrCreateCategory(ctx, name)
		if err != nil {
			return nil, err
		}
		return &Entry{ID: cat.ID, Name: cat.Name}, nil
	case KindAuthor:
		a, err := s.repo.FindOrCreateAuthor(ctx, name)
		if err != nil {
			return nil, err
		}
		return &Entry{ID: a.ID, Name: a.Name}, nil
	case KindPublisher:
		p, err := s.repo.FindOrCreatePublisher(ctx, name)
		if err != nil {
			return nil, err
		}
		return &Entry{ID: p.ID, Name: p.Name}, nil
	case KindSubject:
		sub, err := s.repo.FindOrCreateSubject(ctx, name)
		if err != nil {
			return nil, err
		}
		return &Entry{ID: sub.ID, Name: sub.Name}, nil
	}
	return nil, apperror.ErrInvalidInput
}

func (s *masterdataService) Delete(ctx context.Context, kind Kind, id uuid.UUID) error {
	switch kind {
	case KindCategory:
		return s.repo.DeleteCategory(ctx, id)
	case KindAuthor:
		return s.repo.DeleteAuthor(ctx, id)
	case KindPublisher:
		return s.repo.DeletePublisher(ctx, id)
	case KindSubject:
		return s.repo.DeleteSubject(ctx, id)
	}
	return apperror.ErrInvalidInput
}
