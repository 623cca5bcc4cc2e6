package service

import (
	"context"
	"log"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/modules/catalog/dto"
	"github.com/perpusda/sipus/internal/modules/catalog/query"
	"github.com/perpusda/sipus/internal/scope"
	"github.com/perpusda/sipus/pkg/apperror"
	commonDto "github.com/perpusda/sipus/pkg/dto"
)

// Relocate mass-updates shelf_location over an explicit id set, or over
// "everything matching the current filter minus the excluded ids". The
// filter path re-derives the same predicate as the list, minus pagination.
func (s *catalogService) Relocate(ctx context.Context, sc scope.Scope, req dto.RelocateRequest, rawFilter url.Values) (int64, error) {
	location := strings.TrimSpace(req.NewLocation)
	if location == "" {
		return 0, apperror.New(400, "lokasi rak wajib diisi", apperror.ErrInvalidInput)
	}

	var roomID *uuid.UUID
	if !sc.IsSuperAdmin() {
		if sc.RoomID == nil {
			return 0, apperror.ErrForbidden
		}
		roomID = sc.RoomID
	}

	if !req.AllMatchingFilter {
		if len(req.IDs) == 0 {
			return 0, apperror.New(400, "tidak ada buku yang dipilih", apperror.ErrInvalidInput)
		}
		return s.books.RelocateShelf(ctx, req.IDs, roomID, location)
	}

	f := query.Normalize(rawFilter, query.Options{
		DefaultPageSize: ShelfPageCap,
		MaxPageSize:     ShelfPageCap,
	})
	if roomID != nil {
		f.RoomID = roomID
	}

	ids, err := s.books.FilteredIDs(ctx, f)
	if err != nil {
		return 0, err
	}

	excluded := make(map[uuid.UUID]bool, len(req.ExcludeIDs))
	for _, id := range req.ExcludeIDs {
		excluded[id] = true
	}
	remaining := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !excluded[id] {
			remaining = append(remaining, id)
		}
	}

	return s.books.RelocateShelf(ctx, remaining, roomID, location)
}

// Export resolves the full filtered set (unpaginated) for spreadsheet
// rendering in the delivery layer.
func (s *catalogService) Export(ctx context.Context, sc scope.Scope, raw url.Values) ([]*entity.Book, error) {
	f := query.Normalize(raw, query.Options{
		DefaultPageSize: AdminPageSize,
		MaxPageSize:     AdminPageCap,
	})
	if !sc.IsSuperAdmin() {
		f.RoomID = sc.RoomID
	}

	ids, err := s.books.FilteredIDs(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.books.FindByIDs(ctx, ids, f.OrderClause())
}

// SweepOrphanImages removes stored files no book references anymore.
func (s *catalogService) SweepOrphanImages(ctx context.Context) error {
	referenced, err := s.books.ReferencedImages(ctx)
	if err != nil {
		return err
	}
	refSet := make(map[string]bool, len(referenced))
	for _, name := range referenced {
		refSet[name] = true
	}

	stored, err := s.images.List()
	if err != nil {
		return err
	}

	for _, name := range stored {
		if refSet[name] {
			continue
		}
		if err := s.images.Delete(name); err != nil {
			log.Printf("orphan image cleanup skipped for %s: %v", name, err)
		}
	}
	return nil
}

func newMeta(f query.Filter, total int64) commonDto.PaginationMeta {
	return commonDto.NewPaginationMeta(f.Page, f.PageSize, total)
}
