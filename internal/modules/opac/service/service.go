package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	catalogDto "github.com/perpusda/sipus/internal/modules/catalog/dto"
	"github.com/perpusda/sipus/internal/modules/catalog/query"
	"github.com/perpusda/sipus/internal/modules/catalog/repository"
	"github.com/perpusda/sipus/internal/search"
	"github.com/perpusda/sipus/pkg/apperror"
	commonDto "github.com/perpusda/sipus/pkg/dto"
)

// OPAC paging: 12 per page by default, capped at 100.
const (
	opacPageSize = 12
	opacPageCap  = 100
	suggestLimit = 8
)

type OpacService interface {
	Search(ctx context.Context, clientKey string, raw url.Values) (*catalogDto.BookListResponse, error)
	Detail(ctx context.Context, id uuid.UUID) (*catalogDto.BookResponse, error)
	Suggest(ctx context.Context, q string) ([]search.Suggestion, error)
}

type opacService struct {
	books     repository.Repository
	indexer   search.Indexer
	rdb       *redis.Client
	rateLimit time.Duration
}

func NewOpacService(books repository.Repository, indexer search.Indexer, rdb *redis.Client, rateLimit time.Duration) OpacService {
	return &opacService{
		books:     books,
		indexer:   indexer,
		rdb:       rdb,
		rateLimit: rateLimit,
	}
}

// Search runs the public faceted search. Text matching is in token mode so
// word order never matters.
func (s *opacService) Search(ctx context.Context, clientKey string, raw url.Values) (*catalogDto.BookListResponse, error) {
	allowed, err := s.checkRateLimit(ctx, clientKey)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperror.ErrRateLimited
	}

	f := query.Normalize(raw, query.Options{
		DefaultPageSize: opacPageSize,
		MaxPageSize:     opacPageCap,
		TokenSearch:     true,
	})

	books, total, err := s.books.Search(ctx, f)
	if err != nil {
		return nil, err
	}

	ids, err := s.books.FilteredIDs(ctx, f)
	if err != nil {
		return nil, err
	}
	totalCopies, err := s.books.CopyCountByBookIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	data := make([]catalogDto.BookResponse, 0, len(books))
	for _, b := range books {
		data = append(data, catalogDto.FromEntity(b))
	}

	return &catalogDto.BookListResponse{
		Data:        data,
		Meta:        commonDto.NewPaginationMeta(f.Page, f.PageSize, total),
		TotalCopies: totalCopies,
	}, nil
}

func (s *opacService) Detail(ctx context.Context, id uuid.UUID) (*catalogDto.BookResponse, error) {
	book, err := s.books.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	resp := catalogDto.FromEntity(book)
	return &resp, nil
}

func (s *opacService) Suggest(ctx context.Context, q string) ([]search.Suggestion, error) {
	if s.indexer == nil || q == "" {
		return []search.Suggestion{}, nil
	}
	return s.indexer.Suggest(q, suggestLimit)
}

// checkRateLimit allows one search per client per window. With no redis
// configured it is a no-op.
func (s *opacService) checkRateLimit(ctx context.Context, clientKey string) (bool, error) {
	if s.rdb == nil || s.rateLimit <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("rate_limit:opac:%s", clientKey)
	wasSet, err := s.rdb.SetNX(ctx, key, "locked", s.rateLimit).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	return wasSet, nil
}
