package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/modules/catalog/query"
)

const (
	cacheKey = "stat:dashboard"
	cacheTTL = 60 * time.Second
)

type Dashboard struct {
	TotalBooks      int64 `json:"total_books"`
	TotalCopies     int64 `json:"total_copies"`
	CopiesAvailable int64 `json:"copies_available"`
	ActiveLoans     int64 `json:"active_loans"`
	IncompleteBooks int64 `json:"incomplete_books"`
	Institutions    int64 `json:"institutions"`
}

type StatService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
}

type statService struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewStatService(db *gorm.DB, rdb *redis.Client) StatService {
	return &statService{db: db, rdb: rdb}
}

// Dashboard aggregates catalog counts, cached in redis for a minute. The
// counts run concurrently; each uses its own session off the shared pool.
func (s *statService) Dashboard(ctx context.Context) (*Dashboard, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var cached Dashboard
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&entity.Book{}).Count(&d.TotalBooks).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&entity.BookCopy{}).Count(&d.TotalCopies).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Model(&entity.BookCopy{}).
			Where("status IN ?", []string{entity.CopyAvailable, entity.CopyPuskelAvailable}).
			Count(&d.CopiesAvailable).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Model(&entity.PuskelLoan{}).
			Where("status = ?", entity.LoanActive).
			Count(&d.ActiveLoans).Error
	})
	g.Go(func() error {
		tx := s.db.WithContext(gctx).Model(&entity.Book{})
		return query.Apply(tx, query.Filter{IncompleteOnly: true}).
			Distinct("books.id").
			Count(&d.IncompleteBooks).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&entity.Institution{}).Count(&d.Institutions).Error
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(d); err == nil {
			s.rdb.Set(ctx, cacheKey, raw, cacheTTL)
		}
	}
	return &d, nil
}
