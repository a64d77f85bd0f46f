package service

import (
	"context"
	"time"

	"library-service/internal/models"
	"library-service/internal/store"
	"library-service/internal/util"

	"go.uber.org/zap"
)

// StatsCache is a best-effort cache for dashboard counters. A miss returns
// (nil, nil); failures never affect correctness.
type StatsCache interface {
	GetDashboardStats(ctx context.Context) (*models.DashboardStats, error)
	SetDashboardStats(ctx context.Context, stats *models.DashboardStats) error
}

// StatsService serves dashboard and reporting queries.
type StatsService struct {
	store  *store.Store
	cache  StatsCache
	logger *zap.Logger
	now    func() time.Time
}

// NewStatsService creates a new stats service. cache may be nil.
func NewStatsService(st *store.Store, cache StatsCache) *StatsService {
	return &StatsService{
		store:  st,
		cache:  cache,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// Dashboard returns the headline counters, served from cache when fresh.
// Cache errors fall through to the database.
func (s *StatsService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	if s.cache != nil {
		cached, err := s.cache.GetDashboardStats(ctx)
		if err != nil {
			s.logger.Warn("Dashboard cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	t := s.now()
	today := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	stats, err := s.store.GetDashboardStats(ctx, today)
	if err != nil {
		return nil, &StorageError{Err: err}
	}

	if s.cache != nil {
		if err := s.cache.SetDashboardStats(ctx, stats); err != nil {
			s.logger.Warn("Dashboard cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// BookStats returns per-book borrow totals.
func (s *StatsService) BookStats(ctx context.Context) ([]models.BookStat, error) {
	stats, err := s.store.GetBookStats(ctx)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	return stats, nil
}

// ReaderStats returns per-reader borrow totals.
func (s *StatsService) ReaderStats(ctx context.Context) ([]models.ReaderStat, error) {
	stats, err := s.store.GetReaderStats(ctx)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	return stats, nil
}

// BorrowTrends returns up to twelve months of borrow volume.
func (s *StatsService) BorrowTrends(ctx context.Context) ([]models.BorrowTrend, error) {
	trends, err := s.store.GetBorrowTrends(ctx, 12)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	return trends, nil
}
