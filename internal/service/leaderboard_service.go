package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/internal/quiz"
)

// LeaderboardCacheKey holds the computed board of generated quizzes.
const LeaderboardCacheKey = "leaderboard:ai"

type assignmentSource interface {
	All(ctx context.Context) ([]models.Assignment, error)
}

// LeaderboardService ranks students by their total score on generated quizzes.
type LeaderboardService struct {
	assignments assignmentSource
	cache       *CacheService
	ttl         time.Duration
	logger      *zap.Logger
}

// NewLeaderboardService builds a leaderboard service. A nil cache disables caching.
func NewLeaderboardService(assignments assignmentSource, cache *CacheService, ttl time.Duration, logger *zap.Logger) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{assignments: assignments, cache: cache, ttl: ttl, logger: logger}
}

// Get returns the current board.
func (s *LeaderboardService) Get(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var cached []models.LeaderboardEntry
	if hit, err := s.cache.Get(ctx, LeaderboardCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	assignments, err := s.assignments.All(ctx)
	if err != nil {
		return nil, err
	}
	board := quiz.BuildLeaderboard(assignments)
	if err := s.cache.Set(ctx, LeaderboardCacheKey, board, s.ttl); err != nil {
		s.logger.Debug("leaderboard not cached", zap.Error(err))
	}
	return board, nil
}

// Invalidate drops the cached board after an assignment mutation.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, LeaderboardCacheKey)
}
