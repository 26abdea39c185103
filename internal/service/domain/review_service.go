package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qs-lzh/movie-catalog/internal/cache"
	"github.com/qs-lzh/movie-catalog/internal/model"
	"github.com/qs-lzh/movie-catalog/internal/mq"
	"github.com/qs-lzh/movie-catalog/internal/repository"
	"github.com/qs-lzh/movie-catalog/internal/service"

	"go.uber.org/zap"
)

type ReviewService interface {
	SubmitReview(ctx context.Context, username string, rank int, text string, rating int) (*model.Review, error)
	GetReviewsForMovie(ctx context.Context, rank int) ([]*model.Review, error)
	GetReviewStats(ctx context.Context, rank int) (cache.ReviewStats, error)
}

// ReviewPublisher announces stored reviews to the statistics workflow.
type ReviewPublisher interface {
	PublishReviewCreated(ctx context.Context, message mq.ReviewCreatedMessage) error
}

type ReviewStatsReader interface {
	GetReviewStats(ctx context.Context, movieRank int) (cache.ReviewStats, error)
}

type reviewService struct {
	repo      repository.Repository
	publisher ReviewPublisher
	stats     ReviewStatsReader
	log       *zap.Logger
}

var _ ReviewService = (*reviewService)(nil)

// NewReviewService builds the review service. publisher and stats may be nil;
// without stats the figures are computed from the stored reviews.
func NewReviewService(repo repository.Repository, publisher ReviewPublisher, stats ReviewStatsReader, logger *zap.Logger) *reviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reviewService{
		repo:      repo,
		publisher: publisher,
		stats:     stats,
		log:       logger,
	}
}

func (s *reviewService) SubmitReview(ctx context.Context, username string, rank int, text string, rating int) (*model.Review, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: review text is empty", service.ErrInvalidInput)
	}
	user, err := s.repo.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %q: %w", username, service.ErrNotFound)
	}
	movie, err := s.repo.GetMovie(ctx, rank)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, fmt.Errorf("movie %d: %w", rank, service.ErrNotFound)
	}

	review, err := model.MakeReview(text, user, movie, rating)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddReview(ctx, review); err != nil {
		return nil, err
	}

	if s.publisher != nil {
		message := mq.NewReviewCreatedMessage(review)
		// statistics are best effort; the review itself is stored
		if err := s.publisher.PublishReviewCreated(ctx, message); err != nil {
			s.log.Warn("failed to publish review",
				zap.Int("movie_rank", movie.Rank),
				zap.String("username", user.Username),
				zap.Error(err),
			)
		}
	}
	return review, nil
}

func (s *reviewService) GetReviewsForMovie(ctx context.Context, rank int) ([]*model.Review, error) {
	movie, err := s.repo.GetMovie(ctx, rank)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, service.ErrNotFound
	}
	return movie.Reviews(), nil
}

func (s *reviewService) GetReviewStats(ctx context.Context, rank int) (cache.ReviewStats, error) {
	if s.stats != nil {
		stats, err := s.stats.GetReviewStats(ctx, rank)
		if err == nil {
			return stats, nil
		}
		if !errors.Is(err, context.Canceled) {
			s.log.Debug("review stats unavailable, counting stored reviews", zap.Error(err))
		}
	}

	reviews, err := s.GetReviewsForMovie(ctx, rank)
	if err != nil {
		return cache.ReviewStats{}, err
	}
	var stats cache.ReviewStats
	for _, r := range reviews {
		stats.Count++
		if r.HasRating() {
			stats.Rated++
			stats.Sum += int64(r.Rating)
		}
	}
	return stats, nil
}
