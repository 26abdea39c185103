package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/qs-lzh/movie-catalog/internal/cache"
	"github.com/qs-lzh/movie-catalog/internal/model"
	"github.com/qs-lzh/movie-catalog/internal/mq"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const handleTimeout = 5 * time.Second

// StatsRecorder stores review ratings against their movies.
type StatsRecorder interface {
	RecordReviewRating(ctx context.Context, movieRank int, reviewKey string, rating int) error
	ResetReviewStats(ctx context.Context) error
}

var _ StatsRecorder = (*cache.RedisCache)(nil)

type ReviewStatsWorkflow struct {
	recorder StatsRecorder
	log      *zap.Logger
}

func NewReviewStatsWorkflow(recorder StatsRecorder, logger *zap.Logger) *ReviewStatsWorkflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewStatsWorkflow{
		recorder: recorder,
		log:      logger,
	}
}

// Rebuild replaces the recorded statistics with the counts of the given
// reviews, the ones the catalog actually holds.
func (w *ReviewStatsWorkflow) Rebuild(ctx context.Context, reviews []*model.Review) error {
	if err := w.recorder.ResetReviewStats(ctx); err != nil {
		return err
	}
	for _, review := range reviews {
		message := mq.NewReviewCreatedMessage(review)
		err := w.recorder.RecordReviewRating(ctx, message.MovieRank, message.Key(), message.Rating)
		if err != nil && !errors.Is(err, cache.ErrAlreadyRecorded) {
			return err
		}
	}
	w.log.Info("review stats rebuilt", zap.Int("reviews", len(reviews)))
	return nil
}

func (w *ReviewStatsWorkflow) Start(mqConn *amqp.Connection) error {
	if err := w.ConsumeReviewStats(mqConn); err != nil {
		return err
	}
	return nil
}

// ConsumeReviewStats handles deliveries in its own goroutine until the
// connection closes.
func (w *ReviewStatsWorkflow) ConsumeReviewStats(conn *amqp.Connection) error {
	ch, err := mq.NewChannel(conn)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(mq.ReviewStatsImmediateQueue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return err
	}

	go func() {
		for msg := range msgs {
			if err := w.handleReviewStats(msg); err != nil {
				w.log.Warn("failed to handle review stats", zap.Error(err))
			}
		}
		w.log.Info("review stats consumer stopped")
	}()

	return nil
}

func (w *ReviewStatsWorkflow) handleReviewStats(msg amqp.Delivery) error {
	var message mq.ReviewCreatedMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		msg.Nack(false, false)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	err := w.recorder.RecordReviewRating(ctx, message.MovieRank, message.Key(), message.Rating)
	if err != nil && !errors.Is(err, cache.ErrAlreadyRecorded) {
		msg.Nack(false, true)
		return err
	}

	msg.Ack(false)

	return nil
}
