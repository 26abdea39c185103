package mq

import (
	"time"

	"github.com/qs-lzh/movie-catalog/internal/model"
)

// Queue names and message definitions

// immediate queue from review submission to the statistics workflow
// deliver message to notify the workflow to count a new review of a movie
const (
	ReviewStatsImmediateQueue = "review.stats.update.immediate"
)

type ReviewCreatedMessage struct {
	MovieRank int       `json:"movie_rank"`
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReviewCreatedMessage(review *model.Review) ReviewCreatedMessage {
	return ReviewCreatedMessage{
		MovieRank: review.Movie().Rank,
		Username:  review.User().Username,
		Rating:    review.Rating,
		Timestamp: review.Timestamp,
	}
}

// Key identifies the review the message was sent for.
func (m ReviewCreatedMessage) Key() string {
	return m.Username + "@" + m.Timestamp.UTC().Format(time.RFC3339Nano)
}
