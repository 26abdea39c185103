package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qs-lzh/movie-catalog/internal/cache"
	"github.com/qs-lzh/movie-catalog/internal/model"
	"github.com/qs-lzh/movie-catalog/internal/mq"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap/zaptest"
)

type ackRecord struct {
	acked, nacked, requeued bool
}

func (a *ackRecord) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *ackRecord) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func (a *ackRecord) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

type recordCall struct {
	rank   int
	key    string
	rating int
}

type fakeRecorder struct {
	calls  []recordCall
	resets int
	err    error
}

func (f *fakeRecorder) ResetReviewStats(context.Context) error {
	f.resets++
	f.calls = nil
	return nil
}

func (f *fakeRecorder) RecordReviewRating(_ context.Context, movieRank int, reviewKey string, rating int) error {
	f.calls = append(f.calls, recordCall{movieRank, reviewKey, rating})
	return f.err
}

func delivery(t *testing.T, ack amqp.Acknowledger, message any) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(message)
	if err != nil {
		t.Fatal(err)
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body}
}

func TestHandleReviewStatsRecordsAndAcks(t *testing.T) {
	recorder := &fakeRecorder{}
	w := NewReviewStatsWorkflow(recorder, zaptest.NewLogger(t))
	ack := &ackRecord{}
	message := mq.ReviewCreatedMessage{
		MovieRank: 3,
		Username:  "thorke",
		Rating:    9,
		Timestamp: time.Date(2020, 3, 15, 10, 0, 0, 0, time.UTC),
	}

	if err := w.handleReviewStats(delivery(t, ack, message)); err != nil {
		t.Fatalf("handleReviewStats: %v", err)
	}
	if !ack.acked || ack.nacked {
		t.Errorf("delivery state = %+v, want acked", ack)
	}
	if len(recorder.calls) != 1 {
		t.Fatalf("recorder called %d times", len(recorder.calls))
	}
	got := recorder.calls[0]
	if got.rank != 3 || got.rating != 9 || got.key != message.Key() {
		t.Errorf("recorded %+v", got)
	}
}

func TestHandleReviewStatsDropsBadPayload(t *testing.T) {
	recorder := &fakeRecorder{}
	w := NewReviewStatsWorkflow(recorder, zaptest.NewLogger(t))
	ack := &ackRecord{}

	msg := amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("{not json")}
	if err := w.handleReviewStats(msg); err == nil {
		t.Fatal("expected an error for a bad payload")
	}
	if !ack.nacked || ack.requeued {
		t.Errorf("delivery state = %+v, want nacked without requeue", ack)
	}
	if len(recorder.calls) != 0 {
		t.Errorf("recorder must not be called for a bad payload")
	}
}

func TestHandleReviewStatsRequeuesOnStoreFailure(t *testing.T) {
	w := NewReviewStatsWorkflow(&fakeRecorder{err: errors.New("redis down")}, zaptest.NewLogger(t))
	ack := &ackRecord{}

	if err := w.handleReviewStats(delivery(t, ack, mq.ReviewCreatedMessage{MovieRank: 1})); err == nil {
		t.Fatal("expected the store error")
	}
	if !ack.nacked || !ack.requeued {
		t.Errorf("delivery state = %+v, want requeued", ack)
	}
}

func TestHandleReviewStatsAcksDuplicates(t *testing.T) {
	w := NewReviewStatsWorkflow(&fakeRecorder{err: cache.ErrAlreadyRecorded}, zaptest.NewLogger(t))
	ack := &ackRecord{}

	if err := w.handleReviewStats(delivery(t, ack, mq.ReviewCreatedMessage{MovieRank: 1})); err != nil {
		t.Fatalf("duplicate should not be an error: %v", err)
	}
	if !ack.acked {
		t.Errorf("delivery state = %+v, want acked", ack)
	}
}

func TestRebuildRecordsEveryReview(t *testing.T) {
	recorder := &fakeRecorder{}
	w := NewReviewStatsWorkflow(recorder, zaptest.NewLogger(t))

	movie := model.NewMovie("Split", 2016, 3)
	var reviews []*model.Review
	for _, u := range []string{"thorke", "fmercury"} {
		review, err := model.MakeReview("Tense", model.NewUser(u, "pw"), movie, 8)
		if err != nil {
			t.Fatal(err)
		}
		reviews = append(reviews, review)
	}

	if err := w.Rebuild(context.Background(), reviews); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if recorder.resets != 1 {
		t.Errorf("resets = %d, want 1", recorder.resets)
	}
	if len(recorder.calls) != 2 {
		t.Fatalf("recorder called %d times, want 2", len(recorder.calls))
	}
	want := mq.NewReviewCreatedMessage(reviews[1])
	if got := recorder.calls[1]; got.rank != 3 || got.rating != 8 || got.key != want.Key() {
		t.Errorf("recorded %+v", got)
	}
}

func TestRebuildIgnoresAlreadyRecorded(t *testing.T) {
	w := NewReviewStatsWorkflow(&fakeRecorder{err: cache.ErrAlreadyRecorded}, zaptest.NewLogger(t))
	review, err := model.MakeReview("Tense", model.NewUser("thorke", "pw"), model.NewMovie("Split", 2016, 3), 8)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Rebuild(context.Background(), []*model.Review{review}); err != nil {
		t.Errorf("Rebuild error = %v, want nil", err)
	}
}
