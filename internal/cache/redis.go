package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	redis "github.com/redis/go-redis/v9"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache accepts either a bare host:port or a redis:// URL.
func NewRedisCache(url string) (*RedisCache, error) {
	opts := &redis.Options{
		Addr:     url,
		Password: "",
		DB:       0,
	}
	if strings.Contains(url, "://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}
	return &RedisCache{Client: redis.NewClient(opts)}, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.Client.Close()
}

func (r *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key, data, expiration).Err()
}

// Get decodes the value stored under key into dest. A missing key is
// reported as ErrCacheMiss.
func (r *RedisCache) Get(ctx context.Context, key string, dest any) error {
	data, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.Client.Del(ctx, keys...).Err()
}

/*
* review statistics of a movie
 */

// RecordReviewRating counts a review against its movie. reviewKey identifies
// the review so that recording it again returns ErrAlreadyRecorded.
func (r *RedisCache) RecordReviewRating(ctx context.Context, movieRank int, reviewKey string, rating int) error {
	keys := []string{MakeReviewStatsKey(movieRank), MakeReviewedBySetKey(movieRank)}
	res, err := recordReviewRatingScript.Run(ctx, r.Client, keys, reviewKey, rating).Int64()
	if err != nil {
		return err
	}
	if res == -1 {
		return ErrAlreadyRecorded
	}
	return nil
}

// GetReviewStats reads the counters of a movie. A movie nothing was recorded
// for is reported as ErrCacheMiss.
func (r *RedisCache) GetReviewStats(ctx context.Context, movieRank int) (ReviewStats, error) {
	cmd := r.Client.HGetAll(ctx, MakeReviewStatsKey(movieRank))
	fields, err := cmd.Result()
	if err != nil {
		return ReviewStats{}, err
	}
	if len(fields) == 0 {
		return ReviewStats{}, ErrCacheMiss
	}
	var stats ReviewStats
	if err := cmd.Scan(&stats); err != nil {
		return ReviewStats{}, err
	}
	return stats, nil
}

// ResetReviewStats deletes the counters and recorded review keys of every
// movie.
func (r *RedisCache) ResetReviewStats(ctx context.Context) error {
	for _, pattern := range []string{ReviewStatsPattern, ReviewedBySetPattern} {
		iter := r.Client.Scan(ctx, 0, pattern, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if err := r.Delete(ctx, keys...); err != nil {
			return err
		}
	}
	return nil
}
