package cache

import (
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// key names definition
// key names in lua script should follow these formats
const (
	MovieCountKey = "catalog:movies:count" // number of stored movies, a constant

	GenreRanksKey = "catalog:genre:%s:ranks" // ranks of the movies in a genre, '%s' is genre name

	ReviewStatsKey   = "movie:%d:review:stats"    // hash with count and sum of ratings, '%d' is movie rank
	ReviewedBySetKey = "movie:%d:review:recorded" // set of review keys already counted, '%d' is movie rank

	ReviewStatsPattern   = "movie:*:review:stats"    // match pattern of every stats hash
	ReviewedBySetPattern = "movie:*:review:recorded" // match pattern of every recorded set
)

func MakeGenreRanksKey(genre string) string {
	return fmt.Sprintf(GenreRanksKey, genre)
}

func MakeReviewStatsKey(movieRank int) string {
	return fmt.Sprintf(ReviewStatsKey, movieRank)
}

func MakeReviewedBySetKey(movieRank int) string {
	return fmt.Sprintf(ReviewedBySetKey, movieRank)
}

// struct definitions
// the data put into redis in lua script should follow the struct
type ReviewStats struct {
	Count int64 `redis:"count"`
	Rated int64 `redis:"rated"`
	Sum   int64 `redis:"sum"`
}

// Average is the mean over rated reviews, or 0 when nothing was rated.
func (s ReviewStats) Average() float64 {
	if s.Rated == 0 {
		return 0
	}
	return float64(s.Sum) / float64(s.Rated)
}

// errors
var (
	ErrCacheMiss       = errors.New("cache miss")
	ErrAlreadyRecorded = errors.New("review already recorded")
)

// lua scripts
var recordReviewRatingScript = redis.NewScript(`
	-- KEYS[1] = movie:{rank}:review:stats
	-- KEYS[2] = movie:{rank}:review:recorded

	-- ARGV[1] = review key
	-- ARGV[2] = rating

	-- a redelivered message must not be counted twice
	if redis.call("SADD", KEYS[2], ARGV[1]) == 0 then
		return -1
	end

	local rating = tonumber(ARGV[2])
	local count = redis.call("HINCRBY", KEYS[1], "count", 1)
	if rating and rating > 0 then
		redis.call("HINCRBY", KEYS[1], "sum", rating)
		redis.call("HINCRBY", KEYS[1], "rated", 1)
	end

	return count
`)
