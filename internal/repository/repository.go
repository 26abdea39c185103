package repository

import (
	"context"
	"fmt"

	"github.com/qs-lzh/movie-catalog/internal/model"
)

// Repository is the storage contract shared by the in-memory and database
// backends. Lookups that find nothing return nil or an empty slice, never an
// error.
type Repository interface {
	AddUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, username string) (*model.User, error)

	// AddMovie fails with ErrInvariantViolation when the rank is already taken.
	AddMovie(ctx context.Context, movie *model.Movie) error
	GetMovie(ctx context.Context, rank int) (*model.Movie, error)
	GetMoviesByYear(ctx context.Context, year int) ([]*model.Movie, error)
	GetNumberOfMovies(ctx context.Context) (int, error)
	GetFirstMovie(ctx context.Context) (*model.Movie, error)
	GetLastMovie(ctx context.Context) (*model.Movie, error)
	// GetMoviesByRank drops unknown ranks and keeps the order of the input.
	GetMoviesByRank(ctx context.Context, ranks []int) ([]*model.Movie, error)
	GetMoviesByDirector(ctx context.Context, name string) ([]*model.Movie, error)

	// Rank lookups return ranks in ascending order.
	GetMovieRanksForGenre(ctx context.Context, name string) ([]int, error)
	GetMovieRanksForActor(ctx context.Context, name string) ([]int, error)
	GetMovieRanksForDirector(ctx context.Context, name string) ([]int, error)

	// GetYearOfPreviousMovie reports the nearest year strictly before the
	// movie's year among stored movies; ok is false when there is none
	// or movie is nil.
	GetYearOfPreviousMovie(ctx context.Context, movie *model.Movie) (year int, ok bool, err error)
	GetYearOfNextMovie(ctx context.Context, movie *model.Movie) (year int, ok bool, err error)

	AddGenre(ctx context.Context, genre *model.Genre) error
	GetGenres(ctx context.Context) ([]*model.Genre, error)
	AddActor(ctx context.Context, actor *model.Actor) error
	GetActors(ctx context.Context) ([]*model.Actor, error)
	AddDirector(ctx context.Context, director *model.Director) error
	GetDirectors(ctx context.Context) ([]*model.Director, error)

	// AddReview rejects reviews that are not attached to both their user and
	// their movie.
	AddReview(ctx context.Context, review *model.Review) error
	GetReviews(ctx context.Context) ([]*model.Review, error)
}

func validateReview(review *model.Review) error {
	if review == nil {
		return fmt.Errorf("%w: review is nil", model.ErrInvariantViolation)
	}
	user, movie := review.User(), review.Movie()
	if user == nil {
		return fmt.Errorf("%w: review has no user", model.ErrInvariantViolation)
	}
	if movie == nil {
		return fmt.Errorf("%w: review has no movie", model.ErrInvariantViolation)
	}
	if !user.HasReview(review) {
		return fmt.Errorf("%w: review is not registered with user %q", model.ErrInvariantViolation, user.Username)
	}
	if !movie.HasReview(review) {
		return fmt.Errorf("%w: review is not registered with movie %q", model.ErrInvariantViolation, movie.Title)
	}
	return nil
}
