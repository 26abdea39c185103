package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/qs-lzh/movie-catalog/internal/model"
)

// MemoryRepo keeps the whole catalog as an object graph. Movies are held in
// (title, year) order with a rank index beside them.
type MemoryRepo struct {
	mu sync.RWMutex

	movies      []*model.Movie
	moviesIndex map[int]*model.Movie
	genres      []*model.Genre
	actors      []*model.Actor
	directors   []*model.Director
	users       []*model.User
	reviews     []*model.Review
}

var _ Repository = (*MemoryRepo)(nil)

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		moviesIndex: make(map[int]*model.Movie),
	}
}

func (r *MemoryRepo) AddUser(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, user)
	return nil
}

func (r *MemoryRepo) GetUser(_ context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepo) AddMovie(_ context.Context, movie *model.Movie) error {
	if movie == nil {
		return fmt.Errorf("%w: movie is nil", model.ErrInvariantViolation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.moviesIndex[movie.Rank]; ok {
		return fmt.Errorf("%w: rank %d already stored", model.ErrInvariantViolation, movie.Rank)
	}
	// insert before any equal movie, keeping insertion stable for duplicates
	i, _ := slices.BinarySearchFunc(r.movies, movie, model.CompareMovies)
	r.movies = slices.Insert(r.movies, i, movie)
	r.moviesIndex[movie.Rank] = movie
	return nil
}

func (r *MemoryRepo) GetMovie(_ context.Context, rank int) (*model.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.moviesIndex[rank], nil
}

func (r *MemoryRepo) GetMoviesByYear(_ context.Context, year int) ([]*model.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matching := []*model.Movie{}
	for _, movie := range r.movies {
		if movie.Year == year {
			matching = append(matching, movie)
		}
	}
	return matching, nil
}

func (r *MemoryRepo) GetNumberOfMovies(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.movies), nil
}

func (r *MemoryRepo) GetFirstMovie(_ context.Context) (*model.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.movies) == 0 {
		return nil, nil
	}
	return r.movies[0], nil
}

func (r *MemoryRepo) GetLastMovie(_ context.Context) (*model.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.movies) == 0 {
		return nil, nil
	}
	return r.movies[len(r.movies)-1], nil
}

func (r *MemoryRepo) GetMoviesByRank(_ context.Context, ranks []int) ([]*model.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	movies := make([]*model.Movie, 0, len(ranks))
	for _, rank := range ranks {
		if movie, ok := r.moviesIndex[rank]; ok {
			movies = append(movies, movie)
		}
	}
	return movies, nil
}

func (r *MemoryRepo) GetMoviesByDirector(_ context.Context, name string) ([]*model.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matching := []*model.Movie{}
	for _, director := range r.directors {
		if director.FullName == name {
			matching = append(matching, director.Movies()...)
		}
	}
	slices.SortFunc(matching, func(a, b *model.Movie) int { return cmp.Compare(a.Rank, b.Rank) })
	return matching, nil
}

func (r *MemoryRepo) GetMovieRanksForGenre(_ context.Context, name string) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := slices.IndexFunc(r.genres, func(g *model.Genre) bool { return g.Name == name })
	if i < 0 {
		return []int{}, nil
	}
	return sortedRanks(r.genres[i].Movies()), nil
}

func (r *MemoryRepo) GetMovieRanksForActor(_ context.Context, name string) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := slices.IndexFunc(r.actors, func(a *model.Actor) bool { return a.FullName == name })
	if i < 0 {
		return []int{}, nil
	}
	return sortedRanks(r.actors[i].Movies()), nil
}

func (r *MemoryRepo) GetMovieRanksForDirector(_ context.Context, name string) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := slices.IndexFunc(r.directors, func(d *model.Director) bool { return d.FullName == name })
	if i < 0 {
		return []int{}, nil
	}
	return sortedRanks(r.directors[i].Movies()), nil
}

func (r *MemoryRepo) GetYearOfPreviousMovie(_ context.Context, movie *model.Movie) (int, bool, error) {
	if movie == nil {
		return 0, false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	year, found := 0, false
	for _, stored := range r.movies {
		if stored.Year < movie.Year && (!found || stored.Year > year) {
			year, found = stored.Year, true
		}
	}
	return year, found, nil
}

func (r *MemoryRepo) GetYearOfNextMovie(_ context.Context, movie *model.Movie) (int, bool, error) {
	if movie == nil {
		return 0, false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	year, found := 0, false
	for _, stored := range r.movies {
		if stored.Year > movie.Year && (!found || stored.Year < year) {
			year, found = stored.Year, true
		}
	}
	return year, found, nil
}

func (r *MemoryRepo) AddGenre(_ context.Context, genre *model.Genre) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.genres = append(r.genres, genre)
	return nil
}

func (r *MemoryRepo) GetGenres(_ context.Context) ([]*model.Genre, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.genres), nil
}

func (r *MemoryRepo) AddActor(_ context.Context, actor *model.Actor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors = append(r.actors, actor)
	return nil
}

func (r *MemoryRepo) GetActors(_ context.Context) ([]*model.Actor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.actors), nil
}

func (r *MemoryRepo) AddDirector(_ context.Context, director *model.Director) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directors = append(r.directors, director)
	return nil
}

func (r *MemoryRepo) GetDirectors(_ context.Context) ([]*model.Director, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.directors), nil
}

func (r *MemoryRepo) AddReview(_ context.Context, review *model.Review) error {
	if err := validateReview(review); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews = append(r.reviews, review)
	return nil
}

func (r *MemoryRepo) GetReviews(_ context.Context) ([]*model.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.reviews), nil
}

func sortedRanks(movies []*model.Movie) []int {
	ranks := make([]int, 0, len(movies))
	for _, movie := range movies {
		ranks = append(ranks, movie.Rank)
	}
	slices.Sort(ranks)
	return ranks
}
