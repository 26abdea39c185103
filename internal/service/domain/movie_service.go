package domain

import (
	"context"

	"github.com/qs-lzh/movie-catalog/internal/model"
	"github.com/qs-lzh/movie-catalog/internal/repository"
	"github.com/qs-lzh/movie-catalog/internal/service"
)

type MovieService interface {
	GetMovie(ctx context.Context, rank int) (*model.Movie, error)
	BrowseByYear(ctx context.Context, year int) (*YearPage, error)
	GetMoviesForGenre(ctx context.Context, genre string) ([]*model.Movie, error)
	GetMoviesForActor(ctx context.Context, actor string) ([]*model.Movie, error)
	GetMoviesByDirector(ctx context.Context, director string) ([]*model.Movie, error)
	Summary(ctx context.Context) (*CatalogSummary, error)
}

// YearPage is one year of the catalog with links to its neighbours.
type YearPage struct {
	Year   int
	Movies []*model.Movie

	PreviousYear int
	HasPrevious  bool
	NextYear     int
	HasNext      bool
}

type CatalogSummary struct {
	Movies    int
	Genres    int
	Actors    int
	Directors int
	Reviews   int

	FirstMovie *model.Movie
	LastMovie  *model.Movie
}

type movieService struct {
	repo repository.Repository
}

var _ MovieService = (*movieService)(nil)

func NewMovieService(repo repository.Repository) *movieService {
	return &movieService{
		repo: repo,
	}
}

func (s *movieService) GetMovie(ctx context.Context, rank int) (*model.Movie, error) {
	movie, err := s.repo.GetMovie(ctx, rank)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, service.ErrNotFound
	}
	return movie, nil
}

// BrowseByYear lists the movies of a year. Year 0 starts from the year of
// the first movie in the catalog.
func (s *movieService) BrowseByYear(ctx context.Context, year int) (*YearPage, error) {
	if year == 0 {
		first, err := s.repo.GetFirstMovie(ctx)
		if err != nil {
			return nil, err
		}
		if first == nil {
			return nil, service.ErrNotFound
		}
		year = first.Year
	}

	movies, err := s.repo.GetMoviesByYear(ctx, year)
	if err != nil {
		return nil, err
	}
	page := &YearPage{Year: year, Movies: movies}

	probe := &model.Movie{Year: year}
	if page.PreviousYear, page.HasPrevious, err = s.repo.GetYearOfPreviousMovie(ctx, probe); err != nil {
		return nil, err
	}
	if page.NextYear, page.HasNext, err = s.repo.GetYearOfNextMovie(ctx, probe); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *movieService) GetMoviesForGenre(ctx context.Context, genre string) ([]*model.Movie, error) {
	ranks, err := s.repo.GetMovieRanksForGenre(ctx, genre)
	if err != nil {
		return nil, err
	}
	if len(ranks) == 0 {
		return nil, service.ErrNotFound
	}
	return s.repo.GetMoviesByRank(ctx, ranks)
}

func (s *movieService) GetMoviesForActor(ctx context.Context, actor string) ([]*model.Movie, error) {
	ranks, err := s.repo.GetMovieRanksForActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if len(ranks) == 0 {
		return nil, service.ErrNotFound
	}
	return s.repo.GetMoviesByRank(ctx, ranks)
}

func (s *movieService) GetMoviesByDirector(ctx context.Context, director string) ([]*model.Movie, error) {
	movies, err := s.repo.GetMoviesByDirector(ctx, director)
	if err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return nil, service.ErrNotFound
	}
	return movies, nil
}

func (s *movieService) Summary(ctx context.Context) (*CatalogSummary, error) {
	var (
		summary CatalogSummary
		err     error
	)
	if summary.Movies, err = s.repo.GetNumberOfMovies(ctx); err != nil {
		return nil, err
	}
	genres, err := s.repo.GetGenres(ctx)
	if err != nil {
		return nil, err
	}
	actors, err := s.repo.GetActors(ctx)
	if err != nil {
		return nil, err
	}
	directors, err := s.repo.GetDirectors(ctx)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repo.GetReviews(ctx)
	if err != nil {
		return nil, err
	}
	summary.Genres, summary.Actors, summary.Directors, summary.Reviews = len(genres), len(actors), len(directors), len(reviews)

	if summary.FirstMovie, err = s.repo.GetFirstMovie(ctx); err != nil {
		return nil, err
	}
	if summary.LastMovie, err = s.repo.GetLastMovie(ctx); err != nil {
		return nil, err
	}
	return &summary, nil
}
