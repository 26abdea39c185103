package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/qs-lzh/movie-catalog/internal/model"
	"github.com/qs-lzh/movie-catalog/internal/repository"
	"github.com/qs-lzh/movie-catalog/internal/util"

	"go.uber.org/zap"
)

// File names looked up under the data path.
const (
	MoviesFile  = "Data1000Movies.csv"
	UsersFile   = "users.csv"
	ReviewsFile = "reviews.csv"
)

// Loader fills a repository from the catalog CSV files.
type Loader struct {
	repo     repository.Repository
	log      *zap.Logger
	hashCost int
}

type Option func(*Loader)

// WithHashCost sets the bcrypt cost used for user passwords.
func WithHashCost(cost int) Option {
	return func(l *Loader) {
		l.hashCost = cost
	}
}

func New(repo repository.Repository, logger *zap.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{repo: repo, log: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Populate loads movies with their genres, actors and directors, then users,
// then reviews.
func (l *Loader) Populate(ctx context.Context, dataPath string) error {
	movies, err := l.LoadMovies(ctx, filepath.Join(dataPath, MoviesFile))
	if err != nil {
		return err
	}
	users, err := l.LoadUsers(ctx, filepath.Join(dataPath, UsersFile))
	if err != nil {
		return err
	}
	if err := l.LoadReviews(ctx, filepath.Join(dataPath, ReviewsFile), users, movies); err != nil {
		return err
	}
	l.log.Info("catalog populated",
		zap.String("data_path", dataPath),
		zap.Int("movies", len(movies)),
		zap.Int("users", len(users)),
	)
	return nil
}

// names collects entity names in first-seen order with the ranks that use them.
type names struct {
	order []string
	ranks map[string][]int
}

func newNames() *names {
	return &names{ranks: make(map[string][]int)}
}

func (n *names) add(name string, rank int) {
	if _, ok := n.ranks[name]; !ok {
		n.order = append(n.order, name)
	}
	n.ranks[name] = append(n.ranks[name], rank)
}

// LoadMovies stores every movie in the file and then the genres, actors and
// directors found along the way. It returns the stored movies by rank.
func (l *Loader) LoadMovies(ctx context.Context, path string) (map[int]*model.Movie, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	cols := map[string]int{}
	for _, name := range []string{"Rank", "Title", "Genre", "Director", "Actors", "Year"} {
		i, err := t.column(name)
		if err != nil {
			return nil, err
		}
		cols[name] = i
	}
	descCol, hasDesc := t.header["Description"]
	runtimeCol, hasRuntime := t.header["Runtime (Minutes)"]

	movies := make(map[int]*model.Movie, len(t.rows))
	genres, actors, directors := newNames(), newNames(), newNames()

	for _, r := range t.rows {
		rank, err := strconv.Atoi(r.field(cols["Rank"]))
		if err != nil {
			return nil, t.rowError(r, fmt.Errorf("invalid rank: %w", err))
		}
		year, err := strconv.Atoi(r.field(cols["Year"]))
		if err != nil {
			return nil, t.rowError(r, fmt.Errorf("invalid year: %w", err))
		}

		movie := model.NewMovie(r.field(cols["Title"]), year, rank)
		if hasDesc {
			movie.SetDescription(r.field(descCol))
		}
		if hasRuntime {
			if minutes, err := strconv.Atoi(r.field(runtimeCol)); err == nil && minutes > 0 {
				_ = movie.SetRuntimeMinutes(minutes)
			}
		}

		for _, name := range splitNames(r.field(cols["Genre"])) {
			genres.add(name, rank)
		}
		for _, name := range splitNames(r.field(cols["Actors"])) {
			actors.add(name, rank)
		}
		for _, name := range splitNames(r.field(cols["Director"])) {
			directors.add(name, rank)
		}

		if err := l.repo.AddMovie(ctx, movie); err != nil {
			return nil, t.rowError(r, err)
		}
		movies[rank] = movie
	}

	for _, name := range genres.order {
		genre := model.NewGenre(name)
		for _, rank := range genres.ranks[name] {
			if err := model.MakeGenreAssociation(movies[rank], genre); err != nil {
				return nil, err
			}
		}
		if err := l.repo.AddGenre(ctx, genre); err != nil {
			return nil, fmt.Errorf("add genre %q: %w", name, err)
		}
	}
	for _, name := range actors.order {
		actor := model.NewActor(name)
		for _, rank := range actors.ranks[name] {
			if err := model.MakeActorAssociation(movies[rank], actor); err != nil {
				return nil, err
			}
		}
		if err := l.repo.AddActor(ctx, actor); err != nil {
			return nil, fmt.Errorf("add actor %q: %w", name, err)
		}
	}
	for _, name := range directors.order {
		director := model.NewDirector(name)
		for _, rank := range directors.ranks[name] {
			if err := model.MakeDirectorAssociation(movies[rank], director); err != nil {
				return nil, err
			}
		}
		if err := l.repo.AddDirector(ctx, director); err != nil {
			return nil, fmt.Errorf("add director %q: %w", name, err)
		}
	}

	l.log.Debug("movies loaded",
		zap.String("file", path),
		zap.Int("movies", len(movies)),
		zap.Int("genres", len(genres.order)),
		zap.Int("actors", len(actors.order)),
		zap.Int("directors", len(directors.order)),
	)
	return movies, nil
}

// LoadUsers stores every user with a hashed password. It returns the users by
// their id in the file.
func (l *Loader) LoadUsers(ctx context.Context, path string) (map[string]*model.User, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	users := make(map[string]*model.User, len(t.rows))
	for _, r := range t.rows {
		if len(r.fields) < 3 {
			return nil, t.rowError(r, fmt.Errorf("want 3 fields, got %d", len(r.fields)))
		}
		hash, err := util.HashPassword(r.field(2), l.hashCost)
		if err != nil {
			return nil, t.rowError(r, err)
		}
		user := model.NewUser(r.field(1), hash)
		if err := l.repo.AddUser(ctx, user); err != nil {
			return nil, t.rowError(r, err)
		}
		users[r.field(0)] = user
	}
	l.log.Debug("users loaded", zap.String("file", path), zap.Int("users", len(users)))
	return users, nil
}

// LoadReviews stores every review, attached to the given users and movies.
func (l *Loader) LoadReviews(ctx context.Context, path string, users map[string]*model.User, movies map[int]*model.Movie) error {
	t, err := readTable(path)
	if err != nil {
		return err
	}

	for _, r := range t.rows {
		if len(r.fields) < 5 {
			return t.rowError(r, fmt.Errorf("want 5 fields, got %d", len(r.fields)))
		}
		user, ok := users[r.field(1)]
		if !ok {
			return t.rowError(r, fmt.Errorf("unknown user id %q", r.field(1)))
		}
		rank, err := strconv.Atoi(r.field(2))
		if err != nil {
			return t.rowError(r, fmt.Errorf("invalid movie rank: %w", err))
		}
		movie, ok := movies[rank]
		if !ok {
			return t.rowError(r, fmt.Errorf("unknown movie rank %d", rank))
		}
		rating, err := strconv.Atoi(r.field(len(r.fields) - 1))
		if err != nil {
			return t.rowError(r, fmt.Errorf("invalid rating: %w", err))
		}

		review, err := model.MakeReview(r.field(3), user, movie, rating)
		if err != nil {
			return t.rowError(r, err)
		}
		if err := l.repo.AddReview(ctx, review); err != nil {
			return t.rowError(r, err)
		}
	}
	l.log.Debug("reviews loaded", zap.String("file", path), zap.Int("reviews", len(t.rows)))
	return nil
}
