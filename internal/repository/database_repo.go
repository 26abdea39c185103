package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qs-lzh/movie-catalog/internal/cache"
	"github.com/qs-lzh/movie-catalog/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const cacheTTL = 10 * time.Minute

// Titles compare by byte value, as they do in the in-memory backend.
const (
	titleAsc  = `movies.title COLLATE "C" ASC, movies.year ASC`
	titleDesc = `movies.title COLLATE "C" DESC, movies.year DESC`
)

// QueryCache is the read-through cache the database backend consults for
// hot aggregate queries. *cache.RedisCache satisfies it.
type QueryCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

var _ QueryCache = (*cache.RedisCache)(nil)

// Open connects to postgres and sets up the connection pool.
func Open(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connected successfully")
	return db, nil
}

type DatabaseRepo struct {
	db    *gorm.DB
	cache QueryCache
	log   *zap.Logger

	// set when bound to a caller's transaction
	stale *staleKeys
}

// staleKeys remembers cache keys invalidated inside a transaction that has
// not committed yet.
type staleKeys struct {
	mu   sync.Mutex
	keys []string
}

func (s *staleKeys) add(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, keys...)
}

func (s *staleKeys) drain() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.keys
	s.keys = nil
	return keys
}

var _ Repository = (*DatabaseRepo)(nil)

type Option func(*DatabaseRepo)

// WithCache enables the read-through cache. A nil cache leaves it off.
func WithCache(c QueryCache) Option {
	return func(r *DatabaseRepo) {
		r.cache = c
	}
}

func NewDatabaseRepo(db *gorm.DB, logger *zap.Logger, opts ...Option) *DatabaseRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &DatabaseRepo{db: db, log: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithTx binds the repository to a transaction owned by the caller. The bound
// repository bypasses the cache for reads, since the cache must not see
// uncommitted rows. Prefer Transaction, which also clears the keys touched
// once the commit has happened.
func (r *DatabaseRepo) WithTx(tx *gorm.DB) Repository {
	return r.withTx(tx)
}

func (r *DatabaseRepo) withTx(tx *gorm.DB) *DatabaseRepo {
	return &DatabaseRepo{db: tx, cache: r.cache, log: r.log, stale: &staleKeys{}}
}

// Transaction runs fn against a repository bound to one transaction and,
// after it commits, invalidates every cache key the writes touched. Readers
// that refilled those keys from pre-commit data in the meantime are
// corrected.
func (r *DatabaseRepo) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	var bound *DatabaseRepo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bound = r.withTx(tx)
		return fn(bound)
	})
	if err != nil {
		return err
	}
	r.invalidate(ctx, bound.stale.drain()...)
	return nil
}

// unitOfWork runs fn in one transaction; any error rolls the whole call back.
func (r *DatabaseRepo) unitOfWork(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := r.db.WithContext(ctx).Transaction(fn); err != nil {
		r.log.Warn("transaction rolled back", zap.Error(err))
		return err
	}
	return nil
}

// movieGraph preloads everything a movie knows about.
func (r *DatabaseRepo) movieGraph(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Director").
		Preload("Genres", orderBy("genres.id")).
		Preload("Actors", orderBy("actors.id")).
		Preload("Reviews", orderBy("reviews.id")).
		Preload("Reviews.User")
}

func orderBy(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(column)
	}
}

func (r *DatabaseRepo) AddUser(ctx context.Context, user *model.User) error {
	return r.unitOfWork(ctx, func(tx *gorm.DB) error {
		rec := &UserRecord{Username: user.Username, Password: user.Password}
		if err := gorm.G[UserRecord](tx).Create(ctx, rec); err != nil {
			return fmt.Errorf("add user %q: %w", user.Username, err)
		}
		return nil
	})
}

func (r *DatabaseRepo) GetUser(ctx context.Context, username string) (*model.User, error) {
	var rec UserRecord
	err := r.db.WithContext(ctx).
		Preload("Reviews", orderBy("reviews.id")).
		Preload("Reviews.Movie").
		Where("username = ?", username).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return newHydrator().user(&rec), nil
}

func (r *DatabaseRepo) AddMovie(ctx context.Context, movie *model.Movie) error {
	if movie == nil {
		return fmt.Errorf("%w: movie is nil", model.ErrInvariantViolation)
	}
	err := r.unitOfWork(ctx, func(tx *gorm.DB) error {
		rec := &MovieRecord{
			Rank:        movie.Rank,
			Title:       movie.Title,
			Description: movie.Description,
			Year:        movie.Year,
			Runtime:     movie.RuntimeMinutes,
		}
		if d := movie.Director(); d != nil {
			dir, err := firstOrCreateDirector(tx, d.FullName)
			if err != nil {
				return err
			}
			rec.DirectorID = &dir.ID
		}
		if err := gorm.G[MovieRecord](tx).Create(ctx, rec); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: rank %d already stored", model.ErrInvariantViolation, movie.Rank)
			}
			return fmt.Errorf("add movie %v: %w", movie, err)
		}

		for _, g := range movie.Genres() {
			genre, err := firstOrCreateGenre(tx, g.Name)
			if err != nil {
				return err
			}
			if err := tx.Model(rec).Association("Genres").Append(genre); err != nil {
				return fmt.Errorf("link genre %q: %w", g.Name, err)
			}
		}
		for _, a := range movie.Actors() {
			actor, err := firstOrCreateActor(tx, a.FullName)
			if err != nil {
				return err
			}
			if err := tx.Model(rec).Association("Actors").Append(actor); err != nil {
				return fmt.Errorf("link actor %q: %w", a.FullName, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	keys := []string{cache.MovieCountKey}
	for _, g := range movie.Genres() {
		keys = append(keys, cache.MakeGenreRanksKey(g.Name))
	}
	r.invalidate(ctx, keys...)
	return nil
}

func (r *DatabaseRepo) GetMovie(ctx context.Context, rank int) (*model.Movie, error) {
	var rec MovieRecord
	err := r.movieGraph(ctx).Where("movies.rank = ?", rank).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movie %d: %w", rank, err)
	}
	return newHydrator().movie(&rec), nil
}

func (r *DatabaseRepo) GetMoviesByYear(ctx context.Context, year int) ([]*model.Movie, error) {
	var recs []MovieRecord
	if err := r.movieGraph(ctx).Where("movies.year = ?", year).Order(titleAsc).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get movies of %d: %w", year, err)
	}
	return newHydrator().movieList(recs), nil
}

func (r *DatabaseRepo) GetNumberOfMovies(ctx context.Context) (int, error) {
	var count int
	if r.readCache(ctx, cache.MovieCountKey, &count) {
		return count, nil
	}

	n, err := gorm.G[MovieRecord](r.db).Count(ctx, "*")
	if err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	count = int(n)
	r.writeCache(ctx, cache.MovieCountKey, count)
	return count, nil
}

func (r *DatabaseRepo) GetFirstMovie(ctx context.Context) (*model.Movie, error) {
	return r.edgeMovie(ctx, titleAsc)
}

func (r *DatabaseRepo) GetLastMovie(ctx context.Context) (*model.Movie, error) {
	return r.edgeMovie(ctx, titleDesc)
}

func (r *DatabaseRepo) edgeMovie(ctx context.Context, order string) (*model.Movie, error) {
	var rec MovieRecord
	err := r.movieGraph(ctx).Order(order).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return newHydrator().movie(&rec), nil
}

func (r *DatabaseRepo) GetMoviesByRank(ctx context.Context, ranks []int) ([]*model.Movie, error) {
	if len(ranks) == 0 {
		return []*model.Movie{}, nil
	}
	var recs []MovieRecord
	if err := r.movieGraph(ctx).Where("movies.rank IN ?", ranks).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get movies by rank: %w", err)
	}

	h := newHydrator()
	byRank := make(map[int]*model.Movie, len(recs))
	for i := range recs {
		byRank[recs[i].Rank] = h.movie(&recs[i])
	}
	movies := make([]*model.Movie, 0, len(ranks))
	for _, rank := range ranks {
		if movie, ok := byRank[rank]; ok {
			movies = append(movies, movie)
		}
	}
	return movies, nil
}

func (r *DatabaseRepo) GetMoviesByDirector(ctx context.Context, name string) ([]*model.Movie, error) {
	var recs []MovieRecord
	err := r.movieGraph(ctx).
		Joins("JOIN directors ON directors.id = movies.director_id").
		Where("directors.name = ?", name).
		Order("movies.rank").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("get movies by director %q: %w", name, err)
	}
	return newHydrator().movieList(recs), nil
}

func (r *DatabaseRepo) GetMovieRanksForGenre(ctx context.Context, name string) ([]int, error) {
	key := cache.MakeGenreRanksKey(name)
	var ranks []int
	if r.readCache(ctx, key, &ranks) {
		return ranks, nil
	}

	err := r.db.WithContext(ctx).
		Table("movie_genres").
		Joins("JOIN genres ON genres.id = movie_genres.genre_id").
		Where("genres.name = ?", name).
		Order("movie_genres.movie_rank").
		Pluck("movie_genres.movie_rank", &ranks).Error
	if err != nil {
		return nil, fmt.Errorf("get ranks for genre %q: %w", name, err)
	}
	if ranks == nil {
		ranks = []int{}
	}
	r.writeCache(ctx, key, ranks)
	return ranks, nil
}

func (r *DatabaseRepo) GetMovieRanksForActor(ctx context.Context, name string) ([]int, error) {
	var ranks []int
	err := r.db.WithContext(ctx).
		Table("movie_actors").
		Joins("JOIN actors ON actors.id = movie_actors.actor_id").
		Where("actors.name = ?", name).
		Order("movie_actors.movie_rank").
		Pluck("movie_actors.movie_rank", &ranks).Error
	if err != nil {
		return nil, fmt.Errorf("get ranks for actor %q: %w", name, err)
	}
	if ranks == nil {
		ranks = []int{}
	}
	return ranks, nil
}

func (r *DatabaseRepo) GetMovieRanksForDirector(ctx context.Context, name string) ([]int, error) {
	var ranks []int
	err := r.db.WithContext(ctx).
		Table("movies").
		Joins("JOIN directors ON directors.id = movies.director_id").
		Where("directors.name = ?", name).
		Order("movies.rank").
		Pluck("movies.rank", &ranks).Error
	if err != nil {
		return nil, fmt.Errorf("get ranks for director %q: %w", name, err)
	}
	if ranks == nil {
		ranks = []int{}
	}
	return ranks, nil
}

func (r *DatabaseRepo) GetYearOfPreviousMovie(ctx context.Context, movie *model.Movie) (int, bool, error) {
	if movie == nil {
		return 0, false, nil
	}
	return r.neighbourYear(ctx, "year < ?", "year DESC", movie.Year)
}

func (r *DatabaseRepo) GetYearOfNextMovie(ctx context.Context, movie *model.Movie) (int, bool, error) {
	if movie == nil {
		return 0, false, nil
	}
	return r.neighbourYear(ctx, "year > ?", "year ASC", movie.Year)
}

func (r *DatabaseRepo) neighbourYear(ctx context.Context, cond, order string, year int) (int, bool, error) {
	rec, err := gorm.G[MovieRecord](r.db).Where(cond, year).Order(order).Take(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("find year next to %d: %w", year, err)
	}
	return rec.Year, true, nil
}

func (r *DatabaseRepo) AddGenre(ctx context.Context, genre *model.Genre) error {
	err := r.unitOfWork(ctx, func(tx *gorm.DB) error {
		rec, err := firstOrCreateGenre(tx, genre.Name)
		if err != nil {
			return err
		}
		movies, err := storedMovies(tx, genre.Movies())
		if err != nil || len(movies) == 0 {
			return err
		}
		if err := tx.Model(rec).Association("Movies").Append(&movies); err != nil {
			return fmt.Errorf("link genre %q: %w", genre.Name, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.invalidate(ctx, cache.MakeGenreRanksKey(genre.Name))
	return nil
}

func (r *DatabaseRepo) GetGenres(ctx context.Context) ([]*model.Genre, error) {
	var recs []GenreRecord
	if err := r.db.WithContext(ctx).Preload("Movies", orderBy("movies.rank")).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get genres: %w", err)
	}
	h := newHydrator()
	genres := make([]*model.Genre, 0, len(recs))
	for i := range recs {
		genres = append(genres, h.genre(&recs[i]))
	}
	return genres, nil
}

func (r *DatabaseRepo) AddActor(ctx context.Context, actor *model.Actor) error {
	return r.unitOfWork(ctx, func(tx *gorm.DB) error {
		rec, err := firstOrCreateActor(tx, actor.FullName)
		if err != nil {
			return err
		}
		movies, err := storedMovies(tx, actor.Movies())
		if err != nil || len(movies) == 0 {
			return err
		}
		if err := tx.Model(rec).Association("Movies").Append(&movies); err != nil {
			return fmt.Errorf("link actor %q: %w", actor.FullName, err)
		}
		return nil
	})
}

func (r *DatabaseRepo) GetActors(ctx context.Context) ([]*model.Actor, error) {
	var recs []ActorRecord
	if err := r.db.WithContext(ctx).Preload("Movies", orderBy("movies.rank")).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get actors: %w", err)
	}
	h := newHydrator()
	actors := make([]*model.Actor, 0, len(recs))
	for i := range recs {
		actors = append(actors, h.actor(&recs[i]))
	}
	return actors, nil
}

func (r *DatabaseRepo) AddDirector(ctx context.Context, director *model.Director) error {
	return r.unitOfWork(ctx, func(tx *gorm.DB) error {
		rec, err := firstOrCreateDirector(tx, director.FullName)
		if err != nil {
			return err
		}
		ranks := movieRanks(director.Movies())
		if len(ranks) == 0 {
			return nil
		}
		err = tx.Model(&MovieRecord{}).Where("rank IN ?", ranks).Update("director_id", rec.ID).Error
		if err != nil {
			return fmt.Errorf("link director %q: %w", director.FullName, err)
		}
		return nil
	})
}

func (r *DatabaseRepo) GetDirectors(ctx context.Context) ([]*model.Director, error) {
	var recs []DirectorRecord
	if err := r.db.WithContext(ctx).Preload("Movies", orderBy("movies.rank")).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get directors: %w", err)
	}
	h := newHydrator()
	directors := make([]*model.Director, 0, len(recs))
	for i := range recs {
		directors = append(directors, h.director(&recs[i]))
	}
	return directors, nil
}

func (r *DatabaseRepo) AddReview(ctx context.Context, review *model.Review) error {
	if err := validateReview(review); err != nil {
		return err
	}
	return r.unitOfWork(ctx, func(tx *gorm.DB) error {
		username, rank := review.User().Username, review.Movie().Rank

		user, err := gorm.G[UserRecord](tx).Where("username = ?", username).First(ctx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %q is not stored", model.ErrInvariantViolation, username)
			}
			return err
		}
		if _, err := gorm.G[MovieRecord](tx).Where("rank = ?", rank).First(ctx); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: movie %d is not stored", model.ErrInvariantViolation, rank)
			}
			return err
		}

		rec := &ReviewRecord{
			UserID:    user.ID,
			MovieRank: rank,
			Review:    review.Text,
			Rating:    review.Rating,
			Timestamp: review.Timestamp,
		}
		if err := gorm.G[ReviewRecord](tx).Create(ctx, rec); err != nil {
			return fmt.Errorf("add review: %w", err)
		}
		return nil
	})
}

func (r *DatabaseRepo) GetReviews(ctx context.Context) ([]*model.Review, error) {
	var recs []ReviewRecord
	if err := r.db.WithContext(ctx).Preload("User").Preload("Movie").Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get reviews: %w", err)
	}
	h := newHydrator()
	reviews := make([]*model.Review, 0, len(recs))
	for i := range recs {
		reviews = append(reviews, h.review(&recs[i], nil, nil))
	}
	return reviews, nil
}

// cache helpers; cache failures only cost a database round trip

func (r *DatabaseRepo) readCache(ctx context.Context, key string, dest any) bool {
	if r.cache == nil || r.stale != nil {
		return false
	}
	if err := r.cache.Get(ctx, key, dest); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.log.Debug("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return true
}

func (r *DatabaseRepo) writeCache(ctx context.Context, key string, value any) {
	if r.cache == nil || r.stale != nil {
		return
	}
	if err := r.cache.Set(ctx, key, value, cacheTTL); err != nil {
		r.log.Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *DatabaseRepo) invalidate(ctx context.Context, keys ...string) {
	if r.cache == nil || len(keys) == 0 {
		return
	}
	if r.stale != nil {
		r.stale.add(keys...)
	}
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.log.Debug("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func firstOrCreateGenre(tx *gorm.DB, name string) (*GenreRecord, error) {
	rec := &GenreRecord{}
	if err := tx.Where(GenreRecord{Name: name}).FirstOrCreate(rec).Error; err != nil {
		return nil, fmt.Errorf("store genre %q: %w", name, err)
	}
	return rec, nil
}

func firstOrCreateActor(tx *gorm.DB, name string) (*ActorRecord, error) {
	rec := &ActorRecord{}
	if err := tx.Where(ActorRecord{Name: name}).FirstOrCreate(rec).Error; err != nil {
		return nil, fmt.Errorf("store actor %q: %w", name, err)
	}
	return rec, nil
}

func firstOrCreateDirector(tx *gorm.DB, name string) (*DirectorRecord, error) {
	rec := &DirectorRecord{}
	if err := tx.Where(DirectorRecord{Name: name}).FirstOrCreate(rec).Error; err != nil {
		return nil, fmt.Errorf("store director %q: %w", name, err)
	}
	return rec, nil
}

// storedMovies loads the rows of the given movies that are already persisted.
func storedMovies(tx *gorm.DB, movies []*model.Movie) ([]MovieRecord, error) {
	ranks := movieRanks(movies)
	if len(ranks) == 0 {
		return nil, nil
	}
	var recs []MovieRecord
	if err := tx.Where("rank IN ?", ranks).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func movieRanks(movies []*model.Movie) []int {
	ranks := make([]int, 0, len(movies))
	for _, m := range movies {
		ranks = append(ranks, m.Rank)
	}
	return ranks
}
