package app

import (
	"context"
	"errors"

	"github.com/qs-lzh/movie-catalog/config"
	"github.com/qs-lzh/movie-catalog/internal/cache"
	"github.com/qs-lzh/movie-catalog/internal/loader"
	"github.com/qs-lzh/movie-catalog/internal/mq"
	"github.com/qs-lzh/movie-catalog/internal/repository"
	"github.com/qs-lzh/movie-catalog/internal/service/domain"
	"github.com/qs-lzh/movie-catalog/internal/service/workflow"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the wired catalog. DB, Cache and MQConn are nil when the
// configuration leaves them out.
type App struct {
	Config *config.Config

	DB     *gorm.DB
	Cache  *cache.RedisCache
	Logger *zap.Logger
	MQConn *amqp.Connection

	Repo      repository.Repository
	Publisher *mq.Publisher

	MovieService  domain.MovieService
	ReviewService domain.ReviewService
	UserService   domain.UserService

	ReviewStatsWorkflow *workflow.ReviewStatsWorkflow
}

func New(config *config.Config, logger *zap.Logger, db *gorm.DB, redisCache *cache.RedisCache, mqConn *amqp.Connection) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var repo repository.Repository
	switch {
	case db != nil:
		var opts []repository.Option
		if redisCache != nil {
			opts = append(opts, repository.WithCache(redisCache))
		}
		repo = repository.NewDatabaseRepo(db, logger.Named("repository"), opts...)
	default:
		repo = repository.NewMemoryRepo()
	}

	app := &App{
		Config: config,
		DB:     db,
		Cache:  redisCache,
		Logger: logger,
		MQConn: mqConn,
		Repo:   repo,
	}

	var publisher domain.ReviewPublisher
	if mqConn != nil {
		p, err := mq.NewPublisher(mqConn)
		if err != nil {
			return nil, err
		}
		app.Publisher = p
		publisher = p
	}
	var stats domain.ReviewStatsReader
	if redisCache != nil {
		stats = redisCache
		app.ReviewStatsWorkflow = workflow.NewReviewStatsWorkflow(redisCache, logger.Named("workflow"))
	}

	app.MovieService = domain.NewMovieService(repo)
	app.ReviewService = domain.NewReviewService(repo, publisher, stats, logger.Named("review"))
	app.UserService = domain.NewUserService(repo, 0)

	return app, nil
}

// Init prepares storage, loads the catalog, rebuilds the review statistics
// when a cache is configured and starts their consumer when a broker is too.
func (app *App) Init(ctx context.Context) error {
	// init database
	if app.DB != nil {
		if err := repository.Migrate(app.DB.WithContext(ctx)); err != nil {
			return err
		}
	}

	if app.Config.DataPath != "" {
		n, err := app.Repo.GetNumberOfMovies(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			l := loader.New(app.Repo, app.Logger.Named("loader"))
			if err := l.Populate(ctx, app.Config.DataPath); err != nil {
				return err
			}
		} else {
			app.Logger.Info("catalog already populated", zap.Int("movies", n))
		}
	}

	// init rabbit mq
	if app.MQConn != nil {
		if err := mq.InitQueues(app.MQConn); err != nil {
			return err
		}
	}

	if app.ReviewStatsWorkflow != nil {
		if err := app.rebuildReviewStats(ctx); err != nil {
			return err
		}
		if app.MQConn != nil {
			if err := app.ReviewStatsWorkflow.Start(app.MQConn); err != nil {
				return err
			}
		}
	}

	return nil
}

// rebuildReviewStats makes the recorded statistics match the stored reviews.
// Messages still queued describe reviews that are either stored, and so
// counted here, or lost with an in-memory catalog, so they are dropped.
func (app *App) rebuildReviewStats(ctx context.Context) error {
	if app.MQConn != nil {
		if err := mq.ClearQueue(app.MQConn, mq.ReviewStatsImmediateQueue); err != nil {
			return err
		}
	}
	reviews, err := app.Repo.GetReviews(ctx)
	if err != nil {
		return err
	}
	return app.ReviewStatsWorkflow.Rebuild(ctx, reviews)
}

func (app *App) Close() error {
	var errs []error
	if app.Publisher != nil {
		errs = append(errs, app.Publisher.Close())
	}
	if app.MQConn != nil {
		errs = append(errs, app.MQConn.Close())
	}
	if app.Cache != nil {
		errs = append(errs, app.Cache.Close())
	}
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
