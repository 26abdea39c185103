package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qs-lzh/movie-catalog/config"
	"github.com/qs-lzh/movie-catalog/internal/app"
	"github.com/qs-lzh/movie-catalog/internal/cache"
	"github.com/qs-lzh/movie-catalog/internal/mq"
	"github.com/qs-lzh/movie-catalog/internal/repository"
	"github.com/qs-lzh/movie-catalog/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := util.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *gorm.DB
	if cfg.Repository == config.RepositoryDatabase {
		if db, err = repository.Open(cfg.DatabaseDSN, logger); err != nil {
			return err
		}
	}

	var redisCache *cache.RedisCache
	if cfg.CacheURL != "" {
		if redisCache, err = cache.NewRedisCache(cfg.CacheURL); err != nil {
			return fmt.Errorf("failed to create redis cache: %w", err)
		}
		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}
	}

	var mqConn *amqp.Connection
	if cfg.MQURL != "" {
		if mqConn, err = mq.NewMQConn(cfg.MQURL); err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
	}

	application, err := app.New(cfg, logger, db, redisCache, mqConn)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}()

	if err := application.Init(ctx); err != nil {
		return err
	}

	summary, err := application.MovieService.Summary(ctx)
	if err != nil {
		return err
	}
	fields := []zap.Field{
		zap.String("repository", string(cfg.Repository)),
		zap.Int("movies", summary.Movies),
		zap.Int("genres", summary.Genres),
		zap.Int("actors", summary.Actors),
		zap.Int("directors", summary.Directors),
		zap.Int("reviews", summary.Reviews),
	}
	if summary.FirstMovie != nil {
		fields = append(fields, zap.Stringer("first", summary.FirstMovie), zap.Stringer("last", summary.LastMovie))
	}
	logger.Info("catalog ready", fields...)

	if application.ReviewStatsWorkflow == nil {
		return nil
	}
	logger.Info("review statistics workflow running")
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
