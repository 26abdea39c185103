package config

import (
	"fmt"
	"os"

	"github.com/qs-lzh/movie-catalog/internal/util"
)

type RepositoryKind string

const (
	RepositoryMemory   RepositoryKind = "memory"
	RepositoryDatabase RepositoryKind = "database"
)

type Config struct {
	DatabaseDSN string
	CacheURL    string
	MQURL       string
	DataPath    string
	Repository  RepositoryKind
	LogLevel    string
}

func LoadConfig() (*Config, error) {
	if err := util.LoadEnv(); err != nil {
		return nil, err
	}
	databaseDSN := os.Getenv("DATABASE_DSN")
	cacheURL := os.Getenv("CACHE_URL")
	mqURL := os.Getenv("RABBIT_MQ_URL")
	dataPath := os.Getenv("DATA_PATH")
	repository := RepositoryKind(os.Getenv("REPOSITORY"))
	logLevel := os.Getenv("LOG_LEVEL")

	if repository == "" {
		repository = RepositoryMemory
	}
	if logLevel == "" {
		logLevel = "info"
	}

	cfg := &Config{
		DatabaseDSN: databaseDSN,
		CacheURL:    cacheURL,
		MQURL:       mqURL,
		DataPath:    dataPath,
		Repository:  repository,
		LogLevel:    logLevel,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Repository {
	case RepositoryMemory:
	case RepositoryDatabase:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("REPOSITORY=%s requires DATABASE_DSN", c.Repository)
		}
	default:
		return fmt.Errorf("unknown REPOSITORY %q, want %q or %q", c.Repository, RepositoryMemory, RepositoryDatabase)
	}
	return nil
}
