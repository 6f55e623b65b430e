// Package app wires configuration into the extraction pipeline and the
// dashboard server shared by the api and extractor binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/user/poll-extractor/internal/adapter/chromedp_browser"
	"github.com/user/poll-extractor/internal/adapter/filestore"
	"github.com/user/poll-extractor/internal/adapter/memory"
	"github.com/user/poll-extractor/internal/adapter/postgres"
	redis_adapter "github.com/user/poll-extractor/internal/adapter/redis"
	"github.com/user/poll-extractor/internal/adapter/resty_fetcher"
	"github.com/user/poll-extractor/internal/credentials"
	"github.com/user/poll-extractor/internal/delivery/http/handler"
	"github.com/user/poll-extractor/internal/delivery/http/router"
	"github.com/user/poll-extractor/internal/repository"
	"github.com/user/poll-extractor/internal/usecase"
	"github.com/user/poll-extractor/pkg/config"
)

// App holds the wired components of one process.
type App struct {
	Config      *config.Config
	Results     repository.ResultRepository
	History     repository.RunHistoryRepository
	Failures    repository.FailedDownloadRepository
	Progress    *usecase.ProgressBroadcaster
	Downloader  *usecase.Downloader
	Runner      usecase.CourseRunner
	Reorganizer *usecase.Reorganizer
	Coordinator *usecase.RunCoordinator
	Catalog     usecase.Catalog
	// SharedProgress is the Redis progress channel, nil without REDIS_ADDR.
	SharedProgress *redis_adapter.ProgressRepoImpl

	db  *pgxpool.Pool
	rdb *redis.Client
}

// New builds the pipeline. PostgreSQL and Redis are used only when
// configured; otherwise run history stays in memory and progress is logged.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:   cfg,
		Results:  filestore.NewResultRepository(cfg.OutputDir),
		History:  memory.NewRunHistoryRepository(),
		Failures: memory.NewFailedDownloadRepository(),
		Progress: usecase.NewProgressBroadcaster(usecase.LogNotifier{}),
	}

	if cfg.PostgresURL != "" {
		db, err := postgres.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.History = postgres.NewRunHistoryRepo(db)
		a.Failures = postgres.NewFailedDownloadRepo(db)
		slog.Info("PostgreSQL run history enabled")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			_ = rdb.Close()
			a.Close()
			return nil, fmt.Errorf("unable to connect to Redis: %w", err)
		}
		a.rdb = rdb
		a.SharedProgress = redis_adapter.NewProgressRepo(rdb)
		a.Progress.Subscribe(a.SharedProgress)
		slog.Info("Redis progress publishing enabled", "channel", redis_adapter.ProgressChannel)
	}

	a.Downloader = usecase.NewDownloader(resty_fetcher.NewFetcher(cfg.DownloadTimeout), a.Failures)
	a.Runner = usecase.NewCourseRunner(
		usecase.RunnerConfig{
			PortalBaseURL:   cfg.PortalBaseURL,
			ImagesDir:       cfg.ImagesDir,
			ListingLoadWait: cfg.ListingLoadWait,
		},
		chromedp_browser.NewLauncher(cfg.Headless, cfg.DriverTimeout, cfg.ChromePath),
		usecase.NewAuthenticator(usecase.DefaultAuthOptions(cfg.PortalBaseURL, cfg.NavigationWait, cfg.LoginWait)),
		usecase.NewDiscoverer(usecase.DefaultDiscoveryOptions(cfg.NavigationWait, cfg.MaxDiscoveryAttempts)),
		usecase.NewExtractor(cfg.PortalBaseURL, cfg.ActivityLoadWait),
		a.Downloader,
		usecase.NewAssembler(a.Results),
		a.History,
		a.Progress,
	)
	a.Reorganizer = usecase.NewReorganizer(a.Results, cfg.ImagesDir)
	a.Coordinator = usecase.NewRunCoordinator(a.Runner, a.Reorganizer, a.Progress, cfg.AutoReorganize)
	if a.rdb != nil {
		a.Coordinator.UseLock(redis_adapter.NewRunLockRepo(a.rdb), cfg.RunLockTTL)
		a.Coordinator.ShareProgress(a.SharedProgress)
	}
	a.Catalog = usecase.NewCatalog(a.Results)
	return a, nil
}

// Credentials resolves the portal login from the environment and the
// configured credentials file.
func (a *App) Credentials() (credentials.Credentials, error) {
	return credentials.Resolve("", "", a.Config.CredentialsFile)
}

// Server builds the dashboard HTTP server.
func (a *App) Server(creds handler.CredentialsFunc) *http.Server {
	if creds == nil {
		creds = a.Credentials
	}
	apiHandler := handler.NewHandler(a.Coordinator, a.Catalog, a.History, a.Failures, a.Reorganizer, creds, a.Config.OutputDir)
	return &http.Server{
		Addr:         ":" + a.Config.ServerPort,
		Handler:      router.New(apiHandler, a.Config.ImagesDir),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			slog.Warn("Failed to close Redis client", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
