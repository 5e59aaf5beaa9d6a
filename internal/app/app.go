// Package app wires configuration, infrastructure and the sync pipeline
// together for the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/httpclient"
	"github.com/Ramsey-B/clover/pkg/loader"
	"github.com/Ramsey-B/clover/pkg/pipeline"
	"github.com/Ramsey-B/clover/pkg/provider"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

const runLockPrefix = "clover:"

type App struct {
	Config *config.Config
	Logger ectologger.Logger

	startup  *startup.Startup
	storage  *startup.Startup
	database *DatabaseDependency
	redis    *RedisDependency
	kafka    *KafkaDependency
	tracing  func(context.Context) error
}

// New registers the dependencies the configuration enables. The database
// is kept out of Start and only connected when a batch is ready to load.
func New(cfg *config.Config, logger ectologger.Logger) *App {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
		storage: startup.NewStartup(logger, cfg.StartupMaxAttempts),
		database: &DatabaseDependency{
			cfg:     cfg,
			logger:  logger,
			migrate: cfg.DatabaseMigrateOnStart,
		},
	}
	a.storage.AddDependency(a.database)

	if cfg.RedisEnabled {
		a.redis = &RedisDependency{cfg: cfg, logger: logger}
		a.startup.AddDependency(a.redis)
	}
	if cfg.KafkaEnabled {
		a.kafka = &KafkaDependency{cfg: cfg, logger: logger}
		a.startup.AddDependency(a.kafka)
	}

	return a
}

// Start sets up tracing and starts the run-scoped dependencies.
func (a *App) Start(ctx context.Context) error {
	if err := a.setupTracing(ctx); err != nil {
		return err
	}
	return a.startup.Start(ctx)
}

// Stop releases dependencies and flushes traces.
func (a *App) Stop(ctx context.Context) error {
	err := a.startup.Stop(ctx)
	if storageErr := a.storage.Stop(ctx); storageErr != nil && err == nil {
		err = storageErr
	}
	if a.tracing != nil {
		if tracingErr := a.tracing(ctx); tracingErr != nil && err == nil {
			err = tracingErr
		}
	}
	return err
}

func (a *App) setupTracing(ctx context.Context) error {
	if !a.Config.OTLPEnabled {
		if a.Config.LogLevel == "debug" {
			a.tracing = tracing.Setup(a.Config.AppName, &exporters.ConsoleExporter{Logger: a.Logger})
		}
		return nil
	}

	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: a.Config.OTLPEndpoint,
		Protocol: a.Config.OTLPProtocol,
		Insecure: a.Config.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	a.tracing = tracing.Setup(a.Config.AppName, exporter)
	return nil
}

// StartStorage connects to PostgreSQL and applies migrations. Repeated
// calls after a successful start are no-ops.
func (a *App) StartStorage(ctx context.Context) (database.DB, error) {
	if err := a.storage.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start database: %w", err)
	}
	return a.database.DB, nil
}

// Pipeline builds the sync pipeline over the started dependencies.
func (a *App) Pipeline() *pipeline.Pipeline {
	client := httpclient.NewClient(httpclient.Config{
		Timeout:         a.Config.PlansTimeout,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
		UserAgent:       a.Config.UserAgent,
	}, a.Logger)

	api := provider.NewClient(client, provider.Config{
		ZipLookupURL:     a.Config.ZipLookupURL,
		PlansURL:         a.Config.PlansURL,
		ZipLookupTimeout: a.Config.ZipLookupTimeout,
		PlansTimeout:     a.Config.PlansTimeout,
	}, a.Logger)

	p := pipeline.NewPipeline(api, api, &storageLoader{app: a}, pipeline.Config{
		Group:          a.Config.Group,
		ZipLookupDelay: a.Config.ZipLookupDelay,
		PlansDelay:     a.Config.PlansDelay,
	}, a.Logger)

	if a.redis != nil {
		p.WithLocker(NewRunLocker(redis.NewLocker(a.redis.Client, runLockPrefix), a.Config.RunLockTTL))
	}
	if a.kafka != nil {
		p.WithEvents(a.kafka.Producer)
	}
	return p
}

// storageLoader connects the database on the first Load, so resolution and
// fetching never touch PostgreSQL.
type storageLoader struct {
	app *App
}

func (l *storageLoader) Load(ctx context.Context, batch loader.Batch) (*loader.Result, error) {
	db, err := l.app.StartStorage(ctx)
	if err != nil {
		return nil, err
	}
	repos := loader.NewRepositories(db, l.app.Logger, l.app.Config.DefaultState)
	return loader.NewLoader(db, repos, l.app.Logger).Load(ctx, batch)
}

// RunLocker adapts the Redis locker to the pipeline's run lock.
type RunLocker struct {
	locker *redis.Locker
	ttl    time.Duration
}

func NewRunLocker(locker *redis.Locker, ttl time.Duration) *RunLocker {
	return &RunLocker{locker: locker, ttl: ttl}
}

func (l *RunLocker) AcquireRun(ctx context.Context, group string) (func(context.Context) error, error) {
	lock, err := l.locker.Acquire(ctx, RunLockKey(group), l.ttl)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: lock %s%s is held", pipeline.ErrRunInProgress, runLockPrefix, RunLockKey(group))
		}
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return lock.Release, nil
}

// RunLockKey is the lock key for a group, relative to the locker prefix.
func RunLockKey(group string) string {
	return "run:" + group
}
