// Package app wires configuration into the stores, adapters and use cases
// shared by the server and the one-shot purge command
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/fixora/tracker/internal/adapter/memory"
	"github.com/fixora/tracker/internal/adapter/notify"
	"github.com/fixora/tracker/internal/adapter/objectstore"
	"github.com/fixora/tracker/internal/adapter/persistence"
	"github.com/fixora/tracker/internal/adapter/redisstore"
	"github.com/fixora/tracker/internal/audit"
	"github.com/fixora/tracker/internal/config"
	"github.com/fixora/tracker/internal/logger"
	"github.com/fixora/tracker/internal/ports"
	"github.com/fixora/tracker/internal/retention"
	"github.com/fixora/tracker/internal/usecase"
)

// App holds the wired components
type App struct {
	UnitOfWork ports.UnitOfWork
	Repos      ports.Repositories
	AuditRepo  ports.AuditRepository
	Objects    ports.ObjectStore
	Notifier   ports.Notifier
	RunLock    ports.RunLock
	Registry   *prometheus.Registry

	Lifecycle *usecase.LifecycleUseCase
	Trash     *usecase.TrashUseCase
	Purger    *retention.Purger

	closers []func() error
}

// New builds every component selected by cfg. A nil clock uses the system
// clock. Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config, clock ports.Clock, log logger.Logger) (*App, error) {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	a := &App{Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := a.initStore(ctx, cfg, log); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initObjectStore(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initRedis(ctx, cfg, log); err != nil {
		a.Close()
		return nil, err
	}

	recorder := audit.NewRecorder(a.AuditRepo, clock, log)
	a.Lifecycle = usecase.NewLifecycleUseCase(a.UnitOfWork, recorder, a.Notifier, clock, cfg.Retention.Window, log)
	a.Trash = usecase.NewTrashUseCase(a.Repos.Projects, a.Repos.Tickets, clock)

	opts := []retention.Option{retention.WithMetrics(retention.NewMetrics(a.Registry))}
	if a.RunLock != nil {
		opts = append(opts, retention.WithRunLock(a.RunLock))
	}
	a.Purger = retention.NewPurger(a.UnitOfWork, a.Repos, a.Objects, recorder, clock, log, purgeConfig(cfg.Retention), opts...)

	return a, nil
}

// purgeConfig maps the retention settings onto the purge engine
func purgeConfig(rc config.RetentionConfig) retention.Config {
	return retention.Config{
		Schedule:       rc.Schedule,
		BatchSize:      rc.BatchSize,
		ObjectAttempts: rc.ObjectAttempts,
		ObjectBackoff:  rc.ObjectBackoff,
		LockName:       rc.LockName,
		LockTTL:        rc.LockTTL,
	}
}

func (a *App) initStore(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := persistence.Open(ctx, cfg.GetDatabaseURL(), persistence.PoolConfig{
			MaxOpenConns: cfg.Database.MaxConnections,
			MaxIdleTime:  cfg.Database.MaxIdleTime,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)

		store := persistence.NewStore(db)
		a.UnitOfWork = store
		a.Repos = store.Repositories()
		a.AuditRepo = store.Audit()
		log.Info(ctx, "Database connection established", map[string]interface{}{
			"host": cfg.Database.Host,
			"name": cfg.Database.DBName,
		})
	case "memory":
		store := memory.NewStore()
		a.UnitOfWork = store
		a.Repos = store.Repositories()
		a.AuditRepo = store.Audit()
		a.RunLock = memory.NewRunLock()
		log.Warn(ctx, "Using in-memory store, data is lost on restart", nil)
	default:
		return fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	return nil
}

func (a *App) initObjectStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.ObjectStore.Driver {
	case "s3":
		store, err := objectstore.NewS3Store(ctx, objectstore.Config{
			Bucket:       cfg.ObjectStore.Bucket,
			Region:       cfg.ObjectStore.Region,
			Endpoint:     cfg.ObjectStore.Endpoint,
			UsePathStyle: cfg.ObjectStore.UsePathStyle,
		})
		if err != nil {
			return err
		}
		a.Objects = store
	case "memory":
		a.Objects = memory.NewObjectStore()
	default:
		return fmt.Errorf("unsupported object store driver: %s", cfg.ObjectStore.Driver)
	}
	return nil
}

func (a *App) initRedis(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	if !cfg.Redis.Enabled {
		a.Notifier = notify.NewLogNotifier(log)
		return nil
	}

	client, err := redisstore.NewClient(ctx, redisstore.Config{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, client.Close)

	a.RunLock = redisstore.NewRunLock(client)
	a.Notifier = redisstore.NewNotifier(client, cfg.Redis.Channel)
	log.Info(ctx, "Redis connection established", map[string]interface{}{
		"addr":    cfg.GetRedisAddr(),
		"channel": cfg.Redis.Channel,
	})
	return nil
}

// Close releases connections in reverse order of creation
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
