package agent

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	config "github.com/heroku-miraheze/ed2kd/internal/config/server"
	"github.com/heroku-miraheze/ed2kd/pkg/db/store"
	"github.com/heroku-miraheze/ed2kd/pkg/log"
	"github.com/mwantia/fabric/pkg/container"
)

type CatalogAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg     *config.BaseServerConfig
	sc      *container.ServiceContainer
	log     log.LoggerService
	catalog *store.SQLiteStore
}

func NewAgent(cfg *config.BaseServerConfig) *CatalogAgent {
	return &CatalogAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("ed2kd", cfg.Log),
	}
}

func (ca *CatalogAgent) setupCatalog(ctx context.Context) error {
	catalog, err := store.NewSQLiteStore(store.SQLiteConfig{
		DSN:          ca.cfg.Catalog.DSN,
		MaxOpenConns: ca.cfg.Catalog.MaxOpenConns,
		Logger:       ca.log.Named("catalog"),
	})
	if err != nil {
		return fmt.Errorf("failed to open catalog store: %w", err)
	}

	if err := catalog.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect catalog store: %w", err)
	}
	if err := catalog.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate catalog store: %w", err)
	}
	// The catalog is a working set rebuilt from live announcements, so
	// a restart always starts from an empty index.
	if err := catalog.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset catalog store: %w", err)
	}

	ca.catalog = catalog
	return nil
}

func (ca *CatalogAgent) setupServices() error {
	errs := container.Errors{}

	ca.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](ca.sc,
		container.With[log.LoggerService](),
		container.WithInstance(ca.log)))

	ca.log.Debug("Registering 'LoggerTagProcessor'...")
	errs.Add(container.Register[log.LoggerTagProcessor](ca.sc,
		container.With[log.TagProcessor](),
		container.WithInstance(log.NewLoggerTagProcessor())))

	ca.log.Debug("Registering 'CatalogStore'...")
	errs.Add(container.Register[store.SQLiteStore](ca.sc,
		container.With[store.CatalogStore](),
		container.WithInstance(ca.catalog)))

	return errs.Errors()
}

func (ca *CatalogAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	ca.mutex.Lock()

	if err := ca.setupCatalog(ctx); err != nil {
		ca.mutex.Unlock()
		return err
	}
	if err := ca.setupServices(); err != nil {
		ca.mutex.Unlock()
		return err
	}

	ca.mutex.Unlock()

	ca.log.Info("Catalog ready, awaiting sessions")
	<-ctx.Done()

	timeout, err := time.ParseDuration(ca.cfg.ShutdownTimeout)
	if err != nil {
		// Set default of 60 seconds if error
		timeout = 60 * time.Second
	}

	shutdown, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := ca.sc.Cleanup(shutdown); err != nil {
		return fmt.Errorf("failed to complete service container cleanup: %w", err)
	}

	if err := ca.catalog.Close(); err != nil {
		return fmt.Errorf("failed to close catalog store: %w", err)
	}

	ca.wait.Wait()
	return nil
}
