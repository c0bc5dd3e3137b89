package container

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.ApiService/health"
	config "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Config"
	dvcevents "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Events"
	logger "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Logger"
	implementation "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Repository/Implementation"
	interfaces "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Repository/Interfaces"
)

const (
	connectTimeout     = 20 * time.Second
	mqttConnectTimeout = 10 * time.Second
)

// Container manages dependencies and their lifecycle
type Container struct {
	config *config.Config
	logger *logger.Logger

	// Store components, opened lazily for the configured driver
	repository interfaces.DeviceRepository
	pinger     interfaces.Pinger
	migrate    func(ctx context.Context) error

	publisher     dvcevents.EventPublisher
	mqtt          *dvcevents.MQTTPublisher
	stateListener *dvcevents.StateListener
	healthChecker *health.HealthChecker

	// Mutex for thread-safe access
	mu sync.Mutex

	// Cleanup functions
	cleanupFuncs []func() error
}

// NewContainer loads configuration from the environment and builds a container
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return NewContainerWithConfig(cfg, logger.NewLogger(&cfg.Logging)), nil
}

// NewContainerWithConfig builds a container around an existing configuration
func NewContainerWithConfig(cfg *config.Config, log *logger.Logger) *Container {
	return &Container{
		config: cfg,
		logger: log,
	}
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetDeviceRepository returns the device store selected by STORE_DRIVER
func (c *Container) GetDeviceRepository() (interfaces.DeviceRepository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.openStoreLocked(); err != nil {
		return nil, err
	}
	return c.repository, nil
}

// openStoreLocked must be called with c.mu held
func (c *Container) openStoreLocked() error {
	if c.repository != nil {
		return nil
	}

	driver := c.config.Database.Driver
	log := c.logger.WithField("driver", driver)

	switch driver {
	case config.DriverPostgres:
		db, err := health.ConnectPostgresWithTimeout(c.config, connectTimeout)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		c.useSQL(db, implementation.DialectPostgres, implementation.NewPostgresDeviceRepository(db))

	case config.DriverSQLite:
		db, err := health.ConnectSQLite(c.config.Database.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		c.useSQL(db, implementation.DialectSQLite, implementation.NewSQLiteDeviceRepository(db))

	case config.DriverGorm:
		gdb, err := health.ConnectGorm(c.config, connectTimeout)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return fmt.Errorf("failed to get gorm connection pool: %w", err)
		}
		repo := implementation.NewGormDeviceRepository(gdb)
		c.repository = repo
		c.pinger = sqlDB
		c.migrate = func(context.Context) error { return repo.AutoMigrate() }
		c.cleanupFuncs = append(c.cleanupFuncs, sqlDB.Close)

	case config.DriverMemory:
		repo := implementation.NewMemoryDeviceRepository()
		c.repository = repo
		c.pinger = repo
		c.migrate = func(context.Context) error { return nil }

	default:
		return fmt.Errorf("unknown store driver %q", driver)
	}

	log.Info("Device store opened")
	return nil
}

func (c *Container) useSQL(db *sql.DB, dialect implementation.Dialect, repo interfaces.DeviceRepository) {
	c.repository = repo
	c.pinger = db
	c.migrate = health.NewDatabaseManager(db, dialect).CreateTables
	c.cleanupFuncs = append(c.cleanupFuncs, db.Close)
}

// InitializeStore opens the store and creates the devices table if needed
func (c *Container) InitializeStore(ctx context.Context) error {
	c.mu.Lock()
	if err := c.openStoreLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	migrate := c.migrate
	c.mu.Unlock()

	if err := migrate(ctx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	c.logger.Info("Device store initialized successfully")
	return nil
}

// GetHealthChecker returns the health checker for the configured store
func (c *Container) GetHealthChecker() (*health.HealthChecker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.healthChecker != nil {
		return c.healthChecker, nil
	}
	if err := c.openStoreLocked(); err != nil {
		return nil, fmt.Errorf("failed to get store for health checker: %w", err)
	}
	c.healthChecker = health.NewHealthChecker(c.pinger)
	return c.healthChecker, nil
}

// GetEventPublisher returns the MQTT publisher when events are enabled and a
// no-op publisher otherwise. A broker that is down at startup is not fatal,
// the client keeps reconnecting in the background.
func (c *Container) GetEventPublisher(ctx context.Context) (dvcevents.EventPublisher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.publisher != nil {
		return c.publisher, nil
	}

	if !c.config.Events.Enabled {
		c.publisher = dvcevents.NopPublisher{}
		return c.publisher, nil
	}

	p, err := dvcevents.NewMQTTPublisher(c.config.Events, c.config.GetMQTTBrokerURL(), c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
	defer cancel()
	if err := p.Connect(connectCtx); err != nil {
		c.logger.WarnWithError(err, "MQTT broker not reachable yet, events will be dropped until it is")
	}

	c.publisher = p
	c.mqtt = p
	c.cleanupFuncs = append(c.cleanupFuncs, func() error {
		p.Close()
		return nil
	})
	return c.publisher, nil
}

// StartStateListener subscribes to device state reports and applies them
// through updater. It returns nil when events are disabled or no state topic
// is configured; GetEventPublisher must have been called first.
func (c *Container) StartStateListener(ctx context.Context, updater dvcevents.StateUpdater) *dvcevents.StateListener {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stateListener != nil {
		return c.stateListener
	}
	if c.mqtt == nil || c.config.Events.StateTopic == "" {
		return nil
	}

	l := dvcevents.NewStateListener(updater, c.config.Events.StateQueueSize, c.logger)
	l.Start(ctx)
	c.mqtt.Subscribe(c.config.Events.StateTopic, l.OnMessage)

	c.stateListener = l
	c.cleanupFuncs = append(c.cleanupFuncs, func() error {
		l.Stop()
		return nil
	})
	return l
}

// HealthCheck performs a comprehensive health check
func (c *Container) HealthCheck(ctx context.Context) map[string]interface{} {
	healthChecker, err := c.GetHealthChecker()
	if err != nil {
		return map[string]interface{}{
			"status": health.StatusError,
			"error":  err.Error(),
		}
	}

	return healthChecker.GetHealthStatus(ctx)
}

// AddCleanupFunc adds a cleanup function
func (c *Container) AddCleanupFunc(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Shutdown gracefully shuts down the container and all its dependencies
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	// Execute cleanup functions in reverse order
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}
