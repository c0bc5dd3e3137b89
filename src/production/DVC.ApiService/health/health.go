package health

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	config "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Config"
	implementation "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Repository/Implementation"
	interfaces "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Repository/Interfaces"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusDegraded = "degraded"
)

// HealthChecker provides health check functionality
type HealthChecker struct {
	store interfaces.Pinger
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(store interfaces.Pinger) *HealthChecker {
	return &HealthChecker{store: store}
}

// PingStore checks if the device store is reachable
func (h *HealthChecker) PingStore(ctx context.Context) error {
	if h.store == nil {
		return fmt.Errorf("store connection is nil")
	}
	return h.store.PingContext(ctx)
}

// GetHealthStatus returns the current health status
func (h *HealthChecker) GetHealthStatus(ctx context.Context) map[string]interface{} {
	checks := make(map[string]interface{})
	status := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}

	if err := h.PingStore(ctx); err != nil {
		checks["store"] = map[string]interface{}{
			"status": StatusError,
			"error":  err.Error(),
		}
		status["status"] = StatusDegraded
		return status
	}

	checks["store"] = map[string]interface{}{"status": StatusOK}
	status["status"] = StatusOK
	return status
}

// DatabaseManager handles schema bootstrap for the SQL stores
type DatabaseManager struct {
	db      *sql.DB
	dialect implementation.Dialect
}

// NewDatabaseManager creates a new database manager
func NewDatabaseManager(db *sql.DB, dialect implementation.Dialect) *DatabaseManager {
	return &DatabaseManager{db: db, dialect: dialect}
}

// CreateTables creates the devices table and its indexes if they don't exist
func (dm *DatabaseManager) CreateTables(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, query := range dm.dialect.DeviceTableDDL() {
		if _, err := dm.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// ConnectPostgresWithTimeout creates a PostgreSQL connection with a timeout context
func ConnectPostgresWithTimeout(cfg *config.Config, timeout time.Duration) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to open PostgreSQL connection: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping PostgreSQL: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MinConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// ConnectSQLite opens the SQLite file at path, creating its directory first
func ConnectSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("unable to create SQLite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("unable to open SQLite database: %w", err)
	}

	// one writer at a time
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping SQLite: %w", err)
	}

	return db, nil
}

// ConnectGorm opens a gorm session on PostgreSQL and applies the same pool settings
func ConnectGorm(cfg *config.Config, timeout time.Duration) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open gorm connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unable to get gorm connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("unable to ping PostgreSQL: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MinConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
