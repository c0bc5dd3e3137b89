package implementation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dvcmodels "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Models"
)

const deviceColumns = `id, name, brand, state, creation_time`

// SQLDeviceRepository stores devices through database/sql (lib/pq or go-sqlite3)
type SQLDeviceRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewPostgresDeviceRepository(db *sql.DB) *SQLDeviceRepository {
	return &SQLDeviceRepository{db: db, dialect: DialectPostgres}
}

func NewSQLiteDeviceRepository(db *sql.DB) *SQLDeviceRepository {
	return &SQLDeviceRepository{db: db, dialect: DialectSQLite}
}

// Save inserts a new device or overwrites an existing one
func (r *SQLDeviceRepository) Save(ctx context.Context, device *dvcmodels.Device) (*dvcmodels.Device, error) {
	if device == nil {
		return nil, fmt.Errorf("device must not be nil")
	}
	saved := *device
	if saved.State == "" {
		saved.State = dvcmodels.StateAvailable
	}

	if saved.ID == 0 {
		if saved.CreationTime.IsZero() {
			saved.CreationTime = time.Now().UTC()
		}
		query := r.dialect.Rebind(`
			INSERT INTO devices (name, brand, state, creation_time)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`)
		if err := r.db.QueryRowContext(ctx, query, saved.Name, saved.Brand, string(saved.State), saved.CreationTime).Scan(&saved.ID); err != nil {
			return nil, fmt.Errorf("failed to insert device: %w", err)
		}
		return &saved, nil
	}

	query := r.dialect.Rebind(`
		UPDATE devices
		SET name = $1, brand = $2, state = $3
		WHERE id = $4
	`)
	result, err := r.db.ExecContext(ctx, query, saved.Name, saved.Brand, string(saved.State), saved.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update device %d: %w", saved.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, sql.ErrNoRows
	}

	// creation_time is never rewritten, return the stored row
	return r.FindByID(ctx, saved.ID)
}

func (r *SQLDeviceRepository) FindByID(ctx context.Context, id int64) (*dvcmodels.Device, error) {
	query := r.dialect.Rebind(`SELECT ` + deviceColumns + ` FROM devices WHERE id = $1`)

	device, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get device %d: %w", id, err)
	}
	return device, nil
}

func (r *SQLDeviceRepository) FindAll(ctx context.Context) ([]dvcmodels.Device, error) {
	return r.list(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY id`)
}

// FindByBrandContaining matches brand as a literal, case-insensitive substring
func (r *SQLDeviceRepository) FindByBrandContaining(ctx context.Context, brand string) ([]dvcmodels.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE ` + r.dialect.containsFold("brand") + ` ORDER BY id`
	return r.list(ctx, r.dialect.Rebind(query), brand)
}

func (r *SQLDeviceRepository) FindByState(ctx context.Context, state dvcmodels.State) ([]dvcmodels.Device, error) {
	query := r.dialect.Rebind(`SELECT ` + deviceColumns + ` FROM devices WHERE state = $1 ORDER BY id`)
	return r.list(ctx, query, string(state))
}

func (r *SQLDeviceRepository) DeleteByID(ctx context.Context, id int64) error {
	query := r.dialect.Rebind(`DELETE FROM devices WHERE id = $1`)

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete device %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *SQLDeviceRepository) list(ctx context.Context, query string, args ...interface{}) ([]dvcmodels.Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	devices := make([]dvcmodels.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (*dvcmodels.Device, error) {
	var device dvcmodels.Device
	var state string

	if err := row.Scan(&device.ID, &device.Name, &device.Brand, &state, &device.CreationTime); err != nil {
		return nil, err
	}

	parsed, err := dvcmodels.ParseState(state)
	if err != nil {
		return nil, fmt.Errorf("device %d has corrupt state: %w", device.ID, err)
	}
	device.State = parsed
	device.CreationTime = device.CreationTime.UTC()

	return &device, nil
}
