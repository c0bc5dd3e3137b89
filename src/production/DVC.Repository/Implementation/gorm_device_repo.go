package implementation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dvcmodels "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Models"
	"gorm.io/gorm"
)

// deviceRecord is the gorm mapping of the devices table
type deviceRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Name         string    `gorm:"type:text;not null"`
	Brand        string    `gorm:"type:text;not null;index:idx_devices_brand"`
	State        string    `gorm:"type:text;not null;default:'AVAILABLE';index:idx_devices_state"`
	CreationTime time.Time `gorm:"column:creation_time;type:timestamptz;not null;autoCreateTime"`
}

func (deviceRecord) TableName() string {
	return "devices"
}

func toRecord(d *dvcmodels.Device) deviceRecord {
	return deviceRecord{
		ID:           d.ID,
		Name:         d.Name,
		Brand:        d.Brand,
		State:        string(d.State),
		CreationTime: d.CreationTime,
	}
}

func (rec deviceRecord) toModel() (dvcmodels.Device, error) {
	state, err := dvcmodels.ParseState(rec.State)
	if err != nil {
		return dvcmodels.Device{}, fmt.Errorf("device %d has corrupt state: %w", rec.ID, err)
	}
	return dvcmodels.Device{
		ID:           rec.ID,
		Name:         rec.Name,
		Brand:        rec.Brand,
		State:        state,
		CreationTime: rec.CreationTime.UTC(),
	}, nil
}

// GormDeviceRepository stores devices through gorm on Postgres
type GormDeviceRepository struct {
	db *gorm.DB
}

func NewGormDeviceRepository(db *gorm.DB) *GormDeviceRepository {
	return &GormDeviceRepository{db: db}
}

// AutoMigrate creates or extends the devices table
func (r *GormDeviceRepository) AutoMigrate() error {
	if err := r.db.AutoMigrate(&deviceRecord{}); err != nil {
		return fmt.Errorf("failed to migrate devices: %w", err)
	}
	return nil
}

func (r *GormDeviceRepository) Save(ctx context.Context, device *dvcmodels.Device) (*dvcmodels.Device, error) {
	if device == nil {
		return nil, fmt.Errorf("device must not be nil")
	}
	rec := toRecord(device)
	if rec.State == "" {
		rec.State = string(dvcmodels.StateAvailable)
	}

	if rec.ID == 0 {
		if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
			return nil, fmt.Errorf("failed to insert device: %w", err)
		}
		saved, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		return &saved, nil
	}

	result := r.db.WithContext(ctx).
		Model(&deviceRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"name":  rec.Name,
			"brand": rec.Brand,
			"state": rec.State,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update device %d: %w", rec.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, sql.ErrNoRows
	}
	return r.FindByID(ctx, rec.ID)
}

func (r *GormDeviceRepository) FindByID(ctx context.Context, id int64) (*dvcmodels.Device, error) {
	var rec deviceRecord
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get device %d: %w", id, err)
	}
	device, err := rec.toModel()
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *GormDeviceRepository) FindAll(ctx context.Context) ([]dvcmodels.Device, error) {
	return r.list(r.db.WithContext(ctx))
}

func (r *GormDeviceRepository) FindByBrandContaining(ctx context.Context, brand string) ([]dvcmodels.Device, error) {
	return r.list(r.db.WithContext(ctx).Where("strpos(lower(brand), lower(?)) > 0", brand))
}

func (r *GormDeviceRepository) FindByState(ctx context.Context, state dvcmodels.State) ([]dvcmodels.Device, error) {
	return r.list(r.db.WithContext(ctx).Where("state = ?", string(state)))
}

func (r *GormDeviceRepository) DeleteByID(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&deviceRecord{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete device %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *GormDeviceRepository) list(query *gorm.DB) ([]dvcmodels.Device, error) {
	var recs []deviceRecord
	if err := query.Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	devices := make([]dvcmodels.Device, 0, len(recs))
	for _, rec := range recs {
		device, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, nil
}
