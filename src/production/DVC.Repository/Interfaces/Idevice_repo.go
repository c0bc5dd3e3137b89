package interfaces

import (
	"context"

	dvcmodels "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Models"
)

//go:generate mockgen -source=Idevice_repo.go -destination=../Mocks/mock_device_repo.go -package=mocks

// DeviceRepository persists devices keyed by their generated id.
// Lookups of a missing id return sql.ErrNoRows for every implementation.
type DeviceRepository interface {
	// Save inserts when ID is zero, otherwise overwrites name, brand and state
	Save(ctx context.Context, device *dvcmodels.Device) (*dvcmodels.Device, error)

	// Read devices
	FindByID(ctx context.Context, id int64) (*dvcmodels.Device, error)
	FindAll(ctx context.Context) ([]dvcmodels.Device, error)
	FindByBrandContaining(ctx context.Context, brand string) ([]dvcmodels.Device, error)
	FindByState(ctx context.Context, state dvcmodels.State) ([]dvcmodels.Device, error)

	// Delete device
	DeleteByID(ctx context.Context, id int64) error
}
