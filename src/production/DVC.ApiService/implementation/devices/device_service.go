package devices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	dvcevents "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Events"
	logger "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Logger"
	dvcmodels "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Models"
	interfaces "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Repository/Interfaces"
)

var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrDeviceInUse      = errors.New("device in-use")
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)

// ListFilter selects devices for List. Brand wins over State when both are set.
type ListFilter struct {
	Brand *string
	State *dvcmodels.State
}

// DeviceService enforces the in-use rule on top of the device store.
//
// Update and Delete read the device, check its state and then write. The two
// steps are not atomic, so concurrent requests on the same id can both pass
// the in-use check.
type DeviceService struct {
	repo      interfaces.DeviceRepository
	publisher dvcevents.EventPublisher
	logger    *logger.Logger
}

// NewDeviceService creates a new device service
func NewDeviceService(repo interfaces.DeviceRepository, publisher dvcevents.EventPublisher, log *logger.Logger) *DeviceService {
	if publisher == nil {
		publisher = dvcevents.NopPublisher{}
	}
	return &DeviceService{
		repo:      repo,
		publisher: publisher,
		logger:    log.WithComponent("device_service"),
	}
}

// List returns devices matching the filter, or every device when it is empty
func (s *DeviceService) List(ctx context.Context, filter ListFilter) ([]dvcmodels.Device, error) {
	switch {
	case filter.Brand != nil:
		return s.repo.FindByBrandContaining(ctx, *filter.Brand)
	case filter.State != nil:
		return s.repo.FindByState(ctx, *filter.State)
	default:
		return s.repo.FindAll(ctx)
	}
}

// Create stores a new AVAILABLE device
func (s *DeviceService) Create(ctx context.Context, name, brand string) (*dvcmodels.Device, error) {
	saved, err := s.repo.Save(ctx, dvcmodels.NewDevice(name, brand))
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	s.publish(ctx, dvcevents.EventCreated, saved)
	return saved, nil
}

// Get retrieves a device by id
func (s *DeviceService) Get(ctx context.Context, id int64) (*dvcmodels.Device, error) {
	device, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return device, nil
}

// Update changes name and/or brand; nil arguments are left untouched
func (s *DeviceService) Update(ctx context.Context, id int64, name, brand *string) (*dvcmodels.Device, error) {
	if name == nil && brand == nil {
		return nil, ErrNoFieldsToUpdate
	}

	device, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	if device.InUse() {
		return nil, ErrDeviceInUse
	}

	if name != nil {
		device.Name = *name
	}
	if brand != nil {
		device.Brand = *brand
	}

	saved, err := s.repo.Save(ctx, device)
	if err != nil {
		return nil, notFound(err)
	}

	s.publish(ctx, dvcevents.EventUpdated, saved)
	return saved, nil
}

// UpdateState moves a device to any state, in-use or not
func (s *DeviceService) UpdateState(ctx context.Context, id int64, state dvcmodels.State) (*dvcmodels.Device, error) {
	if !state.IsValid() {
		return nil, fmt.Errorf("%w: %q", dvcmodels.ErrInvalidState, state)
	}

	device, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	device.State = state

	saved, err := s.repo.Save(ctx, device)
	if err != nil {
		return nil, notFound(err)
	}

	s.publish(ctx, dvcevents.EventStateChanged, saved)
	return saved, nil
}

// Delete removes a device unless it is in use
func (s *DeviceService) Delete(ctx context.Context, id int64) error {
	device, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}

	if device.InUse() {
		return ErrDeviceInUse
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return notFound(err)
	}

	s.publish(ctx, dvcevents.EventDeleted, device)
	return nil
}

// publish never fails the request, the mutation is already committed
func (s *DeviceService) publish(ctx context.Context, t dvcevents.EventType, device *dvcmodels.Device) {
	if err := s.publisher.Publish(ctx, dvcevents.NewDeviceEvent(t, device)); err != nil {
		s.logger.WithDeviceID(device.ID).
			WithField("event", string(t)).
			WarnWithError(err, "Failed to publish device event")
	}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDeviceNotFound
	}
	return err
}
