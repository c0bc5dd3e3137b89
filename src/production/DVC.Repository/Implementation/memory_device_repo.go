package implementation

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	dvcmodels "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Models"
)

// MemoryDeviceRepository keeps devices in process memory.
// Ids come from a counter that only grows, so deleted ids are never handed out again.
type MemoryDeviceRepository struct {
	mu      sync.RWMutex
	devices map[int64]dvcmodels.Device
	nextID  int64
	now     func() time.Time
}

func NewMemoryDeviceRepository() *MemoryDeviceRepository {
	return &MemoryDeviceRepository{
		devices: make(map[int64]dvcmodels.Device),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryDeviceRepository) Save(_ context.Context, device *dvcmodels.Device) (*dvcmodels.Device, error) {
	if device == nil {
		return nil, fmt.Errorf("device must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	saved := *device
	if saved.State == "" {
		saved.State = dvcmodels.StateAvailable
	}

	if saved.ID == 0 {
		r.nextID++
		saved.ID = r.nextID
		if saved.CreationTime.IsZero() {
			saved.CreationTime = r.now()
		}
		r.devices[saved.ID] = saved
		return &saved, nil
	}

	existing, ok := r.devices[saved.ID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	saved.CreationTime = existing.CreationTime
	r.devices[saved.ID] = saved
	return &saved, nil
}

func (r *MemoryDeviceRepository) FindByID(_ context.Context, id int64) (*dvcmodels.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &device, nil
}

func (r *MemoryDeviceRepository) FindAll(_ context.Context) ([]dvcmodels.Device, error) {
	return r.filter(func(dvcmodels.Device) bool { return true }), nil
}

func (r *MemoryDeviceRepository) FindByBrandContaining(_ context.Context, brand string) ([]dvcmodels.Device, error) {
	needle := strings.ToLower(brand)
	return r.filter(func(d dvcmodels.Device) bool {
		return strings.Contains(strings.ToLower(d.Brand), needle)
	}), nil
}

func (r *MemoryDeviceRepository) FindByState(_ context.Context, state dvcmodels.State) ([]dvcmodels.Device, error) {
	return r.filter(func(d dvcmodels.Device) bool { return d.State == state }), nil
}

func (r *MemoryDeviceRepository) DeleteByID(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.devices, id)
	return nil
}

// PingContext always succeeds, there is no connection to lose
func (r *MemoryDeviceRepository) PingContext(_ context.Context) error {
	return nil
}

func (r *MemoryDeviceRepository) filter(keep func(dvcmodels.Device) bool) []dvcmodels.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]dvcmodels.Device, 0, len(r.devices))
	for _, d := range r.devices {
		if keep(d) {
			devices = append(devices, d)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}
