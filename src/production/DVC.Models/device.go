package dvcmodels

import "time"

// Device is the single managed resource of the API
type Device struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Brand        string    `json:"brand" db:"brand"`
	State        State     `json:"state" db:"state"`
	CreationTime time.Time `json:"creationTime" db:"creation_time"`
}

// NewDevice builds an unsaved device; new devices always start AVAILABLE
func NewDevice(name, brand string) *Device {
	return &Device{
		Name:  name,
		Brand: brand,
		State: StateAvailable,
	}
}

// InUse reports whether name/brand updates and deletion are currently blocked
func (d *Device) InUse() bool {
	return d.State == StateInUse
}
