package dvcevents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	dvcmodels "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Models"
)

//go:generate mockgen -source=events.go -destination=../DVC.Repository/Mocks/mock_event_publisher.go -package=mocks

// EventType names a device lifecycle transition
type EventType string

const (
	EventCreated      EventType = "created"
	EventUpdated      EventType = "updated"
	EventStateChanged EventType = "state_changed"
	EventDeleted      EventType = "deleted"
)

// DeviceEvent is published after a successful mutation
type DeviceEvent struct {
	Type      EventType       `json:"type"`
	DeviceID  int64           `json:"device_id"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	State     dvcmodels.State `json:"state"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewDeviceEvent snapshots a device for publication
func NewDeviceEvent(t EventType, d *dvcmodels.Device) DeviceEvent {
	return DeviceEvent{
		Type:      t,
		DeviceID:  d.ID,
		Name:      d.Name,
		Brand:     d.Brand,
		State:     d.State,
		Timestamp: time.Now().UTC(),
	}
}

// Topic builds <prefix>/<device id>/<event type>
func (e DeviceEvent) Topic(prefix string) string {
	return fmt.Sprintf("%s/%d/%s", prefix, e.DeviceID, e.Type)
}

func (e DeviceEvent) Payload() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", e.Type, err)
	}
	return b, nil
}

// EventPublisher delivers device events to interested consumers
type EventPublisher interface {
	Publish(ctx context.Context, event DeviceEvent) error
	Close()
}

// NopPublisher drops every event; used when events are disabled
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, DeviceEvent) error { return nil }

func (NopPublisher) Close() {}
