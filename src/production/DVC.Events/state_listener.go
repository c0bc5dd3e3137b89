package dvcevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	logger "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Logger"
	dvcmodels "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Models"
)

var ErrInvalidReport = errors.New("invalid state report")

// StateUpdater applies a reported state; DeviceService satisfies it
type StateUpdater interface {
	UpdateState(ctx context.Context, id int64, state dvcmodels.State) (*dvcmodels.Device, error)
}

// StateReport is a device announcing its own state over MQTT
type StateReport struct {
	DeviceID   int64
	State      dvcmodels.State
	ReceivedAt time.Time
}

// ParseStateReport reads the device id from the last topic segment
// (e.g. devices/state/42) and the state from the payload, either a bare
// name like INUSE or {"state":"INUSE"}.
func ParseStateReport(topic string, payload []byte) (StateReport, error) {
	idx := strings.LastIndex(topic, "/")
	id, err := strconv.ParseInt(topic[idx+1:], 10, 64)
	if err != nil || id <= 0 {
		return StateReport{}, fmt.Errorf("%w: topic %q has no device id", ErrInvalidReport, topic)
	}

	raw := strings.TrimSpace(string(payload))
	if strings.HasPrefix(raw, "{") {
		var body struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return StateReport{}, fmt.Errorf("%w: %v", ErrInvalidReport, err)
		}
		raw = body.State
	}

	state, err := dvcmodels.ParseState(raw)
	if err != nil {
		return StateReport{}, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}

	return StateReport{DeviceID: id, State: state, ReceivedAt: time.Now().UTC()}, nil
}

// StateListener queues state reports and applies them from a single worker,
// so reports for one device are applied in arrival order
type StateListener struct {
	updater StateUpdater
	queue   chan StateReport
	wg      sync.WaitGroup
	logger  *logger.Logger

	mu      sync.RWMutex
	stopped bool
}

func NewStateListener(updater StateUpdater, queueSize int, log *logger.Logger) *StateListener {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &StateListener{
		updater: updater,
		queue:   make(chan StateReport, queueSize),
		logger:  log.WithComponent("state_listener"),
	}
}

// Start runs the worker until Stop is called
func (l *StateListener) Start(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for report := range l.queue {
			l.apply(ctx, report)
		}
	}()
}

// Stop drains the queue and waits for the worker. Reports handled after
// Stop are dropped.
func (l *StateListener) Stop() {
	l.mu.Lock()
	if !l.stopped {
		l.stopped = true
		close(l.queue)
	}
	l.mu.Unlock()
	l.wg.Wait()
}

// OnMessage is the MQTT handler; it never blocks the client's router
func (l *StateListener) OnMessage(_ mqtt.Client, m mqtt.Message) {
	l.Handle(m.Topic(), m.Payload())
}

// Handle parses and queues one report, returning false when it was dropped
func (l *StateListener) Handle(topic string, payload []byte) bool {
	report, err := ParseStateReport(topic, payload)
	if err != nil {
		l.logger.WithField("topic", topic).WarnWithError(err, "Ignoring state report")
		return false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped {
		return false
	}

	select {
	case l.queue <- report:
		return true
	default:
		l.logger.WithDeviceID(report.DeviceID).Warn("State report queue full, dropping report")
		return false
	}
}

func (l *StateListener) apply(ctx context.Context, report StateReport) {
	log := l.logger.WithDeviceID(report.DeviceID).WithField("state", report.State.String())

	if _, err := l.updater.UpdateState(ctx, report.DeviceID, report.State); err != nil {
		log.WarnWithError(err, "Failed to apply state report")
		return
	}
	log.Debug("State report applied")
}
