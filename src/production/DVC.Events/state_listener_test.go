package dvcevents

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	logger "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Logger"
	dvcmodels "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Models"
)

type recordingUpdater struct {
	mu      sync.Mutex
	applied []StateReport
	fail    bool
}

func (u *recordingUpdater) UpdateState(_ context.Context, id int64, state dvcmodels.State) (*dvcmodels.Device, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail {
		return nil, errors.New("device not found")
	}
	u.applied = append(u.applied, StateReport{DeviceID: id, State: state})
	return &dvcmodels.Device{ID: id, State: state}, nil
}

func TestParseStateReport(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		wantID  int64
		want    dvcmodels.State
		wantErr bool
	}{
		{"BareName", "devices/state/42", "INUSE", 42, dvcmodels.StateInUse, false},
		{"JSON", "devices/state/7", `{"state":"INACTIVE"}`, 7, dvcmodels.StateInactive, false},
		{"Whitespace", "devices/state/7", " AVAILABLE\n", 7, dvcmodels.StateAvailable, false},
		{"LowercaseRejected", "devices/state/7", "inuse", 0, "", true},
		{"NoID", "devices/state/", "INUSE", 0, "", true},
		{"NonNumericID", "devices/state/abc", "INUSE", 0, "", true},
		{"ZeroID", "devices/state/0", "INUSE", 0, "", true},
		{"BadJSON", "devices/state/1", `{"state":`, 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStateReport(tt.topic, []byte(tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidReport)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.DeviceID)
			assert.Equal(t, tt.want, got.State)
		})
	}
}

func TestStateListenerAppliesInOrder(t *testing.T) {
	u := &recordingUpdater{}
	l := NewStateListener(u, 8, logger.Nop())
	l.Start(context.Background())

	assert.True(t, l.Handle("devices/state/1", []byte("INUSE")))
	assert.False(t, l.Handle("devices/state/x", []byte("INUSE")))
	assert.True(t, l.Handle("devices/state/1", []byte("AVAILABLE")))
	l.Stop()

	require.Len(t, u.applied, 2)
	assert.Equal(t, dvcmodels.StateInUse, u.applied[0].State)
	assert.Equal(t, dvcmodels.StateAvailable, u.applied[1].State)
}

func TestStateListenerDropsWhenFull(t *testing.T) {
	l := NewStateListener(&recordingUpdater{}, 1, logger.Nop())

	// worker not started, so the queue stays full
	assert.True(t, l.Handle("devices/state/1", []byte("INUSE")))
	assert.False(t, l.Handle("devices/state/2", []byte("INUSE")))

	l.Start(context.Background())
	l.Stop()
}

func TestStateListenerSurvivesUpdateFailure(t *testing.T) {
	u := &recordingUpdater{fail: true}
	l := NewStateListener(u, 4, logger.Nop())
	l.Start(context.Background())

	assert.True(t, l.Handle("devices/state/9", []byte("INUSE")))
	l.Stop()
	// second Stop is a no-op
	l.Stop()

	assert.Empty(t, u.applied)
}

func TestStateListenerDropsAfterStop(t *testing.T) {
	u := &recordingUpdater{}
	l := NewStateListener(u, 4, logger.Nop())
	l.Start(context.Background())
	l.Stop()

	assert.False(t, l.Handle("devices/state/1", []byte("INUSE")))
	assert.Empty(t, u.applied)
}
