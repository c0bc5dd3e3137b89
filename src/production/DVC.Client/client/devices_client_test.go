package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.ApiService/controllers"
	"gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.ApiService/health"
	"gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.ApiService/implementation/devices"
	logger "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Logger"
	dvcmodels "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Models"
	implementation "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Repository/Implementation"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := implementation.NewMemoryDeviceRepository()
	router := gin.New()
	controllers.NewDeviceController(devices.NewDeviceService(repo, nil, logger.Nop()), logger.Nop()).RegisterRoutes(router)
	controllers.NewHealthController(health.NewHealthChecker(repo), logger.Nop()).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func ptr[T any](v T) *T { return &v }

func TestDeviceLifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewDevicesClient(newAPIServer(t).URL, WithRetry(0, 0))

	require.NoError(t, c.Health(ctx))
	require.NoError(t, c.Create(ctx, "iPhone 14", "Apple"))
	require.NoError(t, c.Create(ctx, "Galaxy", "Samsung"))

	d, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "iPhone 14", d.Name)
	assert.Equal(t, dvcmodels.StateAvailable, d.State)

	apple, err := c.List(ctx, ptr("apple"), nil)
	require.NoError(t, err)
	require.Len(t, apple, 1)
	assert.Equal(t, int64(1), apple[0].ID)

	msg, err := c.UpdateState(ctx, 1, dvcmodels.StateInUse)
	require.NoError(t, err)
	assert.Equal(t, "Device state updated to: in-use", msg)

	inUse, err := c.List(ctx, nil, ptr(dvcmodels.StateInUse))
	require.NoError(t, err)
	assert.Len(t, inUse, 1)

	assert.ErrorIs(t, c.Update(ctx, 1, ptr("Renamed"), nil), ErrInUse)
	assert.ErrorIs(t, c.Delete(ctx, 1), ErrInUse)
	assert.ErrorIs(t, c.Update(ctx, 2, nil, nil), ErrNoFieldsToUpdate)

	require.NoError(t, c.Update(ctx, 2, nil, ptr("Samsung Electronics")))
	require.NoError(t, c.Delete(ctx, 2))

	_, err = c.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, 999), ErrNotFound)
}

func TestBadRequestIsAPIError(t *testing.T) {
	c := NewDevicesClient(newAPIServer(t).URL, WithRetry(0, 0))

	err := c.Create(context.Background(), "", "Apple")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Message)
}

func TestRetriesServerErrorsOnIdempotentCalls(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	c := NewDevicesClient(srv.URL, WithRetry(3, time.Millisecond))

	got, err := c.List(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"connection reset"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewDevicesClient(srv.URL, WithRetry(3, time.Millisecond))

	err := c.Create(context.Background(), "X", "Y")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "connection reset", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := NewDevicesClient(srv.URL, WithRetry(1, time.Millisecond), WithCircuitBreaker(2, time.Hour))

	_, err := c.Get(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, "open", c.GetCircuitBreakerStatus()["state"])

	_, err = c.Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	cb := &CircuitBreaker{maxFailures: 1, resetTimeout: time.Millisecond}

	cb.onFailure()
	assert.Equal(t, StateOpen, cb.state)

	time.Sleep(5 * time.Millisecond)
	assert.True(t, cb.canExecute())
	assert.Equal(t, StateHalfOpen, cb.state)

	cb.onSuccess()
	assert.Equal(t, StateClosed, cb.state)
}
