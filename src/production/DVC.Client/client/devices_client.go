package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	dvcmodels "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Models"
)

var (
	ErrNotFound         = errors.New("device not found")
	ErrInUse            = errors.New("device in-use")
	ErrNoFieldsToUpdate = errors.New("no fields to update")
	ErrCircuitOpen      = errors.New("circuit breaker is open")
)

// APIError carries a non-success response the client has no sentinel for
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
}

// CircuitBreakerState represents the state of the circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreaker stops calling a failing server until resetTimeout has passed
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration
	state        CircuitBreakerState
	failureCount int
	lastFailTime time.Time
	mutex        sync.Mutex
}

func (cb *CircuitBreaker) canExecute() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Since(cb.lastFailTime) > cb.resetTimeout {
			cb.state = StateHalfOpen
			return true
		}
	}
	return false
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failureCount = 0
	cb.state = StateClosed
}

func (cb *CircuitBreaker) onFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failureCount++
	cb.lastFailTime = time.Now()

	if cb.state == StateHalfOpen || cb.failureCount >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// DevicesClient talks to the Devices API over HTTP
type DevicesClient struct {
	baseURL        string
	httpClient     *http.Client
	userAgent      string
	circuitBreaker *CircuitBreaker
	maxRetries     int
	retryDelay     time.Duration
}

// Option configures a DevicesClient
type Option func(*DevicesClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *DevicesClient) { c.httpClient = hc }
}

func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *DevicesClient) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

func WithCircuitBreaker(maxFailures int, resetTimeout time.Duration) Option {
	return func(c *DevicesClient) {
		c.circuitBreaker.maxFailures = maxFailures
		c.circuitBreaker.resetTimeout = resetTimeout
	}
}

func WithUserAgent(ua string) Option {
	return func(c *DevicesClient) { c.userAgent = ua }
}

// NewDevicesClient creates a new API client
func NewDevicesClient(baseURL string, opts ...Option) *DevicesClient {
	c := &DevicesClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "devices-client",
		circuitBreaker: &CircuitBreaker{
			maxFailures:  5,
			resetTimeout: 30 * time.Second,
			state:        StateClosed,
		},
		maxRetries: 3,
		retryDelay: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableError marks failures worth another attempt: transport errors and 5xx
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// retryWithBackoff executes operation with exponential backoff while it keeps
// returning retryable errors
func (c *DevicesClient) retryWithBackoff(ctx context.Context, idempotent bool, operation func() error) error {
	var lastErr error

	attempts := c.maxRetries
	if !idempotent {
		attempts = 0
	}

	for attempt := 0; attempt <= attempts; attempt++ {
		if !c.circuitBreaker.canExecute() {
			return ErrCircuitOpen
		}

		err := operation()
		var retryable retryableError
		if err == nil || !errors.As(err, &retryable) {
			// a definite answer from the server, even a 4xx, means it is up
			c.circuitBreaker.onSuccess()
			return err
		}

		lastErr = retryable.err
		c.circuitBreaker.onFailure()

		if attempt == attempts {
			break
		}

		delay := time.Duration(float64(c.retryDelay) * math.Pow(2, float64(attempt)))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	if attempts == 0 {
		return lastErr
	}
	return fmt.Errorf("operation failed after %d attempts: %w", attempts+1, lastErr)
}

// do sends one request and returns the status and body, marking retryable failures
func (c *DevicesClient) do(ctx context.Context, method, path string, query url.Values) (int, []byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, retryableError{fmt.Errorf("%s %s: %w", method, path, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, retryableError{fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode >= 500 {
		return resp.StatusCode, body, retryableError{&APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}}
	}
	return resp.StatusCode, body, nil
}

func (c *DevicesClient) call(ctx context.Context, method, path string, query url.Values) (int, []byte, error) {
	var (
		status int
		body   []byte
	)
	idempotent := method != http.MethodPost
	err := c.retryWithBackoff(ctx, idempotent, func() error {
		var err error
		status, body, err = c.do(ctx, method, path, query)
		return err
	})
	return status, body, err
}

// errorMessage extracts the message from a {"error": ...} body or returns the text as is
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

func unexpected(status int, body []byte) error {
	return &APIError{StatusCode: status, Message: errorMessage(body)}
}

func devicePath(id int64) string {
	return "/devices/" + strconv.FormatInt(id, 10)
}

// List returns devices filtered by brand substring, or by state when brand is nil
func (c *DevicesClient) List(ctx context.Context, brand *string, state *dvcmodels.State) ([]dvcmodels.Device, error) {
	query := url.Values{}
	if brand != nil {
		query.Set("brand", *brand)
	}
	if state != nil {
		query.Set("state", state.String())
	}

	status, body, err := c.call(ctx, http.MethodGet, "/devices", query)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, unexpected(status, body)
	}

	devices := make([]dvcmodels.Device, 0)
	if err := json.Unmarshal(body, &devices); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return devices, nil
}

// Create registers a new device. It is never retried since the server would
// store a second copy.
func (c *DevicesClient) Create(ctx context.Context, name, brand string) error {
	query := url.Values{"name": {name}, "brand": {brand}}

	status, body, err := c.call(ctx, http.MethodPost, "/devices", query)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return unexpected(status, body)
	}
	return nil
}

func (c *DevicesClient) Get(ctx context.Context, id int64) (*dvcmodels.Device, error) {
	status, body, err := c.call(ctx, http.MethodGet, devicePath(id), nil)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		var device dvcmodels.Device
		if err := json.Unmarshal(body, &device); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return &device, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, unexpected(status, body)
	}
}

// Update sends only the non-nil fields
func (c *DevicesClient) Update(ctx context.Context, id int64, name, brand *string) error {
	query := url.Values{}
	if name != nil {
		query.Set("name", *name)
	}
	if brand != nil {
		query.Set("brand", *brand)
	}

	status, body, err := c.call(ctx, http.MethodPut, devicePath(id), query)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrInUse
	case http.StatusBadRequest:
		if errorMessage(body) == "No fields to update" {
			return ErrNoFieldsToUpdate
		}
	}
	return unexpected(status, body)
}

// UpdateState returns the server's confirmation message
func (c *DevicesClient) UpdateState(ctx context.Context, id int64, state dvcmodels.State) (string, error) {
	status, body, err := c.call(ctx, http.MethodPatch, devicePath(id), url.Values{"state": {state.String()}})
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK:
		return string(body), nil
	case http.StatusNotFound:
		return "", ErrNotFound
	default:
		return "", unexpected(status, body)
	}
}

func (c *DevicesClient) Delete(ctx context.Context, id int64) error {
	status, body, err := c.call(ctx, http.MethodDelete, devicePath(id), nil)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrInUse
	default:
		return unexpected(status, body)
	}
}

// Health checks if the API Service is healthy
func (c *DevicesClient) Health(ctx context.Context) error {
	status, body, err := c.do(ctx, http.MethodGet, "/health/ready", nil)
	if err != nil {
		return fmt.Errorf("failed to check API health: %w", err)
	}
	if status != http.StatusOK {
		return unexpected(status, body)
	}
	return nil
}

// GetCircuitBreakerStatus returns the current circuit breaker status for monitoring
func (c *DevicesClient) GetCircuitBreakerStatus() map[string]interface{} {
	c.circuitBreaker.mutex.Lock()
	defer c.circuitBreaker.mutex.Unlock()

	return map[string]interface{}{
		"state":          c.circuitBreaker.state.String(),
		"failure_count":  c.circuitBreaker.failureCount,
		"last_fail_time": c.circuitBreaker.lastFailTime,
		"max_failures":   c.circuitBreaker.maxFailures,
		"reset_timeout":  c.circuitBreaker.resetTimeout,
	}
}
