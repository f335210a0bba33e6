package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/domain/door"
)

// relayPath is appended to the base URL for relay commands.
const relayPath = "/relay"

// maxBodySize limits how much of a sensor response is read.
const maxBodySize = 64 << 10

var (
	// ErrTransport is returned when the HTTP call itself failed.
	ErrTransport = errors.New("node unreachable")
	// ErrUnexpectedStatus is returned for any response other than 200.
	ErrUnexpectedStatus = errors.New("unexpected node status")
	// ErrMalformedReading is returned when the sensor body cannot be decoded.
	ErrMalformedReading = errors.New("malformed sensor reading")

	// errBaseURLRequired is returned when no node URL is provided.
	errBaseURLRequired = errors.New("node url must be provided")
)

// Client calls the node over HTTP.
type Client struct {
	// http performs the requests.
	http *http.Client
	// baseURL is where sensors are read.
	baseURL string
	// relayURL is where toggle commands are posted.
	relayURL string
	// callTimeout bounds a single request.
	callTimeout time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithCallTimeout sets a timeout for every request.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// New creates a client for the node at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	if err := config.ValidateHTTPURL(baseURL); err != nil {
		return nil, fmt.Errorf("parse node url: %w", err)
	}

	client := &Client{
		http:        new(http.Client),
		baseURL:     baseURL,
		relayURL:    strings.TrimSuffix(baseURL, "/") + relayPath,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// toggleRequest is the body of a relay command.
type toggleRequest struct {
	Toggle bool `json:"toggle"`
}

// Toggle pulses the relay once.
func (c *Client) Toggle(ctx context.Context) error {
	body, err := json.Marshal(toggleRequest{Toggle: true})
	if err != nil {
		return fmt.Errorf("encode toggle: %w", err)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.relayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build toggle request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	response, err := c.http.Do(request)
	if err != nil {
		return fmt.Errorf("%w: toggle: %w", ErrTransport, err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxBodySize))
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: toggle: %d", ErrUnexpectedStatus, response.StatusCode)
	}

	return nil
}

// Read fetches the current sensor values.
func (c *Client) Read(ctx context.Context) (door.Reading, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL, http.NoBody)
	if err != nil {
		return door.Reading{}, fmt.Errorf("build sensor request: %w", err)
	}

	response, err := c.http.Do(request)
	if err != nil {
		return door.Reading{}, fmt.Errorf("%w: read sensors: %w", ErrTransport, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return door.Reading{}, fmt.Errorf("%w: read sensors: %d", ErrUnexpectedStatus, response.StatusCode)
	}

	var payload sensorPayload
	if err := json.NewDecoder(io.LimitReader(response.Body, maxBodySize)).Decode(&payload); err != nil {
		return door.Reading{}, fmt.Errorf("%w: %w", ErrMalformedReading, err)
	}

	return door.Reading{
		OpenedActive: bool(payload.GarageOpened),
		ClosedActive: bool(payload.GarageClosed),
	}, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
