package node

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/domain/door"
)

// TestNew_ValidatesURL rejects empty and relative node addresses.
func TestNew_ValidatesURL(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)

	for _, baseURL := range []string{"garage", "/garage", "ftp://node"} {
		_, err = New(baseURL)
		require.ErrorIs(t, err, config.ErrNotHTTPURL, baseURL)
	}

	c, err := New("http://garage.local/", WithCallTimeout(time.Second))
	require.NoError(t, err)
	require.Equal(t, "http://garage.local/relay", c.relayURL)
	require.Equal(t, time.Second, c.callTimeout)
}

// TestToggle posts the toggle body to the relay path.
func TestToggle(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		if r.Method != http.MethodPost || r.URL.Path != relayPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["toggle"] != true {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, err := New(server.URL)
	require.NoError(t, err)

	require.NoError(t, c.Toggle(context.Background()))
	require.Equal(t, int32(1), calls.Load())
}

// TestToggle_Status maps non-200 responses to ErrUnexpectedStatus.
func TestToggle_Status(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, err := New(server.URL)
	require.NoError(t, err)

	require.ErrorIs(t, c.Toggle(context.Background()), ErrUnexpectedStatus)
}

// TestRead decodes numeric and boolean sensor flags.
func TestRead(t *testing.T) {
	t.Parallel()

	cases := map[string]door.Reading{
		`{"garageOpened":1,"garageClosed":0}`:         {OpenedActive: true},
		`{"garageOpened":0,"garageClosed":1}`:         {ClosedActive: true},
		`{"garageOpened":0,"garageClosed":0}`:         {},
		`{"garageOpened":true,"garageClosed":false}`:  {OpenedActive: true},
		`{"garageOpened":1,"garageClosed":1,"x":"y"}`: {OpenedActive: true, ClosedActive: true},
		`{"garageOpened":2}`:                          {},
		`{}`:                                          {},
	}

	for body, want := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		c, err := New(server.URL)
		require.NoError(t, err)

		got, err := c.Read(context.Background())
		require.NoError(t, err, body)
		require.Equal(t, want, got, body)

		server.Close()
	}
}

// TestRead_Failures distinguishes status, transport and payload failures.
func TestRead_Failures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("bad") != "" {
			_, _ = w.Write([]byte(`{"garageOpened":"maybe"}`))
			return
		}

		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	c, err := New(server.URL)
	require.NoError(t, err)

	_, err = c.Read(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedStatus)

	c, err = New(server.URL + "/?bad=1")
	require.NoError(t, err)

	_, err = c.Read(context.Background())
	require.ErrorIs(t, err, ErrMalformedReading)

	server.Close()

	_, err = c.Read(context.Background())
	require.ErrorIs(t, err, ErrTransport)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{callTimeout: 0}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	_, ok := ctx.Deadline()
	require.False(t, ok)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}
