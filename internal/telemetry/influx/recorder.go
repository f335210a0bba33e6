package influx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/oshokin/garage-door/internal/config"
	"github.com/oshokin/garage-door/internal/domain/door"
	"github.com/oshokin/garage-door/internal/logger"
)

const (
	// Measurement is the name of every written point.
	Measurement = "garage_door"

	// pingTimeout bounds the connectivity check in Connect.
	pingTimeout = 5 * time.Second
)

// ErrServerNotHealthy is returned when the server answers the ping negatively.
var ErrServerNotHealthy = errors.New("influxdb server not healthy")

// pointWriter is the part of api.WriteAPI the recorder uses.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Recorder writes a point whenever the door state changes. It implements
// controller.Observer. Each point carries the full last known state.
type Recorder struct {
	ctx    context.Context //nolint:containedctx // Used by observer callbacks for logging.
	writer pointWriter
	close  func()
	door   string
	now    func() time.Time

	mu         sync.Mutex
	current    door.State
	target     door.State
	obstructed bool
}

// newRecorder creates a recorder over an existing writer.
func newRecorder(ctx context.Context, writer pointWriter, doorName string) *Recorder {
	return &Recorder{
		ctx:     logger.WithName(ctx, "influx"),
		writer:  writer,
		close:   func() {},
		door:    doorName,
		now:     time.Now,
		current: door.Unknown,
		target:  door.Unknown,
	}
}

// Connect creates a recorder writing to the configured bucket through the
// non-blocking write API. Asynchronous write errors are logged.
func Connect(ctx context.Context, cfg config.InfluxDBConfig, doorName string) (*Recorder, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ping influxdb: %w", err)
	}

	if !healthy {
		client.Close()
		return nil, ErrServerNotHealthy
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	recorder := newRecorder(ctx, writeAPI, doorName)
	recorder.close = client.Close

	go recorder.logErrors(writeAPI.Errors())

	logger.InfoKV(recorder.ctx, "InfluxDB telemetry enabled", "url", cfg.URL, "bucket", cfg.Bucket)

	return recorder, nil
}

// Close flushes pending points and closes the client.
func (r *Recorder) Close() error {
	r.writer.Flush()
	r.close()

	return nil
}

// CurrentChanged records the new current state.
func (r *Recorder) CurrentChanged(state door.State) {
	r.mu.Lock()
	r.current = state
	point := r.pointLocked()
	r.mu.Unlock()

	r.writer.WritePoint(point)
}

// TargetChanged records the new target state.
func (r *Recorder) TargetChanged(target door.State) {
	r.mu.Lock()
	r.target = target
	point := r.pointLocked()
	r.mu.Unlock()

	r.writer.WritePoint(point)
}

// ObstructionChanged records the obstruction flag.
func (r *Recorder) ObstructionChanged(obstructed bool) {
	r.mu.Lock()
	r.obstructed = obstructed
	point := r.pointLocked()
	r.mu.Unlock()

	r.writer.WritePoint(point)
}

func (r *Recorder) pointLocked() *write.Point {
	return write.NewPoint(
		Measurement,
		map[string]string{"door": r.door},
		map[string]any{
			"current":      r.current.String(),
			"current_code": int64(r.current),
			"target":       r.target.String(),
			"obstructed":   r.obstructed,
		},
		r.now(),
	)
}

// logErrors drains the write error channel until it is closed.
func (r *Recorder) logErrors(errs <-chan error) {
	for err := range errs {
		logger.WarnKV(r.ctx, "InfluxDB write failed", "error", err)
	}
}
