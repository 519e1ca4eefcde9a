package influx

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/config"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/publisher"
)

const (
	measurement    = "device_state"
	connectTimeout = 10 * time.Second
	batchSize      = 100
	flushInterval  = 1000 // milliseconds
)

// pointWriter is the part of api.WriteAPI the sink uses.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
	Errors() <-chan error
}

// Sink records every published state change as an InfluxDB point. Writes are
// batched and never block the caller.
type Sink struct {
	client influxdb2.Client
	writer pointWriter
	logger *zap.Logger
	now    func() time.Time
}

func New(ctx context.Context, cfg config.InfluxConfig, logger *zap.Logger) (*Sink, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(batchSize).
			SetFlushInterval(flushInterval))

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	s := newSink(client.WriteAPI(cfg.Org, cfg.Bucket), logger)
	s.client = client
	s.logger.Info("writing state history", zap.String("url", cfg.URL), zap.String("bucket", cfg.Bucket))
	return s, nil
}

func newSink(writer pointWriter, logger *zap.Logger) *Sink {
	s := &Sink{
		writer: writer,
		logger: logger.With(zap.String("component", "influx")),
		now:    time.Now,
	}
	go s.handleWriteErrors(writer.Errors())
	return s
}

func (s *Sink) handleWriteErrors(errs <-chan error) {
	for err := range errs {
		s.logger.Error("failed to write state history", zap.Error(err))
	}
}

// Publish writes one point per changed instance. A full restatement carries
// no changed instances and records nothing.
func (s *Sink) Publish(_ context.Context, u publisher.Update) error {
	ts := s.now()
	for _, instance := range u.Instances {
		raw, ok := u.Snapshot.Raw[instance]
		if !ok {
			continue
		}
		s.writer.WritePoint(write.NewPoint(
			measurement,
			map[string]string{
				"device_id": u.DeviceID(),
				"instance":  instance,
			},
			map[string]any{"value": raw},
			ts,
		))
	}
	return nil
}

// Close flushes pending points and closes the client.
func (s *Sink) Close() {
	s.writer.Flush()
	if s.client != nil {
		s.client.Close()
	}
}
