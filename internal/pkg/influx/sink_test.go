package influx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/config"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/model"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/publisher"
)

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushed int
	errs    chan error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{errs: make(chan error, 1)}
}

func (f *fakeWriter) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriter) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed++
}

func (f *fakeWriter) Errors() <-chan error { return f.errs }

func tags(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fields(p *write.Point) map[string]any {
	out := map[string]any{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestPublish_WritesChangedInstances(t *testing.T) {
	w := newFakeWriter()
	s := newSink(w, zaptest.NewLogger(t))
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	err := s.Publish(context.Background(), publisher.Update{
		Snapshot: model.DeviceSnapshot{
			ID:  "lamp-1",
			Raw: map[string]string{"on": "true", "brightness": "40"},
		},
		Instances: []string{"on", "missing"},
	})

	require.NoError(t, err)
	require.Len(t, w.points, 1)
	p := w.points[0]
	assert.Equal(t, "device_state", p.Name())
	assert.Equal(t, map[string]string{"device_id": "lamp-1", "instance": "on"}, tags(p))
	assert.Equal(t, map[string]any{"value": "true"}, fields(p))
	assert.Equal(t, now, p.Time())
}

func TestPublish_RestatementRecordsNothing(t *testing.T) {
	w := newFakeWriter()
	s := newSink(w, zaptest.NewLogger(t))

	err := s.Publish(context.Background(), publisher.Update{
		Snapshot: model.DeviceSnapshot{ID: "lamp-1", Raw: map[string]string{"on": "true"}},
	})

	require.NoError(t, err)
	assert.Empty(t, w.points)
}

func TestWriteErrorsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	w := newFakeWriter()
	newSink(w, zap.New(core))

	w.errs <- errors.New("bucket not found")

	require.Eventually(t, func() bool {
		return logs.FilterMessage("failed to write state history").Len() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestClose_Flushes(t *testing.T) {
	w := newFakeWriter()
	s := newSink(w, zaptest.NewLogger(t))

	s.Close()

	assert.Equal(t, 1, w.flushed)
}

func TestNew_Disabled(t *testing.T) {
	_, err := New(context.Background(), config.InfluxConfig{}, zaptest.NewLogger(t))

	assert.ErrorIs(t, err, ErrDisabled)
}
