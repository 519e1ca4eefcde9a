package yandex

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/config"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/model"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/publisher"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 750_000_000, time.UTC)

func lampSnapshot() model.DeviceSnapshot {
	return model.DeviceSnapshot{
		ID:   "lamp-1",
		Name: "Lamp",
		Capabilities: []model.Capability{
			{Type: model.OnOff, State: &model.State{Instance: "on", Value: true}},
			{Type: model.Range, Parameters: map[string]any{"instance": "brightness"}},
		},
		Properties: []model.Property{
			{Type: model.FloatProperty, State: &model.State{Instance: "temperature", Value: 21.5}},
		},
	}
}

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	cfg := config.YandexConfig{
		Token:       "secret",
		UserID:      "user-1",
		CallbackURL: url,
		AuthScheme:  "OAuth",
		PushTimeout: time.Second,
	}
	return New(cfg, WithLogger(zaptest.NewLogger(t)), WithClock(func() time.Time { return fixedNow }))
}

func TestPush_Success(t *testing.T) {
	var (
		gotHeaders http.Header
		gotBody    map[string]any
		gotMethod  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeaders = r.Header.Clone()
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"request_id":"abc","status":"ok"}`))
	}))
	defer srv.Close()

	err := newClient(t, srv.URL).Push(context.Background(), lampSnapshot())

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "OAuth secret", gotHeaders.Get("Authorization"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))

	assert.EqualValues(t, fixedNow.Unix(), gotBody["ts"])
	payload := gotBody["payload"].(map[string]any)
	assert.Equal(t, "user-1", payload["user_id"])
	devices := payload["devices"].([]any)
	require.Len(t, devices, 1)
	dev := devices[0].(map[string]any)
	assert.Equal(t, "lamp-1", dev["id"])
	assert.Equal(t, []any{
		map[string]any{"type": "devices.capabilities.on_off", "state": map[string]any{"instance": "on", "value": true}},
	}, dev["capabilities"])
	assert.Equal(t, []any{
		map[string]any{"type": "devices.properties.float", "state": map[string]any{"instance": "temperature", "value": 21.5}},
	}, dev["properties"])
}

func TestPush_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_code":"INVALID_VALUE"}`))
	}))
	defer srv.Close()

	err := newClient(t, srv.URL).Push(context.Background(), lampSnapshot())

	require.ErrorIs(t, err, ErrUnexpectedStatus)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode())
	assert.Contains(t, statusErr.Body, "INVALID_VALUE")
}

func TestPush_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := newClient(t, srv.URL).Push(ctx, lampSnapshot())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPush_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newClient(t, url).Push(context.Background(), lampSnapshot())

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnexpectedStatus)
}

func TestPublish_UsesSnapshot(t *testing.T) {
	var got model.CallbackRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	err := newClient(t, srv.URL).Publish(context.Background(), publisher.Update{
		Snapshot:  lampSnapshot(),
		Instances: []string{"on"},
	})

	require.NoError(t, err)
	require.Len(t, got.Payload.Devices, 1)
	assert.Equal(t, "lamp-1", got.Payload.Devices[0].ID)
}

func TestPayload_TimestampInWholeSeconds(t *testing.T) {
	c := newClient(t, "http://unused")

	req := c.Payload(lampSnapshot())

	assert.Equal(t, int64(1709294400), req.TS)
	assert.Equal(t, "user-1", req.Payload.UserID)
}

func TestNew_DefaultEndpoint(t *testing.T) {
	c := New(config.YandexConfig{SkillID: "skill-1", Token: "t", AuthScheme: "OAuth"})

	assert.Equal(t, "https://dialogs.yandex.net/api/v1/skills/skill-1/callback/state", c.endpoint)
	assert.Equal(t, "OAuth t", c.authorization)
}
