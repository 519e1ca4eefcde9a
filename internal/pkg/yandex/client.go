package yandex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/config"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/model"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/publisher"
)

// maxBodyLog caps how much of a response body ends up in logs and errors.
const maxBodyLog = 4 << 10

// Client delivers device state to the smart home state callback.
type Client struct {
	httpClient    *http.Client
	endpoint      string
	authorization string
	userID        string
	logger        *zap.Logger
	now           func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock replaces time.Now when stamping callbacks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

func New(cfg config.YandexConfig, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: cfg.PushTimeout},
		endpoint:      cfg.CallbackEndpoint(),
		authorization: cfg.Authorization(),
		userID:        cfg.UserID,
		logger:        zap.L(),
		now:           time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With(zap.String("component", "yandex"))
	return c
}

func withAuthorization(value string) func(req *http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", value)
		req.Header.Set("Content-Type", "application/json")
	}
}

// Payload builds the callback body for one device.
func (c *Client) Payload(snapshot model.DeviceSnapshot) model.CallbackRequest {
	return model.CallbackRequest{
		TS: c.now().Unix(),
		Payload: model.CallbackPayload{
			UserID:  c.userID,
			Devices: []model.DeviceState{snapshot.States()},
		},
	}
}

// Push makes a single delivery attempt for snapshot.
func (c *Client) Push(ctx context.Context, snapshot model.DeviceSnapshot) error {
	body, err := json.Marshal(c.Payload(snapshot))
	if err != nil {
		return fmt.Errorf("encoding callback: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	withAuthorization(c.authorization)(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending callback: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyLog))
	if err != nil {
		return fmt.Errorf("reading callback response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	c.logger.Info("state pushed",
		zap.String("device_id", snapshot.ID),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("response", respBody))
	return nil
}

// Publish lets the client be registered with a publisher.Dispatcher.
func (c *Client) Publish(ctx context.Context, update publisher.Update) error {
	return c.Push(ctx, update.Snapshot)
}
