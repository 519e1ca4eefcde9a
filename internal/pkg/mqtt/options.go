package mqtt

import (
	"crypto/tls"
	"fmt"
	"os"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/config"
)

const (
	connectRetryInterval = 5 * time.Second
	maxReconnectInterval = time.Minute
	keepAlive            = 60 * time.Second
	subscribeTimeout     = 10 * time.Second
	disconnectQuiesce    = 250 // milliseconds
)

type Option func(*Client)

// WithClientFactory replaces paho.NewClient, used by tests.
func WithClientFactory(f func(*paho_mqtt.ClientOptions) paho_mqtt.Client) Option {
	return func(c *Client) {
		c.newClient = f
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// OnStateChange registers f to be called on every state transition.
func OnStateChange(f func(from, to State)) Option {
	return func(c *Client) {
		c.onStateChange = f
	}
}

func buildClientOptions(cfg config.MqttConfig) *paho_mqtt.ClientOptions {
	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
	}
	opts := paho_mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)).
		SetClientID(clientID(cfg)).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval).
		SetMaxReconnectInterval(maxReconnectInterval).
		SetKeepAlive(keepAlive).
		// handlers run one at a time in arrival order.
		SetOrderMatters(true)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

func clientID(cfg config.MqttConfig) string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	host, err := os.Hostname()
	if err != nil {
		host = "local"
	}
	return slug.Make("yandex-bridge " + host)
}
