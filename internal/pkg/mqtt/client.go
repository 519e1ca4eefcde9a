package mqtt

import (
	"context"
	"fmt"
	"sync"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/config"
)

// MessageHandler receives every message delivered while the client is connected.
type MessageHandler func(topic string, payload []byte)

// Client owns the broker connection and subscribes the configured topics every
// time the connection is (re)established. Reconnection itself is left to paho.
type Client struct {
	client        paho_mqtt.Client
	cfg           config.MqttConfig
	topics        []string
	handler       MessageHandler
	logger        *zap.Logger
	newClient     func(*paho_mqtt.ClientOptions) paho_mqtt.Client
	onStateChange func(from, to State)

	mu    sync.Mutex
	state State
}

func New(cfg config.MqttConfig, topics []string, handler MessageHandler, opts ...Option) *Client {
	c := &Client{
		cfg:       cfg,
		topics:    topics,
		handler:   handler,
		logger:    zap.L(),
		newClient: paho_mqtt.NewClient,
		state:     Disconnected,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With(zap.String("component", "mqtt"))

	options := buildClientOptions(cfg)
	options.SetOnConnectHandler(c.onConnect)
	options.SetConnectionLostHandler(c.onConnectionLost)
	options.SetReconnectingHandler(c.onReconnecting)
	c.client = c.newClient(options)
	return c
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	if from == to {
		return
	}
	c.logger.Debug("state transition", zap.Stringer("from", from), zap.Stringer("to", to))
	if c.onStateChange != nil {
		c.onStateChange(from, to)
	}
}

// Connect blocks until the first connection succeeds or ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(Connecting)
	token := c.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		c.Close()
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		c.setState(Disconnected)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

// Run connects and keeps the connection until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	if err := c.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	<-ctx.Done()
	c.Close()
	return nil
}

// Close disconnects, also aborting a connection attempt still in progress.
func (c *Client) Close() {
	c.client.Disconnect(disconnectQuiesce)
	c.setState(Disconnected)
}

func (c *Client) onConnect(client paho_mqtt.Client) {
	c.setState(Connected)
	if err := c.subscribe(client); err != nil {
		c.logger.Error("failed to subscribe", zap.Error(err), zap.Int("topics", len(c.topics)))
		return
	}
	c.logger.Info("subscribed to device topics", zap.Int("topics", len(c.topics)))
}

// subscribe issues one request covering every topic.
func (c *Client) subscribe(client paho_mqtt.Client) error {
	if len(c.topics) == 0 {
		c.logger.Warn("no device topics to subscribe to")
		return nil
	}
	filters := make(map[string]byte, len(c.topics))
	for _, t := range c.topics {
		filters[t] = byte(c.cfg.QoS)
	}
	token := client.SubscribeMultiple(filters, c.onMessage)
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, subscribeTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

func (c *Client) onConnectionLost(_ paho_mqtt.Client, err error) {
	c.logger.Warn("connection lost", zap.Error(err))
	c.setState(Offline)
}

func (c *Client) onReconnecting(_ paho_mqtt.Client, _ *paho_mqtt.ClientOptions) {
	c.logger.Debug("reconnecting to broker")
}

// onMessage hands one message to the handler. A panic is contained to the
// message that caused it.
func (c *Client) onMessage(_ paho_mqtt.Client, msg paho_mqtt.Message) {
	if state := c.State(); state != Connected {
		c.logger.Debug("dropping message received while not connected", zap.String("topic", msg.Topic()), zap.Stringer("state", state))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("message handler panic recovered", zap.String("topic", msg.Topic()), zap.Any("panic", r))
		}
	}()
	c.handler(msg.Topic(), msg.Payload())
}
