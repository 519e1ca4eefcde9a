// Package bridge wires device state from the broker through to the state
// callback publishers.
package bridge

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/config"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/device"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/ingest"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/model"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/mqtt"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/publisher"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/subscription"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/yandex"
)

type transport interface {
	Run(ctx context.Context) error
	State() mqtt.State
}

// TransportFactory builds the broker connection for the given topics.
type TransportFactory func(cfg config.MqttConfig, topics []string, handler mqtt.MessageHandler, opts ...mqtt.Option) transport

func defaultTransport(cfg config.MqttConfig, topics []string, handler mqtt.MessageHandler, opts ...mqtt.Option) transport {
	return mqtt.New(cfg, topics, handler, opts...)
}

type Bridge struct {
	registry   *device.Registry
	index      *subscription.Index
	dispatcher *publisher.Dispatcher
	ingest     *ingest.Loop
	transport  transport
	resync     *cron.Cron
	logger     *zap.Logger
}

type Option func(*options)

type options struct {
	logger       *zap.Logger
	newTransport TransportFactory
	yandexOpts   []yandex.Option
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithTransportFactory(f TransportFactory) Option {
	return func(o *options) {
		o.newTransport = f
	}
}

// WithYandexOptions is passed through to the state callback client.
func WithYandexOptions(opts ...yandex.Option) Option {
	return func(o *options) {
		o.yandexOpts = append(o.yandexOpts, opts...)
	}
}

// New builds the registry and index from cfg. Any invalid device fails the
// whole bridge.
func New(cfg *config.Config, opts ...Option) (*Bridge, error) {
	o := options{logger: zap.L(), newTransport: defaultTransport}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(zap.String("component", "bridge"))

	registry, err := device.NewRegistry(cfg.Devices, o.logger)
	if err != nil {
		return nil, err
	}
	index := subscription.Build(registry.Devices())

	dispatcher := publisher.NewDispatcher(
		publisher.WithWorkers(cfg.YandexCfg.Workers),
		publisher.WithQueueSize(cfg.YandexCfg.QueueSize),
		publisher.WithTimeout(cfg.YandexCfg.PushTimeout),
		publisher.WithLogger(o.logger),
	)
	yandexOpts := append([]yandex.Option{yandex.WithLogger(o.logger)}, o.yandexOpts...)
	if err := dispatcher.Register("yandex", yandex.New(cfg.YandexCfg, yandexOpts...)); err != nil {
		return nil, err
	}

	b := &Bridge{
		registry:   registry,
		index:      index,
		dispatcher: dispatcher,
		logger:     logger,
	}
	b.ingest = ingest.New(index, registry, dispatcher, o.logger)
	b.transport = o.newTransport(cfg.MqttCfg, index.Topics(), b.ingest.HandleMessage,
		mqtt.WithLogger(o.logger),
		mqtt.OnStateChange(b.onTransportState),
	)

	if cfg.YandexCfg.ResyncSchedule != "" {
		b.resync = cron.New()
		if _, err := b.resync.AddFunc(cfg.YandexCfg.ResyncSchedule, b.Resync); err != nil {
			return nil, fmt.Errorf("%w: resync_schedule: %w", config.ErrInvalidConfig, err)
		}
	}

	logger.Info("bridge configured",
		zap.Int("devices", len(registry.Devices())),
		zap.Int("subscriptions", index.Len()),
		zap.Int("topics", len(index.Topics())))
	return b, nil
}

// AddPublisher registers an extra destination for state updates. It must be
// called before Run.
func (b *Bridge) AddPublisher(name string, p publisher.Publisher) error {
	return b.dispatcher.Register(name, p)
}

// Run connects to the broker and publishes state until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return b.dispatcher.Run(ctx)
	})

	eg.Go(func() error {
		return b.transport.Run(ctx)
	})

	if b.resync != nil {
		eg.Go(func() error {
			b.resync.Start()
			<-ctx.Done()
			<-b.resync.Stop().Done()
			return nil
		})
	}

	return eg.Wait()
}

// Resync schedules a push of the current state of every device.
func (b *Bridge) Resync() {
	queued := 0
	for _, d := range b.registry.Devices() {
		if err := b.dispatcher.Enqueue(publisher.Update{Snapshot: d.Snapshot()}); err != nil {
			continue
		}
		queued++
	}
	b.logger.Info("resync queued", zap.Int("devices", queued))
}

func (b *Bridge) FindDevice(id string) (model.DeviceSnapshot, error) {
	return b.registry.FindDevice(id)
}

func (b *Bridge) AllDevices() []model.DeviceSnapshot {
	return b.registry.AllDevices()
}

// TransportState reports the broker connection state.
func (b *Bridge) TransportState() mqtt.State {
	return b.transport.State()
}

func (b *Bridge) onTransportState(from, to mqtt.State) {
	fields := []zap.Field{zap.Stringer("from", from), zap.Stringer("to", to)}
	if to == mqtt.Offline {
		b.logger.Warn("transport offline, ingest paused", fields...)
		return
	}
	b.logger.Info("transport state changed", fields...)
}
