package publisher

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/model"
)

var (
	ErrAlreadyRegistered = errors.New("publisher: already registered")
	ErrQueueFull         = errors.New("publisher: queue full")
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 256
	defaultTimeout   = 5 * time.Second
)

// Update is one device state change waiting to be published.
type Update struct {
	Snapshot model.DeviceSnapshot
	// Instances that changed. Empty for a full restatement.
	Instances []string
}

func (u Update) DeviceID() string {
	return u.Snapshot.ID
}

type Publisher interface {
	Publish(ctx context.Context, update Update) error
}

// PublisherFunc adapts a plain function to Publisher.
type PublisherFunc func(ctx context.Context, update Update) error

func (f PublisherFunc) Publish(ctx context.Context, update Update) error {
	return f(ctx, update)
}

// statusCoder is implemented by errors that carry a remote status code.
type statusCoder interface {
	StatusCode() int
}

type namedPublisher struct {
	name      string
	publisher Publisher
}

// Dispatcher fans updates out to every registered publisher from a fixed pool
// of workers. Producers never wait on a publisher. Every update for a device
// goes through the same worker, so a device's updates are published in the
// order they were enqueued.
type Dispatcher struct {
	queues    []chan Update
	workers   int
	queueSize int
	timeout   time.Duration
	logger    *zap.Logger

	mu         sync.RWMutex
	publishers []namedPublisher
}

type Option func(*Dispatcher)

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the total queue capacity, split evenly between workers.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithTimeout bounds a single Publish call.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
		timeout:   defaultTimeout,
		logger:    zap.L(),
	}
	for _, o := range opts {
		o(d)
	}
	perWorker := max((d.queueSize+d.workers-1)/d.workers, 1)
	d.queues = make([]chan Update, d.workers)
	for i := range d.queues {
		d.queues[i] = make(chan Update, perWorker)
	}
	d.logger = d.logger.With(zap.String("component", "publisher"))
	return d
}

func (d *Dispatcher) Register(name string, p Publisher) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, np := range d.publishers {
		if np.name == name {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
		}
	}
	d.publishers = append(d.publishers, namedPublisher{name: name, publisher: p})
	d.logger.Debug("registered publisher", zap.String("publisher", name))
	return nil
}

// Enqueue schedules u for publishing. When the queue is full the update is
// dropped and ErrQueueFull returned.
func (d *Dispatcher) Enqueue(u Update) error {
	queue := d.queueFor(u.DeviceID())
	select {
	case queue <- u:
		return nil
	default:
		d.logger.Warn("push queue full, dropping update",
			zap.String("device_id", u.DeviceID()),
			zap.Strings("instances", u.Instances),
			zap.Int("capacity", cap(queue)))
		return ErrQueueFull
	}
}

// queueFor pins a device to one worker queue.
func (d *Dispatcher) queueFor(deviceID string) chan Update {
	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	return d.queues[h.Sum32()%uint32(len(d.queues))]
}

// Run starts the workers and blocks until ctx is done. Updates still queued
// at that point are discarded.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, queue := range d.queues {
		g.Go(func() error {
			d.work(ctx, queue)
			return nil
		})
	}
	d.logger.Info("push workers started", zap.Int("workers", len(d.queues)), zap.Int("queue_size", d.queueSize))
	return g.Wait()
}

func (d *Dispatcher) work(ctx context.Context, queue <-chan Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-queue:
			d.publish(ctx, u)
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, u Update) {
	d.mu.RLock()
	publishers := d.publishers
	d.mu.RUnlock()

	for _, np := range publishers {
		d.publishOne(ctx, np, u)
	}
}

// publishOne lets an in-flight push finish within the timeout after shutdown
// starts.
func (d *Dispatcher) publishOne(ctx context.Context, np namedPublisher, u Update) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("publisher panic recovered",
				zap.String("publisher", np.name),
				zap.String("device_id", u.DeviceID()),
				zap.Any("panic", r))
		}
	}()

	if err := np.publisher.Publish(ctx, u); err != nil {
		fields := []zap.Field{
			zap.Error(err),
			zap.String("publisher", np.name),
			zap.String("device_id", u.DeviceID()),
			zap.Strings("instances", u.Instances),
		}
		var sc statusCoder
		if errors.As(err, &sc) {
			fields = append(fields, zap.Int("status", sc.StatusCode()))
		}
		d.logger.Error("failed to publish state", fields...)
		return
	}
	d.logger.Debug("published state",
		zap.String("publisher", np.name),
		zap.String("device_id", u.DeviceID()),
		zap.Strings("instances", u.Instances))
}
