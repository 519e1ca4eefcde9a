package device

import (
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/config"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/model"
)

// Device is the in-memory model of one configured device.
//
// Descriptors and bindings are fixed at construction. Only the raw state map
// changes, and every access to it goes through mu so updates for a single
// device are applied one at a time.
type Device struct {
	id           string
	name         string
	description  string
	room         string
	deviceType   string
	deviceInfo   *model.DeviceInfo
	capabilities []model.Capability
	properties   []model.Property
	bindings     []model.Binding
	topics       map[string]string // instance -> state topic
	logger       *zap.Logger

	mu    sync.Mutex
	state map[string]string
}

func New(cfg config.DeviceConfig, logger *zap.Logger) (*Device, error) {
	if cfg.ID == "" {
		return nil, ErrMissingID
	}
	if logger == nil {
		logger = zap.L()
	}
	d := &Device{
		id:           cfg.ID,
		name:         cfg.Name,
		description:  cfg.Description,
		room:         cfg.Room,
		deviceType:   cfg.Type,
		deviceInfo:   cfg.DeviceInfo,
		capabilities: slices.Clone(cfg.Capabilities),
		properties:   slices.Clone(cfg.Properties),
		topics:       make(map[string]string),
		state:        make(map[string]string),
		logger:       logger.With(zap.String("device_id", cfg.ID)),
	}
	for _, b := range cfg.CustomData.MQTT {
		if b.Instance == "" || b.State == "" {
			continue
		}
		d.bindings = append(d.bindings, b)
		d.topics[b.Instance] = b.State
	}
	return d, nil
}

func (d *Device) ID() string {
	return d.id
}

// Bindings returns the instance/topic pairs the device reports state on.
func (d *Device) Bindings() []model.Binding {
	return slices.Clone(d.bindings)
}

// UpdateState stores raw as the latest value of instance. It reports false when
// the instance is not bound on this device.
func (d *Device) UpdateState(raw, instance string) bool {
	_, ok := d.Update(raw, instance)
	return ok
}

// Update applies the new value and returns the snapshot taken under the same lock,
// so the snapshot always reflects this update and every one before it.
func (d *Device) Update(raw, instance string) (model.DeviceSnapshot, bool) {
	if _, bound := d.topics[instance]; !bound {
		d.logger.Debug("state update for unbound instance ignored", zap.String("instance", instance))
		return model.DeviceSnapshot{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.state[instance] = raw
	return d.snapshotLocked(), true
}

// Value returns the last raw value received for instance.
func (d *Device) Value(instance string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.state[instance]
	return v, ok
}

func (d *Device) Snapshot() model.DeviceSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Device) snapshotLocked() model.DeviceSnapshot {
	snap := model.DeviceSnapshot{
		ID:           d.id,
		Name:         d.name,
		Description:  d.description,
		Room:         d.room,
		Type:         d.deviceType,
		Capabilities: make([]model.Capability, len(d.capabilities)),
		Properties:   make([]model.Property, len(d.properties)),
		Raw:          maps.Clone(d.state),
	}
	if d.deviceInfo != nil {
		info := *d.deviceInfo
		snap.DeviceInfo = &info
	}

	for i, c := range d.capabilities {
		instance := c.Instance()
		c.State = d.stateFor(instance, model.CapabilityKind(c.Type, instance), c.State)
		snap.Capabilities[i] = c
	}
	for i, p := range d.properties {
		instance := p.Instance()
		p.State = d.stateFor(instance, model.PropertyKind(p.Type), p.State)
		snap.Properties[i] = p
	}
	return snap
}

// stateFor builds a fresh state for instance, falling back to the configured one.
func (d *Device) stateFor(instance string, kind model.ValueKind, configured *model.State) *model.State {
	raw, ok := d.state[instance]
	if !ok || instance == "" {
		if configured == nil {
			return nil
		}
		s := *configured
		return &s
	}
	value, err := model.ParseValue(kind, raw)
	if err != nil {
		d.logger.Debug("reporting unconvertible value as raw", zap.String("instance", instance), zap.Error(err))
		value = raw
	}
	return &model.State{Instance: instance, Value: value}
}
