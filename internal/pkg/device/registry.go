package device

import (
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/config"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/model"
)

// Registry holds every configured device for the lifetime of the process.
// The set of devices never changes after NewRegistry, so lookups take no lock.
type Registry struct {
	devices []*Device
	byID    map[string]*Device
}

// NewRegistry builds all devices or none.
func NewRegistry(cfgs []config.DeviceConfig, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		devices: make([]*Device, 0, len(cfgs)),
		byID:    make(map[string]*Device, len(cfgs)),
	}
	for i, cfg := range cfgs {
		d, err := New(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("device at index %d: %w", i, err)
		}
		if _, exists := r.byID[d.ID()]; exists {
			return nil, fmt.Errorf("%w: %s", config.ErrDuplicateDevice, d.ID())
		}
		r.devices = append(r.devices, d)
		r.byID[d.ID()] = d
	}
	return r, nil
}

// Device returns the live device for id.
func (r *Registry) Device(id string) (*Device, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Devices returns the live devices in configuration order.
func (r *Registry) Devices() []*Device {
	return r.devices
}

// FindDevice returns a snapshot of the device with id.
func (r *Registry) FindDevice(id string) (model.DeviceSnapshot, error) {
	d, ok := r.byID[id]
	if !ok {
		return model.DeviceSnapshot{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return d.Snapshot(), nil
}

// AllDevices returns snapshots of every device in configuration order.
func (r *Registry) AllDevices() []model.DeviceSnapshot {
	return lo.Map(r.devices, func(d *Device, _ int) model.DeviceSnapshot {
		return d.Snapshot()
	})
}
