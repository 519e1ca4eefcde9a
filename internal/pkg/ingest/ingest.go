// Package ingest turns transport messages into device state updates and
// schedules the resulting pushes.
package ingest

import (
	"go.uber.org/zap"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/device"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/publisher"
	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/subscription"
)

type deviceLookup interface {
	Device(id string) (*device.Device, bool)
}

type enqueuer interface {
	Enqueue(u publisher.Update) error
}

type Loop struct {
	index   *subscription.Index
	devices deviceLookup
	push    enqueuer
	logger  *zap.Logger
}

func New(index *subscription.Index, devices deviceLookup, push enqueuer, logger *zap.Logger) *Loop {
	return &Loop{
		index:   index,
		devices: devices,
		push:    push,
		logger:  logger.With(zap.String("component", "ingest")),
	}
}

// HandleMessage applies payload to every device instance bound to topic and
// schedules one push per affected device. It never waits on a push.
func (l *Loop) HandleMessage(topic string, payload []byte) {
	matches := l.index.Resolve(topic)
	if len(matches) == 0 {
		l.logger.Debug("no device bound to topic", zap.String("topic", topic))
		return
	}

	raw := string(payload)
	var pending []publisher.Update
	for _, sub := range matches {
		d, ok := l.devices.Device(sub.DeviceID)
		if !ok {
			l.logger.Warn("subscription refers to unknown device",
				zap.String("device_id", sub.DeviceID),
				zap.String("topic", topic))
			continue
		}
		snapshot, ok := d.Update(raw, sub.Instance)
		if !ok {
			continue
		}
		l.logger.Debug("device state updated",
			zap.String("device_id", sub.DeviceID),
			zap.String("instance", sub.Instance),
			zap.String("value", raw))
		pending = mergeUpdate(pending, snapshot.ID, publisher.Update{
			Snapshot:  snapshot,
			Instances: []string{sub.Instance},
		})
	}

	for _, u := range pending {
		if err := l.push.Enqueue(u); err != nil {
			l.logger.Debug("push not scheduled", zap.Error(err), zap.String("device_id", u.DeviceID()))
		}
	}
}

// mergeUpdate keeps one update per device, carrying the latest snapshot and
// every changed instance.
func mergeUpdate(pending []publisher.Update, id string, u publisher.Update) []publisher.Update {
	for i := range pending {
		if pending[i].DeviceID() == id {
			pending[i].Snapshot = u.Snapshot
			pending[i].Instances = append(pending[i].Instances, u.Instances...)
			return pending
		}
	}
	return append(pending, u)
}
