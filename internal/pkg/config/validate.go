package config

import (
	"fmt"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/subscription"
)

// Validate rejects configuration the bridge cannot start with.
func (c *Config) Validate() error {
	if c.MqttCfg.Host == "" {
		return fmt.Errorf("%w: mqtt host is required", ErrInvalidConfig)
	}
	if c.MqttCfg.QoS < 0 || c.MqttCfg.QoS > 2 {
		return fmt.Errorf("%w: mqtt qos must be 0, 1 or 2", ErrInvalidConfig)
	}
	if c.YandexCfg.Token == "" {
		return fmt.Errorf("%w: yandex oauth token is required", ErrInvalidConfig)
	}
	if c.YandexCfg.UserID == "" {
		return fmt.Errorf("%w: yandex user id is required", ErrInvalidConfig)
	}
	if c.YandexCfg.SkillID == "" && c.YandexCfg.CallbackURL == "" {
		return fmt.Errorf("%w: yandex skill id or callback url is required", ErrInvalidConfig)
	}
	if len(c.Devices) == 0 {
		return fmt.Errorf("%w: no devices configured", ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(c.Devices))
	for i, d := range c.Devices {
		if d.ID == "" {
			return fmt.Errorf("%w: device at index %d has no id", ErrInvalidDevice, i)
		}
		if _, exists := seen[d.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateDevice, d.ID)
		}
		seen[d.ID] = struct{}{}
		if err := d.validateBindings(); err != nil {
			return err
		}
	}
	return nil
}

// validateBindings enforces one topic per instance and one instance per topic.
// Bindings without a state topic only carry a command topic and are not checked.
func (d DeviceConfig) validateBindings() error {
	instances := make(map[string]struct{})
	topics := make(map[string]struct{})
	for _, b := range d.CustomData.MQTT {
		if b.Instance == "" || b.State == "" {
			continue
		}
		if _, exists := instances[b.Instance]; exists {
			return fmt.Errorf("%w: device %s binds instance %q twice", ErrDuplicateBinding, d.ID, b.Instance)
		}
		topic := subscription.Normalize(b.State)
		if _, exists := topics[topic]; exists {
			return fmt.Errorf("%w: device %s binds topic %q twice", ErrDuplicateBinding, d.ID, b.State)
		}
		instances[b.Instance] = struct{}{}
		topics[topic] = struct{}{}
	}
	return nil
}
