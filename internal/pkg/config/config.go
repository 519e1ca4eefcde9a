package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/anicoll/yandex-mqtt-bridge/internal/pkg/model"
)

const defaultCallbackURL = "https://dialogs.yandex.net/api/v1/skills/%s/callback/state"

type Config struct {
	MqttCfg   MqttConfig     `yaml:"mqtt" envPrefix:"MQTT_"`
	YandexCfg YandexConfig   `yaml:"yandex" envPrefix:"YANDEX_"`
	ServerCfg ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	InfluxCfg InfluxConfig   `yaml:"influx" envPrefix:"INFLUX_"`
	Devices   []DeviceConfig `yaml:"devices"`
	LogLevel  string         `yaml:"log_level" env:"LOG_LEVEL"`
}

type MqttConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Username string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASS"`
	ClientID string `yaml:"client_id" env:"CLIENT_ID"`
	QoS      int    `yaml:"qos" env:"QOS"`
	TLS      bool   `yaml:"tls" env:"TLS"`
}

type YandexConfig struct {
	SkillID     string        `yaml:"skill_id" env:"SKILL_ID"`
	Token       string        `yaml:"oauth_token" env:"TOKEN"`
	UserID      string        `yaml:"user_id" env:"USER_ID"`
	CallbackURL string        `yaml:"callback_url" env:"CALLBACK_URL"`
	AuthScheme  string        `yaml:"auth_scheme" env:"AUTH_SCHEME"`
	PushTimeout time.Duration `yaml:"push_timeout" env:"PUSH_TIMEOUT"`
	Workers     int           `yaml:"workers" env:"PUSH_WORKERS"`
	QueueSize   int           `yaml:"queue_size" env:"PUSH_QUEUE_SIZE"`
	// cron schedule, empty disables the periodic full resync.
	ResyncSchedule string `yaml:"resync_schedule" env:"RESYNC_SCHEDULE"`
}

// CallbackEndpoint is the state callback url for the configured skill.
func (y YandexConfig) CallbackEndpoint() string {
	if y.CallbackURL != "" {
		return y.CallbackURL
	}
	return fmt.Sprintf(defaultCallbackURL, y.SkillID)
}

// Authorization is the header value sent with every callback.
func (y YandexConfig) Authorization() string {
	if y.AuthScheme == "" {
		return y.Token
	}
	return y.AuthScheme + " " + y.Token
}

type ServerConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	CertFile  string `yaml:"cert_file" env:"CERT_FILE"`
	KeyFile   string `yaml:"key_file" env:"KEY_FILE"`
}

type InfluxConfig struct {
	URL    string `yaml:"url" env:"URL"`
	Token  string `yaml:"token" env:"TOKEN"`
	Org    string `yaml:"org" env:"ORG"`
	Bucket string `yaml:"bucket" env:"BUCKET"`
}

func (i InfluxConfig) Enabled() bool {
	return i.URL != ""
}

type DeviceConfig struct {
	ID           string             `yaml:"id"`
	Name         string             `yaml:"name"`
	Description  string             `yaml:"description"`
	Room         string             `yaml:"room"`
	Type         string             `yaml:"type"`
	Capabilities []model.Capability `yaml:"capabilities"`
	Properties   []model.Property   `yaml:"properties"`
	DeviceInfo   *model.DeviceInfo  `yaml:"device_info"`
	CustomData   model.CustomData   `yaml:"custom_data"`
}

// Load reads the yaml file at path, applies environment overrides and defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MqttCfg.Port == 0 {
		c.MqttCfg.Port = 1883
	}
	if c.YandexCfg.AuthScheme == "" {
		c.YandexCfg.AuthScheme = "OAuth"
	}
	if c.YandexCfg.PushTimeout <= 0 {
		c.YandexCfg.PushTimeout = 5 * time.Second
	}
	if c.YandexCfg.Workers <= 0 {
		c.YandexCfg.Workers = 4
	}
	if c.YandexCfg.QueueSize <= 0 {
		c.YandexCfg.QueueSize = 256
	}
	if c.ServerCfg.Addr == "" {
		c.ServerCfg.Addr = "0.0.0.0:8000"
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
}
