// Package config loads node configuration from configs/config.yml, an
// optional .env file and ELAPSED_TIMER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ELAPSED_TIMER"

// Persistence policies.
const (
	PolicyBestEffort = "best-effort"
	PolicyStrict     = "strict"
)

// Link kinds.
const (
	LinkSerial = "serial"
	LinkNATS   = "nats"
	LinkNone   = "none"
)

// Monitoring sources. An empty source picks the role default.
const (
	SourceEngine = "engine"
	SourceStore  = "store"
)

type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	DB          DBConfig          `mapstructure:"db"`
	Timer       TimerConfig       `mapstructure:"timer"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Parser      ParserConfig      `mapstructure:"parser"`
	Link        LinkConfig        `mapstructure:"link"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	WS          WSConfig          `mapstructure:"ws"`
	Master      MasterConfig      `mapstructure:"master"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type TimerConfig struct {
	Period    time.Duration `mapstructure:"period"`
	Namespace string        `mapstructure:"namespace"`
}

type PersistenceConfig struct {
	Policy string `mapstructure:"policy"`
}

type ParserConfig struct {
	Mode string `mapstructure:"mode"`
}

type LinkConfig struct {
	Kind   string           `mapstructure:"kind"`
	Serial SerialLinkConfig `mapstructure:"serial"`
	NATS   NATSLinkConfig   `mapstructure:"nats"`
}

type SerialLinkConfig struct {
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type NATSLinkConfig struct {
	URL         string        `mapstructure:"url"`
	TxSubject   string        `mapstructure:"tx_subject"`
	RxSubject   string        `mapstructure:"rx_subject"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type MonitoringConfig struct {
	Source string `mapstructure:"source"`
}

// SourceOr returns the configured source, or def when none is set.
func (m MonitoringConfig) SourceOr(def string) string {
	if m.Source == "" {
		return def
	}
	return m.Source
}

type WSConfig struct {
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`
}

type MasterConfig struct {
	PowerPin     int           `mapstructure:"power_pin"`
	ResetPin     int           `mapstructure:"reset_pin"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	GPIORoot     string        `mapstructure:"gpio_root"`
}

// SetDefaults registers the built-in values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("http.port", "8080")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("timer.period", time.Second)
	v.SetDefault("timer.namespace", "storage")
	v.SetDefault("persistence.policy", PolicyBestEffort)
	v.SetDefault("parser.mode", "compat")
	v.SetDefault("link.kind", LinkSerial)
	v.SetDefault("link.serial.port", "/dev/ttyUSB0")
	v.SetDefault("link.serial.baud", 115200)
	v.SetDefault("link.serial.read_timeout", time.Second)
	v.SetDefault("link.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("link.nats.tx_subject", "timer.link.master")
	v.SetDefault("link.nats.rx_subject", "timer.link.slave")
	v.SetDefault("link.nats.read_timeout", time.Second)
	v.SetDefault("monitoring.source", "")
	v.SetDefault("ws.broadcast_interval", time.Second)
	v.SetDefault("master.power_pin", 19)
	v.SetDefault("master.reset_pin", 20)
	v.SetDefault("master.poll_interval", 100*time.Millisecond)
	v.SetDefault("master.gpio_root", "/sys/class/gpio")
}

// Load reads configuration into v and returns the decoded Config.
// An empty path searches ./configs/config.yml; a missing file is not an error
// when searching, only when path is given explicitly.
func Load(v *viper.Viper, path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first offending key.
func (c *Config) Validate() error {
	if c.Timer.Period <= 0 {
		return fmt.Errorf("timer.period must be positive, got %s", c.Timer.Period)
	}
	if c.Timer.Namespace == "" {
		return errors.New("timer.namespace must not be empty")
	}
	switch c.Persistence.Policy {
	case PolicyBestEffort, PolicyStrict:
	default:
		return fmt.Errorf("persistence.policy must be %q or %q, got %q", PolicyBestEffort, PolicyStrict, c.Persistence.Policy)
	}
	switch strings.ToLower(c.Parser.Mode) {
	case "compat", "grammar":
	default:
		return fmt.Errorf("parser.mode must be compat or grammar, got %q", c.Parser.Mode)
	}
	switch c.Link.Kind {
	case LinkSerial:
		if c.Link.Serial.Port == "" {
			return errors.New("link.serial.port must be set for a serial link")
		}
		if c.Link.Serial.Baud <= 0 {
			return fmt.Errorf("link.serial.baud must be positive, got %d", c.Link.Serial.Baud)
		}
	case LinkNATS:
		if c.Link.NATS.URL == "" || c.Link.NATS.TxSubject == "" || c.Link.NATS.RxSubject == "" {
			return errors.New("link.nats.url, link.nats.tx_subject and link.nats.rx_subject must be set for a nats link")
		}
	case LinkNone:
	default:
		return fmt.Errorf("link.kind must be serial, nats or none, got %q", c.Link.Kind)
	}
	switch c.Monitoring.Source {
	case "", SourceEngine, SourceStore:
	default:
		return fmt.Errorf("monitoring.source must be engine or store, got %q", c.Monitoring.Source)
	}
	if c.WS.BroadcastInterval <= 0 {
		return fmt.Errorf("ws.broadcast_interval must be positive, got %s", c.WS.BroadcastInterval)
	}
	if c.Master.PollInterval <= 0 {
		return fmt.Errorf("master.poll_interval must be positive, got %s", c.Master.PollInterval)
	}
	return nil
}
