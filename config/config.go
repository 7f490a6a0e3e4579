package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-driver/pkg/configparser"
	"github.com/Temutjin2k/ride-hail-driver/pkg/logger"
)

// Errors
var (
	ErrTransportURL        = errors.New("transport url must be a ws:// or wss:// url")
	ErrTokenNotProvided    = errors.New("transport token not provided")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidTimeouts     = errors.New("session timeouts must be positive")
	ErrInvalidLocationMode = errors.New("location mode must be static, simulated or device")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Log       LogConfig
		Transport TransportConfig
		Session   SessionConfig
		Location  LocationConfig
		RabbitMQ  RabbitMQConfig
		HTTP      HTTPConfig
	}

	LogConfig struct {
		Level string `env:"LOG_LEVEL" default:"INFO"`
	}

	TransportConfig struct {
		URL              string        `env:"TRANSPORT_URL" default:"ws://localhost:3001/ws/drivers"`
		Token            string        `env:"TRANSPORT_TOKEN"`
		HandshakeTimeout time.Duration `env:"TRANSPORT_HANDSHAKE_TIMEOUT" default:"10s"`
		PingInterval     time.Duration `env:"TRANSPORT_PING_INTERVAL" default:"20s"`
		ReconnectMin     time.Duration `env:"TRANSPORT_RECONNECT_MIN" default:"1s"`
		ReconnectMax     time.Duration `env:"TRANSPORT_RECONNECT_MAX" default:"30s"`
		InboundBuffer    int           `env:"TRANSPORT_INBOUND_BUFFER" default:"64"`
	}

	SessionConfig struct {
		OfferTimeout      time.Duration `env:"SESSION_OFFER_TIMEOUT" default:"30s"`
		ConfirmTimeout    time.Duration `env:"SESSION_CONFIRM_TIMEOUT" default:"15s"`
		TelemetryInterval time.Duration `env:"SESSION_TELEMETRY_INTERVAL" default:"10s"`
		EventBuffer       int           `env:"SESSION_EVENT_BUFFER" default:"32"`
	}

	LocationConfig struct {
		Mode      types.LocationMode `env:"LOCATION_MODE" default:"simulated"`
		Latitude  float64            `env:"LOCATION_LATITUDE" default:"43.238949"`
		Longitude float64            `env:"LOCATION_LONGITUDE" default:"76.889709"`
	}

	RabbitMQConfig struct {
		Enabled  bool   `env:"RABBITMQ_ENABLED" default:"false"`
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`
		Exchange string `env:"RABBITMQ_EXCHANGE" default:"driver_events"`
	}

	HTTPConfig struct {
		Host         string `env:"HTTP_HOST" default:"127.0.0.1"`
		Port         string `env:"HTTP_PORT" default:"8090"`
		ControlToken string `env:"HTTP_CONTROL_TOKEN"`
	}
)

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func NewConfig(filepath string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Transport.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return ErrTransportURL
	}
	if c.Transport.Token == "" {
		return ErrTokenNotProvided
	}
	if !logger.ValidateLogLevel(c.Log.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	if c.Session.OfferTimeout <= 0 || c.Session.ConfirmTimeout <= 0 || c.Session.TelemetryInterval <= 0 {
		return ErrInvalidTimeouts
	}
	switch c.Location.Mode {
	case types.LocationStatic, types.LocationSimulated, types.LocationDevice:
	default:
		return ErrInvalidLocationMode
	}
	return nil
}
