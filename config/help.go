package config

import (
	"flag"
	"fmt"

	"github.com/Temutjin2k/ride-hail-driver/pkg/hasher"
)

const HelpMessage = `
Driver session - keeps a driver connected to the dispatch backend.

Usage:
  driver [-config-path <file>] [-help]

Options:
  -config-path   path to the YAML config file (default: config.yaml)
  -help          show this message

Every config key can be overridden with an environment variable, e.g.
  TRANSPORT_URL, TRANSPORT_TOKEN, SESSION_OFFER_TIMEOUT, LOCATION_MODE,
  RABBITMQ_ENABLED, HTTP_PORT, HTTP_CONTROL_TOKEN, LOG_LEVEL
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

// PrintConfig prints the effective configuration with secrets masked.
func PrintConfig(cfg *Config) {
	fmt.Printf("transport: url=%s token=%s handshake_timeout=%s reconnect=[%s..%s]\n",
		cfg.Transport.URL, hasher.Fingerprint(cfg.Transport.Token), cfg.Transport.HandshakeTimeout, cfg.Transport.ReconnectMin, cfg.Transport.ReconnectMax)
	fmt.Printf("session: offer_timeout=%s confirm_timeout=%s telemetry_interval=%s\n",
		cfg.Session.OfferTimeout, cfg.Session.ConfirmTimeout, cfg.Session.TelemetryInterval)
	fmt.Printf("location: mode=%s\n", cfg.Location.Mode)
	fmt.Printf("rabbitmq: enabled=%t host=%s:%s exchange=%s\n",
		cfg.RabbitMQ.Enabled, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, cfg.RabbitMQ.Exchange)
	fmt.Printf("http: %s control_token=%s\n", cfg.HTTP.Addr(), hasher.Fingerprint(cfg.HTTP.ControlToken))
}
