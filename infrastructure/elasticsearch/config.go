package elasticsearch

import (
	"time"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/retry"
)

// Default connection values.
const (
	DefaultURL         = "http://localhost:9200"
	DefaultMaxRetries  = 3
	DefaultPingTimeout = 5 * time.Second
)

// Config holds the connection settings for one Elasticsearch cluster.
type Config struct {
	// URL is used when Addresses is empty.
	URL       string   `env:"ELASTICSEARCH_URL" yaml:"url"`
	Addresses []string `yaml:"addresses"`

	Username string `env:"ELASTICSEARCH_USERNAME" yaml:"username"`
	Password string `env:"ELASTICSEARCH_PASSWORD" yaml:"password"` //nolint:gosec // connection config
	APIKey   string `env:"ELASTICSEARCH_API_KEY"  yaml:"api_key"`
	CloudID  string `yaml:"cloud_id"`

	TLS *TLSConfig `yaml:"tls"`

	// MaxRetries is the transport-level retry count for each request.
	MaxRetries int `yaml:"max_retries"`
	// Timeout bounds each request through the transport.
	Timeout time.Duration `yaml:"timeout"`
	// PingTimeout bounds each connection-verification ping.
	PingTimeout time.Duration `yaml:"ping_timeout"`
	// SkipPing disables connection verification in NewClient.
	SkipPing bool `yaml:"skip_ping"`

	// RetryConfig drives connection verification. Nil uses 5 attempts,
	// 2s initial delay, 10s max delay.
	RetryConfig *retry.Config `yaml:"-"`
}

// TLSConfig holds TLS settings for secure connections.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	CAFile             string `yaml:"ca_file"`
}

// SetDefaults applies default values to the config if not set.
func (c *Config) SetDefaults() {
	if c.URL == "" && len(c.Addresses) == 0 {
		c.URL = DefaultURL
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = DefaultPingTimeout
	}
	if c.RetryConfig == nil {
		c.RetryConfig = &retry.Config{
			MaxAttempts:  5,
			InitialDelay: 2 * time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		}
	}
}
