// Package config defines the configuration shared by the index-lifecycle
// HTTP service and the indexctl CLI.
package config

import (
	"fmt"
	"time"

	infraconfig "github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/config"
	infraes "github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/elasticsearch"
	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/profiling"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/cluster"
)

// Default configuration values.
const (
	defaultServiceName     = "index-lifecycle"
	defaultServiceVersion  = "1.0.0"
	defaultServicePort     = 8095
	defaultDBHost          = "localhost"
	defaultDBPort          = 5432
	defaultDBUser          = "postgres"
	defaultDBName          = "index_lifecycle"
	defaultDBSSLMode       = "disable"
	defaultDBMaxConns      = 10
	defaultDBMaxIdleConns  = 2
	defaultDBConnLifetimeM = 5
	defaultESTimeoutSec    = 30
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultHistoryLimit    = 50
)

// Config holds the application configuration.
type Config struct {
	Service       ServiceConfig            `yaml:"service"`
	Logging       LoggingConfig            `yaml:"logging"`
	Database      DatabaseConfig           `yaml:"database"`
	Auth          AuthConfig               `yaml:"auth"`
	Profiling     profiling.Config         `yaml:"profiling"`
	Elasticsearch infraes.Config           `yaml:"elasticsearch"`
	Clusters      map[string]ClusterConfig `yaml:"clusters"`
	Indexes       []IndexConfig            `yaml:"indexes"`
}

// ServiceConfig holds service configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"INDEX_LIFECYCLE_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"            yaml:"debug"`
	// HistoryLimit caps GET .../history when no limit is asked for.
	HistoryLimit int `yaml:"history_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// DatabaseConfig holds the history store connection. The store is optional.
type DatabaseConfig struct {
	Enabled               bool          `env:"POSTGRES_INDEX_LIFECYCLE_ENABLED"  yaml:"enabled"`
	Host                  string        `env:"POSTGRES_INDEX_LIFECYCLE_HOST"     yaml:"host"`
	Port                  int           `env:"POSTGRES_INDEX_LIFECYCLE_PORT"     yaml:"port"`
	User                  string        `env:"POSTGRES_INDEX_LIFECYCLE_USER"     yaml:"user"`
	Password              string        `env:"POSTGRES_INDEX_LIFECYCLE_PASSWORD" yaml:"password"` //nolint:gosec // DB connection config
	Database              string        `env:"POSTGRES_INDEX_LIFECYCLE_DB"       yaml:"database"`
	SSLMode               string        `yaml:"sslmode"`
	MaxConnections        int           `yaml:"max_connections"`
	MaxIdleConns          int           `yaml:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	// JWTSecret enables bearer-token auth on mutating routes when set.
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"` //nolint:gosec // auth config
}

// ClusterConfig describes one named cluster.
type ClusterConfig struct {
	IndexPrefix   string         `yaml:"index_prefix"`
	IndexSettings map[string]any `yaml:"index_settings"`
	WaitForStatus string         `yaml:"wait_for_status"`
	// Elasticsearch overrides the top-level connection for this cluster.
	Elasticsearch *infraes.Config `yaml:"elasticsearch"`
}

// IndexConfig describes one index definition.
type IndexConfig struct {
	Name string `yaml:"name"`
	// Cluster is the cluster id; empty selects "default".
	Cluster  string         `yaml:"cluster"`
	Version  string         `yaml:"version"`
	Settings map[string]any `yaml:"settings"`
	Mappings map[string]any `yaml:"mappings"`
	// MappingFile is a JSON or YAML file holding the mapping document,
	// used when Mappings is empty. Relative paths resolve against the
	// config file directory.
	MappingFile string `yaml:"mapping_file"`
	// MappingVersion labels the mapping document for drift reporting.
	MappingVersion string `yaml:"mapping_version"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	return infraconfig.LoadWithDefaults[Config](path, setDefaults)
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setLoggingDefaults(&cfg.Logging)
	setDatabaseDefaults(&cfg.Database)
	cfg.Profiling.SetDefaults()
	if cfg.Elasticsearch.Timeout == 0 {
		cfg.Elasticsearch.Timeout = defaultESTimeoutSec * time.Second
	}
	cfg.Elasticsearch.SetDefaults()
	if cfg.Clusters == nil {
		cfg.Clusters = map[string]ClusterConfig{}
	}
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
	if s.HistoryLimit == 0 {
		s.HistoryLimit = defaultHistoryLimit
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == 0 {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
	if d.MaxConnections == 0 {
		d.MaxConnections = defaultDBMaxConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultDBMaxIdleConns
	}
	if d.ConnectionMaxLifetime == 0 {
		d.ConnectionMaxLifetime = defaultDBConnLifetimeM * time.Minute
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := infraconfig.ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}
	if err := infraconfig.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := infraconfig.ValidateOneOf("logging.format", c.Logging.Format, "json", "console"); err != nil {
		return err
	}
	if c.Database.Enabled {
		if err := infraconfig.ValidateRequired("database.host", c.Database.Host); err != nil {
			return err
		}
	}

	for id, cl := range c.Clusters {
		if _, err := cluster.ParseStatus(cl.WaitForStatus); err != nil {
			return &infraconfig.ValidationError{
				Field:   fmt.Sprintf("clusters.%s.wait_for_status", id),
				Message: "must be one of: green, yellow, red",
			}
		}
	}

	seen := make(map[string]bool, len(c.Indexes))
	for i, idx := range c.Indexes {
		field := fmt.Sprintf("indexes[%d]", i)
		if err := infraconfig.ValidateRequired(field+".name", idx.Name); err != nil {
			return err
		}
		key := cluster.NormalizeID(idx.Cluster) + "/" + idx.Name
		if seen[key] {
			return &infraconfig.ValidationError{Field: field + ".name", Message: "is defined twice: " + idx.Name}
		}
		seen[key] = true
		if idx.Cluster != "" && cluster.NormalizeID(idx.Cluster) != cluster.DefaultID {
			if _, ok := c.Clusters[cluster.NormalizeID(idx.Cluster)]; !ok {
				return &infraconfig.ValidationError{Field: field + ".cluster", Message: "unknown cluster " + idx.Cluster}
			}
		}
	}
	return nil
}
