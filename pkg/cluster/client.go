package cluster

import (
	"fmt"
	"reflect"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/mitchellh/mapstructure"

	infraes "github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/elasticsearch"
)

// Client returns the client handle, building a default client (which honours
// ELASTICSEARCH_URL) on first use and caching it.
func (c *Cluster) Client() (*es.Client, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	client, err := es.NewDefaultClient()
	if err != nil {
		return nil, fmt.Errorf("cluster %s: create default client: %w", c.id, err)
	}
	c.client = client
	return client, nil
}

// SetClient replaces the client handle. v may be a *es.Client (stored as
// is), an es.Config, an infrastructure elasticsearch Config, or a
// configuration map with the keys hosts, addresses or url, username,
// password, api_key, cloud_id and max_retries.
func (c *Cluster) SetClient(v any) error {
	var (
		client *es.Client
		err    error
	)

	switch cfg := v.(type) {
	case *es.Client:
		if cfg == nil {
			return fmt.Errorf("cluster %s: nil client", c.id)
		}
		client = cfg
	case es.Config:
		client, err = es.NewClient(cfg)
	case infraes.Config:
		client, err = clientFromConfig(cfg)
	case map[string]any:
		var conn infraes.Config
		conn, err = configFromMap(cfg)
		if err == nil {
			client, err = clientFromConfig(conn)
		}
	default:
		return fmt.Errorf("cluster %s: unsupported client value %T", c.id, v)
	}
	if err != nil {
		return fmt.Errorf("cluster %s: build client: %w", c.id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = client
	return nil
}

func clientFromConfig(cfg infraes.Config) (*es.Client, error) {
	esCfg, err := infraes.BuildClientConfig(cfg)
	if err != nil {
		return nil, err
	}
	return es.NewClient(esCfg)
}

// clientMap is the shape of a configuration map given to SetClient.
type clientMap struct {
	Hosts          []string `mapstructure:"hosts"`
	Addresses      []string `mapstructure:"addresses"`
	URL            []string `mapstructure:"url"`
	Username       string   `mapstructure:"username"`
	User           string   `mapstructure:"user"`
	Password       string   `mapstructure:"password"`
	APIKey         string   `mapstructure:"api_key"`
	CloudID        string   `mapstructure:"cloud_id"`
	MaxRetries     int      `mapstructure:"max_retries"`
	RetryOnFailure int      `mapstructure:"retry_on_failure"`
}

func configFromMap(m map[string]any) (infraes.Config, error) {
	normalized := make(map[string]any, len(m))
	for key, value := range m {
		normalized[normalizeKey(key)] = value
	}

	var cm clientMap
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: stringToSliceHook,
		Result:     &cm,
	})
	if err != nil {
		return infraes.Config{}, err
	}
	if decodeErr := decoder.Decode(normalized); decodeErr != nil {
		return infraes.Config{}, fmt.Errorf("cluster: client map: %w", decodeErr)
	}

	cfg := infraes.Config{
		Username:   cm.Username,
		Password:   cm.Password,
		APIKey:     cm.APIKey,
		CloudID:    cm.CloudID,
		MaxRetries: cm.MaxRetries,
	}
	cfg.Addresses = append(cfg.Addresses, cm.Hosts...)
	cfg.Addresses = append(cfg.Addresses, cm.Addresses...)
	cfg.Addresses = append(cfg.Addresses, cm.URL...)
	if cfg.Username == "" {
		cfg.Username = cm.User
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = cm.RetryOnFailure
	}
	return cfg, nil
}

// stringToSliceHook lets a single host string stand for a one-element list.
func stringToSliceHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to == reflect.TypeOf([]string(nil)) {
		return []string{reflect.ValueOf(data).String()}, nil
	}
	return data, nil
}
