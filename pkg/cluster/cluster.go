// Package cluster holds per-cluster configuration: the index name prefix,
// default index settings, the health status to wait for after index
// creation, and the Elasticsearch client handle.
package cluster

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/remote"
)

// DefaultID is the id of the cluster used when none is named.
const DefaultID = "default"

// Cluster is safe for concurrent use.
type Cluster struct {
	id string

	mu            sync.RWMutex
	indexPrefix   string
	indexSettings map[string]any
	waitForStatus Status
	client        *es.Client
}

// Option configures a Cluster in New.
type Option func(*Cluster)

// WithIndexPrefix sets the prefix prepended to every index name.
func WithIndexPrefix(prefix string) Option {
	return func(c *Cluster) {
		c.indexPrefix = prefix
	}
}

// WithIndexSettings sets the default settings merged into every index
// created on this cluster.
func WithIndexSettings(settings map[string]any) Option {
	return func(c *Cluster) {
		c.indexSettings = maps.Clone(settings)
	}
}

// WithWaitForStatus sets the health status awaited after index creation.
func WithWaitForStatus(status Status) Option {
	return func(c *Cluster) {
		c.waitForStatus = status
	}
}

// WithClient sets the client handle.
func WithClient(client *es.Client) Option {
	return func(c *Cluster) {
		c.client = client
	}
}

// New creates a cluster. The id may be any string type and is normalised,
// so "v1", ":v1" and " v1 " name the same cluster.
func New[K ~string](id K, opts ...Option) *Cluster {
	c := &Cluster{
		id:            NormalizeID(string(id)),
		indexSettings: map[string]any{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.indexSettings == nil {
		c.indexSettings = map[string]any{}
	}
	return c
}

// NormalizeID returns the canonical form of a cluster id.
func NormalizeID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), ":")
}

// ID returns the normalised cluster id.
func (c *Cluster) ID() string {
	return c.id
}

// IndexPrefix returns the index name prefix, possibly empty.
func (c *Cluster) IndexPrefix() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexPrefix
}

// SetIndexPrefix replaces the index name prefix.
func (c *Cluster) SetIndexPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexPrefix = prefix
}

// IndexSettings returns a copy of the default index settings.
func (c *Cluster) IndexSettings() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.indexSettings)
}

// SetIndexSettings replaces the default index settings.
func (c *Cluster) SetIndexSettings(settings map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if settings == nil {
		settings = map[string]any{}
	}
	c.indexSettings = maps.Clone(settings)
}

// WaitStatus returns the configured status to wait for, possibly empty.
func (c *Cluster) WaitStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.waitForStatus
}

// SetWaitStatus replaces the configured status to wait for.
func (c *Cluster) SetWaitStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waitForStatus = status
}

// Assign merges the recognised keys of partial into the cluster:
// index_settings, index_prefix and wait_for_status. Keys are matched
// case-insensitively and may carry a leading ':'. Other keys are ignored
// and the id never changes. The cluster is left untouched on error.
func (c *Cluster) Assign(partial map[string]any) error {
	var (
		prefix, settings, status bool
		newPrefix                string
		newSettings              map[string]any
		newStatus                Status
	)

	for key, value := range partial {
		switch normalizeKey(key) {
		case "index_prefix":
			p, err := stringValue(key, value)
			if err != nil {
				return err
			}
			prefix, newPrefix = true, p
		case "index_settings":
			s, err := mapValue(key, value)
			if err != nil {
				return err
			}
			settings, newSettings = true, s
		case "wait_for_status":
			raw, err := stringValue(key, value)
			if err != nil {
				return err
			}
			st, err := ParseStatus(raw)
			if err != nil {
				return err
			}
			status, newStatus = true, st
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prefix {
		c.indexPrefix = newPrefix
	}
	if settings {
		c.indexSettings = newSettings
	}
	if status {
		c.waitForStatus = newStatus
	}
	return nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), ":"))
}

func stringValue(key string, value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case Status:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("cluster: %s must be a string, got %T", key, value)
	}
}

func mapValue(key string, value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		if v == nil {
			return map[string]any{}, nil
		}
		return maps.Clone(v), nil
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cluster: %s must be a map, got %T", key, value)
	}
}

// WaitForStatus blocks on the cluster-health API until the cluster reaches
// status, falling back to the configured status when status is empty. With
// neither set it returns nil, nil without contacting the cluster.
func (c *Cluster) WaitForStatus(ctx context.Context, status Status) (remote.Response, error) {
	if status == "" {
		status = c.WaitStatus()
	}
	if status == "" {
		return nil, nil
	}

	client, err := c.Client()
	if err != nil {
		return nil, err
	}

	res, err := client.Cluster.Health(
		client.Cluster.Health.WithContext(ctx),
		client.Cluster.Health.WithWaitForStatus(status.String()),
	)
	if err != nil {
		return nil, fmt.Errorf("cluster %s health: %w", c.id, err)
	}
	defer res.Body.Close()

	resp, err := remote.Decode(res.StatusCode, res.Body)
	if err != nil {
		return nil, fmt.Errorf("cluster %s wait for %s: %w", c.id, status, err)
	}
	return resp, nil
}
