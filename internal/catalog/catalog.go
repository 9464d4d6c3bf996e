// Package catalog turns configuration into clusters and index definitions.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/config"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/cluster"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/index"
)

// DefaultMappingVersion labels definitions without a mapping_version.
const DefaultMappingVersion = "1.0.0"

// mappingRootKey wraps the mapping document in files exported from a
// get-mapping call.
const mappingRootKey = "mappings"

// ErrUnknownIndex is returned for a name the catalog does not define.
var ErrUnknownIndex = errors.New("unknown index definition")

// Entry is one configured definition.
type Entry struct {
	Definition     *index.Definition
	MappingVersion string
}

// Catalog is read-only after New.
type Catalog struct {
	registry *cluster.Registry
	entries  map[string]*Entry
}

// NormalizeName lower-cases name and replaces dots and hyphens with
// underscores, so "News-Feed.v2" and "news_feed_v2" name the same index.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, ".", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return strings.ToLower(name)
}

// NewRegistry builds the cluster registry from cfg. Every cluster gets a
// client for its own connection settings, or the top-level ones. Clients
// connect lazily.
func NewRegistry(cfg *config.Config) (*cluster.Registry, error) {
	registry := cluster.NewRegistry()

	def := registry.Default()
	if err := def.SetClient(cfg.Elasticsearch); err != nil {
		return nil, err
	}

	for id, cc := range cfg.Clusters {
		c := registry.Cluster(id)

		if err := c.Assign(map[string]any{
			"index_prefix":    cc.IndexPrefix,
			"index_settings":  cc.IndexSettings,
			"wait_for_status": cc.WaitForStatus,
		}); err != nil {
			return nil, fmt.Errorf("cluster %s: %w", id, err)
		}

		conn := cfg.Elasticsearch
		if cc.Elasticsearch != nil {
			conn = *cc.Elasticsearch
		}
		if err := c.SetClient(conn); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// New builds definitions for cfg.Indexes on the clusters of registry.
// Relative mapping files resolve against baseDir.
func New(cfg *config.Config, registry *cluster.Registry, baseDir string) (*Catalog, error) {
	c := &Catalog{
		registry: registry,
		entries:  make(map[string]*Entry, len(cfg.Indexes)),
	}

	for _, ic := range cfg.Indexes {
		entry, err := buildEntry(ic, registry, baseDir)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", ic.Name, err)
		}
		key := entry.Definition.Name()
		if _, dup := c.entries[key]; dup {
			return nil, fmt.Errorf("index %s: defined twice", ic.Name)
		}
		c.entries[key] = entry
	}

	return c, nil
}

func buildEntry(ic config.IndexConfig, registry *cluster.Registry, baseDir string) (*Entry, error) {
	name := NormalizeName(ic.Name)
	if name == "" {
		return nil, index.ErrEmptyName
	}

	mappings := ic.Mappings
	if len(mappings) == 0 && ic.MappingFile != "" {
		path := ic.MappingFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		loaded, err := LoadMappingFile(path)
		if err != nil {
			return nil, err
		}
		mappings = loaded
	}

	opts := []index.Option{
		index.WithCluster(registry.Cluster(ic.Cluster)),
		index.WithVersion(ic.Version),
	}
	if len(ic.Settings) > 0 {
		opts = append(opts, index.WithSettings(ic.Settings))
	}
	if len(mappings) > 0 {
		opts = append(opts, index.WithMappings(mappings))
	}

	version := ic.MappingVersion
	if version == "" {
		version = DefaultMappingVersion
	}

	return &Entry{
		Definition:     index.New(name, opts...),
		MappingVersion: version,
	}, nil
}

// LoadMappingFile reads a mapping document from a .json, .yml or .yaml
// file. A document wrapped in a top-level "mappings" key is unwrapped.
func LoadMappingFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file: %w", err)
	}

	var doc map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &doc)
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("mapping file %s: unsupported extension", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse mapping file %s: %w", path, err)
	}

	if inner, ok := doc[mappingRootKey].(map[string]any); ok && len(doc) == 1 {
		return inner, nil
	}
	return doc, nil
}

// Registry returns the cluster registry.
func (c *Catalog) Registry() *cluster.Registry {
	return c.registry
}

// Get returns the entry for name, normalising it first.
func (c *Catalog) Get(name string) (*Entry, error) {
	entry, ok := c.entries[NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndex, name)
	}
	return entry, nil
}

// Names returns the defined names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
