// Package index describes index definitions and derives their names.
//
// A definition named "articles" on a cluster with prefix "nc_test" has
// the canonical name "nc_test_articles", which is also the alias that
// readers query. Physical indices append a suffix: "nc_test_articles_v2"
// or "nc_test_articles_20240102150405".
package index

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/cluster"
)

// TimestampLayout formats the default suffix of a new physical index.
const TimestampLayout = "20060102150405"

// MaxNameBytes is the longest index name the cluster accepts.
const MaxNameBytes = 255

// suffixForbidden holds the characters the cluster rejects in index names.
// Comma and '*' would also turn the path into a multi-index expression,
// '?' and '#' would end the path early.
const suffixForbidden = "\\/*?\"<>|,#: \t\r\n"

var (
	// ErrEmptyName is returned by Validate for a definition without a name.
	ErrEmptyName = errors.New("index definition has no name")
	// ErrInvalidSuffix is returned by PhysicalName for a suffix that cannot
	// form a single concrete index name.
	ErrInvalidSuffix = errors.New("invalid index suffix")
)

// SettingsFunc computes the full settings document from the cluster
// defaults. It replaces the usual merge of defaults and definition settings.
type SettingsFunc func(clusterDefaults map[string]any) map[string]any

// Definition is immutable once built.
type Definition struct {
	name         string
	settings     map[string]any
	settingsFunc SettingsFunc
	mappings     map[string]any
	version      string
	cluster      *cluster.Cluster
}

// Option configures a Definition.
type Option func(*Definition)

// WithSettings sets settings merged over the cluster defaults.
func WithSettings(settings map[string]any) Option {
	return func(d *Definition) {
		d.settings = deepCopy(settings)
	}
}

// WithSettingsFunc computes settings from the cluster defaults.
func WithSettingsFunc(fn SettingsFunc) Option {
	return func(d *Definition) {
		d.settingsFunc = fn
	}
}

// WithMappings sets the mapping document, the body of the "mappings" key.
func WithMappings(mappings map[string]any) Option {
	return func(d *Definition) {
		d.mappings = deepCopy(mappings)
	}
}

// WithVersion sets the suffix that mapping updates target by default.
func WithVersion(version string) Option {
	return func(d *Definition) {
		d.version = version
	}
}

// WithCluster binds the definition to c instead of the default cluster.
func WithCluster(c *cluster.Cluster) Option {
	return func(d *Definition) {
		d.cluster = c
	}
}

// New builds a definition for the base name.
func New(name string, opts ...Option) *Definition {
	d := &Definition{name: strings.TrimSpace(name)}
	for _, opt := range opts {
		opt(d)
	}
	if d.cluster == nil {
		d.cluster = cluster.New(cluster.DefaultID)
	}
	return d
}

// Validate reports whether names can be derived from d.
func (d *Definition) Validate() error {
	if d == nil || d.name == "" {
		return ErrEmptyName
	}
	return nil
}

// Name returns the base name.
func (d *Definition) Name() string { return d.name }

// Version returns the default mapping-update suffix, possibly empty.
func (d *Definition) Version() string { return d.version }

// Cluster returns the owning cluster.
func (d *Definition) Cluster() *cluster.Cluster { return d.cluster }

// IndexName returns the canonical name, "{prefix}_{name}" or just "{name}"
// when the cluster has no prefix. It doubles as the alias name.
func (d *Definition) IndexName() string {
	if prefix := d.cluster.IndexPrefix(); prefix != "" {
		return prefix + "_" + d.name
	}
	return d.name
}

// RealIndexName returns the physical name "{canonical}_{suffix}". An empty
// suffix yields the canonical name.
func (d *Definition) RealIndexName(suffix string) string {
	if suffix == "" {
		return d.IndexName()
	}
	return d.IndexName() + "_" + suffix
}

// PhysicalName is RealIndexName for a suffix taken from user input. It
// rejects suffixes the cluster would refuse or read as something other than
// one index name.
func (d *Definition) PhysicalName(suffix string) (string, error) {
	if err := ValidateSuffix(suffix); err != nil {
		return "", err
	}
	name := d.RealIndexName(suffix)
	if len(name) > MaxNameBytes {
		return "", fmt.Errorf("%w: %s is longer than %d bytes", ErrInvalidSuffix, name, MaxNameBytes)
	}
	return name, nil
}

// ValidateSuffix checks suffix against the cluster's index naming rules.
// The empty suffix is valid and stands for the canonical name.
func ValidateSuffix(suffix string) error {
	if i := strings.IndexAny(suffix, suffixForbidden); i >= 0 {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidSuffix, suffix, suffix[i])
	}
	if strings.ToLower(suffix) != suffix {
		return fmt.Errorf("%w: %q must be lowercase", ErrInvalidSuffix, suffix)
	}
	return nil
}

// Timestamp formats t as a physical index suffix.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// SettingsDocument returns the settings sent on index creation: the cluster
// defaults deep-merged with the definition's own settings, or the result of
// the settings func when one is set.
func (d *Definition) SettingsDocument() map[string]any {
	defaults := d.cluster.IndexSettings()
	if d.settingsFunc != nil {
		out := d.settingsFunc(deepCopy(defaults))
		if out == nil {
			return map[string]any{}
		}
		return out
	}
	return deepMerge(deepCopy(defaults), d.settings)
}

// MappingsDocument returns a copy of the mapping document. It is empty,
// never nil, when no mappings were given.
func (d *Definition) MappingsDocument() map[string]any {
	if d.mappings == nil {
		return map[string]any{}
	}
	return deepCopy(d.mappings)
}

// HasMappings reports whether the mapping document has any content.
func (d *Definition) HasMappings() bool {
	return len(d.mappings) > 0
}

// CreateBody is the create-index request body. With alias set, the body
// also binds the canonical name as an alias of the new index.
func (d *Definition) CreateBody(alias bool) map[string]any {
	body := map[string]any{}
	if settings := d.SettingsDocument(); len(settings) > 0 {
		body["settings"] = settings
	}
	if d.HasMappings() {
		body["mappings"] = d.MappingsDocument()
	}
	if alias {
		body["aliases"] = map[string]any{d.IndexName(): map[string]any{}}
	}
	return body
}

// deepMerge copies src into dst, recursing where both sides hold maps.
func deepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = deepMerge(dstMap, srcMap)
			continue
		}
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopy(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}
		return out
	case map[string]string:
		return maps.Clone(t)
	default:
		return v
	}
}
