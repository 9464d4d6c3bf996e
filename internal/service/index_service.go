// Package service runs lifecycle operations for the index definitions of a
// catalog.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/catalog"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/database"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/cluster"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/index"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/lifecycle"
)

const defaultHistoryLimit = 50

var (
	// ErrHistoryDisabled is returned by History when no store is configured.
	ErrHistoryDisabled = errors.New("history store is not configured")
	// ErrUnknownCluster is returned for a cluster id nothing registered.
	ErrUnknownCluster = errors.New("unknown cluster")
)

// HistoryStore lists recorded operations.
type HistoryStore interface {
	List(ctx context.Context, indexName string, limit int) ([]*database.HistoryEntry, error)
}

// OperationResult is returned by the single-request operations.
type OperationResult struct {
	Name     string             `json:"name"`
	Index    string             `json:"index"`
	Target   string             `json:"target"`
	Response lifecycle.Response `json:"response,omitempty"`
}

// IndexStatus describes what the cluster holds for a definition.
type IndexStatus struct {
	Name           string   `json:"name"`
	Cluster        string   `json:"cluster"`
	Index          string   `json:"index"`
	Version        string   `json:"version,omitempty"`
	MappingVersion string   `json:"mapping_version"`
	Exists         bool     `json:"exists"`
	Indices        []string `json:"indices"`
	Aliases        []string `json:"aliases"`
}

// IndexService provides business logic for index lifecycle operations.
type IndexService struct {
	catalog      *catalog.Catalog
	backends     map[string]*lifecycle.Backend
	history      HistoryStore
	historyLimit int
	log          logger.Logger
	now          func() time.Time
}

// Option configures an IndexService.
type Option func(*options)

type options struct {
	observers    []lifecycle.Observer
	history      HistoryStore
	historyLimit int
	now          func() time.Time
}

// WithObserver adds an observer to every backend.
func WithObserver(o lifecycle.Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observers = append(opts.observers, o)
		}
	}
}

// WithHistory enables History.
func WithHistory(store HistoryStore, defaultLimit int) Option {
	return func(opts *options) {
		opts.history = store
		if defaultLimit > 0 {
			opts.historyLimit = defaultLimit
		}
	}
}

// WithClock replaces time.Now for timestamp suffixes.
func WithClock(now func() time.Time) Option {
	return func(opts *options) {
		if now != nil {
			opts.now = now
		}
	}
}

// NewIndexService creates a service with one backend per catalog entry.
func NewIndexService(cat *catalog.Catalog, log logger.Logger, opts ...Option) *IndexService {
	if log == nil {
		log = logger.NewNop()
	}
	o := options{historyLimit: defaultHistoryLimit, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	backendOpts := []lifecycle.Option{
		lifecycle.WithLogger(log),
		lifecycle.WithClock(o.now),
	}
	for _, obs := range o.observers {
		backendOpts = append(backendOpts, lifecycle.WithObserver(obs))
	}

	backends := make(map[string]*lifecycle.Backend)
	for _, name := range cat.Names() {
		entry, err := cat.Get(name)
		if err != nil {
			continue
		}
		backends[name] = lifecycle.New(entry.Definition, backendOpts...)
	}

	return &IndexService{
		catalog:      cat,
		backends:     backends,
		history:      o.history,
		historyLimit: o.historyLimit,
		log:          log,
		now:          o.now,
	}
}

// Names returns the defined index names.
func (s *IndexService) Names() []string {
	return s.catalog.Names()
}

func (s *IndexService) backend(name string) (*lifecycle.Backend, *catalog.Entry, error) {
	entry, err := s.catalog.Get(name)
	if err != nil {
		return nil, nil, err
	}
	return s.backends[entry.Definition.Name()], entry, nil
}

func (s *IndexService) suffixOrTimestamp(suffix string) string {
	if suffix != "" {
		return suffix
	}
	return index.Timestamp(s.now())
}

func result(def *index.Definition, target string, resp lifecycle.Response) *OperationResult {
	return &OperationResult{
		Name:     def.Name(),
		Index:    def.IndexName(),
		Target:   target,
		Response: resp,
	}
}

// Create creates a physical index. An empty suffix means a timestamp.
func (s *IndexService) Create(ctx context.Context, name, suffix string, skipAlias bool) (*OperationResult, error) {
	b, entry, err := s.backend(name)
	if err != nil {
		return nil, err
	}

	suffix = s.suffixOrTimestamp(suffix)
	resp, err := b.Create(ctx, lifecycle.CreateOptions{Suffix: suffix, SkipAlias: skipAlias})
	if err != nil {
		return nil, err
	}

	target := entry.Definition.RealIndexName(suffix)
	s.log.Info("Index created",
		logger.String("index_name", target),
		logger.String("mapping_version", entry.MappingVersion),
		logger.Bool("alias", !skipAlias),
	)
	return result(entry.Definition, target, resp), nil
}

// Delete deletes the physical index for suffix, or the canonical name when
// suffix is empty.
func (s *IndexService) Delete(ctx context.Context, name, suffix string) (*OperationResult, error) {
	b, entry, err := s.backend(name)
	if err != nil {
		return nil, err
	}

	resp, err := b.Delete(ctx, lifecycle.DeleteOptions{Suffix: suffix})
	if err != nil {
		return nil, err
	}

	target := entry.Definition.RealIndexName(suffix)
	s.log.Info("Index deleted", logger.String("index_name", target))
	return result(entry.Definition, target, resp), nil
}

// Swap points the canonical alias at the physical index for suffix only.
func (s *IndexService) Swap(ctx context.Context, name, suffix string) (*OperationResult, error) {
	b, entry, err := s.backend(name)
	if err != nil {
		return nil, err
	}

	resp, err := b.UpdateAliases(ctx, lifecycle.AliasOptions{Suffix: suffix})
	if err != nil {
		return nil, err
	}

	target := entry.Definition.RealIndexName(suffix)
	s.log.Info("Alias swapped",
		logger.String("alias", entry.Definition.IndexName()),
		logger.String("index_name", target),
	)
	return result(entry.Definition, target, resp), nil
}

// UpdateMapping puts the definition's mapping on the physical index for
// suffix, the definition version, or the canonical name, in that order.
func (s *IndexService) UpdateMapping(ctx context.Context, name, suffix string) (*OperationResult, error) {
	b, entry, err := s.backend(name)
	if err != nil {
		return nil, err
	}

	resp, err := b.UpdateMapping(ctx, lifecycle.MappingOptions{Suffix: suffix})
	if err != nil {
		return nil, err
	}

	if suffix == "" {
		suffix = entry.Definition.Version()
	}
	target := entry.Definition.RealIndexName(suffix)
	s.log.Info("Mapping updated",
		logger.String("index_name", target),
		logger.String("mapping_version", entry.MappingVersion),
	)
	return result(entry.Definition, target, resp), nil
}

// Reset rebuilds the index behind the canonical alias.
func (s *IndexService) Reset(ctx context.Context, name, suffix string, keepPrevious bool) (*lifecycle.ResetResult, error) {
	b, entry, err := s.backend(name)
	if err != nil {
		return nil, err
	}

	res, err := b.Reset(ctx, lifecycle.ResetOptions{
		Suffix:       s.suffixOrTimestamp(suffix),
		KeepPrevious: keepPrevious,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Index reset",
		logger.String("alias", entry.Definition.IndexName()),
		logger.String("index_name", res.Index),
		logger.Strings("deleted", res.Deleted),
	)
	return res, nil
}

// Status reports the cluster state of one definition.
func (s *IndexService) Status(ctx context.Context, name string) (*IndexStatus, error) {
	b, entry, err := s.backend(name)
	if err != nil {
		return nil, err
	}
	def := entry.Definition

	exists, err := b.Exists(ctx, lifecycle.ExistsOptions{})
	if err != nil {
		return nil, err
	}
	indices, err := b.Indices(ctx, lifecycle.ListOptions{})
	if err != nil {
		return nil, err
	}
	aliases, err := b.Aliases(ctx, lifecycle.ListOptions{})
	if err != nil {
		return nil, err
	}

	return &IndexStatus{
		Name:           def.Name(),
		Cluster:        def.Cluster().ID(),
		Index:          def.IndexName(),
		Version:        def.Version(),
		MappingVersion: entry.MappingVersion,
		Exists:         exists,
		Indices:        indices,
		Aliases:        aliases,
	}, nil
}

// List reports the status of every definition, sorted by name.
func (s *IndexService) List(ctx context.Context) ([]*IndexStatus, error) {
	names := s.catalog.Names()
	statuses := make([]*IndexStatus, 0, len(names))
	for _, name := range names {
		st, err := s.Status(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("status of %s: %w", name, err)
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// WaitForCluster waits for a cluster health status. Empty status uses the
// cluster's configured one; with neither set the response is nil.
func (s *IndexService) WaitForCluster(ctx context.Context, clusterID, status string) (lifecycle.Response, error) {
	if clusterID == "" {
		clusterID = cluster.DefaultID
	}
	c, ok := s.catalog.Registry().Get(clusterID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCluster, clusterID)
	}

	parsed, err := cluster.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return c.WaitForStatus(ctx, parsed)
}

// History lists recorded operations for a definition, newest first. A
// non-positive limit uses the configured default; larger limits are capped
// at database.MaxListLimit.
func (s *IndexService) History(ctx context.Context, name string, limit int) ([]*database.HistoryEntry, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	_, entry, err := s.backend(name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.historyLimit
	}
	return s.history.List(ctx, entry.Definition.IndexName(), min(limit, database.MaxListLimit))
}
