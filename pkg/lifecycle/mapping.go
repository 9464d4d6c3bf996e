package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
)

// UpdateMapping puts the definition's mapping document on one index: the
// physical index named by opts.Suffix, else the one named by the
// definition's version, else the canonical name.
func (b *Backend) UpdateMapping(ctx context.Context, opts MappingOptions) (Response, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	if !b.def.HasMappings() {
		return nil, fmt.Errorf("%w: %s", ErrNoMapping, b.def.IndexName())
	}

	started := time.Now()
	suffix := opts.Suffix
	if suffix == "" {
		suffix = b.def.Version()
	}
	name, err := b.target(suffix)
	if err != nil {
		return nil, err
	}

	resp, err := b.call(ctx, http.MethodPut, "/"+name+"/_mapping", opts.query(), b.def.MappingsDocument())
	b.observe(ctx, OpUpdateMapping, name, suffix, started, err)
	if err != nil {
		return nil, fmt.Errorf("update mapping of %s: %w", name, err)
	}

	b.log.Debug("Mapping updated", logger.String("target", name))
	return resp, nil
}

// TryUpdateMapping is UpdateMapping with remote failures reported as
// ok == false.
func (b *Backend) TryUpdateMapping(ctx context.Context, opts MappingOptions) (Response, bool, error) {
	return quiet(b.UpdateMapping(ctx, opts))
}
