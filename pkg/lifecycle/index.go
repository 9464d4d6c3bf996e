package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/remote"
)

// Exists reports whether the canonical name, or the physical index named by
// opts.Suffix, exists. A missing index is not an error.
func (b *Backend) Exists(ctx context.Context, opts ExistsOptions) (bool, error) {
	if err := b.validate(); err != nil {
		return false, err
	}

	name, err := b.target(opts.Suffix)
	if err != nil {
		return false, err
	}
	res, err := b.perform(ctx, http.MethodHead, "/"+name, opts.query(), nil)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return false, nil
	case res.StatusCode >= http.StatusOK && res.StatusCode < http.StatusMultipleChoices:
		return true, nil
	default:
		return false, remote.NewServerError(res.StatusCode, nil)
	}
}

// Create creates the physical index named by opts.Suffix, or by a fresh
// timestamp when the suffix is empty. The body carries the definition's
// settings and mappings and, unless opts.SkipAlias is set, binds the
// canonical alias to the new index. When the cluster has a wait status the
// call then waits for it; a failed wait is logged and not returned.
func (b *Backend) Create(ctx context.Context, opts CreateOptions) (Response, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	suffix := opts.Suffix
	if suffix == "" {
		suffix = b.timestamp()
	}
	name, err := b.target(suffix)
	if err != nil {
		return nil, err
	}

	resp, err := b.createIndex(ctx, name, opts)
	b.observe(ctx, OpCreate, name, suffix, started, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (b *Backend) createIndex(ctx context.Context, name string, opts CreateOptions) (Response, error) {
	resp, err := b.call(ctx, http.MethodPut, "/"+name, opts.query(), b.def.CreateBody(!opts.SkipAlias))
	if err != nil {
		return nil, fmt.Errorf("create index %s: %w", name, err)
	}

	b.log.Debug("Index created",
		logger.String("target", name),
		logger.Bool("alias", !opts.SkipAlias),
	)

	if _, waitErr := b.def.Cluster().WaitForStatus(ctx, ""); waitErr != nil {
		b.log.Warn("Cluster did not reach wait status after index creation",
			logger.String("target", name),
			logger.String("status", b.def.Cluster().WaitStatus().String()),
			logger.Error(waitErr),
		)
	}

	return resp, nil
}

// TryCreate is Create with remote failures reported as ok == false.
func (b *Backend) TryCreate(ctx context.Context, opts CreateOptions) (Response, bool, error) {
	return quiet(b.Create(ctx, opts))
}

// Delete deletes the physical index named by opts.Suffix, or the canonical
// name when the suffix is empty. The cluster refuses to delete through an
// alias, so an empty suffix only works while the canonical name is a
// concrete index.
func (b *Backend) Delete(ctx context.Context, opts DeleteOptions) (Response, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	name, err := b.target(opts.Suffix)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := b.deleteIndex(ctx, name, opts.query())
	b.observe(ctx, OpDelete, name, opts.Suffix, started, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// TryDelete is Delete with remote failures reported as ok == false.
func (b *Backend) TryDelete(ctx context.Context, opts DeleteOptions) (Response, bool, error) {
	return quiet(b.Delete(ctx, opts))
}

func (b *Backend) deleteIndex(ctx context.Context, name string, query url.Values) (Response, error) {
	resp, err := b.call(ctx, http.MethodDelete, "/"+name, query, nil)
	if err != nil {
		return nil, fmt.Errorf("delete index %s: %w", name, err)
	}
	b.log.Debug("Index deleted", logger.String("target", name))
	return resp, nil
}
