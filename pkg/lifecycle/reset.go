package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
)

// ResetResult reports what Reset did.
type ResetResult struct {
	// Index is the new physical index now holding the alias.
	Index string `json:"index"`
	// Previous lists the indices that held the alias before.
	Previous []string `json:"previous"`
	// Deleted lists the previous indices that were removed.
	Deleted []string `json:"deleted"`
}

// Reset rebuilds the index behind the canonical alias: it creates a new
// physical index without the alias, optionally populates it, moves the
// alias to it and deletes the previous holders unless opts.KeepPrevious is
// set. The alias keeps pointing at the old data until the swap.
func (b *Backend) Reset(ctx context.Context, opts ResetOptions) (*ResetResult, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	suffix := opts.Suffix
	if suffix == "" {
		suffix = b.timestamp()
	}
	target, err := b.target(suffix)
	if err != nil {
		return nil, err
	}

	result, err := b.reset(ctx, suffix, target, opts)
	b.observe(ctx, OpReset, target, suffix, started, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (b *Backend) reset(ctx context.Context, suffix, target string, opts ResetOptions) (*ResetResult, error) {
	if _, err := b.createIndex(ctx, target, CreateOptions{
		Suffix:        suffix,
		SkipAlias:     true,
		Timeout:       opts.Timeout,
		MasterTimeout: opts.MasterTimeout,
	}); err != nil {
		return nil, fmt.Errorf("reset %s: %w", b.def.IndexName(), err)
	}

	if opts.Populate != nil {
		if err := opts.Populate(ctx, target); err != nil {
			if _, delErr := b.deleteIndex(ctx, target, nil); delErr != nil {
				b.log.Error("Failed to remove index after populate failure",
					logger.String("target", target),
					logger.Error(delErr),
				)
			}
			return nil, fmt.Errorf("reset %s: populate %s: %w", b.def.IndexName(), target, err)
		}
	}

	previous, err := b.Indices(ctx, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("reset %s: %w", b.def.IndexName(), err)
	}

	if _, err := b.swapAlias(ctx, b.def.IndexName(), target, AliasOptions{
		Suffix:        suffix,
		Timeout:       opts.Timeout,
		MasterTimeout: opts.MasterTimeout,
	}); err != nil {
		return nil, fmt.Errorf("reset %s: %w", b.def.IndexName(), err)
	}

	result := &ResetResult{Index: target, Previous: previous, Deleted: []string{}}
	if opts.KeepPrevious {
		return result, nil
	}

	for _, name := range previous {
		if name == target {
			continue
		}
		if _, err := b.deleteIndex(ctx, name, nil); err != nil {
			return nil, fmt.Errorf("reset %s: %w", b.def.IndexName(), err)
		}
		result.Deleted = append(result.Deleted, name)
	}
	return result, nil
}
