package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
)

type aliasAction map[string]aliasTarget

type aliasTarget struct {
	Index string `json:"index"`
	Alias string `json:"alias"`
}

// UpdateAliases moves the canonical alias to the physical index named by
// opts.Suffix. The current holders are read first, then a single
// update-aliases request removes the alias from each of them and adds it to
// the target, so readers never see the alias missing. An empty suffix fails
// with ErrInvalidTarget before any request is sent.
//
// Concurrent swaps for the same alias are not coordinated: the holder list
// may be stale by the time the update is sent.
func (b *Backend) UpdateAliases(ctx context.Context, opts AliasOptions) (Response, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	if opts.Suffix == "" {
		return nil, fmt.Errorf("%w: alias swap for %s needs a suffix", ErrInvalidTarget, b.def.IndexName())
	}

	target, err := b.target(opts.Suffix)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	alias := b.def.IndexName()

	resp, err := b.swapAlias(ctx, alias, target, opts)
	b.observe(ctx, OpUpdateAliases, target, opts.Suffix, started, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (b *Backend) swapAlias(ctx context.Context, alias, target string, opts AliasOptions) (Response, error) {
	holders, err := b.Indices(ctx, ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list indices holding alias %s: %w", alias, err)
	}

	actions := make([]aliasAction, 0, len(holders)+1)
	for _, holder := range holders {
		actions = append(actions, aliasAction{"remove": {Index: holder, Alias: alias}})
	}
	actions = append(actions, aliasAction{"add": {Index: target, Alias: alias}})

	resp, err := b.call(ctx, http.MethodPost, "/_aliases", opts.query(), map[string]any{"actions": actions})
	if err != nil {
		return nil, fmt.Errorf("move alias %s to %s: %w", alias, target, err)
	}

	b.log.Debug("Alias updated",
		logger.String("alias", alias),
		logger.String("target", target),
		logger.Strings("previous", holders),
	)
	return resp, nil
}

// TryUpdateAliases is UpdateAliases with remote failures reported as
// ok == false. A missing suffix is still an error.
func (b *Backend) TryUpdateAliases(ctx context.Context, opts AliasOptions) (Response, bool, error) {
	return quiet(b.UpdateAliases(ctx, opts))
}

// Indices returns the sorted names of the physical indices currently
// holding the canonical alias. No holders, or no alias at all, yields an
// empty slice.
func (b *Backend) Indices(ctx context.Context, opts ListOptions) ([]string, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	resp, err := b.call(ctx, http.MethodGet, "/_alias/"+b.def.IndexName(), opts.query(), nil)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alias %s: %w", b.def.IndexName(), err)
	}

	names := make([]string, 0, len(resp))
	for name := range resp {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Aliases returns the sorted, de-duplicated alias names attached to
// whatever the canonical name resolves to. A missing index yields an empty
// slice.
func (b *Backend) Aliases(ctx context.Context, opts ListOptions) ([]string, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	resp, err := b.call(ctx, http.MethodGet, "/"+b.def.IndexName()+"/_alias/*", opts.query(), nil)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get aliases of %s: %w", b.def.IndexName(), err)
	}

	seen := map[string]struct{}{}
	for _, entry := range resp {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		aliases, ok := fields["aliases"].(map[string]any)
		if !ok {
			continue
		}
		for alias := range aliases {
			seen[alias] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for alias := range seen {
		names = append(names, alias)
	}
	slices.Sort(names)
	return names, nil
}
