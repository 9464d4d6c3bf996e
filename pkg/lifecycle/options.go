package lifecycle

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// CreateOptions configures Create.
type CreateOptions struct {
	// Suffix names the physical index. Empty means a fresh timestamp.
	Suffix string
	// SkipAlias leaves the new index without the canonical alias.
	SkipAlias bool

	Timeout             time.Duration
	MasterTimeout       time.Duration
	WaitForActiveShards string
	// Params are passed to the cluster as query parameters verbatim and
	// win over the typed fields.
	Params map[string]string
}

func (o CreateOptions) query() url.Values {
	q := url.Values{}
	setDuration(q, "timeout", o.Timeout)
	setDuration(q, "master_timeout", o.MasterTimeout)
	setString(q, "wait_for_active_shards", o.WaitForActiveShards)
	setParams(q, o.Params)
	return q
}

// DeleteOptions configures Delete.
type DeleteOptions struct {
	// Suffix names the physical index. Empty targets the canonical name.
	Suffix string

	Timeout           time.Duration
	MasterTimeout     time.Duration
	IgnoreUnavailable *bool
	AllowNoIndices    *bool
	ExpandWildcards   string
	Params            map[string]string
}

func (o DeleteOptions) query() url.Values {
	q := url.Values{}
	setDuration(q, "timeout", o.Timeout)
	setDuration(q, "master_timeout", o.MasterTimeout)
	setBool(q, "ignore_unavailable", o.IgnoreUnavailable)
	setBool(q, "allow_no_indices", o.AllowNoIndices)
	setString(q, "expand_wildcards", o.ExpandWildcards)
	setParams(q, o.Params)
	return q
}

// ExistsOptions configures Exists.
type ExistsOptions struct {
	// Suffix names the physical index. Empty checks the canonical name.
	Suffix string

	Local             *bool
	IgnoreUnavailable *bool
	AllowNoIndices    *bool
	ExpandWildcards   string
	Params            map[string]string
}

func (o ExistsOptions) query() url.Values {
	q := url.Values{}
	setBool(q, "local", o.Local)
	setBool(q, "ignore_unavailable", o.IgnoreUnavailable)
	setBool(q, "allow_no_indices", o.AllowNoIndices)
	setString(q, "expand_wildcards", o.ExpandWildcards)
	setParams(q, o.Params)
	return q
}

// AliasOptions configures UpdateAliases.
type AliasOptions struct {
	// Suffix names the physical index that receives the alias. Required.
	Suffix string

	Timeout       time.Duration
	MasterTimeout time.Duration
	Params        map[string]string
}

func (o AliasOptions) query() url.Values {
	q := url.Values{}
	setDuration(q, "timeout", o.Timeout)
	setDuration(q, "master_timeout", o.MasterTimeout)
	setParams(q, o.Params)
	return q
}

// ListOptions configures Indices and Aliases.
type ListOptions struct {
	Local             *bool
	IgnoreUnavailable *bool
	AllowNoIndices    *bool
	ExpandWildcards   string
	Params            map[string]string
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	setBool(q, "local", o.Local)
	setBool(q, "ignore_unavailable", o.IgnoreUnavailable)
	setBool(q, "allow_no_indices", o.AllowNoIndices)
	setString(q, "expand_wildcards", o.ExpandWildcards)
	setParams(q, o.Params)
	return q
}

// MappingOptions configures UpdateMapping.
type MappingOptions struct {
	// Suffix names the physical index. Empty falls back to the definition
	// version, then to the canonical name.
	Suffix string

	Timeout           time.Duration
	MasterTimeout     time.Duration
	IgnoreUnavailable *bool
	AllowNoIndices    *bool
	ExpandWildcards   string
	WriteIndexOnly    bool
	Params            map[string]string
}

func (o MappingOptions) query() url.Values {
	q := url.Values{}
	setDuration(q, "timeout", o.Timeout)
	setDuration(q, "master_timeout", o.MasterTimeout)
	setBool(q, "ignore_unavailable", o.IgnoreUnavailable)
	setBool(q, "allow_no_indices", o.AllowNoIndices)
	setString(q, "expand_wildcards", o.ExpandWildcards)
	if o.WriteIndexOnly {
		q.Set("write_index_only", "true")
	}
	setParams(q, o.Params)
	return q
}

// ResetOptions configures Reset.
type ResetOptions struct {
	// Suffix names the new physical index. Empty means a fresh timestamp.
	Suffix string
	// KeepPrevious keeps the indices that held the alias before the reset.
	KeepPrevious bool
	// Populate, when set, runs after the new index is created and before
	// the alias moves to it. A failure aborts the reset and removes the
	// new index.
	Populate func(ctx context.Context, index string) error

	Timeout       time.Duration
	MasterTimeout time.Duration
}

// Bool returns a pointer to b, for the optional flags of the option structs.
func Bool(b bool) *bool {
	return &b
}

// formatDuration renders d in Elasticsearch time units.
func formatDuration(d time.Duration) string {
	if d%time.Second == 0 {
		return strconv.FormatInt(int64(d/time.Second), 10) + "s"
	}
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}

func setDuration(q url.Values, key string, d time.Duration) {
	if d > 0 {
		q.Set(key, formatDuration(d))
	}
}

func setBool(q url.Values, key string, b *bool) {
	if b != nil {
		q.Set(key, strconv.FormatBool(*b))
	}
}

func setString(q url.Values, key, v string) {
	if v != "" {
		q.Set(key, v)
	}
}

func setParams(q url.Values, params map[string]string) {
	for k, v := range params {
		q.Set(k, v)
	}
}
