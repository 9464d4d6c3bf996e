package lifecycle_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/cluster"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/index"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/lifecycle"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/lifecycle/lifecycletest"
)

var articlesMappings = map[string]any{
	"properties": map[string]any{
		"title": map[string]any{"type": "text"},
	},
}

type recorder struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (r *recorder) Observe(_ context.Context, e lifecycle.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func newBackend(t *testing.T, opts ...index.Option) (*lifecycle.Backend, *lifecycletest.Cluster) {
	t.Helper()

	fake := lifecycletest.NewCluster()
	c := cluster.New("v1",
		cluster.WithIndexPrefix("nc_test"),
		cluster.WithClient(fake.Client()),
	)
	defOpts := append([]index.Option{index.WithCluster(c), index.WithMappings(articlesMappings)}, opts...)
	def := index.New("articles", defOpts...)

	fixed := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	return lifecycle.New(def, lifecycle.WithClock(func() time.Time { return fixed })), fake
}

func TestCreate_ThenExists(t *testing.T) {
	ctx := context.Background()

	for _, suffix := range []string{"v1", "2", "20240101000000"} {
		t.Run(suffix, func(t *testing.T) {
			b, _ := newBackend(t)

			resp, err := b.Create(ctx, lifecycle.CreateOptions{Suffix: suffix})
			require.NoError(t, err)
			assert.True(t, resp.Acknowledged())

			exists, err := b.Exists(ctx, lifecycle.ExistsOptions{Suffix: suffix})
			require.NoError(t, err)
			assert.True(t, exists)
		})
	}
}

func TestCreate_Body(t *testing.T) {
	ctx := context.Background()
	b, fake := newBackend(t, index.WithSettings(map[string]any{"number_of_shards": 1}))

	_, err := b.Create(ctx, lifecycle.CreateOptions{Suffix: "v1"})
	require.NoError(t, err)

	idx, ok := fake.Index("nc_test_articles_v1")
	require.True(t, ok)
	assert.Contains(t, idx.Aliases, "nc_test_articles")
	assert.EqualValues(t, 1, idx.Settings["number_of_shards"])
	assert.Contains(t, idx.Mappings, "properties")

	_, err = b.Create(ctx, lifecycle.CreateOptions{Suffix: "v2", SkipAlias: true})
	require.NoError(t, err)

	idx, ok = fake.Index("nc_test_articles_v2")
	require.True(t, ok)
	assert.Empty(t, idx.Aliases)
}

func TestCreate_DefaultsToTimestampSuffix(t *testing.T) {
	b, fake := newBackend(t)

	_, err := b.Create(context.Background(), lifecycle.CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"nc_test_articles_20240102150405"}, fake.IndexNames())
}

func TestCreate_Twice(t *testing.T) {
	ctx := context.Background()
	b, fake := newBackend(t)

	_, err := b.Create(ctx, lifecycle.CreateOptions{Suffix: "v1", SkipAlias: true})
	require.NoError(t, err)

	_, err = b.Create(ctx, lifecycle.CreateOptions{Suffix: "v1", SkipAlias: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, lifecycle.ErrAlreadyExists))

	var se *lifecycle.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)

	resp, ok, err := b.TryCreate(ctx, lifecycle.CreateOptions{Suffix: "v1", SkipAlias: true})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, resp)

	assert.Equal(t, []string{"nc_test_articles_v1"}, fake.IndexNames())
}

func TestCreate_WaitsForClusterStatus(t *testing.T) {
	ctx := context.Background()
	b, fake := newBackend(t)
	b.Definition().Cluster().SetWaitStatus(cluster.StatusYellow)

	_, err := b.Create(ctx, lifecycle.CreateOptions{Suffix: "v1"})
	require.NoError(t, err)

	reqs := fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/_cluster/health", reqs[1].Path)
	assert.Equal(t, "yellow", reqs[1].Query.Get("wait_for_status"))
}

func TestCreate_FailedWaitIsNotReturned(t *testing.T) {
	ctx := context.Background()
	b, fake := newBackend(t)
	b.Definition().Cluster().SetWaitStatus(cluster.StatusGreen)
	fake.HealthTimedOut = true

	resp, err := b.Create(ctx, lifecycle.CreateOptions{Suffix: "v1"})
	require.NoError(t, err)
	assert.True(t, resp.Acknowledged())
	assert.Len(t, fake.Requests(), 2)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("missing index", func(t *testing.T) {
		b, _ := newBackend(t)

		_, err := b.Delete(ctx, lifecycle.DeleteOptions{Suffix: "v9"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, lifecycle.ErrNotFound))

		_, ok, err := b.TryDelete(ctx, lifecycle.DeleteOptions{Suffix: "v9"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("physical index", func(t *testing.T) {
		b, fake := newBackend(t)
		fake.AddIndex("nc_test_articles_v1", "nc_test_articles")
		fake.AddIndex("nc_test_articles_v2")

		resp, ok, err := b.TryDelete(ctx, lifecycle.DeleteOptions{Suffix: "v2"})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, resp.Acknowledged())
		assert.Equal(t, []string{"nc_test_articles_v1"}, fake.IndexNames())
	})

	t.Run("empty suffix targets canonical name", func(t *testing.T) {
		b, fake := newBackend(t)
		fake.AddIndex("nc_test_articles")

		_, err := b.Delete(ctx, lifecycle.DeleteOptions{})
		require.NoError(t, err)
		assert.Empty(t, fake.IndexNames())

		reqs := fake.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodDelete, reqs[0].Method)
		assert.Equal(t, "/nc_test_articles", reqs[0].Path)
	})

	t.Run("empty suffix on alias is refused", func(t *testing.T) {
		b, fake := newBackend(t)
		fake.AddIndex("nc_test_articles_v1", "nc_test_articles")

		_, err := b.Delete(ctx, lifecycle.DeleteOptions{})
		require.Error(t, err)

		var se *lifecycle.ServerError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusBadRequest, se.Status)
		assert.Equal(t, "illegal_argument_exception", se.Type)
		assert.Equal(t, []string{"nc_test_articles_v1"}, fake.IndexNames())

		reqs := fake.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "/nc_test_articles", reqs[0].Path)
	})
}

func TestInvalidSuffix(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		suffix string
	}{
		{name: "query separator", suffix: "v2?keep"},
		{name: "fragment", suffix: "v3#x"},
		{name: "comma list", suffix: "v1,other"},
		{name: "wildcard", suffix: "*"},
		{name: "path separator", suffix: "a/b"},
		{name: "backslash", suffix: `a\b`},
		{name: "colon", suffix: "a:b"},
		{name: "space", suffix: "a b"},
		{name: "quote", suffix: `a"b`},
		{name: "pipe", suffix: "a|b"},
		{name: "angle brackets", suffix: "<v1>"},
		{name: "uppercase", suffix: "V1"},
		{name: "too long", suffix: strings.Repeat("a", index.MaxNameBytes)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, fake := newBackend(t, index.WithVersion(tt.suffix))
			fake.AddIndex("nc_test_articles_v2", "nc_test_articles")

			calls := map[string]func() error{
				"exists": func() error {
					_, err := b.Exists(ctx, lifecycle.ExistsOptions{Suffix: tt.suffix})
					return err
				},
				"create": func() error {
					_, err := b.Create(ctx, lifecycle.CreateOptions{Suffix: tt.suffix})
					return err
				},
				"delete": func() error {
					_, err := b.Delete(ctx, lifecycle.DeleteOptions{Suffix: tt.suffix})
					return err
				},
				"try delete": func() error {
					_, _, err := b.TryDelete(ctx, lifecycle.DeleteOptions{Suffix: tt.suffix})
					return err
				},
				"update aliases": func() error {
					_, err := b.UpdateAliases(ctx, lifecycle.AliasOptions{Suffix: tt.suffix})
					return err
				},
				"update mapping": func() error {
					_, err := b.UpdateMapping(ctx, lifecycle.MappingOptions{Suffix: tt.suffix})
					return err
				},
				"update mapping by version": func() error {
					_, err := b.UpdateMapping(ctx, lifecycle.MappingOptions{})
					return err
				},
				"reset": func() error {
					_, err := b.Reset(ctx, lifecycle.ResetOptions{Suffix: tt.suffix})
					return err
				},
			}
			for op, call := range calls {
				err := call()
				require.Error(t, err, op)
				assert.ErrorIs(t, err, lifecycle.ErrInvalidTarget, op)
				assert.ErrorIs(t, err, index.ErrInvalidSuffix, op)
			}

			assert.Empty(t, fake.Requests())
			assert.Equal(t, []string{"nc_test_articles_v2"}, fake.IndexNames())
		})
	}
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	b, fake := newBackend(t)

	exists, err := b.Exists(ctx, lifecycle.ExistsOptions{})
	require.NoError(t, err)
	assert.False(t, exists)

	fake.AddIndex("nc_test_articles_v1", "nc_test_articles")

	exists, err = b.Exists(ctx, lifecycle.ExistsOptions{})
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = b.Exists(ctx, lifecycle.ExistsOptions{Suffix: "v2"})
	require.NoError(t, err)
	assert.False(t, exists)

	fake.FailNext(http.StatusInternalServerError, "exception", "boom")
	_, err = b.Exists(ctx, lifecycle.ExistsOptions{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, lifecycle.ErrNotFound))
}

func TestUpdateAliases_Swap(t *testing.T) {
	ctx := context.Background()
	b, fake := newBackend(t)

	_, err := b.Create(ctx, lifecycle.CreateOptions{Suffix: "v1", SkipAlias: true})
	require.NoError(t, err)
	_, err = b.Create(ctx, lifecycle.CreateOptions{Suffix: "v2", SkipAlias: true})
	require.NoError(t, err)

	_, err = b.UpdateAliases(ctx, lifecycle.AliasOptions{Suffix: "v2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nc_test_articles_v2"}, fake.AliasHolders("nc_test_articles"))

	_, err = b.UpdateAliases(ctx, lifecycle.AliasOptions{Suffix: "v1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"nc_test_articles_v1"}, fake.AliasHolders("nc_test_articles"))

	// The previous binding is removed in the same request that adds the new one.
	reqs := fake.Requests()
	last := reqs[len(reqs)-1]
	assert.Equal(t, "/_aliases", last.Path)
	actions, ok := last.Body["actions"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{
		map[string]any{"remove": map[string]any{"index": "nc_test_articles_v2", "alias": "nc_test_articles"}},
		map[string]any{"add": map[string]any{"index": "nc_test_articles_v1", "alias": "nc_test_articles"}},
	}, actions)
}

func TestUpdateAliases_ThreeVersions(t *testing.T) {
	ctx := context.Background()
	b, fake := newBackend(t)

	_, err := b.Create(ctx, lifecycle.CreateOptions{Suffix: "v1", SkipAlias: true})
	require.NoError(t, err)
	_, err = b.Create(ctx, lifecycle.CreateOptions{Suffix: "v2"})
	require.NoError(t, err)
	_, err = b.Create(ctx, lifecycle.CreateOptions{Suffix: "v3", SkipAlias: true})
	require.NoError(t, err)

	_, err = b.UpdateAliases(ctx, lifecycle.AliasOptions{Suffix: "v3"})
	require.NoError(t, err)

	assert.Equal(t, []string{"nc_test_articles_v3"}, fake.AliasHolders("nc_test_articles"))

	indices, err := b.Indices(ctx, lifecycle.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"nc_test_articles_v3"}, indices)
}

func TestUpdateAliases_EmptySuffix(t *testing.T) {
	ctx := context.Background()
	b, fake := newBackend(t)

	_, err := b.UpdateAliases(ctx, lifecycle.AliasOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, lifecycle.ErrInvalidTarget))

	_, ok, err := b.TryUpdateAliases(ctx, lifecycle.AliasOptions{})
	assert.False(t, ok)
	assert.True(t, errors.Is(err, lifecycle.ErrInvalidTarget))

	assert.Empty(t, fake.Requests())
}

func TestUpdateAliases_MissingTarget(t *testing.T) {
	ctx := context.Background()
	b, _ := newBackend(t)

	_, err := b.UpdateAliases(ctx, lifecycle.AliasOptions{Suffix: "v9"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, lifecycle.ErrNotFound))

	_, ok, err := b.TryUpdateAliases(ctx, lifecycle.AliasOptions{Suffix: "v9"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndicesAndAliases(t *testing.T) {
	ctx := context.Background()

	t.Run("no index", func(t *testing.T) {
		b, _ := newBackend(t)

		indices, err := b.Indices(ctx, lifecycle.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{}, indices)

		aliases, err := b.Aliases(ctx, lifecycle.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{}, aliases)
	})

	t.Run("index without alias", func(t *testing.T) {
		b, fake := newBackend(t)
		fake.AddIndex("nc_test_articles_v1")

		indices, err := b.Indices(ctx, lifecycle.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{}, indices)
	})

	t.Run("aliased indices", func(t *testing.T) {
		b, fake := newBackend(t)
		fake.AddIndex("nc_test_articles_v2", "nc_test_articles", "articles_read")
		fake.AddIndex("nc_test_articles_v1", "nc_test_articles", "articles_read", "legacy")

		indices, err := b.Indices(ctx, lifecycle.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"nc_test_articles_v1", "nc_test_articles_v2"}, indices)

		aliases, err := b.Aliases(ctx, lifecycle.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"articles_read", "legacy", "nc_test_articles"}, aliases)
	})

	t.Run("server error", func(t *testing.T) {
		b, fake := newBackend(t)
		fake.FailNext(http.StatusInternalServerError, "exception", "boom")

		_, err := b.Indices(ctx, lifecycle.ListOptions{})
		require.Error(t, err)
	})
}

func TestUpdateMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit suffix", func(t *testing.T) {
		b, fake := newBackend(t)
		fake.AddIndex("nc_test_articles_v1")

		resp, err := b.UpdateMapping(ctx, lifecycle.MappingOptions{Suffix: "v1"})
		require.NoError(t, err)
		assert.True(t, resp.Acknowledged())

		idx, _ := fake.Index("nc_test_articles_v1")
		assert.Contains(t, idx.Mappings["properties"], "title")
	})

	t.Run("version suffix", func(t *testing.T) {
		b, fake := newBackend(t, index.WithVersion("v2"))
		fake.AddIndex("nc_test_articles_v2")

		_, err := b.UpdateMapping(ctx, lifecycle.MappingOptions{})
		require.NoError(t, err)
		assert.Equal(t, "/nc_test_articles_v2/_mapping", fake.Requests()[0].Path)
	})

	t.Run("canonical name", func(t *testing.T) {
		b, fake := newBackend(t)
		fake.AddIndex("nc_test_articles_v1", "nc_test_articles")

		_, err := b.UpdateMapping(ctx, lifecycle.MappingOptions{})
		require.NoError(t, err)
		assert.Equal(t, "/nc_test_articles/_mapping", fake.Requests()[0].Path)
	})

	t.Run("missing index", func(t *testing.T) {
		b, _ := newBackend(t)

		_, err := b.UpdateMapping(ctx, lifecycle.MappingOptions{Suffix: "v9"})
		assert.True(t, errors.Is(err, lifecycle.ErrNotFound))

		_, ok, err := b.TryUpdateMapping(ctx, lifecycle.MappingOptions{Suffix: "v9"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("no mappings", func(t *testing.T) {
		fake := lifecycletest.NewCluster()
		c := cluster.New("v1", cluster.WithClient(fake.Client()))
		b := lifecycle.New(index.New("bare", index.WithCluster(c)))

		_, err := b.UpdateMapping(ctx, lifecycle.MappingOptions{Suffix: "v1"})
		assert.True(t, errors.Is(err, lifecycle.ErrNoMapping))
		assert.Empty(t, fake.Requests())
	})
}

func TestReset(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces previous index", func(t *testing.T) {
		b, fake := newBackend(t)
		fake.AddIndex("nc_test_articles_v1", "nc_test_articles")

		var populated string
		result, err := b.Reset(ctx, lifecycle.ResetOptions{
			Suffix: "v2",
			Populate: func(_ context.Context, name string) error {
				populated = name
				assert.Equal(t, []string{"nc_test_articles_v1"}, fake.AliasHolders("nc_test_articles"))
				return nil
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "nc_test_articles_v2", populated)
		assert.Equal(t, "nc_test_articles_v2", result.Index)
		assert.Equal(t, []string{"nc_test_articles_v1"}, result.Previous)
		assert.Equal(t, []string{"nc_test_articles_v1"}, result.Deleted)
		assert.Equal(t, []string{"nc_test_articles_v2"}, fake.IndexNames())
		assert.Equal(t, []string{"nc_test_articles_v2"}, fake.AliasHolders("nc_test_articles"))
	})

	t.Run("keep previous", func(t *testing.T) {
		b, fake := newBackend(t)
		fake.AddIndex("nc_test_articles_v1", "nc_test_articles")

		result, err := b.Reset(ctx, lifecycle.ResetOptions{KeepPrevious: true})
		require.NoError(t, err)

		assert.Equal(t, "nc_test_articles_20240102150405", result.Index)
		assert.Empty(t, result.Deleted)
		assert.Equal(t, []string{"nc_test_articles_20240102150405", "nc_test_articles_v1"}, fake.IndexNames())
		assert.Equal(t, []string{"nc_test_articles_20240102150405"}, fake.AliasHolders("nc_test_articles"))
	})

	t.Run("emits one event", func(t *testing.T) {
		rec := &recorder{}
		fake := lifecycletest.NewCluster()
		c := cluster.New("v1", cluster.WithIndexPrefix("nc_test"), cluster.WithClient(fake.Client()))
		b := lifecycle.New(index.New("articles", index.WithCluster(c)), lifecycle.WithObserver(rec))
		fake.AddIndex("nc_test_articles_v1", "nc_test_articles")

		_, err := b.Reset(ctx, lifecycle.ResetOptions{Suffix: "v2"})
		require.NoError(t, err)

		require.Len(t, rec.events, 1)
		assert.Equal(t, lifecycle.OpReset, rec.events[0].Operation)
		assert.Equal(t, "nc_test_articles_v2", rec.events[0].Target)
		assert.Equal(t, "success", rec.events[0].Outcome())
	})

	t.Run("populate failure removes new index", func(t *testing.T) {
		b, fake := newBackend(t)
		fake.AddIndex("nc_test_articles_v1", "nc_test_articles")

		_, err := b.Reset(ctx, lifecycle.ResetOptions{
			Suffix:   "v2",
			Populate: func(context.Context, string) error { return errors.New("source unavailable") },
		})
		require.Error(t, err)
		assert.Equal(t, []string{"nc_test_articles_v1"}, fake.IndexNames())
		assert.Equal(t, []string{"nc_test_articles_v1"}, fake.AliasHolders("nc_test_articles"))
	})
}

func TestParamsPassThrough(t *testing.T) {
	ctx := context.Background()
	b, fake := newBackend(t)

	_, err := b.Create(ctx, lifecycle.CreateOptions{
		Suffix:              "v1",
		Timeout:             30 * time.Second,
		MasterTimeout:       1500 * time.Millisecond,
		WaitForActiveShards: "1",
		Params:              map[string]string{"pretty": "true", "timeout": "5s"},
	})
	require.NoError(t, err)

	q := fake.Requests()[0].Query
	assert.Equal(t, "5s", q.Get("timeout"))
	assert.Equal(t, "1500ms", q.Get("master_timeout"))
	assert.Equal(t, "1", q.Get("wait_for_active_shards"))
	assert.Equal(t, "true", q.Get("pretty"))

	fake.ResetRequests()
	_, err = b.Indices(ctx, lifecycle.ListOptions{
		IgnoreUnavailable: lifecycle.Bool(true),
		AllowNoIndices:    lifecycle.Bool(false),
		ExpandWildcards:   "open",
	})
	require.NoError(t, err)

	q = fake.Requests()[0].Query
	assert.Equal(t, "true", q.Get("ignore_unavailable"))
	assert.Equal(t, "false", q.Get("allow_no_indices"))
	assert.Equal(t, "open", q.Get("expand_wildcards"))
}

func TestObserver(t *testing.T) {
	ctx := context.Background()
	fake := lifecycletest.NewCluster()
	c := cluster.New("v1", cluster.WithIndexPrefix("nc_test"), cluster.WithClient(fake.Client()))
	rec := &recorder{}
	b := lifecycle.New(index.New("articles", index.WithCluster(c)), lifecycle.WithObserver(rec))

	_, err := b.Create(ctx, lifecycle.CreateOptions{Suffix: "v1"})
	require.NoError(t, err)
	_, _, err = b.TryDelete(ctx, lifecycle.DeleteOptions{Suffix: "v9"})
	require.NoError(t, err)

	require.Len(t, rec.events, 2)

	created := rec.events[0]
	assert.Equal(t, lifecycle.OpCreate, created.Operation)
	assert.Equal(t, "v1", created.Cluster)
	assert.Equal(t, "nc_test_articles", created.Index)
	assert.Equal(t, "nc_test_articles_v1", created.Target)
	assert.Equal(t, "success", created.Outcome())

	deleted := rec.events[1]
	assert.Equal(t, lifecycle.OpDelete, deleted.Operation)
	assert.Equal(t, "error", deleted.Outcome())
	assert.NotEqual(t, created.ID, deleted.ID)
}

func TestInvalidDefinition(t *testing.T) {
	fake := lifecycletest.NewCluster()
	c := cluster.New("v1", cluster.WithClient(fake.Client()))
	b := lifecycle.New(index.New("", index.WithCluster(c)))

	_, err := b.Create(context.Background(), lifecycle.CreateOptions{})
	assert.True(t, errors.Is(err, lifecycle.ErrInvalidTarget))
	assert.True(t, errors.Is(err, index.ErrEmptyName))
	assert.Empty(t, fake.Requests())
}
