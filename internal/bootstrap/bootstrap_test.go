package bootstrap_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/index-lifecycle/pkg/lifecycle/lifecycletest"
)

const testConfig = `
service:
  name: index-lifecycle-test
  port: 18095
logging:
  level: debug
  format: console
elasticsearch:
  url: http://127.0.0.1:1
  skip_ping: true
clusters:
  default:
    index_prefix: app
indexes:
  - name: events
    version: v1
    mapping_file: mappings/events.yml
`

const eventsMapping = `
mappings:
  properties:
    at:
      type: date
`

func writeConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "mappings"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mappings", "events.yml"), []byte(eventsMapping), 0o600))

	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func TestLoadConfigAndLogger(t *testing.T) {
	path := writeConfig(t)

	cfg, err := bootstrap.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 18095, cfg.Service.Port)
	assert.Equal(t, "app", cfg.Clusters["default"].IndexPrefix)

	log, err := bootstrap.CreateLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o600))

	_, err := bootstrap.LoadConfig(path)
	require.Error(t, err)
}

func TestSetupComponents_WithoutDatabase(t *testing.T) {
	ctx := context.Background()
	path := writeConfig(t)
	cfg, err := bootstrap.LoadConfig(path)
	require.NoError(t, err)

	components, err := bootstrap.SetupComponents(ctx, cfg, path, logger.NewNop(), true)
	require.NoError(t, err)
	defer components.Close(logger.NewNop())

	assert.Nil(t, components.DB)
	assert.Nil(t, components.History)
	assert.NotNil(t, components.Registry)
	assert.Equal(t, []string{"events"}, components.Catalog.Names())

	entry, err := components.Catalog.Get("events")
	require.NoError(t, err)
	assert.True(t, entry.Definition.HasMappings())
}

func TestSetupHTTPServer_HealthAndMetrics(t *testing.T) {
	ctx := context.Background()
	path := writeConfig(t)
	cfg, err := bootstrap.LoadConfig(path)
	require.NoError(t, err)

	components, err := bootstrap.SetupComponents(ctx, cfg, path, logger.NewNop(), true)
	require.NoError(t, err)

	fake := lifecycletest.NewCluster()
	require.NoError(t, components.Catalog.Registry().Default().SetClient(fake.Client()))

	server := bootstrap.SetupHTTPServer(cfg, components, logger.NewNop())

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "index-lifecycle-test", health["service"])

	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/indexes/events", nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "index_lifecycle_operations_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
	assert.Contains(t, w.Body.String(), `index_lifecycle_http_requests_total{method="POST",route="/api/v1/indexes/:name",status="201"} 1`)
}
