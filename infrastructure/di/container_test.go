package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senkou-backend/infrastructure/config"
	"senkou-backend/infrastructure/messaging/eventbridge"
	"senkou-backend/infrastructure/persistence"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.StoreBackend = config.StoreMemory
	cfg.LogLevel = "error"
	cfg.EnableMetrics = true
	return cfg
}

func TestInitializeContainer_MemoryBackend(t *testing.T) {
	ctx := context.Background()

	container, err := InitializeContainer(ctx, memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Shutdown(ctx) })

	assert.IsType(t, &persistence.CircuitBreakerStore{}, container.Store)
	assert.IsType(t, eventbridge.NoopPublisher{}, container.Publisher)
	assert.Nil(t, container.Tracing)

	handler := container.Handler()

	req := httptest.NewRequest(http.MethodPost, "/senkous", strings.NewReader(`{"ownerId":"u1"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "senkou_record_operations_total")
}

func TestInitializeContainer_BreakerDisabled(t *testing.T) {
	cfg := memoryConfig()
	cfg.CircuitBreaker.Enabled = false

	container, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)

	assert.IsType(t, &persistence.InstrumentedStore{}, container.Store)
}

func TestProvideLogger_InvalidLevel(t *testing.T) {
	cfg := memoryConfig()
	cfg.LogLevel = "loud"

	_, err := ProvideLogger(cfg)
	assert.Error(t, err)
}
