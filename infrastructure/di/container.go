package di

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"senkou-backend/application/ports"
	"senkou-backend/application/services"
	"senkou-backend/infrastructure/config"
	"senkou-backend/interfaces/http/rest"
	"senkou-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Tracing   *observability.TracerProvider
	Store     ports.RecordStore
	Publisher ports.EventPublisher
	Service   *services.RecordService
	Router    *rest.Router
}

// Handler returns the fully configured HTTP handler
func (c *Container) Handler() http.Handler {
	return c.Router.Setup()
}

// Shutdown flushes traces and logs. Safe to call on a partially built
// container.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if c.Tracing != nil {
		errs = append(errs, c.Tracing.Shutdown(ctx))
	}
	if c.Logger != nil {
		// Sync on stderr reports EINVAL on some platforms; it is not actionable.
		_ = c.Logger.Sync()
	}
	return errors.Join(errs...)
}
