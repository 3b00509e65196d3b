package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"senkou-backend/application/ports"
	"senkou-backend/application/services"
	"senkou-backend/domain/core/valueobjects"
	"senkou-backend/infrastructure/config"
	"senkou-backend/infrastructure/messaging/eventbridge"
	"senkou-backend/infrastructure/persistence"
	"senkou-backend/infrastructure/persistence/dynamodb"
	"senkou-backend/infrastructure/persistence/memory"
	"senkou-backend/interfaces/http/rest"
	"senkou-backend/pkg/observability"
)

const (
	serviceName      = "senkou-backend"
	metricsNamespace = "senkou"
	ensureTableWait  = 2 * time.Minute
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideAWSConfig creates AWS configuration. The SDK retryer is capped at
// cfg.MaxAttempts, which defaults to a single attempt.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithRetryMaxAttempts(cfg.MaxAttempts),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the metrics collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideTracing installs the OTLP exporter when tracing is enabled. It
// returns nil otherwise and spans stay no-ops.
func ProvideTracing(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.TracingEndpoint,
		Insecure:    cfg.TracingInsecure,
	})
}

// ProvideRecordStore builds the configured backend and wraps it with
// instrumentation and, when enabled, a circuit breaker.
func ProvideRecordStore(
	ctx context.Context,
	client *awsdynamodb.Client,
	cfg *config.Config,
	metrics *observability.Collector,
	logger *zap.Logger,
) (ports.RecordStore, error) {
	var store ports.RecordStore
	switch cfg.StoreBackend {
	case config.StoreMemory:
		logger.Warn("Using in-memory record store; data is lost on restart")
		store = memory.NewRecordStore()
	case config.StoreDynamoDB:
		if cfg.EnsureTable {
			if err := dynamodb.EnsureTable(ctx, client, cfg.TableName, ensureTableWait, logger); err != nil {
				return nil, fmt.Errorf("failed to ensure table %s: %w", cfg.TableName, err)
			}
		}
		store = dynamodb.NewRecordRepository(client, cfg.TableName, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	store = persistence.NewInstrumentedStore(store, metrics)

	if cfg.CircuitBreaker.Enabled {
		store = persistence.NewCircuitBreakerStore(store, persistence.CircuitBreakerConfig{
			Name:             "record-store",
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			MinRequests:      cfg.CircuitBreaker.MinRequests,
		}, metrics, logger)
	}
	return store, nil
}

// ProvideEventPublisher creates the record event publisher
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if !cfg.EnableEvents {
		return eventbridge.NoopPublisher{}
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, cfg.EventSource, logger)
}

// ProvideIDGenerator creates the record id generator
func ProvideIDGenerator() valueobjects.IDGenerator {
	return valueobjects.NewUUIDGenerator()
}

// ProvideRecordService creates the record service
func ProvideRecordService(
	store ports.RecordStore,
	ids valueobjects.IDGenerator,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.RecordService {
	return services.NewRecordService(store, ids, metrics, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	service *services.RecordService,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(service, publisher, metrics, rest.Options{
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.AllowedOrigins,
		ExposeMetrics:  cfg.EnableMetrics,
		Debug:          cfg.IsDevelopment(),
	}, logger)
}
