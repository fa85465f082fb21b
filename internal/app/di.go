// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gocloud.dev/secrets"

	"github.com/allisson/envcrypt/internal/config"
	cryptoService "github.com/allisson/envcrypt/internal/crypto/service"
	cryptoUseCase "github.com/allisson/envcrypt/internal/crypto/usecase"
	"github.com/allisson/envcrypt/internal/kms"
	"github.com/allisson/envcrypt/internal/metrics"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	keeper          *secrets.Keeper

	// Services
	keyService cryptoUseCase.KeyService
	envelope   cryptoService.EnvelopeCodec

	// Use Cases
	clientUseCase cryptoUseCase.ClientUseCase

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	keeperInit          sync.Once
	keyServiceInit      sync.Once
	envelopeInit        sync.Once
	clientUseCaseInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// MetricsProvider returns the OpenTelemetry metrics provider with Prometheus export.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. When metrics are
// disabled in the configuration a no-op recorder is returned.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// Keeper returns the gocloud.dev secrets keeper used to wrap document keys.
func (c *Container) Keeper(ctx context.Context) (*secrets.Keeper, error) {
	var err error
	c.keeperInit.Do(func() {
		c.keeper, err = c.initKeeper(ctx)
		if err != nil {
			c.initErrors["keeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keeper"]; exists {
		return nil, storedErr
	}
	return c.keeper, nil
}

// KeyService returns the key service instance.
func (c *Container) KeyService(ctx context.Context) (cryptoUseCase.KeyService, error) {
	var err error
	c.keyServiceInit.Do(func() {
		c.keyService, err = c.initKeyService(ctx)
		if err != nil {
			c.initErrors["keyService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyService"]; exists {
		return nil, storedErr
	}
	return c.keyService, nil
}

// Envelope returns the envelope codec that encrypts document fields.
func (c *Container) Envelope() cryptoService.EnvelopeCodec {
	c.envelopeInit.Do(func() {
		cipher := cryptoService.NewAESGCM(nil)
		c.envelope = cryptoService.NewEnvelope(cipher, c.config.CryptoWorkers)
	})
	return c.envelope
}

// ClientUseCase returns the envelope encryption client instance.
func (c *Container) ClientUseCase(ctx context.Context) (cryptoUseCase.ClientUseCase, error) {
	var err error
	c.clientUseCaseInit.Do(func() {
		c.clientUseCase, err = c.initClientUseCase(ctx)
		if err != nil {
			c.initErrors["clientUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["clientUseCase"]; exists {
		return nil, storedErr
	}
	return c.clientUseCase, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Close the keeper if initialized
	if c.keeper != nil {
		if err := c.keeper.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("keeper close: %w", err))
		}
	}

	// Shutdown metrics provider if initialized
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	return businessMetrics, nil
}

// initKeeper opens the secrets keeper from the configured URI.
func (c *Container) initKeeper(ctx context.Context) (*secrets.Keeper, error) {
	if c.config.KeeperURI == "" {
		return nil, fmt.Errorf("KEEPER_URI is not configured")
	}
	keeper, err := kms.OpenKeeper(ctx, c.config.KeeperURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open keeper: %w", err)
	}
	return keeper, nil
}

// initKeyService creates the keeper-backed key service.
func (c *Container) initKeyService(ctx context.Context) (cryptoUseCase.KeyService, error) {
	keeper, err := c.Keeper(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get keeper for key service: %w", err)
	}
	return kms.NewKeeperKeyService(keeper, c.Logger(), c.config.KeyServiceWorkers), nil
}

// initClientUseCase creates the envelope encryption client with all its dependencies.
func (c *Container) initClientUseCase(ctx context.Context) (cryptoUseCase.ClientUseCase, error) {
	keyService, err := c.KeyService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get key service for client use case: %w", err)
	}

	clientConfig := cryptoUseCase.ClientConfig{
		CryptoWorkers:     c.config.CryptoWorkers,
		KeyServiceWorkers: c.config.KeyServiceWorkers,
		KeyServiceTimeout: c.config.KeyServiceTimeout,
	}
	if c.config.RateLimitEnabled {
		clientConfig.KeyServiceRateLimit = c.config.RateLimitRequestsPerSec
	}

	baseUseCase := cryptoUseCase.NewClient(keyService, c.Envelope(), c.Logger(), clientConfig)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for client use case: %w", err)
		}
		return cryptoUseCase.NewClientWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
