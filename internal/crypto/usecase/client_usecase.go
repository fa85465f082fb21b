package usecase

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	cryptoDomain "github.com/allisson/envcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/envcrypt/internal/crypto/service"
	"github.com/allisson/envcrypt/internal/errors"
)

const (
	defaultKeyServiceWorkers = 25
	defaultKeyServiceTimeout = 20 * time.Second
)

// ClientConfig tunes the orchestrator's worker pools. Zero values select the
// defaults, so ClientConfig{} is a valid configuration.
type ClientConfig struct {
	// CryptoWorkers bounds concurrent per-document cipher work.
	// Defaults to runtime.NumCPU.
	CryptoWorkers int
	// KeyServiceWorkers bounds concurrent in-flight key service calls.
	// Defaults to 25.
	KeyServiceWorkers int
	// KeyServiceTimeout bounds each key service call. Defaults to 20s.
	KeyServiceTimeout time.Duration
	// KeyServiceRateLimit caps key service calls per second. Zero means
	// unlimited.
	KeyServiceRateLimit float64
}

type clientUseCase struct {
	keyService    KeyService
	envelope      cryptoService.EnvelopeCodec
	logger        *slog.Logger
	keyServiceSem *semaphore.Weighted
	limiter       *rate.Limiter
	timeout       time.Duration
	cryptoWorkers int
}

// NewClient creates the envelope encryption client. All worker pools are
// owned by the returned client; concurrent use by multiple goroutines is
// safe and shares the same limits.
func NewClient(
	keyService KeyService,
	envelope cryptoService.EnvelopeCodec,
	logger *slog.Logger,
	config ClientConfig,
) ClientUseCase {
	if config.CryptoWorkers <= 0 {
		config.CryptoWorkers = runtime.NumCPU()
	}
	if config.KeyServiceWorkers <= 0 {
		config.KeyServiceWorkers = defaultKeyServiceWorkers
	}
	if config.KeyServiceTimeout <= 0 {
		config.KeyServiceTimeout = defaultKeyServiceTimeout
	}
	var limiter *rate.Limiter
	if config.KeyServiceRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.KeyServiceRateLimit), config.KeyServiceWorkers)
	}
	return &clientUseCase{
		keyService:    keyService,
		envelope:      envelope,
		logger:        logger,
		keyServiceSem: semaphore.NewWeighted(int64(config.KeyServiceWorkers)),
		limiter:       limiter,
		timeout:       config.KeyServiceTimeout,
		cryptoWorkers: config.CryptoWorkers,
	}
}

// callKeyService charges one key service call to the shared pool: it takes a
// semaphore slot, waits on the rate limiter, and bounds the call with the
// configured timeout.
func callKeyService[T any](ctx context.Context, c *clientUseCase, call func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := c.keyServiceSem.Acquire(ctx, 1); err != nil {
		return zero, errors.Wrap(cryptoDomain.ErrKeyServiceUnreachable, err.Error())
	}
	defer c.keyServiceSem.Release(1)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, errors.Wrap(cryptoDomain.ErrKeyServiceUnreachable, err.Error())
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := call(callCtx)
	if err != nil {
		return zero, classifyKeyServiceError(err)
	}
	return out, nil
}

// classifyKeyServiceError keeps structured key service failures intact and
// folds everything else (timeouts, cancellations, transport errors) into
// ErrKeyServiceUnreachable.
func classifyKeyServiceError(err error) error {
	var kse *cryptoDomain.KeyServiceError
	if errors.As(err, &kse) {
		return err
	}
	return errors.Wrap(cryptoDomain.ErrKeyServiceUnreachable, err.Error())
}

// Encrypt protects fields under a fresh document key.
func (c *clientUseCase) Encrypt(
	ctx context.Context,
	fields cryptoDomain.FieldMap,
	metadata cryptoDomain.DocumentMetadata,
) (cryptoDomain.EncryptedDocument, error) {
	if err := metadata.Validate(); err != nil {
		return cryptoDomain.EncryptedDocument{}, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	key, err := callKeyService(ctx, c, func(ctx context.Context) (cryptoDomain.WrappedDocumentKey, error) {
		return c.keyService.WrapKey(ctx, metadata)
	})
	if err != nil {
		return cryptoDomain.EncryptedDocument{}, err
	}
	defer cryptoDomain.Zero(key.Dek)

	encrypted, err := c.envelope.EncryptFields(ctx, fields, key.Dek)
	if err != nil {
		return cryptoDomain.EncryptedDocument{}, err
	}
	return cryptoDomain.EncryptedDocument{EncryptedFields: encrypted, Edek: key.Edek}, nil
}

// EncryptExisting re-encrypts fields under the document's existing key.
func (c *clientUseCase) EncryptExisting(
	ctx context.Context,
	document cryptoDomain.PlaintextDocument,
	metadata cryptoDomain.DocumentMetadata,
) (cryptoDomain.EncryptedDocument, error) {
	if err := metadata.Validate(); err != nil {
		return cryptoDomain.EncryptedDocument{}, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	dek, err := callKeyService(ctx, c, func(ctx context.Context) ([]byte, error) {
		return c.keyService.UnwrapKey(ctx, document.Edek, metadata)
	})
	if err != nil {
		return cryptoDomain.EncryptedDocument{}, err
	}
	defer cryptoDomain.Zero(dek)

	encrypted, err := c.envelope.EncryptFields(ctx, document.DecryptedFields, dek)
	if err != nil {
		return cryptoDomain.EncryptedDocument{}, err
	}
	return cryptoDomain.EncryptedDocument{EncryptedFields: encrypted, Edek: document.Edek}, nil
}

// Decrypt unwraps the document's EDEK and decrypts every field.
func (c *clientUseCase) Decrypt(
	ctx context.Context,
	document cryptoDomain.EncryptedDocument,
	metadata cryptoDomain.DocumentMetadata,
) (cryptoDomain.PlaintextDocument, error) {
	if err := metadata.Validate(); err != nil {
		return cryptoDomain.PlaintextDocument{}, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	dek, err := callKeyService(ctx, c, func(ctx context.Context) ([]byte, error) {
		return c.keyService.UnwrapKey(ctx, document.Edek, metadata)
	})
	if err != nil {
		return cryptoDomain.PlaintextDocument{}, err
	}
	defer cryptoDomain.Zero(dek)

	decrypted, err := c.envelope.DecryptFields(ctx, document.EncryptedFields, dek)
	if err != nil {
		return cryptoDomain.PlaintextDocument{}, err
	}
	return cryptoDomain.PlaintextDocument{DecryptedFields: decrypted, Edek: document.Edek}, nil
}

// EncryptBatch encrypts many documents, each under its own fresh key.
//
// Documents whose key wrap failed are reported in the result's failures map.
// A local cipher failure aborts the whole call with an error and no result.
func (c *clientUseCase) EncryptBatch(
	ctx context.Context,
	documents map[string]cryptoDomain.FieldMap,
	metadata cryptoDomain.DocumentMetadata,
) (cryptoDomain.BatchResult[cryptoDomain.EncryptedDocument], error) {
	var zero cryptoDomain.BatchResult[cryptoDomain.EncryptedDocument]
	if err := metadata.Validate(); err != nil {
		return zero, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	ids := make([]string, 0, len(documents))
	for id := range documents {
		ids = append(ids, id)
	}
	response, err := callKeyService(ctx, c, func(ctx context.Context) (cryptoDomain.BatchWrapResponse, error) {
		return c.keyService.BatchWrapKeys(ctx, ids, metadata)
	})
	if err != nil {
		return zero, err
	}

	successes := make(map[string]cryptoDomain.EncryptedDocument, len(response.Keys))
	failures := collectFailures(response.Failures, metadata, c.logger)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cryptoWorkers)
	for id, key := range response.Keys {
		g.Go(func() error {
			defer cryptoDomain.Zero(key.Dek)
			if err := gctx.Err(); err != nil {
				return err
			}
			encrypted, err := c.envelope.EncryptFields(gctx, documents[id], key.Dek)
			if err != nil {
				return err
			}
			mu.Lock()
			successes[id] = cryptoDomain.EncryptedDocument{EncryptedFields: encrypted, Edek: key.Edek}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return zero, err
	}
	return cryptoDomain.NewBatchResult(successes, failures), nil
}

// EncryptExistingBatch re-encrypts many documents under their current keys.
func (c *clientUseCase) EncryptExistingBatch(
	ctx context.Context,
	documents map[string]cryptoDomain.PlaintextDocument,
	metadata cryptoDomain.DocumentMetadata,
) (cryptoDomain.BatchResult[cryptoDomain.EncryptedDocument], error) {
	var zero cryptoDomain.BatchResult[cryptoDomain.EncryptedDocument]
	if err := metadata.Validate(); err != nil {
		return zero, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	edeks := make(map[string]string, len(documents))
	for id, document := range documents {
		edeks[id] = document.Edek
	}
	response, err := callKeyService(ctx, c, func(ctx context.Context) (cryptoDomain.BatchUnwrapResponse, error) {
		return c.keyService.BatchUnwrapKeys(ctx, edeks, metadata)
	})
	if err != nil {
		return zero, err
	}

	successes := make(map[string]cryptoDomain.EncryptedDocument, len(response.Keys))
	failures := collectFailures(response.Failures, metadata, c.logger)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cryptoWorkers)
	for id, key := range response.Keys {
		g.Go(func() error {
			defer cryptoDomain.Zero(key.Dek)
			if err := gctx.Err(); err != nil {
				return err
			}
			encrypted, err := c.envelope.EncryptFields(gctx, documents[id].DecryptedFields, key.Dek)
			if err != nil {
				return err
			}
			mu.Lock()
			successes[id] = cryptoDomain.EncryptedDocument{EncryptedFields: encrypted, Edek: documents[id].Edek}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return zero, err
	}
	return cryptoDomain.NewBatchResult(successes, failures), nil
}

// DecryptBatch decrypts many documents keyed by document ID.
//
// Documents whose key unwrap failed are reported in the result's failures
// map. A malformed or tampered ciphertext aborts the whole call with an
// error and no result.
func (c *clientUseCase) DecryptBatch(
	ctx context.Context,
	documents map[string]cryptoDomain.EncryptedDocument,
	metadata cryptoDomain.DocumentMetadata,
) (cryptoDomain.BatchResult[cryptoDomain.PlaintextDocument], error) {
	var zero cryptoDomain.BatchResult[cryptoDomain.PlaintextDocument]
	if err := metadata.Validate(); err != nil {
		return zero, errors.Wrap(errors.ErrInvalidInput, err.Error())
	}

	edeks := make(map[string]string, len(documents))
	for id, document := range documents {
		edeks[id] = document.Edek
	}
	response, err := callKeyService(ctx, c, func(ctx context.Context) (cryptoDomain.BatchUnwrapResponse, error) {
		return c.keyService.BatchUnwrapKeys(ctx, edeks, metadata)
	})
	if err != nil {
		return zero, err
	}

	successes := make(map[string]cryptoDomain.PlaintextDocument, len(response.Keys))
	failures := collectFailures(response.Failures, metadata, c.logger)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cryptoWorkers)
	for id, key := range response.Keys {
		g.Go(func() error {
			defer cryptoDomain.Zero(key.Dek)
			if err := gctx.Err(); err != nil {
				return err
			}
			decrypted, err := c.envelope.DecryptFields(gctx, documents[id].EncryptedFields, key.Dek)
			if err != nil {
				return err
			}
			mu.Lock()
			successes[id] = cryptoDomain.PlaintextDocument{DecryptedFields: decrypted, Edek: documents[id].Edek}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return zero, err
	}
	return cryptoDomain.NewBatchResult(successes, failures), nil
}

func collectFailures(
	responses map[string]cryptoDomain.ErrorResponse,
	metadata cryptoDomain.DocumentMetadata,
	logger *slog.Logger,
) map[string]*cryptoDomain.KeyServiceError {
	failures := make(map[string]*cryptoDomain.KeyServiceError, len(responses))
	for id, response := range responses {
		failure := cryptoDomain.NewKeyServiceError(response)
		failures[id] = failure
		logger.Warn("document key operation failed",
			"document_id", id,
			"tenant_id", metadata.TenantID,
			"request_id", metadata.RequestID,
			"code", int(failure.Code),
		)
	}
	return failures
}
