package usecase

import (
	"context"
	"time"

	cryptoDomain "github.com/allisson/envcrypt/internal/crypto/domain"
	"github.com/allisson/envcrypt/internal/metrics"
)

// clientUseCaseWithMetrics decorates ClientUseCase with metrics instrumentation.
type clientUseCaseWithMetrics struct {
	next    ClientUseCase
	metrics metrics.BusinessMetrics
}

// NewClientWithMetrics wraps a ClientUseCase with metrics recording.
func NewClientWithMetrics(useCase ClientUseCase, m metrics.BusinessMetrics) ClientUseCase {
	return &clientUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Encrypt records metrics for single-document encryption operations.
func (c *clientUseCaseWithMetrics) Encrypt(
	ctx context.Context,
	fields cryptoDomain.FieldMap,
	metadata cryptoDomain.DocumentMetadata,
) (cryptoDomain.EncryptedDocument, error) {
	start := time.Now()
	document, err := c.next.Encrypt(ctx, fields, metadata)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "crypto", "document_encrypt", status)
	c.metrics.RecordDuration(ctx, "crypto", "document_encrypt", time.Since(start), status)

	return document, err
}

// EncryptExisting records metrics for re-encryption operations.
func (c *clientUseCaseWithMetrics) EncryptExisting(
	ctx context.Context,
	document cryptoDomain.PlaintextDocument,
	metadata cryptoDomain.DocumentMetadata,
) (cryptoDomain.EncryptedDocument, error) {
	start := time.Now()
	encrypted, err := c.next.EncryptExisting(ctx, document, metadata)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "crypto", "document_encrypt_existing", status)
	c.metrics.RecordDuration(ctx, "crypto", "document_encrypt_existing", time.Since(start), status)

	return encrypted, err
}

// Decrypt records metrics for single-document decryption operations.
func (c *clientUseCaseWithMetrics) Decrypt(
	ctx context.Context,
	document cryptoDomain.EncryptedDocument,
	metadata cryptoDomain.DocumentMetadata,
) (cryptoDomain.PlaintextDocument, error) {
	start := time.Now()
	decrypted, err := c.next.Decrypt(ctx, document, metadata)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "crypto", "document_decrypt", status)
	c.metrics.RecordDuration(ctx, "crypto", "document_decrypt", time.Since(start), status)

	return decrypted, err
}

// EncryptBatch records metrics for batch encryption operations. A batch with
// per-document failures still counts as success; only a hard failure of the
// whole call records an error.
func (c *clientUseCaseWithMetrics) EncryptBatch(
	ctx context.Context,
	documents map[string]cryptoDomain.FieldMap,
	metadata cryptoDomain.DocumentMetadata,
) (cryptoDomain.BatchResult[cryptoDomain.EncryptedDocument], error) {
	start := time.Now()
	result, err := c.next.EncryptBatch(ctx, documents, metadata)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "crypto", "batch_encrypt", status)
	c.metrics.RecordDuration(ctx, "crypto", "batch_encrypt", time.Since(start), status)

	return result, err
}

// EncryptExistingBatch records metrics for batch re-encryption operations.
func (c *clientUseCaseWithMetrics) EncryptExistingBatch(
	ctx context.Context,
	documents map[string]cryptoDomain.PlaintextDocument,
	metadata cryptoDomain.DocumentMetadata,
) (cryptoDomain.BatchResult[cryptoDomain.EncryptedDocument], error) {
	start := time.Now()
	result, err := c.next.EncryptExistingBatch(ctx, documents, metadata)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "crypto", "batch_encrypt_existing", status)
	c.metrics.RecordDuration(ctx, "crypto", "batch_encrypt_existing", time.Since(start), status)

	return result, err
}

// DecryptBatch records metrics for batch decryption operations.
func (c *clientUseCaseWithMetrics) DecryptBatch(
	ctx context.Context,
	documents map[string]cryptoDomain.EncryptedDocument,
	metadata cryptoDomain.DocumentMetadata,
) (cryptoDomain.BatchResult[cryptoDomain.PlaintextDocument], error) {
	start := time.Now()
	result, err := c.next.DecryptBatch(ctx, documents, metadata)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "crypto", "batch_decrypt", status)
	c.metrics.RecordDuration(ctx, "crypto", "batch_decrypt", time.Since(start), status)

	return result, err
}
