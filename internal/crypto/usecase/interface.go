// Package usecase orchestrates envelope encryption: it obtains document keys
// from the key service, drives the field ciphers, and assembles per-document
// results for both single and batch operations.
package usecase

import (
	"context"

	cryptoDomain "github.com/allisson/envcrypt/internal/crypto/domain"
)

// KeyService defines the boundary to the external key management service.
//
// Implementations generate, wrap, and unwrap document encryption keys (DEKs)
// on behalf of a tenant. The batch methods report per-document failures in
// the response rather than through the error return: the error return is
// reserved for failures that prevented the call as a whole, such as an
// unreachable service or a cancelled context.
//
// Available implementations:
//   - kms.KeeperKeyService: wraps DEKs with a gocloud.dev secrets keeper
//     (AWS KMS, GCP KMS, Azure Key Vault, Vault transit, or a local key)
type KeyService interface {
	// WrapKey generates a fresh DEK and returns it together with its
	// wrapped form (EDEK).
	WrapKey(ctx context.Context, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.WrappedDocumentKey, error)

	// UnwrapKey recovers the plaintext DEK held inside edek.
	UnwrapKey(ctx context.Context, edek string, metadata cryptoDomain.DocumentMetadata) ([]byte, error)

	// BatchWrapKeys generates and wraps one DEK per document ID. The
	// response's Keys and Failures maps are disjoint and together cover
	// every requested ID.
	BatchWrapKeys(ctx context.Context, ids []string, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.BatchWrapResponse, error)

	// BatchUnwrapKeys recovers the DEK for every EDEK in edeks, keyed by
	// document ID, with the same disjoint-coverage contract as BatchWrapKeys.
	BatchUnwrapKeys(ctx context.Context, edeks map[string]string, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.BatchUnwrapResponse, error)
}

// ClientUseCase defines the document encryption operations exposed to callers.
//
// Every operation validates the supplied metadata, charges key acquisition to
// a bounded key-service worker pool, and performs the actual field encryption
// locally. Single-document operations return the first error they hit. Batch
// operations keep going: key-service failures for individual documents land
// in the result's failures map while the remaining documents succeed, and
// only a local cipher failure or an unreachable key service fails the whole
// call.
//
// Example usage:
//
//	client := usecase.NewClient(keyService, envelope, logger, usecase.ClientConfig{})
//	metadata := domain.NewDocumentMetadata("tenant-1", "billing-service", "", nil, "")
//	encrypted, err := client.Encrypt(ctx, domain.FieldMap{"ssn": []byte("000-12-2345")}, metadata)
type ClientUseCase interface {
	// Encrypt protects the given fields under a fresh document key and
	// returns the ciphertexts together with the EDEK to persist.
	Encrypt(ctx context.Context, fields cryptoDomain.FieldMap, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.EncryptedDocument, error)

	// EncryptExisting re-encrypts updated plaintext fields under the
	// document's existing key, identified by the document's EDEK. Use this
	// to keep one key per document across edits.
	EncryptExisting(ctx context.Context, document cryptoDomain.PlaintextDocument, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.EncryptedDocument, error)

	// Decrypt unwraps the document's EDEK and decrypts every field.
	Decrypt(ctx context.Context, document cryptoDomain.EncryptedDocument, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.PlaintextDocument, error)

	// EncryptBatch encrypts many documents keyed by document ID, each under
	// its own fresh key. Per-document key failures are reported in the
	// result's failures map.
	EncryptBatch(ctx context.Context, documents map[string]cryptoDomain.FieldMap, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.BatchResult[cryptoDomain.EncryptedDocument], error)

	// EncryptExistingBatch re-encrypts many existing documents under their
	// current keys, identified by each document's EDEK.
	EncryptExistingBatch(ctx context.Context, documents map[string]cryptoDomain.PlaintextDocument, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.BatchResult[cryptoDomain.EncryptedDocument], error)

	// DecryptBatch decrypts many documents keyed by document ID.
	DecryptBatch(ctx context.Context, documents map[string]cryptoDomain.EncryptedDocument, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.BatchResult[cryptoDomain.PlaintextDocument], error)
}
