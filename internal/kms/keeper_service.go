// Package kms implements the key service boundary on top of gocloud.dev
// secrets keepers, so the same code wraps document keys with AWS KMS, GCP
// KMS, Azure Key Vault, Vault transit or a local key.
package kms

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"gocloud.dev/secrets"
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
	"golang.org/x/sync/errgroup"

	cryptoDomain "github.com/allisson/envcrypt/internal/crypto/domain"
	"github.com/allisson/envcrypt/internal/errors"
)

const dekLength = 32

// OpenKeeper opens the secrets keeper identified by uri, e.g.
// "awskms://alias/my-key" or "base64key://".
func OpenKeeper(ctx context.Context, uri string) (*secrets.Keeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, uri)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInternal, "open keeper %q: %v", uri, err)
	}
	return keeper, nil
}

// KeeperKeyService generates fresh DEKs locally and uses a secrets keeper to
// wrap and unwrap them. EDEKs are the keeper's ciphertext, base64 encoded.
type KeeperKeyService struct {
	keeper  *secrets.Keeper
	logger  *slog.Logger
	random  io.Reader
	workers int
}

// NewKeeperKeyService returns a key service backed by keeper. workers bounds
// the fan-out of the batch operations and defaults to runtime.NumCPU when
// not positive.
func NewKeeperKeyService(keeper *secrets.Keeper, logger *slog.Logger, workers int) *KeeperKeyService {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &KeeperKeyService{keeper: keeper, logger: logger, random: rand.Reader, workers: workers}
}

// WrapKey generates a fresh 256-bit DEK and wraps it with the keeper.
func (k *KeeperKeyService) WrapKey(ctx context.Context, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.WrappedDocumentKey, error) {
	dek := make([]byte, dekLength)
	if _, err := io.ReadFull(k.random, dek); err != nil {
		return cryptoDomain.WrappedDocumentKey{}, errors.Wrapf(errors.ErrInternal, "generate dek: %v", err)
	}
	wrapped, err := k.keeper.Encrypt(ctx, dek)
	if err != nil {
		k.logger.Error("dek wrap failed", "tenant_id", metadata.TenantID, "request_id", metadata.RequestID, "error", err)
		return cryptoDomain.WrappedDocumentKey{}, &cryptoDomain.KeyServiceError{
			Code:    cryptoDomain.CodeKMSWrapFailed,
			Message: err.Error(),
		}
	}
	return cryptoDomain.WrappedDocumentKey{
		Dek:  dek,
		Edek: base64.StdEncoding.EncodeToString(wrapped),
	}, nil
}

// UnwrapKey recovers the DEK held inside edek.
func (k *KeeperKeyService) UnwrapKey(ctx context.Context, edek string, metadata cryptoDomain.DocumentMetadata) ([]byte, error) {
	wrapped, err := base64.StdEncoding.DecodeString(edek)
	if err != nil {
		return nil, &cryptoDomain.KeyServiceError{
			Code:    cryptoDomain.CodeInvalidProvidedEdek,
			Message: "edek is not valid base64",
		}
	}
	dek, err := k.keeper.Decrypt(ctx, wrapped)
	if err != nil {
		k.logger.Error("dek unwrap failed", "tenant_id", metadata.TenantID, "request_id", metadata.RequestID, "error", err)
		return nil, &cryptoDomain.KeyServiceError{
			Code:    cryptoDomain.CodeKMSUnwrapFailed,
			Message: err.Error(),
		}
	}
	return dek, nil
}

// BatchWrapKeys wraps one fresh DEK per document ID. Per-document wrap
// failures land in the response's Failures map, so a single bad ID never
// sinks the rest of the batch.
func (k *KeeperKeyService) BatchWrapKeys(ctx context.Context, ids []string, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.BatchWrapResponse, error) {
	response := cryptoDomain.BatchWrapResponse{
		Keys:     make(map[string]cryptoDomain.WrappedDocumentKey, len(ids)),
		Failures: make(map[string]cryptoDomain.ErrorResponse),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(k.workers)
	for _, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			key, err := k.WrapKey(ctx, metadata)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				response.Failures[id] = toErrorResponse(err)
				return nil
			}
			response.Keys[id] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cryptoDomain.BatchWrapResponse{}, err
	}
	return response, nil
}

// BatchUnwrapKeys recovers the DEK for every EDEK in edeks, keyed by
// document ID. Per-document unwrap failures land in the Failures map.
func (k *KeeperKeyService) BatchUnwrapKeys(ctx context.Context, edeks map[string]string, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.BatchUnwrapResponse, error) {
	response := cryptoDomain.BatchUnwrapResponse{
		Keys:     make(map[string]cryptoDomain.UnwrappedDocumentKey, len(edeks)),
		Failures: make(map[string]cryptoDomain.ErrorResponse),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(k.workers)
	for id, edek := range edeks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dek, err := k.UnwrapKey(ctx, edek, metadata)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				response.Failures[id] = toErrorResponse(err)
				return nil
			}
			response.Keys[id] = cryptoDomain.UnwrappedDocumentKey{Dek: dek}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cryptoDomain.BatchUnwrapResponse{}, err
	}
	return response, nil
}

func toErrorResponse(err error) cryptoDomain.ErrorResponse {
	var kse *cryptoDomain.KeyServiceError
	if errors.As(err, &kse) {
		return cryptoDomain.ErrorResponse{Code: int(kse.Code), Message: kse.Message}
	}
	return cryptoDomain.ErrorResponse{Code: int(cryptoDomain.CodeUnableToMakeRequest), Message: err.Error()}
}
