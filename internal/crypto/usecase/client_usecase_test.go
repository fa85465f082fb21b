package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	cryptoDomain "github.com/allisson/envcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/envcrypt/internal/crypto/service"
	"github.com/allisson/envcrypt/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeKeyService is an in-memory key service. It hands out deterministic
// 32-byte DEKs and remembers the edek-to-dek mapping so unwrap round trips.
// failIDs marks document IDs that fail with a per-document error response in
// batch calls; hardErr fails every call outright.
type fakeKeyService struct {
	mu      sync.Mutex
	keys    map[string][]byte
	counter int
	failIDs map[string]cryptoDomain.ErrorResponse
	hardErr error
}

func newFakeKeyService() *fakeKeyService {
	return &fakeKeyService{keys: make(map[string][]byte)}
}

func (f *fakeKeyService) newKey() cryptoDomain.WrappedDocumentKey {
	f.counter++
	dek := make([]byte, 32)
	for i := range dek {
		dek[i] = byte(f.counter)
	}
	edek := fmt.Sprintf("edek-%d", f.counter)
	f.keys[edek] = dek
	out := make([]byte, len(dek))
	copy(out, dek)
	return cryptoDomain.WrappedDocumentKey{Dek: out, Edek: edek}
}

func (f *fakeKeyService) WrapKey(ctx context.Context, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.WrappedDocumentKey, error) {
	if f.hardErr != nil {
		return cryptoDomain.WrappedDocumentKey{}, f.hardErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newKey(), nil
}

func (f *fakeKeyService) UnwrapKey(ctx context.Context, edek string, metadata cryptoDomain.DocumentMetadata) ([]byte, error) {
	if f.hardErr != nil {
		return nil, f.hardErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	dek, ok := f.keys[edek]
	if !ok {
		return nil, &cryptoDomain.KeyServiceError{
			Code:    cryptoDomain.CodeInvalidProvidedEdek,
			Message: "unknown edek",
		}
	}
	out := make([]byte, len(dek))
	copy(out, dek)
	return out, nil
}

func (f *fakeKeyService) BatchWrapKeys(ctx context.Context, ids []string, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.BatchWrapResponse, error) {
	if f.hardErr != nil {
		return cryptoDomain.BatchWrapResponse{}, f.hardErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	response := cryptoDomain.BatchWrapResponse{
		Keys:     make(map[string]cryptoDomain.WrappedDocumentKey),
		Failures: make(map[string]cryptoDomain.ErrorResponse),
	}
	for _, id := range ids {
		if failure, ok := f.failIDs[id]; ok {
			response.Failures[id] = failure
			continue
		}
		response.Keys[id] = f.newKey()
	}
	return response, nil
}

func (f *fakeKeyService) BatchUnwrapKeys(ctx context.Context, edeks map[string]string, metadata cryptoDomain.DocumentMetadata) (cryptoDomain.BatchUnwrapResponse, error) {
	if f.hardErr != nil {
		return cryptoDomain.BatchUnwrapResponse{}, f.hardErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	response := cryptoDomain.BatchUnwrapResponse{
		Keys:     make(map[string]cryptoDomain.UnwrappedDocumentKey),
		Failures: make(map[string]cryptoDomain.ErrorResponse),
	}
	for id, edek := range edeks {
		if failure, ok := f.failIDs[id]; ok {
			response.Failures[id] = failure
			continue
		}
		dek, ok := f.keys[edek]
		if !ok {
			response.Failures[id] = cryptoDomain.ErrorResponse{
				Code:    int(cryptoDomain.CodeInvalidProvidedEdek),
				Message: "unknown edek",
			}
			continue
		}
		out := make([]byte, len(dek))
		copy(out, dek)
		response.Keys[id] = cryptoDomain.UnwrappedDocumentKey{Dek: out}
	}
	return response, nil
}

func newTestClient(t *testing.T, keyService KeyService) ClientUseCase {
	t.Helper()

	envelope := cryptoService.NewEnvelope(cryptoService.NewAESGCM(nil), 4)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(keyService, envelope, logger, ClientConfig{CryptoWorkers: 4, KeyServiceWorkers: 4})
}

func clientTestMetadata() cryptoDomain.DocumentMetadata {
	return cryptoDomain.NewDocumentMetadata("tenant-1", "billing-service", "PII", map[string]string{
		"org_name":        "Cisco",
		"attachment_name": "thongsong.mp3",
	}, "")
}

func TestClientUseCase_Encrypt(t *testing.T) {
	ctx := context.Background()
	metadata := clientTestMetadata()

	t.Run("encrypt and decrypt round trip", func(t *testing.T) {
		client := newTestClient(t, newFakeKeyService())
		fields := cryptoDomain.FieldMap{
			"ssn":     []byte("000-12-2345"),
			"address": []byte("2825-519 Stone Creek Rd, Bozeman, MT 59715"),
		}

		encrypted, err := client.Encrypt(ctx, fields, metadata)
		require.NoError(t, err)
		assert.NotEmpty(t, encrypted.Edek)
		require.Len(t, encrypted.EncryptedFields, len(fields))
		for name, data := range encrypted.EncryptedFields {
			assert.True(t, cryptoService.IsCiphertext(data), "field %q should carry the ciphertext frame", name)
		}

		decrypted, err := client.Decrypt(ctx, encrypted, metadata)
		require.NoError(t, err)
		assert.Equal(t, encrypted.Edek, decrypted.Edek)
		assert.Equal(t, fields, decrypted.DecryptedFields)
	})

	t.Run("metadata without tenant id is rejected", func(t *testing.T) {
		client := newTestClient(t, newFakeKeyService())
		metadata := cryptoDomain.NewDocumentMetadata("", "billing-service", "", nil, "")

		_, err := client.Encrypt(ctx, cryptoDomain.FieldMap{"doc": []byte("data")}, metadata)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	})

	t.Run("key service failure is returned as is", func(t *testing.T) {
		keyService := newFakeKeyService()
		keyService.hardErr = &cryptoDomain.KeyServiceError{
			Code:    cryptoDomain.CodeUnauthorizedRequest,
			Message: "api key rejected",
		}
		client := newTestClient(t, keyService)

		_, err := client.Encrypt(ctx, cryptoDomain.FieldMap{"doc": []byte("data")}, metadata)
		require.Error(t, err)
		var kse *cryptoDomain.KeyServiceError
		require.True(t, errors.As(err, &kse))
		assert.Equal(t, cryptoDomain.CodeUnauthorizedRequest, kse.Code)
	})

	t.Run("transport failure maps to unreachable", func(t *testing.T) {
		keyService := newFakeKeyService()
		keyService.hardErr = errors.New("connection refused")
		client := newTestClient(t, keyService)

		_, err := client.Encrypt(ctx, cryptoDomain.FieldMap{"doc": []byte("data")}, metadata)
		require.Error(t, err)
		assert.True(t, errors.Is(err, cryptoDomain.ErrKeyServiceUnreachable))
	})

	t.Run("cancelled context fails before calling the key service", func(t *testing.T) {
		client := newTestClient(t, newFakeKeyService())
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := client.Encrypt(cancelled, cryptoDomain.FieldMap{"doc": []byte("data")}, metadata)
		require.Error(t, err)
	})
}

func TestClientUseCase_EncryptExisting(t *testing.T) {
	ctx := context.Background()
	metadata := clientTestMetadata()

	t.Run("reuses the document key across edits", func(t *testing.T) {
		client := newTestClient(t, newFakeKeyService())

		encrypted, err := client.Encrypt(ctx, cryptoDomain.FieldMap{"doc": []byte("version one")}, metadata)
		require.NoError(t, err)

		updated, err := client.EncryptExisting(ctx, cryptoDomain.PlaintextDocument{
			DecryptedFields: cryptoDomain.FieldMap{"doc": []byte("version two")},
			Edek:            encrypted.Edek,
		}, metadata)
		require.NoError(t, err)
		assert.Equal(t, encrypted.Edek, updated.Edek)
		assert.NotEqual(t, encrypted.EncryptedFields["doc"], updated.EncryptedFields["doc"])

		decrypted, err := client.Decrypt(ctx, updated, metadata)
		require.NoError(t, err)
		assert.Equal(t, []byte("version two"), decrypted.DecryptedFields["doc"])
	})

	t.Run("unknown edek fails", func(t *testing.T) {
		client := newTestClient(t, newFakeKeyService())

		_, err := client.EncryptExisting(ctx, cryptoDomain.PlaintextDocument{
			DecryptedFields: cryptoDomain.FieldMap{"doc": []byte("data")},
			Edek:            "missing",
		}, metadata)
		require.Error(t, err)
		var kse *cryptoDomain.KeyServiceError
		require.True(t, errors.As(err, &kse))
		assert.Equal(t, cryptoDomain.CodeInvalidProvidedEdek, kse.Code)
	})
}

func TestClientUseCase_EncryptBatch(t *testing.T) {
	ctx := context.Background()
	metadata := clientTestMetadata()

	documents := map[string]cryptoDomain.FieldMap{
		"doc1": {"doc": []byte("Encrypt these bytes!")},
		"doc2": {"doc": []byte("And these bytes!")},
		"doc3": {"doc": []byte("And my axe!")},
	}

	t.Run("all documents succeed under distinct keys", func(t *testing.T) {
		client := newTestClient(t, newFakeKeyService())

		result, err := client.EncryptBatch(ctx, documents, metadata)
		require.NoError(t, err)
		assert.False(t, result.HasFailures())
		require.Len(t, result.Successes, len(documents))

		edeks := make(map[string]bool)
		for id, document := range result.Successes {
			assert.True(t, cryptoService.IsCiphertext(document.EncryptedFields["doc"]))
			assert.False(t, edeks[document.Edek], "document %q should have its own key", id)
			edeks[document.Edek] = true
		}

		decrypted, err := client.DecryptBatch(ctx, result.Successes, metadata)
		require.NoError(t, err)
		assert.False(t, decrypted.HasFailures())
		for id, document := range decrypted.Successes {
			assert.Equal(t, documents[id]["doc"], document.DecryptedFields["doc"])
		}
	})

	t.Run("per-document key failures do not sink the batch", func(t *testing.T) {
		keyService := newFakeKeyService()
		keyService.failIDs = map[string]cryptoDomain.ErrorResponse{
			"doc2": {Code: int(cryptoDomain.CodeKMSWrapFailed), Message: "kms throttled"},
		}
		client := newTestClient(t, keyService)

		result, err := client.EncryptBatch(ctx, documents, metadata)
		require.NoError(t, err)

		assert.Len(t, result.Successes, 2)
		assert.Contains(t, result.Successes, "doc1")
		assert.Contains(t, result.Successes, "doc3")

		require.True(t, result.HasFailures())
		failure := result.Failures["doc2"]
		require.NotNil(t, failure)
		assert.Equal(t, cryptoDomain.CodeKMSWrapFailed, failure.Code)
		assert.Equal(t, "kms throttled", failure.Message)
	})

	t.Run("unreachable key service fails the whole call", func(t *testing.T) {
		keyService := newFakeKeyService()
		keyService.hardErr = errors.New("dial tcp: connection refused")
		client := newTestClient(t, keyService)

		_, err := client.EncryptBatch(ctx, documents, metadata)
		require.Error(t, err)
		assert.True(t, errors.Is(err, cryptoDomain.ErrKeyServiceUnreachable))
	})

	t.Run("empty batch yields empty result", func(t *testing.T) {
		client := newTestClient(t, newFakeKeyService())

		result, err := client.EncryptBatch(ctx, map[string]cryptoDomain.FieldMap{}, metadata)
		require.NoError(t, err)
		assert.Empty(t, result.Successes)
		assert.False(t, result.HasFailures())
	})
}

func TestClientUseCase_EncryptExistingBatch(t *testing.T) {
	ctx := context.Background()
	metadata := clientTestMetadata()

	t.Run("re-encrypts every document under its current key", func(t *testing.T) {
		client := newTestClient(t, newFakeKeyService())

		original, err := client.EncryptBatch(ctx, map[string]cryptoDomain.FieldMap{
			"doc1": {"doc": []byte("first")},
			"doc2": {"doc": []byte("second")},
		}, metadata)
		require.NoError(t, err)

		updated := make(map[string]cryptoDomain.PlaintextDocument, len(original.Successes))
		for id, document := range original.Successes {
			updated[id] = cryptoDomain.PlaintextDocument{
				DecryptedFields: cryptoDomain.FieldMap{"doc": []byte("updated " + id)},
				Edek:            document.Edek,
			}
		}

		result, err := client.EncryptExistingBatch(ctx, updated, metadata)
		require.NoError(t, err)
		assert.False(t, result.HasFailures())
		for id, document := range result.Successes {
			assert.Equal(t, original.Successes[id].Edek, document.Edek)
		}

		decrypted, err := client.DecryptBatch(ctx, result.Successes, metadata)
		require.NoError(t, err)
		for id, document := range decrypted.Successes {
			assert.Equal(t, []byte("updated "+id), document.DecryptedFields["doc"])
		}
	})
}

func TestClientUseCase_DecryptBatch(t *testing.T) {
	ctx := context.Background()
	metadata := clientTestMetadata()

	t.Run("per-document unwrap failures are isolated", func(t *testing.T) {
		client := newTestClient(t, newFakeKeyService())

		encrypted, err := client.EncryptBatch(ctx, map[string]cryptoDomain.FieldMap{
			"doc1": {"doc": []byte("first")},
			"doc2": {"doc": []byte("second")},
		}, metadata)
		require.NoError(t, err)

		tampered := make(map[string]cryptoDomain.EncryptedDocument, len(encrypted.Successes))
		for id, document := range encrypted.Successes {
			tampered[id] = document
		}
		doc2 := tampered["doc2"]
		doc2.Edek = "not-a-real-edek"
		tampered["doc2"] = doc2

		result, err := client.DecryptBatch(ctx, tampered, metadata)
		require.NoError(t, err)

		assert.Len(t, result.Successes, 1)
		assert.Equal(t, []byte("first"), result.Successes["doc1"].DecryptedFields["doc"])
		require.True(t, result.HasFailures())
		assert.Equal(t, cryptoDomain.CodeInvalidProvidedEdek, result.Failures["doc2"].Code)
	})

	t.Run("tampered ciphertext fails the whole call", func(t *testing.T) {
		client := newTestClient(t, newFakeKeyService())

		encrypted, err := client.EncryptBatch(ctx, map[string]cryptoDomain.FieldMap{
			"doc1": {"doc": []byte("first")},
			"doc2": {"doc": []byte("second")},
		}, metadata)
		require.NoError(t, err)

		doc2 := encrypted.Successes["doc2"]
		framed := doc2.EncryptedFields["doc"]
		framed[len(framed)-1] ^= 0x01

		_, err = client.DecryptBatch(ctx, encrypted.Successes, metadata)
		require.Error(t, err)
		assert.True(t, errors.Is(err, cryptoDomain.ErrAuthenticationFailed))
	})
}

func TestClientUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()
	metadata := clientTestMetadata()

	t.Run("decorator delegates and preserves results", func(t *testing.T) {
		recorder := &recordingMetrics{}
		client := NewClientWithMetrics(newTestClient(t, newFakeKeyService()), recorder)

		encrypted, err := client.Encrypt(ctx, cryptoDomain.FieldMap{"doc": []byte("data")}, metadata)
		require.NoError(t, err)

		decrypted, err := client.Decrypt(ctx, encrypted, metadata)
		require.NoError(t, err)
		assert.Equal(t, []byte("data"), decrypted.DecryptedFields["doc"])

		assert.Equal(t, []string{"document_encrypt", "document_decrypt"}, recorder.operations)
		assert.Equal(t, []string{"success", "success"}, recorder.statuses)
	})
}

// recordingMetrics captures recorded operations for assertions.
type recordingMetrics struct {
	mu         sync.Mutex
	operations []string
	statuses   []string
}

func (r *recordingMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations = append(r.operations, operation)
	r.statuses = append(r.statuses, status)
}

func (r *recordingMetrics) RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string) {
}
