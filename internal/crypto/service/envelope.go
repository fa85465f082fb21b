package service

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	cryptoDomain "github.com/allisson/envcrypt/internal/crypto/domain"
)

// EnvelopeService implements the EnvelopeCodec interface by applying a
// FieldCipher to every field of a document under one DEK.
//
// Fields are independent: each one is encrypted or decrypted on its own
// worker with its own IV, so field order carries no meaning and identical
// plaintexts in two fields never produce identical ciphertext. A single
// document is all-or-nothing: the first field error fails the whole call,
// since all fields share fate with their DEK.
type EnvelopeService struct {
	cipher  FieldCipher
	workers int
}

// NewEnvelope creates an EnvelopeService using the given field cipher and
// worker limit for the per-field fan-out. A non-positive limit defaults to
// the host core count.
func NewEnvelope(cipher FieldCipher, workers int) *EnvelopeService {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &EnvelopeService{cipher: cipher, workers: workers}
}

// EncryptFields encrypts every field concurrently under the DEK. The output
// map has identical keys to the input.
func (e *EnvelopeService) EncryptFields(
	ctx context.Context,
	fields cryptoDomain.FieldMap,
	dek []byte,
) (cryptoDomain.FieldMap, error) {
	return e.mapFields(ctx, fields, dek, e.cipher.Encrypt)
}

// DecryptFields decrypts every field concurrently under the DEK. If the DEK
// is wrong or any field is corrupted, that field's error is the error for
// the whole document.
func (e *EnvelopeService) DecryptFields(
	ctx context.Context,
	fields cryptoDomain.FieldMap,
	dek []byte,
) (cryptoDomain.FieldMap, error) {
	return e.mapFields(ctx, fields, dek, e.cipher.Decrypt)
}

// mapFields runs op over every field on a bounded errgroup and collects the
// results into a fresh map. Each task owns a distinct key; the mutex guards
// the map insertions themselves.
func (e *EnvelopeService) mapFields(
	ctx context.Context,
	fields cryptoDomain.FieldMap,
	dek []byte,
	op func(data, dek []byte) ([]byte, error),
) (cryptoDomain.FieldMap, error) {
	result := make(cryptoDomain.FieldMap, len(fields))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for name, data := range fields {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := op(data, dek)
			if err != nil {
				return err
			}
			mu.Lock()
			result[name] = out
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
