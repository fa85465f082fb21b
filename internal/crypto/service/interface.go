// Package service provides the cryptographic services for envelope
// encryption: the ciphertext header codec, the per-field AES-256-GCM cipher,
// and the envelope codec that applies the field cipher to whole documents.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/envcrypt/internal/crypto/domain"
)

// FieldCipher performs authenticated encryption of a single field's bytes.
type FieldCipher interface {
	// Encrypt encrypts one field under the DEK and returns the framed
	// ciphertext: header || iv || ciphertext+tag.
	Encrypt(plaintext, dek []byte) ([]byte, error)

	// Decrypt strips the frame and authenticated-decrypts one field.
	Decrypt(framed, dek []byte) ([]byte, error)
}

// EnvelopeCodec applies a FieldCipher to every field of a document under one DEK.
type EnvelopeCodec interface {
	// EncryptFields encrypts every field independently and concurrently.
	// The output map has identical keys to the input.
	EncryptFields(ctx context.Context, fields cryptoDomain.FieldMap, dek []byte) (cryptoDomain.FieldMap, error)

	// DecryptFields decrypts every field independently and concurrently.
	// The first field error fails the whole document.
	DecryptFields(ctx context.Context, fields cryptoDomain.FieldMap, dek []byte) (cryptoDomain.FieldMap, error)
}
