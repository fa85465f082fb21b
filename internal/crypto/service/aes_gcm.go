package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	cryptoDomain "github.com/allisson/envcrypt/internal/crypto/domain"
	apperrors "github.com/allisson/envcrypt/internal/errors"
)

const (
	// ivLength is the GCM nonce size: 96 bits, randomly generated per encryption.
	ivLength = 12
)

// AESGCMCipher implements the FieldCipher interface using AES-GCM
// (Advanced Encryption Standard with Galois/Counter Mode).
//
// Every encryption draws a fresh 12-byte IV from the injected random source
// and emits the framed ciphertext `header(7) || iv(12) || ciphertext+tag(16)`.
// The key must be 16, 24, or 32 bytes; document keys issued by the key
// service are 32 bytes (AES-256).
//
// Thread safety:
//
//	The cipher is stateless between calls and safe for concurrent use from
//	multiple goroutines as long as the injected random source is, which
//	crypto/rand.Reader is.
type AESGCMCipher struct {
	random io.Reader
}

// NewAESGCM creates a new AES-GCM field cipher using the provided random
// source for IV generation. Pass nil to use crypto/rand.Reader.
func NewAESGCM(random io.Reader) *AESGCMCipher {
	if random == nil {
		random = rand.Reader
	}
	return &AESGCMCipher{random: random}
}

// newAEAD builds the GCM instance for a DEK. Key-length and cipher
// construction failures are configuration errors, reported as ErrCryptoFailure.
func newAEAD(dek []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(dek)
	if err != nil {
		return nil, apperrors.Wrap(cryptoDomain.ErrCryptoFailure, err.Error())
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(cryptoDomain.ErrCryptoFailure, err.Error())
	}
	return aead, nil
}

// Encrypt encrypts one field's bytes under the DEK and returns the framed
// ciphertext. A fresh IV is drawn from the random source on every call, so
// encrypting identical plaintext twice never yields identical ciphertext.
func (a *AESGCMCipher) Encrypt(plaintext, dek []byte) ([]byte, error) {
	aead, err := newAEAD(dek)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(a.random, iv); err != nil {
		return nil, apperrors.Wrap(cryptoDomain.ErrCryptoFailure, "failed to generate IV")
	}

	header := GenerateHeader()
	framed := make([]byte, 0, len(header)+ivLength+len(plaintext)+aead.Overhead())
	framed = append(framed, header...)
	framed = append(framed, iv...)
	return aead.Seal(framed, iv, plaintext, nil), nil
}

// Decrypt validates the frame, strips the header, and authenticated-decrypts
// the field. Returns ErrMalformedCiphertext when the frame is unrecognized
// and ErrAuthenticationFailed when the GCM tag does not verify (wrong key,
// corruption, or tampering).
func (a *AESGCMCipher) Decrypt(framed, dek []byte) ([]byte, error) {
	payload, err := ParseHeader(framed)
	if err != nil {
		return nil, err
	}
	if len(payload) < ivLength {
		return nil, cryptoDomain.ErrMalformedCiphertext
	}

	aead, err := newAEAD(dek)
	if err != nil {
		return nil, err
	}

	iv := payload[:ivLength]
	plaintext, err := aead.Open(nil, iv, payload[ivLength:], nil)
	if err != nil {
		return nil, apperrors.Wrap(cryptoDomain.ErrAuthenticationFailed, err.Error())
	}
	return plaintext, nil
}
