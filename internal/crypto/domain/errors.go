package domain

import (
	"fmt"

	"github.com/allisson/envcrypt/internal/errors"
)

// Envelope encryption error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors so
// callers can classify failures with errors.Is while the messages describe
// the cryptographic cause.
var (
	// ErrMalformedCiphertext indicates input bytes failed the
	// header/magic/version/size checks during decryption. Caller data error,
	// not retryable: the bytes were never produced by this format.
	ErrMalformedCiphertext = errors.Wrap(errors.ErrInvalidInput, "not an encrypted document")

	// ErrAuthenticationFailed indicates GCM tag verification failed during
	// decryption. Signals a wrong key or tampered/corrupted ciphertext; not
	// retryable.
	ErrAuthenticationFailed = errors.Wrap(errors.ErrInvalidInput, "ciphertext authentication failed")

	// ErrCryptoFailure indicates the underlying cipher primitive failed, such
	// as an invalid key length or an unavailable algorithm. Configuration
	// error, not retryable.
	ErrCryptoFailure = errors.Wrap(errors.ErrInternal, "cipher operation failed")

	// ErrKeyService is the base error for failures reported by the external
	// key service. Wrapped by KeyServiceError which carries the numeric code.
	ErrKeyService = errors.Wrap(errors.ErrInternal, "key service error")

	// ErrKeyServiceUnreachable indicates the key service could not be reached
	// at all. Aborts the whole operation since no key material was obtained.
	ErrKeyServiceUnreachable = errors.Wrap(errors.ErrUnavailable, "key service unreachable")
)

// KeyServiceError is a structured failure reported by the key service for a
// specific document's wrap or unwrap. In batch operations it appears in the
// failures map keyed by document ID; in single-document operations it is
// returned directly.
type KeyServiceError struct {
	// Code is the classified error code (unrecognized wire codes become
	// CodeUnknownError).
	Code KeyServiceErrorCode
	// Message is the human-readable message reported by the service.
	Message string
}

// NewKeyServiceError builds a KeyServiceError from a wire-level ErrorResponse,
// classifying the numeric code into the closed enumeration.
func NewKeyServiceError(resp ErrorResponse) *KeyServiceError {
	return &KeyServiceError{
		Code:    FromErrorCode(resp.Code),
		Message: resp.Message,
	}
}

// Error implements the error interface.
func (e *KeyServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("key service error (code %d): %s", int(e.Code), e.Code.String())
	}
	return fmt.Sprintf("key service error (code %d): %s", int(e.Code), e.Message)
}

// Unwrap makes errors.Is(err, ErrKeyService) true for any KeyServiceError.
func (e *KeyServiceError) Unwrap() error {
	return ErrKeyService
}
