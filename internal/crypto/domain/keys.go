package domain

// WrappedDocumentKey is the result of asking the key service to generate a
// fresh document key: the plaintext DEK and its wrapped form (EDEK).
//
// Transient and in-memory only. The DEK must be discarded (Zero) once the
// associated field encryption completes; only the EDEK may be persisted.
type WrappedDocumentKey struct {
	// Dek is the plaintext 256-bit data encryption key.
	Dek []byte
	// Edek is the DEK encrypted by the key service, base64 encoded.
	Edek string
}

// UnwrappedDocumentKey is the result of asking the key service to recover
// the DEK for an existing EDEK. Transient and in-memory only, same lifecycle
// rules as WrappedDocumentKey.
type UnwrappedDocumentKey struct {
	// Dek is the recovered plaintext data encryption key.
	Dek []byte
}

// BatchWrapResponse is the key service's answer to a batch wrap call. Keys
// and Failures are disjoint and together cover every requested document ID.
type BatchWrapResponse struct {
	Keys     map[string]WrappedDocumentKey
	Failures map[string]ErrorResponse
}

// BatchUnwrapResponse is the key service's answer to a batch unwrap call.
// Keys and Failures are disjoint and together cover every requested document ID.
type BatchUnwrapResponse struct {
	Keys     map[string]UnwrappedDocumentKey
	Failures map[string]ErrorResponse
}
