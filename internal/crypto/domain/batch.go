package domain

// ErrorResponse is the key service's per-document failure report: a numeric
// code from the service's error-code space plus a human-readable message.
// Always keyed by document ID in batch responses.
type ErrorResponse struct {
	Code    int
	Message string
}

// BatchResult holds the outcome of a batch operation that supports partial
// failure: two disjoint maps keyed by document ID, one of successfully
// processed documents and one of structured failures.
//
// Invariant: every document ID present in the caller's input batch appears in
// exactly one of the two maps, never both and never neither.
type BatchResult[T any] struct {
	Successes map[string]T
	Failures  map[string]*KeyServiceError
}

// NewBatchResult creates a BatchResult from success and failure maps.
// Nil maps are normalized to empty maps so callers can always range over both.
func NewBatchResult[T any](successes map[string]T, failures map[string]*KeyServiceError) BatchResult[T] {
	if successes == nil {
		successes = make(map[string]T)
	}
	if failures == nil {
		failures = make(map[string]*KeyServiceError)
	}
	return BatchResult[T]{Successes: successes, Failures: failures}
}

// HasFailures reports whether any document in the batch failed.
func (r BatchResult[T]) HasFailures() bool {
	return len(r.Failures) > 0
}
