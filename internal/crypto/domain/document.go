// Package domain defines the value types for envelope encryption: documents,
// document keys, batch results, and the error taxonomy shared by the crypto
// services and the orchestrating use case.
package domain

import (
	validation "github.com/jellydator/validation"
	"github.com/google/uuid"

	appvalidation "github.com/allisson/envcrypt/internal/validation"
)

// DocumentMetadata carries contextual information about a document operation.
//
// It has no encryption semantics of its own: the metadata is forwarded
// unchanged to every key wrap/unwrap call so the key service can authorize,
// audit, and correlate the request. Construct it once per logical operation
// and treat it as immutable.
type DocumentMetadata struct {
	// TenantID identifies the tenant whose key configuration protects the document.
	TenantID string
	// RequestingID identifies the user or service performing the operation.
	RequestingID string
	// DataLabel is a free-form classification label for the data being processed.
	DataLabel string
	// CustomFields holds additional key/value pairs forwarded to the key service.
	// Ordering is not significant.
	CustomFields map[string]string
	// RequestID correlates all key-service calls made for one logical operation.
	RequestID string
}

// NewDocumentMetadata creates metadata for a document operation. When
// requestID is empty a UUIDv7 correlation ID is generated.
func NewDocumentMetadata(
	tenantID string,
	requestingID string,
	dataLabel string,
	customFields map[string]string,
	requestID string,
) DocumentMetadata {
	if requestID == "" {
		requestID = uuid.Must(uuid.NewV7()).String()
	}
	return DocumentMetadata{
		TenantID:     tenantID,
		RequestingID: requestingID,
		DataLabel:    dataLabel,
		CustomFields: customFields,
		RequestID:    requestID,
	}
}

// Validate validates the DocumentMetadata using the jellydator/validation library.
// A tenant ID is always required; the key service cannot resolve a key
// configuration without it.
func (m DocumentMetadata) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.TenantID, validation.Required, appvalidation.NotBlank),
		validation.Field(&m.RequestingID, validation.Required, appvalidation.NotBlank),
	)
}

// FieldMap maps field names to their byte content. Field names are unique
// within one document; ordering is not significant.
type FieldMap map[string][]byte

// PlaintextDocument holds the decrypted fields of a document together with
// the encrypted document key (EDEK) the fields were or will be protected by.
//
// The EDEK is empty for documents that have never been encrypted. Plaintext
// documents are ephemeral: they exist only for the duration of one encrypt
// or decrypt call.
type PlaintextDocument struct {
	DecryptedFields FieldMap
	Edek            string
}

// EncryptedDocument holds the independently framed ciphertext of each field
// together with the EDEK that must be persisted alongside the ciphertext for
// future decryption. The EDEK is the only durable secret-bearing artifact;
// the raw DEK is never part of this type.
type EncryptedDocument struct {
	EncryptedFields FieldMap
	Edek            string
}
