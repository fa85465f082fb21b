package domain

// KeyServiceErrorCode is the closed enumeration of failure codes reported by
// the key service for wrap/unwrap operations. Codes received on the wire that
// are not part of this enumeration map to CodeUnknownError.
type KeyServiceErrorCode int

const (
	// CodeUnableToMakeRequest indicates the request to the key service could
	// not be made at all.
	CodeUnableToMakeRequest KeyServiceErrorCode = 0
	// CodeUnknownError is the catch-all for unrecognized failure codes.
	CodeUnknownError KeyServiceErrorCode = 100
	// CodeUnauthorizedRequest indicates the request's API credentials were rejected.
	CodeUnauthorizedRequest KeyServiceErrorCode = 101
	// CodeInvalidRequestBody indicates the key service rejected the request payload.
	CodeInvalidRequestBody KeyServiceErrorCode = 102
	// CodeNoPrimaryKMSConfiguration indicates the tenant has no primary KMS configuration.
	CodeNoPrimaryKMSConfiguration KeyServiceErrorCode = 200
	// CodeUnknownTenantOrNoActiveKMSConfigurations indicates the tenant is
	// unknown or has no active KMS configurations.
	CodeUnknownTenantOrNoActiveKMSConfigurations KeyServiceErrorCode = 201
	// CodeKMSConfigurationDisabled indicates the resolved KMS configuration is disabled.
	CodeKMSConfigurationDisabled KeyServiceErrorCode = 202
	// CodeInvalidProvidedEdek indicates the provided EDEK could not be parsed or matched.
	CodeInvalidProvidedEdek KeyServiceErrorCode = 203
	// CodeKMSWrapFailed indicates the tenant's KMS failed to wrap a new key.
	CodeKMSWrapFailed KeyServiceErrorCode = 204
	// CodeKMSUnwrapFailed indicates the tenant's KMS failed to unwrap the EDEK.
	CodeKMSUnwrapFailed KeyServiceErrorCode = 205
	// CodeKMSAuthorizationFailed indicates the key service could not authorize
	// against the tenant's KMS.
	CodeKMSAuthorizationFailed KeyServiceErrorCode = 206
	// CodeKMSConfigurationInvalid indicates the tenant's KMS configuration is invalid.
	CodeKMSConfigurationInvalid KeyServiceErrorCode = 207
	// CodeKMSUnreachable indicates the tenant's KMS could not be reached.
	CodeKMSUnreachable KeyServiceErrorCode = 208
)

// keyServiceErrorCodes is the set of recognized codes. A map keyed by the
// numeric value keeps FromErrorCode O(1) and the enumeration closed.
var keyServiceErrorCodes = map[KeyServiceErrorCode]string{
	CodeUnableToMakeRequest:                      "unable to make request to key service",
	CodeUnknownError:                             "unknown error",
	CodeUnauthorizedRequest:                      "unauthorized request",
	CodeInvalidRequestBody:                       "invalid request body",
	CodeNoPrimaryKMSConfiguration:                "no primary KMS configuration",
	CodeUnknownTenantOrNoActiveKMSConfigurations: "unknown tenant or no active KMS configurations",
	CodeKMSConfigurationDisabled:                 "KMS configuration disabled",
	CodeInvalidProvidedEdek:                      "invalid provided EDEK",
	CodeKMSWrapFailed:                            "KMS wrap failed",
	CodeKMSUnwrapFailed:                          "KMS unwrap failed",
	CodeKMSAuthorizationFailed:                   "KMS authorization failed",
	CodeKMSConfigurationInvalid:                  "KMS configuration invalid",
	CodeKMSUnreachable:                           "KMS unreachable",
}

// FromErrorCode maps a numeric code from the wire to a KeyServiceErrorCode.
// Unrecognized codes map to CodeUnknownError.
func FromErrorCode(code int) KeyServiceErrorCode {
	if _, ok := keyServiceErrorCodes[KeyServiceErrorCode(code)]; ok {
		return KeyServiceErrorCode(code)
	}
	return CodeUnknownError
}

// String returns the description of the error code.
func (c KeyServiceErrorCode) String() string {
	if msg, ok := keyServiceErrorCodes[c]; ok {
		return msg
	}
	return keyServiceErrorCodes[CodeUnknownError]
}
