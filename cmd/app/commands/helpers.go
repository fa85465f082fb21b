// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"log/slog"

	validation "github.com/jellydator/validation"

	"github.com/allisson/envcrypt/internal/app"
	appvalidation "github.com/allisson/envcrypt/internal/validation"
)

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// envelopeFile is the on-disk representation of an encrypted file: the EDEK
// to recover the document key plus the framed ciphertext of each field.
// Field bytes are base64 encoded by the JSON codec.
type envelopeFile struct {
	Edek   string            `json:"edek"`
	Fields map[string][]byte `json:"fields"`
}

// Validate checks the envelope before attempting to unwrap its key.
func (e envelopeFile) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Edek, validation.Required, appvalidation.Base64),
		validation.Field(&e.Fields, validation.Required),
	)
}

// contentField is the field name used for whole-file encryption.
const contentField = "content"
