package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/allisson/envcrypt/internal/app"
	"github.com/allisson/envcrypt/internal/config"
	cryptoDomain "github.com/allisson/envcrypt/internal/crypto/domain"
	appvalidation "github.com/allisson/envcrypt/internal/validation"
)

// RunDecryptFile reads an envelope produced by encrypt-file, unwraps its
// document key, and writes the decrypted content to the output path.
func RunDecryptFile(ctx context.Context, inputPath, outputPath, tenantID, requestingID string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	client, err := container.ClientUseCase(ctx)
	if err != nil {
		return fmt.Errorf("failed to build client: %w", err)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	var envelope envelopeFile
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to parse envelope: %w", err)
	}
	if err := envelope.Validate(); err != nil {
		return appvalidation.WrapValidationError(err)
	}

	metadata := cryptoDomain.NewDocumentMetadata(tenantID, requestingID, "", nil, "")
	decrypted, err := client.Decrypt(ctx, cryptoDomain.EncryptedDocument{
		EncryptedFields: envelope.Fields,
		Edek:            envelope.Edek,
	}, metadata)
	if err != nil {
		return fmt.Errorf("failed to decrypt file: %w", err)
	}

	content, ok := decrypted.DecryptedFields[contentField]
	if !ok {
		return fmt.Errorf("envelope has no %q field", contentField)
	}
	if err := os.WriteFile(outputPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	logger.Info("file decrypted",
		slog.String("input", inputPath),
		slog.String("output", outputPath),
		slog.String("tenant_id", metadata.TenantID),
		slog.String("request_id", metadata.RequestID),
	)
	return nil
}
