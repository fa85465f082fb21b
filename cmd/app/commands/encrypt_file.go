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
)

// RunEncryptFile encrypts a file under a fresh document key and writes the
// resulting envelope (EDEK plus ciphertext) as JSON to the output path.
func RunEncryptFile(ctx context.Context, inputPath, outputPath, tenantID, requestingID, dataLabel string) error {
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

	metadata := cryptoDomain.NewDocumentMetadata(tenantID, requestingID, dataLabel, nil, "")
	encrypted, err := client.Encrypt(ctx, cryptoDomain.FieldMap{contentField: data}, metadata)
	if err != nil {
		return fmt.Errorf("failed to encrypt file: %w", err)
	}

	envelope := envelopeFile{
		Edek:   encrypted.Edek,
		Fields: encrypted.EncryptedFields,
	}
	output, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if err := os.WriteFile(outputPath, output, 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	logger.Info("file encrypted",
		slog.String("input", inputPath),
		slog.String("output", outputPath),
		slog.String("tenant_id", metadata.TenantID),
		slog.String("request_id", metadata.RequestID),
	)
	return nil
}
