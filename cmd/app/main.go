// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/envcrypt/cmd/app/commands"
)

func main() {
	cmd := &cli.Command{
		Name:    "envcrypt",
		Usage:   "Envelope encryption for document fields",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "encrypt-file",
				Usage: "Encrypt a file under a fresh document key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Path of the file to encrypt",
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Required: true,
						Usage:    "Path of the envelope file to write",
					},
					&cli.StringFlag{
						Name:     "tenant-id",
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "Tenant whose key configuration protects the file",
					},
					&cli.StringFlag{
						Name:    "requesting-id",
						Aliases: []string{"r"},
						Value:   "cli",
						Usage:   "User or service performing the operation",
					},
					&cli.StringFlag{
						Name:    "label",
						Aliases: []string{"l"},
						Value:   "",
						Usage:   "Classification label for the data",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunEncryptFile(
						ctx,
						cmd.String("input"),
						cmd.String("output"),
						cmd.String("tenant-id"),
						cmd.String("requesting-id"),
						cmd.String("label"),
					)
				},
			},
			{
				Name:  "decrypt-file",
				Usage: "Decrypt an envelope file produced by encrypt-file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Path of the envelope file to decrypt",
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Required: true,
						Usage:    "Path of the plaintext file to write",
					},
					&cli.StringFlag{
						Name:     "tenant-id",
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "Tenant whose key configuration protects the file",
					},
					&cli.StringFlag{
						Name:    "requesting-id",
						Aliases: []string{"r"},
						Value:   "cli",
						Usage:   "User or service performing the operation",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunDecryptFile(
						ctx,
						cmd.String("input"),
						cmd.String("output"),
						cmd.String("tenant-id"),
						cmd.String("requesting-id"),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
