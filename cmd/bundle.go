package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/turnkeycrypto/bundle"
	"github.com/anchorageoss/turnkeycrypto/config"
)

// BundleCommand creates the enclave bundle commands
func BundleCommand() *cli.Command {
	return &cli.Command{
		Name:  "bundle",
		Usage: "Decrypt credential and export bundles, encrypt import bundles",
		Commands: []*cli.Command{
			decryptCredentialCommand(),
			decryptExportCommand(),
			encryptImportCommand(),
		},
	}
}

func signerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "signer-public-key",
		Usage: "Hex enclave quorum signing key (defaults to signer_public_key)",
	}
}

func organizationFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "organization-id",
		Usage: "Organization ID (defaults to organization_id)",
	}
}

func keyFormatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "key-format",
		Usage: "HEXADECIMAL or SOLANA",
		Value: string(bundle.KeyFormatHexadecimal),
	}
}

func decryptCredentialCommand() *cli.Command {
	return &cli.Command{
		Name:  "decrypt-credential",
		Usage: "Decrypt a base58check credential bundle and print the hex credential",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bundle", Usage: "Credential bundle, or @path", Required: true},
			&cli.StringFlag{Name: "embedded-key", Usage: "Hex embedded private key, or @path", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			credential, err := readValue(cmd.String("bundle"))
			if err != nil {
				return err
			}
			embeddedKey, err := readValue(cmd.String("embedded-key"))
			if err != nil {
				return err
			}
			out, err := bundle.DecryptCredentialBundle(credential, embeddedKey)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout(cmd), out)
			return nil
		},
	}
}

func decryptExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "decrypt-export",
		Usage: "Verify and decrypt an export bundle",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bundle", Usage: "Signed export bundle JSON, or @path", Required: true},
			&cli.StringFlag{Name: "embedded-key", Usage: "Hex embedded private key, or @path", Required: true},
			signerFlag(),
			organizationFlag(),
			keyFormatFlag(),
			&cli.BoolFlag{Name: "mnemonic", Usage: "The bundle holds a wallet mnemonic"},
		},
		Action: runDecryptExportCommand,
	}
}

func runDecryptExportCommand(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	signer, err := trustedSigner(cmd, cfg)
	if err != nil {
		return err
	}
	decryptor, err := bundle.NewDecryptor(signer, newLogger(cmd, cfg))
	if err != nil {
		return err
	}

	exportBundle, err := readValue(cmd.String("bundle"))
	if err != nil {
		return err
	}
	embeddedKey, err := readValue(cmd.String("embedded-key"))
	if err != nil {
		return err
	}

	out, err := decryptor.DecryptExportBundle(bundle.ExportRequest{
		ExportBundle:   exportBundle,
		EmbeddedKey:    embeddedKey,
		OrganizationID: firstNonEmpty(cmd.String("organization-id"), cfg.OrganizationID),
		KeyFormat:      bundle.KeyFormat(cmd.String("key-format")),
		ReturnMnemonic: cmd.Bool("mnemonic"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout(cmd), out)
	return nil
}

func encryptImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "encrypt-import",
		Usage: "Encrypt a private key or mnemonic to the target key of an import bundle",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bundle", Usage: "Signed import bundle JSON, or @path", Required: true},
			&cli.StringFlag{Name: "user-id", Usage: "User ID the import bundle was issued to", Required: true},
			&cli.StringFlag{Name: "private-key", Usage: "Private key to import, or @path"},
			&cli.StringFlag{Name: "mnemonic", Usage: "BIP-39 mnemonic to import, or @path"},
			signerFlag(),
			organizationFlag(),
			keyFormatFlag(),
		},
		Action: runEncryptImportCommand,
	}
}

func runEncryptImportCommand(ctx context.Context, cmd *cli.Command) error {
	privateKeyArg, mnemonicArg := cmd.String("private-key"), cmd.String("mnemonic")
	if (privateKeyArg == "") == (mnemonicArg == "") {
		return errors.New("exactly one of --private-key or --mnemonic must be provided")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	signer, err := trustedSigner(cmd, cfg)
	if err != nil {
		return err
	}
	encryptor, err := bundle.NewEncryptor(signer, newLogger(cmd, cfg))
	if err != nil {
		return err
	}

	importBundle, err := readValue(cmd.String("bundle"))
	if err != nil {
		return err
	}
	req := bundle.ImportRequest{
		ImportBundle:   importBundle,
		OrganizationID: firstNonEmpty(cmd.String("organization-id"), cfg.OrganizationID),
		UserID:         cmd.String("user-id"),
	}

	var out string
	if mnemonicArg != "" {
		mnemonic, err := readValue(mnemonicArg)
		if err != nil {
			return err
		}
		out, err = encryptor.EncryptWalletToBundle(req, mnemonic)
		if err != nil {
			return err
		}
	} else {
		privateKey, err := readValue(privateKeyArg)
		if err != nil {
			return err
		}
		out, err = encryptor.EncryptPrivateKeyToBundle(req, privateKey, bundle.KeyFormat(cmd.String("key-format")))
		if err != nil {
			return err
		}
	}
	fmt.Fprintln(stdout(cmd), out)
	return nil
}

func trustedSigner(cmd *cli.Command, cfg *config.Config) ([]byte, error) {
	signer, err := keyFlagOrConfig(cmd.String("signer-public-key"), cfg.SignerKey)
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}
	if signer == nil {
		return nil, errors.New("no enclave signer key: set --signer-public-key or signer_public_key")
	}
	return signer, nil
}
