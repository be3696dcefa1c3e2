package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/turnkeycrypto/keys"
	"github.com/anchorageoss/turnkeycrypto/point"
	"github.com/anchorageoss/turnkeycrypto/stamp"
)

// StampCommand creates the request stamp commands
func StampCommand() *cli.Command {
	return &cli.Command{
		Name:  "stamp",
		Usage: "Create and verify X-Stamp request headers",
		Commands: []*cli.Command{
			createStampCommand(),
			verifyStampCommand(),
		},
	}
}

func createStampCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Stamp a request body with an API key from the key directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "body", Usage: "Request body, or @path", Required: true},
			&cli.StringFlag{Name: "key-name", Usage: "API key name (defaults to key_name)"},
			&cli.StringFlag{Name: "keys-dir", Usage: "Key directory (defaults to keys_dir)"},
		},
		Action: runCreateStampCommand,
	}
}

func runCreateStampCommand(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	body, err := readValue(cmd.String("body"))
	if err != nil {
		return err
	}

	var provider stamp.KeyProvider = &keys.FileKeyProvider{
		KeyName:        firstNonEmpty(cmd.String("key-name"), cfg.KeyName),
		Dir:            firstNonEmpty(cmd.String("keys-dir"), cfg.KeysDir),
		OrganizationID: cfg.OrganizationID,
	}
	apiKey, err := provider.GetAPIKey(ctx)
	if err != nil {
		return fmt.Errorf("failed to load API key: %w", err)
	}

	header, err := stamp.NewStamper(apiKey).Header([]byte(body))
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr(cmd), "✓ Stamped %d bytes with %s\n", len(body), apiKey.PublicKey)
	fmt.Fprintln(stdout(cmd), header)
	return nil
}

func verifyStampCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Verify an X-Stamp header against a request body",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "header", Usage: "X-Stamp header value, or @path", Required: true},
			&cli.StringFlag{Name: "body", Usage: "Request body, or @path", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			header, err := readValue(cmd.String("header"))
			if err != nil {
				return err
			}
			body, err := readValue(cmd.String("body"))
			if err != nil {
				return err
			}
			st, err := stamp.DecodeStamp(header)
			if err != nil {
				return err
			}
			if err := st.Verify([]byte(body)); err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "valid stamp from %s\n", st.PublicKey)
			return nil
		},
	}
}

// JWTCommand creates the token verification commands
func JWTCommand() *cli.Command {
	return &cli.Command{
		Name:  "jwt",
		Usage: "Verify enclave-issued tokens",
		Commands: []*cli.Command{
			{
				Name:  "verify-session",
				Usage: "Verify a session JWT signature against the notarizer key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Usage: "Session JWT, or @path", Required: true},
					&cli.StringFlag{Name: "notarizer-public-key", Usage: "Hex notarizer key (defaults to notarizer_public_key)"},
				},
				Action: runVerifySessionCommand,
			},
			{
				Name:  "verify-otp",
				Usage: "Verify an OTP verification token and print its claims",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Usage: "Verification token, or @path", Required: true},
					&cli.StringFlag{Name: "signer-public-key", Usage: "Hex enclave signer key (defaults to signer_public_key)"},
				},
				Action: runVerifyOTPCommand,
			},
		},
	}
}

func runVerifySessionCommand(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	token, err := readValue(cmd.String("token"))
	if err != nil {
		return err
	}

	notarizer, err := keyFlagOrConfig(cmd.String("notarizer-public-key"), cfg.NotarizerKey)
	if err != nil {
		return err
	}
	if notarizer == nil {
		return errors.New("no notarizer key: set --notarizer-public-key or notarizer_public_key")
	}
	if err := stamp.VerifySessionJWTSignature(token, notarizer); err != nil {
		return err
	}
	fmt.Fprintln(stdout(cmd), "valid session token signature")
	return nil
}

func runVerifyOTPCommand(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	token, err := readValue(cmd.String("token"))
	if err != nil {
		return err
	}

	signer, err := trustedSigner(cmd, cfg)
	if err != nil {
		return err
	}
	claims, err := stamp.VerifyEnclaveVerificationToken(token, signer)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal claims: %w", err)
	}
	fmt.Fprintln(stdout(cmd), string(out))
	return nil
}

func keyFlagOrConfig(flag string, fromConfig func() ([]byte, error)) ([]byte, error) {
	if flag == "" {
		return fromConfig()
	}
	p, err := point.ParseHex(flag)
	if err != nil {
		return nil, err
	}
	return p.Bytes(false), nil
}
