package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/turnkeycrypto/crypto"
	"github.com/anchorageoss/turnkeycrypto/keys"
)

// KeysCommand creates the keys commands
func KeysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "Generate and inspect P-256 keys",
		Commands: []*cli.Command{
			generateKeyCommand(),
			publicKeyCommand(),
		},
	}
}

func generateKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate a key pair; with --name it is stored in the Turnkey CLI key directory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "Store the key as <name>.public / <name>.private",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Key directory (defaults to keys_dir, then ~/.config/turnkey/keys)",
			},
		},
		Action: runGenerateKeyCommand,
	}
}

func runGenerateKeyCommand(ctx context.Context, cmd *cli.Command) error {
	kp, err := crypto.GenerateP256KeyPair(rand.Reader)
	if err != nil {
		return err
	}
	defer kp.Destroy()

	name := cmd.String("name")
	if name == "" {
		fmt.Fprintf(stdout(cmd), "private: %x\npublic: %x\n", kp.PrivateKey, kp.PublicKey)
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := firstNonEmpty(cmd.String("dir"), cfg.KeysDir)
	if dir == "" {
		if dir, err = keys.DefaultDir(); err != nil {
			return err
		}
	}
	if err := keys.WriteAPIKey(dir, name, kp); err != nil {
		return err
	}
	fmt.Fprintf(stderr(cmd), "✓ Stored key %q in %s\n", name, dir)
	fmt.Fprintf(stdout(cmd), "%x\n", kp.PublicKey)
	return nil
}

func publicKeyCommand() *cli.Command {
	return &cli.Command{
		Name:      "public",
		Usage:     "Derive the public key of a hex private key",
		ArgsUsage: "<private-key-hex>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "uncompressed",
				Usage: "Print the 65-byte uncompressed form",
			},
		},
		Action: runPublicKeyCommand,
	}
}

func runPublicKeyCommand(ctx context.Context, cmd *cli.Command) error {
	arg, err := requireArg(cmd, "private-key-hex")
	if err != nil {
		return err
	}
	priv, err := hex.DecodeString(strings.TrimPrefix(arg, "0x"))
	if err != nil {
		return fmt.Errorf("failed to decode private key hex: %w", err)
	}
	defer crypto.Zero(priv)

	pub, err := crypto.GetPublicKey(priv, !cmd.Bool("uncompressed"))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout(cmd), "%x\n", pub)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
