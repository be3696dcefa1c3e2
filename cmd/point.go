package cmd

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/turnkeycrypto/point"
)

// PointCommand creates the point encoding commands
func PointCommand() *cli.Command {
	return &cli.Command{
		Name:  "point",
		Usage: "Convert P-256 public key encodings",
		Commands: []*cli.Command{
			pointConvertCommand("compress", "Convert a public key to its 33-byte form", point.Compress),
			pointConvertCommand("uncompress", "Convert a public key to its 65-byte form", point.Uncompress),
			pointJWKCommand(),
		},
	}
}

func pointConvertCommand(name, usage string, convert func([]byte) ([]byte, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<public-key-hex>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			arg, err := requireArg(cmd, "public-key-hex")
			if err != nil {
				return err
			}
			raw, err := hex.DecodeString(arg)
			if err != nil {
				return fmt.Errorf("failed to decode public key hex: %w", err)
			}
			out, err := convert(raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "%x\n", out)
			return nil
		},
	}
}

func pointJWKCommand() *cli.Command {
	return &cli.Command{
		Name:      "jwk",
		Usage:     "Print a public key as a JWK, or a JWK as a compressed hex key with --reverse",
		ArgsUsage: "<public-key-hex | jwk-json>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "reverse",
				Usage: "Parse a JWK instead of producing one",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			arg, err := requireArg(cmd, "key")
			if err != nil {
				return err
			}
			arg, err = readValue(arg)
			if err != nil {
				return err
			}

			if cmd.Bool("reverse") {
				p, err := point.ParseJWKBytes([]byte(arg))
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout(cmd), p.Hex(true))
				return nil
			}

			p, err := point.ParseHex(arg)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(p.JWK(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JWK: %w", err)
			}
			fmt.Fprintln(stdout(cmd), string(out))
			return nil
		},
	}
}
