package cmd

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/turnkeycrypto/crypto"
)

// SignatureCommand creates the signature conversion commands
func SignatureCommand() *cli.Command {
	return &cli.Command{
		Name:  "sig",
		Usage: "Convert ECDSA signatures between DER and raw r||s",
		Commands: []*cli.Command{
			sigConvertCommand("to-der", "Encode a 64-byte r||s signature as DER", "raw-signature-hex", crypto.ToDER),
			sigConvertCommand("from-der", "Decode a DER signature to 64-byte r||s", "der-signature-hex", crypto.FromDER),
		},
	}
}

func sigConvertCommand(name, usage, arg string, convert func([]byte) ([]byte, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<" + arg + ">",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			value, err := requireArg(cmd, arg)
			if err != nil {
				return err
			}
			raw, err := hex.DecodeString(value)
			if err != nil {
				return fmt.Errorf("failed to decode signature hex: %w", err)
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

// SignCommand creates the sign command
func SignCommand() *cli.Command {
	return &cli.Command{
		Name:      "sign",
		Usage:     "Sign a message with ECDSA P-256/SHA-256 and print the low-S r||s signature",
		ArgsUsage: "<message>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "private-key",
				Usage:    "Hex private key, or @path",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "hex",
				Usage: "Treat the message as hex",
			},
		},
		Action: runSignCommand,
	}
}

func runSignCommand(ctx context.Context, cmd *cli.Command) error {
	message, err := requireArg(cmd, "message")
	if err != nil {
		return err
	}
	data := []byte(message)
	if cmd.Bool("hex") {
		if data, err = hex.DecodeString(message); err != nil {
			return fmt.Errorf("failed to decode message hex: %w", err)
		}
	}
	privateKey, err := readValue(cmd.String("private-key"))
	if err != nil {
		return err
	}

	signature, err := crypto.SignP256(data, privateKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout(cmd), signature)
	return nil
}
