package cmd

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	nitroverifier "github.com/anchorageoss/awsnitroverifier"
	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/turnkeycrypto/enclave"
	"github.com/anchorageoss/turnkeycrypto/manifest"
)

// EnclaveCommand creates the enclave trust anchor commands
func EnclaveCommand() *cli.Command {
	return &cli.Command{
		Name:  "enclave",
		Usage: "Resolve the attested enclave quorum key and inspect QoS manifests",
		Commands: []*cli.Command{
			resolveQuorumKeyCommand(),
			decodeManifestCommand(),
		},
	}
}

func resolveQuorumKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Verify boot evidence and print the quorum signing key bundles must be signed by",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "attestation",
				Usage:    "Base64 boot attestation document, or @path",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "manifest",
				Usage:    "Base64 QoS manifest or manifest envelope, or @path",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "pcrs",
				Usage: "Expected PCR values as index:hex pairs, e.g. 0:abc...,3:def...",
			},
			&cli.BoolFlag{
				Name:  "check-manifest-pcrs",
				Usage: "Require attested PCR0-3 to match the manifest",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output in JSON format",
			},
		},
		Action: runResolveQuorumKeyCommand,
	}
}

func runResolveQuorumKeyCommand(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	attestation, err := readValue(cmd.String("attestation"))
	if err != nil {
		return err
	}
	manifestB64, err := readValue(cmd.String("manifest"))
	if err != nil {
		return err
	}
	rules, err := ParsePCRs(cmd.String("pcrs"))
	if err != nil {
		return err
	}

	verifier := nitroverifier.NewVerifier(nitroverifier.AWSNitroVerifierOptions{
		SkipTimestampCheck: true,
	})
	service := enclave.NewService(verifier, newLogger(cmd, cfg))

	resolved, err := service.ResolveQuorumKey(ctx, enclave.BootProof{
		AttestationDocument: attestation,
		ManifestB64:         manifestB64,
		ExpectedPCRs:        rules,
		CheckManifestPCRs:   cmd.Bool("check-manifest-pcrs"),
	})
	if err != nil {
		return fmt.Errorf("quorum key resolution failed: %w", err)
	}

	if cmd.Bool("json") {
		output := map[string]any{
			"moduleId":      resolved.ModuleID,
			"manifestHash":  resolved.ManifestHash,
			"namespace":     resolved.Namespace,
			"signingKey":    hex.EncodeToString(resolved.SigningKey()),
			"encryptionKey": hex.EncodeToString(resolved.EncryptionKey()),
			"pcrResults":    resolved.PCRResults,
		}
		return writeJSON(cmd, output)
	}

	fmt.Fprint(stderr(cmd), enclave.FormatResolution(resolved))
	fmt.Fprintf(stdout(cmd), "%x\n", resolved.SigningKey())
	return nil
}

func decodeManifestCommand() *cli.Command {
	return &cli.Command{
		Name:  "decode-manifest",
		Usage: "Decode a QoS manifest or manifest envelope",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "Path to manifest binary file",
			},
			&cli.StringFlag{
				Name:  "base64",
				Usage: "Base64-encoded manifest",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output in JSON format",
			},
		},
		Action: runDecodeManifestCommand,
	}
}

func runDecodeManifestCommand(ctx context.Context, cmd *cli.Command) error {
	filePath := cmd.String("file")
	b64 := cmd.String("base64")

	if (filePath == "") == (b64 == "") {
		return errors.New("exactly one of --file or --base64 must be provided")
	}

	var raw []byte
	var err error
	if filePath != "" {
		raw, err = os.ReadFile(filePath)
	} else {
		raw, err = base64.StdEncoding.DecodeString(b64)
	}
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	decoded, err := manifest.Decode(raw)
	if err != nil {
		return fmt.Errorf("failed to decode manifest: %w", err)
	}

	if cmd.Bool("json") {
		output := map[string]any{
			"manifestHash": decoded.HashHex(),
			"manifest":     decoded.Manifest,
		}
		if decoded.Envelope != nil {
			output["manifestSetApprovals"] = len(decoded.Envelope.ManifestSetApprovals)
			output["shareSetApprovals"] = len(decoded.Envelope.ShareSetApprovals)
		}
		if qk, err := decoded.Manifest.Namespace.QuorumKeys(); err == nil {
			output["signingKey"] = qk.Signing.Hex(false)
		}
		return writeJSON(cmd, output)
	}

	w := stdout(cmd)
	fmt.Fprintf(w, "=== QoS Manifest ===\n")
	fmt.Fprintf(w, "Manifest Hash: %s\n\n", decoded.HashHex())
	fmt.Fprint(w, enclave.FormatManifest(decoded.Manifest))
	if decoded.Envelope != nil {
		fmt.Fprintf(w, "Approvals: %d manifest set, %d share set\n",
			len(decoded.Envelope.ManifestSetApprovals), len(decoded.Envelope.ShareSetApprovals))
	}
	return nil
}

func writeJSON(cmd *cli.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(stdout(cmd), string(out))
	return nil
}
