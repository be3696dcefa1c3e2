// Package cmd implements the turnkeycrypto command line interface.
//
// Every subcommand prints its result to stdout and progress to stderr, so results can be
// piped. Flags that take bundles, tokens or documents accept either the value itself or
// @path to read it from a file.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/anchorageoss/turnkeycrypto/config"
)

// NewApp creates the root command
func NewApp() *cli.Command {
	return &cli.Command{
		Name:  "turnkeycrypto",
		Usage: "P-256 key, signature and enclave bundle tooling for Turnkey",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML config file (TURNKEY_* environment variables override it)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug output to stderr",
			},
		},
		Commands: []*cli.Command{
			KeysCommand(),
			PointCommand(),
			SignatureCommand(),
			SignCommand(),
			BundleCommand(),
			StampCommand(),
			JWTCommand(),
			EnclaveCommand(),
		},
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cli.Command, cfg *config.Config) zerolog.Logger {
	level := cfg.Level()
	if cmd.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: stderr(cmd), NoColor: true}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// readValue returns s, or the trimmed contents of the file when s is @path
func readValue(s string) (string, error) {
	path, ok := strings.CutPrefix(s, "@")
	if !ok {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(b)), nil
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one argument: <%s>", name)
	}
	return cmd.Args().First(), nil
}
