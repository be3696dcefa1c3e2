package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/anchorageoss/turnkeycrypto/cmd"
)

func main() {
	if err := cmd.NewApp().Run(context.Background(), os.Args); err != nil {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})
		logger.Fatal().Err(err).Msg("command failed")
	}
}
