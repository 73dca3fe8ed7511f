package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/laia-quote-agent/cmd"
	_ "github.com/tanpawarit/laia-quote-agent/pkg/logger/autoload"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		log.Error().Err(err).Msg("laia exited with error")
		os.Exit(1)
	}
}
