package main

import (
	"github.com/rs/zerolog/log"

	"github.com/celer-network/go-reserves/ctl"
	"github.com/spf13/cobra"
)

func main() {
	cobra.EnableCommandSorting = false
	log.Logger = log.With().Caller().Logger()

	err := ctl.NewRootCommand().Execute()
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
