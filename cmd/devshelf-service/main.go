package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/devshelf/devshelf/directoryservice"
)

func main() {
	if err := directoryservice.Run(); err != nil {
		log.Error().Err(err).Msg("devshelf-service exited with error")
		os.Exit(1)
	}
}
