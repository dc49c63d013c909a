package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/allmovieshub/cmd/allmovieshub/commands"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
