// cmd/flowscribe/main.go
//
// Entry point for the flowscribe CLI.

package main

import (
	"os"

	"github.com/joho/godotenv"

	"flowscribe/internal/cli"
)

func main() {
	// Load .env before anything resolves configuration, so the environment
	// layer sees dotenv values. Missing files are fine.
	_ = godotenv.Load()

	os.Exit(cli.Execute())
}
