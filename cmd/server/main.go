package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const devEnvFile = ".env.dev"

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Missing file is fine; set variables are never overridden.
	_ = godotenv.Load(devEnvFile)

	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
