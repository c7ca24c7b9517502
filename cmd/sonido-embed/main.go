// Package main provides the sonido-embed service and CLI.
//
// Usage:
//
//	sonido-embed [flags] <command> [args]
//
// Commands:
//
//	serve    - Run the HTTP embedding service
//	extract  - Print the embedding of an audio file
//	compare  - Print the cosine similarity of two audio files
//	info     - Show the embedding layout and decoder status
//
// Configuration is read from the environment (SONIDO_*), an optional .env
// file and an optional YAML file named by SONIDO_CONFIG or --config.
package main

import (
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-embed/cmd/sonido-embed/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
