package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mrlokans/accounts/internal/config"
	"github.com/mrlokans/accounts/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		if err := entrypoint.Run(cfg, Version); err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("accounts %s (%s)\n", Version, Commit)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: accounts [command]

Commands:
  serve     Start the HTTP server (default)
  version   Print version information
  help      Show this help message

Configuration is read from the environment and an optional .env file.`)
}
