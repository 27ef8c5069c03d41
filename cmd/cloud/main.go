package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/UCCNetsoc/cloud/internal/config"
	"github.com/UCCNetsoc/cloud/internal/logging"
	"github.com/UCCNetsoc/cloud/internal/tui"
)

const version = "1.2.0"

func printHelp() {
	fmt.Printf(`netsoc-cloud v%s - terminal panel for the UCC Netsoc cloud platform

Usage:
  cloud [config-file]
  cloud -h | --help
  cloud --version

Arguments:
  config-file    Path to YAML configuration file (default: cloud.config.yaml)

Options:
  -h, --help     Show this help message
  --version      Show version information

Configuration:
  How the config file is chosen:
    Check if a custom config-file path was provided
    Else, look for 'cloud.config.yaml' in the current directory
    Else, look for '~/.config/cloud.config.yaml'

  Example config file (cloud.config.yaml):

    api_base_url: https://api.netsoc.cloud
    oidc:
      authority: https://keycloak.netsoc.co/auth/realms/freeipa
      client_id: netsocadmin

  Every key can also be set from the environment, e.g. NETSOC_API_URL
  and NETSOC_OIDC_AUTHORITY.

Examples:
  cloud                            # Use default config file
  cloud ./staging.yaml             # Use specific config file

For more information:
  https://github.com/UCCNetsoc/cloud

`, version)
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-h", "--help":
			printHelp()
			os.Exit(0)
		case "--version":
			fmt.Printf("netsoc-cloud v%s\n", version)
			os.Exit(0)
		}
	}

	var configPath string
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	} else {
		candidates := []string{"cloud.config.yaml"}
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, ".config", "cloud.config.yaml"))
		}

		// pick the first candidate that exists, otherwise default to the first
		found := ""
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				found = c
				break
			}
		}
		if found != "" {
			configPath = found
		} else {
			configPath = candidates[0]
		}
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving config path: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadOrPrompt(absPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogFile, cfg.SentryDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	app, err := tui.New(context.Background(), version, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing netsoc-cloud: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running netsoc-cloud: %v\n", err)
		os.Exit(1)
	}
}
