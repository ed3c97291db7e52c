package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "solwallet",
		Usage: "Solana wallet client CLI",
		Description: `A command-line tool for talking to a Solana JSON-RPC node.

Use this CLI to query the chain, classify wallet transactions, build and send
transfers, and watch a wallet for new activity.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			rpcCommands(),
			txCommands(),
			watchCommand(),
			versionCommand(),
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Solana RPC URL (comma-separated for several; one is picked at random)",
				EnvVars: []string{"SOLANA_RPC_URL"},
				Value:   "https://api.mainnet-beta.solana.com",
			},
			&cli.StringFlag{
				Name:    "commitment",
				Usage:   "Commitment level: processed, confirmed or finalized",
				EnvVars: []string{"SOLANA_COMMITMENT"},
				Value:   "confirmed",
			},
			&cli.DurationFlag{
				Name:    "rpc-timeout",
				Usage:   "HTTP timeout for each RPC round trip",
				EnvVars: []string{"RPC_TIMEOUT"},
				Value:   30 * time.Second,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level written to stderr: debug, info, warn or error",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "error",
			},
			&cli.IntFlag{
				Name:    "mint-cache-size",
				Usage:   "Number of mint decimals kept in memory",
				EnvVars: []string{"MINT_CACHE_SIZE"},
				Value:   512,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq expression applied to JSON output (implies --json)",
			},
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(c *cli.Context) error {
			if wantJSON(c) {
				return printJSON(c, map[string]string{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
			}
			fmt.Printf("solwallet %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
