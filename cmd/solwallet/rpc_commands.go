package main

import (
	"encoding/json"
	"fmt"

	"github.com/brojonat/solwallet/service/rpc"
	"github.com/urfave/cli/v2"
)

func rpcCommands() *cli.Command {
	return &cli.Command{
		Name:  "rpc",
		Usage: "Raw JSON-RPC queries",
		Subcommands: []*cli.Command{
			blockhashCommand(),
			balanceCommand(),
			callCommand(),
		},
	}
}

func blockhashCommand() *cli.Command {
	return &cli.Command{
		Name:  "blockhash",
		Usage: "Fetch the latest blockhash",
		Action: func(c *cli.Context) error {
			d, err := newDeps(c, nil)
			if err != nil {
				return err
			}

			latest, err := d.rpc.GetLatestBlockhash(c.Context, d.cfg.Commitment)
			if err != nil {
				return fmt.Errorf("failed to get latest blockhash: %w", err)
			}

			if wantJSON(c) {
				return printJSON(c, latest)
			}
			fmt.Printf("Blockhash:               %s\n", latest.Blockhash)
			fmt.Printf("Last Valid Block Height: %d\n", latest.LastValidBlockHeight)
			return nil
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Fetch the SOL balance of an address",
		ArgsUsage: "ADDRESS",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("address is required")
			}
			address := c.Args().Get(0)

			d, err := newDeps(c, nil)
			if err != nil {
				return err
			}

			lamports, err := d.rpc.GetBalance(c.Context, address, d.cfg.Commitment)
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}

			if wantJSON(c) {
				return printJSON(c, map[string]any{
					"address":  address,
					"lamports": lamports,
					"sol":      lamportsToSOL(lamports),
				})
			}
			fmt.Printf("%s: %.9f SOL (%d lamports)\n", address, lamportsToSOL(lamports), lamports)
			return nil
		},
	}
}

func callCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "Call any JSON-RPC method and print the raw result",
		ArgsUsage: "METHOD [JSON_PARAM...]",
		Description: `Each JSON_PARAM is parsed as JSON and passed positionally.

Example:
  solwallet rpc call getAccountInfo '"So11111111111111111111111111111111111111112"' '{"encoding":"jsonParsed"}' --jq .value.owner`,
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("method is required")
			}
			method := c.Args().Get(0)
			params, err := parseParams(c.Args().Tail())
			if err != nil {
				return err
			}

			d, err := newDeps(c, nil)
			if err != nil {
				return err
			}

			result, err := rpc.Call[json.RawMessage](c.Context, d.rpc, method, params...)
			if err != nil {
				return fmt.Errorf("%s failed: %w", method, err)
			}
			return printJSON(c, result)
		},
	}
}

// parseParams decodes each argument as a JSON value.
func parseParams(args []string) ([]any, error) {
	params := make([]any, 0, len(args))
	for i, arg := range args {
		var v any
		if err := json.Unmarshal([]byte(arg), &v); err != nil {
			return nil, fmt.Errorf("param %d is not valid JSON: %w", i+1, err)
		}
		params = append(params, v)
	}
	return params, nil
}

func lamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / 1e9
}
