package main

import (
	"fmt"
	"time"

	"github.com/brojonat/solwallet/service/account"
	"github.com/brojonat/solwallet/service/rpc"
	"github.com/brojonat/solwallet/service/solana"
	"github.com/brojonat/solwallet/service/transaction"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"
)

func txCommands() *cli.Command {
	return &cli.Command{
		Name:  "tx",
		Usage: "Transaction classification and submission commands",
		Subcommands: []*cli.Command{
			classifyCommand(),
			historyCommand(),
			transferCommand(),
		},
	}
}

func accountFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "account",
			Usage: "Classify from the point of view of this wallet or token account",
		},
		&cli.StringFlag{
			Name:  "symbol",
			Usage: "Token symbol used to label --account",
		},
	}
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Fetch a transaction and classify it",
		ArgsUsage: "SIGNATURE",
		Flags:     accountFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("signature is required")
			}
			signature := c.Args().Get(0)

			d, err := newDeps(c, nil)
			if err != nil {
				return err
			}

			txn, _, err := d.history.GetTransaction(c.Context, signature, c.String("account"), c.String("symbol"))
			if err != nil {
				return fmt.Errorf("failed to classify transaction: %w", err)
			}

			if wantJSON(c) {
				return printJSON(c, txn)
			}
			printTransaction(txn)
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "List and classify recent transactions for an address",
		ArgsUsage: "ADDRESS",
		Flags: append(accountFlags(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Value:   20,
				Usage:   "Maximum number of transactions to retrieve (1-1000)",
			},
			&cli.StringFlag{
				Name:  "before",
				Usage: "Start searching backwards from this signature",
			},
			&cli.StringFlag{
				Name:  "until",
				Usage: "Stop at this signature (exclusive)",
			},
		),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("address is required")
			}
			address := c.Args().Get(0)
			limit := c.Int("limit")
			if limit < 1 || limit > 1000 {
				return fmt.Errorf("limit must be between 1 and 1000")
			}

			d, err := newDeps(c, nil)
			if err != nil {
				return err
			}

			txns, err := d.history.GetTransactionsSince(c.Context, solana.GetTransactionsSinceParams{
				Wallet:          address,
				Before:          c.String("before"),
				Until:           c.String("until"),
				Limit:           limit,
				MyAccount:       c.String("account"),
				MyAccountSymbol: c.String("symbol"),
			})
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			if wantJSON(c) {
				return printJSON(c, txns)
			}
			if len(txns) == 0 {
				fmt.Println("No transactions found")
				return nil
			}
			fmt.Printf("Found %d transaction(s):\n\n", len(txns))
			for _, txn := range txns {
				printTransaction(txn)
				fmt.Println()
			}
			return nil
		},
	}
}

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Build and sign a SOL transfer, optionally sending it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Recipient address",
				Required: true,
			},
			&cli.Uint64Flag{
				Name:     "lamports",
				Usage:    "Amount in lamports",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "keypair",
				Aliases: []string{"k"},
				Usage:   "solana-keygen JSON file of the sender",
				EnvVars: []string{"KEYPAIR_PATH"},
			},
			&cli.StringFlag{
				Name:  "memo",
				Usage: "Attach a memo instruction",
			},
			&cli.StringFlag{
				Name:  "blockhash",
				Usage: "Use this blockhash instead of fetching one",
			},
			&cli.BoolFlag{
				Name:  "send",
				Usage: "Submit the transaction instead of printing it",
			},
			&cli.BoolFlag{
				Name:  "skip-preflight",
				Usage: "Skip the node's preflight simulation when sending",
			},
		},
		Action: func(c *cli.Context) error {
			to, err := solanago.PublicKeyFromBase58(c.String("to"))
			if err != nil {
				return fmt.Errorf("invalid recipient address: %w", err)
			}

			d, err := newDeps(c, nil)
			if err != nil {
				return err
			}
			if d.cfg.KeypairPath == "" {
				return fmt.Errorf("--keypair (or KEYPAIR_PATH) is required")
			}

			sender, err := account.LoadKeygenFile(d.cfg.KeypairPath)
			if err != nil {
				return err
			}
			store := account.NewInMemoryStore()
			if err := store.Save(sender); err != nil {
				return err
			}

			params := transaction.SerializeParams{
				Instructions:    transferInstructions(sender.PublicKey, to, c.Uint64("lamports"), c.String("memo")),
				RecentBlockhash: c.String("blockhash"),
				Commitment:      d.cfg.Commitment,
			}
			assembler := transaction.NewAssembler(store, d.rpc, d.metrics, d.logger)

			if !c.Bool("send") {
				encoded, err := assembler.SerializeTransaction(c.Context, params)
				if err != nil {
					return fmt.Errorf("failed to build transaction: %w", err)
				}
				if wantJSON(c) {
					return printJSON(c, map[string]string{"from": sender.PublicKey.String(), "transaction": encoded})
				}
				fmt.Println(encoded)
				return nil
			}

			signature, err := assembler.SendTransaction(c.Context, d.rpc, params, &rpc.SendTransactionOpts{
				SkipPreflight:       c.Bool("skip-preflight"),
				PreflightCommitment: d.cfg.Commitment,
			})
			if err != nil {
				return fmt.Errorf("failed to send transaction: %w", err)
			}
			if wantJSON(c) {
				return printJSON(c, map[string]string{"from": sender.PublicKey.String(), "signature": signature})
			}
			fmt.Printf("✓ Transaction sent\n")
			fmt.Printf("  Signature: %s\n", signature)
			return nil
		},
	}
}

// transferInstructions returns a system transfer, followed by a memo
// signed by the sender when memo is set.
func transferInstructions(from, to solanago.PublicKey, lamports uint64, memo string) []transaction.Instruction {
	ixs := []transaction.Instruction{transaction.SystemTransfer(from, to, lamports)}
	if memo != "" {
		ixs = append(ixs, transaction.Memo(memo, from))
	}
	return ixs
}

func printTransaction(txn *solana.Transaction) {
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Signature:  %s\n", txn.Signature)
	fmt.Printf("Slot:       %d\n", txn.Slot)
	if !txn.BlockTime.IsZero() {
		fmt.Printf("Block Time: %s\n", txn.BlockTime.Format(time.RFC3339))
	}
	fmt.Printf("Fee:        %d lamports\n", txn.Fee)
	if txn.Err != nil {
		fmt.Printf("Error:      %s\n", *txn.Err)
	}
	if txn.Memo != nil {
		fmt.Printf("Memo:       %s\n", *txn.Memo)
	}
	fmt.Printf("Kind:       %s\n", describe(txn.Parsed))
}

// describe renders a classification on one line.
func describe(parsed solana.ParsedTransaction) string {
	switch p := parsed.(type) {
	case nil:
		return "(metadata only)"
	case solana.TransferTransaction:
		return fmt.Sprintf("transfer %v %s from %s to %s",
			p.Amount, symbolOrMint(p.Source.Token), p.Source.Pubkey, p.Destination.Pubkey)
	case solana.SwapTransaction:
		return fmt.Sprintf("swap %v %s for %v %s",
			p.SourceAmount, symbolOrMint(p.Source.Token), p.DestinationAmount, symbolOrMint(p.Destination.Token))
	case solana.CreateAccountTransaction:
		return fmt.Sprintf("create account %s (fee %v SOL)", p.NewWallet.Pubkey, p.Fee)
	case solana.CloseAccountTransaction:
		return fmt.Sprintf("close account %s (reimbursed %v SOL)", p.ClosedWallet.Pubkey, p.ReimbursedAmount)
	case solana.Unrecognized:
		return fmt.Sprintf("unrecognized (%s)", p.Reason)
	default:
		return string(parsed.Kind())
	}
}

func symbolOrMint(t solana.Token) string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Mint
}
