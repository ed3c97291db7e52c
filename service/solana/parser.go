package solana

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	"github.com/brojonat/solwallet/service/rpc"
	"github.com/mr-tron/base58"
)

// Well-known Solana program IDs
const (
	SystemProgramID     = "11111111111111111111111111111111"
	TokenProgramID      = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID  = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	MemoProgramIDSPL    = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
	MemoProgramIDLegacy = "Memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo"
)

// Native SOL, as it appears in wrapped-SOL token accounts.
const (
	NativeMint     = "So11111111111111111111111111111111111111112"
	NativeSymbol   = "SOL"
	NativeDecimals = uint8(9)
)

// SwapProgramIDs are the token-swap deployments whose instructions mark a
// transaction as a swap or a liquidity operation.
var SwapProgramIDs = map[string]bool{
	"SwapsVeCiPHMUAtzQWZw7RjsKjgCjhwU55QGu4U1Szw":  true, // spl token-swap
	"DjVE6JNiYqPL2QXyCUUh8rNjHrbz9hXHNYt99MQ59qw1": true, // orca v1
	"9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP": true, // orca v2
}

// Token swap instruction discriminants
const (
	swapInstructionSwap = 1
)

// MintDecimals resolves the decimals of an SPL mint. *mint.Cache satisfies it.
type MintDecimals interface {
	Decimals(ctx context.Context, mint string) (uint8, error)
}

// Parser classifies jsonParsed transactions.
type Parser struct {
	mints  MintDecimals
	logger *slog.Logger
}

// NewParser creates a Parser. mints may be nil, in which case decimals come
// only from the transaction itself.
func NewParser(mints MintDecimals, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Parser{mints: mints, logger: logger}
}

// Parse classifies info from the point of view of myAccount (a wallet or
// token account address, may be empty). myAccountSymbol labels the wallet
// that belongs to myAccount. Shapes that are not modeled yield Unrecognized;
// an error means the transaction could not be decoded.
func (p *Parser) Parse(ctx context.Context, info *rpc.TransactionInfo, myAccount, myAccountSymbol string) (ParsedTransaction, error) {
	if info == nil {
		return nil, errors.New("nil transaction info")
	}
	v := &view{info: info, myAccount: myAccount, mySymbol: myAccountSymbol}

	instructions := info.Transaction.Message.Instructions

	// A swap program anywhere in the outer instructions decides the shape.
	for i, ix := range instructions {
		if SwapProgramIDs[ix.ProgramID] {
			return p.parseSwap(ctx, v, i, ix)
		}
	}

	for i, ix := range instructions {
		switch {
		case ix.ProgramID == SystemProgramID && ix.Type() == "createAccount":
			return p.parseCreateAccount(ctx, v, ix)
		case isTokenProgram(ix.ProgramID) && ix.Type() == "closeAccount":
			return p.parseCloseAccount(ctx, v, ix)
		case ix.ProgramID == SystemProgramID && ix.Type() == "transfer":
			return p.parseSystemTransfer(v, ix)
		case isTokenProgram(ix.ProgramID) && (ix.Type() == "transfer" || ix.Type() == "transferChecked"):
			return p.parseTokenTransfer(ctx, v, ix)
		default:
			p.logger.DebugContext(ctx, "skipping instruction",
				"signature", info.Signature(),
				"index", i,
				"program", ix.ProgramID,
				"type", ix.Type(),
			)
		}
	}

	return Unrecognized{Reason: "no recognized instruction"}, nil
}

func isTokenProgram(programID string) bool {
	return programID == TokenProgramID || programID == Token2022ProgramID
}

func (p *Parser) parseSwap(ctx context.Context, v *view, index int, ix rpc.Instruction) (ParsedTransaction, error) {
	data, err := base58.Decode(ix.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode swap instruction data: %w", err)
	}
	if len(data) == 0 {
		return Unrecognized{Reason: "empty swap program instruction"}, nil
	}
	if data[0] != swapInstructionSwap {
		return Unrecognized{Reason: fmt.Sprintf("swap program instruction %d is a liquidity operation", data[0])}, nil
	}

	var transfers []rpc.Instruction
	if v.info.Meta != nil {
		for _, inner := range v.info.Meta.InnerInstructions {
			if inner.Index != index {
				continue
			}
			for _, in := range inner.Instructions {
				if isTokenProgram(in.ProgramID) && (in.Type() == "transfer" || in.Type() == "transferChecked") {
					transfers = append(transfers, in)
				}
			}
		}
	}
	if len(transfers) == 0 {
		return Unrecognized{Reason: "swap without inner transfers"}, nil
	}

	first := transfers[0].Parsed.Info
	last := transfers[len(transfers)-1].Parsed.Info

	source := v.tokenWallet(first.Source, first.Authority, first.Mint)
	sourceAmount, err := p.tokenAmount(ctx, v, &source, first)
	if err != nil {
		return nil, err
	}
	destination := v.tokenWallet(last.Destination, "", last.Mint)
	destinationAmount, err := p.tokenAmount(ctx, v, &destination, last)
	if err != nil {
		return nil, err
	}

	v.label(&source)
	v.label(&destination)
	if v.myAccount == "" && v.mySymbol != "" {
		destination.Token.Symbol = v.mySymbol
	}

	return SwapTransaction{
		Source:            source,
		SourceAmount:      sourceAmount,
		Destination:       destination,
		DestinationAmount: destinationAmount,
	}, nil
}

func (p *Parser) parseCreateAccount(ctx context.Context, v *view, ix rpc.Instruction) (ParsedTransaction, error) {
	info := ix.Parsed.Info
	fee, ok := v.balanceDelta(0)
	if !ok {
		return Unrecognized{Reason: "create account without balance snapshot"}, nil
	}

	wallet := Wallet{Pubkey: info.NewAccount}
	for _, other := range v.info.Transaction.Message.Instructions {
		if !isTokenProgram(other.ProgramID) || other.Parsed == nil {
			continue
		}
		switch other.Type() {
		case "initializeAccount", "initializeAccount2", "initializeAccount3":
			if other.Parsed.Info.Account == info.NewAccount {
				wallet.Owner = other.Parsed.Info.Owner
				wallet.Token.Mint = other.Parsed.Info.Mint
			}
		}
	}
	if wallet.Token.Mint != "" {
		if d, ok := p.decimals(ctx, v, wallet.Token.Mint, v.info.AccountIndex(wallet.Pubkey)); ok {
			wallet.Token.Decimals = d
		}
	}
	v.label(&wallet)

	return CreateAccountTransaction{Fee: fee, NewWallet: wallet}, nil
}

func (p *Parser) parseCloseAccount(ctx context.Context, v *view, ix rpc.Instruction) (ParsedTransaction, error) {
	info := ix.Parsed.Info
	index := v.info.AccountIndex(info.Account)
	reimbursed, ok := v.balanceDelta(index)
	if !ok {
		return Unrecognized{Reason: "close account without balance snapshot"}, nil
	}

	wallet := Wallet{Pubkey: info.Account, Owner: info.Owner}
	if tb := v.tokenBalance(index); tb != nil {
		wallet.Token.Mint = tb.Mint
		wallet.Token.Decimals = tb.UITokenAmount.Decimals
	}
	v.label(&wallet)

	return CloseAccountTransaction{ReimbursedAmount: reimbursed, ClosedWallet: wallet}, nil
}

func (p *Parser) parseSystemTransfer(v *view, ix rpc.Instruction) (ParsedTransaction, error) {
	info := ix.Parsed.Info
	if info.Lamports == nil {
		return nil, errors.New("system transfer without lamports")
	}
	native := Token{Mint: NativeMint, Symbol: NativeSymbol, Decimals: NativeDecimals}
	return TransferTransaction{
		Source:      Wallet{Pubkey: info.Source, Owner: info.Source, Token: native},
		Destination: Wallet{Pubkey: info.Destination, Owner: info.Destination, Token: native},
		Amount:      toUnits(*info.Lamports, NativeDecimals),
	}, nil
}

func (p *Parser) parseTokenTransfer(ctx context.Context, v *view, ix rpc.Instruction) (ParsedTransaction, error) {
	info := ix.Parsed.Info
	authority := info.Authority
	if authority == "" {
		authority = info.Owner
	}

	source := v.tokenWallet(info.Source, authority, info.Mint)
	destination := v.tokenWallet(info.Destination, "", info.Mint)
	if destination.Token.Mint == "" {
		destination.Token.Mint = source.Token.Mint
	}
	if source.Token.Mint == "" {
		source.Token.Mint = destination.Token.Mint
	}

	amount, err := p.tokenAmount(ctx, v, &source, info)
	if err != nil {
		return nil, err
	}
	destination.Token.Decimals = source.Token.Decimals

	if v.myAccount != "" {
		if authority == v.myAccount {
			source.Pubkey = v.myAccount
		}
		if destination.Owner == v.myAccount {
			destination.Pubkey = v.myAccount
		}
	}
	v.label(&source)
	v.label(&destination)

	return TransferTransaction{Source: source, Destination: destination, Amount: amount}, nil
}

// tokenAmount converts a transfer's raw amount into token units, filling in
// the wallet's decimals on the way.
func (p *Parser) tokenAmount(ctx context.Context, v *view, wallet *Wallet, info rpc.InstructionInfo) (float64, error) {
	if info.TokenAmount != nil {
		raw, err := strconv.ParseUint(info.TokenAmount.Amount, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid token amount %q: %w", info.TokenAmount.Amount, err)
		}
		wallet.Token.Decimals = info.TokenAmount.Decimals
		return toUnits(raw, info.TokenAmount.Decimals), nil
	}

	raw, err := strconv.ParseUint(info.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token amount %q: %w", info.Amount, err)
	}
	decimals, ok := p.decimals(ctx, v, wallet.Token.Mint, v.info.AccountIndex(wallet.Pubkey))
	if !ok {
		return 0, fmt.Errorf("unable to resolve decimals for %s", wallet.Pubkey)
	}
	wallet.Token.Decimals = decimals
	return toUnits(raw, decimals), nil
}

// decimals asks the mint collaborator first, then falls back to the token
// balance snapshot of the account at index.
func (p *Parser) decimals(ctx context.Context, v *view, mint string, index int) (uint8, bool) {
	if mint == NativeMint {
		return NativeDecimals, true
	}
	if mint != "" && p.mints != nil {
		d, err := p.mints.Decimals(ctx, mint)
		if err == nil {
			return d, true
		}
		p.logger.WarnContext(ctx, "mint decimals lookup failed, using balance snapshot",
			"mint", mint,
			"error", err,
		)
	}
	if tb := v.tokenBalance(index); tb != nil {
		return tb.UITokenAmount.Decimals, true
	}
	return 0, false
}

func toUnits(raw uint64, decimals uint8) float64 {
	return float64(raw) / math.Pow10(int(decimals))
}

// view bundles a transaction with the caller's perspective.
type view struct {
	info      *rpc.TransactionInfo
	myAccount string
	mySymbol  string
}

// tokenWallet describes a token account using the balance snapshots.
func (v *view) tokenWallet(address, owner, mint string) Wallet {
	w := Wallet{Pubkey: address, Owner: owner, Token: Token{Mint: mint}}
	if tb := v.tokenBalance(v.info.AccountIndex(address)); tb != nil {
		if w.Token.Mint == "" {
			w.Token.Mint = tb.Mint
		}
		if w.Owner == "" {
			w.Owner = tb.Owner
		}
	}
	if w.Token.Mint == NativeMint {
		w.Token.Symbol = NativeSymbol
	}
	return w
}

// label applies the caller's symbol to the wallet that belongs to them.
func (v *view) label(w *Wallet) {
	if v.myAccount == "" || v.mySymbol == "" {
		return
	}
	if w.Pubkey == v.myAccount || w.Owner == v.myAccount {
		w.Token.Symbol = v.mySymbol
	}
}

// tokenBalance finds the pre (else post) token balance for an account index.
func (v *view) tokenBalance(index int) *rpc.TokenBalance {
	if index < 0 || v.info.Meta == nil {
		return nil
	}
	for _, set := range [][]rpc.TokenBalance{v.info.Meta.PreTokenBalances, v.info.Meta.PostTokenBalances} {
		for i := range set {
			if set[i].AccountIndex == index {
				return &set[i]
			}
		}
	}
	return nil
}

// balanceDelta is pre minus post lamports of the account at index, in SOL.
func (v *view) balanceDelta(index int) (float64, bool) {
	meta := v.info.Meta
	if meta == nil || index < 0 || index >= len(meta.PreBalances) || index >= len(meta.PostBalances) {
		return 0, false
	}
	pre, post := meta.PreBalances[index], meta.PostBalances[index]
	if post > pre {
		return -toUnits(post-pre, NativeDecimals), true
	}
	return toUnits(pre-post, NativeDecimals), true
}
