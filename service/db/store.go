package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brojonat/solwallet/service/metrics"
	"github.com/brojonat/solwallet/service/solana"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// DBTX is the subset of pgx used by the store; *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const transactionsTable = "wallet_transactions"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS wallet_transactions (
    wallet_address TEXT        NOT NULL,
    signature      TEXT        NOT NULL,
    slot           BIGINT      NOT NULL,
    block_time     TIMESTAMPTZ,
    fee            BIGINT      NOT NULL DEFAULT 0,
    kind           TEXT,
    memo           TEXT,
    error          TEXT,
    details        JSONB,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (wallet_address, signature)
);
CREATE INDEX IF NOT EXISTS wallet_transactions_wallet_slot_idx
    ON wallet_transactions (wallet_address, slot DESC);
`

// Store archives classified wallet transactions in Postgres.
type Store struct {
	db      DBTX
	metrics *metrics.Metrics
}

// NewStore creates a new Store over a pool (or transaction).
func NewStore(db DBTX, m *metrics.Metrics) *Store {
	return &Store{db: db, metrics: m}
}

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the archive table and index if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	s.record("ensure_schema", time.Now(), err)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Transaction is an archived row.
type Transaction struct {
	WalletAddress string
	Signature     string
	Slot          int64
	BlockTime     *time.Time
	Fee           int64
	Kind          *string
	Memo          *string
	Error         *string
	Details       json.RawMessage // classification as JSON; nil when only metadata was known
	CreatedAt     time.Time
}

// SaveTransaction archives txn for walletAddress. It reports whether a new row
// was written; an existing (wallet, signature) row is left untouched.
func (s *Store) SaveTransaction(ctx context.Context, walletAddress string, txn *solana.Transaction) (bool, error) {
	params, err := saveParams(walletAddress, txn)
	if err != nil {
		return false, err
	}

	start := time.Now()
	tag, err := s.db.Exec(ctx, `
INSERT INTO wallet_transactions
    (wallet_address, signature, slot, block_time, fee, kind, memo, error, details)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (wallet_address, signature) DO NOTHING`,
		params...,
	)
	s.record("insert", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to save transaction %s: %w", txn.Signature, err)
	}
	return tag.RowsAffected() == 1, nil
}

// SaveTransactions archives every entry and returns how many were new.
func (s *Store) SaveTransactions(ctx context.Context, walletAddress string, txns []*solana.Transaction) (int, error) {
	inserted := 0
	for _, txn := range txns {
		ok, err := s.SaveTransaction(ctx, walletAddress, txn)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

func saveParams(walletAddress string, txn *solana.Transaction) ([]any, error) {
	if txn == nil || txn.Signature == "" {
		return nil, fmt.Errorf("transaction signature is required")
	}

	var blockTime pgtype.Timestamptz
	if !txn.BlockTime.IsZero() {
		blockTime = pgtype.Timestamptz{Time: txn.BlockTime, Valid: true}
	}

	var kind pgtype.Text
	var details []byte
	if txn.Parsed != nil {
		kind = pgtype.Text{String: string(txn.Kind()), Valid: true}
		raw, err := json.Marshal(txn.Parsed)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal classification: %w", err)
		}
		details = raw
	}

	return []any{
		walletAddress,
		txn.Signature,
		int64(txn.Slot),
		blockTime,
		int64(txn.Fee),
		kind,
		pgtextFromStringPtr(txn.Memo),
		pgtextFromStringPtr(txn.Err),
		details,
	}, nil
}

const selectColumns = `wallet_address, signature, slot, block_time, fee, kind, memo, error, details, created_at`

// GetTransaction retrieves an archived transaction.
func (s *Store) GetTransaction(ctx context.Context, walletAddress, signature string) (*Transaction, error) {
	start := time.Now()
	row := s.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM wallet_transactions WHERE wallet_address = $1 AND signature = $2`,
		walletAddress, signature,
	)
	txn, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		s.record("get", start, nil)
		return nil, fmt.Errorf("transaction %s: %w", signature, ErrNotFound)
	}
	s.record("get", start, err)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ListTransactionsByWallet returns archived transactions newest slot first.
func (s *Store) ListTransactionsByWallet(ctx context.Context, walletAddress string, limit, offset int32) ([]*Transaction, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx,
		`SELECT `+selectColumns+` FROM wallet_transactions
WHERE wallet_address = $1
ORDER BY slot DESC, signature
LIMIT $2 OFFSET $3`,
		walletAddress, limit, offset,
	)
	if err != nil {
		s.record("list", start, err)
		return nil, err
	}
	defer rows.Close()

	var transactions []*Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			s.record("list", start, err)
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	err = rows.Err()
	s.record("list", start, err)
	return transactions, err
}

// GetTransactionSignaturesByWallet returns up to limit archived signatures,
// newest slot first. The watch loop passes them as already-known signatures.
func (s *Store) GetTransactionSignaturesByWallet(ctx context.Context, walletAddress string, limit int32) ([]string, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx,
		`SELECT signature FROM wallet_transactions WHERE wallet_address = $1 ORDER BY slot DESC LIMIT $2`,
		walletAddress, limit,
	)
	if err != nil {
		s.record("list_signatures", start, err)
		return nil, err
	}
	signatures, err := pgx.CollectRows(rows, pgx.RowTo[string])
	s.record("list_signatures", start, err)
	return signatures, err
}

// LatestSignature returns the newest archived signature for the wallet, or ""
// when nothing is archived.
func (s *Store) LatestSignature(ctx context.Context, walletAddress string) (string, error) {
	signatures, err := s.GetTransactionSignaturesByWallet(ctx, walletAddress, 1)
	if err != nil || len(signatures) == 0 {
		return "", err
	}
	return signatures[0], nil
}

// CountTransactionsByWallet counts archived transactions for a wallet.
func (s *Store) CountTransactionsByWallet(ctx context.Context, walletAddress string) (int64, error) {
	start := time.Now()
	var count int64
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM wallet_transactions WHERE wallet_address = $1`,
		walletAddress,
	).Scan(&count)
	s.record("count", start, err)
	return count, err
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var (
		txn       Transaction
		blockTime pgtype.Timestamptz
		kind      pgtype.Text
		memo      pgtype.Text
		txErr     pgtype.Text
		details   []byte
	)
	if err := row.Scan(
		&txn.WalletAddress,
		&txn.Signature,
		&txn.Slot,
		&blockTime,
		&txn.Fee,
		&kind,
		&memo,
		&txErr,
		&details,
		&txn.CreatedAt,
	); err != nil {
		return nil, err
	}
	if blockTime.Valid {
		t := blockTime.Time
		txn.BlockTime = &t
	}
	txn.Kind = stringPtrFromPgtext(kind)
	txn.Memo = stringPtrFromPgtext(memo)
	txn.Error = stringPtrFromPgtext(txErr)
	if details != nil {
		txn.Details = json.RawMessage(details)
	}
	return &txn, nil
}

func (s *Store) record(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordDBQuery(operation, transactionsTable, time.Since(start).Seconds(), err)
	}
}

// Helper functions for type conversion

func pgtextFromStringPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func stringPtrFromPgtext(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}
