package nats

import (
	"time"

	"github.com/brojonat/solwallet/service/solana"
)

// TransactionEvent is a classified wallet transaction published to NATS.
// This is published to the subject "wallet.txns.{wallet_address}" in JetStream.
type TransactionEvent struct {
	// Watched wallet whose history produced the event
	WalletAddress string `json:"wallet_address"`

	// Classified transaction; serializes with "kind" and "details"
	Transaction *solana.Transaction `json:"transaction"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromTransaction wraps a classified history entry for publishing.
func FromTransaction(walletAddress string, txn *solana.Transaction) *TransactionEvent {
	return &TransactionEvent{
		WalletAddress: walletAddress,
		Transaction:   txn,
		PublishedAt:   time.Now().UTC(),
	}
}

// Subject returns the JetStream subject for the event's wallet.
func (e *TransactionEvent) Subject() string {
	return SubjectPrefix + e.WalletAddress
}
