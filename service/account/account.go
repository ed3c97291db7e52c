package account

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// ErrUnauthorized is returned by a Store that holds no account.
var ErrUnauthorized = errors.New("unauthorized: no account available")

// Account is a public key plus, optionally, the private key that signs for it.
// A watch-only account has a nil PrivateKey.
type Account struct {
	PublicKey  solana.PublicKey
	PrivateKey solana.PrivateKey
}

// NewAccount builds an Account from a private key.
func NewAccount(privateKey solana.PrivateKey) (Account, error) {
	if len(privateKey) != 64 {
		return Account{}, fmt.Errorf("invalid private key length: %d", len(privateKey))
	}
	return Account{
		PublicKey:  privateKey.PublicKey(),
		PrivateKey: privateKey,
	}, nil
}

// CanSign reports whether the account carries a private key.
func (a Account) CanSign() bool {
	return len(a.PrivateKey) == 64
}

// Store yields the caller's account. It is used to default the fee payer
// and signer when a caller does not supply them.
type Store interface {
	Get() (Account, error)
}

// InMemoryStore keeps a single account in memory. Nothing is persisted.
type InMemoryStore struct {
	mu      sync.RWMutex
	account *Account
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Save replaces the stored account.
func (s *InMemoryStore) Save(a Account) error {
	if a.PublicKey.IsZero() {
		return fmt.Errorf("cannot save account with zero public key")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = &a
	return nil
}

// Get returns the stored account or ErrUnauthorized.
func (s *InMemoryStore) Get() (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return Account{}, ErrUnauthorized
	}
	return *s.account, nil
}

// Clear removes the stored account.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = nil
}

// LoadKeygenFile reads a solana-keygen JSON keypair file into an Account.
func LoadKeygenFile(path string) (Account, error) {
	privateKey, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return Account{}, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return NewAccount(privateKey)
}
