package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Transaction is a message plus one signature slot per required signer.
type Transaction struct {
	Message    Message
	Signatures []solana.Signature
}

// NewTransaction wraps a compiled message with empty signature slots.
func NewTransaction(msg *Message) *Transaction {
	return &Transaction{
		Message:    *msg,
		Signatures: make([]solana.Signature, len(msg.Signers())),
	}
}

// Sign fills the signature slot of every supplied key that is a required
// signer of the message. Keys that are not required signers are ignored.
func (tx *Transaction) Sign(signers ...solana.PrivateKey) error {
	content, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("unable to encode message for signing: %w", err)
	}

	required := tx.Message.Signers()
	if len(tx.Signatures) != len(required) {
		sigs := make([]solana.Signature, len(required))
		copy(sigs, tx.Signatures)
		tx.Signatures = sigs
	}

	for _, key := range signers {
		if len(key) != 64 {
			return fmt.Errorf("invalid private key length: %d", len(key))
		}
		pub := key.PublicKey()
		for i, signer := range required {
			if !signer.Equals(pub) {
				continue
			}
			sig, err := key.Sign(content)
			if err != nil {
				return fmt.Errorf("failed to sign with key %s: %w", pub, err)
			}
			tx.Signatures[i] = sig
		}
	}
	return nil
}

// VerifySignatures checks every signature slot against the encoded message.
func (tx *Transaction) VerifySignatures() error {
	if err := tx.checkSignatures(); err != nil {
		return err
	}
	content, err := tx.Message.MarshalBinary()
	if err != nil {
		return err
	}
	for i, signer := range tx.Message.Signers() {
		if !tx.Signatures[i].Verify(signer, content) {
			return fmt.Errorf("invalid signature for %s", signer)
		}
	}
	return nil
}
