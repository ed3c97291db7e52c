package transaction

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// MarshalBinary encodes the message in the legacy wire format.
func (m *Message) MarshalBinary() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	buf := []byte{
		m.Header.NumRequiredSignatures,
		m.Header.NumReadonlySignedAccounts,
		m.Header.NumReadonlyUnsignedAccounts,
	}

	bin.EncodeCompactU16Length(&buf, len(m.AccountKeys))
	for _, key := range m.AccountKeys {
		buf = append(buf, key[:]...)
	}

	buf = append(buf, m.RecentBlockhash[:]...)

	bin.EncodeCompactU16Length(&buf, len(m.Instructions))
	for _, ix := range m.Instructions {
		buf = append(buf, ix.ProgramIDIndex)
		bin.EncodeCompactU16Length(&buf, len(ix.Accounts))
		buf = append(buf, ix.Accounts...)
		bin.EncodeCompactU16Length(&buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}
	return buf, nil
}

// MarshalBinary encodes the signed transaction. Every required signature
// slot must be filled.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	content, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := tx.checkSignatures(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, 3+len(tx.Signatures)*64+len(content))
	bin.EncodeCompactU16Length(&out, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		out = append(out, sig[:]...)
	}
	return append(out, content...), nil
}

// ToBase64 returns the base64 wire encoding used for submission.
func (tx *Transaction) ToBase64() (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (tx *Transaction) checkSignatures() error {
	signers := tx.Message.Signers()
	if len(tx.Signatures) != len(signers) {
		return fmt.Errorf("%w: have %d signatures, need %d", ErrMissingSigner, len(tx.Signatures), len(signers))
	}
	for i, sig := range tx.Signatures {
		if sig.IsZero() {
			return fmt.Errorf("%w: %s", ErrMissingSigner, signers[i])
		}
	}
	return nil
}

// DecodeMessage parses a legacy message.
func DecodeMessage(data []byte) (*Message, error) {
	decoder := bin.NewBinDecoder(data)
	msg, err := decodeMessage(decoder)
	if err != nil {
		return nil, err
	}
	if decoder.Remaining() > 0 {
		return nil, encodingErrorf("%d trailing bytes after message", decoder.Remaining())
	}
	return msg, nil
}

// DecodeTransaction parses a legacy transaction as produced by MarshalBinary.
func DecodeTransaction(data []byte) (*Transaction, error) {
	decoder := bin.NewBinDecoder(data)

	numSignatures, err := decoder.ReadCompactU16()
	if err != nil {
		return nil, fmt.Errorf("unable to decode signature count: %w", err)
	}
	if numSignatures > decoder.Remaining()/64 {
		return nil, encodingErrorf("signature count %d too large for remaining bytes %d", numSignatures, decoder.Remaining())
	}
	tx := &Transaction{Signatures: make([]solana.Signature, numSignatures)}
	for i := range tx.Signatures {
		if _, err := decoder.Read(tx.Signatures[i][:]); err != nil {
			return nil, fmt.Errorf("unable to decode signature %d: %w", i, err)
		}
	}

	msg, err := decodeMessage(decoder)
	if err != nil {
		return nil, err
	}
	if decoder.Remaining() > 0 {
		return nil, encodingErrorf("%d trailing bytes after transaction", decoder.Remaining())
	}
	tx.Message = *msg
	return tx, nil
}

// TransactionFromBase64 decodes a base64 wire transaction.
func TransactionFromBase64(encoded string) (*Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 transaction: %w", err)
	}
	return DecodeTransaction(raw)
}

func decodeMessage(decoder *bin.Decoder) (*Message, error) {
	msg := &Message{}

	header := make([]byte, 3)
	if _, err := decoder.Read(header); err != nil {
		return nil, fmt.Errorf("unable to decode message header: %w", err)
	}
	if header[0]&0x80 != 0 {
		return nil, encodingErrorf("versioned messages are not supported")
	}
	msg.Header = MessageHeader{
		NumRequiredSignatures:       header[0],
		NumReadonlySignedAccounts:   header[1],
		NumReadonlyUnsignedAccounts: header[2],
	}

	numAccountKeys, err := decoder.ReadCompactU16()
	if err != nil {
		return nil, fmt.Errorf("unable to decode account count: %w", err)
	}
	if numAccountKeys > decoder.Remaining()/32 {
		return nil, encodingErrorf("account count %d too large for remaining bytes %d", numAccountKeys, decoder.Remaining())
	}
	msg.AccountKeys = make([]solana.PublicKey, numAccountKeys)
	for i := range msg.AccountKeys {
		if _, err := decoder.Read(msg.AccountKeys[i][:]); err != nil {
			return nil, fmt.Errorf("unable to decode account key %d: %w", i, err)
		}
	}

	if _, err := decoder.Read(msg.RecentBlockhash[:]); err != nil {
		return nil, fmt.Errorf("unable to decode recent blockhash: %w", err)
	}

	numInstructions, err := decoder.ReadCompactU16()
	if err != nil {
		return nil, fmt.Errorf("unable to decode instruction count: %w", err)
	}
	if numInstructions > decoder.Remaining() {
		return nil, encodingErrorf("instruction count %d too large for remaining bytes %d", numInstructions, decoder.Remaining())
	}
	msg.Instructions = make([]CompiledInstruction, numInstructions)
	for i := range msg.Instructions {
		ix := &msg.Instructions[i]
		if ix.ProgramIDIndex, err = decoder.ReadUint8(); err != nil {
			return nil, fmt.Errorf("unable to decode program index for ix[%d]: %w", i, err)
		}

		numAccounts, err := decoder.ReadCompactU16()
		if err != nil {
			return nil, fmt.Errorf("unable to decode account count for ix[%d]: %w", i, err)
		}
		if numAccounts > decoder.Remaining() {
			return nil, encodingErrorf("ix[%d]: account count %d too large for remaining bytes %d", i, numAccounts, decoder.Remaining())
		}
		if ix.Accounts, err = decoder.ReadBytes(numAccounts); err != nil {
			return nil, fmt.Errorf("unable to decode accounts for ix[%d]: %w", i, err)
		}

		dataLen, err := decoder.ReadCompactU16()
		if err != nil {
			return nil, fmt.Errorf("unable to decode data length for ix[%d]: %w", i, err)
		}
		if dataLen > decoder.Remaining() {
			return nil, encodingErrorf("ix[%d]: data length %d too large for remaining bytes %d", i, dataLen, decoder.Remaining())
		}
		if ix.Data, err = decoder.ReadBytes(dataLen); err != nil {
			return nil, fmt.Errorf("unable to decode data for ix[%d]: %w", i, err)
		}
	}

	if err := msg.validate(); err != nil {
		return nil, err
	}
	return msg, nil
}
