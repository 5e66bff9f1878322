package sdk

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
)

const (
	signatureLength = 64
	publicKeyLength = 32
)

// Format is the wire format of a serialized transaction.
type Format string

const (
	FormatLegacy    Format = "legacy"
	FormatVersioned Format = "versioned"
)

var errNoSignatures = errors.New("transaction carries no signatures")

// ValidateAddress checks that s is a base58 encoded 32-byte public key.
func ValidateAddress(s string) error {
	if s == "" {
		return fmt.Errorf("empty address")
	}
	b, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid base58 address %q: %w", s, err)
	}
	if len(b) != publicKeyLength {
		return fmt.Errorf("invalid address %q: expected %d bytes, got %d", s, publicKeyLength, len(b))
	}
	return nil
}

// NewUnsignedTransaction wraps msg with zero-filled signature placeholders,
// one per required signer.
func NewUnsignedTransaction(msg types.Message) (types.Transaction, error) {
	return types.NewTransaction(types.NewTransactionParam{Message: msg})
}

// EncodeTransaction serializes tx without requiring its signatures to be
// present and returns it base64 encoded.
func EncodeTransaction(tx types.Transaction) (string, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeBase64 decodes a base64 transaction payload.
func DecodeBase64(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("transaction is not valid base64: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("transaction is empty")
	}
	return raw, nil
}

// DecodeTransaction decodes a base64 transaction in either wire format.
func DecodeTransaction(encoded string) (types.Transaction, Format, error) {
	raw, err := DecodeBase64(encoded)
	if err != nil {
		return types.Transaction{}, "", err
	}
	return DecodeRawTransaction(raw)
}

// DecodeRawTransaction decodes wire bytes, detecting the versioned layout
// from the message prefix and otherwise reading the legacy layout.
func DecodeRawTransaction(raw []byte) (types.Transaction, Format, error) {
	tx, err := types.TransactionDeserialize(raw)
	if err != nil {
		return types.Transaction{}, "", fmt.Errorf("deserialize transaction: %w", err)
	}
	if tx.Message.Version == types.MessageVersionV0 {
		return tx, FormatVersioned, nil
	}
	return tx, FormatLegacy, nil
}

// FirstSignature returns the first non-placeholder signature of a serialized
// transaction, base58 encoded. The signature section precedes the message in
// both wire formats, so it is read directly when full decoding fails.
func FirstSignature(raw []byte) (string, bool) {
	sigs, err := signaturesOf(raw)
	if err != nil {
		return "", false
	}
	for _, sig := range sigs {
		if len(sig) == signatureLength && !isPlaceholder(sig) {
			return base58.Encode(sig), true
		}
	}
	return "", false
}

func signaturesOf(raw []byte) ([][]byte, error) {
	if tx, _, err := DecodeRawTransaction(raw); err == nil {
		out := make([][]byte, 0, len(tx.Signatures))
		for _, sig := range tx.Signatures {
			out = append(out, sig)
		}
		return out, nil
	}
	return readSignatureSection(raw)
}

func readSignatureSection(raw []byte) ([][]byte, error) {
	count, offset, err := readCompactU16(raw, 0)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errNoSignatures
	}
	if offset+count*signatureLength > len(raw) {
		return nil, fmt.Errorf("signature section truncated: want %d signatures", count)
	}
	sigs := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		start := offset + i*signatureLength
		sigs = append(sigs, raw[start:start+signatureLength])
	}
	return sigs, nil
}

func isPlaceholder(sig []byte) bool {
	for _, b := range sig {
		if b != 0 {
			return false
		}
	}
	return true
}

// readCompactU16 decodes Solana's shortvec length prefix.
func readCompactU16(b []byte, offset int) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if offset+i >= len(b) {
			return 0, 0, fmt.Errorf("compact-u16 truncated")
		}
		elem := int(b[offset+i])
		value |= (elem & 0x7f) << (7 * i)
		if elem&0x80 == 0 {
			return value, offset + i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 overflow")
}
