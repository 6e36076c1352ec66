package chain

import (
	"encoding/hex"
	"fmt"
)

// PubKeyLength is the length of a validator BLS public key in bytes.
const PubKeyLength = 48

// HashLength is the length of a block content hash in bytes.
const HashLength = 32

// PubKey is a validator's BLS public key. It identifies a validator both in
// stake-table entries and in the node identity registry.
type PubKey [PubKeyLength]byte

// PubKeyFromHex parses a hex-encoded public key.
func PubKeyFromHex(s string) (PubKey, error) {
	var k PubKey
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("decode public key: %w", err)
	}
	if len(b) != PubKeyLength {
		return k, fmt.Errorf("public key must be %d bytes, got %d", PubKeyLength, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// Hex returns the full hex encoding of the key.
func (k PubKey) Hex() string {
	return hex.EncodeToString(k[:])
}

// String returns an abbreviated form for logging.
func (k PubKey) String() string {
	return hex.EncodeToString(k[:4]) + ".."
}

func (k PubKey) MarshalText() ([]byte, error) {
	return []byte(k.Hex()), nil
}

func (k *PubKey) UnmarshalText(text []byte) error {
	parsed, err := PubKeyFromHex(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Hash is a block content hash.
type Hash [HashLength]byte

// Hex returns the full hex encoding of the hash.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("decode hash: %w", err)
	}
	if len(b) != HashLength {
		return fmt.Errorf("hash must be %d bytes, got %d", HashLength, len(b))
	}
	copy(h[:], b)
	return nil
}
