package ledger

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ed25519Flag is the signature scheme byte for Ed25519 keys.
const ed25519Flag = 0x00

// transactionIntent prefixes transaction bytes before hashing: scope
// TransactionData, version V0, app id Sui.
var transactionIntent = []byte{0, 0, 0}

// Signer signs transaction bytes for the account it controls.
type Signer interface {
	Address() string
	// SignTransaction returns the serialized signature for txBytes.
	SignTransaction(txBytes []byte) (string, error)
}

type Ed25519Signer struct {
	key     ed25519.PrivateKey
	address string
}

// NewEd25519Signer accepts a keystore entry (base64 of flag byte and 32-byte
// seed) or a hex seed, with or without 0x.
func NewEd25519Signer(raw string) (*Ed25519Signer, error) {
	seed, err := decodeSeed(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	key := ed25519.NewKeyFromSeed(seed)
	return &Ed25519Signer{key: key, address: addressOf(key.Public().(ed25519.PublicKey))}, nil
}

func decodeSeed(raw string) ([]byte, error) {
	if raw == "" {
		return nil, fmt.Errorf("signing key is empty")
	}
	hexPart := strings.TrimPrefix(raw, "0x")
	if b, err := hex.DecodeString(hexPart); err == nil && len(b) == ed25519.SeedSize {
		return b, nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("signing key is neither hex nor base64")
	}
	switch {
	case len(b) == ed25519.SeedSize+1 && b[0] == ed25519Flag:
		return b[1:], nil
	case len(b) == ed25519.SeedSize:
		return b, nil
	case len(b) == ed25519.SeedSize+1:
		return nil, fmt.Errorf("signing key scheme %#x is not ed25519", b[0])
	}
	return nil, fmt.Errorf("signing key has %d bytes, want %d", len(b), ed25519.SeedSize)
}

// addressOf is blake2b-256 over flag || public key.
func addressOf(pub ed25519.PublicKey) string {
	sum := blake2b.Sum256(append([]byte{ed25519Flag}, pub...))
	return "0x" + hex.EncodeToString(sum[:])
}

func (s *Ed25519Signer) Address() string { return s.address }

// SignTransaction signs blake2b-256(intent || txBytes) and serializes
// flag || signature || public key as base64.
func (s *Ed25519Signer) SignTransaction(txBytes []byte) (string, error) {
	msg := make([]byte, 0, len(transactionIntent)+len(txBytes))
	msg = append(msg, transactionIntent...)
	msg = append(msg, txBytes...)
	digest := blake2b.Sum256(msg)

	sig := ed25519.Sign(s.key, digest[:])
	pub := s.key.Public().(ed25519.PublicKey)
	out := make([]byte, 0, 1+len(sig)+len(pub))
	out = append(out, ed25519Flag)
	out = append(out, sig...)
	out = append(out, pub...)
	return base64.StdEncoding.EncodeToString(out), nil
}
