package ledger

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

var testSeed = strings.Repeat("11", ed25519.SeedSize)

func TestNewEd25519Signer_KeyFormats(t *testing.T) {
	seed, _ := hex.DecodeString(testSeed)
	keystore := base64.StdEncoding.EncodeToString(append([]byte{ed25519Flag}, seed...))

	fromHex, err := NewEd25519Signer(testSeed)
	require.NoError(t, err)
	fromPrefixedHex, err := NewEd25519Signer("0x" + testSeed)
	require.NoError(t, err)
	fromKeystore, err := NewEd25519Signer(keystore)
	require.NoError(t, err)

	assert.Equal(t, fromHex.Address(), fromPrefixedHex.Address())
	assert.Equal(t, fromHex.Address(), fromKeystore.Address())
	assert.Len(t, fromHex.Address(), 66)
	assert.True(t, strings.HasPrefix(fromHex.Address(), "0x"))

	t.Run("rejects other schemes and sizes", func(t *testing.T) {
		secp := base64.StdEncoding.EncodeToString(append([]byte{0x01}, seed...))
		for _, bad := range []string{"", "not a key", secp, base64.StdEncoding.EncodeToString(seed[:16])} {
			_, err := NewEd25519Signer(bad)
			assert.Error(t, err, bad)
		}
	})
}

func TestEd25519Signer_SignTransaction(t *testing.T) {
	signer, err := NewEd25519Signer(testSeed)
	require.NoError(t, err)
	txBytes := []byte("transaction bytes")

	serialized, err := signer.SignTransaction(txBytes)
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(serialized)
	require.NoError(t, err)
	require.Len(t, raw, 1+ed25519.SignatureSize+ed25519.PublicKeySize)
	assert.Equal(t, byte(ed25519Flag), raw[0])

	sig := raw[1 : 1+ed25519.SignatureSize]
	pub := ed25519.PublicKey(raw[1+ed25519.SignatureSize:])
	digest := blake2b.Sum256(append([]byte{0, 0, 0}, txBytes...))
	assert.True(t, ed25519.Verify(pub, digest[:], sig))
	assert.False(t, ed25519.Verify(pub, txBytes, sig))
}
