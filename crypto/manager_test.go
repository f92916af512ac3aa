package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSharedKeySymmetric(t *testing.T) {
	alice := NewManager()
	bob := NewManager()

	_, alicePub, err := alice.GenerateKeyPair("alice")
	require.NoError(t, err)
	_, bobPub, err := bob.GenerateKeyPair("bob")
	require.NoError(t, err)

	require.NoError(t, alice.ImportPublicKey("bob", bobPub))
	require.NoError(t, bob.ImportPublicKey("alice", alicePub))

	k1, err := alice.DeriveSharedKey("alice", "bob")
	require.NoError(t, err)
	k2, err := bob.DeriveSharedKey("bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 32)
}

func TestDeriveSharedKeyCached(t *testing.T) {
	m := NewManager()
	_, pub, err := m.GenerateKeyPair("a")
	require.NoError(t, err)
	require.NoError(t, m.ImportPublicKey("a-peer", pub))
	_, _, err = m.GenerateKeyPair("b")
	require.NoError(t, err)
	require.NoError(t, m.ImportPublicKey("b-peer", pub))

	k1, err := m.DeriveSharedKey("a", "a-peer")
	require.NoError(t, err)
	k2, err := m.DeriveSharedKey("a", "a-peer")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

// TestEncryptDecryptRoundTrip is the round-trip property from §8.1.
func TestEncryptDecryptRoundTrip(t *testing.T) {
	alice := NewManager()
	bob := NewManager()

	_, alicePub, err := alice.GenerateKeyPair("alice")
	require.NoError(t, err)
	_, bobPub, err := bob.GenerateKeyPair("bob")
	require.NoError(t, err)
	require.NoError(t, alice.ImportPublicKey("bob", bobPub))
	require.NoError(t, bob.ImportPublicKey("alice", alicePub))

	key, err := alice.DeriveSharedKey("alice", "bob")
	require.NoError(t, err)

	plaintext := []byte(`{"intent":"secret","payload":"hello"}`)
	sealed, err := Encrypt(plaintext, key)
	require.NoError(t, err)

	bobKey, err := bob.DeriveSharedKey("bob", "alice")
	require.NoError(t, err)

	out, err := Decrypt(sealed, bobKey)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	key := make([]byte, 32)
	sealed, err := Encrypt([]byte("hello"), key)
	require.NoError(t, err)

	sealed.Ciphertext[0] ^= 0xFF
	_, err = Decrypt(sealed, key)
	assert.ErrorIs(t, err, ErrDecrypt)
}

// TestSignVerifySoundness is the signature property from §8.2.
func TestSignVerifySoundness(t *testing.T) {
	m := NewManager()
	_, _, err := m.GenerateKeyPair("signer")
	require.NoError(t, err)

	data := []byte("the quick brown fox")
	sig, err := m.Sign("signer", data)
	require.NoError(t, err)

	ok, err := m.Verify("signer", data, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	tamperedData := append([]byte(nil), data...)
	tamperedData[0] ^= 0xFF
	ok, err = m.Verify("signer", tamperedData, sig)
	require.NoError(t, err)
	assert.False(t, ok)

	tamperedSig := append([]byte(nil), sig...)
	tamperedSig[len(tamperedSig)-1] ^= 0xFF
	ok, err = m.Verify("signer", data, tamperedSig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignUnknownKeyFails(t *testing.T) {
	m := NewManager()
	_, err := m.Sign("nobody", []byte("x"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestPEMRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	privPEM, err := kp.PrivatePEM()
	require.NoError(t, err)
	pubPEM, err := kp.PublicPEM()
	require.NoError(t, err)

	parsedPriv, err := ParsePrivateKeyPEM(privPEM)
	require.NoError(t, err)
	assert.Equal(t, kp.priv.D, parsedPriv.priv.D)

	parsedPub, err := ParsePublicKeyPEM(pubPEM)
	require.NoError(t, err)
	assert.True(t, kp.priv.PublicKey.Equal(parsedPub))
}

func FuzzDecrypt(f *testing.F) {
	key := make([]byte, 32)
	sealed, _ := Encrypt([]byte("seed"), key)
	f.Add(sealed.Nonce, sealed.Ciphertext)

	f.Fuzz(func(t *testing.T, nonce, ciphertext []byte) {
		_, _ = Decrypt(&Sealed{Nonce: nonce, Ciphertext: ciphertext}, key)
	})
}
