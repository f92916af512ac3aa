package securitymgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uap-core/uap/ca"
	"github.com/uap-core/uap/crypto"
	"github.com/uap-core/uap/message"
)

func newPair(t *testing.T) (*Manager, *Manager) {
	t.Helper()
	authority := ca.New()
	_, _, err := authority.Bootstrap()
	require.NoError(t, err)

	alice := crypto.NewManager()
	_, alicePub, err := alice.GenerateKeyPair("alice")
	require.NoError(t, err)

	bob := crypto.NewManager()
	_, bobPub, err := bob.GenerateKeyPair("bob")
	require.NoError(t, err)

	require.NoError(t, alice.ImportPublicKey("bob", bobPub))
	require.NoError(t, bob.ImportPublicKey("alice", alicePub))

	return New(alice, authority), New(bob, authority)
}

func TestEncryptDecryptMessageRoundTrip(t *testing.T) {
	aliceSec, bobSec := newPair(t)

	msg := message.New("alice", "bob", "greet", map[string]any{"text": "hi"}, "ctx-1")
	envelope, err := aliceSec.EncryptMessage("alice", "bob", msg)
	require.NoError(t, err)
	assert.True(t, envelope.Encrypted)
	assert.Equal(t, Algorithm, envelope.Algorithm)
	assert.NotEmpty(t, envelope.Ciphertext)

	out, err := bobSec.DecryptMessage("bob", envelope)
	require.NoError(t, err)
	assert.Equal(t, msg.Intent, out.Intent)
	assert.Equal(t, "hi", out.Payload.(map[string]any)["text"])
}

func TestDecryptMessagePassthroughWhenNotEncrypted(t *testing.T) {
	_, bobSec := newPair(t)
	msg := message.New("alice", "bob", "greet", "hello", "ctx-1")

	out, err := bobSec.DecryptMessage("bob", msg)
	require.NoError(t, err)
	assert.Same(t, msg, out)
}

func TestDecryptMessageImportsSenderKeyFromEnvelope(t *testing.T) {
	authority := ca.New()
	_, _, err := authority.Bootstrap()
	require.NoError(t, err)

	alice := crypto.NewManager()
	_, _, err = alice.GenerateKeyPair("alice")
	require.NoError(t, err)

	bob := crypto.NewManager()
	_, bobPub, err := bob.GenerateKeyPair("bob")
	require.NoError(t, err)
	// Bob never imports alice's key out of band; alice does need bob's key
	// to derive the shared secret for encryption.
	require.NoError(t, alice.ImportPublicKey("bob", bobPub))

	aliceSec := New(alice, authority)
	bobSec := New(bob, authority)

	msg := message.New("alice", "bob", "greet", "hello", "ctx-1")
	envelope, err := aliceSec.EncryptMessage("alice", "bob", msg)
	require.NoError(t, err)

	// Bob has never seen alice's public key before this call.
	out, err := bobSec.DecryptMessage("bob", envelope)
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Payload)
}

func TestAuthenticateValidCertificate(t *testing.T) {
	authority := ca.New()
	_, _, err := authority.Bootstrap()
	require.NoError(t, err)

	mgr := crypto.NewManager()
	_, _, err = mgr.GenerateKeyPair("alice")
	require.NoError(t, err)

	der, err := mgr.PublicKeyDER("alice")
	require.NoError(t, err)

	certPEM, err := authority.IssueCert("alice", der)
	require.NoError(t, err)

	sec := New(mgr, authority)
	ok, err := sec.Authenticate("alice", certPEM, der)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthenticateSubjectMismatch(t *testing.T) {
	authority := ca.New()
	_, _, err := authority.Bootstrap()
	require.NoError(t, err)

	mgr := crypto.NewManager()
	_, _, err = mgr.GenerateKeyPair("alice")
	require.NoError(t, err)
	der, err := mgr.PublicKeyDER("alice")
	require.NoError(t, err)

	certPEM, err := authority.IssueCert("alice", der)
	require.NoError(t, err)

	sec := New(mgr, authority)
	ok, err := sec.Authenticate("mallory", certPEM, der)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrSubjectMismatch)
}

func TestAuthenticateKeyMismatch(t *testing.T) {
	authority := ca.New()
	_, _, err := authority.Bootstrap()
	require.NoError(t, err)

	mgr := crypto.NewManager()
	_, _, err = mgr.GenerateKeyPair("alice")
	require.NoError(t, err)
	der, err := mgr.PublicKeyDER("alice")
	require.NoError(t, err)
	certPEM, err := authority.IssueCert("alice", der)
	require.NoError(t, err)

	_, _, err = mgr.GenerateKeyPair("eve")
	require.NoError(t, err)

	sec := New(mgr, authority)
	eveDER, err := mgr.PublicKeyDER("eve")
	require.NoError(t, err)

	ok, err := sec.Authenticate("alice", certPEM, eveDER)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrKeyMismatch)
}
