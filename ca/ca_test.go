package ca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uap-core/uap/crypto"
)

func bootstrapped(t *testing.T) *CA {
	t.Helper()
	c := New()
	_, _, err := c.Bootstrap()
	require.NoError(t, err)
	return c
}

// TestCertificateValidity is the property from §8.8.
func TestCertificateValidity(t *testing.T) {
	c := bootstrapped(t)

	entityKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	der, err := entityKey.PublicKeyDER()
	require.NoError(t, err)

	certPEM, err := c.IssueCert("alice", der)
	require.NoError(t, err)

	ok, err := c.VerifyCert(certPEM)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCertificateRevocationWithinValidityWindow(t *testing.T) {
	c := bootstrapped(t)
	entityKey, _ := crypto.GenerateKeyPair()
	der, _ := entityKey.PublicKeyDER()

	certPEM, err := c.IssueCert("bob", der)
	require.NoError(t, err)

	cert, err := Decode(certPEM)
	require.NoError(t, err)

	c.Revoke(cert.Serial)

	ok, err := c.VerifyCert(certPEM)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCertRevoked)
}

func TestCertificateTamperedSignatureFails(t *testing.T) {
	c := bootstrapped(t)
	entityKey, _ := crypto.GenerateKeyPair()
	der, _ := entityKey.PublicKeyDER()

	certPEM, err := c.IssueCert("carol", der)
	require.NoError(t, err)

	cert, err := Decode(certPEM)
	require.NoError(t, err)
	cert.Subject = "entity:mallory"
	tampered, err := Encode(cert)
	require.NoError(t, err)

	ok, err := c.VerifyCert(tampered)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCertSignature)
}

func TestVerifyUnknownIssuerFails(t *testing.T) {
	a := bootstrapped(t)
	b := bootstrapped(t)

	entityKey, _ := crypto.GenerateKeyPair()
	der, _ := entityKey.PublicKeyDER()

	certPEM, err := a.IssueCert("dave", der)
	require.NoError(t, err)

	ok, err := b.VerifyCert(certPEM)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestPEMRoundTrip(t *testing.T) {
	c := bootstrapped(t)
	rootPEM, err := c.RootCertPEM()
	require.NoError(t, err)

	cert, err := Decode(rootPEM)
	require.NoError(t, err)
	assert.Equal(t, CASubject, cert.Subject)
	assert.True(t, cert.Extensions.BasicConstraints.CA)

	reEncoded, err := Encode(cert)
	require.NoError(t, err)
	assert.Equal(t, rootPEM, reEncoded)
}
