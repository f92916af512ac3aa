package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uap-core/uap/ca"
)

func newService(t *testing.T) *Service {
	t.Helper()
	authority := ca.New()
	_, _, err := authority.Bootstrap()
	require.NoError(t, err)
	return NewService(authority)
}

func TestIssueAndValidate(t *testing.T) {
	svc := newService(t)

	tok, _, err := svc.Issue("svc-a", 0, map[string]any{"scope": "read"})
	require.NoError(t, err)

	entityID, err := svc.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "svc-a", entityID)
}

// TestRevokedTokenAuthenticatesNothing is scenario E4.
func TestRevokedTokenAuthenticatesNothing(t *testing.T) {
	svc := newService(t)

	tok, tokenID, err := svc.Issue("svc-b", 24*time.Hour, nil)
	require.NoError(t, err)

	svc.Revoke(tokenID)

	_, err = svc.Validate(tok)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestExpiredTokenFails(t *testing.T) {
	svc := newService(t)

	tok, _, err := svc.Issue("svc-c", time.Millisecond, nil)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = svc.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestTamperedTokenFails(t *testing.T) {
	svc := newService(t)

	tok, _, err := svc.Issue("svc-d", 0, nil)
	require.NoError(t, err)

	tampered := tok[:len(tok)-1] + "x"
	_, err = svc.Validate(tampered)
	assert.Error(t, err)
}
