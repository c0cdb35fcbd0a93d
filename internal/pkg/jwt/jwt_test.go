package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("secret", "lifekline-api", time.Hour)

	token, expiresAt, err := issuer.Issue("acc-1", "LK2026010400001")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "LK2026010400001", claims.Username)
	assert.Equal(t, "lifekline-api", claims.Issuer)
}

func TestVerifyExpired(t *testing.T) {
	issuer := NewIssuer("secret", "lifekline-api", time.Hour)
	token, _, err := issuer.Issue("acc-1", "LK2026010400001")
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	token, _, err := NewIssuer("other", "lifekline-api", time.Hour).Issue("acc-1", "u")
	require.NoError(t, err)

	_, err = NewIssuer("secret", "lifekline-api", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = NewIssuer("secret", "lifekline-api", time.Hour).Verify("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewIssuerDefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, NewIssuer("secret", "x", 0).ttl)
}
