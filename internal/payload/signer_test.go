package payload

import (
	"strings"
	"testing"

	"github.com/accordhq/accord/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(config.Config{SigningSecret: strings.Repeat("k", 48)})
	require.NoError(t, err)
	return s
}

func TestSignVerifyRoundTrip(t *testing.T) {
	s := newTestSigner(t)

	token := s.Sign("inv_123", 42, 50)
	assert.True(t, s.Verify(token, "inv_123", 42, 50))
}

func TestVerifyFailsOnAnyMismatch(t *testing.T) {
	s := newTestSigner(t)
	token := s.Sign("inv_123", 42, 50)

	assert.False(t, s.Verify(token, "inv_124", 42, 50), "different invoice")
	assert.False(t, s.Verify(token, "inv_123", 43, 50), "different owner")
	assert.False(t, s.Verify(token, "inv_123", 42, 51), "different amount")
	assert.False(t, s.Verify("", "inv_123", 42, 50), "empty token")
	assert.False(t, s.Verify("not-a-token", "inv_123", 42, 50), "malformed token")
	assert.False(t, s.Verify(token+"00", "inv_123", 42, 50), "padded mac")
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	s := newTestSigner(t)
	other, err := NewSigner(config.Config{SigningSecret: strings.Repeat("q", 48)})
	require.NoError(t, err)

	token := other.Sign("inv_123", 42, 50)
	assert.False(t, s.Verify(token, "inv_123", 42, 50))
}

func TestNewSignerRejectsWeakSecrets(t *testing.T) {
	_, err := NewSigner(config.Config{SigningSecret: "short"})
	assert.ErrorIs(t, err, config.ErrWeakSecret)

	_, err = NewSigner(config.Config{SigningSecret: "CHANGE_ME_" + strings.Repeat("x", 40)})
	assert.ErrorIs(t, err, config.ErrPlaceholderSecret)
}
