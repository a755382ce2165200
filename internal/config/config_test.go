package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		SigningSecret:  strings.Repeat("s", 48),
		WarnThreshold:  2,
		MuteThreshold:  3,
		MuteDuration:   10 * time.Minute,
		FreeTierWindow: 24 * time.Hour,
		InvoiceTTL:     time.Hour,
		FreeTierGoal:   "stabilize",
	}
}

func TestValidateSecret(t *testing.T) {
	assert.ErrorIs(t, ValidateSecret(""), ErrWeakSecret)
	assert.ErrorIs(t, ValidateSecret("short"), ErrWeakSecret)
	assert.ErrorIs(t, ValidateSecret(strings.Repeat("x", 31)), ErrWeakSecret)
	assert.NoError(t, ValidateSecret(strings.Repeat("x", 32)))

	// Long enough but clearly copied from a sample env file.
	assert.ErrorIs(t, ValidateSecret("CHANGE_ME_"+strings.Repeat("x", 32)), ErrPlaceholderSecret)
	assert.ErrorIs(t, ValidateSecret(strings.Repeat("a", 20)+"your_secret_here"), ErrPlaceholderSecret)
}

func TestValidateThresholds(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	cfg.WarnThreshold = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidThreshold)

	cfg = validConfig()
	cfg.MuteThreshold = cfg.WarnThreshold
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidThreshold)
}

func TestValidateDurations(t *testing.T) {
	cfg := validConfig()
	cfg.MuteDuration = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.FreeTierWindow = -time.Hour
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.InvoiceTTL = 0
	assert.Error(t, cfg.Validate())
}
