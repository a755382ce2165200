package detector

import (
	"context"
	"testing"
	"time"

	"github.com/accordhq/accord/internal/config"
	"github.com/accordhq/accord/internal/moderation/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDetector(t *testing.T) (*Detector, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	d := New(Param{
		Log: zap.NewNop(),
		Cfg: config.Config{
			FloodLimit:  5,
			FloodWindow: 10 * time.Second,
		},
		Redis: rdb,
	})
	return d, mr
}

func defaultSettings() *domain.GroupSettings {
	return &domain.GroupSettings{
		GroupID:         -100,
		Enabled:         true,
		Language:        "en",
		LanguageMode:    "clean",
		WarnThreshold:   2,
		MuteThreshold:   3,
		SecurityEnabled: true,
	}
}

func TestDetectorRules(t *testing.T) {
	d, _ := newDetector(t)
	settings := defaultSettings()
	settings.SecurityEnabled = false
	ctx := context.Background()

	cases := []struct {
		name string
		text string
		rule string
	}{
		{"clean", "good morning everyone", ""},
		{"caps", "STOP SHOUTING AT EVERYONE HERE", RuleCaps},
		{"caps short text ignored", "OK FINE", ""},
		{"punctuation spam", "are you serious?!?!", RuleSpam},
		{"insult", "what an idiot", RuleInsult},
		{"insult not substring", "idiotproof design", ""},
		{"profanity in clean mode", "this is bullshit", RuleProfanity},
		{"self harm phrase", "i want to end it all", RuleSelfHarm},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			finding := d.Check(ctx, settings, Message{GroupID: -100, UserID: 7, Text: tc.text})
			if tc.rule == "" {
				assert.Nil(t, finding)
				return
			}
			require.NotNil(t, finding)
			assert.Equal(t, tc.rule, finding.Rule)
		})
	}
}

func TestDetectorProfanityAllowedInRelaxedMode(t *testing.T) {
	d, _ := newDetector(t)
	settings := defaultSettings()
	settings.SecurityEnabled = false
	settings.LanguageMode = "relaxed"

	finding := d.Check(context.Background(), settings, Message{GroupID: -100, UserID: 7, Text: "this is bullshit"})
	assert.Nil(t, finding)
}

func TestDetectorDisabledGroup(t *testing.T) {
	d, _ := newDetector(t)
	settings := defaultSettings()
	settings.Enabled = false

	finding := d.Check(context.Background(), settings, Message{GroupID: -100, UserID: 7, Text: "what an idiot"})
	assert.Nil(t, finding)
}

func TestDetectorFloodWindow(t *testing.T) {
	d, _ := newDetector(t)
	settings := defaultSettings()
	ctx := context.Background()
	msg := Message{GroupID: -100, UserID: 7, Text: "hello"}

	for i := 0; i < 5; i++ {
		assert.Nil(t, d.Check(ctx, settings, msg))
	}
	finding := d.Check(ctx, settings, msg)
	require.NotNil(t, finding)
	assert.Equal(t, RuleFlood, finding.Rule)
}

func TestDetectorFloodScopedPerUser(t *testing.T) {
	d, _ := newDetector(t)
	settings := defaultSettings()
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		d.Check(ctx, settings, Message{GroupID: -100, UserID: 7, Text: "hello"})
	}
	finding := d.Check(ctx, settings, Message{GroupID: -100, UserID: 8, Text: "hello"})
	assert.Nil(t, finding)
}

func TestDetectorFloodFailsOpen(t *testing.T) {
	d, mr := newDetector(t)
	settings := defaultSettings()
	mr.Close()

	finding := d.Check(context.Background(), settings, Message{GroupID: -100, UserID: 7, Text: "hello"})
	assert.Nil(t, finding)
}
