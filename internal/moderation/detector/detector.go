package detector

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/accordhq/accord/internal/config"
	"github.com/accordhq/accord/internal/moderation/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	RuleCaps      = "caps"
	RuleSpam      = "punctuation_spam"
	RuleInsult    = "insult"
	RuleProfanity = "profanity"
	RuleSlur      = "slur"
	RuleSelfHarm  = "self_harm"
	RuleFlood     = "flood"
)

const (
	capsRatioLimit = 0.7
	capsMinLetters = 10
)

var punctuationSpam = regexp.MustCompile(`[!?]{3,}`)

var insultWords = []string{
	"idiot", "moron", "loser", "pathetic", "worthless", "clown",
}

var profanityWords = []string{
	"damn", "crap", "bastard", "bullshit",
}

// slurWords ships empty; deployments extend it for their locale.
var slurWords []string

var selfHarmPhrases = []string{
	"kill myself", "end it all", "self harm", "suicide", "kms",
}

// Message is the raw collaborator input the detector classifies.
type Message struct {
	GroupID int64
	UserID  int64
	Text    string
}

// Finding names the first matched rule; nil means the message is clean.
type Finding struct {
	Rule string
}

type Param struct {
	fx.In

	Log   *zap.Logger
	Cfg   config.Config
	Redis *redis.Client
}

type Detector struct {
	log   *zap.Logger
	cfg   config.Config
	redis *redis.Client
}

func New(p Param) *Detector {
	return &Detector{
		log:   p.Log.Named("moderation.detector"),
		cfg:   p.Cfg,
		redis: p.Redis,
	}
}

// Check classifies one message under the group's settings. Word lists are
// checked before shape heuristics so the most severe rule wins; the flood
// window runs last and only when the group opted into security checks.
func (d *Detector) Check(ctx context.Context, settings *domain.GroupSettings, msg Message) *Finding {
	if !settings.Enabled {
		return nil
	}

	lower := strings.ToLower(msg.Text)
	words := tokenize(lower)

	switch {
	case matchAny(lower, words, slurWords):
		return &Finding{Rule: RuleSlur}
	case matchAny(lower, words, selfHarmPhrases):
		return &Finding{Rule: RuleSelfHarm}
	case matchAny(lower, words, insultWords):
		return &Finding{Rule: RuleInsult}
	case settings.LanguageMode == "clean" && matchAny(lower, words, profanityWords):
		return &Finding{Rule: RuleProfanity}
	}

	if capsRatio(msg.Text) > capsRatioLimit {
		return &Finding{Rule: RuleCaps}
	}
	if punctuationSpam.MatchString(msg.Text) {
		return &Finding{Rule: RuleSpam}
	}

	if settings.SecurityEnabled && d.flooding(ctx, msg.GroupID, msg.UserID) {
		return &Finding{Rule: RuleFlood}
	}
	return nil
}

// flooding counts messages in a fixed redis window. Redis being down must
// not block the chat, so errors fail open.
func (d *Detector) flooding(ctx context.Context, groupID, userID int64) bool {
	key := fmt.Sprintf("accord:flood:%d:%d", groupID, userID)

	n, err := d.redis.Incr(ctx, key).Result()
	if err != nil {
		d.log.Warn("flood window unavailable", zap.Error(err))
		return false
	}
	if n == 1 {
		if err := d.redis.Expire(ctx, key, d.cfg.FloodWindow).Err(); err != nil {
			d.log.Warn("flood window expire failed", zap.Error(err))
		}
	}
	return n > int64(d.cfg.FloodLimit)
}

// matchAny matches multi-word entries as substrings and single words
// against the tokenized message, so "class" never trips on "classic".
func matchAny(lower string, words map[string]struct{}, list []string) bool {
	for _, entry := range list {
		if strings.ContainsRune(entry, ' ') {
			if strings.Contains(lower, entry) {
				return true
			}
			continue
		}
		if _, ok := words[entry]; ok {
			return true
		}
	}
	return false
}

func tokenize(lower string) map[string]struct{} {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

func capsRatio(text string) float64 {
	var letters, upper int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters < capsMinLetters {
		return 0
	}
	return float64(upper) / float64(letters)
}
