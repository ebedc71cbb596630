package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iamwavecut/swearbot/internal/adapters"
	"github.com/iamwavecut/swearbot/internal/adapters/classifier"
	"github.com/iamwavecut/swearbot/internal/bot"
	apperrors "github.com/iamwavecut/swearbot/internal/errors"
	"github.com/iamwavecut/swearbot/internal/observability"
)

type Stage string

const (
	StageReceived       Stage = "received"
	StageFiltered       Stage = "filtered"
	StageDetected       Stage = "detected"
	StageReacted        Stage = "reacted"
	StageCounterUpdated Stage = "counter_updated"
	StageEscalated      Stage = "escalated"
)

type Detector string

const (
	DetectorNone       Detector = ""
	DetectorPattern    Detector = "pattern"
	DetectorClassifier Detector = "classifier"
)

const (
	DefaultThreshold         = 0.7
	DefaultClassifierTimeout = 5 * time.Second
	DefaultTimeoutDuration   = 300 * time.Second
	DefaultWarningEmoji      = "‼"
	DefaultWarningMessage    = "Stop swearing. You need a {{ .minutes }}-minute timeout."
)

type Config struct {
	// GuildID restricts moderation to one guild; zero accepts any guild.
	GuildID           snowflake.ID
	// Threshold is the minimal flagging score in (0, 1]; zero selects
	// DefaultThreshold.
	Threshold         float64
	ClassifierTimeout time.Duration
	WarningEmoji      string
	WarningMessage    string
	TimeoutDuration   time.Duration
}

type Dependencies struct {
	Classifier    adapters.Classifier
	Matcher       *Matcher
	Tracker       *Tracker
	EligibleUsers map[snowflake.ID]struct{}
}

type Actions struct {
	Reacted  bool
	Replied  bool
	TimedOut bool
	Error    string
}

type Result struct {
	Stage      Stage
	Skipped    bool
	SkipReason string
	Detection  Detector
	Score      *float64
	Decision   Decision
	Actions    Actions
}

type Moderator struct {
	s             bot.Service
	classifier    adapters.Classifier
	matcher       *Matcher
	tracker       *Tracker
	eligibleUsers map[snowflake.ID]struct{}
	config        Config
}

func NewModerator(s bot.Service, deps Dependencies, cfg Config) *Moderator {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.ClassifierTimeout <= 0 {
		cfg.ClassifierTimeout = DefaultClassifierTimeout
	}
	if cfg.TimeoutDuration <= 0 {
		cfg.TimeoutDuration = DefaultTimeoutDuration
	}
	if cfg.WarningEmoji == "" {
		cfg.WarningEmoji = DefaultWarningEmoji
	}
	if cfg.WarningMessage == "" {
		cfg.WarningMessage = DefaultWarningMessage
	}
	if deps.Tracker == nil {
		deps.Tracker = NewTracker(DefaultStrikes)
	}
	return &Moderator{
		s:             s,
		classifier:    deps.Classifier,
		matcher:       deps.Matcher,
		tracker:       deps.Tracker,
		eligibleUsers: deps.EligibleUsers,
		config:        cfg,
	}
}

// Handle never stops the chain: moderation outcomes are side effects only.
func (m *Moderator) Handle(ctx context.Context, msg *bot.Message) (bool, error) {
	if msg == nil {
		return true, nil
	}
	m.Moderate(ctx, msg)
	return true, nil
}

// Moderate runs one message through the pipeline and reports how far it got.
// Failures are logged and recorded in the result; they never return upward.
func (m *Moderator) Moderate(ctx context.Context, msg *bot.Message) *Result {
	ctx, span := otel.Tracer("swearbot/moderation").Start(ctx, "moderate")
	defer span.End()

	entry := m.getLogEntry(ctx).WithFields(log.Fields{
		"message_id": msg.ID.String(),
		"user_id":    msg.AuthorID.String(),
	})
	result := &Result{Stage: StageReceived, Decision: DecisionContinue}

	if reason := m.skipReason(msg); reason != "" {
		result.Skipped = true
		result.SkipReason = reason
		entry.WithField("reason", reason).Trace("message skipped")
		return result
	}
	result.Stage = StageFiltered

	result.Detection, result.Score = m.detect(ctx, entry, msg.Content)
	span.SetAttributes(attribute.String("detector", string(result.Detection)))
	if result.Detection == DetectorNone {
		return result
	}
	result.Stage = StageDetected
	observability.RecordViolation(string(result.Detection))
	entry = entry.WithField("detector", string(result.Detection))
	entry.Info("violation detected")

	if err := m.s.React(ctx, msg, m.config.WarningEmoji); err != nil {
		observability.RecordGatewayFailure("react")
		entry.WithField("error", err.Error()).Warn("cant react to violation")
	} else {
		result.Actions.Reacted = true
	}
	result.Stage = StageReacted

	result.Decision = m.tracker.RecordViolation(msg.AuthorID)
	result.Stage = StageCounterUpdated
	if result.Decision != DecisionEscalate {
		entry.WithField("strikes", m.tracker.Count(msg.AuthorID)).Debug("violation counted")
		return result
	}

	observability.RecordEscalation()
	result.Stage = StageEscalated
	if err := m.escalate(ctx, msg, &result.Actions); err != nil {
		result.Actions.Error = err.Error()
		span.RecordError(err)
		entry.WithField("error", err.Error()).Error("escalation halted")
		return result
	}
	entry.Info("user timed out")
	return result
}

func (m *Moderator) skipReason(msg *bot.Message) string {
	switch {
	case msg.GuildID == nil:
		return "not a guild message"
	case m.config.GuildID != 0 && *msg.GuildID != m.config.GuildID:
		return "foreign guild"
	case msg.Content == "":
		return "empty content"
	}
	if _, ok := m.eligibleUsers[msg.AuthorID]; !ok {
		return "ineligible user"
	}
	return ""
}

// detect runs the pattern matcher first and only asks the classifier when it
// found nothing.
func (m *Moderator) detect(ctx context.Context, entry *log.Entry, content string) (Detector, *float64) {
	if m.matcher.Match(content) {
		return DetectorPattern, nil
	}
	if m.classifier == nil {
		return DetectorNone, nil
	}

	score, err := m.score(ctx, content)
	if err != nil {
		if errors.Is(err, apperrors.ErrScoreAbsent) {
			entry.Debug("classifier returned no profanity score")
		} else {
			entry.WithField("error", err.Error()).Warn("classifier failed, not flagging")
		}
		return DetectorNone, nil
	}
	entry.WithField("score", score).Trace("classifier score")
	if score >= m.config.Threshold {
		return DetectorClassifier, &score
	}
	return DetectorNone, &score
}

func (m *Moderator) score(ctx context.Context, content string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.config.ClassifierTimeout)
	defer cancel()

	resp, err := m.classifier.Analyze(ctx, content)
	if err != nil {
		if errors.Is(err, apperrors.ErrClassifier) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", apperrors.ErrClassifier, err)
	}
	value, ok := resp.UnpackScoreValue(classifier.AttributeProfanity)
	if !ok {
		return 0, apperrors.ErrScoreAbsent
	}
	return value, nil
}

// escalate replies, looks the member up and times them out. The first failed
// step stops the rest.
func (m *Moderator) escalate(ctx context.Context, msg *bot.Message, actions *Actions) error {
	warning := tool.ExecTemplate(m.config.WarningMessage, map[string]any{
		"minutes": int(m.config.TimeoutDuration.Minutes()),
		"user_id": msg.AuthorID.String(),
	})
	if err := m.s.Reply(ctx, msg, warning); err != nil {
		observability.RecordGatewayFailure("reply")
		return err
	}
	actions.Replied = true

	member, err := m.s.GetMember(ctx, *msg.GuildID, msg.AuthorID)
	if err != nil {
		observability.RecordGatewayFailure("get_member")
		return err
	}

	until := msg.CreatedAt.Add(m.config.TimeoutDuration)
	if err := m.s.Timeout(ctx, member, until); err != nil {
		observability.RecordGatewayFailure("timeout")
		return err
	}
	actions.TimedOut = true
	return nil
}

func (m *Moderator) getLogEntry(ctx context.Context) *log.Entry {
	entry := log.WithField("object", "Moderator")
	if id := bot.HandlingID(ctx); id != "" {
		entry = entry.WithField("handling_id", id)
	}
	return entry
}
