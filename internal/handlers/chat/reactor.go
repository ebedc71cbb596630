package chat

import (
	"context"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/swearbot/internal/bot"
	"github.com/iamwavecut/swearbot/internal/observability"
)

const (
	DefaultGuildID = snowflake.ID(316738004335067139)
	DefaultEmoji   = "antisga:1171493411270967447"
)

type Config struct {
	GuildID snowflake.ID
	Emoji   string
}

// Reactor answers exact gif messages in one guild with a fixed emoji.
type Reactor struct {
	s      bot.Service
	gifs   map[string]struct{}
	config Config
}

func NewReactor(s bot.Service, gifs []string, cfg Config) *Reactor {
	if cfg.GuildID == 0 {
		cfg.GuildID = DefaultGuildID
	}
	if cfg.Emoji == "" {
		cfg.Emoji = DefaultEmoji
	}
	set := make(map[string]struct{}, len(gifs))
	for _, gif := range gifs {
		gif = strings.TrimSpace(gif)
		if gif == "" {
			continue
		}
		set[gif] = struct{}{}
	}
	return &Reactor{
		s:      s,
		gifs:   set,
		config: cfg,
	}
}

func (r *Reactor) Handle(ctx context.Context, msg *bot.Message) (bool, error) {
	if !r.matches(msg) {
		return true, nil
	}

	entry := r.getLogEntry().WithFields(log.Fields{
		"message_id":  msg.ID.String(),
		"user_id":     msg.AuthorID.String(),
		"handling_id": bot.HandlingID(ctx),
	})
	if err := r.s.React(ctx, msg, r.config.Emoji); err != nil {
		observability.RecordGatewayFailure("react")
		entry.WithField("error", err.Error()).Warn("cant react to gif")
		return true, nil
	}
	entry.Debug("reacted to gif")
	return true, nil
}

func (r *Reactor) matches(msg *bot.Message) bool {
	if len(r.gifs) == 0 || !msg.InGuild(r.config.GuildID) {
		return false
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return false
	}
	_, ok := r.gifs[content]
	return ok
}

func (r *Reactor) getLogEntry() *log.Entry {
	return log.WithField("object", "Reactor")
}
