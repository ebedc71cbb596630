package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	disgobot "github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	apperrors "github.com/iamwavecut/swearbot/internal/errors"
)

// DiscordService is the disgo backed Service. It also owns the gateway
// connection and forwards guild messages to a single subscriber.
type DiscordService struct {
	client disgobot.Client

	mu         sync.RWMutex
	subscriber func(msg *Message)
}

func NewService(token string) (*DiscordService, error) {
	s := &DiscordService{}
	client, err := disgo.New(token,
		disgobot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
			),
		),
		disgobot.WithEventListeners(&events.ListenerAdapter{
			OnReady:              s.onReady,
			OnGuildMessageCreate: s.onGuildMessageCreate,
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create discord client")
	}
	s.client = client
	return s, nil
}

// Subscribe sets the function receiving every guild message.
func (s *DiscordService) Subscribe(fn func(msg *Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriber = fn
}

func (s *DiscordService) Start(ctx context.Context) error {
	if err := s.client.OpenGateway(ctx); err != nil {
		return errors.Wrap(err, "open gateway")
	}
	return nil
}

func (s *DiscordService) Stop(ctx context.Context) error {
	s.client.Close(ctx)
	return nil
}

func (s *DiscordService) React(ctx context.Context, msg *Message, emoji string) error {
	if err := s.client.Rest().AddReaction(msg.ChannelID, msg.ID, emoji, rest.WithCtx(ctx)); err != nil {
		return gatewayError("react", err)
	}
	return nil
}

func (s *DiscordService) Reply(ctx context.Context, msg *Message, content string) error {
	_, err := s.client.Rest().CreateMessage(msg.ChannelID, discord.MessageCreate{
		Content: content,
		MessageReference: &discord.MessageReference{
			MessageID: &msg.ID,
			ChannelID: &msg.ChannelID,
			GuildID:   msg.GuildID,
		},
		AllowedMentions: &discord.AllowedMentions{RepliedUser: true},
	}, rest.WithCtx(ctx))
	if err != nil {
		return gatewayError("reply", err)
	}
	return nil
}

func (s *DiscordService) GetMember(ctx context.Context, guildID, userID snowflake.ID) (*discord.Member, error) {
	member, err := s.client.Rest().GetMember(guildID, userID, rest.WithCtx(ctx))
	if err != nil {
		return nil, gatewayError("get_member", err)
	}
	return member, nil
}

func (s *DiscordService) Timeout(ctx context.Context, member *discord.Member, until time.Time) error {
	if member == nil {
		return gatewayError("timeout", errors.New("nil member"))
	}
	_, err := s.client.Rest().UpdateMember(member.GuildID, member.User.ID, discord.MemberUpdate{
		CommunicationDisabledUntil: json.NewNullablePtr(until),
	}, rest.WithCtx(ctx))
	if err != nil {
		return gatewayError("timeout", err)
	}
	return nil
}

func (s *DiscordService) onReady(*events.Ready) {
	s.getLogEntry().Info("bot is ready")
}

func (s *DiscordService) onGuildMessageCreate(e *events.GuildMessageCreate) {
	s.mu.RLock()
	subscriber := s.subscriber
	s.mu.RUnlock()
	if subscriber == nil {
		return
	}
	guildID := e.GuildID
	subscriber(&Message{
		ID:        e.Message.ID,
		ChannelID: e.Message.ChannelID,
		GuildID:   &guildID,
		AuthorID:  e.Message.Author.ID,
		AuthorBot: e.Message.Author.Bot,
		Content:   e.Message.Content,
		CreatedAt: e.Message.CreatedAt,
	})
}

func (s *DiscordService) getLogEntry() *log.Entry {
	return log.WithField("object", "DiscordService")
}

func gatewayError(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperrors.ErrGatewayOperation, operation, err)
}
