package bot

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

// Service defines the gateway operations handlers rely on
type Service interface {
	React(ctx context.Context, msg *Message, emoji string) error
	Reply(ctx context.Context, msg *Message, content string) error
	GetMember(ctx context.Context, guildID, userID snowflake.ID) (*discord.Member, error)
	Timeout(ctx context.Context, member *discord.Member, until time.Time) error
}

// Handler defines the interface for all message handlers in the system
type Handler interface {
	Handle(ctx context.Context, msg *Message) (proceed bool, err error)
}
