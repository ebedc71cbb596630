package bot

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Message is an inbound guild message as seen by the handlers.
type Message struct {
	ID        snowflake.ID
	ChannelID snowflake.ID
	GuildID   *snowflake.ID
	AuthorID  snowflake.ID
	AuthorBot bool
	Content   string
	CreatedAt time.Time
}

// InGuild reports whether the message was posted in guildID.
func (m *Message) InGuild(guildID snowflake.ID) bool {
	return m != nil && m.GuildID != nil && *m.GuildID == guildID
}

type handlingIDKey struct{}

// WithHandlingID tags ctx with the correlation id of one message handling.
func WithHandlingID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, handlingIDKey{}, id)
}

// HandlingID returns the correlation id set by the update processor.
func HandlingID(ctx context.Context) string {
	id, _ := ctx.Value(handlingIDKey{}).(string)
	return id
}
