package entities

import "github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/custom"

// GuildSettings is the per-guild settings document.
type GuildSettings struct {
	// GuildID is the ID of the guild.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// AutoExpire are the pending deferred closes for the guild's tickets.
	// The timer handle itself is process local; only the due time is
	// durable, and a recovering scheduler re-arms or force-closes from it.
	AutoExpire []AutoExpireEntry `json:"auto_expire" bson:"auto_expire"`
}

// AutoExpireEntry is one scheduled deferred close.
type AutoExpireEntry struct {
	// TicketID is the ticket that will be closed.
	TicketID string `json:"ticket_id" bson:"ticket_id"`

	// ChannelID is the ticket channel. Expiry entries are keyed by channel.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// ExpireAt is when the ticket closes unless cancelled first.
	ExpireAt custom.Datetime `json:"expire_at" bson:"expire_at"`
}

// ExpireEntryFor returns the pending expiry entry for a channel, if any.
func (s *GuildSettings) ExpireEntryFor(channelID string) *AutoExpireEntry {
	for i := range s.AutoExpire {
		if s.AutoExpire[i].ChannelID == channelID {
			return &s.AutoExpire[i]
		}
	}
	return nil
}

// RemoveExpireEntry removes the pending expiry entry for a channel and
// reports whether one was present.
func (s *GuildSettings) RemoveExpireEntry(channelID string) bool {
	for i := range s.AutoExpire {
		if s.AutoExpire[i].ChannelID == channelID {
			s.AutoExpire = append(s.AutoExpire[:i], s.AutoExpire[i+1:]...)
			return true
		}
	}
	return false
}
