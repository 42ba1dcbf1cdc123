package logging

const (
	// KeyAppName is the key for the application name.
	KeyAppName = "app"

	// KeyError is the key for an error.
	KeyError = "err"

	// KeyDal is the key for the data access layer in use.
	KeyDal = "dal"

	// KeyGuildID is the key for a guild ID.
	KeyGuildID = "guild_id"

	// KeyChannelID is the key for a channel ID.
	KeyChannelID = "channel_id"

	// KeyTicketID is the key for a ticket ID.
	KeyTicketID = "ticket_id"
)
