package entities

import "github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/custom"

// User is the backing record for a ticket creator.
type User struct {
	// DiscordID is the ID of the user on the chat platform.
	DiscordID string `json:"discord_id" bson:"discord_id"`

	// SteamID is the stored Steam64 identifier, used to pre-fill identity
	// form fields.
	SteamID string `json:"steam_id" bson:"steam_id"`

	// CreatedAt is the time the record was first created.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`
}
