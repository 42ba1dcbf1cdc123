package ticketing

import "context"

// ChannelParams describes a channel to create. Visibility is deny-by-default;
// only the listed users and roles can see the channel.
type ChannelParams struct {
	// Name is the channel name.
	Name string

	// Topic is the channel topic.
	Topic string

	// CategoryID is the parent category.
	CategoryID string

	// UserIDs and RoleIDs are granted view and post access.
	UserIDs []string
	RoleIDs []string

	// Voice creates a voice channel instead of a text channel.
	Voice bool
}

// ButtonStyle is the visual style of a control button.
type ButtonStyle int

const (
	StylePrimary ButtonStyle = iota
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// Button is one control affordance attached to a message.
type Button struct {
	ID    string
	Label string
	Emoji string
	Style ButtonStyle
}

// Field is one name/value pair in an embed.
type Field struct {
	Name  string
	Value string
}

// Embed is a structured message body.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
}

// File is an attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Notice is an outbound message.
type Notice struct {
	Content string
	Embeds  []*Embed
	Buttons []Button
	Files   []*File
}

// Platform is the narrow chat platform contract the engine drives. The
// adapter in the command layer implements it over the real session; tests
// implement it in memory.
type Platform interface {
	// CreateChannel creates a private channel and returns its ID.
	CreateChannel(ctx context.Context, guildID string, params ChannelParams) (string, error)

	// RenameChannel renames a channel.
	RenameChannel(ctx context.Context, channelID string, name string) error

	// SetTopic replaces a channel's topic.
	SetTopic(ctx context.Context, channelID string, topic string) error

	// DeleteChannel deletes a channel.
	DeleteChannel(ctx context.Context, channelID string, reason string) error

	// SetPermissions replaces a channel's full grant set.
	SetPermissions(ctx context.Context, channelID string, userIDs []string, roleIDs []string) error

	// AllowRole grants a single role view and post access.
	AllowRole(ctx context.Context, channelID string, roleID string) error

	// DenyRole revokes a single role's access.
	DenyRole(ctx context.Context, channelID string, roleID string) error

	// Send posts a message to a channel and returns the message ID.
	Send(ctx context.Context, channelID string, notice Notice) (string, error)

	// Pin and Unpin manage a message's pinned state.
	Pin(ctx context.Context, channelID string, messageID string) error
	Unpin(ctx context.Context, channelID string, messageID string) error

	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, channelID string, messageID string) error

	// DM sends a direct message to a user.
	DM(ctx context.Context, userID string, notice Notice) error

	// MemberHasRole reports whether a guild member holds a role.
	MemberHasRole(ctx context.Context, guildID string, userID string, roleID string) (bool, error)
}

// Transcriber exports a channel's history as a file artifact.
type Transcriber interface {
	Transcribe(ctx context.Context, channelID string, channelName string) (*File, error)
}
