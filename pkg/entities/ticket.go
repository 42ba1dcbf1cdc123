package entities

import (
	"fmt"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/custom"
)

// Ticket is one support conversation, one per created channel. The record is
// never physically deleted; closing marks it closed and removes the channel,
// leaving the document as an audit trail.
type Ticket struct {
	// ID is the unique identifier of the ticket. It is embedded in the
	// custom IDs of the lifecycle buttons.
	ID string `json:"id" bson:"id"`

	// GuildID is the ID of the guild that the ticket is in.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// PanelID is the stable identifier of the panel the ticket was created
	// from. Identifiers survive re-ordering of the static configuration;
	// a missing identifier at resolution time means the configuration has
	// drifted and the panel must be re-deployed.
	PanelID string `json:"panel_id" bson:"panel_id"`

	// ActionID is the stable identifier of the panel action.
	ActionID string `json:"action_id" bson:"action_id"`

	// UserID is the ID of the user that created the ticket.
	UserID string `json:"user_id" bson:"user_id"`

	// Username is the username of the user that created the ticket, used
	// in the channel name.
	Username string `json:"username" bson:"username"`

	// ChannelID is the ID of the channel that the ticket is in.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// HeaderMessageID is the ID of the pinned header message carrying the
	// lifecycle controls.
	HeaderMessageID string `json:"header_message_id" bson:"header_message_id"`

	// Claimed is whether the ticket is currently claimed.
	Claimed bool `json:"claimed" bson:"claimed"`

	// ClaimedBy is the ID of the user that claimed the ticket. Empty
	// whenever Claimed is false.
	ClaimedBy string `json:"claimed_by" bson:"claimed_by"`

	// Closed is whether the ticket has been closed. Closed tickets are
	// terminal; no further transitions apply.
	Closed bool `json:"closed" bson:"closed"`

	// ClosedBy is the ID of the user that closed the ticket.
	ClosedBy string `json:"closed_by" bson:"closed_by"`

	// Reason is the close reason, if one was provided.
	Reason string `json:"reason" bson:"reason"`

	// EscalationLevel is the current position in the panel's escalation
	// role chain. Always within [0, len(chain)].
	EscalationLevel int `json:"escalation_level" bson:"escalation_level"`

	// ServerIdentifier is the game server the ticket is about, when the
	// panel is bound to (or selected) one.
	ServerIdentifier string `json:"server_identifier" bson:"server_identifier"`

	// Index is the sequence number of the ticket, scoped to
	// (guild, panel, action) and starting at 1.
	Index int `json:"index" bson:"index"`

	// ActiveStaffIDs are the staff members that have handled the ticket.
	ActiveStaffIDs []string `json:"active_staff_ids" bson:"active_staff_ids"`

	// VoiceChannelID is the companion support voice channel, if one is
	// active.
	VoiceChannelID string `json:"voice_channel_id" bson:"voice_channel_id"`

	// Version is incremented on every save and checked on write, so two
	// concurrent transitions on the same ticket cannot both win.
	Version int64 `json:"version" bson:"version"`

	// CreatedAt is the time that the ticket was created.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`

	// UpdatedAt is the time of the last transition.
	UpdatedAt custom.Datetime `json:"updated_at" bson:"updated_at"`
}

// Name returns the base channel name for the ticket, without any state
// marker prefixes. For example index 3 with join string "-" and username
// "wolf" yields "0003-wolf".
func (t *Ticket) Name(joinStr string) string {
	return fmt.Sprintf("%04d%s%s", t.Index, joinStr, t.Username)
}

// AddActiveStaff records a staff member as having handled the ticket.
func (t *Ticket) AddActiveStaff(userID string) {
	for _, id := range t.ActiveStaffIDs {
		if id == userID {
			return
		}
	}
	t.ActiveStaffIDs = append(t.ActiveStaffIDs, userID)
}
