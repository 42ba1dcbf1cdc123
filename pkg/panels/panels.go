// Package panels holds the static ticket panel configuration tree. The tree
// is loaded once at process start and is read-only afterwards; every lookup
// is a pure function over it.
package panels

import "strings"

// Key is an overridable configuration key. Values for a key can be defined
// at panel level, at action level, and per server identifier in the panel's
// server mapping.
type Key string

const (
	// KeyCategoryID is the category that new ticket channels are created
	// under.
	KeyCategoryID Key = "category_id"

	// KeyRolePermissions are the roles granted access to ticket channels.
	KeyRolePermissions Key = "role_permissions"

	// KeyLoggingChannelID is the channel lifecycle events are logged to.
	KeyLoggingChannelID Key = "logging_channel_id"

	// KeyIndexJoinStr joins the ticket index and the username in the
	// channel name.
	KeyIndexJoinStr Key = "index_join_str"

	// KeyPingOnCreation is whether the permitted roles are pinged in the
	// ticket header message.
	KeyPingOnCreation Key = "ping_on_creation"

	// KeyCreationMessage is the message template posted with the ticket
	// header. The {@member} placeholder is replaced with a mention of the
	// ticket creator.
	KeyCreationMessage Key = "creation_message"
)

// Overrides is one level of overridable configuration values. A nil pointer
// field means the key is not set at this level.
type Overrides struct {
	CategoryID       *string  `yaml:"category_id"`
	RolePermissions  []string `yaml:"role_permissions"`
	LoggingChannelID *string  `yaml:"logging_channel_id"`
	IndexJoinStr     *string  `yaml:"index_join_str"`
	PingOnCreation   *bool    `yaml:"ping_on_creation"`
	CreationMessage  *string  `yaml:"creation_message"`
}

// value returns the configured value for key at this level, and whether it
// is set. A nil receiver has nothing set.
func (o *Overrides) value(key Key) (any, bool) {
	if o == nil {
		return nil, false
	}
	switch key {
	case KeyCategoryID:
		if o.CategoryID != nil {
			return *o.CategoryID, true
		}
	case KeyRolePermissions:
		if o.RolePermissions != nil {
			return o.RolePermissions, true
		}
	case KeyLoggingChannelID:
		if o.LoggingChannelID != nil {
			return *o.LoggingChannelID, true
		}
	case KeyIndexJoinStr:
		if o.IndexJoinStr != nil {
			return *o.IndexJoinStr, true
		}
	case KeyPingOnCreation:
		if o.PingOnCreation != nil {
			return *o.PingOnCreation, true
		}
	case KeyCreationMessage:
		if o.CreationMessage != nil {
			return *o.CreationMessage, true
		}
	}
	return nil, false
}

// FormEntry is one field of an action's data entry form.
type FormEntry struct {
	// Label is the prompt shown for the field.
	Label string `yaml:"label"`

	// Placeholder is optional example text.
	Placeholder string `yaml:"placeholder"`

	// Required is whether the field must be filled in.
	Required bool `yaml:"required"`

	// Long selects a paragraph-style input instead of a single line.
	Long bool `yaml:"long"`

	// SteamID marks the field as the user's Steam64 identity field. Its
	// value is stored on the user record and pre-filled on later forms.
	SteamID bool `yaml:"steam_id"`

	// MinLength and MaxLength bound the input. Zero means unbounded.
	MinLength int `yaml:"min_length"`
	MaxLength int `yaml:"max_length"`
}

// Action is one ticket-creation variant within a panel.
type Action struct {
	// ID is the stable identifier of the action within its panel. Assigned
	// at load time when not configured; stored on tickets instead of the
	// slot position so configuration re-ordering cannot corrupt them.
	ID string `yaml:"id"`

	// ButtonText and ButtonEmoji form the button presentation.
	ButtonText  string `yaml:"button_text"`
	ButtonEmoji string `yaml:"button_emoji"`

	// ButtonColor is one of primary, secondary, success, danger.
	ButtonColor string `yaml:"button_color"`

	// FormEntries is the ordered data entry form shown on creation.
	FormEntries []*FormEntry `yaml:"form_entries"`

	// Overrides are the action-level values for the overridable keys.
	Overrides `yaml:",inline"`
}

// ButtonName returns the display name of the action: emoji, a space, and the
// button text, with either part optional.
func (a *Action) ButtonName() string {
	return strings.TrimSpace(strings.TrimSpace(a.ButtonEmoji) + " " + strings.TrimSpace(a.ButtonText))
}

// SteamEntryIndex returns the position of the steam identity field in the
// form, or -1 when the form has none.
func (a *Action) SteamEntryIndex() int {
	for i, e := range a.FormEntries {
		if e.SteamID {
			return i
		}
	}
	return -1
}

// Embed is the styling of the panel's deployment embed.
type Embed struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Color       int    `yaml:"color"`
}

// Panel is one ticket intake surface.
type Panel struct {
	// ID is the stable identifier of the panel. Assigned at load time when
	// not configured.
	ID string `yaml:"id"`

	// Identifier is the human readable panel name.
	Identifier string `yaml:"identifier"`

	// Embed is the deployment embed styling.
	Embed Embed `yaml:"embed"`

	// Actions are the panel's action slots, in order. Slots may be empty
	// (null in the configuration file); empty slots are preserved so the
	// remaining actions keep their positions.
	Actions []*Action `yaml:"actions"`

	// EscalationRoleIDs is the ordered escalation chain, lowest level
	// first.
	EscalationRoleIDs []string `yaml:"escalation_role_ids"`

	// Server fixes the panel to a single server identifier. Mutually
	// exclusive with SelectServer.
	Server string `yaml:"server"`

	// SelectServer presents a server choice before the form.
	SelectServer bool `yaml:"select_server"`

	// Servers are the selectable server identifiers when SelectServer is
	// set. Defaults to the sorted keys of ServerMapping.
	Servers []string `yaml:"servers"`

	// ServerMapping holds per-server overrides for the overridable keys.
	ServerMapping map[string]*Overrides `yaml:"server_mapping"`

	// HasDedicatedSupportVCs enables the companion voice channel controls.
	HasDedicatedSupportVCs bool `yaml:"has_dedicated_support_vcs"`

	// PreFetchSteamURL is an optional endpoint used to look up a missing
	// Steam64 for a user; {id} is replaced with the user's platform ID.
	PreFetchSteamURL string `yaml:"pre_fetch_steam_url"`

	// Overrides are the panel-level values for the overridable keys.
	Overrides `yaml:",inline"`
}

// EscalationChain returns the escalation roles that are not already granted
// as baseline role permissions. Escalating walks this filtered chain.
func (p *Panel) EscalationChain(baseline []string) []string {
	base := make(map[string]struct{}, len(baseline))
	for _, id := range baseline {
		base[id] = struct{}{}
	}
	chain := make([]string, 0, len(p.EscalationRoleIDs))
	for _, id := range p.EscalationRoleIDs {
		if _, ok := base[id]; !ok {
			chain = append(chain, id)
		}
	}
	return chain
}

// SelectableServers returns the server identifiers offered by the server
// selection control.
func (p *Panel) SelectableServers() []string {
	if len(p.Servers) > 0 {
		return p.Servers
	}
	names := make([]string, 0, len(p.ServerMapping))
	for name := range p.ServerMapping {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}
