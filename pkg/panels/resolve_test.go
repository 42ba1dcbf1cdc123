package panels

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func testPanel() *Panel {
	return &Panel{
		ID:         "support",
		Identifier: "Support",
		Overrides: Overrides{
			CategoryID:       strPtr("cat-panel"),
			LoggingChannelID: strPtr("log-panel"),
			RolePermissions:  []string{"r-panel"},
		},
		Actions: []*Action{
			{
				ID:         "general",
				ButtonText: "General",
				Overrides: Overrides{
					CategoryID: strPtr("cat-action"),
				},
			},
			nil,
			{
				ID:         "report",
				ButtonText: "Report",
			},
		},
		ServerMapping: map[string]*Overrides{
			"chernarus": {
				CategoryID:     strPtr("cat-server"),
				PingOnCreation: boolPtr(true),
			},
		},
	}
}

func TestResolve_Precedence(t *testing.T) {
	p := testPanel()
	general, ok := p.ActionByID("general")
	require.True(t, ok)
	report, ok := p.ActionByID("report")
	require.True(t, ok)

	tests := []struct {
		name   string
		key    Key
		action *Action
		server string
		want   any
		wantOk bool
	}{
		{
			name:   "ServerOverrideWins",
			key:    KeyCategoryID,
			action: general,
			server: "chernarus",
			want:   "cat-server",
			wantOk: true,
		},
		{
			name:   "ActionBeatsPanel",
			key:    KeyCategoryID,
			action: general,
			want:   "cat-action",
			wantOk: true,
		},
		{
			name:   "PanelFallback",
			key:    KeyCategoryID,
			action: report,
			want:   "cat-panel",
			wantOk: true,
		},
		{
			name:   "UnknownServerFallsThrough",
			key:    KeyCategoryID,
			action: report,
			server: "livonia",
			want:   "cat-panel",
			wantOk: true,
		},
		{
			name:   "ServerMappingOnlyCoversItsKeys",
			key:    KeyLoggingChannelID,
			action: general,
			server: "chernarus",
			want:   "log-panel",
			wantOk: true,
		},
		{
			name:   "UnsetEverywhere",
			key:    KeyCreationMessage,
			action: general,
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.key, p, tt.action, tt.server)
			require.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResolve_TypedHelpers(t *testing.T) {
	p := testPanel()
	general, _ := p.ActionByID("general")

	require.Equal(t, "cat-action", ResolveString(KeyCategoryID, p, general, ""))
	require.Equal(t, "", ResolveString(KeyCreationMessage, p, general, ""))
	require.True(t, ResolveBool(KeyPingOnCreation, p, general, "chernarus"))
	require.False(t, ResolveBool(KeyPingOnCreation, p, general, ""))
	require.Equal(t, []string{"r-panel"}, ResolveRoles(p, general, ""))
	require.Equal(t, "-", ResolveJoinStr(p, general, ""))
}

func TestConfig_ListActions_SkipsGaps(t *testing.T) {
	c := &Config{Panels: []*Panel{testPanel()}}

	refs := c.ListActions()
	require.Len(t, refs, 2)
	require.Equal(t, "general", refs[0].Action.ID)
	require.Equal(t, "report", refs[1].Action.ID)
	require.Equal(t, "support", refs[0].Panel.ID)
}

func TestPanel_EscalationChain(t *testing.T) {
	p := &Panel{EscalationRoleIDs: []string{"r1", "r2", "r3"}}

	require.Equal(t, []string{"r2", "r3"}, p.EscalationChain([]string{"r1"}))
	require.Equal(t, []string{"r1", "r2", "r3"}, p.EscalationChain(nil))
	require.Empty(t, p.EscalationChain([]string{"r1", "r2", "r3"}))
}

func TestAction_ButtonName(t *testing.T) {
	require.Equal(t, "🎫 General", (&Action{ButtonText: "General", ButtonEmoji: "🎫"}).ButtonName())
	require.Equal(t, "General", (&Action{ButtonText: "General"}).ButtonName())
	require.Equal(t, "🎫", (&Action{ButtonEmoji: "🎫"}).ButtonName())
}
