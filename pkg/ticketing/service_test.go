package ticketing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dataaccess"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dialog"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/entities"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/schedule"
)

// In-memory stand-ins for the DAL interfaces and the platform contract.
// They reproduce the externally visible behaviour the engine depends on,
// including the optimistic version check on ticket saves.

type fakeTickets struct {
	mu   sync.Mutex
	byID map[string]*entities.Ticket
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{byID: make(map[string]*entities.Ticket)}
}

func cloneTicket(t *entities.Ticket) *entities.Ticket {
	c := *t
	c.ActiveStaffIDs = append([]string(nil), t.ActiveStaffIDs...)
	return &c
}

func (f *fakeTickets) CreateTicket(_ context.Context, t *entities.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[t.ID] = cloneTicket(t)
	return nil
}

func (f *fakeTickets) SaveTicket(_ context.Context, t *entities.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cur, ok := f.byID[t.ID]
	if !ok {
		return dataaccess.ErrNotFound
	}
	if cur.Version != t.Version {
		return fmt.Errorf("ticket %s at version %d: %w", t.ID, t.Version, dataaccess.ErrVersionConflict)
	}
	t.Version++
	f.byID[t.ID] = cloneTicket(t)
	return nil
}

func (f *fakeTickets) GetTicketByID(_ context.Context, id string) (*entities.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.byID[id]
	if !ok {
		return nil, dataaccess.ErrNotFound
	}
	return cloneTicket(t), nil
}

func (f *fakeTickets) GetTicketByChannel(_ context.Context, guildID string, channelID string) (*entities.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.byID {
		if t.GuildID == guildID && t.ChannelID == channelID {
			return cloneTicket(t), nil
		}
	}
	return nil, dataaccess.ErrNotFound
}

func (f *fakeTickets) NextTicketIndex(_ context.Context, guildID string, panelID string, actionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	max := 0
	for _, t := range f.byID {
		if t.GuildID == guildID && t.PanelID == panelID && t.ActionID == actionID && t.Index > max {
			max = t.Index
		}
	}
	return max + 1, nil
}

type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]*entities.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*entities.User)}
}

func (f *fakeUsers) GetUser(_ context.Context, discordID string) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[discordID]
	if !ok {
		return nil, dataaccess.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) SaveUser(_ context.Context, u *entities.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := *u
	f.byID[u.DiscordID] = &c
	return nil
}

type fakeSettings struct {
	mu      sync.Mutex
	byGuild map[string]*entities.GuildSettings
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{byGuild: make(map[string]*entities.GuildSettings)}
}

func cloneSettings(s *entities.GuildSettings) *entities.GuildSettings {
	c := *s
	c.AutoExpire = append([]entities.AutoExpireEntry(nil), s.AutoExpire...)
	return &c
}

func (f *fakeSettings) GetSettings(_ context.Context, guildID string) (*entities.GuildSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.byGuild[guildID]
	if !ok {
		return nil, dataaccess.ErrNotFound
	}
	return cloneSettings(s), nil
}

func (f *fakeSettings) SaveSettings(_ context.Context, s *entities.GuildSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.byGuild[s.GuildID] = cloneSettings(s)
	return nil
}

func (f *fakeSettings) AllSettings(_ context.Context) ([]*entities.GuildSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []*entities.GuildSettings
	for _, s := range f.byGuild {
		all = append(all, cloneSettings(s))
	}
	return all, nil
}

type sentMessage struct {
	id        string
	channelID string
	notice    Notice
}

type createdChannel struct {
	id     string
	params ChannelParams
}

type fakePlatform struct {
	mu sync.Mutex

	nextChannel int
	nextMessage int

	channels    []createdChannel
	deleted     []string
	renames     map[string]string
	topics      map[string]string
	perms       map[string][]string // channelID -> role grants (full set)
	allowed     map[string][]string // channelID -> AllowRole calls, in order
	denied      map[string][]string // channelID -> DenyRole calls, in order
	sends       []sentMessage
	pins        []string
	unpins      []string
	deletedMsgs []string
	dms         map[string][]Notice
	memberRoles map[string][]string // userID -> held roles

	failSend   bool
	failDelete bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		renames:     make(map[string]string),
		topics:      make(map[string]string),
		perms:       make(map[string][]string),
		allowed:     make(map[string][]string),
		denied:      make(map[string][]string),
		dms:         make(map[string][]Notice),
		memberRoles: make(map[string][]string),
	}
}

func (f *fakePlatform) CreateChannel(_ context.Context, _ string, params ChannelParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextChannel++
	id := fmt.Sprintf("chan-%d", f.nextChannel)
	f.channels = append(f.channels, createdChannel{id: id, params: params})
	f.perms[id] = append([]string(nil), params.RoleIDs...)
	return id, nil
}

func (f *fakePlatform) RenameChannel(_ context.Context, channelID string, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renames[channelID] = name
	return nil
}

func (f *fakePlatform) SetTopic(_ context.Context, channelID string, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics[channelID] = topic
	return nil
}

func (f *fakePlatform) DeleteChannel(_ context.Context, channelID string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return fmt.Errorf("missing permission")
	}
	f.deleted = append(f.deleted, channelID)
	return nil
}

func (f *fakePlatform) SetPermissions(_ context.Context, channelID string, _ []string, roleIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perms[channelID] = append([]string(nil), roleIDs...)
	return nil
}

func (f *fakePlatform) AllowRole(_ context.Context, channelID string, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowed[channelID] = append(f.allowed[channelID], roleID)
	f.perms[channelID] = append(f.perms[channelID], roleID)
	return nil
}

func (f *fakePlatform) DenyRole(_ context.Context, channelID string, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.denied[channelID] = append(f.denied[channelID], roleID)
	kept := f.perms[channelID][:0]
	for _, r := range f.perms[channelID] {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	f.perms[channelID] = kept
	return nil
}

func (f *fakePlatform) Send(_ context.Context, channelID string, notice Notice) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return "", fmt.Errorf("send rejected")
	}
	f.nextMessage++
	id := fmt.Sprintf("msg-%d", f.nextMessage)
	f.sends = append(f.sends, sentMessage{id: id, channelID: channelID, notice: notice})
	return id, nil
}

func (f *fakePlatform) Pin(_ context.Context, _ string, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pins = append(f.pins, messageID)
	return nil
}

func (f *fakePlatform) Unpin(_ context.Context, _ string, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unpins = append(f.unpins, messageID)
	return nil
}

func (f *fakePlatform) DeleteMessage(_ context.Context, _ string, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedMsgs = append(f.deletedMsgs, messageID)
	return nil
}

func (f *fakePlatform) DM(_ context.Context, userID string, notice Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms[userID] = append(f.dms[userID], notice)
	return nil
}

func (f *fakePlatform) MemberHasRole(_ context.Context, _ string, userID string, roleID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.memberRoles[userID] {
		if r == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePlatform) sendsTo(channelID string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []sentMessage
	for _, m := range f.sends {
		if m.channelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakePlatform) deletedChannels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeTranscriber struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, channelName string) (*File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("history unavailable")
	}
	return &File{
		Name:        fmt.Sprintf("transcript-%s.html", channelName),
		ContentType: "text/html",
		Data:        []byte("<html></html>"),
	}, nil
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// testPanelConfig is the configuration Scenario A runs against: category C1,
// baseline role R1, escalation chain [R2, R3], plus a second action and a
// second panel for switch-action coverage.
func testPanelConfig(t *testing.T) *panels.Config {
	t.Helper()

	const raw = `
panels:
  - identifier: Support
    embed:
      title: Support
      color: 0x58B9FF
    category_id: "C1"
    logging_channel_id: "LOG"
    role_permissions: ["R1"]
    escalation_role_ids: ["R2", "R3"]
    has_dedicated_support_vcs: true
    actions:
      - button_text: General
        form_entries:
          - label: What happened?
            required: true
      - button_text: Ban Appeal
        form_entries:
          - label: Steam64 ID
            required: true
            steam_id: true
          - label: Why should we lift the ban?
            required: true
            long: true
  - identifier: Reports
    embed:
      title: Reports
      color: 0xFF0000
    category_id: "C2"
    role_permissions: ["R9"]
    actions:
      - button_text: Player Report
`
	cfg, err := panels.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parsing test panels: %v", err)
	}
	return cfg
}

type testEnv struct {
	svc         *Service
	tickets     *fakeTickets
	users       *fakeUsers
	settings    *fakeSettings
	platform    *fakePlatform
	transcriber *fakeTranscriber
	dialogs     *dialog.Dispatcher
	sched       schedule.Scheduler
	clock       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		tickets:     newFakeTickets(),
		users:       newFakeUsers(),
		settings:    newFakeSettings(),
		platform:    newFakePlatform(),
		transcriber: &fakeTranscriber{},
		dialogs:     dialog.NewDispatcher(),
		sched:       schedule.NewScheduler(),
		clock:       time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	t.Cleanup(env.sched.Stop)

	env.svc = NewService(
		slog.New(slog.NewTextHandler(testWriter{t}, nil)),
		testPanelConfig(t),
		env.tickets,
		env.users,
		env.settings,
		env.platform,
		env.transcriber,
		env.dialogs,
		env.sched,
	)
	env.svc.now = func() time.Time { return env.clock }
	return env
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// create opens a ticket through the real intake path and returns it.
func (env *testEnv) create(t *testing.T, userID string, username string) *entities.Ticket {
	t.Helper()

	ticket, err := env.svc.CreateTicket(context.Background(), CreateParams{
		GuildID:  "G1",
		PanelID:  "support",
		ActionID: "general",
		UserID:   userID,
		Username: username,
		FormValues: []FormValue{
			{Label: "What happened?", Value: "I need help"},
		},
	})
	if err != nil {
		t.Fatalf("creating ticket: %v", err)
	}
	return ticket
}
