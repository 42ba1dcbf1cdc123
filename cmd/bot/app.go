package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dataaccess"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dialog"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/panels"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/request"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/schedule"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/ticketing"
	"github.com/Jacobbrewer1/discordgo"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

// settingsCacheTTL is how long guild settings reads may be served from the
// cache.
const settingsCacheTTL = 30 * time.Second

// reconcileSchedule re-runs the expiry reconciliation sweep while the
// process is up; the startup pass covers everything missed while it was not.
const reconcileSchedule = "@every 10m"

// IApp is the interface for the application.
type IApp interface {
	// Session returns the discord session.
	Session() *discordgo.Session

	// Log returns the logger.
	Log() *slog.Logger

	// Ticketing returns the ticket lifecycle engine.
	Ticketing() *ticketing.Service

	// Panels returns the static panel configuration.
	Panels() *panels.Config

	// Dialogs returns the confirmation dialog dispatcher.
	Dialogs() *dialog.Dispatcher

	// PendingForms returns the store for multi-step form state.
	PendingForms() *dataaccess.Cache[string, *pendingForm]

	// AllowIntake reports whether the user may open another ticket right
	// now.
	AllowIntake(userID string) bool
}

type App struct {
	// is the logger.
	*slog.Logger

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// eventNotifier is the channel for notifying of events.
	eventNotifier chan any

	// svc is the ticket lifecycle engine.
	svc *ticketing.Service

	// dialogs routes inbound events to waiting confirmation dialogs.
	dialogs *dialog.Dispatcher

	// sched runs the auto-expire timers.
	sched schedule.Scheduler

	// cron runs the periodic reconciliation sweep.
	cron *cron.Cron

	// pendingForms holds partially completed multi-step forms.
	pendingForms *dataaccess.Cache[string, *pendingForm]

	// limiter guards ticket creation per user.
	limiter *intakeLimiter

	// registeredCommands are the slash commands created per guild, kept for
	// removal on shutdown.
	registeredCommands []registeredCommand
}

type registeredCommand struct {
	guildID   string
	commandID string
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, r *mux.Router) *App {
	return &App{
		Logger: l,
		r:      r,
	}
}

func (a *App) Run() error {
	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	a.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))
	})

	a.buildTicketing()

	if err := a.RegisterDiscordHandlers(); err != nil {
		return fmt.Errorf("error registering discord handlers: %w", err)
	}

	// Start event listener.
	go a.eventListener()

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	// Register slash commands.
	if err := a.registerSlashCommands(); err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}

	a.Info("Bot is now running.")

	// Replay the persisted expiry entries, then keep sweeping.
	go func() {
		if err := a.svc.ReconcileExpiries(context.Background()); err != nil {
			a.Error("Error reconciling ticket expiries", slog.String(logging.KeyError, err.Error()))
		}
	}()
	a.cron = cron.New()
	if _, err := a.cron.AddFunc(reconcileSchedule, func() {
		if err := a.svc.ReconcileExpiries(context.Background()); err != nil {
			a.Error("Error reconciling ticket expiries", slog.String(logging.KeyError, err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("error scheduling expiry reconciliation: %w", err)
	}
	a.cron.Start()

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Process shutdown signal.
	for sig := range c {
		a.Info("Received shutdown signal", slog.String("signal", sig.String()))
		if err := a.ShutdownHook(); err != nil {
			a.Error("Error shutting down application", slog.String(logging.KeyError, err.Error()))
		}
		os.Exit(0)
	}
	return nil
}

// buildTicketing wires the lifecycle engine onto the session. The settings
// layer is fronted by the TTL cache; everything else talks to Mongo
// directly.
func (a *App) buildTicketing() {
	a.dialogs = dialog.NewDispatcher()
	a.sched = schedule.NewScheduler()
	a.pendingForms = dataaccess.NewCache[string, *pendingForm](pendingFormTTL)
	a.limiter = newIntakeLimiter()

	a.svc = ticketing.NewService(
		a.Logger,
		Panels,
		dataaccess.NewTicketDal(),
		dataaccess.NewUserDal(),
		dataaccess.NewCachedSettingsDal(dataaccess.NewSettingsDal(), settingsCacheTTL),
		newDiscordPlatform(a.s),
		newChannelTranscriber(a.s),
		a.dialogs,
		a.sched,
	)
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	TotalDiscordGuilds.Set(0)

	if a.cron != nil {
		a.cron.Stop()
	}
	a.sched.Stop()

	// Unregister slash commands.
	if err := a.unregisterSlashCommands(); err != nil {
		return fmt.Errorf("error unregistering slash commands: %w", err)
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsAll)

	if a.eventNotifier == nil {
		// Create event notifier. This is used to runServer events. It is buffered to prevent blocking.
		a.eventNotifier = make(chan any, 100)
	}

	dg.SetEventNotifier(a.eventNotifier)

	a.s = dg
	return nil
}

func (a *App) runServer() {
	go func() {
		a.Info("Starting monitoring server")
		if err := a.svr.ListenAndServe(); err != nil {
			a.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) setupRoutes() {
	// PathMetrics is the path for metrics.
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	// PathHealth is the path for health check.
	a.r.HandleFunc(PathHealth, middlewareHttp(a.healthCheck(), a)).Methods(http.MethodGet)

	// NotFoundHandler is the handler for 404.
	a.r.NotFoundHandler = request.NotFoundHandler(a.Logger)

	// MethodNotAllowedHandler is the handler for 405.
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.Logger)
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:    ":" + MonitoringPort,
		Handler: a.r,
	}
}

func (a *App) GetJoinedGuilds() ([]*discordgo.UserGuild, error) {
	guilds, err := a.s.UserGuilds(0, "", "")
	if err != nil {
		return nil, fmt.Errorf("error getting guilds: %w", err)
	}
	return guilds, nil
}

func (a *App) RegisterDiscordHandlers() error {
	// Bot joined guild.
	a.s.AddHandler(guildJoinedHandler(a))

	// Bot left guild.
	a.s.AddHandler(guildLeaveHandler(a))

	// Plain messages feed waiting dialogs (free-text close reasons).
	a.s.AddHandler(messageCreateHandler(a))

	// Interaction create handler.
	a.s.AddHandler(interactionHandler(a,
		// Slash Controllers
		map[string]commandProcessor{
			DeployPanelCmdName:     deployPanelHandler,
			SetTicketActionCmdName: setTicketActionHandler,
		},
		// Component Controllers, keyed by custom ID kind.
		map[string]commandProcessor{
			ticketing.IDPanelAction:  ticketActionButtonHandler,
			ticketing.IDServerSelect: serverSelectHandler,
			ticketing.IDFormContinue: formContinueHandler,
			ticketing.IDClaim:        claimHandler,
			ticketing.IDUnclaim:      unclaimHandler,
			ticketing.IDClose:        closeHandler,
			ticketing.IDRequestClose: requestCloseHandler,
			ticketing.IDExpire:       expireToggleHandler,
			ticketing.IDEscalate:     escalateHandler,
			ticketing.IDDeescalate:   deescalateHandler,
			ticketing.IDSupportVC:    supportVCHandler,
			ticketing.IDSwitchForm:   switchFormButtonHandler,
		}))
	return nil
}

func (a *App) eventListener() {
	for e := range a.eventNotifier {
		switch t := e.(type) {
		case *discordgo.Event:
			if t.Type != "" {
				TotalDiscordEvents.WithLabelValues(t.Type).Inc()
			} else {
				// If there is no type, then use the operation name.
				TotalDiscordEvents.WithLabelValues(strings.ToUpper(t.Operation.String())).Inc()
			}
		default:
			a.Error("Unknown event type", slog.String("type", fmt.Sprintf("%T", e)))
			TotalDiscordEvents.WithLabelValues("UNKNOWN").Inc()
		}
	}
}

func (a *App) registerSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	// Register slash commands for each guild.
	for _, g := range guilds {
		for _, cmd := range applicationCommands() {
			created, err := a.Session().ApplicationCommandCreate(ApplicationId, g.ID, cmd)
			if err != nil {
				return fmt.Errorf("error creating %s command for guild %s: %w", cmd.Name, g.ID, err)
			}
			a.registeredCommands = append(a.registeredCommands, registeredCommand{
				guildID:   g.ID,
				commandID: created.ID,
			})
		}
	}
	return nil
}

func (a *App) unregisterSlashCommands() error {
	for _, rc := range a.registeredCommands {
		if err := a.s.ApplicationCommandDelete(ApplicationId, rc.guildID, rc.commandID); err != nil {
			return fmt.Errorf("error deleting command for guild %s: %w", rc.guildID, err)
		}
	}
	return nil
}

func (a *App) Session() *discordgo.Session {
	return a.s
}

func (a *App) Log() *slog.Logger {
	return a.Logger
}

func (a *App) Ticketing() *ticketing.Service {
	return a.svc
}

func (a *App) Panels() *panels.Config {
	return Panels
}

func (a *App) Dialogs() *dialog.Dispatcher {
	return a.dialogs
}

func (a *App) PendingForms() *dataaccess.Cache[string, *pendingForm] {
	return a.pendingForms
}

func (a *App) AllowIntake(userID string) bool {
	return a.limiter.allow(userID)
}
