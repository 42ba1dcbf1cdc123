package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/dialog"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/logging"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/request"
	"github.com/Fubar-Roleplay-Dev/Lost-Land-Bot/pkg/ticketing"
	"github.com/Jacobbrewer1/discordgo"
	"github.com/gorilla/mux"
)

// commandProcessor is the processor for slash commands and components.
type commandProcessor func(a IApp, i *discordgo.InteractionCreate) error

type Controller func(w http.ResponseWriter, r *http.Request)

func middlewareHttp(handler Controller, a IApp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		cw := request.NewClientWriter(w)

		// Recover from any panics that occur in the handler.
		defer func() {
			if rec := recover(); rec != nil {
				a.Log().Error("Panic in handler",
					slog.String(logging.KeyError, fmt.Sprintf("%v", rec)),
					slog.String("stack", string(debug.Stack())),
				)
				cw.WriteHeader(http.StatusInternalServerError)
				if err := json.NewEncoder(cw).Encode(request.NewMessage(request.ErrInternalServer.Error())); err != nil {
					a.Log().Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
				}
			}
		}()

		var path string
		route := mux.CurrentRoute(r)
		if route != nil { // The route may be nil if the request is not routed.
			var err error
			path, err = route.GetPathTemplate()
			if err != nil {
				// An error here is only returned if the route does not define a path.
				a.Log().Error("Error getting path template", slog.String(logging.KeyError, err.Error()))
				path = r.URL.Path // If the route does not define a path, use the URL path.
			}
		} else {
			path = r.URL.Path // If the route is nil, use the URL path.
		}

		defer func() {
			// Run the deferred function after the request has been handled, as the status code will not be available until then.
			HttpTotalRequests.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Inc()
			HttpRequestDuration.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Observe(time.Since(now).Seconds())
		}()

		handler(cw, r)
	}
}

// interactionHandler routes every interaction. Slash commands dispatch by
// name; components and modals dispatch by the kind embedded in their custom
// ID. Component clicks a dialog is waiting on are consumed by the dialog and
// never reach the handler maps.
func interactionHandler(a IApp, commands, components map[string]commandProcessor) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			handleSlashCommand(a, i, commands)
		case discordgo.InteractionMessageComponent:
			handleComponent(a, i, components)
		case discordgo.InteractionModalSubmit:
			handleModalSubmit(a, i)
		default:
			a.Log().Debug("Ignoring interaction", slog.String("type", fmt.Sprintf("%d", i.Type)))
		}
	}
}

func handleSlashCommand(a IApp, i *discordgo.InteractionCreate, commands map[string]commandProcessor) {
	name := i.ApplicationCommandData().Name
	a.Log().Debug("Handling interaction " + name)

	t := time.Now().UTC()
	defer func() {
		DiscordCommandDuration.WithLabelValues(name).Observe(time.Since(t).Seconds())
	}()

	processor, ok := commands[name]
	if !ok {
		a.Log().Error("No controller found for command", slog.String("command", name))
		if err := respondSlashError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	}

	if err := processor(a, i); err != nil {
		a.Log().Error(fmt.Sprintf("Error processing command %s", name),
			slog.String(logging.KeyError, err.Error()))
		if err := respondSlashError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
	}
}

func handleComponent(a IApp, i *discordgo.InteractionCreate, components map[string]commandProcessor) {
	data := i.MessageComponentData()

	ev := dialog.Event{
		Kind:      dialog.KindButton,
		CustomID:  data.CustomID,
		ChannelID: i.ChannelID,
		UserID:    interactionUserID(i),
	}
	if a.Dialogs().Waiting(ev) {
		// Acknowledge the click, then hand it to the waiting dialog.
		if err := respondDeferredUpdate(a, i); err != nil {
			a.Log().Error("Error acknowledging dialog component", slog.String(logging.KeyError, err.Error()))
		}
		a.Dialogs().Offer(ev)
		return
	}

	kind, _, ok := ticketing.ParseCustomID(data.CustomID)
	if !ok {
		a.Log().Debug("Ignoring component with foreign custom ID", slog.String("custom_id", data.CustomID))
		return
	}

	processor, ok := components[kind]
	if !ok {
		a.Log().Error("No controller found for component", slog.String("custom_id", data.CustomID))
		if err := respondSlashError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	}

	if err := processor(a, i); err != nil {
		a.Log().Error(fmt.Sprintf("Error processing component %s", kind),
			slog.String(logging.KeyError, err.Error()))
		if err := respondUserError(a, i, err); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
	}
}

func handleModalSubmit(a IApp, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()

	kind, _, ok := ticketing.ParseCustomID(data.CustomID)
	if !ok {
		a.Log().Debug("Ignoring modal with foreign custom ID", slog.String("custom_id", data.CustomID))
		return
	}

	if kind != ticketing.IDModal {
		a.Log().Error("No controller found for modal", slog.String("custom_id", data.CustomID))
		return
	}

	if err := formPageSubmitHandler(a, i); err != nil {
		a.Log().Error(fmt.Sprintf("Error processing modal %s", kind),
			slog.String(logging.KeyError, err.Error()))
		if err := respondUserError(a, i, err); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
	}
}

// messageCreateHandler feeds plain channel messages to waiting dialogs; a
// free-text message in a ticket channel is how a closing staff member
// supplies the close reason.
func messageCreateHandler(a IApp) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}

		consumed := a.Dialogs().Offer(dialog.Event{
			Kind:      dialog.KindMessage,
			ChannelID: m.ChannelID,
			UserID:    m.Author.ID,
			Content:   m.Content,
		})
		if consumed {
			a.Log().Debug("Message consumed by dialog",
				slog.String(logging.KeyChannelID, m.ChannelID))
		}
	}
}
