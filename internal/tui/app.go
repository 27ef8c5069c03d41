// Package tui is the terminal frontend of the Netsoc cloud panel. It is
// a thin presentation layer over the session manager, the resource
// store and the action controller; every mutation goes through those
// and comes back as a channel event that re-renders the view.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/UCCNetsoc/cloud/internal/actions"
	"github.com/UCCNetsoc/cloud/internal/api"
	"github.com/UCCNetsoc/cloud/internal/config"
	"github.com/UCCNetsoc/cloud/internal/session"
	"github.com/UCCNetsoc/cloud/internal/store"
)

// storeUpdatedMsg is sent whenever the resource store has new contents.
type storeUpdatedMsg struct{}

// sessionEventMsg carries a session state transition.
type sessionEventMsg session.Event

// actionNoticeMsg carries the outcome of a finished instance action.
type actionNoticeMsg actions.Notification

// signInDoneMsg is sent when an interactive sign-in attempt returns.
type signInDoneMsg struct{ err error }

// formDoneMsg is sent when a form submission (request, signup,
// verification, approval decision) returns.
type formDoneMsg struct {
	message string
	err     error
}

// App wires the panel together and owns the bubbletea program.
type App struct {
	program *tea.Program
	session *session.Manager
	store   *store.Store
	log     *zap.SugaredLogger
}

// New builds the full application from config: session manager, API
// client, store, action controller and the initial model.
func New(ctx context.Context, version string, cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	sess, err := session.New(ctx, cfg.OIDC, log)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.APIBaseURL, sess, log)
	resources := store.New(client, cfg.PollInterval, log)
	controller := actions.New(client, resources, log)

	m := newModel(version, cfg, sess, client, resources, controller, log)
	p := tea.NewProgram(m, tea.WithAltScreen())

	return &App{
		program: p,
		session: sess,
		store:   resources,
		log:     log,
	}, nil
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	_, err := a.program.Run()
	a.store.Stop()
	a.session.Close()
	return err
}

// listenForStoreUpdates re-arms itself from Update after each message.
func listenForStoreUpdates(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return storeUpdatedMsg{}
	}
}

func listenForSessionEvents(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return sessionEventMsg(event)
	}
}

func listenForActionNotices(ch <-chan actions.Notification) tea.Cmd {
	return func() tea.Msg {
		note, ok := <-ch
		if !ok {
			return nil
		}
		return actionNoticeMsg(note)
	}
}
