package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/UCCNetsoc/cloud/internal/actions"
	"github.com/UCCNetsoc/cloud/internal/api"
	"github.com/UCCNetsoc/cloud/internal/cloud"
	"github.com/UCCNetsoc/cloud/internal/config"
	"github.com/UCCNetsoc/cloud/internal/session"
	"github.com/UCCNetsoc/cloud/internal/store"
)

// overlay identifies which dialog, if any, sits on top of the table.
type overlay int

const (
	overlayNone overlay = iota
	overlayDetail
	overlayConfirmDelete
	overlayConfirmQuit
	overlayVHostForm
	overlayRemoveVHost
	overlayPortForm
	overlayRemovePort
	overlayRequestForm
	overlayApproval
	overlaySignup
	overlayVerify
)

// model is the state of the bubbletea application.
type model struct {
	version string
	cfg     *config.Config
	session *session.Manager
	client  *api.Client
	store   *store.Store
	actions *actions.Controller
	log     *zap.SugaredLogger

	width  int
	height int

	// session snapshot, updated from session events
	state session.State
	user  *session.User

	// resource snapshot, updated from store notifications
	instances []cloud.Instance
	derived   []store.Derived
	table     table.Model
	started   bool

	overlay overlay
	// detailKey pins the overlay target across refreshes
	detailKey string

	vhostForm   vhostForm
	portForm    portForm
	requestForm requestForm
	approval    approvalForm
	signupForm  signupForm
	verifyForm  verifyForm
	removal     removalPicker

	notice    string
	noticeErr bool

	storeCh   <-chan struct{}
	sessionCh <-chan session.Event
	actionCh  <-chan actions.Notification
}

func newModel(version string, cfg *config.Config, sess *session.Manager, client *api.Client, resources *store.Store, controller *actions.Controller, log *zap.SugaredLogger) model {
	return model{
		version:   version,
		cfg:       cfg,
		session:   sess,
		client:    client,
		store:     resources,
		actions:   controller,
		log:       log,
		state:     session.Unauthenticated,
		table:     createInstanceTable(nil, nil),
		storeCh:   resources.Subscribe(),
		sessionCh: sess.Events(),
		actionCh:  controller.Notifications(),
	}
}

// Init arms the channel listeners.
func (m model) Init() tea.Cmd {
	return tea.Batch(
		listenForStoreUpdates(m.storeCh),
		listenForSessionEvents(m.sessionCh),
		listenForActionNotices(m.actionCh),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 8
		footerHeight := 3
		m.table.SetWidth(m.width - 4)
		m.table.SetHeight(m.height - headerHeight - footerHeight)

	case storeUpdatedMsg:
		m.instances, m.derived = m.store.Instances()
		cursor := m.table.Cursor()
		m.table = createInstanceTable(m.instances, m.derived)
		if cursor < len(m.instances) {
			m.table.SetCursor(cursor)
		}
		if err := m.store.LastError(); err != nil {
			m.setNotice("could not refresh resources: "+err.Error(), true)
		}
		// Close the detail overlay if its instance disappeared.
		if m.overlay == overlayDetail {
			if _, ok := m.store.Instance(m.detailKey); !ok {
				m.overlay = overlayNone
			}
		}
		return m, listenForStoreUpdates(m.storeCh)

	case sessionEventMsg:
		m.state = msg.State
		m.user = msg.User
		cmds := []tea.Cmd{listenForSessionEvents(m.sessionCh)}
		if msg.State == session.Authenticated && !m.started {
			m.started = true
			cmds = append(cmds, m.bootCmd())
		}
		if msg.State == session.Unauthenticated && m.started {
			m.setNotice("session expired, sign in again", true)
		}
		return m, tea.Batch(cmds...)

	case actionNoticeMsg:
		m.setNotice(msg.Message, msg.Err != nil)
		return m, listenForActionNotices(m.actionCh)

	case signInDoneMsg:
		if msg.err != nil {
			m.setNotice("sign-in failed: "+msg.err.Error(), true)
		}
		return m, nil

	case formDoneMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
		} else {
			m.setNotice(msg.message, false)
			m.overlay = overlayNone
		}
		return m, nil

	case freePortMsg:
		if msg.err == nil && m.overlay == overlayPortForm {
			m.portForm.external.value = msg.port
		}
		return m, nil

	case approvalTemplateMsg:
		if msg.err == nil && m.overlay == overlayApproval {
			m.approval.template = msg.template
		}
		return m, nil

	case vhostRequirementsMsg:
		if msg.err == nil && m.overlay == overlayVHostForm {
			m.vhostForm.requirements = msg.requirements
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, cmd
}

// bootCmd runs the post-login sequence: ensure the platform home
// directory exists, then start polling.
func (m model) bootCmd() tea.Cmd {
	client, resources := m.client, m.store
	return func() tea.Msg {
		ctx := context.Background()
		if err := client.EnsureHomeDirectory(ctx); err != nil {
			return formDoneMsg{err: err}
		}
		resources.Start(ctx)
		return nil
	}
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Overlays consume all input while open.
	switch m.overlay {
	case overlayConfirmQuit:
		switch msg.String() {
		case "y":
			return m, tea.Quit
		case "q", "esc", "n":
			m.overlay = overlayNone
		}
		return m, nil
	case overlayConfirmDelete:
		return m.updateConfirmDelete(msg)
	case overlayDetail:
		return m.updateDetail(msg)
	case overlayVHostForm:
		return m.updateVHostForm(msg)
	case overlayRemoveVHost, overlayRemovePort:
		return m.updateRemovalPicker(msg)
	case overlayPortForm:
		return m.updatePortForm(msg)
	case overlayRequestForm:
		return m.updateRequestForm(msg)
	case overlayApproval:
		return m.updateApprovalForm(msg)
	case overlaySignup:
		return m.updateSignupForm(msg)
	case overlayVerify:
		return m.updateVerifyForm(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.overlay = overlayConfirmQuit
		return m, nil
	case "l":
		if m.state != session.Authenticated {
			sess := m.session
			return m, func() tea.Msg {
				return signInDoneMsg{err: sess.SignIn(context.Background())}
			}
		}
	case "o":
		if m.state == session.Authenticated {
			sess := m.session
			return m, func() tea.Msg {
				return signInDoneMsg{err: sess.SignOut(context.Background())}
			}
		}
	case "u":
		if m.state != session.Authenticated {
			m.signupForm = signupForm{}
			m.overlay = overlaySignup
		}
		return m, nil
	case "e":
		if m.state != session.Authenticated {
			m.verifyForm = verifyForm{}
			m.overlay = overlayVerify
		}
		return m, nil
	case "g":
		if m.state == session.Authenticated {
			m.approval = approvalForm{}
			m.overlay = overlayApproval
		}
		return m, nil
	case "c":
		if m.state == session.Authenticated {
			m.requestForm = requestForm{templates: m.store.Templates()}
			m.overlay = overlayRequestForm
			return m, nil
		}
	case "enter":
		if m.state == session.Authenticated && len(m.instances) > 0 {
			cursor := m.table.Cursor()
			if cursor >= 0 && cursor < len(m.instances) {
				m.detailKey = m.instances[cursor].Key()
				m.overlay = overlayDetail
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// updateDetail drives the per-instance action keys.
func (m model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	instance, ok := m.store.Instance(m.detailKey)
	if !ok {
		m.overlay = overlayNone
		return m, nil
	}
	if _, busy := m.actions.Pending(m.detailKey); busy {
		if msg.String() == "esc" {
			m.overlay = overlayNone
		}
		return m, nil
	}

	ctx := context.Background()
	var err error
	switch msg.String() {
	case "esc":
		m.overlay = overlayNone
	case "s":
		err = m.actions.Start(ctx, instance)
	case "S":
		err = m.actions.Stop(ctx, instance)
	case "h":
		err = m.actions.Shutdown(ctx, instance)
	case "r":
		err = m.actions.ResetRootPassword(ctx, instance)
	case "a":
		err = m.actions.Reactivate(ctx, instance)
	case "d":
		m.overlay = overlayConfirmDelete
	case "v":
		m.vhostForm = vhostForm{}
		m.overlay = overlayVHostForm
		client := m.client
		return m, func() tea.Msg {
			requirements, err := client.VHostRequirements(context.Background())
			return vhostRequirementsMsg{requirements: requirements, err: err}
		}
	case "V":
		m.removal = newVHostPicker(instance)
		if len(m.removal.entries) > 0 {
			m.overlay = overlayRemoveVHost
		}
	case "p":
		m.portForm = portForm{}
		m.overlay = overlayPortForm
		client := m.client
		typ, hostname := instance.Type, instance.Hostname
		return m, func() tea.Msg {
			port, err := client.FreeExternalPort(context.Background(), typ, hostname)
			return freePortMsg{port: itoa(port), err: err}
		}
	case "P":
		m.removal = newPortPicker(instance)
		if len(m.removal.entries) > 0 {
			m.overlay = overlayRemovePort
		}
	}
	if err != nil {
		m.setNotice(err.Error(), true)
	}
	return m, nil
}

func (m model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		if instance, ok := m.store.Instance(m.detailKey); ok {
			if err := m.actions.Delete(context.Background(), instance); err != nil {
				m.setNotice(err.Error(), true)
			}
		}
		m.overlay = overlayNone
	case "q", "esc", "n":
		m.overlay = overlayDetail
	}
	return m, nil
}

func (m *model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}
