package tui

import (
	"context"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/UCCNetsoc/cloud/internal/approval"
	"github.com/UCCNetsoc/cloud/internal/cloud"
	"github.com/UCCNetsoc/cloud/internal/rest"
)

// infoMessage extracts the display message of an info envelope.
func infoMessage(info *rest.Info, fallback string) string {
	if info != nil && info.Detail != nil && info.Detail.Msg != "" {
		return info.Detail.Msg
	}
	return fallback
}

// freePortMsg carries the suggested external port for the port form.
type freePortMsg struct {
	port string
	err  error
}

// vhostRequirementsMsg carries the DNS setup notes for the vhost form.
type vhostRequirementsMsg struct {
	requirements *cloud.VHostRequirements
	err          error
}

// textField is a minimal single-line input. numeric restricts it to
// digits, secret masks the rendered value.
type textField struct {
	value   string
	numeric bool
	secret  bool
}

func (f *textField) handleKey(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		for _, r := range msg.Runes {
			if f.numeric && (r < '0' || r > '9') {
				continue
			}
			if r == ' ' && f.numeric {
				continue
			}
			f.value += string(r)
		}
	case tea.KeyBackspace:
		if len(f.value) > 0 {
			f.value = f.value[:len(f.value)-1]
		}
	}
}

func (f textField) display() string {
	if f.secret {
		return strings.Repeat("*", len(f.value))
	}
	return f.value
}

func itoa(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// vhostForm binds a domain to the selected instance.
// Steps: 0 domain, 1 internal port, 2 self-managed-TLS toggle.
type vhostForm struct {
	step         int
	domain       textField
	port         textField
	https        bool
	fieldErr     string
	requirements *cloud.VHostRequirements
}

func (m model) updateVHostForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.vhostForm
	switch msg.String() {
	case "esc":
		m.overlay = overlayDetail
		return m, nil
	case "enter":
		f.fieldErr = ""
		switch f.step {
		case 0:
			if err := cloud.ValidateDomain(strings.ToLower(f.domain.value)); err != nil {
				f.fieldErr = err.Error()
				return m, nil
			}
			f.step = 1
		case 1:
			port, err := strconv.Atoi(f.port.value)
			if err != nil || cloud.ValidatePort(port) != nil {
				f.fieldErr = "internal port must be between 1 and 65535"
				return m, nil
			}
			f.step = 2
		case 2:
			instance, ok := m.store.Instance(m.detailKey)
			if !ok {
				m.overlay = overlayNone
				return m, nil
			}
			port, _ := strconv.Atoi(f.port.value)
			domain := strings.ToLower(f.domain.value)
			if err := m.actions.AddVHost(context.Background(), instance, domain, port, f.https); err != nil {
				f.fieldErr = err.Error()
				return m, nil
			}
			m.overlay = overlayDetail
		}
		return m, nil
	}
	switch f.step {
	case 0:
		f.domain.handleKey(msg)
	case 1:
		f.port.handleKey(msg)
	case 2:
		if msg.String() == " " || msg.String() == "space" {
			f.https = !f.https
		}
	}
	return m, nil
}

// portForm forwards an external port to an internal one.
// Steps: 0 external port (prefilled with a free one), 1 internal port.
type portForm struct {
	step     int
	external textField
	internal textField
	fieldErr string
}

func (m model) updatePortForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.portForm
	f.external.numeric = true
	f.internal.numeric = true
	switch msg.String() {
	case "esc":
		m.overlay = overlayDetail
		return m, nil
	case "enter":
		f.fieldErr = ""
		switch f.step {
		case 0:
			port, err := strconv.Atoi(f.external.value)
			if err != nil || cloud.ValidateExternalPort(port) != nil {
				f.fieldErr = "external port must be between 1 and 65535 and not reserved"
				return m, nil
			}
			f.step = 1
		case 1:
			internal, err := strconv.Atoi(f.internal.value)
			if err != nil || cloud.ValidatePort(internal) != nil {
				f.fieldErr = "internal port must be between 1 and 65535"
				return m, nil
			}
			instance, ok := m.store.Instance(m.detailKey)
			if !ok {
				m.overlay = overlayNone
				return m, nil
			}
			external, _ := strconv.Atoi(f.external.value)
			if err := m.actions.AddPort(context.Background(), instance, external, internal); err != nil {
				f.fieldErr = err.Error()
				return m, nil
			}
			m.overlay = overlayDetail
		}
		return m, nil
	}
	switch f.step {
	case 0:
		f.external.handleKey(msg)
	case 1:
		f.internal.handleKey(msg)
	}
	return m, nil
}

// removalPicker selects a vhost or port forward to remove.
type removalPicker struct {
	entries  []string
	selected int
	isPort   bool
}

func newVHostPicker(instance cloud.Instance) removalPicker {
	var entries []string
	for domain := range instance.Metadata.Network.VHosts {
		entries = append(entries, domain)
	}
	sort.Strings(entries)
	return removalPicker{entries: entries}
}

func newPortPicker(instance cloud.Instance) removalPicker {
	var entries []string
	for external := range instance.Metadata.Network.Ports {
		entries = append(entries, strconv.Itoa(external))
	}
	sort.Strings(entries)
	return removalPicker{entries: entries, isPort: true}
}

func (m model) updateRemovalPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := &m.removal
	switch msg.String() {
	case "esc":
		m.overlay = overlayDetail
	case "up", "k":
		if p.selected > 0 {
			p.selected--
		}
	case "down", "j":
		if p.selected < len(p.entries)-1 {
			p.selected++
		}
	case "enter":
		instance, ok := m.store.Instance(m.detailKey)
		if !ok || len(p.entries) == 0 {
			m.overlay = overlayNone
			return m, nil
		}
		var err error
		if p.isPort {
			external, _ := strconv.Atoi(p.entries[p.selected])
			err = m.actions.RemovePort(context.Background(), instance, external)
		} else {
			err = m.actions.RemoveVHost(context.Background(), instance, p.entries[p.selected])
		}
		if err != nil {
			m.setNotice(err.Error(), true)
		}
		m.overlay = overlayDetail
	}
	return m, nil
}

// requestForm asks for a new instance.
// Steps: 0 template selection, 1 hostname, 2 reason.
type requestForm struct {
	step      int
	templates []cloud.Template
	selected  int
	hostname  textField
	reason    textField
	fieldErr  string
}

func (m model) updateRequestForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.requestForm
	switch msg.String() {
	case "esc":
		m.overlay = overlayNone
		return m, nil
	case "up", "k":
		if f.step == 0 && f.selected > 0 {
			f.selected--
		}
		return m, nil
	case "down", "j":
		if f.step == 0 && f.selected < len(f.templates)-1 {
			f.selected++
		}
		return m, nil
	case "enter":
		f.fieldErr = ""
		switch f.step {
		case 0:
			if len(f.templates) == 0 {
				f.fieldErr = "no templates available yet"
				return m, nil
			}
			f.step = 1
		case 1:
			if err := cloud.ValidateHostname(strings.ToLower(f.hostname.value)); err != nil {
				f.fieldErr = err.Error()
				return m, nil
			}
			f.step = 2
		case 2:
			if strings.TrimSpace(f.reason.value) == "" {
				f.fieldErr = "a reason is required"
				return m, nil
			}
			template := f.templates[f.selected]
			hostname := strings.ToLower(f.hostname.value)
			reason := f.reason.value
			client := m.client
			return m, func() tea.Msg {
				info, err := client.CreateInstanceRequest(context.Background(), template.Type, hostname, template.ID, reason)
				if err != nil {
					return formDoneMsg{err: err}
				}
				return formDoneMsg{message: infoMessage(info, "request submitted for review")}
			}
		}
		return m, nil
	}
	switch f.step {
	case 1:
		f.hostname.handleKey(msg)
	case 2:
		f.reason.handleKey(msg)
	}
	return m, nil
}

// approvalTemplateMsg carries the catalog entry named by a decoded
// approval token.
type approvalTemplateMsg struct {
	template *cloud.Template
	err      error
}

// approvalForm handles an admin approval deep link: paste the link,
// review the decoded request, approve or deny.
type approvalForm struct {
	step     int
	link     textField
	parsed   *approval.Link
	claims   *approval.DisplayClaims
	template *cloud.Template
	fieldErr string
}

func (m model) updateApprovalForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.approval
	switch msg.String() {
	case "esc":
		m.overlay = overlayNone
		return m, nil
	case "enter":
		if f.step == 0 {
			f.fieldErr = ""
			parsed, err := approval.ParseLink(strings.TrimSpace(f.link.value))
			if err != nil {
				f.fieldErr = err.Error()
				return m, nil
			}
			f.parsed = parsed
			// Decode for display only; the backend verifies the token.
			f.claims, _ = approval.DecodeToken(parsed.Token)
			f.step = 1
			if f.claims != nil && f.claims.Detail.TemplateID != "" {
				client := m.client
				typ, templateID := parsed.Type, f.claims.Detail.TemplateID
				return m, func() tea.Msg {
					template, err := client.TemplateByID(context.Background(), typ, templateID)
					return approvalTemplateMsg{template: template, err: err}
				}
			}
		}
		return m, nil
	case "y", "n":
		if f.step != 1 || f.parsed == nil {
			break
		}
		link := f.parsed
		client := m.client
		approve := msg.String() == "y"
		return m, func() tea.Msg {
			ctx := context.Background()
			var err error
			if approve {
				_, err = client.ApproveInstanceRequest(ctx, link.Username, link.Type, link.Hostname, link.Token)
			} else {
				_, err = client.DenyInstanceRequest(ctx, link.Username, link.Type, link.Hostname, link.Token)
			}
			if err != nil {
				return formDoneMsg{err: err}
			}
			decision := "denied"
			if approve {
				decision = "approved"
			}
			return formDoneMsg{message: "request for " + link.Hostname + " " + decision}
		}
	}
	if f.step == 0 {
		f.link.handleKey(msg)
	}
	return m, nil
}

// signupForm registers a UCC student account.
// Steps: 0 username, 1 email.
type signupForm struct {
	step     int
	username textField
	email    textField
	fieldErr string
}

func (m model) updateSignupForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.signupForm
	switch msg.String() {
	case "esc":
		m.overlay = overlayNone
		return m, nil
	case "enter":
		f.fieldErr = ""
		switch f.step {
		case 0:
			if strings.TrimSpace(f.username.value) == "" {
				f.fieldErr = "username is required"
				return m, nil
			}
			f.step = 1
		case 1:
			if !strings.Contains(f.email.value, "@") {
				f.fieldErr = "enter a valid email address"
				return m, nil
			}
			username, email := f.username.value, f.email.value
			client := m.client
			return m, func() tea.Msg {
				info, err := client.SignupUCCStudent(context.Background(), username, email)
				if err != nil {
					return formDoneMsg{err: err}
				}
				return formDoneMsg{message: infoMessage(info, "check your email to finish signing up")}
			}
		}
		return m, nil
	}
	switch f.step {
	case 0:
		f.username.handleKey(msg)
	case 1:
		f.email.handleKey(msg)
	}
	return m, nil
}

// verifyForm completes email verification and sets the password.
// Steps: 0 username or email, 1 token from the email, 2 password.
type verifyForm struct {
	step     int
	account  textField
	token    textField
	password textField
	fieldErr string
}

func (m model) updateVerifyForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.verifyForm
	f.password.secret = true
	switch msg.String() {
	case "esc":
		m.overlay = overlayNone
		return m, nil
	case "enter":
		f.fieldErr = ""
		switch f.step {
		case 0:
			if strings.TrimSpace(f.account.value) == "" {
				f.fieldErr = "username or email is required"
				return m, nil
			}
			f.step = 1
		case 1:
			if strings.TrimSpace(f.token.value) == "" {
				f.fieldErr = "paste the token from the verification email"
				return m, nil
			}
			f.step = 2
		case 2:
			if len(f.password.value) < 8 {
				f.fieldErr = "password must be at least 8 characters"
				return m, nil
			}
			account, token, password := f.account.value, f.token.value, f.password.value
			client := m.client
			return m, func() tea.Msg {
				info, err := client.VerifyAccount(context.Background(), account, token, password)
				if err != nil {
					return formDoneMsg{err: err}
				}
				return formDoneMsg{message: infoMessage(info, "account verified, you can sign in now")}
			}
		}
		return m, nil
	}
	switch f.step {
	case 0:
		f.account.handleKey(msg)
	case 1:
		f.token.handleKey(msg)
	case 2:
		f.password.handleKey(msg)
	}
	return m, nil
}
