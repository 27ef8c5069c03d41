package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/UCCNetsoc/cloud/internal/cloud"
	"github.com/UCCNetsoc/cloud/internal/session"
	"github.com/UCCNetsoc/cloud/internal/store"
)

var (
	primaryColor   = lipgloss.Color("#0A96C9")
	secondaryColor = lipgloss.Color("#FF8C00")
	errorColor     = lipgloss.Color("#FF6B6B")
	mutedColor     = lipgloss.Color("#626262")

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Italic(true).
			MarginBottom(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	noticeErrStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	dialogBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2).
			Width(70)

	dialogTitle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			MarginBottom(1)

	fieldLabel = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	fieldInput = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#3C3C3C")).
			Padding(0, 1).
			Width(50)

	fieldMuted = lipgloss.NewStyle().
			Foreground(mutedColor)

	fieldError = lipgloss.NewStyle().
			Foreground(errorColor)

	helpText = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true).
			MarginTop(1)

	warningBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFA500")).
			Padding(2, 4).
			Width(60)
)

// View renders the panel: header, instance table and footer, with any
// open overlay centered on top.
func (m model) View() string {
	header := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("Netsoc Cloud v%s", m.version)),
		subtitleStyle.Render(m.sessionLine()),
	)

	var body string
	if m.state == session.Authenticated {
		body = m.table.View()
	} else {
		body = m.signedOutView()
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		body,
		m.noticeLine(),
		footerStyle.Render(m.footerHints()),
	)

	if dialog := m.overlayView(); dialog != "" {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
	}

	if m.width > 0 {
		content = lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, content)
	}
	return content
}

func (m model) sessionLine() string {
	switch m.state {
	case session.Authenticated:
		if m.user != nil {
			return fmt.Sprintf("signed in as %s", m.user.Username)
		}
		return "signed in"
	case session.PendingInteractiveSignIn:
		return "waiting for the browser sign-in to finish..."
	case session.PendingSilentRenew:
		return "renewing session..."
	default:
		return "not signed in"
	}
}

func (m model) signedOutView() string {
	lines := []string{
		"Welcome to Netsoc Cloud, UCC's student hosting platform.",
		"",
		fieldLabel.Render("l") + "  sign in with your Netsoc account",
		fieldLabel.Render("u") + "  sign up as a UCC student",
		fieldLabel.Render("e") + "  verify your email and set a password",
	}
	return strings.Join(lines, "\n")
}

func (m model) noticeLine() string {
	if m.notice == "" {
		return ""
	}
	if m.noticeErr {
		return noticeErrStyle.Render(m.notice)
	}
	return noticeStyle.Render(m.notice)
}

func (m model) footerHints() string {
	if m.state != session.Authenticated {
		return "l: sign in / u: sign up / e: verify / q: quit"
	}
	return "Enter: details / c: request instance / g: review request / o: sign out / q: quit"
}

func (m model) overlayView() string {
	switch m.overlay {
	case overlayDetail:
		return m.detailView()
	case overlayConfirmDelete:
		return m.confirmDeleteView()
	case overlayConfirmQuit:
		return m.confirmQuitView()
	case overlayVHostForm:
		return m.vhostFormView()
	case overlayPortForm:
		return m.portFormView()
	case overlayRemoveVHost, overlayRemovePort:
		return m.removalView()
	case overlayRequestForm:
		return m.requestFormView()
	case overlayApproval:
		return m.approvalView()
	case overlaySignup:
		return m.signupView()
	case overlayVerify:
		return m.verifyView()
	}
	return ""
}

func (m model) detailView() string {
	instance, ok := m.store.Instance(m.detailKey)
	if !ok {
		return ""
	}

	lines := []string{
		dialogTitle.Render(fmt.Sprintf("%s (%s)", instance.Hostname, strings.ToUpper(string(instance.Type)))),
		fieldMuted.Render(fmt.Sprintf("%s on %s", instance.FQDN, instance.Node)),
		"",
		fmt.Sprintf("%s %s", fieldLabel.Render("Status:"), string(instance.Status)),
		fmt.Sprintf("%s %d cores, %d MiB RAM, %d GiB disk",
			fieldLabel.Render("Specs:"), instance.Specs.Cores, instance.Specs.Memory, instance.Specs.DiskSpace),
	}

	if derived, ok := m.derivedFor(m.detailKey); ok {
		lines = append(lines,
			fmt.Sprintf("%s %s", fieldLabel.Render("Uptime:"), derived.Uptime),
			fmt.Sprintf("%s %s", fieldLabel.Render("Memory:"), derived.MemUsage),
			fmt.Sprintf("%s %s", fieldLabel.Render("Disk:"), derived.DiskUsage),
		)
		if derived.Shutdown.Text != "" {
			lines = append(lines, fieldError.Render("Inactivity shutdown: "+derived.Shutdown.Text))
		}
		if derived.Deletion.Text != "" {
			lines = append(lines, fieldError.Render("Inactivity deletion: "+derived.Deletion.Text))
		}
	}

	if instance.Metadata.ToS.Suspended {
		lines = append(lines, "", fieldError.Render("Suspended: "+instance.Metadata.ToS.Reason))
	}
	for _, remark := range instance.Remarks {
		lines = append(lines, fieldMuted.Render("note: "+remark))
	}

	if m.cfg.TerminalURL != "" {
		lines = append(lines, fieldMuted.Render("web terminal: "+m.cfg.TerminalURL))
	}
	if m.cfg.SFTPURL != "" {
		lines = append(lines, fieldMuted.Render("sftp: "+m.cfg.SFTPURL))
	}

	lines = append(lines, "", fieldLabel.Render("VHosts:"))
	lines = append(lines, vhostLines(instance)...)
	lines = append(lines, "", fieldLabel.Render("Port forwards:"))
	lines = append(lines, portLines(instance)...)

	if verb, busy := m.actions.Pending(m.detailKey); busy {
		lines = append(lines, "", noticeStyle.Render(verb+" in progress..."))
		lines = append(lines, helpText.Render("Esc: close"))
	} else if !instance.Active {
		lines = append(lines, "", helpText.Render("a: reactivate / Esc: close"))
	} else {
		lines = append(lines, "",
			helpText.Render("s: start / S: stop / h: shutdown / r: reset root password / d: delete"),
			helpText.Render("v/V: add/remove vhost / p/P: add/remove port forward / Esc: close"),
		)
	}

	return dialogBorder.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func vhostLines(instance cloud.Instance) []string {
	vhosts := instance.Metadata.Network.VHosts
	if len(vhosts) == 0 {
		return []string{fieldMuted.Render("  none")}
	}
	domains := make([]string, 0, len(vhosts))
	for domain := range vhosts {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	lines := make([]string, 0, len(domains))
	for _, domain := range domains {
		options := vhosts[domain]
		ssl := "managed SSL"
		if options.HTTPS {
			ssl = "self-managed TLS"
		}
		lines = append(lines, fmt.Sprintf("  %s -> :%d (%s)", domain, options.Port, ssl))
	}
	return lines
}

func portLines(instance cloud.Instance) []string {
	ports := instance.Metadata.Network.Ports
	if len(ports) == 0 {
		return []string{fieldMuted.Render("  none")}
	}
	externals := make([]int, 0, len(ports))
	for external := range ports {
		externals = append(externals, external)
	}
	sort.Ints(externals)
	lines := make([]string, 0, len(externals))
	for _, external := range externals {
		lines = append(lines, fmt.Sprintf("  :%d -> :%d", external, ports[external]))
	}
	return lines
}

func (m model) derivedFor(key string) (store.Derived, bool) {
	for i, instance := range m.instances {
		if instance.Key() == key && i < len(m.derived) {
			return m.derived[i], true
		}
	}
	return store.Derived{}, false
}

func (m model) confirmDeleteView() string {
	instance, _ := m.store.Instance(m.detailKey)
	return warningBorder.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		dialogTitle.Render("Confirm Delete"),
		fmt.Sprintf("Delete %s and all of its data?", instance.Hostname),
		fieldMuted.Render("A running instance is shut down first."),
		helpText.Render("y: delete / n or Esc: cancel"),
	))
}

func (m model) confirmQuitView() string {
	return warningBorder.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		dialogTitle.Render("Confirm Quit"),
		"Your instances keep running; this only closes the panel.",
		helpText.Render("y: quit / n or Esc: cancel"),
	))
}

func (m model) vhostFormView() string {
	f := m.vhostForm
	lines := []string{
		dialogTitle.Render("Add VHost"),
		fieldMuted.Render(fmt.Sprintf("Step %d of 3", f.step+1)),
		"",
	}
	switch f.step {
	case 0:
		lines = append(lines,
			fieldLabel.Render("Domain:"),
			fieldInput.Render(f.domain.display()+"_"),
		)
		if f.requirements != nil {
			lines = append(lines, "",
				fieldMuted.Render(fmt.Sprintf("Subdomains of %s work immediately.", f.requirements.BaseDomain)),
				fieldMuted.Render(fmt.Sprintf("Your own domain needs a %s TXT record and an A/AAAA record pointing at: %s",
					f.requirements.UserSupplied.VerificationTextName,
					strings.Join(f.requirements.UserSupplied.AllowedAAAAA, ", "))),
			)
		}
	case 1:
		lines = append(lines,
			fieldMuted.Render("Domain: "+f.domain.value),
			"",
			fieldLabel.Render("Internal port:"),
			fieldInput.Render(f.port.display()+"_"),
		)
	case 2:
		toggle := "[ ] platform-managed SSL"
		if f.https {
			toggle = "[x] my service terminates TLS itself"
		}
		lines = append(lines,
			fieldMuted.Render(fmt.Sprintf("Domain: %s / Port: %s", f.domain.value, f.port.value)),
			"",
			fieldLabel.Render("TLS:"),
			toggle,
			helpText.Render("Space: toggle"),
		)
	}
	return m.finishForm(lines, f.fieldErr, "Enter: next / Esc: back")
}

func (m model) portFormView() string {
	f := m.portForm
	lines := []string{
		dialogTitle.Render("Add Port Forward"),
		fieldMuted.Render(fmt.Sprintf("Step %d of 2", f.step+1)),
		"",
	}
	switch f.step {
	case 0:
		lines = append(lines,
			fieldLabel.Render("External port:"),
			fieldInput.Render(f.external.display()+"_"),
			fieldMuted.Render("prefilled with a free port; 21, 23, 25, 53 and 143 are reserved"),
		)
	case 1:
		lines = append(lines,
			fieldMuted.Render("External port: "+f.external.value),
			"",
			fieldLabel.Render("Internal port:"),
			fieldInput.Render(f.internal.display()+"_"),
		)
	}
	return m.finishForm(lines, f.fieldErr, "Enter: next / Esc: back")
}

func (m model) removalView() string {
	p := m.removal
	title := "Remove VHost"
	if p.isPort {
		title = "Remove Port Forward"
	}
	lines := []string{dialogTitle.Render(title), ""}
	for i, entry := range p.entries {
		prefix := "  "
		if i == p.selected {
			prefix = "> "
		}
		lines = append(lines, fieldLabel.Render(prefix+entry))
	}
	return m.finishForm(lines, "", "up/down: navigate / Enter: remove / Esc: back")
}

func (m model) requestFormView() string {
	f := m.requestForm
	lines := []string{
		dialogTitle.Render("Request New Instance"),
		fieldMuted.Render(fmt.Sprintf("Step %d of 3", f.step+1)),
		"",
	}
	switch f.step {
	case 0:
		lines = append(lines, fieldLabel.Render("Template:"), "")
		for i, template := range f.templates {
			prefix := "  "
			if i == f.selected {
				prefix = "> "
			}
			lines = append(lines, fieldLabel.Render(prefix+template.Metadata.Title)+
				fieldMuted.Render(fmt.Sprintf("  %s, %d cores / %d MiB / %d GiB",
					strings.ToUpper(string(template.Type)), template.Specs.Cores, template.Specs.Memory, template.Specs.DiskSpace)))
		}
		if len(f.templates) == 0 {
			lines = append(lines, fieldMuted.Render("  no templates loaded yet"))
		}
	case 1:
		template := f.templates[f.selected]
		lines = append(lines,
			fieldMuted.Render("Template: "+template.Metadata.Title),
			"",
			fieldLabel.Render("Hostname:"),
			fieldInput.Render(f.hostname.display()+"_"),
			fieldMuted.Render("a single DNS label, e.g. minecraft"),
		)
	case 2:
		lines = append(lines,
			fieldMuted.Render(fmt.Sprintf("Template: %s / Hostname: %s", f.templates[f.selected].Metadata.Title, f.hostname.value)),
			"",
			fieldLabel.Render("What will you use it for?"),
			fieldInput.Render(f.reason.display()+"_"),
		)
	}
	return m.finishForm(lines, f.fieldErr, "Enter: next / Esc: cancel")
}

func (m model) approvalView() string {
	f := m.approval
	lines := []string{dialogTitle.Render("Review Instance Request"), ""}
	if f.step == 0 {
		lines = append(lines,
			fieldLabel.Render("Paste the approval link from the email:"),
			fieldInput.Render(f.link.display()+"_"),
		)
		return m.finishForm(lines, f.fieldErr, "Enter: decode / Esc: cancel")
	}
	lines = append(lines,
		fmt.Sprintf("%s %s", fieldLabel.Render("User:"), f.parsed.Username),
		fmt.Sprintf("%s %s (%s)", fieldLabel.Render("Instance:"), f.parsed.Hostname, f.parsed.Type),
	)
	if f.claims != nil {
		templateName := f.claims.Detail.TemplateID
		if f.template != nil {
			templateName = f.template.Metadata.Title
		}
		lines = append(lines,
			fmt.Sprintf("%s %s", fieldLabel.Render("Template:"), templateName),
			fmt.Sprintf("%s %s", fieldLabel.Render("Reason:"), f.claims.Detail.Reason),
		)
	}
	return m.finishForm(lines, f.fieldErr, "y: approve / n: deny / Esc: cancel")
}

func (m model) signupView() string {
	f := m.signupForm
	lines := []string{
		dialogTitle.Render("Sign Up"),
		fieldMuted.Render("UCC students sign up with their student email."),
		"",
	}
	switch f.step {
	case 0:
		lines = append(lines, fieldLabel.Render("Username:"), fieldInput.Render(f.username.display()+"_"))
	case 1:
		lines = append(lines,
			fieldMuted.Render("Username: "+f.username.value),
			"",
			fieldLabel.Render("UCC email:"),
			fieldInput.Render(f.email.display()+"_"),
		)
	}
	return m.finishForm(lines, f.fieldErr, "Enter: next / Esc: cancel")
}

func (m model) verifyView() string {
	f := m.verifyForm
	lines := []string{
		dialogTitle.Render("Verify Account"),
		fieldMuted.Render(fmt.Sprintf("Step %d of 3", f.step+1)),
		"",
	}
	switch f.step {
	case 0:
		lines = append(lines, fieldLabel.Render("Username or email:"), fieldInput.Render(f.account.display()+"_"))
	case 1:
		lines = append(lines, fieldLabel.Render("Verification token:"), fieldInput.Render(f.token.display()+"_"))
	case 2:
		lines = append(lines, fieldLabel.Render("New password:"), fieldInput.Render(f.password.display()+"_"))
	}
	return m.finishForm(lines, f.fieldErr, "Enter: next / Esc: cancel")
}

func (m model) finishForm(lines []string, fieldErr, hints string) string {
	if fieldErr != "" {
		lines = append(lines, "", fieldError.Render(fieldErr))
	}
	lines = append(lines, helpText.Render(hints))
	return dialogBorder.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// createInstanceTable builds the main table from the current snapshot.
func createInstanceTable(instances []cloud.Instance, derived []store.Derived) table.Model {
	columns := []table.Column{
		{Title: "Type", Width: 5},
		{Title: "Hostname", Width: 20},
		{Title: "Status", Width: 10},
		{Title: "Uptime", Width: 12},
		{Title: "Cores", Width: 6},
		{Title: "Memory", Width: 24},
		{Title: "Disk", Width: 24},
		{Title: "Active", Width: 18},
	}

	rows := make([]table.Row, len(instances))
	for i, instance := range instances {
		var d store.Derived
		if i < len(derived) {
			d = derived[i]
		}
		activity := "yes"
		if !instance.Active {
			activity = "shutdown " + d.Shutdown.Text
			if d.Shutdown.Past {
				activity = "deletion " + d.Deletion.Text
			}
		}
		rows[i] = table.Row{
			strings.ToUpper(string(instance.Type)),
			instance.Hostname,
			string(instance.Status),
			d.Uptime,
			strconv.Itoa(instance.Specs.Cores),
			d.MemUsage,
			d.DiskUsage,
			activity,
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(primaryColor).
		BorderBottom(true).
		Bold(true).
		Foreground(primaryColor)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(primaryColor).
		Bold(true)
	t.SetStyles(s)

	return t
}
