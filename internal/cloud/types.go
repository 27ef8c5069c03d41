package cloud

// Type identifies the virtualisation flavour of an instance.
type Type string

const (
	// TypeLXC is a Linux container instance.
	TypeLXC Type = "lxc"
	// TypeVPS is a full virtual machine instance.
	TypeVPS Type = "vps"
)

// Types lists every instance type the platform offers, in display order.
var Types = []Type{TypeLXC, TypeVPS}

// Status is the lifecycle status reported for an instance.
type Status string

const (
	StatusNotApplicable Status = "n/a"
	StatusStopped       Status = "Stopped"
	StatusRunning       Status = "Running"
)

// Specs describes the resources allocated to an instance or template.
// Memory and swap are in MiB, disk space in GiB.
type Specs struct {
	Cores     int `json:"cores"`
	DiskSpace int `json:"disk_space"`
	Memory    int `json:"memory"`
	Swap      int `json:"swap"`
}

// VHostOptions configures a single virtual-host binding.
// Port is the internal port traffic is forwarded to. HTTPS reports whether
// the service inside the instance already terminates TLS itself; when false
// the platform provisions managed SSL in front of it.
type VHostOptions struct {
	Port  int  `json:"port"`
	HTTPS bool `json:"https"`
}

// NICAllocation is the network interface assignment for an instance.
type NICAllocation struct {
	Addresses  []string `json:"addresses"`
	Gateway4   string   `json:"gateway4"`
	MACAddress string   `json:"macaddress"`
}

// Network holds an instance's port forwards and virtual-host bindings.
// Ports maps external port to internal port. VHosts maps domain to options.
type Network struct {
	Ports         map[int]int             `json:"ports"`
	VHosts        map[string]VHostOptions `json:"vhosts"`
	NICAllocation NICAllocation           `json:"nic_allocation"`
}

// RootUser holds the credentials the platform manages for an instance's
// root account.
type RootUser struct {
	PasswordHash      string `json:"password_hash"`
	SSHPublicKey      string `json:"ssh_public_key"`
	MgmtSSHPublicKey  string `json:"mgmt_ssh_public_key"`
	MgmtSSHPrivateKey string `json:"mgmt_ssh_private_key"`
}

// RequestDetail is the user-supplied justification attached to an
// instance request.
type RequestDetail struct {
	TemplateID string `json:"template_id"`
	Reason     string `json:"reason"`
}

// ToS records a terms-of-service suspension.
type ToS struct {
	Suspended bool   `json:"suspended"`
	Reason    string `json:"reason"`
}

// Metadata is the platform-side bookkeeping attached to an instance.
type Metadata struct {
	Groups        []string          `json:"groups"`
	HostVars      map[string]string `json:"host_vars"`
	Owner         string            `json:"owner"`
	ToS           ToS               `json:"tos"`
	Permanent     bool              `json:"permanent"`
	Network       Network           `json:"network"`
	RootUser      RootUser          `json:"root_user"`
	RequestDetail RequestDetail     `json:"request_detail"`
}

// Instance is a provisioned container or virtual machine owned by a user.
// It is fetched from the backend and never mutated locally; the ID is
// stable and correlates an in-flight action with its target row.
type Instance struct {
	Type                   Type     `json:"type"`
	Node                   string   `json:"node"`
	ID                     int      `json:"id"`
	Hostname               string   `json:"hostname"`
	FQDN                   string   `json:"fqdn"`
	Specs                  Specs    `json:"specs"`
	Active                 bool     `json:"active"`
	InactivityShutdownDate string   `json:"inactivity_shutdown_date"`
	InactivityDeletionDate string   `json:"inactivity_deletion_date"`
	Metadata               Metadata `json:"metadata"`
	Remarks                []string `json:"remarks"`
	Status                 Status   `json:"status"`

	// Uptime is in seconds and only present for running instances.
	Uptime int64 `json:"uptime,omitempty"`
	// Mem and Disk are current usage metrics; zero means unavailable.
	Mem  int64 `json:"mem"`
	Disk int64 `json:"disk"`
}

// Key returns the identity used to correlate actions with this instance.
func (i Instance) Key() string {
	return string(i.Type) + "/" + i.Hostname
}

// TemplateMetadata is the display metadata of a catalog entry.
type TemplateMetadata struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
	LogoURL     string `json:"logo_url"`
}

// Template is a predefined base image and spec combination offered for
// new instance requests. The catalog is read-only.
type Template struct {
	// ID is the catalog key; the API returns templates as a map keyed by
	// it, so it is filled in client-side after decoding.
	ID       string           `json:"-"`
	Type     Type             `json:"-"`
	Metadata TemplateMetadata `json:"metadata"`
	Specs    Specs            `json:"specs"`
}

// Request is an instance request awaiting approval.
type Request struct {
	Username string        `json:"username"`
	Hostname string        `json:"hostname"`
	Type     Type          `json:"type"`
	Detail   RequestDetail `json:"detail"`
}

// VHostRequirements describes what a user must set up before pointing
// their own domain at the platform.
type VHostRequirements struct {
	BaseDomain   string `json:"base_domain"`
	UserSupplied struct {
		VerificationTextName string   `json:"verification_text_name"`
		AllowedAAAAA         []string `json:"allowed_a_aaaa"`
	} `json:"user_supplied"`
}
