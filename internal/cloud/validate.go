package cloud

import (
	"fmt"
	"regexp"
)

// reservedPorts are external ports that may never be forwarded, mirroring
// the platform's policy for mail, DNS and legacy remote-access services.
var reservedPorts = map[int]bool{
	21:  true,
	23:  true,
	25:  true,
	53:  true,
	143: true,
}

// dnsLabel matches a single conservative DNS label: alphanumeric, with
// interior hyphens, at most 63 characters.
var dnsLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// domainPattern matches a fully qualified domain of at least two labels.
var domainPattern = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidateHostname checks a proposed instance hostname. Hostnames are a
// single DNS label (the platform appends its own base domain).
func ValidateHostname(hostname string) error {
	if !dnsLabel.MatchString(hostname) {
		return fmt.Errorf("invalid hostname %q: must be a lowercase DNS label", hostname)
	}
	return nil
}

// ValidateDomain checks a virtual-host domain name.
func ValidateDomain(domain string) error {
	if len(domain) > 255 {
		return fmt.Errorf("invalid domain %q: longer than 255 characters", domain)
	}
	if !domainPattern.MatchString(domain) {
		return fmt.Errorf("invalid domain %q: must be a fully qualified lowercase domain name", domain)
	}
	return nil
}

// ValidatePort checks that a port is usable as an internal service port.
func ValidatePort(port int) error {
	if port <= 0 || port >= 65536 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", port)
	}
	return nil
}

// ValidateExternalPort checks that a port is usable as an internet-facing
// forward. On top of the range check it rejects the reserved set.
func ValidateExternalPort(port int) error {
	if err := ValidatePort(port); err != nil {
		return err
	}
	if reservedPorts[port] {
		return fmt.Errorf("invalid port %d: reserved by the platform", port)
	}
	return nil
}
