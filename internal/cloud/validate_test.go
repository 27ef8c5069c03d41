package cloud

import "testing"

func TestValidateExternalPort(t *testing.T) {
	var tests = []struct {
		name string
		port int
		ok   bool
	}{
		{"Zero", 0, false},
		{"One", 1, true},
		{"Max", 65535, true},
		{"PastMax", 65536, false},
		{"Negative", -1, false},
		{"FTP", 21, false},
		{"Telnet", 23, false},
		{"SMTP", 25, false},
		{"DNS", 53, false},
		{"IMAP", 143, false},
		{"HTTP", 80, true},
		{"SSH", 22, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExternalPort(tt.port)
			if tt.ok && err != nil {
				t.Errorf("expected port %d to be accepted, got %s", tt.port, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("expected port %d to be rejected", tt.port)
			}
		})
	}
}

func TestValidatePortAllowsReserved(t *testing.T) {
	// The reserved set only applies to external forwards; internal service
	// ports may use them.
	for _, port := range []int{21, 23, 25, 53, 143} {
		if err := ValidatePort(port); err != nil {
			t.Errorf("expected internal port %d to be accepted, got %s", port, err)
		}
	}
}

func TestValidateDomain(t *testing.T) {
	var tests = []struct {
		name, domain string
		ok           bool
	}{
		{"CloudSubdomain", "test.netsoc.cloud", true},
		{"DeepSubdomain", "a.b.example.com", true},
		{"Hyphenated", "my-site.example.com", true},
		{"SingleLabel", "localhost", false},
		{"Empty", "", false},
		{"LeadingHyphen", "-bad.example.com", false},
		{"TrailingHyphen", "bad-.example.com", false},
		{"Scheme", "http://example.com", false},
		{"Uppercase", "Example.com", false},
		{"Space", "exa mple.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDomain(tt.domain)
			if tt.ok && err != nil {
				t.Errorf("expected %q to be accepted, got %s", tt.domain, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("expected %q to be rejected", tt.domain)
			}
		})
	}
}

func TestValidateHostname(t *testing.T) {
	var tests = []struct {
		name, hostname string
		ok             bool
	}{
		{"Simple", "myserver", true},
		{"Hyphenated", "my-server", true},
		{"Dotted", "my.server", false},
		{"Empty", "", false},
		{"Underscore", "my_server", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHostname(tt.hostname)
			if tt.ok && err != nil {
				t.Errorf("expected %q to be accepted, got %s", tt.hostname, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("expected %q to be rejected", tt.hostname)
			}
		})
	}
}
