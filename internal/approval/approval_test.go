package approval

import (
	"encoding/base64"
	"testing"

	"github.com/UCCNetsoc/cloud/internal/cloud"
	"github.com/google/go-cmp/cmp"
)

// makeToken assembles a JWT-shaped string with a garbage signature. If
// decoding required signature verification, these tests would fail.
func makeToken(t *testing.T, payload string) string {
	t.Helper()
	encode := func(s string) string {
		return base64.RawURLEncoding.EncodeToString([]byte(s))
	}
	return encode(`{"alg":"HS256","typ":"JWT"}`) + "." + encode(payload) + "." + encode("not a real signature")
}

func TestDecodeToken(t *testing.T) {
	token := makeToken(t, `{
		"username": "ocanty",
		"hostname": "blog",
		"type": "lxc",
		"detail": {"template_id": "ubuntu", "reason": "coursework hosting"}
	}`)

	claims, err := DecodeToken(token)
	if err != nil {
		t.Fatal(err)
	}

	expected := &DisplayClaims{
		Username: "ocanty",
		Hostname: "blog",
		Type:     cloud.TypeLXC,
		Detail:   cloud.RequestDetail{TemplateID: "ubuntu", Reason: "coursework hosting"},
	}
	if diff := cmp.Diff(expected, claims); diff != "" {
		t.Errorf("unexpected claims (-want +got):\n%s", diff)
	}
}

func TestDecodeTokenGarbage(t *testing.T) {
	if _, err := DecodeToken("definitely-not-a-jwt"); err == nil {
		t.Error("expected an error for a malformed token")
	}
}

func TestParseLink(t *testing.T) {
	var tests = []struct {
		name, link string
		expected   *Link
	}{
		{
			"Bare",
			"ocanty/lxc-request/blog/sometoken",
			&Link{Username: "ocanty", Type: cloud.TypeLXC, Hostname: "blog", Token: "sometoken"},
		},
		{
			"WithPrefix",
			"/instance-request/ocanty/vps-request/game-server/sometoken",
			&Link{Username: "ocanty", Type: cloud.TypeVPS, Hostname: "game-server", Token: "sometoken"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, err := ParseLink(tt.link)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.expected, link); diff != "" {
				t.Errorf("unexpected link (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseLinkRejects(t *testing.T) {
	for _, link := range []string{
		"",
		"ocanty/lxc/blog/token",
		"ocanty/docker-request/blog/token",
		"ocanty/lxc-request/blog",
	} {
		if _, err := ParseLink(link); err == nil {
			t.Errorf("expected %q to be rejected", link)
		}
	}
}
