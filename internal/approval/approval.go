// Package approval handles instance-request approval deep links. The
// embedded token is decoded for display only and is deliberately kept
// away from the session packages: nothing here verifies a signature or
// grants access. The backend re-verifies the token when the decision is
// submitted.
package approval

import (
	"fmt"
	"strings"

	"github.com/UCCNetsoc/cloud/internal/cloud"
	"github.com/golang-jwt/jwt/v4"
)

// Link is a parsed approval deep link of the form
// /instance-request/{username}/{type}-request/{hostname}/{token}.
type Link struct {
	Username string
	Type     cloud.Type
	Hostname string
	Token    string
}

// DisplayClaims is the decoded, UNVERIFIED payload of an approval token.
// It is only suitable for rendering the approval screen; trust decisions
// belong to the backend.
type DisplayClaims struct {
	Username string              `json:"username"`
	Hostname string              `json:"hostname"`
	Type     cloud.Type          `json:"type"`
	Detail   cloud.RequestDetail `json:"detail"`
}

// ParseLink splits an approval deep link into its components.
func ParseLink(link string) (*Link, error) {
	parts := strings.Split(strings.Trim(link, "/"), "/")
	if len(parts) == 5 && parts[0] == "instance-request" {
		parts = parts[1:]
	}
	if len(parts) != 4 {
		return nil, fmt.Errorf("malformed approval link: expected {username}/{type}-request/{hostname}/{token}")
	}

	typ, ok := strings.CutSuffix(parts[1], "-request")
	if !ok {
		return nil, fmt.Errorf("malformed approval link: %q is not a request segment", parts[1])
	}
	if cloud.Type(typ) != cloud.TypeLXC && cloud.Type(typ) != cloud.TypeVPS {
		return nil, fmt.Errorf("malformed approval link: unknown instance type %q", typ)
	}

	return &Link{
		Username: parts[0],
		Type:     cloud.Type(typ),
		Hostname: parts[2],
		Token:    parts[3],
	}, nil
}

// DecodeToken decodes the token payload without verifying its signature.
func DecodeToken(token string) (*DisplayClaims, error) {
	claims := new(DisplayClaims)
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode approval token: %w", err)
	}
	return claims, nil
}

// Valid implements jwt.Claims. The decode is display-only, so there is
// nothing to validate here; expiry enforcement happens on the backend.
func (c *DisplayClaims) Valid() error {
	return nil
}
